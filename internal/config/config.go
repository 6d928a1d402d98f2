package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Backend kinds understood by the store factory.
const (
	BackendBleve       = "bleve"
	BackendSQLite      = "sqlite"
	BackendMeilisearch = "meilisearch"
)

// Pipeline constants. BatchSize and ProgressEvery are the documented
// defaults; tests shrink them through IndexConfig.
const (
	DefaultBatchSize       = 1000
	DefaultProgressEvery   = 100
	DefaultPollInterval    = 100 * time.Millisecond
	DefaultMaxContentBytes = 1 << 20
	DefaultMaxDepth        = 256
	DefaultSearchLimit     = 50
)

// Config represents the complete findex configuration.
type Config struct {
	Version int           `yaml:"version" toml:"version" json:"version"`
	Scan    ScanConfig    `yaml:"scan" toml:"scan" json:"scan"`
	Index   IndexConfig   `yaml:"index" toml:"index" json:"index"`
	Backend BackendConfig `yaml:"backend" toml:"backend" json:"backend"`
	Search  SearchConfig  `yaml:"search" toml:"search" json:"search"`
	Logging LoggingConfig `yaml:"logging" toml:"logging" json:"logging"`
}

// ScanConfig configures tree enumeration shared by both stages.
type ScanConfig struct {
	// FollowSymlinks descends into symlinked directories (cycle safe).
	FollowSymlinks bool `yaml:"follow_symlinks" toml:"follow_symlinks" json:"follow_symlinks"`

	// IncludeDirs emits directories as entries alongside files.
	IncludeDirs bool `yaml:"include_dirs" toml:"include_dirs" json:"include_dirs"`

	// MaxDepth is the safety cap on recursion depth.
	MaxDepth int `yaml:"max_depth" toml:"max_depth" json:"max_depth"`

	// ExtraExcludes are appended to the built-in exclusion substrings.
	ExtraExcludes []string `yaml:"extra_excludes" toml:"extra_excludes" json:"extra_excludes"`
}

// IndexConfig configures the index stage.
type IndexConfig struct {
	BatchSize       int           `yaml:"batch_size" toml:"batch_size" json:"batch_size"`
	ProgressEvery   int           `yaml:"progress_every" toml:"progress_every" json:"progress_every"`
	PollInterval    time.Duration `yaml:"poll_interval" toml:"poll_interval" json:"poll_interval"`
	MaxContentBytes int64         `yaml:"max_content_bytes" toml:"max_content_bytes" json:"max_content_bytes"`
}

// BackendConfig selects and addresses the document index.
type BackendConfig struct {
	// Kind is one of bleve, sqlite or meilisearch.
	Kind string `yaml:"kind" toml:"kind" json:"kind"`

	// Path is the on-disk location for local backends. Empty means in-memory.
	Path string `yaml:"path" toml:"path" json:"path"`

	// Endpoint, APIKey and IndexName address a Meilisearch service.
	Endpoint  string `yaml:"endpoint" toml:"endpoint" json:"endpoint"`
	APIKey    string `yaml:"api_key" toml:"api_key" json:"-"`
	IndexName string `yaml:"index_name" toml:"index_name" json:"index_name"`

	// Timeout bounds each HTTP call to a remote backend.
	Timeout time.Duration `yaml:"timeout" toml:"timeout" json:"timeout"`
}

// SearchConfig configures query handling.
type SearchConfig struct {
	Limit     int `yaml:"limit" toml:"limit" json:"limit"`
	CacheSize int `yaml:"cache_size" toml:"cache_size" json:"cache_size"`
}

// LoggingConfig configures the rotating log file.
type LoggingConfig struct {
	Level     string `yaml:"level" toml:"level" json:"level"`
	MaxSizeMB int    `yaml:"max_size_mb" toml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" toml:"max_files" json:"max_files"`
}

// NewConfig creates a new Config with defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Scan: ScanConfig{
			FollowSymlinks: true,
			IncludeDirs:    true,
			MaxDepth:       DefaultMaxDepth,
		},
		Index: IndexConfig{
			BatchSize:       DefaultBatchSize,
			ProgressEvery:   DefaultProgressEvery,
			PollInterval:    DefaultPollInterval,
			MaxContentBytes: DefaultMaxContentBytes,
		},
		Backend: BackendConfig{
			Kind:      BackendBleve,
			Path:      filepath.Join(DataDir(), "index"),
			Endpoint:  "http://localhost:7700",
			IndexName: "files",
			Timeout:   30 * time.Second,
		},
		Search: SearchConfig{
			Limit:     DefaultSearchLimit,
			CacheSize: 256,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

// DataDir returns the findex data directory: $FINDEX_HOME or ~/.findex.
func DataDir() string {
	if v := os.Getenv("FINDEX_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".findex")
	}
	return filepath.Join(home, ".findex")
}

// GetUserConfigPath returns the path to the user configuration file.
// It follows the XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/findex/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/findex/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "findex", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "findex", "config.yaml")
	}
	return filepath.Join(home, ".config", "findex", "config.yaml")
}

// projectConfigNames are checked in order; the first present file wins.
var projectConfigNames = []string{".findex.yaml", ".findex.yml", ".findex.toml"}

// Load loads configuration for dir. Precedence, lowest first:
//  1. Defaults
//  2. User config (~/.config/findex/config.yaml)
//  3. Project config (.findex.yaml, .findex.yml or .findex.toml in dir)
//  4. Environment variables (FINDEX_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userPath := GetUserConfigPath(); fileExists(userPath) {
		if err := cfg.LoadFile(userPath); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
	}

	if dir != "" {
		for _, name := range projectConfigNames {
			p := filepath.Join(dir, name)
			if fileExists(p) {
				if err := cfg.LoadFile(p); err != nil {
					return nil, err
				}
				break
			}
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadFile merges the file at path into c. The format follows the
// extension: .toml is TOML, anything else YAML. Keys absent from the file
// keep their current values; extra_excludes are appended.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	extras := c.Scan.ExtraExcludes
	c.Scan.ExtraExcludes = nil

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), c); err != nil {
			c.Scan.ExtraExcludes = extras
			return fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, c); err != nil {
		c.Scan.ExtraExcludes = extras
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.Scan.ExtraExcludes = append(extras, c.Scan.ExtraExcludes...)
	return nil
}

// applyEnvOverrides applies FINDEX_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("FINDEX_BACKEND"); v != "" {
		c.Backend.Kind = strings.ToLower(v)
	}
	if v := os.Getenv("FINDEX_BACKEND_PATH"); v != "" {
		c.Backend.Path = v
	}
	if v := os.Getenv("FINDEX_MEILI_URL"); v != "" {
		c.Backend.Endpoint = v
	}
	// FINDEX_MEILI_KEY keeps the credential out of config files.
	if v := os.Getenv("FINDEX_MEILI_KEY"); v != "" {
		c.Backend.APIKey = v
	}
	if v := os.Getenv("FINDEX_INDEX_NAME"); v != "" {
		c.Backend.IndexName = v
	}
	if v := os.Getenv("FINDEX_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Index.BatchSize = n
		}
	}
	if v := os.Getenv("FINDEX_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.Index.PollInterval = d
		}
	}
	if v := os.Getenv("FINDEX_FOLLOW_SYMLINKS"); v != "" {
		c.Scan.FollowSymlinks = strings.ToLower(v) == "true" || v == "1"
	}
	if v := os.Getenv("FINDEX_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Backend.Kind) {
	case BackendBleve, BackendSQLite:
	case BackendMeilisearch:
		if c.Backend.Endpoint == "" {
			return fmt.Errorf("backend.endpoint is required for meilisearch")
		}
		if c.Backend.IndexName == "" {
			return fmt.Errorf("backend.index_name is required for meilisearch")
		}
	default:
		return fmt.Errorf("backend.kind must be 'bleve', 'sqlite' or 'meilisearch', got %q", c.Backend.Kind)
	}

	if c.Index.BatchSize <= 0 {
		return fmt.Errorf("index.batch_size must be positive, got %d", c.Index.BatchSize)
	}
	if c.Index.ProgressEvery <= 0 {
		return fmt.Errorf("index.progress_every must be positive, got %d", c.Index.ProgressEvery)
	}
	if c.Index.PollInterval <= 0 {
		return fmt.Errorf("index.poll_interval must be positive, got %s", c.Index.PollInterval)
	}
	if c.Index.MaxContentBytes < 0 || c.Index.MaxContentBytes > DefaultMaxContentBytes {
		return fmt.Errorf("index.max_content_bytes must be between 0 and %d, got %d",
			DefaultMaxContentBytes, c.Index.MaxContentBytes)
	}
	if c.Scan.MaxDepth <= 0 {
		return fmt.Errorf("scan.max_depth must be positive, got %d", c.Scan.MaxDepth)
	}
	if c.Search.Limit <= 0 || c.Search.Limit > DefaultSearchLimit {
		return fmt.Errorf("search.limit must be between 1 and %d, got %d", DefaultSearchLimit, c.Search.Limit)
	}
	if c.Search.CacheSize < 0 {
		return fmt.Errorf("search.cache_size must be non-negative, got %d", c.Search.CacheSize)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
