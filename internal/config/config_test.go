package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the user config and data dir at temp directories so a
// developer's own ~/.config/findex never leaks into a test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("FINDEX_HOME", t.TempDir())
}

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	isolate(t)

	// Given: no configuration
	cfg := NewConfig()

	// Then: pipeline constants match the documented defaults
	require.NotNil(t, cfg)
	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, 1000, cfg.Index.BatchSize)
	assert.Equal(t, 100, cfg.Index.ProgressEvery)
	assert.Equal(t, 100*time.Millisecond, cfg.Index.PollInterval)
	assert.Equal(t, int64(1<<20), cfg.Index.MaxContentBytes)
	assert.True(t, cfg.Scan.FollowSymlinks)
	assert.True(t, cfg.Scan.IncludeDirs)
	assert.Equal(t, 256, cfg.Scan.MaxDepth)
	assert.Equal(t, BackendBleve, cfg.Backend.Kind)
	assert.Equal(t, "files", cfg.Backend.IndexName)
	assert.Equal(t, "http://localhost:7700", cfg.Backend.Endpoint)
	assert.Equal(t, 50, cfg.Search.Limit)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_NoConfigFile_ReturnsDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, BackendBleve, cfg.Backend.Kind)
}

func TestLoad_YamlFile_OverridesDefaults(t *testing.T) {
	isolate(t)

	// Given: a project .findex.yaml
	dir := t.TempDir()
	content := `
scan:
  follow_symlinks: false
  extra_excludes: ["/build/"]
index:
  batch_size: 250
  poll_interval: 20ms
backend:
  kind: sqlite
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".findex.yaml"), []byte(content), 0o644))

	// When: loading
	cfg, err := Load(dir)

	// Then: overrides apply and untouched keys keep defaults
	require.NoError(t, err)
	assert.False(t, cfg.Scan.FollowSymlinks)
	assert.Equal(t, []string{"/build/"}, cfg.Scan.ExtraExcludes)
	assert.Equal(t, 250, cfg.Index.BatchSize)
	assert.Equal(t, 20*time.Millisecond, cfg.Index.PollInterval)
	assert.Equal(t, 100, cfg.Index.ProgressEvery)
	assert.Equal(t, BackendSQLite, cfg.Backend.Kind)
}

func TestLoad_TomlFile_OverridesDefaults(t *testing.T) {
	isolate(t)

	// Given: a project .findex.toml
	dir := t.TempDir()
	content := `
[backend]
kind = "meilisearch"
endpoint = "http://meili:7700"
index_name = "docs"

[search]
limit = 10
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".findex.toml"), []byte(content), 0o644))

	// When: loading
	cfg, err := Load(dir)

	// Then: TOML values are applied
	require.NoError(t, err)
	assert.Equal(t, BackendMeilisearch, cfg.Backend.Kind)
	assert.Equal(t, "http://meili:7700", cfg.Backend.Endpoint)
	assert.Equal(t, "docs", cfg.Backend.IndexName)
	assert.Equal(t, 10, cfg.Search.Limit)
}

func TestLoad_YamlPreferredOverToml(t *testing.T) {
	isolate(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".findex.yaml"), []byte("search:\n  limit: 5\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".findex.toml"), []byte("[search]\nlimit = 7\n"), 0o644))

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Search.Limit)
}

func TestLoad_UserConfigThenProject_ExtraExcludesAppend(t *testing.T) {
	isolate(t)

	// Given: a user config and a project config both adding excludes
	userPath := GetUserConfigPath()
	require.NoError(t, os.MkdirAll(filepath.Dir(userPath), 0o755))
	require.NoError(t, os.WriteFile(userPath, []byte("scan:\n  extra_excludes: [\"/cache/\"]\n"), 0o644))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".findex.yml"), []byte("scan:\n  extra_excludes: [\"/tmp/\"]\n"), 0o644))

	// When: loading
	cfg, err := Load(dir)

	// Then: both lists are kept in precedence order
	require.NoError(t, err)
	assert.Equal(t, []string{"/cache/", "/tmp/"}, cfg.Scan.ExtraExcludes)
}

func TestLoad_InvalidYaml_ReturnsError(t *testing.T) {
	isolate(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".findex.yaml"), []byte("index: [unclosed"), 0o644))

	_, err := Load(dir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)

	// Given: environment overrides
	t.Setenv("FINDEX_BACKEND", "MEILISEARCH")
	t.Setenv("FINDEX_MEILI_URL", "http://10.0.0.2:7700")
	t.Setenv("FINDEX_MEILI_KEY", "secret")
	t.Setenv("FINDEX_BATCH_SIZE", "42")
	t.Setenv("FINDEX_POLL_INTERVAL", "5ms")
	t.Setenv("FINDEX_FOLLOW_SYMLINKS", "0")
	t.Setenv("FINDEX_LOG_LEVEL", "debug")

	// When: loading
	cfg, err := Load("")

	// Then: env wins
	require.NoError(t, err)
	assert.Equal(t, BackendMeilisearch, cfg.Backend.Kind)
	assert.Equal(t, "http://10.0.0.2:7700", cfg.Backend.Endpoint)
	assert.Equal(t, "secret", cfg.Backend.APIKey)
	assert.Equal(t, 42, cfg.Index.BatchSize)
	assert.Equal(t, 5*time.Millisecond, cfg.Index.PollInterval)
	assert.False(t, cfg.Scan.FollowSymlinks)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_InvalidEnvNumber_Ignored(t *testing.T) {
	isolate(t)
	t.Setenv("FINDEX_BATCH_SIZE", "-3")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, DefaultBatchSize, cfg.Index.BatchSize)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"unknown backend", func(c *Config) { c.Backend.Kind = "solr" }, "backend.kind"},
		{"meili without endpoint", func(c *Config) { c.Backend.Kind = BackendMeilisearch; c.Backend.Endpoint = "" }, "backend.endpoint"},
		{"zero batch", func(c *Config) { c.Index.BatchSize = 0 }, "batch_size"},
		{"zero progress", func(c *Config) { c.Index.ProgressEvery = 0 }, "progress_every"},
		{"zero poll", func(c *Config) { c.Index.PollInterval = 0 }, "poll_interval"},
		{"limit above cap", func(c *Config) { c.Search.Limit = 51 }, "search.limit"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"zero depth", func(c *Config) { c.Scan.MaxDepth = 0 }, "max_depth"},
		{"content above readable ceiling", func(c *Config) { c.Index.MaxContentBytes = 2 << 20 }, "max_content_bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWriteYAML_RoundTrips(t *testing.T) {
	isolate(t)

	// Given: a modified config
	cfg := NewConfig()
	cfg.Index.BatchSize = 64
	cfg.Backend.Kind = BackendSQLite
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	// When: writing and reading it back
	require.NoError(t, cfg.WriteYAML(path))
	loaded := NewConfig()
	require.NoError(t, loaded.LoadFile(path))

	// Then: values survive
	assert.Equal(t, 64, loaded.Index.BatchSize)
	assert.Equal(t, BackendSQLite, loaded.Backend.Kind)
	assert.Equal(t, cfg.Index.PollInterval, loaded.Index.PollInterval)
}

func TestDataDir_HonoursEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FINDEX_HOME", dir)
	assert.Equal(t, dir, DataDir())
}
