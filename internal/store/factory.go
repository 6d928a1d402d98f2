package store

import (
	"fmt"
	"path/filepath"

	"github.com/Aman-CERP/findex/internal/config"
)

// Local index file names inside BackendConfig.Path.
const (
	BleveDirName   = "files.bleve"
	SQLiteFileName = "files.db"
)

// Open creates the DocumentIndex selected by cfg. Local backends with an
// empty Path are in-memory.
func Open(cfg config.BackendConfig) (DocumentIndex, error) {
	switch cfg.Kind {
	case config.BackendBleve, "":
		return NewBleveIndex(localPath(cfg.Path, BleveDirName))
	case config.BackendSQLite:
		return NewSQLiteIndex(localPath(cfg.Path, SQLiteFileName))
	case config.BackendMeilisearch:
		return NewMeiliIndex(MeiliConfig{
			Endpoint:  cfg.Endpoint,
			APIKey:    cfg.APIKey,
			IndexName: cfg.IndexName,
			Timeout:   cfg.Timeout,
		})
	default:
		return nil, fmt.Errorf("unknown backend: %s (valid options: bleve, sqlite, meilisearch)", cfg.Kind)
	}
}

func localPath(dir, name string) string {
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, name)
}

// IsLocal reports whether the backend keeps its data under Path.
func IsLocal(cfg config.BackendConfig) bool {
	return cfg.Kind != config.BackendMeilisearch
}
