package cmd

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Aman-CERP/findex/internal/config"
	"github.com/Aman-CERP/findex/internal/store"
)

// loadConfig loads the effective configuration for the working directory.
func loadConfig() (*config.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}
	cfg, err := config.Load(cwd)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// openIndex opens the configured document index.
func openIndex(cfg *config.Config) (store.DocumentIndex, error) {
	if store.IsLocal(cfg.Backend) && cfg.Backend.Path != "" {
		if err := os.MkdirAll(cfg.Backend.Path, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", err)
		}
	}
	idx, err := store.Open(cfg.Backend)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s index: %w", cfg.Backend.Kind, err)
	}
	return idx, nil
}

// acquireWriter takes the cross-process writer lock in the data directory.
func acquireWriter() (*store.WriterLock, error) {
	lock := store.NewWriterLock(config.DataDir())
	if err := lock.TryLock(); err != nil {
		return nil, err
	}
	return lock, nil
}

// indexLocation describes where the configured backend keeps its data.
func indexLocation(cfg *config.Config) string {
	if !store.IsLocal(cfg.Backend) {
		return cfg.Backend.Endpoint
	}
	if cfg.Backend.Path == "" {
		return "(in memory)"
	}
	return cfg.Backend.Path
}

// dirSize sums regular file sizes under path. Errors yield a partial sum.
func dirSize(path string) int64 {
	var total int64
	_ = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				total += info.Size()
			}
		}
		return nil
	})
	return total
}
