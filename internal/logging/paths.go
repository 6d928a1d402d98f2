package logging

import (
	"os"
	"path/filepath"
)

// DefaultLogDir returns $FINDEX_HOME/logs, falling back to ~/.findex/logs
// and then to the temp directory.
func DefaultLogDir() string {
	if v := os.Getenv("FINDEX_HOME"); v != "" {
		return filepath.Join(v, "logs")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".findex", "logs")
	}
	return filepath.Join(home, ".findex", "logs")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "findex.log")
}
