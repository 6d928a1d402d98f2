package scanner

import (
	"os"
	"path/filepath"

	"github.com/Aman-CERP/findex/internal/features"
)

// Stat returns the metadata of path, following symlinks. Created is the
// birth time where the platform records one and the modification time
// otherwise.
func Stat(path string) (features.Meta, error) {
	info, err := os.Stat(path)
	if err != nil {
		return features.Meta{}, err
	}
	return features.Meta{
		Path:     path,
		Name:     filepath.Base(path),
		Size:     info.Size(),
		Modified: info.ModTime(),
		Created:  birthTime(path, info),
		IsDir:    info.IsDir(),
	}, nil
}
