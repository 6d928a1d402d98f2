package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	ferrors "github.com/Aman-CERP/findex/internal/errors"
)

// Scanner walks directory trees with fixed Options.
type Scanner struct {
	opts Options
}

// New creates a Scanner.
func New(opts Options) *Scanner {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 256
	}
	return &Scanner{opts: opts}
}

// CheckRoot verifies that root exists, is a directory and can be listed.
// The returned path is absolute and cleaned.
func CheckRoot(root string) (string, error) {
	if root == "" {
		return "", ferrors.New(ferrors.ErrCodeInvalidPath, "No directory path provided", nil)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", ferrors.New(ferrors.ErrCodeInvalidPath, fmt.Sprintf("Cannot access directory: %s", root), err)
	}

	info, err := os.Stat(abs)
	switch {
	case os.IsNotExist(err):
		return "", ferrors.New(ferrors.ErrCodeDirNotFound, fmt.Sprintf("Cannot access directory: %s", abs), err).
			WithSuggestion("Check that the path exists")
	case err != nil:
		return "", ferrors.New(ferrors.ErrCodeDirPermission, fmt.Sprintf("Cannot access directory: %s", abs), err)
	case !info.IsDir():
		return "", ferrors.New(ferrors.ErrCodeNotDirectory, fmt.Sprintf("Cannot access directory: %s is not a directory", abs), nil)
	}

	f, err := os.Open(abs)
	if err != nil {
		return "", ferrors.New(ferrors.ErrCodeDirPermission, fmt.Sprintf("Cannot access directory: %s", abs), err).
			WithSuggestion("Check read permissions on the directory")
	}
	_ = f.Close()

	return abs, nil
}

// Scan starts enumerating root in the background and returns the result
// channel. The root itself is never emitted. Unreadable subdirectories are
// skipped; failing to read the root is reported as a final Err result.
// Cancelling ctx stops the walk and closes the channel.
func (s *Scanner) Scan(ctx context.Context, root string) (<-chan Result, error) {
	abs, err := CheckRoot(root)
	if err != nil {
		return nil, err
	}

	results := make(chan Result, s.opts.Buffer)
	go func() {
		defer close(results)
		w := &walk{
			ctx:     ctx,
			opts:    s.opts,
			out:     results,
			visited: make(map[string]struct{}),
		}
		if err := w.dir(abs, 0); err != nil && ctx.Err() == nil {
			select {
			case results <- Result{Err: err}:
			case <-ctx.Done():
			}
		}
	}()

	return results, nil
}

// List enumerates root synchronously and returns every emitted path.
func List(ctx context.Context, root string, opts Options) ([]string, error) {
	results, err := New(opts).Scan(ctx, root)
	if err != nil {
		return nil, err
	}

	var paths []string
	for r := range results {
		if r.Err != nil {
			return paths, r.Err
		}
		paths = append(paths, r.Entry.Path)
	}
	if err := ctx.Err(); err != nil {
		return paths, err
	}
	return paths, nil
}

type walk struct {
	ctx     context.Context
	opts    Options
	out     chan<- Result
	visited map[string]struct{}
}

// dir lists path and recurses. Only an error at depth 0 is returned.
func (w *walk) dir(path string, depth int) error {
	if w.opts.FollowSymlinks {
		real, err := filepath.EvalSymlinks(path)
		if err != nil {
			real = path
		}
		if _, seen := w.visited[real]; seen {
			slog.Debug("scan_cycle_skipped", slog.String("path", path), slog.String("target", real))
			return nil
		}
		w.visited[real] = struct{}{}
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		if depth == 0 {
			return ferrors.IOError(fmt.Sprintf("Failed to enumerate %s: %v", path, err), err)
		}
		slog.Debug("scan_dir_unreadable", slog.String("path", path), slog.String("error", err.Error()))
		// ReadDir returns what it managed to read before the error.
		if len(entries) == 0 {
			return nil
		}
	}

	for _, d := range entries {
		if err := w.ctx.Err(); err != nil {
			return err
		}

		full := filepath.Join(path, d.Name())
		if w.opts.Skip != nil && w.opts.Skip(full) {
			continue
		}

		isDir := d.IsDir()
		descend := isDir
		if d.Type()&os.ModeSymlink != 0 {
			if !w.opts.FollowSymlinks {
				descend = false
			} else if info, statErr := os.Stat(full); statErr == nil && info.IsDir() {
				isDir, descend = true, true
			}
		}

		if !isDir || w.opts.IncludeDirs {
			select {
			case w.out <- Result{Entry: Entry{Path: full, IsDir: isDir}}:
			case <-w.ctx.Done():
				return w.ctx.Err()
			}
		}

		if descend && depth+1 < w.opts.MaxDepth {
			if err := w.dir(full, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}
