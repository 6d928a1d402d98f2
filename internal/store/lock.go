package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	ferrors "github.com/Aman-CERP/findex/internal/errors"
)

// WriterLockName is the lock file guarding a local index against two
// concurrent writers.
const WriterLockName = "writer.lock"

// WriterLock is a cross-process exclusive lock held for the lifetime of a
// writing process (a scan, or the MCP server).
type WriterLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewWriterLock creates a lock at <dir>/writer.lock.
func NewWriterLock(dir string) *WriterLock {
	p := filepath.Join(dir, WriterLockName)
	return &WriterLock{path: p, flock: flock.New(p)}
}

// TryLock acquires the lock without blocking. A lock held elsewhere is
// reported as an IndexLocked error.
func (l *WriterLock) TryLock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		return ferrors.New(ferrors.ErrCodeIndexLocked,
			fmt.Sprintf("Index is being written by another process (%s)", l.path), nil).
			WithSuggestion("Wait for the other scan to finish")
	}
	l.locked = true
	return nil
}

// Unlock releases the lock. It is safe to call on an unlocked WriterLock.
func (l *WriterLock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *WriterLock) Path() string { return l.path }

// IsLocked reports whether this process holds the lock.
func (l *WriterLock) IsLocked() bool { return l.locked }
