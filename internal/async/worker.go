// Package async runs pipeline stages on their own goroutines with a
// start/wait lifecycle and an on-disk marker for interrupted work.
package async

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// MarkerName is the file left behind while an index run is incomplete.
const MarkerName = "indexing.lock"

// StageFunc is the work a Worker runs.
type StageFunc func(ctx context.Context) error

// WorkerConfig configures a Worker.
type WorkerConfig struct {
	// Name is used in logs.
	Name string

	// MarkerPath, when set, is written before the stage runs and removed
	// only after it returns nil. A marker that survives a run means the
	// stage was cancelled, failed, or the process died.
	MarkerPath string
}

// Worker runs one StageFunc in a background goroutine. A Worker runs at
// most once; create a new one per stage invocation. The stage stops when
// the context passed to Start is cancelled.
type Worker struct {
	config WorkerConfig
	fn     StageFunc
	doneCh chan struct{}

	mu      sync.Mutex
	started bool
	err     error
}

// NewWorker creates a Worker for fn.
func NewWorker(cfg WorkerConfig, fn StageFunc) *Worker {
	return &Worker{
		config: cfg,
		fn:     fn,
		doneCh: make(chan struct{}),
	}
}

// Start launches the stage and returns immediately. Later calls are no-ops.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()

	go w.run(ctx)
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.doneCh)

	if w.config.MarkerPath != "" {
		if err := writeMarker(w.config.MarkerPath); err != nil {
			w.setErr(err)
			return
		}
	}

	start := time.Now()
	err := w.runStage(ctx)
	slog.Debug("stage finished",
		slog.String("stage", w.config.Name),
		slog.Duration("elapsed", time.Since(start)),
		slog.Any("error", err))
	if err != nil {
		w.setErr(err)
		return
	}

	if w.config.MarkerPath != "" {
		_ = os.Remove(w.config.MarkerPath)
	}
}

func (w *Worker) runStage(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("stage %s panicked: %v", w.config.Name, r)
		}
	}()
	if w.fn == nil {
		return nil
	}
	return w.fn(ctx)
}

func (w *Worker) setErr(err error) {
	w.mu.Lock()
	w.err = err
	w.mu.Unlock()
}

// Wait blocks until the stage returns and reports its error. Waiting on a
// Worker that was never started returns nil.
func (w *Worker) Wait() error {
	w.mu.Lock()
	started := w.started
	w.mu.Unlock()
	if !started {
		return nil
	}

	<-w.doneCh
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func writeMarker(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create marker dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(time.Now().Format(time.RFC3339)), 0o644); err != nil {
		return fmt.Errorf("write marker: %w", err)
	}
	return nil
}

// MarkerPath returns the marker location inside dataDir.
func MarkerPath(dataDir string) string {
	return filepath.Join(dataDir, MarkerName)
}

// HasIncompleteMarker checks whether a previous index run left its marker.
func HasIncompleteMarker(dataDir string) bool {
	_, err := os.Stat(MarkerPath(dataDir))
	return err == nil
}

// MarkerTime returns when the surviving marker was written.
func MarkerTime(dataDir string) (time.Time, error) {
	data, err := os.ReadFile(MarkerPath(dataDir))
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, string(data))
}

// ClearMarker removes a stale marker. A missing marker is not an error.
func ClearMarker(dataDir string) error {
	err := os.Remove(MarkerPath(dataDir))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
