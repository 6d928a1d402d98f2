// Package index implements the index stage and the coordinator that runs a
// scan job: crawl first, then index the same root.
package index

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Aman-CERP/findex/internal/config"
	"github.com/Aman-CERP/findex/internal/crawl"
	ferrors "github.com/Aman-CERP/findex/internal/errors"
	"github.com/Aman-CERP/findex/internal/features"
	"github.com/Aman-CERP/findex/internal/job"
	"github.com/Aman-CERP/findex/internal/scanner"
	"github.com/Aman-CERP/findex/internal/store"
)

// Status narration of the index stage.
const (
	StatusClearing = "Clearing previous index..."
	statusStarting = "Starting indexing of %d files..."
)

// RunnerResult contains the outcome of an index run.
type RunnerResult struct {
	// Files is the number of records built and dispatched.
	Files int

	// Enumerated is the number of entries the walk produced.
	Enumerated int

	// Skipped counts entries dropped because stat failed.
	Skipped int

	// Batches is the number of AddDocuments calls.
	Batches int

	// Duration is measured from the end of the reset.
	Duration time.Duration

	// Stats is what the Result event carried.
	Stats job.Stats
}

// RunnerDependencies contains the injected dependencies for Runner.
type RunnerDependencies struct {
	// Store receives the batches (required).
	Store store.DocumentIndex

	// Config supplies scan and index settings (required).
	Config *config.Config

	// Walk is the enumeration shared with the crawl stage.
	Walk crawl.Options

	// Stat overrides scanner.Stat.
	Stat func(path string) (features.Meta, error)

	// Now overrides time.Now.
	Now func() time.Time

	// OnIndexChanged runs after the reset and after every added batch.
	OnIndexChanged func()
}

// Runner executes the index stage.
type Runner struct {
	store      store.DocumentIndex
	walk       crawl.Options
	batchSize  int
	every      int
	maxContent int64
	stat       func(string) (features.Meta, error)
	now        func() time.Time
	changed    func()
}

// NewRunner creates a Runner with injected dependencies.
func NewRunner(deps RunnerDependencies) (*Runner, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("document index is required")
	}
	if deps.Config == nil {
		return nil, fmt.Errorf("config is required")
	}

	r := &Runner{
		store:      deps.Store,
		walk:       deps.Walk,
		batchSize:  deps.Config.Index.BatchSize,
		every:      deps.Config.Index.ProgressEvery,
		maxContent: deps.Config.Index.MaxContentBytes,
		stat:       deps.Stat,
		now:        deps.Now,
		changed:    deps.OnIndexChanged,
	}
	if r.batchSize <= 0 {
		r.batchSize = config.DefaultBatchSize
	}
	if r.every <= 0 {
		r.every = config.DefaultProgressEvery
	}
	if r.maxContent <= 0 || r.maxContent > features.MaxReadableSize {
		r.maxContent = features.MaxReadableSize
	}
	if r.changed == nil {
		r.changed = func() {}
	}
	if r.stat == nil {
		r.stat = scanner.Stat
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r, nil
}

// Run wipes the index, enumerates root, builds a record per entry and
// dispatches records in batches. Cancellation returns job.ErrCancelled
// without flushing the pending batch and without a result event.
func (r *Runner) Run(ctx context.Context, env job.Env, root string) (RunnerResult, error) {
	var result RunnerResult

	env.Emit(job.Status(StatusClearing))
	if err := r.store.Reset(context.WithoutCancel(ctx)); err != nil {
		return result, ferrors.New(ferrors.ErrCodeResetFailed,
			fmt.Sprintf("Failed to clear index: %v", err), err)
	}
	r.changed()
	if err := env.Control.Checkpoint(ctx); err != nil {
		return result, err
	}

	start := r.now()

	var entries []scanner.Entry
	err := crawl.Walk(ctx, root, r.walk, env.Control, func(e scanner.Entry) error {
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return result, err
	}
	result.Enumerated = len(entries)
	total := len(entries)
	if env.Tracker != nil {
		env.Tracker.SetTotal(total)
	}
	env.Emit(job.Status(fmt.Sprintf(statusStarting, total)))

	batch := make([]features.Record, 0, min(r.batchSize, total))
	for _, e := range entries {
		if err := env.Control.Checkpoint(ctx); err != nil {
			return result, err
		}

		meta, err := r.stat(e.Path)
		if err != nil {
			result.Skipped++
			slog.Debug("index_stat_failed", slog.String("path", e.Path), slog.String("error", err.Error()))
			continue
		}

		var content *string
		if meta.ShouldReadContent(r.maxContent) {
			content = readContent(e.Path, r.maxContent)
		}
		batch = append(batch, features.BuildRecord(meta, content))
		result.Files++

		if result.Files%r.every == 0 {
			if env.Tracker != nil {
				env.Tracker.SetIndexed(result.Files)
			}
			env.Emit(job.Progress(result.Files, total))
		}

		if len(batch) >= r.batchSize {
			if err := r.dispatch(ctx, batch); err != nil {
				return result, err
			}
			result.Batches++
			batch = make([]features.Record, 0, r.batchSize)
		}
	}

	if len(batch) > 0 {
		if err := r.dispatch(ctx, batch); err != nil {
			return result, err
		}
		result.Batches++
	}

	result.Duration = r.now().Sub(start)
	result.Stats = job.NewStats(result.Files, result.Duration)
	if env.Tracker != nil {
		env.Tracker.SetIndexed(result.Files)
		env.Tracker.SetStats(job.StageIndex, result.Stats)
	}
	env.Emit(job.Result(result.Stats, root))

	slog.Info("index_complete",
		slog.String("root", root),
		slog.Int("files", result.Files),
		slog.Int("skipped", result.Skipped),
		slog.Int("batches", result.Batches),
		slog.Duration("duration", result.Duration))
	return result, nil
}

// dispatch sends one batch. An in-flight call is not interrupted by
// cancellation.
func (r *Runner) dispatch(ctx context.Context, batch []features.Record) error {
	if err := r.store.AddDocuments(context.WithoutCancel(ctx), batch); err != nil {
		return ferrors.New(ferrors.ErrCodeDispatchFailed,
			fmt.Sprintf("Failed to index batch of %d files: %v", len(batch), err), err)
	}
	r.changed()
	return nil
}

// readContent reads at most limit bytes as text. Any failure yields nil so
// the record degrades to metadata only.
func readContent(path string, limit int64) *string {
	f, err := os.Open(path)
	if err != nil {
		slog.Debug("index_read_failed", slog.String("path", path), slog.String("error", err.Error()))
		return nil
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit))
	if err != nil {
		slog.Debug("index_read_failed", slog.String("path", path), slog.String("error", err.Error()))
		return nil
	}
	s := strings.ToValidUTF8(string(data), "\uFFFD")
	return &s
}
