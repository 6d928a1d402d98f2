package ui

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Aman-CERP/findex/internal/job"
)

// PlainRenderer writes one line per event (for CI and pipes). Progress
// lines are throttled; every other event is always written.
type PlainRenderer struct {
	mu      sync.Mutex
	out     io.Writer
	limiter *rate.Limiter
	done    chan struct{}
}

// NewPlainRenderer creates a plain text renderer.
func NewPlainRenderer(cfg Config) *PlainRenderer {
	limit := rate.Inf
	if cfg.ProgressInterval > 0 {
		limit = rate.Every(cfg.ProgressInterval)
	}
	return &PlainRenderer{
		out:     cfg.Output,
		limiter: rate.NewLimiter(limit, 1),
		done:    make(chan struct{}),
	}
}

// Start implements Renderer.
func (r *PlainRenderer) Start(ctx context.Context) error {
	return nil
}

// Handle implements Renderer.
func (r *PlainRenderer) Handle(e job.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tag := stageLabel(e.Stage)
	switch e.Type {
	case job.KindStatus:
		_, _ = fmt.Fprintf(r.out, "[%s] %s\n", tag, e.Message)

	case job.KindProgress:
		if e.Progress == nil || !r.limiter.Allow() {
			return
		}
		pct := 0.0
		if e.Progress.Total > 0 {
			pct = float64(e.Progress.Indexed) / float64(e.Progress.Total) * 100
		}
		_, _ = fmt.Fprintf(r.out, "[%s] %d/%d (%.0f%%)\n", tag, e.Progress.Indexed, e.Progress.Total, pct)

	case job.KindResult:
		if e.Stats == nil {
			return
		}
		noun := "entries found"
		if e.Stage == job.StageIndex {
			noun = "files indexed"
		}
		_, _ = fmt.Fprintf(r.out, "[%s] Complete: %d %s in %s (%d files/s)\n",
			tag, e.Stats.TotalFiles, noun, formatSeconds(e.Stats.ElapsedSeconds), e.Stats.FilesPerSecond)

	case job.KindCancelled:
		_, _ = fmt.Fprintf(r.out, "[%s] Cancelled\n", tag)

	case job.KindError:
		if e.Code != "" {
			_, _ = fmt.Fprintf(r.out, "ERROR [%s]: %s\n", e.Code, e.Message)
		} else {
			_, _ = fmt.Fprintf(r.out, "ERROR: %s\n", e.Message)
		}

	case job.KindSearchResults:
		for _, h := range e.Hits {
			_, _ = fmt.Fprintf(r.out, "%s\t%s\t%s\n", h.Path, FormatBytes(h.Size), h.Modified.Format("2006-01-02 15:04"))
		}
	}
}

// Done implements Renderer. A plain renderer has no keys, so it never
// closes.
func (r *PlainRenderer) Done() <-chan struct{} {
	return r.done
}

// Stop implements Renderer.
func (r *PlainRenderer) Stop() error {
	return nil
}

// formatSeconds prints elapsed seconds with millisecond precision.
func formatSeconds(secs float64) string {
	return (time.Duration(secs * float64(time.Second))).Round(time.Millisecond).String()
}

var _ Renderer = (*PlainRenderer)(nil)
