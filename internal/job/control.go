// Package job holds the control plane shared by the crawl and index stages:
// the pause/cancel signals, the event protocol spoken to the host, and the
// per-job phase tracker.
package job

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrCancelled is returned by a stage that observed cancellation. It marks
// an outcome, not a failure, and is never reported as an Error event.
var ErrCancelled = errors.New("job cancelled")

// DefaultPollInterval is how long a paused stage sleeps between checks.
const DefaultPollInterval = 100 * time.Millisecond

// Control carries the pause and cancel flags of one job. The host writes
// them; stages poll them at every item boundary through Checkpoint. A new
// job always gets a fresh Control.
type Control struct {
	paused    atomic.Bool
	cancelled atomic.Bool
	interval  time.Duration
}

// NewControl creates a Control that polls at interval while paused.
func NewControl(interval time.Duration) *Control {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Control{interval: interval}
}

// SetPaused requests a pause or a resume and reports whether the flag
// changed. Pausing a cancelled job is a no-op.
func (c *Control) SetPaused(paused bool) bool {
	if paused && c.cancelled.Load() {
		return false
	}
	return c.paused.Swap(paused) != paused
}

// Cancel requests cancellation and clears any pause so a paused stage wakes
// within one poll interval.
func (c *Control) Cancel() {
	c.cancelled.Store(true)
	c.paused.Store(false)
}

// IsPaused reports the pause flag.
func (c *Control) IsPaused() bool { return c.paused.Load() }

// IsCancelled reports the cancel flag.
func (c *Control) IsCancelled() bool { return c.cancelled.Load() }

// PollInterval returns the pause poll interval.
func (c *Control) PollInterval() time.Duration { return c.interval }

// Checkpoint is called by a stage between items. It returns ErrCancelled
// once cancel was requested or ctx is done, blocks while paused (sleeping
// in poll-interval steps and re-checking cancel on every wake), and
// otherwise returns nil immediately.
func (c *Control) Checkpoint(ctx context.Context) error {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		if c.cancelled.Load() || ctx.Err() != nil {
			return ErrCancelled
		}
		if !c.paused.Load() {
			return nil
		}

		if timer == nil {
			timer = time.NewTimer(c.interval)
		} else {
			timer.Reset(c.interval)
		}
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ErrCancelled
		}
	}
}
