// Package crawl implements the counting pass over a directory tree and the
// shared policy-filtered walk the index stage reuses.
package crawl

import (
	"context"
	"time"

	"github.com/Aman-CERP/findex/internal/exclude"
	"github.com/Aman-CERP/findex/internal/job"
	"github.com/Aman-CERP/findex/internal/scanner"
)

// StatusCounting is the narration emitted when a crawl starts.
const StatusCounting = "Counting files..."

// seenEvery is how often the crawl pushes its running count to the tracker.
const seenEvery = 64

// Options configures the walk both stages perform.
type Options struct {
	FollowSymlinks bool
	IncludeDirs    bool
	MaxDepth       int

	// Policy filters entries. Nil means exclude.Default().
	Policy *exclude.Policy
}

func (o Options) scanner(root string) *scanner.Scanner {
	policy := o.Policy
	if policy == nil {
		policy = exclude.Default()
	}
	policy = policy.ForRoot(root)

	return scanner.New(scanner.Options{
		FollowSymlinks: o.FollowSymlinks,
		IncludeDirs:    o.IncludeDirs,
		MaxDepth:       o.MaxDepth,
		Skip:           policy.IsExcluded,
	})
}

// Walk calls fn for every non-excluded entry under root in enumeration
// order. Before each entry it passes through ctl's checkpoint, so a paused
// walk blocks and a cancelled walk returns job.ErrCancelled. An error from
// fn stops the walk and is returned as is.
func Walk(ctx context.Context, root string, opts Options, ctl *job.Control, fn func(scanner.Entry) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results, err := opts.scanner(root).Scan(ctx, root)
	if err != nil {
		return err
	}

	for r := range results {
		if err := ctl.Checkpoint(ctx); err != nil {
			return err
		}
		if r.Err != nil {
			return r.Err
		}
		if err := fn(r.Entry); err != nil {
			return err
		}
	}

	// The scanner closes its channel silently on cancellation.
	if err := ctl.Checkpoint(ctx); err != nil {
		return err
	}
	return nil
}

// Crawler counts the entries the index stage will later process.
type Crawler struct {
	opts Options
	now  func() time.Time
}

// New creates a Crawler.
func New(opts Options) *Crawler {
	return &Crawler{opts: opts, now: time.Now}
}

// Run counts every non-excluded entry under root. It emits a status event
// first and a result event on success. On cancellation it returns
// job.ErrCancelled without a result.
func (c *Crawler) Run(ctx context.Context, env job.Env, root string) (job.Stats, error) {
	env.Emit(job.Status(StatusCounting))
	start := c.now()

	count := 0
	err := Walk(ctx, root, c.opts, env.Control, func(scanner.Entry) error {
		count++
		if count%seenEvery == 0 && env.Tracker != nil {
			env.Tracker.SetSeen(count)
		}
		return nil
	})
	if err != nil {
		return job.Stats{}, err
	}

	stats := job.NewStats(count, c.now().Sub(start))
	if env.Tracker != nil {
		env.Tracker.SetSeen(count)
		env.Tracker.SetStats(job.StageCrawl, stats)
	}
	env.Emit(job.Result(stats, root))
	return stats, nil
}
