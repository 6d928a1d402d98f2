package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Aman-CERP/findex/internal/async"
	"github.com/Aman-CERP/findex/internal/config"
	"github.com/Aman-CERP/findex/internal/crawl"
	ferrors "github.com/Aman-CERP/findex/internal/errors"
	"github.com/Aman-CERP/findex/internal/exclude"
	"github.com/Aman-CERP/findex/internal/features"
	"github.com/Aman-CERP/findex/internal/job"
	"github.com/Aman-CERP/findex/internal/scanner"
	"github.com/Aman-CERP/findex/internal/store"
)

// DefaultEventBuffer sizes the queue between the stages and the event
// forwarder.
const DefaultEventBuffer = 256

// CoordinatorConfig contains configuration for the Coordinator.
type CoordinatorConfig struct {
	// Config supplies scan and index settings (required).
	Config *config.Config

	// Store is the document index the index stage writes (required).
	Store store.DocumentIndex

	// Policy filters both stages. Nil means the platform default plus
	// Config.Scan.ExtraExcludes.
	Policy *exclude.Policy

	// DataDir holds the incomplete-index marker. Empty disables it.
	DataDir string

	// EventBuffer sizes the event channel (0 = DefaultEventBuffer).
	EventBuffer int

	// OnScanStart runs after the previous job is torn down and before the
	// new one spawns.
	OnScanStart func(jobID string)

	// OnIndexChanged runs after the index stage wiped the index and after
	// every batch it added.
	OnIndexChanged func(jobID string)

	// Stat overrides scanner.Stat in the index stage.
	Stat func(path string) (features.Meta, error)
}

// Coordinator owns at most one scan job at a time and chains its stages:
// the crawl stage runs first and, on success, the index stage is started
// for the same root. Events of every stage flow through one ordered channel.
type Coordinator struct {
	config CoordinatorConfig
	walk   crawl.Options

	startMu sync.Mutex

	mu      sync.Mutex
	current *run

	// deliverMu is held while an event of a job is handed to the host, so
	// StartScan can wait out a delivery of the job it supersedes.
	deliverMu sync.Mutex

	raw       chan job.Event
	out       chan job.Event
	closed    chan struct{}
	closeOnce sync.Once
}

// run is one scan job.
type run struct {
	id      string
	root    string
	control *job.Control
	tracker *job.Tracker
	cancel  context.CancelFunc
	stale   chan struct{}
	done    chan struct{}

	// endMu orders the index Result against Cancel: whichever comes first
	// decides the outcome.
	endMu sync.Mutex
}

// NewCoordinator validates config and starts the event forwarder.
func NewCoordinator(config CoordinatorConfig) (*Coordinator, error) {
	if config.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if config.Store == nil {
		return nil, fmt.Errorf("document index is required")
	}

	policy := config.Policy
	if policy == nil {
		policy = exclude.Default().With(config.Config.Scan.ExtraExcludes...)
	}
	buffer := config.EventBuffer
	if buffer <= 0 {
		buffer = DefaultEventBuffer
	}

	c := &Coordinator{
		config: config,
		walk: crawl.Options{
			FollowSymlinks: config.Config.Scan.FollowSymlinks,
			IncludeDirs:    config.Config.Scan.IncludeDirs,
			MaxDepth:       config.Config.Scan.MaxDepth,
			Policy:         policy,
		},
		raw:    make(chan job.Event, buffer),
		out:    make(chan job.Event),
		closed: make(chan struct{}),
	}
	go c.forward()
	return c, nil
}

// Events returns the ordered event stream. It is unbuffered; once StartScan
// returns, no event of the job it superseded is delivered. The channel
// closes after Close.
func (c *Coordinator) Events() <-chan job.Event {
	return c.out
}

// forward relays events whose job is still current.
func (c *Coordinator) forward() {
	defer close(c.out)
	for {
		select {
		case e := <-c.raw:
			if !c.deliver(e) {
				return
			}
		case <-c.closed:
			return
		}
	}
}

// deliver hands e to the host unless its job was superseded. It reports
// false once the coordinator is closed.
func (c *Coordinator) deliver(e job.Event) bool {
	if e.JobID == "" {
		select {
		case c.out <- e:
			return true
		case <-c.closed:
			return false
		}
	}

	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	r := c.lookup(e.JobID)
	if r == nil {
		return true
	}
	select {
	case c.out <- e:
	case <-r.stale:
	case <-c.closed:
		return false
	}
	return true
}

// lookup returns the current run if it has jobID and was not superseded.
func (c *Coordinator) lookup(jobID string) *run {
	c.mu.Lock()
	r := c.current
	c.mu.Unlock()
	if r == nil || r.id != jobID {
		return nil
	}
	select {
	case <-r.stale:
		return nil
	default:
		return r
	}
}

// StartScan verifies root, tears down any running job and starts a new
// one. It returns the new job ID without waiting for the job.
func (c *Coordinator) StartScan(root string) (string, error) {
	c.startMu.Lock()
	defer c.startMu.Unlock()

	select {
	case <-c.closed:
		return "", ferrors.New(ferrors.ErrCodeInternal, "coordinator is closed", nil)
	default:
	}

	abs, err := scanner.CheckRoot(root)
	if err != nil {
		slog.Warn("scan_rejected", ferrors.LogAttrs(err)...)
		e := job.Error(err)
		e.Stage = job.StageHost
		e.Time = time.Now()
		select {
		case c.raw <- e:
		default:
		}
		return "", err
	}

	c.teardown()

	r := &run{
		id:      uuid.NewString(),
		root:    abs,
		control: job.NewControl(c.config.Config.Index.PollInterval),
		stale:   make(chan struct{}),
		done:    make(chan struct{}),
	}
	r.tracker = job.NewTracker(r.id, abs)

	if c.config.OnScanStart != nil {
		c.config.OnScanStart(r.id)
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	// Swapping the run under deliverMu waits out a delivery of the
	// superseded job that was already under way.
	c.deliverMu.Lock()
	c.mu.Lock()
	c.current = r
	c.mu.Unlock()
	c.deliverMu.Unlock()

	slog.Info("scan_started", slog.String("job_id", r.id), slog.String("root", abs))
	go c.execute(ctx, r)
	return r.id, nil
}

// teardown cancels the current job, if any, and waits for its stages.
func (c *Coordinator) teardown() {
	c.mu.Lock()
	prev := c.current
	c.mu.Unlock()
	if prev == nil {
		return
	}

	select {
	case <-prev.stale:
	default:
		close(prev.stale)
	}
	prev.control.Cancel()
	prev.cancel()
	<-prev.done
}

func (c *Coordinator) execute(ctx context.Context, r *run) {
	defer close(r.done)
	defer r.cancel()

	r.tracker.Advance(job.PhaseCrawling)
	crawler := crawl.New(c.walk)
	crawlWorker := async.NewWorker(async.WorkerConfig{Name: "crawl"}, func(ctx context.Context) error {
		_, err := crawler.Run(ctx, c.env(r, job.StageCrawl), r.root)
		return err
	})
	crawlWorker.Start(ctx)
	if err := crawlWorker.Wait(); err != nil || r.control.IsCancelled() {
		c.finish(r, job.StageCrawl, err)
		return
	}

	r.tracker.Advance(job.PhaseIndexing)
	deps := RunnerDependencies{
		Store:  c.config.Store,
		Config: c.config.Config,
		Walk:   c.walk,
		Stat:   c.config.Stat,
	}
	if c.config.OnIndexChanged != nil {
		deps.OnIndexChanged = func() { c.config.OnIndexChanged(r.id) }
	}
	runner, err := NewRunner(deps)
	if err != nil {
		c.finish(r, job.StageIndex, ferrors.Wrap(ferrors.ErrCodeInternal, err))
		return
	}

	wcfg := async.WorkerConfig{Name: "index"}
	if c.config.DataDir != "" {
		wcfg.MarkerPath = async.MarkerPath(c.config.DataDir)
	}
	indexWorker := async.NewWorker(wcfg, func(ctx context.Context) error {
		_, err := runner.Run(ctx, c.env(r, job.StageIndex), r.root)
		return err
	})
	indexWorker.Start(ctx)
	c.finish(r, job.StageIndex, indexWorker.Wait())
}

// finish records the job outcome and publishes the terminal event that
// the stage itself does not emit.
func (c *Coordinator) finish(r *run, stage job.Stage, err error) {
	switch {
	case r.control.IsCancelled() || errors.Is(err, job.ErrCancelled):
		if r.tracker.Advance(job.PhaseCancelled) {
			slog.Info("scan_cancelled", slog.String("job_id", r.id), slog.String("stage", string(stage)))
			c.publish(r, c.stamp(r, stage, job.Cancelled()))
		}
	case err == nil:
		r.tracker.Advance(job.PhaseCompleted)
		slog.Info("scan_completed", slog.String("job_id", r.id))
	default:
		if r.tracker.Fail(ferrors.FormatMessage(err)) {
			attrs := append([]any{slog.String("job_id", r.id), slog.String("stage", string(stage))}, ferrors.LogAttrs(err)...)
			slog.Error("scan_failed", attrs...)
			c.publish(r, c.stamp(r, stage, job.Error(err)))
		}
	}
}

// env builds the stage environment. Stage events are dropped once cancel
// was requested or the job reached a terminal phase.
func (c *Coordinator) env(r *run, stage job.Stage) job.Env {
	return job.Env{
		Control: r.control,
		Tracker: r.tracker,
		Emit: func(e job.Event) {
			if stage == job.StageIndex && e.Type == job.KindResult {
				c.complete(r, e)
				return
			}
			if r.control.IsCancelled() || r.tracker.Phase().IsTerminal() {
				return
			}
			c.publish(r, c.stamp(r, stage, e))
		},
	}
}

// complete marks the job completed and publishes the index Result, unless
// a cancel got there first. A Cancel arriving later finds no active job.
func (c *Coordinator) complete(r *run, e job.Event) {
	r.endMu.Lock()
	ok := !r.control.IsCancelled() && r.tracker.Advance(job.PhaseCompleted)
	r.endMu.Unlock()
	if ok {
		c.publish(r, c.stamp(r, job.StageIndex, e))
	}
}

func (c *Coordinator) stamp(r *run, stage job.Stage, e job.Event) job.Event {
	e.JobID = r.id
	e.Stage = stage
	e.Time = time.Now()
	return e
}

// publish blocks until the event is queued, the job is superseded or the
// coordinator closes.
func (c *Coordinator) publish(r *run, e job.Event) {
	select {
	case c.raw <- e:
	case <-r.stale:
	case <-c.closed:
	}
}

func (c *Coordinator) active() (*run, error) {
	c.mu.Lock()
	r := c.current
	c.mu.Unlock()
	if r == nil || r.tracker.Phase().IsTerminal() {
		return nil, ferrors.New(ferrors.ErrCodeNoActiveJob, "No scan in progress", nil)
	}
	return r, nil
}

// SetPaused pauses or resumes the running job and narrates the change.
func (c *Coordinator) SetPaused(paused bool) error {
	r, err := c.active()
	if err != nil {
		return err
	}
	if !r.control.SetPaused(paused) {
		return nil
	}
	r.tracker.SetPaused(paused)

	msg := job.MessageResumed
	if paused {
		msg = job.MessagePaused
	}
	stage := job.StageCrawl
	if r.tracker.Phase() == job.PhaseIndexing {
		stage = job.StageIndex
	}
	slog.Info("scan_pause_changed", slog.String("job_id", r.id), slog.Bool("paused", paused))
	c.env(r, stage).Emit(job.Status(msg))
	return nil
}

// Cancel requests cancellation of the running job. The Cancelled event
// follows once the active stage observes it.
func (c *Coordinator) Cancel() error {
	r, err := c.active()
	if err != nil {
		return err
	}
	r.endMu.Lock()
	defer r.endMu.Unlock()
	if r.tracker.Phase().IsTerminal() {
		return ferrors.New(ferrors.ErrCodeNoActiveJob, "No scan in progress", nil)
	}
	r.control.Cancel()
	r.tracker.SetPaused(false)
	return nil
}

// Status returns a snapshot of the current or most recent job.
func (c *Coordinator) Status() job.Snapshot {
	c.mu.Lock()
	r := c.current
	c.mu.Unlock()
	if r == nil {
		return job.IdleSnapshot()
	}
	return r.tracker.Snapshot()
}

// Wait blocks until the current job ends or ctx is done.
func (c *Coordinator) Wait(ctx context.Context) error {
	c.mu.Lock()
	r := c.current
	c.mu.Unlock()
	if r == nil {
		return nil
	}
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels any running job, waits for it, and closes the event
// channel. It does not close the document index.
func (c *Coordinator) Close() error {
	c.startMu.Lock()
	defer c.startMu.Unlock()

	c.closeOnce.Do(func() {
		c.mu.Lock()
		prev := c.current
		c.mu.Unlock()

		if prev != nil {
			prev.control.Cancel()
			prev.cancel()
		}
		// Publishing stops once closed, so a blocked stage can exit.
		close(c.closed)
		if prev != nil {
			<-prev.done
		}
	})
	return nil
}
