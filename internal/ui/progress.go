package ui

import (
	"sync"
	"time"

	"github.com/Aman-CERP/findex/internal/job"
)

// Outcome is how a scan ended, as seen by the display.
type Outcome int

const (
	OutcomeRunning Outcome = iota
	OutcomeCompleted
	OutcomeCancelled
	OutcomeFailed
)

// ProgressTracker folds the event stream into display state.
// It is safe for concurrent use.
type ProgressTracker struct {
	mu sync.RWMutex

	stage   job.Stage
	message string
	paused  bool
	indexed int
	total   int

	crawl *job.Stats
	index *job.Stats

	outcome Outcome
	errMsg  string

	startTime  time.Time
	stageStart time.Time

	// throughput sampling
	lastIndexed int
	lastSample  time.Time
	speed       float64
	peak        float64
	sparkline   *Sparkline
	now         func() time.Time
}

// SpeedStats contains speed metrics for display.
type SpeedStats struct {
	Current float64
	Avg     float64
	Peak    float64
}

// ProgressStats is a snapshot of the display state.
type ProgressStats struct {
	Stage    job.Stage
	Message  string
	Paused   bool
	Indexed  int
	Total    int
	Progress float64
	ETA      time.Duration
	Speed    SpeedStats
	Crawl    *job.Stats
	Index    *job.Stats
	Outcome  Outcome
	Error    string
	Elapsed  time.Duration
}

// NewProgressTracker creates a tracker positioned at the crawl stage.
func NewProgressTracker() *ProgressTracker {
	return newProgressTracker(time.Now)
}

func newProgressTracker(now func() time.Time) *ProgressTracker {
	t := now()
	return &ProgressTracker{
		stage:      job.StageCrawl,
		startTime:  t,
		stageStart: t,
		lastSample: t,
		sparkline:  NewSparkline(60),
		now:        now,
	}
}

// Apply folds one event into the state.
func (p *ProgressTracker) Apply(e job.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if e.Stage == job.StageCrawl || e.Stage == job.StageIndex {
		if e.Stage != p.stage {
			p.stage = e.Stage
			p.stageStart = p.now()
			p.lastIndexed = 0
			p.lastSample = p.stageStart
		}
	}

	switch e.Type {
	case job.KindStatus:
		switch e.Message {
		case job.MessagePaused:
			p.paused = true
		case job.MessageResumed:
			p.paused = false
		default:
			p.message = e.Message
		}
	case job.KindProgress:
		if e.Progress != nil {
			p.indexed = e.Progress.Indexed
			p.total = e.Progress.Total
			p.sample()
		}
	case job.KindResult:
		if e.Stats == nil {
			break
		}
		s := *e.Stats
		if e.Stage == job.StageCrawl {
			p.crawl = &s
			p.total = s.TotalFiles
		} else {
			p.index = &s
			p.indexed = s.TotalFiles
			p.total = s.TotalFiles
			p.outcome = OutcomeCompleted
		}
	case job.KindCancelled:
		p.outcome = OutcomeCancelled
		p.paused = false
	case job.KindError:
		p.outcome = OutcomeFailed
		p.errMsg = e.Message
		p.paused = false
	}
}

// sample records throughput since the previous progress event.
func (p *ProgressTracker) sample() {
	now := p.now()
	dt := now.Sub(p.lastSample).Seconds()
	if dt <= 0 {
		return
	}
	p.speed = float64(p.indexed-p.lastIndexed) / dt
	if p.speed > p.peak {
		p.peak = p.speed
	}
	p.sparkline.Add(p.speed)
	p.lastIndexed = p.indexed
	p.lastSample = now
}

// Stats returns a snapshot of the display state.
func (p *ProgressTracker) Stats() ProgressStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	now := p.now()
	s := ProgressStats{
		Stage:   p.stage,
		Message: p.message,
		Paused:  p.paused,
		Indexed: p.indexed,
		Total:   p.total,
		Crawl:   p.crawl,
		Index:   p.index,
		Outcome: p.outcome,
		Error:   p.errMsg,
		Elapsed: now.Sub(p.startTime),
		Speed:   SpeedStats{Current: p.speed, Peak: p.peak},
	}
	if p.stage == job.StageIndex && p.total > 0 {
		s.Progress = float64(p.indexed) / float64(p.total)
		if s.Progress > 1 {
			s.Progress = 1
		}
	}
	if elapsed := now.Sub(p.stageStart).Seconds(); elapsed > 0 && p.stage == job.StageIndex {
		s.Speed.Avg = float64(p.indexed) / elapsed
		if s.Speed.Avg > 0 && p.total > p.indexed && p.outcome == OutcomeRunning {
			s.ETA = time.Duration(float64(p.total-p.indexed) / s.Speed.Avg * float64(time.Second))
		}
	}
	return s
}

// RenderSparkline renders the throughput history.
func (p *ProgressTracker) RenderSparkline(width int) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sparkline.Render(width)
}
