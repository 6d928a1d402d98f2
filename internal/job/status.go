package job

import (
	"sync"
	"time"
)

// Phase is the lifecycle position of a job.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseCrawling  Phase = "crawling"
	PhaseIndexing  Phase = "indexing"
	PhaseCompleted Phase = "completed"
	PhaseCancelled Phase = "cancelled"
	PhaseFailed    Phase = "failed"
)

// IsTerminal reports whether no further transition is possible.
func (p Phase) IsTerminal() bool {
	return p == PhaseCompleted || p == PhaseCancelled || p == PhaseFailed
}

func (p Phase) rank() int {
	switch p {
	case PhaseCrawling:
		return 1
	case PhaseIndexing:
		return 2
	case PhaseCompleted, PhaseCancelled, PhaseFailed:
		return 3
	}
	return 0
}

// Snapshot is an immutable view of a job, as served by status queries.
type Snapshot struct {
	JobID          string  `json:"job_id,omitempty"`
	Root           string  `json:"root,omitempty"`
	Phase          Phase   `json:"phase"`
	Paused         bool    `json:"paused"`
	ItemsSeen      int     `json:"items_seen"`
	ItemsIndexed   int     `json:"items_indexed"`
	ItemsTotal     int     `json:"items_total"`
	ProgressPct    float64 `json:"progress_pct"`
	ElapsedSeconds int     `json:"elapsed_seconds"`
	Crawl          *Stats  `json:"crawl,omitempty"`
	Index          *Stats  `json:"index,omitempty"`
	ErrorMessage   string  `json:"error_message,omitempty"`
}

// Tracker records the phase and counters of one job. It is safe for
// concurrent use by the stages and the host.
type Tracker struct {
	mu sync.RWMutex

	jobID     string
	root      string
	phase     Phase
	paused    bool
	startTime time.Time
	endTime   time.Time
	seen      int
	indexed   int
	total     int
	crawl     *Stats
	index     *Stats
	errMsg    string
}

// NewTracker creates an idle tracker for jobID scanning root.
func NewTracker(jobID, root string) *Tracker {
	return &Tracker{
		jobID:     jobID,
		root:      root,
		phase:     PhaseIdle,
		startTime: time.Now(),
	}
}

// JobID returns the job identifier.
func (t *Tracker) JobID() string { return t.jobID }

// Phase returns the current phase.
func (t *Tracker) Phase() Phase {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.phase
}

// Advance moves to next if the transition is forward. Terminal phases
// absorb every later transition. It reports whether the phase changed.
func (t *Tracker) Advance(next Phase) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase.IsTerminal() || next.rank() <= t.phase.rank() {
		return false
	}
	t.phase = next
	if next.IsTerminal() {
		t.paused = false
		t.endTime = time.Now()
	}
	return true
}

// Fail moves to PhaseFailed and records msg.
func (t *Tracker) Fail(msg string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase.IsTerminal() {
		return false
	}
	t.phase = PhaseFailed
	t.errMsg = msg
	t.paused = false
	t.endTime = time.Now()
	return true
}

// SetPaused records the pause flag as seen by the host.
func (t *Tracker) SetPaused(paused bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.phase.IsTerminal() {
		t.paused = paused
	}
}

// SetSeen records how many items the crawl has counted.
func (t *Tracker) SetSeen(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seen = n
}

// SetTotal records the index stage's enumeration size.
func (t *Tracker) SetTotal(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total = n
}

// SetIndexed records how many items the index stage has processed.
func (t *Tracker) SetIndexed(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.indexed = n
}

// SetStats stores the result stats of a stage.
func (t *Tracker) SetStats(stage Stage, s Stats) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch stage {
	case StageCrawl:
		t.crawl = &s
	case StageIndex:
		t.index = &s
	}
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	end := t.endTime
	if end.IsZero() {
		end = time.Now()
	}

	var pct float64
	if t.total > 0 {
		pct = float64(t.indexed) / float64(t.total) * 100
	}

	s := Snapshot{
		JobID:          t.jobID,
		Root:           t.root,
		Phase:          t.phase,
		Paused:         t.paused,
		ItemsSeen:      t.seen,
		ItemsIndexed:   t.indexed,
		ItemsTotal:     t.total,
		ProgressPct:    pct,
		ElapsedSeconds: int(end.Sub(t.startTime).Seconds()),
		ErrorMessage:   t.errMsg,
	}
	if t.crawl != nil {
		c := *t.crawl
		s.Crawl = &c
	}
	if t.index != nil {
		i := *t.index
		s.Index = &i
	}
	return s
}

// IdleSnapshot is reported when no job has ever run.
func IdleSnapshot() Snapshot {
	return Snapshot{Phase: PhaseIdle}
}
