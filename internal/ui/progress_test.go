package ui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/findex/internal/job"
)

// fakeClock advances only when told to.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestTracker() (*ProgressTracker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	return newProgressTracker(clock.now), clock
}

func TestProgressTracker_StartsInCrawl(t *testing.T) {
	p, _ := newTestTracker()

	s := p.Stats()

	assert.Equal(t, job.StageCrawl, s.Stage)
	assert.Equal(t, OutcomeRunning, s.Outcome)
	assert.Zero(t, s.Progress)
}

func TestProgressTracker_FollowsScan(t *testing.T) {
	// Given
	p, clock := newTestTracker()

	// When: crawl finishes and indexing progresses
	p.Apply(stageEvent(job.Status("Counting files..."), job.StageCrawl))
	p.Apply(stageEvent(job.Result(job.NewStats(200, time.Second), "/r"), job.StageCrawl))
	p.Apply(stageEvent(job.Status("Starting indexing of 200 files..."), job.StageIndex))
	clock.advance(time.Second)
	p.Apply(stageEvent(job.Progress(100, 200), job.StageIndex))

	// Then
	s := p.Stats()
	assert.Equal(t, job.StageIndex, s.Stage)
	assert.Equal(t, "Starting indexing of 200 files...", s.Message)
	require.NotNil(t, s.Crawl)
	assert.Equal(t, 200, s.Crawl.TotalFiles)
	assert.InDelta(t, 0.5, s.Progress, 1e-9)
	assert.InDelta(t, 100, s.Speed.Current, 1e-9)
	assert.InDelta(t, 100, s.Speed.Avg, 1e-9)
	assert.Equal(t, time.Second, s.ETA)

	// When: the index result arrives
	p.Apply(stageEvent(job.Result(job.NewStats(200, 2*time.Second), "/r"), job.StageIndex))

	// Then
	s = p.Stats()
	assert.Equal(t, OutcomeCompleted, s.Outcome)
	assert.InDelta(t, 1.0, s.Progress, 1e-9)
	assert.Zero(t, s.ETA)
}

func TestProgressTracker_PauseNarration(t *testing.T) {
	p, _ := newTestTracker()
	p.Apply(stageEvent(job.Status("Counting files..."), job.StageCrawl))

	p.Apply(stageEvent(job.Status(job.MessagePaused), job.StageCrawl))
	assert.True(t, p.Stats().Paused)
	assert.Equal(t, "Counting files...", p.Stats().Message)

	p.Apply(stageEvent(job.Status(job.MessageResumed), job.StageCrawl))
	assert.False(t, p.Stats().Paused)
}

func TestProgressTracker_TerminalOutcomes(t *testing.T) {
	tests := []struct {
		name  string
		event job.Event
		want  Outcome
	}{
		{"cancelled", job.Cancelled(), OutcomeCancelled},
		{"failed", job.Event{Type: job.KindError, Message: "boom"}, OutcomeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTestTracker()
			p.Apply(stageEvent(job.Status(job.MessagePaused), job.StageIndex))

			p.Apply(stageEvent(tt.event, job.StageIndex))

			s := p.Stats()
			assert.Equal(t, tt.want, s.Outcome)
			assert.False(t, s.Paused)
		})
	}
}

func TestSparkline_Render(t *testing.T) {
	// Given
	s := NewSparkline(4)

	// When: fewer samples than the width
	s.Add(0)
	s.Add(7)

	// Then: padded with the lowest bar and scaled to the peak
	assert.Equal(t, "▁▁▁█", s.Render(4))
	assert.Equal(t, 2, s.Len())
}

func TestSparkline_EvictsOldest(t *testing.T) {
	s := NewSparkline(3)
	for _, v := range []float64{7, 0, 0, 0} {
		s.Add(v)
	}

	assert.Equal(t, "▁▁▁", s.Render(3))
	assert.Empty(t, s.Render(0))
}
