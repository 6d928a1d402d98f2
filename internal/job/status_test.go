package job

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracker_Advance_IsMonotonic(t *testing.T) {
	tr := NewTracker("j", "/root")

	assert.True(t, tr.Advance(PhaseCrawling))
	assert.False(t, tr.Advance(PhaseCrawling), "same phase is not a transition")
	assert.True(t, tr.Advance(PhaseIndexing))
	assert.False(t, tr.Advance(PhaseCrawling), "no going back")
	assert.True(t, tr.Advance(PhaseCompleted))
	assert.Equal(t, PhaseCompleted, tr.Phase())
}

func TestTracker_TerminalPhasesAbsorb(t *testing.T) {
	tests := []struct {
		name     string
		terminal func(*Tracker) bool
		want     Phase
	}{
		{"cancelled", func(tr *Tracker) bool { return tr.Advance(PhaseCancelled) }, PhaseCancelled},
		{"failed", func(tr *Tracker) bool { return tr.Fail("boom") }, PhaseFailed},
		{"completed", func(tr *Tracker) bool { return tr.Advance(PhaseCompleted) }, PhaseCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: a crawling job that reaches a terminal phase
			tr := NewTracker("j", "/root")
			tr.Advance(PhaseCrawling)
			assert.True(t, tt.terminal(tr))

			// When: any later transition is attempted
			assert.False(t, tr.Advance(PhaseIndexing))
			assert.False(t, tr.Advance(PhaseCancelled))
			assert.False(t, tr.Fail("late"))

			// Then: the phase is unchanged
			assert.Equal(t, tt.want, tr.Phase())
		})
	}
}

func TestTracker_Snapshot(t *testing.T) {
	// Given: an indexing job half way through
	tr := NewTracker("job-7", "/data")
	tr.Advance(PhaseCrawling)
	tr.SetSeen(200)
	tr.SetStats(StageCrawl, Stats{TotalFiles: 200})
	tr.Advance(PhaseIndexing)
	tr.SetTotal(200)
	tr.SetIndexed(100)
	tr.SetPaused(true)

	// When
	s := tr.Snapshot()

	// Then
	assert.Equal(t, "job-7", s.JobID)
	assert.Equal(t, "/data", s.Root)
	assert.Equal(t, PhaseIndexing, s.Phase)
	assert.True(t, s.Paused)
	assert.Equal(t, 200, s.ItemsSeen)
	assert.Equal(t, 100, s.ItemsIndexed)
	assert.InDelta(t, 50.0, s.ProgressPct, 0.001)
	if assert.NotNil(t, s.Crawl) {
		assert.Equal(t, 200, s.Crawl.TotalFiles)
	}
	assert.Nil(t, s.Index)

	// And: the snapshot is detached from later updates
	tr.SetIndexed(150)
	assert.Equal(t, 100, s.ItemsIndexed)
}

func TestTracker_TerminalClearsPause(t *testing.T) {
	tr := NewTracker("j", "/")
	tr.Advance(PhaseCrawling)
	tr.SetPaused(true)

	tr.Advance(PhaseCancelled)
	tr.SetPaused(true)

	assert.False(t, tr.Snapshot().Paused)
}

func TestTracker_FailRecordsMessage(t *testing.T) {
	tr := NewTracker("j", "/")
	tr.Fail("Failed to clear index")

	s := tr.Snapshot()
	assert.Equal(t, PhaseFailed, s.Phase)
	assert.Equal(t, "Failed to clear index", s.ErrorMessage)
}
