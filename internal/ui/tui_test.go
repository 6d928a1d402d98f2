package ui

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/findex/internal/job"
)

// fakeControls records pause and cancel requests.
type fakeControls struct {
	mu        sync.Mutex
	paused    []bool
	cancelled int
	err       error
}

func (f *fakeControls) SetPaused(paused bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused = append(f.paused, paused)
	return f.err
}

func (f *fakeControls) Cancel() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled++
	return f.err
}

func key(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestModel(ctl Controls) (*scanModel, *ProgressTracker) {
	tracker := NewProgressTracker()
	m := newScanModel(tracker, "/data", ctl)
	m.styles = NoColorStyles()
	return m, tracker
}

func TestNewTUIRenderer_FailsForNonTTY(t *testing.T) {
	// Given: a non-TTY buffer
	cfg := NewConfig(&bytes.Buffer{})

	// When
	r, err := NewTUIRenderer(cfg)

	// Then
	assert.Error(t, err)
	assert.Nil(t, r)
}

func TestScanModel_InitialView(t *testing.T) {
	m, _ := newTestModel(nil)

	view := m.View()

	assert.Contains(t, view, "Crawl")
	assert.Contains(t, view, "Index")
	assert.Contains(t, view, "/data")
	assert.Contains(t, view, "p pause")
}

func TestScanModel_ProgressView(t *testing.T) {
	// Given: a model in the index stage
	m, tracker := newTestModel(nil)
	tracker.Apply(stageEvent(job.Result(job.NewStats(100, time.Second), "/data"), job.StageCrawl))
	tracker.Apply(stageEvent(job.Progress(50, 100), job.StageIndex))

	// When
	view := m.View()

	// Then
	assert.Contains(t, view, "50 / 100 files")
	assert.Contains(t, view, "50%")
}

func TestScanModel_PauseKeyIssuesCommand(t *testing.T) {
	// Given
	ctl := &fakeControls{}
	m, tracker := newTestModel(ctl)

	// When: p is pressed while running
	_, cmd := m.Update(key("p"))
	require.NotNil(t, cmd)
	msg := cmd()

	// Then: the pause request ran off the update loop
	assert.Equal(t, []bool{true}, ctl.paused)
	assert.Equal(t, controlMsg{action: "pause"}, msg)

	// When: the coordinator narrates the pause and space is pressed
	tracker.Apply(stageEvent(job.Status(job.MessagePaused), job.StageCrawl))
	_, cmd = m.Update(key(" "))
	require.NotNil(t, cmd)
	cmd()

	// Then: the second press resumes
	assert.Equal(t, []bool{true, false}, ctl.paused)
	assert.Contains(t, m.View(), "p resume")
}

func TestScanModel_CancelKey(t *testing.T) {
	ctl := &fakeControls{}
	m, _ := newTestModel(ctl)

	_, cmd := m.Update(key("c"))
	require.NotNil(t, cmd)
	cmd()

	assert.Equal(t, 1, ctl.cancelled)
}

func TestScanModel_QuitCancelsAndQuits(t *testing.T) {
	ctl := &fakeControls{}
	m, _ := newTestModel(ctl)

	_, cmd := m.Update(key("q"))

	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.Equal(t, 1, ctl.cancelled)
	assert.Contains(t, m.View(), "Cancelling")
}

func TestScanModel_ControlErrorIsShown(t *testing.T) {
	m, _ := newTestModel(&fakeControls{})

	m.Update(controlMsg{action: "pause", err: errors.New("No scan in progress")})

	assert.Contains(t, m.View(), "pause failed: No scan in progress")
}

func TestScanModel_KeysWithoutControlsAreIgnored(t *testing.T) {
	m, _ := newTestModel(nil)

	_, cmd := m.Update(key("p"))
	assert.Nil(t, cmd)
	_, cmd = m.Update(key("c"))
	assert.Nil(t, cmd)
}

func TestScanModel_FinalEventQuits(t *testing.T) {
	tests := []struct {
		name  string
		event job.Event
		want  string
	}{
		{"completed", stageEvent(job.Result(job.NewStats(2, time.Second), "/data"), job.StageIndex), "Indexing complete"},
		{"cancelled", stageEvent(job.Cancelled(), job.StageCrawl), "Cancelled."},
		{"failed", stageEvent(job.Event{Type: job.KindError, Message: "Failed to clear index"}, job.StageIndex), "Failed to clear index"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given
			m, tracker := newTestModel(&fakeControls{})
			tracker.Apply(tt.event)

			// When
			_, cmd := m.Update(eventMsg(tt.event))

			// Then
			require.NotNil(t, cmd)
			assert.Equal(t, tea.QuitMsg{}, cmd())
			assert.True(t, m.finished)
			assert.Contains(t, m.View(), tt.want)
		})
	}
}

func TestScanModel_CrawlResultDoesNotQuit(t *testing.T) {
	m, _ := newTestModel(nil)

	_, cmd := m.Update(eventMsg(stageEvent(job.Result(job.NewStats(2, time.Second), "/data"), job.StageCrawl)))

	assert.Nil(t, cmd)
	assert.False(t, m.finished)
}

func TestScanModel_WindowResize(t *testing.T) {
	m, _ := newTestModel(nil)

	m.Update(tea.WindowSizeMsg{Width: 30, Height: 10})

	assert.Equal(t, 30, m.width)
	assert.Equal(t, 20, m.bar.Width)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{5 * time.Second, "5s"},
		{2 * time.Minute, "2m"},
		{2*time.Minute + 5*time.Second, "2m 5s"},
		{time.Hour + 3*time.Minute, "1h 3m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.d))
	}
}
