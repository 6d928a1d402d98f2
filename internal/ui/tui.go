package ui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Aman-CERP/findex/internal/job"
)

// TUIRenderer provides an interactive progress display using bubbletea.
type TUIRenderer struct {
	mu      sync.Mutex
	cfg     Config
	program *tea.Program
	model   *scanModel
	tracker *ProgressTracker
	started bool
	done    chan struct{}
}

// NewTUIRenderer creates a TUI renderer. It fails for non-TTY output.
func NewTUIRenderer(cfg Config) (*TUIRenderer, error) {
	if !IsTTY(cfg.Output) {
		return nil, fmt.Errorf("output is not a TTY")
	}

	tracker := NewProgressTracker()
	model := newScanModel(tracker, cfg.Root, cfg.Controls)
	model.styles = GetStyles(cfg.NoColor)

	return &TUIRenderer{
		cfg:     cfg,
		tracker: tracker,
		model:   model,
		done:    make(chan struct{}),
	}, nil
}

// Start implements Renderer.
func (r *TUIRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return nil
	}

	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if f, ok := r.cfg.Output.(*os.File); ok {
		opts = append(opts, tea.WithOutput(f))
	}
	r.program = tea.NewProgram(r.model, opts...)
	r.started = true

	go func() {
		defer close(r.done)
		_, _ = r.program.Run()
	}()
	return nil
}

// Handle implements Renderer.
func (r *TUIRenderer) Handle(e job.Event) {
	r.tracker.Apply(e)

	r.mu.Lock()
	p := r.program
	r.mu.Unlock()
	if p != nil {
		p.Send(eventMsg(e))
	}
}

// Done implements Renderer. It closes when the program exits.
func (r *TUIRenderer) Done() <-chan struct{} {
	return r.done
}

// Stop implements Renderer.
func (r *TUIRenderer) Stop() error {
	r.mu.Lock()
	p := r.program
	r.mu.Unlock()

	if p == nil {
		return nil
	}
	p.Quit()

	// Do not hang the process on an unresponsive terminal.
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
	}
	return nil
}

type eventMsg job.Event
type tickMsg time.Time

// controlMsg reports the outcome of a pause or cancel request.
type controlMsg struct {
	action string
	err    error
}

// scanModel is the bubbletea model of a running scan.
type scanModel struct {
	tracker  *ProgressTracker
	controls Controls
	root     string
	width    int
	finished bool
	quitting bool
	notice   string
	spinner  spinner.Model
	bar      progress.Model
	styles   Styles
}

func newScanModel(tracker *ProgressTracker, root string, controls Controls) *scanModel {
	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccent))

	bar := progress.New(
		progress.WithSolidFill(ColorAccent),
		progress.WithWidth(50),
		progress.WithoutPercentage(),
	)

	return &scanModel{
		tracker:  tracker,
		controls: controls,
		root:     root,
		width:    80,
		spinner:  s,
		bar:      bar,
		styles:   DefaultStyles(),
	}
}

// Init implements tea.Model.
func (m *scanModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// setPausedCmd runs SetPaused off the update loop: the coordinator
// publishes a status event that this program must be free to receive.
func setPausedCmd(c Controls, paused bool) tea.Cmd {
	return func() tea.Msg {
		action := "resume"
		if paused {
			action = "pause"
		}
		return controlMsg{action: action, err: c.SetPaused(paused)}
	}
}

func cancelCmd(c Controls) tea.Cmd {
	return func() tea.Msg {
		return controlMsg{action: "cancel", err: c.Cancel()}
	}
}

// Update implements tea.Model.
func (m *scanModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = max(msg.Width-20, 20)

	case eventMsg:
		if IsFinal(job.Event(msg)) {
			m.finished = true
			return m, tea.Quit
		}

	case controlMsg:
		if msg.err != nil {
			m.notice = fmt.Sprintf("%s failed: %v", msg.action, msg.err)
		} else {
			m.notice = ""
		}

	case tickMsg:
		return m, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *scanModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		if m.controls != nil && !m.finished {
			// Cancel only flips a flag, so it is safe on the update loop.
			_ = m.controls.Cancel()
		}
		return m, tea.Quit
	case "p", " ":
		if m.controls == nil || m.finished {
			return m, nil
		}
		return m, setPausedCmd(m.controls, !m.tracker.Stats().Paused)
	case "c", "esc":
		if m.controls == nil || m.finished {
			return m, nil
		}
		return m, cancelCmd(m.controls)
	}
	return m, nil
}

// View implements tea.Model.
func (m *scanModel) View() string {
	stats := m.tracker.Stats()
	if m.finished || stats.Outcome != OutcomeRunning {
		return m.renderSummary(stats)
	}
	if m.quitting {
		return "Cancelling...\n"
	}

	width := max(m.width-4, 40)
	sections := []string{
		m.renderStages(stats),
		m.styles.Border.Render(strings.Repeat("─", width)),
		m.renderProgress(stats),
		m.renderSpeed(stats),
	}
	if stats.Stage == job.StageIndex {
		spark := m.tracker.RenderSparkline(max(width-14, 10))
		sections = append(sections, m.styles.Value.Render(spark)+" "+m.styles.Dim.Render("files/s"))
	}

	title := "findex"
	if m.root != "" {
		title = "findex • " + m.root
	}
	panel := lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Header.Render(title),
		m.styles.Panel.Width(width).Render(strings.Join(sections, "\n")),
	)
	return panel + "\n" + m.renderHints(stats) + "\n"
}

func (m *scanModel) renderStages(stats ProgressStats) string {
	stages := []struct {
		stage job.Stage
		name  string
	}{
		{job.StageCrawl, "Crawl"},
		{job.StageIndex, "Index"},
	}

	current := 0
	if stats.Stage == job.StageIndex {
		current = 1
	}

	parts := make([]string, 0, len(stages))
	for i, s := range stages {
		switch {
		case i < current:
			parts = append(parts, m.styles.Success.Render("● "+s.name))
		case i == current:
			parts = append(parts, m.styles.Active.Render(m.spinner.View()+" "+s.name))
		default:
			parts = append(parts, m.styles.Dim.Render("○ "+s.name))
		}
	}
	line := strings.Join(parts, m.styles.Dim.Render(" → "))
	if stats.Paused {
		line += "  " + m.styles.Warning.Render("⏸ Paused")
	}
	return line
}

func (m *scanModel) renderProgress(stats ProgressStats) string {
	msg := m.styles.Label.Render(stats.Message)
	if stats.Stage != job.StageIndex || stats.Total == 0 {
		return fmt.Sprintf("%s %s", m.spinner.View(), msg)
	}

	bar := m.bar.ViewAs(stats.Progress)
	pct := m.styles.Active.Render(fmt.Sprintf("%3.0f%%", stats.Progress*100))
	count := m.styles.Label.Render(fmt.Sprintf("%d / %d files", stats.Indexed, stats.Total))
	return fmt.Sprintf("%s  %s\n%s  %s", bar, pct, count, msg)
}

func (m *scanModel) renderSpeed(stats ProgressStats) string {
	if stats.Stage != job.StageIndex {
		if stats.Crawl != nil {
			return m.styles.Label.Render(fmt.Sprintf("%d entries found", stats.Crawl.TotalFiles))
		}
		return m.styles.Label.Render(fmt.Sprintf("Elapsed: %s", formatDuration(stats.Elapsed)))
	}

	parts := []string{m.styles.Value.Render(fmt.Sprintf("Speed: %.0f/s (avg %.0f, peak %.0f)",
		stats.Speed.Current, stats.Speed.Avg, stats.Speed.Peak))}
	if stats.ETA > 0 {
		parts = append(parts, m.styles.Label.Render("ETA: "+formatDuration(stats.ETA)))
	}
	return strings.Join(parts, m.styles.Dim.Render("  •  "))
}

func (m *scanModel) renderHints(stats ProgressStats) string {
	pause := "p pause"
	if stats.Paused {
		pause = "p resume"
	}
	hints := m.styles.Dim.Render(pause + "  •  c cancel  •  q quit")
	if m.notice != "" {
		hints = m.styles.Error.Render(m.notice) + "  " + hints
	}
	return hints
}

func (m *scanModel) renderSummary(stats ProgressStats) string {
	switch stats.Outcome {
	case OutcomeCancelled:
		return m.styles.Warning.Render("Cancelled.") + "\n"
	case OutcomeFailed:
		return m.styles.Error.Render("✗ "+stats.Error) + "\n"
	}

	var lines []string
	lines = append(lines, m.styles.Success.Render("✓ Indexing complete"), "")
	if stats.Crawl != nil {
		lines = append(lines, fmt.Sprintf("%s %s", m.styles.Label.Render("Entries: "),
			m.styles.Value.Render(fmt.Sprintf("%d", stats.Crawl.TotalFiles))))
	}
	if stats.Index != nil {
		lines = append(lines,
			fmt.Sprintf("%s %s", m.styles.Label.Render("Indexed: "),
				m.styles.Value.Render(fmt.Sprintf("%d files", stats.Index.TotalFiles))),
			fmt.Sprintf("%s %s", m.styles.Label.Render("Duration:"),
				m.styles.Value.Render(formatSeconds(stats.Index.ElapsedSeconds))),
			fmt.Sprintf("%s %s", m.styles.Label.Render("Rate:    "),
				m.styles.Value.Render(fmt.Sprintf("%d files/s", stats.Index.FilesPerSecond))))
	}
	return m.styles.Panel.Render(strings.Join(lines, "\n")) + "\n"
}

// formatDuration formats a duration in a human-friendly way.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		if s == 0 {
			return fmt.Sprintf("%dm", m)
		}
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

var _ Renderer = (*TUIRenderer)(nil)
