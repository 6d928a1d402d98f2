// Package ui renders scan progress and index status in the terminal.
package ui

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/Aman-CERP/findex/internal/job"
)

// Renderer displays the event stream of one scan.
type Renderer interface {
	// Start initializes the renderer.
	Start(ctx context.Context) error

	// Handle renders one event. Events arrive in stream order.
	Handle(e job.Event)

	// Done is closed when the user asked to leave the display.
	Done() <-chan struct{}

	// Stop stops the renderer and cleans up.
	Stop() error
}

// Controls are the job commands an interactive renderer can issue.
type Controls interface {
	SetPaused(paused bool) error
	Cancel() error
}

// Config configures the UI renderer.
type Config struct {
	Output     io.Writer
	ForcePlain bool
	NoColor    bool

	// Root is shown in the header.
	Root string

	// Controls receives pause and cancel key presses. Nil disables them.
	Controls Controls

	// ProgressInterval throttles plain progress lines.
	ProgressInterval time.Duration
}

// ConfigOption is a function that modifies Config.
type ConfigOption func(*Config)

// WithForcePlain forces plain text output.
func WithForcePlain(force bool) ConfigOption {
	return func(c *Config) {
		c.ForcePlain = force
	}
}

// WithNoColor disables color output.
func WithNoColor(noColor bool) ConfigOption {
	return func(c *Config) {
		c.NoColor = noColor
	}
}

// WithRoot sets the scanned directory shown in the header.
func WithRoot(root string) ConfigOption {
	return func(c *Config) {
		c.Root = root
	}
}

// WithControls wires pause and cancel keys to a job.
func WithControls(ctl Controls) ConfigOption {
	return func(c *Config) {
		c.Controls = ctl
	}
}

// WithProgressInterval sets the minimum gap between plain progress lines.
func WithProgressInterval(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.ProgressInterval = d
	}
}

// NewConfig creates a new Config with the given output and options.
func NewConfig(output io.Writer, opts ...ConfigOption) Config {
	cfg := Config{
		Output:           output,
		ProgressInterval: time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// NewRenderer returns the TUI for interactive terminals and the plain
// renderer for pipes, CI, or when plain output is forced.
func NewRenderer(cfg Config) Renderer {
	if cfg.ForcePlain || !IsTTY(cfg.Output) || DetectCI() {
		return NewPlainRenderer(cfg)
	}

	tui, err := NewTUIRenderer(cfg)
	if err != nil {
		return NewPlainRenderer(cfg)
	}
	return tui
}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// DetectNoColor checks if NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// DetectCI checks if running in a CI environment.
func DetectCI() bool {
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"} {
		if _, exists := os.LookupEnv(v); exists {
			return true
		}
	}
	return false
}

// stageLabel is the short tag of a stage in plain output.
func stageLabel(s job.Stage) string {
	switch s {
	case job.StageCrawl:
		return "CRAWL"
	case job.StageIndex:
		return "INDEX"
	case job.StageSearch:
		return "SEARCH"
	default:
		return "FINDEX"
	}
}

// IsFinal reports whether e ends a scan: the index result, a cancel or an
// error.
func IsFinal(e job.Event) bool {
	switch e.Type {
	case job.KindCancelled, job.KindError:
		return true
	case job.KindResult:
		return e.Stage == job.StageIndex
	default:
		return false
	}
}
