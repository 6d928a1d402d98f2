package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Aman-CERP/findex/internal/job"
	"github.com/Aman-CERP/findex/internal/telemetry"
)

// StatusInfo describes the document index and the last scan.
type StatusInfo struct {
	Backend   string `json:"backend"`
	Location  string `json:"location"`
	Documents int    `json:"documents"`
	SizeBytes int64  `json:"size_bytes,omitempty"`

	// Incomplete is set when the last index run did not finish.
	Incomplete      bool      `json:"incomplete"`
	IncompleteSince time.Time `json:"incomplete_since,omitempty"`

	// Locked is set when another process holds the writer lock.
	Locked bool `json:"locked"`

	Job     *job.Snapshot                   `json:"job,omitempty"`
	Queries *telemetry.QueryMetricsSnapshot `json:"queries,omitempty"`
}

// StatusRenderer displays index status.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{
		out:    out,
		styles: GetStyles(noColor),
	}
}

// Render displays status info to terminal.
func (r *StatusRenderer) Render(info StatusInfo) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("Index Status"))

	_, _ = fmt.Fprintf(r.out, "  Backend:   %s\n", info.Backend)
	if info.Location != "" {
		_, _ = fmt.Fprintf(r.out, "  Location:  %s\n", info.Location)
	}
	_, _ = fmt.Fprintf(r.out, "  Documents: %d\n", info.Documents)
	if info.SizeBytes > 0 {
		_, _ = fmt.Fprintf(r.out, "  Size:      %s\n", FormatBytes(info.SizeBytes))
	}

	state := r.styles.Success.Render("complete")
	if info.Incomplete {
		state = r.styles.Warning.Render("incomplete")
		if !info.IncompleteSince.IsZero() {
			state += fmt.Sprintf(" (run started %s)", formatTime(info.IncompleteSince))
		}
	}
	_, _ = fmt.Fprintf(r.out, "  State:     %s\n", state)
	if info.Locked {
		_, _ = fmt.Fprintf(r.out, "  Writer:    %s\n", r.styles.Warning.Render("locked by another process"))
	}

	if j := info.Job; j != nil && j.Phase != job.PhaseIdle {
		_, _ = fmt.Fprintln(r.out)
		_, _ = fmt.Fprintf(r.out, "  Last scan: %s (%s)\n", j.Root, r.renderPhase(j.Phase))
		_, _ = fmt.Fprintf(r.out, "    Indexed: %d / %d\n", j.ItemsIndexed, j.ItemsTotal)
		if j.ErrorMessage != "" {
			_, _ = fmt.Fprintf(r.out, "    Error:   %s\n", r.styles.Error.Render(j.ErrorMessage))
		}
	}

	if q := info.Queries; q != nil && q.TotalQueries > 0 {
		_, _ = fmt.Fprintln(r.out)
		_, _ = fmt.Fprintf(r.out, "  Queries:   %d (%.0f%% cached, %d without results)\n",
			q.TotalQueries, q.CacheHitRate()*100, q.ZeroResultCount)
	}
	return nil
}

// RenderJSON outputs status as JSON.
func (r *StatusRenderer) RenderJSON(info StatusInfo) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(info)
}

func (r *StatusRenderer) renderPhase(p job.Phase) string {
	switch p {
	case job.PhaseCompleted:
		return r.styles.Success.Render(string(p))
	case job.PhaseCancelled, job.PhaseCrawling, job.PhaseIndexing:
		return r.styles.Warning.Render(string(p))
	case job.PhaseFailed:
		return r.styles.Error.Render(string(p))
	default:
		return string(p)
	}
}

// formatTime formats a time relative to now.
func formatTime(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute") + " ago"
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour") + " ago"
	case diff < 7*24*time.Hour:
		return plural(int(diff.Hours()/24), "day") + " ago"
	default:
		return t.Format("2006-01-02 15:04")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// FormatBytes formats bytes to human-readable format.
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
