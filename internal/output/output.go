// Package output formats CLI output: status lines for people and NDJSON
// for programs.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"text/tabwriter"

	ferrors "github.com/Aman-CERP/findex/internal/errors"
	"github.com/Aman-CERP/findex/internal/job"
)

// Writer provides formatted output for CLI. It is safe for concurrent use.
type Writer struct {
	mu  sync.Mutex
	out io.Writer
	enc *json.Encoder
}

// New creates a new output Writer.
func New(out io.Writer) *Writer {
	return &Writer{out: out, enc: json.NewEncoder(out)}
}

// Status prints a status message with an icon.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Status(icon, msg string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Statusf prints a formatted status message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a success message with checkmark.
func (w *Writer) Success(msg string) {
	w.Status("✅", msg)
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status("⚠️ ", msg)
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.Status("❌", msg)
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Err prints err with its code and suggestion when it has them.
func (w *Writer) Err(err error) {
	if err == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, _ = fmt.Fprintln(w.out, ferrors.FormatForCLI(err))
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, _ = fmt.Fprintln(w.out)
}

// JSON writes v as one line of JSON.
func (w *Writer) JSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enc.Encode(v)
}

// Event writes e as one NDJSON line.
func (w *Writer) Event(e job.Event) error {
	return w.JSON(e)
}

// Hits prints search hits as an aligned table.
func (w *Writer) Hits(hits []job.Hit) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(hits) == 0 {
		_, _ = fmt.Fprintln(w.out, "No matches.")
		return
	}

	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "PATH\tSIZE\tMODIFIED")
	for _, h := range hits {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", h.Path, humanSize(h.Size), h.Modified.Local().Format("2006-01-02 15:04"))
	}
	_ = tw.Flush()
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
