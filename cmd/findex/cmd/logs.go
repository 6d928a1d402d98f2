package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"regexp"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/findex/internal/logging"
)

type logsOptions struct {
	follow  bool
	lines   int
	level   string
	filter  string
	noColor bool
	file    string
}

// newLogsCmd creates the logs command.
func newLogsCmd() *cobra.Command {
	var opts logsOptions

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View findex logs",
		Long: `Show the last lines of the findex log file, or follow it with -f.

Examples:
  findex logs                 # last 50 lines
  findex logs -f              # follow new entries
  findex logs --level error   # errors only
  findex logs --filter scan_  # lines matching a regex`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runLogs(ctx, cmd, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&opts.lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().StringVar(&opts.level, "level", "", "Minimum level (debug|info|warn|error)")
	cmd.Flags().StringVar(&opts.filter, "filter", "", "Only show lines matching this regex")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	cmd.Flags().StringVar(&opts.file, "file", "", "Log file path (default ~/.findex/logs/findex.log)")

	return cmd
}

func runLogs(ctx context.Context, cmd *cobra.Command, opts logsOptions) error {
	cfg := logging.ViewerConfig{
		Level:   opts.level,
		NoColor: opts.noColor || os.Getenv("NO_COLOR") != "",
	}
	if opts.filter != "" {
		re, err := regexp.Compile(opts.filter)
		if err != nil {
			return fmt.Errorf("invalid filter pattern: %w", err)
		}
		cfg.Pattern = re
	}
	if opts.lines < 0 {
		return fmt.Errorf("--lines must not be negative")
	}

	path := opts.file
	if path == "" {
		path = logging.DefaultLogPath()
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("no log file at %s (run a findex command first)", path)
	}

	viewer := logging.NewViewer(cfg, cmd.OutOrStdout())
	entries, err := viewer.Tail(path, opts.lines)
	if err != nil {
		return err
	}
	viewer.Print(entries)

	if !opts.follow {
		return nil
	}

	ch := make(chan logging.LogEntry, 64)
	errCh := make(chan error, 1)
	go func() {
		errCh <- viewer.Follow(ctx, path, ch)
		close(ch)
	}()
	for entry := range ch {
		viewer.Print([]logging.LogEntry{entry})
	}
	return <-errCh
}
