package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/findex/internal/config"
	"github.com/Aman-CERP/findex/internal/index"
	"github.com/Aman-CERP/findex/internal/job"
	"github.com/Aman-CERP/findex/internal/output"
	"github.com/Aman-CERP/findex/internal/ui"
)

// shutdownTimeout bounds how long a finished scan waits for its goroutines.
const shutdownTimeout = 5 * time.Second

type scanOptions struct {
	noTUI   bool
	noColor bool
	json    bool
}

func newScanCmd() *cobra.Command {
	var opts scanOptions

	cmd := &cobra.Command{
		Use:   "scan <dir>",
		Short: "Crawl a directory and rebuild the index from it",
		Long: `Crawl a directory tree, then index every file and directory that
passes the exclusion rules. The previous index contents are replaced.

In the interactive view press p or space to pause and resume, c to cancel
and q to quit. Ctrl+C cancels in every mode.`,
		Example: `  # Scan your home directory
  findex scan ~

  # Plain progress lines, e.g. for logs
  findex scan --no-tui /srv/data

  # Machine-readable event stream
  findex scan --json . | jq .`,
		Args: exactArgs(1, "a directory to scan"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runScan(ctx, cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.noTUI, "no-tui", false, "Disable the interactive view, print plain progress lines")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colors")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print events as newline-delimited JSON")

	return cmd
}

func runScan(ctx context.Context, cmd *cobra.Command, root string, opts scanOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	lock, err := acquireWriter()
	if err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	idx, err := openIndex(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = idx.Close() }()

	coord, err := index.NewCoordinator(index.CoordinatorConfig{
		Config:  cfg,
		Store:   idx,
		DataDir: config.DataDir(),
	})
	if err != nil {
		return err
	}
	defer func() { _ = coord.Close() }()

	sink, err := newEventSink(ctx, cmd, root, coord, opts)
	if err != nil {
		return err
	}
	defer func() { _ = sink.stop() }()

	jobID, err := coord.StartScan(root)
	if err != nil {
		return err
	}
	slog.Info("scan_started", slog.String("job_id", jobID), slog.String("root", root))

	final, err := pumpEvents(ctx, coord, sink)
	if err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = coord.Wait(waitCtx)

	switch final.Type {
	case job.KindCancelled:
		return errCancelled
	case job.KindError:
		return reportedError{final}
	}
	return nil
}

// reportedError is a job failure already shown to the user by the renderer.
type reportedError struct {
	event job.Event
}

func (e reportedError) Error() string { return e.event.Message }

// eventSink is where scan events are shown: a renderer or an NDJSON stream.
type eventSink struct {
	renderer ui.Renderer
	json     *output.Writer
}

func newEventSink(ctx context.Context, cmd *cobra.Command, root string, coord *index.Coordinator, opts scanOptions) (*eventSink, error) {
	if opts.json {
		return &eventSink{json: output.New(cmd.OutOrStdout())}, nil
	}

	uiCfg := ui.NewConfig(cmd.OutOrStdout(),
		ui.WithForcePlain(opts.noTUI),
		ui.WithNoColor(opts.noColor || ui.DetectNoColor()),
		ui.WithRoot(root),
		ui.WithControls(coord),
	)
	r := ui.NewRenderer(uiCfg)
	if err := r.Start(ctx); err != nil {
		return nil, err
	}
	return &eventSink{renderer: r}, nil
}

func (s *eventSink) handle(e job.Event) {
	if s.json != nil {
		if err := s.json.Event(e); err != nil {
			slog.Warn("event_write_failed", slog.String("error", err.Error()))
		}
		return
	}
	s.renderer.Handle(e)
}

// done closes when an interactive renderer was quit by the user.
func (s *eventSink) done() <-chan struct{} {
	if s.renderer == nil {
		return nil
	}
	return s.renderer.Done()
}

func (s *eventSink) stop() error {
	if s.renderer == nil {
		return nil
	}
	return s.renderer.Stop()
}

// pumpEvents forwards coordinator events to the sink until the job ends.
// Interrupts and a quit renderer cancel the job; the pump still waits for
// its final event.
func pumpEvents(ctx context.Context, coord *index.Coordinator, sink *eventSink) (job.Event, error) {
	var final job.Event
	g, gctx := errgroup.WithContext(context.Background())
	finished := make(chan struct{})

	g.Go(func() error {
		defer close(finished)
		for {
			select {
			case e := <-coord.Events():
				sink.handle(e)
				if ui.IsFinal(e) {
					final = e
					return nil
				}
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	g.Go(func() error {
		quit := sink.done()
		select {
		case <-finished:
			return nil
		case <-ctx.Done():
		case <-quit:
		}
		slog.Info("scan_cancel_requested")
		if err := coord.Cancel(); err != nil {
			slog.Debug("scan_cancel_ignored", slog.String("error", err.Error()))
		}
		return nil
	})

	err := g.Wait()
	return final, err
}
