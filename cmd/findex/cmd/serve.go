package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/findex/internal/config"
	"github.com/Aman-CERP/findex/internal/index"
	"github.com/Aman-CERP/findex/internal/job"
	"github.com/Aman-CERP/findex/internal/mcp"
	"github.com/Aman-CERP/findex/internal/search"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio",
		Long: `Serve the Model Context Protocol on stdin/stdout so an agent can
start, pause, resume and cancel scans and search the index.

Tools: start_scan, set_paused, cancel_scan, scan_status, search_files.
Nothing but protocol messages is written to stdout; logs go to the log file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx)
		},
	}
}

func runServe(ctx context.Context) error {
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

	svc, err := search.NewService(search.ServiceConfig{
		Index:        idx,
		DefaultLimit: cfg.Search.Limit,
		CacheSize:    cfg.Search.CacheSize,
	})
	if err != nil {
		return err
	}

	coord, err := index.NewCoordinator(index.CoordinatorConfig{
		Config:         cfg,
		Store:          idx,
		DataDir:        config.DataDir(),
		OnScanStart:    func(string) { svc.Invalidate() },
		OnIndexChanged: func(string) { svc.Invalidate() },
	})
	if err != nil {
		return err
	}
	defer func() { _ = coord.Close() }()

	srv, err := mcp.NewServer(coord, svc, idx,
		mcp.WithLogger(slog.Default()),
		mcp.WithBackendName(cfg.Backend.Kind))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		return srv.Serve(gctx)
	})

	g.Go(func() error {
		for {
			select {
			case e := <-coord.Events():
				logEvent(e)
			case <-gctx.Done():
				return nil
			}
		}
	})

	return g.Wait()
}

// logEvent records a job event in the log file; agents poll scan_status.
func logEvent(e job.Event) {
	attrs := []any{
		slog.String("job_id", e.JobID),
		slog.String("stage", string(e.Stage)),
	}
	switch e.Type {
	case job.KindError:
		slog.Warn("job_error", append(attrs, slog.String("code", e.Code), slog.String("message", e.Message))...)
	case job.KindResult, job.KindCancelled:
		slog.Info("job_"+string(e.Type), attrs...)
	default:
		slog.Debug("job_"+string(e.Type), append(attrs, slog.String("message", e.Message))...)
	}
}
