package cmd

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/findex/internal/async"
	"github.com/Aman-CERP/findex/internal/config"
	ferrors "github.com/Aman-CERP/findex/internal/errors"
	"github.com/Aman-CERP/findex/internal/output"
)

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Remove every document from the index",
		Long: `Remove every document from the configured index and clear the
incomplete-index marker. Fails while a scan is writing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReset(cmd.Context(), cmd)
		},
	}
}

func runReset(ctx context.Context, cmd *cobra.Command) error {
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

	if err := idx.Reset(ctx); err != nil {
		if _, ok := ferrors.As(err); ok {
			return err
		}
		return ferrors.New(ferrors.ErrCodeResetFailed, "Failed to clear index", err)
	}
	if err := async.ClearMarker(config.DataDir()); err != nil {
		slog.Warn("marker_clear_failed", slog.String("error", err.Error()))
	}

	slog.Info("index_reset", slog.String("backend", cfg.Backend.Kind))
	output.New(cmd.OutOrStdout()).Successf("Index cleared (%s)", indexLocation(cfg))
	return nil
}
