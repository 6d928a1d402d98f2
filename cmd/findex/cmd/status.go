package cmd

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/findex/internal/async"
	"github.com/Aman-CERP/findex/internal/config"
	"github.com/Aman-CERP/findex/internal/store"
	"github.com/Aman-CERP/findex/internal/ui"
)

func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index health and status",
		Long: `Display information about the document index:
  - Backend and location
  - Number of indexed documents and size on disk
  - Whether the last index run finished
  - Whether a scan is writing right now`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd.Context(), cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runStatus(ctx context.Context, cmd *cobra.Command, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	info, err := collectStatus(ctx, cfg)
	if err != nil {
		return err
	}

	renderer := ui.NewStatusRenderer(cmd.OutOrStdout(), ui.DetectNoColor())
	if jsonOutput {
		return renderer.RenderJSON(info)
	}
	return renderer.Render(info)
}

func collectStatus(ctx context.Context, cfg *config.Config) (ui.StatusInfo, error) {
	dataDir := config.DataDir()
	info := ui.StatusInfo{
		Backend:    cfg.Backend.Kind,
		Location:   indexLocation(cfg),
		Incomplete: async.HasIncompleteMarker(dataDir),
	}
	if info.Incomplete {
		if t, err := async.MarkerTime(dataDir); err == nil {
			info.IncompleteSince = t
		}
	}

	// A held writer lock means a local index is open for writing elsewhere.
	lock := store.NewWriterLock(dataDir)
	if err := lock.TryLock(); err != nil {
		info.Locked = true
	} else {
		_ = lock.Unlock()
	}
	if info.Locked && store.IsLocal(cfg.Backend) {
		return info, nil
	}

	idx, err := openIndex(cfg)
	if err != nil {
		return info, err
	}
	defer func() { _ = idx.Close() }()

	n, err := idx.Count(ctx)
	if err != nil {
		return info, err
	}
	info.Documents = n
	if store.IsLocal(cfg.Backend) && cfg.Backend.Path != "" {
		info.SizeBytes = dirSize(cfg.Backend.Path)
	}

	slog.Debug("status_collected",
		slog.String("backend", info.Backend),
		slog.Int("documents", info.Documents),
		slog.Bool("incomplete", info.Incomplete))
	return info, nil
}
