package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/findex/internal/config"
	"github.com/Aman-CERP/findex/internal/job"
	"github.com/Aman-CERP/findex/internal/output"
	"github.com/Aman-CERP/findex/internal/preflight"
	"github.com/Aman-CERP/findex/internal/store"
)

func newDoctorCmd() *cobra.Command {
	var (
		jsonOutput bool
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that findex can write and query its index",
		Long: `Run system checks: data directory access, free disk space, the
open file limit, and whether the configured backend opens and answers.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd.Context(), cmd, jsonOutput, verbose)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show remediation details")

	return cmd
}

// errChecksFailed signals a failed doctor run whose report is already printed.
var errChecksFailed = reportedError{job.Event{Message: "system checks failed"}}

func runDoctor(ctx context.Context, cmd *cobra.Command, jsonOutput, verbose bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	checker := preflight.New(
		preflight.WithOutput(cmd.OutOrStdout()),
		preflight.WithVerbose(verbose),
		preflight.WithBackendProbe(cfg.Backend.Kind, backendProbe(cfg)),
	)
	results := checker.RunAll(ctx, config.DataDir())

	if jsonOutput {
		if err := output.New(cmd.OutOrStdout()).JSON(map[string]any{
			"status": checker.SummaryStatus(results),
			"checks": results,
		}); err != nil {
			return err
		}
	} else {
		checker.PrintResults(results)
	}

	if checker.HasCriticalFailures(results) {
		return errChecksFailed
	}
	return nil
}

// errIndexBusy reports a local index another process is writing.
var errIndexBusy = errors.New("index is being written by another process")

// backendProbe opens the configured index and counts its documents. A local
// index held by a running scan is not opened.
func backendProbe(cfg *config.Config) preflight.BackendProbe {
	return func(ctx context.Context) error {
		if store.IsLocal(cfg.Backend) {
			lock := store.NewWriterLock(config.DataDir())
			if err := lock.TryLock(); err != nil {
				return errIndexBusy
			}
			defer func() { _ = lock.Unlock() }()
		}

		idx, err := openIndex(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = idx.Close() }()

		if m, ok := idx.(*store.MeiliIndex); ok {
			if err := m.Health(ctx); err != nil {
				return err
			}
		}
		if _, err := idx.Count(ctx); err != nil {
			return fmt.Errorf("count documents: %w", err)
		}
		return nil
	}
}
