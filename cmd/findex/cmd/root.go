// Package cmd provides the CLI commands for findex.
package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/findex/internal/config"
	"github.com/Aman-CERP/findex/internal/logging"
	"github.com/Aman-CERP/findex/internal/output"
	"github.com/Aman-CERP/findex/internal/profiling"
	"github.com/Aman-CERP/findex/pkg/version"
)

// Exit codes returned by Execute.
const (
	ExitOK        = 0
	ExitError     = 1
	ExitCancelled = 130
)

// errCancelled is returned by commands the user interrupted.
var errCancelled = errors.New("cancelled")

// rootState carries persistent flag values and run-scoped cleanups.
type rootState struct {
	debug   bool
	profile profiling.Options

	session        *profiling.Session
	loggingCleanup func()
}

// NewRootCmd creates the root command for the findex CLI.
func NewRootCmd() *cobra.Command {
	st := &rootState{}

	cmd := &cobra.Command{
		Use:   "findex",
		Short: "Crawl, index and search a directory tree",
		Long: `findex walks a directory tree, extracts per-file features
(name, size, timestamps, text content and trigrams) and loads them into a
searchable document index.

Scans can be paused, resumed and cancelled while they run. The index lives
under ~/.findex unless FINDEX_HOME says otherwise.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("findex version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&st.debug, "debug", false, "Enable debug logging (file and stderr)")
	cmd.PersistentFlags().StringVar(&st.profile.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&st.profile.Heap, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&st.profile.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = st.start
	cmd.PersistentPostRunE = st.stop

	cmd.AddCommand(newScanCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newResetCmd())
	cmd.AddCommand(newOpenCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// start installs file logging and starts profiling.
func (st *rootState) start(cmd *cobra.Command, _ []string) error {
	logCfg := logging.DefaultConfig()
	if cfg, err := config.Load(""); err == nil {
		logCfg.Level = cfg.Logging.Level
		logCfg.MaxSizeMB = cfg.Logging.MaxSizeMB
		logCfg.MaxFiles = cfg.Logging.MaxFiles
	}
	if st.debug {
		logCfg.Level = "debug"
		logCfg.WriteToStderr = true
	}

	// stdout and stderr of serve belong to the protocol and its client.
	if cmd.Name() == "serve" {
		st.loggingCleanup = logging.SetupServerMode(logCfg.Level)
	} else if cleanup, err := logging.SetupDefault(logCfg); err == nil {
		st.loggingCleanup = cleanup
		slog.Debug("logging_started",
			slog.String("command", cmd.Name()),
			slog.String("log_file", logCfg.FilePath),
			slog.String("version", version.Version))
	}

	if st.profile.Enabled() {
		s, err := profiling.Start(st.profile)
		if err != nil {
			return err
		}
		st.session = s
	}
	return nil
}

// stop ends profiling and flushes the log file.
func (st *rootState) stop(_ *cobra.Command, _ []string) error {
	var err error
	if st.session != nil {
		err = st.session.Stop()
		st.session = nil
	}
	if st.loggingCleanup != nil {
		st.loggingCleanup()
		st.loggingCleanup = nil
	}
	return err
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	cmd := NewRootCmd()
	err := cmd.Execute()
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, errCancelled):
		return ExitCancelled
	case errors.As(err, new(reportedError)):
		return ExitError
	default:
		output.New(os.Stderr).Err(err)
		return ExitError
	}
}

// exactArgs is cobra.ExactArgs with a findex-style message.
func exactArgs(n int, what string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) != n {
			return fmt.Errorf("expected %s", what)
		}
		return nil
	}
}
