package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	ferrors "github.com/Aman-CERP/findex/internal/errors"
)

func newOpenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open <path>",
		Short: "Open a file with the default application",
		Args:  exactArgs(1, "a path to open"),
		RunE: func(_ *cobra.Command, args []string) error {
			return runOpen(args[0])
		},
	}
}

func runOpen(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return ferrors.New(ferrors.ErrCodeInvalidPath, fmt.Sprintf("Invalid path: %s", path), err)
	}
	if _, err := os.Stat(abs); err != nil {
		return ferrors.New(ferrors.ErrCodeInvalidPath, fmt.Sprintf("Cannot open %s", abs), err)
	}

	name, args := openerCommand(runtime.GOOS, abs)
	c := exec.Command(name, args...)
	if err := c.Start(); err != nil {
		return fmt.Errorf("failed to launch %s: %w", name, err)
	}
	slog.Info("file_opened", slog.String("path", abs), slog.String("opener", name))

	// The opener hands off to the real application; findex does not wait.
	return c.Process.Release()
}

// openerCommand returns the platform command that opens path with its
// default application.
func openerCommand(goos, path string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{path}
	case "windows":
		return "cmd", []string{"/c", "start", "", path}
	default:
		return "xdg-open", []string{path}
	}
}
