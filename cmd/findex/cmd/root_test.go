package cmd

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/findex/pkg/version"
)

func TestRootCmd_ShowsHelp(t *testing.T) {
	isolate(t)

	// When: executing with --help
	out, err := run(t, "--help")

	// Then: usage lists every subcommand
	require.NoError(t, err)
	for _, sub := range []string{"scan", "search", "status", "reset", "open", "config", "serve", "version"} {
		assert.Contains(t, out, sub)
	}
}

func TestRootCmd_Version(t *testing.T) {
	isolate(t)

	out, err := run(t, "version", "--short")

	require.NoError(t, err)
	assert.Equal(t, version.Version+"\n", out)
}

func TestRootCmd_VersionJSON(t *testing.T) {
	isolate(t)

	out, err := run(t, "version", "--json")

	require.NoError(t, err)
	assert.Contains(t, out, `"version"`)
	assert.Contains(t, out, `"go_version"`)
}

func TestRootCmd_ArgumentErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"scan without dir", []string{"scan"}},
		{"scan with two dirs", []string{"scan", "a", "b"}},
		{"search without query", []string{"search"}},
		{"open without path", []string{"open"}},
		{"status with args", []string{"status", "extra"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)

			_, err := run(t, tt.args...)

			assert.Error(t, err)
		})
	}
}

func TestRootCmd_ProfilingFlags(t *testing.T) {
	// Given: a heap profile path
	isolate(t)
	heap := t.TempDir() + "/heap.prof"

	// When: running a command with --profile-mem
	_, err := run(t, "--profile-mem", heap, "version", "--short")

	// Then: the profile is written
	require.NoError(t, err)
	assert.FileExists(t, heap)
}

func TestReportedError_IsDistinct(t *testing.T) {
	err := error(reportedError{})
	assert.True(t, errors.As(err, new(reportedError)))
	assert.False(t, errors.Is(err, errCancelled))
}
