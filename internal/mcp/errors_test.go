package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "github.com/Aman-CERP/findex/internal/errors"
)

func TestMapError_NilError(t *testing.T) {
	// Given: nil error
	var err error

	// When: mapping the error
	result := MapError(err)

	// Then: returns nil
	assert.Nil(t, result)
}

func TestMapError_FindexErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"no active job", ferrors.New(ferrors.ErrCodeNoActiveJob, "No scan in progress", nil), ErrCodeNoActiveJob},
		{"missing directory", ferrors.New(ferrors.ErrCodeDirNotFound, "Cannot access directory: /nope", nil), ErrCodeDirectory},
		{"permission", ferrors.New(ferrors.ErrCodeDirPermission, "Cannot access directory: /root", nil), ErrCodeDirectory},
		{"not a directory", ferrors.New(ferrors.ErrCodeNotDirectory, "Not a directory", nil), ErrCodeDirectory},
		{"empty query", ferrors.New(ferrors.ErrCodeQueryEmpty, "Query is empty", nil), ErrCodeInvalidParams},
		{"backend down", ferrors.New(ferrors.ErrCodeBackendUnavailable, "Backend unavailable", nil), ErrCodeBackend},
		{"search failed", ferrors.New(ferrors.ErrCodeSearchFailed, "Search failed", nil), ErrCodeBackend},
		{"internal", ferrors.New(ferrors.ErrCodeInternal, "boom", nil), ErrCodeInternalError},
		{"wrapped", fmt.Errorf("start: %w", ferrors.New(ferrors.ErrCodeNoActiveJob, "No scan in progress", nil)), ErrCodeNoActiveJob},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// When: mapping the error
			result := MapError(tt.err)

			// Then: the MCP code follows the error code or category
			require.NotNil(t, result)
			assert.Equal(t, tt.code, result.Code)
		})
	}
}

func TestMapError_IncludesSuggestion(t *testing.T) {
	// Given: an error with a suggestion
	err := ferrors.New(ferrors.ErrCodeIndexLocked, "Index is locked", nil).
		WithSuggestion("Wait for the other scan to finish")

	// When: mapping the error
	result := MapError(err)

	// Then: message carries both parts
	require.NotNil(t, result)
	assert.Equal(t, "Index is locked. Wait for the other scan to finish", result.Message)
}

func TestMapError_ContextErrors(t *testing.T) {
	// Given: context errors
	// When: mapping them
	deadline := MapError(context.DeadlineExceeded)
	canceled := MapError(fmt.Errorf("search: %w", context.Canceled))

	// Then: both map to timeout
	assert.Equal(t, ErrCodeTimeout, deadline.Code)
	assert.Equal(t, ErrCodeTimeout, canceled.Code)
}

func TestMapError_UnknownErrorHidesDetails(t *testing.T) {
	// Given: a plain error with internal details
	err := errors.New("sql: connection refused at 10.0.0.1")

	// When: mapping the error
	result := MapError(err)

	// Then: returns a generic internal error
	require.NotNil(t, result)
	assert.Equal(t, ErrCodeInternalError, result.Code)
	assert.NotContains(t, result.Message, "10.0.0.1")
}

func TestMapError_PassesThroughMCPError(t *testing.T) {
	// Given: an already mapped error
	orig := NewInvalidParamsError("root parameter is required")

	// When: mapping it again
	result := MapError(orig)

	// Then: it is returned unchanged
	assert.Same(t, orig, result)
	assert.Equal(t, "MCP error -32602: root parameter is required", result.Error())
}

func TestMimeTypeForExtension(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{"go", "text/x-go"},
		{".md", "text/markdown"},
		{"PNG", "image/png"},
		{"", "application/octet-stream"},
		{"xyz", "application/octet-stream"},
	}
	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			assert.Equal(t, tt.want, MimeTypeForExtension(tt.ext))
		})
	}
}
