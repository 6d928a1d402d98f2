package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindexError_Unwrap_PreservesOriginalError(t *testing.T) {
	// Given: an original error
	original := errors.New("permission denied")

	// When: wrapping it
	err := New(ErrCodeDirPermission, "Cannot access directory: /root", original)

	// Then: the chain reaches the original
	require.NotNil(t, err)
	assert.Equal(t, original, errors.Unwrap(err))
	assert.True(t, errors.Is(err, original))
}

func TestFindexError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{"io", ErrCodeDirNotFound, "missing", "[ERR_201_DIR_NOT_FOUND] missing"},
		{"backend", ErrCodeDispatchFailed, "batch rejected", "[ERR_304_DISPATCH_FAILED] batch rejected"},
		{"validation", ErrCodeQueryEmpty, "empty", "[ERR_402_QUERY_EMPTY] empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, New(tt.code, tt.message, nil).Error())
		})
	}
}

func TestFindexError_Is_MatchesByCode(t *testing.T) {
	a := New(ErrCodeResetFailed, "a", nil)
	b := New(ErrCodeResetFailed, "b", nil)
	c := New(ErrCodeDispatchFailed, "c", nil)

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
}

func TestCategoryAndSeverity_DerivedFromCode(t *testing.T) {
	tests := []struct {
		code     string
		category Category
		severity Severity
	}{
		{ErrCodeConfigInvalid, CategoryConfig, SeverityError},
		{ErrCodeEnumeration, CategoryIO, SeverityFatal},
		{ErrCodeBackendUnavailable, CategoryBackend, SeverityWarning},
		{ErrCodeDispatchFailed, CategoryBackend, SeverityFatal},
		{ErrCodeQueryTooLong, CategoryValidation, SeverityError},
		{ErrCodeInternal, CategoryInternal, SeverityError},
		{"bad", CategoryInternal, SeverityError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "x", nil)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.severity, err.Severity)
		})
	}
}

func TestHelpers_SeeThroughWrapping(t *testing.T) {
	// Given: a FindexError wrapped with fmt.Errorf
	inner := New(ErrCodeBackendUnavailable, "meilisearch down", nil)
	wrapped := fmt.Errorf("index stage: %w", inner)

	// Then: helpers still find it
	assert.Equal(t, ErrCodeBackendUnavailable, GetCode(wrapped))
	assert.Equal(t, CategoryBackend, GetCategory(wrapped))
	assert.True(t, IsRetryable(wrapped))
	assert.False(t, IsFatal(wrapped))
	assert.Equal(t, "", GetCode(errors.New("plain")))
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestWithDetailAndSuggestion(t *testing.T) {
	err := New(ErrCodeDirNotFound, "missing", nil).
		WithDetail("path", "/tmp/x").
		WithSuggestion("Check the path")

	assert.Equal(t, "/tmp/x", err.Details["path"])
	assert.Equal(t, "Check the path", err.Suggestion)
}

func TestFormatForCLI(t *testing.T) {
	t.Run("structured", func(t *testing.T) {
		err := New(ErrCodeDirPermission, "Cannot access directory: /x", nil).
			WithSuggestion("Check permissions")
		out := FormatForCLI(err)
		assert.Contains(t, out, "Error: Cannot access directory: /x")
		assert.Contains(t, out, "Hint: Check permissions")
		assert.Contains(t, out, "Code: ERR_202_DIR_PERMISSION")
	})

	t.Run("plain", func(t *testing.T) {
		out := FormatForCLI(errors.New("boom"))
		assert.Contains(t, out, "Error: boom")
		assert.Contains(t, out, ErrCodeInternal)
	})

	t.Run("nil", func(t *testing.T) {
		assert.Empty(t, FormatForCLI(nil))
	})
}

func TestFormatMessage(t *testing.T) {
	assert.Equal(t, "batch rejected", FormatMessage(New(ErrCodeDispatchFailed, "batch rejected", nil)))
	assert.Equal(t, "plain", FormatMessage(errors.New("plain")))
	assert.Empty(t, FormatMessage(nil))
}

func TestFormatJSON(t *testing.T) {
	// Given: an error with a cause
	err := New(ErrCodeResetFailed, "reset failed", errors.New("503"))

	// When: formatting as JSON
	data, jerr := FormatJSON(err)
	require.NoError(t, jerr)

	// Then: the fields round through
	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, ErrCodeResetFailed, got["code"])
	assert.Equal(t, "BACKEND", got["category"])
	assert.Equal(t, "503", got["cause"])
}

func TestLogAttrs(t *testing.T) {
	attrs := LogAttrs(New(ErrCodeEnumeration, "walk failed", errors.New("eio")).WithDetail("root", "/r"))
	assert.Contains(t, attrs, "error_code")
	assert.Contains(t, attrs, ErrCodeEnumeration)
	assert.Contains(t, attrs, "detail_root")

	assert.Equal(t, []any{"error", "x"}, LogAttrs(errors.New("x")))
	assert.Nil(t, LogAttrs(nil))
}
