package errors

import (
	stderrors "errors"
	"fmt"
)

// FindexError is the structured error type for findex.
// It carries enough context for logging, event reporting and CLI output.
type FindexError struct {
	// Code is the unique error code (e.g., "ERR_201_DIR_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (IO, Backend, Validation, ...).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error.
	Cause error

	// Retryable indicates a fresh scan may succeed.
	Retryable bool

	// Suggestion is an actionable hint for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *FindexError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *FindexError) Unwrap() error {
	return e.Cause
}

// Is matches another FindexError by code so errors.Is works across wrapping.
func (e *FindexError) Is(target error) bool {
	if t, ok := target.(*FindexError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *FindexError) WithDetail(key, value string) *FindexError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *FindexError) WithSuggestion(suggestion string) *FindexError {
	e.Suggestion = suggestion
	return e
}

// New creates a FindexError. Category, severity and the retryable flag are
// derived from the code.
func New(code string, message string, cause error) *FindexError {
	return &FindexError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a FindexError whose message is err's message.
func Wrap(code string, err error) *FindexError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// IOError creates a filesystem access error.
func IOError(message string, cause error) *FindexError {
	return New(ErrCodeEnumeration, message, cause)
}

// BackendError creates a document index error.
func BackendError(message string, cause error) *FindexError {
	return New(ErrCodeBackendRejected, message, cause)
}

// ValidationError creates an input validation error.
func ValidationError(message string, cause error) *FindexError {
	return New(ErrCodeInvalidInput, message, cause)
}

// ConfigError creates a configuration error.
func ConfigError(message string, cause error) *FindexError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// As returns the first FindexError in err's chain.
func As(err error) (*FindexError, bool) {
	var fe *FindexError
	if stderrors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// IsRetryable reports whether err carries the Retryable flag.
func IsRetryable(err error) bool {
	fe, ok := As(err)
	return ok && fe.Retryable
}

// IsFatal reports whether err has fatal severity.
func IsFatal(err error) bool {
	fe, ok := As(err)
	return ok && fe.Severity == SeverityFatal
}

// GetCode extracts the error code, or "" if err is not a FindexError.
func GetCode(err error) string {
	if fe, ok := As(err); ok {
		return fe.Code
	}
	return ""
}

// GetCategory extracts the category, or "" if err is not a FindexError.
func GetCategory(err error) Category {
	if fe, ok := As(err); ok {
		return fe.Category
	}
	return ""
}
