// Package errors provides structured error handling for findex.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (directory access, enumeration)
//   - 3XX: Index backend errors
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates filesystem access and traversal errors.
	CategoryIO Category = "IO"
	// CategoryBackend indicates the document index rejected or failed a call.
	CategoryBackend Category = "BACKEND"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates the job cannot continue.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates the operation failed.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// IO errors (200-299)
	ErrCodeDirNotFound   = "ERR_201_DIR_NOT_FOUND"
	ErrCodeDirPermission = "ERR_202_DIR_PERMISSION"
	ErrCodeNotDirectory  = "ERR_203_NOT_DIRECTORY"
	ErrCodeEnumeration   = "ERR_204_ENUMERATION_FAILED"
	ErrCodeIndexLocked   = "ERR_205_INDEX_LOCKED"
	ErrCodeCorruptIndex  = "ERR_206_CORRUPT_INDEX"

	// Backend errors (300-399)
	ErrCodeBackendUnavailable = "ERR_301_BACKEND_UNAVAILABLE"
	ErrCodeBackendRejected    = "ERR_302_BACKEND_REJECTED"
	ErrCodeResetFailed        = "ERR_303_RESET_FAILED"
	ErrCodeDispatchFailed     = "ERR_304_DISPATCH_FAILED"
	ErrCodeSearchFailed       = "ERR_305_SEARCH_FAILED"

	// Validation errors (400-499)
	ErrCodeInvalidInput = "ERR_401_INVALID_INPUT"
	ErrCodeQueryEmpty   = "ERR_402_QUERY_EMPTY"
	ErrCodeQueryTooLong = "ERR_403_QUERY_TOO_LONG"
	ErrCodeInvalidPath  = "ERR_404_INVALID_PATH"
	ErrCodeNoActiveJob  = "ERR_405_NO_ACTIVE_JOB"

	// Internal errors (500-599)
	ErrCodeInternal = "ERR_501_INTERNAL"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// "101" from "ERR_101_CONFIG_NOT_FOUND"
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryBackend
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeCorruptIndex, ErrCodeResetFailed, ErrCodeDispatchFailed, ErrCodeEnumeration:
		return SeverityFatal
	}
	if isRetryableCode(code) {
		return SeverityWarning
	}
	return SeverityError
}

// isRetryableCode reports codes where a user-initiated rescan may succeed.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeBackendUnavailable, ErrCodeIndexLocked:
		return true
	default:
		return false
	}
}
