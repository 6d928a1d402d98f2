// Package mcp exposes the scan pipeline and search to agents over the
// Model Context Protocol.
package mcp

import (
	"context"
	"errors"
	"fmt"

	ferrors "github.com/Aman-CERP/findex/internal/errors"
)

// Custom MCP error codes for findex.
const (
	// ErrCodeNoActiveJob indicates a control call without a running scan.
	ErrCodeNoActiveJob = -32001

	// ErrCodeBackend indicates the document index failed or is unreachable.
	ErrCodeBackend = -32002

	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout = -32003

	// ErrCodeDirectory indicates the scan root cannot be used.
	ErrCodeDirectory = -32004

	// Standard JSON-RPC error codes.
	ErrCodeInvalidParams = -32602
	ErrCodeInternalError = -32603
)

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var me *MCPError
	if errors.As(err, &me) {
		return me
	}
	if fe, ok := ferrors.As(err); ok {
		return mapFindexError(fe)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}
}

// NewInvalidParamsError creates an error for invalid parameters.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

func mapFindexError(fe *ferrors.FindexError) *MCPError {
	message := fe.Message
	if fe.Suggestion != "" {
		message = fmt.Sprintf("%s. %s", fe.Message, fe.Suggestion)
	}

	switch fe.Code {
	case ferrors.ErrCodeNoActiveJob:
		return &MCPError{Code: ErrCodeNoActiveJob, Message: message}
	case ferrors.ErrCodeDirNotFound, ferrors.ErrCodeDirPermission, ferrors.ErrCodeNotDirectory:
		return &MCPError{Code: ErrCodeDirectory, Message: message}
	}

	switch fe.Category {
	case ferrors.CategoryValidation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	case ferrors.CategoryBackend:
		return &MCPError{Code: ErrCodeBackend, Message: message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}
