// Package errors provides the error handling system for the Inkwell content service.
// It includes structured error types, JSON response formatting, request ID tracking,
// and integrated logging with Uber's zap logger.
//
// The package is used throughout the Inkwell codebase to provide consistent
// error handling and reporting:
//
//   - Structured JSON error responses with type information
//   - Request ID tracking for error correlation
//   - Integrated logging with zap
//   - Custom error types for different scenarios
//
// Basic usage:
//
//	// Simple error response
//	errors.Error(w, "Something went wrong", http.StatusBadRequest)
//
//	// Type-specific error with context
//	errors.ErrorWithType(w, "Invalid input", errors.ValidationError, http.StatusBadRequest)
//
// For more complex scenarios, use the constructors in types.go:
//
//	err := errors.NewValidationError(requestID, "Invalid input", map[string]interface{}{
//	    "field": "topic",
//	    "error": "required",
//	})
package errors

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// DefaultLogger is the default zap logger instance used throughout the package.
// It is initialized to a production configuration but can be overridden using SetLogger.
var DefaultLogger *zap.Logger

func init() {
	var err error
	DefaultLogger, err = zap.NewProduction()
	if err != nil {
		DefaultLogger = zap.NewNop()
	}
}

// SetLogger allows setting a custom zap logger instance.
// If nil is provided, the function will do nothing to prevent
// accidentally disabling logging.
func SetLogger(logger *zap.Logger) {
	if logger != nil {
		DefaultLogger = logger
	}
}

// ErrorType represents different categories of errors that can occur
// in the Inkwell system. Each type corresponds to a specific kind of
// error scenario and carries appropriate HTTP status codes.
type ErrorType string

const (
	// ValidationError represents input validation failures
	ValidationError ErrorType = "validation_error"

	// InternalError represents unexpected internal server errors
	InternalError ErrorType = "internal_error"

	// ConfigError represents configuration-related errors
	ConfigError ErrorType = "config_error"

	// ProviderError represents errors from AI completion providers
	ProviderError ErrorType = "provider_error"

	// PipelineError represents a total generation pipeline failure,
	// raised only when every provider in the fallback chain is exhausted
	PipelineError ErrorType = "pipeline_error"

	// RateLimitError represents rate limiting errors
	RateLimitError ErrorType = "rate_limit_error"
)

// InkwellError is our custom error type that implements the error interface
// and provides additional context about the error. API responses carry its
// Response form; the full struct keeps internal error context for logging
// and debugging.
type InkwellError struct {
	// Type categorizes the error for client handling
	Type ErrorType

	// Message is a human-readable error description
	Message string

	// Code is the HTTP status code written with the response
	Code int

	// RequestID links the error to a specific request
	RequestID string

	// Details contains additional error context
	Details map[string]interface{}

	// err is the underlying error, never sent to clients
	err error
}

// Error implements the error interface. It returns a string that
// combines the error type, message, and underlying error (if any).
func (e *InkwellError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error, implementing the unwrap
// interface for error chains.
func (e *InkwellError) Unwrap() error {
	return e.err
}

// Is implements error matching for errors.Is, allowing type-based
// error matching while ignoring other fields.
func (e *InkwellError) Is(target error) bool {
	t, ok := target.(*InkwellError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WriteError formats and writes an InkwellError to an http.ResponseWriter.
// It sets the appropriate content type and status code, then writes
// the client-facing ErrorResponse form as JSON.
func WriteError(w http.ResponseWriter, err *InkwellError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Code)
	json.NewEncoder(w).Encode(err.Response())
}

// Error is a drop-in replacement for http.Error that creates and writes
// an InkwellError with the InternalError type. It automatically includes
// the request ID from the response headers if available.
func Error(w http.ResponseWriter, message string, code int) {
	requestID := w.Header().Get("X-Request-ID")
	err := &InkwellError{
		Type:      InternalError,
		Message:   message,
		Code:      code,
		RequestID: requestID,
	}
	WriteError(w, err)
}

// ErrorWithType is like Error but allows specifying the error type.
// This is useful when you want to indicate specific error categories
// to the client while maintaining the simple interface of http.Error.
func ErrorWithType(w http.ResponseWriter, message string, errType ErrorType, code int) {
	requestID := w.Header().Get("X-Request-ID")
	err := &InkwellError{
		Type:      errType,
		Message:   message,
		Code:      code,
		RequestID: requestID,
	}
	WriteError(w, err)
}
