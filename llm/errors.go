package llm

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an adapter failure for retry purposes.
type ErrorKind int

const (
	// KindTransient covers rate limiting, connection failures, provider
	// 5xx responses, and empty completions. Retried with backoff.
	KindTransient ErrorKind = iota

	// KindFatal covers malformed requests and auth failures. Never
	// retried.
	KindFatal
)

// Error is a classified provider failure raised at the adapter boundary.
type Error struct {
	Kind     ErrorKind
	Provider string
	Status   int
	Message  string
	err      error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Provider, e.Message, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *Error) Unwrap() error { return e.err }

// Transient builds a retryable provider error.
func Transient(provider string, status int, message string, err error) *Error {
	return &Error{Kind: KindTransient, Provider: provider, Status: status, Message: message, err: err}
}

// Fatal builds a non-retryable provider error.
func Fatal(provider string, status int, message string, err error) *Error {
	return &Error{Kind: KindFatal, Provider: provider, Status: status, Message: message, err: err}
}

// IsTransient reports whether err should trigger a retry. Unclassified
// errors are treated as fatal.
func IsTransient(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindTransient
	}
	return false
}

// RetryError is the terminal per-adapter failure carrying the attempt
// count and the last cause.
type RetryError struct {
	Provider string
	Attempts int
	LastErr  error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("%s: failed after %d attempts: %v", e.Provider, e.Attempts, e.LastErr)
}

func (e *RetryError) Unwrap() error { return e.LastErr }
