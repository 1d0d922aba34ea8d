package errors

import (
	"net/http"
)

// NewError creates a new InkwellError with the given parameters.
// It is a general-purpose constructor that allows full control over
// the error's fields. For most cases, you should use one of the
// specialized constructors below.
//
// Example:
//
//	err := NewError(InternalError, "provider call failed", 500, "req_123", nil, cause)
func NewError(errType ErrorType, message string, code int, requestID string, details map[string]interface{}, err error) *InkwellError {
	return &InkwellError{
		Type:      errType,
		Message:   message,
		Code:      code,
		RequestID: requestID,
		Details:   details,
		err:       err,
	}
}

// NewValidationError creates a validation error with appropriate defaults.
// Use this for any request validation failures, such as:
//   - Invalid input formats
//   - Missing required fields
//   - Value constraint violations
//
// Example:
//
//	err := NewValidationError("req_123", "Invalid topic", map[string]interface{}{
//	    "field": "topic",
//	    "error": "must not be empty",
//	})
func NewValidationError(requestID, message string, validationDetails map[string]interface{}) *InkwellError {
	return &InkwellError{
		Type:      ValidationError,
		Message:   message,
		Code:      http.StatusBadRequest,
		RequestID: requestID,
		Details:   validationDetails,
	}
}

// NewRateLimitError creates a rate limit error with appropriate defaults.
// Use this when a client has exceeded their quota or rate limits.
//
// Example:
//
//	err := NewRateLimitError("req_123", 30)
func NewRateLimitError(requestID string, retryAfter int) *InkwellError {
	return &InkwellError{
		Type:      RateLimitError,
		Message:   "Rate limit exceeded",
		Code:      http.StatusTooManyRequests,
		RequestID: requestID,
		Details: map[string]interface{}{
			"retry_after": retryAfter,
		},
	}
}

// NewProviderError creates a provider error with appropriate defaults.
// Use this when an AI completion provider encounters an error, such as:
//   - Provider API errors
//   - Model unavailability
//   - Retry budget exhaustion on a single adapter
//
// Example:
//
//	err := NewProviderError("req_123", "Model unavailable", providerErr)
func NewProviderError(requestID string, message string, err error) *InkwellError {
	return &InkwellError{
		Type:      ProviderError,
		Message:   message,
		Code:      http.StatusBadGateway,
		RequestID: requestID,
		err:       err,
	}
}

// NewPipelineError creates a pipeline error for total generation failure.
// This is raised only when every entry in the provider fallback chain has
// been exhausted for a topic; it always names the topic being generated.
//
// Example:
//
//	err := NewPipelineError("req_123", "겨울철 싱크대 냄새", lastErr)
func NewPipelineError(requestID, topic string, err error) *InkwellError {
	return &InkwellError{
		Type:      PipelineError,
		Message:   "All generation attempts failed for topic: " + topic,
		Code:      http.StatusBadGateway,
		RequestID: requestID,
		Details: map[string]interface{}{
			"topic": topic,
		},
		err: err,
	}
}

// NewInternalError creates an internal server error with appropriate defaults.
// Use this for unexpected errors that are not covered by other error types:
//   - Panics
//   - Unexpected system failures
//
// Example:
//
//	err := NewInternalError("req_123", err)
func NewInternalError(requestID string, err error) *InkwellError {
	return &InkwellError{
		Type:      InternalError,
		Message:   "An internal error occurred",
		Code:      http.StatusInternalServerError,
		RequestID: requestID,
		err:       err,
	}
}
