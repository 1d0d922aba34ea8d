package errors

import (
	"errors"
)

// ErrorResponse is the wire shape of every error body returned to
// clients. WriteError converts an InkwellError into this form so the
// internal fields (status code, wrapped error) never leak into the
// response body.
type ErrorResponse struct {
	Type      ErrorType              `json:"type"`
	Message   string                 `json:"message"`
	RequestID string                 `json:"request_id"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// Response converts the error to its client-facing form.
func (e *InkwellError) Response() ErrorResponse {
	return ErrorResponse{
		Type:      e.Type,
		Message:   e.Message,
		RequestID: e.RequestID,
		Details:   e.Details,
	}
}

// As is a wrapper around errors.As for better error type assertion
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
