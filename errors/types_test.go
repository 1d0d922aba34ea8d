package errors

import (
	"errors"
	"net/http"
	"testing"
)

func TestNewValidationError(t *testing.T) {
	requestID := "test-456"
	message := "invalid input"
	details := map[string]interface{}{
		"field": "topic",
		"error": "required",
	}

	err := NewValidationError(requestID, message, details)

	if err.Type != ValidationError {
		t.Errorf("Expected error type %v, got %v", ValidationError, err.Type)
	}
	if err.Message != message {
		t.Errorf("Expected message %v, got %v", message, err.Message)
	}
	if err.Code != http.StatusBadRequest {
		t.Errorf("Expected code %v, got %v", http.StatusBadRequest, err.Code)
	}
	if err.RequestID != requestID {
		t.Errorf("Expected requestID %v, got %v", requestID, err.RequestID)
	}
	if err.Details["field"] != details["field"] {
		t.Errorf("Expected details field %v, got %v", details["field"], err.Details["field"])
	}
}

func TestNewProviderError(t *testing.T) {
	requestID := "test-123"
	innerErr := errors.New("rate limited")

	err := NewProviderError(requestID, "provider unavailable", innerErr)

	if err.Type != ProviderError {
		t.Errorf("Expected error type %v, got %v", ProviderError, err.Type)
	}
	if err.Code != http.StatusBadGateway {
		t.Errorf("Expected code %v, got %v", http.StatusBadGateway, err.Code)
	}
	if err.Unwrap() != innerErr {
		t.Errorf("Expected inner error %v, got %v", innerErr, err.Unwrap())
	}
}

func TestNewPipelineError(t *testing.T) {
	requestID := "test-321"
	topic := "겨울철 싱크대 냄새"
	innerErr := errors.New("all attempts failed")

	err := NewPipelineError(requestID, topic, innerErr)

	if err.Type != PipelineError {
		t.Errorf("Expected error type %v, got %v", PipelineError, err.Type)
	}
	if err.Details["topic"] != topic {
		t.Errorf("Expected topic detail %v, got %v", topic, err.Details["topic"])
	}
	if err.Unwrap() != innerErr {
		t.Errorf("Expected inner error %v, got %v", innerErr, err.Unwrap())
	}
}

func TestNewRateLimitError(t *testing.T) {
	requestID := "test-789"
	retryAfter := 60

	err := NewRateLimitError(requestID, retryAfter)

	if err.Type != RateLimitError {
		t.Errorf("Expected error type %v, got %v", RateLimitError, err.Type)
	}
	if err.Code != http.StatusTooManyRequests {
		t.Errorf("Expected code %v, got %v", http.StatusTooManyRequests, err.Code)
	}
	if err.Details["retry_after"] != retryAfter {
		t.Errorf("Expected retry_after %v, got %v", retryAfter, err.Details["retry_after"])
	}
}
