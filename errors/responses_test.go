package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name           string
		err            *InkwellError
		expectedCode   int
		expectedType   ErrorType
		expectedFields []string
	}{
		{
			name: "provider error",
			err: &InkwellError{
				Type:      ProviderError,
				Message:   "provider unavailable",
				Code:      http.StatusBadGateway,
				RequestID: "test-id",
			},
			expectedCode:   http.StatusBadGateway,
			expectedType:   ProviderError,
			expectedFields: []string{"type", "message", "request_id"},
		},
		{
			name: "error with details",
			err: &InkwellError{
				Type:      ValidationError,
				Message:   "validation failed",
				Code:      http.StatusBadRequest,
				RequestID: "test-id",
				Details: map[string]interface{}{
					"field": "topic",
					"error": "required",
				},
			},
			expectedCode:   http.StatusBadRequest,
			expectedType:   ValidationError,
			expectedFields: []string{"type", "message", "request_id", "details"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()

			WriteError(rr, tt.err)

			if rr.Code != tt.expectedCode {
				t.Errorf("WriteError() status = %v, want %v", rr.Code, tt.expectedCode)
			}

			contentType := rr.Header().Get("Content-Type")
			if contentType != "application/json" {
				t.Errorf("WriteError() content-type = %v, want application/json", contentType)
			}

			var response map[string]interface{}
			if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
				t.Fatalf("Failed to decode response body: %v", err)
			}

			if errorType, ok := response["type"].(string); !ok || ErrorType(errorType) != tt.expectedType {
				t.Errorf("WriteError() error type = %v, want %v", errorType, tt.expectedType)
			}

			for _, field := range tt.expectedFields {
				if _, exists := response[field]; !exists {
					t.Errorf("WriteError() missing expected field: %s", field)
				}
			}
		})
	}
}

func TestWriteErrorResponseShape(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, &InkwellError{
		Type:      PipelineError,
		Message:   "All generation attempts failed",
		Code:      http.StatusBadGateway,
		RequestID: "test-id",
		Details:   map[string]interface{}{"topic": "겨울철 싱크대 냄새"},
		err:       fmt.Errorf("upstream exhausted"),
	})

	var resp ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response body: %v", err)
	}
	if resp.Type != PipelineError {
		t.Errorf("Response type = %v, want %v", resp.Type, PipelineError)
	}
	if resp.Message != "All generation attempts failed" {
		t.Errorf("Response message = %q", resp.Message)
	}
	if resp.RequestID != "test-id" {
		t.Errorf("Response request_id = %q, want test-id", resp.RequestID)
	}
	if resp.Details["topic"] != "겨울철 싱크대 냄새" {
		t.Errorf("Response details = %v", resp.Details)
	}

	// Internal fields must not leak into the body.
	var raw map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &raw); err != nil {
		t.Fatalf("Failed to re-decode response body: %v", err)
	}
	for _, field := range []string{"code", "err"} {
		if _, exists := raw[field]; exists {
			t.Errorf("Response leaked internal field: %s", field)
		}
	}
}
