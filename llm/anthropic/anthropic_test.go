package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/potensia/inkwell/config"
	"github.com/potensia/inkwell/llm"
)

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	return New(config.ProviderConfig{
		Type:     "anthropic",
		Model:    "claude-3-5-sonnet-20241022",
		APIKey:   "test-key",
		Endpoint: url,
		Timeout:  time.Second,
	}, config.PipelineConfig{
		MaxRetries:         3,
		BackoffMin:         time.Millisecond,
		BackoffMax:         5 * time.Millisecond,
		DefaultTemperature: 0.7,
		DefaultMaxTokens:   4096,
	}, zap.NewNop())
}

func successBody(text string) map[string]interface{} {
	return map[string]interface{}{
		"content": []map[string]string{{"type": "text", "text": text}},
		"usage":   map[string]int{"input_tokens": 500, "output_tokens": 1500},
	}
}

func TestCompleteSuccess(t *testing.T) {
	var captured messagesRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, apiVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(successBody("claude article"))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	resp, err := client.Complete(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "write about sinks"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "claude article", resp.Content)
	assert.Equal(t, "anthropic", resp.Provider)
	assert.Equal(t, 500, resp.InputTokens)
	assert.Equal(t, 1500, resp.OutputTokens)
	assert.Equal(t, 2000, resp.TotalTokens)
	// claude-3-5-sonnet: $3/M input, $15/M output
	assert.InDelta(t, 500.0/1e6*3.0+1500.0/1e6*15.0, resp.Cost, 1e-9)
	assert.Equal(t, 4096, captured.MaxTokens)
	assert.Equal(t, 0.7, captured.Temperature)
}

func TestCompleteExtractsSystemMessage(t *testing.T) {
	var captured messagesRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(successBody("ok"))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Complete(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "system instruction"},
			{Role: llm.RoleUser, Content: "hi"},
		},
		SystemPrompt: "fallback instruction",
	})
	require.NoError(t, err)

	// The system message wins over the SystemPrompt carrier and never
	// appears in the messages array.
	assert.Equal(t, "system instruction", captured.System)
	require.Len(t, captured.Messages, 1)
	assert.Equal(t, "user", captured.Messages[0].Role)
}

func TestCompleteSystemPromptCarrier(t *testing.T) {
	var captured messagesRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(successBody("ok"))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Complete(context.Background(), llm.CompletionRequest{
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
		SystemPrompt: "carried instruction",
	})
	require.NoError(t, err)
	assert.Equal(t, "carried instruction", captured.System)
}

func TestCompleteRetriesOnOverload(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(529)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error": map[string]string{"type": "overloaded_error", "message": "overloaded"},
			})
			return
		}
		json.NewEncoder(w).Encode(successBody("recovered"))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	resp, err := client.Complete(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp.Content)
	assert.Equal(t, 2, calls)
}

func TestCompleteFailsImmediatelyOnBadRequest(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"type": "invalid_request_error", "message": "max_tokens required"},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Complete(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	require.Error(t, err)
	assert.False(t, llm.IsTransient(err))
	assert.Equal(t, 1, calls)
}

func TestCalculateCostUnknownModelDefaultsToSonnetTier(t *testing.T) {
	client := newTestClient(t, "http://unused")

	known := client.CalculateCost("claude-3-5-sonnet-20241022", 1_000_000, 1_000_000)
	unknown := client.CalculateCost("claude-99-experimental", 1_000_000, 1_000_000)

	assert.InDelta(t, 18.00, known, 1e-9)
	assert.Equal(t, known, unknown)

	haiku := client.CalculateCost("claude-3-haiku-20240307", 1_000_000, 1_000_000)
	assert.InDelta(t, 1.50, haiku, 1e-9)
}

func TestIsReasoningModelAlwaysFalse(t *testing.T) {
	client := newTestClient(t, "http://unused")
	assert.False(t, client.IsReasoningModel("o1-mini"))
	assert.False(t, client.IsReasoningModel("claude-3-opus"))
}
