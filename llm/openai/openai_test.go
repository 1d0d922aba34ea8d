package openai

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

func testPipeline() config.PipelineConfig {
	return config.PipelineConfig{
		MaxRetries:         3,
		BackoffMin:         time.Millisecond,
		BackoffMax:         5 * time.Millisecond,
		DefaultTemperature: 0.7,
		DefaultMaxTokens:   4096,
	}
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	return New(config.ProviderConfig{
		Type:     "openai",
		Model:    "gpt-4o",
		APIKey:   "test-key",
		Endpoint: url,
		Timeout:  time.Second,
	}, testPipeline(), zap.NewNop())
}

func successBody(content string) map[string]interface{} {
	return map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"content": content}, "finish_reason": "stop"},
		},
		"usage": map[string]int{
			"prompt_tokens":     1000,
			"completion_tokens": 2000,
			"total_tokens":      3000,
		},
	}
}

func TestCompleteSuccess(t *testing.T) {
	var captured chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(successBody("generated article"))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	resp, err := client.Complete(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "you are a writer"},
			{Role: llm.RoleUser, Content: "write about sinks"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "generated article", resp.Content)
	assert.Equal(t, "gpt-4o", resp.Model)
	assert.Equal(t, "openai", resp.Provider)
	assert.Equal(t, 1000, resp.InputTokens)
	assert.Equal(t, 2000, resp.OutputTokens)
	assert.Equal(t, resp.InputTokens+resp.OutputTokens, resp.TotalTokens)
	// gpt-4o: $2.50/M input, $10.00/M output
	assert.InDelta(t, 0.0225, resp.Cost, 1e-9)

	// Standard models carry max_tokens and temperature
	assert.Equal(t, 4096, captured.MaxTokens)
	assert.Zero(t, captured.MaxCompletionTokens)
	require.NotNil(t, captured.Temperature)
	assert.Equal(t, 0.7, *captured.Temperature)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
}

func TestCompleteDerivesTokenTotal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := successBody("generated article")
		// A provider reporting a total that disagrees with the parts.
		body["usage"] = map[string]int{
			"prompt_tokens":     10,
			"completion_tokens": 20,
			"total_tokens":      999,
		}
		json.NewEncoder(w).Encode(body)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	resp, err := client.Complete(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)

	assert.Equal(t, 10, resp.InputTokens)
	assert.Equal(t, 20, resp.OutputTokens)
	assert.Equal(t, 30, resp.TotalTokens)
}

func TestCompleteReasoningModelParameters(t *testing.T) {
	var captured chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(successBody("ok"))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Complete(context.Background(), llm.CompletionRequest{
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
		Model:     "o1-mini",
		MaxTokens: 500,
	})
	require.NoError(t, err)

	// Reasoning models take max_completion_tokens and never a temperature
	assert.Equal(t, 500, captured.MaxCompletionTokens)
	assert.Zero(t, captured.MaxTokens)
	assert.Nil(t, captured.Temperature)
}

func TestCompleteSystemPromptPrepended(t *testing.T) {
	var captured chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(successBody("ok"))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Complete(context.Background(), llm.CompletionRequest{
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
		SystemPrompt: "be brief",
	})
	require.NoError(t, err)

	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "be brief", captured.Messages[0].Content)
	assert.Equal(t, "user", captured.Messages[1].Role)
}

func TestCompleteRetriesOnRateLimit(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error": map[string]string{"message": "rate limited", "type": "rate_limit_error"},
			})
			return
		}
		json.NewEncoder(w).Encode(successBody("finally"))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	resp, err := client.Complete(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "finally", resp.Content)
	assert.Equal(t, 3, calls)
}

func TestCompleteFailsImmediatelyOnAuthError(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"message": "invalid api key", "type": "invalid_request_error"},
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

func TestCompleteEmptyContentRetriedUntilExhausted(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "   "}, "finish_reason": "length"},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Complete(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	require.Error(t, err)

	var retryErr *llm.RetryError
	require.ErrorAs(t, err, &retryErr)
	assert.Equal(t, 3, retryErr.Attempts)
	assert.Equal(t, 3, calls)
}

func TestCalculateCost(t *testing.T) {
	client := newTestClient(t, "http://unused")

	tests := []struct {
		model  string
		input  int
		output int
		want   float64
	}{
		{"gpt-4o", 1_000_000, 1_000_000, 12.50},
		{"gpt-4o-mini", 1_000_000, 1_000_000, 0.750},
		{"gpt-4o-mini-2024-07-18", 1_000_000, 0, 0.150},
		{"gpt-3.5-turbo", 2_000_000, 0, 1.00},
		{"o1-preview", 0, 1_000_000, 60.00},
		{"totally-unknown-model", 1_000_000, 1_000_000, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.InDelta(t, tt.want, client.CalculateCost(tt.model, tt.input, tt.output), 1e-9)
		})
	}
}
