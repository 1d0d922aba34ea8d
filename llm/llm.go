// Package llm defines the unified completion contract shared by every
// provider adapter: the message/request/response data model, the Client
// capability interface, reasoning-model detection, and the backoff policy
// used by retry loops throughout the service.
package llm

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single conversation turn. Immutable once constructed.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the unified request format for text completion
// across all providers. Switching providers never requires changing the
// calling code, only which Client it holds.
type CompletionRequest struct {
	Messages []Message

	// Model overrides the adapter's configured default when non-empty.
	Model string

	// MaxTokens bounds the completion; 0 means the adapter default.
	MaxTokens int

	// Temperature is the sampling temperature; nil means the adapter
	// default. Never sent to reasoning models.
	Temperature *float64

	// SystemPrompt is an alternative carrier for the system instruction.
	// An explicit system-role Message wins when the provider supports
	// only one system channel.
	SystemPrompt string
}

// CompletionResponse is the unified response format. Produced exactly once
// per successful adapter call and never mutated afterwards.
type CompletionResponse struct {
	Content      string
	Model        string
	InputTokens  int
	OutputTokens int
	TotalTokens  int

	// Cost is a best-effort USD estimate from the adapter's rate table,
	// not billing-accurate.
	Cost float64

	Provider string

	// Raw carries the provider's response body for debugging.
	Raw json.RawMessage
}

// Client is the capability set every provider adapter implements.
// Adapters are stateless aside from their static cost tables and are safe
// to share across concurrent requests.
type Client interface {
	// Complete turns a request into exactly one successful response, or
	// fails after the adapter's retry budget is exhausted.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// CalculateCost estimates the USD cost of a call from the adapter's
	// static per-million-token rate table.
	CalculateCost(model string, inputTokens, outputTokens int) float64

	// IsReasoningModel reports whether the model takes a distinct
	// token-budget parameter and rejects temperature tuning.
	IsReasoningModel(model string) bool

	// Provider returns the adapter's provider identifier.
	Provider() string

	// Model returns the adapter's configured default model.
	Model() string
}

// reasoningFamilies are the model-family markers that select reasoning
// parameters (max_completion_tokens, no temperature).
var reasoningFamilies = []string{"o1-", "o3-", "gpt-5"}

// IsReasoningModel reports whether the model identifier belongs to a
// reasoning family. Pure function of the identifier, case-insensitive.
func IsReasoningModel(model string) bool {
	lower := strings.ToLower(model)
	for _, family := range reasoningFamilies {
		if strings.Contains(lower, family) {
			return true
		}
	}
	return false
}

// Backoff returns the wait before retrying a failed attempt:
// min(base * 2^(attempt-1), max). Attempt is 1-based.
func Backoff(attempt int, base, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	wait := base
	for i := 1; i < attempt; i++ {
		wait *= 2
		if wait >= max {
			return max
		}
	}
	if wait > max {
		return max
	}
	return wait
}

// Sleep waits for the given duration without blocking other goroutines,
// returning early with the context's error if it is cancelled.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// LogUsage emits the structured usage event required on every successful
// completion, for downstream cost observability.
func LogUsage(logger *zap.Logger, component string, resp *CompletionResponse) {
	logger.Info("completion usage",
		zap.String("component", component),
		zap.String("provider", resp.Provider),
		zap.String("model", resp.Model),
		zap.Int("input_tokens", resp.InputTokens),
		zap.Int("output_tokens", resp.OutputTokens),
		zap.Int("total_tokens", resp.TotalTokens),
		zap.Float64("cost", resp.Cost),
	)
}
