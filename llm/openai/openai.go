// Package openai implements the completion contract against the OpenAI
// chat completions API. It handles both standard and reasoning model
// families, which take different token-budget parameters.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/potensia/inkwell/config"
	"github.com/potensia/inkwell/llm"
)

const defaultEndpoint = "https://api.openai.com/v1"

// rate holds per-million-token USD prices.
type rate struct {
	input  float64
	output float64
}

// costs maps model-family substrings to prices, current as of 2025.
// Matching is case-insensitive substring, most specific key first.
var costs = []struct {
	key string
	rate
}{
	{"gpt-4o-mini", rate{0.150, 0.600}},
	{"gpt-4o", rate{2.50, 10.00}},
	{"gpt-4-turbo", rate{10.00, 30.00}},
	{"gpt-4", rate{30.00, 60.00}},
	{"gpt-3.5-turbo", rate{0.50, 1.50}},
	{"o1-preview", rate{15.00, 60.00}},
	{"o1-mini", rate{3.00, 12.00}},
	{"o3-mini", rate{3.00, 12.00}},
}

// Client calls the OpenAI API with automatic retry and token tracking.
// Stateless aside from its configuration; safe for concurrent use.
type Client struct {
	httpClient *http.Client
	apiKey     string
	endpoint   string
	model      string

	maxRetries  int
	backoffMin  time.Duration
	backoffMax  time.Duration
	defaultTemp float64
	defaultMax  int

	logger *zap.Logger
}

var _ llm.Client = (*Client)(nil)

// New constructs an OpenAI adapter from the provider and pipeline
// configuration sections.
func New(cfg config.ProviderConfig, pipe config.PipelineConfig, logger *zap.Logger) *Client {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}

	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		apiKey:      cfg.APIKey,
		endpoint:    strings.TrimSuffix(endpoint, "/"),
		model:       cfg.Model,
		maxRetries:  pipe.MaxRetries,
		backoffMin:  pipe.BackoffMin,
		backoffMax:  pipe.BackoffMax,
		defaultTemp: pipe.DefaultTemperature,
		defaultMax:  pipe.DefaultMaxTokens,
		logger:      logger,
	}
}

// Provider returns "openai".
func (c *Client) Provider() string { return "openai" }

// Model returns the configured default model.
func (c *Client) Model() string { return c.model }

// IsReasoningModel reports whether the model needs reasoning parameters.
func (c *Client) IsReasoningModel(model string) bool {
	return llm.IsReasoningModel(model)
}

// CalculateCost estimates the USD cost of a call. Unknown models cost
// zero and log a warning.
func (c *Client) CalculateCost(model string, inputTokens, outputTokens int) float64 {
	lower := strings.ToLower(model)
	for _, entry := range costs {
		if strings.Contains(lower, entry.key) {
			return float64(inputTokens)/1_000_000*entry.input +
				float64(outputTokens)/1_000_000*entry.output
		}
	}

	c.logger.Warn("unknown model for cost calculation",
		zap.String("provider", "openai"),
		zap.String("model", model))
	return 0.0
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`

	// Standard models take max_tokens and temperature; reasoning models
	// take max_completion_tokens and reject temperature.
	MaxTokens           int      `json:"max_tokens,omitempty"`
	MaxCompletionTokens int      `json:"max_completion_tokens,omitempty"`
	Temperature         *float64 `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// formatMessages flattens the request into the chat wire format. The
// system prompt, when carried separately, is prepended as a system
// message ahead of the conversation.
func formatMessages(req llm.CompletionRequest) []chatMessage {
	messages := make([]chatMessage, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: string(llm.RoleSystem), Content: req.SystemPrompt})
	}
	for _, m := range req.Messages {
		messages = append(messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	return messages
}

// Complete generates a text completion with automatic retry and
// exponential backoff on transient failures.
func (c *Client) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	isReasoning := c.IsReasoningModel(model)

	body := chatRequest{
		Model:    model,
		Messages: formatMessages(req),
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.defaultMax
	}
	if isReasoning {
		body.MaxCompletionTokens = maxTokens
	} else {
		body.MaxTokens = maxTokens
		temp := c.defaultTemp
		if req.Temperature != nil {
			temp = *req.Temperature
		}
		body.Temperature = &temp
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, llm.Fatal("openai", 0, "encode request", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		resp, err := c.call(ctx, model, payload)
		if err == nil {
			llm.LogUsage(c.logger, "llm.openai", resp)
			return resp, nil
		}
		if !llm.IsTransient(err) {
			return nil, err
		}

		lastErr = err
		c.logger.Warn("openai call failed",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", c.maxRetries),
			zap.Error(err))

		if attempt < c.maxRetries {
			wait := llm.Backoff(attempt, c.backoffMin, c.backoffMax)
			if err := llm.Sleep(ctx, wait); err != nil {
				return nil, err
			}
		}
	}

	return nil, &llm.RetryError{Provider: "openai", Attempts: c.maxRetries, LastErr: lastErr}
}

// call performs one HTTP round trip and classifies failures.
func (c *Client) call(ctx context.Context, model string, payload []byte) (*llm.CompletionResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpoint+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, llm.Fatal("openai", 0, "build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, llm.Transient("openai", 0, "connection failure", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, llm.Transient("openai", httpResp.StatusCode, "read response", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, classifyStatus(httpResp.StatusCode, raw)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, llm.Transient("openai", httpResp.StatusCode, "decode response", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, llm.Transient("openai", httpResp.StatusCode, "no choices in response", nil)
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		// An empty completion is not distinguishable from a transient
		// fault for retry purposes.
		return nil, llm.Transient("openai", httpResp.StatusCode,
			fmt.Sprintf("empty completion (finish_reason=%s)", parsed.Choices[0].FinishReason), nil)
	}

	var inputTokens, outputTokens int
	if parsed.Usage != nil {
		inputTokens = parsed.Usage.PromptTokens
		outputTokens = parsed.Usage.CompletionTokens
	}

	return &llm.CompletionResponse{
		Content:      content,
		Model:        model,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		// The total is derived, not trusted, so the invariant
		// total = input + output holds whatever the provider reports.
		TotalTokens: inputTokens + outputTokens,
		Cost:         c.CalculateCost(model, inputTokens, outputTokens),
		Provider:     "openai",
		Raw:          raw,
	}, nil
}

func classifyStatus(status int, raw []byte) error {
	var apiErr apiError
	message := http.StatusText(status)
	if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Error.Message != "" {
		message = apiErr.Error.Message
	}

	switch {
	case status == http.StatusTooManyRequests:
		return llm.Transient("openai", status, message, nil)
	case status >= 500:
		return llm.Transient("openai", status, message, nil)
	default:
		return llm.Fatal("openai", status, message, nil)
	}
}
