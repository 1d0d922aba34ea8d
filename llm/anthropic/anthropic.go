// Package anthropic implements the completion contract against the
// Anthropic messages API. Unlike the chat completions format, the system
// instruction travels in a dedicated top-level field.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/potensia/inkwell/config"
	"github.com/potensia/inkwell/llm"
)

const (
	defaultEndpoint = "https://api.anthropic.com/v1"
	apiVersion      = "2023-06-01"
)

type rate struct {
	input  float64
	output float64
}

// costs maps model-family substrings to per-million-token USD prices,
// current as of 2025. Unknown models fall back to the 3.5 Sonnet tier.
var costs = []struct {
	key string
	rate
}{
	{"claude-3-5-sonnet", rate{3.00, 15.00}},
	{"claude-3-opus", rate{15.00, 75.00}},
	{"claude-3-sonnet", rate{3.00, 15.00}},
	{"claude-3-haiku", rate{0.25, 1.25}},
}

var defaultRate = rate{3.00, 15.00}

// Client calls the Anthropic API with automatic retry and token tracking.
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

// New constructs an Anthropic adapter from the provider and pipeline
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

// Provider returns "anthropic".
func (c *Client) Provider() string { return "anthropic" }

// Model returns the configured default model.
func (c *Client) Model() string { return c.model }

// IsReasoningModel always reports false; Claude models have no separate
// reasoning mode.
func (c *Client) IsReasoningModel(model string) bool { return false }

// CalculateCost estimates the USD cost of a call. Unknown models use the
// Claude 3.5 Sonnet tier and log a warning.
func (c *Client) CalculateCost(model string, inputTokens, outputTokens int) float64 {
	lower := strings.ToLower(model)
	matched := defaultRate
	found := false
	for _, entry := range costs {
		if strings.Contains(lower, entry.key) {
			matched = entry.rate
			found = true
			break
		}
	}
	if !found {
		c.logger.Warn("unknown model for cost calculation, using Claude 3.5 Sonnet pricing",
			zap.String("provider", "anthropic"),
			zap.String("model", model))
	}

	return float64(inputTokens)/1_000_000*matched.input +
		float64(outputTokens)/1_000_000*matched.output
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	System      string        `json:"system,omitempty"`
	Temperature float64       `json:"temperature"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage *struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete generates a text completion with automatic retry and
// exponential backoff on transient failures.
func (c *Client) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	// The system instruction is carried out of band. A system-role
	// message wins over the SystemPrompt carrier.
	system := req.SystemPrompt
	messages := make([]wireMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role == llm.RoleSystem {
			system = m.Content
			continue
		}
		messages = append(messages, wireMessage{Role: string(m.Role), Content: m.Content})
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.defaultMax
	}
	temp := c.defaultTemp
	if req.Temperature != nil {
		temp = *req.Temperature
	}

	body := messagesRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		System:      system,
		Temperature: temp,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, llm.Fatal("anthropic", 0, "encode request", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		resp, err := c.call(ctx, model, payload)
		if err == nil {
			llm.LogUsage(c.logger, "llm.anthropic", resp)
			return resp, nil
		}
		if !llm.IsTransient(err) {
			return nil, err
		}

		lastErr = err
		c.logger.Warn("anthropic call failed",
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

	return nil, &llm.RetryError{Provider: "anthropic", Attempts: c.maxRetries, LastErr: lastErr}
}

func (c *Client) call(ctx context.Context, model string, payload []byte) (*llm.CompletionResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpoint+"/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, llm.Fatal("anthropic", 0, "build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, llm.Transient("anthropic", 0, "connection failure", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, llm.Transient("anthropic", httpResp.StatusCode, "read response", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, classifyStatus(httpResp.StatusCode, raw)
	}

	var parsed messagesResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, llm.Transient("anthropic", httpResp.StatusCode, "decode response", err)
	}

	var sb strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	content := strings.TrimSpace(sb.String())
	if content == "" {
		return nil, llm.Transient("anthropic", httpResp.StatusCode, "empty completion", nil)
	}

	var inputTokens, outputTokens int
	if parsed.Usage != nil {
		inputTokens = parsed.Usage.InputTokens
		outputTokens = parsed.Usage.OutputTokens
	}

	return &llm.CompletionResponse{
		Content:      content,
		Model:        model,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		TotalTokens:  inputTokens + outputTokens,
		Cost:         c.CalculateCost(model, inputTokens, outputTokens),
		Provider:     "anthropic",
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
		return llm.Transient("anthropic", status, message, nil)
	case status == 529: // overloaded_error
		return llm.Transient("anthropic", status, message, nil)
	case status >= 500:
		return llm.Transient("anthropic", status, message, nil)
	default:
		return llm.Fatal("anthropic", status, message, nil)
	}
}
