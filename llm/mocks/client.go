// Package mocks provides a mock completion client for testing.
package mocks

import (
	"context"
	"sync"

	"github.com/potensia/inkwell/llm"
)

// MockClient implements llm.Client with injectable behavior.
type MockClient struct {
	// CompleteFunc handles Complete calls. When nil, a canned response
	// echoing the last user message is returned.
	CompleteFunc func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)

	// ProviderName and ModelName default to "mock" and "mock-model".
	ProviderName string
	ModelName    string

	mu    sync.Mutex
	calls []llm.CompletionRequest
}

var _ llm.Client = (*MockClient)(nil)

func (m *MockClient) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}

	content := "mock response"
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == llm.RoleUser {
			content = "mock: " + req.Messages[i].Content
			break
		}
	}

	return &llm.CompletionResponse{
		Content:      content,
		Model:        m.Model(),
		InputTokens:  10,
		OutputTokens: 20,
		TotalTokens:  30,
		Cost:         0.0001,
		Provider:     m.Provider(),
	}, nil
}

func (m *MockClient) CalculateCost(model string, inputTokens, outputTokens int) float64 {
	return float64(inputTokens+outputTokens) / 1_000_000
}

func (m *MockClient) IsReasoningModel(model string) bool {
	return llm.IsReasoningModel(model)
}

func (m *MockClient) Provider() string {
	if m.ProviderName != "" {
		return m.ProviderName
	}
	return "mock"
}

func (m *MockClient) Model() string {
	if m.ModelName != "" {
		return m.ModelName
	}
	return "mock-model"
}

// Calls returns a copy of the requests seen so far.
func (m *MockClient) Calls() []llm.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]llm.CompletionRequest, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many Complete calls were made.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
