package writer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/potensia/inkwell/llm"
	"github.com/potensia/inkwell/llm/mocks"
)

func newTestValidator(client llm.Client) *Validator {
	v := NewValidator(client, "gpt-4o", zap.NewNop())
	v.retryDelay = time.Millisecond
	return v
}

func respondWith(content string) *mocks.MockClient {
	return &mocks.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return &llm.CompletionResponse{Content: content}, nil
		},
	}
}

func TestValidateParsesFencedReport(t *testing.T) {
	client := respondWith("Here is my assessment:\n```json\n" + `{
  "grammar_score": 8,
  "human_score": 7,
  "seo_score": 9,
  "has_faq": true,
  "suggestions": [
    {"type": "ai_tone", "message": "AI 특유의 반복적인 표현을 줄이세요."}
  ]
}` + "\n```")

	report := newTestValidator(client).Validate(context.Background(), "# 글", "")

	assert.Equal(t, 8, report.GrammarScore)
	assert.Equal(t, 7, report.HumanScore)
	assert.Equal(t, 9, report.SEOScore)
	assert.True(t, report.HasFAQ)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, "ai_tone", report.Issues[0].Type)
	assert.NotEmpty(t, report.RawOutput)
}

// Structured and legacy views must always describe the same scores.
func TestValidateViewsStayConsistent(t *testing.T) {
	client := respondWith(`{"grammar_score": 6, "human_score": 5, "seo_score": 4, "has_faq": false, "suggestions": [{"type": "faq_missing", "message": "FAQ를 추가하세요."}]}`)

	report := newTestValidator(client).Validate(context.Background(), "# 글", "")

	assert.Equal(t, report.GrammarScore, report.Scores["grammar"])
	assert.Equal(t, report.HumanScore, report.Scores["human"])
	assert.Equal(t, report.SEOScore, report.Scores["seo"])
	require.Len(t, report.Suggestions, len(report.Issues))
	assert.Equal(t, report.Issues[0].Message, report.Suggestions[0])
}

func TestValidateAcceptsLegacyStringSuggestions(t *testing.T) {
	client := respondWith(`{"grammar_score": 7, "human_score": 7, "seo_score": 7, "has_faq": true, "suggestions": ["서론을 보강하세요."]}`)

	report := newTestValidator(client).Validate(context.Background(), "# 글", "")

	require.Len(t, report.Issues, 1)
	assert.Equal(t, "suggestion", report.Issues[0].Type)
	assert.Equal(t, "서론을 보강하세요.", report.Issues[0].Message)
}

func TestValidateNoJSONDegrades(t *testing.T) {
	client := respondWith("I could not evaluate this content, sorry.")

	report := newTestValidator(client).Validate(context.Background(), "# 글", "")

	assert.Equal(t, map[string]int{"grammar": 0, "human": 0, "seo": 0}, report.Scores)
	assert.False(t, report.HasFAQ)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, "parse_error", report.Issues[0].Type)
}

func TestValidateMissingKeysDegrades(t *testing.T) {
	client := respondWith(`{"grammar_score": 8, "human_score": 7}`)

	report := newTestValidator(client).Validate(context.Background(), "# 글", "")

	assert.Zero(t, report.GrammarScore)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, "parse_error", report.Issues[0].Type)
}

func TestValidateProviderFailureDegrades(t *testing.T) {
	calls := 0
	client := &mocks.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			calls++
			return nil, &llm.RetryError{Provider: "openai", Attempts: 3}
		},
	}

	report := newTestValidator(client).Validate(context.Background(), "# 글", "")

	assert.Equal(t, emptyRetries, calls)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, "validation_error", report.Issues[0].Type)
	assert.Zero(t, report.GrammarScore)
}

func TestValidateRetriesThenSucceeds(t *testing.T) {
	calls := 0
	client := &mocks.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			calls++
			if calls == 1 {
				return nil, llm.Transient("openai", 500, "server error", nil)
			}
			return &llm.CompletionResponse{Content: `{"grammar_score": 9, "human_score": 9, "seo_score": 9, "has_faq": true, "suggestions": []}`}, nil
		},
	}

	report := newTestValidator(client).Validate(context.Background(), "# 글", "")

	assert.Equal(t, 2, calls)
	assert.Equal(t, 9, report.GrammarScore)
	assert.Empty(t, report.Issues)
}

func TestValidateModelOverride(t *testing.T) {
	var seen string
	client := &mocks.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			seen = req.Model
			return &llm.CompletionResponse{Content: `{"grammar_score": 9, "human_score": 9, "seo_score": 9, "has_faq": true, "suggestions": []}`}, nil
		},
	}

	v := newTestValidator(client)
	v.Validate(context.Background(), "# 글", "gpt-4o-mini")
	assert.Equal(t, "gpt-4o-mini", seen)

	v.Validate(context.Background(), "# 글", "")
	assert.Equal(t, "gpt-4o", seen)
}
