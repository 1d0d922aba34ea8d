package validation

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/potensia/inkwell/writer"
)

// Tokenizer defines the interface for token counting
type Tokenizer interface {
	Encode(text string, allowedSpecial, disallowedSpecial []string) []int
	Decode(tokens []int) string
	CountTokens(text string) int
}

// tiktokenWrapper wraps tiktoken to implement our Tokenizer interface
type tiktokenWrapper struct {
	*tiktoken.Tiktoken
}

func (t *tiktokenWrapper) CountTokens(text string) int {
	tokens := t.Encode(text, nil, nil)
	return len(tokens)
}

// GenerateRequest is the body for POST /v1/articles/generate.
type GenerateRequest struct {
	Topic string `json:"topic" validate:"required,min=2,max=200"`
}

// ValidateRequest is the body for POST /v1/articles/validate.
type ValidateRequest struct {
	Content string `json:"content" validate:"required,min=1"`
	Model   string `json:"model,omitempty" validate:"omitempty,min=1"`
}

// TokenText returns the text counted against the context budget.
func (r ValidateRequest) TokenText() string { return r.Content }

// FixRequest is the body for POST /v1/articles/fix. The report is the
// output of a previous validate call.
type FixRequest struct {
	Content  string                   `json:"content" validate:"required,min=1"`
	Report   *writer.ValidationReport `json:"report" validate:"required"`
	Metadata *writer.FixMetadata      `json:"metadata,omitempty" validate:"omitempty"`
}

// TokenText returns the text counted against the context budget.
func (r FixRequest) TokenText() string { return r.Content }

// RefineRequest is the body for POST /v1/topics/refine.
type RefineRequest struct {
	Topic string `json:"topic" validate:"required,min=2,max=200"`
}

// KeywordRequest is the body for POST /v1/keywords/analyze.
type KeywordRequest struct {
	Topic      string `json:"topic" validate:"required,min=2,max=200"`
	MaxResults int    `json:"max_results,omitempty" validate:"omitempty,gte=1,lte=50"`
}

// ThumbnailRequest is the body for POST /v1/media/thumbnail.
type ThumbnailRequest struct {
	Prompt string `json:"prompt" validate:"required,min=2,max=2000"`
	Size   string `json:"size,omitempty" validate:"omitempty"`
}

// TokenCounter handles token counting for request content using tiktoken
type TokenCounter struct {
	encoding Tokenizer
}

// NewTokenCounter creates a new token counter for the specified model
func NewTokenCounter(model string) (*TokenCounter, error) {
	encoding, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, fmt.Errorf("failed to get encoding for model %s: %v", model, err)
	}
	return &TokenCounter{encoding: &tiktokenWrapper{encoding}}, nil
}

// CountTokens counts the number of tokens in the text
func (tc *TokenCounter) CountTokens(text string) int {
	return tc.encoding.CountTokens(text)
}

// ValidateTokens checks if the text's token count is within limits
func (tc *TokenCounter) ValidateTokens(text string, maxContextTokens int) error {
	if maxContextTokens <= 0 {
		return fmt.Errorf("invalid max_context_tokens: must be greater than 0")
	}

	totalTokens := tc.CountTokens(text)
	if totalTokens > maxContextTokens {
		return fmt.Errorf("total tokens (%d) exceeds max context length (%d)", totalTokens, maxContextTokens)
	}

	return nil
}
