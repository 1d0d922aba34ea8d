// Package media generates blog thumbnail images through the OpenAI image
// API. Same retry pattern as the completion adapters, single call, no
// fallback chain; failures are reported in the result instead of raised.
package media

import (
	"context"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/potensia/inkwell/config"
	"github.com/potensia/inkwell/llm"
	"github.com/potensia/inkwell/llm/openai"
)

const (
	defaultSize  = "1024x1024"
	defaultModel = "dall-e-3"
)

// validSizes covers both image model generations.
var validSizes = map[string]bool{
	"1024x1024": true,
	"1792x1024": true,
	"1024x1792": true,
	"256x256":   true,
	"512x512":   true,
}

// ImageClient is the slice of the OpenAI adapter the generator needs.
type ImageClient interface {
	GenerateImage(ctx context.Context, req openai.ImageRequest) (*openai.ImageResult, error)
}

// ThumbnailResult is the outcome of one generation. Error is set instead
// of returning a Go error so callers always get a renderable payload.
type ThumbnailResult struct {
	URL           string `json:"url,omitempty"`
	PromptUsed    string `json:"prompt_used"`
	Size          string `json:"size"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Generator produces thumbnail images with retry and backoff.
type Generator struct {
	client     ImageClient
	maxRetries int
	backoffMin time.Duration
	backoffMax time.Duration
	logger     *zap.Logger
}

// NewGenerator constructs a thumbnail generator.
func NewGenerator(client ImageClient, pipe config.PipelineConfig, logger *zap.Logger) *Generator {
	return &Generator{
		client:     client,
		maxRetries: pipe.MaxRetries,
		backoffMin: pipe.BackoffMin,
		backoffMax: pipe.BackoffMax,
		logger:     logger,
	}
}

// Generate creates one image for the prompt. Invalid sizes fall back to
// the default; provider failures are reported in the result.
func (g *Generator) Generate(ctx context.Context, prompt, size string) *ThumbnailResult {
	if !validSizes[size] {
		if size != "" {
			g.logger.Warn("invalid thumbnail size, using default",
				zap.String("size", size))
		}
		size = defaultSize
	}

	g.logger.Info("generating thumbnail",
		zap.String("prompt", truncate(prompt, 100)),
		zap.String("size", size))

	var lastErr error
	for attempt := 1; attempt <= g.maxRetries; attempt++ {
		result, err := g.client.GenerateImage(ctx, openai.ImageRequest{
			Model:   defaultModel,
			Prompt:  prompt,
			Size:    size,
			Quality: "standard",
			N:       1,
		})
		if err == nil {
			g.logger.Info("thumbnail generated",
				zap.String("url", truncate(result.URL, 80)))
			return &ThumbnailResult{
				URL:           result.URL,
				PromptUsed:    prompt,
				Size:          size,
				RevisedPrompt: result.RevisedPrompt,
			}
		}
		if !llm.IsTransient(err) {
			lastErr = err
			break
		}

		lastErr = err
		g.logger.Warn("thumbnail generation failed",
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt < g.maxRetries {
			wait := llm.Backoff(attempt, g.backoffMin, g.backoffMax)
			if err := llm.Sleep(ctx, wait); err != nil {
				lastErr = err
				break
			}
		}
	}

	g.logger.Error("thumbnail generation exhausted", zap.Error(lastErr))
	return &ThumbnailResult{
		PromptUsed: prompt,
		Size:       size,
		Error:      "failed to generate thumbnail: " + lastErr.Error(),
	}
}

// truncate cuts s to at most n bytes without splitting a rune, so
// multi-byte prompts stay valid UTF-8 in log output.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
