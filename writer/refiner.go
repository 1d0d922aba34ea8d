package writer

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/potensia/inkwell/llm"
)

// Refiner converts a raw keyword into a natural question-style title.
// Refinement failure is never fatal: the original topic is returned
// unmodified on any error.
type Refiner struct {
	client llm.Client
	logger *zap.Logger
}

// NewRefiner constructs a topic refiner over the given completion client.
func NewRefiner(client llm.Client, logger *zap.Logger) *Refiner {
	return &Refiner{client: client, logger: logger}
}

// Refine returns a question-style title for the topic, or the topic itself
// when refinement fails or the model returns it unchanged.
func (r *Refiner) Refine(ctx context.Context, topic string) string {
	original := strings.TrimSpace(topic)

	resp, err := r.client.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: topicPrompt},
			{Role: llm.RoleUser, Content: original},
		},
		MaxTokens: 500,
	})
	if err != nil {
		r.logger.Warn("topic refinement failed, keeping original",
			zap.String("topic", original),
			zap.Error(err))
		return original
	}

	title := strings.TrimSpace(resp.Content)
	title = strings.ReplaceAll(title, `"`, "")
	title = strings.ReplaceAll(title, "'", "")
	title = strings.TrimSpace(title)

	if title == "" || title == original {
		r.logger.Warn("model returned unchanged topic, keeping original",
			zap.String("topic", original))
		return original
	}

	r.logger.Info("topic refined",
		zap.String("topic", original),
		zap.String("title", title))
	return title
}
