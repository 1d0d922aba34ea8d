package writer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/potensia/inkwell/config"
	"github.com/potensia/inkwell/errors"
	"github.com/potensia/inkwell/llm"
)

// Generator produces long-form article content by sequencing a topic
// refinement step and a provider fallback chain: the primary provider is
// tried MaxRetries times, then the fallback provider once. Only when
// every entry fails does generation surface an error.
type Generator struct {
	refiner  *Refiner
	primary  llm.Client
	fallback llm.Client
	cfg      config.PipelineConfig
	logger   *zap.Logger

	// One breaker per provider so a flapping primary stops consuming
	// its chain slots while the fallback stays reachable.
	breakers map[string]*gobreaker.CircuitBreaker

	// Identical topics submitted concurrently share one generation run.
	group singleflight.Group
}

// NewGenerator constructs the generation orchestrator.
func NewGenerator(primary, fallback llm.Client, cfg config.PipelineConfig, logger *zap.Logger) *Generator {
	g := &Generator{
		refiner:  NewRefiner(primary, logger),
		primary:  primary,
		fallback: fallback,
		cfg:      cfg,
		logger:   logger,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}

	for _, client := range []llm.Client{primary, fallback} {
		name := client.Provider()
		g.breakers[name] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("provider circuit state change",
					zap.String("provider", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		})
	}

	return g
}

// Refine exposes the topic refinement step on its own. It never fails;
// the original topic is returned when refinement cannot improve it.
func (g *Generator) Refine(ctx context.Context, topic string) string {
	return g.refiner.Refine(ctx, topic)
}

// Generate runs the full pipeline for a topic and returns the article
// content. Concurrent calls for the same topic are coalesced into one
// provider run. The shared run is detached from the initiating caller's
// context so one caller cancelling does not fail the others; a cancelled
// caller returns early while the run continues for the rest.
func (g *Generator) Generate(ctx context.Context, topic string) (string, error) {
	ch := g.group.DoChan(topic, func() (interface{}, error) {
		return g.generate(context.WithoutCancel(ctx), topic)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Shared {
			g.logger.Debug("generation shared with concurrent request",
				zap.String("topic", topic))
		}
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (g *Generator) generate(ctx context.Context, topic string) (string, error) {
	refined := g.refiner.Refine(ctx, topic)
	userPrompt := fmt.Sprintf(generatorUserPromptFormat, refined)

	sequence := make([]llm.Client, 0, g.cfg.MaxRetries+1)
	for i := 0; i < g.cfg.MaxRetries; i++ {
		sequence = append(sequence, g.primary)
	}
	sequence = append(sequence, g.fallback)

	var lastErr error
	for attempt, client := range sequence {
		attempt++ // 1-based

		g.logger.Info("generation attempt",
			zap.Int("attempt", attempt),
			zap.Int("sequence_len", len(sequence)),
			zap.String("provider", client.Provider()),
			zap.String("topic", refined))

		content, err := g.tryClient(ctx, client, userPrompt)
		if err == nil {
			g.logger.Info("generation succeeded",
				zap.Int("attempt", attempt),
				zap.String("provider", client.Provider()),
				zap.String("topic", refined))
			return content, nil
		}
		lastErr = err

		g.logger.Warn("generation attempt failed",
			zap.Int("attempt", attempt),
			zap.String("provider", client.Provider()),
			zap.String("topic", refined),
			zap.Error(err))

		// No sleep after the final sequence entry.
		if attempt < len(sequence) {
			wait := llm.Backoff(attempt, g.cfg.BackoffMin, g.cfg.BackoffMax)
			if err := llm.Sleep(ctx, wait); err != nil {
				return "", err
			}
		}
	}

	g.logger.Error("all generation attempts failed",
		zap.String("topic", refined),
		zap.Error(lastErr))
	return "", errors.NewPipelineError("", refined, lastErr)
}

// tryClient runs one fallback-chain entry through the provider's circuit
// breaker. Any failure, including an open breaker or an empty completion,
// is a soft failure advancing the chain.
func (g *Generator) tryClient(ctx context.Context, client llm.Client, userPrompt string) (string, error) {
	breaker := g.breakers[client.Provider()]

	v, err := breaker.Execute(func() (interface{}, error) {
		return client.Complete(ctx, llm.CompletionRequest{
			Messages: []llm.Message{
				{Role: llm.RoleSystem, Content: generatorSystemPrompt},
				{Role: llm.RoleUser, Content: userPrompt},
			},
		})
	})
	if err != nil {
		return "", err
	}

	content := strings.TrimSpace(v.(*llm.CompletionResponse).Content)
	if content == "" {
		return "", fmt.Errorf("%s returned empty content", client.Provider())
	}
	return content, nil
}
