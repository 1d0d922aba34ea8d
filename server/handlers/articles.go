// Package handlers provides HTTP handlers for the Inkwell server.
// It implements the article production endpoints: generation through the
// provider fallback chain, quality validation, and content repair, plus
// the topic, keyword, and media helpers around them.
//
// The package follows these design principles:
// 1. Consistent error handling using the errors package
// 2. Structured logging with request IDs
// 3. Request validation separated from pipeline execution
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/potensia/inkwell/errors"
	"github.com/potensia/inkwell/server/metrics"
	"github.com/potensia/inkwell/server/middleware"
	"github.com/potensia/inkwell/server/validation"
	"github.com/potensia/inkwell/writer"
)

// ArticleGenerator is the slice of the writer pipeline that produces
// article content for a topic.
type ArticleGenerator interface {
	Generate(ctx context.Context, topic string) (string, error)
}

// ContentValidator scores generated content.
type ContentValidator interface {
	Validate(ctx context.Context, content, model string) *writer.ValidationReport
}

// ContentFixer repairs content based on a validation report.
type ContentFixer interface {
	Fix(ctx context.Context, content string, report *writer.ValidationReport, meta *writer.FixMetadata) *writer.FixResult
}

// GenerateResponse is the body returned by POST /v1/articles/generate.
type GenerateResponse struct {
	Topic       string `json:"topic"`
	Content     string `json:"content"`
	GeneratedAt string `json:"generated_at"`
}

// ArticleHandler serves the three article pipeline endpoints.
type ArticleHandler struct {
	generator ArticleGenerator
	validator ContentValidator
	fixer     ContentFixer
	requests  *validation.Validator
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewArticleHandler wires the article endpoints to the writer pipeline.
func NewArticleHandler(generator ArticleGenerator, validator ContentValidator, fixer ContentFixer,
	requests *validation.Validator, m *metrics.Metrics, logger *zap.Logger) *ArticleHandler {
	return &ArticleHandler{
		generator: generator,
		validator: validator,
		fixer:     fixer,
		requests:  requests,
		metrics:   m,
		logger:    logger,
	}
}

// Generate handles POST /v1/articles/generate.
func (h *ArticleHandler) Generate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.RequestIDFromContext(r.Context())
	logger := h.logger.With(
		zap.String("request_id", requestID),
		zap.String("path", r.URL.Path),
	)

	var req validation.GenerateRequest
	if verr := h.requests.DecodeAndValidate(r, requestID, &req); verr != nil {
		errors.WriteError(w, verr)
		return
	}

	logger.Info("Processing generation request", zap.String("topic", req.Topic))

	content, err := h.generator.Generate(r.Context(), req.Topic)
	if err != nil {
		h.countRun("generate", "failure")
		errors.LogError(logger.With(zap.String("topic", req.Topic)), err, requestID)

		var inkErr *errors.InkwellError
		if errors.As(err, &inkErr) {
			inkErr.RequestID = requestID
			errors.WriteError(w, inkErr)
			return
		}
		errors.WriteError(w, errors.NewInternalError(requestID, err))
		return
	}

	h.countRun("generate", "success")
	writeJSON(w, logger, requestID, GenerateResponse{
		Topic:       req.Topic,
		Content:     content,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	})

	logger.Info("Generation completed", zap.Int("content_length", len(content)))
}

// Validate handles POST /v1/articles/validate.
func (h *ArticleHandler) Validate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.RequestIDFromContext(r.Context())
	logger := h.logger.With(
		zap.String("request_id", requestID),
		zap.String("path", r.URL.Path),
	)

	var req validation.ValidateRequest
	if verr := h.requests.DecodeAndValidate(r, requestID, &req); verr != nil {
		errors.WriteError(w, verr)
		return
	}

	report := h.validator.Validate(r.Context(), req.Content, req.Model)
	h.countRun("validate", "success")
	writeJSON(w, logger, requestID, report)
}

// Fix handles POST /v1/articles/fix.
func (h *ArticleHandler) Fix(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.RequestIDFromContext(r.Context())
	logger := h.logger.With(
		zap.String("request_id", requestID),
		zap.String("path", r.URL.Path),
	)

	var req validation.FixRequest
	if verr := h.requests.DecodeAndValidate(r, requestID, &req); verr != nil {
		errors.WriteError(w, verr)
		return
	}

	result := h.fixer.Fix(r.Context(), req.Content, req.Report, req.Metadata)
	h.countRun("fix", "success")
	writeJSON(w, logger, requestID, result)
}

func (h *ArticleHandler) countRun(stage, outcome string) {
	if h.metrics != nil {
		h.metrics.PipelineRuns.WithLabelValues(stage, outcome).Inc()
	}
}

// writeJSON encodes the payload, degrading to an internal error response
// when encoding fails.
func writeJSON(w http.ResponseWriter, logger *zap.Logger, requestID string, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
		errors.WriteError(w, errors.NewInternalError(
			requestID,
			fmt.Errorf("failed to encode response: %v", err),
		))
	}
}
