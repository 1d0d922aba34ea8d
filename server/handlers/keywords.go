package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/potensia/inkwell/errors"
	"github.com/potensia/inkwell/keyword"
	"github.com/potensia/inkwell/server/middleware"
	"github.com/potensia/inkwell/server/validation"
)

// KeywordAnalyzer produces SEO keyword suggestions for a topic.
type KeywordAnalyzer interface {
	Analyze(ctx context.Context, topic string, maxResults int) []keyword.Keyword
}

// KeywordResponse is the body returned by POST /v1/keywords/analyze.
type KeywordResponse struct {
	Topic    string            `json:"topic"`
	Keywords []keyword.Keyword `json:"keywords"`
	Count    int               `json:"count"`
}

// KeywordHandler serves the keyword analysis endpoint.
type KeywordHandler struct {
	analyzer KeywordAnalyzer
	requests *validation.Validator
	logger   *zap.Logger
}

// NewKeywordHandler wires the analyze endpoint to the analyzer.
func NewKeywordHandler(analyzer KeywordAnalyzer, requests *validation.Validator, logger *zap.Logger) *KeywordHandler {
	return &KeywordHandler{analyzer: analyzer, requests: requests, logger: logger}
}

// Analyze handles POST /v1/keywords/analyze.
func (h *KeywordHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.RequestIDFromContext(r.Context())
	logger := h.logger.With(
		zap.String("request_id", requestID),
		zap.String("path", r.URL.Path),
	)

	var req validation.KeywordRequest
	if verr := h.requests.DecodeAndValidate(r, requestID, &req); verr != nil {
		errors.WriteError(w, verr)
		return
	}

	keywords := h.analyzer.Analyze(r.Context(), req.Topic, req.MaxResults)
	writeJSON(w, logger, requestID, KeywordResponse{
		Topic:    req.Topic,
		Keywords: keywords,
		Count:    len(keywords),
	})
}
