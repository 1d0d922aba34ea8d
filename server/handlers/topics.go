package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/potensia/inkwell/errors"
	"github.com/potensia/inkwell/server/middleware"
	"github.com/potensia/inkwell/server/validation"
)

// TopicRefiner turns a raw topic into a searchable question title. It
// never fails; the original topic comes back when refinement cannot help.
type TopicRefiner interface {
	Refine(ctx context.Context, topic string) string
}

// RefineResponse is the body returned by POST /v1/topics/refine.
type RefineResponse struct {
	Original string `json:"original"`
	Refined  string `json:"refined"`
}

// TopicHandler serves the topic refinement endpoint.
type TopicHandler struct {
	refiner  TopicRefiner
	requests *validation.Validator
	logger   *zap.Logger
}

// NewTopicHandler wires the refine endpoint to the refiner.
func NewTopicHandler(refiner TopicRefiner, requests *validation.Validator, logger *zap.Logger) *TopicHandler {
	return &TopicHandler{refiner: refiner, requests: requests, logger: logger}
}

// Refine handles POST /v1/topics/refine.
func (h *TopicHandler) Refine(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.RequestIDFromContext(r.Context())
	logger := h.logger.With(
		zap.String("request_id", requestID),
		zap.String("path", r.URL.Path),
	)

	var req validation.RefineRequest
	if verr := h.requests.DecodeAndValidate(r, requestID, &req); verr != nil {
		errors.WriteError(w, verr)
		return
	}

	refined := h.refiner.Refine(r.Context(), req.Topic)
	logger.Info("Topic refined",
		zap.String("original", req.Topic),
		zap.String("refined", refined))

	writeJSON(w, logger, requestID, RefineResponse{
		Original: req.Topic,
		Refined:  refined,
	})
}
