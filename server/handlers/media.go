package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/potensia/inkwell/errors"
	"github.com/potensia/inkwell/media"
	"github.com/potensia/inkwell/server/middleware"
	"github.com/potensia/inkwell/server/validation"
)

// ThumbnailGenerator produces a thumbnail image for a prompt. Failures
// are reported inside the result, never as a Go error.
type ThumbnailGenerator interface {
	Generate(ctx context.Context, prompt, size string) *media.ThumbnailResult
}

// MediaHandler serves the thumbnail generation endpoint.
type MediaHandler struct {
	thumbnails ThumbnailGenerator
	requests   *validation.Validator
	logger     *zap.Logger
}

// NewMediaHandler wires the thumbnail endpoint to the generator.
func NewMediaHandler(thumbnails ThumbnailGenerator, requests *validation.Validator, logger *zap.Logger) *MediaHandler {
	return &MediaHandler{thumbnails: thumbnails, requests: requests, logger: logger}
}

// Thumbnail handles POST /v1/media/thumbnail.
func (h *MediaHandler) Thumbnail(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.RequestIDFromContext(r.Context())
	logger := h.logger.With(
		zap.String("request_id", requestID),
		zap.String("path", r.URL.Path),
	)

	var req validation.ThumbnailRequest
	if verr := h.requests.DecodeAndValidate(r, requestID, &req); verr != nil {
		errors.WriteError(w, verr)
		return
	}

	result := h.thumbnails.Generate(r.Context(), req.Prompt, req.Size)
	writeJSON(w, logger, requestID, result)
}
