package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/resource-showcase/internal/apperror"
	"github.com/sakif/resource-showcase/internal/media"
	"github.com/sakif/resource-showcase/internal/model"
)

// MediaHandler fronts the CDN. It never handles media bytes.
type MediaHandler struct {
	provider media.Provider
	logger   *slog.Logger
}

func NewMediaHandler(provider media.Provider, logger *slog.Logger) *MediaHandler {
	return &MediaHandler{provider: provider, logger: logger}
}

// DeleteMediaRequest is the body of POST /media/delete.
type DeleteMediaRequest struct {
	PublicID     string `json:"publicId"`
	ResourceType string `json:"resourceType"` // image (default) or video
}

// HandleDelete serves POST /media/delete.
//
// 200 only when the CDN confirms the deletion. A CDN that answers but does
// not confirm is a 400 media_error; a CDN that cannot be reached is a 500.
func (h *MediaHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	var req DeleteMediaRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err, "Failed to delete media")
		return
	}

	publicID := strings.TrimSpace(req.PublicID)
	if publicID == "" {
		writeError(w, r, h.logger, apperror.ValidationFailed("publicId", "Public ID is required"), "Failed to delete media")
		return
	}
	kind := model.MediaType(strings.TrimSpace(req.ResourceType))
	if kind == "" {
		kind = model.MediaImage
	}
	if !kind.Valid() {
		writeError(w, r, h.logger,
			apperror.ValidationFailed("resourceType", `resourceType must be either "image" or "video"`),
			"Failed to delete media")
		return
	}

	deleted, err := h.provider.Delete(r.Context(), publicID, kind)
	if err != nil {
		writeError(w, r, h.logger, err, "Failed to delete media")
		return
	}
	if !deleted {
		h.logger.Warn("CDN did not confirm media deletion",
			slog.String("provider", h.provider.Name()),
			slog.String("publicId", publicID),
		)
		writeError(w, r, h.logger, apperror.MediaRejected("Failed to delete media from CDN"), "Failed to delete media")
		return
	}

	h.logger.Info("media deleted",
		slog.String("provider", h.provider.Name()),
		slog.String("publicId", publicID),
	)
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Media deleted successfully"})
}

// HandleUploadParams serves GET /media/upload-params?filename=...&contentType=...
func (h *MediaHandler) HandleUploadParams(w http.ResponseWriter, r *http.Request) {
	filename := strings.TrimSpace(r.URL.Query().Get("filename"))
	contentType := strings.TrimSpace(r.URL.Query().Get("contentType"))
	if filename == "" {
		writeError(w, r, h.logger, apperror.ValidationFailed("filename", "filename is required"), "Failed to prepare upload")
		return
	}

	params, err := h.provider.UploadParams(r.Context(), filename, contentType)
	if err != nil {
		writeError(w, r, h.logger, err, "Failed to prepare upload")
		return
	}
	writeJSON(w, http.StatusOK, params)
}
