package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/resource-showcase/internal/repository"
)

const pingTimeout = 2 * time.Second

// HealthHandler reports whether the store is reachable.
type HealthHandler struct {
	store  repository.Pinger
	driver string
	logger *slog.Logger
}

func NewHealthHandler(store repository.Pinger, driver string, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{store: store, driver: driver, logger: logger}
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string `json:"status"` // ok or degraded
	Store  string `json:"store"`  // ok or unavailable
	Driver string `json:"driver"`
}

// HandleHealth serves GET /healthz. A degraded process still answers pages,
// so it reports 503 rather than failing outright.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	resp := HealthResponse{Status: "ok", Store: "ok", Driver: h.driver}
	status := http.StatusOK
	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("store health check failed", slog.String("error", err.Error()))
		resp.Status, resp.Store = "degraded", "unavailable"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
