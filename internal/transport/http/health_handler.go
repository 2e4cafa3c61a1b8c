package http

import (
	"net/http"
	"time"

	"github.com/go-chi/render"

	"ptbxl/internal/websocket"
	"ptbxl/pkg/contracts"
)

// HealthHandler serves liveness and version information
type HealthHandler struct {
	hub     *websocket.Hub
	started time.Time
}

// NewHealthHandler creates a health handler; hub may be nil
func NewHealthHandler(hub *websocket.Hub) *HealthHandler {
	return &HealthHandler{hub: hub, started: time.Now()}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":    "ok",
		"version":   contracts.Version,
		"uptime":    time.Since(h.started).Round(time.Second).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if h.hub != nil {
		resp["websocket"] = h.hub.Stats()
	}
	render.JSON(w, r, resp)
}

// Version handles GET /version
func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, contracts.GetVersionInfo())
}
