package api

import (
	"net/http"

	"github.com/maddiesch/project-orwell/internal/api/respond"
	"github.com/maddiesch/project-orwell/internal/health"
)

// HealthHandler reports service and dependency health.
type HealthHandler struct {
	deps map[string]health.Pinger
}

// NewHealthHandler constructs the handler over named dependency pingers.
func NewHealthHandler(deps map[string]health.Pinger) *HealthHandler {
	return &HealthHandler{deps: deps}
}

// Check GET /api/health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	checks, healthy := health.Check(r.Context(), h.deps)
	status := http.StatusOK
	state := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "unhealthy"
	}
	respond.WriteJSON(w, status, map[string]interface{}{
		"status": state,
		"checks": checks,
	})
}
