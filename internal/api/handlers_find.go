package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/maddiesch/project-orwell/internal/api/respond"
	"github.com/maddiesch/project-orwell/internal/match"
)

// FindHandler serves probe matching requests.
type FindHandler struct {
	svc *match.Service
	log zerolog.Logger
}

// NewFindHandler constructs the handler.
func NewFindHandler(svc *match.Service, log zerolog.Logger) *FindHandler {
	return &FindHandler{svc: svc, log: log}
}

// Find POST /api/find
func (h *FindHandler) Find(w http.ResponseWriter, r *http.Request) {
	var req match.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteError(w, respond.NewAPIError(http.StatusBadRequest, "Invalid JSON"))
		return
	}

	result, err := h.svc.Find(r.Context(), req)
	if err != nil {
		h.log.Error().Err(err).Str("context", req.Context).Msg("find failed")
		respond.WriteError(w, err)
		return
	}

	respond.WriteJSON(w, http.StatusOK, result)
}
