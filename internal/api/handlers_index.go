package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/maddiesch/project-orwell/internal/api/respond"
	"github.com/maddiesch/project-orwell/internal/model"
	"github.com/maddiesch/project-orwell/internal/taskqueue"
)

// IndexHandler accepts indexing submissions and enqueues IndexTasks.
type IndexHandler struct {
	queue taskqueue.Queue
	log   zerolog.Logger
}

// NewIndexHandler constructs the handler.
func NewIndexHandler(queue taskqueue.Queue, log zerolog.Logger) *IndexHandler {
	return &IndexHandler{queue: queue, log: log}
}

type indexRequest struct {
	ImageKey   string `json:"image_key"`
	Identifier string `json:"identifier"`
	Context    string `json:"context"`
}

// Create POST /api/index
func (h *IndexHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req indexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteError(w, respond.NewAPIError(http.StatusBadRequest, "Invalid JSON"))
		return
	}
	if req.ImageKey == "" {
		respond.WriteError(w, respond.NewAPIError(http.StatusBadRequest, "Missing `image_key`"))
		return
	}
	if req.Identifier == "" {
		respond.WriteError(w, respond.NewAPIError(http.StatusBadRequest, "Missing `identifier`"))
		return
	}
	if req.Context == "" {
		respond.WriteError(w, respond.NewAPIError(http.StatusBadRequest, "Missing `context`"))
		return
	}

	task := model.IndexTask{
		Identifier: req.Identifier,
		Context:    req.Context,
		ImageKey:   req.ImageKey,
	}
	body, err := json.Marshal(task)
	if err != nil {
		respond.WriteError(w, err)
		return
	}
	if err := h.queue.Enqueue(r.Context(), body); err != nil {
		h.log.Error().Err(err).Msg("enqueue failed")
		respond.WriteError(w, respond.NewAPIError(http.StatusInternalServerError, "Failed to enqueue indexing task"))
		return
	}

	respond.WriteNoContent(w)
}
