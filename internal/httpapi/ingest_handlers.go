package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/mergd/curro-sub001/internal/poll"
)

type IngestHandler struct {
	Ctx    context.Context
	Ingest Ingest
}

// Run starts an ingestion pass and returns without waiting for it.
func (h IngestHandler) Run(w http.ResponseWriter, r *http.Request) {
	ctx := h.Ctx
	if ctx == nil {
		ctx = context.WithoutCancel(r.Context())
	}
	err := h.Ingest.Trigger(ctx)
	if errors.Is(err, poll.ErrAlreadyRunning) {
		WriteError(w, r, http.StatusConflict, "already_running", err.Error())
		return
	}
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	WriteJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}

func (h IngestHandler) Status(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.Ingest.Status())
}
