// Package handler exposes progress counters to polling callers.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"enrolld/internal/progress"
	dErrors "enrolld/pkg/domain-errors"
	"enrolld/pkg/platform/httputil"
)

// Handler wires progress endpoints to the tracker.
type Handler struct {
	tracker progress.Tracker
}

// New constructs a progress handler.
func New(tracker progress.Tracker) *Handler {
	return &Handler{tracker: tracker}
}

// Register mounts progress endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/progress/{scope}/{uploadID}", h.HandleGet)
}

// HandleGet handles GET /progress/{scope}/{uploadID} requests. Scope is
// one of chunks, rows or ledger; the upload record id is the handle for
// all three.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	uploadID, err := uuid.Parse(chi.URLParam(r, "uploadID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "upload id must be a UUID"))
		return
	}

	var key string
	switch scope := chi.URLParam(r, "scope"); scope {
	case "chunks":
		key = progress.ChunkKey(uploadID.String())
	case "rows":
		key = progress.RowKey(uploadID.String())
	case "ledger":
		key = progress.LedgerKey(uploadID.String())
	default:
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "scope must be chunks, rows or ledger"))
		return
	}

	snapshot, err := h.tracker.Get(r.Context(), key)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(dErrors.CodeUnavailable, "read progress", err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snapshot)
}
