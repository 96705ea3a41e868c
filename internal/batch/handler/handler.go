// Package handler wires batch fan-out and activation endpoints to the
// dispatcher and activator.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"enrolld/internal/batch"
	"enrolld/internal/platform/middleware"
	dErrors "enrolld/pkg/domain-errors"
	"enrolld/pkg/platform/httputil"
)

// DispatchService fans a completed upload out onto the create lane.
type DispatchService interface {
	DispatchUpload(ctx context.Context, uploadID uuid.UUID) (batch.DispatchResult, error)
}

// ActivateService queues ledger registration for an upload's identities.
type ActivateService interface {
	Activate(ctx context.Context, uploadID uuid.UUID, ownerID string) (batch.DispatchResult, error)
}

// Handler wires batch endpoints to the dispatcher and activator.
type Handler struct {
	dispatcher DispatchService
	activator  ActivateService
	logger     *slog.Logger
}

// New constructs a batch handler with its dependencies.
func New(dispatcher DispatchService, activator ActivateService, logger *slog.Logger) *Handler {
	return &Handler{
		dispatcher: dispatcher,
		activator:  activator,
		logger:     logger,
	}
}

// Register mounts batch endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/uploads/{uploadID}/dispatch", h.HandleDispatch)
	r.Post("/uploads/{uploadID}/activate", h.HandleActivate)
}

// DispatchResponse reports a fan-out to the caller. A partial fan-out is
// returned with 206 so degraded submission is never silent.
type DispatchResponse struct {
	UploadID  string `json:"upload_id"`
	Total     int    `json:"total"`
	Published int    `json:"published"`
	Partial   bool   `json:"partial"`
}

// ActivateRequest selects the signing credential for ledger calls. An
// empty owner defaults to the authenticated caller.
type ActivateRequest struct {
	OwnerID string `json:"owner_id"`
}

// HandleDispatch handles POST /uploads/{uploadID}/dispatch requests.
func (h *Handler) HandleDispatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	uploadID, err := uuid.Parse(chi.URLParam(r, "uploadID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "upload id must be a UUID"))
		return
	}

	result, err := h.dispatcher.DispatchUpload(ctx, uploadID)
	if err != nil {
		h.logger.ErrorContext(ctx, "dispatch failed",
			"request_id", requestID,
			"upload_id", uploadID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "upload dispatched",
		"request_id", requestID,
		"upload_id", uploadID,
		"total", result.Total,
		"published", result.Published,
	)
	writeDispatchResult(w, uploadID, result)
}

// HandleActivate handles POST /uploads/{uploadID}/activate requests.
func (h *Handler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	uploadID, err := uuid.Parse(chi.URLParam(r, "uploadID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "upload id must be a UUID"))
		return
	}

	var req ActivateRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
			return
		}
	}
	ownerID := req.OwnerID
	if ownerID == "" {
		ownerID = middleware.GetUserID(ctx)
	}
	if ownerID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "owner_id is required"))
		return
	}

	result, err := h.activator.Activate(ctx, uploadID, ownerID)
	if err != nil {
		h.logger.ErrorContext(ctx, "activation failed",
			"request_id", requestID,
			"upload_id", uploadID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "activation queued",
		"request_id", requestID,
		"upload_id", uploadID,
		"total", result.Total,
		"published", result.Published,
	)
	writeDispatchResult(w, uploadID, result)
}

func writeDispatchResult(w http.ResponseWriter, uploadID uuid.UUID, result batch.DispatchResult) {
	status := http.StatusOK
	if result.Partial() {
		status = http.StatusPartialContent
	}
	httputil.WriteJSON(w, status, DispatchResponse{
		UploadID:  uploadID.String(),
		Total:     result.Total,
		Published: result.Published,
		Partial:   result.Partial(),
	})
}
