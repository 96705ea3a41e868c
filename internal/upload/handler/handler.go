// Package handler wires upload endpoints to the upload service.
package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"enrolld/internal/platform/middleware"
	"enrolld/internal/upload"
	dErrors "enrolld/pkg/domain-errors"
	"enrolld/pkg/platform/httputil"
	"enrolld/pkg/platform/sentinel"
)

// Chunks larger than this are rejected before staging.
const maxChunkBytes = 32 << 20

// Service defines the interface for chunk ingestion.
type Service interface {
	ReceiveChunk(ctx context.Context, fileName string, chunkIndex, totalChunks int, data []byte) (upload.ChunkResult, error)
}

// RecordGetter reads upload records for status queries.
type RecordGetter interface {
	Get(ctx context.Context, id uuid.UUID) (*upload.Record, error)
}

// Handler wires upload endpoints to the upload service.
type Handler struct {
	service Service
	records RecordGetter
	logger  *slog.Logger
}

// New constructs an upload handler with its dependencies.
func New(service Service, records RecordGetter, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		records: records,
		logger:  logger,
	}
}

// Register mounts upload endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/uploads/chunk", h.HandleChunk)
	r.Get("/uploads/{uploadID}", h.HandleGet)
}

// ChunkResponse is the JSON view of a received chunk.
type ChunkResponse struct {
	UploadID          string `json:"upload_id"`
	FileName          string `json:"file_name"`
	ChunkIndex        int    `json:"chunk_index"`
	TotalChunks       int    `json:"total_chunks"`
	Complete          bool   `json:"complete"`
	AssembledFileName string `json:"assembled_file_name,omitempty"`
}

// RecordResponse is the JSON view of an upload record.
type RecordResponse struct {
	ID                string    `json:"id"`
	OriginalFileName  string    `json:"original_file_name"`
	AssembledFileName string    `json:"assembled_file_name,omitempty"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// HandleChunk handles POST /uploads/chunk multipart requests. Fields:
// fileName, chunkIndex, totalChunks plus a "chunk" file part.
func (h *Handler) HandleChunk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	if err := r.ParseMultipartForm(maxChunkBytes); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "request is not valid multipart form data"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	fileName := r.FormValue("fileName")
	chunkIndex, err := strconv.Atoi(r.FormValue("chunkIndex"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "chunkIndex must be an integer"))
		return
	}
	totalChunks, err := strconv.Atoi(r.FormValue("totalChunks"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "totalChunks must be an integer"))
		return
	}

	part, _, err := r.FormFile("chunk")
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "chunk file part is required"))
		return
	}
	defer part.Close()

	data, err := io.ReadAll(io.LimitReader(part, maxChunkBytes+1))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(dErrors.CodeInternal, "read chunk payload", err))
		return
	}
	if len(data) > maxChunkBytes {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "chunk exceeds maximum size"))
		return
	}

	result, err := h.service.ReceiveChunk(ctx, fileName, chunkIndex, totalChunks, data)
	if err != nil {
		h.logger.ErrorContext(ctx, "chunk ingestion failed",
			"request_id", requestID,
			"file_name", fileName,
			"chunk_index", chunkIndex,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	if result.Complete {
		h.logger.InfoContext(ctx, "upload assembled",
			"request_id", requestID,
			"upload_id", result.UploadID,
			"assembled_file", result.AssembledFileName,
		)
	}

	httputil.WriteJSON(w, http.StatusOK, ChunkResponse{
		UploadID:          result.UploadID.String(),
		FileName:          result.FileName,
		ChunkIndex:        result.ChunkIndex,
		TotalChunks:       result.TotalChunks,
		Complete:          result.Complete,
		AssembledFileName: result.AssembledFileName,
	})
}

// HandleGet handles GET /uploads/{uploadID} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	uploadID, err := uuid.Parse(chi.URLParam(r, "uploadID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "upload id must be a UUID"))
		return
	}

	record, err := h.records.Get(r.Context(), uploadID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "unknown upload"))
			return
		}
		httputil.WriteError(w, dErrors.Wrap(dErrors.CodeInternal, "load upload record", err))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, RecordResponse{
		ID:                record.ID.String(),
		OriginalFileName:  record.OriginalFileName,
		AssembledFileName: record.AssembledFileName,
		Status:            string(record.Status),
		CreatedAt:         record.CreatedAt,
		UpdatedAt:         record.UpdatedAt,
	})
}
