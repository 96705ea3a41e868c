package upload

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"enrolld/internal/platform/metrics"
	"enrolld/internal/progress"
	dErrors "enrolld/pkg/domain-errors"
)

// RecordStore is what the receiver needs from the upload record store.
type RecordStore interface {
	Create(ctx context.Context, record *Record) error
	SetAssembled(ctx context.Context, id uuid.UUID, assembledFileName string) error
	SetStatus(ctx context.Context, id uuid.UUID, status Status) error
}

// ChunkStorage is what the receiver needs from the staging area.
type ChunkStorage interface {
	WriteChunk(name string, index int, data []byte) error
	Assemble(name, assembledName string, total int) (string, error)
	Clear(name string) error
}

// chunkSet tracks distinct received indices for one in-flight upload.
// The set, not a counter, is authoritative for completeness: duplicate
// deliveries make index counts meaningless.
type chunkSet struct {
	mu       sync.Mutex
	uploadID uuid.UUID
	total    int
	received map[int]struct{}
}

func (c *chunkSet) complete() bool {
	if len(c.received) != c.total {
		return false
	}
	for i := 0; i < c.total; i++ {
		if _, ok := c.received[i]; !ok {
			return false
		}
	}
	return true
}

// Service receives chunks, tracks chunk sets, and reassembles completed
// uploads.
type Service struct {
	mu       sync.Mutex
	inflight map[string]*chunkSet

	store   RecordStore
	storage ChunkStorage
	tracker progress.Tracker
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewService(store RecordStore, storage ChunkStorage, tracker progress.Tracker, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		inflight: make(map[string]*chunkSet),
		store:    store,
		storage:  storage,
		tracker:  tracker,
		metrics:  m,
		logger:   logger,
	}
}

// ReceiveChunk validates, stages and accounts for one chunk. When the
// chunk completes its set, the upload is reassembled in strict index
// order and staging is cleared.
func (s *Service) ReceiveChunk(ctx context.Context, fileName string, chunkIndex, totalChunks int, data []byte) (ChunkResult, error) {
	name, err := sanitizeFileName(fileName)
	if err != nil {
		return ChunkResult{}, err
	}
	if totalChunks <= 0 {
		return ChunkResult{}, dErrors.New(dErrors.CodeInvalidInput, "totalChunks must be positive")
	}
	if chunkIndex < 0 || chunkIndex >= totalChunks {
		return ChunkResult{}, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("chunkIndex %d out of range [0,%d)", chunkIndex, totalChunks))
	}
	if len(data) == 0 {
		return ChunkResult{}, dErrors.New(dErrors.CodeInvalidInput, "chunk payload is empty")
	}

	cs, err := s.chunkSetFor(ctx, name, totalChunks)
	if err != nil {
		return ChunkResult{}, err
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	if err := s.storage.WriteChunk(name, chunkIndex, data); err != nil {
		return ChunkResult{}, dErrors.Wrap(dErrors.CodeInternal, "stage chunk", err)
	}
	s.metrics.ChunksReceived.Inc()

	chunkKey := progress.ChunkKey(cs.uploadID.String())
	if _, seen := cs.received[chunkIndex]; !seen {
		cs.received[chunkIndex] = struct{}{}
		if err := s.tracker.Increment(ctx, chunkKey, progress.FieldCurrent); err != nil {
			s.logger.WarnContext(ctx, "chunk progress increment failed",
				"upload_id", cs.uploadID,
				"error", err,
			)
		}
	}

	result := ChunkResult{
		UploadID:    cs.uploadID,
		FileName:    name,
		ChunkIndex:  chunkIndex,
		TotalChunks: totalChunks,
	}
	if !cs.complete() {
		return result, nil
	}

	assembledName, err := s.assemble(ctx, name, cs)
	if err != nil {
		return ChunkResult{}, err
	}
	result.Complete = true
	result.AssembledFileName = assembledName
	return result, nil
}

// chunkSetFor returns the in-flight set for name, creating the upload
// record on the first chunk of an unknown file. Chunks arrive in any
// order, so "first chunk" is whichever index shows up first.
func (s *Service) chunkSetFor(ctx context.Context, name string, totalChunks int) (*chunkSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cs, ok := s.inflight[name]; ok {
		if cs.total != totalChunks {
			return nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("totalChunks mismatch: upload expects %d", cs.total))
		}
		return cs, nil
	}

	record := &Record{
		ID:               uuid.New(),
		OriginalFileName: name,
		Status:           StatusPending,
		CreatedAt:        time.Now(),
	}
	if err := s.store.Create(ctx, record); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "create upload record", err)
	}
	if err := s.tracker.SetTotal(ctx, progress.ChunkKey(record.ID.String()), int64(totalChunks)); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "init chunk progress", err)
	}

	cs := &chunkSet{
		uploadID: record.ID,
		total:    totalChunks,
		received: make(map[int]struct{}, totalChunks),
	}
	s.inflight[name] = cs
	return cs, nil
}

func (s *Service) assemble(ctx context.Context, name string, cs *chunkSet) (string, error) {
	assembledName := timestampedName(name)
	if _, err := s.storage.Assemble(name, assembledName, cs.total); err != nil {
		s.metrics.UploadsAssembled.WithLabelValues("failed").Inc()
		if statusErr := s.store.SetStatus(ctx, cs.uploadID, StatusFailed); statusErr != nil {
			s.logger.ErrorContext(ctx, "mark upload failed after assembly error",
				"upload_id", cs.uploadID,
				"error", statusErr,
			)
		}
		s.forget(name)
		return "", dErrors.Wrap(dErrors.CodeInternal, "assemble upload", err)
	}

	if err := s.store.SetAssembled(ctx, cs.uploadID, assembledName); err != nil {
		s.forget(name)
		return "", dErrors.Wrap(dErrors.CodeInternal, "record assembled file", err)
	}
	if err := s.storage.Clear(name); err != nil {
		// Staging leak, not a correctness problem; the artifact is durable.
		s.logger.WarnContext(ctx, "clear staging failed",
			"upload_id", cs.uploadID,
			"error", err,
		)
	}
	s.metrics.UploadsAssembled.WithLabelValues("assembled").Inc()
	s.forget(name)
	return assembledName, nil
}

func (s *Service) forget(name string) {
	s.mu.Lock()
	delete(s.inflight, name)
	s.mu.Unlock()
}

// sanitizeFileName rejects anything that could escape the staging area.
func sanitizeFileName(fileName string) (string, error) {
	name := strings.TrimSpace(fileName)
	if name == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "fileName is required")
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") || name != filepath.Base(name) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "fileName contains path characters")
	}
	return name, nil
}

func timestampedName(name string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	return fmt.Sprintf("%s_%d%s", base, time.Now().UnixNano(), ext)
}
