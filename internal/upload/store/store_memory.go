package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"enrolld/internal/upload"
)

// MemoryStore is an in-memory upload record store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*upload.Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[uuid.UUID]*upload.Record)}
}

func (s *MemoryStore) Create(_ context.Context, record *upload.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *record
	s.records[record.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*upload.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *record
	return &cp, nil
}

func (s *MemoryStore) SetAssembled(_ context.Context, id uuid.UUID, assembledFileName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return ErrNotFound
	}
	record.AssembledFileName = assembledFileName
	record.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) SetStatus(_ context.Context, id uuid.UUID, status upload.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return ErrNotFound
	}
	record.Status = status
	record.UpdatedAt = time.Now()
	return nil
}
