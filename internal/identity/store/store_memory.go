package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"enrolld/internal/identity"
)

type uploadRow struct {
	uploadID  uuid.UUID
	rowNumber int
}

// MemoryStore is the in-memory identity store used by unit tests. It
// mirrors the postgres constraints: (upload_id, row_number) unique, and
// email unique among sync records only.
type MemoryStore struct {
	txMu    sync.Mutex
	mu      sync.RWMutex
	records map[uuid.UUID]*identity.Identity
	byRow   map[uploadRow]uuid.UUID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[uuid.UUID]*identity.Identity),
		byRow:   make(map[uploadRow]uuid.UUID),
	}
}

// RunInTx serializes multi-step mutations under a coarse lock, separate
// from the per-call mutex so fn can use the store normally.
func (s *MemoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(ctx)
}

func (s *MemoryStore) Create(_ context.Context, record *identity.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := uploadRow{uploadID: record.UploadID, rowNumber: record.RowNumber}
	if _, ok := s.byRow[key]; ok {
		return ErrConflict
	}
	if record.Status == identity.StatusSync {
		for _, existing := range s.records {
			if existing.Status == identity.StatusSync && existing.Email == record.Email {
				return ErrConflict
			}
		}
	}

	cp := *record
	s.records[record.ID] = &cp
	s.byRow[key] = record.ID
	return nil
}

func (s *MemoryStore) GetByID(_ context.Context, id uuid.UUID) (*identity.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *record
	return &cp, nil
}

func (s *MemoryStore) FindByUploadRow(_ context.Context, uploadID uuid.UUID, rowNumber int) (*identity.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byRow[uploadRow{uploadID: uploadID, rowNumber: rowNumber}]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s.records[id]
	return &cp, nil
}

func (s *MemoryStore) ListEligibleForLedger(_ context.Context, uploadID uuid.UUID) ([]*identity.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var eligible []*identity.Identity
	for _, record := range s.records {
		if record.UploadID == uploadID &&
			record.Status == identity.StatusSync &&
			record.LedgerStatus == identity.LedgerUnregistered {
			cp := *record
			eligible = append(eligible, &cp)
		}
	}
	// Same order as the postgres twin.
	sort.Slice(eligible, func(i, j int) bool {
		return eligible[i].RowNumber < eligible[j].RowNumber
	})
	return eligible, nil
}

func (s *MemoryStore) UpdateLedger(_ context.Context, id uuid.UUID, status identity.LedgerStatus, txID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return ErrNotFound
	}
	record.LedgerStatus = status
	record.LedgerTxID = txID
	record.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) UpdateRole(_ context.Context, id uuid.UUID, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return ErrNotFound
	}
	record.Role = role
	record.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return ErrNotFound
	}
	record.Active = active
	record.UpdatedAt = time.Now()
	return nil
}
