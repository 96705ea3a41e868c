package custody

import (
	"context"
	"sync"

	"enrolld/pkg/platform/sentinel"
)

// MemoryStore keeps encrypted keys in memory for tests and development.
type MemoryStore struct {
	mu   sync.RWMutex
	keys map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{keys: make(map[string][]byte)}
}

func (s *MemoryStore) GetEncryptedKey(_ context.Context, ownerID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ciphertext, ok := s.keys[ownerID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := make([]byte, len(ciphertext))
	copy(cp, ciphertext)
	return cp, nil
}

func (s *MemoryStore) PutEncryptedKey(_ context.Context, ownerID string, ciphertext []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(ciphertext))
	copy(cp, ciphertext)
	s.keys[ownerID] = cp
	return nil
}
