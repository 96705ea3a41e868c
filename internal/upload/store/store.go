// Package store persists upload records. Postgres backs production; the
// memory twin backs unit tests, mirroring the same sentinel errors.
package store

import (
	"context"

	"github.com/google/uuid"

	"enrolld/internal/upload"
	"enrolld/pkg/platform/sentinel"
)

// ErrNotFound keeps store-specific lookups consistent across
// implementations.
var ErrNotFound = sentinel.ErrNotFound

// Store is the upload record store.
type Store interface {
	Create(ctx context.Context, record *upload.Record) error
	Get(ctx context.Context, id uuid.UUID) (*upload.Record, error)
	// SetAssembled records the reassembled artifact name. Status stays
	// Pending; fan-out owns the terminal transition.
	SetAssembled(ctx context.Context, id uuid.UUID, assembledFileName string) error
	SetStatus(ctx context.Context, id uuid.UUID, status upload.Status) error
}
