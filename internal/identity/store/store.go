// Package store persists identity records. The email uniqueness
// constraint only covers successfully created (sync) rows, so failure
// markers for conflicting rows can still be persisted.
package store

import (
	"context"

	"github.com/google/uuid"

	"enrolld/internal/identity"
	"enrolld/pkg/platform/sentinel"
)

var (
	ErrNotFound = sentinel.ErrNotFound
	// ErrConflict is returned when a sync row already holds the email.
	ErrConflict = sentinel.ErrConflict
)

// Store is the identity record store.
type Store interface {
	// RunInTx runs fn atomically: the postgres store carries a SQL
	// transaction in ctx for the nested calls, the memory store holds a
	// coarse lock.
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	// Create inserts a record. Returns ErrConflict when a sync record
	// already holds the email, and also when (upload_id, row_number) is
	// already taken.
	Create(ctx context.Context, record *identity.Identity) error
	GetByID(ctx context.Context, id uuid.UUID) (*identity.Identity, error)
	// FindByUploadRow is the idempotency lookup for redelivered jobs.
	FindByUploadRow(ctx context.Context, uploadID uuid.UUID, rowNumber int) (*identity.Identity, error)
	// ListEligibleForLedger returns sync records whose ledger registration
	// has not been attempted.
	ListEligibleForLedger(ctx context.Context, uploadID uuid.UUID) ([]*identity.Identity, error)
	UpdateLedger(ctx context.Context, id uuid.UUID, status identity.LedgerStatus, txID string) error
	UpdateRole(ctx context.Context, id uuid.UUID, role string) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}
