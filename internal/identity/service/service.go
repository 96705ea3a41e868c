// Package service implements the identity operations executed by lane
// consumers. Every operation is safe under at-least-once delivery:
// redelivered jobs detect "already applied" and report success.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"enrolld/internal/identity"
	"enrolld/internal/identity/store"
	"enrolld/pkg/platform/sentinel"
)

// Service wraps the identity store with pipeline semantics.
type Service struct {
	store  store.Store
	logger *slog.Logger
}

func New(st store.Store, logger *slog.Logger) *Service {
	return &Service{store: st, logger: logger}
}

// CreateFromRow creates the identity for one batch row. The (uploadID,
// rowNumber) pair is the idempotency key: if the row was already applied,
// the existing record is returned and redelivery counts as success.
// A duplicate email persists a failure marker row and returns
// sentinel.ErrConflict so the lane classifies it as permanent.
// The lookup and inserts run in one store transaction.
func (s *Service) CreateFromRow(ctx context.Context, uploadID uuid.UUID, rowNumber int, email, fullName, role string) (*identity.Identity, error) {
	var record *identity.Identity
	var rowErr error
	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		record, rowErr = s.createFromRow(ctx, uploadID, rowNumber, email, fullName, role)
		if errors.Is(rowErr, sentinel.ErrConflict) {
			// The conflict is the row's outcome, not a reason to roll
			// back: committing keeps the failure marker.
			return nil
		}
		return rowErr
	})
	if err != nil {
		return nil, err
	}
	return record, rowErr
}

func (s *Service) createFromRow(ctx context.Context, uploadID uuid.UUID, rowNumber int, email, fullName, role string) (*identity.Identity, error) {
	if existing, err := s.store.FindByUploadRow(ctx, uploadID, rowNumber); err == nil {
		return existing, nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, fmt.Errorf("idempotency lookup: %w", err)
	}

	record := &identity.Identity{
		ID:           uuid.New(),
		UploadID:     uploadID,
		RowNumber:    rowNumber,
		Email:        email,
		FullName:     fullName,
		Role:         role,
		Status:       identity.StatusSync,
		LedgerStatus: identity.LedgerUnregistered,
		Active:       true,
		CreatedAt:    time.Now(),
	}
	err := s.store.Create(ctx, record)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, sentinel.ErrConflict) {
		return nil, fmt.Errorf("create identity: %w", err)
	}

	// Email already held by a sync record. Persist the row outcome as a
	// failure marker (the partial unique index permits it) so progress can
	// be rebuilt from record statuses alone.
	marker := &identity.Identity{
		ID:           uuid.New(),
		UploadID:     uploadID,
		RowNumber:    rowNumber,
		Email:        email,
		FullName:     fullName,
		Role:         role,
		Status:       identity.StatusFailed,
		LedgerStatus: identity.LedgerUnregistered,
		CreatedAt:    time.Now(),
	}
	if markerErr := s.store.Create(ctx, marker); markerErr != nil {
		s.logger.WarnContext(ctx, "persist duplicate-row failure marker",
			"upload_id", uploadID,
			"row_number", rowNumber,
			"error", markerErr,
		)
	}
	return nil, fmt.Errorf("identity for row %d: %w", rowNumber, sentinel.ErrConflict)
}

// MarkRowFailed persists a terminal failure marker for a row whose
// create never succeeded, so record statuses stay the source of truth
// when the lane exhausts retries. Idempotent: a row that already owns
// an outcome is left untouched.
func (s *Service) MarkRowFailed(ctx context.Context, uploadID uuid.UUID, rowNumber int, email, fullName, role string) error {
	return s.store.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.store.FindByUploadRow(ctx, uploadID, rowNumber); err == nil {
			return nil
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return fmt.Errorf("terminal marker lookup: %w", err)
		}
		marker := &identity.Identity{
			ID:           uuid.New(),
			UploadID:     uploadID,
			RowNumber:    rowNumber,
			Email:        email,
			FullName:     fullName,
			Role:         role,
			Status:       identity.StatusFailed,
			LedgerStatus: identity.LedgerUnregistered,
			CreatedAt:    time.Now(),
		}
		if err := s.store.Create(ctx, marker); err != nil && !errors.Is(err, sentinel.ErrConflict) {
			return fmt.Errorf("persist terminal failure marker: %w", err)
		}
		return nil
	})
}

// GetByID loads one identity.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*identity.Identity, error) {
	return s.store.GetByID(ctx, id)
}

// ListEligibleForLedger lists sync records not yet registered on the ledger.
func (s *Service) ListEligibleForLedger(ctx context.Context, uploadID uuid.UUID) ([]*identity.Identity, error) {
	return s.store.ListEligibleForLedger(ctx, uploadID)
}

// MarkLedgerSync records a successful ledger registration.
func (s *Service) MarkLedgerSync(ctx context.Context, id uuid.UUID, txID string) error {
	return s.store.UpdateLedger(ctx, id, identity.LedgerSync, txID)
}

// MarkLedgerFailed records a permanently failed ledger registration.
func (s *Service) MarkLedgerFailed(ctx context.Context, id uuid.UUID) error {
	return s.store.UpdateLedger(ctx, id, identity.LedgerFailed, "")
}

// AssignRole sets the identity's role. Assigning the role it already has
// is an idempotent no-op.
func (s *Service) AssignRole(ctx context.Context, id uuid.UUID, role string) error {
	switch role {
	case identity.RoleStudent, identity.RoleInstructor, identity.RoleAdmin:
	default:
		return fmt.Errorf("role %q: %w", role, sentinel.ErrInvalidState)
	}
	return s.store.UpdateRole(ctx, id, role)
}

// RemoveRole reverts the identity to the default student role.
func (s *Service) RemoveRole(ctx context.Context, id uuid.UUID) error {
	return s.store.UpdateRole(ctx, id, identity.RoleStudent)
}

// Deactivate disables the identity. Already-inactive records are a no-op
// so redelivery stays safe.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	return s.store.SetActive(ctx, id, false)
}

// Reactivate re-enables the identity.
func (s *Service) Reactivate(ctx context.Context, id uuid.UUID) error {
	return s.store.SetActive(ctx, id, true)
}
