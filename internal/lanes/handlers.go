package lanes

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"enrolld/internal/batch"
	"enrolld/internal/identity"
	"enrolld/internal/ledger"
	"enrolld/pkg/platform/sentinel"
)

// IdentityService is what lane handlers need from the identity layer.
type IdentityService interface {
	CreateFromRow(ctx context.Context, uploadID uuid.UUID, rowNumber int, email, fullName, role string) (*identity.Identity, error)
	MarkRowFailed(ctx context.Context, uploadID uuid.UUID, rowNumber int, email, fullName, role string) error
	GetByID(ctx context.Context, id uuid.UUID) (*identity.Identity, error)
	MarkLedgerSync(ctx context.Context, id uuid.UUID, txID string) error
	MarkLedgerFailed(ctx context.Context, id uuid.UUID) error
	AssignRole(ctx context.Context, id uuid.UUID, role string) error
	RemoveRole(ctx context.Context, id uuid.UUID) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	Reactivate(ctx context.Context, id uuid.UUID) error
}

// KeyCustody supplies signing credentials for ledger calls.
type KeyCustody interface {
	DecryptSigningKey(ctx context.Context, ownerID string) ([]byte, error)
}

// TerminalRecorder is implemented by handlers whose job outcome must be
// persisted on the owning record when the lane, not the handler, decides
// the job is permanently failed (retries exhausted). The write happens
// before the ack, like every other durable status write.
type TerminalRecorder interface {
	RecordTerminalFailure(ctx context.Context, job batch.Job) error
}

// Handlers builds the per-kind handler map used to start every lane.
func Handlers(ids IdentityService, custody KeyCustody, ledgerClient ledger.Client) map[batch.Kind]JobHandler {
	return map[batch.Kind]JobHandler{
		batch.KindCreateIdentity: &CreateHandler{ids: ids},
		batch.KindRegisterLedger: &RegisterHandler{ids: ids, custody: custody, ledger: ledgerClient},
		batch.KindAssignRole:     &RoleHandler{ids: ids, remove: false},
		batch.KindRemoveRole:     &RoleHandler{ids: ids, remove: true},
		batch.KindDeactivate:     &LifecycleHandler{ids: ids, active: false},
		batch.KindReactivate:     &LifecycleHandler{ids: ids, active: true},
	}
}

// CreateHandler persists the identity row for one batch row.
type CreateHandler struct {
	ids IdentityService
}

func (h *CreateHandler) Handle(ctx context.Context, job batch.Job) error {
	uploadID, err := uuid.Parse(job.UploadID)
	if err != nil {
		return fmt.Errorf("upload id %q: %w", job.UploadID, sentinel.ErrInvalidState)
	}
	_, err = h.ids.CreateFromRow(ctx, uploadID, job.RowNumber, job.Create.Email, job.Create.FullName, job.Create.Role)
	return err
}

// RecordTerminalFailure persists a Failed marker row when the lane runs
// out of retries before the create ever reached the store.
func (h *CreateHandler) RecordTerminalFailure(ctx context.Context, job batch.Job) error {
	uploadID, err := uuid.Parse(job.UploadID)
	if err != nil {
		// Nothing identifiable to mark.
		return nil
	}
	return h.ids.MarkRowFailed(ctx, uploadID, job.RowNumber, job.Create.Email, job.Create.FullName, job.Create.Role)
}

// RegisterHandler submits one identity to the external ledger and
// records the outcome before the message is acknowledged.
type RegisterHandler struct {
	ids     IdentityService
	custody KeyCustody
	ledger  ledger.Client
}

func (h *RegisterHandler) Handle(ctx context.Context, job batch.Job) error {
	id, err := uuid.Parse(job.Register.IdentityID)
	if err != nil {
		return fmt.Errorf("identity id %q: %w", job.Register.IdentityID, sentinel.ErrInvalidState)
	}

	record, err := h.ids.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load identity: %w", err)
	}
	if record.LedgerStatus == identity.LedgerSync {
		// Redelivery after a crash between status write and ack: already
		// applied, report success.
		return nil
	}

	signingKey, err := h.custody.DecryptSigningKey(ctx, job.Register.OwnerID)
	if err != nil {
		err = fmt.Errorf("signing key: %w", err)
		if Classify(err) == OutcomePermanent {
			// A missing or corrupt key will not heal on redelivery; record
			// the terminal outcome before the lane acks.
			if markErr := h.ids.MarkLedgerFailed(ctx, id); markErr != nil {
				return fmt.Errorf("mark ledger failed: %w", markErr)
			}
		}
		return err
	}

	txID, err := h.ledger.Register(ctx, signingKey, ledger.Registration{
		IdentityID: record.ID.String(),
		Email:      record.Email,
		FullName:   record.FullName,
		Role:       record.Role,
	})
	switch {
	case err == nil:
		return h.ids.MarkLedgerSync(ctx, id, txID)
	case errors.Is(err, sentinel.ErrConflict):
		// The ledger already holds this identity (crash after the remote
		// call succeeded): treat as applied.
		return h.ids.MarkLedgerSync(ctx, id, record.LedgerTxID)
	case errors.Is(err, sentinel.ErrUnavailable):
		// Transient: no status write, let redelivery retry.
		return err
	default:
		if markErr := h.ids.MarkLedgerFailed(ctx, id); markErr != nil {
			return fmt.Errorf("mark ledger failed: %w", markErr)
		}
		return err
	}
}

// RecordTerminalFailure marks the ledger registration failed when the
// lane exhausts retries on a transient error, so the record does not
// silently re-qualify for a later activation pass.
func (h *RegisterHandler) RecordTerminalFailure(ctx context.Context, job batch.Job) error {
	id, err := uuid.Parse(job.Register.IdentityID)
	if err != nil {
		return nil
	}
	if err := h.ids.MarkLedgerFailed(ctx, id); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return err
	}
	return nil
}

// RoleHandler assigns or removes a role on an existing identity.
type RoleHandler struct {
	ids    IdentityService
	remove bool
}

func (h *RoleHandler) Handle(ctx context.Context, job batch.Job) error {
	id, err := uuid.Parse(job.Role.IdentityID)
	if err != nil {
		return fmt.Errorf("identity id %q: %w", job.Role.IdentityID, sentinel.ErrInvalidState)
	}
	if h.remove {
		return h.ids.RemoveRole(ctx, id)
	}
	return h.ids.AssignRole(ctx, id, job.Role.Role)
}

// LifecycleHandler deactivates or reactivates an existing identity.
type LifecycleHandler struct {
	ids    IdentityService
	active bool
}

func (h *LifecycleHandler) Handle(ctx context.Context, job batch.Job) error {
	id, err := uuid.Parse(job.Lifecycle.IdentityID)
	if err != nil {
		return fmt.Errorf("identity id %q: %w", job.Lifecycle.IdentityID, sentinel.ErrInvalidState)
	}
	if h.active {
		return h.ids.Reactivate(ctx, id)
	}
	return h.ids.Deactivate(ctx, id)
}
