package batch

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"enrolld/internal/identity"
	"enrolld/internal/progress"
	"enrolld/internal/upload"
	dErrors "enrolld/pkg/domain-errors"
	"enrolld/pkg/platform/sentinel"
)

// EligibleLister is what activation needs from the identity layer.
type EligibleLister interface {
	ListEligibleForLedger(ctx context.Context, uploadID uuid.UUID) ([]*identity.Identity, error)
}

// UploadChecker verifies the upload handle exists before activation.
type UploadChecker interface {
	Get(ctx context.Context, id uuid.UUID) (*upload.Record, error)
}

// Activator is the decoupled second stage: it re-reads already-created
// identities and republishes ledger-registration jobs, so the slow
// external-ledger calls run independently of the fast creation stage.
type Activator struct {
	uploads    UploadChecker
	identities EligibleLister
	dispatcher *Dispatcher
	logger     *slog.Logger
}

func NewActivator(uploads UploadChecker, identities EligibleLister, dispatcher *Dispatcher, logger *slog.Logger) *Activator {
	return &Activator{
		uploads:    uploads,
		identities: identities,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Activate queues ledger registration for every eligible identity of the
// upload, under a fresh progress key derived from the upload id so
// creation progress and registration progress poll independently.
// Zero eligible records is a caller-visible precondition failure: nothing
// is queued and the progress key is left untouched.
func (a *Activator) Activate(ctx context.Context, uploadID uuid.UUID, ownerID string) (DispatchResult, error) {
	if _, err := a.uploads.Get(ctx, uploadID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return DispatchResult{}, dErrors.New(dErrors.CodeNotFound, "unknown upload")
		}
		return DispatchResult{}, dErrors.Wrap(dErrors.CodeInternal, "check upload", err)
	}

	eligible, err := a.identities.ListEligibleForLedger(ctx, uploadID)
	if err != nil {
		return DispatchResult{}, dErrors.Wrap(dErrors.CodeInternal, "list eligible identities", err)
	}
	if len(eligible) == 0 {
		return DispatchResult{}, dErrors.New(dErrors.CodePrecondition, "no eligible records for ledger registration")
	}

	progressKey := progress.LedgerKey(uploadID.String())
	jobs := make([]Job, 0, len(eligible))
	for _, record := range eligible {
		jobs = append(jobs, Job{
			Kind:        KindRegisterLedger,
			UploadID:    uploadID.String(),
			RowNumber:   record.RowNumber,
			ProgressKey: progressKey,
			Register: &RegisterPayload{
				IdentityID: record.ID.String(),
				OwnerID:    ownerID,
			},
		})
	}

	result, err := a.dispatcher.Dispatch(ctx, progressKey, jobs)
	if err != nil {
		return result, err
	}
	a.logger.InfoContext(ctx, "activation queued",
		"upload_id", uploadID,
		"queued", result.Published,
		"eligible", result.Total,
	)
	return result, nil
}
