package lanes

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"enrolld/internal/batch"
	"enrolld/internal/identity"
	identityservice "enrolld/internal/identity/service"
	identitystore "enrolld/internal/identity/store"
	"enrolld/internal/ledger"
	"enrolld/pkg/platform/sentinel"
)

type fakeCustody struct {
	key []byte
	err error
}

func (f *fakeCustody) DecryptSigningKey(context.Context, string) ([]byte, error) {
	return f.key, f.err
}

type fakeLedger struct {
	txID   string
	err    error
	calls  int
	gotKey []byte
	gotReg ledger.Registration
}

func (f *fakeLedger) Register(_ context.Context, signingKey []byte, reg ledger.Registration) (string, error) {
	f.calls++
	f.gotKey = signingKey
	f.gotReg = reg
	return f.txID, f.err
}

type HandlerSuite struct {
	suite.Suite
	ctx     context.Context
	store   *identitystore.MemoryStore
	ids     *identityservice.Service
	custody *fakeCustody
	ledger  *fakeLedger
}

func (s *HandlerSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = identitystore.NewMemoryStore()
	s.ids = identityservice.New(s.store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.custody = &fakeCustody{key: []byte("signing-key")}
	s.ledger = &fakeLedger{txID: "tx-99"}
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) seedIdentity() *identity.Identity {
	record, err := s.ids.CreateFromRow(s.ctx, uuid.New(), 1, "jane@example.edu", "Jane Doe", identity.RoleStudent)
	s.Require().NoError(err)
	return record
}

func (s *HandlerSuite) TestHandlersCoverEveryKind() {
	handlers := Handlers(s.ids, s.custody, s.ledger)
	for _, kind := range batch.Kinds() {
		s.Contains(handlers, kind)
	}
}

func (s *HandlerSuite) TestCreateHandler() {
	h := &CreateHandler{ids: s.ids}
	uploadID := uuid.New()
	job := batch.Job{
		Kind:      batch.KindCreateIdentity,
		UploadID:  uploadID.String(),
		RowNumber: 1,
		Create:    &batch.CreatePayload{Email: "new@example.edu", FullName: "New Person", Role: identity.RoleStudent},
	}

	s.Require().NoError(h.Handle(s.ctx, job))

	record, err := s.store.FindByUploadRow(s.ctx, uploadID, 1)
	s.Require().NoError(err)
	s.Equal("new@example.edu", record.Email)

	// Redelivery is a success, not a duplicate.
	s.Require().NoError(h.Handle(s.ctx, job))
}

func (s *HandlerSuite) TestCreateHandler_BadUploadID() {
	h := &CreateHandler{ids: s.ids}
	job := batch.Job{
		Kind:      batch.KindCreateIdentity,
		UploadID:  "not-a-uuid",
		RowNumber: 1,
		Create:    &batch.CreatePayload{Email: "x@example.edu"},
	}
	err := h.Handle(s.ctx, job)
	s.Require().ErrorIs(err, sentinel.ErrInvalidState)
	s.Equal(OutcomePermanent, Classify(err))
}

func (s *HandlerSuite) registerJob(record *identity.Identity) batch.Job {
	return batch.Job{
		Kind:      batch.KindRegisterLedger,
		UploadID:  record.UploadID.String(),
		RowNumber: record.RowNumber,
		Register:  &batch.RegisterPayload{IdentityID: record.ID.String(), OwnerID: "registrar-7"},
	}
}

func (s *HandlerSuite) TestRegisterHandler() {
	record := s.seedIdentity()
	h := &RegisterHandler{ids: s.ids, custody: s.custody, ledger: s.ledger}

	s.Require().NoError(h.Handle(s.ctx, s.registerJob(record)))

	s.Equal(1, s.ledger.calls)
	s.Equal([]byte("signing-key"), s.ledger.gotKey)
	s.Equal(record.Email, s.ledger.gotReg.Email)

	updated, err := s.ids.GetByID(s.ctx, record.ID)
	s.Require().NoError(err)
	s.Equal(identity.LedgerSync, updated.LedgerStatus)
	s.Equal("tx-99", updated.LedgerTxID)
}

func (s *HandlerSuite) TestRegisterHandler_AlreadyRegisteredSkipsLedger() {
	record := s.seedIdentity()
	s.Require().NoError(s.ids.MarkLedgerSync(s.ctx, record.ID, "tx-1"))
	h := &RegisterHandler{ids: s.ids, custody: s.custody, ledger: s.ledger}

	s.Require().NoError(h.Handle(s.ctx, s.registerJob(record)))
	s.Zero(s.ledger.calls)
}

func (s *HandlerSuite) TestRegisterHandler_LedgerConflictIsAlreadyApplied() {
	record := s.seedIdentity()
	s.ledger.err = fmt.Errorf("ledger rejected registration: %w", sentinel.ErrConflict)
	h := &RegisterHandler{ids: s.ids, custody: s.custody, ledger: s.ledger}

	s.Require().NoError(h.Handle(s.ctx, s.registerJob(record)))

	updated, err := s.ids.GetByID(s.ctx, record.ID)
	s.Require().NoError(err)
	s.Equal(identity.LedgerSync, updated.LedgerStatus)
}

func (s *HandlerSuite) TestRegisterHandler_TransientLeavesStatusUntouched() {
	record := s.seedIdentity()
	s.ledger.err = fmt.Errorf("ledger call: %w", sentinel.ErrUnavailable)
	h := &RegisterHandler{ids: s.ids, custody: s.custody, ledger: s.ledger}

	err := h.Handle(s.ctx, s.registerJob(record))
	s.Require().Error(err)
	s.Equal(OutcomeTransient, Classify(err))

	updated, getErr := s.ids.GetByID(s.ctx, record.ID)
	s.Require().NoError(getErr)
	s.Equal(identity.LedgerUnregistered, updated.LedgerStatus)
}

func (s *HandlerSuite) TestRegisterHandler_PermanentRejectionMarksFailed() {
	record := s.seedIdentity()
	s.ledger.err = fmt.Errorf("ledger rejected registration: %w", sentinel.ErrInvalidState)
	h := &RegisterHandler{ids: s.ids, custody: s.custody, ledger: s.ledger}

	err := h.Handle(s.ctx, s.registerJob(record))
	s.Require().Error(err)
	s.Equal(OutcomePermanent, Classify(err))

	updated, getErr := s.ids.GetByID(s.ctx, record.ID)
	s.Require().NoError(getErr)
	s.Equal(identity.LedgerFailed, updated.LedgerStatus)
}

func (s *HandlerSuite) TestRegisterHandler_TransientCustodyFailure() {
	record := s.seedIdentity()
	s.custody.err = fmt.Errorf("master key unavailable: %w", sentinel.ErrUnavailable)
	h := &RegisterHandler{ids: s.ids, custody: s.custody, ledger: s.ledger}

	err := h.Handle(s.ctx, s.registerJob(record))
	s.Require().Error(err)
	s.Zero(s.ledger.calls)

	// Transient: redelivery may still succeed, no status write.
	updated, getErr := s.ids.GetByID(s.ctx, record.ID)
	s.Require().NoError(getErr)
	s.Equal(identity.LedgerUnregistered, updated.LedgerStatus)
}

func (s *HandlerSuite) TestRegisterHandler_PermanentCustodyFailureMarksFailed() {
	record := s.seedIdentity()
	s.custody.err = fmt.Errorf("signing key for registrar-7: %w", sentinel.ErrNotFound)
	h := &RegisterHandler{ids: s.ids, custody: s.custody, ledger: s.ledger}

	err := h.Handle(s.ctx, s.registerJob(record))
	s.Require().Error(err)
	s.Equal(OutcomePermanent, Classify(err))
	s.Zero(s.ledger.calls)

	// A key that does not exist will not appear on redelivery; the
	// record must own the terminal outcome.
	updated, getErr := s.ids.GetByID(s.ctx, record.ID)
	s.Require().NoError(getErr)
	s.Equal(identity.LedgerFailed, updated.LedgerStatus)
}

func (s *HandlerSuite) TestRegisterHandler_RecordTerminalFailure() {
	record := s.seedIdentity()
	h := &RegisterHandler{ids: s.ids, custody: s.custody, ledger: s.ledger}

	s.Require().NoError(h.RecordTerminalFailure(s.ctx, s.registerJob(record)))

	updated, err := s.ids.GetByID(s.ctx, record.ID)
	s.Require().NoError(err)
	s.Equal(identity.LedgerFailed, updated.LedgerStatus)

	// No longer eligible for a later activation pass.
	eligible, err := s.ids.ListEligibleForLedger(s.ctx, record.UploadID)
	s.Require().NoError(err)
	s.Empty(eligible)
}

func (s *HandlerSuite) TestRegisterHandler_RecordTerminalFailureUnknownIdentity() {
	h := &RegisterHandler{ids: s.ids, custody: s.custody, ledger: s.ledger}
	job := batch.Job{
		Kind:     batch.KindRegisterLedger,
		Register: &batch.RegisterPayload{IdentityID: uuid.NewString(), OwnerID: "registrar-7"},
	}
	s.Require().NoError(h.RecordTerminalFailure(s.ctx, job))
}

func (s *HandlerSuite) TestCreateHandler_RecordTerminalFailure() {
	h := &CreateHandler{ids: s.ids}
	uploadID := uuid.New()
	job := batch.Job{
		Kind:      batch.KindCreateIdentity,
		UploadID:  uploadID.String(),
		RowNumber: 4,
		Create:    &batch.CreatePayload{Email: "lost@example.edu", FullName: "Lost Row", Role: identity.RoleStudent},
	}

	s.Require().NoError(h.RecordTerminalFailure(s.ctx, job))

	marker, err := s.store.FindByUploadRow(s.ctx, uploadID, 4)
	s.Require().NoError(err)
	s.Equal(identity.StatusFailed, marker.Status)
}

func (s *HandlerSuite) TestCreateHandler_RecordTerminalFailureKeepsExistingRow() {
	record := s.seedIdentity()
	h := &CreateHandler{ids: s.ids}
	job := batch.Job{
		Kind:      batch.KindCreateIdentity,
		UploadID:  record.UploadID.String(),
		RowNumber: record.RowNumber,
		Create:    &batch.CreatePayload{Email: record.Email, FullName: record.FullName, Role: record.Role},
	}

	s.Require().NoError(h.RecordTerminalFailure(s.ctx, job))

	// The row already owns an outcome; it must not be demoted.
	existing, err := s.store.FindByUploadRow(s.ctx, record.UploadID, record.RowNumber)
	s.Require().NoError(err)
	s.Equal(identity.StatusSync, existing.Status)
}

func (s *HandlerSuite) TestRoleHandler() {
	record := s.seedIdentity()
	assign := &RoleHandler{ids: s.ids}
	job := batch.Job{
		Kind:      batch.KindAssignRole,
		UploadID:  record.UploadID.String(),
		RowNumber: record.RowNumber,
		Role:      &batch.RolePayload{IdentityID: record.ID.String(), Role: identity.RoleInstructor},
	}
	s.Require().NoError(assign.Handle(s.ctx, job))

	updated, err := s.ids.GetByID(s.ctx, record.ID)
	s.Require().NoError(err)
	s.Equal(identity.RoleInstructor, updated.Role)

	remove := &RoleHandler{ids: s.ids, remove: true}
	s.Require().NoError(remove.Handle(s.ctx, job))

	updated, err = s.ids.GetByID(s.ctx, record.ID)
	s.Require().NoError(err)
	s.Equal(identity.RoleStudent, updated.Role)
}

func (s *HandlerSuite) TestLifecycleHandler() {
	record := s.seedIdentity()
	job := batch.Job{
		Kind:      batch.KindDeactivate,
		UploadID:  record.UploadID.String(),
		RowNumber: record.RowNumber,
		Lifecycle: &batch.LifecyclePayload{IdentityID: record.ID.String()},
	}

	deactivate := &LifecycleHandler{ids: s.ids}
	s.Require().NoError(deactivate.Handle(s.ctx, job))
	updated, err := s.ids.GetByID(s.ctx, record.ID)
	s.Require().NoError(err)
	s.False(updated.Active)

	reactivate := &LifecycleHandler{ids: s.ids, active: true}
	s.Require().NoError(reactivate.Handle(s.ctx, job))
	updated, err = s.ids.GetByID(s.ctx, record.ID)
	s.Require().NoError(err)
	s.True(updated.Active)
}
