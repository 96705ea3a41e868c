package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"enrolld/internal/identity"
	"enrolld/internal/identity/store"
	"enrolld/pkg/platform/sentinel"
)

type IdentityServiceSuite struct {
	suite.Suite
	service *Service
	store   *store.MemoryStore
	ctx     context.Context
}

func (s *IdentityServiceSuite) SetupTest() {
	s.store = store.NewMemoryStore()
	s.service = New(s.store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.ctx = context.Background()
}

func TestIdentityServiceSuite(t *testing.T) {
	suite.Run(t, new(IdentityServiceSuite))
}

func (s *IdentityServiceSuite) TestCreateFromRow() {
	uploadID := uuid.New()
	record, err := s.service.CreateFromRow(s.ctx, uploadID, 1, "jane@example.com", "Jane Doe", identity.RoleStudent)
	s.Require().NoError(err)
	s.Equal(identity.StatusSync, record.Status)
	s.Equal(identity.LedgerUnregistered, record.LedgerStatus)
	s.True(record.Active)
}

func (s *IdentityServiceSuite) TestCreateFromRow_RedeliveryReturnsExisting() {
	uploadID := uuid.New()
	first, err := s.service.CreateFromRow(s.ctx, uploadID, 1, "jane@example.com", "Jane Doe", identity.RoleStudent)
	s.Require().NoError(err)

	// Same row redelivered: the existing record is the answer, no new row.
	again, err := s.service.CreateFromRow(s.ctx, uploadID, 1, "jane@example.com", "Jane Doe", identity.RoleStudent)
	s.Require().NoError(err)
	s.Equal(first.ID, again.ID)
}

func (s *IdentityServiceSuite) TestCreateFromRow_DuplicateEmailPersistsFailureMarker() {
	uploadID := uuid.New()
	_, err := s.service.CreateFromRow(s.ctx, uploadID, 1, "dup@example.com", "First", identity.RoleStudent)
	s.Require().NoError(err)

	_, err = s.service.CreateFromRow(s.ctx, uploadID, 2, "dup@example.com", "Second", identity.RoleStudent)
	s.Require().ErrorIs(err, sentinel.ErrConflict)

	// The losing row still persists as a failed marker so the outcome
	// survives a counter rebuild.
	marker, err := s.store.FindByUploadRow(s.ctx, uploadID, 2)
	s.Require().NoError(err)
	s.Equal(identity.StatusFailed, marker.Status)
}

func (s *IdentityServiceSuite) TestCreateFromRow_DuplicateEmailRedeliveryStaysPermanent() {
	uploadID := uuid.New()
	_, err := s.service.CreateFromRow(s.ctx, uploadID, 1, "dup@example.com", "First", identity.RoleStudent)
	s.Require().NoError(err)

	_, err = s.service.CreateFromRow(s.ctx, uploadID, 2, "dup@example.com", "Second", identity.RoleStudent)
	s.Require().ErrorIs(err, sentinel.ErrConflict)

	// Redelivery of the duplicate row finds the failed marker and returns
	// it instead of conflicting again.
	marker, err := s.service.CreateFromRow(s.ctx, uploadID, 2, "dup@example.com", "Second", identity.RoleStudent)
	s.Require().NoError(err)
	s.Equal(identity.StatusFailed, marker.Status)
}

func (s *IdentityServiceSuite) TestMarkRowFailed() {
	uploadID := uuid.New()
	s.Require().NoError(s.service.MarkRowFailed(s.ctx, uploadID, 7, "gone@example.com", "Gone Row", identity.RoleStudent))

	marker, err := s.store.FindByUploadRow(s.ctx, uploadID, 7)
	s.Require().NoError(err)
	s.Equal(identity.StatusFailed, marker.Status)
	s.Equal(identity.LedgerUnregistered, marker.LedgerStatus)

	// Redelivery after the marker write is a no-op.
	s.Require().NoError(s.service.MarkRowFailed(s.ctx, uploadID, 7, "gone@example.com", "Gone Row", identity.RoleStudent))
}

func (s *IdentityServiceSuite) TestMarkRowFailed_KeepsExistingRecord() {
	uploadID := uuid.New()
	record, err := s.service.CreateFromRow(s.ctx, uploadID, 1, "kept@example.com", "Kept Row", identity.RoleStudent)
	s.Require().NoError(err)

	s.Require().NoError(s.service.MarkRowFailed(s.ctx, uploadID, 1, "kept@example.com", "Kept Row", identity.RoleStudent))

	existing, err := s.store.GetByID(s.ctx, record.ID)
	s.Require().NoError(err)
	s.Equal(identity.StatusSync, existing.Status)
}

func (s *IdentityServiceSuite) TestLedgerTransitions() {
	record, err := s.service.CreateFromRow(s.ctx, uuid.New(), 1, "a@example.com", "A", identity.RoleStudent)
	s.Require().NoError(err)

	s.Require().NoError(s.service.MarkLedgerSync(s.ctx, record.ID, "tx-7"))
	found, err := s.service.GetByID(s.ctx, record.ID)
	s.Require().NoError(err)
	s.Equal(identity.LedgerSync, found.LedgerStatus)
	s.Equal("tx-7", found.LedgerTxID)

	s.Require().NoError(s.service.MarkLedgerFailed(s.ctx, record.ID))
	found, err = s.service.GetByID(s.ctx, record.ID)
	s.Require().NoError(err)
	s.Equal(identity.LedgerFailed, found.LedgerStatus)
}

func (s *IdentityServiceSuite) TestListEligibleExcludesRegistered() {
	uploadID := uuid.New()
	eligible, err := s.service.CreateFromRow(s.ctx, uploadID, 1, "a@example.com", "A", identity.RoleStudent)
	s.Require().NoError(err)
	registered, err := s.service.CreateFromRow(s.ctx, uploadID, 2, "b@example.com", "B", identity.RoleStudent)
	s.Require().NoError(err)
	s.Require().NoError(s.service.MarkLedgerSync(s.ctx, registered.ID, "tx-1"))

	list, err := s.service.ListEligibleForLedger(s.ctx, uploadID)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(eligible.ID, list[0].ID)
}

func (s *IdentityServiceSuite) TestAssignRole() {
	record, err := s.service.CreateFromRow(s.ctx, uuid.New(), 1, "a@example.com", "A", identity.RoleStudent)
	s.Require().NoError(err)

	s.Require().NoError(s.service.AssignRole(s.ctx, record.ID, identity.RoleInstructor))
	found, err := s.service.GetByID(s.ctx, record.ID)
	s.Require().NoError(err)
	s.Equal(identity.RoleInstructor, found.Role)

	// Assigning the same role again is an idempotent no-op.
	s.Require().NoError(s.service.AssignRole(s.ctx, record.ID, identity.RoleInstructor))
}

func (s *IdentityServiceSuite) TestAssignRole_UnknownRole() {
	record, err := s.service.CreateFromRow(s.ctx, uuid.New(), 1, "a@example.com", "A", identity.RoleStudent)
	s.Require().NoError(err)

	err = s.service.AssignRole(s.ctx, record.ID, "superuser")
	s.Require().ErrorIs(err, sentinel.ErrInvalidState)
}

func (s *IdentityServiceSuite) TestRemoveRoleRevertsToStudent() {
	record, err := s.service.CreateFromRow(s.ctx, uuid.New(), 1, "a@example.com", "A", identity.RoleInstructor)
	s.Require().NoError(err)

	s.Require().NoError(s.service.RemoveRole(s.ctx, record.ID))
	found, err := s.service.GetByID(s.ctx, record.ID)
	s.Require().NoError(err)
	s.Equal(identity.RoleStudent, found.Role)
}

func (s *IdentityServiceSuite) TestLifecycle() {
	record, err := s.service.CreateFromRow(s.ctx, uuid.New(), 1, "a@example.com", "A", identity.RoleStudent)
	s.Require().NoError(err)

	s.Require().NoError(s.service.Deactivate(s.ctx, record.ID))
	found, err := s.service.GetByID(s.ctx, record.ID)
	s.Require().NoError(err)
	s.False(found.Active)

	// Deactivating twice stays a no-op.
	s.Require().NoError(s.service.Deactivate(s.ctx, record.ID))

	s.Require().NoError(s.service.Reactivate(s.ctx, record.ID))
	found, err = s.service.GetByID(s.ctx, record.ID)
	s.Require().NoError(err)
	s.True(found.Active)
}
