// Package identity owns the row-level domain record created by the batch
// pipeline. An identity's statuses are the source of truth for whether a
// row's enrollment completed; progress counters are a derived view.
package identity

import (
	"time"

	"github.com/google/uuid"
)

// Status is the database-creation outcome, owned by the create lane.
type Status string

const (
	StatusPending Status = "pending"
	StatusSync    Status = "sync"
	StatusFailed  Status = "failed"
)

// LedgerStatus is the external-ledger registration outcome, owned by the
// register lane. Unregistered means registration has not been attempted,
// which is what makes a record eligible for activation.
type LedgerStatus string

const (
	LedgerUnregistered LedgerStatus = "unregistered"
	LedgerSync         LedgerStatus = "sync"
	LedgerFailed       LedgerStatus = "failed"
)

// Roles assignable to an identity.
const (
	RoleStudent    = "student"
	RoleInstructor = "instructor"
	RoleAdmin      = "admin"
)

// Identity is one enrolled person. (UploadID, RowNumber) is the natural
// idempotency key: redelivered jobs for the same row find the existing
// record instead of creating a second one.
type Identity struct {
	ID           uuid.UUID
	UploadID     uuid.UUID
	RowNumber    int
	Email        string
	FullName     string
	Role         string
	Status       Status
	LedgerStatus LedgerStatus
	LedgerTxID   string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
