// Package batch fans uploads out into per-row jobs and republishes
// ledger-registration work for the activation stage.
package batch

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind names a lane: one durable topic and one consumer loop per kind.
type Kind string

const (
	KindCreateIdentity Kind = "create-identity"
	KindRegisterLedger Kind = "register-ledger"
	KindAssignRole     Kind = "assign-role"
	KindDeactivate     Kind = "deactivate"
	KindReactivate     Kind = "reactivate"
	KindRemoveRole     Kind = "remove-role"
)

// Kinds lists every lane, in topic-bootstrap order.
func Kinds() []Kind {
	return []Kind{
		KindCreateIdentity,
		KindRegisterLedger,
		KindAssignRole,
		KindDeactivate,
		KindReactivate,
		KindRemoveRole,
	}
}

// Topic derives the lane topic name for a configured prefix.
func (k Kind) Topic(prefix string) string {
	return prefix + "." + string(k)
}

// Job is the unit of work placed on a lane; immutable once published.
// Exactly one payload field must be set, matching Kind — a tagged union
// rather than a family of near-duplicate publish shapes.
type Job struct {
	Kind        Kind   `json:"kind"`
	UploadID    string `json:"upload_id"`
	RowNumber   int    `json:"row_number"`
	ProgressKey string `json:"progress_key"`

	Create    *CreatePayload    `json:"create,omitempty"`
	Register  *RegisterPayload  `json:"register,omitempty"`
	Role      *RolePayload      `json:"role,omitempty"`
	Lifecycle *LifecyclePayload `json:"lifecycle,omitempty"`
}

// CreatePayload creates the identity row in the relational store.
type CreatePayload struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

// RegisterPayload submits an existing identity to the external ledger.
// OwnerID selects the signing credential in key custody.
type RegisterPayload struct {
	IdentityID string `json:"identity_id"`
	OwnerID    string `json:"owner_id"`
}

// RolePayload assigns or removes a role on an existing identity.
type RolePayload struct {
	IdentityID string `json:"identity_id"`
	Role       string `json:"role,omitempty"`
}

// LifecyclePayload deactivates or reactivates an existing identity.
type LifecyclePayload struct {
	IdentityID string `json:"identity_id"`
}

// Key is the idempotency key carried as the record key: uploadID plus
// row number identifies a logical unit of work across redeliveries.
func (j Job) Key() string {
	return fmt.Sprintf("%s:%d", j.UploadID, j.RowNumber)
}

// Validate checks the kind/payload pairing.
func (j Job) Validate() error {
	if j.UploadID == "" {
		return errors.New("job missing upload id")
	}
	if j.RowNumber < 1 {
		return fmt.Errorf("job row number %d is not 1-based", j.RowNumber)
	}
	switch j.Kind {
	case KindCreateIdentity:
		if j.Create == nil {
			return errors.New("create-identity job missing create payload")
		}
	case KindRegisterLedger:
		if j.Register == nil {
			return errors.New("register-ledger job missing register payload")
		}
	case KindAssignRole, KindRemoveRole:
		if j.Role == nil {
			return fmt.Errorf("%s job missing role payload", j.Kind)
		}
	case KindDeactivate, KindReactivate:
		if j.Lifecycle == nil {
			return fmt.Errorf("%s job missing lifecycle payload", j.Kind)
		}
	default:
		return fmt.Errorf("unknown job kind %q", j.Kind)
	}
	return nil
}

// Encode serializes the job for publishing.
func (j Job) Encode() ([]byte, error) {
	if err := j.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(j)
}

// DecodeJob parses and validates a consumed job payload.
func DecodeJob(data []byte) (Job, error) {
	var j Job
	if err := json.Unmarshal(data, &j); err != nil {
		return Job{}, fmt.Errorf("decode job: %w", err)
	}
	if err := j.Validate(); err != nil {
		return Job{}, err
	}
	return j, nil
}
