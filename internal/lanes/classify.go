package lanes

import (
	"context"
	"errors"

	dErrors "enrolld/pkg/domain-errors"
	"enrolld/pkg/platform/sentinel"
)

// Outcome is the explicit success/failure classification that drives
// every acknowledgment decision. Errors are never swallowed into an
// implicit ack.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomePermanent Outcome = "permanent"
	OutcomeTransient Outcome = "transient"
)

// Classify maps a handler error to an outcome. Unknown errors are
// treated as transient: retries are bounded by the max-attempt policy,
// whereas misclassifying a recoverable outage as permanent loses rows.
func Classify(err error) Outcome {
	if err == nil {
		return OutcomeSuccess
	}
	if errors.Is(err, sentinel.ErrUnavailable) ||
		errors.Is(err, context.DeadlineExceeded) {
		return OutcomeTransient
	}
	if errors.Is(err, sentinel.ErrConflict) ||
		errors.Is(err, sentinel.ErrInvalidState) ||
		errors.Is(err, sentinel.ErrNotFound) {
		return OutcomePermanent
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		switch de.Code {
		case dErrors.CodeUnavailable:
			return OutcomeTransient
		default:
			return OutcomePermanent
		}
	}
	return OutcomeTransient
}
