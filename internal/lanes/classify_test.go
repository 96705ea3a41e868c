package lanes

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "enrolld/pkg/domain-errors"
	"enrolld/pkg/platform/sentinel"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Outcome
	}{
		{"nil is success", nil, OutcomeSuccess},
		{"unavailable is transient", sentinel.ErrUnavailable, OutcomeTransient},
		{"wrapped unavailable is transient", fmt.Errorf("ledger call: %w", sentinel.ErrUnavailable), OutcomeTransient},
		{"deadline is transient", context.DeadlineExceeded, OutcomeTransient},
		{"conflict is permanent", sentinel.ErrConflict, OutcomePermanent},
		{"invalid state is permanent", sentinel.ErrInvalidState, OutcomePermanent},
		{"not found is permanent", sentinel.ErrNotFound, OutcomePermanent},
		{"coded unavailable is transient", dErrors.New(dErrors.CodeUnavailable, "queue down"), OutcomeTransient},
		{"coded invalid input is permanent", dErrors.New(dErrors.CodeInvalidInput, "bad row"), OutcomePermanent},
		{"unknown error is transient", errors.New("socket reset"), OutcomeTransient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.err))
		})
	}
}
