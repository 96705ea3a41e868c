package batch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "enrolld/pkg/domain-errors"
)

func TestParseRoster(t *testing.T) {
	input := strings.Join([]string{
		"email,full_name,role",
		"jane.doe@example.edu,Jane Doe,instructor",
		"john@example.edu,,",
		"ada_lovelace@example.edu,,admin",
	}, "\n")

	rows, err := ParseRoster(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, RosterRow{RowNumber: 1, Email: "jane.doe@example.edu", FullName: "Jane Doe", Role: "instructor"}, rows[0])

	// Missing name derived from the email local part, missing role
	// defaults to student.
	assert.Equal(t, "John User", rows[1].FullName)
	assert.Equal(t, "student", rows[1].Role)

	assert.Equal(t, "Ada Lovelace", rows[2].FullName)
	assert.Equal(t, "admin", rows[2].Role)
}

func TestParseRoster_HeaderOrderIndependent(t *testing.T) {
	input := "role,email\ninstructor,jane@example.edu\n"
	rows, err := ParseRoster(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "jane@example.edu", rows[0].Email)
	assert.Equal(t, "instructor", rows[0].Role)
}

func TestParseRoster_Errors(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"empty file", ""},
		{"missing email column", "full_name,role\nJane,admin\n"},
		{"header only", "email,full_name,role\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseRoster(strings.NewReader(tc.input))
			require.Error(t, err)
			assert.Equal(t, dErrors.CodeInvalidInput, dErrors.CodeOf(err))
		})
	}
}

func TestParseRoster_RowNumbersAreSourceOrder(t *testing.T) {
	input := "email\na@example.edu\nb@example.edu\nc@example.edu\n"
	rows, err := ParseRoster(strings.NewReader(input))
	require.NoError(t, err)
	for i, row := range rows {
		assert.Equal(t, i+1, row.RowNumber)
	}
}
