package batch

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"enrolld/pkg/email"
	dErrors "enrolld/pkg/domain-errors"
)

// RosterRow is one parsed line of an uploaded roster. RowNumber is
// 1-based and matches source order.
type RosterRow struct {
	RowNumber int
	Email     string
	FullName  string
	Role      string
}

// ParseRoster reads a CSV roster: header "email,full_name,role" with
// full_name and role optional. Missing names are derived from the email
// local part; missing roles default to student.
func ParseRoster(r io.Reader) ([]RosterRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "roster is empty")
	}
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInvalidInput, "read roster header", err)
	}
	cols := columnIndex(header)
	if _, ok := cols["email"]; !ok {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "roster header missing email column")
	}

	var rows []RosterRow
	rowNumber := 0
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, dErrors.Wrap(dErrors.CodeInvalidInput, fmt.Sprintf("read roster row %d", rowNumber+1), err)
		}
		rowNumber++

		row := RosterRow{
			RowNumber: rowNumber,
			Email:     strings.TrimSpace(field(fields, cols, "email")),
			FullName:  strings.TrimSpace(field(fields, cols, "full_name")),
			Role:      strings.ToLower(strings.TrimSpace(field(fields, cols, "role"))),
		}
		if row.FullName == "" && row.Email != "" {
			first, last := email.DeriveNameFromEmail(row.Email)
			row.FullName = first + " " + last
		}
		if row.Role == "" {
			row.Role = "student"
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "roster has no data rows")
	}
	return rows, nil
}

func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return cols
}

func field(fields []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(fields) {
		return ""
	}
	return fields[i]
}
