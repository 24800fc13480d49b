package core

// parse.go reads identifiers out of an uploaded CSV file.
//
// The file must have a header row with an identifier column. Matching is
// case-insensitive and tolerant of the artifacts spreadsheet exports leave
// behind (surrounding quotes, Excel's ="..." formula wrapper, stray spaces).

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// IdentifierColumns are the accepted header names for the identifier column,
// in order of preference.
var IdentifierColumns = []string{"nic", "nic_number", "nic number", "nic no"}

// ContextCheckInterval is how often (in rows) cancellation is checked.
var ContextCheckInterval = 100

var (
	ErrEmptyFile     = errors.New("empty file")
	ErrMissingColumn = errors.New("missing required column")
	ErrInvalidCSV    = errors.New("invalid csv")
)

// HeaderIndex maps lowercased column names to their position in a row.
type HeaderIndex map[string]int

// MakeHeaderIndex builds a HeaderIndex from a header row. The first
// occurrence of a repeated name wins.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(CleanCell(h))
		if _, seen := idx[key]; !seen {
			idx[key] = i
		}
	}
	return idx
}

// CleanCell trims whitespace, Excel's ="..." wrapper and surrounding quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) && len(s) >= 3 {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.TrimSpace(strings.Trim(s, `"'`))
}

// identifierColumn returns the position of the identifier column.
func identifierColumn(idx HeaderIndex) (int, error) {
	for _, name := range IdentifierColumns {
		if pos, ok := idx[name]; ok {
			return pos, nil
		}
	}
	return 0, fmt.Errorf("%w %q", ErrMissingColumn, IdentifierColumns[0])
}

// scanIdentifiers calls fn with the line number and cleaned identifier of
// every data row. Blank lines are skipped by the CSV reader.
func scanIdentifiers(ctx context.Context, r io.Reader, fn func(line int, identifier string)) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return ErrEmptyFile
	}
	if err != nil {
		return wrapReadError(err)
	}

	col, err := identifierColumn(MakeHeaderIndex(header))
	if err != nil {
		return err
	}

	for rows := 0; ; rows++ {
		if rows%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return wrapReadError(err)
		}

		line, _ := reader.FieldPos(0)
		var cell string
		if col < len(record) {
			cell = CleanCell(record[col])
		}
		fn(line, cell)
	}
}

// wrapReadError tags CSV syntax errors; other errors (size limit, I/O) pass through.
func wrapReadError(err error) error {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return fmt.Errorf("%w: %v", ErrInvalidCSV, err)
	}
	return err
}
