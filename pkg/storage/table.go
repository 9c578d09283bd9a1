package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRows is returned when a table has no rows to render.
	ErrNoRows = errors.New("table has no rows")

	// ErrInvalidTable is returned for tables without a name or columns, or
	// with rows whose width does not match the columns.
	ErrInvalidTable = errors.New("invalid table")
)

// Table is a named set of rows.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]any
}

func (t Table) validate() error {
	if t.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidTable)
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("%w: no columns", ErrInvalidTable)
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("%w: row %d has %d values, want %d", ErrInvalidTable, i, len(row), len(t.Columns))
		}
	}
	return nil
}
