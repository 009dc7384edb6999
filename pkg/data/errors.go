package data

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingColumn is returned when an expected column is absent.
	ErrMissingColumn = errors.New("missing column")
	// ErrColumnType is returned when a column holds values of the wrong kind.
	ErrColumnType = errors.New("unexpected column type")
	// ErrLength is returned when a column does not match the table's row count.
	ErrLength = errors.New("column length mismatch")
)

// ColumnError ties a schema failure to the column that caused it.
type ColumnError struct {
	Column string
	Err    error
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("column %q: %v", e.Column, e.Err)
}

func (e *ColumnError) Unwrap() error { return e.Err }

func missing(name string) error {
	return &ColumnError{Column: name, Err: ErrMissingColumn}
}
