package fieldbook

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoFieldBook is returned when no worksheet carries the field book headers.
	ErrNoFieldBook = errors.New("no worksheet with the Punto/Distancia/Atras/Intermedia/Adelante headers")
	// ErrNoObservations is returned when the header row is followed by no data.
	ErrNoObservations = errors.New("field book has no observation rows")
	// ErrTooManyRows is returned when a field book exceeds ReadOptions.MaxRows.
	ErrTooManyRows = errors.New("field book exceeds the maximum number of rows")
	// ErrNegativeDistance is returned for a partial distance below zero.
	ErrNegativeDistance = errors.New("partial distance must not be negative")
	// ErrNotNumeric is returned for a reading that is not a number.
	ErrNotNumeric = errors.New("value is not numeric")
)

// MissingColumnError reports input columns absent from the header row.
type MissingColumnError struct {
	Sheet   string
	Columns []string
}

// Error implements the error interface
func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("sheet %q is missing columns: %s", e.Sheet, strings.Join(e.Columns, ", "))
}

// CellError locates an unreadable cell.
type CellError struct {
	Sheet  string
	Cell   string
	Column Column
	Value  string
	Err    error
}

// Error implements the error interface
func (e *CellError) Error() string {
	return fmt.Sprintf("%s!%s (%s) %q: %v", e.Sheet, e.Cell, e.Column, e.Value, e.Err)
}

// Unwrap returns the underlying error
func (e *CellError) Unwrap() error {
	return e.Err
}
