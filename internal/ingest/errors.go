package ingest

import (
	"errors"
	"fmt"
)

var (
	// ErrSkipRow marks a row that is not actionable (other site, no confirmed
	// shipping date). It is never reported to the caller.
	ErrSkipRow = errors.New("row skipped")

	ErrMalformedWorkbook        = errors.New("invalid workbook")
	ErrMissingConfirmedShipping = errors.New("line has no confirmed shipping date")
)

type ReferenceKind string

const (
	ReferenceBuyer   ReferenceKind = "buyer"
	ReferencePlanner ReferenceKind = "planner"
)

// UnresolvedReferenceError: a row points at a buyer or planner code that is
// not in the lookup tables
type UnresolvedReferenceError struct {
	Kind ReferenceKind
	Code string
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("unknown %s code %q", e.Kind, e.Code)
}

// MalformedCellError: a cell could not be converted to the type its column requires
type MalformedCellError struct {
	Column string
	Value  string
	Err    error
}

func (e *MalformedCellError) Error() string {
	return fmt.Sprintf("column %s: cannot convert %q: %v", e.Column, e.Value, e.Err)
}

func (e *MalformedCellError) Unwrap() error {
	return e.Err
}

// ValidationError: the upload was rejected before any import work started
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// RowError ties a fatal row-level error to its 1-based sheet row.
type RowError struct {
	Row int
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}
