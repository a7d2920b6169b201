package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the parser, the computation pipeline and the
// HTTP layer, which maps them to problem types.
var (
	ErrUnknownVariable    = errors.New("unknown x-axis variable")
	ErrUnsupportedFormat  = errors.New("unsupported export format")
	ErrInvalidColumnSpec  = errors.New("invalid column specification")
	ErrInvalidReadOptions = errors.New("invalid read options")
	ErrSheetNotFound      = errors.New("sheet not found")
	ErrNoData             = errors.New("no data rows found")
	ErrInvalidCell        = errors.New("invalid cell value")
	ErrNonPositiveInput   = errors.New("qc and Rf must be strictly positive")
	ErrLengthMismatch     = errors.New("column lengths differ")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSoundingNotFound   = errors.New("sounding not found")
	ErrTooManySoundings   = errors.New("session sounding limit reached")
	ErrUnsupportedFileExt = errors.New("unsupported spreadsheet type")
)

// ParseError describes why a workbook could not be read. It wraps one of
// the sentinel errors above.
type ParseError struct {
	File   string
	Sheet  string
	Row    int
	Column string
	Err    error
}

func (e *ParseError) Error() string {
	loc := e.File
	if e.Sheet != "" {
		loc += " [" + e.Sheet + "]"
	}
	if e.Row > 0 {
		loc += fmt.Sprintf(" row %d", e.Row)
	}
	if e.Column != "" {
		loc += " column " + e.Column
	}
	return fmt.Sprintf("parse %s: %v", loc, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ComputationError reports a record whose derived value is undefined.
// Index is the 0-based position of the record inside its sounding and Row
// the worksheet row it was read from, 0 when unknown.
type ComputationError struct {
	Sounding string
	Index    int
	Row      int
	Field    string
	Value    float64
	Err      error
}

func (e *ComputationError) Error() string {
	prefix := ""
	if e.Sounding != "" {
		prefix = e.Sounding + ": "
	}
	if e.Row > 0 {
		return fmt.Sprintf("%srow %d: %s=%g: %v", prefix, e.Row, e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("%srecord %d: %s=%g: %v", prefix, e.Index+1, e.Field, e.Value, e.Err)
}

func (e *ComputationError) Unwrap() error { return e.Err }
