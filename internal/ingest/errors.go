package ingest

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindDecode        Kind = "decode_error"
	KindMissingColumn Kind = "missing_column"
	KindParse         Kind = "parse_error"
)

var (
	ErrDecode        = errors.New("upload is not readable CSV text")
	ErrMissingColumn = errors.New("required column missing")
	ErrParse         = errors.New("row could not be parsed")
)

// IngestError reports why an upload was rejected. Line is the 1-based line in
// the file (the header is line 1) and is zero when not tied to a row.
type IngestError struct {
	Kind   Kind
	Column string
	Line   int
	Err    error
}

func (e *IngestError) Error() string {
	msg := string(e.Kind)
	if e.Line > 0 {
		msg += fmt.Sprintf(" at line %d", e.Line)
	}
	if e.Column != "" {
		msg += fmt.Sprintf(" (column %s)", e.Column)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *IngestError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match an IngestError against the kind sentinels.
func (e *IngestError) Is(target error) bool {
	switch target {
	case ErrDecode:
		return e.Kind == KindDecode
	case ErrMissingColumn:
		return e.Kind == KindMissingColumn
	case ErrParse:
		return e.Kind == KindParse
	}
	return false
}

// Message is a short explanation suitable for showing to the uploader.
func (e *IngestError) Message() string {
	switch e.Kind {
	case KindDecode:
		return "The file could not be read as UTF-8 CSV text."
	case KindMissingColumn:
		return fmt.Sprintf("The file is missing required column(s): %s.", e.Column)
	case KindParse:
		if e.Column == "" {
			return fmt.Sprintf("Line %d has the wrong number of fields; nothing was loaded.", e.Line)
		}
		return fmt.Sprintf("Line %d has an invalid %s value; nothing was loaded.", e.Line, e.Column)
	}
	return "The file could not be loaded."
}

func decodeError(line int, err error) *IngestError {
	return &IngestError{Kind: KindDecode, Line: line, Err: err}
}

func parseError(line int, column string, err error) *IngestError {
	return &IngestError{Kind: KindParse, Line: line, Column: column, Err: err}
}
