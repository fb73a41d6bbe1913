// Package rowerr defines the structured error value shared by every stage of
// the NDJSON engine (line reading, decoding, validation, column appending and
// table assembly).
//
// Every failure the engine reports is a *Error carrying:
//
//   - Kind:   which stage failed (see the Kind constants),
//   - Row:    0-based line index, or -1 when the failure is not tied to a row,
//   - Column: target column name for type errors,
//   - Message and the wrapped underlying error, when there is one.
//
// Callers branch on Kind with errors.As or the Is/RowOf helpers; they never
// need to parse message text.
package rowerr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an engine error.
type Kind uint8

const (
	// KindInternal signals an engine invariant violation (a bug, not bad input).
	KindInternal Kind = iota
	// KindCompile: the JSON Schema document is not a valid, supported schema.
	KindCompile
	// KindSchemaType: the target table schema holds an unsupported column type.
	KindSchemaType
	// KindLineRead: the input could not be split into lines (I/O failure).
	KindLineRead
	// KindParse: a line is not valid JSON.
	KindParse
	// KindValidation: a row does not conform to the JSON Schema.
	KindValidation
	// KindShape: the top-level JSON value of a row is not an object.
	KindShape
	// KindType: a field's JSON type or range does not fit its column type.
	KindType
)

var kindNames = [...]string{
	KindInternal:   "internal error",
	KindCompile:    "compile error",
	KindSchemaType: "schema type error",
	KindLineRead:   "line read error",
	KindParse:      "parse error",
	KindValidation: "validation error",
	KindShape:      "shape error",
	KindType:       "type error",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// RowLevel reports whether errors of this kind belong to a single input row
// and may therefore be skipped or collected by a lenient error policy.
func (k Kind) RowLevel() bool {
	switch k {
	case KindParse, KindValidation, KindShape, KindType:
		return true
	default:
		return false
	}
}

// NoRow is the Row value of errors that are not tied to an input line.
const NoRow = -1

// Error is the structured error value returned by the engine.
type Error struct {
	Kind   Kind
	Row    int
	Column string

	// Expected and Actual describe type errors: the column type and the JSON
	// type (or out-of-range value) that was found.
	Expected string
	Actual   string

	// Pointer and Keyword locate validation errors: the JSON pointer of the
	// failing instance value and the schema keyword path that rejected it.
	Pointer string
	Keyword string

	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	switch {
	case e.Row >= 0 && e.Column != "":
		fmt.Fprintf(&b, " (row %d, column %q)", e.Row, e.Column)
	case e.Row >= 0:
		fmt.Fprintf(&b, " (row %d)", e.Row)
	case e.Column != "":
		fmt.Fprintf(&b, " (column %q)", e.Column)
	}
	if e.Pointer != "" {
		fmt.Fprintf(&b, " at %q", e.Pointer)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes the underlying decoder/validator/I-O error, if any.
func (e *Error) Unwrap() error { return e.Err }

// New builds an Error with a formatted message.
func New(kind Kind, row int, format string, args ...any) *Error {
	return &Error{Kind: kind, Row: row, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error around err, using err's text as the message.
func Wrap(kind Kind, row int, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Row: row, Message: err.Error(), Err: err}
}

// Type builds a type error for column col.
func Type(row int, col, expected, actual string) *Error {
	return &Error{
		Kind:     KindType,
		Row:      row,
		Column:   col,
		Expected: expected,
		Actual:   actual,
		Message:  fmt.Sprintf("expected %s, got %s", expected, actual),
	}
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Is reports whether err carries an *Error of the given kind.
func Is(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}

// RowOf returns the row index carried by err, or NoRow.
func RowOf(err error) int {
	if e, ok := As(err); ok {
		return e.Row
	}
	return NoRow
}
