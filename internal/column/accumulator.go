package column

import (
	"errors"
	"fmt"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/float16"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"fastjsonl/internal/rowerr"
)

// Accumulator collects the values of one target column.
//
// Rows are appended in two phases. Stage resolves a value and keeps it
// pending; Commit appends the pending value; Discard drops it. A row that
// fails in any column is discarded in every column, so rejected rows never
// leave partial entries behind.
type Accumulator interface {
	Name() string
	Kind() Kind

	// Required reports whether missing keys and nulls are rejected; see
	// RequiredKey.
	Required() bool

	// Stage resolves v for row. present is false when the key is absent from
	// the row object.
	Stage(row int, v any, present bool) error
	Commit()
	Discard()

	// Append stages and commits in one step.
	Append(row int, v any, present bool) error

	Len() int
	Reserve(n int)

	// NewArray finalizes the accumulated values and resets the accumulator.
	NewArray() arrow.Array
	Release()
}

// builder is the subset of the Arrow builder API shared by every concrete
// builder the accumulators use.
type builder[T any] interface {
	Append(T)
	AppendNull()
	Reserve(int)
	Len() int
	NewArray() arrow.Array
	Release()
}

type accumulator[T any] struct {
	name     string
	kind     Kind
	required bool
	b        builder[T]
	coerce   func(any) (T, error)

	staged  bool
	null    bool
	pending T
}

func newAccumulator[T any](f arrow.Field, kind Kind, b builder[T], coerce func(any) (T, error)) *accumulator[T] {
	return &accumulator[T]{name: f.Name, kind: kind, required: Required(f), b: b, coerce: coerce}
}

func (a *accumulator[T]) Name() string   { return a.name }
func (a *accumulator[T]) Kind() Kind     { return a.kind }
func (a *accumulator[T]) Required() bool { return a.required }
func (a *accumulator[T]) Len() int       { return a.b.Len() }
func (a *accumulator[T]) Reserve(n int)  { a.b.Reserve(n) }
func (a *accumulator[T]) Release()       { a.b.Release() }

func (a *accumulator[T]) NewArray() arrow.Array {
	a.Discard()
	return a.b.NewArray()
}

func (a *accumulator[T]) Stage(row int, v any, present bool) error {
	a.Discard()
	if !present || v == nil {
		if a.required {
			return &rowerr.Error{
				Kind:     rowerr.KindType,
				Row:      row,
				Column:   a.name,
				Expected: a.kind.String(),
				Actual:   "null",
				Message:  fmt.Sprintf("column is required, got %s", missing(present)),
			}
		}
		a.null, a.staged = true, true
		return nil
	}

	x, err := a.coerce(v)
	if err != nil {
		return a.typeError(row, err)
	}
	a.pending, a.staged = x, true
	return nil
}

func (a *accumulator[T]) Commit() {
	if !a.staged {
		return
	}
	if a.null {
		a.b.AppendNull()
	} else {
		a.b.Append(a.pending)
	}
	a.Discard()
}

func (a *accumulator[T]) Discard() {
	var zero T
	a.pending, a.null, a.staged = zero, false, false
}

func (a *accumulator[T]) Append(row int, v any, present bool) error {
	if err := a.Stage(row, v, present); err != nil {
		return err
	}
	a.Commit()
	return nil
}

func (a *accumulator[T]) typeError(row int, err error) error {
	var m *mismatch
	if !errors.As(err, &m) {
		return &rowerr.Error{Kind: rowerr.KindType, Row: row, Column: a.name, Expected: a.kind.String(), Message: err.Error(), Err: err}
	}
	e := rowerr.Type(row, a.name, a.kind.String(), m.actual)
	if m.detail != "" {
		e.Message = m.detail
	}
	return e
}

func missing(present bool) string {
	if present {
		return "null"
	}
	return "missing key"
}

// Dispatch returns one empty accumulator per field of schema, in field order.
// A field whose type is outside the supported set is a schema type error
// naming the column; it is reported before any row is read.
func Dispatch(mem memory.Allocator, schema *arrow.Schema) ([]Accumulator, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	if schema == nil {
		return nil, rowerr.New(rowerr.KindSchemaType, rowerr.NoRow, "target schema is nil")
	}

	accs := make([]Accumulator, 0, schema.NumFields())
	for _, f := range schema.Fields() {
		acc, err := New(mem, f)
		if err != nil {
			ReleaseAll(accs)
			return nil, err
		}
		accs = append(accs, acc)
	}
	return accs, nil
}

// New returns the accumulator for a single field.
func New(mem memory.Allocator, f arrow.Field) (Accumulator, error) {
	kind, ok := KindOf(f.Type)
	if !ok {
		typ := "<nil>"
		if f.Type != nil {
			typ = f.Type.String()
		}
		return nil, &rowerr.Error{
			Kind:    rowerr.KindSchemaType,
			Row:     rowerr.NoRow,
			Column:  f.Name,
			Actual:  typ,
			Message: "unsupported column type " + typ,
		}
	}

	switch kind {
	case Int8:
		return newAccumulator(f, kind, builder[int8](array.NewInt8Builder(mem)), intCoercer[int8](kind, math.MinInt8, math.MaxInt8)), nil
	case Int16:
		return newAccumulator(f, kind, builder[int16](array.NewInt16Builder(mem)), intCoercer[int16](kind, math.MinInt16, math.MaxInt16)), nil
	case Int32:
		return newAccumulator(f, kind, builder[int32](array.NewInt32Builder(mem)), intCoercer[int32](kind, math.MinInt32, math.MaxInt32)), nil
	case Int64:
		return newAccumulator(f, kind, builder[int64](array.NewInt64Builder(mem)), intCoercer[int64](kind, math.MinInt64, math.MaxInt64)), nil
	case Float16:
		return newAccumulator(f, kind, builder[float16.Num](array.NewFloat16Builder(mem)), float16Coercer), nil
	case Float32:
		return newAccumulator(f, kind, builder[float32](array.NewFloat32Builder(mem)), float32Coercer), nil
	case Float64:
		return newAccumulator(f, kind, builder[float64](array.NewFloat64Builder(mem)), float64Coercer), nil
	case Bool:
		return newAccumulator(f, kind, builder[bool](array.NewBooleanBuilder(mem)), boolCoercer), nil
	case Text:
		return newAccumulator(f, kind, builder[string](array.NewStringBuilder(mem)), textCoercer), nil
	case LargeText:
		return newAccumulator(f, kind, builder[string](array.NewLargeStringBuilder(mem)), textCoercer), nil
	}
	return nil, rowerr.New(rowerr.KindInternal, rowerr.NoRow, "no accumulator for kind %s", kind)
}

// ReleaseAll releases every accumulator in accs.
func ReleaseAll(accs []Accumulator) {
	for _, a := range accs {
		a.Release()
	}
}
