package column

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"fastjsonl/internal/rowerr"
)

// Assemble finalizes every accumulator and builds a record in schema order.
// The accumulators are reset and may be released afterwards.
//
// Differing column lengths or types mean the engine broke its own
// invariants; they are reported as internal errors instead of panicking in
// array.NewRecord.
func Assemble(schema *arrow.Schema, accs []Accumulator) (arrow.Record, error) {
	if len(accs) != schema.NumFields() {
		return nil, rowerr.New(rowerr.KindInternal, rowerr.NoRow,
			"%d accumulators for %d schema fields", len(accs), schema.NumFields())
	}

	cols := make([]arrow.Array, len(accs))
	for i, a := range accs {
		cols[i] = a.NewArray()
	}
	defer releaseArrays(cols)

	if err := checkColumns(schema, cols); err != nil {
		return nil, err
	}
	return array.NewRecord(schema, cols, rowCount(cols)), nil
}

// Concat joins records with the same schema in order. Zero parts yield an
// empty record; a single part is returned with an extra reference.
func Concat(mem memory.Allocator, schema *arrow.Schema, parts []arrow.Record) (arrow.Record, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	switch len(parts) {
	case 0:
		accs, err := Dispatch(mem, schema)
		if err != nil {
			return nil, err
		}
		defer ReleaseAll(accs)
		return Assemble(schema, accs)
	case 1:
		parts[0].Retain()
		return parts[0], nil
	}

	for i, p := range parts {
		if !p.Schema().Equal(schema) {
			return nil, rowerr.New(rowerr.KindInternal, rowerr.NoRow, "part %d has schema %s, want %s", i, p.Schema(), schema)
		}
	}

	cols := make([]arrow.Array, 0, schema.NumFields())
	defer func() { releaseArrays(cols) }()

	chunk := make([]arrow.Array, len(parts))
	for c := 0; c < schema.NumFields(); c++ {
		for i, p := range parts {
			chunk[i] = p.Column(c)
		}
		joined, err := array.Concatenate(chunk, mem)
		if err != nil {
			return nil, &rowerr.Error{
				Kind:    rowerr.KindInternal,
				Row:     rowerr.NoRow,
				Column:  schema.Field(c).Name,
				Message: fmt.Sprintf("concatenate column: %v", err),
				Err:     err,
			}
		}
		cols = append(cols, joined)
	}

	if err := checkColumns(schema, cols); err != nil {
		return nil, err
	}
	return array.NewRecord(schema, cols, rowCount(cols)), nil
}

func checkColumns(schema *arrow.Schema, cols []arrow.Array) error {
	n := rowCount(cols)
	for i, c := range cols {
		f := schema.Field(i)
		if int64(c.Len()) != n {
			return &rowerr.Error{
				Kind:    rowerr.KindInternal,
				Row:     rowerr.NoRow,
				Column:  f.Name,
				Message: fmt.Sprintf("column has %d rows, want %d", c.Len(), n),
			}
		}
		if !arrow.TypeEqual(f.Type, c.DataType()) {
			return &rowerr.Error{
				Kind:    rowerr.KindInternal,
				Row:     rowerr.NoRow,
				Column:  f.Name,
				Message: fmt.Sprintf("column has type %s, want %s", c.DataType(), f.Type),
			}
		}
	}
	return nil
}

func rowCount(cols []arrow.Array) int64 {
	if len(cols) == 0 {
		return 0
	}
	return int64(cols[0].Len())
}

func releaseArrays(cols []arrow.Array) {
	for _, c := range cols {
		if c != nil {
			c.Release()
		}
	}
}
