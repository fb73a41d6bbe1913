// Package column turns decoded JSON rows into Arrow columns.
//
// Each field of the target schema gets one Accumulator, chosen once by a
// switch over the closed set of supported kinds. The accumulator holds its
// concrete Arrow builder and a per-kind coercion function, so appending a value
// never inspects the builder's type at run time:
//
//	accs, err := column.Dispatch(mem, schema)
//	for each row:
//	    for i, f := range schema.Fields() { v, ok := obj[f.Name]; accs[i].Stage(row, v, ok) }
//	    commit all, or discard all when any Stage failed
//	rec, err := column.Assemble(schema, accs)
package column

import (
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
)

// Kind is the closed set of column types the converter supports.
type Kind uint8

const (
	Int8 Kind = iota + 1
	Int16
	Int32
	Int64
	Float16
	Float32
	Float64
	Bool
	Text
	LargeText
)

var kindNames = [...]string{
	Int8:      "int8",
	Int16:     "int16",
	Int32:     "int32",
	Int64:     "int64",
	Float16:   "float16",
	Float32:   "float32",
	Float64:   "float64",
	Bool:      "bool",
	Text:      "utf8",
	LargeText: "large_utf8",
}

// Kinds lists every supported kind in declaration order.
var Kinds = []Kind{Int8, Int16, Int32, Int64, Float16, Float32, Float64, Bool, Text, LargeText}

func (k Kind) String() string {
	if k > 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsInteger reports whether k is one of the signed integer kinds.
func (k Kind) IsInteger() bool { return k >= Int8 && k <= Int64 }

// IsFloat reports whether k is one of the floating point kinds.
func (k Kind) IsFloat() bool { return k >= Float16 && k <= Float64 }

// IsText reports whether k stores UTF-8 text.
func (k Kind) IsText() bool { return k == Text || k == LargeText }

// DataType returns the Arrow type of k.
func (k Kind) DataType() arrow.DataType {
	switch k {
	case Int8:
		return arrow.PrimitiveTypes.Int8
	case Int16:
		return arrow.PrimitiveTypes.Int16
	case Int32:
		return arrow.PrimitiveTypes.Int32
	case Int64:
		return arrow.PrimitiveTypes.Int64
	case Float16:
		return arrow.FixedWidthTypes.Float16
	case Float32:
		return arrow.PrimitiveTypes.Float32
	case Float64:
		return arrow.PrimitiveTypes.Float64
	case Bool:
		return arrow.FixedWidthTypes.Boolean
	case Text:
		return arrow.BinaryTypes.String
	case LargeText:
		return arrow.BinaryTypes.LargeString
	}
	return nil
}

// KindOf maps an Arrow type to its kind. ok is false for every type outside
// the supported set.
func KindOf(dt arrow.DataType) (k Kind, ok bool) {
	if dt == nil {
		return 0, false
	}
	switch dt.ID() {
	case arrow.INT8:
		return Int8, true
	case arrow.INT16:
		return Int16, true
	case arrow.INT32:
		return Int32, true
	case arrow.INT64:
		return Int64, true
	case arrow.FLOAT16:
		return Float16, true
	case arrow.FLOAT32:
		return Float32, true
	case arrow.FLOAT64:
		return Float64, true
	case arrow.BOOL:
		return Bool, true
	case arrow.STRING:
		return Text, true
	case arrow.LARGE_STRING:
		return LargeText, true
	}
	return 0, false
}

// ParseKind maps a type name to a kind. Names are case-insensitive; aliases
// are accepted for booleans and text.
func ParseKind(name string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "int8":
		return Int8, true
	case "int16":
		return Int16, true
	case "int32":
		return Int32, true
	case "int64":
		return Int64, true
	case "float16", "halffloat":
		return Float16, true
	case "float32", "float":
		return Float32, true
	case "float64", "double":
		return Float64, true
	case "bool", "boolean":
		return Bool, true
	case "utf8", "string", "text":
		return Text, true
	case "large_utf8", "large_string", "large_text":
		return LargeText, true
	}
	return 0, false
}
