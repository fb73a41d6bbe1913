// Package json implements the per-line JSON decoding step of the NDJSON
// engine.
//
// Each line is decoded independently and all-or-nothing:
//
//	{"id":1,"name":"a"}
//	{"id":2,"name":"b"}
//
// Numbers are kept as json.Number so that integer columns see the literal the
// producer wrote (no float64 round trip) and text columns can reproduce it
// verbatim. A line that is not exactly one JSON value (empty, truncated, or
// followed by trailing content) is a parse error carrying the line index and
// the decoder's diagnostic unchanged. So is a line that is not valid UTF-8;
// it is rejected rather than decoded with replacement characters.
package json

import (
	"bytes"
	stdjson "encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"unicode/utf8"

	"fastjsonl/internal/config"
	"fastjsonl/internal/rowerr"
)

// Number is the representation of JSON numbers in decoded values.
type Number = stdjson.Number

// ErrBlankLine is returned by Decode for whitespace-only lines when
// Options.AllowBlankLines is set. Callers skip such lines without producing
// a row.
var ErrBlankLine = errors.New("json parser: blank line")

// Options tunes line decoding.
//
//   - "allow_blank_lines" (bool): whitespace-only lines are skipped instead of
//     being reported as parse errors.
//   - "header_map" (object): maps original JSON keys to column names; applied
//     by Canonicalize after validation.
type Options struct {
	AllowBlankLines bool
	HeaderMap       map[string]string
}

// FromConfigOptions constructs Options from the generic parser options bag of
// a job file.
func FromConfigOptions(o config.Options) Options {
	return Options{
		AllowBlankLines: o.Bool("allow_blank_lines", false),
		HeaderMap:       readHeaderMap(o),
	}
}

// Decoder decodes single lines. The zero value is ready to use and a Decoder
// holds no per-line state, so one Decoder may be shared by concurrent chunks.
type Decoder struct {
	opt Options
}

// NewDecoder returns a Decoder using opt.
func NewDecoder(opt Options) *Decoder {
	return &Decoder{opt: opt}
}

// DecodeLine decodes line with default options.
func DecodeLine(row int, line []byte) (any, error) {
	var d Decoder
	return d.Decode(row, line)
}

// Decode parses one line into a generic JSON value:
// nil, bool, Number, string, []any or map[string]any.
func (d *Decoder) Decode(row int, line []byte) (any, error) {
	if d.opt.AllowBlankLines && len(bytes.TrimSpace(line)) == 0 {
		return nil, ErrBlankLine
	}
	if !utf8.Valid(line) {
		return nil, &rowerr.Error{
			Kind:    rowerr.KindParse,
			Row:     row,
			Message: fmt.Sprintf("invalid UTF-8 at byte %d", invalidUTF8(line)),
		}
	}

	dec := stdjson.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &rowerr.Error{
				Kind:    rowerr.KindParse,
				Row:     row,
				Message: "unexpected end of JSON input",
				Err:     io.ErrUnexpectedEOF,
			}
		}
		return nil, rowerr.Wrap(rowerr.KindParse, row, err)
	}

	// Exactly one value per line.
	var extra any
	switch err := dec.Decode(&extra); {
	case errors.Is(err, io.EOF):
	case err != nil:
		return nil, rowerr.Wrap(rowerr.KindParse, row, err)
	default:
		return nil, rowerr.New(rowerr.KindParse, row, "invalid character after top-level value")
	}
	return v, nil
}

// invalidUTF8 returns the offset of the first byte of b that does not start a
// valid UTF-8 sequence.
func invalidUTF8(b []byte) int {
	for i := 0; i < len(b); {
		r, n := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && n == 1 {
			return i
		}
		i += n
	}
	return len(b)
}

// AsObject returns v as an object, or a shape error naming v's JSON type.
func AsObject(row int, v any) (map[string]any, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, &rowerr.Error{
			Kind:    rowerr.KindShape,
			Row:     row,
			Actual:  TypeName(v),
			Message: "top-level JSON value is " + TypeName(v) + ", want object",
		}
	}
	return obj, nil
}

// Canonicalize applies the configured header_map to obj, returning a map
// keyed by column names. Without a header_map obj is returned unchanged.
//
// When several keys land on the same column, a key that is not renamed wins
// over renamed ones, and among renamed keys the smallest original key wins.
func (d *Decoder) Canonicalize(obj map[string]any) map[string]any {
	if len(d.opt.HeaderMap) == 0 {
		return obj
	}
	canon := make(map[string]any, len(obj))
	var renamed []string
	for k, v := range obj {
		if to := d.opt.HeaderMap[k]; to != "" && to != k {
			renamed = append(renamed, k)
			continue
		}
		canon[k] = v
	}
	slices.Sort(renamed)
	for _, k := range renamed {
		to := d.opt.HeaderMap[k]
		if _, taken := canon[to]; !taken {
			canon[to] = obj[k]
		}
	}
	return canon
}

// TypeName returns the JSON type name of a decoded value.
func TypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case Number, float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return "unknown"
	}
}

// readHeaderMap extracts a header_map from parser options, accepting both
// map[string]any (typical when coming from JSON) and map[string]string (when
// constructed in Go code).
func readHeaderMap(opts config.Options) map[string]string {
	raw := opts.Any("header_map")
	if raw == nil {
		return nil
	}

	res := make(map[string]string)
	switch m := raw.(type) {
	case map[string]string:
		for k, v := range m {
			res[k] = v
		}
	case map[string]any:
		for k, v := range m {
			if s, ok := v.(string); ok {
				res[k] = s
			}
		}
	}
	return res
}
