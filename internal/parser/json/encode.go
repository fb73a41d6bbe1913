package json

import (
	"strconv"
	"strings"

	gojson "github.com/goccy/go-json"
)

// Text renders a decoded value as the text stored in a text column.
//
// Strings are returned verbatim. Every other value is re-serialized as
// canonical JSON: numbers are normalized by CanonicalNumber, object keys are
// sorted, and HTML characters are not escaped, so equal values always map to
// the same text.
func Text(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case Number:
		return CanonicalNumber(x).String(), nil
	case bool:
		return strconv.FormatBool(x), nil
	case nil:
		return "null", nil
	}
	b, err := gojson.MarshalWithOption(canonical(v), gojson.DisableHTMLEscape())
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CanonicalNumber normalizes a number literal. Integer literals are kept as
// written. Fractional and exponent literals become the shortest decimal that
// parses back to the same float64, with ".0" appended when the result has no
// fraction or exponent: 1.50 is 1.5 and 1e2 is 100.0. Literals beyond the
// float64 range are kept as written.
func CanonicalNumber(n Number) Number {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		return n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return n
	}
	out := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(out, ".e") {
		out += ".0"
	}
	return Number(out)
}

// canonical returns v with every nested number normalized. Containers
// without numbers are still copied; the values here are small row fields.
func canonical(v any) any {
	switch x := v.(type) {
	case Number:
		return CanonicalNumber(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = canonical(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = canonical(e)
		}
		return out
	}
	return v
}
