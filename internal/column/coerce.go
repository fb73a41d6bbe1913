package column

import (
	"errors"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/float16"

	pjson "fastjsonl/internal/parser/json"
)

// mismatch is returned by coercion functions. The accumulator turns it into a
// type error carrying the row and column.
type mismatch struct {
	actual string
	detail string
}

func (m *mismatch) Error() string { return m.detail }

func wrongType(v any) *mismatch {
	return &mismatch{actual: pjson.TypeName(v)}
}

var (
	errNotInteger = errors.New("not an integer")
	errOutOfRange = errors.New("out of range")
)

type signed interface {
	~int8 | ~int16 | ~int32 | ~int64
}

// intCoercer accepts JSON numbers that denote an integer in [lo, hi].
func intCoercer[T signed](kind Kind, lo, hi int64) func(any) (T, error) {
	return func(v any) (T, error) {
		n, ok := v.(pjson.Number)
		if !ok {
			return 0, wrongType(v)
		}
		lit := n.String()
		x, err := ParseIntegral(lit)
		switch {
		case errors.Is(err, errNotInteger):
			return 0, &mismatch{actual: lit, detail: "expected " + kind.String() + ", got non-integer number " + lit}
		case err != nil || x < lo || x > hi:
			return 0, &mismatch{actual: lit, detail: "value " + lit + " out of range for " + kind.String()}
		}
		return T(x), nil
	}
}

// ParseIntegral parses a JSON number literal denoting an integer. Literals
// with a fraction or exponent are accepted when their value is exactly
// integral, so 1.0, 1e2 and 12.50e1 parse while 1.5 does not. The result is
// exact; no float64 round trip is involved.
func ParseIntegral(lit string) (int64, error) {
	if n, err := strconv.ParseInt(lit, 10, 64); err == nil {
		return n, nil
	} else if errors.Is(err, strconv.ErrRange) {
		return 0, errOutOfRange
	}

	neg := strings.HasPrefix(lit, "-")
	s := strings.TrimPrefix(lit, "-")

	mant, exp := s, 0
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		mant = s[:i]
		e, err := strconv.Atoi(s[i+1:])
		if err != nil {
			if !errors.Is(err, strconv.ErrRange) {
				return 0, errNotInteger
			}
			if strings.Trim(mant, "0.") == "" {
				return 0, nil
			}
			if strings.HasPrefix(s[i+1:], "-") {
				return 0, errNotInteger
			}
			return 0, errOutOfRange
		}
		exp = e
	}

	intPart, frac := mant, ""
	if i := strings.IndexByte(mant, '.'); i >= 0 {
		intPart, frac = mant[:i], mant[i+1:]
	}
	if intPart == "" && frac == "" {
		return 0, errNotInteger
	}
	digits := strings.TrimLeft(intPart+frac, "0")
	exp -= len(frac)
	if digits == "" {
		return 0, nil
	}
	for exp < 0 && strings.HasSuffix(digits, "0") {
		digits = digits[:len(digits)-1]
		exp++
	}
	if exp < 0 {
		return 0, errNotInteger
	}
	if len(digits)+exp > 19 {
		return 0, errOutOfRange
	}
	digits += strings.Repeat("0", exp)
	if neg {
		digits = "-" + digits
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, errOutOfRange
	}
	return n, nil
}

// parseFloat parses a number literal at the given precision. Literals beyond
// the precision's range become +/-Inf, like an IEEE conversion.
func parseFloat(v any, bits int) (float64, error) {
	n, ok := v.(pjson.Number)
	if !ok {
		return 0, wrongType(v)
	}
	f, err := strconv.ParseFloat(n.String(), bits)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, &mismatch{actual: n.String(), detail: "invalid number " + n.String()}
	}
	return f, nil
}

func float64Coercer(v any) (float64, error) { return parseFloat(v, 64) }

func float32Coercer(v any) (float32, error) {
	f, err := parseFloat(v, 32)
	return float32(f), err
}

func float16Coercer(v any) (float16.Num, error) {
	f, err := parseFloat(v, 32)
	if err != nil {
		return float16.Num{}, err
	}
	return float16.New(float32(f)), nil
}

func boolCoercer(v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, wrongType(v)
	}
	return b, nil
}

// textCoercer stores strings verbatim and every other JSON value as its
// canonical JSON text.
func textCoercer(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	s, err := pjson.Text(v)
	if err != nil {
		return "", &mismatch{actual: pjson.TypeName(v), detail: err.Error()}
	}
	return s, nil
}
