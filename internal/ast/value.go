package ast

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is a sealed interface representing literal types in a tree.
// Only Null, String, Int, and Bool implement this.
// NO Float - float literals break rendering determinism.
type Value interface {
	literal() // Sealed - only these types implement it
}

// Null represents an absent literal (FIELD == null).
type Null struct{}

func (Null) literal() {}

// String represents a string literal. Regex patterns are strings too.
type String string

func (String) literal() {}

// Int represents an integer literal. Always int64, never float64.
type Int int64

func (Int) literal() {}

// Bool represents a boolean literal.
type Bool bool

func (Bool) literal() {}

// Text returns the raw text of a value: the unquoted string for String,
// the decimal form for Int, true/false for Bool and "null" for Null.
// Used where a value is matched against index terms.
func Text(v Value) string {
	switch val := v.(type) {
	case String:
		return string(val)
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Bool:
		return strconv.FormatBool(bool(val))
	default:
		return "null"
	}
}

// renderValue produces the canonical source form of a literal.
func renderValue(v Value) string {
	switch val := v.(type) {
	case String:
		return quote(string(val))
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Bool:
		return strconv.FormatBool(bool(val))
	default:
		return "null"
	}
}

// quote single-quotes s, escaping backslash and quote.
func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for _, r := range normalize(s) {
		if r == '\'' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('\'')
	return b.String()
}

// ValueFromAny converts a decoded JSON or YAML scalar to a Value.
// Rejects floats with a fractional part and non-scalar types.
func ValueFromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return nil, fmt.Errorf("number out of int64 range: %d", val)
		}
		return Int(val), nil
	case json.Number:
		s := string(val)
		if strings.ContainsAny(s, ".eE") {
			return nil, fmt.Errorf("floats are forbidden in literals: %s", s)
		}
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("number out of int64 range: %s", s)
		}
		return Int(n), nil
	case float64:
		if val != math.Trunc(val) || math.IsInf(val, 0) {
			return nil, fmt.Errorf("floats are forbidden in literals: %v", val)
		}
		return Int(int64(val)), nil
	default:
		return nil, fmt.Errorf("unsupported literal type: %T", v)
	}
}

// valueToAny is the inverse of ValueFromAny, used by the wire codec.
func valueToAny(v Value) any {
	switch val := v.(type) {
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Bool:
		return bool(val)
	default:
		return nil
	}
}
