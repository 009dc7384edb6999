package data

import (
	"strconv"
)

type valueKind uint8

const (
	kindNull valueKind = iota
	kindNum
	kindStr
)

// Value is a single cell: numeric, string or null.
// The zero Value is null.
type Value struct {
	kind valueKind
	num  float64
	str  string
}

// Null is the missing value.
var Null = Value{}

// Num wraps a float64.
func Num(f float64) Value { return Value{kind: kindNum, num: f} }

// Str wraps a string.
func Str(s string) Value { return Value{kind: kindStr, str: s} }

func (v Value) IsNull() bool    { return v.kind == kindNull }
func (v Value) IsNumeric() bool { return v.kind == kindNum }
func (v Value) IsString() bool  { return v.kind == kindStr }

// Float returns the numeric payload and whether v is numeric.
func (v Value) Float() (float64, bool) {
	if v.kind != kindNum {
		return 0, false
	}
	return v.num, true
}

// Text returns the string payload and whether v is a string.
func (v Value) Text() (string, bool) {
	if v.kind != kindStr {
		return "", false
	}
	return v.str, true
}

// String renders v for previews and CSV output. Null renders as "".
func (v Value) String() string {
	switch v.kind {
	case kindNum:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case kindStr:
		return v.str
	default:
		return ""
	}
}

// Nums builds a column of numeric values.
func Nums(xs ...float64) []Value {
	out := make([]Value, len(xs))
	for i, x := range xs {
		out[i] = Num(x)
	}
	return out
}

// Strs builds a column of string values.
func Strs(xs ...string) []Value {
	out := make([]Value, len(xs))
	for i, x := range xs {
		out[i] = Str(x)
	}
	return out
}
