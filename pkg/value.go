package imp

import (
	"math"
	"strconv"
	"strings"
)

type Type int

const (
	TypeNone Type = iota
	TypeDouble
	TypeBool
)

func (t Type) String() string {
	switch t {
	case TypeDouble:
		return "double"
	case TypeBool:
		return "bool"
	default:
		return "none"
	}
}

// Value is the runtime result of an expression. Only the payload matching
// Kind is meaningful.
type Value struct {
	Kind Type
	D    float64
	B    bool
}

func Double(d float64) Value {
	return Value{Kind: TypeDouble, D: d}
}

func Bool(b bool) Value {
	return Value{Kind: TypeBool, B: b}
}

func (v Value) Equals(v2 Value) bool {
	if v.Kind != v2.Kind {
		return false
	}

	if v.Kind == TypeBool {
		return v.B == v2.B
	}

	return v.D == v2.D
}

func (v Value) String() string {
	if v.Kind == TypeBool {
		return strconv.FormatBool(v.B)
	}

	return formatDouble(v.D)
}

// formatDouble renders d the way the language has always printed numbers:
// at least one fractional digit, scientific notation outside [1e-3, 1e7).
func formatDouble(d float64) string {
	switch {
	case math.IsNaN(d):
		return "NaN"
	case math.IsInf(d, 1):
		return "Infinity"
	case math.IsInf(d, -1):
		return "-Infinity"
	case d == 0:
		if math.Signbit(d) {
			return "-0.0"
		}
		return "0.0"
	}

	abs := math.Abs(d)
	if abs >= 1e-3 && abs < 1e7 {
		s := strconv.FormatFloat(d, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	}

	mant, exp, _ := strings.Cut(strconv.FormatFloat(d, 'E', -1, 64), "E")
	if !strings.Contains(mant, ".") {
		mant += ".0"
	}

	n, err := strconv.Atoi(exp)
	if err != nil {
		return mant + "E" + exp
	}

	return mant + "E" + strconv.Itoa(n)
}
