package test

import (
	"fmt"
	"math/rand"
	"strings"
)

var arithmeticOps = []string{"+", "-", "*", "/"}

// GetRandomArithmetic returns a YAML encoded expression built from small
// integer constants, together with the value it evaluates to. Divisors are
// always non-zero constants.
func GetRandomArithmetic(r *rand.Rand, depth int) (string, float64) {
	if depth <= 0 || r.Intn(4) == 0 {
		c := float64(r.Intn(9) + 1)
		return constant(c), c
	}

	op := arithmeticOps[r.Intn(len(arithmeticOps))]
	left, l := GetRandomArithmetic(r, depth-1)

	switch op {
	case "+":
		right, rv := GetRandomArithmetic(r, depth-1)
		return binary("AddSub", op, left, right), l + rv
	case "-":
		right, rv := GetRandomArithmetic(r, depth-1)
		return binary("AddSub", op, left, right), l - rv
	case "*":
		right, rv := GetRandomArithmetic(r, depth-1)
		return binary("MultDiv", op, left, right), l * rv
	default:
		c := float64(r.Intn(9) + 1)
		return binary("MultDiv", op, left, constant(c)), l / c
	}
}

// GetRandomProgram wraps n random expressions into a Block that assigns
// them to r0..rn-1. The returned slice holds the expected values in order.
func GetRandomProgram(r *rand.Rand, n, depth int) (string, []float64) {
	var src strings.Builder
	src.WriteString("type: Block\ncommands:\n")

	expect := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		expr, v := GetRandomArithmetic(r, depth)
		fmt.Fprintf(&src, "  - {type: Assignment, name: r%d, expr: %s}\n", i, expr)
		expect = append(expect, v)
	}

	return src.String(), expect
}

func constant(c float64) string {
	return fmt.Sprintf("{type: Constant, value: %g}", c)
}

func binary(typ, op, left, right string) string {
	return fmt.Sprintf("{type: %s, op: %q, left: %s, right: %s}", typ, op, left, right)
}
