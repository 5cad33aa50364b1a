package imp

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func c(d float64) *Constant {
	return &Constant{Value: d}
}

func v(name string) *Variable {
	return &Variable{Name: name}
}

func newTestEvaluator(opts ...EvaluatorOption) (*Evaluator, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return NewEvaluator(append([]EvaluatorOption{WithOutput(out)}, opts...)...), out
}

func TestEvalArithmetic(t *testing.T) {
	cases := []struct {
		expr   Expr
		expect float64
	}{
		{&AddSub{ArithAddition, c(1.5), c(2)}, 3.5},
		{&AddSub{ArithSubtraction, c(1.5), c(2)}, -0.5},
		{&MultDiv{ArithMultiplication, c(3), c(-4)}, -12},
		{&MultDiv{ArithDivision, c(7), c(2)}, 3.5},
		{&UnaryMinus{c(4)}, -4},
		{&UnaryMinus{&UnaryMinus{c(4)}}, 4},
		{&AddSub{ArithAddition, &MultDiv{ArithMultiplication, c(2), c(3)}, c(1)}, 7},
	}

	for _, tc := range cases {
		e, _ := newTestEvaluator()
		got, err := e.Eval(NewEnvironment(), tc.expr)
		require.NoError(t, err)
		assert.Equal(t, Double(tc.expect), got)
	}
}

func TestEvalDivisionByZero(t *testing.T) {
	e, _ := newTestEvaluator()
	env := NewEnvironment()

	got, err := e.Eval(env, &MultDiv{ArithDivision, c(1), c(0)})
	require.NoError(t, err)
	assert.True(t, math.IsInf(got.D, 1))

	got, err = e.Eval(env, &MultDiv{ArithDivision, c(-1), c(0)})
	require.NoError(t, err)
	assert.True(t, math.IsInf(got.D, -1))

	got, err = e.Eval(env, &MultDiv{ArithDivision, c(0), c(0)})
	require.NoError(t, err)
	assert.Equal(t, TypeDouble, got.Kind)
	assert.True(t, math.IsNaN(got.D))
}

func TestAssignmentAndVariable(t *testing.T) {
	e, _ := newTestEvaluator()
	env := NewEnvironment()

	require.NoError(t, e.Exec(env, &Assignment{"x", c(5)}))

	got, err := e.Eval(env, v("x"))
	require.NoError(t, err)
	assert.Equal(t, Double(5), got)
}

func TestUndefinedVariable(t *testing.T) {
	e, _ := newTestEvaluator()

	_, err := e.Eval(NewEnvironment(), v("z"))
	require.Error(t, err)

	var undefined *UndefinedVariableError
	require.ErrorAs(t, err, &undefined)
	assert.Equal(t, "z", undefined.Name)
	assert.Equal(t, "Variable not defined: z", err.Error())
	assert.True(t, IsInterpreterError(err))
}

func TestArrays(t *testing.T) {
	e, _ := newTestEvaluator()
	env := NewEnvironment()

	require.NoError(t, e.Exec(env, &AssignArray{"a", c(2), c(9)}))

	cases := []struct {
		accessor Expr
		expect   Value
	}{
		{c(2), Double(9)},
		{c(2.6), Double(9)},
		{&AddSub{ArithAddition, c(1), c(1.9)}, Double(9)},
	}

	for _, tc := range cases {
		got, err := e.Eval(env, &IDArray{"a", tc.accessor})
		require.NoError(t, err)
		assert.Equal(t, tc.expect, got)
	}

	// elements share the flat namespace
	got, err := e.Eval(env, v("a2"))
	require.NoError(t, err)
	assert.Equal(t, Double(9), got)

	_, err = e.Eval(env, &IDArray{"a", c(3)})
	var undefined *UndefinedVariableError
	require.ErrorAs(t, err, &undefined)
	assert.Equal(t, "a3", undefined.Name)
}

func TestAssignArrayKey(t *testing.T) {
	e, _ := newTestEvaluator()
	env := NewEnvironment()
	env.Set("i", Double(1))

	require.NoError(t, e.Exec(env, &AssignArray{"a", v("i"), &AddSub{ArithAddition, v("i"), c(10)}}))

	got, err := env.Get("a1")
	require.NoError(t, err)
	assert.Equal(t, Double(11), got)
}

func TestWhile(t *testing.T) {
	e, _ := newTestEvaluator()
	env := NewEnvironment()
	env.Set("i", Double(0))
	env.Set("runs", Double(0))

	loop := &While{
		Cond: &Comparison{CompareLess, v("i"), c(3)},
		Body: Program(
			&Assignment{"i", &AddSub{ArithAddition, v("i"), c(1)}},
			&Assignment{"runs", &AddSub{ArithAddition, v("runs"), c(1)}},
		),
	}
	require.NoError(t, e.Exec(env, loop))

	i, _ := env.Get("i")
	runs, _ := env.Get("runs")
	assert.Equal(t, Double(3), i)
	assert.Equal(t, Double(3), runs)
}

func TestForLoopOutput(t *testing.T) {
	e, out := newTestEvaluator()
	env := NewEnvironment()

	require.NoError(t, e.Exec(env, &ForLoop{"i", 0, c(3), &Output{v("i")}}))

	assert.Equal(t, "0.0\n1.0\n2.0\n", out.String())
	i, _ := env.Get("i")
	assert.Equal(t, Double(3), i)
}

func TestForLoopRereadsEnd(t *testing.T) {
	e, out := newTestEvaluator()
	env := NewEnvironment()
	env.Set("n", Double(2))

	// every pass raises the bound until it reaches 4
	body := Program(
		&Output{v("i")},
		&IfThen{&Comparison{CompareLess, v("n"), c(4)}, &Assignment{"n", &AddSub{ArithAddition, v("n"), c(1)}}},
	)
	require.NoError(t, e.Exec(env, &ForLoop{"i", 0, v("n"), body}))

	assert.Equal(t, "0.0\n1.0\n2.0\n3.0\n", out.String())
}

func TestForLoopCounterMutatedByBody(t *testing.T) {
	e, out := newTestEvaluator()
	env := NewEnvironment()

	body := Program(&Output{v("i")}, &Assignment{"i", &AddSub{ArithAddition, v("i"), c(1)}})
	require.NoError(t, e.Exec(env, &ForLoop{"i", 0, c(5), body}))

	assert.Equal(t, "0.0\n2.0\n4.0\n", out.String())
}

func TestForLoopCounterRebound(t *testing.T) {
	e, _ := newTestEvaluator()
	env := NewEnvironment()

	body := &Assignment{"i", &Variable{"flag"}}
	env.Set("flag", Bool(true))

	err := e.Exec(env, &ForLoop{"i", 0, c(5), body})
	var mismatch *TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "ForLoop", mismatch.Node)
}

func TestIfThen(t *testing.T) {
	cases := []struct {
		cond   Condition
		expect string
	}{
		{&Comparison{CompareGreater, c(2), c(1)}, "1.0\n"},
		{&Comparison{CompareGreater, c(1), c(2)}, ""},
	}

	for _, tc := range cases {
		e, out := newTestEvaluator()
		require.NoError(t, e.Exec(NewEnvironment(), &IfThen{tc.cond, &Output{c(1)}}))
		assert.Equal(t, tc.expect, out.String())
	}
}

func TestComparison(t *testing.T) {
	cases := []struct {
		op     CompareOp
		d1, d2 float64
		expect bool
	}{
		{CompareEqual, 1, 1, true},
		{CompareEqual, 1, 2, false},
		{CompareNotEqual, 1, 2, true},
		{CompareGreaterEqual, 2, 2, true},
		{CompareLessEqual, 3, 2, false},
		{CompareGreater, 3, 2, true},
		{CompareLess, 3, 2, false},
		{CompareOp("<>"), 1, 2, false},
	}

	for _, tc := range cases {
		e, _ := newTestEvaluator()
		got, err := e.Test(NewEnvironment(), &Comparison{tc.op, c(tc.d1), c(tc.d2)})
		require.NoError(t, err)
		assert.Equal(t, tc.expect, got, "%v %s %v", tc.d1, tc.op, tc.d2)
	}
}

func TestComparisonRejectsBooleans(t *testing.T) {
	e, _ := newTestEvaluator()
	env := NewEnvironment()
	env.Set("b", Bool(true))

	_, err := e.Test(env, &Comparison{CompareLess, v("b"), c(1)})
	var mismatch *TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, TypeBool, mismatch.Got)
}

func TestCompareAndUnequal(t *testing.T) {
	env := NewEnvironment()
	env.Set("t", Bool(true))
	env.Set("f", Bool(false))
	env.Set("one", Double(1))

	cases := []struct {
		x1, x2  Expr
		compare bool
	}{
		{c(1), c(1), true},
		{c(1), c(2), false},
		{v("t"), v("t"), true},
		{v("t"), v("f"), false},
		{v("one"), v("t"), false},
	}

	for _, tc := range cases {
		e, _ := newTestEvaluator()

		got, err := e.Test(env, &Compare{tc.x1, tc.x2})
		require.NoError(t, err)
		assert.Equal(t, tc.compare, got)

		got, err = e.Test(env, &Unequal{tc.x1, tc.x2})
		require.NoError(t, err)
		assert.Equal(t, !tc.compare, got)
	}
}

func TestLogicalConditions(t *testing.T) {
	yes := &Comparison{CompareEqual, c(1), c(1)}
	no := &Comparison{CompareEqual, c(1), c(2)}

	cases := []struct {
		cond   Condition
		expect bool
		legacy bool
	}{
		{&AndCondition{yes, yes}, true, true},
		{&AndCondition{yes, no}, false, false},
		{&AndCondition{no, no}, false, true},
		{&OrCondition{no, no}, false, false},
		{&OrCondition{no, yes}, true, true},
		{&OrCondition{yes, no}, true, true},
		{&NotCondition{no}, true, true},
		{&NotCondition{yes}, false, false},
	}

	for _, tc := range cases {
		e, _ := newTestEvaluator()
		got, err := e.Test(NewEnvironment(), tc.cond)
		require.NoError(t, err)
		assert.Equal(t, tc.expect, got)

		e, _ = newTestEvaluator(WithLegacy(true))
		got, err = e.Test(NewEnvironment(), tc.cond)
		require.NoError(t, err)
		assert.Equal(t, tc.legacy, got)
	}
}

func TestOrConditionShortCircuits(t *testing.T) {
	e, _ := newTestEvaluator()
	env := NewEnvironment()

	// reading an unbound variable is the only observable effect a condition
	// can have, so an evaluated second operand would fail the test
	cond := &OrCondition{
		&Comparison{CompareEqual, c(1), c(1)},
		&Comparison{CompareEqual, v("unbound"), c(1)},
	}

	got, err := e.Test(env, cond)
	require.NoError(t, err)
	assert.True(t, got)

	_, err = e.Test(env, &OrCondition{&NotCondition{cond.C1}, cond.C2})
	assert.Error(t, err)
}

func TestAndConditionEvaluatesBothSides(t *testing.T) {
	e, _ := newTestEvaluator()

	cond := &AndCondition{
		&Comparison{CompareEqual, c(1), c(2)},
		&Comparison{CompareEqual, v("unbound"), c(1)},
	}

	_, err := e.Test(NewEnvironment(), cond)
	var undefined *UndefinedVariableError
	assert.ErrorAs(t, err, &undefined)
}

func TestLegacyCompareMismatch(t *testing.T) {
	env := NewEnvironment()
	env.Set("t", Bool(true))

	e, _ := newTestEvaluator(WithLegacy(true))
	_, err := e.Test(env, &Compare{c(1), v("t")})

	var mismatch *TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "Compare", mismatch.Node)
}

func TestRuntimeTypeMismatch(t *testing.T) {
	env := NewEnvironment()
	env.Set("b", Bool(false))

	cases := []struct {
		expr Expr
		node string
	}{
		{&AddSub{ArithAddition, c(1), v("b")}, "AddSub"},
		{&MultDiv{ArithMultiplication, v("b"), c(1)}, "MultDiv"},
		{&UnaryMinus{v("b")}, "UnaryMinus"},
		{&IDArray{"a", v("b")}, "array index"},
	}

	for _, tc := range cases {
		e, _ := newTestEvaluator()
		_, err := e.Eval(env, tc.expr)

		var mismatch *TypeMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, tc.node, mismatch.Node)
		assert.True(t, IsInterpreterError(err))
	}
}

func TestLeftOperandFirst(t *testing.T) {
	e, _ := newTestEvaluator()

	// both operands are unbound; the reported name shows which ran first
	_, err := e.Eval(NewEnvironment(), &AddSub{ArithAddition, v("left"), v("right")})

	var undefined *UndefinedVariableError
	require.ErrorAs(t, err, &undefined)
	assert.Equal(t, "left", undefined.Name)
}

func TestOutputBooleans(t *testing.T) {
	e, out := newTestEvaluator()
	env := NewEnvironment()
	env.Set("t", Bool(true))

	require.NoError(t, e.Exec(env, Program(&Output{v("t")}, &Output{c(0.5)})))
	assert.Equal(t, "true\n0.5\n", out.String())
}

func TestSequenceOrder(t *testing.T) {
	e, _ := newTestEvaluator()
	env := NewEnvironment()

	program := Program(
		&Assignment{"x", c(1)},
		&Assignment{"x", &MultDiv{ArithMultiplication, v("x"), c(10)}},
		&Assignment{"x", &AddSub{ArithAddition, v("x"), c(2)}},
	)
	require.NoError(t, e.Exec(env, program))

	x, _ := env.Get("x")
	assert.Equal(t, Double(12), x)
}
