package imp

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

type Evaluator struct {
	out    io.Writer
	logger *slog.Logger
	legacy bool
}

type EvaluatorOption func(*Evaluator)

func WithOutput(w io.Writer) EvaluatorOption {
	return func(e *Evaluator) {
		e.out = w
	}
}

func WithLogger(l *slog.Logger) EvaluatorOption {
	return func(e *Evaluator) {
		e.logger = l
	}
}

// WithLegacy restores the historical condition semantics: AndCondition
// compares its operands for equality, and Compare on values of different
// kinds is fatal.
func WithLegacy(legacy bool) EvaluatorOption {
	return func(e *Evaluator) {
		e.legacy = legacy
	}
}

func NewEvaluator(opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		out:    os.Stdout,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

func (e *Evaluator) Exec(env *Environment, cmd Command) error {
	switch c := cmd.(type) {
	case *NOP:
		return nil
	case *Sequence:
		if err := e.Exec(env, c.C1); err != nil {
			return err
		}

		return e.Exec(env, c.C2)
	case *Assignment:
		v, err := e.Eval(env, c.Value)
		if err != nil {
			return err
		}

		e.logger.Debug("assign", slog.String("name", c.Name), slog.String("value", v.String()))
		env.Set(c.Name, v)
	case *AssignArray:
		idx, err := e.index(env, c.Accessor)
		if err != nil {
			return err
		}

		v, err := e.Eval(env, c.Value)
		if err != nil {
			return err
		}

		arr := env.Array(c.Name)
		e.logger.Debug("assign", slog.String("name", arr.Key(idx)), slog.String("value", v.String()))
		arr.Set(idx, v)
	case *Output:
		v, err := e.Eval(env, c.Value)
		if err != nil {
			return err
		}

		if _, err := fmt.Fprintln(e.out, v); err != nil {
			return fmt.Errorf("output: %w", err)
		}
	case *IfThen:
		ok, err := e.Test(env, c.Cond)
		if err != nil {
			return err
		}

		if ok {
			return e.Exec(env, c.Body)
		}
	case *While:
		for {
			ok, err := e.Test(env, c.Cond)
			if err != nil {
				return err
			}

			if !ok {
				return nil
			}

			if err := e.Exec(env, c.Body); err != nil {
				return err
			}
		}
	case *ForLoop:
		return e.forLoop(env, c)
	default:
		return fmt.Errorf("unknown command %T", cmd)
	}

	return nil
}

func (e *Evaluator) forLoop(env *Environment, c *ForLoop) error {
	env.Set(c.Name, Double(c.Start))

	for iteration := 0; ; iteration++ {
		i, err := e.counter(env, c.Name)
		if err != nil {
			return err
		}

		end, err := e.number(env, "ForLoop", c.End)
		if err != nil {
			return err
		}

		if !(i < end) {
			return nil
		}

		e.logger.Debug("for", slog.String("name", c.Name), slog.Int("iteration", iteration))
		if err := e.Exec(env, c.Body); err != nil {
			return err
		}

		// The body may have reassigned the counter, so re-read it.
		i, err = e.counter(env, c.Name)
		if err != nil {
			return err
		}

		env.Set(c.Name, Double(i+1))
	}
}

func (e *Evaluator) counter(env *Environment, name string) (float64, error) {
	v, err := env.Get(name)
	if err != nil {
		return 0, err
	}

	if v.Kind != TypeDouble {
		return 0, mismatch("ForLoop", TypeDouble, v.Kind)
	}

	return v.D, nil
}

func (e *Evaluator) Eval(env *Environment, expr Expr) (Value, error) {
	switch x := expr.(type) {
	case *Constant:
		return Double(x.Value), nil
	case *Variable:
		return env.Get(x.Name)
	case *AddSub:
		d1, d2, err := e.operands(env, "AddSub", x.Op1, x.Op2)
		if err != nil {
			return Value{}, err
		}

		if x.Operation == ArithAddition {
			return Double(d1 + d2), nil
		}

		return Double(d1 - d2), nil
	case *MultDiv:
		d1, d2, err := e.operands(env, "MultDiv", x.Op1, x.Op2)
		if err != nil {
			return Value{}, err
		}

		if x.Operation == ArithMultiplication {
			return Double(d1 * d2), nil
		}

		return Double(d1 / d2), nil
	case *UnaryMinus:
		d, err := e.number(env, "UnaryMinus", x.Operand)
		if err != nil {
			return Value{}, err
		}

		return Double(-d), nil
	case *IDArray:
		idx, err := e.index(env, x.Accessor)
		if err != nil {
			return Value{}, err
		}

		return env.Array(x.Name).Get(idx)
	}

	return Value{}, fmt.Errorf("unknown expression %T", expr)
}

func (e *Evaluator) Test(env *Environment, cond Condition) (bool, error) {
	switch c := cond.(type) {
	case *Compare:
		v1, v2, err := e.pair(env, c.Op1, c.Op2)
		if err != nil {
			return false, err
		}

		if e.legacy && v1.Kind != v2.Kind {
			return false, &TypeMismatchError{
				Node:   "Compare",
				Reason: fmt.Sprintf("cannot compare %s with %s", v1.Kind, v2.Kind),
			}
		}

		return v1.Equals(v2), nil
	case *Unequal:
		v1, v2, err := e.pair(env, c.Op1, c.Op2)
		if err != nil {
			return false, err
		}

		return !v1.Equals(v2), nil
	case *Comparison:
		d1, d2, err := e.operands(env, "Comparison", c.Op1, c.Op2)
		if err != nil {
			return false, err
		}

		return compareNumbers(c.Operation, d1, d2), nil
	case *AndCondition:
		b1, err := e.Test(env, c.C1)
		if err != nil {
			return false, err
		}

		b2, err := e.Test(env, c.C2)
		if err != nil {
			return false, err
		}

		if e.legacy {
			return b1 == b2, nil
		}

		return b1 && b2, nil
	case *OrCondition:
		b1, err := e.Test(env, c.C1)
		if err != nil || b1 {
			return b1, err
		}

		return e.Test(env, c.C2)
	case *NotCondition:
		b, err := e.Test(env, c.C)
		if err != nil {
			return false, err
		}

		return !b, nil
	}

	return false, fmt.Errorf("unknown condition %T", cond)
}

func compareNumbers(op CompareOp, d1, d2 float64) bool {
	switch op {
	case CompareEqual:
		return d1 == d2
	case CompareNotEqual:
		return d1 != d2
	case CompareGreaterEqual:
		return d1 >= d2
	case CompareLessEqual:
		return d1 <= d2
	case CompareGreater:
		return d1 > d2
	case CompareLess:
		return d1 < d2
	default:
		return false
	}
}

func (e *Evaluator) pair(env *Environment, x1, x2 Expr) (Value, Value, error) {
	v1, err := e.Eval(env, x1)
	if err != nil {
		return Value{}, Value{}, err
	}

	v2, err := e.Eval(env, x2)
	if err != nil {
		return Value{}, Value{}, err
	}

	return v1, v2, nil
}

func (e *Evaluator) operands(env *Environment, node string, x1, x2 Expr) (float64, float64, error) {
	d1, err := e.number(env, node, x1)
	if err != nil {
		return 0, 0, err
	}

	d2, err := e.number(env, node, x2)
	if err != nil {
		return 0, 0, err
	}

	return d1, d2, nil
}

func (e *Evaluator) number(env *Environment, node string, x Expr) (float64, error) {
	v, err := e.Eval(env, x)
	if err != nil {
		return 0, err
	}

	if v.Kind != TypeDouble {
		return 0, mismatch(node, TypeDouble, v.Kind)
	}

	return v.D, nil
}

func (e *Evaluator) index(env *Environment, accessor Expr) (float64, error) {
	return e.number(env, "array index", accessor)
}
