package imp

import (
	"fmt"
	"log/slog"
)

// Checker assigns static types to a program without running it. It never
// touches an Environment, so checking a program has no observable effect.
//
// Variables are pinned to the type of their first assignment in program
// order. Arrays are homogeneous: the element type is pinned by the first
// write to any element. Accessors that are constant expressions are folded
// so that a[2] and a variable named a2 share a slot, as they do at runtime.
type Checker struct {
	stab   *SymbolTable
	logger *slog.Logger
}

func NewChecker(logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}

	return &Checker{
		stab:   NewSymbolTable(),
		logger: logger,
	}
}

// Check types cmd against a fresh symbol table.
func (c *Checker) Check(cmd Command) (Type, error) {
	c.stab = NewSymbolTable()
	return c.command(cmd)
}

func (c *Checker) Symbols() *SymbolTable {
	return c.stab.Copy()
}

func (c *Checker) command(cmd Command) (Type, error) {
	switch e := cmd.(type) {
	case *NOP:
	case *Sequence:
		if _, err := c.command(e.C1); err != nil {
			return TypeNone, err
		}

		if _, err := c.command(e.C2); err != nil {
			return TypeNone, err
		}
	case *Assignment:
		t, err := c.resolve(e.Value)
		if err != nil {
			return TypeNone, err
		}

		if err := c.pin("Assignment", e.Name, t); err != nil {
			return TypeNone, err
		}
	case *AssignArray:
		return c.assignArray(e)
	case *Output:
		if _, err := c.resolve(e.Value); err != nil {
			return TypeNone, err
		}
	case *IfThen:
		if _, err := c.condition(e.Cond); err != nil {
			return TypeNone, err
		}

		if _, err := c.command(e.Body); err != nil {
			return TypeNone, err
		}
	case *While:
		if _, err := c.condition(e.Cond); err != nil {
			return TypeNone, err
		}

		if _, err := c.command(e.Body); err != nil {
			return TypeNone, err
		}
	case *ForLoop:
		if err := c.pin("ForLoop", e.Name, TypeDouble); err != nil {
			return TypeNone, err
		}

		if err := c.expect("ForLoop", e.End, TypeDouble); err != nil {
			return TypeNone, err
		}

		if _, err := c.command(e.Body); err != nil {
			return TypeNone, err
		}
	default:
		return TypeNone, fmt.Errorf("unknown command %T", cmd)
	}

	return TypeNone, nil
}

func (c *Checker) assignArray(e *AssignArray) (Type, error) {
	if err := c.expect("AssignArray", e.Accessor, TypeDouble); err != nil {
		return TypeNone, err
	}

	t, err := c.resolve(e.Value)
	if err != nil {
		return TypeNone, err
	}

	if idx, ok := fold(e.Accessor); ok {
		if err := c.pin("AssignArray", arrayKey(e.Name, idx), t); err != nil {
			return TypeNone, err
		}
	}

	if err := c.pin("AssignArray", elementSlot(e.Name), t); err != nil {
		return TypeNone, err
	}

	return t, nil
}

func (c *Checker) pin(node, name string, t Type) error {
	if prev := c.stab.Get(name); prev != TypeNone && prev != t {
		return &TypeMismatchError{
			Node:     node,
			Expected: prev,
			Got:      t,
			Reason:   fmt.Sprintf("%s is %s, cannot assign %s", name, prev, t),
		}
	}

	c.logger.Debug("pin", slog.String("name", name), slog.String("type", t.String()))
	c.stab.Add(name, t)
	return nil
}

func (c *Checker) expect(node string, expr Expr, want Type) error {
	t, err := c.resolve(expr)
	if err != nil {
		return err
	}

	if t != want {
		return mismatch(node, want, t)
	}

	return nil
}

func (c *Checker) resolve(expr Expr) (Type, error) {
	switch e := expr.(type) {
	case *Constant:
		return TypeDouble, nil
	case *Variable:
		if t := c.stab.Get(e.Name); t != TypeNone {
			return t, nil
		}

		return TypeNone, &UndefinedVariableError{Name: e.Name}
	case *AddSub:
		return c.arithmetic("AddSub", e.Op1, e.Op2)
	case *MultDiv:
		return c.arithmetic("MultDiv", e.Op1, e.Op2)
	case *UnaryMinus:
		if err := c.expect("UnaryMinus", e.Operand, TypeDouble); err != nil {
			return TypeNone, err
		}

		return TypeDouble, nil
	case *IDArray:
		if err := c.expect("IDArray", e.Accessor, TypeDouble); err != nil {
			return TypeNone, err
		}

		if idx, ok := fold(e.Accessor); ok {
			if t := c.stab.Get(arrayKey(e.Name, idx)); t != TypeNone {
				return t, nil
			}
		}

		if t := c.stab.Get(elementSlot(e.Name)); t != TypeNone {
			return t, nil
		}

		return TypeNone, &UndefinedVariableError{Name: e.Name}
	}

	return TypeNone, fmt.Errorf("unknown expression %T", expr)
}

func (c *Checker) arithmetic(node string, x1, x2 Expr) (Type, error) {
	t1, err := c.resolve(x1)
	if err != nil {
		return TypeNone, err
	}

	t2, err := c.resolve(x2)
	if err != nil {
		return TypeNone, err
	}

	if t1 != TypeDouble {
		return TypeNone, mismatch(node, TypeDouble, t1)
	}

	if t2 != TypeDouble {
		return TypeNone, mismatch(node, TypeDouble, t2)
	}

	return TypeDouble, nil
}

func (c *Checker) condition(cond Condition) (Type, error) {
	switch e := cond.(type) {
	case *Compare:
		return c.sameType("Compare", e.Op1, e.Op2)
	case *Unequal:
		return c.sameType("Unequal", e.Op1, e.Op2)
	case *Comparison:
		if _, err := c.arithmetic("Comparison", e.Op1, e.Op2); err != nil {
			return TypeNone, err
		}
	case *AndCondition:
		return c.conditions(e.C1, e.C2)
	case *OrCondition:
		return c.conditions(e.C1, e.C2)
	case *NotCondition:
		return c.condition(e.C)
	default:
		return TypeNone, fmt.Errorf("unknown condition %T", cond)
	}

	return TypeBool, nil
}

func (c *Checker) conditions(c1, c2 Condition) (Type, error) {
	if _, err := c.condition(c1); err != nil {
		return TypeNone, err
	}

	return c.condition(c2)
}

func (c *Checker) sameType(node string, x1, x2 Expr) (Type, error) {
	t1, err := c.resolve(x1)
	if err != nil {
		return TypeNone, err
	}

	t2, err := c.resolve(x2)
	if err != nil {
		return TypeNone, err
	}

	if t1 != t2 {
		return TypeNone, &TypeMismatchError{
			Node:     node,
			Expected: t1,
			Got:      t2,
			Reason:   fmt.Sprintf("expressions must be of same type, got %s and %s", t1, t2),
		}
	}

	return TypeBool, nil
}

// fold evaluates expr if it is built from constants only.
func fold(expr Expr) (float64, bool) {
	switch e := expr.(type) {
	case *Constant:
		return e.Value, true
	case *UnaryMinus:
		d, ok := fold(e.Operand)
		return -d, ok
	case *AddSub:
		d1, ok1 := fold(e.Op1)
		d2, ok2 := fold(e.Op2)
		if !ok1 || !ok2 {
			return 0, false
		}

		if e.Operation == ArithAddition {
			return d1 + d2, true
		}

		return d1 - d2, true
	case *MultDiv:
		d1, ok1 := fold(e.Op1)
		d2, ok2 := fold(e.Op2)
		if !ok1 || !ok2 {
			return 0, false
		}

		if e.Operation == ArithMultiplication {
			return d1 * d2, true
		}

		return d1 / d2, true
	}

	return 0, false
}

// elementSlot names the array-wide entry; brackets keep it apart from
// any variable name.
func elementSlot(name string) string {
	return name + "[]"
}

type SymbolTable struct {
	Entries map[string]Type
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		Entries: make(map[string]Type),
	}
}

func (t *SymbolTable) Add(name string, typ Type) {
	t.Entries[name] = typ
}

func (t *SymbolTable) Get(name string) Type {
	typ, contains := t.Entries[name]
	if !contains {
		return TypeNone
	}

	return typ
}

func (t *SymbolTable) Copy() *SymbolTable {
	t2 := NewSymbolTable()
	for k, v := range t.Entries {
		t2.Entries[k] = v
	}

	return t2
}
