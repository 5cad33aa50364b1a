package imp

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// nodeDisk is the on-disk shape of every AST node. Which fields are used
// depends on Type.
type nodeDisk struct {
	Type     string      `yaml:"type"`
	Name     string      `yaml:"name,omitempty"`
	Op       string      `yaml:"op,omitempty"`
	Value    *float64    `yaml:"value,omitempty"`
	Start    *float64    `yaml:"start,omitempty"`
	Left     *nodeDisk   `yaml:"left,omitempty"`
	Right    *nodeDisk   `yaml:"right,omitempty"`
	Operand  *nodeDisk   `yaml:"operand,omitempty"`
	Index    *nodeDisk   `yaml:"index,omitempty"`
	Expr     *nodeDisk   `yaml:"expr,omitempty"`
	End      *nodeDisk   `yaml:"end,omitempty"`
	Cond     *nodeDisk   `yaml:"cond,omitempty"`
	Body     *nodeDisk   `yaml:"body,omitempty"`
	First    *nodeDisk   `yaml:"first,omitempty"`
	Second   *nodeDisk   `yaml:"second,omitempty"`
	Commands []*nodeDisk `yaml:"commands,omitempty"`

	missing string
}

// LoadProgram reads a YAML encoded AST from path.
func LoadProgram(path string) (Command, error) {
	if path == "" {
		return nil, fmt.Errorf("program: empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("program: resolve %s: %w", path, err)
	}
	file, err := os.Open(abs)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	cmd, err := DecodeProgram(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", abs, err)
	}
	return cmd, nil
}

func DecodeProgram(r io.Reader) (Command, error) {
	var raw nodeDisk
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&raw); err != nil {
		if err == io.EOF {
			return &NOP{}, nil
		}
		return nil, fmt.Errorf("program: parse: %w", err)
	}

	cmd, err := raw.command()
	if err != nil {
		return nil, fmt.Errorf("program: %w", err)
	}
	return cmd, nil
}

func EncodeProgram(w io.Writer, cmd Command) error {
	data, err := commandToDisk(cmd)
	if err != nil {
		return fmt.Errorf("program: %w", err)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("program: marshal: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("program: encoder close: %w", err)
	}

	_, err = w.Write(buf.Bytes())
	return err
}

func (n *nodeDisk) command() (Command, error) {
	switch n.Type {
	case "NOP":
		return &NOP{}, nil
	case "Sequence":
		c1, err := n.First.child("first").command()
		if err != nil {
			return nil, err
		}
		c2, err := n.Second.child("second").command()
		if err != nil {
			return nil, err
		}
		return &Sequence{C1: c1, C2: c2}, nil
	case "Block":
		cmds := make([]Command, 0, len(n.Commands))
		for _, raw := range n.Commands {
			c, err := raw.child("commands").command()
			if err != nil {
				return nil, err
			}
			cmds = append(cmds, c)
		}
		return Program(cmds...), nil
	case "Assignment":
		if err := n.needName(); err != nil {
			return nil, err
		}
		e, err := n.Expr.child("expr").expr()
		if err != nil {
			return nil, err
		}
		return &Assignment{Name: n.Name, Value: e}, nil
	case "AssignArray":
		if err := n.needName(); err != nil {
			return nil, err
		}
		idx, err := n.Index.child("index").expr()
		if err != nil {
			return nil, err
		}
		e, err := n.Expr.child("expr").expr()
		if err != nil {
			return nil, err
		}
		return &AssignArray{Name: n.Name, Accessor: idx, Value: e}, nil
	case "Output":
		e, err := n.Expr.child("expr").expr()
		if err != nil {
			return nil, err
		}
		return &Output{Value: e}, nil
	case "IfThen", "While":
		cond, err := n.Cond.child("cond").condition()
		if err != nil {
			return nil, err
		}
		body, err := n.Body.child("body").command()
		if err != nil {
			return nil, err
		}
		if n.Type == "IfThen" {
			return &IfThen{Cond: cond, Body: body}, nil
		}
		return &While{Cond: cond, Body: body}, nil
	case "ForLoop":
		if err := n.needName(); err != nil {
			return nil, err
		}
		if n.Start == nil {
			return nil, fmt.Errorf("ForLoop: missing start")
		}
		end, err := n.End.child("end").expr()
		if err != nil {
			return nil, err
		}
		body, err := n.Body.child("body").command()
		if err != nil {
			return nil, err
		}
		return &ForLoop{Name: n.Name, Start: *n.Start, End: end, Body: body}, nil
	case "":
		return nil, n.untyped()
	}

	return nil, fmt.Errorf("unknown command %q", n.Type)
}

func (n *nodeDisk) expr() (Expr, error) {
	switch n.Type {
	case "Constant":
		if n.Value == nil {
			return nil, fmt.Errorf("Constant: missing value")
		}
		return &Constant{Value: *n.Value}, nil
	case "Variable":
		if err := n.needName(); err != nil {
			return nil, err
		}
		return &Variable{Name: n.Name}, nil
	case "AddSub", "MultDiv":
		op := ArithOp(n.Op)
		valid := op == ArithAddition || op == ArithSubtraction
		if n.Type == "MultDiv" {
			valid = op == ArithMultiplication || op == ArithDivision
		}
		if !valid {
			return nil, fmt.Errorf("%s: invalid operator %q", n.Type, n.Op)
		}
		e1, e2, err := n.operands()
		if err != nil {
			return nil, err
		}
		if n.Type == "AddSub" {
			return &AddSub{Operation: op, Op1: e1, Op2: e2}, nil
		}
		return &MultDiv{Operation: op, Op1: e1, Op2: e2}, nil
	case "UnaryMinus":
		e, err := n.Operand.child("operand").expr()
		if err != nil {
			return nil, err
		}
		return &UnaryMinus{Operand: e}, nil
	case "IDArray":
		if err := n.needName(); err != nil {
			return nil, err
		}
		idx, err := n.Index.child("index").expr()
		if err != nil {
			return nil, err
		}
		return &IDArray{Name: n.Name, Accessor: idx}, nil
	case "":
		return nil, n.untyped()
	}

	return nil, fmt.Errorf("unknown expression %q", n.Type)
}

func (n *nodeDisk) condition() (Condition, error) {
	switch n.Type {
	case "Compare", "Unequal":
		e1, e2, err := n.operands()
		if err != nil {
			return nil, err
		}
		if n.Type == "Compare" {
			return &Compare{Op1: e1, Op2: e2}, nil
		}
		return &Unequal{Op1: e1, Op2: e2}, nil
	case "Comparison":
		op := CompareOp(n.Op)
		switch op {
		case CompareEqual, CompareNotEqual, CompareGreaterEqual, CompareLessEqual, CompareGreater, CompareLess:
		default:
			return nil, fmt.Errorf("Comparison: invalid operator %q", n.Op)
		}
		e1, e2, err := n.operands()
		if err != nil {
			return nil, err
		}
		return &Comparison{Operation: op, Op1: e1, Op2: e2}, nil
	case "AndCondition", "OrCondition":
		c1, err := n.Left.child("left").condition()
		if err != nil {
			return nil, err
		}
		c2, err := n.Right.child("right").condition()
		if err != nil {
			return nil, err
		}
		if n.Type == "AndCondition" {
			return &AndCondition{C1: c1, C2: c2}, nil
		}
		return &OrCondition{C1: c1, C2: c2}, nil
	case "NotCondition":
		c, err := n.Operand.child("operand").condition()
		if err != nil {
			return nil, err
		}
		return &NotCondition{C: c}, nil
	case "":
		return nil, n.untyped()
	}

	return nil, fmt.Errorf("unknown condition %q", n.Type)
}

func (n *nodeDisk) operands() (Expr, Expr, error) {
	e1, err := n.Left.child("left").expr()
	if err != nil {
		return nil, nil, err
	}
	e2, err := n.Right.child("right").expr()
	if err != nil {
		return nil, nil, err
	}
	return e1, e2, nil
}

func (n *nodeDisk) untyped() error {
	if n.missing != "" {
		return fmt.Errorf("missing %s", n.missing)
	}
	return fmt.Errorf("node without type")
}

func (n *nodeDisk) needName() error {
	if n.Name == "" {
		return fmt.Errorf("%s: missing name", n.Type)
	}
	return nil
}

// child turns a missing field into a node whose decoding reports it.
func (n *nodeDisk) child(field string) *nodeDisk {
	if n == nil {
		return &nodeDisk{missing: field}
	}
	return n
}

func commandToDisk(cmd Command) (*nodeDisk, error) {
	switch c := cmd.(type) {
	case *NOP:
		return &nodeDisk{Type: "NOP"}, nil
	case *Sequence:
		c1, err := commandToDisk(c.C1)
		if err != nil {
			return nil, err
		}
		c2, err := commandToDisk(c.C2)
		if err != nil {
			return nil, err
		}
		return &nodeDisk{Type: "Sequence", First: c1, Second: c2}, nil
	case *Assignment:
		e, err := exprToDisk(c.Value)
		if err != nil {
			return nil, err
		}
		return &nodeDisk{Type: "Assignment", Name: c.Name, Expr: e}, nil
	case *AssignArray:
		idx, err := exprToDisk(c.Accessor)
		if err != nil {
			return nil, err
		}
		e, err := exprToDisk(c.Value)
		if err != nil {
			return nil, err
		}
		return &nodeDisk{Type: "AssignArray", Name: c.Name, Index: idx, Expr: e}, nil
	case *Output:
		e, err := exprToDisk(c.Value)
		if err != nil {
			return nil, err
		}
		return &nodeDisk{Type: "Output", Expr: e}, nil
	case *IfThen:
		return guardedToDisk("IfThen", c.Cond, c.Body)
	case *While:
		return guardedToDisk("While", c.Cond, c.Body)
	case *ForLoop:
		end, err := exprToDisk(c.End)
		if err != nil {
			return nil, err
		}
		body, err := commandToDisk(c.Body)
		if err != nil {
			return nil, err
		}
		start := c.Start
		return &nodeDisk{Type: "ForLoop", Name: c.Name, Start: &start, End: end, Body: body}, nil
	}

	return nil, fmt.Errorf("unknown command %T", cmd)
}

func guardedToDisk(typ string, cond Condition, body Command) (*nodeDisk, error) {
	c, err := conditionToDisk(cond)
	if err != nil {
		return nil, err
	}
	b, err := commandToDisk(body)
	if err != nil {
		return nil, err
	}
	return &nodeDisk{Type: typ, Cond: c, Body: b}, nil
}

func exprToDisk(expr Expr) (*nodeDisk, error) {
	switch e := expr.(type) {
	case *Constant:
		v := e.Value
		return &nodeDisk{Type: "Constant", Value: &v}, nil
	case *Variable:
		return &nodeDisk{Type: "Variable", Name: e.Name}, nil
	case *AddSub:
		return binaryToDisk("AddSub", string(e.Operation), e.Op1, e.Op2)
	case *MultDiv:
		return binaryToDisk("MultDiv", string(e.Operation), e.Op1, e.Op2)
	case *UnaryMinus:
		x, err := exprToDisk(e.Operand)
		if err != nil {
			return nil, err
		}
		return &nodeDisk{Type: "UnaryMinus", Operand: x}, nil
	case *IDArray:
		idx, err := exprToDisk(e.Accessor)
		if err != nil {
			return nil, err
		}
		return &nodeDisk{Type: "IDArray", Name: e.Name, Index: idx}, nil
	}

	return nil, fmt.Errorf("unknown expression %T", expr)
}

func conditionToDisk(cond Condition) (*nodeDisk, error) {
	switch c := cond.(type) {
	case *Compare:
		return binaryToDisk("Compare", "", c.Op1, c.Op2)
	case *Unequal:
		return binaryToDisk("Unequal", "", c.Op1, c.Op2)
	case *Comparison:
		return binaryToDisk("Comparison", string(c.Operation), c.Op1, c.Op2)
	case *AndCondition:
		return junctionToDisk("AndCondition", c.C1, c.C2)
	case *OrCondition:
		return junctionToDisk("OrCondition", c.C1, c.C2)
	case *NotCondition:
		x, err := conditionToDisk(c.C)
		if err != nil {
			return nil, err
		}
		return &nodeDisk{Type: "NotCondition", Operand: x}, nil
	}

	return nil, fmt.Errorf("unknown condition %T", cond)
}

func binaryToDisk(typ, op string, x1, x2 Expr) (*nodeDisk, error) {
	l, err := exprToDisk(x1)
	if err != nil {
		return nil, err
	}
	r, err := exprToDisk(x2)
	if err != nil {
		return nil, err
	}
	return &nodeDisk{Type: typ, Op: op, Left: l, Right: r}, nil
}

func junctionToDisk(typ string, c1, c2 Condition) (*nodeDisk, error) {
	l, err := conditionToDisk(c1)
	if err != nil {
		return nil, err
	}
	r, err := conditionToDisk(c2)
	if err != nil {
		return nil, err
	}
	return &nodeDisk{Type: typ, Left: l, Right: r}, nil
}
