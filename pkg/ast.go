package imp

// Node families are closed: only types in this file implement them.

type Expr interface {
	expr()
}

type Condition interface {
	condition()
}

type Command interface {
	command()
}

type ArithOp string

const (
	ArithAddition       ArithOp = "+"
	ArithSubtraction    ArithOp = "-"
	ArithMultiplication ArithOp = "*"
	ArithDivision       ArithOp = "/"
)

type CompareOp string

const (
	CompareEqual        CompareOp = "=="
	CompareNotEqual     CompareOp = "!="
	CompareGreaterEqual CompareOp = ">="
	CompareLessEqual    CompareOp = "<="
	CompareGreater      CompareOp = ">"
	CompareLess         CompareOp = "<"
)

// Expressions

type Constant struct {
	Value float64
}

type Variable struct {
	Name string
}

type AddSub struct {
	Operation ArithOp
	Op1       Expr
	Op2       Expr
}

type MultDiv struct {
	Operation ArithOp
	Op1       Expr
	Op2       Expr
}

type UnaryMinus struct {
	Operand Expr
}

type IDArray struct {
	Name     string
	Accessor Expr
}

func (*Constant) expr()   {}
func (*Variable) expr()   {}
func (*AddSub) expr()     {}
func (*MultDiv) expr()    {}
func (*UnaryMinus) expr() {}
func (*IDArray) expr()    {}

// Conditions

type Compare struct {
	Op1 Expr
	Op2 Expr
}

type Unequal struct {
	Op1 Expr
	Op2 Expr
}

type Comparison struct {
	Operation CompareOp
	Op1       Expr
	Op2       Expr
}

type AndCondition struct {
	C1 Condition
	C2 Condition
}

type OrCondition struct {
	C1 Condition
	C2 Condition
}

type NotCondition struct {
	C Condition
}

func (*Compare) condition()      {}
func (*Unequal) condition()      {}
func (*Comparison) condition()   {}
func (*AndCondition) condition() {}
func (*OrCondition) condition()  {}
func (*NotCondition) condition() {}

// Commands

type NOP struct{}

type Sequence struct {
	C1 Command
	C2 Command
}

type Assignment struct {
	Name  string
	Value Expr
}

type AssignArray struct {
	Name     string
	Accessor Expr
	Value    Expr
}

type Output struct {
	Value Expr
}

type IfThen struct {
	Cond Condition
	Body Command
}

type While struct {
	Cond Condition
	Body Command
}

type ForLoop struct {
	Name  string
	Start float64
	End   Expr
	Body  Command
}

func (*NOP) command()         {}
func (*Sequence) command()    {}
func (*Assignment) command()  {}
func (*AssignArray) command() {}
func (*Output) command()      {}
func (*IfThen) command()      {}
func (*While) command()       {}
func (*ForLoop) command()     {}

// Program chains cmds into right-leaning Sequences ending in a NOP.
func Program(cmds ...Command) Command {
	var program Command = &NOP{}
	for i := len(cmds) - 1; i >= 0; i-- {
		program = &Sequence{C1: cmds[i], C2: program}
	}

	return program
}
