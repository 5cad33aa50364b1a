package imp

import (
	"errors"
	"fmt"
)

// InterpreterError is the fatal result of checking or running a program.
// There is no recovery: the driver reports it and terminates.
type InterpreterError interface {
	error
	interpreterError()
}

type UndefinedVariableError struct {
	Name string
}

func (e *UndefinedVariableError) Error() string {
	return "Variable not defined: " + e.Name
}

func (e *UndefinedVariableError) interpreterError() {}

type TypeMismatchError struct {
	Node     string
	Expected Type
	Got      Type
	Reason   string
}

func (e *TypeMismatchError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", e.Node, e.Reason)
	}

	return fmt.Sprintf("%s: expected %s, got %s", e.Node, e.Expected, e.Got)
}

func (e *TypeMismatchError) interpreterError() {}

func mismatch(node string, expected, got Type) *TypeMismatchError {
	return &TypeMismatchError{
		Node:     node,
		Expected: expected,
		Got:      got,
	}
}

// IsInterpreterError reports whether err, or anything it wraps, is an
// InterpreterError.
func IsInterpreterError(err error) bool {
	var ie InterpreterError
	return errors.As(err, &ie)
}
