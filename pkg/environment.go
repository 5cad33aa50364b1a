package imp

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Environment is the single global store of a running program. Array
// elements live in the same namespace under synthetic keys, see Array.
type Environment struct {
	vals map[string]Value
}

func NewEnvironment() *Environment {
	return &Environment{
		vals: make(map[string]Value),
	}
}

func (e *Environment) Get(name string) (Value, error) {
	if val, ok := e.vals[name]; ok {
		return val, nil
	}

	return Value{}, &UndefinedVariableError{Name: name}
}

func (e *Environment) Set(name string, val Value) {
	e.vals[name] = val
}

func (e *Environment) Len() int {
	return len(e.vals)
}

func (e *Environment) Names() []string {
	names := make([]string, 0, len(e.vals))
	for name := range e.vals {
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}

func (e *Environment) String() string {
	var str strings.Builder
	for _, name := range e.Names() {
		str.WriteString(name)
		str.WriteString("\t-> ")
		str.WriteString(e.vals[name].String())
		str.WriteString("\n")
	}

	return str.String()
}

func (e *Environment) Array(name string) Array {
	return Array{name: name, env: e}
}

// Array is a view of one array over the flat namespace. Element i of "a" is
// stored under "a" followed by the truncated index, so a[2.6] is "a2".
// No bounds or shape are tracked.
type Array struct {
	name string
	env  *Environment
}

func (a Array) Key(idx float64) string {
	return arrayKey(a.name, idx)
}

func (a Array) Get(idx float64) (Value, error) {
	return a.env.Get(a.Key(idx))
}

func (a Array) Set(idx float64, val Value) {
	a.env.Set(a.Key(idx), val)
}

func arrayKey(name string, idx float64) string {
	return name + strconv.Itoa(truncateIndex(idx))
}

// truncateIndex converts toward zero with 32-bit saturation; NaN maps to 0.
func truncateIndex(idx float64) int {
	switch {
	case math.IsNaN(idx):
		return 0
	case idx >= math.MaxInt32:
		return math.MaxInt32
	case idx <= math.MinInt32:
		return math.MinInt32
	}

	return int(idx)
}
