package pkg

import (
	"github.com/pkg/errors"
)

// VarType describes the domain of a decision variable.
type VarType string

const (
	Continuous VarType = "Continuous"
	Integer    VarType = "Integer"
	Binary     VarType = "Binary"
)

var (
	// ErrDuplicateName reports a variable, constraint or goal name collision.
	ErrDuplicateName = errors.New("duplicate name")
	// ErrUnknownVariable reports a reference to a variable that was never
	// created in this model.
	ErrUnknownVariable = errors.New("unknown variable")
)

// Variable is a named decision variable with bounds and a type. Unbounded
// directions are expressed with math.Inf.
type Variable struct {
	Name  string
	Lower float64
	Upper float64
	Type  VarType
}

func validateVarType(t VarType) error {
	switch t {
	case Continuous, Integer, Binary:
		return nil
	}

	return errors.Errorf("invalid variable type %q", t)
}

// variableRegistry owns every variable of one model, user-declared and
// synthesized alike, in insertion order. Names are never reused or replaced.
type variableRegistry struct {
	byName map[string]Variable
	order  []string
}

func newVariableRegistry() *variableRegistry {
	return &variableRegistry{byName: make(map[string]Variable)}
}

func (r *variableRegistry) create(name string, varType VarType, lower, upper float64) (Variable, error) {
	if name == "" {
		return Variable{}, errors.New("variable name must not be empty")
	}

	if err := validateVarType(varType); err != nil {
		return Variable{}, err
	}

	if _, ok := r.byName[name]; ok {
		return Variable{}, errors.Wrapf(ErrDuplicateName, "variable %q", name)
	}

	v := Variable{Name: name, Lower: lower, Upper: upper, Type: varType}
	r.byName[name] = v
	r.order = append(r.order, name)

	return v, nil
}

func (r *variableRegistry) lookup(name string) (Variable, error) {
	v, ok := r.byName[name]
	if !ok {
		return Variable{}, errors.Wrapf(ErrUnknownVariable, "variable %q", name)
	}

	return v, nil
}

func (r *variableRegistry) exists(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// names returns the registered variable names in insertion order.
func (r *variableRegistry) names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)

	return names
}

func (r *variableRegistry) count() int {
	return len(r.order)
}
