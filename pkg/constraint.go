package pkg

import (
	"github.com/pkg/errors"
)

// ConstraintSense describes the relation between a constraint's expression
// and its right-hand side.
type ConstraintSense string

const (
	LE ConstraintSense = "<="
	GE ConstraintSense = ">="
	EQ ConstraintSense = "=="
)

// ErrInvalidSense reports a constraint or goal sense outside the closed set.
var ErrInvalidSense = errors.New("invalid sense")

func validateConstraintSense(sense ConstraintSense) error {
	switch sense {
	case LE, GE, EQ:
		return nil
	}

	return errors.Wrapf(ErrInvalidSense, "constraint sense %q", sense)
}

// Constraint is a hard linear relation that must hold in every feasible
// solution. It is an immutable declaration; the model submits it to the
// solver adapter verbatim.
type Constraint struct {
	Name       string
	Expression Expression
	Sense      ConstraintSense
	RHS        float64
}

// NewConstraint builds a hard constraint, validating the sense and the name.
// Name uniqueness is a model-wide invariant checked by Model.AddConstraint.
func NewConstraint(name string, expression Expression, sense ConstraintSense, rhs float64) (Constraint, error) {
	if name == "" {
		return Constraint{}, errors.New("constraint name must not be empty")
	}

	if err := validateConstraintSense(sense); err != nil {
		return Constraint{}, err
	}

	return Constraint{Name: name, Expression: expression, Sense: sense, RHS: rhs}, nil
}
