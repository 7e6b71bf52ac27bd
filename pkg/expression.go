package pkg

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Coefficients maps a variable name to its coefficient in a linear expression.
type Coefficients = map[string]float64

// Expression is a linear combination of decision variables plus a constant.
// An Expression is immutable: Add, AddTerm and Scale return new values and
// never modify their receiver, so a sub-expression can be shared freely
// between constraints, goals and the cost term.
type Expression struct {
	terms    Coefficients
	constant float64
}

// NewExpression returns the empty expression (no terms, zero constant).
func NewExpression() Expression {
	return Expression{terms: make(Coefficients)}
}

// Constant returns an expression holding only the constant c.
func Constant(c float64) Expression {
	return Expression{terms: make(Coefficients), constant: c}
}

// Term returns an expression with the single term coefficient*variable.
func Term(v Variable, coefficient float64) Expression {
	return Expression{terms: Coefficients{v.Name: coefficient}}
}

// Add returns the sum of two expressions. A variable appearing on both sides
// has its coefficients summed, never overwritten.
func (e Expression) Add(other Expression) Expression {
	merged := make(Coefficients, len(e.terms)+len(other.terms))

	for name, coefficient := range e.terms {
		merged[name] += coefficient
	}

	for name, coefficient := range other.terms {
		merged[name] += coefficient
	}

	return Expression{terms: merged, constant: e.constant + other.constant}
}

// AddTerm returns a copy of the expression with coefficient*variable added.
func (e Expression) AddTerm(v Variable, coefficient float64) Expression {
	return e.Add(Term(v, coefficient))
}

// Scale returns the expression multiplied by the scalar k.
func (e Expression) Scale(k float64) Expression {
	scaled := make(Coefficients, len(e.terms))

	for name, coefficient := range e.terms {
		scaled[name] = k * coefficient
	}

	return Expression{terms: scaled, constant: k * e.constant}
}

// Coefficient returns the coefficient of the named variable, or 0 when the
// expression does not reference it.
func (e Expression) Coefficient(name string) float64 {
	return e.terms[name]
}

// Coefficients returns a copy of the expression's variable coefficients.
func (e Expression) Coefficients() Coefficients {
	c := make(Coefficients, len(e.terms))

	for name, coefficient := range e.terms {
		c[name] = coefficient
	}

	return c
}

// ConstantTerm returns the expression's constant.
func (e Expression) ConstantTerm() float64 {
	return e.constant
}

// Eval sums coefficient*value over all referenced variables plus the
// constant. Every referenced variable must be present in values.
func (e Expression) Eval(values map[string]float64) (float64, error) {
	sum := e.constant

	for name, coefficient := range e.terms {
		value, ok := values[name]
		if !ok {
			return 0, errors.Wrapf(ErrUnknownVariable, "evaluating %q", name)
		}

		sum += coefficient * value
	}

	return sum, nil
}

func (e Expression) String() string {
	names := make([]string, 0, len(e.terms))

	for name := range e.terms {
		names = append(names, name)
	}

	sort.Strings(names)

	parts := make([]string, 0, len(names)+1)

	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%g*%s", e.terms[name], name))
	}

	if e.constant != 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%g", e.constant))
	}

	return strings.Join(parts, " + ")
}
