package pkg

import (
	"math"

	"github.com/lanl/clp"
	"github.com/pkg/errors"
)

// Status is a solver-reported outcome. Non-optimal statuses are part of the
// normal structured result, not errors: the caller decides how to react.
type Status string

const (
	StatusOptimal    Status = "Optimal"
	StatusInfeasible Status = "Infeasible"
	StatusUnbounded  Status = "Unbounded"
	StatusError      Status = "Error"
)

// Column declares one variable of a Program.
type Column struct {
	Name  string
	Lower float64
	Upper float64
	Type  VarType
}

// Row declares one linear constraint of a Program. Coefficients are keyed by
// column name; any expression constant has already been folded into RHS.
type Row struct {
	Name         string
	Coefficients Coefficients
	Sense        ConstraintSense
	RHS          float64
}

// Program is a complete minimization problem handed to a Solver: ordered
// column declarations, rows, and an objective over the columns.
type Program struct {
	Columns           []Column
	Rows              []Row
	Objective         Coefficients
	ObjectiveConstant float64
}

// Solution is the raw outcome returned by a Solver. Values and Objective are
// present iff the solver found a solution.
type Solution struct {
	Status    Status
	Values    map[string]float64
	Objective *float64
}

// Solver is the pluggable adapter that solves an assembled Program.
// Implementations must treat the Program as read-only.
type Solver interface {
	Solve(program Program) (Solution, error)
}

// ClpSolver solves Programs with the COIN-OR CLP primal simplex. CLP is a
// pure LP code: Integer and Binary columns are rejected, never silently
// relaxed. A ClpSolver holds no state and may be shared across models.
type ClpSolver struct{}

// NewClpSolver returns the default CLP-backed solver adapter.
func NewClpSolver() ClpSolver {
	return ClpSolver{}
}

func (ClpSolver) Solve(program Program) (Solution, error) {
	index := make(map[string]int, len(program.Columns))
	objective := make([]float64, len(program.Columns))
	bounds := make([][2]float64, len(program.Columns))

	for i, column := range program.Columns {
		if column.Type != Continuous {
			return Solution{Status: StatusError},
				errors.Errorf("clp: column %q is %s, only continuous columns are supported", column.Name, column.Type)
		}

		index[column.Name] = i
		bounds[i] = [2]float64{column.Lower, column.Upper}
	}

	for name, coefficient := range program.Objective {
		i, ok := index[name]
		if !ok {
			return Solution{Status: StatusError},
				errors.Wrapf(ErrUnknownVariable, "clp: objective references undeclared column %q", name)
		}

		objective[i] = coefficient
	}

	ninf := math.Inf(-1)
	pinf := math.Inf(1)

	// Each dense row is {lower, coefficients..., upper} per the clp API.
	rows := make([][]float64, 0, len(program.Rows))

	for _, r := range program.Rows {
		row := make([]float64, len(program.Columns)+2)

		for name, coefficient := range r.Coefficients {
			i, ok := index[name]
			if !ok {
				return Solution{Status: StatusError},
					errors.Wrapf(ErrUnknownVariable, "clp: constraint %q references undeclared column %q", r.Name, name)
			}

			row[i+1] = coefficient
		}

		lower, upper := ninf, pinf

		switch r.Sense {
		case LE:
			upper = r.RHS
		case GE:
			lower = r.RHS
		case EQ:
			lower, upper = r.RHS, r.RHS
		default:
			return Solution{Status: StatusError}, errors.Wrapf(ErrInvalidSense, "clp: constraint %q", r.Name)
		}

		row[0] = lower
		row[len(row)-1] = upper
		rows = append(rows, row)
	}

	simp := clp.NewSimplex()
	simp.SetOptimizationDirection(clp.Minimize)
	simp.EasyLoadDenseProblem(objective, bounds, rows)

	status := simp.Primal(clp.NoValuesPass, clp.NoStartFinishOptions)

	switch status {
	case clp.Optimal:
	case clp.Infeasible:
		return Solution{Status: StatusInfeasible}, nil
	case clp.Unbounded:
		return Solution{Status: StatusUnbounded}, nil
	default:
		return Solution{Status: StatusError}, nil
	}

	columnValues := simp.PrimalColumnSolution()
	values := make(map[string]float64, len(program.Columns))
	objectiveValue := program.ObjectiveConstant

	for i, column := range program.Columns {
		values[column.Name] = columnValues[i]
		objectiveValue += objective[i] * columnValues[i]
	}

	return Solution{Status: StatusOptimal, Values: values, Objective: &objectiveValue}, nil
}
