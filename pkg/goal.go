package pkg

import (
	"github.com/pkg/errors"
)

// Weight describes a nonnegative deviation penalty.
type Weight = float64

// GoalSense determines which deviation directions a goal penalizes.
type GoalSense string

const (
	// Attain penalizes deviation on both sides of the target.
	Attain GoalSense = "Attain"
	// MinimizeUnder penalizes under-achievement only: reach at least the target.
	MinimizeUnder GoalSense = "MinimizeUnder"
	// MinimizeOver penalizes over-achievement only: stay at or below the target.
	MinimizeOver GoalSense = "MinimizeOver"
)

// ErrInvalidWeight reports a negative goal weight.
var ErrInvalidWeight = errors.New("invalid weight")

func validateGoalSense(sense GoalSense) error {
	switch sense {
	case Attain, MinimizeUnder, MinimizeOver:
		return nil
	}

	return errors.Wrapf(ErrInvalidSense, "goal sense %q", sense)
}

// WeightPair holds a goal's under- and over-deviation penalty weights.
type WeightPair struct {
	Under Weight
	Over  Weight
}

// Goal is a soft linear target: an expression, a target value, a
// deviation-penalty sense and per-direction weights. Registering a goal on a
// model synthesizes its two deviation variables and its linking constraint.
type Goal struct {
	Name        string
	Expression  Expression
	Target      float64
	Sense       GoalSense
	WeightUnder Weight
	WeightOver  Weight
	// Priority orders preemptive solves; lower values are satisfied first.
	Priority int
}

// NewGoal builds a goal with weight 1 on both deviation directions and
// priority 1.
func NewGoal(name string, expression Expression, target float64, sense GoalSense) (Goal, error) {
	return NewGoalWithWeights(name, expression, target, sense, 1, 1)
}

// NewWeightedGoal builds a goal with the same weight on both directions.
func NewWeightedGoal(name string, expression Expression, target float64, sense GoalSense, weight Weight) (Goal, error) {
	return NewGoalWithWeights(name, expression, target, sense, weight, weight)
}

// NewGoalWithWeights builds a goal with asymmetric per-direction weights.
func NewGoalWithWeights(name string, expression Expression, target float64, sense GoalSense, weightUnder, weightOver Weight) (Goal, error) {
	if name == "" {
		return Goal{}, errors.New("goal name must not be empty")
	}

	if err := validateGoalSense(sense); err != nil {
		return Goal{}, err
	}

	if weightUnder < 0 || weightOver < 0 {
		return Goal{}, errors.Wrapf(ErrInvalidWeight, "goal %q weights (%g, %g)", name, weightUnder, weightOver)
	}

	return Goal{
		Name:        name,
		Expression:  expression,
		Target:      target,
		Sense:       sense,
		WeightUnder: weightUnder,
		WeightOver:  weightOver,
		Priority:    1,
	}, nil
}

// UnderVariableName is the name of the goal's under-deviation variable.
func (g Goal) UnderVariableName() string {
	return "n_" + g.Name
}

// OverVariableName is the name of the goal's over-deviation variable.
func (g Goal) OverVariableName() string {
	return "p_" + g.Name
}

// linkingConstraintName is the reserved name of the synthesized equality
// tying the goal's expression and deviation pair to its target.
func (g Goal) linkingConstraintName() string {
	return "goal_link_" + g.Name
}

// effectiveWeights maps the supplied weight pair through the goal's sense.
// The direction a one-sided sense leaves unpenalized gets weight 0: its
// deviation variable still exists, so the linking equation stays well-posed,
// but deviating that way costs nothing.
func (g Goal) effectiveWeights(weightUnder, weightOver Weight) (Weight, Weight) {
	switch g.Sense {
	case MinimizeUnder:
		return weightUnder, 0
	case MinimizeOver:
		return 0, weightOver
	}

	return weightUnder, weightOver
}
