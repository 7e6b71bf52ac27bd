package pkg

import (
	"fmt"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp/cmpopts"
	"gotest.tools/assert"
)

const tolerance = 1e-6

// dietModel builds the two-variable capacity model of the energy scenarios:
// Rice and Dal bounded below by 0, Rice + Dal <= capacity, and one attain
// goal energy = 5*Rice + 10*Dal with target 200.
func dietModel(t *testing.T, capacity float64) *Model {
	m := NewModel("energy")

	rice, err := m.AddVariable("Rice")
	assert.NilError(t, err)
	dal, err := m.AddVariable("Dal")
	assert.NilError(t, err)

	c, err := NewConstraint("capacity", Term(rice, 1).AddTerm(dal, 1), LE, capacity)
	assert.NilError(t, err)
	assert.NilError(t, m.AddConstraint(c))

	energy, err := NewGoal("energy", Term(rice, 5).AddTerm(dal, 10), 200, Attain)
	assert.NilError(t, err)
	_, _, err = m.AddGoal(energy)
	assert.NilError(t, err)

	return m
}

func TestSolveEnergyTargetReachable(t *testing.T) {
	m := dietModel(t, 20)

	result, err := m.SolveWeighted()
	assert.NilError(t, err)
	assert.Assert(t, result.Status == StatusOptimal)

	// 200 is achievable exactly at Dal=20, Rice=0
	assert.DeepEqual(t, result.Variables, map[string]float64{"Rice": 0, "Dal": 20},
		cmpopts.EquateApprox(0, tolerance))
	assert.DeepEqual(t, result.Deviations, map[string]Deviation{"energy": {Under: 0, Over: 0}},
		cmpopts.EquateApprox(0, tolerance))
	assert.Assert(t, math.Abs(*result.Objective) <= tolerance,
		fmt.Sprintf("objective - Actual: %g", *result.Objective))
}

func TestSolveEnergyTargetUnreachable(t *testing.T) {
	m := dietModel(t, 10)

	result, err := m.SolveWeighted()
	assert.NilError(t, err)
	assert.Assert(t, result.Status == StatusOptimal)

	// max achievable energy is 100 at Dal=10, so the under-deviation is 100
	assert.DeepEqual(t, result.Variables, map[string]float64{"Rice": 0, "Dal": 10},
		cmpopts.EquateApprox(0, tolerance))
	assert.DeepEqual(t, result.Deviations, map[string]Deviation{"energy": {Under: 100, Over: 0}},
		cmpopts.EquateApprox(0, tolerance))
	assert.Assert(t, math.Abs(*result.Objective-100) <= tolerance)
}

// The linking equation expression + under - over == target must hold exactly
// at the solved assignment for every goal.
func TestLinkingIdentityHolds(t *testing.T) {
	tests := []float64{5, 10, 20, 40}

	for _, capacity := range tests {
		m := dietModel(t, capacity)

		result, err := m.SolveWeighted()
		assert.NilError(t, err)
		assert.Assert(t, result.Status == StatusOptimal)

		g := m.goals["energy"]
		achieved, err := g.Expression.Eval(result.Variables)
		assert.NilError(t, err)

		deviation := result.Deviations["energy"]
		assert.Assert(t, deviation.Under >= -tolerance)
		assert.Assert(t, deviation.Over >= -tolerance)
		assert.Assert(t, math.Abs(achieved+deviation.Under-deviation.Over-200) <= tolerance,
			fmt.Sprintf("capacity %g - achieved %g under %g over %g", capacity, achieved, deviation.Under, deviation.Over))
	}
}

func TestSolveIdempotence(t *testing.T) {
	first, err := dietModel(t, 10).SolveWeighted()
	assert.NilError(t, err)

	second, err := dietModel(t, 10).SolveWeighted()
	assert.NilError(t, err)

	assert.Assert(t, first.Status == second.Status)
	assert.DeepEqual(t, first.Variables, second.Variables)
	assert.DeepEqual(t, first.Deviations, second.Deviations)
	assert.Assert(t, *first.Objective == *second.Objective)
}

func TestMinimizeUnderLeavesOverUnpenalized(t *testing.T) {
	m := NewModel("one_sided")

	x, err := m.AddDefinedVariable("x", Continuous, 0, 20)
	assert.NilError(t, err)

	g, err := NewGoal("floor", Term(x, 1), 10, MinimizeUnder)
	assert.NilError(t, err)
	_, _, err = m.AddGoal(g)
	assert.NilError(t, err)

	result, err := m.SolveWeighted()
	assert.NilError(t, err)
	assert.Assert(t, result.Status == StatusOptimal)

	deviation := result.Deviations["floor"]
	assert.Assert(t, math.Abs(deviation.Under) <= tolerance,
		fmt.Sprintf("under - Actual: %g", deviation.Under))
	assert.Assert(t, deviation.Over >= -tolerance)
	assert.Assert(t, math.Abs(*result.Objective) <= tolerance)
}

// Increasing one goal's weight while holding the other fixed must never
// increase that goal's deviation at the optimum.
func TestWeightMonotonicity(t *testing.T) {
	conflicting := func(weight Weight) Deviation {
		m := NewModel("conflict")

		x, err := m.AddDefinedVariable("x", Continuous, 0, 10)
		assert.NilError(t, err)

		up, err := NewWeightedGoal("up", Term(x, 1), 10, MinimizeUnder, weight)
		assert.NilError(t, err)
		_, _, err = m.AddGoal(up)
		assert.NilError(t, err)

		down, err := NewWeightedGoal("down", Term(x, 1), 0, MinimizeOver, 1)
		assert.NilError(t, err)
		_, _, err = m.AddGoal(down)
		assert.NilError(t, err)

		result, err := m.SolveWeighted()
		assert.NilError(t, err)
		assert.Assert(t, result.Status == StatusOptimal)

		return result.Deviations["up"]
	}

	weak := conflicting(0.5)
	strong := conflicting(2)

	assert.Assert(t, strong.Under <= weak.Under+tolerance,
		fmt.Sprintf("monotonicity - weak: %g | strong: %g", weak.Under, strong.Under))
	assert.Assert(t, math.Abs(weak.Under-10) <= tolerance)
	assert.Assert(t, math.Abs(strong.Under) <= tolerance)
}

func TestSolveInfeasibleHardConstraints(t *testing.T) {
	m := NewModel("infeasible")

	x, err := m.AddVariable("x")
	assert.NilError(t, err)

	atLeast, _ := NewConstraint("at_least_5", Term(x, 1), GE, 5)
	assert.NilError(t, m.AddConstraint(atLeast))
	atMost, _ := NewConstraint("at_most_3", Term(x, 1), LE, 3)
	assert.NilError(t, m.AddConstraint(atMost))

	g, _ := NewGoal("g", Term(x, 1), 4, Attain)
	_, _, err = m.AddGoal(g)
	assert.NilError(t, err)

	result, err := m.SolveWeighted()
	assert.NilError(t, err)
	assert.Assert(t, result.Status == StatusInfeasible)
	assert.Assert(t, result.Variables == nil)
	assert.Assert(t, result.Objective == nil)
}

func TestSolvePreemptive(t *testing.T) {
	m := NewModel("lexicographic")

	x, err := m.AddDefinedVariable("x", Continuous, 0, 10)
	assert.NilError(t, err)

	high, err := NewGoal("high", Term(x, 1), 10, MinimizeUnder)
	assert.NilError(t, err)
	high.Priority = 1
	_, _, err = m.AddGoal(high)
	assert.NilError(t, err)

	low, err := NewGoal("low", Term(x, 1), 0, MinimizeOver)
	assert.NilError(t, err)
	low.Priority = 2
	_, _, err = m.AddGoal(low)
	assert.NilError(t, err)

	result, err := m.SolvePreemptive()
	assert.NilError(t, err)
	assert.Assert(t, result.Status == StatusOptimal)

	// priority 1 fully satisfied: x is pushed to 10 and stays locked there,
	// so the priority-2 goal absorbs the whole conflict
	assert.DeepEqual(t, result.Variables, map[string]float64{"x": 10},
		cmpopts.EquateApprox(0, tolerance))
	assert.DeepEqual(t, result.Deviations, map[string]Deviation{
		"high": {Under: 0, Over: 0},
		"low":  {Under: 0, Over: 10},
	}, cmpopts.EquateApprox(0, tolerance))
}

func TestClpRejectsIntegerColumns(t *testing.T) {
	solver := NewClpSolver()

	_, err := solver.Solve(Program{
		Columns:   []Column{{Name: "x", Lower: 0, Upper: 10, Type: Integer}},
		Objective: Coefficients{"x": 1},
	})
	assert.ErrorContains(t, err, "only continuous columns")
}

func TestClpRejectsUndeclaredColumns(t *testing.T) {
	solver := NewClpSolver()

	_, err := solver.Solve(Program{
		Columns:   []Column{{Name: "x", Lower: 0, Upper: 10, Type: Continuous}},
		Objective: Coefficients{"y": 1},
	})
	assert.ErrorContains(t, err, "undeclared column")

	_, err = solver.Solve(Program{
		Columns: []Column{{Name: "x", Lower: 0, Upper: 10, Type: Continuous}},
		Rows: []Row{{
			Name:         "r",
			Coefficients: Coefficients{"y": 1},
			Sense:        LE,
			RHS:          1,
		}},
		Objective: Coefficients{"x": 1},
	})
	assert.ErrorContains(t, err, "undeclared column")
}
