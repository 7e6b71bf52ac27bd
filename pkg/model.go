package pkg

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"
)

// ErrEmptyObjective reports a weighted solve with no goals and no cost term.
var ErrEmptyObjective = errors.New("no objective terms")

// Model owns the variable registry, the hard and synthesized constraints,
// the goals, and the solve orchestration for one goal linear program.
//
// A Model is built by one logical thread of control: registration is an
// ordered sequence of mutations and is not safe for concurrent use.
// Independent Models share no state and may be built and solved in parallel.
type Model struct {
	Name string

	vars            *variableRegistry
	constraints     map[string]Constraint
	constraintOrder []string
	goals           map[string]Goal
	goalOrder       []string

	logger logr.Logger
}

// NewModel returns an empty model. Logging is discarded until SetLogger is
// called.
func NewModel(name string) *Model {
	return &Model{
		Name:        name,
		vars:        newVariableRegistry(),
		constraints: make(map[string]Constraint),
		goals:       make(map[string]Goal),
		logger:      logr.Discard(),
	}
}

// SetLogger routes the model's registration and solve logging to l.
func (m *Model) SetLogger(l logr.Logger) {
	m.logger = l
}

func (m *Model) String() string {
	return fmt.Sprintf("Model(name=%s, vars=%d, goals=%d)", m.Name, m.vars.count(), len(m.goals))
}

// AddVariable registers a continuous decision variable bounded below by 0
// and unbounded above.
func (m *Model) AddVariable(name string) (Variable, error) {
	return m.AddDefinedVariable(name, Continuous, 0, math.Inf(1))
}

// AddDefinedVariable registers a decision variable with explicit type and
// bounds. A name already present in the model fails with ErrDuplicateName;
// no variable is ever silently replaced.
func (m *Model) AddDefinedVariable(name string, varType VarType, lower, upper float64) (Variable, error) {
	v, err := m.vars.create(name, varType, lower, upper)
	if err != nil {
		return Variable{}, err
	}

	m.logger.V(1).Info("variable added", "model", m.Name, "name", name, "type", string(varType))

	return v, nil
}

// Variable looks up a previously created variable by name.
func (m *Model) Variable(name string) (Variable, error) {
	return m.vars.lookup(name)
}

// VariableCount returns the number of registered variables, deviation
// variables included.
func (m *Model) VariableCount() int {
	return m.vars.count()
}

// ConstraintCount returns the number of registered constraints, linking
// constraints included.
func (m *Model) ConstraintCount() int {
	return len(m.constraintOrder)
}

// GoalCount returns the number of registered goals.
func (m *Model) GoalCount() int {
	return len(m.goalOrder)
}

// checkNameFree enforces the shared constraint/goal namespace.
func (m *Model) checkNameFree(name string) error {
	if _, ok := m.constraints[name]; ok {
		return errors.Wrapf(ErrDuplicateName, "constraint %q", name)
	}

	if _, ok := m.goals[name]; ok {
		return errors.Wrapf(ErrDuplicateName, "goal %q", name)
	}

	return nil
}

func (m *Model) checkExpressionVariables(e Expression) error {
	names := make([]string, 0, len(e.terms))

	for name := range e.terms {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		if !m.vars.exists(name) {
			return errors.Wrapf(ErrUnknownVariable, "expression references %q", name)
		}
	}

	return nil
}

// AddConstraint registers a hard constraint. Constraints and goals share one
// namespace, so a user constraint can never be shadowed silently by a
// synthesized linking constraint (or vice versa).
func (m *Model) AddConstraint(c Constraint) error {
	if c.Name == "" {
		return errors.New("constraint name must not be empty")
	}

	if err := validateConstraintSense(c.Sense); err != nil {
		return err
	}

	if err := m.checkNameFree(c.Name); err != nil {
		return err
	}

	if err := m.checkExpressionVariables(c.Expression); err != nil {
		return errors.Wrapf(err, "constraint %q", c.Name)
	}

	m.constraints[c.Name] = c
	m.constraintOrder = append(m.constraintOrder, c.Name)

	m.logger.V(1).Info("constraint added", "model", m.Name, "name", c.Name, "sense", string(c.Sense), "rhs", c.RHS)

	return nil
}

// AddGoal registers a goal atomically: it synthesizes the nonnegative
// deviation variables n_<name> and p_<name>, the linking constraint
// goal_link_<name> holding expression + n - p == target, and records the
// goal. If any name collides, nothing is registered and the model keeps its
// last-valid state. The deviation pair is returned.
func (m *Model) AddGoal(g Goal) (Variable, Variable, error) {
	if g.Name == "" {
		return Variable{}, Variable{}, errors.New("goal name must not be empty")
	}

	if err := validateGoalSense(g.Sense); err != nil {
		return Variable{}, Variable{}, err
	}

	if g.WeightUnder < 0 || g.WeightOver < 0 {
		return Variable{}, Variable{}, errors.Wrapf(ErrInvalidWeight, "goal %q weights (%g, %g)", g.Name, g.WeightUnder, g.WeightOver)
	}

	// Validate every name the registration would claim before touching
	// anything, so a collision leaves no partial state behind.
	if err := m.checkNameFree(g.Name); err != nil {
		return Variable{}, Variable{}, err
	}

	if err := m.checkNameFree(g.linkingConstraintName()); err != nil {
		return Variable{}, Variable{}, err
	}

	for _, name := range []string{g.UnderVariableName(), g.OverVariableName()} {
		if m.vars.exists(name) {
			return Variable{}, Variable{}, errors.Wrapf(ErrDuplicateName, "deviation variable %q", name)
		}
	}

	if err := m.checkExpressionVariables(g.Expression); err != nil {
		return Variable{}, Variable{}, errors.Wrapf(err, "goal %q", g.Name)
	}

	under, err := m.vars.create(g.UnderVariableName(), Continuous, 0, math.Inf(1))
	if err != nil {
		return Variable{}, Variable{}, err
	}

	over, err := m.vars.create(g.OverVariableName(), Continuous, 0, math.Inf(1))
	if err != nil {
		return Variable{}, Variable{}, err
	}

	linkName := g.linkingConstraintName()
	linking := Constraint{
		Name:       linkName,
		Expression: g.Expression.AddTerm(under, 1).AddTerm(over, -1),
		Sense:      EQ,
		RHS:        g.Target,
	}

	m.constraints[linkName] = linking
	m.constraintOrder = append(m.constraintOrder, linkName)

	m.goals[g.Name] = g
	m.goalOrder = append(m.goalOrder, g.Name)

	m.logger.V(1).Info("goal added", "model", m.Name, "name", g.Name,
		"target", g.Target, "sense", string(g.Sense), "priority", g.Priority)

	return under, over, nil
}

// SolveOptions configures a single solve. The zero value means: default CLP
// solver, no cost term, each goal's declared weights.
type SolveOptions struct {
	Solver      Solver
	Cost        *Expression
	CostWeight  float64
	GoalWeights map[string]WeightPair
}

// WithSolver injects a solver adapter in place of the CLP default.
func WithSolver(s Solver) func(*SolveOptions) error {
	return func(o *SolveOptions) error {
		if s == nil {
			return errors.New("solver must not be nil")
		}

		o.Solver = s

		return nil
	}
}

// WithCost blends weight*expression into the weighted objective.
func WithCost(expression Expression, weight float64) func(*SolveOptions) error {
	return func(o *SolveOptions) error {
		o.Cost = &expression
		o.CostWeight = weight

		return nil
	}
}

// WithGoalWeights overrides the deviation weights of the named goals for
// this solve only.
func WithGoalWeights(weights map[string]WeightPair) func(*SolveOptions) error {
	return func(o *SolveOptions) error {
		for name, pair := range weights {
			if pair.Under < 0 || pair.Over < 0 {
				return errors.Wrapf(ErrInvalidWeight, "goal %q weights (%g, %g)", name, pair.Under, pair.Over)
			}
		}

		o.GoalWeights = weights

		return nil
	}
}

func (m *Model) applySolveOptions(opts []func(*SolveOptions) error) (*SolveOptions, error) {
	sb := &SolveOptions{}

	for _, op := range opts {
		if err := op(sb); err != nil {
			return nil, err
		}
	}

	if sb.Solver == nil {
		sb.Solver = NewClpSolver()
	}

	for name := range sb.GoalWeights {
		if _, ok := m.goals[name]; !ok {
			return nil, errors.Errorf("weight override for unknown goal %q", name)
		}
	}

	if sb.Cost != nil {
		if err := m.checkExpressionVariables(*sb.Cost); err != nil {
			return nil, errors.Wrap(err, "cost expression")
		}
	}

	return sb, nil
}

// solveWeights returns the pair charged for a goal in this solve: the
// per-solve override when present, the goal's declared weights otherwise.
func (sb *SolveOptions) solveWeights(g Goal) (Weight, Weight) {
	if pair, ok := sb.GoalWeights[g.Name]; ok {
		return g.effectiveWeights(pair.Under, pair.Over)
	}

	return g.effectiveWeights(g.WeightUnder, g.WeightOver)
}

// deviationObjective builds the weighted-deviation terms for the given goal
// names. Zero-weight terms are kept so the objective stays well-defined even
// when every goal direction is unpenalized.
func (m *Model) deviationObjective(sb *SolveOptions, goalNames []string) Coefficients {
	objective := make(Coefficients, 2*len(goalNames))

	for _, name := range goalNames {
		g := m.goals[name]
		weightUnder, weightOver := sb.solveWeights(g)
		objective[g.UnderVariableName()] += weightUnder
		objective[g.OverVariableName()] += weightOver
	}

	return objective
}

// buildProgram assembles the full program: every variable, every constraint
// (user-supplied and synthesized linking constraints), any extra rows, and
// the given minimization objective. Expression constants are folded into the
// row right-hand sides.
func (m *Model) buildProgram(objective Coefficients, objectiveConstant float64, extraRows []Row) Program {
	columns := make([]Column, 0, m.vars.count())

	for _, name := range m.vars.names() {
		v := m.vars.byName[name]
		columns = append(columns, Column{Name: v.Name, Lower: v.Lower, Upper: v.Upper, Type: v.Type})
	}

	rows := make([]Row, 0, len(m.constraintOrder)+len(extraRows))

	for _, name := range m.constraintOrder {
		c := m.constraints[name]
		rows = append(rows, Row{
			Name:         c.Name,
			Coefficients: c.Expression.Coefficients(),
			Sense:        c.Sense,
			RHS:          c.RHS - c.Expression.ConstantTerm(),
		})
	}

	rows = append(rows, extraRows...)

	objectiveCopy := make(Coefficients, len(objective))

	for name, coefficient := range objective {
		objectiveCopy[name] = coefficient
	}

	return Program{
		Columns:           columns,
		Rows:              rows,
		Objective:         objectiveCopy,
		ObjectiveConstant: objectiveConstant,
	}
}

// SolveWeighted minimizes the sum of weighted deviations over every goal,
// optionally blended with a cost term, and decodes the solver's outcome into
// a structured Result. Solver statuses surface verbatim: the model never
// retries or mutates the program on infeasibility.
func (m *Model) SolveWeighted(opts ...func(*SolveOptions) error) (*Result, error) {
	sb, err := m.applySolveOptions(opts)
	if err != nil {
		return nil, err
	}

	objective := m.deviationObjective(sb, m.goalOrder)
	objectiveConstant := 0.0

	if sb.Cost != nil && sb.CostWeight != 0 {
		for name, coefficient := range sb.Cost.terms {
			objective[name] += sb.CostWeight * coefficient
		}

		objectiveConstant += sb.CostWeight * sb.Cost.constant
	}

	if len(objective) == 0 {
		return nil, errors.Wrapf(ErrEmptyObjective, "model %q", m.Name)
	}

	solution, err := sb.Solver.Solve(m.buildProgram(objective, objectiveConstant, nil))
	if err != nil {
		return nil, err
	}

	result := m.decodeResult(solution)
	m.logSolve("weighted solve finished", result)

	return result, nil
}

// SolvePreemptive performs lexicographic goal programming: goals are grouped
// by ascending Priority, each stage minimizes its own weighted deviations,
// and every later stage keeps earlier achievements locked via an extra
// program row. The cost term, when supplied, joins the final stage. The
// model itself is never mutated by solving; locks live only in the submitted
// programs. The first non-optimal stage status is returned as-is.
func (m *Model) SolvePreemptive(opts ...func(*SolveOptions) error) (*Result, error) {
	sb, err := m.applySolveOptions(opts)
	if err != nil {
		return nil, err
	}

	if len(m.goalOrder) == 0 {
		return nil, errors.Wrapf(ErrEmptyObjective, "model %q has no goals", m.Name)
	}

	stages := m.goalsByPriority()
	locks := make([]Row, 0, len(stages))

	var result *Result

	for i, stage := range stages {
		stageObjective := m.deviationObjective(sb, stage.goalNames)

		objective := make(Coefficients, len(stageObjective))

		for name, coefficient := range stageObjective {
			objective[name] = coefficient
		}

		objectiveConstant := 0.0
		last := i == len(stages)-1

		if last && sb.Cost != nil && sb.CostWeight != 0 {
			for name, coefficient := range sb.Cost.terms {
				objective[name] += sb.CostWeight * coefficient
			}

			objectiveConstant += sb.CostWeight * sb.Cost.constant
		}

		solution, err := sb.Solver.Solve(m.buildProgram(objective, objectiveConstant, locks))
		if err != nil {
			return nil, err
		}

		result = m.decodeResult(solution)

		m.logger.V(1).Info("preemptive stage finished", "model", m.Name,
			"priority", stage.priority, "status", string(result.Status))

		if result.Status != StatusOptimal {
			m.logSolve("preemptive solve finished", result)
			return result, nil
		}

		achieved := 0.0

		for name, coefficient := range stageObjective {
			achieved += coefficient * solution.Values[name]
		}

		locks = append(locks, Row{
			Name:         fmt.Sprintf("priority_lock_%d", stage.priority),
			Coefficients: stageObjective,
			Sense:        LE,
			RHS:          achieved,
		})
	}

	m.logSolve("preemptive solve finished", result)

	return result, nil
}

type priorityStage struct {
	priority  int
	goalNames []string
}

// goalsByPriority groups registered goals into stages of ascending priority,
// preserving registration order within a stage.
func (m *Model) goalsByPriority() []priorityStage {
	byPriority := make(map[int][]string)
	priorities := make([]int, 0)

	for _, name := range m.goalOrder {
		p := m.goals[name].Priority

		if _, ok := byPriority[p]; !ok {
			priorities = append(priorities, p)
		}

		byPriority[p] = append(byPriority[p], name)
	}

	sort.Ints(priorities)

	stages := make([]priorityStage, 0, len(priorities))

	for _, p := range priorities {
		stages = append(stages, priorityStage{priority: p, goalNames: byPriority[p]})
	}

	return stages
}

func (m *Model) logSolve(msg string, result *Result) {
	if result.Objective != nil {
		m.logger.Info(msg, "model", m.Name, "status", string(result.Status), "objective", *result.Objective)
		return
	}

	m.logger.Info(msg, "model", m.Name, "status", string(result.Status))
}
