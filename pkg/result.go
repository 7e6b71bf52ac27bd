package pkg

// Deviation holds a goal's solved deviation pair: how far below and above
// its target the achieved value landed. Both components are nonnegative in
// any returned assignment.
type Deviation struct {
	Under float64
	Over  float64
}

// Result is the structured outcome of a solve: the solver status, the solved
// value of every user-declared decision variable, the deviation pair of
// every goal, and the objective value. On a non-optimal status the maps and
// objective are nil; the decoder never fabricates values the solver did not
// report.
type Result struct {
	Status     Status
	Variables  map[string]float64
	Deviations map[string]Deviation
	Objective  *float64
}

// decodeResult extracts the structured result from a raw solver solution.
// Deviation variables are reported once, under Deviations, keyed by their
// goal; Variables carries decision variables only.
func (m *Model) decodeResult(solution Solution) *Result {
	result := &Result{Status: solution.Status, Objective: solution.Objective}

	if solution.Status != StatusOptimal || solution.Values == nil {
		return result
	}

	synthesized := make(map[string]bool, 2*len(m.goals))

	for _, g := range m.goals {
		synthesized[g.UnderVariableName()] = true
		synthesized[g.OverVariableName()] = true
	}

	result.Variables = make(map[string]float64, m.vars.count())

	for _, name := range m.vars.names() {
		if synthesized[name] {
			continue
		}

		if value, ok := solution.Values[name]; ok {
			result.Variables[name] = value
		}
	}

	result.Deviations = make(map[string]Deviation, len(m.goals))

	for name, g := range m.goals {
		result.Deviations[name] = Deviation{
			Under: solution.Values[g.UnderVariableName()],
			Over:  solution.Values[g.OverVariableName()],
		}
	}

	return result
}
