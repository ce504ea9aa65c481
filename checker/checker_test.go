// Copyright 2026 The JazzPetri Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package checker

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jazzpetri/faultcheck/choice"
	"github.com/jazzpetri/faultcheck/executed"
	"github.com/jazzpetri/faultcheck/formula"
	"github.com/jazzpetri/faultcheck/markov"
	"github.com/jazzpetri/faultcheck/model"
	"github.com/jazzpetri/faultcheck/observability"
	"github.com/jazzpetri/faultcheck/probability"
	"github.com/jazzpetri/faultcheck/samples"
	"github.com/jazzpetri/faultcheck/statevector"
	"github.com/jazzpetri/faultcheck/traversal"
)

type recordingLogger struct {
	mu       sync.Mutex
	warnings []string
}

func (l *recordingLogger) Debug(string, map[string]interface{}) {}
func (l *recordingLogger) Info(string, map[string]interface{})  {}
func (l *recordingLogger) Error(string, map[string]interface{}) {}
func (l *recordingLogger) Warn(msg string, _ map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnings = append(l.warnings, msg)
}

var (
	goal = formula.Atomic("goal")
	safe = formula.Atomic("safe")
)

func makeLabeling(t *testing.T, formulas ...formula.Formula) *formula.Labeling {
	t.Helper()
	l, err := formula.NewLabeling(formulas, true)
	require.NoError(t, err)
	return l
}

// labels returns one label set per state over (goal, safe).
func labels(goals, safes []int, states int) []formula.StateFormulaSet {
	bits := make([][]bool, states)
	for s := range bits {
		bits[s] = make([]bool, 2)
	}
	for _, s := range goals {
		bits[s][0] = true
	}
	for _, s := range safes {
		bits[s][1] = true
	}
	out := make([]formula.StateFormulaSet, states)
	for s := range out {
		out[s] = formula.NewStateFormulaSet(bits[s])
	}
	return out
}

// makeDTMC builds state 0 that stays with 0.5 and moves to goal state 1
// or sink state 2 with 0.25 each. Only state 0 is safe.
func makeDTMC(t *testing.T) *markov.DTMC {
	return &markov.DTMC{
		Labeling: makeLabeling(t, goal, safe),
		Labels:   labels([]int{1}, []int{0}, 3),
		Initial:  markov.Distribution{{Target: 0, Probability: 1}},
		Rows: []markov.Distribution{
			{{Target: 0, Probability: 0.5}, {Target: 1, Probability: 0.25}, {Target: 2, Probability: 0.25}},
			{{Target: 1, Probability: 1}},
			{{Target: 2, Probability: 1}},
		},
	}
}

// makeCycle builds two states that hand over to each other with
// probability stay and leave to goal state 2 or sink state 3.
func makeCycle(t *testing.T, stay float64) *markov.DTMC {
	return &markov.DTMC{
		Labeling: makeLabeling(t, goal, safe),
		Labels:   labels([]int{2}, nil, 4),
		Initial:  markov.Distribution{{Target: 0, Probability: 1}},
		Rows: []markov.Distribution{
			{{Target: 1, Probability: stay}, {Target: 2, Probability: 1 - stay}},
			{{Target: 0, Probability: stay}, {Target: 3, Probability: 1 - stay}},
			{{Target: 2, Probability: 1}},
			{{Target: 3, Probability: 1}},
		},
	}
}

// makeMDP builds state 0 that may move to goal state 1, to sink state 2,
// or toss a coin between staying and the goal.
func makeMDP(t *testing.T) *markov.MDP {
	return &markov.MDP{
		Labeling: makeLabeling(t, goal, safe),
		Labels:   labels([]int{1}, []int{0}, 3),
		Initial:  []markov.Distribution{{{Target: 0, Probability: 1}}},
		Rows: [][]markov.Distribution{
			{
				{{Target: 1, Probability: 1}},
				{{Target: 2, Probability: 1}},
				{{Target: 0, Probability: 0.5}, {Target: 1, Probability: 0.5}},
			},
			{{{Target: 1, Probability: 1}}},
			{{{Target: 2, Probability: 1}}},
		},
	}
}

func makeNested(t *testing.T, name string, formulas ...formula.Formula) *markov.NestedMDP {
	t.Helper()
	return makeNestedFrom(t, samples.Default.Creator(name), formulas...)
}

func makeNestedFrom(t *testing.T, creator model.Creator, formulas ...formula.Formula) *markov.NestedMDP {
	t.Helper()
	g, err := traversal.New(creator, traversal.Options{
		Workers: 2,
		Labeled: true,
		Executed: executed.Options{
			Moment:   executed.OnFirstMethodWithUndo,
			Labeling: makeLabeling(t, formulas...),
		},
	}).Run(context.Background())
	require.NoError(t, err)
	n, err := markov.FromStateGraph(g)
	require.NoError(t, err)
	return n
}

func makeDTMCChecker(t *testing.T, name string, formulas ...formula.Formula) *DTMCChecker {
	t.Helper()
	m, err := makeNested(t, name, formulas...).ToDTMC()
	require.NoError(t, err)
	c, err := NewDTMCChecker(m, Options{})
	require.NoError(t, err)
	return c
}

func makeMDPCheckers(t *testing.T, n *markov.NestedMDP) map[string]*MDPChecker {
	t.Helper()
	flat, err := n.ToMDPByFlattening()
	require.NoError(t, err)
	nested, err := n.ToMDPByNewStates()
	require.NoError(t, err)

	checkers := make(map[string]*MDPChecker)
	for name, m := range map[string]*markov.MDP{"flattening": flat, "new states": nested} {
		c, err := NewMDPChecker(m, Options{})
		require.NoError(t, err)
		checkers[name] = c
	}
	return checkers
}

// TestDTMCChecker_Unbounded covers Finally, Globally and Until on a chain
// with a self loop.
func TestDTMCChecker_Unbounded(t *testing.T) {
	c, err := NewDTMCChecker(makeDTMC(t), Options{})
	require.NoError(t, err)

	tests := []struct {
		name    string
		formula formula.Formula
		want    float64
	}{
		{"finally", formula.Finally(goal), 0.5},
		{"globally", formula.Globally(formula.Negate(goal)), 0.5},
		{"until", formula.Until(safe, goal), 0.5},
		{"until blocked", formula.Until(goal, goal), 0},
		{"until not safe", formula.Until(formula.Negate(safe), goal), 0},
		{"finally sink or goal", formula.Finally(formula.Negate(safe)), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := c.CalculateProbability(tt.formula)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, p.Value(), 1e-9)
		})
	}
}

// TestDTMCChecker_Bounded counts the steps after the initial state.
func TestDTMCChecker_Bounded(t *testing.T) {
	c, err := NewDTMCChecker(makeDTMC(t), Options{})
	require.NoError(t, err)

	for bound, want := range []float64{0, 0.25, 0.375, 0.4375} {
		p, err := c.CalculateProbability(formula.BoundedFinally(goal, bound))
		require.NoError(t, err)
		assert.InDelta(t, want, p.Value(), 1e-12, "bound %d", bound)

		p, err = c.CalculateProbability(formula.BoundedUntil(safe, goal, bound))
		require.NoError(t, err)
		assert.InDelta(t, want, p.Value(), 1e-12, "bound %d", bound)
	}
}

// TestDTMCChecker_Convergence solves a slowly mixing cycle.
func TestDTMCChecker_Convergence(t *testing.T) {
	metrics := observability.NewInMemoryMetrics()
	actx := observability.NewAnalysisContextBuilder().WithMetrics(metrics).Build()
	c, err := NewDTMCChecker(makeCycle(t, 0.99), Options{Analysis: actx})
	require.NoError(t, err)

	p, err := c.CalculateProbability(formula.Finally(goal))
	require.NoError(t, err)
	// x0 = 0.01 + 0.99 x1, x1 = 0.99 x0
	assert.InDelta(t, 0.01/(1-0.99*0.99), p.Value(), 1e-7)
	assert.Greater(t, metrics.Value(observability.MetricCheckerIterationsTotal), 1.0)
	assert.Len(t, metrics.Samples(observability.MetricCheckerDuration), 1)
}

// TestDTMCChecker_MaxIterations returns the current approximation with a
// warning.
func TestDTMCChecker_MaxIterations(t *testing.T) {
	logger := &recordingLogger{}
	actx := observability.NewAnalysisContextBuilder().WithLogger(logger).Build()
	c, err := NewDTMCChecker(makeCycle(t, 0.99), Options{MaxIterations: 3, Analysis: actx})
	require.NoError(t, err)

	p, err := c.CalculateProbability(formula.Finally(goal))
	require.NoError(t, err)
	assert.Greater(t, p.Value(), 0.0)
	assert.Less(t, p.Value(), 0.01/(1-0.99*0.99))
	assert.Equal(t, []string{"convergence not reached"}, logger.warnings)
}

// TestDTMCChecker_Cancelled stops a long iteration.
func TestDTMCChecker_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	actx := observability.NewAnalysisContextBuilder().WithContext(ctx).Build()
	c, err := NewDTMCChecker(makeCycle(t, 0.999), Options{Analysis: actx})
	require.NoError(t, err)

	_, err = c.CalculateProbability(formula.Finally(goal))
	assert.ErrorIs(t, err, context.Canceled)
}

// TestDTMCChecker_NotImplemented rejects unsupported queries.
func TestDTMCChecker_NotImplemented(t *testing.T) {
	c, err := NewDTMCChecker(makeDTMC(t), Options{})
	require.NoError(t, err)

	for _, f := range []formula.Formula{
		goal,
		formula.And(goal, safe),
		formula.Finally(formula.Finally(goal)),
		formula.Finally(formula.Atomic("unknown")),
	} {
		_, err := c.CalculateProbability(f)
		assert.ErrorIs(t, err, ErrNotImplemented, "%v", f)
	}

	_, _, err = c.CalculateProbabilityRange(formula.Finally(goal))
	assert.ErrorIs(t, err, ErrNotImplemented)
	_, err = c.CalculateReward(formula.Finally(goal))
	assert.ErrorIs(t, err, ErrNotImplemented)
}

// TestNewDTMCChecker_Invalid rejects broken chains.
func TestNewDTMCChecker_Invalid(t *testing.T) {
	m := makeDTMC(t)
	m.Rows[0] = markov.Distribution{{Target: 1, Probability: 0.5}}
	_, err := NewDTMCChecker(m, Options{})
	assert.Error(t, err)
}

// TestMDPChecker_MinMax covers the qualitative precomputations and value
// iteration.
func TestMDPChecker_MinMax(t *testing.T) {
	c, err := NewMDPChecker(makeMDP(t), Options{})
	require.NoError(t, err)

	tests := []struct {
		name     string
		formula  formula.Formula
		min, max float64
	}{
		{"finally", formula.Finally(goal), 0, 1},
		{"globally", formula.Globally(formula.Negate(goal)), 0, 1},
		{"until", formula.Until(safe, goal), 0, 1},
		{"bounded 0", formula.BoundedFinally(goal, 0), 0, 0},
		{"bounded 1", formula.BoundedFinally(goal, 1), 0, 1},
		{"bounded globally", formula.BoundedGlobally(formula.Negate(goal), 2), 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, err := c.CalculateMinimalProbability(tt.formula)
			require.NoError(t, err)
			hi, err := c.CalculateMaximalProbability(tt.formula)
			require.NoError(t, err)
			assert.InDelta(t, tt.min, lo.Value(), 1e-9)
			assert.InDelta(t, tt.max, hi.Value(), 1e-9)
		})
	}
}

// TestMDPChecker_CoinOnly leaves only the coin toss to the scheduler.
func TestMDPChecker_CoinOnly(t *testing.T) {
	m := makeMDP(t)
	m.Rows[0] = m.Rows[0][1:]
	c, err := NewMDPChecker(m, Options{})
	require.NoError(t, err)

	// the scheduler can always take the sink
	lo, err := c.CalculateMinimalProbability(formula.Finally(goal))
	require.NoError(t, err)
	assert.InDelta(t, 0, lo.Value(), 1e-9)

	m.Rows[0] = m.Rows[0][1:]
	c, err = NewMDPChecker(m, Options{})
	require.NoError(t, err)
	lo, err = c.CalculateMinimalProbability(formula.Finally(goal))
	require.NoError(t, err)
	assert.InDelta(t, 1, lo.Value(), 1e-9)
	hi, err := c.CalculateMaximalProbability(formula.BoundedFinally(goal, 2))
	require.NoError(t, err)
	assert.InDelta(t, 0.75, hi.Value(), 1e-12)
}

// TestMDPChecker_EndComponent does not mistake a self loop for progress.
func TestMDPChecker_EndComponent(t *testing.T) {
	m := makeMDP(t)
	m.Rows[0] = []markov.Distribution{
		{{Target: 0, Probability: 1}},
		{{Target: 0, Probability: 0.5}, {Target: 1, Probability: 0.5}},
	}
	c, err := NewMDPChecker(m, Options{})
	require.NoError(t, err)

	lo, err := c.CalculateMinimalProbability(formula.Finally(goal))
	require.NoError(t, err)
	hi, err := c.CalculateMaximalProbability(formula.Finally(goal))
	require.NoError(t, err)
	assert.InDelta(t, 0, lo.Value(), 1e-9)
	assert.InDelta(t, 1, hi.Value(), 1e-9)
}

// TestMDPChecker_NotImplemented rejects unsupported queries.
func TestMDPChecker_NotImplemented(t *testing.T) {
	c, err := NewMDPChecker(makeMDP(t), Options{})
	require.NoError(t, err)

	_, err = c.CalculateMaximalProbability(formula.Or(goal, safe))
	assert.ErrorIs(t, err, ErrNotImplemented)
	_, _, err = c.CalculateProbabilityRange(formula.Finally(goal))
	assert.ErrorIs(t, err, ErrNotImplemented)
	_, err = c.CalculateReward(formula.Finally(goal))
	assert.ErrorIs(t, err, ErrNotImplemented)
}

// TestDTMCChecker_Samples checks the probabilities of the sample models.
func TestDTMCChecker_Samples(t *testing.T) {
	tests := []struct {
		model   string
		formula formula.Formula
		want    float64
		delta   float64
	}{
		{"dice", formula.Finally(formula.Atomic("final1")), 1.0 / 6, 1e-6},
		{"dice", formula.Finally(formula.Atomic("final6")), 1.0 / 6, 1e-6},
		{"three-exits", formula.Finally(formula.Atomic("exitA")), 0.15 / (0.15 + 2.0/6), 1e-6},
		{"same-target", formula.Finally(formula.Atomic("state1")), 0.65, 1e-6},
		{"same-target-faults", formula.BoundedFinally(formula.Atomic("state1"), 1), 0.325, 1e-9},
		{"same-target-faults", formula.BoundedFinally(formula.Atomic("state1"), 0), 0, 1e-9},
		{"uniform-initial", formula.Finally(formula.Atomic("state2")), 1.0 / 3, 1e-9},
		{"three-way", formula.Finally(formula.Atomic("state2")), 0.3, 1e-4},
		{"three-way", formula.Finally(formula.Atomic("state3")), 0.6, 1e-4},
		{"undo-fault", formula.Finally(formula.Atomic("is100")), 0.48, 1e-9},
		{"undo-fault", formula.Finally(formula.Atomic("is200")), 0.52, 1e-9},
		{"scheduler-split", formula.Finally(formula.Atomic("y2")), 1, 1e-9},
		{"scheduler-split", formula.BoundedFinally(formula.Atomic("y2"), 1), 0.3, 1e-9},
	}
	for _, tt := range tests {
		t.Run(tt.model+" "+tt.formula.String(), func(t *testing.T) {
			c := makeDTMCChecker(t, tt.model, tt.formula)
			p, err := c.CalculateProbability(tt.formula)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, p.Value(), tt.delta)
		})
	}

	c := makeDTMCChecker(t, "dice", formula.Finally(formula.Atomic("final1")))
	p, err := c.CalculateProbability(formula.Finally(formula.Atomic("final1")))
	require.NoError(t, err)
	assert.True(t, p.Between(0.1, 0.2))
}

// TestMDPChecker_Samples checks both MDP conversions of the sample models.
func TestMDPChecker_Samples(t *testing.T) {
	tests := []struct {
		model    string
		formula  formula.Formula
		min, max float64
	}{
		{"uniform-initial", formula.Finally(formula.Atomic("state2")), 0, 1},
		{"scheduler-split", formula.Finally(formula.Atomic("y1")), 1, 1},
		{"scheduler-split", formula.Finally(formula.Atomic("y2")), 0, 1},
		{"scheduler-split", formula.Finally(formula.Atomic("y3")), 0, 1},
		{"scheduler-split", formula.BoundedFinally(formula.Atomic("y1"), 1), 0.4, 0.4},
		{"scheduler-split", formula.BoundedFinally(formula.Atomic("y2"), 1), 0, 0.6},
		{"scheduler-split", formula.BoundedFinally(formula.Atomic("y2"), 2), 0, 0.84},
		{"scheduler-split", formula.BoundedGlobally(formula.Negate(formula.Atomic("y2")), 1), 0.4, 1},
		{"scheduler-split", formula.BoundedUntil(formula.Negate(formula.Atomic("y3")), formula.Atomic("y2"), 1), 0, 0.6},
		{"same-target", formula.Finally(formula.Atomic("state1")), 0.65, 0.65},
		{"three-way", formula.Finally(formula.Atomic("state3")), 0.6, 0.6},
	}
	for _, tt := range tests {
		checkers := makeMDPCheckers(t, makeNested(t, tt.model, tt.formula))
		for conversion, c := range checkers {
			t.Run(tt.model+" "+tt.formula.String()+" "+conversion, func(t *testing.T) {
				lo, err := c.CalculateMinimalProbability(tt.formula)
				require.NoError(t, err)
				hi, err := c.CalculateMaximalProbability(tt.formula)
				require.NoError(t, err)
				assert.InDelta(t, tt.min, lo.Value(), 1e-6)
				assert.InDelta(t, tt.max, hi.Value(), 1e-6)
			})
		}
	}
}

// makeConstrainedSplit creates a model that leaves state 0 for state 1 with
// probability 0.5 and otherwise lets a scheduler pick state 2 or state 3,
// which violates the state constraint.
func makeConstrainedSplit() model.Creator {
	return model.CreatorFunc(func() (model.ExecutableModel, error) {
		m, err := samples.NewModel("constrained-split", statevector.Int("state", 0, 3))
		if err != nil {
			return nil, err
		}
		s := m.Index("state")
		half := probability.MustNew(0.5)
		m.Step = func() error {
			v := m.Vector()
			if v.Int(s) != 0 {
				return nil
			}
			if choice.ChooseWithProbability(m.Choice(), choice.NewOption(half, true), choice.NewOption(half, false)) {
				v.SetInt(s, 1)
			} else {
				v.SetInt(s, choice.Choose(m.Choice(), int64(2), int64(3)))
			}
			return nil
		}
		m.AddConstraint(func() bool { return m.Vector().Int(s) != 3 })
		m.AddProposition("state1", func() bool { return m.Vector().Int(s) == 1 })
		m.AddProposition("state2", func() bool { return m.Vector().Int(s) == 2 })
		return m, nil
	})
}

// TestMDPChecker_ConstrainedAlternative agrees across both conversions when
// a state constraint removes one alternative of a scheduler.
func TestMDPChecker_ConstrainedAlternative(t *testing.T) {
	state1, state2 := formula.Atomic("state1"), formula.Atomic("state2")
	n := makeNestedFrom(t, makeConstrainedSplit(), state1, state2)

	for _, f := range []formula.Formula{
		formula.Finally(state1),
		formula.Finally(state2),
		formula.BoundedFinally(state1, 1),
		formula.Globally(formula.Negate(state2)),
	} {
		want := 0.5
		for conversion, c := range makeMDPCheckers(t, n) {
			lo, err := c.CalculateMinimalProbability(f)
			require.NoError(t, err)
			hi, err := c.CalculateMaximalProbability(f)
			require.NoError(t, err)
			assert.InDelta(t, want, lo.Value(), 1e-9, "%s min %v", conversion, f)
			assert.InDelta(t, want, hi.Value(), 1e-9, "%s max %v", conversion, f)
		}

		m, err := n.ToDTMC()
		require.NoError(t, err)
		c, err := NewDTMCChecker(m, Options{})
		require.NoError(t, err)
		p, err := c.CalculateProbability(f)
		require.NoError(t, err)
		assert.InDelta(t, want, p.Value(), 1e-9, "dtmc %v", f)
	}
}

// TestMDPChecker_AuxiliaryStates resolves new states within the step of
// their owner.
func TestMDPChecker_AuxiliaryStates(t *testing.T) {
	m, err := makeNested(t, "scheduler-split", formula.Atomic("y2")).ToMDPByNewStates()
	require.NoError(t, err)
	require.Greater(t, m.States(), 4)
	assert.True(t, m.IsAuxiliary(m.States()-1))

	c, err := NewMDPChecker(m, Options{})
	require.NoError(t, err)
	for bound, want := range []float64{0, 0.6, 0.84} {
		hi, err := c.CalculateMaximalProbability(formula.BoundedFinally(formula.Atomic("y2"), bound))
		require.NoError(t, err)
		assert.InDelta(t, want, hi.Value(), 1e-12, "bound %d", bound)
	}
}

// makeLadder creates a model that climbs from 0 to 4 with probability 0.5
// per step and falls off otherwise.
func makeLadder() model.Creator {
	return model.CreatorFunc(func() (model.ExecutableModel, error) {
		m, err := samples.NewModel("ladder", statevector.Int("n", 0, 4), statevector.Bool("fell"))
		if err != nil {
			return nil, err
		}
		n, fell := m.Index("n"), m.Index("fell")
		half := probability.MustNew(0.5)
		m.Step = func() error {
			v := m.Vector()
			if v.Bool(fell) || v.Int(n) == 4 {
				return nil
			}
			if choice.ChooseWithProbability(m.Choice(), choice.NewOption(half, true), choice.NewOption(half, false)) {
				v.SetInt(n, v.Int(n)+1)
			} else {
				v.SetBool(fell, true)
			}
			return nil
		}
		m.AddProposition("two", func() bool { return m.Vector().Int(n) >= 2 })
		m.AddProposition("fell", func() bool { return m.Vector().Bool(fell) })
		return m, nil
	})
}

// TestTerminal keeps the probability and skips the states behind decided
// ones.
func TestTerminal(t *testing.T) {
	two := formula.Atomic("two")
	queries := []formula.Formula{formula.Finally(two), formula.BoundedFinally(two, 3)}
	labeling := makeLabeling(t, two)

	explore := func(terminal bool) (*traversal.StateGraph, *DTMCChecker) {
		opts := traversal.Options{
			Workers:  2,
			Labeled:  true,
			Executed: executed.Options{Moment: executed.OnFirstMethodWithUndo, Labeling: labeling},
		}
		if terminal {
			var err error
			opts.Terminal, err = Terminal(labeling, queries...)
			require.NoError(t, err)
		}
		g, err := traversal.New(makeLadder(), opts).Run(context.Background())
		require.NoError(t, err)
		n, err := markov.FromStateGraph(g)
		require.NoError(t, err)
		m, err := n.ToDTMC()
		require.NoError(t, err)
		c, err := NewDTMCChecker(m, Options{})
		require.NoError(t, err)
		return g, c
	}

	full, fullChecker := explore(false)
	early, earlyChecker := explore(true)
	assert.Equal(t, 9, full.StateCount())
	assert.Equal(t, 5, early.StateCount())

	for _, f := range queries {
		want, err := fullChecker.CalculateProbability(f)
		require.NoError(t, err)
		got, err := earlyChecker.CalculateProbability(f)
		require.NoError(t, err)
		assert.InDelta(t, 0.25, want.Value(), 1e-12, "%v", f)
		assert.InDelta(t, want.Value(), got.Value(), 1e-12, "%v", f)
	}
}

// TestTerminal_Decided covers goals, failed path conditions and Globally.
func TestTerminal_Decided(t *testing.T) {
	l := makeLabeling(t, goal, safe)
	state := func(isGoal, isSafe bool) formula.StateFormulaSet {
		return formula.NewStateFormulaSet([]bool{isGoal, isSafe})
	}

	until, err := Terminal(l, formula.Until(safe, goal))
	require.NoError(t, err)
	assert.True(t, until(state(true, false)))
	assert.True(t, until(state(false, false)))
	assert.False(t, until(state(false, true)))

	both, err := Terminal(l, formula.Finally(goal), formula.Globally(safe))
	require.NoError(t, err)
	assert.True(t, both(state(true, false)))
	assert.False(t, both(state(true, true)))

	_, err = Terminal(l)
	assert.Error(t, err)
	_, err = Terminal(l, goal)
	assert.ErrorIs(t, err, ErrNotImplemented)
}
