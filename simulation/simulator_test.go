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

package simulation

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jazzpetri/faultcheck/choice"
	"github.com/jazzpetri/faultcheck/formula"
	"github.com/jazzpetri/faultcheck/model"
	"github.com/jazzpetri/faultcheck/observability"
	"github.com/jazzpetri/faultcheck/probability"
	"github.com/jazzpetri/faultcheck/samples"
	"github.com/jazzpetri/faultcheck/statevector"
)

func makeSimulator(name string, opts Options) *Simulator {
	return New(samples.Default.Creator(name), opts)
}

// makeConstrained creates a counter that jumps to 1, 2 or 3 but must never
// be 3, or never be anything when impossible is set.
func makeConstrained(impossible bool) model.Creator {
	return model.CreatorFunc(func() (model.ExecutableModel, error) {
		m, err := samples.NewModel("constrained", statevector.Int("n", 0, 3))
		if err != nil {
			return nil, err
		}
		n := m.Index("n")
		m.Step = func() error {
			m.Vector().SetInt(n, choice.Choose(m.Choice(), int64(1), int64(2), int64(3)))
			return nil
		}
		m.AddConstraint(func() bool { return !impossible && m.Vector().Int(n) != 3 })
		m.AddProposition("three", func() bool { return m.Vector().Int(n) == 3 })
		m.AddProposition("two", func() bool { return m.Vector().Int(n) == 2 })
		return m, nil
	})
}

// TestRandomResolver_Weighted follows the probabilities of the options.
func TestRandomResolver_Weighted(t *testing.T) {
	r := NewRandomResolver(rand.NewPCG(1, 2))
	ps := []probability.Probability{probability.MustNew(0.1), probability.MustNew(0.9)}

	const draws = 10000
	ones := 0
	for i := 0; i < draws; i++ {
		r.PrepareNextState()
		more, err := r.PrepareNextPath()
		require.NoError(t, err)
		require.True(t, more)
		c := r.HandleWeightedChoice(ps)
		r.SetProbabilityOfLastChoice(ps[c])
		if c == 1 {
			ones++
		}
		assert.Equal(t, []int{c}, r.Choices())
		assert.InDelta(t, ps[c].Value(), r.PathProbability(), 1e-12)

		more, err = r.PrepareNextPath()
		require.NoError(t, err)
		assert.False(t, more)
	}
	assert.InDelta(t, 0.9, float64(ones)/draws, 0.02)
}

// TestSimulator_Dice estimates the probability of a face of the die.
func TestSimulator_Dice(t *testing.T) {
	metrics := observability.NewInMemoryMetrics()
	actx := observability.NewAnalysisContextBuilder().WithMetrics(metrics).Build()
	s := makeSimulator("dice", Options{Runs: 20000, Workers: 4, Seed: 7, Analysis: actx})

	res, err := s.Reachability(context.Background(), formula.Atomic("final1"), 100)
	require.NoError(t, err)
	assert.Equal(t, 20000, res.Runs)
	assert.InDelta(t, 1.0/6, res.Probability, 0.02)
	assert.Greater(t, res.StdError, 0.0)
	assert.GreaterOrEqual(t, res.Steps, 3.0)
	assert.Equal(t, 20000.0, metrics.Value(observability.MetricSimulationRunsTotal))
	assert.Equal(t, float64(res.Hits), metrics.Value(observability.MetricSimulationHitsTotal))
}

// TestSimulator_Reproducible yields the same runs for any number of
// workers.
func TestSimulator_Reproducible(t *testing.T) {
	var hits []int
	for _, workers := range []int{1, 3} {
		res, err := makeSimulator("three-exits", Options{Runs: 500, Workers: workers, Seed: 42}).
			Reachability(context.Background(), formula.Atomic("exitA"), 30)
		require.NoError(t, err)
		hits = append(hits, res.Hits)
	}
	assert.Equal(t, hits[0], hits[1])
}

// TestSimulator_Bounds counts the steps after the initial state.
func TestSimulator_Bounds(t *testing.T) {
	res, err := makeSimulator("three-way", Options{Runs: 5000, Seed: 3}).
		Reachability(context.Background(), formula.Atomic("state3"), 0)
	require.NoError(t, err)
	assert.Zero(t, res.Hits)

	res, err = makeSimulator("three-way", Options{Runs: 5000, Seed: 3}).
		Reachability(context.Background(), formula.Atomic("state3"), 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.6, res.Probability, 0.03)

	res, err = makeSimulator("uniform-initial", Options{Runs: 5000, Seed: 3}).
		Reachability(context.Background(), formula.Atomic("state2"), 0)
	require.NoError(t, err)
	assert.InDelta(t, 1.0/3, res.Probability, 0.03)
}

// TestSimulator_Constraints discards successors violating the state
// constraints.
func TestSimulator_Constraints(t *testing.T) {
	s := New(makeConstrained(false), Options{Runs: 2000, Seed: 5})
	res, err := s.Reachability(context.Background(), formula.Atomic("three"), 5)
	require.NoError(t, err)
	assert.Zero(t, res.Hits)

	res, err = s.Reachability(context.Background(), formula.Atomic("two"), 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, res.Probability, 0.05)

	_, err = New(makeConstrained(true), Options{Runs: 1, Seed: 5}).
		Reachability(context.Background(), formula.Atomic("two"), 1)
	assert.ErrorIs(t, err, ErrConstraints)
}

// TestSimulator_Errors rejects formulas that cannot be evaluated in a
// state.
func TestSimulator_Errors(t *testing.T) {
	s := makeSimulator("dice", Options{Runs: 10})

	_, err := s.Reachability(context.Background(), formula.Finally(formula.Atomic("final1")), 5)
	assert.ErrorIs(t, err, formula.ErrNotStateFormula)

	_, err = s.Reachability(context.Background(), formula.Atomic("final7"), 5)
	assert.ErrorIs(t, err, formula.ErrUnknownProposition)

	_, err = s.Reachability(context.Background(), formula.Atomic("final1"), -1)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Reachability(ctx, formula.Atomic("final1"), 5)
	assert.ErrorIs(t, err, context.Canceled)
}

// TestSimulator_Seed picks a seed when none is given.
func TestSimulator_Seed(t *testing.T) {
	assert.NotZero(t, makeSimulator("dice", Options{}).Seed())
	assert.Equal(t, uint64(9), makeSimulator("dice", Options{Seed: 9}).Seed())
}
