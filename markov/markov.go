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

// Package markov builds Markov chains and Markov decision processes from
// explored state graphs.
//
// A labeled traversal.StateGraph records, for every state, the tree of
// choices of one step. FromStateGraph turns it into a NestedMDP whose nodes
// are nondeterministic splits, probabilistic splits and leaves pointing at
// target states. A NestedMDP is then converted into
//   - a DTMC by resolving nondeterministic splits uniformly,
//   - an MDP by flattening every combination of nondeterministic choices
//     into one distribution, or
//   - an MDP by introducing a new state for every nested split.
//
// Both MDP conversions preserve the minimal and maximal probabilities of
// unbounded and bounded reachability.
//
// Paths that produced no transition are pruned before any conversion: a
// nondeterministic split loses the alternatives that reach no state and a
// probabilistic split renormalizes over its remaining children. A state
// without any remaining path loops on itself. All conversions therefore see
// the same tree.
//
// The new states of the second MDP conversion are marked as auxiliary. They
// belong to the step of their owner, so bounded formulas do not count them.
package markov

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"

	"github.com/jazzpetri/faultcheck/formula"
)

// ErrNotProbabilistic is returned for state graphs that were explored
// without step graphs.
var ErrNotProbabilistic = errors.New("state graph has no probabilistic structure")

// Tolerance is the accepted deviation of a distribution sum from 1.
const Tolerance = 1e-9

// Entry is one outcome of a distribution.
type Entry struct {
	Target      int
	Probability float64
}

// Distribution is a probability distribution over states, sorted by target
// with one entry per target.
type Distribution []Entry

// Sum returns the probability mass of d.
func (d Distribution) Sum() float64 {
	ps := make([]float64, len(d))
	for i, e := range d {
		ps[i] = e.Probability
	}
	return floats.Sum(ps)
}

// Equal reports whether d and o assign the same probabilities within
// Tolerance.
func (d Distribution) Equal(o Distribution) bool {
	if len(d) != len(o) {
		return false
	}
	for i := range d {
		if d[i].Target != o[i].Target || math.Abs(d[i].Probability-o[i].Probability) > Tolerance {
			return false
		}
	}
	return true
}

// String implements fmt.Stringer.
func (d Distribution) String() string {
	s := "{"
	for i, e := range d {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%d: %.6g", e.Target, e.Probability)
	}
	return s + "}"
}

// distribution converts accumulated masses into a normalized distribution.
// Without mass the distribution is a point mass on self.
func distribution(mass map[int]float64, self int) Distribution {
	var total float64
	for _, p := range mass {
		total += p
	}
	if total <= 0 {
		return Distribution{{Target: self, Probability: 1}}
	}

	d := make(Distribution, 0, len(mass))
	for t, p := range mass {
		if p > 0 {
			d = append(d, Entry{Target: t, Probability: p / total})
		}
	}
	slices.SortFunc(d, func(a, b Entry) int { return a.Target - b.Target })
	return d
}

func checkDistribution(d Distribution, states int, what string) error {
	if len(d) == 0 {
		return fmt.Errorf("%s: empty distribution", what)
	}
	for _, e := range d {
		if e.Target < 0 || e.Target >= states {
			return fmt.Errorf("%s: target %d out of range", what, e.Target)
		}
		if e.Probability < 0 || e.Probability > 1+Tolerance {
			return fmt.Errorf("%s: invalid probability %v", what, e.Probability)
		}
	}
	if sum := d.Sum(); math.Abs(sum-1) > Tolerance {
		return fmt.Errorf("%s: probabilities sum to %v", what, sum)
	}
	return nil
}

// DTMC is a discrete-time Markov chain with one initial distribution.
type DTMC struct {
	Labeling *formula.Labeling
	Labels   []formula.StateFormulaSet
	Initial  Distribution
	Rows     []Distribution
}

// States returns the number of states.
func (m *DTMC) States() int {
	return len(m.Rows)
}

// Validate checks that every row is a probability distribution.
func (m *DTMC) Validate() error {
	if len(m.Labels) != len(m.Rows) {
		return fmt.Errorf("dtmc: %d labels for %d states", len(m.Labels), len(m.Rows))
	}
	if err := checkDistribution(m.Initial, m.States(), "dtmc initial"); err != nil {
		return err
	}
	for s, row := range m.Rows {
		if err := checkDistribution(row, m.States(), fmt.Sprintf("dtmc state %d", s)); err != nil {
			return err
		}
	}
	return nil
}

// TransitionCount returns the number of non-zero entries.
func (m *DTMC) TransitionCount() int {
	n := len(m.Initial)
	for _, row := range m.Rows {
		n += len(row)
	}
	return n
}

// MDP is a Markov decision process. A scheduler picks one distribution per
// state and one initial distribution.
type MDP struct {
	Labeling *formula.Labeling
	Labels   []formula.StateFormulaSet
	Initial  []Distribution
	Rows     [][]Distribution

	// Auxiliary marks the states that resolve a nested choice within the
	// step of the state owning it. Nil when there are none. An auxiliary
	// state only targets original states or auxiliary states with a larger
	// index, so its value is known once the values of its targets are.
	Auxiliary []bool
}

// States returns the number of states.
func (m *MDP) States() int {
	return len(m.Rows)
}

// IsAuxiliary reports whether s is an auxiliary state.
func (m *MDP) IsAuxiliary(s int) bool {
	return m.Auxiliary != nil && m.Auxiliary[s]
}

// Validate checks that every state has at least one distribution and that
// every distribution is valid.
func (m *MDP) Validate() error {
	if len(m.Labels) != len(m.Rows) {
		return fmt.Errorf("mdp: %d labels for %d states", len(m.Labels), len(m.Rows))
	}
	if len(m.Initial) == 0 {
		return errors.New("mdp: no initial distribution")
	}
	if m.Auxiliary != nil && len(m.Auxiliary) != len(m.Rows) {
		return fmt.Errorf("mdp: %d auxiliary flags for %d states", len(m.Auxiliary), len(m.Rows))
	}
	for i, d := range m.Initial {
		if err := checkDistribution(d, m.States(), fmt.Sprintf("mdp initial %d", i)); err != nil {
			return err
		}
	}
	for s, ds := range m.Rows {
		if len(ds) == 0 {
			return fmt.Errorf("mdp state %d: no distribution", s)
		}
		for i, d := range ds {
			if err := checkDistribution(d, m.States(), fmt.Sprintf("mdp state %d distribution %d", s, i)); err != nil {
				return err
			}
			if !m.IsAuxiliary(s) {
				continue
			}
			for _, e := range d {
				if m.IsAuxiliary(e.Target) && e.Target <= s {
					return fmt.Errorf("mdp auxiliary state %d: targets auxiliary state %d", s, e.Target)
				}
			}
		}
	}
	return nil
}

// DistributionCount returns the number of distributions of all states.
func (m *MDP) DistributionCount() int {
	n := 0
	for _, ds := range m.Rows {
		n += len(ds)
	}
	return n
}
