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
	"fmt"
	"math"

	"github.com/jazzpetri/faultcheck/formula"
	"github.com/jazzpetri/faultcheck/markov"
	"github.com/jazzpetri/faultcheck/observability"
	"github.com/jazzpetri/faultcheck/probability"
)

// MDPChecker computes minimal and maximal probabilities over all schedulers
// of an MDP. It never modifies the MDP.
type MDPChecker struct {
	mdp     *markov.MDP
	digraph *markov.UnderlyingDigraph
	opts    Options
}

// NewMDPChecker validates m and creates a checker for it.
func NewMDPChecker(m *markov.MDP, opts Options) (*MDPChecker, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &MDPChecker{
		mdp:     m,
		digraph: markov.DigraphOfMDP(m),
		opts:    opts.withDefaults(),
	}, nil
}

// CalculateMinimalProbability returns the smallest probability of f that a
// scheduler can achieve.
func (c *MDPChecker) CalculateMinimalProbability(f formula.Formula) (probability.Probability, error) {
	return c.calculate(f, false)
}

// CalculateMaximalProbability returns the largest probability of f that a
// scheduler can achieve.
func (c *MDPChecker) CalculateMaximalProbability(f formula.Formula) (probability.Probability, error) {
	return c.calculate(f, true)
}

// CalculateProbabilityRange is not supported.
func (c *MDPChecker) CalculateProbabilityRange(f formula.Formula) (probability.Probability, probability.Probability, error) {
	return 0, 0, fmt.Errorf("%w: probability range of %v", ErrNotImplemented, f)
}

// CalculateReward is not supported.
func (c *MDPChecker) CalculateReward(f formula.Formula) (float64, error) {
	return 0, fmt.Errorf("%w: reward of %v", ErrNotImplemented, f)
}

func (c *MDPChecker) calculate(f formula.Formula, maximize bool) (probability.Probability, error) {
	q, err := parse(c.mdp.Labeling, f)
	if err != nil {
		return 0, err
	}
	// G psi is the complement of F not psi under the opposite objective.
	if q.negate {
		maximize = !maximize
	}

	actx := c.opts.Analysis
	span := actx.Tracer.StartSpan("checker.mdp")
	defer span.End()
	span.SetAttribute("formula", f.String())
	span.SetAttribute("maximize", maximize != q.negate)
	start := actx.Clock.Now()

	var x []float64
	var iterations int
	if q.bound == unbounded {
		x, iterations, err = c.unbounded(q, maximize)
	} else {
		x = c.bounded(q, maximize)
		iterations = q.bound
	}
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	v := optimize(maximize)
	initial := v.start
	for _, d := range c.mdp.Initial {
		initial = v.pick(initial, expectation(d, x))
	}
	p := result(initial, q.negate)

	elapsed := actx.Clock.Since(start)
	actx.Metrics.Add(observability.MetricCheckerIterationsTotal, float64(iterations))
	actx.Metrics.Observe(observability.MetricCheckerDuration, elapsed.Seconds())
	objective := "min"
	if maximize != q.negate {
		objective = "max"
	}
	actx.Logger.Info("mdp checked", actx.Fields(map[string]interface{}{
		"formula":       f.String(),
		"objective":     objective,
		"probability":   p.Value(),
		"states":        c.mdp.States(),
		"distributions": c.mdp.DistributionCount(),
		"iterations":    iterations,
		"elapsed":       elapsed.String(),
	}))
	return p, nil
}

// optimizer picks the better of two values.
type optimizer struct {
	start float64
	pick  func(a, b float64) float64
}

func optimize(maximize bool) optimizer {
	if maximize {
		return optimizer{start: math.Inf(-1), pick: math.Max}
	}
	return optimizer{start: math.Inf(1), pick: math.Min}
}

// best returns the optimal expectation of x over the distributions of a
// state.
func (o optimizer) best(ds []markov.Distribution, x []float64) float64 {
	v := o.start
	for _, d := range ds {
		v = o.pick(v, expectation(d, x))
	}
	return v
}

// sets evaluates phi and psi on every state. Auxiliary states satisfy phi
// and never psi; their owner has already been evaluated in the same step.
func (c *MDPChecker) sets(q query) (phi, psi []bool) {
	psi = satisfied(c.mdp.Labels, q.psi)
	phi = satisfied(c.mdp.Labels, q.phi)
	for s := range psi {
		if c.mdp.IsAuxiliary(s) {
			psi[s], phi[s] = false, true
		}
	}
	return phi, psi
}

// resolveAuxiliary computes the values of the auxiliary states from the
// values of the original states in x. Targets of an auxiliary state have a
// larger index, so one backward sweep suffices.
func (c *MDPChecker) resolveAuxiliary(o optimizer, x []float64) {
	if c.mdp.Auxiliary == nil {
		return
	}
	for s := len(x) - 1; s >= 0; s-- {
		if c.mdp.Auxiliary[s] {
			x[s] = o.best(c.mdp.Rows[s], x)
		}
	}
}

// bounded runs one round of value iteration per step. Auxiliary states are
// resolved within the round of their owner and do not take a step.
func (c *MDPChecker) bounded(q query, maximize bool) []float64 {
	phi, psi := c.sets(q)
	o := optimize(maximize)

	x := make([]float64, c.mdp.States())
	next := make([]float64, len(x))
	for s := range x {
		if psi[s] {
			x[s] = 1
		}
	}
	c.resolveAuxiliary(o, x)
	for step := 0; step < q.bound; step++ {
		for s, ds := range c.mdp.Rows {
			switch {
			case c.mdp.IsAuxiliary(s):
				next[s] = 0
			case psi[s]:
				next[s] = 1
			case !phi[s]:
				next[s] = 0
			default:
				next[s] = o.best(ds, x)
			}
		}
		x, next = next, x
		c.resolveAuxiliary(o, x)
	}
	return x
}

// prob0A returns the states that reach psi with probability 0 under every
// scheduler.
func (c *MDPChecker) prob0A(phi, psi []bool) []bool {
	return not(c.digraph.Ancestors(psi, func(s int) bool { return phi[s] }))
}

// prob0E returns the states for which a scheduler avoids psi with
// probability 1.
func (c *MDPChecker) prob0E(phi, psi []bool) []bool {
	forced := append([]bool(nil), psi...)
	for changed := true; changed; {
		changed = false
		for s, ds := range c.mdp.Rows {
			if forced[s] || !phi[s] {
				continue
			}
			all := true
			for _, d := range ds {
				if !reaches(d, forced) {
					all = false
					break
				}
			}
			if all {
				forced[s] = true
				changed = true
			}
		}
	}
	return not(forced)
}

// prob1E returns the states for which a scheduler reaches psi with
// probability 1.
func (c *MDPChecker) prob1E(phi, psi []bool) []bool {
	u := make([]bool, c.mdp.States())
	for s := range u {
		u[s] = true
	}
	for {
		r := append([]bool(nil), psi...)
		for changed := true; changed; {
			changed = false
			for s, ds := range c.mdp.Rows {
				if r[s] || !u[s] || !phi[s] {
					continue
				}
				for _, d := range ds {
					if within(d, u) && reaches(d, r) {
						r[s] = true
						changed = true
						break
					}
				}
			}
		}
		if equal(r, u) {
			return r
		}
		u = r
	}
}

func reaches(d markov.Distribution, set []bool) bool {
	for _, e := range d {
		if e.Probability > 0 && set[e.Target] {
			return true
		}
	}
	return false
}

func within(d markov.Distribution, set []bool) bool {
	for _, e := range d {
		if e.Probability > 0 && !set[e.Target] {
			return false
		}
	}
	return true
}

func equal(a, b []bool) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// unbounded solves the remaining states by value iteration from below.
func (c *MDPChecker) unbounded(q query, maximize bool) ([]float64, int, error) {
	phi, psi := c.sets(q)

	var zero, one []bool
	if maximize {
		zero, one = c.prob0A(phi, psi), c.prob1E(phi, psi)
	} else {
		zero, one = c.prob0E(phi, psi), psi
	}

	x := make([]float64, c.mdp.States())
	var unknown []int
	for s := range x {
		switch {
		case one[s]:
			x[s] = 1
		case !zero[s]:
			unknown = append(unknown, s)
		}
	}

	c.opts.Analysis.Logger.Debug("mdp precomputation", c.opts.Analysis.Fields(map[string]interface{}{
		"maximize": maximize,
		"zero":     count(zero),
		"one":      count(one),
		"unknown":  len(unknown),
	}))
	if len(unknown) == 0 {
		return x, 0, nil
	}

	o := optimize(maximize)
	prev := make([]float64, len(x))
	it := iteration{opts: c.opts, name: "mdp"}
	for {
		copy(prev, x)
		for _, s := range unknown {
			x[s] = o.best(c.mdp.Rows[s], x)
		}
		done, err := it.done(maxDelta(x, prev))
		if err != nil {
			return nil, it.count, err
		}
		if done {
			return x, it.count, nil
		}
	}
}
