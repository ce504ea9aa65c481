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

	"github.com/jazzpetri/faultcheck/formula"
	"github.com/jazzpetri/faultcheck/markov"
	"github.com/jazzpetri/faultcheck/observability"
	"github.com/jazzpetri/faultcheck/probability"
)

// DTMCChecker computes probabilities of path formulas on a DTMC. It never
// modifies the chain.
type DTMCChecker struct {
	chain   *markov.DTMC
	digraph *markov.UnderlyingDigraph
	opts    Options
}

// NewDTMCChecker validates m and creates a checker for it.
func NewDTMCChecker(m *markov.DTMC, opts Options) (*DTMCChecker, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &DTMCChecker{
		chain:   m,
		digraph: markov.DigraphOfDTMC(m),
		opts:    opts.withDefaults(),
	}, nil
}

// CalculateProbability returns the probability that a path from the
// initial distribution satisfies f.
func (c *DTMCChecker) CalculateProbability(f formula.Formula) (probability.Probability, error) {
	q, err := parse(c.chain.Labeling, f)
	if err != nil {
		return 0, err
	}

	actx := c.opts.Analysis
	span := actx.Tracer.StartSpan("checker.dtmc")
	defer span.End()
	span.SetAttribute("formula", f.String())
	start := actx.Clock.Now()

	var x []float64
	var iterations int
	if q.bound == unbounded {
		x, iterations, err = c.unbounded(q)
	} else {
		x = c.bounded(q)
		iterations = q.bound
	}
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	p := result(expectation(c.chain.Initial, x), q.negate)

	elapsed := actx.Clock.Since(start)
	actx.Metrics.Add(observability.MetricCheckerIterationsTotal, float64(iterations))
	actx.Metrics.Observe(observability.MetricCheckerDuration, elapsed.Seconds())
	actx.Logger.Info("dtmc checked", actx.Fields(map[string]interface{}{
		"formula":     f.String(),
		"probability": p.Value(),
		"states":      c.chain.States(),
		"iterations":  iterations,
		"elapsed":     elapsed.String(),
	}))
	return p, nil
}

// CalculateProbabilityRange is not supported on DTMCs.
func (c *DTMCChecker) CalculateProbabilityRange(f formula.Formula) (probability.Probability, probability.Probability, error) {
	return 0, 0, fmt.Errorf("%w: probability range of %v", ErrNotImplemented, f)
}

// CalculateReward is not supported.
func (c *DTMCChecker) CalculateReward(f formula.Formula) (float64, error) {
	return 0, fmt.Errorf("%w: reward of %v", ErrNotImplemented, f)
}

func (c *DTMCChecker) bounded(q query) []float64 {
	psi := satisfied(c.chain.Labels, q.psi)
	phi := satisfied(c.chain.Labels, q.phi)

	x := make([]float64, c.chain.States())
	next := make([]float64, len(x))
	for s := range x {
		if psi[s] {
			x[s] = 1
		}
	}
	for step := 0; step < q.bound; step++ {
		for s, row := range c.chain.Rows {
			switch {
			case psi[s]:
				next[s] = 1
			case !phi[s]:
				next[s] = 0
			default:
				next[s] = expectation(row, x)
			}
		}
		x, next = next, x
	}
	return x
}

// qualitative returns the states with probability 0 and 1 of phi U psi.
func (c *DTMCChecker) qualitative(phi, psi []bool) (zero, one []bool) {
	zero = not(c.digraph.Ancestors(psi, func(s int) bool { return phi[s] }))
	one = not(c.digraph.Ancestors(zero, func(s int) bool { return phi[s] && !psi[s] }))
	return zero, one
}

// unbounded solves the remaining states with Gauss-Seidel iterations.
func (c *DTMCChecker) unbounded(q query) ([]float64, int, error) {
	psi := satisfied(c.chain.Labels, q.psi)
	phi := satisfied(c.chain.Labels, q.phi)
	zero, one := c.qualitative(phi, psi)

	x := make([]float64, c.chain.States())
	var unknown []int
	for s := range x {
		switch {
		case one[s]:
			x[s] = 1
		case !zero[s]:
			unknown = append(unknown, s)
		}
	}

	c.opts.Analysis.Logger.Debug("dtmc precomputation", c.opts.Analysis.Fields(map[string]interface{}{
		"zero":    count(zero),
		"one":     count(one),
		"unknown": len(unknown),
	}))
	if len(unknown) == 0 {
		return x, 0, nil
	}

	prev := make([]float64, len(x))
	it := iteration{opts: c.opts, name: "dtmc"}
	for {
		copy(prev, x)
		for _, s := range unknown {
			var sum, self float64
			for _, e := range c.chain.Rows[s] {
				if e.Target == s {
					self += e.Probability
				} else {
					sum += e.Probability * x[e.Target]
				}
			}
			if self < 1 {
				x[s] = sum / (1 - self)
			}
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
