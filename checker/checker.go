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

// Package checker computes reachability probabilities on the Markov models
// of package markov.
//
// Supported path formulas are Finally, Globally and Until, optionally
// bounded, over state formulas that the model's labeling can decide:
//
//	c, err := checker.NewDTMCChecker(dtmc, checker.Options{})
//	p, err := c.CalculateProbability(formula.Finally(formula.Atomic("broken")))
//
// Unbounded probabilities first determine the states with probability 0
// and 1 on the underlying digraph. The remaining states are solved by
// iteration until the largest change of a sweep drops below
// Options.Tolerance. Bounded formulas take exactly Bound rounds of value
// iteration; the bound counts the steps after the initial state.
package checker

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/jazzpetri/faultcheck/formula"
	"github.com/jazzpetri/faultcheck/markov"
	"github.com/jazzpetri/faultcheck/observability"
	"github.com/jazzpetri/faultcheck/probability"
)

// ErrNotImplemented is returned for formulas and queries the checkers do
// not solve.
var ErrNotImplemented = errors.New("not implemented")

const (
	// DefaultTolerance is the default convergence tolerance.
	DefaultTolerance = 1e-10

	// DefaultMaxIterations is the default iteration cap of unbounded
	// solvers.
	DefaultMaxIterations = 1_000_000

	// cancelCheckInterval is the number of sweeps between context checks.
	cancelCheckInterval = 1024
)

// Options configure a checker.
type Options struct {
	// Tolerance ends an unbounded iteration once no value changes by more.
	Tolerance float64

	// MaxIterations caps unbounded iterations. Reaching it logs a warning
	// and returns the current approximation.
	MaxIterations int

	// Analysis provides logging, metrics and the clock. Nil means NoOp.
	Analysis *observability.AnalysisContext
}

func (o Options) withDefaults() Options {
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	o.Analysis = observability.OrBackground(o.Analysis)
	return o
}

// query is a path formula reduced to phi U<=bound psi. Globally is checked
// as the complement of Finally not psi.
type query struct {
	phi, psi func(formula.StateFormulaSet) bool
	bound    int
	negate   bool
}

const unbounded = -1

func isTrue(formula.StateFormulaSet) bool { return true }

func parse(l *formula.Labeling, f formula.Formula) (query, error) {
	if l == nil {
		return query{}, errors.New("model has no labeling")
	}
	q := query{phi: isTrue, bound: unbounded}
	predicate := func(g formula.Formula) (func(formula.StateFormulaSet) bool, error) {
		p, err := l.Predicate(g)
		if err != nil {
			return nil, fmt.Errorf("%w: %v: %w", ErrNotImplemented, f, err)
		}
		return p, nil
	}

	var err error
	switch n := f.(type) {
	case formula.UnaryFormula:
		switch n.Operator {
		case formula.FinallyOp:
			q.psi, err = predicate(n.Operand)
		case formula.GloballyOp:
			q.psi, err = predicate(formula.Negate(n.Operand))
			q.negate = true
		default:
			return q, fmt.Errorf("%w: %v is not a path formula", ErrNotImplemented, f)
		}
	case formula.BoundedUnaryFormula:
		q.bound = n.Bound
		switch n.Operator {
		case formula.FinallyOp:
			q.psi, err = predicate(n.Operand)
		case formula.GloballyOp:
			q.psi, err = predicate(formula.Negate(n.Operand))
			q.negate = true
		default:
			return q, fmt.Errorf("%w: %v", ErrNotImplemented, f)
		}
	case formula.BinaryFormula:
		if n.Operator != formula.UntilOp {
			return q, fmt.Errorf("%w: %v is not a path formula", ErrNotImplemented, f)
		}
		if q.phi, err = predicate(n.Left); err == nil {
			q.psi, err = predicate(n.Right)
		}
	case formula.BoundedBinaryFormula:
		if n.Operator != formula.UntilOp {
			return q, fmt.Errorf("%w: %v", ErrNotImplemented, f)
		}
		q.bound = n.Bound
		if q.phi, err = predicate(n.Left); err == nil {
			q.psi, err = predicate(n.Right)
		}
	default:
		return q, fmt.Errorf("%w: %v is not a path formula", ErrNotImplemented, f)
	}
	if err != nil {
		return q, err
	}
	if q.bound < unbounded {
		return q, fmt.Errorf("negative bound in %v", f)
	}
	return q, nil
}

// Terminal returns a predicate for traversal.Options.Terminal that holds in
// the states where every formula of fs is decided: its goal holds or its
// path condition fails. The probabilities of fs on a graph explored with
// the predicate equal those on the complete graph.
//
// Example:
//
//	opts.Terminal, err = checker.Terminal(labeling, formula.Finally(formula.Atomic("broken")))
func Terminal(l *formula.Labeling, fs ...formula.Formula) (func(formula.StateFormulaSet) bool, error) {
	if len(fs) == 0 {
		return nil, errors.New("early termination requires at least one formula")
	}
	queries := make([]query, len(fs))
	for i, f := range fs {
		q, err := parse(l, f)
		if err != nil {
			return nil, err
		}
		queries[i] = q
	}
	return func(s formula.StateFormulaSet) bool {
		for _, q := range queries {
			if !q.psi(s) && q.phi(s) {
				return false
			}
		}
		return true
	}, nil
}

func satisfied(labels []formula.StateFormulaSet, p func(formula.StateFormulaSet) bool) []bool {
	out := make([]bool, len(labels))
	for s, l := range labels {
		out[s] = p(l)
	}
	return out
}

func not(set []bool) []bool {
	out := make([]bool, len(set))
	for s, v := range set {
		out[s] = !v
	}
	return out
}

func count(set []bool) int {
	n := 0
	for _, v := range set {
		if v {
			n++
		}
	}
	return n
}

// expectation returns the expected value of x under the distribution d.
func expectation(d markov.Distribution, x []float64) float64 {
	ps := make([]float64, len(d))
	xs := make([]float64, len(d))
	for i, e := range d {
		ps[i] = e.Probability
		xs[i] = x[e.Target]
	}
	return floats.Dot(ps, xs)
}

// maxDelta returns the largest absolute difference of x and prev.
func maxDelta(x, prev []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return floats.Distance(x, prev, math.Inf(1))
}

func result(v float64, negate bool) probability.Probability {
	if negate {
		v = 1 - v
	}
	return probability.Probability(math.Min(1, math.Max(0, v)))
}

// iteration tracks an unbounded iteration and reports how it ended.
type iteration struct {
	opts  Options
	name  string
	count int
}

// done reports whether the iteration ends after a sweep that changed the
// values by at most delta.
func (it *iteration) done(delta float64) (bool, error) {
	it.count++
	if delta <= it.opts.Tolerance {
		return true, nil
	}
	actx := it.opts.Analysis
	if it.count >= it.opts.MaxIterations {
		actx.Logger.Warn("convergence not reached", actx.Fields(map[string]interface{}{
			"checker":    it.name,
			"iterations": it.count,
			"delta":      delta,
		}))
		return true, nil
	}
	if it.count%cancelCheckInterval == 0 {
		if err := actx.Context.Err(); err != nil {
			return true, err
		}
	}
	return false, nil
}
