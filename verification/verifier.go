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

// Package verification checks safety properties of executable models.
//
// The verifier explores the activation-minimal state graph of a model and
// checks properties over all reachable states. Violations are reported with
// a witness path, the minimal fault sets under which they occur and,
// optionally, a counter-example that can be saved and replayed.
//
// # Usage
//
//	v := verification.NewVerifier(creator, codec, verification.DefaultOptions())
//	result, err := v.CheckInvariant(ctx, "no_rupture", formula.Negate(formula.Atomic("ruptured")))
//	if err == nil && !result.Satisfied {
//	    _, _ = result.CounterExample.SaveFile("rupture")
//	}
//
// # Properties
//
// The verifier can check:
//   - Invariants: a state formula holds in every reachable state
//   - Reachability: some reachable state satisfies a state formula
//   - Mutual exclusion: two state formulas never hold together
//   - Deadlock freedom: every expanded state has a successor
//
// A model that fails during a step makes every check unsatisfied. The
// failing step is recorded as the last step of the counter-example.
package verification

import (
	"context"
	"errors"
	"fmt"

	"github.com/jazzpetri/faultcheck/counterexample"
	"github.com/jazzpetri/faultcheck/executed"
	"github.com/jazzpetri/faultcheck/faults"
	"github.com/jazzpetri/faultcheck/formula"
	"github.com/jazzpetri/faultcheck/model"
	"github.com/jazzpetri/faultcheck/observability"
	"github.com/jazzpetri/faultcheck/traversal"
)

// Options configure a Verifier.
type Options struct {
	// Traversal configures the state space exploration. Labeled, Stop and
	// the labeling are set by the verifier.
	Traversal traversal.Options

	// EarlyTermination stops the exploration at the first state that
	// violates an invariant.
	EarlyTermination bool

	// GenerateCounterExample attaches a counter-example to every violation.
	// It requires a codec.
	GenerateCounterExample bool

	// CollectFaultSets computes the minimal fault sets of violations.
	CollectFaultSets bool

	// AtomicLabels labels states with atomic propositions only.
	AtomicLabels bool
}

// DefaultOptions returns options that stop at the first violation and
// generate counter-examples.
func DefaultOptions() Options {
	return Options{
		EarlyTermination:       true,
		GenerateCounterExample: true,
		AtomicLabels:           true,
	}
}

// StateSpace is the explored state graph together with its labeling.
type StateSpace struct {
	Graph    *traversal.StateGraph
	Labeling *formula.Labeling

	// Exception is the model failure that ended the exploration, if any.
	// Graph is nil when the initial step failed.
	Exception error

	// ExceptionPath leads from an initial state to the state whose step
	// failed. It is empty when the initial step failed.
	ExceptionPath []int
}

// StateCount returns the number of explored states.
func (ss *StateSpace) StateCount() int {
	if ss.Graph == nil {
		return 0
	}
	return ss.Graph.StateCount()
}

// Complete reports whether every reachable state was explored.
func (ss *StateSpace) Complete() bool {
	return ss.Exception == nil && ss.Graph != nil && ss.Graph.Violation() == traversal.NoState
}

// Verifier checks safety properties of the models of one creator.
type Verifier struct {
	creator model.Creator
	codec   model.Codec
	opts    Options
}

// NewVerifier creates a verifier. The codec is used for counter-examples
// and may be nil when none are generated.
func NewVerifier(creator model.Creator, codec model.Codec, opts Options) *Verifier {
	opts.Traversal.Analysis = observability.OrBackground(opts.Traversal.Analysis)
	return &Verifier{creator: creator, codec: codec, opts: opts}
}

// BuildStateSpace explores the activation-minimal state graph with the
// state formulas of formulas as labels. When stop is non-nil the
// exploration ends at the first state it returns true for.
//
// A failing model step is not an error: it is reported by
// StateSpace.Exception. Capacity exhaustion and cancellation are.
func (v *Verifier) BuildStateSpace(ctx context.Context, formulas []formula.Formula, stop func(formula.StateFormulaSet) bool) (*StateSpace, error) {
	labeling, err := formula.NewLabeling(formulas, v.opts.AtomicLabels)
	if err != nil {
		return nil, err
	}

	opts := v.opts.Traversal
	opts.Labeled = false
	opts.Stop = stop
	opts.Executed.Labeling = labeling

	g, err := traversal.New(v.creator, opts).Run(ctx)
	ss := &StateSpace{Graph: g, Labeling: labeling}
	if err == nil {
		return ss, nil
	}

	var stateErr *traversal.StateError
	var stepErr *executed.StepError
	switch {
	case errors.As(err, &stateErr) && errors.As(err, &stepErr):
		ss.Exception = stepErr
		ss.ExceptionPath = g.PathTo(stateErr.State)
	case errors.As(err, &stepErr) && stepErr.Initial:
		ss.Graph = nil
		ss.Exception = stepErr
	default:
		return nil, err
	}
	return ss, nil
}

// CheckInvariant checks that invariant holds in every reachable state.
func (v *Verifier) CheckInvariant(ctx context.Context, name string, invariant formula.Formula) (VerificationResult, error) {
	cert, err := v.VerifyProperties(ctx, []SafetyProperty{NewInvariantProperty(name, invariant)})
	if err != nil {
		return VerificationResult{}, err
	}
	return cert.Properties[0], nil
}

// VerifyProperties explores the state space once and checks every property
// against it. With EarlyTermination the exploration stops at the first
// violation of any invariant and the other properties are checked on the
// explored part only.
func (v *Verifier) VerifyProperties(ctx context.Context, properties []SafetyProperty) (*ProofCertificate, error) {
	actx := v.opts.Traversal.Analysis
	start := actx.Clock.Now()

	var formulas []formula.Formula
	for _, p := range properties {
		if p.Formula != nil {
			if !formula.IsStateFormula(p.Formula) {
				return nil, fmt.Errorf("property %s: %w: %v", p.Name, formula.ErrNotStateFormula, p.Formula)
			}
			formulas = append(formulas, p.Formula)
		}
	}

	var stop func(formula.StateFormulaSet) bool
	if v.opts.EarlyTermination {
		var err error
		if stop, err = v.violatesAny(formulas, properties); err != nil {
			return nil, err
		}
	}

	ss, err := v.BuildStateSpace(ctx, formulas, stop)
	if err != nil {
		return nil, err
	}

	cert := &ProofCertificate{
		StateCount: ss.StateCount(),
		Complete:   ss.Complete(),
		Exception:  ss.Exception,
	}
	if ss.Graph != nil {
		cert.TransitionCount = ss.Graph.TransitionCount()
		cert.ComputedTransitionCount = ss.Graph.ComputedTransitionCount()
	}
	if ss.Exception != nil && v.opts.GenerateCounterExample {
		if cert.CounterExample, err = v.counterExample(ss, ss.ExceptionPath, true); err != nil {
			return nil, err
		}
	}

	cert.DeadlockFree = true
	for _, p := range properties {
		result := p.Check(v, ss)
		result.Property = p.Name
		if !result.Satisfied && len(result.Witness) > 0 && v.opts.GenerateCounterExample && ss.Exception == nil {
			if result.CounterExample, err = v.counterExample(ss, result.Witness, false); err != nil {
				return nil, err
			}
		}
		if p.deadlock && !result.Satisfied {
			cert.DeadlockFree = false
		}
		cert.Properties = append(cert.Properties, result)
	}
	cert.Elapsed = actx.Clock.Since(start)

	actx.Logger.Info("verification finished", actx.Fields(map[string]interface{}{
		"properties": len(properties),
		"satisfied":  cert.AllSatisfied(),
		"states":     cert.StateCount,
		"complete":   cert.Complete,
		"exception":  ss.Exception != nil,
		"elapsed_ms": cert.Elapsed.Milliseconds(),
	}))
	return cert, nil
}

// GenerateCertificate checks deadlock freedom and the given invariants.
func (v *Verifier) GenerateCertificate(ctx context.Context, invariants ...formula.Formula) (*ProofCertificate, error) {
	properties := []SafetyProperty{NewDeadlockFreedomProperty("deadlock_freedom")}
	for i, f := range invariants {
		properties = append(properties, NewInvariantProperty(fmt.Sprintf("invariant_%d", i), f))
	}
	return v.VerifyProperties(ctx, properties)
}

// violatesAny returns a stop predicate for the invariants among properties.
func (v *Verifier) violatesAny(formulas []formula.Formula, properties []SafetyProperty) (func(formula.StateFormulaSet) bool, error) {
	labeling, err := formula.NewLabeling(formulas, v.opts.AtomicLabels)
	if err != nil {
		return nil, err
	}
	var holds []func(formula.StateFormulaSet) bool
	for _, p := range properties {
		if !p.invariant {
			continue
		}
		h, err := labeling.Predicate(p.Formula)
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", p.Name, err)
		}
		holds = append(holds, h)
	}
	if len(holds) == 0 {
		return nil, nil
	}
	return func(s formula.StateFormulaSet) bool {
		for _, h := range holds {
			if !h(s) {
				return true
			}
		}
		return false
	}, nil
}

// counterExample builds a counter-example along path.
func (v *Verifier) counterExample(ss *StateSpace, path []int, exception bool) (*counterexample.CounterExample, error) {
	if v.codec == nil {
		return nil, errors.New("counter-example generation requires a model codec")
	}
	states := make([][]byte, len(path))
	for i, s := range path {
		states[i] = append([]byte(nil), ss.Graph.State(s)...)
	}

	m, err := v.creator.Create()
	if err != nil {
		return nil, err
	}
	info, err := counterexample.GenerateReplayInfo(m, states, exception)
	if err != nil {
		return nil, fmt.Errorf("failed to generate replay info: %w", err)
	}
	return counterexample.New(v.codec, m, states, info, exception)
}

// minimalFaultSets computes for every state the minimal sets of faults
// under which it is reachable.
func minimalFaultSets(g *traversal.StateGraph) [][]faults.FaultSet {
	sets := make([][]faults.FaultSet, g.StateCount())
	var queue []int
	add := func(s int, fs faults.FaultSet) {
		var added bool
		if sets[s], added = addMinimal(sets[s], fs); added {
			queue = append(queue, s)
		}
	}

	for _, t := range g.InitialTransitions() {
		add(t.Target, t.Faults)
	}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		for _, t := range g.Transitions(s) {
			for _, fs := range sets[s] {
				add(t.Target, fs.Union(t.Faults))
			}
		}
	}
	return sets
}
