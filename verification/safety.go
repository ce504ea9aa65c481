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

package verification

import (
	"fmt"

	"github.com/jazzpetri/faultcheck/faults"
	"github.com/jazzpetri/faultcheck/formula"
	"github.com/jazzpetri/faultcheck/traversal"
)

// SafetyProperty represents a named safety property that can be verified
// against a state space. Properties are composable and can be combined
// into verification suites using VerifyProperties().
type SafetyProperty struct {
	// Name is the unique identifier for this property
	Name string

	// Description is a human-readable explanation of what the property checks
	Description string

	// Formula is the state formula the property needs as state labels, if
	// any
	Formula formula.Formula

	// Check is the function that performs the actual verification
	Check func(v *Verifier, ss *StateSpace) VerificationResult

	invariant bool
	deadlock  bool
}

// NewInvariantProperty creates a property that checks that the state
// formula invariant holds in every reachable state.
//
// Example:
//
//	prop := NewInvariantProperty("no_rupture", formula.Negate(formula.Atomic("ruptured")))
func NewInvariantProperty(name string, invariant formula.Formula) SafetyProperty {
	return SafetyProperty{
		Name:        name,
		Description: fmt.Sprintf("%v holds in every reachable state", invariant),
		Formula:     invariant,
		invariant:   true,
		Check: func(v *Verifier, ss *StateSpace) VerificationResult {
			return v.CheckInvariantOn(ss, invariant)
		},
	}
}

// NewReachabilityProperty creates a property that checks that some
// reachable state satisfies target.
//
// Example:
//
//	prop := NewReachabilityProperty("exit_reachable", formula.Atomic("exitA"))
func NewReachabilityProperty(name string, target formula.Formula) SafetyProperty {
	return SafetyProperty{
		Name:        name,
		Description: fmt.Sprintf("a state satisfying %v is reachable", target),
		Formula:     target,
		Check: func(v *Verifier, ss *StateSpace) VerificationResult {
			return v.CheckReachability(ss, target)
		},
	}
}

// NewMutualExclusionProperty creates a property that checks that a and b
// never hold in the same state.
func NewMutualExclusionProperty(name string, a, b formula.Formula) SafetyProperty {
	p := NewInvariantProperty(name, formula.Negate(formula.And(a, b)))
	p.Description = fmt.Sprintf("%v and %v are mutually exclusive", a, b)
	return p
}

// NewDeadlockFreedomProperty creates a property that verifies that every
// expanded state has at least one successor. States lose all successors
// when the state constraints reject every path of their step.
func NewDeadlockFreedomProperty(name string) SafetyProperty {
	return SafetyProperty{
		Name:        name,
		Description: "model has no deadlocks",
		deadlock:    true,
		Check: func(v *Verifier, ss *StateSpace) VerificationResult {
			return v.CheckDeadlockFreedom(ss)
		},
	}
}

// exceptionResult reports a property that cannot hold because the model
// failed.
func exceptionResult(ss *StateSpace) VerificationResult {
	return VerificationResult{
		Satisfied:     false,
		Message:       fmt.Sprintf("model failed: %v", ss.Exception),
		Witness:       ss.ExceptionPath,
		StatesChecked: ss.StateCount(),
	}
}

// CheckInvariantOn checks invariant on every explored state. The state at
// which the exploration was stopped is preferred as witness.
func (v *Verifier) CheckInvariantOn(ss *StateSpace, invariant formula.Formula) VerificationResult {
	if ss.Exception != nil {
		return exceptionResult(ss)
	}
	holds, err := ss.Labeling.Predicate(invariant)
	if err != nil {
		return VerificationResult{Message: err.Error(), StatesChecked: ss.StateCount()}
	}

	g := ss.Graph
	violations := findStates(g, func(s formula.StateFormulaSet) bool { return !holds(s) })
	if len(violations) == 0 {
		msg := fmt.Sprintf("invariant holds across all %d states", g.StateCount())
		if !ss.Complete() {
			msg = fmt.Sprintf("invariant holds across the %d explored states", g.StateCount())
		}
		return VerificationResult{Satisfied: true, Message: msg, StatesChecked: g.StateCount()}
	}

	witness := violations[0]
	if s := g.Violation(); s != traversal.NoState && !holds(mustLabels(g, s)) {
		witness = s
	}
	result := VerificationResult{
		Satisfied:     false,
		Message:       fmt.Sprintf("invariant %v violated at state %d", invariant, witness),
		Witness:       g.PathTo(witness),
		StatesChecked: g.StateCount(),
	}
	if v.opts.CollectFaultSets {
		result.FaultSets = faultSetsOf(g, violations)
	}
	return result
}

// CheckReachability checks that some explored state satisfies target. The
// witness leads to the first such state.
func (v *Verifier) CheckReachability(ss *StateSpace, target formula.Formula) VerificationResult {
	if ss.Exception != nil {
		return exceptionResult(ss)
	}
	holds, err := ss.Labeling.Predicate(target)
	if err != nil {
		return VerificationResult{Message: err.Error(), StatesChecked: ss.StateCount()}
	}

	g := ss.Graph
	found := findStates(g, holds)
	if len(found) == 0 {
		return VerificationResult{
			Satisfied:     false,
			Message:       fmt.Sprintf("no state satisfying %v is reachable", target),
			StatesChecked: g.StateCount(),
		}
	}
	result := VerificationResult{
		Satisfied:     true,
		Message:       fmt.Sprintf("%v reachable at state %d", target, found[0]),
		Witness:       g.PathTo(found[0]),
		StatesChecked: g.StateCount(),
	}
	if v.opts.CollectFaultSets {
		result.FaultSets = faultSetsOf(g, found)
	}
	return result
}

// CheckDeadlockFreedom verifies that every expanded state has a successor.
// If a deadlock is found, the result includes a Witness path to it.
func (v *Verifier) CheckDeadlockFreedom(ss *StateSpace) VerificationResult {
	if ss.Exception != nil {
		return exceptionResult(ss)
	}
	g := ss.Graph
	for s := 0; s < g.StateCount(); s++ {
		if g.Expanded(s) && len(g.Transitions(s)) == 0 {
			return VerificationResult{
				Satisfied:     false,
				Message:       fmt.Sprintf("deadlock found at state %d", s),
				Witness:       g.PathTo(s),
				StatesChecked: g.StateCount(),
			}
		}
	}
	return VerificationResult{
		Satisfied:     true,
		Message:       "no deadlocks found in explored state space",
		StatesChecked: g.StateCount(),
	}
}

// FaultNames returns the names of the faults in fs.
func (v *Verifier) FaultNames(fs faults.FaultSet) ([]string, error) {
	m, err := v.creator.Create()
	if err != nil {
		return nil, err
	}
	var names []string
	for f := range fs.ToFaultSequence(m.Faults()) {
		names = append(names, f.Name)
	}
	return names, nil
}

// findStates returns the states whose labels satisfy match, in index
// order.
func findStates(g *traversal.StateGraph, match func(formula.StateFormulaSet) bool) []int {
	var states []int
	for s := 0; s < g.StateCount(); s++ {
		if labels, ok := g.Labels(s); ok && match(labels) {
			states = append(states, s)
		}
	}
	return states
}

func mustLabels(g *traversal.StateGraph, s int) formula.StateFormulaSet {
	labels, _ := g.Labels(s)
	return labels
}

// faultSetsOf returns the minimal fault sets over all states.
func faultSetsOf(g *traversal.StateGraph, states []int) []faults.FaultSet {
	all := minimalFaultSets(g)
	var result []faults.FaultSet
	for _, s := range states {
		for _, fs := range all[s] {
			result, _ = addMinimal(result, fs)
		}
	}
	return result
}

// addMinimal adds fs unless a subset of it is present and drops the
// supersets it replaces.
func addMinimal(sets []faults.FaultSet, fs faults.FaultSet) ([]faults.FaultSet, bool) {
	var kept []faults.FaultSet
	for _, e := range sets {
		if e.IsSubsetOf(fs) {
			return sets, false
		}
		if !fs.IsSubsetOf(e) {
			kept = append(kept, e)
		}
	}
	return append(kept, fs), true
}
