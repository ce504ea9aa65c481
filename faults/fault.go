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

// Package faults models injected failure modes and sets of them.
//
// A Fault belongs to exactly one model instance. Its activation mode decides
// whether it is always active (Forced), never active (Suppressed) or left to
// the analysis (Nondeterministic). Nondeterministic faults are activated
// through the model's choice resolver, so every combination of fault
// activations is explored.
//
// # Usage
//
//	f := faults.NewFault(0, "SensorStuck")
//	f.ProbabilityOfOccurrence = faults.Probability(0.01)
//
//	// inside the model's step function
//	f.TryActivate()
//	if f.IsActivated() {
//	    // faulty behaviour
//	}
//
// A FaultSet is a compact immutable bitset of fault identifiers used to label
// transitions with the faults that were activated to take them.
package faults

import (
	"fmt"

	"github.com/jazzpetri/faultcheck/choice"
	"github.com/jazzpetri/faultcheck/probability"
)

// Activation determines how a fault is activated during analysis.
type Activation int

const (
	// Nondeterministic faults may or may not be activated; both cases are explored.
	Nondeterministic Activation = iota

	// Forced faults are always activated.
	Forced

	// Suppressed faults are never activated.
	Suppressed
)

// String returns the activation name.
func (a Activation) String() string {
	switch a {
	case Nondeterministic:
		return "nondeterministic"
	case Forced:
		return "forced"
	case Suppressed:
		return "suppressed"
	default:
		return fmt.Sprintf("Activation(%d)", int(a))
	}
}

// Probability returns a pointer to p, for optional probability fields.
func Probability(p float64) *probability.Probability {
	v := probability.MustNew(p)
	return &v
}

// Fault is a modeled failure mode.
//
// The activation flag is reset by the analysis before every step and set
// only by TryActivate, which the model calls from its own step logic.
type Fault struct {
	// Identifier is the bit position of the fault in a FaultSet (0..62).
	Identifier int

	// Name is used in logs and counter-examples.
	Name string

	// ProbabilityOfOccurrence is the probability that a nondeterministic
	// fault activates when tried. Nil means the activation is a
	// nondeterministic (scheduler) choice.
	ProbabilityOfOccurrence *probability.Probability

	// RequiresActivationNotification marks faults whose OnActivated hook
	// must run once a transition with the fault activated is retained.
	RequiresActivationNotification bool

	// OnActivated is invoked for activated faults that require notification.
	OnActivated func()

	// Choice is bound to the resolver of the model that owns the fault.
	Choice choice.Choice

	activation        Activation
	activated         bool
	activationUnknown bool
	canUndo           bool
	choiceIndex       int

	subsumes       []*Fault
	subsumedCached bool
	subsumedFaults FaultSet
}

// NewFault creates a nondeterministic fault with the given identifier.
func NewFault(id int, name string) *Fault {
	CheckFaultCount(id + 1)
	f := &Fault{Identifier: id, Name: name}
	f.SetActivation(Nondeterministic)
	return f
}

// Activation returns the activation mode.
func (f *Fault) Activation() Activation {
	return f.activation
}

// SetActivation changes the activation mode. Forced faults are activated
// immediately; all others are deactivated.
func (f *Fault) SetActivation(a Activation) {
	f.activation = a
	f.activated = a == Forced
	f.activationUnknown = a == Nondeterministic
}

// IsActivated reports whether the fault is active in the current step.
func (f *Fault) IsActivated() bool {
	return f.activated
}

// Subsumes declares that activating f implies the activation of faults.
func (f *Fault) Subsumes(faults ...*Fault) {
	f.subsumes = append(f.subsumes, faults...)
	f.subsumedCached = false
}

// SubsumedFaultSet returns f and every fault it subsumes, transitively.
func (f *Fault) SubsumedFaultSet() FaultSet {
	if f.subsumedCached {
		return f.subsumedFaults
	}

	result := NewFaultSet(f)
	current := []*Fault{f}
	for {
		before := result.Cardinality()
		var next []*Fault
		for _, c := range current {
			for _, s := range c.subsumes {
				result = result.Add(s)
				next = append(next, s)
			}
		}
		current = next
		if result.Cardinality() == before {
			break
		}
	}

	f.subsumedFaults = result
	f.subsumedCached = true
	return result
}

// Reset makes the activation of a nondeterministic fault unknown again.
// Forced and suppressed faults are unaffected.
func (f *Fault) Reset() {
	if f.activation != Nondeterministic {
		return
	}
	f.activationUnknown = true
	f.canUndo = false
	f.activated = false
}

// TryActivate decides whether the fault is active in the current step.
// Only the first call per step has an effect.
func (f *Fault) TryActivate() {
	if !f.activationUnknown {
		f.canUndo = false
		return
	}

	switch f.activation {
	case Forced:
		f.activated = true
		f.canUndo = false
	case Suppressed:
		f.activated = false
		f.canUndo = false
	case Nondeterministic:
		if f.ProbabilityOfOccurrence != nil {
			p := *f.ProbabilityOfOccurrence
			f.activated = choice.ChooseWithProbability(&f.Choice,
				choice.NewOption(p.Complement(), false),
				choice.NewOption(p, true))
		} else {
			f.activated = choice.Choose(&f.Choice, false, true)
		}
		f.choiceIndex = f.Choice.Resolver.LastChoiceIndex()
		f.canUndo = true
	default:
		panic(fmt.Sprintf("faults: unsupported activation %v", f.activation))
	}
	f.activationUnknown = false
}

// UndoActivation reverts an activation decision that turned out not to
// matter, so the untaken option is not explored. Only effective when the
// resolver uses the forward optimization.
func (f *Fault) UndoActivation() {
	if f.Choice.Resolver == nil || !f.Choice.Resolver.UseForwardOptimization() {
		return
	}
	if !f.canUndo {
		return
	}
	f.canUndo = false
	f.activationUnknown = true
	f.Choice.Resolver.ForwardUntakenChoicesAtIndex(f.choiceIndex)
}

// String implements fmt.Stringer.
func (f *Fault) String() string {
	return fmt.Sprintf("%s (#%d) [%v]", f.Name, f.Identifier, f.activation)
}
