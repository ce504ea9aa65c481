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

package executed

import (
	"github.com/jazzpetri/faultcheck/choice"
	"github.com/jazzpetri/faultcheck/faults"
	"github.com/jazzpetri/faultcheck/formula"
	"github.com/jazzpetri/faultcheck/model"
	"github.com/jazzpetri/faultcheck/transition"
)

// Builder collects the transitions of one step.
type Builder interface {
	// Add records the current state of m as a successor reached with the
	// given path probability and step graph continuation.
	Add(m model.ExecutableModel, probability float64, continuation int) error

	// Clear prepares the builder for the next step.
	Clear()

	// ToCollection returns the transitions of the current step.
	ToCollection() transition.Collection
}

// capacityHint is reported with every capacity error of a builder.
const capacityHint = "the successor capacity (FAULTCHECK_SUCCESSOR_CAPACITY)"

// faultInfo links the retained transitions of one target state.
type faultInfo struct {
	next       int32
	transition int32
}

// ActivationMinimalBuilder keeps, for every target state of a step, only the
// transitions whose activated faults are minimal with respect to set
// inclusion. The retained fault sets of a target always form an antichain.
type ActivationMinimalBuilder struct {
	capacity    int
	formulas    []func() bool
	table       *StateTable
	arena       *transition.Arena
	transitions []transition.Transition
	infos       []faultInfo
	computed    int
}

// NewActivationMinimalBuilder creates a builder for states of stateSize bytes
// that holds at most capacity transitions per step. formulas are evaluated
// on every retained successor.
func NewActivationMinimalBuilder(stateSize, capacity int, formulas []func() bool) (*ActivationMinimalBuilder, error) {
	formula.CheckFormulaCount(len(formulas))
	table, err := NewStateTable(capacity, stateSize)
	if err != nil {
		return nil, err
	}

	return &ActivationMinimalBuilder{
		capacity:    capacity,
		formulas:    formulas,
		table:       table,
		arena:       transition.NewArena(stateSize, capacity, capacityHint),
		transitions: make([]transition.Transition, 0, capacity),
		infos:       make([]faultInfo, 0, capacity),
	}, nil
}

// Add implements Builder.
func (b *ActivationMinimalBuilder) Add(m model.ExecutableModel, probability float64, _ int) error {
	if len(b.transitions) >= b.capacity {
		return &transition.CapacityError{Resource: "transitions", Capacity: b.capacity, Hint: capacityHint}
	}
	b.computed++

	slot, err := b.arena.Allocate()
	if err != nil {
		return err
	}
	target := b.arena.Slot(slot)
	activated := activatedNondeterministicFaults(m.Faults())
	if err := m.Serialize(target); err != nil {
		return err
	}

	add, err := b.classify(target, activated)
	if err != nil {
		return err
	}
	if !add {
		b.arena.Release()
		return nil
	}

	if notifyFaultActivations(m.Faults()) {
		if err := m.Serialize(target); err != nil {
			return err
		}
	}

	b.transitions = append(b.transitions, transition.Transition{
		Target:          slot,
		ActivatedFaults: activated,
		Formulas:        formula.Evaluate(b.formulas),
		Flags:           transition.IsValid,
		Probability:     probability,
		Continuation:    choice.NoTransition,
	})
	return nil
}

// classify decides whether a transition to state with the activated faults
// is retained and invalidates the retained transitions it dominates.
func (b *ActivationMinimalBuilder) classify(state []byte, activated faults.FaultSet) (bool, error) {
	slot, found, err := b.table.Find(state)
	if err != nil {
		return false, err
	}
	if !found {
		b.table.SetValue(slot, b.addInfo(empty))
		return true, nil
	}

	cleanup := false
	for i := b.table.Value(slot); i != empty; i = b.infos[i].next {
		existing := b.transitions[b.infos[i].transition].ActivatedFaults
		if existing.IsSubsetOf(activated) {
			// dominated by, or equal to, a retained transition
			return false, nil
		}
		if activated.IsSubsetOf(existing) {
			cleanup = true
		}
	}

	if cleanup {
		b.removeSupersets(slot, activated)
	}
	b.table.SetValue(slot, b.addInfo(b.table.Value(slot)))
	return true, nil
}

// removeSupersets invalidates and unlinks every transition of slot whose
// faults are a strict superset of activated.
func (b *ActivationMinimalBuilder) removeSupersets(slot int, activated faults.FaultSet) {
	prev := int32(empty)
	for i := b.table.Value(slot); i != empty; i = b.infos[i].next {
		t := &b.transitions[b.infos[i].transition]
		if !activated.IsSubsetOf(t.ActivatedFaults) || activated == t.ActivatedFaults {
			prev = i
			continue
		}

		t.Invalidate()
		if prev == empty {
			b.table.SetValue(slot, b.infos[i].next)
		} else {
			b.infos[prev].next = b.infos[i].next
		}
	}
}

// addInfo links the transition about to be appended in front of next.
func (b *ActivationMinimalBuilder) addInfo(next int32) int32 {
	b.infos = append(b.infos, faultInfo{next: next, transition: int32(len(b.transitions))})
	return int32(len(b.infos) - 1)
}

// Clear implements Builder.
func (b *ActivationMinimalBuilder) Clear() {
	b.transitions = b.transitions[:0]
	b.infos = b.infos[:0]
	b.computed = 0
	b.table.Clear()
	b.arena.Reset()
}

// ToCollection implements Builder.
func (b *ActivationMinimalBuilder) ToCollection() transition.Collection {
	return transition.NewCollection(b.transitions, b.computed, b.arena)
}

// LabeledBuilder keeps every path of a step as a transition of its own,
// labeled with its step graph continuation and probability.
type LabeledBuilder struct {
	capacity    int
	formulas    []func() bool
	graph       *choice.StepGraph
	arena       *transition.Arena
	transitions []transition.Transition
}

// NewLabeledBuilder creates a builder that records transitions into graph.
func NewLabeledBuilder(stateSize, capacity int, formulas []func() bool, graph *choice.StepGraph) *LabeledBuilder {
	formula.CheckFormulaCount(len(formulas))
	return &LabeledBuilder{
		capacity:    capacity,
		formulas:    formulas,
		graph:       graph,
		arena:       transition.NewArena(stateSize, capacity, capacityHint),
		transitions: make([]transition.Transition, 0, capacity),
	}
}

// Add implements Builder.
func (b *LabeledBuilder) Add(m model.ExecutableModel, probability float64, continuation int) error {
	slot, err := b.arena.Allocate()
	if err != nil {
		return err
	}
	target := b.arena.Slot(slot)
	activated := activatedNondeterministicFaults(m.Faults())
	notifyFaultActivations(m.Faults())
	if err := m.Serialize(target); err != nil {
		return err
	}

	b.graph.SetTransition(continuation, len(b.transitions))
	b.transitions = append(b.transitions, transition.Transition{
		Target:          slot,
		ActivatedFaults: activated,
		Formulas:        formula.Evaluate(b.formulas),
		Flags:           transition.IsValid,
		Probability:     probability,
		Continuation:    continuation,
	})
	return nil
}

// Clear implements Builder.
func (b *LabeledBuilder) Clear() {
	b.transitions = b.transitions[:0]
	b.arena.Reset()
}

// ToCollection implements Builder. The collection carries the step graph.
func (b *LabeledBuilder) ToCollection() transition.Collection {
	return transition.NewCollection(b.transitions, len(b.transitions), b.arena).WithStepGraph(b.graph)
}

func activatedNondeterministicFaults(all []*faults.Fault) faults.FaultSet {
	var s faults.FaultSet
	for _, f := range all {
		if f.Activation() == faults.Nondeterministic && f.IsActivated() {
			s = s.Add(f)
		}
	}
	return s
}

// notifyFaultActivations runs the activation hooks of activated faults and
// reports whether any hook ran.
func notifyFaultActivations(all []*faults.Fault) bool {
	notified := false
	for _, f := range all {
		if f.IsActivated() && f.RequiresActivationNotification && f.OnActivated != nil {
			f.OnActivated()
			notified = true
		}
	}
	return notified
}
