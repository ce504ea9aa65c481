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

// Package transition defines the transitions produced by executing one model
// step and the views the analysis uses to walk them.
//
// Transitions are plain records stored in contiguous buffers. Their target
// state is an index: into a per-worker Arena of serialized states while the
// step is computed, and into the state graph once the traversal has stored
// the state. Invalidated transitions stay in the buffer with their IsValid
// flag cleared; an Enumerator skips them.
package transition

import (
	"fmt"
	"unsafe"

	"github.com/jazzpetri/faultcheck/faults"
	"github.com/jazzpetri/faultcheck/formula"
)

// Flags hold the status bits of a transition.
type Flags uint32

const (
	// IsValid is set on transitions that are part of the result.
	IsValid Flags = 1 << iota

	// ToStuttering marks transitions into the stuttering state that
	// replaces states which could not be executed.
	ToStuttering
)

// FirstUnspecifiedBit is the first flag bit free for callers.
const FirstUnspecifiedBit = 2

// Has reports whether all bits of f are set.
func (fl Flags) Has(f Flags) bool {
	return fl&f == f
}

// Transition is one outgoing edge of a state.
type Transition struct {
	// Target is the arena slot (during a step) or the state index (in a
	// state graph) of the target state.
	Target int

	// ActivatedFaults are the faults that were activated on the way.
	ActivatedFaults faults.FaultSet

	// Formulas are the state formulas that hold in the target state.
	Formulas formula.StateFormulaSet

	Flags Flags

	// Probability of the path that produced the transition, if known.
	Probability float64

	// Continuation is the step graph leaf of the path, or
	// choice.NoTransition when no step graph is recorded.
	Continuation int
}

// CandidateTransition is a transition before minimality is decided. Its
// fields coincide with the leading fields of Transition.
type CandidateTransition struct {
	Target          int
	ActivatedFaults faults.FaultSet
	Formulas        formula.StateFormulaSet
}

// Candidate returns the candidate part of t.
func (t *Transition) Candidate() *CandidateTransition {
	return (*CandidateTransition)(unsafe.Pointer(t))
}

// Valid reports whether t has the IsValid flag.
func (t *Transition) Valid() bool {
	return t.Flags.Has(IsValid)
}

// Invalidate clears the IsValid flag.
func (t *Transition) Invalidate() {
	t.Flags &^= IsValid
}

func (t Transition) String() string {
	return fmt.Sprintf("-> %d faults=%v formulas=%v p=%g", t.Target, t.ActivatedFaults, t.Formulas, t.Probability)
}

// CheckLayout panics if CandidateTransition is not a prefix of Transition.
func CheckLayout() {
	var t Transition
	var c CandidateTransition
	switch {
	case unsafe.Offsetof(t.Target) != unsafe.Offsetof(c.Target),
		unsafe.Offsetof(t.ActivatedFaults) != unsafe.Offsetof(c.ActivatedFaults),
		unsafe.Offsetof(t.Formulas) != unsafe.Offsetof(c.Formulas),
		unsafe.Sizeof(c) > unsafe.Sizeof(t):
		panic("transition: CandidateTransition is not layout compatible with Transition")
	}
}

func init() {
	CheckLayout()
}
