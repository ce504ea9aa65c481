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

package traversal

import (
	"slices"

	"github.com/jazzpetri/faultcheck/choice"
	"github.com/jazzpetri/faultcheck/faults"
	"github.com/jazzpetri/faultcheck/formula"
)

// NoState marks the missing parent of an initial state and the missing
// violation of a complete traversal.
const NoState = -1

// Transition is an edge of a StateGraph.
type Transition struct {
	// Target is the index of the target state.
	Target int

	// Formulas are the labels of the target state.
	Formulas formula.StateFormulaSet

	// Faults are the nondeterministic faults activated on the edge.
	Faults faults.FaultSet

	// Probability of the path that produced the edge. Nondeterministic
	// choices count as 1.
	Probability float64

	// Continuation is the leaf of the edge in the step graph of its source.
	// It is choice.NoTransition in activation-minimal graphs.
	Continuation int
}

// StateGraph is the explored state space of a model.
//
// Transitions of a labeled graph are aligned with the transition indices
// stored in the leaves of the step graph of their source state.
type StateGraph struct {
	storage  *StateStorage
	labeling *formula.Labeling
	labeled  bool

	initial      []Transition
	initialGraph *choice.StepGraph

	transitions [][]Transition
	graphs      []*choice.StepGraph
	parents     []int32
	expanded    []bool

	computed  int
	violation int
}

func newStateGraph(storage *StateStorage, labeling *formula.Labeling, labeled bool) *StateGraph {
	return &StateGraph{
		storage:   storage,
		labeling:  labeling,
		labeled:   labeled,
		violation: NoState,
	}
}

// finish sizes the per state tables once the number of states is known.
func (g *StateGraph) finish() {
	n := g.storage.Len()
	g.transitions = make([][]Transition, n)
	g.expanded = make([]bool, n)
	g.parents = make([]int32, n)
	for i := range g.parents {
		g.parents[i] = NoState
	}
	if g.labeled {
		g.graphs = make([]*choice.StepGraph, n)
	}
}

// StateCount returns the number of states.
func (g *StateGraph) StateCount() int {
	return len(g.transitions)
}

// StateVectorSize returns the size of a serialized state.
func (g *StateGraph) StateVectorSize() int {
	return g.storage.StateSize()
}

// State returns the serialized state with the given index.
func (g *StateGraph) State(i int) []byte {
	return g.storage.Get(i)
}

// Labeling returns the labeling the state formulas are indexed by.
func (g *StateGraph) Labeling() *formula.Labeling {
	return g.labeling
}

// Labeled reports whether every path of every step was kept together with
// its step graph.
func (g *StateGraph) Labeled() bool {
	return g.labeled
}

// InitialTransitions returns the transitions into the initial states.
func (g *StateGraph) InitialTransitions() []Transition {
	return g.initial
}

// InitialStepGraph returns the step graph of the initial step of a labeled
// graph.
func (g *StateGraph) InitialStepGraph() *choice.StepGraph {
	return g.initialGraph
}

// Transitions returns the transitions leaving state i.
func (g *StateGraph) Transitions(i int) []Transition {
	return g.transitions[i]
}

// StepGraph returns the step graph of state i of a labeled graph. It is nil
// for states that were not expanded.
func (g *StateGraph) StepGraph(i int) *choice.StepGraph {
	if g.graphs == nil {
		return nil
	}
	return g.graphs[i]
}

// Expanded reports whether the successors of state i were computed. Terminal
// states and states left over by an early stop are not expanded.
func (g *StateGraph) Expanded(i int) bool {
	return g.expanded[i]
}

// TransitionCount returns the number of stored transitions, including the
// initial ones.
func (g *StateGraph) TransitionCount() int {
	n := len(g.initial)
	for _, ts := range g.transitions {
		n += len(ts)
	}
	return n
}

// ComputedTransitionCount returns the number of transitions computed before
// the activation-minimal reduction.
func (g *StateGraph) ComputedTransitionCount() int {
	return g.computed
}

// Violation returns the state at which the traversal was stopped, or
// NoState.
func (g *StateGraph) Violation() int {
	return g.violation
}

// Parent returns the state from which state i was first reached, or NoState
// for initial states.
func (g *StateGraph) Parent(i int) int {
	return int(g.parents[i])
}

// PathTo returns the states from an initial state to state i.
func (g *StateGraph) PathTo(i int) []int {
	var path []int
	for s := i; s != NoState; s = g.Parent(s) {
		path = append(path, s)
	}
	slices.Reverse(path)
	return path
}

// Labels returns the state formulas of state i, taken from any transition
// leading into it.
func (g *StateGraph) Labels(i int) (formula.StateFormulaSet, bool) {
	for _, t := range g.initial {
		if t.Target == i {
			return t.Formulas, true
		}
	}
	if p := g.Parent(i); p != NoState {
		for _, t := range g.transitions[p] {
			if t.Target == i {
				return t.Formulas, true
			}
		}
	}
	return formula.StateFormulaSet{}, false
}
