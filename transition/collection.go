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

package transition

import (
	"iter"

	"github.com/jazzpetri/faultcheck/choice"
)

// Collection is a view over a transition buffer. It does not own the buffer
// and is only valid until the producer computes its next step.
type Collection struct {
	transitions []Transition
	total       int
	arena       *Arena
	graph       *choice.StepGraph
}

// NewCollection creates a view over transitions. total is the number of
// transitions computed before minimization; arena resolves target states
// and may be nil once targets are state indices.
func NewCollection(transitions []Transition, total int, arena *Arena) Collection {
	return Collection{transitions: transitions, total: total, arena: arena}
}

// WithStepGraph attaches the step graph the transitions were recorded from.
func (c Collection) WithStepGraph(g *choice.StepGraph) Collection {
	c.graph = g
	return c
}

// StepGraph returns the attached step graph or nil.
func (c Collection) StepGraph() *choice.StepGraph {
	return c.graph
}

// Len returns the size of the buffer, including invalid transitions.
func (c Collection) Len() int {
	return len(c.transitions)
}

// TotalCount returns the number of transitions computed before minimization.
func (c Collection) TotalCount() int {
	return c.total
}

// At returns transition i of the buffer.
func (c Collection) At(i int) *Transition {
	return &c.transitions[i]
}

// TargetState returns the serialized target of t. Only valid while targets
// are arena slots.
func (c Collection) TargetState(t *Transition) []byte {
	return c.arena.Slot(t.Target)
}

// ValidCount returns the number of valid transitions.
func (c Collection) ValidCount() int {
	n := 0
	for i := range c.transitions {
		if c.transitions[i].Valid() {
			n++
		}
	}
	return n
}

// All yields the valid transitions in buffer order.
func (c Collection) All() iter.Seq[*Transition] {
	return func(yield func(*Transition) bool) {
		for i := range c.transitions {
			if c.transitions[i].Valid() && !yield(&c.transitions[i]) {
				return
			}
		}
	}
}

// Enumerator returns a forward enumerator over the valid transitions.
func (c Collection) Enumerator() *Enumerator {
	return &Enumerator{c: c, i: -1}
}

// Enumerator walks the valid transitions of a collection.
//
//	e := c.Enumerator()
//	for e.MoveNext() {
//	    t := e.Current()
//	}
type Enumerator struct {
	c Collection
	i int
}

// MoveNext advances to the next valid transition.
func (e *Enumerator) MoveNext() bool {
	for e.i+1 < len(e.c.transitions) {
		e.i++
		if e.c.transitions[e.i].Valid() {
			return true
		}
	}
	e.i = len(e.c.transitions)
	return false
}

// Current returns the current transition.
func (e *Enumerator) Current() *Transition {
	return &e.c.transitions[e.i]
}

// TargetState returns the serialized target of the current transition.
func (e *Enumerator) TargetState() []byte {
	return e.c.TargetState(e.Current())
}
