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

package formula

import (
	"errors"
	"fmt"

	"github.com/jazzpetri/faultcheck/faults"
)

var (
	// ErrUnknownProposition is returned when a model does not expose a
	// proposition referenced by a formula.
	ErrUnknownProposition = errors.New("unknown atomic proposition")

	// ErrNotStateFormula is returned when a temporal formula is used where a
	// state formula is required.
	ErrNotStateFormula = errors.New("not a state formula")

	// ErrNotLabeled is returned when a formula cannot be evaluated from the
	// state labels of a graph.
	ErrNotLabeled = errors.New("formula is not part of the state labeling")
)

// Evaluable is what a model must offer to evaluate state formulas.
type Evaluable interface {
	// Proposition returns the predicate registered under label.
	Proposition(label string) (func() bool, bool)

	// Faults returns the faults of the model.
	Faults() []*faults.Fault
}

// Labeling assigns the state formulas relevant to a set of formulas to the
// bits of a StateFormulaSet.
type Labeling struct {
	labels []Formula
	index  map[string]int
}

// NewLabeling collects the state formulas of formulas.
//
// With atomicOnly, only atomic propositions and fault formulas become labels
// and every boolean combination is evaluated from them later. Otherwise each
// maximal state subformula gets its own label.
func NewLabeling(formulas []Formula, atomicOnly bool) (*Labeling, error) {
	l := &Labeling{index: make(map[string]int)}
	for _, f := range formulas {
		l.collect(f, atomicOnly)
	}
	if len(l.labels) > MaxStateFormulas {
		return nil, fmt.Errorf("%d state formulas exceed the limit of %d", len(l.labels), MaxStateFormulas)
	}
	return l, nil
}

func (l *Labeling) add(f Formula) {
	key := f.String()
	if _, ok := l.index[key]; ok {
		return
	}
	l.index[key] = len(l.labels)
	l.labels = append(l.labels, f)
}

func (l *Labeling) collect(f Formula, atomicOnly bool) {
	if !atomicOnly && IsStateFormula(f) {
		l.add(f)
		return
	}

	switch n := f.(type) {
	case AtomicProposition, FaultFormula:
		l.add(n)
	case UnaryFormula:
		l.collect(n.Operand, atomicOnly)
	case BoundedUnaryFormula:
		l.collect(n.Operand, atomicOnly)
	case BinaryFormula:
		l.collect(n.Left, atomicOnly)
		l.collect(n.Right, atomicOnly)
	case BoundedBinaryFormula:
		l.collect(n.Left, atomicOnly)
		l.collect(n.Right, atomicOnly)
	}
}

// Len returns the number of labels.
func (l *Labeling) Len() int {
	return len(l.labels)
}

// Labels returns the labeled formulas in bit order.
func (l *Labeling) Labels() []Formula {
	return l.labels
}

// Index returns the bit of a labeled formula.
func (l *Labeling) Index(f Formula) (int, bool) {
	i, ok := l.index[f.String()]
	return i, ok
}

// Compile binds every label to the given model instance. The result is
// evaluated after each step to obtain the StateFormulaSet of the new state.
func (l *Labeling) Compile(m Evaluable) ([]func() bool, error) {
	predicates := make([]func() bool, len(l.labels))
	for i, f := range l.labels {
		p, err := Compile(f, m)
		if err != nil {
			return nil, fmt.Errorf("label %d (%v): %w", i, f, err)
		}
		predicates[i] = p
	}
	return predicates, nil
}

// Predicate returns a function that decides a state formula from the labels
// of a state.
func (l *Labeling) Predicate(f Formula) (func(StateFormulaSet) bool, error) {
	if i, ok := l.Index(f); ok {
		return func(s StateFormulaSet) bool { return s.Get(i) }, nil
	}

	switch n := f.(type) {
	case AtomicProposition, FaultFormula:
		return nil, fmt.Errorf("%w: %v", ErrNotLabeled, f)
	case UnaryFormula:
		if n.Operator != Not {
			return nil, fmt.Errorf("%w: %v", ErrNotStateFormula, f)
		}
		p, err := l.Predicate(n.Operand)
		if err != nil {
			return nil, err
		}
		return func(s StateFormulaSet) bool { return !p(s) }, nil
	case BinaryFormula:
		if n.Operator == UntilOp {
			return nil, fmt.Errorf("%w: %v", ErrNotStateFormula, f)
		}
		left, err := l.Predicate(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := l.Predicate(n.Right)
		if err != nil {
			return nil, err
		}
		return combine(n.Operator, func(s StateFormulaSet) bool { return left(s) }, func(s StateFormulaSet) bool { return right(s) }), nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrNotStateFormula, f)
	}
}

func combine[S any](op BinaryOperator, left, right func(S) bool) func(S) bool {
	switch op {
	case AndOp:
		return func(s S) bool { return left(s) && right(s) }
	case OrOp:
		return func(s S) bool { return left(s) || right(s) }
	case ImpliesOp:
		return func(s S) bool { return !left(s) || right(s) }
	default:
		return func(s S) bool { return left(s) == right(s) }
	}
}

// Compile turns a state formula into a predicate over the current state of m.
func Compile(f Formula, m Evaluable) (func() bool, error) {
	switch n := f.(type) {
	case AtomicProposition:
		p, ok := m.Proposition(n.Label)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownProposition, n.Label)
		}
		return p, nil
	case FaultFormula:
		for _, fault := range m.Faults() {
			if fault.Identifier == n.FaultID {
				return fault.IsActivated, nil
			}
		}
		return nil, fmt.Errorf("model has no fault with identifier %d (%s)", n.FaultID, n.Name)
	case UnaryFormula:
		if n.Operator != Not {
			return nil, fmt.Errorf("%w: %v", ErrNotStateFormula, f)
		}
		p, err := Compile(n.Operand, m)
		if err != nil {
			return nil, err
		}
		return func() bool { return !p() }, nil
	case BinaryFormula:
		if n.Operator == UntilOp {
			return nil, fmt.Errorf("%w: %v", ErrNotStateFormula, f)
		}
		left, err := Compile(n.Left, m)
		if err != nil {
			return nil, err
		}
		right, err := Compile(n.Right, m)
		if err != nil {
			return nil, err
		}
		c := combine(n.Operator, func(struct{}) bool { return left() }, func(struct{}) bool { return right() })
		return func() bool { return c(struct{}{}) }, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrNotStateFormula, f)
	}
}
