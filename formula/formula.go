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

// Package formula defines the temporal formulas that are checked against a
// model and the state labels computed for them.
//
// Formulas are built from atomic propositions (named predicates the model can
// evaluate), fault formulas (a fault is activated), boolean connectives and
// the temporal operators Finally, Globally and Until, optionally bounded by a
// number of steps:
//
//	broken := formula.Atomic("broken")
//	f := formula.BoundedFinally(broken, 10)
//
// During state-space exploration only state formulas are evaluated. A
// Labeling assigns each of them a bit of a StateFormulaSet; the checkers later
// interpret path formulas over those labels.
package formula

import (
	"fmt"

	"github.com/jazzpetri/faultcheck/faults"
)

// Formula is a node of the formula AST.
type Formula interface {
	fmt.Stringer
	formula()
}

// UnaryOperator is the operator of a unary formula.
type UnaryOperator int

const (
	Not UnaryOperator = iota
	FinallyOp
	GloballyOp
)

// BinaryOperator is the operator of a binary formula.
type BinaryOperator int

const (
	AndOp BinaryOperator = iota
	OrOp
	ImpliesOp
	EquivalentOp
	UntilOp
)

// AtomicProposition refers to a predicate the model exposes under Label.
type AtomicProposition struct {
	Label string
}

// FaultFormula holds in states reached by activating the fault.
type FaultFormula struct {
	FaultID int
	Name    string
}

// UnaryFormula applies a unary operator.
type UnaryFormula struct {
	Operator UnaryOperator
	Operand  Formula
}

// BoundedUnaryFormula applies a temporal unary operator within Bound steps.
type BoundedUnaryFormula struct {
	Operator UnaryOperator
	Operand  Formula
	Bound    int
}

// BinaryFormula applies a binary operator.
type BinaryFormula struct {
	Left     Formula
	Operator BinaryOperator
	Right    Formula
}

// BoundedBinaryFormula applies a temporal binary operator within Bound steps.
type BoundedBinaryFormula struct {
	Left     Formula
	Operator BinaryOperator
	Right    Formula
	Bound    int
}

func (AtomicProposition) formula()    {}
func (FaultFormula) formula()         {}
func (UnaryFormula) formula()         {}
func (BoundedUnaryFormula) formula()  {}
func (BinaryFormula) formula()        {}
func (BoundedBinaryFormula) formula() {}

// Atomic creates an atomic proposition.
func Atomic(label string) Formula { return AtomicProposition{Label: label} }

// FaultActivated creates a formula that holds when f was activated.
func FaultActivated(f *faults.Fault) Formula {
	return FaultFormula{FaultID: f.Identifier, Name: f.Name}
}

// Negate creates ¬f.
func Negate(f Formula) Formula { return UnaryFormula{Operator: Not, Operand: f} }

// Finally creates F f.
func Finally(f Formula) Formula { return UnaryFormula{Operator: FinallyOp, Operand: f} }

// Globally creates G f.
func Globally(f Formula) Formula { return UnaryFormula{Operator: GloballyOp, Operand: f} }

// BoundedFinally creates F≤bound f.
func BoundedFinally(f Formula, bound int) Formula {
	return BoundedUnaryFormula{Operator: FinallyOp, Operand: f, Bound: bound}
}

// BoundedGlobally creates G≤bound f.
func BoundedGlobally(f Formula, bound int) Formula {
	return BoundedUnaryFormula{Operator: GloballyOp, Operand: f, Bound: bound}
}

// And creates l ∧ r.
func And(l, r Formula) Formula { return BinaryFormula{Left: l, Operator: AndOp, Right: r} }

// Or creates l ∨ r.
func Or(l, r Formula) Formula { return BinaryFormula{Left: l, Operator: OrOp, Right: r} }

// Implies creates l → r.
func Implies(l, r Formula) Formula { return BinaryFormula{Left: l, Operator: ImpliesOp, Right: r} }

// Until creates l U r.
func Until(l, r Formula) Formula { return BinaryFormula{Left: l, Operator: UntilOp, Right: r} }

// BoundedUntil creates l U≤bound r.
func BoundedUntil(l, r Formula, bound int) Formula {
	return BoundedBinaryFormula{Left: l, Operator: UntilOp, Right: r, Bound: bound}
}

func (o UnaryOperator) String() string {
	switch o {
	case Not:
		return "!"
	case FinallyOp:
		return "F"
	case GloballyOp:
		return "G"
	default:
		return fmt.Sprintf("UnaryOperator(%d)", int(o))
	}
}

func (o BinaryOperator) String() string {
	switch o {
	case AndOp:
		return "&&"
	case OrOp:
		return "||"
	case ImpliesOp:
		return "=>"
	case EquivalentOp:
		return "<=>"
	case UntilOp:
		return "U"
	default:
		return fmt.Sprintf("BinaryOperator(%d)", int(o))
	}
}

func (a AtomicProposition) String() string { return a.Label }

func (f FaultFormula) String() string { return fmt.Sprintf("fault(%s#%d)", f.Name, f.FaultID) }

func (u UnaryFormula) String() string {
	if u.Operator == Not {
		return fmt.Sprintf("!(%v)", u.Operand)
	}
	return fmt.Sprintf("%v(%v)", u.Operator, u.Operand)
}

func (u BoundedUnaryFormula) String() string {
	return fmt.Sprintf("%v<=%d(%v)", u.Operator, u.Bound, u.Operand)
}

func (b BinaryFormula) String() string {
	return fmt.Sprintf("(%v %v %v)", b.Left, b.Operator, b.Right)
}

func (b BoundedBinaryFormula) String() string {
	return fmt.Sprintf("(%v %v<=%d %v)", b.Left, b.Operator, b.Bound, b.Right)
}

// IsStateFormula reports whether f contains no temporal operator.
func IsStateFormula(f Formula) bool {
	switch n := f.(type) {
	case AtomicProposition, FaultFormula:
		return true
	case UnaryFormula:
		return n.Operator == Not && IsStateFormula(n.Operand)
	case BinaryFormula:
		return n.Operator != UntilOp && IsStateFormula(n.Left) && IsStateFormula(n.Right)
	default:
		return false
	}
}
