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
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jazzpetri/faultcheck/faults"
)

// fakeModel exposes a fixed set of boolean variables as propositions.
type fakeModel struct {
	vars   map[string]*bool
	faults []*faults.Fault
}

func makeFakeModel(labels ...string) *fakeModel {
	m := &fakeModel{vars: make(map[string]*bool)}
	for _, l := range labels {
		m.vars[l] = new(bool)
	}
	m.faults = []*faults.Fault{faults.NewFault(0, "Leak")}
	m.faults[0].SetActivation(faults.Forced)
	return m
}

func (m *fakeModel) Proposition(label string) (func() bool, bool) {
	v, ok := m.vars[label]
	if !ok {
		return nil, false
	}
	return func() bool { return *v }, true
}

func (m *fakeModel) Faults() []*faults.Fault {
	return m.faults
}

func TestStateFormulaSet(t *testing.T) {
	s := NewStateFormulaSet([]bool{true, false, true})

	assert.True(t, s.Get(0))
	assert.False(t, s.Get(1))
	assert.True(t, s.Get(2))
	assert.False(t, s.Get(31))
	assert.False(t, s.Get(-1))
	assert.Equal(t, uint32(5), s.Bits())
	assert.Equal(t, "{0, 2}", s.String())
	assert.Equal(t, s, StateFormulaSetFromBits(5))

	assert.Panics(t, func() { NewStateFormulaSet(make([]bool, 32)) })
	assert.NotPanics(t, func() { CheckFormulaCount(31) })
}

func TestEvaluate(t *testing.T) {
	a, b := true, false
	s := Evaluate([]func() bool{
		func() bool { return a },
		func() bool { return b },
	})
	assert.Equal(t, uint32(1), s.Bits())
}

func TestIsStateFormula(t *testing.T) {
	p, q := Atomic("p"), Atomic("q")

	tests := []struct {
		f    Formula
		want bool
	}{
		{p, true},
		{And(p, Negate(q)), true},
		{Implies(p, Or(p, q)), true},
		{Finally(p), false},
		{BoundedFinally(p, 3), false},
		{Until(p, q), false},
		{And(p, Globally(q)), false},
	}
	for _, tt := range tests {
		t.Run(tt.f.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, IsStateFormula(tt.f))
		})
	}
}

func TestFormula_String(t *testing.T) {
	f := BoundedUntil(Atomic("ok"), And(Atomic("a"), Negate(Atomic("b"))), 4)
	assert.Equal(t, "(ok U<=4 (a && !(b)))", f.String())
	assert.Equal(t, "F(x)", Finally(Atomic("x")).String())
}

// TestNewLabeling_AtomicOnly checks that only atomic propositions become
// labels and duplicates share a bit.
func TestNewLabeling_AtomicOnly(t *testing.T) {
	p, q := Atomic("p"), Atomic("q")
	l, err := NewLabeling([]Formula{Finally(And(p, q)), Until(p, Negate(q))}, true)
	require.NoError(t, err)

	require.Equal(t, 2, l.Len())
	assert.Equal(t, []Formula{p, q}, l.Labels())
}

// TestNewLabeling_StateSubformulas checks that maximal state subformulas are
// labeled as a whole.
func TestNewLabeling_StateSubformulas(t *testing.T) {
	p, q := Atomic("p"), Atomic("q")
	pq := And(p, q)
	l, err := NewLabeling([]Formula{Finally(pq), Until(p, Negate(q))}, false)
	require.NoError(t, err)

	assert.Equal(t, []Formula{pq, p, Negate(q)}, l.Labels())
	i, ok := l.Index(Negate(q))
	assert.True(t, ok)
	assert.Equal(t, 2, i)
}

func TestNewLabeling_TooMany(t *testing.T) {
	var fs []Formula
	for i := 0; i < 32; i++ {
		fs = append(fs, Atomic(fmt.Sprintf("p%d", i)))
	}
	_, err := NewLabeling(fs, true)
	assert.Error(t, err)
}

func TestLabeling_Compile(t *testing.T) {
	m := makeFakeModel("p", "q")
	leak := FaultActivated(m.faults[0])
	l, err := NewLabeling([]Formula{Finally(And(Atomic("p"), leak)), Atomic("q")}, true)
	require.NoError(t, err)

	predicates, err := l.Compile(m)
	require.NoError(t, err)
	require.Len(t, predicates, 3)

	*m.vars["p"] = true
	s := Evaluate(predicates)
	assert.True(t, s.Get(0))
	assert.True(t, s.Get(1))
	assert.False(t, s.Get(2))

	pred, err := l.Predicate(And(Atomic("p"), leak))
	require.NoError(t, err)
	assert.True(t, pred(s))

	pred, err = l.Predicate(Implies(Atomic("q"), Negate(leak)))
	require.NoError(t, err)
	assert.True(t, pred(s))
}

func TestLabeling_Errors(t *testing.T) {
	m := makeFakeModel("p")

	l, err := NewLabeling([]Formula{Atomic("missing")}, true)
	require.NoError(t, err)
	_, err = l.Compile(m)
	assert.ErrorIs(t, err, ErrUnknownProposition)

	_, err = l.Predicate(Atomic("p"))
	assert.ErrorIs(t, err, ErrNotLabeled)

	_, err = l.Predicate(Finally(Atomic("missing")))
	assert.ErrorIs(t, err, ErrNotStateFormula)

	_, err = Compile(FaultFormula{FaultID: 7, Name: "Ghost"}, m)
	assert.Error(t, err)
}
