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
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jazzpetri/faultcheck/faults"
	"github.com/jazzpetri/faultcheck/formula"
)

func TestCheckLayout(t *testing.T) {
	assert.NotPanics(t, CheckLayout)
}

func TestTransition_Candidate(t *testing.T) {
	tr := Transition{Flags: IsValid}
	c := tr.Candidate()
	c.Target = 4
	c.ActivatedFaults = faults.FromBits(3)
	c.Formulas = formula.StateFormulaSetFromBits(1)

	assert.Equal(t, 4, tr.Target)
	assert.Equal(t, faults.FromBits(3), tr.ActivatedFaults)
	assert.Equal(t, formula.StateFormulaSetFromBits(1), tr.Formulas)
	assert.True(t, tr.Valid())

	tr.Invalidate()
	assert.False(t, tr.Valid())
	assert.False(t, (IsValid | ToStuttering).Has(1<<FirstUnspecifiedBit))
}

func TestArena(t *testing.T) {
	a := NewArena(4, 2, "SuccessorCapacity")

	i, err := a.Allocate()
	require.NoError(t, err)
	copy(a.Slot(i), []byte{1, 2, 3, 4})
	j, err := a.Allocate()
	require.NoError(t, err)
	assert.Equal(t, 1, j)
	assert.Equal(t, []byte{1, 2, 3, 4}, a.Slot(i))
	assert.Len(t, a.Slot(j), 4)

	_, err = a.Allocate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutOfMemory))
	var capErr *CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, 2, capErr.Capacity)
	assert.Contains(t, err.Error(), "SuccessorCapacity")

	a.Release()
	assert.Equal(t, 1, a.Len())
	a.Reset()
	assert.Equal(t, 0, a.Len())
}

// makeCollection creates four transitions of which the second and fourth
// are invalid.
func makeCollection() Collection {
	arena := NewArena(1, 4, "")
	ts := make([]Transition, 4)
	for i := range ts {
		slot, _ := arena.Allocate()
		arena.Slot(slot)[0] = byte(10 + i)
		ts[i] = Transition{Target: slot, Flags: IsValid}
	}
	ts[1].Invalidate()
	ts[3].Invalidate()
	return NewCollection(ts, 7, arena)
}

func TestEnumerator_SkipsInvalid(t *testing.T) {
	c := makeCollection()

	var targets []byte
	e := c.Enumerator()
	for e.MoveNext() {
		targets = append(targets, e.TargetState()[0])
	}
	assert.Equal(t, []byte{10, 12}, targets)
	assert.False(t, e.MoveNext())

	assert.Equal(t, 4, c.Len())
	assert.Equal(t, 2, c.ValidCount())
	assert.Equal(t, 7, c.TotalCount())
	assert.Nil(t, c.StepGraph())
}

func TestCollection_All(t *testing.T) {
	c := makeCollection()

	var targets []int
	for tr := range c.All() {
		targets = append(targets, tr.Target)
	}
	assert.Equal(t, []int{0, 2}, targets)

	first := slices.Collect(c.All())[0]
	first.Probability = 0.5
	assert.Equal(t, 0.5, c.At(0).Probability)
}
