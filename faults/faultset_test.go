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

package faults

import (
	"math/bits"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jazzpetri/faultcheck/choice"
)

// makeFaults creates n nondeterministic faults with identifiers 0..n-1.
func makeFaults(n int) []*Fault {
	all := make([]*Fault, n)
	for i := range all {
		all[i] = NewFault(i, "F"+string(rune('A'+i%26)))
	}
	return all
}

// TestFaultSet_Algebra checks the set laws on random sets.
func TestFaultSet_Algebra(t *testing.T) {
	all := makeFaults(MaxFaults)
	rng := rand.New(rand.NewPCG(1, 2))

	for i := 0; i < 500; i++ {
		a := FromBits(rng.Uint64() >> 1)
		b := FromBits(rng.Uint64() >> 1)
		f := all[rng.IntN(len(all))]

		assert.True(t, a.IsSubsetOf(a.Union(b)))
		assert.True(t, b.IsSubsetOf(a.Union(b)))
		assert.True(t, a.Intersection(b).IsSubsetOf(a))
		assert.True(t, a.Intersection(b).IsSubsetOf(b))

		diff := a.Difference(b)
		for _, g := range all {
			if diff.Contains(g) {
				assert.True(t, a.Contains(g) && !b.Contains(g))
			}
		}

		assert.Equal(t, a.Remove(f), a.Add(f).Remove(f))
		assert.Equal(t, bits.OnesCount64(a.Bits()), a.Cardinality())
	}
}

func TestFaultSet_ToFaultSequenceIsOrderedAndRestartable(t *testing.T) {
	all := makeFaults(8)
	s := NewFaultSet(all[5], all[1], all[3])

	first := slices.Collect(s.ToFaultSequence(all))
	second := slices.Collect(s.ToFaultSequence(all))

	require.Len(t, first, 3)
	assert.Equal(t, []int{1, 3, 5}, []int{first[0].Identifier, first[1].Identifier, first[2].Identifier})
	assert.Equal(t, first, second)
	assert.Equal(t, "{1, 3, 5}", s.String())
}

func TestCheckFaultCount(t *testing.T) {
	assert.NotPanics(t, func() { CheckFaultCount(63) })
	assert.Panics(t, func() { CheckFaultCount(64) })
	assert.Panics(t, func() { NewFault(63, "too many") })
}

// TestSubsumption checks both closures on a chain A → B → C plus an
// unrelated fault D.
func TestSubsumption(t *testing.T) {
	all := makeFaults(4)
	a, b, c, d := all[0], all[1], all[2], all[3]
	a.Subsumes(b)
	b.Subsumes(c)

	assert.Equal(t, NewFaultSet(a, b, c), a.SubsumedFaultSet())
	assert.Equal(t, NewFaultSet(a, b, c), SubsumedFaults(NewFaultSet(a), all))
	assert.Equal(t, NewFaultSet(c, d), SubsumedFaults(NewFaultSet(c, d), all))

	assert.Equal(t, NewFaultSet(a, b, c), SubsumingFaults(NewFaultSet(c), all))
	assert.Equal(t, NewFaultSet(d), SubsumingFaults(NewFaultSet(d), all))
}

func TestFromActivatedFaults(t *testing.T) {
	all := makeFaults(3)
	all[1].SetActivation(Forced)

	assert.Equal(t, NewFaultSet(all[1]), FromActivatedFaults(all))
}

// TestFault_TryActivate checks the activation modes and that a
// nondeterministic fault is explored both ways.
func TestFault_TryActivate(t *testing.T) {
	r := choice.NewDepthFirstResolver(false)
	f := NewFault(0, "F")
	f.Choice.Resolver = r

	var seen []bool
	r.PrepareNextState()
	for {
		more, err := r.PrepareNextPath()
		require.NoError(t, err)
		if !more {
			break
		}
		f.Reset()
		f.TryActivate()
		f.TryActivate() // second call has no effect
		seen = append(seen, f.IsActivated())
	}
	assert.Equal(t, []bool{false, true}, seen)

	f.SetActivation(Suppressed)
	f.Reset()
	f.TryActivate()
	assert.False(t, f.IsActivated())

	f.SetActivation(Forced)
	f.Reset()
	f.TryActivate()
	assert.True(t, f.IsActivated())
}

// TestFault_UndoActivation checks that undoing an activation with the
// forward optimization prunes the activated branch.
func TestFault_UndoActivation(t *testing.T) {
	r := choice.NewDepthFirstResolver(true)
	f := NewFault(0, "F")
	f.ProbabilityOfOccurrence = Probability(0.2)
	f.Choice.Resolver = r

	paths := 0
	r.PrepareNextState()
	for {
		more, err := r.PrepareNextPath()
		require.NoError(t, err)
		if !more {
			break
		}
		paths++
		f.Reset()
		f.TryActivate()
		f.UndoActivation()
		assert.Equal(t, 1.0, r.PathProbability())
	}
	assert.Equal(t, 1, paths)
}
