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

package samples

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jazzpetri/faultcheck/choice"
	"github.com/jazzpetri/faultcheck/faults"
	"github.com/jazzpetri/faultcheck/formula"
	"github.com/jazzpetri/faultcheck/model"
	"github.com/jazzpetri/faultcheck/statevector"
)

// run executes every path of one step of m from state and returns the
// successor states as strings.
func run(t *testing.T, m *Model, state []byte, initial bool) []string {
	t.Helper()
	r := choice.NewDepthFirstResolver(false)
	m.SetChoiceResolver(r)
	r.PrepareNextState()

	var out []string
	for {
		more, err := r.PrepareNextPath()
		require.NoError(t, err)
		if !more {
			return out
		}
		for _, f := range m.Faults() {
			f.Reset()
		}
		if initial {
			require.NoError(t, m.ExecuteInitialStep())
		} else {
			m.Deserialize(state)
			require.NoError(t, m.ExecuteStep())
		}
		out = append(out, m.String())
	}
}

func collectLabels(f formula.Formula) ([]string, error) {
	l, err := formula.NewLabeling([]formula.Formula{f}, true)
	if err != nil {
		return nil, err
	}
	var labels []string
	for _, leaf := range l.Labels() {
		if a, ok := leaf.(formula.AtomicProposition); ok {
			labels = append(labels, a.Label)
		}
	}
	return labels, nil
}

func serialize(t *testing.T, m *Model) []byte {
	t.Helper()
	buf := make([]byte, m.StateVectorSize())
	require.NoError(t, m.Serialize(buf))
	return buf
}

// TestRegistry_RejectsInvalidEntries checks the registration rules.
func TestRegistry_RejectsInvalidEntries(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Entry{Name: "a", Factory: NewThreeWay}))

	assert.Error(t, r.Register(Entry{Name: "a", Factory: NewThreeWay}))
	assert.Error(t, r.Register(Entry{Name: "", Factory: NewThreeWay}))
	assert.Error(t, r.Register(Entry{Name: "b"}))

	_, err := r.Create("missing")
	assert.Error(t, err)
}

// TestDefault_ContainsBuiltins makes sure every built-in sample can be
// created and declares the propositions its queries use.
func TestDefault_ContainsBuiltins(t *testing.T) {
	names := Default.Names()
	assert.Contains(t, names, "dice")
	assert.Contains(t, names, "tank")
	assert.IsIncreasing(t, names)

	for _, name := range names {
		e, _ := Default.Get(name)
		m, err := e.Factory()
		require.NoError(t, err, name)
		assert.Equal(t, name, m.Name())
		assert.Positive(t, m.StateVectorSize(), name)

		for _, q := range e.Queries {
			labels, err := collectLabels(q.Formula)
			require.NoError(t, err)
			for _, l := range labels {
				_, ok := m.Proposition(l)
				assert.True(t, ok, "%s: proposition %s", name, l)
			}
		}
	}
}

// TestCodec_RoundTrip restores a sample from its snapshot.
func TestCodec_RoundTrip(t *testing.T) {
	c := Codec{Registry: Default}
	m := MustCreate("dice")

	data, err := c.Snapshot(m)
	require.NoError(t, err)

	restored, err := c.Restore(data)
	require.NoError(t, err)
	assert.Equal(t, "dice", restored.(*Model).Name())
	assert.Equal(t, c.Fingerprint(m), c.Fingerprint(restored))
	assert.Equal(t, model.Fingerprint{Ints: 1}, c.Fingerprint(m))
}

// TestCodec_EntryName restores a model through the entry that created it,
// not through the name of the model.
func TestCodec_EntryName(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Entry{Name: "loaded-die", Factory: NewDice}))
	c := Codec{Registry: r}

	m, err := r.Create("loaded-die")
	require.NoError(t, err)
	require.Equal(t, "dice", m.Name())

	data, err := c.Snapshot(m)
	require.NoError(t, err)
	restored, err := c.Restore(data)
	require.NoError(t, err)
	assert.Equal(t, "dice", restored.(*Model).Name())

	_, err = c.Snapshot(MustCreate("dice"))
	assert.ErrorContains(t, err, "not registered")
}

// TestModel_InitialStepResetsState makes sure values of a previous
// execution do not leak into the initial state.
func TestModel_InitialStepResetsState(t *testing.T) {
	m, err := NewModel("counter", statevector.Int("n", 2, 5), statevector.Bool("done"))
	require.NoError(t, err)
	n := m.Index("n")
	m.Vector().SetInt(n, 4)

	require.NoError(t, m.ExecuteInitialStep())
	assert.Equal(t, int64(2), m.Vector().Int(n))
	assert.Equal(t, "counter{n=2, done=0}", m.String())
}

// TestDice_Successors checks the coin flips of the die.
func TestDice_Successors(t *testing.T) {
	m := MustCreate("dice")
	initial := run(t, m, nil, true)
	require.Equal(t, []string{"dice{state=0}"}, initial)

	require.NoError(t, m.ExecuteInitialStep())
	assert.Equal(t, []string{"dice{state=1}", "dice{state=2}"}, run(t, m, serialize(t, m), false))
}

// TestThreeExits_JammedDoor explores the jammed door. The fault is only
// tried on a die roll of one.
func TestThreeExits_JammedDoor(t *testing.T) {
	m := MustCreate("three-exits")
	require.NoError(t, m.ExecuteInitialStep())

	got := run(t, m, serialize(t, m), false)
	assert.Equal(t, []string{
		"three-exits{position=1}",
		"three-exits{position=0}",
		"three-exits{position=2}",
		"three-exits{position=3}",
		"three-exits{position=0}",
		"three-exits{position=0}",
		"three-exits{position=0}",
	}, got)
}

// TestTank_Ruptures drives the tank with both faults activated until it
// ruptures.
func TestTank_Ruptures(t *testing.T) {
	m := MustCreate("tank")
	r := choice.NewDepthFirstResolver(false)
	m.SetChoiceResolver(r)
	for _, f := range m.Faults() {
		f.SetActivation(faults.Forced)
	}
	require.NoError(t, m.ExecuteInitialStep())

	ruptured, _ := m.Proposition("ruptured")
	steps := 0
	for !ruptured() && steps < 20 {
		require.NoError(t, m.ExecuteStep())
		steps++
	}
	assert.True(t, ruptured())
	assert.Equal(t, TankMaxLevel, steps)
	assert.Equal(t, int64(TankMaxLevel), m.Vector().Int(m.Index("level")))
}
