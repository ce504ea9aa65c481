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
	"fmt"

	"github.com/jazzpetri/faultcheck/choice"
	"github.com/jazzpetri/faultcheck/faults"
	"github.com/jazzpetri/faultcheck/formula"
	"github.com/jazzpetri/faultcheck/probability"
	"github.com/jazzpetri/faultcheck/statevector"
)

func init() {
	for _, e := range []Entry{
		{
			Name:        "dice",
			Description: "Knuth's die emulated by a fair coin",
			Factory:     NewDice,
			Queries:     finallyQueries("final1", "final2", "final6"),
		},
		{
			Name:        "three-exits",
			Description: "a die decides the exit of a hall; door A may jam",
			Factory:     NewThreeExits,
			Queries:     finallyQueries("exitA", "exitB", "exitC"),
		},
		{
			Name:        "same-target",
			Description: "two probabilistic ways into the same state",
			Factory:     NewSameTarget,
			Queries:     finallyQueries("state1"),
		},
		{
			Name:        "same-target-faults",
			Description: "the same state is reached without faults and with two transient faults",
			Factory:     NewSameTargetWithFaults,
			Queries: []Query{
				{Name: "F<=1 state1", Formula: formula.BoundedFinally(formula.Atomic("state1"), 1)},
			},
		},
		{
			Name:        "uniform-initial",
			Description: "nondeterministic choice among three initial states",
			Factory:     NewUniformInitial,
			Queries:     finallyQueries("state2"),
		},
		{
			Name:        "three-way",
			Description: "one probabilistic branch with weights 0.1, 0.3 and 0.6",
			Factory:     NewThreeWay,
			Queries:     finallyQueries("state1", "state2", "state3"),
		},
		{
			Name:        "undo-fault",
			Description: "a fault activation that is undone when it has no effect",
			Factory:     NewUndoFault,
			Queries:     finallyQueries("is100", "is200"),
		},
		{
			Name:        "scheduler-split",
			Description: "a nondeterministic choice nested in a probabilistic one",
			Factory:     NewSchedulerSplit,
			Queries:     finallyQueries("y1", "y2", "y3"),
		},
		{
			Name:        "tank",
			Description: "a pressure tank whose pump is stopped by a sensor that may fail",
			Factory:     NewTank,
			Invariant:   formula.Negate(formula.Atomic("ruptured")),
			Queries: []Query{
				{Name: "F<=40 ruptured", Formula: formula.BoundedFinally(formula.Atomic("ruptured"), 40)},
			},
		},
	} {
		if err := Default.Register(e); err != nil {
			panic(err)
		}
	}
}

func finallyQueries(labels ...string) []Query {
	qs := make([]Query, len(labels))
	for i, l := range labels {
		qs[i] = Query{Name: "F " + l, Formula: formula.Finally(formula.Atomic(l))}
	}
	return qs
}

func option[T any](p float64, v T) choice.Option[T] {
	return choice.NewOption(probability.MustNew(p), v)
}

// stateModel creates a model with a single integer "state" in [0, max] and
// propositions state0..stateMax.
func stateModel(name string, max int64) (*Model, int, error) {
	m, err := NewModel(name, statevector.Int("state", 0, max))
	if err != nil {
		return nil, 0, err
	}
	s := m.Index("state")
	for v := int64(0); v <= max; v++ {
		m.AddProposition(fmt.Sprintf("state%d", v), func() bool { return m.Vector().Int(s) == v })
	}
	return m, s, nil
}

// die states
const (
	dieInitial = iota
	dieThrow1To3
	dieThrow4To6
	dieThrow1Or2
	dieThrow3OrRethrow
	dieThrow4Or5
	dieThrow6OrRethrow
	dieFinal1
)

// NewDice creates Knuth's die: a fair coin is flipped until one of six final
// states is reached.
func NewDice() (*Model, error) {
	m, err := NewModel("dice", statevector.Enum("state", dieFinal1+6))
	if err != nil {
		return nil, err
	}
	s := m.Index("state")

	flip := func(heads, tails int64) {
		m.Vector().SetInt(s, choice.ChooseWithProbability(m.Choice(), option(0.5, heads), option(0.5, tails)))
	}
	m.Step = func() error {
		switch m.Vector().Int(s) {
		case dieInitial:
			flip(dieThrow1To3, dieThrow4To6)
		case dieThrow1To3:
			flip(dieThrow1Or2, dieThrow3OrRethrow)
		case dieThrow4To6:
			flip(dieThrow4Or5, dieThrow6OrRethrow)
		case dieThrow1Or2:
			flip(dieFinal1, dieFinal1+1)
		case dieThrow3OrRethrow:
			flip(dieFinal1+2, dieThrow1To3)
		case dieThrow4Or5:
			flip(dieFinal1+3, dieFinal1+4)
		case dieThrow6OrRethrow:
			flip(dieFinal1+5, dieThrow4To6)
		}
		return nil
	}

	for face := int64(1); face <= 6; face++ {
		m.AddProposition(fmt.Sprintf("final%d", face), func() bool {
			return m.Vector().Int(s) == dieFinal1+face-1
		})
	}
	m.AddProposition("initial", func() bool { return m.Vector().Int(s) == dieInitial })
	return m, nil
}

// NewThreeExits creates a hall with three exits. Every step a die is thrown:
// 1 leaves through door A unless it jams, 2 and 3 leave through B and C,
// everything else stays in the hall.
func NewThreeExits() (*Model, error) {
	m, err := NewModel("three-exits", statevector.Enum("position", 4))
	if err != nil {
		return nil, err
	}
	pos := m.Index("position")
	jammed := m.AddFault("JammedDoorA", faults.Probability(0.1))

	faces := make([]choice.Option[int], 6)
	for i := range faces {
		faces[i] = option(1.0/6, i+1)
	}
	m.Step = func() error {
		v := m.Vector()
		if v.Int(pos) != 0 {
			return nil
		}
		switch choice.ChooseWithProbability(m.Choice(), faces...) {
		case 1:
			jammed.TryActivate()
			if !jammed.IsActivated() {
				v.SetInt(pos, 1)
			}
		case 2:
			v.SetInt(pos, 2)
		case 3:
			v.SetInt(pos, 3)
		}
		return nil
	}

	for i, l := range []string{"hall", "exitA", "exitB", "exitC"} {
		m.AddProposition(l, func() bool { return m.Vector().Int(pos) == int64(i) })
	}
	return m, nil
}

// NewSameTarget creates a model that reaches state 1 with probability
// 0.1*0.2 + 0.9*0.7 = 0.65 on two different ways.
func NewSameTarget() (*Model, error) {
	m, s, err := stateModel("same-target", 3)
	if err != nil {
		return nil, err
	}

	m.Step = func() error {
		v := m.Vector()
		if v.Int(s) != 0 {
			return nil
		}
		if choice.ChooseWithProbability(m.Choice(), option(0.1, true), option(0.9, false)) {
			v.SetInt(s, choice.ChooseWithProbability(m.Choice(), option(0.2, int64(1)), option(0.8, int64(2))))
		} else {
			v.SetInt(s, choice.ChooseWithProbability(m.Choice(), option(0.3, int64(3)), option(0.7, int64(1))))
		}
		return nil
	}
	return m, nil
}

// NewSameTargetWithFaults creates a model that reaches state 1 directly with
// probability 0.1 or through the transient faults F1 and F2.
func NewSameTargetWithFaults() (*Model, error) {
	m, s, err := stateModel("same-target-faults", 3)
	if err != nil {
		return nil, err
	}
	f1 := m.AddFault("F1", faults.Probability(0.5))
	f2 := m.AddFault("F2", faults.Probability(0.5))

	m.Step = func() error {
		v := m.Vector()
		if v.Int(s) != 0 {
			return nil
		}
		if choice.ChooseWithProbability(m.Choice(), option(0.1, true), option(0.9, false)) {
			v.SetInt(s, 1)
			return nil
		}
		f1.TryActivate()
		if !f1.IsActivated() {
			v.SetInt(s, 2)
			return nil
		}
		f2.TryActivate()
		if f2.IsActivated() {
			v.SetInt(s, 1)
		} else {
			v.SetInt(s, 3)
		}
		return nil
	}
	return m, nil
}

// NewUniformInitial creates a model whose initial state is chosen
// nondeterministically among 0, 1 and 2 and never changes.
func NewUniformInitial() (*Model, error) {
	m, s, err := stateModel("uniform-initial", 2)
	if err != nil {
		return nil, err
	}
	m.Initial = func() error {
		m.Vector().SetInt(s, choice.Choose(m.Choice(), int64(0), int64(1), int64(2)))
		return nil
	}
	return m, nil
}

// NewThreeWay creates a model that leaves state 0 once, to 1, 2 or 3 with
// probability 0.1, 0.3 and 0.6.
func NewThreeWay() (*Model, error) {
	m, s, err := stateModel("three-way", 3)
	if err != nil {
		return nil, err
	}
	m.Step = func() error {
		v := m.Vector()
		if v.Int(s) == 0 {
			v.SetInt(s, choice.ChooseWithProbability(m.Choice(),
				option(0.1, int64(1)), option(0.3, int64(2)), option(0.6, int64(3))))
		}
		return nil
	}
	return m, nil
}

// NewUndoFault creates a model whose fault F1 (probability 0.4) only matters
// when a subsequent choice succeeds. Otherwise the activation is undone.
// State 100 is reached with probability 0.48, state 200 with 0.52.
func NewUndoFault() (*Model, error) {
	m, err := NewModel("undo-fault", statevector.Int("state", 0, 200))
	if err != nil {
		return nil, err
	}
	s := m.Index("state")
	f1 := m.AddFault("F1", faults.Probability(0.4))

	succeeds := func() bool {
		f1.TryActivate()
		if f1.IsActivated() {
			return false
		}
		ok := choice.ChooseWithProbability(m.Choice(), option(0.8, true), option(0.2, false))
		if !ok {
			f1.UndoActivation()
		}
		return ok
	}
	m.Step = func() error {
		v := m.Vector()
		if v.Int(s) != 0 {
			return nil
		}
		if succeeds() {
			v.SetInt(s, 100)
		} else {
			v.SetInt(s, 200)
		}
		return nil
	}
	m.AddProposition("is100", func() bool { return m.Vector().Int(s) == 100 })
	m.AddProposition("is200", func() bool { return m.Vector().Int(s) == 200 })
	return m, nil
}

// NewSchedulerSplit creates a model that, every step, moves to y=1 with
// probability 0.4 and otherwise lets a scheduler pick y=2 or y=3.
func NewSchedulerSplit() (*Model, error) {
	m, err := NewModel("scheduler-split", statevector.Bool("l"), statevector.Int("y", 0, 3))
	if err != nil {
		return nil, err
	}
	l, y := m.Index("l"), m.Index("y")

	m.Step = func() error {
		v := m.Vector()
		v.SetBool(l, choice.ChooseWithProbability(m.Choice(), option(0.6, true), option(0.4, false)))
		v.SetInt(y, 1)
		if v.Bool(l) {
			v.SetInt(y, choice.Choose(m.Choice(), int64(2), int64(3)))
		}
		return nil
	}
	for i := int64(1); i <= 3; i++ {
		m.AddProposition(fmt.Sprintf("y%d", i), func() bool { return m.Vector().Int(y) == i })
	}
	return m, nil
}

// Tank levels.
const (
	TankSensorLevel = 8
	TankMaxLevel    = 10
)

// NewTank creates a pressure tank. A pump fills it until the sensor reports
// the sensor level, then the tank drains. The sensor may stay silent and the
// pump may fail to stop; if the tank reaches the maximum level it ruptures.
func NewTank() (*Model, error) {
	m, err := NewModel("tank",
		statevector.Int("level", 0, TankMaxLevel),
		statevector.Bool("pumping"),
		statevector.Bool("ruptured"),
	)
	if err != nil {
		return nil, err
	}
	level, pumping, ruptured := m.Index("level"), m.Index("pumping"), m.Index("ruptured")
	sensorStuck := m.AddFault("SensorStuck", faults.Probability(0.05))
	pumpDefect := m.AddFault("PumpDefect", faults.Probability(0.02))

	m.Initial = func() error {
		m.Vector().SetBool(pumping, true)
		return nil
	}
	m.Step = func() error {
		v := m.Vector()
		if v.Bool(ruptured) {
			return nil
		}
		if !v.Bool(pumping) {
			v.SetInt(level, max(v.Int(level)-2, 0))
			if v.Int(level) == 0 {
				v.SetBool(pumping, true)
			}
			return nil
		}

		v.SetInt(level, v.Int(level)+1)
		if v.Int(level) >= TankMaxLevel {
			v.SetBool(ruptured, true)
			return nil
		}
		if v.Int(level) < TankSensorLevel {
			return nil
		}
		sensorStuck.TryActivate()
		if sensorStuck.IsActivated() {
			return nil
		}
		pumpDefect.TryActivate()
		if !pumpDefect.IsActivated() {
			v.SetBool(pumping, false)
		}
		return nil
	}

	m.AddProposition("ruptured", func() bool { return m.Vector().Bool(ruptured) })
	m.AddProposition("full", func() bool { return m.Vector().Int(level) >= TankSensorLevel })
	return m, nil
}
