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

// Package counterexample stores, loads and replays paths that lead a model
// into a state violating a property.
//
// A counter-example consists of the serialized states of the path and, for
// every step, the choices the model made to produce the next state. Together
// with a snapshot of the model the path can be re-executed later, e.g. in a
// debugger:
//
//	ce, err := counterexample.LoadFile("tank.fcx", samples.Codec{Registry: samples.Default})
//	err = ce.Replay(codec, func(step int, m model.ExecutableModel) error {
//	    fmt.Println(step, m)
//	    return nil
//	})
//
// Files use a little-endian binary format that starts with FileHeader and
// carries the model's fault activations and fingerprint. Loading a file for
// a model with a different structure fails with an *IncompatibleError.
package counterexample

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/jazzpetri/faultcheck/executed"
	"github.com/jazzpetri/faultcheck/faults"
	"github.com/jazzpetri/faultcheck/model"
)

const (
	// FileExtension is the extension of counter-example files.
	FileExtension = ".fcx"

	// FileHeader identifies counter-example files.
	FileHeader int32 = 0x3FE0DD04
)

// ErrIncompatible is wrapped by every IncompatibleError.
var ErrIncompatible = errors.New("incompatible counter-example")

// IncompatibleError reports a counter-example that does not belong to the
// model it is loaded for.
type IncompatibleError struct {
	Reason string
}

func (e *IncompatibleError) Error() string {
	return fmt.Sprintf("%v: %s", ErrIncompatible, e.Reason)
}

// Unwrap returns ErrIncompatible.
func (e *IncompatibleError) Unwrap() error {
	return ErrIncompatible
}

func incompatible(format string, args ...interface{}) error {
	return &IncompatibleError{Reason: fmt.Sprintf(format, args...)}
}

// CounterExample is a path of serialized states.
type CounterExample struct {
	// Snapshot reconstructs the model with a model.Codec.
	Snapshot []byte

	// Activations holds the activation mode of every fault.
	Activations []faults.Activation

	// Fingerprint describes the structure of the model.
	Fingerprint model.Fingerprint

	// SlotCount is the number of 4-byte slots of a state.
	SlotCount int

	// States holds the serialized states, starting with an initial state.
	States [][]byte

	// ReplayInfo holds the choices of every step. Entry 0 produces the
	// first state with the initial step, entry i the state i from state
	// i-1. With EndsWithException a last entry holds the choices of the
	// failing step.
	ReplayInfo [][]int

	// EndsWithException reports that the step after the last state failed.
	EndsWithException bool
}

// New creates a counter-example for m.
func New(codec model.Codec, m model.ExecutableModel, states [][]byte, replayInfo [][]int, endsWithException bool) (*CounterExample, error) {
	want := len(states)
	if endsWithException {
		want++
	}
	if len(replayInfo) != want {
		return nil, fmt.Errorf("%d replay entries for %d states", len(replayInfo), len(states))
	}
	size := m.StateVectorSize()
	for i, s := range states {
		if len(s) != size {
			return nil, fmt.Errorf("state %d has %d bytes, expected %d", i, len(s), size)
		}
	}

	snapshot, err := codec.Snapshot(m)
	if err != nil {
		return nil, err
	}
	fs := m.Faults()
	activations := make([]faults.Activation, len(fs))
	for i, f := range fs {
		activations[i] = f.Activation()
	}
	return &CounterExample{
		Snapshot:          snapshot,
		Activations:       activations,
		Fingerprint:       codec.Fingerprint(m),
		SlotCount:         slots(size),
		States:            states,
		ReplayInfo:        replayInfo,
		EndsWithException: endsWithException,
	}, nil
}

func slots(size int) int {
	return (size + 3) / 4
}

// StepCount returns the number of states of the path.
func (ce *CounterExample) StepCount() int {
	return len(ce.States)
}

// Model reconstructs the model and restores the fault activations.
func (ce *CounterExample) Model(codec model.Codec) (model.ExecutableModel, error) {
	m, err := codec.Restore(ce.Snapshot)
	if err != nil {
		return nil, err
	}
	if err := ce.checkCompatible(codec, m); err != nil {
		return nil, err
	}
	for i, f := range m.Faults() {
		f.SetActivation(ce.Activations[i])
	}
	return m, nil
}

func (ce *CounterExample) checkCompatible(codec model.Codec, m model.ExecutableModel) error {
	if n := len(m.Faults()); n != len(ce.Activations) {
		return incompatible("model has %d faults, counter-example %d", n, len(ce.Activations))
	}
	if fp := codec.Fingerprint(m); fp != ce.Fingerprint {
		return incompatible("model has %v, counter-example %v", fp, ce.Fingerprint)
	}
	if n := slots(m.StateVectorSize()); n != ce.SlotCount {
		return incompatible("model state has %d slots, counter-example %d", n, ce.SlotCount)
	}
	return nil
}

// GenerateReplayInfo determines the choices of every step of a path by
// re-executing the model from each state over all paths until the next
// state is produced. With endsWithException the choices of a failing step
// from the last state are appended.
func GenerateReplayInfo(m model.ExecutableModel, states [][]byte, endsWithException bool) ([][]int, error) {
	e := executed.NewReplayer(m)
	buf := make([]byte, m.StateVectorSize())
	info := make([][]int, 0, len(states)+1)

	for i, target := range states {
		var from []byte
		if i > 0 {
			from = states[i-1]
		}

		var found []int
		err := e.ForEachPath(from, i == 0, func() (bool, error) {
			if err := m.Serialize(buf); err != nil {
				return false, err
			}
			if bytes.Equal(buf, target) {
				found = append([]int{}, e.Choices()...)
				return false, nil
			}
			return true, nil
		})
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		if found == nil {
			return nil, fmt.Errorf("step %d: no path leads to the next state", i)
		}
		info = append(info, found)
	}

	if endsWithException {
		var from []byte
		if len(states) > 0 {
			from = states[len(states)-1]
		}
		err := e.ForEachPath(from, len(states) == 0, func() (bool, error) { return true, nil })
		var stepErr *executed.StepError
		if !errors.As(err, &stepErr) {
			return nil, fmt.Errorf("step %d: expected the model to fail, got %v", len(states), err)
		}
		info = append(info, append([]int{}, stepErr.Choices...))
	}
	return info, nil
}

// Replay re-executes the path and calls visit after each step with the
// model in the state of that step. It fails if the model diverges from the
// recorded states. For a counter-example ending with an exception, the
// model's error of the last step is returned wrapped in an
// *executed.StepError.
func (ce *CounterExample) Replay(codec model.Codec, visit func(step int, m model.ExecutableModel) error) error {
	m, err := ce.Model(codec)
	if err != nil {
		return err
	}
	e := executed.NewReplayer(m)
	buf := make([]byte, m.StateVectorSize())

	for i, choices := range ce.ReplayInfo {
		var from []byte
		if i > 0 {
			from = ce.States[i-1]
		}
		err := e.Replay(from, i == 0, choices)
		if i == len(ce.States) {
			if err == nil {
				return fmt.Errorf("step %d: expected the model to fail", i)
			}
			return err
		}
		if err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}

		if err := m.Serialize(buf); err != nil {
			return err
		}
		if !bytes.Equal(buf, ce.States[i]) {
			return fmt.Errorf("step %d: replay diverged from the recorded state", i)
		}
		if visit != nil {
			if err := visit(i, m); err != nil {
				return err
			}
		}
	}
	return nil
}
