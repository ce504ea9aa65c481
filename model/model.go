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

// Package model defines the boundary between the analysis and the models it
// analyzes.
//
// The analysis never looks inside a model. It only executes steps, reads and
// writes the serialized state and evaluates the predicates the model
// exposes. Every worker gets its own instance from a Creator, so an
// implementation never needs to be safe for concurrent use.
//
// # Implementing a model
//
//	type Pump struct {
//	    vec      *statevector.Vector
//	    choice   choice.Choice
//	    overheat *faults.Fault
//	}
//
//	func (p *Pump) ExecuteStep() error {
//	    p.overheat.TryActivate()
//	    if p.overheat.IsActivated() { ... }
//	    level := p.choice.ChooseFromRange(0, 3)
//	    ...
//	}
//
// Models must make every decision through their Choice. A model that reads
// the clock or a random source directly is rejected with
// choice.ErrNondeterminism.
package model

import (
	"fmt"

	"github.com/jazzpetri/faultcheck/choice"
	"github.com/jazzpetri/faultcheck/faults"
)

// ExecutableModel is a model the analysis can drive.
type ExecutableModel interface {
	// StateVectorSize is the fixed size of a serialized state in bytes.
	StateVectorSize() int

	// Faults returns the faults of the model, indexed by identifier.
	Faults() []*faults.Fault

	// StateConstraints returns predicates every retained state must satisfy.
	StateConstraints() []func() bool

	// Proposition returns the predicate registered under label.
	Proposition(label string) (func() bool, bool)

	// SetChoiceResolver binds the model and its faults to r.
	SetChoiceResolver(r choice.Resolver)

	// ExecuteInitialStep puts the model into one of its initial states.
	ExecuteInitialStep() error

	// ExecuteStep advances the model by one step.
	ExecuteStep() error

	// Serialize writes the current state into buf.
	Serialize(buf []byte) error

	// Deserialize restores the state from buf.
	Deserialize(buf []byte)
}

// Creator produces independent model instances.
type Creator interface {
	Create() (ExecutableModel, error)
}

// CreatorFunc adapts a function to Creator.
type CreatorFunc func() (ExecutableModel, error)

// Create calls f.
func (f CreatorFunc) Create() (ExecutableModel, error) {
	return f()
}

// Fingerprint describes the structure of a model. Two models with different
// fingerprints cannot share serialized states.
type Fingerprint struct {
	Bools int32
	Ints  int32
}

// String implements fmt.Stringer.
func (f Fingerprint) String() string {
	return fmt.Sprintf("%d bools, %d ints", f.Bools, f.Ints)
}

// Codec snapshots models so that they can be reconstructed later, e.g. when
// a saved counter-example is replayed.
type Codec interface {
	// Snapshot captures everything needed to reconstruct m.
	Snapshot(m ExecutableModel) ([]byte, error)

	// Restore reconstructs a fresh model from a snapshot.
	Restore(snapshot []byte) (ExecutableModel, error)

	// Fingerprint describes the structure of m.
	Fingerprint(m ExecutableModel) Fingerprint
}

// CodecCreator is a Creator that re-creates a fixed snapshot.
type CodecCreator struct {
	Codec    Codec
	Snapshot []byte
}

// Create restores the snapshot.
func (c CodecCreator) Create() (ExecutableModel, error) {
	return c.Codec.Restore(c.Snapshot)
}
