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

// Package samples provides small executable models and a registry to look
// them up by name.
//
// Model is a generic implementation of model.ExecutableModel whose state is a
// statevector.Vector. A sample declares its fields, faults, propositions and
// constraints and supplies the initial and step functions:
//
//	m, _ := samples.NewModel("coin", statevector.Int("side", 0, 2))
//	side := m.Index("side")
//	m.Initial = func() error { m.Vector().SetInt(side, 0); return nil }
//	m.Step = func() error {
//	    if m.Vector().Int(side) == 0 {
//	        m.Vector().SetInt(side, choice.Choose(m.Choice(), int64(1), int64(2)))
//	    }
//	    return nil
//	}
//	m.AddProposition("heads", func() bool { return m.Vector().Int(side) == 1 })
//
// The registered samples are used by the command line tool and the tests.
package samples

import (
	"fmt"

	"github.com/jazzpetri/faultcheck/choice"
	"github.com/jazzpetri/faultcheck/faults"
	"github.com/jazzpetri/faultcheck/model"
	"github.com/jazzpetri/faultcheck/probability"
	"github.com/jazzpetri/faultcheck/statevector"
)

// Model is a model.ExecutableModel backed by a state vector.
type Model struct {
	name         string
	entry        string
	vector       *statevector.Vector
	choice       choice.Choice
	faults       []*faults.Fault
	constraints  []func() bool
	propositions map[string]func() bool

	// Initial sets the initial state. The zero state is used when nil.
	Initial func() error

	// Step advances the model. The state is left unchanged when nil.
	Step func() error
}

var _ model.ExecutableModel = (*Model)(nil)

// NewModel creates a model with the given state fields.
func NewModel(name string, fields ...statevector.Field) (*Model, error) {
	layout, err := statevector.NewLayout(fields...)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", name, err)
	}
	return &Model{
		name:         name,
		vector:       statevector.NewVector(layout),
		propositions: make(map[string]func() bool),
	}, nil
}

// Name returns the name of the model.
func (m *Model) Name() string { return m.name }

// Vector returns the state of the model.
func (m *Model) Vector() *statevector.Vector { return m.vector }

// Layout returns the state layout.
func (m *Model) Layout() *statevector.Layout { return m.vector.Layout() }

// Index returns the position of a state field and panics if it is unknown.
func (m *Model) Index(name string) int { return m.vector.MustIndex(name) }

// Choice returns the choice of the model.
func (m *Model) Choice() *choice.Choice { return &m.choice }

// AddFault registers a fault. A nil probability makes its activation a
// nondeterministic choice.
func (m *Model) AddFault(name string, p *probability.Probability) *faults.Fault {
	f := faults.NewFault(len(m.faults), name)
	f.ProbabilityOfOccurrence = p
	f.Choice.Resolver = m.choice.Resolver
	m.faults = append(m.faults, f)
	return f
}

// AddProposition registers an atomic proposition.
func (m *Model) AddProposition(label string, p func() bool) {
	m.propositions[label] = p
}

// AddConstraint registers a state constraint.
func (m *Model) AddConstraint(c func() bool) {
	m.constraints = append(m.constraints, c)
}

// StateVectorSize implements model.ExecutableModel.
func (m *Model) StateVectorSize() int { return m.vector.Layout().SizeInBytes() }

// Faults implements model.ExecutableModel.
func (m *Model) Faults() []*faults.Fault { return m.faults }

// StateConstraints implements model.ExecutableModel.
func (m *Model) StateConstraints() []func() bool { return m.constraints }

// Proposition implements model.ExecutableModel.
func (m *Model) Proposition(label string) (func() bool, bool) {
	p, ok := m.propositions[label]
	return p, ok
}

// Propositions returns the registered labels.
func (m *Model) Propositions() []string {
	labels := make([]string, 0, len(m.propositions))
	for l := range m.propositions {
		labels = append(labels, l)
	}
	return labels
}

// SetChoiceResolver implements model.ExecutableModel.
func (m *Model) SetChoiceResolver(r choice.Resolver) {
	m.choice.Resolver = r
	for _, f := range m.faults {
		f.Choice.Resolver = r
	}
}

// ExecuteInitialStep implements model.ExecutableModel.
func (m *Model) ExecuteInitialStep() error {
	copy(m.vector.Values(), m.vector.Layout().NewValues())
	if m.Initial == nil {
		return nil
	}
	return m.Initial()
}

// ExecuteStep implements model.ExecutableModel.
func (m *Model) ExecuteStep() error {
	if m.Step == nil {
		return nil
	}
	return m.Step()
}

// Serialize implements model.ExecutableModel.
func (m *Model) Serialize(buf []byte) error {
	if err := m.vector.Serialize(buf); err != nil {
		return fmt.Errorf("model %s: %w", m.name, err)
	}
	return nil
}

// Deserialize implements model.ExecutableModel.
func (m *Model) Deserialize(buf []byte) {
	m.vector.Deserialize(buf)
}

// Fingerprint describes the layout of the model.
func (m *Model) Fingerprint() model.Fingerprint {
	bools, ints := m.vector.Layout().Counts()
	return model.Fingerprint{Bools: int32(bools), Ints: int32(ints)}
}

// String implements fmt.Stringer.
func (m *Model) String() string {
	l := m.vector.Layout()
	s := m.name + "{"
	for i := 0; i < l.Len(); i++ {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%s=%d", l.Name(i), m.vector.Int(i))
	}
	return s + "}"
}
