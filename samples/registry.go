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
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/jazzpetri/faultcheck/formula"
	"github.com/jazzpetri/faultcheck/model"
)

// Factory creates a fresh instance of a sample.
type Factory func() (*Model, error)

// Query is a formula a sample is usually checked against.
type Query struct {
	Name    string
	Formula formula.Formula
}

// Entry describes a registered sample.
type Entry struct {
	Name        string
	Description string
	Factory     Factory

	// Invariant is the state formula that should hold in every state, if
	// the sample has one.
	Invariant formula.Formula

	Queries []Query
}

// Registry maps sample names to their entries.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Register adds an entry. Names must be unique and non-empty.
func (r *Registry) Register(e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e.Name == "" {
		return fmt.Errorf("cannot register sample '': name cannot be empty")
	}
	if e.Factory == nil {
		return fmt.Errorf("cannot register sample '%s': factory cannot be nil", e.Name)
	}
	if _, exists := r.entries[e.Name]; exists {
		return fmt.Errorf("cannot register sample '%s': already registered", e.Name)
	}

	r.entries[e.Name] = e
	return nil
}

// Get returns the entry registered under name.
func (r *Registry) Get(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	return e, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for n := range r.entries {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Create instantiates the sample registered under name. The model
// remembers name, so its snapshot restores through the same entry even when
// the model itself is named differently.
func (r *Registry) Create(name string) (*Model, error) {
	e, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("sample %s is not registered", name)
	}
	m, err := e.Factory()
	if err != nil {
		return nil, err
	}
	m.entry = name
	return m, nil
}

// Creator returns a model.Creator for the sample registered under name.
func (r *Registry) Creator(name string) model.Creator {
	return model.CreatorFunc(func() (model.ExecutableModel, error) {
		return r.Create(name)
	})
}

type snapshot struct {
	Name string `json:"name"`
}

// Codec implements model.Codec for the samples of a registry.
type Codec struct {
	Registry *Registry
}

var _ model.Codec = Codec{}

// Snapshot implements model.Codec.
func (c Codec) Snapshot(m model.ExecutableModel) ([]byte, error) {
	sm, ok := m.(*Model)
	if !ok {
		return nil, fmt.Errorf("cannot snapshot %T: not a sample model", m)
	}
	name := sm.entry
	if name == "" {
		name = sm.Name()
	}
	if _, ok := c.Registry.Get(name); !ok {
		return nil, fmt.Errorf("cannot snapshot sample %s: not registered", name)
	}

	data, err := json.Marshal(snapshot{Name: name})
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot %s: %w", name, err)
	}
	return data, nil
}

// Restore implements model.Codec.
func (c Codec) Restore(data []byte) (model.ExecutableModel, error) {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to restore sample: %w", err)
	}
	return c.Registry.Create(s.Name)
}

// Fingerprint implements model.Codec.
func (c Codec) Fingerprint(m model.ExecutableModel) model.Fingerprint {
	if sm, ok := m.(*Model); ok {
		return sm.Fingerprint()
	}
	return model.Fingerprint{}
}

// Default holds the built-in samples.
var Default = NewRegistry()

// MustCreate instantiates a built-in sample and panics on failure.
func MustCreate(name string) *Model {
	m, err := Default.Create(name)
	if err != nil {
		panic(err)
	}
	return m
}
