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

package statevector

import "fmt"

// Vector holds the current values of a model for a layout.
type Vector struct {
	layout *Layout
	values []int64
}

// NewVector creates a vector with every value at its minimum.
func NewVector(l *Layout) *Vector {
	return &Vector{layout: l, values: l.NewValues()}
}

// MustIndex returns the position of a named value and panics if the layout
// does not declare it. Models resolve their indices once at construction.
func (v *Vector) MustIndex(name string) int {
	i, ok := v.layout.Index(name)
	if !ok {
		panic(fmt.Sprintf("statevector: unknown field %q", name))
	}
	return i
}

// Layout returns the layout of the vector.
func (v *Vector) Layout() *Layout { return v.layout }

// Values returns the underlying values.
func (v *Vector) Values() []int64 { return v.values }

// Bool returns value i as a boolean.
func (v *Vector) Bool(i int) bool { return v.values[i] != 0 }

// SetBool sets value i.
func (v *Vector) SetBool(i int, b bool) {
	if b {
		v.values[i] = 1
	} else {
		v.values[i] = 0
	}
}

// Int returns value i.
func (v *Vector) Int(i int) int64 { return v.values[i] }

// SetInt sets value i. Range violations surface on Serialize.
func (v *Vector) SetInt(i int, n int64) { v.values[i] = n }

// Serialize packs the vector into buf.
func (v *Vector) Serialize(buf []byte) error {
	return v.layout.Serialize(v.values, buf)
}

// Deserialize restores the vector from buf.
func (v *Vector) Deserialize(buf []byte) {
	v.layout.Deserialize(buf, v.values)
}
