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

package executed

import (
	"bytes"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/jazzpetri/faultcheck/transition"
)

const (
	// ProbeThreshold bounds the number of slots probed for one state.
	ProbeThreshold = 1000

	// MaxCapacity is the largest supported successor capacity.
	MaxCapacity = 1 << 30

	empty = -1
)

// StateTable is an open-addressed hash table of the successor states of one
// step. Each occupied slot stores a copy of the state and an int32 value
// owned by the caller. Clear only resets the slots used since the last
// Clear.
type StateTable struct {
	capacity  int
	stateSize int
	values    []int32
	states    []byte
	touched   []int32
}

// NewStateTable creates a table for capacity states of stateSize bytes.
func NewStateTable(capacity, stateSize int) (*StateTable, error) {
	if capacity <= 0 || capacity > MaxCapacity {
		return nil, fmt.Errorf("successor capacity must be in [1, %d], got %d", MaxCapacity, capacity)
	}

	t := &StateTable{
		capacity:  capacity,
		stateSize: stateSize,
		values:    make([]int32, capacity),
		states:    make([]byte, capacity*stateSize),
		touched:   make([]int32, 0, 64),
	}
	for i := range t.values {
		t.values[i] = empty
	}
	return t, nil
}

func (t *StateTable) probe(hash uint64, i int) int {
	// double hashing; the step is odd so it is never zero
	step := (hash >> 33) | 1
	return int((hash + uint64(i)*step) % uint64(t.capacity))
}

// Find returns the slot of state. If the state is not yet stored it is
// copied into a free slot and found is false.
func (t *StateTable) Find(state []byte) (slot int, found bool, err error) {
	hash := xxhash.Sum64(state)
	for i := 0; i < ProbeThreshold; i++ {
		slot = t.probe(hash, i)
		stored := t.states[slot*t.stateSize : (slot+1)*t.stateSize]

		if t.values[slot] == empty {
			copy(stored, state)
			t.touched = append(t.touched, int32(slot))
			return slot, false, nil
		}
		if bytes.Equal(stored, state) {
			return slot, true, nil
		}
	}
	return 0, false, &transition.CapacityError{
		Resource: "hash table slots (probe threshold reached)",
		Capacity: t.capacity,
		Hint:     "the successor capacity",
	}
}

// Value returns the value of an occupied slot.
func (t *StateTable) Value(slot int) int32 {
	return t.values[slot]
}

// SetValue sets the value of a slot. Values must not be negative.
func (t *StateTable) SetValue(slot int, v int32) {
	t.values[slot] = v
}

// Len returns the number of slots used since the last Clear.
func (t *StateTable) Len() int {
	return len(t.touched)
}

// Clear empties the table.
func (t *StateTable) Clear() {
	for _, slot := range t.touched {
		t.values[slot] = empty
	}
	t.touched = t.touched[:0]
}
