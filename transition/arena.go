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
	"fmt"
)

// ErrOutOfMemory is the root of every capacity error. Capacities never grow
// during a run; the analysis has to be restarted with a larger configuration.
var ErrOutOfMemory = errors.New("out of memory")

// CapacityError reports which fixed capacity was exhausted.
type CapacityError struct {
	// Resource names the exhausted buffer, e.g. "successor states".
	Resource string

	// Capacity is the configured size of the buffer.
	Capacity int

	// Hint names the configuration value to increase.
	Hint string
}

func (e *CapacityError) Error() string {
	msg := fmt.Sprintf("%v: capacity of %d %s exceeded", ErrOutOfMemory, e.Capacity, e.Resource)
	if e.Hint != "" {
		msg += "; increase " + e.Hint
	}
	return msg
}

// Unwrap returns ErrOutOfMemory.
func (e *CapacityError) Unwrap() error {
	return ErrOutOfMemory
}

// Arena stores a bounded number of fixed-size byte slots.
// Slots are addressed by index and released all at once by Reset.
type Arena struct {
	slotSize int
	capacity int
	data     []byte
	count    int
	hint     string
}

// NewArena creates an arena of capacity slots of slotSize bytes each.
// hint names the configuration value that controls capacity and is reported
// when the arena is full.
func NewArena(slotSize, capacity int, hint string) *Arena {
	return &Arena{
		slotSize: slotSize,
		capacity: capacity,
		data:     make([]byte, slotSize*capacity),
		hint:     hint,
	}
}

// Allocate reserves the next slot.
func (a *Arena) Allocate() (int, error) {
	if a.count >= a.capacity {
		return 0, &CapacityError{Resource: "successor states", Capacity: a.capacity, Hint: a.hint}
	}
	a.count++
	return a.count - 1, nil
}

// Release returns the most recently allocated slot.
func (a *Arena) Release() {
	if a.count > 0 {
		a.count--
	}
}

// Slot returns the bytes of slot i.
func (a *Arena) Slot(i int) []byte {
	return a.data[i*a.slotSize : (i+1)*a.slotSize : (i+1)*a.slotSize]
}

// Reset releases every slot.
func (a *Arena) Reset() {
	a.count = 0
}

// Len returns the number of allocated slots.
func (a *Arena) Len() int {
	return a.count
}

// Cap returns the capacity in slots.
func (a *Arena) Cap() int {
	return a.capacity
}

// SlotSize returns the size of a slot in bytes.
func (a *Arena) SlotSize() int {
	return a.slotSize
}
