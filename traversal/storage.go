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

package traversal

import (
	"bytes"
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/jazzpetri/faultcheck/transition"
)

const (
	// ProbeThreshold bounds the number of slots probed for one state.
	ProbeThreshold = 1000

	// MaxStateCapacity is the largest supported number of states.
	MaxStateCapacity = 1 << 30

	chunkStates = 1 << 12

	slotEmpty    = 0
	slotReserved = -1
)

// StateStorage maps serialized states to dense indices. It is safe for
// concurrent use without locks: the first goroutine that inserts a state
// assigns its index, every other one finds it.
type StateStorage struct {
	stateSize int
	capacity  int

	// slots hold index+1 of the stored state, slotEmpty or slotReserved
	slots  []atomic.Int64
	chunks []atomic.Pointer[[]byte]
	count  atomic.Int64
}

// NewStateStorage creates a storage for at most capacity states of
// stateSize bytes. Memory for the states is allocated in chunks on demand.
func NewStateStorage(stateSize, capacity int) (*StateStorage, error) {
	if capacity <= 0 || capacity > MaxStateCapacity {
		return nil, fmt.Errorf("state capacity must be in [1, %d], got %d", MaxStateCapacity, capacity)
	}
	if stateSize <= 0 {
		return nil, fmt.Errorf("state vector size must be positive, got %d", stateSize)
	}
	return &StateStorage{
		stateSize: stateSize,
		capacity:  capacity,
		slots:     make([]atomic.Int64, 2*capacity),
		chunks:    make([]atomic.Pointer[[]byte], (capacity+chunkStates-1)/chunkStates),
	}, nil
}

// Len returns the number of stored states.
func (s *StateStorage) Len() int {
	return int(min(s.count.Load(), int64(s.capacity)))
}

// Capacity returns the maximum number of states.
func (s *StateStorage) Capacity() int {
	return s.capacity
}

// StateSize returns the size of one state in bytes.
func (s *StateStorage) StateSize() int {
	return s.stateSize
}

// Get returns the state with the given index. The slice must not be
// modified.
func (s *StateStorage) Get(index int) []byte {
	chunk := *s.chunks[index/chunkStates].Load()
	offset := (index % chunkStates) * s.stateSize
	return chunk[offset : offset+s.stateSize : offset+s.stateSize]
}

func (s *StateStorage) chunk(i int) []byte {
	if c := s.chunks[i].Load(); c != nil {
		return *c
	}
	fresh := make([]byte, chunkStates*s.stateSize)
	if s.chunks[i].CompareAndSwap(nil, &fresh) {
		return fresh
	}
	return *s.chunks[i].Load()
}

// AddOrGet returns the index of state and whether this call stored it.
func (s *StateStorage) AddOrGet(state []byte) (index int, added bool, err error) {
	hash := xxhash.Sum64(state)
	step := (hash >> 33) | 1
	n := uint64(len(s.slots))

	for i := uint64(0); i < ProbeThreshold; i++ {
		slot := &s.slots[(hash+i*step)%n]

		v := slot.Load()
		if v == slotEmpty {
			if !slot.CompareAndSwap(slotEmpty, slotReserved) {
				v = slot.Load()
			} else {
				return s.store(slot, state)
			}
		}
		for v == slotReserved {
			runtime.Gosched()
			v = slot.Load()
		}
		if v == slotEmpty {
			// the reservation was rolled back after a capacity error
			i--
			continue
		}
		if bytes.Equal(s.Get(int(v-1)), state) {
			return int(v - 1), false, nil
		}
	}
	return 0, false, &transition.CapacityError{
		Resource: "state slots (probe threshold reached)",
		Capacity: s.capacity,
		Hint:     capacityHint,
	}
}

func (s *StateStorage) store(slot *atomic.Int64, state []byte) (int, bool, error) {
	index := s.count.Add(1) - 1
	if index >= int64(s.capacity) {
		slot.Store(slotEmpty)
		return 0, false, &transition.CapacityError{Resource: "states", Capacity: s.capacity, Hint: capacityHint}
	}

	chunk := s.chunk(int(index) / chunkStates)
	offset := (int(index) % chunkStates) * s.stateSize
	copy(chunk[offset:offset+s.stateSize], state)
	slot.Store(index + 1)
	return int(index), true, nil
}
