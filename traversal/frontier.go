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
	"sync"

	"github.com/jazzpetri/faultcheck/transition"
)

// frontier is the work list of states that still have to be expanded. It
// detects quiescence: once every worker waits on an empty frontier the
// traversal is complete.
type frontier struct {
	mu       sync.Mutex
	cond     *sync.Cond
	items    []int32
	workers  int
	capacity int
	idle     int
	done     bool
}

// newFrontier creates a frontier holding at most capacity states. Zero
// means unbounded.
func newFrontier(workers, capacity int) *frontier {
	f := &frontier{workers: workers, capacity: capacity}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// push adds states to expand.
func (f *frontier) push(states ...int32) error {
	if len(states) == 0 {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.done {
		return nil
	}
	if f.capacity > 0 && len(f.items)+len(states) > f.capacity {
		return &transition.CapacityError{Resource: "frontier states", Capacity: f.capacity, Hint: stackHint}
	}
	f.items = append(f.items, states...)
	if len(states) == 1 {
		f.cond.Signal()
	} else {
		f.cond.Broadcast()
	}
	return nil
}

// pop moves up to cap(batch) states into batch. It blocks while the
// frontier is empty and returns an empty batch once the traversal is
// complete or stopped. States are taken from the end, which expands the
// most recently found states first.
func (f *frontier) pop(batch []int32) []int32 {
	batch = batch[:0]
	f.mu.Lock()
	defer f.mu.Unlock()

	for len(f.items) == 0 && !f.done {
		f.idle++
		if f.idle == f.workers {
			f.done = true
			f.cond.Broadcast()
			return batch
		}
		f.cond.Wait()
		f.idle--
	}
	if f.done {
		return batch
	}

	n := min(cap(batch), len(f.items))
	batch = append(batch, f.items[len(f.items)-n:]...)
	f.items = f.items[:len(f.items)-n]
	return batch
}

// stop ends the traversal early. Waiting workers return immediately.
func (f *frontier) stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.done = true
	f.items = nil
	f.cond.Broadcast()
}

// len returns the number of queued states.
func (f *frontier) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}
