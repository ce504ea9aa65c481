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

package clock

import (
	"sync"
	"time"
)

// VirtualClock is a Clock whose time only advances through AdvanceTo and
// AdvanceBy. Pending timers fire when the time passes their deadline.
type VirtualClock struct {
	mu      sync.RWMutex
	current time.Time
	timers  []*virtualTimer
}

type virtualTimer struct {
	deadline time.Time
	ch       chan time.Time
}

// NewVirtualClock creates a virtual clock starting at start.
func NewVirtualClock(start time.Time) *VirtualClock {
	return &VirtualClock{current: start}
}

// Now returns the virtual time.
func (v *VirtualClock) Now() time.Time {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.current
}

// Since returns the virtual time elapsed since t.
func (v *VirtualClock) Since(t time.Time) time.Duration {
	return v.Now().Sub(t)
}

// After returns a channel that fires once the virtual time reaches now + d.
// A non-positive d fires immediately.
func (v *VirtualClock) After(d time.Duration) <-chan time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()

	t := &virtualTimer{deadline: v.current.Add(d), ch: make(chan time.Time, 1)}
	if d <= 0 {
		t.ch <- v.current
		return t.ch
	}
	v.timers = append(v.timers, t)
	return t.ch
}

// AdvanceTo moves the clock to target and fires every timer that is due.
// The clock never moves backwards.
func (v *VirtualClock) AdvanceTo(target time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !target.After(v.current) {
		return
	}
	v.current = target
	v.fire()
}

// AdvanceBy moves the clock forward by d.
func (v *VirtualClock) AdvanceBy(d time.Duration) {
	if d <= 0 {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	v.current = v.current.Add(d)
	v.fire()
}

// fire must be called with mu held.
func (v *VirtualClock) fire() {
	pending := v.timers[:0]
	for _, t := range v.timers {
		if t.deadline.After(v.current) {
			pending = append(pending, t)
			continue
		}
		t.ch <- v.current
	}
	clear(v.timers[len(pending):])
	v.timers = pending
}

// PendingTimers returns the number of timers that have not fired yet.
func (v *VirtualClock) PendingTimers() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.timers)
}
