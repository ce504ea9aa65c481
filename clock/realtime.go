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

import "time"

// RealTimeClock is the production Clock. Every method delegates to the
// time package.
//
// RealTimeClock keeps no state and is safe for concurrent use.
//
// Example:
//
//	c := clock.NewRealTimeClock()
//	start := c.Now()
//	runExploration()
//	elapsed := c.Since(start)
type RealTimeClock struct{}

// NewRealTimeClock creates a wall-clock time source.
func NewRealTimeClock() *RealTimeClock {
	return &RealTimeClock{}
}

// Now returns time.Now().
func (r *RealTimeClock) Now() time.Time {
	return time.Now()
}

// Since returns time.Since(t).
func (r *RealTimeClock) Since(t time.Time) time.Duration {
	return time.Since(t)
}

// After returns time.After(d).
func (r *RealTimeClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}
