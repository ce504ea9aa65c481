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

// Package clock abstracts time for the analyses.
//
// Traversals, checkers and simulations measure their elapsed time and emit
// periodic progress reports through a Clock. Production code uses
// RealTimeClock; tests use VirtualClock, whose time only moves when the test
// advances it, so that progress reports and durations are deterministic.
//
//	clk := clock.NewVirtualClock(start)
//	tick := clk.After(time.Second)
//	clk.AdvanceBy(2 * time.Second)
//	<-tick // fires immediately
package clock

import "time"

// Clock is a source of time. Implementations are safe for concurrent use.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Since returns the time elapsed since t.
	Since(t time.Time) time.Duration

	// After returns a channel that receives the current time once d has
	// elapsed. The channel is buffered and receives exactly once.
	After(d time.Duration) <-chan time.Time
}
