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

package faults

import (
	"fmt"
	"iter"
	"math/bits"
	"strings"
)

// MaxFaults is the number of faults a FaultSet can hold.
const MaxFaults = 63

// FaultSet is an immutable set of fault identifiers backed by a single word.
// All operations are O(1) and return new values.
type FaultSet struct {
	bits uint64
}

// EmptySet contains no faults.
var EmptySet = FaultSet{}

// CheckFaultCount panics if count faults cannot be represented by a FaultSet.
func CheckFaultCount(count int) {
	if count > MaxFaults {
		panic(fmt.Sprintf("faults: more than %d faults are not supported (got %d)", MaxFaults, count))
	}
}

// NewFaultSet creates a set containing the given faults.
func NewFaultSet(faults ...*Fault) FaultSet {
	var s FaultSet
	for _, f := range faults {
		s = s.Add(f)
	}
	return s
}

// FromBits creates a set from its raw representation.
func FromBits(b uint64) FaultSet {
	return FaultSet{bits: b}
}

// FromActivatedFaults returns the set of faults in faults that are currently
// activated.
func FromActivatedFaults(faults []*Fault) FaultSet {
	var s FaultSet
	for _, f := range faults {
		if f.IsActivated() {
			s = s.Add(f)
		}
	}
	return s
}

// Bits returns the raw representation.
func (s FaultSet) Bits() uint64 {
	return s.bits
}

func mask(f *Fault) uint64 {
	if f.Identifier < 0 || f.Identifier >= MaxFaults {
		panic(fmt.Sprintf("faults: fault %q has invalid identifier %d", f.Name, f.Identifier))
	}
	return 1 << uint(f.Identifier)
}

// Union returns s ∪ o.
func (s FaultSet) Union(o FaultSet) FaultSet {
	return FaultSet{bits: s.bits | o.bits}
}

// Intersection returns s ∩ o.
func (s FaultSet) Intersection(o FaultSet) FaultSet {
	return FaultSet{bits: s.bits & o.bits}
}

// Difference returns s \ o.
func (s FaultSet) Difference(o FaultSet) FaultSet {
	return FaultSet{bits: s.bits &^ o.bits}
}

// Add returns s ∪ {f}.
func (s FaultSet) Add(f *Fault) FaultSet {
	return FaultSet{bits: s.bits | mask(f)}
}

// Remove returns s \ {f}.
func (s FaultSet) Remove(f *Fault) FaultSet {
	return FaultSet{bits: s.bits &^ mask(f)}
}

// Contains reports whether f is in s.
func (s FaultSet) Contains(f *Fault) bool {
	return s.bits&mask(f) != 0
}

// ContainsID reports whether the fault with the given identifier is in s.
func (s FaultSet) ContainsID(id int) bool {
	return id >= 0 && id < MaxFaults && s.bits&(1<<uint(id)) != 0
}

// IsSubsetOf reports whether s ⊆ o.
func (s FaultSet) IsSubsetOf(o FaultSet) bool {
	return s.bits&o.bits == s.bits
}

// IsEmpty reports whether s contains no faults.
func (s FaultSet) IsEmpty() bool {
	return s.bits == 0
}

// Cardinality returns the number of faults in s.
func (s FaultSet) Cardinality() int {
	return bits.OnesCount64(s.bits)
}

// ToFaultSequence yields the faults of all that are in s, in ascending
// identifier order. The sequence can be iterated any number of times.
func (s FaultSet) ToFaultSequence(all []*Fault) iter.Seq[*Fault] {
	return func(yield func(*Fault) bool) {
		byID := make(map[int]*Fault, len(all))
		for _, f := range all {
			byID[f.Identifier] = f
		}
		for rest := s.bits; rest != 0; rest &= rest - 1 {
			id := bits.TrailingZeros64(rest)
			f, ok := byID[id]
			if !ok {
				continue
			}
			if !yield(f) {
				return
			}
		}
	}
}

// SubsumedFaults returns s extended by every fault subsumed by a fault in s.
func SubsumedFaults(s FaultSet, all []*Fault) FaultSet {
	result := s
	for f := range s.ToFaultSequence(all) {
		result = result.Union(f.SubsumedFaultSet())
	}
	return result
}

// SubsumingFaults returns s extended by every fault that subsumes a fault in
// the result, iterated to a fixed point.
func SubsumingFaults(s FaultSet, all []*Fault) FaultSet {
	result := s
	for {
		before := result.Cardinality()
		for _, f := range all {
			if !f.SubsumedFaultSet().Intersection(result).IsEmpty() {
				result = result.Add(f)
			}
		}
		if result.Cardinality() == before {
			return result
		}
	}
}

// String lists the identifiers in s, e.g. "{0, 3}".
func (s FaultSet) String() string {
	var parts []string
	for rest := s.bits; rest != 0; rest &= rest - 1 {
		parts = append(parts, fmt.Sprint(bits.TrailingZeros64(rest)))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
