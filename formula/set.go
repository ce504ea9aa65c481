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

package formula

import (
	"fmt"
	"strings"
)

// MaxStateFormulas is the number of formulas a StateFormulaSet can hold.
const MaxStateFormulas = 31

// StateFormulaSet records which state formulas hold in a state.
// Bit i is set if formula i holds.
type StateFormulaSet struct {
	bits uint32
}

// CheckFormulaCount panics if count formulas cannot be represented by a
// StateFormulaSet.
func CheckFormulaCount(count int) {
	if count > MaxStateFormulas {
		panic(fmt.Sprintf("formula: more than %d state formulas are not supported (got %d)", MaxStateFormulas, count))
	}
}

// NewStateFormulaSet creates a set from explicit truth values.
func NewStateFormulaSet(values []bool) StateFormulaSet {
	CheckFormulaCount(len(values))
	var s StateFormulaSet
	for i, v := range values {
		if v {
			s.bits |= 1 << uint(i)
		}
	}
	return s
}

// Evaluate evaluates predicates in order and returns the resulting set.
func Evaluate(predicates []func() bool) StateFormulaSet {
	var s StateFormulaSet
	for i, p := range predicates {
		if p() {
			s.bits |= 1 << uint(i)
		}
	}
	return s
}

// StateFormulaSetFromBits creates a set from its raw representation.
func StateFormulaSetFromBits(b uint32) StateFormulaSet {
	return StateFormulaSet{bits: b}
}

// Get reports whether formula i holds.
func (s StateFormulaSet) Get(i int) bool {
	return i >= 0 && i < MaxStateFormulas && s.bits&(1<<uint(i)) != 0
}

// Bits returns the raw representation.
func (s StateFormulaSet) Bits() uint32 {
	return s.bits
}

// String lists the indices of the formulas that hold.
func (s StateFormulaSet) String() string {
	var parts []string
	for i := 0; i < MaxStateFormulas; i++ {
		if s.Get(i) {
			parts = append(parts, fmt.Sprint(i))
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
