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

package verification

import (
	"fmt"
	"strings"
	"time"

	"github.com/jazzpetri/faultcheck/counterexample"
	"github.com/jazzpetri/faultcheck/faults"
)

// VerificationResult contains the outcome of verifying a single safety property.
// An unsatisfied result includes a witness path that demonstrates the violation.
type VerificationResult struct {
	// Property is the name of the property that was checked
	Property string

	// Satisfied is true if the property holds for all explored states
	Satisfied bool

	// Message provides a human-readable explanation of the result
	Message string

	// Witness is the state sequence from an initial state to the violating
	// state (for unsatisfied properties) or the target state (for
	// reachability witnesses).
	Witness []int

	// FaultSets are the minimal sets of faults under which the property is
	// violated. Only collected with Options.CollectFaultSets.
	FaultSets []faults.FaultSet

	// CounterExample replays the witness. Only generated with
	// Options.GenerateCounterExample.
	CounterExample *counterexample.CounterExample

	// StatesChecked is the number of states that were examined during verification
	StatesChecked int
}

// ProofCertificate contains the verification results for a model.
//
// A certificate with AllSatisfied() == true and Complete == true proves that
// the model satisfies all checked safety properties.
type ProofCertificate struct {
	// Properties contains the results of each individual property check
	Properties []VerificationResult

	// StateCount is the number of states that were explored
	StateCount int

	// TransitionCount is the number of stored activation-minimal transitions
	TransitionCount int

	// ComputedTransitionCount is the number of transitions computed before
	// the activation-minimal reduction
	ComputedTransitionCount int

	// Complete is true if every reachable state was explored
	Complete bool

	// DeadlockFree is false if a deadlock property was violated
	DeadlockFree bool

	// Exception is the model failure that ended the exploration, if any
	Exception error

	// CounterExample leads to the failing step of Exception
	CounterExample *counterexample.CounterExample

	Elapsed time.Duration
}

// AllSatisfied returns true if all properties in the certificate are
// satisfied and the model never failed.
// A certificate with no properties returns true (vacuously true).
func (pc *ProofCertificate) AllSatisfied() bool {
	if pc.Exception != nil {
		return false
	}
	for _, r := range pc.Properties {
		if !r.Satisfied {
			return false
		}
	}
	return true
}

// String summarizes the certificate, one property per line. Fault sets
// are left out since their names depend on the model.
func (pc *ProofCertificate) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d states, %d transitions (%d computed)", pc.StateCount, pc.TransitionCount, pc.ComputedTransitionCount)
	if !pc.Complete {
		b.WriteString(", incomplete")
	}
	b.WriteString("\n")
	if pc.Exception != nil {
		fmt.Fprintf(&b, "model failed: %v\n", pc.Exception)
	}
	for _, r := range pc.Properties {
		status := "satisfied"
		if !r.Satisfied {
			status = "VIOLATED"
		}
		fmt.Fprintf(&b, "%s: %s: %s\n", r.Property, status, r.Message)
	}
	return b.String()
}
