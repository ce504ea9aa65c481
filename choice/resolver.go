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

// Package choice resolves the nondeterministic and probabilistic choices a
// model makes while executing one step.
//
// A model never decides a branch on its own. It asks a Choice, which forwards
// to the Resolver injected by the analysis. Resolvers enumerate every
// combination of choices depth-first: the driver executes the same step once
// per path, and the resolver replays the prefix of the previous path while
// advancing the deepest choice that still has untried options.
//
// # Usage
//
//	r := choice.NewDepthFirstResolver(false)
//	r.PrepareNextState()
//	for {
//	    more, err := r.PrepareNextPath()
//	    if err != nil || !more {
//	        break
//	    }
//	    model.Deserialize(state)
//	    model.ExecuteStep() // calls Choice.Choose... internally
//	}
//
// Two resolvers exist. DepthFirstResolver only tracks chosen option indices
// (and path probabilities). StepGraphResolver additionally records the shape
// of the choices as a StepGraph, from which nested MDPs are built.
package choice

import (
	"errors"

	"github.com/jazzpetri/faultcheck/probability"
)

// ErrNondeterminism is returned when a model resolves a different number of
// choices than on the previous execution of the same path. This happens when
// the model makes decisions without going through its Choice.
var ErrNondeterminism = errors.New("model behaves nondeterministically: choices were not made through the resolver")

// Resolver enumerates all choice paths of one model step.
// Implementations are used by exactly one worker and are not safe for
// concurrent use.
type Resolver interface {
	// PrepareNextState must be called before the paths of a new state are
	// enumerated.
	PrepareNextState()

	// PrepareNextPath advances to the next untried path.
	// Returns false once all paths of the current state have been enumerated.
	PrepareNextPath() (bool, error)

	// HandleChoice resolves a nondeterministic choice among valueCount options
	// and returns the index of the chosen option.
	HandleChoice(valueCount int) int

	// HandleProbabilisticChoice resolves a probabilistic choice among
	// valueCount options. The caller reports the probability of the chosen
	// option with SetProbabilityOfLastChoice.
	HandleProbabilisticChoice(valueCount int) int

	// SetProbabilityOfLastChoice records the probability of the option that
	// was chosen by the most recent choice.
	SetProbabilityOfLastChoice(p probability.Probability)

	// LastChoiceIndex returns the position of the most recent choice on the
	// current path.
	LastChoiceIndex() int

	// ForwardUntakenChoicesAtIndex makes the choice at the given position
	// deterministic: its untaken options are never explored.
	// Only effective when UseForwardOptimization is true.
	ForwardUntakenChoicesAtIndex(choiceIndex int)

	// UseForwardOptimization reports whether undone fault activations may
	// prune untaken options.
	UseForwardOptimization() bool

	// SetChoices replays a fixed path. Used for counter-example replay.
	SetChoices(choices []int)

	// Choices returns the option indices of the current path.
	Choices() []int

	// Clear resets the resolver.
	Clear()
}
