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

package choice

import (
	"fmt"

	"github.com/jazzpetri/faultcheck/probability"
)

// Option is a value chosen with a given probability.
type Option[T any] struct {
	Probability probability.Probability
	Value       T
}

// NewOption creates an option.
func NewOption[T any](p probability.Probability, value T) Option[T] {
	return Option[T]{Probability: p, Value: value}
}

// WeightedResolver is implemented by resolvers that pick one probabilistic
// option by its probability instead of enumerating all of them.
type WeightedResolver interface {
	Resolver

	// HandleWeightedChoice returns the index of the chosen option.
	HandleWeightedChoice(probabilities []probability.Probability) int
}

// Choice is the model-side entry point for branching.
// The analysis sets Resolver before the model executes.
type Choice struct {
	Resolver Resolver
}

func (c *Choice) resolver() Resolver {
	if c.Resolver == nil {
		panic("choice: no resolver attached to model")
	}
	return c.Resolver
}

// ChooseIndex chooses an index in [0, n). Returns -1 for n == 0.
// A single option is chosen without consulting the resolver.
func (c *Choice) ChooseIndex(n int) int {
	switch n {
	case 0:
		return -1
	case 1:
		return 0
	default:
		return c.resolver().HandleChoice(n)
	}
}

// ChooseFromRange chooses a value in [lower, upper].
func (c *Choice) ChooseFromRange(lower, upper int) int {
	if upper < lower {
		panic(fmt.Sprintf("choice: empty range [%d, %d]", lower, upper))
	}
	return lower + c.ChooseIndex(upper-lower+1)
}

// ChooseBool chooses between false and true.
func (c *Choice) ChooseBool() bool {
	return c.ChooseIndex(2) == 1
}

// Choose nondeterministically chooses one of values.
func Choose[T any](c *Choice, values ...T) T {
	idx := c.ChooseIndex(len(values))
	if idx < 0 {
		panic("choice: at least one value is required")
	}
	return values[idx]
}

// ChooseWithProbability chooses one of the options; the probability of the
// chosen option is reported to the resolver.
func ChooseWithProbability[T any](c *Choice, options ...Option[T]) T {
	switch len(options) {
	case 0:
		panic("choice: at least one option is required")
	case 1:
		return options[0].Value
	}

	r := c.resolver()
	var idx int
	if w, ok := r.(WeightedResolver); ok {
		ps := make([]probability.Probability, len(options))
		for i, o := range options {
			ps[i] = o.Probability
		}
		idx = w.HandleWeightedChoice(ps)
	} else {
		idx = r.HandleProbabilisticChoice(len(options))
	}
	r.SetProbabilityOfLastChoice(options[idx].Probability)
	return options[idx].Value
}
