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

package simulation

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/jazzpetri/faultcheck/choice"
	"github.com/jazzpetri/faultcheck/probability"
)

// RandomResolver resolves every choice of a step once at random.
// Probabilistic choices follow their probabilities, nondeterministic
// choices and faults without a probability are uniform.
type RandomResolver struct {
	rng         *rand.Rand
	src         rand.Source
	chosen      []int
	probability float64
	pending     bool
}

var _ choice.WeightedResolver = (*RandomResolver)(nil)

// NewRandomResolver creates a resolver drawing from src.
func NewRandomResolver(src rand.Source) *RandomResolver {
	return &RandomResolver{rng: rand.New(src), src: src, probability: 1}
}

// PrepareNextState implements choice.Resolver.
func (r *RandomResolver) PrepareNextState() {
	r.pending = true
}

// PrepareNextPath implements choice.Resolver. There is exactly one path per
// state.
func (r *RandomResolver) PrepareNextPath() (bool, error) {
	if !r.pending {
		return false, nil
	}
	r.pending = false
	r.chosen = r.chosen[:0]
	r.probability = 1
	return true, nil
}

// HandleChoice implements choice.Resolver.
func (r *RandomResolver) HandleChoice(valueCount int) int {
	c := r.rng.IntN(valueCount)
	r.chosen = append(r.chosen, c)
	r.probability /= float64(valueCount)
	return c
}

// HandleProbabilisticChoice implements choice.Resolver. It is only used
// when the probabilities are unknown.
func (r *RandomResolver) HandleProbabilisticChoice(valueCount int) int {
	return r.HandleChoice(valueCount)
}

// HandleWeightedChoice implements choice.WeightedResolver.
func (r *RandomResolver) HandleWeightedChoice(probabilities []probability.Probability) int {
	weights := make([]float64, len(probabilities))
	for i, p := range probabilities {
		weights[i] = p.Value()
	}
	c := int(distuv.NewCategorical(weights, r.src).Rand())
	r.chosen = append(r.chosen, c)
	return c
}

// SetProbabilityOfLastChoice implements choice.Resolver.
func (r *RandomResolver) SetProbabilityOfLastChoice(p probability.Probability) {
	r.probability *= p.Value()
}

// LastChoiceIndex implements choice.Resolver.
func (r *RandomResolver) LastChoiceIndex() int {
	return len(r.chosen) - 1
}

// ForwardUntakenChoicesAtIndex implements choice.Resolver. Untaken options
// are never explored, so there is nothing to prune.
func (r *RandomResolver) ForwardUntakenChoicesAtIndex(int) {}

// UseForwardOptimization implements choice.Resolver.
func (r *RandomResolver) UseForwardOptimization() bool {
	return false
}

// SetChoices implements choice.Resolver. Random paths cannot be replayed.
func (r *RandomResolver) SetChoices([]int) {}

// Choices implements choice.Resolver.
func (r *RandomResolver) Choices() []int {
	return append([]int(nil), r.chosen...)
}

// PathProbability returns the probability of the choices of the current
// step.
func (r *RandomResolver) PathProbability() float64 {
	return r.probability
}

// Clear implements choice.Resolver.
func (r *RandomResolver) Clear() {
	r.chosen = r.chosen[:0]
	r.probability = 1
	r.pending = false
}
