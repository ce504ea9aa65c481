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

import "github.com/jazzpetri/faultcheck/probability"

const initialCapacity = 64

type chosenValue struct {
	option      int
	probability float64
}

// DepthFirstResolver enumerates choice paths depth-first.
// For every chosen option it also stores a probability, so the probability of
// the current path is available through PathProbability. Nondeterministic
// choices use the uniform placeholder 1/n.
type DepthFirstResolver struct {
	chosen      []chosenValue
	valueCounts []int
	choiceIndex int
	firstPath   bool
	forward     bool
}

// NewDepthFirstResolver creates a resolver.
// useForwardOptimization enables ForwardUntakenChoicesAtIndex.
func NewDepthFirstResolver(useForwardOptimization bool) *DepthFirstResolver {
	return &DepthFirstResolver{
		chosen:      make([]chosenValue, 0, initialCapacity),
		valueCounts: make([]int, 0, initialCapacity),
		choiceIndex: -1,
		forward:     useForwardOptimization,
	}
}

// PrepareNextState implements Resolver.
func (r *DepthFirstResolver) PrepareNextState() {
	r.firstPath = true
}

// PrepareNextPath implements Resolver.
func (r *DepthFirstResolver) PrepareNextPath() (bool, error) {
	if r.choiceIndex != len(r.valueCounts)-1 {
		return false, ErrNondeterminism
	}
	r.choiceIndex = -1

	if r.firstPath {
		r.firstPath = false
		return true, nil
	}

	for len(r.chosen) > 0 {
		last := r.chosen[len(r.chosen)-1]
		r.chosen = r.chosen[:len(r.chosen)-1]

		if r.valueCounts[len(r.valueCounts)-1] > last.option+1 {
			// probability is a placeholder until the model reports it
			r.chosen = append(r.chosen, chosenValue{option: last.option + 1, probability: last.probability})
			return true, nil
		}
		r.valueCounts = r.valueCounts[:len(r.valueCounts)-1]
	}
	return false, nil
}

// HandleChoice implements Resolver.
func (r *DepthFirstResolver) HandleChoice(valueCount int) int {
	r.choiceIndex++
	if r.choiceIndex < len(r.chosen) {
		return r.chosen[r.choiceIndex].option
	}

	r.valueCounts = append(r.valueCounts, valueCount)
	r.chosen = append(r.chosen, chosenValue{option: 0, probability: 1 / float64(valueCount)})
	return 0
}

// HandleProbabilisticChoice implements Resolver.
func (r *DepthFirstResolver) HandleProbabilisticChoice(valueCount int) int {
	return r.HandleChoice(valueCount)
}

// SetProbabilityOfLastChoice implements Resolver.
func (r *DepthFirstResolver) SetProbabilityOfLastChoice(p probability.Probability) {
	if r.choiceIndex == len(r.chosen)-1 && r.choiceIndex >= 0 {
		r.chosen[r.choiceIndex].probability = p.Value()
	}
}

// LastChoiceIndex implements Resolver.
func (r *DepthFirstResolver) LastChoiceIndex() int {
	return r.choiceIndex
}

// ForwardUntakenChoicesAtIndex implements Resolver.
// The first option must be the current one; the remaining options of that
// choice are dropped and the chosen option becomes certain.
func (r *DepthFirstResolver) ForwardUntakenChoicesAtIndex(choiceIndex int) {
	if !r.forward || choiceIndex < 0 || choiceIndex >= len(r.chosen) {
		return
	}
	if r.chosen[choiceIndex].option != 0 {
		return
	}
	r.valueCounts[choiceIndex] = 0
	r.chosen[choiceIndex].probability = 1
}

// UseForwardOptimization implements Resolver.
func (r *DepthFirstResolver) UseForwardOptimization() bool {
	return r.forward
}

// SetChoices implements Resolver.
func (r *DepthFirstResolver) SetChoices(choices []int) {
	for _, c := range choices {
		r.chosen = append(r.chosen, chosenValue{option: c, probability: 1})
		r.valueCounts = append(r.valueCounts, 0)
	}
}

// Choices implements Resolver.
func (r *DepthFirstResolver) Choices() []int {
	out := make([]int, len(r.chosen))
	for i, c := range r.chosen {
		out[i] = c.option
	}
	return out
}

// PathProbability returns the product of the probabilities of all options
// on the current path.
func (r *DepthFirstResolver) PathProbability() float64 {
	p := 1.0
	for _, c := range r.chosen {
		p *= c.probability
	}
	return p
}

// Clear implements Resolver.
func (r *DepthFirstResolver) Clear() {
	r.chosen = r.chosen[:0]
	r.valueCounts = r.valueCounts[:0]
	r.choiceIndex = -1
}
