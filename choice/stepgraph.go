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

// ChoiceType classifies the split below a continuation.
type ChoiceType uint8

const (
	// Leaf continuations end a path. They may carry a transition.
	Leaf ChoiceType = iota

	// Nondeterministic splits are resolved by a scheduler.
	Nondeterministic

	// Probabilistic splits are resolved by chance.
	Probabilistic

	// Forward continues with the subtree of node To. It stands for the
	// untaken options of an undone fault activation.
	Forward
)

// String returns the name of the choice type.
func (t ChoiceType) String() string {
	switch t {
	case Leaf:
		return "leaf"
	case Nondeterministic:
		return "nondeterministic"
	case Probabilistic:
		return "probabilistic"
	case Forward:
		return "forward"
	default:
		return fmt.Sprintf("ChoiceType(%d)", uint8(t))
	}
}

// NoTransition marks a leaf whose path did not produce a transition, e.g.
// because a state constraint was violated.
const NoTransition = -1

// Continuation is a node of a StepGraph.
type Continuation struct {
	// Type of the split below this node.
	Type ChoiceType

	// From and To delimit the child continuation ids (inclusive) of a
	// split. A forward node only uses To.
	From, To int

	// Probability of this node given its parent. Children of a
	// nondeterministic split have probability 1.
	Probability float64

	// Transition is the index of the transition produced by the path ending
	// here, or NoTransition.
	Transition int
}

// StepGraph is the tree of choices made while executing one step from one
// state. Continuation 0 is the root. Child ids of a split are contiguous.
type StepGraph struct {
	nodes []Continuation
}

// NewStepGraph creates a step graph containing only the root.
func NewStepGraph() *StepGraph {
	g := &StepGraph{nodes: make([]Continuation, 0, initialCapacity)}
	g.Reset()
	return g
}

// Reset discards all continuations except a fresh root.
func (g *StepGraph) Reset() {
	g.nodes = append(g.nodes[:0], Continuation{Type: Leaf, Probability: 1, Transition: NoTransition})
}

// Len returns the number of allocated continuation ids.
func (g *StepGraph) Len() int {
	return len(g.nodes)
}

// Node returns the continuation with the given id.
func (g *StepGraph) Node(cid int) Continuation {
	return g.nodes[cid]
}

func (g *StepGraph) ensure(cid int) {
	for len(g.nodes) <= cid {
		g.nodes = append(g.nodes, Continuation{Type: Leaf, Probability: 1, Transition: NoTransition})
	}
}

func (g *StepGraph) split(t ChoiceType, parent, from, to int) {
	g.ensure(to)
	g.nodes[parent].Type = t
	g.nodes[parent].From = from
	g.nodes[parent].To = to
}

// NondeterministicSplit turns parent into a nondeterministic split over the
// continuations from..to.
func (g *StepGraph) NondeterministicSplit(parent, from, to int) {
	g.split(Nondeterministic, parent, from, to)
}

// ProbabilisticSplit turns parent into a probabilistic split over the
// continuations from..to.
func (g *StepGraph) ProbabilisticSplit(parent, from, to int) {
	g.split(Probabilistic, parent, from, to)
}

// SetProbability sets the probability of a continuation given its parent.
func (g *StepGraph) SetProbability(cid int, p float64) {
	g.ensure(cid)
	g.nodes[cid].Probability = p
}

// SetTransition attaches a transition index to a leaf continuation.
func (g *StepGraph) SetTransition(cid, transition int) {
	g.ensure(cid)
	g.nodes[cid].Transition = transition
}

// Forward prunes the split at parent to the child original and its next
// sibling, and turns that sibling into a forward node to target. The sibling
// takes the remaining probability mass of a probabilistic split.
func (g *StepGraph) Forward(parent, original, target int) {
	complement := original + 1
	g.ensure(complement)
	g.nodes[parent].To = complement

	p := 1.0
	if g.nodes[parent].Type == Probabilistic {
		p = 1 - g.nodes[original].Probability
	}
	g.nodes[complement] = Continuation{Type: Forward, To: target, Probability: p, Transition: NoTransition}
}

// Clone returns an independent copy.
func (g *StepGraph) Clone() *StepGraph {
	c := &StepGraph{nodes: make([]Continuation, len(g.nodes))}
	copy(c.nodes, g.nodes)
	return c
}

// Walk visits every continuation reachable from the root in depth-first
// order, passing the accumulated probability of the path to it.
// Nondeterministic splits do not change the accumulated probability. The
// target of a forward node is visited again with the probability of the
// forward node in place of its own.
func (g *StepGraph) Walk(visit func(cid int, node Continuation, pathProbability float64)) {
	var walk func(cid int, p float64)
	walk = func(cid int, p float64) {
		node := g.nodes[cid]
		visit(cid, node, p)
		switch node.Type {
		case Leaf:
		case Forward:
			walk(node.To, p)
		default:
			for child := node.From; child <= node.To; child++ {
				walk(child, p*g.nodes[child].Probability)
			}
		}
	}
	walk(0, 1)
}

// Leaves returns the probability with which each transition index is
// reached from the root, treating nondeterministic splits as uniform.
func (g *StepGraph) Leaves() map[int]float64 {
	leaves := make(map[int]float64)
	var walk func(cid int, p float64)
	walk = func(cid int, p float64) {
		node := g.nodes[cid]
		switch node.Type {
		case Leaf:
			if node.Transition != NoTransition {
				leaves[node.Transition] += p
			}
		case Forward:
			walk(node.To, p)
		case Nondeterministic:
			n := float64(node.To - node.From + 1)
			for child := node.From; child <= node.To; child++ {
				walk(child, p/n)
			}
		default:
			for child := node.From; child <= node.To; child++ {
				walk(child, p*g.nodes[child].Probability)
			}
		}
	}
	walk(0, 1)
	return leaves
}

// StepGraphResolver enumerates choice paths like DepthFirstResolver and
// records them as a StepGraph. Every path ends in a leaf continuation whose
// id is returned by ContinuationID.
type StepGraphResolver struct {
	graph          *StepGraph
	chosen         []stepValue
	valueCounts    []int
	choiceIndex    int
	continuationID int
	nextFreeID     int
	firstPath      bool
	forward        bool
}

type stepValue struct {
	option       int
	continuation int
}

// NewStepGraphResolver creates a resolver with its own step graph.
func NewStepGraphResolver(useForwardOptimization bool) *StepGraphResolver {
	return &StepGraphResolver{
		graph:       NewStepGraph(),
		chosen:      make([]stepValue, 0, initialCapacity),
		valueCounts: make([]int, 0, initialCapacity),
		choiceIndex: -1,
		nextFreeID:  1,
		forward:     useForwardOptimization,
	}
}

// Graph returns the step graph of the current state.
func (r *StepGraphResolver) Graph() *StepGraph {
	return r.graph
}

// ContinuationID returns the leaf continuation of the current path.
func (r *StepGraphResolver) ContinuationID() int {
	return r.continuationID
}

// PrepareNextState implements Resolver. It also resets the step graph.
func (r *StepGraphResolver) PrepareNextState() {
	r.firstPath = true
	r.choiceIndex = -1
	r.continuationID = 0
	r.nextFreeID = 1
	r.graph.Reset()
}

// PrepareNextPath implements Resolver.
func (r *StepGraphResolver) PrepareNextPath() (bool, error) {
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
			r.continuationID = last.continuation + 1
			r.chosen = append(r.chosen, stepValue{option: last.option + 1, continuation: r.continuationID})
			return true, nil
		}
		r.valueCounts = r.valueCounts[:len(r.valueCounts)-1]
	}
	return false, nil
}

func (r *StepGraphResolver) handle(valueCount int, t ChoiceType) int {
	r.choiceIndex++
	if r.choiceIndex < len(r.chosen) {
		return r.chosen[r.choiceIndex].option
	}

	r.valueCounts = append(r.valueCounts, valueCount)
	parent := r.continuationID
	r.continuationID = r.nextFreeID
	r.chosen = append(r.chosen, stepValue{option: 0, continuation: r.continuationID})
	r.nextFreeID += valueCount

	from, to := r.continuationID, r.continuationID+valueCount-1
	r.graph.split(t, parent, from, to)

	p := 1.0
	if t == Probabilistic {
		p = 1 / float64(valueCount)
	}
	for cid := from; cid <= to; cid++ {
		r.graph.SetProbability(cid, p)
	}
	return 0
}

// HandleChoice implements Resolver.
func (r *StepGraphResolver) HandleChoice(valueCount int) int {
	return r.handle(valueCount, Nondeterministic)
}

// HandleProbabilisticChoice implements Resolver.
func (r *StepGraphResolver) HandleProbabilisticChoice(valueCount int) int {
	return r.handle(valueCount, Probabilistic)
}

// SetProbabilityOfLastChoice implements Resolver.
func (r *StepGraphResolver) SetProbabilityOfLastChoice(p probability.Probability) {
	if r.choiceIndex == len(r.chosen)-1 && r.choiceIndex >= 0 {
		r.graph.SetProbability(r.continuationID, p.Value())
	}
}

// LastChoiceIndex implements Resolver.
func (r *StepGraphResolver) LastChoiceIndex() int {
	return r.choiceIndex
}

// ForwardUntakenChoicesAtIndex implements Resolver.
// The untaken options are merged into one forward node that continues with
// the current path.
func (r *StepGraphResolver) ForwardUntakenChoicesAtIndex(choiceIndex int) {
	if !r.forward || choiceIndex < 0 || choiceIndex >= len(r.chosen) {
		return
	}
	if r.valueCounts[choiceIndex] <= 1 || r.chosen[choiceIndex].option != 0 {
		return
	}

	parent := 0
	if choiceIndex > 0 {
		parent = r.chosen[choiceIndex-1].continuation
	}
	r.graph.Forward(parent, r.chosen[choiceIndex].continuation, r.continuationID)
	r.valueCounts[choiceIndex] = 0
}

// UseForwardOptimization implements Resolver.
func (r *StepGraphResolver) UseForwardOptimization() bool {
	return r.forward
}

// SetChoices implements Resolver.
func (r *StepGraphResolver) SetChoices(choices []int) {
	for i, c := range choices {
		r.chosen = append(r.chosen, stepValue{option: c, continuation: i})
		r.valueCounts = append(r.valueCounts, 0)
	}
}

// Choices implements Resolver.
func (r *StepGraphResolver) Choices() []int {
	out := make([]int, len(r.chosen))
	for i, c := range r.chosen {
		out[i] = c.option
	}
	return out
}

// PathProbability returns the product of the recorded probabilities along
// the current path. Nondeterministic options count as 1.
func (r *StepGraphResolver) PathProbability() float64 {
	p := 1.0
	for _, c := range r.chosen {
		if c.continuation < r.graph.Len() {
			p *= r.graph.Node(c.continuation).Probability
		}
	}
	return p
}

// Clear implements Resolver.
func (r *StepGraphResolver) Clear() {
	r.chosen = r.chosen[:0]
	r.valueCounts = r.valueCounts[:0]
	r.choiceIndex = -1
	r.continuationID = 0
	r.nextFreeID = 1
	r.graph.Reset()
}
