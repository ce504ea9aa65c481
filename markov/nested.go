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

package markov

import (
	"fmt"

	"github.com/jazzpetri/faultcheck/choice"
	"github.com/jazzpetri/faultcheck/formula"
	"github.com/jazzpetri/faultcheck/traversal"
)

// NoTarget marks a leaf whose path produced no transition.
const NoTarget = -1

// MaxDistributionsPerState bounds the distributions created by flattening
// the choices of one state.
const MaxDistributionsPerState = 1 << 16

// Node is a node of the choice tree of a NestedMDP.
type Node struct {
	// Type is choice.Leaf, choice.Nondeterministic or choice.Probabilistic.
	Type choice.ChoiceType

	// Probability given the parent. Children of nondeterministic splits
	// have probability 1.
	Probability float64

	// Target state of a leaf, or NoTarget.
	Target int

	Children []int
}

// NestedMDP is an MDP whose states own trees of nested nondeterministic and
// probabilistic splits.
type NestedMDP struct {
	Labeling *formula.Labeling
	Labels   []formula.StateFormulaSet

	// Nodes is the node pool of all trees.
	Nodes []Node

	// Roots holds the root node of every state.
	Roots []int

	// InitialRoot is the root of the tree of the initial step.
	InitialRoot int
}

// States returns the number of states.
func (n *NestedMDP) States() int {
	return len(n.Roots)
}

// AddNode appends a node to the pool and returns its id.
func (n *NestedMDP) AddNode(node Node) int {
	n.Nodes = append(n.Nodes, node)
	return len(n.Nodes) - 1
}

// AddLeaf appends a leaf to target.
func (n *NestedMDP) AddLeaf(p float64, target int) int {
	return n.AddNode(Node{Type: choice.Leaf, Probability: p, Target: target})
}

// AddSplit appends a split over the given children.
func (n *NestedMDP) AddSplit(t choice.ChoiceType, p float64, children ...int) int {
	return n.AddNode(Node{Type: t, Probability: p, Target: NoTarget, Children: children})
}

// Validate checks the structure of every tree.
func (n *NestedMDP) Validate() error {
	if len(n.Labels) != len(n.Roots) {
		return fmt.Errorf("nested mdp: %d labels for %d states", len(n.Labels), len(n.Roots))
	}
	check := func(root int) error {
		var walk func(id int) error
		walk = func(id int) error {
			if id < 0 || id >= len(n.Nodes) {
				return fmt.Errorf("node %d out of range", id)
			}
			node := n.Nodes[id]
			switch node.Type {
			case choice.Leaf:
				if node.Target != NoTarget && (node.Target < 0 || node.Target >= n.States()) {
					return fmt.Errorf("node %d: target %d out of range", id, node.Target)
				}
				return nil
			case choice.Nondeterministic, choice.Probabilistic:
				if len(node.Children) == 0 {
					return fmt.Errorf("node %d: split without children", id)
				}
				for _, c := range node.Children {
					if err := walk(c); err != nil {
						return err
					}
				}
				return nil
			default:
				return fmt.Errorf("node %d: unsupported type %v", id, node.Type)
			}
		}
		return walk(root)
	}

	if err := check(n.InitialRoot); err != nil {
		return fmt.Errorf("nested mdp initial: %w", err)
	}
	for s, root := range n.Roots {
		if err := check(root); err != nil {
			return fmt.Errorf("nested mdp state %d: %w", s, err)
		}
	}
	return nil
}

// FromStateGraph converts a labeled state graph. Forward nodes of the step
// graphs are expanded into copies of their target subtrees. States that were
// not expanded loop on themselves.
func FromStateGraph(g *traversal.StateGraph) (*NestedMDP, error) {
	if !g.Labeled() || g.InitialStepGraph() == nil {
		return nil, ErrNotProbabilistic
	}

	n := &NestedMDP{
		Labeling: g.Labeling(),
		Labels:   make([]formula.StateFormulaSet, g.StateCount()),
		Roots:    make([]int, g.StateCount()),
	}
	n.InitialRoot = n.convert(g.InitialStepGraph(), g.InitialTransitions(), 0, 1)

	for s := 0; s < g.StateCount(); s++ {
		n.Labels[s], _ = g.Labels(s)
		if !g.Expanded(s) || g.StepGraph(s) == nil {
			n.Roots[s] = n.AddLeaf(1, s)
			continue
		}
		n.Roots[s] = n.convert(g.StepGraph(s), g.Transitions(s), 0, 1)
	}
	return n, nil
}

func (n *NestedMDP) convert(g *choice.StepGraph, ts []traversal.Transition, cid int, p float64) int {
	node := g.Node(cid)
	switch node.Type {
	case choice.Leaf:
		target := NoTarget
		if node.Transition != choice.NoTransition {
			target = ts[node.Transition].Target
		}
		return n.AddLeaf(p, target)
	case choice.Forward:
		return n.convert(g, ts, node.To, p)
	default:
		id := n.AddSplit(node.Type, p)
		children := make([]int, 0, node.To-node.From+1)
		for c := node.From; c <= node.To; c++ {
			children = append(children, n.convert(g, ts, c, g.Node(c).Probability))
		}
		n.Nodes[id].Children = children
		return id
	}
}

// deadNode is returned by prune for subtrees without any target.
const deadNode = -1

// pruned returns a copy of n without the subtrees that reach no state. The
// remaining children of a probabilistic split are rescaled to sum to one and
// a state whose whole tree is dead loops on itself.
func (n *NestedMDP) pruned() *NestedMDP {
	p := &NestedMDP{
		Labeling: n.Labeling,
		Labels:   n.Labels,
		Nodes:    make([]Node, 0, len(n.Nodes)),
		Roots:    make([]int, len(n.Roots)),
	}
	if p.InitialRoot = p.prune(n, n.InitialRoot, 1); p.InitialRoot == deadNode {
		p.InitialRoot = p.AddLeaf(1, NoTarget)
	}
	for s, root := range n.Roots {
		if p.Roots[s] = p.prune(n, root, 1); p.Roots[s] == deadNode {
			p.Roots[s] = p.AddLeaf(1, s)
		}
	}
	return p
}

// prune copies the live part of node id of src with probability prob.
func (n *NestedMDP) prune(src *NestedMDP, id int, prob float64) int {
	node := src.Nodes[id]
	if node.Type == choice.Leaf {
		if node.Target == NoTarget {
			return deadNode
		}
		return n.AddLeaf(prob, node.Target)
	}

	var children []int
	var total float64
	for _, c := range node.Children {
		q := src.Nodes[c].Probability
		if q <= 0 && node.Type == choice.Probabilistic {
			continue
		}
		if cid := n.prune(src, c, q); cid != deadNode {
			children = append(children, cid)
			total += q
		}
	}
	if len(children) == 0 {
		return deadNode
	}
	if node.Type == choice.Probabilistic {
		for _, c := range children {
			n.Nodes[c].Probability /= total
		}
	}
	return n.AddSplit(node.Type, prob, children...)
}

// mass adds the probability with which the tree below id reaches each
// target, resolving nondeterministic splits uniformly.
func (n *NestedMDP) mass(id int, p float64, out map[int]float64) {
	node := n.Nodes[id]
	switch node.Type {
	case choice.Leaf:
		if node.Target != NoTarget {
			out[node.Target] += p
		}
	case choice.Nondeterministic:
		w := p / float64(len(node.Children))
		for _, c := range node.Children {
			n.mass(c, w, out)
		}
	default:
		for _, c := range node.Children {
			n.mass(c, p*n.Nodes[c].Probability, out)
		}
	}
}

// ToDTMC resolves every nondeterministic split uniformly.
func (n *NestedMDP) ToDTMC() (*DTMC, error) {
	n = n.pruned()
	m := &DTMC{
		Labeling: n.Labeling,
		Labels:   n.Labels,
		Rows:     make([]Distribution, n.States()),
	}

	initial := make(map[int]float64)
	n.mass(n.InitialRoot, 1, initial)
	m.Initial = distribution(initial, NoTarget)

	for s, root := range n.Roots {
		mass := make(map[int]float64)
		n.mass(root, 1, mass)
		m.Rows[s] = distribution(mass, s)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// flatten returns one target mass per combination of nondeterministic
// choices below id.
func (n *NestedMDP) flatten(id int) ([]map[int]float64, error) {
	node := n.Nodes[id]
	switch node.Type {
	case choice.Leaf:
		m := make(map[int]float64, 1)
		if node.Target != NoTarget {
			m[node.Target] = 1
		}
		return []map[int]float64{m}, nil

	case choice.Nondeterministic:
		var out []map[int]float64
		for _, c := range node.Children {
			ms, err := n.flatten(c)
			if err != nil {
				return nil, err
			}
			out = append(out, ms...)
			if len(out) > MaxDistributionsPerState {
				return nil, errTooManyDistributions
			}
		}
		return out, nil

	default:
		out := []map[int]float64{{}}
		for _, c := range node.Children {
			p := n.Nodes[c].Probability
			ms, err := n.flatten(c)
			if err != nil {
				return nil, err
			}
			if len(out)*len(ms) > MaxDistributionsPerState {
				return nil, errTooManyDistributions
			}

			next := make([]map[int]float64, 0, len(out)*len(ms))
			for _, prefix := range out {
				for _, m := range ms {
					combined := make(map[int]float64, len(prefix)+len(m))
					for t, q := range prefix {
						combined[t] = q
					}
					for t, q := range m {
						combined[t] += p * q
					}
					next = append(next, combined)
				}
			}
			out = next
		}
		return out, nil
	}
}

var errTooManyDistributions = fmt.Errorf("more than %d distributions per state", MaxDistributionsPerState)

func (n *NestedMDP) flattenDistributions(root, self int) ([]Distribution, error) {
	masses, err := n.flatten(root)
	if err != nil {
		return nil, err
	}
	var ds []Distribution
	for _, m := range masses {
		d := distribution(m, self)
		if len(d) == 0 || containsDistribution(ds, d) {
			continue
		}
		ds = append(ds, d)
	}
	return ds, nil
}

func containsDistribution(ds []Distribution, d Distribution) bool {
	for _, o := range ds {
		if o.Equal(d) {
			return true
		}
	}
	return false
}

// ToMDPByFlattening creates an MDP with the same states whose distributions
// are all combinations of the nested nondeterministic choices.
func (n *NestedMDP) ToMDPByFlattening() (*MDP, error) {
	n = n.pruned()
	m := &MDP{
		Labeling: n.Labeling,
		Labels:   n.Labels,
		Rows:     make([][]Distribution, n.States()),
	}

	var err error
	if m.Initial, err = n.flattenDistributions(n.InitialRoot, NoTarget); err != nil {
		return nil, fmt.Errorf("initial step: %w", err)
	}
	for s, root := range n.Roots {
		if m.Rows[s], err = n.flattenDistributions(root, s); err != nil {
			return nil, fmt.Errorf("state %d: %w", s, err)
		}
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// ToMDPByNewStates creates an MDP that keeps the nesting: every split below
// a probabilistic split becomes a new state carrying the labels of the state
// it belongs to. The new states are appended after the original ones and
// marked as auxiliary.
func (n *NestedMDP) ToMDPByNewStates() (*MDP, error) {
	n = n.pruned()
	m := &MDP{
		Labeling:  n.Labeling,
		Labels:    append([]formula.StateFormulaSet(nil), n.Labels...),
		Rows:      make([][]Distribution, n.States()),
		Auxiliary: make([]bool, n.States()),
	}

	m.Initial = n.choices(m, n.InitialRoot, NoTarget)
	for s, root := range n.Roots {
		m.Rows[s] = n.choices(m, root, s)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// choices returns the distributions available at node id of the tree of
// owner.
func (n *NestedMDP) choices(m *MDP, id, owner int) []Distribution {
	node := n.Nodes[id]
	switch node.Type {
	case choice.Leaf:
		mass := make(map[int]float64, 1)
		if node.Target != NoTarget {
			mass[node.Target] = 1
		}
		return []Distribution{distribution(mass, owner)}

	case choice.Nondeterministic:
		var ds []Distribution
		for _, c := range node.Children {
			for _, d := range n.choices(m, c, owner) {
				if !containsDistribution(ds, d) {
					ds = append(ds, d)
				}
			}
		}
		return ds

	default:
		mass := make(map[int]float64, len(node.Children))
		for _, c := range node.Children {
			child := n.Nodes[c]
			if child.Type == choice.Leaf {
				if child.Target != NoTarget {
					mass[child.Target] += child.Probability
				}
				continue
			}

			aux := len(m.Rows)
			var labels formula.StateFormulaSet
			if owner != NoTarget {
				labels = m.Labels[owner]
			}
			m.Rows = append(m.Rows, nil)
			m.Labels = append(m.Labels, labels)
			m.Auxiliary = append(m.Auxiliary, true)
			m.Rows[aux] = n.choices(m, c, aux)
			mass[aux] += child.Probability
		}
		return []Distribution{distribution(mass, owner)}
	}
}
