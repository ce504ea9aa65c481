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
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"
)

// UnderlyingDigraph is the reversed graph of the non-zero transitions of a
// Markov model. It answers backward reachability questions for the
// qualitative precomputations of the model checkers.
type UnderlyingDigraph struct {
	reversed *simple.DirectedGraph
	states   int
}

// NewUnderlyingDigraph creates the reversed graph of states nodes. edges
// calls add for every transition from one state to another. Self loops are
// ignored; they never change reachability.
func NewUnderlyingDigraph(states int, edges func(add func(from, to int))) *UnderlyingDigraph {
	g := simple.NewDirectedGraph()
	for s := 0; s < states; s++ {
		g.AddNode(simple.Node(s))
	}
	edges(func(from, to int) {
		if from == to {
			return
		}
		g.SetEdge(g.NewEdge(simple.Node(to), simple.Node(from)))
	})
	return &UnderlyingDigraph{reversed: g, states: states}
}

// DigraphOfDTMC returns the underlying digraph of m.
func DigraphOfDTMC(m *DTMC) *UnderlyingDigraph {
	return NewUnderlyingDigraph(m.States(), func(add func(from, to int)) {
		for s, row := range m.Rows {
			for _, e := range row {
				if e.Probability > 0 {
					add(s, e.Target)
				}
			}
		}
	})
}

// DigraphOfMDP returns the underlying digraph of m over all distributions.
func DigraphOfMDP(m *MDP) *UnderlyingDigraph {
	return NewUnderlyingDigraph(m.States(), func(add func(from, to int)) {
		for s, ds := range m.Rows {
			for _, d := range ds {
				for _, e := range d {
					if e.Probability > 0 {
						add(s, e.Target)
					}
				}
			}
		}
	})
}

// States returns the number of nodes.
func (d *UnderlyingDigraph) States() int {
	return d.states
}

// Ancestors returns the states that reach a target state on a path whose
// states before the target all satisfy through. Targets are their own
// ancestors. A nil through admits every state.
func (d *UnderlyingDigraph) Ancestors(targets []bool, through func(int) bool) []bool {
	result := make([]bool, d.states)
	bfs := traverse.BreadthFirst{
		Traverse: func(e graph.Edge) bool {
			pred := int(e.To().ID())
			return through == nil || through(pred)
		},
		Visit: func(n graph.Node) {
			result[n.ID()] = true
		},
	}
	for s, isTarget := range targets {
		if isTarget && !result[s] {
			bfs.Walk(d.reversed, simple.Node(s), nil)
		}
	}
	return result
}
