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
	"slices"

	"github.com/tidwall/gjson"

	"github.com/jazzpetri/faultcheck/choice"
	"github.com/jazzpetri/faultcheck/formula"
)

// ParseNestedMDP reads a nested MDP from JSON:
//
//	{
//	  "labels": {"goal": [2]},
//	  "initial": {"target": 0},
//	  "states": [
//	    {"probabilistic": [
//	      {"p": 0.4, "target": 1},
//	      {"p": 0.6, "nondeterministic": [{"target": 1}, {"target": 2}]}
//	    ]},
//	    {"target": 1},
//	    {"target": 2}
//	  ]
//	}
//
// A node is a leaf with a "target", or a split with a "nondeterministic" or
// "probabilistic" list of child nodes. "p" is the probability of a child of
// a probabilistic split. Every label becomes an atomic proposition.
func ParseNestedMDP(data []byte) (*NestedMDP, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("nested mdp: invalid JSON")
	}
	doc := gjson.ParseBytes(data)

	states := doc.Get("states")
	if !states.IsArray() || len(states.Array()) == 0 {
		return nil, fmt.Errorf("nested mdp: \"states\" must be a non-empty array")
	}
	initial := doc.Get("initial")
	if !initial.Exists() {
		return nil, fmt.Errorf("nested mdp: \"initial\" is missing")
	}

	n := &NestedMDP{}
	roots := states.Array()
	n.Roots = make([]int, len(roots))
	n.Labels = make([]formula.StateFormulaSet, len(roots))

	if err := n.parseLabels(doc.Get("labels")); err != nil {
		return nil, err
	}

	var err error
	if n.InitialRoot, err = n.parseNode(initial, 1, "initial"); err != nil {
		return nil, err
	}
	for s, r := range roots {
		if n.Roots[s], err = n.parseNode(r, 1, fmt.Sprintf("states[%d]", s)); err != nil {
			return nil, err
		}
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *NestedMDP) parseLabels(labels gjson.Result) error {
	if labels.Exists() && !labels.IsObject() {
		return fmt.Errorf("nested mdp: \"labels\" must be an object")
	}

	var names []string
	labels.ForEach(func(key, _ gjson.Result) bool {
		names = append(names, key.String())
		return true
	})
	slices.Sort(names)

	formulas := make([]formula.Formula, len(names))
	for i, name := range names {
		formulas[i] = formula.Atomic(name)
	}
	l, err := formula.NewLabeling(formulas, true)
	if err != nil {
		return fmt.Errorf("nested mdp: %w", err)
	}
	n.Labeling = l

	bits := make([][]bool, len(n.Labels))
	for s := range bits {
		bits[s] = make([]bool, len(names))
	}
	for i, name := range names {
		for _, s := range labels.Get(gjson.Escape(name)).Array() {
			state := int(s.Int())
			if state < 0 || state >= len(n.Labels) {
				return fmt.Errorf("nested mdp: label %s: state %d out of range", name, state)
			}
			bits[state][i] = true
		}
	}
	for s := range n.Labels {
		n.Labels[s] = formula.NewStateFormulaSet(bits[s])
	}
	return nil
}

func (n *NestedMDP) parseNode(r gjson.Result, p float64, path string) (int, error) {
	if !r.IsObject() {
		return 0, fmt.Errorf("nested mdp: %s: node must be an object", path)
	}

	if t := r.Get("target"); t.Exists() {
		return n.AddLeaf(p, int(t.Int())), nil
	}

	kind := choice.Nondeterministic
	children := r.Get("nondeterministic")
	if !children.Exists() {
		kind = choice.Probabilistic
		children = r.Get("probabilistic")
	}
	if !children.IsArray() {
		return 0, fmt.Errorf("nested mdp: %s: node needs a target or a list of children", path)
	}

	id := n.AddSplit(kind, p)
	var ids []int
	for i, c := range children.Array() {
		cp := 1.0
		if kind == choice.Probabilistic {
			pr := c.Get("p")
			if !pr.Exists() {
				return 0, fmt.Errorf("nested mdp: %s[%d]: probability \"p\" is missing", path, i)
			}
			cp = pr.Float()
		}
		cid, err := n.parseNode(c, cp, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return 0, err
		}
		ids = append(ids, cid)
	}
	n.Nodes[id].Children = ids
	return id, nil
}
