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
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/jazzpetri/faultcheck/choice"
	"github.com/jazzpetri/faultcheck/formula"
)

// dotWriter collects the first write error.
type dotWriter struct {
	w   *bufio.Writer
	err error
}

func (d *dotWriter) printf(format string, args ...interface{}) {
	if d.err == nil {
		_, d.err = fmt.Fprintf(d.w, format, args...)
	}
}

func (d *dotWriter) flush() error {
	if d.err != nil {
		return d.err
	}
	return d.w.Flush()
}

func stateLabel(l *formula.Labeling, s int, labels formula.StateFormulaSet) string {
	var names []string
	if l != nil {
		for i, f := range l.Labels() {
			if labels.Get(i) {
				names = append(names, f.String())
			}
		}
	}
	if len(names) == 0 {
		return fmt.Sprint(s)
	}
	return fmt.Sprintf("%d\\n%s", s, strings.ReplaceAll(strings.Join(names, ","), `"`, `\"`))
}

func (d *dotWriter) states(l *formula.Labeling, labels []formula.StateFormulaSet) {
	d.printf("  init [shape=point];\n")
	for s, ls := range labels {
		d.printf("  s%d [label=\"%s\"];\n", s, stateLabel(l, s, ls))
	}
}

// WriteDOT writes m in Graphviz format.
func (m *DTMC) WriteDOT(w io.Writer) error {
	d := &dotWriter{w: bufio.NewWriter(w)}
	d.printf("digraph dtmc {\n")
	d.states(m.Labeling, m.Labels)
	for _, e := range m.Initial {
		d.printf("  init -> s%d [label=\"%.6g\"];\n", e.Target, e.Probability)
	}
	for s, row := range m.Rows {
		for _, e := range row {
			d.printf("  s%d -> s%d [label=\"%.6g\"];\n", s, e.Target, e.Probability)
		}
	}
	d.printf("}\n")
	return d.flush()
}

// WriteDOT writes m in Graphviz format. Every distribution is drawn as a
// small intermediate node.
func (m *MDP) WriteDOT(w io.Writer) error {
	d := &dotWriter{w: bufio.NewWriter(w)}
	d.printf("digraph mdp {\n")
	d.states(m.Labeling, m.Labels)
	for s := range m.Rows {
		if m.IsAuxiliary(s) {
			d.printf("  s%d [style=dashed];\n", s)
		}
	}

	distribution := func(from, name string, dist Distribution) {
		d.printf("  %s [shape=point];\n  %s -> %s [arrowhead=none];\n", name, from, name)
		for _, e := range dist {
			d.printf("  %s -> s%d [label=\"%.6g\"];\n", name, e.Target, e.Probability)
		}
	}
	for i, dist := range m.Initial {
		distribution("init", fmt.Sprintf("i_%d", i), dist)
	}
	for s, ds := range m.Rows {
		for i, dist := range ds {
			distribution(fmt.Sprintf("s%d", s), fmt.Sprintf("d%d_%d", s, i), dist)
		}
	}
	d.printf("}\n")
	return d.flush()
}

// WriteDOT writes n in Graphviz format. Nondeterministic splits are drawn as
// diamonds, probabilistic splits as circles.
func (n *NestedMDP) WriteDOT(w io.Writer) error {
	d := &dotWriter{w: bufio.NewWriter(w)}
	d.printf("digraph nmdp {\n")
	d.states(n.Labeling, n.Labels)

	var node func(from string, id int)
	node = func(from string, id int) {
		nd := n.Nodes[id]
		label := ""
		if nd.Probability != 1 {
			label = fmt.Sprintf(" [label=\"%.6g\"]", nd.Probability)
		}
		if nd.Type == choice.Leaf {
			if nd.Target == NoTarget {
				d.printf("  c%d [shape=point,color=red];\n  %s -> c%d%s;\n", id, from, id, label)
				return
			}
			d.printf("  %s -> s%d%s;\n", from, nd.Target, label)
			return
		}

		shape := "circle"
		if nd.Type == choice.Nondeterministic {
			shape = "diamond"
		}
		d.printf("  c%d [shape=%s,label=\"\"];\n  %s -> c%d%s;\n", id, shape, from, id, label)
		for _, c := range nd.Children {
			node(fmt.Sprintf("c%d", id), c)
		}
	}

	node("init", n.InitialRoot)
	for s, root := range n.Roots {
		node(fmt.Sprintf("s%d", s), root)
	}
	d.printf("}\n")
	return d.flush()
}
