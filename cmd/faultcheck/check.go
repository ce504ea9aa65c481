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

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jazzpetri/faultcheck/checker"
	"github.com/jazzpetri/faultcheck/formula"
	"github.com/jazzpetri/faultcheck/markov"
	"github.com/jazzpetri/faultcheck/samples"
)

func newCheckCmd(a *app) *cobra.Command {
	var (
		mdp        bool
		conversion string
		bound      int
		labels     []string
	)
	cmd := &cobra.Command{
		Use:   "check <sample>",
		Short: "Calculate the probabilities of the queries of a sample model",
		Long: `Explores the sample with step graphs, builds a Markov chain (or, with
--mdp, a Markov decision process) and calculates the probability of every
query. --label replaces the sample's queries by "finally label".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			e, err := a.sample(name)
			if err != nil {
				return err
			}
			queries := e.Queries
			if len(labels) > 0 {
				if queries, err = labelQueries(labels, bound); err != nil {
					return err
				}
			}
			if len(queries) == 0 {
				return fmt.Errorf("sample %s has no queries", name)
			}
			formulas := make([]formula.Formula, len(queries))
			for i, q := range queries {
				formulas[i] = q.Formula
			}

			nested, err := a.buildNested(cmd.Context(), name, formulas)
			if err != nil {
				return err
			}
			if err := a.writeDOT(name+"-nested", nested.WriteDOT); err != nil {
				return err
			}
			if mdp {
				return a.checkMDP(name, nested, conversion, queries)
			}
			return a.checkDTMC(name, nested, queries)
		},
	}
	cmd.Flags().BoolVar(&mdp, "mdp", false, "keep nondeterminism and report minimal and maximal probabilities")
	cmd.Flags().StringVar(&conversion, "conversion", "new-states", `MDP conversion: "new-states" or "flattening"`)
	cmd.Flags().IntVar(&bound, "bound", -1, "step bound of the --label queries (negative: unbounded)")
	cmd.Flags().StringSliceVar(&labels, "label", nil, "check \"finally label\" instead of the sample's queries")
	return cmd
}

func labelQueries(labels []string, bound int) ([]samples.Query, error) {
	queries := make([]samples.Query, len(labels))
	for i, l := range labels {
		f, err := parseStateFormula(l)
		if err != nil {
			return nil, err
		}
		if bound >= 0 {
			queries[i] = samples.Query{Name: fmt.Sprintf("F<=%d %s", bound, l), Formula: formula.BoundedFinally(f, bound)}
		} else {
			queries[i] = samples.Query{Name: "F " + l, Formula: formula.Finally(f)}
		}
	}
	return queries, nil
}

func (a *app) checkDTMC(name string, nested *markov.NestedMDP, queries []samples.Query) error {
	m, err := nested.ToDTMC()
	if err != nil {
		return err
	}
	if err := a.writeDOT(name+"-dtmc", m.WriteDOT); err != nil {
		return err
	}
	c, err := checker.NewDTMCChecker(m, a.cfg.Checker(a.actx))
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s: DTMC with %d states and %d transitions\n", name, m.States(), m.TransitionCount())
	for _, q := range queries {
		p, err := c.CalculateProbability(q.Formula)
		if err != nil {
			return fmt.Errorf("query %s: %w", q.Name, err)
		}
		fmt.Fprintf(a.out, "%-20s %.6f\n", q.Name, p.Value())
	}
	return nil
}

func (a *app) checkMDP(name string, nested *markov.NestedMDP, conversion string, queries []samples.Query) error {
	var (
		m   *markov.MDP
		err error
	)
	switch conversion {
	case "new-states":
		m, err = nested.ToMDPByNewStates()
	case "flattening":
		m, err = nested.ToMDPByFlattening()
	default:
		err = fmt.Errorf("unknown MDP conversion %q", conversion)
	}
	if err != nil {
		return err
	}
	if err := a.writeDOT(name+"-mdp", m.WriteDOT); err != nil {
		return err
	}
	c, err := checker.NewMDPChecker(m, a.cfg.Checker(a.actx))
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s: MDP with %d states and %d distributions\n", name, m.States(), m.DistributionCount())
	return printRanges(a.out, c, queries)
}

func printRanges(w io.Writer, c *checker.MDPChecker, queries []samples.Query) error {
	fmt.Fprintf(w, "%-20s %-10s %-10s\n", "query", "min", "max")
	for _, q := range queries {
		lo, err := c.CalculateMinimalProbability(q.Formula)
		if err != nil {
			return fmt.Errorf("query %s: %w", q.Name, err)
		}
		hi, err := c.CalculateMaximalProbability(q.Formula)
		if err != nil {
			return fmt.Errorf("query %s: %w", q.Name, err)
		}
		fmt.Fprintf(w, "%-20s %-10.6f %-10.6f\n", q.Name, lo.Value(), hi.Value())
	}
	return nil
}
