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
	"os"

	"github.com/spf13/cobra"

	"github.com/jazzpetri/faultcheck/checker"
	"github.com/jazzpetri/faultcheck/markov"
)

func newMDPCmd(a *app) *cobra.Command {
	var (
		bound      int
		conversion string
	)
	cmd := &cobra.Command{
		Use:   "mdp <file.json> <label>...",
		Short: "Check a nested Markov decision process given as JSON",
		Long: `Reads a nested MDP of the form

  {"labels": {"goal": [2]},
   "initial": {"target": 0},
   "states": [{"nondeterministic": [{"target": 1}, {"target": 2}]}, ...]}

and prints the minimal and maximal probability of "finally label" for every
label argument.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			nested, err := markov.ParseNestedMDP(data)
			if err != nil {
				return err
			}
			queries, err := labelQueries(args[1:], bound)
			if err != nil {
				return err
			}

			var m *markov.MDP
			if conversion == "flattening" {
				m, err = nested.ToMDPByFlattening()
			} else {
				m, err = nested.ToMDPByNewStates()
			}
			if err != nil {
				return err
			}
			if err := a.writeDOT("mdp", m.WriteDOT); err != nil {
				return err
			}
			c, err := checker.NewMDPChecker(m, a.cfg.Checker(a.actx))
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s: MDP with %d states and %d distributions\n", args[0], m.States(), m.DistributionCount())
			return printRanges(a.out, c, queries)
		},
	}
	cmd.Flags().IntVar(&bound, "bound", -1, "step bound (negative: unbounded)")
	cmd.Flags().StringVar(&conversion, "conversion", "new-states", `MDP conversion: "new-states" or "flattening"`)
	return cmd
}
