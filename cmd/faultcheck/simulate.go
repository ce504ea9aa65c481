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

	"github.com/spf13/cobra"

	"github.com/jazzpetri/faultcheck/simulation"
)

func newSimulateCmd(a *app) *cobra.Command {
	var (
		steps int
		runs  int
		seed  uint64
	)
	cmd := &cobra.Command{
		Use:   "simulate <sample> <label>",
		Short: "Estimate the probability of reaching a label by random simulation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.sample(args[0]); err != nil {
				return err
			}
			f, err := parseStateFormula(args[1])
			if err != nil {
				return err
			}

			sim := simulation.New(a.registry.Creator(args[0]), simulation.Options{
				Runs:     runs,
				Workers:  a.cfg.CPUCount,
				Seed:     seed,
				Analysis: a.actx,
			})
			r, err := sim.Reachability(cmd.Context(), f, steps)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "F<=%d %s: %.4f ± %.4f (%d of %d runs, seed %d)\n",
				steps, args[1], r.Probability, r.StdError, r.Hits, r.Runs, sim.Seed())
			if r.Hits > 0 {
				fmt.Fprintf(a.out, "mean steps to reach: %.2f\n", r.Steps)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 50, "steps per run")
	cmd.Flags().IntVar(&runs, "runs", simulation.DefaultRuns, "number of runs")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "seed of the runs (0: random)")
	return cmd
}
