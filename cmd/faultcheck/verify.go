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
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jazzpetri/faultcheck/counterexample"
	"github.com/jazzpetri/faultcheck/samples"
	"github.com/jazzpetri/faultcheck/verification"
)

func newVerifyCmd(a *app) *cobra.Command {
	var (
		invariant string
		outDir    string
		deadlock  bool
	)
	cmd := &cobra.Command{
		Use:   "verify <sample>",
		Short: "Check the invariant of a sample model and write counter-examples",
		Long: `Explores the activation-minimal state space of the sample and checks its
invariant, or the --invariant given as a label optionally negated with '!'.
Every violation is saved as a counter-example file in --out. The command
exits with status 2 when a property is violated.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			e, err := a.sample(name)
			if err != nil {
				return err
			}
			inv := e.Invariant
			if invariant != "" {
				if inv, err = parseStateFormula(invariant); err != nil {
					return err
				}
			}

			var properties []verification.SafetyProperty
			if inv != nil {
				properties = append(properties, verification.NewInvariantProperty("invariant", inv))
			}
			if deadlock {
				properties = append(properties, verification.NewDeadlockFreedomProperty("deadlock_freedom"))
			}
			if len(properties) == 0 {
				return fmt.Errorf("sample %s has no invariant; use --invariant", name)
			}

			v := verification.NewVerifier(a.registry.Creator(name), samples.Codec{Registry: a.registry}, verification.Options{
				Traversal:              a.cfg.Traversal(false, a.actx),
				EarlyTermination:       a.cfg.EarlyTermination,
				GenerateCounterExample: a.cfg.GenerateCounterExample,
				CollectFaultSets:       a.cfg.CollectFaultSets,
				AtomicLabels:           a.cfg.AtomicLabels,
			})
			cert, err := v.VerifyProperties(cmd.Context(), properties)
			if err != nil {
				return err
			}
			return a.report(v, name, outDir, cert)
		},
	}
	cmd.Flags().StringVar(&invariant, "invariant", "", "invariant label, e.g. '!ruptured'")
	cmd.Flags().StringVar(&outDir, "out", ".", "directory for counter-example files")
	cmd.Flags().BoolVar(&deadlock, "deadlock", false, "also check deadlock freedom")
	return cmd
}

func (a *app) report(v *verification.Verifier, name, outDir string, cert *verification.ProofCertificate) error {
	fmt.Fprint(a.out, cert)
	for _, r := range cert.Properties {
		for _, fs := range r.FaultSets {
			names, err := v.FaultNames(fs)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s: minimal fault set {%s}\n", r.Property, strings.Join(names, ", "))
		}
		if r.CounterExample != nil {
			if err := a.saveCounterExample(r.CounterExample, outDir, name+"-"+r.Property); err != nil {
				return err
			}
		}
	}
	if cert.CounterExample != nil {
		if err := a.saveCounterExample(cert.CounterExample, outDir, name+"-exception"); err != nil {
			return err
		}
	}
	if !cert.AllSatisfied() {
		return errViolation
	}
	return nil
}

func (a *app) saveCounterExample(ce *counterexample.CounterExample, dir, base string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path, err := ce.SaveFile(filepath.Join(dir, base))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "counter-example with %d steps written to %s\n", ce.StepCount(), path)
	return nil
}
