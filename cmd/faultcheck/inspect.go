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
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jazzpetri/faultcheck/counterexample"
	"github.com/jazzpetri/faultcheck/executed"
	"github.com/jazzpetri/faultcheck/model"
	"github.com/jazzpetri/faultcheck/samples"
)

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file" + counterexample.FileExtension + ">",
		Short: "Load a counter-example and replay its steps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec := samples.Codec{Registry: a.registry}
			ce, err := counterexample.LoadFile(args[0], codec)
			if err != nil {
				return err
			}

			fmt.Fprintf(a.out, "model %s, fingerprint %v\n", ce.Snapshot, ce.Fingerprint)
			m, err := ce.Model(codec)
			if err != nil {
				return err
			}
			for i, f := range m.Faults() {
				fmt.Fprintf(a.out, "fault %s: %v\n", f.Name, ce.Activations[i])
			}
			fmt.Fprintf(a.out, "%d steps\n", ce.StepCount())

			err = ce.Replay(codec, func(step int, m model.ExecutableModel) error {
				fmt.Fprintf(a.out, "%4d  %v\n", step, m)
				return nil
			})
			var stepErr *executed.StepError
			if errors.As(err, &stepErr) && ce.EndsWithException {
				fmt.Fprintf(a.out, "%4d  failed: %v\n", ce.StepCount(), stepErr.Err)
				return nil
			}
			return err
		},
	}
}
