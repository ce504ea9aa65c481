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
)

func newSamplesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "samples",
		Short: "List the sample models and their queries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range a.registry.Names() {
				e, _ := a.registry.Get(name)
				fmt.Fprintf(a.out, "%s\t%s\n", name, e.Description)
				if e.Invariant != nil {
					fmt.Fprintf(a.out, "\tinvariant %v\n", e.Invariant)
				}
				for _, q := range e.Queries {
					fmt.Fprintf(a.out, "\tquery %s\n", q.Name)
				}
			}
			return nil
		},
	}
}
