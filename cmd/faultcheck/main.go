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

// Command faultcheck explores the state spaces of the built-in sample
// models, checks their invariants and calculates the probabilities of
// their temporal formulas.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jazzpetri/faultcheck/samples"
)

func main() {
	if err := newRootCmd(samples.Default).Execute(); err != nil {
		if errors.Is(err, errViolation) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
