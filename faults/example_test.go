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

package faults_test

import (
	"fmt"

	"github.com/jazzpetri/faultcheck/faults"
)

// ExampleFaultSet shows the set algebra and the subsumption closure.
func ExampleFaultSet() {
	sensor := faults.NewFault(0, "SensorStuck")
	pump := faults.NewFault(1, "PumpDefect")
	power := faults.NewFault(2, "PowerLoss")
	power.Subsumes(sensor)
	all := []*faults.Fault{sensor, pump, power}

	s := faults.NewFaultSet(sensor, pump)
	fmt.Println(s)
	fmt.Println(s.Contains(power))
	fmt.Println(faults.NewFaultSet(sensor).IsSubsetOf(s))
	fmt.Println(faults.SubsumedFaults(faults.NewFaultSet(power), all))
	for f := range s.ToFaultSequence(all) {
		fmt.Println(f.Name)
	}
	// Output:
	// {0, 1}
	// false
	// true
	// {0, 2}
	// SensorStuck
	// PumpDefect
}
