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

// Package probability provides a validated probability value type.
//
// A Probability is a float64 in [0,1]. Arithmetic on probabilities is done on
// the underlying float64 (Value) and re-validated with New where the result
// leaves the library boundary. Comparisons are always tolerance based:
//
//	p := probability.MustNew(0.65)
//	p.Is(0.65, 1e-6)       // true
//	p.Between(0.6, 0.7)    // true
package probability

import (
	"errors"
	"fmt"
	"math"
)

// DefaultTolerance is used by Between and by validation to absorb rounding
// errors of iterative computations.
const DefaultTolerance = 1e-12

// ErrOutOfRange is returned by New for values outside [0,1].
var ErrOutOfRange = errors.New("probability out of range [0,1]")

// Probability is a float64 value in the closed interval [0,1].
type Probability float64

var (
	// Zero is the probability of an impossible event.
	Zero = Probability(0)

	// One is the probability of a certain event.
	One = Probability(1)
)

// New validates v and returns it as a Probability.
// Values that exceed [0,1] by at most DefaultTolerance are clamped.
func New(v float64) (Probability, error) {
	if math.IsNaN(v) {
		return Zero, fmt.Errorf("%w: NaN", ErrOutOfRange)
	}
	if v < 0 {
		if v < -DefaultTolerance {
			return Zero, fmt.Errorf("%w: %g", ErrOutOfRange, v)
		}
		v = 0
	}
	if v > 1 {
		if v > 1+DefaultTolerance {
			return Zero, fmt.Errorf("%w: %g", ErrOutOfRange, v)
		}
		v = 1
	}
	return Probability(v), nil
}

// MustNew is like New but panics on invalid input.
// Intended for literals in models and tests.
func MustNew(v float64) Probability {
	p, err := New(v)
	if err != nil {
		panic(err)
	}
	return p
}

// Value returns the underlying float64.
func (p Probability) Value() float64 {
	return float64(p)
}

// Complement returns 1-p.
func (p Probability) Complement() Probability {
	return Probability(1 - float64(p))
}

// Is reports whether p equals v within tolerance.
func (p Probability) Is(v, tolerance float64) bool {
	return math.Abs(float64(p)-v) <= tolerance
}

// IsZero reports whether p is zero within DefaultTolerance.
func (p Probability) IsZero() bool {
	return p.Is(0, DefaultTolerance)
}

// IsOne reports whether p is one within DefaultTolerance.
func (p Probability) IsOne() bool {
	return p.Is(1, DefaultTolerance)
}

// Between reports whether lower <= p <= upper within DefaultTolerance.
func (p Probability) Between(lower, upper float64) bool {
	v := float64(p)
	return v >= lower-DefaultTolerance && v <= upper+DefaultTolerance
}

// String formats p with enough digits for log output.
func (p Probability) String() string {
	return fmt.Sprintf("%.10g", float64(p))
}
