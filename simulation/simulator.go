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

// Package simulation estimates probabilities by executing a model forward
// with randomly resolved choices.
//
// Simulation complements the exact checkers for models whose state space
// is too large to explore. Each run starts in a random initial state and
// executes at most Steps steps; the estimate is the fraction of runs that
// reached a state satisfying the formula:
//
//	s := simulation.New(samples.Default.Creator("dice"), simulation.Options{Runs: 10000, Seed: 1})
//	res, err := s.Reachability(ctx, formula.Atomic("final1"), 50)
//	fmt.Println(res.Probability, res.StdError)
//
// Runs are seeded individually, so a seed yields the same estimate for any
// number of workers.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"

	"github.com/jazzpetri/faultcheck/formula"
	"github.com/jazzpetri/faultcheck/model"
	"github.com/jazzpetri/faultcheck/observability"
)

const (
	// DefaultRuns is the number of runs when Options.Runs is not set.
	DefaultRuns = 1000

	// MaxConstraintRetries bounds the attempts to find a successor that
	// satisfies the state constraints.
	MaxConstraintRetries = 1000
)

// ErrConstraints is returned when no successor of a state satisfies the
// state constraints within MaxConstraintRetries attempts.
var ErrConstraints = errors.New("no successor satisfies the state constraints")

// Options configure a Simulator.
type Options struct {
	Runs    int
	Workers int

	// Seed makes the runs reproducible. Zero picks a random seed.
	Seed uint64

	// Analysis provides logging, metrics and the clock. Nil means NoOp.
	Analysis *observability.AnalysisContext
}

func (o Options) withDefaults() Options {
	if o.Runs <= 0 {
		o.Runs = DefaultRuns
	}
	o.Workers = max(o.Workers, 1)
	if o.Seed == 0 {
		o.Seed = rand.Uint64()
	}
	o.Analysis = observability.OrBackground(o.Analysis)
	return o
}

// Result is the outcome of a simulation.
type Result struct {
	Runs int
	Hits int

	// Probability is the fraction of runs that reached the formula.
	Probability float64

	// StdDev is the sample standard deviation of the run outcomes.
	StdDev float64

	// StdError is the standard error of Probability.
	StdError float64

	// Steps is the mean number of steps until the formula held, over the
	// runs that reached it.
	Steps float64

	Elapsed time.Duration
}

// Simulator executes the models of one creator.
type Simulator struct {
	creator model.Creator
	opts    Options
}

// New creates a simulator.
func New(creator model.Creator, opts Options) *Simulator {
	return &Simulator{creator: creator, opts: opts.withDefaults()}
}

// Seed returns the seed of the runs.
func (s *Simulator) Seed() uint64 {
	return s.opts.Seed
}

// runner executes runs on one model instance.
type runner struct {
	model       model.ExecutableModel
	resolver    *RandomResolver
	pcg         *rand.PCG
	holds       func() bool
	constraints []func() bool
	state       []byte
}

func (s *Simulator) newRunner(f formula.Formula) (*runner, error) {
	m, err := s.creator.Create()
	if err != nil {
		return nil, err
	}
	holds, err := formula.Compile(f, m)
	if err != nil {
		return nil, err
	}
	pcg := rand.NewPCG(s.opts.Seed, 0)
	r := &runner{
		model:       m,
		resolver:    NewRandomResolver(pcg),
		pcg:         pcg,
		holds:       holds,
		constraints: m.StateConstraints(),
		state:       make([]byte, m.StateVectorSize()),
	}
	m.SetChoiceResolver(r.resolver)
	return r, nil
}

// Reachability estimates the probability that a state satisfying the state
// formula f is reached within steps steps after the initial state.
func (s *Simulator) Reachability(ctx context.Context, f formula.Formula, steps int) (Result, error) {
	if !formula.IsStateFormula(f) {
		return Result{}, fmt.Errorf("%w: %v", formula.ErrNotStateFormula, f)
	}
	if steps < 0 {
		return Result{}, fmt.Errorf("negative step bound %d", steps)
	}
	actx := s.opts.Analysis
	if ctx == nil {
		ctx = actx.Context
	}
	span := actx.Tracer.StartSpan("simulation")
	defer span.End()
	start := actx.Clock.Now()

	runners := make([]*runner, s.opts.Workers)
	for i := range runners {
		r, err := s.newRunner(f)
		if err != nil {
			span.RecordError(err)
			return Result{}, err
		}
		runners[i] = r
	}

	// hitAt[i] is the step at which run i reached f, or -1.
	hitAt := make([]int, s.opts.Runs)
	g, gctx := errgroup.WithContext(ctx)
	for w, r := range runners {
		g.Go(func() error {
			for run := w; run < s.opts.Runs; run += len(runners) {
				if err := gctx.Err(); err != nil {
					return err
				}
				step, err := r.run(s.opts.Seed, uint64(run), steps)
				if err != nil {
					return fmt.Errorf("run %d: %w", run, err)
				}
				hitAt[run] = step
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		actx.Logger.Error("simulation failed", actx.Fields(map[string]interface{}{"error": err.Error()}))
		return Result{}, err
	}

	res := summarize(hitAt)
	res.Elapsed = actx.Clock.Since(start)

	actx.Metrics.Add(observability.MetricSimulationRunsTotal, float64(res.Runs))
	actx.Metrics.Add(observability.MetricSimulationHitsTotal, float64(res.Hits))
	actx.Metrics.Observe(observability.MetricSimulationDuration, res.Elapsed.Seconds())
	actx.Logger.Info("simulation finished", actx.Fields(map[string]interface{}{
		"formula":     f.String(),
		"runs":        res.Runs,
		"hits":        res.Hits,
		"probability": res.Probability,
		"std_error":   res.StdError,
		"seed":        s.opts.Seed,
		"elapsed":     res.Elapsed.String(),
	}))
	return res, nil
}

func summarize(hitAt []int) Result {
	outcomes := make(stats.Float64Data, len(hitAt))
	var steps stats.Float64Data
	res := Result{Runs: len(hitAt)}
	for i, step := range hitAt {
		if step >= 0 {
			outcomes[i] = 1
			steps = append(steps, float64(step))
			res.Hits++
		}
	}

	res.Probability, _ = outcomes.Mean()
	if len(outcomes) > 1 {
		res.StdDev, _ = outcomes.StandardDeviationSample()
		res.StdError = res.StdDev / math.Sqrt(float64(len(outcomes)))
	}
	if len(steps) > 0 {
		res.Steps, _ = steps.Mean()
	}
	return res
}

// run executes one run and returns the step at which f held, or -1.
func (r *runner) run(seed, id uint64, steps int) (int, error) {
	r.pcg.Seed(seed, id)
	if err := r.step(true); err != nil {
		return -1, err
	}
	for step := 0; ; step++ {
		if r.holds() {
			return step, nil
		}
		if step == steps {
			return -1, nil
		}
		if err := r.step(false); err != nil {
			return -1, err
		}
	}
}

// step executes one step, retrying until the successor satisfies the state
// constraints.
func (r *runner) step(initial bool) error {
	if !initial {
		if err := r.model.Serialize(r.state); err != nil {
			return err
		}
	}
	for attempt := 0; attempt < MaxConstraintRetries; attempt++ {
		if !initial {
			r.model.Deserialize(r.state)
		}
		for _, f := range r.model.Faults() {
			f.Reset()
		}
		r.resolver.PrepareNextState()
		if _, err := r.resolver.PrepareNextPath(); err != nil {
			return err
		}

		var err error
		if initial {
			err = r.model.ExecuteInitialStep()
		} else {
			err = r.model.ExecuteStep()
		}
		if err != nil {
			return fmt.Errorf("model failed on choices %v: %w", r.resolver.Choices(), err)
		}
		if r.satisfiesConstraints() {
			return nil
		}
	}
	return ErrConstraints
}

func (r *runner) satisfiesConstraints() bool {
	for _, c := range r.constraints {
		if !c() {
			return false
		}
	}
	return true
}
