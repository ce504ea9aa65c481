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

// Package traversal explores the state space of a model in parallel.
//
// A Traverser creates one model instance per worker through a
// model.Creator. Workers take batches of unexplored states from a shared
// frontier, compute their successors with an executed.ExecutedModel and
// insert the targets into a lock-free StateStorage. The first worker that
// inserts a state owns its expansion. The run ends when every worker waits
// on an empty frontier, when the Stop predicate fires, when a capacity is
// exhausted or when the context is cancelled.
//
// # Usage
//
//	labeling, _ := formula.NewLabeling(formulas, true)
//	t := traversal.New(creator, traversal.Options{
//	    Workers:       runtime.NumCPU(),
//	    StateCapacity: 1 << 20,
//	    Labeled:       true,
//	    Executed:      executed.Options{Labeling: labeling},
//	})
//	graph, err := t.Run(ctx)
//
// Labeled traversals keep every path of every step together with its step
// graph and feed the Markov extraction. Unlabeled traversals keep only
// activation-minimal transitions and feed the invariant checker.
package traversal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"

	"github.com/jazzpetri/faultcheck/choice"
	"github.com/jazzpetri/faultcheck/executed"
	"github.com/jazzpetri/faultcheck/formula"
	"github.com/jazzpetri/faultcheck/model"
	"github.com/jazzpetri/faultcheck/observability"
	"github.com/jazzpetri/faultcheck/transition"
)

// capacityHint is reported with every state capacity error.
const capacityHint = "the model capacity (FAULTCHECK_MODEL_CAPACITY)"

const stackHint = "the stack capacity (FAULTCHECK_STACK_CAPACITY)"

// Default values used for zero Options fields.
const (
	DefaultStateCapacity = 1 << 20
	DefaultStackCapacity = 1 << 20
	DefaultBatchSize     = 32
)

// Options configure a Traverser.
type Options struct {
	// Workers is the number of parallel workers. Values below 1 mean 1.
	Workers int

	// StateCapacity bounds the number of states.
	StateCapacity int

	// StackCapacity bounds the number of states waiting for expansion.
	StackCapacity int

	// BatchSize is the number of states a worker takes from the frontier
	// at once.
	BatchSize int

	// Labeled keeps every path and its step graph instead of the
	// activation-minimal transitions only.
	Labeled bool

	// Executed configures the per worker model drivers.
	Executed executed.Options

	// Terminal states are stored but not expanded.
	Terminal func(formula.StateFormulaSet) bool

	// Stop ends the traversal at the first state it returns true for. The
	// state is reported by StateGraph.Violation.
	Stop func(formula.StateFormulaSet) bool

	// ProgressInterval enables periodic progress logs.
	ProgressInterval time.Duration

	// Analysis provides logging, metrics and the clock. Nil means NoOp.
	Analysis *observability.AnalysisContext
}

func (o Options) withDefaults() Options {
	o.Workers = max(o.Workers, 1)
	if o.StateCapacity <= 0 {
		o.StateCapacity = DefaultStateCapacity
	}
	if o.StackCapacity <= 0 {
		o.StackCapacity = DefaultStackCapacity
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	o.Analysis = observability.OrBackground(o.Analysis)
	return o
}

// Traverser explores the state space of the models of one creator.
type Traverser struct {
	creator model.Creator
	opts    Options
}

// New creates a traverser.
func New(creator model.Creator, opts Options) *Traverser {
	return &Traverser{creator: creator, opts: opts.withDefaults()}
}

type stateResult struct {
	state       int32
	transitions []Transition
	graph       *choice.StepGraph
}

type parentLink struct {
	child, parent int32
}

type worker struct {
	id        int
	exec      *executed.ExecutedModel
	results   []stateResult
	parents   []parentLink
	computed  int
	processed int
}

// run holds the state shared by the workers of one Run.
type run struct {
	opts      Options
	storage   *StateStorage
	frontier  *frontier
	violation atomic.Int64
}

func (t *Traverser) newWorker(id int) (*worker, error) {
	m, err := t.creator.Create()
	if err != nil {
		return nil, fmt.Errorf("failed to create model for worker %d: %w", id, err)
	}

	var e *executed.ExecutedModel
	if t.opts.Labeled {
		e, err = executed.NewLabeled(m, t.opts.Executed)
	} else {
		e, err = executed.NewActivationMinimal(m, t.opts.Executed)
	}
	if err != nil {
		return nil, err
	}
	return &worker{id: id, exec: e}, nil
}

// StateError reports a failure while computing the successors of a state.
type StateError struct {
	State int
	Err   error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("state %d: %v", e.State, e.Err)
}

// Unwrap returns the cause.
func (e *StateError) Unwrap() error {
	return e.Err
}

// Run explores the state space. A Stop before completion is not an error;
// it is reported by StateGraph.Violation.
//
// When the successors of a state cannot be computed, Run returns a
// *StateError together with the partial graph, so that a path to the
// failing state can be reconstructed with StateGraph.PathTo.
func (t *Traverser) Run(ctx context.Context) (*StateGraph, error) {
	opts := t.opts
	actx := opts.Analysis
	if ctx == nil {
		ctx = actx.Context
	}
	span := actx.Tracer.StartSpan("traversal")
	defer span.End()
	start := actx.Clock.Now()

	workers := make([]*worker, opts.Workers)
	for i := range workers {
		w, err := t.newWorker(i)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		workers[i] = w
	}

	storage, err := NewStateStorage(workers[0].exec.StateVectorSize(), opts.StateCapacity)
	if err != nil {
		return nil, err
	}
	r := &run{opts: opts, storage: storage, frontier: newFrontier(opts.Workers, opts.StackCapacity)}
	r.violation.Store(NoState)

	graph := newStateGraph(storage, opts.Executed.Labeling, opts.Labeled)
	initial, err := r.initial(workers[0], graph)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	actx.Logger.Info("traversal started", actx.Fields(map[string]interface{}{
		"workers":        opts.Workers,
		"labeled":        opts.Labeled,
		"state_capacity": opts.StateCapacity,
		"initial_states": storage.Len(),
	}))

	if r.violation.Load() == NoState {
		err := r.frontier.push(initial...)
		if err == nil {
			err = r.explore(ctx, workers)
		}
		if err != nil {
			span.RecordError(err)
			actx.Logger.Error("traversal failed", actx.Fields(map[string]interface{}{"error": err.Error()}))
			var se *StateError
			if !errors.As(err, &se) {
				return nil, err
			}
			merge(graph, workers)
			return graph, err
		}
	}

	merge(graph, workers)
	graph.violation = int(r.violation.Load())
	t.report(graph, workers, actx.Clock.Since(start))
	return graph, nil
}

// initial computes the initial transitions with the first worker and
// returns the initial states to expand.
func (r *run) initial(w *worker, graph *StateGraph) ([]int32, error) {
	c, err := w.exec.InitialTransitions()
	if err != nil {
		return nil, err
	}
	w.computed += c.TotalCount()

	var expand []int32
	graph.initial, expand, err = r.record(w, c, NoState)
	if err != nil {
		return nil, err
	}
	if g := c.StepGraph(); g != nil {
		graph.initialGraph = g.Clone()
	}
	return expand, nil
}

// record inserts the targets of c into the storage and converts the
// transitions. It returns the new states that must be expanded.
func (r *run) record(w *worker, c transition.Collection, source int32) ([]Transition, []int32, error) {
	ts := make([]Transition, 0, c.Len())
	var expand []int32

	for i := 0; i < c.Len(); i++ {
		t := c.At(i)
		if !t.Valid() {
			continue
		}
		index, added, err := r.storage.AddOrGet(c.TargetState(t))
		if err != nil {
			return nil, nil, err
		}
		ts = append(ts, Transition{
			Target:       index,
			Formulas:     t.Formulas,
			Faults:       t.ActivatedFaults,
			Probability:  t.Probability,
			Continuation: t.Continuation,
		})
		if !added {
			continue
		}

		w.parents = append(w.parents, parentLink{child: int32(index), parent: source})
		if r.opts.Stop != nil && r.opts.Stop(t.Formulas) {
			if r.violation.CompareAndSwap(NoState, int64(index)) {
				r.frontier.stop()
			}
			continue
		}
		if r.opts.Terminal == nil || !r.opts.Terminal(t.Formulas) {
			expand = append(expand, int32(index))
		}
	}
	return ts, expand, nil
}

func (r *run) explore(ctx context.Context, workers []*worker) error {
	g, gctx := errgroup.WithContext(ctx)
	finished := make(chan struct{})
	var watch sync.WaitGroup
	watch.Add(1)
	go func() {
		defer watch.Done()
		select {
		case <-gctx.Done():
			r.frontier.stop()
		case <-finished:
		}
	}()
	if r.opts.ProgressInterval > 0 {
		watch.Add(1)
		go func() {
			defer watch.Done()
			r.progress(finished)
		}()
	}

	for _, w := range workers {
		g.Go(func() error { return r.work(w) })
	}
	err := g.Wait()
	close(finished)
	watch.Wait()

	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("traversal cancelled: %w", err)
	}
	return nil
}

func (r *run) work(w *worker) error {
	batch := make([]int32, 0, r.opts.BatchSize)
	for {
		batch = r.frontier.pop(batch)
		if len(batch) == 0 {
			return nil
		}
		for _, s := range batch {
			if err := r.expand(w, s); err != nil {
				r.frontier.stop()
				return err
			}
		}
	}
}

func (r *run) expand(w *worker, s int32) error {
	c, err := w.exec.SuccessorTransitions(r.storage.Get(int(s)))
	if err != nil {
		return &StateError{State: int(s), Err: err}
	}
	w.computed += c.TotalCount()
	w.processed++

	ts, next, err := r.record(w, c, s)
	if err != nil {
		return err
	}
	result := stateResult{state: s, transitions: ts}
	if g := c.StepGraph(); g != nil {
		result.graph = g.Clone()
	}
	w.results = append(w.results, result)
	return r.frontier.push(next...)
}

func (r *run) progress(finished <-chan struct{}) {
	actx := r.opts.Analysis
	for {
		select {
		case <-finished:
			return
		case <-actx.Clock.After(r.opts.ProgressInterval):
		}
		queued := r.frontier.len()
		actx.Metrics.Set(observability.MetricFrontierSize, float64(queued))
		actx.Logger.Info("traversal progress", actx.Fields(map[string]interface{}{
			"states":   r.storage.Len(),
			"frontier": queued,
		}))
	}
}

func merge(g *StateGraph, workers []*worker) {
	g.finish()
	for _, w := range workers {
		g.computed += w.computed
		for _, p := range w.parents {
			g.parents[p.child] = p.parent
		}
		for _, res := range w.results {
			g.transitions[res.state] = res.transitions
			g.expanded[res.state] = true
			if g.graphs != nil {
				g.graphs[res.state] = res.graph
			}
		}
	}
}

// report logs the totals and the distribution of work over the workers.
func (t *Traverser) report(g *StateGraph, workers []*worker, elapsed time.Duration) {
	actx := t.opts.Analysis
	actx.Metrics.Add(observability.MetricStatesTotal, float64(g.StateCount()))
	actx.Metrics.Add(observability.MetricTransitionsTotal, float64(g.TransitionCount()))
	actx.Metrics.Add(observability.MetricComputedTransitionsTotal, float64(g.ComputedTransitionCount()))
	actx.Metrics.Observe(observability.MetricTraversalDuration, elapsed.Seconds())

	load := make(stats.Float64Data, len(workers))
	for i, w := range workers {
		load[i] = float64(w.processed)
		actx.Metrics.Set(fmt.Sprintf("%s{worker=\"%d\"}", observability.MetricWorkerStates, w.id), load[i])
	}
	mean, _ := load.Mean()
	stddev, _ := load.StandardDeviation()
	peak, _ := load.Max()

	fields := map[string]interface{}{
		"states":               g.StateCount(),
		"transitions":          g.TransitionCount(),
		"computed_transitions": g.ComputedTransitionCount(),
		"elapsed":              elapsed.String(),
		"worker_states_mean":   mean,
		"worker_states_stddev": stddev,
		"worker_states_max":    peak,
	}
	if g.Violation() != NoState {
		fields["violation"] = g.Violation()
	}
	actx.Logger.Info("traversal finished", actx.Fields(fields))
}
