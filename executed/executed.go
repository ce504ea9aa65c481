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

// Package executed drives one model instance through its steps and turns the
// results into transitions.
//
// An ExecutedModel owns a model, a choice resolver and a Builder. For every
// state it executes the model once per resolver path, drops successors that
// violate a state constraint and hands the rest to the builder:
//
//   - ActivationMinimalBuilder keeps only activation-minimal transitions
//     and is used for qualitative analyses.
//   - LabeledBuilder keeps every path together with the step graph of its
//     choices and is used to build Markov models.
//
// # Usage
//
//	m, _ := creator.Create()
//	e, err := executed.NewActivationMinimal(m, executed.Options{
//	    SuccessorCapacity: 1 << 14,
//	    Labeling:          labeling,
//	})
//	initial, err := e.InitialTransitions()
//	for t := range initial.All() {
//	    next, err := e.SuccessorTransitions(initial.TargetState(t))
//	}
//
// An ExecutedModel is owned by a single goroutine.
package executed

import (
	"fmt"

	"github.com/jazzpetri/faultcheck/choice"
	"github.com/jazzpetri/faultcheck/faults"
	"github.com/jazzpetri/faultcheck/formula"
	"github.com/jazzpetri/faultcheck/model"
	"github.com/jazzpetri/faultcheck/transition"
)

// FaultActivationMoment determines when nondeterministic faults are
// activated.
type FaultActivationMoment int

const (
	// AtStepBeginning activates all faults before the step executes.
	AtStepBeginning FaultActivationMoment = iota

	// OnFirstMethodWithoutUndo activates a fault when the model first tries
	// it. Activations are never undone.
	OnFirstMethodWithoutUndo

	// OnFirstMethodWithUndo activates a fault when the model first tries it.
	// Activations the model undoes prune the activated branch.
	OnFirstMethodWithUndo
)

func (m FaultActivationMoment) String() string {
	switch m {
	case AtStepBeginning:
		return "AtStepBeginning"
	case OnFirstMethodWithoutUndo:
		return "OnFirstMethodWithoutUndo"
	case OnFirstMethodWithUndo:
		return "OnFirstMethodWithUndo"
	default:
		return fmt.Sprintf("FaultActivationMoment(%d)", int(m))
	}
}

// ParseFaultActivationMoment parses the name of a moment.
func ParseFaultActivationMoment(s string) (FaultActivationMoment, error) {
	for m := AtStepBeginning; m <= OnFirstMethodWithUndo; m++ {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown fault activation moment %q", s)
}

// DefaultSuccessorCapacity is used when Options.SuccessorCapacity is zero.
const DefaultSuccessorCapacity = 1 << 14

// Options configure an ExecutedModel.
type Options struct {
	// SuccessorCapacity bounds the transitions computed for one state.
	SuccessorCapacity int

	// Moment selects when nondeterministic faults are activated.
	Moment FaultActivationMoment

	// Labeling provides the state labels. Nil means no labels.
	Labeling *formula.Labeling
}

// StepError reports a failure of the model's own step logic.
type StepError struct {
	Initial bool
	Choices []int
	Err     error
}

func (e *StepError) Error() string {
	step := "step"
	if e.Initial {
		step = "initial step"
	}
	return fmt.Sprintf("model %s failed on choices %v: %v", step, e.Choices, e.Err)
}

// Unwrap returns the model error.
func (e *StepError) Unwrap() error {
	return e.Err
}

// ExecutedModel executes the steps of one model instance.
type ExecutedModel struct {
	model       model.ExecutableModel
	resolver    choice.Resolver
	builder     Builder
	constraints []func() bool
	faults      []*faults.Fault
	moment      FaultActivationMoment
	stateSize   int
}

// NewActivationMinimal creates a driver that produces activation-minimal
// transitions.
func NewActivationMinimal(m model.ExecutableModel, opts Options) (*ExecutedModel, error) {
	opts = withDefaults(opts)
	formulas, err := compileLabels(m, opts.Labeling)
	if err != nil {
		return nil, err
	}

	b, err := NewActivationMinimalBuilder(m.StateVectorSize(), opts.SuccessorCapacity, formulas)
	if err != nil {
		return nil, err
	}
	r := choice.NewDepthFirstResolver(opts.Moment == OnFirstMethodWithUndo)
	return newExecutedModel(m, r, b, opts.Moment), nil
}

// NewLabeled creates a driver that keeps every path and records the step
// graph of each state.
func NewLabeled(m model.ExecutableModel, opts Options) (*ExecutedModel, error) {
	opts = withDefaults(opts)
	formulas, err := compileLabels(m, opts.Labeling)
	if err != nil {
		return nil, err
	}

	r := choice.NewStepGraphResolver(opts.Moment == OnFirstMethodWithUndo)
	b := NewLabeledBuilder(m.StateVectorSize(), opts.SuccessorCapacity, formulas, r.Graph())
	return newExecutedModel(m, r, b, opts.Moment), nil
}

// NewReplayer creates a driver without a builder. It only supports
// ForEachPath and Replay.
func NewReplayer(m model.ExecutableModel) *ExecutedModel {
	return newExecutedModel(m, choice.NewDepthFirstResolver(false), nil, OnFirstMethodWithoutUndo)
}

func withDefaults(opts Options) Options {
	if opts.SuccessorCapacity <= 0 {
		opts.SuccessorCapacity = DefaultSuccessorCapacity
	}
	return opts
}

func compileLabels(m model.ExecutableModel, l *formula.Labeling) ([]func() bool, error) {
	if l == nil {
		return nil, nil
	}
	return l.Compile(m)
}

func newExecutedModel(m model.ExecutableModel, r choice.Resolver, b Builder, moment FaultActivationMoment) *ExecutedModel {
	m.SetChoiceResolver(r)
	return &ExecutedModel{
		model:       m,
		resolver:    r,
		builder:     b,
		constraints: m.StateConstraints(),
		faults:      m.Faults(),
		moment:      moment,
		stateSize:   m.StateVectorSize(),
	}
}

// Model returns the driven model.
func (e *ExecutedModel) Model() model.ExecutableModel {
	return e.model
}

// StateVectorSize returns the size of a serialized state.
func (e *ExecutedModel) StateVectorSize() int {
	return e.stateSize
}

// InitialTransitions computes the transitions into the initial states.
// The collection is valid until the next call on e.
func (e *ExecutedModel) InitialTransitions() (transition.Collection, error) {
	return e.transitions(nil, true)
}

// SuccessorTransitions computes the transitions leaving state.
// The collection is valid until the next call on e.
func (e *ExecutedModel) SuccessorTransitions(state []byte) (transition.Collection, error) {
	return e.transitions(state, false)
}

func (e *ExecutedModel) transitions(state []byte, initial bool) (transition.Collection, error) {
	e.builder.Clear()
	err := e.ForEachPath(state, initial, func() (bool, error) {
		if !e.satisfiesConstraints() {
			return true, nil
		}
		return true, e.builder.Add(e.model, e.pathProbability(), e.continuation())
	})
	if err != nil {
		return transition.Collection{}, err
	}
	return e.builder.ToCollection(), nil
}

// ForEachPath executes the step from state once per resolver path and calls
// visit after each execution. visit returns false to stop the enumeration.
// state is ignored for the initial step.
func (e *ExecutedModel) ForEachPath(state []byte, initial bool, visit func() (bool, error)) error {
	// an earlier enumeration may have stopped halfway
	e.resolver.Clear()
	e.resolver.PrepareNextState()
	for {
		more, err := e.resolver.PrepareNextPath()
		if err != nil {
			return err
		}
		if !more {
			return nil
		}

		if err := e.execute(state, initial); err != nil {
			return err
		}
		cont, err := visit()
		if err != nil || !cont {
			return err
		}
	}
}

// Replay executes the single path given by choices from state.
func (e *ExecutedModel) Replay(state []byte, initial bool, choices []int) error {
	e.resolver.Clear()
	e.resolver.PrepareNextState()
	e.resolver.SetChoices(choices)
	return e.execute(state, initial)
}

// Choices returns the choices of the current path.
func (e *ExecutedModel) Choices() []int {
	return e.resolver.Choices()
}

func (e *ExecutedModel) execute(state []byte, initial bool) error {
	if !initial {
		e.model.Deserialize(state)
	}
	e.resetFaults()

	var err error
	if initial {
		err = e.model.ExecuteInitialStep()
	} else {
		err = e.model.ExecuteStep()
	}
	if err != nil {
		return &StepError{Initial: initial, Choices: e.resolver.Choices(), Err: err}
	}
	return nil
}

func (e *ExecutedModel) resetFaults() {
	for _, f := range e.faults {
		f.Reset()
	}
	if e.moment != AtStepBeginning {
		return
	}
	for _, f := range e.faults {
		if f.Activation() == faults.Nondeterministic {
			f.TryActivate()
		}
	}
}

func (e *ExecutedModel) satisfiesConstraints() bool {
	for _, c := range e.constraints {
		if !c() {
			return false
		}
	}
	return true
}

func (e *ExecutedModel) pathProbability() float64 {
	if r, ok := e.resolver.(interface{ PathProbability() float64 }); ok {
		return r.PathProbability()
	}
	return 1
}

func (e *ExecutedModel) continuation() int {
	if r, ok := e.resolver.(*choice.StepGraphResolver); ok {
		return r.ContinuationID()
	}
	return choice.NoTransition
}
