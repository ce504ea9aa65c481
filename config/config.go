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

// Package config holds the settings shared by the analyses.
//
// Settings start from Default, may be read from a YAML file and are
// overlaid with FAULTCHECK_* environment variables. Validate replaces
// invalid values with defaults and logs a warning for each.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/jazzpetri/faultcheck/checker"
	"github.com/jazzpetri/faultcheck/executed"
	"github.com/jazzpetri/faultcheck/observability"
	"github.com/jazzpetri/faultcheck/traversal"
)

// Default values.
const (
	DefaultStackCapacity        = 1 << 20
	DefaultSuccessorCapacity    = 1 << 14
	DefaultConvergenceTolerance = checker.DefaultTolerance
	DefaultMaxIterations        = checker.DefaultMaxIterations

	// EnvPrefix prefixes every environment variable read by ApplyEnv.
	EnvPrefix = "FAULTCHECK_"
)

// ModelCapacity is a preset bounding the number of stored states.
type ModelCapacity string

// Model capacity presets.
const (
	Tiny   ModelCapacity = "tiny"
	Small  ModelCapacity = "small"
	Normal ModelCapacity = "normal"
	Large  ModelCapacity = "large"
)

var capacities = map[ModelCapacity]int{
	Tiny:   1 << 12,
	Small:  1 << 16,
	Normal: 1 << 20,
	Large:  1 << 24,
}

// States returns the number of states the preset allows, or 0 for an
// unknown preset.
func (c ModelCapacity) States() int {
	return capacities[c]
}

// Analysis configures one analysis run. The zero value is not usable;
// start from Default or LoadFile.
//
// Example:
//
//	cfg, err := config.LoadFile("faultcheck.yaml")
//	if err != nil {
//		return err
//	}
//	if err := cfg.ApplyEnv(); err != nil {
//		return err
//	}
//	cfg.Validate(logger)
type Analysis struct {
	// StackCapacity bounds the states waiting for expansion.
	StackCapacity int `yaml:"stack_capacity"`

	// SuccessorCapacity bounds the transitions computed for one state.
	SuccessorCapacity int `yaml:"successor_capacity"`

	ModelCapacity ModelCapacity `yaml:"model_capacity"`

	// CPUCount is the number of traversal and simulation workers. It is
	// clamped to [1, runtime.NumCPU()].
	CPUCount int `yaml:"cpu_count"`

	// EarlyTermination stops invariant checks at the first violation and
	// leaves the states that decide every checked formula unexpanded.
	EarlyTermination bool `yaml:"early_termination"`

	// CompactStorage keeps only activation-minimal transitions when no
	// step graphs are needed.
	CompactStorage bool `yaml:"compact_storage"`

	// FaultActivationMoment names an executed.FaultActivationMoment, for
	// example "OnFirstMethodWithUndo".
	FaultActivationMoment string `yaml:"fault_activation_moment"`

	// AtomicLabels labels states with atomic propositions only and
	// evaluates compound state formulas over them.
	AtomicLabels bool `yaml:"atomic_labels"`

	GenerateCounterExample bool `yaml:"generate_counter_example"`

	// CollectFaultSets records the activated faults of violating states.
	CollectFaultSets bool `yaml:"collect_fault_sets"`

	ConvergenceTolerance float64 `yaml:"convergence_tolerance"`
	MaxIterations        int     `yaml:"max_iterations"`

	// GraphvizDir receives a DOT file of every built Markov model. Empty
	// disables the output.
	GraphvizDir string `yaml:"graphviz_dir"`
}

// Default returns the default configuration.
func Default() Analysis {
	return Analysis{
		StackCapacity:          DefaultStackCapacity,
		SuccessorCapacity:      DefaultSuccessorCapacity,
		ModelCapacity:          Normal,
		CPUCount:               runtime.NumCPU(),
		EarlyTermination:       true,
		FaultActivationMoment:  executed.AtStepBeginning.String(),
		AtomicLabels:           true,
		GenerateCounterExample: true,
		ConvergenceTolerance:   DefaultConvergenceTolerance,
		MaxIterations:          DefaultMaxIterations,
	}
}

// Validate replaces invalid values with their defaults. Every
// replacement is logged as a warning.
func (a *Analysis) Validate(logger observability.Logger) {
	if logger == nil {
		logger = &observability.NoOpLogger{}
	}
	warn := func(field string, value, def interface{}) {
		logger.Warn("Invalid "+field+", using default", map[string]interface{}{
			"value":     value,
			"default":   def,
			"operation": "config_validate",
		})
	}

	if a.StackCapacity <= 0 {
		warn("StackCapacity", a.StackCapacity, DefaultStackCapacity)
		a.StackCapacity = DefaultStackCapacity
	}
	if a.SuccessorCapacity <= 0 {
		warn("SuccessorCapacity", a.SuccessorCapacity, DefaultSuccessorCapacity)
		a.SuccessorCapacity = DefaultSuccessorCapacity
	}
	if a.ModelCapacity.States() == 0 {
		warn("ModelCapacity", a.ModelCapacity, Normal)
		a.ModelCapacity = Normal
	}
	if n := runtime.NumCPU(); a.CPUCount < 1 || a.CPUCount > n {
		clamped := min(max(a.CPUCount, 1), n)
		warn("CPUCount", a.CPUCount, clamped)
		a.CPUCount = clamped
	}
	if _, err := executed.ParseFaultActivationMoment(a.FaultActivationMoment); err != nil {
		def := executed.AtStepBeginning.String()
		warn("FaultActivationMoment", a.FaultActivationMoment, def)
		a.FaultActivationMoment = def
	}
	if !(a.ConvergenceTolerance > 0) {
		warn("ConvergenceTolerance", a.ConvergenceTolerance, DefaultConvergenceTolerance)
		a.ConvergenceTolerance = DefaultConvergenceTolerance
	}
	if a.MaxIterations <= 0 {
		warn("MaxIterations", a.MaxIterations, DefaultMaxIterations)
		a.MaxIterations = DefaultMaxIterations
	}
}

// LoadFile reads a YAML file over the defaults. Keys missing from the
// file keep their default values.
func LoadFile(path string) (Analysis, error) {
	a := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return a, fmt.Errorf("failed to read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&a); err != nil && !errors.Is(err, io.EOF) {
		return a, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return a, nil
}

// LoadEnvFile loads a .env file into the process environment. Variables
// already set are kept. A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays the FAULTCHECK_* environment variables, for example
// FAULTCHECK_CPU_COUNT=4 or FAULTCHECK_MODEL_CAPACITY=large.
func (a *Analysis) ApplyEnv() error {
	return a.apply(os.LookupEnv)
}

func (a *Analysis) apply(lookup func(string) (string, bool)) error {
	var errs []error
	set := func(key string, assign func(string) error) {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			return
		}
		if err := assign(v); err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
		}
	}
	toInt := func(dst *int) func(string) error {
		return func(v string) (err error) {
			*dst, err = cast.ToIntE(v)
			return err
		}
	}
	toBool := func(dst *bool) func(string) error {
		return func(v string) (err error) {
			*dst, err = cast.ToBoolE(v)
			return err
		}
	}
	toString := func(dst *string) func(string) error {
		return func(v string) error {
			*dst = v
			return nil
		}
	}

	set("STACK_CAPACITY", toInt(&a.StackCapacity))
	set("SUCCESSOR_CAPACITY", toInt(&a.SuccessorCapacity))
	set("MODEL_CAPACITY", func(v string) error {
		a.ModelCapacity = ModelCapacity(strings.ToLower(v))
		return nil
	})
	set("CPU_COUNT", toInt(&a.CPUCount))
	set("EARLY_TERMINATION", toBool(&a.EarlyTermination))
	set("COMPACT_STORAGE", toBool(&a.CompactStorage))
	set("FAULT_ACTIVATION_MOMENT", toString(&a.FaultActivationMoment))
	set("ATOMIC_LABELS", toBool(&a.AtomicLabels))
	set("GENERATE_COUNTER_EXAMPLE", toBool(&a.GenerateCounterExample))
	set("COLLECT_FAULT_SETS", toBool(&a.CollectFaultSets))
	set("CONVERGENCE_TOLERANCE", func(v string) (err error) {
		a.ConvergenceTolerance, err = cast.ToFloat64E(v)
		return err
	})
	set("MAX_ITERATIONS", toInt(&a.MaxIterations))
	set("GRAPHVIZ_DIR", toString(&a.GraphvizDir))

	return errors.Join(errs...)
}

// Moment returns the parsed fault activation moment.
func (a Analysis) Moment() executed.FaultActivationMoment {
	m, err := executed.ParseFaultActivationMoment(a.FaultActivationMoment)
	if err != nil {
		return executed.AtStepBeginning
	}
	return m
}

// Traversal returns traversal options. Analyses that build Markov models
// need step graphs and pass needStepGraphs.
func (a Analysis) Traversal(needStepGraphs bool, ac *observability.AnalysisContext) traversal.Options {
	return traversal.Options{
		Workers:       a.CPUCount,
		StateCapacity: a.ModelCapacity.States(),
		StackCapacity: a.StackCapacity,
		Labeled:       needStepGraphs || !a.CompactStorage,
		Executed: executed.Options{
			SuccessorCapacity: a.SuccessorCapacity,
			Moment:            a.Moment(),
		},
		Analysis: ac,
	}
}

// Checker returns the numerical checker options.
func (a Analysis) Checker(ac *observability.AnalysisContext) checker.Options {
	return checker.Options{
		Tolerance:     a.ConvergenceTolerance,
		MaxIterations: a.MaxIterations,
		Analysis:      ac,
	}
}
