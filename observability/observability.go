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

// Package observability carries logging, metrics and tracing through the
// analyses.
//
// Every long running operation (traversal, model checking, invariant
// checking, simulation) receives an AnalysisContext. It bundles the Go
// context used for cancellation, a Clock, a run identifier and three seams:
//   - Logger: leveled structured logging with map fields
//   - MetricsCollector: counters, gauges and histograms
//   - Tracer: spans around the phases of an analysis
//
// All seams default to NoOp implementations. ZerologLogger and
// InMemoryMetrics are the concrete implementations used by the command line
// tool and the tests.
//
//	actx := observability.NewAnalysisContextBuilder().
//	    WithLogger(observability.NewZerologLogger(os.Stderr, zerolog.InfoLevel)).
//	    WithMetrics(observability.NewInMemoryMetrics()).
//	    Build()
//	actx.Logger.Info("traversal started", map[string]interface{}{
//	    "run_id": actx.RunID,
//	})
package observability

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	// StartSpan starts a span that is ended with Span.End.
	StartSpan(name string) Span
}

// Span is one traced unit of work.
type Span interface {
	End()
	SetAttribute(key string, value interface{})
	RecordError(err error)
}

// MetricsCollector records metrics. Implementations must be safe for
// concurrent use.
//
// Counter names end in _total, durations in _seconds.
type MetricsCollector interface {
	// Inc increments a counter by one.
	Inc(name string)

	// Add adds value to a counter or gauge.
	Add(name string, value float64)

	// Observe records a histogram sample.
	Observe(name string, value float64)

	// Set sets a gauge.
	Set(name string, value float64)
}

// Logger is a leveled structured logger. Implementations must be safe for
// concurrent use.
//
//	logger.Warn("convergence not reached", map[string]interface{}{
//	    "iterations": 1000000,
//	    "delta":      delta,
//	})
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Metric names recorded by the analyses.
const (
	MetricStatesTotal              = "traversal_states_total"
	MetricTransitionsTotal         = "traversal_transitions_total"
	MetricComputedTransitionsTotal = "traversal_computed_transitions_total"
	MetricTraversalDuration        = "traversal_duration_seconds"
	MetricWorkerStates             = "traversal_worker_states"
	MetricFrontierSize             = "traversal_frontier_size"

	MetricCheckerIterationsTotal = "checker_iterations_total"
	MetricCheckerDuration        = "checker_duration_seconds"

	MetricInvariantViolationsTotal = "verification_violations_total"

	MetricSimulationRunsTotal = "simulation_runs_total"
	MetricSimulationHitsTotal = "simulation_hits_total"
	MetricSimulationDuration  = "simulation_duration_seconds"
)
