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

package observability

import (
	"context"

	"github.com/google/uuid"

	"github.com/jazzpetri/faultcheck/clock"
)

// AnalysisContext carries the capabilities of one analysis run: cancellation,
// time, identity and the observability seams. Every seam defaults to its
// NoOp implementation, so a zero-configuration context is always usable.
//
// Contexts are values. The With methods return modified copies and leave
// the receiver untouched.
//
// Example:
//
//	actx := observability.NewAnalysisContextBuilder().
//		WithLogger(observability.NewZerologLogger(os.Stderr, zerolog.InfoLevel)).
//		WithContext(ctx).
//		Build()
//	actx.Logger.Info("exploring", actx.Fields(nil))
type AnalysisContext struct {
	// Context cancels the run.
	Context context.Context

	// Clock measures elapsed time and schedules progress reports.
	Clock clock.Clock

	// RunID identifies the run in logs and metrics.
	RunID string

	Tracer  Tracer
	Metrics MetricsCollector
	Logger  Logger
}

// NewAnalysisContext creates a context with a fresh run id and NoOp seams.
func NewAnalysisContext(ctx context.Context, clk clock.Clock) *AnalysisContext {
	if ctx == nil {
		ctx = context.Background()
	}
	if clk == nil {
		clk = clock.NewRealTimeClock()
	}
	a := &AnalysisContext{
		Context: ctx,
		Clock:   clk,
		RunID:   uuid.NewString(),
	}
	a.ensureObservability()
	return a
}

// Background returns a context suitable for tests and one-off analyses.
func Background() *AnalysisContext {
	return NewAnalysisContext(context.Background(), clock.NewRealTimeClock())
}

// OrBackground returns a if it is not nil and Background() otherwise.
func OrBackground(a *AnalysisContext) *AnalysisContext {
	if a == nil {
		return Background()
	}
	a.ensureObservability()
	return a
}

// ensureObservability replaces nil seams by NoOp implementations.
func (a *AnalysisContext) ensureObservability() {
	if a.Context == nil {
		a.Context = context.Background()
	}
	if a.Clock == nil {
		a.Clock = clock.NewRealTimeClock()
	}
	if a.Logger == nil {
		a.Logger = &NoOpLogger{}
	}
	if a.Metrics == nil {
		a.Metrics = &NoOpMetrics{}
	}
	if a.Tracer == nil {
		a.Tracer = &NoOpTracer{}
	}
}

// WithLogger returns a copy using logger.
func (a *AnalysisContext) WithLogger(logger Logger) *AnalysisContext {
	c := *a
	c.Logger = logger
	c.ensureObservability()
	return &c
}

// WithMetrics returns a copy using metrics.
func (a *AnalysisContext) WithMetrics(metrics MetricsCollector) *AnalysisContext {
	c := *a
	c.Metrics = metrics
	c.ensureObservability()
	return &c
}

// WithTracer returns a copy using tracer.
func (a *AnalysisContext) WithTracer(tracer Tracer) *AnalysisContext {
	c := *a
	c.Tracer = tracer
	c.ensureObservability()
	return &c
}

// WithContext returns a copy using ctx for cancellation.
func (a *AnalysisContext) WithContext(ctx context.Context) *AnalysisContext {
	c := *a
	c.Context = ctx
	c.ensureObservability()
	return &c
}

// Fields returns log fields that identify the run, merged with extra.
func (a *AnalysisContext) Fields(extra map[string]interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(extra)+1)
	fields["run_id"] = a.RunID
	for k, v := range extra {
		fields[k] = v
	}
	return fields
}

// Clone returns a builder initialized with the values of a.
func (a *AnalysisContext) Clone() *AnalysisContextBuilder {
	return &AnalysisContextBuilder{
		ctx:     a.Context,
		clock:   a.Clock,
		runID:   a.RunID,
		logger:  a.Logger,
		metrics: a.Metrics,
		tracer:  a.Tracer,
	}
}
