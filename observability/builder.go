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

	"github.com/jazzpetri/faultcheck/clock"
)

// AnalysisContextBuilder builds an AnalysisContext fluently.
type AnalysisContextBuilder struct {
	ctx     context.Context
	clock   clock.Clock
	runID   string
	logger  Logger
	metrics MetricsCollector
	tracer  Tracer
}

// NewAnalysisContextBuilder creates a builder with NoOp seams and a real
// time clock.
func NewAnalysisContextBuilder() *AnalysisContextBuilder {
	return &AnalysisContextBuilder{
		ctx:     context.Background(),
		clock:   clock.NewRealTimeClock(),
		logger:  &NoOpLogger{},
		metrics: &NoOpMetrics{},
		tracer:  &NoOpTracer{},
	}
}

// WithLogger sets the logger.
func (b *AnalysisContextBuilder) WithLogger(logger Logger) *AnalysisContextBuilder {
	b.logger = logger
	return b
}

// WithMetrics sets the metrics collector.
func (b *AnalysisContextBuilder) WithMetrics(metrics MetricsCollector) *AnalysisContextBuilder {
	b.metrics = metrics
	return b
}

// WithTracer sets the tracer.
func (b *AnalysisContextBuilder) WithTracer(tracer Tracer) *AnalysisContextBuilder {
	b.tracer = tracer
	return b
}

// WithContext sets the Go context.
func (b *AnalysisContextBuilder) WithContext(ctx context.Context) *AnalysisContextBuilder {
	b.ctx = ctx
	return b
}

// WithClock sets the clock.
func (b *AnalysisContextBuilder) WithClock(clk clock.Clock) *AnalysisContextBuilder {
	b.clock = clk
	return b
}

// WithRunID overrides the generated run id.
func (b *AnalysisContextBuilder) WithRunID(id string) *AnalysisContextBuilder {
	b.runID = id
	return b
}

// Build creates the AnalysisContext.
func (b *AnalysisContextBuilder) Build() *AnalysisContext {
	a := NewAnalysisContext(b.ctx, b.clock)
	if b.runID != "" {
		a.RunID = b.runID
	}
	if b.logger != nil {
		a.Logger = b.logger
	}
	if b.metrics != nil {
		a.Metrics = b.metrics
	}
	if b.tracer != nil {
		a.Tracer = b.tracer
	}
	return a
}
