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
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jazzpetri/faultcheck/clock"
)

// LogCall is one captured log entry.
type LogCall struct {
	Level  string
	Msg    string
	Fields map[string]interface{}
}

// MockLogger captures log calls.
type MockLogger struct {
	mu    sync.Mutex
	calls []LogCall
}

func (m *MockLogger) log(level, msg string, fields map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, LogCall{Level: level, Msg: msg, Fields: fields})
}

func (m *MockLogger) Debug(msg string, fields map[string]interface{}) { m.log("debug", msg, fields) }
func (m *MockLogger) Info(msg string, fields map[string]interface{})  { m.log("info", msg, fields) }
func (m *MockLogger) Warn(msg string, fields map[string]interface{})  { m.log("warn", msg, fields) }
func (m *MockLogger) Error(msg string, fields map[string]interface{}) { m.log("error", msg, fields) }

// TestNewAnalysisContext_DefaultsToNoOp makes sure no seam is ever nil.
func TestNewAnalysisContext_DefaultsToNoOp(t *testing.T) {
	a := NewAnalysisContext(nil, nil)

	assert.NotNil(t, a.Context)
	assert.NotNil(t, a.Clock)
	assert.IsType(t, &NoOpLogger{}, a.Logger)
	assert.IsType(t, &NoOpMetrics{}, a.Metrics)
	assert.IsType(t, &NoOpTracer{}, a.Tracer)
	assert.Len(t, a.RunID, 36)

	b := a.WithLogger(nil)
	assert.IsType(t, &NoOpLogger{}, b.Logger)
}

func TestAnalysisContext_RunIDsAreUnique(t *testing.T) {
	assert.NotEqual(t, Background().RunID, Background().RunID)
}

func TestOrBackground(t *testing.T) {
	assert.NotNil(t, OrBackground(nil).Logger)

	a := &AnalysisContext{RunID: "r"}
	assert.Same(t, a, OrBackground(a))
	assert.NotNil(t, a.Metrics)
}

// TestBuilder_Build builds a context with every seam replaced.
func TestBuilder_Build(t *testing.T) {
	logger := &MockLogger{}
	metrics := NewInMemoryMetrics()
	clk := clock.NewVirtualClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := NewAnalysisContextBuilder().
		WithLogger(logger).
		WithMetrics(metrics).
		WithClock(clk).
		WithContext(ctx).
		WithRunID("run-1").
		Build()

	assert.Same(t, logger, a.Logger)
	assert.Same(t, metrics, a.Metrics)
	assert.Same(t, clk, a.Clock)
	assert.Equal(t, "run-1", a.RunID)

	clone := a.Clone().WithTracer(&NoOpTracer{}).Build()
	assert.Equal(t, "run-1", clone.RunID)
	assert.Same(t, logger, clone.Logger)
}

// TestAnalysisContext_Fields adds the run id to every log entry.
func TestAnalysisContext_Fields(t *testing.T) {
	logger := &MockLogger{}
	a := NewAnalysisContextBuilder().WithLogger(logger).WithRunID("r").Build()

	a.Logger.Info("traversal finished", a.Fields(map[string]interface{}{"states": 13}))

	require.Len(t, logger.calls, 1)
	assert.Equal(t, map[string]interface{}{"run_id": "r", "states": 13}, logger.calls[0].Fields)
}

// TestInMemoryMetrics keeps the last gauge value and every sample, and
// lists metric names sorted.
func TestInMemoryMetrics(t *testing.T) {
	m := NewInMemoryMetrics()
	m.Inc(MetricStatesTotal)
	m.Add(MetricStatesTotal, 2)
	m.Set(MetricFrontierSize, 7)
	m.Set(MetricFrontierSize, 3)
	m.Observe(MetricTraversalDuration, 0.5)
	m.Observe(MetricTraversalDuration, 1.5)

	assert.Equal(t, 3.0, m.Value(MetricStatesTotal))
	assert.Equal(t, 3.0, m.Value(MetricFrontierSize))
	assert.Equal(t, []float64{0.5, 1.5}, m.Samples(MetricTraversalDuration))
	// traversal_duration_seconds < traversal_frontier_size < traversal_states_total
	assert.Equal(t, []string{MetricTraversalDuration, MetricFrontierSize, MetricStatesTotal}, m.Names())
}

// TestInMemoryMetrics_Concurrent increments one counter from many
// goroutines.
func TestInMemoryMetrics_Concurrent(t *testing.T) {
	m := NewInMemoryMetrics()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Inc(MetricTransitionsTotal)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 800.0, m.Value(MetricTransitionsTotal))
}

// TestZerologLogger writes JSON lines with the structured fields.
func TestZerologLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf, zerolog.InfoLevel)

	logger.Debug("hidden", nil)
	logger.Warn("capacity low", map[string]interface{}{"capacity": 16})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "capacity low", entry["message"])
	assert.Equal(t, 16.0, entry["capacity"])
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, l)
}

// TestMetricNames_FollowConvention checks the suffixes of the metric names.
func TestMetricNames_FollowConvention(t *testing.T) {
	counters := []string{
		MetricStatesTotal, MetricTransitionsTotal, MetricComputedTransitionsTotal,
		MetricCheckerIterationsTotal, MetricInvariantViolationsTotal,
		MetricSimulationRunsTotal, MetricSimulationHitsTotal,
	}
	for _, name := range counters {
		assert.True(t, strings.HasSuffix(name, "_total"), name)
	}

	durations := []string{MetricTraversalDuration, MetricCheckerDuration, MetricSimulationDuration}
	for _, name := range durations {
		assert.True(t, strings.HasSuffix(name, "_seconds"), name)
	}

	gauges := []string{MetricWorkerStates, MetricFrontierSize}
	for _, name := range gauges {
		assert.False(t, strings.HasSuffix(name, "_total"), name)
	}
}
