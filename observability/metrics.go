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
	"slices"
	"sync"
)

// InMemoryMetrics keeps all metrics in memory. Counters and gauges share one
// namespace; histograms keep every sample.
//
// InMemoryMetrics is safe for concurrent use. Tests attach it to an
// AnalysisContext and read the values back once the run is done.
//
// Example:
//
//	metrics := observability.NewInMemoryMetrics()
//	actx := observability.NewAnalysisContextBuilder().WithMetrics(metrics).Build()
//	runExploration(actx)
//	states := metrics.Value(observability.MetricStatesTotal)
type InMemoryMetrics struct {
	mu         sync.RWMutex
	values     map[string]float64
	histograms map[string][]float64
}

var _ MetricsCollector = (*InMemoryMetrics)(nil)

// NewInMemoryMetrics creates an empty collector.
func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{
		values:     make(map[string]float64),
		histograms: make(map[string][]float64),
	}
}

// Inc implements MetricsCollector.
func (m *InMemoryMetrics) Inc(name string) {
	m.Add(name, 1)
}

// Add implements MetricsCollector.
func (m *InMemoryMetrics) Add(name string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[name] += value
}

// Observe implements MetricsCollector.
func (m *InMemoryMetrics) Observe(name string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms[name] = append(m.histograms[name], value)
}

// Set implements MetricsCollector.
func (m *InMemoryMetrics) Set(name string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[name] = value
}

// Value returns the value of a counter or gauge.
func (m *InMemoryMetrics) Value(name string) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.values[name]
}

// Samples returns a copy of the samples of a histogram.
func (m *InMemoryMetrics) Samples(name string) []float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.histograms[name])
}

// Names returns the names of all recorded metrics in sorted order.
func (m *InMemoryMetrics) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.values)+len(m.histograms))
	for n := range m.values {
		names = append(names, n)
	}
	for n := range m.histograms {
		if _, ok := m.values[n]; !ok {
			names = append(names, n)
		}
	}
	slices.Sort(names)
	return names
}
