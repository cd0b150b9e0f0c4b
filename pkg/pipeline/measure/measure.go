// Package measure records how long each pipeline step spends computing and waiting on its inputs.
package measure

import (
	"sync"
)

// DefaultMeasure is an in-memory Measure safe for concurrent use.
type DefaultMeasure struct {
	mu    sync.RWMutex
	steps map[string]Metric
}

// NewDefaultMeasure returns an empty measure.
func NewDefaultMeasure() *DefaultMeasure {
	return &DefaultMeasure{
		steps: make(map[string]Metric),
	}
}

// AddMetric registers a metric for the step name, replacing any previous one.
func (m *DefaultMeasure) AddMetric(name string, concurrent int) Metric {
	mt := &DefaultMetric{
		allTransports: make(map[string]*TransportInfo),
		concurrent:    max(concurrent, 1),
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.steps[name] = mt

	return mt
}

// GetMetric returns the metric of the step name, or nil.
func (m *DefaultMeasure) GetMetric(name string) Metric {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.steps[name]
}

// AllMetrics returns a copy of the metrics keyed by step name.
func (m *DefaultMeasure) AllMetrics() map[string]Metric {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make(map[string]Metric, len(m.steps))
	for name, mt := range m.steps {
		all[name] = mt
	}

	return all
}

var _ Measure = (*DefaultMeasure)(nil)
