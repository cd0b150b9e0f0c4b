package measure

import (
	"sync"
	"time"
)

// TransportInfo accumulates the time spent receiving from one input step.
type TransportInfo struct {
	Elapsed time.Duration
	Total   int64
}

// DefaultMetric is a Metric safe for concurrent use.
type DefaultMetric struct {
	mu            sync.Mutex
	allTransports map[string]*TransportInfo
	EndDuration   time.Duration
	stepElapsed   time.Duration
	total         int64
	concurrent    int
}

func (mt *DefaultMetric) AddDuration(elapsed time.Duration) {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	mt.total++
	mt.stepElapsed += elapsed
}

func (mt *DefaultMetric) SetTotalDuration(endDuration time.Duration) {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	mt.EndDuration = endDuration
}

func (mt *DefaultMetric) GetTotalDuration() time.Duration {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.EndDuration
}

func (mt *DefaultMetric) AddTransportDuration(inputStepName string, elapsed time.Duration) {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	if mt.allTransports[inputStepName] == nil {
		mt.allTransports[inputStepName] = &TransportInfo{}
	}

	ch := mt.allTransports[inputStepName]
	ch.Elapsed += elapsed
	ch.Total++
}

// Count returns how many elements the step produced.
func (mt *DefaultMetric) Count() int64 {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.total
}

// AVGDuration returns the mean computation time per element.
func (mt *DefaultMetric) AVGDuration() time.Duration {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	if mt.total == 0 {
		return time.Duration(0)
	}

	return round(time.Duration(float64(mt.stepElapsed) / float64(mt.total)))
}

// AVGTransportDuration returns, per input step, the mean wait per element divided by the number of
// workers of the step.
func (mt *DefaultMetric) AVGTransportDuration() map[string]*TransportInfo {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	avg := make(map[string]*TransportInfo, len(mt.allTransports))

	for name, ch := range mt.allTransports {
		info := &TransportInfo{Total: ch.Total}
		if ch.Total > 0 {
			info.Elapsed = round(time.Duration(float64(ch.Elapsed) / float64(ch.Total) / float64(mt.concurrent)))
		}

		avg[name] = info
	}

	return avg
}

// AllTransports returns a copy of the accumulated transport durations.
func (mt *DefaultMetric) AllTransports() map[string]*TransportInfo {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	all := make(map[string]*TransportInfo, len(mt.allTransports))
	for name, ch := range mt.allTransports {
		all[name] = &TransportInfo{Elapsed: ch.Elapsed, Total: ch.Total}
	}

	return all
}

func round(d time.Duration) time.Duration {
	switch {
	case d > time.Hour:
		d = d.Round(time.Minute)
	case d > time.Second:
		d = d.Round(time.Millisecond)
	case d > time.Millisecond:
		d = d.Round(time.Microsecond)
	}

	return d
}

var _ Metric = (*DefaultMetric)(nil)
