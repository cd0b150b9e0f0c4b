package measure_test

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-mlprep/pkg/pipeline/measure"
)

func TestDefaultMetric(t *testing.T) {
	t.Parallel()

	m := measure.NewDefaultMeasure()
	mt := m.AddMetric("transform", 2)

	mt.AddDuration(10 * time.Millisecond)
	mt.AddDuration(30 * time.Millisecond)
	mt.AddTransportDuration("read", 40*time.Millisecond)
	mt.AddTransportDuration("read", 80*time.Millisecond)

	assert.Equal(t, int64(2), mt.Count())
	assert.Equal(t, 20*time.Millisecond, mt.AVGDuration())

	avg := mt.AVGTransportDuration()
	require.Contains(t, avg, "read")
	assert.Equal(t, 30*time.Millisecond, avg["read"].Elapsed)
	assert.Equal(t, int64(2), avg["read"].Total)

	// averaging twice gives the same result
	assert.Equal(t, 30*time.Millisecond, mt.AVGTransportDuration()["read"].Elapsed)
	assert.Equal(t, 120*time.Millisecond, mt.AllTransports()["read"].Elapsed)
}

func TestDefaultMetricEmpty(t *testing.T) {
	t.Parallel()

	mt := measure.NewDefaultMeasure().AddMetric("sink", 0)

	assert.Zero(t, mt.AVGDuration())
	assert.Empty(t, mt.AVGTransportDuration())
	assert.Zero(t, mt.GetTotalDuration())

	mt.SetTotalDuration(time.Second)
	assert.Equal(t, time.Second, mt.GetTotalDuration())
}

func TestDefaultMeasureConcurrent(t *testing.T) {
	t.Parallel()

	m := measure.NewDefaultMeasure()
	mt := m.AddMetric("transform", 4)

	var wg sync.WaitGroup

	for range 4 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for range 100 {
				mt.AddDuration(time.Microsecond)
				mt.AddTransportDuration("read", time.Microsecond)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, int64(400), m.GetMetric("transform").Count())
	assert.Equal(t, int64(400), m.AllMetrics()["transform"].AllTransports()["read"].Total)
	assert.Nil(t, m.GetMetric("unknown"))
}

func TestExport(t *testing.T) {
	t.Parallel()

	m := measure.NewDefaultMeasure()
	mt := m.AddMetric("transform", 1)
	mt.AddDuration(2 * time.Second)
	mt.AddTransportDuration("read", time.Second)
	m.AddMetric("write", 1).SetTotalDuration(3 * time.Second)

	reg := prometheus.NewRegistry()
	require.NoError(t, measure.Export(m, reg))

	families, err := reg.Gather()
	require.NoError(t, err)

	values := make(map[string]map[string]float64)

	for _, family := range families {
		values[family.GetName()] = make(map[string]float64)

		for _, metric := range family.GetMetric() {
			key := ""
			for _, label := range metric.GetLabel() {
				key += label.GetName() + "=" + label.GetValue() + ";"
			}

			values[family.GetName()][key] = metric.GetGauge().GetValue()
		}
	}

	assert.InDelta(t, 1.0, values["mlprep_pipeline_step_elements"]["step=transform;"], 1e-9)
	assert.InDelta(t, 2.0, values["mlprep_pipeline_step_avg_duration_seconds"]["step=transform;"], 1e-9)
	assert.InDelta(t, 3.0, values["mlprep_pipeline_step_total_duration_seconds"]["step=write;"], 1e-9)
	assert.InDelta(t, 1.0, values["mlprep_pipeline_transport_avg_duration_seconds"]["input=read;step=transform;"], 1e-9)

	// registering twice on the same registry fails
	require.Error(t, measure.Export(m, reg))
}
