package measure

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "mlprep"

// Export publishes the current values of m as gauges registered on reg.
func Export(m Measure, reg prometheus.Registerer) error {
	elements := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "step_elements",
		Help:      "Number of elements produced by a pipeline step.",
	}, []string{"step"})

	avg := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "step_avg_duration_seconds",
		Help:      "Mean computation time per element of a pipeline step.",
	}, []string{"step"})

	total := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "step_total_duration_seconds",
		Help:      "Time from the start of the pipeline to the end of a sink.",
	}, []string{"step"})

	transport := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "transport_avg_duration_seconds",
		Help:      "Mean wait per element between two pipeline steps.",
	}, []string{"step", "input"})

	for _, c := range []prometheus.Collector{elements, avg, total, transport} {
		if err := reg.Register(c); err != nil {
			return errors.Wrap(err, "unable to register pipeline metric")
		}
	}

	for name, mt := range m.AllMetrics() {
		elements.WithLabelValues(name).Set(float64(mt.Count()))
		avg.WithLabelValues(name).Set(mt.AVGDuration().Seconds())

		if d := mt.GetTotalDuration(); d > 0 {
			total.WithLabelValues(name).Set(d.Seconds())
		}

		for input, info := range mt.AVGTransportDuration() {
			transport.WithLabelValues(name, input).Set(info.Elapsed.Seconds())
		}
	}

	return nil
}
