package bdc

import (
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects run telemetry on its own registry. A nil *Metrics
// records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	evaluations     *prometheus.CounterVec
	duration        prometheus.Histogram
	memoHits        prometheus.Counter
	persistFailures prometheus.Counter
	generation      prometheus.Gauge
	best            *prometheus.GaugeVec
}

// NewMetrics creates and registers the run metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bdc_evaluations_total",
				Help: "Candidate evaluations by outcome",
			},
			[]string{"status"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bdc_evaluation_duration_seconds",
				Help:    "Wall time of simulated candidate evaluations",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
			},
		),
		memoHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bdc_memo_hits_total",
				Help: "Evaluations answered from an identical earlier candidate",
			},
		),
		persistFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bdc_persist_failures_total",
				Help: "Scattering matrices that could not be written to disk",
			},
		),
		generation: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "bdc_generation",
				Help: "Last completed generation",
			},
		),
		best: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bdc_best_objective",
				Help: "Best value of each objective in the current population",
			},
			[]string{"objective"},
		),
	}
	m.Registry.MustRegister(m.evaluations, m.duration, m.memoHits, m.persistFailures, m.generation, m.best)
	return m
}

// ObserveEvaluation counts one evaluation result.
func (m *Metrics) ObserveEvaluation(res Result) {
	if m == nil {
		return
	}
	m.evaluations.WithLabelValues(string(res.Status)).Inc()
	switch {
	case res.Memoized:
		m.memoHits.Inc()
	case res.Status == StatusOK || res.Status == StatusOracleFailed:
		m.duration.Observe(res.Duration.Seconds())
	}
}

// PersistFailed counts a scattering matrix that could not be written.
func (m *Metrics) PersistFailed() {
	if m == nil {
		return
	}
	m.persistFailures.Inc()
}

// ObserveGeneration records the generation index and its best objectives.
func (m *Metrics) ObserveGeneration(gen int, best []float64) {
	if m == nil {
		return
	}
	m.generation.Set(float64(gen))
	for i, v := range best {
		if i < len(ObjectiveNames) {
			m.best.WithLabelValues(ObjectiveNames[i]).Set(v)
		}
	}
}

// WriteTextfile writes every metric in the Prometheus text format to path.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return prometheus.WriteToTextfile(path, m.Registry)
}
