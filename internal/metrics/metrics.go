// Package metrics records pipeline measurements with Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds the pipeline collectors on its own registry, so several
// pipelines in one process do not collide on the default registerer.
type Recorder struct {
	registry     *prometheus.Registry
	foldDuration *prometheus.HistogramVec
	foldFailures *prometheus.CounterVec
	stageLatency *prometheus.HistogramVec
	stageErrors  *prometheus.CounterVec
	candidates   prometheus.Gauge
}

// New creates a recorder with a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		foldDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "autoforecast_fold_duration_seconds",
				Help:    "Wall time of one candidate fit and predict on one fold",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"candidate"},
		),
		foldFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autoforecast_fold_failures_total",
				Help: "Folds that failed to fit or predict",
			},
			[]string{"candidate"},
		),
		stageLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "autoforecast_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		stageErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autoforecast_stage_errors_total",
				Help: "Pipeline stage failures by error kind",
			},
			[]string{"stage", "kind"},
		),
		candidates: factory.NewGauge(prometheus.GaugeOpts{
			Name: "autoforecast_viable_candidates",
			Help: "Candidates that survived cross-validation in the last run",
		}),
	}
}

// Registry exposes the registry for scraping or inspection.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// RecordFold records one fold evaluation.
func (r *Recorder) RecordFold(candidate string, seconds float64, failed bool) {
	if r == nil {
		return
	}
	r.foldDuration.WithLabelValues(candidate).Observe(seconds)
	if failed {
		r.foldFailures.WithLabelValues(candidate).Inc()
	}
}

// RecordStage records a stage duration and, for failures, its error kind.
func (r *Recorder) RecordStage(stage string, seconds float64, kind string) {
	if r == nil {
		return
	}
	r.stageLatency.WithLabelValues(stage).Observe(seconds)
	if kind != "" {
		r.stageErrors.WithLabelValues(stage, kind).Inc()
	}
}

// SetViable records how many candidates were ranked as viable.
func (r *Recorder) SetViable(n int) {
	if r == nil {
		return
	}
	r.candidates.Set(float64(n))
}

// WriteTextfile writes the current values in the Prometheus text format,
// for pickup by a node exporter textfile collector after a batch run.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
