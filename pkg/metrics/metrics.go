// Package metrics records pipeline counters with Prometheus and exports
// them in the node-exporter textfile format.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds the run, cache, model, and image collectors on a private registry.
type Recorder struct {
	registry      *prometheus.Registry
	runsTotal     *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	cacheLookups  *prometheus.CounterVec
	modelAttempts *prometheus.CounterVec
	imageFailures prometheus.Counter
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "envoy_runs_total",
				Help: "Agent runs by agent and final status",
			},
			[]string{"agent", "status"},
		),
		runDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "envoy_run_duration_seconds",
				Help:    "Wall-clock duration of agent runs",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"agent"},
		),
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "envoy_image_cache_lookups_total",
				Help: "Image cache lookups by result",
			},
			[]string{"result"},
		),
		modelAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "envoy_model_attempts_total",
				Help: "Model invocation attempts by model and outcome",
			},
			[]string{"model", "outcome"},
		),
		imageFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "envoy_image_failures_total",
				Help: "Images that failed to process",
			},
		),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// CacheLookup counts a cache hit or miss.
func (r *Recorder) CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveRun records a finished run.
func (r *Recorder) ObserveRun(agent, status string, d time.Duration) {
	r.runsTotal.WithLabelValues(agent, status).Inc()
	r.runDuration.WithLabelValues(agent).Observe(d.Seconds())
}

// ModelAttempt counts one model call.
func (r *Recorder) ModelAttempt(model string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	r.modelAttempts.WithLabelValues(model, outcome).Inc()
}

// ImageFailure counts one image that could not be processed.
func (r *Recorder) ImageFailure() {
	r.imageFailures.Inc()
}

// WriteTextfile writes all metrics to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
