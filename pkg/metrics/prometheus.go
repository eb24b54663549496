package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	forecasts   *prometheus.CounterVec
	inferences  *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	anchor      *prometheus.GaugeVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		forecasts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forexserver_forecasts_total",
				Help: "Forecast requests by outcome (cache_hit or recomputed)",
			},
			[]string{"pair", "period", "outcome"},
		),
		inferences: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forexserver_model_inferences_total",
				Help: "Autoregressive rollout executions per pair",
			},
			[]string{"pair"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forexserver_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "forexserver_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		anchor: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "forexserver_last_close",
				Help: "Last observed close price per pair and period",
			},
			[]string{"pair", "period"},
		),
	}
}

// RecordForecast counts a served forecast by outcome.
func (r *Recorder) RecordForecast(pair, period, outcome string) {
	r.forecasts.WithLabelValues(pair, period, outcome).Inc()
}

// RecordInference counts one model rollout.
func (r *Recorder) RecordInference(pair string) {
	r.inferences.WithLabelValues(pair).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordAnchor records the last observed close a forecast was computed from.
func (r *Recorder) RecordAnchor(pair, period string, value float64) {
	r.anchor.WithLabelValues(pair, period).Set(value)
}
