package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	requests    *prometheus.CounterVec
	retries     *prometheus.CounterVec
	candidates  *prometheus.CounterVec
	curated     *prometheus.GaugeVec
	errorsTotal *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

// New creates a recorder registered on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a recorder registered on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chartcrime_api_requests_total",
				Help: "Total number of data API requests by endpoint and outcome",
			},
			[]string{"endpoint", "outcome"},
		),
		retries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chartcrime_api_retries_total",
				Help: "Total number of data API retries by endpoint and reason",
			},
			[]string{"endpoint", "reason"},
		),
		candidates: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chartcrime_candidates_total",
				Help: "Candidate series processed by outcome",
			},
			[]string{"outcome"},
		),
		curated: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "chartcrime_curated_series",
				Help: "Series in the latest rotation by category",
			},
			[]string{"category"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chartcrime_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chartcrime_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordRequest records one data API call.
func (r *Recorder) RecordRequest(endpoint, outcome string) {
	r.requests.WithLabelValues(endpoint, outcome).Inc()
}

// RecordRetry records a retried data API call.
func (r *Recorder) RecordRetry(endpoint, reason string) {
	r.retries.WithLabelValues(endpoint, reason).Inc()
}

// RecordCandidate records the outcome for one candidate series.
func (r *Recorder) RecordCandidate(outcome string) {
	r.candidates.WithLabelValues(outcome).Inc()
}

// RecordCurated sets the size of a rotation category.
func (r *Recorder) RecordCurated(category string, n int) {
	r.curated.WithLabelValues(category).Set(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards all measurements.
type Nop struct{}

func (Nop) RecordRequest(string, string)  {}
func (Nop) RecordRetry(string, string)    {}
func (Nop) RecordCandidate(string)        {}
func (Nop) RecordCurated(string, int)     {}
func (Nop) RecordError(string)            {}
func (Nop) RecordLatency(string, float64) {}
