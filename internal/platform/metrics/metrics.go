// Package metrics holds the Prometheus instruments for the enrollment
// pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	ChunksReceived   prometheus.Counter
	UploadsAssembled *prometheus.CounterVec
	RowsDispatched   *prometheus.CounterVec
	JobsProcessed    *prometheus.CounterVec
	JobRetries       *prometheus.CounterVec
	LedgerCallMs     prometheus.Histogram
	RequestLatencyMs *prometheus.HistogramVec
}

// New creates all metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith creates all metrics on reg. Tests pass a fresh registry so
// repeated construction never collides.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ChunksReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "enrolld_chunks_received_total",
			Help: "Total number of upload chunks received",
		}),
		UploadsAssembled: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "enrolld_uploads_assembled_total",
			Help: "Total number of uploads reassembled, by outcome",
		}, []string{"outcome"}),
		RowsDispatched: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "enrolld_rows_dispatched_total",
			Help: "Total number of batch rows published to lanes, by result",
		}, []string{"result"}),
		JobsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "enrolld_jobs_processed_total",
			Help: "Total number of lane jobs processed, by lane and outcome",
		}, []string{"lane", "outcome"}),
		JobRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "enrolld_job_retries_total",
			Help: "Total number of lane jobs republished for retry, by lane",
		}, []string{"lane"}),
		LedgerCallMs: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "enrolld_ledger_call_duration_ms",
			Help:    "Latency of external ledger calls in milliseconds",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}),
		RequestLatencyMs: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "enrolld_http_request_duration_ms",
			Help:    "HTTP request latency in milliseconds, by route",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}, []string{"route"}),
	}
}

// ObserveLedgerCall records one external ledger call duration.
func (m *Metrics) ObserveLedgerCall(d time.Duration) {
	m.LedgerCallMs.Observe(float64(d.Microseconds()) / 1000.0)
}
