// Package metrics provides Prometheus metrics for simple-cms.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "simplecms"

// Result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics holds the collectors of one repository instance.
type Metrics struct {
	// Uploads counts media uploads by kind and result.
	Uploads *prometheus.CounterVec

	// UploadBytes counts bytes accepted for upload by kind.
	UploadBytes *prometheus.CounterVec

	// OrphanRemovals counts media removals by result.
	OrphanRemovals *prometheus.CounterVec

	// SeedFallbacks counts loads that served the built-in seed dataset.
	SeedFallbacks prometheus.Counter

	// StoreErrors counts backing store failures by operation.
	StoreErrors *prometheus.CounterVec

	// Requests counts HTTP requests by method, route and status.
	Requests *prometheus.CounterVec

	// RequestDuration observes HTTP request latency by method and route.
	RequestDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered, which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Uploads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "uploads_total",
				Help:      "Total number of media uploads",
			},
			[]string{"kind", "result"},
		),
		UploadBytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upload_bytes_total",
				Help:      "Total number of bytes submitted for upload",
			},
			[]string{"kind"},
		),
		OrphanRemovals: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "orphan_removals_total",
				Help:      "Total number of orphaned media removals",
			},
			[]string{"result"},
		),
		SeedFallbacks: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "seed_fallback_total",
				Help:      "Total number of loads that fell back to the seed dataset",
			},
		),
		StoreErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_errors_total",
				Help:      "Total number of backing store failures",
			},
			[]string{"operation"},
		),
		Requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// RecordUpload records one upload attempt.
func (m *Metrics) RecordUpload(kind string, size int64, err error) {
	if m == nil {
		return
	}
	m.Uploads.WithLabelValues(kind, result(err)).Inc()
	if err == nil && size > 0 {
		m.UploadBytes.WithLabelValues(kind).Add(float64(size))
	}
}

// RecordOrphanRemoval records one media removal attempt.
func (m *Metrics) RecordOrphanRemoval(err error) {
	if m == nil {
		return
	}
	m.OrphanRemovals.WithLabelValues(result(err)).Inc()
}

// RecordSeedFallback records a load served from the seed dataset.
func (m *Metrics) RecordSeedFallback() {
	if m == nil {
		return
	}
	m.SeedFallbacks.Inc()
}

// RecordStoreError records a failed backing store operation.
func (m *Metrics) RecordStoreError(op string) {
	if m == nil {
		return
	}
	m.StoreErrors.WithLabelValues(op).Inc()
}

// RecordRequest records one served HTTP request.
func (m *Metrics) RecordRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func result(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}
