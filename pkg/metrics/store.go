package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics records storage engine transaction timings and failures.
type StoreMetrics struct {
	duration *prometheus.HistogramVec
	failure  *prometheus.CounterVec
}

// NewStoreMetrics registers the store metrics on the provided registerer.
func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	if reg == nil {
		return &StoreMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "plexo_store_tx_duration_seconds",
		Help:    "Duration of storage engine transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "plexo_store_tx_failures_total",
		Help: "Failed storage engine transactions by error code.",
	}, []string{"op", "code"})
	reg.MustRegister(duration, failure)
	return &StoreMetrics{
		duration: duration,
		failure:  failure,
	}
}

// ObserveDuration records the duration for the named operation.
func (s *StoreMetrics) ObserveDuration(op string, duration time.Duration) {
	if s == nil || s.duration == nil {
		return
	}
	s.duration.WithLabelValues(normalizeLabel(op)).Observe(duration.Seconds())
}

// IncFailure increments the failure counter for the operation and error code.
func (s *StoreMetrics) IncFailure(op, code string) {
	if s == nil || s.failure == nil {
		return
	}
	s.failure.WithLabelValues(normalizeLabel(op), normalizeLabel(code)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
