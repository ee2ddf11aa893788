package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CartSyncMetrics records outcomes of backend cart persistence attempts.
type CartSyncMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	retries  *prometheus.CounterVec
}

// NewCartSyncMetrics registers the cart sync metrics on the provided registerer.
func NewCartSyncMetrics(reg prometheus.Registerer) *CartSyncMetrics {
	if reg == nil {
		return &CartSyncMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cart_sync_duration_seconds",
		Help:    "Duration of backend cart persistence attempts in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_sync_success",
		Help: "Successful backend cart persistence attempts.",
	}, []string{"operation"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_sync_failure",
		Help: "Failed backend cart persistence attempts.",
	}, []string{"operation"})
	retries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_sync_retries",
		Help: "Backend cart persistence attempts scheduled for retry.",
	}, []string{"operation"})
	reg.MustRegister(duration, success, failure, retries)
	return &CartSyncMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		retries:  retries,
	}
}

// ObserveDuration records the duration for the named operation.
func (c *CartSyncMetrics) ObserveDuration(operation string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named operation.
func (c *CartSyncMetrics) IncSuccess(operation string) {
	if c == nil || c.success == nil {
		return
	}
	c.success.WithLabelValues(normalizeLabel(operation)).Inc()
}

// IncFailure increments the failure counter for the named operation.
func (c *CartSyncMetrics) IncFailure(operation string) {
	if c == nil || c.failure == nil {
		return
	}
	c.failure.WithLabelValues(normalizeLabel(operation)).Inc()
}

// IncRetry increments the retry counter for the named operation.
func (c *CartSyncMetrics) IncRetry(operation string) {
	if c == nil || c.retries == nil {
		return
	}
	c.retries.WithLabelValues(normalizeLabel(operation)).Inc()
}

func normalizeLabel(operation string) string {
	if operation == "" {
		return "unknown"
	}
	return operation
}
