// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups every collector the service records into.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec   // method, path, status_code
	HTTPRequestDuration *prometheus.HistogramVec // method, path

	// ReservationsTotal counts reservation writes by operation
	// (create, edit, cancel, delete) and outcome (success, conflict,
	// capacity, cutoff, invalid, lock_failed, error).
	ReservationsTotal  *prometheus.CounterVec
	LockWait           *prometheus.HistogramVec // status: acquired, failed
	NotificationsTotal *prometheus.CounterVec   // kind, result: published, failed
	RemainingCache     *prometheus.CounterVec   // result: hit, miss
}

// New registers on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "http_requests_total", Help: "Total number of HTTP requests"},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		ReservationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "reservations_total", Help: "Reservation writes by operation and outcome"},
			[]string{"operation", "outcome"},
		),
		LockWait: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "showing_lock_wait_seconds",
				Help:    "Time spent acquiring the per-showing lock",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"status"},
		),
		NotificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "notifications_total", Help: "Notification events by kind and result"},
			[]string{"kind", "result"},
		),
		RemainingCache: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "remaining_cache_total", Help: "Remaining-seat cache lookups"},
			[]string{"result"},
		),
	}
	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ReservationsTotal,
		m.LockWait,
		m.NotificationsTotal,
		m.RemainingCache,
	)
	return m
}

// Reservation records one write.  A nil receiver records nothing, so
// services can run without metrics in tests.
func (m *Metrics) Reservation(operation, outcome string) {
	if m == nil {
		return
	}
	m.ReservationsTotal.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) LockWaited(d time.Duration, acquired bool) {
	if m == nil {
		return
	}
	status := "acquired"
	if !acquired {
		status = "failed"
	}
	m.LockWait.WithLabelValues(status).Observe(d.Seconds())
}

func (m *Metrics) Notification(kind string, published bool) {
	if m == nil {
		return
	}
	result := "published"
	if !published {
		result = "failed"
	}
	m.NotificationsTotal.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "hit"
	if !hit {
		result = "miss"
	}
	m.RemainingCache.WithLabelValues(result).Inc()
}
