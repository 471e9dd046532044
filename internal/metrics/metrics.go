// Package metrics registers the Prometheus collectors of the API.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors. A nil *Metrics records nothing.
type Metrics struct {
	AuthzDecisions *prometheus.CounterVec
	SeededRows     *prometheus.CounterVec
	HTTPRequests   *prometheus.CounterVec
	HTTPDuration   *prometheus.HistogramVec
}

// New creates and registers the collectors on reg, reusing collectors that
// are already registered
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		AuthzDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authz_decisions_total",
			Help: "Authorization decisions by result and reason.",
		}, []string{"result", "reason"}),
		SeededRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "permission_seed_rows_total",
			Help: "Rows inserted by the permission bootstrap per step.",
		}, []string{"step"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	if err := register(reg, &m.AuthzDecisions); err != nil {
		return nil, err
	}
	if err := register(reg, &m.SeededRows); err != nil {
		return nil, err
	}
	if err := register(reg, &m.HTTPRequests); err != nil {
		return nil, err
	}
	if err := registerHistogram(reg, &m.HTTPDuration); err != nil {
		return nil, err
	}
	return m, nil
}

func register(reg prometheus.Registerer, c **prometheus.CounterVec) error {
	if err := reg.Register(*c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				*c = existing
				return nil
			}
		}
		return err
	}
	return nil
}

func registerHistogram(reg prometheus.Registerer, h **prometheus.HistogramVec) error {
	if err := reg.Register(*h); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.HistogramVec); ok {
				*h = existing
				return nil
			}
		}
		return err
	}
	return nil
}

func (m *Metrics) Decision(allowed bool, reason string) {
	if m == nil {
		return
	}
	result := "deny"
	if allowed {
		result = "allow"
	}
	m.AuthzDecisions.WithLabelValues(result, reason).Inc()
}

func (m *Metrics) Seeded(step string, rows int64) {
	if m == nil || rows <= 0 {
		return
	}
	m.SeededRows.WithLabelValues(step).Add(float64(rows))
}

func (m *Metrics) Request(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
