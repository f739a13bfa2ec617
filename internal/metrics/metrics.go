package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every collector exported on /metrics.
type Metrics struct {
	// Bookmaker deposit calls by provider family and outcome
	DepositAttemptsTotal *prometheus.CounterVec
	DepositDuration      *prometheus.HistogramVec

	// Request lifecycle
	RequestsCreatedTotal *prometheus.CounterVec
	RequestStatusChanges *prometheus.CounterVec

	// HTTP surface
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	LoginAttemptsTotal *prometheus.CounterVec
}

// New registers the collectors on reg. Tests pass a fresh registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		DepositAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "casino_deposit_attempts_total",
				Help: "Deposits forwarded to bookmaker APIs",
			},
			[]string{"family", "result"},
		),
		DepositDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "casino_deposit_duration_seconds",
				Help:    "Duration of bookmaker deposit calls",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"family"},
		),
		RequestsCreatedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "requests_created_total",
				Help: "Created requests by type and channel",
			},
			[]string{"request_type", "channel"},
		),
		RequestStatusChanges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "request_status_changes_total",
				Help: "Request status changes by new status",
			},
			[]string{"request_type", "status"},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "HTTP requests by route and status code",
			},
			[]string{"method", "route", "code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		LoginAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "admin_login_attempts_total",
				Help: "Admin login attempts by result",
			},
			[]string{"result"},
		),
	}
}

// The helpers below accept a nil receiver so optional wiring stays cheap.

func (m *Metrics) ObserveDeposit(family string, success bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.DepositAttemptsTotal.WithLabelValues(family, outcome(success)).Inc()
	m.DepositDuration.WithLabelValues(family).Observe(elapsed.Seconds())
}

func (m *Metrics) RequestCreated(requestType, channel string) {
	if m == nil {
		return
	}
	m.RequestsCreatedTotal.WithLabelValues(requestType, channel).Inc()
}

func (m *Metrics) StatusChanged(requestType, status string) {
	if m == nil {
		return
	}
	m.RequestStatusChanges.WithLabelValues(requestType, status).Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) LoginAttempt(success bool) {
	if m == nil {
		return
	}
	m.LoginAttemptsTotal.WithLabelValues(outcome(success)).Inc()
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
