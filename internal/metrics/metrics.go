// Package metrics owns the Prometheus collectors the server exports.
//
// Collectors are registered on a caller-supplied prometheus.Registerer so
// tests can use a fresh prometheus.NewRegistry() instead of the global one.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "commit_karma"

// Delivery outcomes.
const (
	OutcomeProcessed = "processed"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

type Metrics struct {
	RequestTotal    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestErrors   *prometheus.CounterVec

	Deliveries *prometheus.CounterVec
	CheckRuns  *prometheus.CounterVec
}

// New builds the collectors and registers them on reg. A nil reg leaves them
// unregistered, which is handy in tests that never scrape.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status_class"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status_class"}),
		RequestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "errors_total",
			Help:      "Total number of HTTP requests with status >= 400.",
		}, []string{"method", "route", "status_code"}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "deliveries_total",
			Help:      "Webhook deliveries by event, action and outcome.",
		}, []string{"event", "action", "outcome"}),
		CheckRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "github",
			Name:      "check_runs_total",
			Help:      "Check runs created, by conclusion.",
		}, []string{"conclusion"}),
	}
	if reg != nil {
		reg.MustRegister(m.RequestTotal, m.RequestDuration, m.RequestErrors, m.Deliveries, m.CheckRuns)
	}
	return m
}

// ObserveDelivery counts one dispatched webhook. Safe on a nil *Metrics.
func (m *Metrics) ObserveDelivery(event, action, outcome string) {
	if m == nil {
		return
	}
	m.Deliveries.WithLabelValues(event, action, outcome).Inc()
}

// ObserveCheckRun counts one created check run. Safe on a nil *Metrics.
func (m *Metrics) ObserveCheckRun(conclusion string) {
	if m == nil {
		return
	}
	m.CheckRuns.WithLabelValues(conclusion).Inc()
}

// Handler exposes gatherer in the Prometheus text and OpenMetrics formats.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

func StatusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
