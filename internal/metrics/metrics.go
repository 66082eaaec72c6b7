// Package metrics owns the Prometheus registry for the server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "medorder"

// Metrics is nil-safe: every recording method is a no-op on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	WizardTransitions *prometheus.CounterVec
	OrdersSubmitted   *prometheus.CounterVec
	StatementsBuilt   *prometheus.CounterVec

	DownloadAttempts *prometheus.CounterVec
	DownloadResults  *prometheus.CounterVec

	GatewayCalls        *prometheus.CounterVec
	CircuitBreakerState *prometheus.GaugeVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{registry: registry}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	m.HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"method", "route"})

	m.WizardTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "wizard_transitions_total",
		Help:      "Wizard navigation attempts by direction and outcome",
	}, []string{"direction", "outcome"})

	m.OrdersSubmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_submitted_total",
		Help:      "Orders submitted through the wizard",
	}, []string{"status"})

	m.StatementsBuilt = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "statements_built_total",
		Help:      "Order statements built by reconciliation outcome",
	}, []string{"outcome"})

	m.DownloadAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "statement_download_attempts_total",
		Help:      "Statement delivery attempts",
	}, []string{"mode", "outcome"})

	m.DownloadResults = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "statement_downloads_total",
		Help:      "Statement downloads by final outcome",
	}, []string{"mode", "outcome"})

	m.GatewayCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gateway_calls_total",
		Help:      "Calls to the privileged REST gateway",
	}, []string{"operation", "outcome"})

	m.CircuitBreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "circuit_breaker_state",
		Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
	}, []string{"name"})

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.WizardTransitions,
		m.OrdersSubmitted,
		m.StatementsBuilt,
		m.DownloadAttempts,
		m.DownloadResults,
		m.GatewayCalls,
		m.CircuitBreakerState,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveHTTP(method string, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) WizardTransition(direction string, ok bool) {
	if m == nil {
		return
	}
	m.WizardTransitions.WithLabelValues(direction, outcome(ok)).Inc()
}

func (m *Metrics) OrderSubmitted(status string) {
	if m == nil {
		return
	}
	m.OrdersSubmitted.WithLabelValues(status).Inc()
}

func (m *Metrics) StatementBuilt(reconciled bool) {
	if m == nil {
		return
	}
	label := "reconciled"
	if !reconciled {
		label = "mismatch"
	}
	m.StatementsBuilt.WithLabelValues(label).Inc()
}

func (m *Metrics) DownloadAttempt(mode string, ok bool) {
	if m == nil {
		return
	}
	m.DownloadAttempts.WithLabelValues(mode, outcome(ok)).Inc()
}

func (m *Metrics) DownloadResult(mode string, ok bool) {
	if m == nil {
		return
	}
	m.DownloadResults.WithLabelValues(mode, outcome(ok)).Inc()
}

func (m *Metrics) GatewayCall(operation string, ok bool) {
	if m == nil {
		return
	}
	m.GatewayCalls.WithLabelValues(operation, outcome(ok)).Inc()
}

func (m *Metrics) SetBreakerState(name string, state float64) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.WithLabelValues(name).Set(state)
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
