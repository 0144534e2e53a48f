// Package observability exposes the service's prometheus metrics. A nil
// *Metrics is valid and records nothing.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "papertrade"

// defaultBuckets are duration buckets in seconds.
var defaultBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5}

type Metrics struct {
	registry *prometheus.Registry

	TickDuration      prometheus.Histogram
	TicksTotal        *prometheus.CounterVec
	UsersProcessed    prometheus.Gauge
	BotTradesTotal    *prometheus.CounterVec
	ManualTradesTotal *prometheus.CounterVec
	PersistenceErrors *prometheus.CounterVec
	Recommendations   *prometheus.CounterVec
	InstrumentPrice   *prometheus.GaugeVec

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	WebsocketClients    prometheus.Gauge

	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec
}

// NewMetrics registers every metric on reg. A nil reg gets a fresh registry
// carrying the Go and process collectors.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		TickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tick",
			Name:      "duration_seconds",
			Help:      "Duration of one simulation tick",
			Buckets:   defaultBuckets,
		}),
		TicksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tick",
			Name:      "total",
			Help:      "Ticks run, by outcome",
		}, []string{"status"}),
		UsersProcessed: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tick",
			Name:      "users_processed",
			Help:      "Accounts processed by the last tick",
		}),
		BotTradesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bot",
			Name:      "trades_total",
			Help:      "Autonomous trades, by side and reason",
		}, []string{"side", "reason"}),
		ManualTradesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "manual",
			Name:      "trades_total",
			Help:      "Manual trade requests, by side and outcome",
		}, []string{"side", "status"}),
		PersistenceErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "errors_total",
			Help:      "User store failures, by operation",
		}, []string{"op"}),
		Recommendations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "recommendations_total",
			Help:      "Recommendations produced per tick",
		}, []string{"recommendation"}),
		InstrumentPrice: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "price",
			Help:      "Current simulated price",
		}, []string{"symbol"}),
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests, by route and status",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   defaultBuckets,
		}, []string{"method", "route"}),
		WebsocketClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "websocket_clients",
			Help:      "Connected market feed clients",
		}),
		CircuitBreakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "circuit_breaker",
			Name:      "state",
			Help:      "Breaker state: 0=closed, 1=half-open, 2=open",
		}, []string{"name"}),
		CircuitBreakerTrips: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "circuit_breaker",
			Name:      "trips_total",
			Help:      "Times the breaker opened",
		}, []string{"name"}),
	}
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveTick(d time.Duration, status string, users int) {
	if m == nil {
		return
	}
	m.TickDuration.Observe(d.Seconds())
	m.TicksTotal.WithLabelValues(status).Inc()
	m.UsersProcessed.Set(float64(users))
}

func (m *Metrics) RecordBotTrade(side, reason string) {
	if m == nil {
		return
	}
	m.BotTradesTotal.WithLabelValues(side, reason).Inc()
}

func (m *Metrics) RecordManualTrade(side, status string) {
	if m == nil {
		return
	}
	m.ManualTradesTotal.WithLabelValues(side, status).Inc()
}

func (m *Metrics) RecordPersistenceError(op string) {
	if m == nil {
		return
	}
	m.PersistenceErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) RecordInstrument(symbol string, price float64, recommendation string) {
	if m == nil {
		return
	}
	m.InstrumentPrice.WithLabelValues(symbol).Set(price)
	m.Recommendations.WithLabelValues(recommendation).Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) AddWebsocketClients(delta int) {
	if m == nil {
		return
	}
	m.WebsocketClients.Add(float64(delta))
}

// SetCircuitBreakerState takes 0=closed, 1=half-open, 2=open.
func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
	if state == 2 {
		m.CircuitBreakerTrips.WithLabelValues(name).Inc()
	}
}
