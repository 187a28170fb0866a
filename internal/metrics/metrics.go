// Package metrics holds the Prometheus collectors for plan generation and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "daychain"

// Metrics owns a private registry so tests and multiple servers do not collide. All
// methods are safe on a nil receiver.
type Metrics struct {
	Registry *prometheus.Registry

	plansGenerated *prometheus.CounterVec
	blocksSkipped  *prometheus.CounterVec
	degrades       prometheus.Counter
	chainEdits     *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		plansGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "planner",
			Name:      "plans_generated_total",
			Help:      "Daily plans generated, by whether the tail plan was used.",
		}, []string{"tail_plan"}),
		blocksSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "planner",
			Name:      "blocks_skipped_total",
			Help:      "Blocks, meals and chain steps skipped during generation, by reason.",
		}, []string{"reason"}),
		degrades: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "planner",
			Name:      "degrades_total",
			Help:      "Plans degraded.",
		}),
		chainEdits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "planner",
			Name:      "chain_edits_total",
			Help:      "Chain step edits, by operation and outcome code.",
		}, []string{"op", "code"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		}, []string{"method", "route"}),
	}

	m.Registry.MustRegister(
		m.plansGenerated,
		m.blocksSkipped,
		m.degrades,
		m.chainEdits,
		m.httpRequests,
		m.httpDuration,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return m
}

// Handler exposes the registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) PlanGenerated(tailPlan bool) {
	if m == nil {
		return
	}
	m.plansGenerated.WithLabelValues(strconv.FormatBool(tailPlan)).Inc()
}

func (m *Metrics) Skipped(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.blocksSkipped.WithLabelValues(reason).Inc()
}

func (m *Metrics) Degraded() {
	if m == nil {
		return
	}
	m.degrades.Inc()
}

// ChainEdit records one edit. code is empty on success.
func (m *Metrics) ChainEdit(op, code string) {
	if m == nil {
		return
	}
	if code == "" {
		code = "OK"
	}
	m.chainEdits.WithLabelValues(op, code).Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	method = strings.ToUpper(method)
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
