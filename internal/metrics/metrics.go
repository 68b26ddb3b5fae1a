// Package metrics exposes Prometheus counters for the HTTP layer, logins
// and item writes. A nil *Metrics records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shoplist"

// Login outcomes.
const (
	LoginSucceeded = "success"
	LoginFailed    = "failure"
	LoginLocked    = "locked"
)

type Metrics struct {
	registry *prometheus.Registry

	requests    *prometheus.HistogramVec
	logins      *prometheus.CounterVec
	lockouts    prometheus.Counter
	itemWrites  *prometheus.CounterVec
	cacheLookup *prometheus.CounterVec
}

// New builds the collectors on a private registry, so several instances can
// coexist in one process.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		lockouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_lockouts_total",
			Help:      "Failed logins that left the client address locked.",
		}),
		itemWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "item_writes_total",
			Help:      "Successful item mutations by action.",
		}, []string{"action"}),
		cacheLookup: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "item_cache_lookups_total",
			Help:      "Item list cache lookups by result.",
		}, []string{"result"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.logins, m.lockouts, m.itemWrites, m.cacheLookup,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest records one finished request. route is the matched
// pattern, never the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

func (m *Metrics) Login(outcome string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Lockout() {
	if m == nil {
		return
	}
	m.lockouts.Inc()
}

func (m *Metrics) ItemWrite(action string) {
	if m == nil {
		return
	}
	m.itemWrites.WithLabelValues(action).Inc()
}

// CacheLookup counts a list cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookup.WithLabelValues(result).Inc()
}
