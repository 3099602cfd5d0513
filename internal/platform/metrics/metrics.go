// Package metrics exposes Prometheus collectors for the odds board.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "best_odds"

// Cache lookup results.
const (
	CacheHit    = "hit"
	CacheMiss   = "miss"
	CacheBypass = "bypass"
	CacheError  = "error"
)

// Metrics is safe to use as a nil pointer; every recorder becomes a no-op.
type Metrics struct {
	registry *prometheus.Registry

	UpstreamCalls    *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec
	CacheLookups     *prometheus.CounterVec
	CacheWrites      *prometheus.CounterVec
	Aggregations     *prometheus.CounterVec
	MatchesServed    *prometheus.HistogramVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		UpstreamCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_calls_total",
				Help:      "Odds provider calls by league, region and status class",
			},
			[]string{"league", "region", "status"},
		),
		UpstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_call_duration_seconds",
				Help:      "Odds provider call latency",
				Buckets:   prometheus.ExponentialBuckets(0.025, 2, 10), // 25ms to ~12.8s
			},
			[]string{"league"},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Edge cache lookups by result",
			},
			[]string{"result"},
		),
		CacheWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_writes_total",
				Help:      "Edge cache writes by result (stored, skipped, error)",
			},
			[]string{"result"},
		),
		Aggregations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "aggregations_total",
				Help:      "Matchday aggregations by classification",
			},
			[]string{"classification"},
		),
		MatchesServed: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "matches_per_payload",
				Help:      "Complete matches per aggregated payload",
				Buckets:   []float64{0, 1, 2, 5, 10, 20, 40, 80},
			},
			[]string{},
		),
	}

	registry.MustRegister(
		m.UpstreamCalls,
		m.UpstreamDuration,
		m.CacheLookups,
		m.CacheWrites,
		m.Aggregations,
		m.MatchesServed,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) RecordUpstreamCall(league, region string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.UpstreamCalls.WithLabelValues(league, region, statusClass(status)).Inc()
	m.UpstreamDuration.WithLabelValues(league).Observe(elapsed.Seconds())
}

func (m *Metrics) RecordCacheLookup(result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordCacheWrite(result string) {
	if m == nil {
		return
	}
	m.CacheWrites.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordAggregation(classification string, matches int) {
	if m == nil {
		return
	}
	m.Aggregations.WithLabelValues(classification).Inc()
	m.MatchesServed.WithLabelValues().Observe(float64(matches))
}

func statusClass(status int) string {
	if status <= 0 {
		return "transport_error"
	}
	if status == http.StatusTooManyRequests {
		return "429"
	}
	return strconv.Itoa(status/100) + "xx"
}
