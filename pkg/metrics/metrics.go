// Package metrics defines the Prometheus collectors used by the library
// services and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the services record into.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	SearchQueriesTotal   *prometheus.CounterVec
	SearchLatency        *prometheus.HistogramVec
	SearchResultsCount   prometheus.Histogram
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	PostingChangesTotal  *prometheus.CounterVec
	IndexTerms           prometheus.Gauge
	ReindexDuration      prometheus.Histogram
	DocumentEventsTotal  *prometheus.CounterVec
	LinkChecksTotal      *prometheus.CounterVec
	CircuitBreakerState  *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg. Passing nil uses
// the default Prometheus registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "library_search_queries_total",
				Help: "Search queries by outcome (hit, miss, zero_result, error).",
			},
			[]string{"result_type"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "library_search_latency_seconds",
				Help:    "Search latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"cache_status"},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "library_search_results_count",
				Help:    "Total matches per search before paging.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 500},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "library_search_cache_hits_total",
				Help: "Search cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "library_search_cache_misses_total",
				Help: "Search cache misses.",
			},
		),
		PostingChangesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "library_index_posting_changes_total",
				Help: "Inverted index posting changes by operation (add, remove).",
			},
			[]string{"op"},
		),
		IndexTerms: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "library_index_terms",
				Help: "Distinct terms in the inverted index after the last rebuild or verify.",
			},
		),
		ReindexDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "library_reindex_duration_seconds",
				Help:    "Duration of full index rebuilds.",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
			},
		),
		DocumentEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "library_document_events_total",
				Help: "Document lifecycle events by type.",
			},
			[]string{"type"},
		),
		LinkChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "library_link_checks_total",
				Help: "Link checks by result (ok, broken, error).",
			},
			[]string{"result"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.PostingChangesTotal,
		m.IndexTerms,
		m.ReindexDuration,
		m.DocumentEventsTotal,
		m.LinkChecksTotal,
		m.CircuitBreakerState,
	)

	return m
}

// NewUnregistered builds collectors on a private registry. Tests and CLI
// commands use it to avoid duplicate-registration panics.
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
