// Package metrics defines the Prometheus metric collectors used by the
// indexer, the search executor and the result cache, and exposes an HTTP
// handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the engine. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	DocsIndexedTotal       prometheus.Counter
	BlocksIndexedTotal     prometheus.Counter
	BlockRejectionsTotal   prometheus.Counter
	SegmentsCommittedTotal prometheus.Counter
	SearchQueriesTotal     *prometheus.CounterVec
	SearchLatency          *prometheus.HistogramVec
	SearchResultsCount     prometheus.Histogram
	CacheHitsTotal         prometheus.Counter
	CacheMissesTotal       prometheus.Counter
}

// New creates all collectors and registers them with reg. Passing nil
// registers with the Prometheus default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		DocsIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docs_indexed_total",
				Help: "Total leaf documents indexed.",
			},
		),
		BlocksIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "blocks_indexed_total",
				Help: "Total document blocks indexed.",
			},
		),
		BlockRejectionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "block_rejections_total",
				Help: "Total document blocks rejected by field validation.",
			},
		),
		SegmentsCommittedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "segments_committed_total",
				Help: "Total index segments sealed.",
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Total search queries by result type (hit, zero_result, invalid, error).",
			},
			[]string{"result_type"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Search query latency in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"cache_status"},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_results_count",
				Help:    "Number of results returned per search query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 500, 1000},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of result cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of result cache misses.",
			},
		),
	}

	reg.MustRegister(
		m.DocsIndexedTotal,
		m.BlocksIndexedTotal,
		m.BlockRejectionsTotal,
		m.SegmentsCommittedTotal,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
	)

	return m
}

func (m *Metrics) BlockIndexed(docs int) {
	if m == nil {
		return
	}
	m.BlocksIndexedTotal.Inc()
	m.DocsIndexedTotal.Add(float64(docs))
}

func (m *Metrics) BlockRejected() {
	if m == nil {
		return
	}
	m.BlockRejectionsTotal.Inc()
}

func (m *Metrics) SegmentCommitted() {
	if m == nil {
		return
	}
	m.SegmentsCommittedTotal.Inc()
}

// SearchObserved records one finished search.
func (m *Metrics) SearchObserved(resultType, cacheStatus string, seconds float64, results int) {
	if m == nil {
		return
	}
	m.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	m.SearchLatency.WithLabelValues(cacheStatus).Observe(seconds)
	m.SearchResultsCount.Observe(float64(results))
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.CacheHitsTotal.Inc()
}

func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.CacheMissesTotal.Inc()
}

// Handler returns the scrape handler of gatherer. A nil gatherer serves the
// default registry.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
