// Package metrics defines the Prometheus metric collectors used by the link
// engine service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	SuggestRequestsTotal *prometheus.CounterVec
	SuggestLatency       *prometheus.HistogramVec
	SuggestionsReturned  prometheus.Histogram
	ScoreRequestsTotal   *prometheus.CounterVec
	OverallScore         prometheus.Histogram
	CacheHitsTotal       *prometheus.CounterVec
	CacheMissesTotal     *prometheus.CounterVec
	IndexRebuildsTotal   *prometheus.CounterVec
	IndexRecords         *prometheus.GaugeVec
	IndexVersion         prometheus.Gauge
	CatalogEventsTotal   *prometheus.CounterVec
}

// New creates all collectors and registers them with reg. A nil reg uses
// the default Prometheus registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, route and status.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "route"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		SuggestRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "link_suggest_requests_total",
				Help: "Link suggestion requests by outcome (suggested, empty, invalid, error).",
			},
			[]string{"outcome"},
		),
		SuggestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "link_suggest_latency_seconds",
				Help:    "Link suggestion latency in seconds.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"cache_status"},
		),
		SuggestionsReturned: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "link_suggestions_returned",
				Help:    "Number of suggestions returned per request.",
				Buckets: []float64{0, 1, 2, 3, 5, 10, 20, 50},
			},
		),
		ScoreRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "content_score_requests_total",
				Help: "Content score requests by grade band or invalid/error.",
			},
			[]string{"outcome"},
		),
		OverallScore: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "content_overall_score",
				Help:    "Distribution of overall SEO scores.",
				Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
			},
		),
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "result_cache_hits_total",
				Help: "Result cache hits by kind (suggest, score).",
			},
			[]string{"kind"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "result_cache_misses_total",
				Help: "Result cache misses by kind (suggest, score).",
			},
			[]string{"kind"},
		),
		IndexRebuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corpus_index_rebuilds_total",
				Help: "Corpus index rebuilds by trigger (api, reload, event, startup).",
			},
			[]string{"trigger"},
		),
		IndexRecords: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "corpus_index_records",
				Help: "Records in the current corpus snapshot by content type.",
			},
			[]string{"type"},
		),
		IndexVersion: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "corpus_index_version",
				Help: "Version number of the current corpus snapshot.",
			},
		),
		CatalogEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_events_total",
				Help: "Catalog change events applied by operation and status.",
			},
			[]string{"op", "status"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.SuggestRequestsTotal,
		m.SuggestLatency,
		m.SuggestionsReturned,
		m.ScoreRequestsTotal,
		m.OverallScore,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.IndexRebuildsTotal,
		m.IndexRecords,
		m.IndexVersion,
		m.CatalogEventsTotal,
	)

	return m
}

// Handler returns the scrape handler for g. A nil g uses the default
// gatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
