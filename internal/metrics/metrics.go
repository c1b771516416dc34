// Package metrics exposes Prometheus instrumentation for the parse pipeline,
// drug-information lookups, and the HTTP layer.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pillbox"

// Default buckets.
var (
	DefaultHTTPDurationBuckets   = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultLookupDurationBuckets = []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultCandidateBuckets      = []float64{0, 1, 2, 3, 5, 8, 13}
)

// Metrics holds every collector on its own registry. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ParseTotal       *prometheus.CounterVec
	ParseDuration    prometheus.Histogram
	MatchCandidates  prometheus.Histogram
	LookupTotal      *prometheus.CounterVec
	LookupDuration   prometheus.Histogram
	CacheAccessTotal *prometheus.CounterVec
	LexiconEntries   prometheus.Gauge
	LexiconReloads   *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry, plus the Go runtime and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		ParseTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "parse_total", Help: "Label parses by outcome.",
		}, []string{"outcome"}),
		ParseDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "parse_duration_seconds", Help: "End-to-end parse duration.",
			Buckets: DefaultHTTPDurationBuckets,
		}),
		MatchCandidates: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "match_candidates", Help: "Candidates accepted per parse.",
			Buckets: DefaultCandidateBuckets,
		}),
		LookupTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "druginfo_lookups_total", Help: "Drug-information lookups by outcome.",
		}, []string{"outcome"}),
		LookupDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "druginfo_lookup_duration_seconds", Help: "Drug-information lookup duration.",
			Buckets: DefaultLookupDurationBuckets,
		}),
		CacheAccessTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "druginfo_cache_access_total", Help: "Drug-information cache accesses.",
		}, []string{"result"}),
		LexiconEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "lexicon_entries", Help: "Entries in the active lexicon.",
		}),
		LexiconReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "lexicon_reloads_total", Help: "Lexicon reload attempts by outcome.",
		}, []string{"outcome"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_requests_total", Help: "HTTP requests.",
		}, []string{"method", "route", "status_code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds", Help: "HTTP request duration.",
			Buckets: DefaultHTTPDurationBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(
		m.ParseTotal, m.ParseDuration, m.MatchCandidates,
		m.LookupTotal, m.LookupDuration, m.CacheAccessTotal,
		m.LexiconEntries, m.LexiconReloads,
		m.HTTPRequests, m.HTTPDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
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

// RecordParse records a finished parse. outcome is "ok", "empty" or "error".
func (m *Metrics) RecordParse(outcome string, candidates int, d time.Duration) {
	if m == nil {
		return
	}
	m.ParseTotal.WithLabelValues(outcome).Inc()
	m.ParseDuration.Observe(d.Seconds())
	m.MatchCandidates.Observe(float64(candidates))
}

// RecordLookup records a drug-information lookup. outcome is "ok", "not_found" or "error".
func (m *Metrics) RecordLookup(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.LookupTotal.WithLabelValues(outcome).Inc()
	m.LookupDuration.Observe(d.Seconds())
}

// RecordCacheAccess counts a cache hit or miss.
func (m *Metrics) RecordCacheAccess(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheAccessTotal.WithLabelValues(result).Inc()
}

// RecordLexiconReload counts a reload attempt and, on success, updates the entry gauge.
func (m *Metrics) RecordLexiconReload(entries int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.LexiconReloads.WithLabelValues("error").Inc()
		return
	}
	m.LexiconReloads.WithLabelValues("ok").Inc()
	m.LexiconEntries.Set(float64(entries))
}

// SetLexiconEntries sets the entry gauge.
func (m *Metrics) SetLexiconEntries(n int) {
	if m == nil {
		return
	}
	m.LexiconEntries.Set(float64(n))
}

// RecordHTTPRequest records one served request.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
