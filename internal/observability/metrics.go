package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Watch for: p95/p99 latency increases.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight. Watch for: saturation, capacity limits.
	HTTPRequestsInFlight prometheus.Gauge

	// ODP archive fetch rate. Watch for: not_found ratio (feed publishing gaps).
	ArchiveFetchesTotal *prometheus.CounterVec

	// Feed latency per fetch. Watch for: p95 > 5s (upstream degradation), p99 near timeout.
	ArchiveFetchDuration *prometheus.HistogramVec

	// Size of fetched archives. Watch for: sudden shrinkage (truncated feed).
	ArchiveBytesFetched prometheus.Histogram

	// Report cache hits. Hit rate = hits/(hits+reportBuildsTotal).
	CacheHitsTotal *prometheus.CounterVec

	// Cache backend failures by operation. Watch for: memcached connectivity.
	CacheErrorsTotal *prometheus.CounterVec

	// Total extremes lookups. rate() gives QPS.
	ReportQueriesTotal prometheus.Counter

	// Reports actually built from the feed (cache misses that reached upstream).
	ReportBuildsTotal prometheus.Counter

	// Data rows per built report. Watch for: row count collapse (schema drift).
	ReportRowsParsed prometheus.Histogram

	// Cells degraded to absent (blank, -999 sentinel, unparseable) per column kind.
	CellDegradationsTotal *prometheus.CounterVec

	// Positional fallbacks taken by the schema resolver, per field. Nonzero
	// means the feed renamed or dropped headers.
	SchemaFallbacksTotal *prometheus.CounterVec

	// Circuit breaker transitions for the feed client.
	CircuitBreakerTransitionsTotal *prometheus.CounterVec

	// Rate limit denials. Watch for: overload, capacity exceeded.
	RateLimitDeniedTotal prometheus.Counter

	// Cache warming runs, failures, and duration.
	CacheWarmingTotal           prometheus.Counter
	CacheWarmingErrorsTotal     prometheus.Counter
	CacheWarmingDurationSeconds prometheus.Histogram
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	ArchiveFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archiveFetchesTotal",
			Help: "Total number of daily archive fetches against the ODP feed",
		},
		[]string{"status"},
	)
	ArchiveFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "archiveFetchDurationSeconds",
			Help:    "ODP feed latency in seconds (per fetch)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"status"},
	)
	ArchiveBytesFetched = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "archiveBytesFetched",
			Help:    "Size in bytes of successfully fetched daily archives",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		},
	)
	CacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheHitsTotal",
			Help: "Total number of report cache hits",
		},
		[]string{"cacheType"},
	)
	CacheErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheErrorsTotal",
			Help: "Cache backend failures by operation",
		},
		[]string{"operation"},
	)
	ReportQueriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reportQueriesTotal",
			Help: "Total number of daily extremes lookups",
		},
	)
	ReportBuildsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reportBuildsTotal",
			Help: "Reports built from the feed (cache misses reaching upstream)",
		},
	)
	ReportRowsParsed = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reportRowsParsed",
			Help:    "Data rows per built daily report",
			Buckets: []float64{0, 10, 50, 100, 200, 500, 1000},
		},
	)
	CellDegradationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cellDegradationsTotal",
			Help: "Cells degraded to absent (blank, sentinel, unparseable)",
		},
		[]string{"column"},
	)
	SchemaFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schemaFallbacksTotal",
			Help: "Positional fallbacks taken by the schema resolver",
		},
		[]string{"field"},
	)
	CircuitBreakerTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuitBreakerTransitionsTotal",
			Help: "Feed circuit breaker state transitions",
		},
		[]string{"from", "to"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)
	CacheWarmingTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheWarmingTotal",
			Help: "Cache warming runs",
		},
	)
	CacheWarmingErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheWarmingErrorsTotal",
			Help: "Cache warming runs that failed",
		},
	)
	CacheWarmingDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cacheWarmingDurationSeconds",
			Help:    "Duration of cache warming runs in seconds",
			Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30},
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		ArchiveFetchesTotal, ArchiveFetchDuration, ArchiveBytesFetched,
		CacheHitsTotal, CacheErrorsTotal,
		ReportQueriesTotal, ReportBuildsTotal, ReportRowsParsed,
		CellDegradationsTotal, SchemaFallbacksTotal,
		CircuitBreakerTransitionsTotal,
		RateLimitDeniedTotal,
		CacheWarmingTotal, CacheWarmingErrorsTotal, CacheWarmingDurationSeconds,
	)
}

// RecordCircuitBreakerTransition records a feed breaker state change.
func RecordCircuitBreakerTransition(from, to string) {
	CircuitBreakerTransitionsTotal.WithLabelValues(from, to).Inc()
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
