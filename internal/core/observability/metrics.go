package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status"},
	)

	upstreamLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_latency_seconds",
			Help:    "Latency of upstream calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"upstream", "outcome"},
	)

	searchCacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_cache_results_total",
			Help: "Search result lookups by tier that answered (lru, redis, miss).",
		},
		[]string{"tier"},
	)

	searchFetchShared = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "search_fetch_shared_total",
			Help: "Upstream fetches whose result was shared with a concurrent identical search.",
		},
	)

	cacheOpTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_op_total",
			Help: "Redis operations by op and result.",
		},
		[]string{"op", "result"},
	)

	cacheOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Duration of redis operations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op"},
	)

	navigations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_navigations_total",
			Help: "Navigation requests from the sync layer by source and outcome.",
		},
		[]string{"source", "outcome"},
	)

	keywordSchedules = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keyword_schedules_total",
			Help: "Keyword submissions by the timer policy they armed.",
		},
		[]string{"policy"},
	)

	panelTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filter_panel_transitions_total",
			Help: "Mobile filter panel transitions.",
		},
		[]string{"event"},
	)

	mapSettles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "map_settle_events_total",
			Help: "Map settle events by what the sync layer did with them.",
		},
		[]string{"outcome"},
	)

	searchEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_events_total",
			Help: "Search events handed to the publisher.",
		},
		[]string{"outcome"},
	)
)

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveUpstreamLatency(upstream string, err error, durationSeconds float64) {
	upstreamLatencySeconds.WithLabelValues(upstream, result(err)).Observe(durationSeconds)
}

func IncSearchCache(tier string) {
	searchCacheResults.WithLabelValues(tier).Inc()
}

func IncSearchFetchShared() {
	searchFetchShared.Inc()
}

func ObserveCacheOp(op string, err error, durationSeconds float64) {
	cacheOpTotal.WithLabelValues(op, result(err)).Inc()
	cacheOpDuration.WithLabelValues(op).Observe(durationSeconds)
}

func IncNavigation(source, outcome string) {
	navigations.WithLabelValues(source, outcome).Inc()
}

func IncKeywordSchedule(policy string) {
	keywordSchedules.WithLabelValues(policy).Inc()
}

func IncPanelTransition(event string) {
	panelTransitions.WithLabelValues(event).Inc()
}

func IncMapSettle(outcome string) {
	mapSettles.WithLabelValues(outcome).Inc()
}

func IncSearchEvent(outcome string) {
	searchEvents.WithLabelValues(outcome).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
