package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metricSet struct {
	msgs    *prometheus.CounterVec
	apply   *prometheus.CounterVec
	proc    *prometheus.HistogramVec
	lag     prometheus.Gauge
	evicted prometheus.Counter
}

func newMetricSet(r prometheus.Registerer) *metricSet {
	m := &metricSet{
		msgs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "listing_invalidation_messages_total",
			Help: "Listing-change messages consumed, by result (ok, error, malformed).",
		}, []string{"result"}),
		apply: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "listing_invalidation_actions_total",
			Help: "Cached searches deleted, stale versions skipped, and index lookups without match.",
		}, []string{"action"}),
		proc: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "listing_invalidation_seconds",
			Help:    "Time to apply one listing-change message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"op"}),
		lag: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "listing_invalidation_lag_seconds",
			Help: "Age of the last consumed message at consume time.",
		}),
		evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "listing_invalidation_versions_evicted_total",
			Help: "Listings whose last applied version fell out of the version table.",
		}),
	}
	if r != nil {
		r.MustRegister(m.msgs, m.apply, m.proc, m.lag, m.evicted)
	}
	return m
}
