package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recomputeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "collisions_recompute_duration_seconds",
		Help:    "Time taken by a full recompute of counts and groups",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	}, []string{"trigger"})

	filterToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collisions_filter_toggles_total",
		Help: "Filter toggles by category",
	}, []string{"category"})

	recordsLoaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collisions_records_loaded_total",
		Help: "Records appended to the engine",
	})

	visibleRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "collisions_visible_records",
		Help: "Records that passed the filters in the last recompute",
	})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "collisions_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "status"})
)

func newRecomputeTimer(trigger string) *prometheus.Timer {
	return prometheus.NewTimer(recomputeDuration.WithLabelValues(trigger))
}
