// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parcelmap_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "parcelmap_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		},
		[]string{"method", "route"},
	)

	preprocessDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "parcelmap_preprocess_duration_seconds",
			Help:    "Duration of full parcel classification passes.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
	)

	preprocessCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parcelmap_preprocess_cache_total",
			Help: "Preprocess memo lookups by outcome.",
		},
		[]string{"outcome"},
	)

	geometryErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parcelmap_geometry_errors_total",
			Help: "Geometry errors recovered during classification, by stage.",
		},
		[]string{"stage"},
	)

	filterDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "parcelmap_filter_duration_seconds",
			Help:    "Duration of filter passes over the annotated parcel set.",
			Buckets: prometheus.ExponentialBuckets(0.00005, 2, 14),
		},
	)

	parcelsGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "parcelmap_parcels",
			Help: "Parcel counts of the most recent classification pass.",
		},
		[]string{"kind"},
	)

	storeWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parcelmap_selection_store_writes_total",
			Help: "Saved-selection write-throughs by backend and outcome.",
		},
		[]string{"backend", "outcome"},
	)

	panicsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parcelmap_http_panics_total",
			Help: "Panics recovered while serving HTTP requests.",
		},
		[]string{"route"},
	)
)

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(durationSeconds)
}

func ObservePreprocess(durationSeconds float64) {
	preprocessDurationSeconds.Observe(durationSeconds)
}

// PreprocessCache records a memo lookup; hit=false means a full pass ran.
func PreprocessCache(hit bool) {
	if hit {
		preprocessCacheTotal.WithLabelValues("hit").Inc()
		return
	}
	preprocessCacheTotal.WithLabelValues("miss").Inc()
}

func GeometryErrors(stage string, n int) {
	if n > 0 {
		geometryErrorsTotal.WithLabelValues(stage).Add(float64(n))
	}
}

func ObserveFilter(durationSeconds float64) {
	filterDurationSeconds.Observe(durationSeconds)
}

// SetParcelCounts publishes the totals of the latest classification pass.
func SetParcelCounts(total, inBoundary, withOwners, withDivision int) {
	parcelsGauge.WithLabelValues("total").Set(float64(total))
	parcelsGauge.WithLabelValues("in_boundary").Set(float64(inBoundary))
	parcelsGauge.WithLabelValues("with_owner").Set(float64(withOwners))
	parcelsGauge.WithLabelValues("with_division").Set(float64(withDivision))
}

func StoreWrite(backend string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	storeWritesTotal.WithLabelValues(backend, outcome).Inc()
}

func RecoveredPanic(route string) {
	panicsTotal.WithLabelValues(route).Inc()
}
