// Package metrics holds the Prometheus collectors for the mood engine, the
// document store, and the HTTP API. Collectors register on the default
// registry and are served at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Engine
	EngineDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moodlist_deliveries_total",
			Help: "Total number of list deliveries applied by mood engines",
		},
		[]string{"query_type"},
	)

	EngineDeliveryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moodlist_delivery_failures_total",
			Help: "Total number of list deliveries rejected by mood engines",
		},
		[]string{"query_type", "reason"}, // "integrity", "store"
	)

	EngineDroppedEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moodlist_dropped_events_total",
			Help: "Total number of engine events discarded because no reader kept up",
		},
		[]string{"query_type"},
	)

	EngineMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moodlist_mutations_total",
			Help: "Total number of mood event mutations",
		},
		[]string{"kind", "status"},
	)

	EngineOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "moodlist_engines_open",
			Help: "Current number of open mood engines",
		},
	)

	GeoCandidates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "moodlist_geo_candidates_total",
			Help: "Total number of events returned by geocell range queries",
		},
	)

	GeoAccepted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "moodlist_geo_accepted_total",
			Help: "Total number of geo candidates within the search radius",
		},
	)

	// API
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status_code"},
	)
)

func RecordDelivery(queryType string) {
	EngineDeliveries.WithLabelValues(queryType).Inc()
}

func RecordDeliveryFailure(queryType, reason string) {
	EngineDeliveryFailures.WithLabelValues(queryType, reason).Inc()
}

func RecordDroppedEvent(queryType string) {
	EngineDroppedEvents.WithLabelValues(queryType).Inc()
}

func RecordMutation(kind string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	EngineMutations.WithLabelValues(kind, status).Inc()
}

func TrackEngine(open bool) {
	if open {
		EngineOpen.Inc()
	} else {
		EngineOpen.Dec()
	}
}

func RecordGeoSearch(candidates, accepted int) {
	GeoCandidates.Add(float64(candidates))
	GeoAccepted.Add(float64(accepted))
}

func RecordAPIRequest(method, route string, statusCode int, duration time.Duration) {
	APIRequestDuration.WithLabelValues(method, route, strconv.Itoa(statusCode)).Observe(duration.Seconds())
}
