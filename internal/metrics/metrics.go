// Package metrics provides Prometheus instrumentation for the API and the generation pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "itinera_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "itinera_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// GenerationDuration tracks model call latency, including retries.
	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "itinera_generation_duration_seconds",
			Help:    "Generation call duration in seconds",
			Buckets: []float64{1, 2, 5, 10, 15, 20, 30, 45, 60, 90},
		},
		[]string{"model", "outcome"},
	)

	// ItinerariesTotal counts generation requests by the stage they ended in.
	ItinerariesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "itinera_itineraries_total",
			Help: "Itinerary generation requests by final stage",
		},
		[]string{"stage"},
	)

	// PendingReusedTotal counts saves that reused a stashed generation.
	PendingReusedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "itinera_pending_reused_total",
			Help: "Itinerary saves that reused a previously generated result",
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordGeneration records one model call.
func RecordGeneration(model, outcome string, duration float64) {
	GenerationDuration.WithLabelValues(model, outcome).Observe(duration)
}

// RecordItinerary records the stage a generation request finished in.
func RecordItinerary(stage string) {
	ItinerariesTotal.WithLabelValues(stage).Inc()
}
