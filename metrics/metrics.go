// Package metrics holds the prometheus collectors shared by the generator and the HTTP server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GenerationRequests counts orchestrated operations by operation and outcome.
	GenerationRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gallery_generation_requests_total",
		Help: "Total number of generation operations by operation and outcome",
	}, []string{"operation", "outcome"})

	// GenerationAttempts counts calls to the LLM, retries included.
	GenerationAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gallery_generation_attempts_total",
		Help: "Total number of LLM calls including retries",
	}, []string{"operation"})

	// GenerationLatency records end-to-end operation latency.
	GenerationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gallery_generation_latency_seconds",
		Help:    "Generation operation latency in seconds",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60, 120},
	}, []string{"operation"})

	// StreamChunks counts streamed text increments.
	StreamChunks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gallery_stream_chunks_total",
		Help: "Total number of streamed chunks received from the LLM",
	})

	// StoreErrors counts key-value store failures by backend and operation.
	StoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gallery_store_errors_total",
		Help: "Total number of key-value store errors",
	}, []string{"backend", "operation"})

	// HTTPRequests counts API requests by route and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gallery_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"route", "method", "status"})
)
