// Package observability provides Prometheus metrics and a logging
// chat.Observer for monitoring frage clients. The client itself carries no
// logging or metrics code; everything observable arrives through the
// Observer callbacks after the fact.
package observability

import "github.com/prometheus/client_golang/prometheus"

// LLMBuckets defines histogram buckets suited for LLM inference latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts completion calls by mode ("complete"/"stream"),
	// model, and outcome ("ok"/"error").
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frage_requests_total",
			Help: "Total completion calls",
		},
		[]string{"mode", "model", "status"},
	)

	// RequestDuration records call duration in seconds by mode and model.
	// For streams this spans first byte to channel close.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "frage_request_duration_seconds",
			Help:    "Call duration",
			Buckets: LLMBuckets,
		},
		[]string{"mode", "model"},
	)

	// StreamsActive tracks the number of in-flight streaming calls.
	StreamsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "frage_streams_active",
			Help: "Active streaming calls",
		},
	)

	// StreamEventsTotal counts chunks yielded to consumers by model.
	StreamEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frage_stream_events_total",
			Help: "Yielded stream chunks",
		},
		[]string{"model"},
	)

	// TokensTotal counts tokens reported in usage by model and direction
	// ("input"/"output"). Streaming responses carry no usage, so this
	// only moves for one-shot calls.
	TokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frage_tokens_total",
			Help: "Token count",
		},
		[]string{"model", "direction"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		StreamsActive,
		StreamEventsTotal,
		TokensTotal,
	)
}
