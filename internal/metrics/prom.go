package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Process-level instrumentation, exposed on /ops/metrics.
var (
	PaymentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paymux_payments_total",
		Help: "Finished payments by normalised status.",
	}, []string{"status"})

	AttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paymux_gateway_attempts_total",
		Help: "Gateway attempts by gateway and status, including skips.",
	}, []string{"gateway", "status"})

	AttemptLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "paymux_gateway_attempt_latency_ms",
		Help:    "Observed gateway attempt latency in milliseconds.",
		Buckets: prometheus.ExponentialBuckets(10, 2, 12),
	}, []string{"gateway"})

	CircuitTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paymux_circuit_transitions_total",
		Help: "Circuit breaker transitions by gateway, method and new state.",
	}, []string{"gateway", "method", "state"})

	OutboxPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paymux_outbox_published_total",
		Help: "Outbox rows successfully appended to the event stream.",
	})

	OutboxRetried = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paymux_outbox_retried_total",
		Help: "Outbox publish failures scheduled for retry.",
	})

	StreamEventsConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paymux_stream_events_consumed_total",
		Help: "Lifecycle events consumed from the metrics stream.",
	})
)
