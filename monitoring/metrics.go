package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	bookingTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_transitions_total",
			Help: "Booking state machine transition attempts",
		},
		[]string{"operation", "result"},
	)

	gatewayOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_gateway_operations_total",
			Help: "Payment gateway operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	gatewayDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_gateway_duration_seconds",
			Help:    "Duration of payment gateway calls",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"operation"},
	)

	releaseRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "release_reconciler_retries_total",
			Help: "Authorization release retries performed by the reconciler",
		},
	)
)

// RecordTransition counts a state machine transition attempt
func RecordTransition(operation, result string) {
	bookingTransitions.WithLabelValues(operation, result).Inc()
}

// RecordGatewayOperation counts a gateway call and observes its duration
func RecordGatewayOperation(operation, outcome string, elapsed time.Duration) {
	gatewayOperations.WithLabelValues(operation, outcome).Inc()
	gatewayDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// RecordReleaseRetry counts one reconciler retry
func RecordReleaseRetry() {
	releaseRetries.Inc()
}
