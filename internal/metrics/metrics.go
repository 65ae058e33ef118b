// Package metrics holds the prometheus collectors for the points core.
// Collectors are registered on the default registry and served at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values besides the failure kinds.
const OutcomeSuccess = "success"

var Redemptions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "points",
	Name:      "redemptions_total",
	Help:      "Token redemption attempts by outcome.",
}, []string{"outcome"})

var Transfers = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "points",
	Name:      "transfers_total",
	Help:      "Transfer attempts by outcome.",
}, []string{"outcome"})

var TransferredPoints = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "points",
	Name:      "transferred_points_total",
	Help:      "Points moved between accounts by committed transfers.",
})

var RedeemedPoints = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "points",
	Name:      "redeemed_points_total",
	Help:      "Points injected by committed token redemptions.",
})

var TokensIssued = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "points",
	Name:      "tokens_issued_total",
	Help:      "Token codes submitted for issuance by result (inserted, skipped).",
}, []string{"result"})

var OperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "points",
	Name:      "operation_duration_seconds",
	Help:      "Latency of core operations including the store transaction.",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
}, []string{"operation"})

// ObserveSince records the elapsed time since start for an operation.
func ObserveSince(operation string, start time.Time) {
	OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
