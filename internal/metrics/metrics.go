// Package metrics holds the prometheus collectors of the ledger and reward paths.
package metrics

import (
	"errors"   // Sentinel matching
	"net/http" // HTTP status codes

	"rewards_system/internal/domain" // Domain models

	"github.com/prometheus/client_golang/prometheus"          // Collector types
	"github.com/prometheus/client_golang/prometheus/promauto" // Auto registration
	"github.com/prometheus/client_golang/prometheus/promhttp" // Scrape handler
)

const namespace = "rewards"

// LedgerOperations counts ledger operations by kind and outcome.
var LedgerOperations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "ledger_operations_total",
	Help:      "Ledger operations by kind and outcome.",
}, []string{"kind", "outcome"})

// LedgerConflicts counts compare-and-swap conflicts that triggered a retry.
var LedgerConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "ledger_conflicts_total",
	Help:      "Optimistic lock conflicts by operation kind.",
}, []string{"kind"})

// LedgerDuration observes the wall time of a ledger operation including retries.
var LedgerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Name:      "ledger_operation_seconds",
	Help:      "Ledger operation latency.",
	Buckets:   prometheus.DefBuckets,
}, []string{"kind"})

// InvestmentsSettled counts investments touched by settlement, by resulting status.
var InvestmentsSettled = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "investments_settled_total",
	Help:      "Investments credited by the settlement job.",
}, []string{"status"})

// RealtimeSubscribers tracks open websocket subscriptions.
var RealtimeSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Name:      "realtime_subscribers",
	Help:      "Open websocket subscriptions.",
})

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Outcome turns an operation error into a low-cardinality label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, domain.ErrOutOfStock):
		return "out_of_stock"
	case errors.Is(err, domain.ErrAlreadyClaimedToday), errors.Is(err, domain.ErrAlreadyClaimed),
		errors.Is(err, domain.ErrTaskAlreadyCompleted), errors.Is(err, domain.ErrDuplicateOperation):
		return "already_done"
	case errors.Is(err, domain.ErrStorageConflict):
		return "conflict"
	case errors.Is(err, domain.ErrAccountNotFound), errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrInvalidInput):
		return "invalid"
	default:
		return "error"
	}
}
