package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LedgerOperationsTotal counts ledger operations by operation and outcome.
	LedgerOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "credithub",
		Subsystem: "ledger",
		Name:      "operations_total",
		Help:      "Ledger operations by operation and result.",
	}, []string{"op", "result"})

	// LedgerOperationDuration tracks store round-trip latency per operation.
	LedgerOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "credithub",
		Subsystem: "ledger",
		Name:      "operation_duration_seconds",
		Help:      "Ledger operation duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})

	// RedeemReconcileTotal counts codes that were claimed but never credited.
	RedeemReconcileTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "credithub",
		Subsystem: "ledger",
		Name:      "redeem_reconcile_total",
		Help:      "Redeem codes claimed whose balance credit failed and need manual reconciliation.",
	})

	// HTTPRequestsTotal counts HTTP requests by method, route and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "credithub",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests handled.",
	}, []string{"method", "route", "status"})

	// HTTPRequestDuration tracks request latency by route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "credithub",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "route"})
)

// ObserveLedgerOperation records one finished ledger operation.
func ObserveLedgerOperation(op, result string, elapsed time.Duration) {
	LedgerOperationsTotal.WithLabelValues(op, result).Inc()
	LedgerOperationDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ObserveHTTPRequest records one served HTTP request.
func ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
