package metrics

import "github.com/prometheus/client_golang/prometheus"

// Checkout outcomes.
const (
	OutcomeCommitted  = "committed"
	OutcomeRolledBack = "rolled_back"
	OutcomeRejected   = "rejected"
)

// TransactionMetrics records checkout, webhook and sweep activity.
type TransactionMetrics struct {
	checkouts        *prometheus.CounterVec
	resolutions      *prometheus.CounterVec
	releasedUnits    prometheus.Counter
	orphanedPayments prometheus.Counter
}

// NewTransactionMetrics registers the transaction metrics on reg. A nil
// registerer yields a no-op recorder.
func NewTransactionMetrics(reg prometheus.Registerer) *TransactionMetrics {
	if reg == nil {
		return &TransactionMetrics{}
	}
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_total",
		Help: "Checkout attempts by buyer kind and outcome.",
	}, []string{"buyer_kind", "outcome"})
	resolutions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "transaction_resolution_total",
		Help: "Transaction status changes by target status.",
	}, []string{"status"})
	released := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reservation_released_units_total",
		Help: "Reserved units returned to the available pool.",
	})
	orphaned := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payment_orphaned_total",
		Help: "Payment intents created by the gateway that could not be recorded.",
	})
	reg.MustRegister(checkouts, resolutions, released, orphaned)
	return &TransactionMetrics{
		checkouts:        checkouts,
		resolutions:      resolutions,
		releasedUnits:    released,
		orphanedPayments: orphaned,
	}
}

func (m *TransactionMetrics) IncCheckout(buyerKind, outcome string) {
	if m == nil || m.checkouts == nil {
		return
	}
	m.checkouts.WithLabelValues(normalizeLabel(buyerKind), outcome).Inc()
}

func (m *TransactionMetrics) IncResolution(status string) {
	if m == nil || m.resolutions == nil {
		return
	}
	m.resolutions.WithLabelValues(normalizeLabel(status)).Inc()
}

func (m *TransactionMetrics) AddReleasedUnits(n int64) {
	if m == nil || m.releasedUnits == nil || n <= 0 {
		return
	}
	m.releasedUnits.Add(float64(n))
}

func (m *TransactionMetrics) IncOrphanedPayment() {
	if m == nil || m.orphanedPayments == nil {
		return
	}
	m.orphanedPayments.Inc()
}
