package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestTransactionMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewTransactionMetrics(reg)

	m.IncCheckout("guest", OutcomeCommitted)
	m.IncCheckout("guest", OutcomeCommitted)
	m.IncResolution("SUCCEDED")
	m.AddReleasedUnits(3)
	m.AddReleasedUnits(-1)
	m.IncOrphanedPayment()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "checkout_total", "buyer_kind", "guest"); err != nil || got != 2 {
		t.Fatalf("expected checkout_total=2, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "transaction_resolution_total", "status", "SUCCEDED"); err != nil || got != 1 {
		t.Fatalf("expected resolution=1, got %f (%v)", got, err)
	}
	released := findMetricFamily(mfs, "reservation_released_units_total")
	if released == nil || released.GetMetric()[0].GetCounter().GetValue() != 3 {
		t.Fatalf("expected released units 3")
	}
	orphaned := findMetricFamily(mfs, "payment_orphaned_total")
	if orphaned == nil || orphaned.GetMetric()[0].GetCounter().GetValue() != 1 {
		t.Fatalf("expected one orphaned payment")
	}
}

func TestNilRegistererIsNoop(t *testing.T) {
	m := NewTransactionMetrics(nil)
	m.IncCheckout("registered", OutcomeRejected)
	m.IncOrphanedPayment()

	var nilMetrics *TransactionMetrics
	nilMetrics.IncResolution("CANCELED")

	NewHTTPMetrics(nil).Observe("GET", "/health/live", 200, time.Millisecond)
}

func TestHTTPMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := NewHTTPMetrics(reg)
	h.Observe("POST", "/api/v1/transactions/checkout", 201, 20*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchHistogramSum(mfs, "http_requests_latency_seconds", "route", "/api/v1/transactions/checkout"); err != nil || got <= 0 {
		t.Fatalf("expected latency recorded, got %f (%v)", got, err)
	}
}
