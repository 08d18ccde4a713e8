package enums

import (
	"encoding/json"
	"testing"
)

func TestTransactionStatusTerminal(t *testing.T) {
	cases := map[TransactionStatus]bool{
		TransactionStatusCreated:   false,
		TransactionStatusRequested: false,
		TransactionStatusCanceled:  false,
		TransactionStatusSucceeded: true,
		TransactionStatusFailed:    true,
	}
	for status, want := range cases {
		if got := status.IsTerminal(); got != want {
			t.Fatalf("%s: expected terminal=%v got %v", status, want, got)
		}
	}
}

func TestParseTransactionStatus(t *testing.T) {
	status, err := ParseTransactionStatus("SUCCEDED")
	if err != nil || status != TransactionStatusSucceeded {
		t.Fatalf("unexpected parse result %q %v", status, err)
	}
	if _, err := ParseTransactionStatus("SUCCEEDED"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestParseBuyerKind(t *testing.T) {
	if kind, err := ParseBuyerKind("guest"); err != nil || kind != BuyerKindGuest {
		t.Fatalf("unexpected parse result %q %v", kind, err)
	}
	if _, err := ParseBuyerKind("anonymous"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestPaymentEventType(t *testing.T) {
	if !PaymentEventSucceeded.IsSuccess() || PaymentEventSucceeded.IsFailure() {
		t.Fatal("succeeded event misclassified")
	}
	for _, evt := range []PaymentEventType{PaymentEventFailed, PaymentEventRejected} {
		if !evt.IsFailure() || evt.IsSuccess() {
			t.Fatalf("%s misclassified", evt)
		}
	}
	if PaymentEventType("payment_intent.created").IsFailure() {
		t.Fatal("unknown event should not be a failure")
	}
}

func TestNotificationKind(t *testing.T) {
	if !NotificationPurchaseFailed.IsValid() {
		t.Fatal("expected purchase_failed to be valid")
	}
	if _, err := ParseNotificationKind("welcome"); err == nil {
		t.Fatal("expected error for unknown kind")
	}

	var decoded struct {
		Kind NotificationKind `json:"kind"`
	}
	if err := json.Unmarshal([]byte(`{"kind":"purchase_in_process"}`), &decoded); err != nil || decoded.Kind != NotificationPurchaseInProcess {
		t.Fatalf("unexpected decode result %q, %v", decoded.Kind, err)
	}
	if err := json.Unmarshal([]byte(`{"kind":"welcome"}`), &decoded); err == nil {
		t.Fatal("expected unknown kind to fail decoding")
	}
}
