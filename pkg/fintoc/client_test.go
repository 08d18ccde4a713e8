package fintoc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/neline/marketplace-backend/pkg/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(config.GatewayConfig{
		PaymentURI:             server.URL,
		APIKey:                 "sk_test",
		Currency:               "CLP",
		Timeout:                timeout,
		RecipientHolderID:      "771433855",
		RecipientNumber:        "123456",
		RecipientType:          "checking_account",
		RecipientInstitutionID: "cl_banco_de_chile",
	}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestRequestPaymentCreated(t *testing.T) {
	var got paymentIntentRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("expected POST, got %s", r.Method)
		}
		if r.Header.Get("Authorization") != "sk_test" {
			t.Fatalf("missing authorization header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"pi_123","widget_token":"pi_123_sec_abc","status":"created"}`))
	}, time.Second)

	intent, err := client.RequestPayment(context.Background(), 45000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if intent.ID != "pi_123" || intent.WidgetToken != "pi_123_sec_abc" {
		t.Fatalf("unexpected intent %+v", intent)
	}
	if got.Amount != 45000 || got.Currency != "clp" || got.RecipientAccount.InstitutionID != "cl_banco_de_chile" {
		t.Fatalf("unexpected request body %+v", got)
	}
}

func TestRequestPaymentRejectsNonCreated(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"pi_123","widget_token":"tok"}`))
	}, time.Second)

	intent, err := client.RequestPayment(context.Background(), 1000)
	if !errors.Is(err, ErrUnexpectedStatus) {
		t.Fatalf("expected unexpected status error, got %v", err)
	}
	if intent != (Intent{}) {
		t.Fatalf("expected empty intent on failure, got %+v", intent)
	}
}

func TestRequestPaymentMalformedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":""}`))
	}, time.Second)

	if _, err := client.RequestPayment(context.Background(), 1000); !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected malformed response error, got %v", err)
	}
}

func TestRequestPaymentTimeout(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, 50*time.Millisecond)
	defer close(release)

	if _, err := client.RequestPayment(context.Background(), 1000); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestNewClientRequiresConfig(t *testing.T) {
	if _, err := NewClient(config.GatewayConfig{APIKey: "k"}, nil); err == nil {
		t.Fatal("expected missing uri error")
	}
	if _, err := NewClient(config.GatewayConfig{PaymentURI: "http://x"}, nil); err == nil {
		t.Fatal("expected missing api key error")
	}
}
