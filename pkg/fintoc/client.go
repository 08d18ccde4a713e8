// Package fintoc talks to the payment intent provider: it creates payment
// intents and verifies the signatures of the webhook events it sends back.
package fintoc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/neline/marketplace-backend/pkg/config"
)

const maxResponseBytes = 1 << 20

var (
	errPaymentURIRequired = errors.New("gateway payment uri is required")
	errAPIKeyRequired     = errors.New("gateway api key is required")

	// ErrUnexpectedStatus is returned when the provider answers anything but 201.
	ErrUnexpectedStatus = errors.New("gateway returned unexpected status")
	// ErrMalformedResponse is returned when a 201 body lacks the intent id or token.
	ErrMalformedResponse = errors.New("gateway returned malformed payment intent")
)

// Intent is the provider-side payment intent the buyer completes in the widget.
type Intent struct {
	ID          string `json:"id"`
	WidgetToken string `json:"widget_token"`
}

// RecipientAccount is the merchant bank account receiving the transfer.
type RecipientAccount struct {
	HolderID      string `json:"holder_id"`
	Number        string `json:"number"`
	Type          string `json:"type"`
	InstitutionID string `json:"institution_id"`
}

type paymentIntentRequest struct {
	Amount           int64            `json:"amount"`
	Currency         string           `json:"currency"`
	RecipientAccount RecipientAccount `json:"recipient_account"`
}

// Client creates payment intents. Every call is a single attempt.
type Client struct {
	http       *http.Client
	paymentURI string
	apiKey     string
	currency   string
	recipient  RecipientAccount
}

// NewClient builds a gateway client. A nil httpClient gets one bounded by cfg.Timeout.
func NewClient(cfg config.GatewayConfig, httpClient *http.Client) (*Client, error) {
	uri := strings.TrimSpace(cfg.PaymentURI)
	if uri == "" {
		return nil, errPaymentURIRequired
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	currency := strings.ToLower(strings.TrimSpace(cfg.Currency))
	if currency == "" {
		currency = "clp"
	}
	return &Client{
		http:       httpClient,
		paymentURI: uri,
		apiKey:     apiKey,
		currency:   currency,
		recipient: RecipientAccount{
			HolderID:      cfg.RecipientHolderID,
			Number:        cfg.RecipientNumber,
			Type:          cfg.RecipientType,
			InstitutionID: cfg.RecipientInstitutionID,
		},
	}, nil
}

// RequestPayment creates a payment intent for amount. Any error leaves the
// returned Intent empty; callers must treat it as "no payment was created".
func (c *Client) RequestPayment(ctx context.Context, amount int64) (Intent, error) {
	if amount <= 0 {
		return Intent{}, fmt.Errorf("payment amount must be positive, got %d", amount)
	}

	body, err := json.Marshal(paymentIntentRequest{
		Amount:           amount,
		Currency:         c.currency,
		RecipientAccount: c.recipient,
	})
	if err != nil {
		return Intent{}, fmt.Errorf("encode payment intent: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.paymentURI, bytes.NewReader(body))
	if err != nil {
		return Intent{}, fmt.Errorf("build payment intent request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Intent{}, fmt.Errorf("post payment intent: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Intent{}, fmt.Errorf("read payment intent response: %w", err)
	}
	if resp.StatusCode != http.StatusCreated {
		return Intent{}, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var intent Intent
	if err := json.Unmarshal(raw, &intent); err != nil {
		return Intent{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if intent.ID == "" || intent.WidgetToken == "" {
		return Intent{}, ErrMalformedResponse
	}
	return intent, nil
}
