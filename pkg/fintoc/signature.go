package fintoc

import (
	"errors"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v84/webhook"
)

// SignatureHeader carries "t=<unix>,v1=<hex hmac>" on every webhook request.
const SignatureHeader = "Fintoc-Signature"

var (
	ErrSignatureMissing = errors.New("webhook signature missing")
	ErrSignatureInvalid = errors.New("webhook signature invalid")
	errSecretRequired   = errors.New("webhook secret is required")
)

// Verifier checks HMAC-SHA256 signatures computed over "<t>.<raw body>",
// the layout stripe-go's webhook package validates.
type Verifier struct {
	secret    string
	tolerance time.Duration
}

// NewVerifier builds a verifier. A zero tolerance accepts any timestamp age.
func NewVerifier(secret string, tolerance time.Duration) (*Verifier, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errSecretRequired
	}
	return &Verifier{secret: secret, tolerance: tolerance}, nil
}

// Verify must run before the payload is parsed.
func (v *Verifier) Verify(payload []byte, header string) error {
	if strings.TrimSpace(header) == "" {
		return ErrSignatureMissing
	}
	var err error
	if v.tolerance > 0 {
		err = webhook.ValidatePayloadWithTolerance(payload, header, v.secret, v.tolerance)
	} else {
		err = webhook.ValidatePayloadIgnoringTolerance(payload, header, v.secret)
	}
	if err != nil {
		return errors.Join(ErrSignatureInvalid, err)
	}
	return nil
}
