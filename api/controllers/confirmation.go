package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/neline/marketplace-backend/api/responses"
	"github.com/neline/marketplace-backend/api/validators"
	fintocwebhook "github.com/neline/marketplace-backend/internal/webhooks/fintoc"
	"github.com/neline/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/neline/marketplace-backend/pkg/errors"
	"github.com/neline/marketplace-backend/pkg/fintoc"
	"github.com/neline/marketplace-backend/pkg/logger"
)

const maxWebhookBytes = 1 << 20

type signatureVerifier interface {
	Verify(payload []byte, header string) error
}

type paymentEventHandler interface {
	HandleEvent(ctx context.Context, event fintocwebhook.Event) error
}

type confirmationService interface {
	ConfirmRequest(ctx context.Context, paymentID string, callerID *uuid.UUID) (*models.Transaction, error)
	Cancel(ctx context.Context, paymentID string) (*models.Transaction, error)
}

// PaymentResolved receives the gateway's signed payment outcome.
func PaymentResolved(verifier signatureVerifier, handler paymentEventHandler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if verifier == nil || handler == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook handler unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read webhook body"))
			return
		}

		if err := verifier.Verify(payload, r.Header.Get(fintoc.SignatureHeader)); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "invalid webhook signature"))
			return
		}

		var event fintocwebhook.Event
		if err := json.NewDecoder(bytes.NewReader(payload)).Decode(&event); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook payload"))
			return
		}

		if err := handler.HandleEvent(r.Context(), event); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]bool{"received": true})
	}
}

// ConfirmRequest marks a transaction as handed to the payment widget. When the
// caller is the registered buyer their cart is emptied.
func ConfirmRequest(svc confirmationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transaction service unavailable"))
			return
		}
		paymentID, err := validators.RequiredParam(r, "paymentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txn, err := svc.ConfirmRequest(r.Context(), paymentID, optionalUserID(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newTransactionStateResponse(txn))
	}
}

// CancelTransaction abandons a pending transaction and releases its units.
func CancelTransaction(svc confirmationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transaction service unavailable"))
			return
		}
		paymentID, err := validators.RequiredParam(r, "paymentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txn, err := svc.Cancel(r.Context(), paymentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newTransactionStateResponse(txn))
	}
}

type transactionStateResponse struct {
	PaymentID  string     `json:"payment_id"`
	Status     string     `json:"status"`
	ReleasedAt *time.Time `json:"released_at,omitempty"`
}

func newTransactionStateResponse(txn *models.Transaction) transactionStateResponse {
	if txn == nil {
		return transactionStateResponse{}
	}
	return transactionStateResponse{
		PaymentID:  txn.PaymentID,
		Status:     string(txn.Status),
		ReleasedAt: txn.ReleasedAt,
	}
}
