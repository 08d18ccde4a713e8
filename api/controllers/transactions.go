package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/neline/marketplace-backend/api/responses"
	"github.com/neline/marketplace-backend/api/validators"
	"github.com/neline/marketplace-backend/internal/reservation"
	"github.com/neline/marketplace-backend/internal/transactions"
	"github.com/neline/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/neline/marketplace-backend/pkg/errors"
	"github.com/neline/marketplace-backend/pkg/logger"
)

type checkoutService interface {
	Checkout(ctx context.Context, input transactions.CheckoutInput) (*transactions.CheckoutResult, error)
}

type transactionQueries interface {
	ListPurchases(ctx context.Context, buyerID uuid.UUID) ([]models.Transaction, error)
	ListSales(ctx context.Context, sellerID uuid.UUID) ([]models.TransactionPointer, error)
}

type checkoutRequest struct {
	ShippingAddressID uuid.UUID  `json:"shipping_address_id" validate:"required"`
	CouponID          *uuid.UUID `json:"coupon_id"`
}

// Checkout reserves the caller's cart and opens a payment intent.
func Checkout(svc checkoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := userIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Checkout(r.Context(), transactions.CheckoutInput{
			Buyer:    transactions.RegisteredBuyer{UserID: userID, ShippingAddressID: payload.ShippingAddressID},
			CouponID: payload.CouponID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newCheckoutResponse(result))
	}
}

type guestCheckoutRequest struct {
	transactions.GuestBuyer
	Lines    []guestLinePayload `json:"publication_items_list" validate:"required,min=1,dive"`
	CouponID *uuid.UUID         `json:"coupon_id"`
}

type guestLinePayload struct {
	PublicationItemID uuid.UUID `json:"id" validate:"required"`
	Amount            int64     `json:"amount" validate:"required,min=1"`
}

// GuestCheckout is the accountless checkout. The lines come from the body.
func GuestCheckout(svc checkoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload guestCheckoutRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lines := make([]reservation.LineRequest, 0, len(payload.Lines))
		for _, line := range payload.Lines {
			lines = append(lines, reservation.LineRequest{
				PublicationItemID: line.PublicationItemID,
				Quantity:          line.Amount,
			})
		}

		result, err := svc.Checkout(r.Context(), transactions.CheckoutInput{
			Buyer:    payload.GuestBuyer,
			Lines:    lines,
			CouponID: payload.CouponID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newCheckoutResponse(result))
	}
}

type checkoutResponse struct {
	PaymentID   string `json:"payment_id"`
	WidgetToken string `json:"widget_token"`
	Amount      int64  `json:"amount"`
}

func newCheckoutResponse(result *transactions.CheckoutResult) checkoutResponse {
	if result == nil {
		return checkoutResponse{}
	}
	return checkoutResponse{
		PaymentID:   result.PaymentID,
		WidgetToken: result.WidgetToken,
		Amount:      result.Amount,
	}
}

// Purchases lists the caller's settled transactions.
func Purchases(svc transactionQueries, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transaction service unavailable"))
			return
		}
		userID, err := userIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txns, err := svc.ListPurchases(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]purchaseResponse, 0, len(txns))
		for _, txn := range txns {
			out = append(out, newPurchaseResponse(txn))
		}
		responses.WriteSuccess(w, out)
	}
}

// Sales lists settled lines sold from the caller's publications.
func Sales(svc transactionQueries, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transaction service unavailable"))
			return
		}
		userID, err := userIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pointers, err := svc.ListSales(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]pointerResponse, 0, len(pointers))
		for _, p := range pointers {
			out = append(out, newPointerResponse(p))
		}
		responses.WriteSuccess(w, out)
	}
}

type purchaseResponse struct {
	ID                uuid.UUID         `json:"id"`
	PaymentID         string            `json:"payment_id"`
	Status            string            `json:"status"`
	Amount            int64             `json:"amount"`
	ShippingAddressID *uuid.UUID        `json:"shipping_address_id,omitempty"`
	CouponID          *uuid.UUID        `json:"coupon_id,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	Pointers          []pointerResponse `json:"pointers"`
}

type pointerResponse struct {
	ID                uuid.UUID `json:"id"`
	TransactionID     uuid.UUID `json:"transaction_id"`
	PublicationItemID uuid.UUID `json:"publication_item_id"`
	Amount            int64     `json:"amount"`
	PricePerUnit      int64     `json:"price_per_unit"`
	Subtotal          int64     `json:"subtotal"`
}

func newPurchaseResponse(txn models.Transaction) purchaseResponse {
	pointers := make([]pointerResponse, 0, len(txn.Pointers))
	for _, p := range txn.Pointers {
		pointers = append(pointers, newPointerResponse(p))
	}
	return purchaseResponse{
		ID:                txn.ID,
		PaymentID:         txn.PaymentID,
		Status:            string(txn.Status),
		Amount:            txn.Amount,
		ShippingAddressID: txn.ShippingAddressID,
		CouponID:          txn.CouponID,
		CreatedAt:         txn.CreatedAt,
		Pointers:          pointers,
	}
}

func newPointerResponse(p models.TransactionPointer) pointerResponse {
	return pointerResponse{
		ID:                p.ID,
		TransactionID:     p.TransactionID,
		PublicationItemID: p.PublicationItemID,
		Amount:            p.Amount,
		PricePerUnit:      p.PricePerUnit,
		Subtotal:          p.Subtotal(),
	}
}
