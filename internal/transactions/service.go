// Package transactions runs checkout, resolution and expiry of marketplace
// transactions against the reserved inventory.
package transactions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/neline/marketplace-backend/internal/inventory"
	"github.com/neline/marketplace-backend/internal/notifications"
	"github.com/neline/marketplace-backend/internal/reservation"
	"github.com/neline/marketplace-backend/pkg/db/models"
	"github.com/neline/marketplace-backend/pkg/enums"
	pkgerrors "github.com/neline/marketplace-backend/pkg/errors"
	"github.com/neline/marketplace-backend/pkg/fintoc"
	"github.com/neline/marketplace-backend/pkg/logger"
	"github.com/neline/marketplace-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type reservationBuilder interface {
	Build(ctx context.Context, tx *gorm.DB, requests []reservation.LineRequest) (*reservation.Reservation, error)
}

// PaymentGateway creates payment intents. A non-nil error means no intent exists.
type PaymentGateway interface {
	RequestPayment(ctx context.Context, amount int64) (fintoc.Intent, error)
}

type couponChecker interface {
	CheckUsable(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
	LockUsable(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Coupon, error)
	Consume(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type cartSource interface {
	Requests(ctx context.Context, ownerID uuid.UUID) ([]reservation.LineRequest, error)
	ClearTx(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) error
}

type userDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindShippingAddress(ctx context.Context, userID, addressID uuid.UUID) (*models.UserShippingAddress, error)
}

// Params wires the transaction service.
type Params struct {
	TxRunner  txRunner
	Repo      Repository
	Inventory inventory.Repository
	Builder   reservationBuilder
	Gateway   PaymentGateway
	Coupons   couponChecker
	Cart      cartSource
	Users     userDirectory
	Notifier  notifications.Notifier
	Metrics   *metrics.TransactionMetrics
	Logger    *logger.Logger
	// ReleaseOnPaymentFailure returns reserved units when the gateway reports
	// a failed or rejected payment.
	ReleaseOnPaymentFailure bool
}

type Service struct {
	tx               txRunner
	repo             Repository
	inventory        inventory.Repository
	builder          reservationBuilder
	gateway          PaymentGateway
	coupons          couponChecker
	cart             cartSource
	users            userDirectory
	notifier         notifications.Notifier
	metrics          *metrics.TransactionMetrics
	logg             *logger.Logger
	releaseOnFailure bool
	now              func() time.Time
}

func NewService(params Params) (*Service, error) {
	if params.TxRunner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("transactions repository required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if params.Builder == nil {
		return nil, fmt.Errorf("reservation builder required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if params.Coupons == nil {
		return nil, fmt.Errorf("coupon checker required")
	}
	if params.Cart == nil {
		return nil, fmt.Errorf("cart source required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user directory required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		tx:               params.TxRunner,
		repo:             params.Repo,
		inventory:        params.Inventory,
		builder:          params.Builder,
		gateway:          params.Gateway,
		coupons:          params.Coupons,
		cart:             params.Cart,
		users:            params.Users,
		notifier:         params.Notifier,
		metrics:          params.Metrics,
		logg:             params.Logger,
		releaseOnFailure: params.ReleaseOnPaymentFailure,
		now:              time.Now,
	}, nil
}

// CheckoutInput describes a purchase. Registered buyers check out their cart;
// guests supply Lines directly.
type CheckoutInput struct {
	Buyer    Buyer
	Lines    []reservation.LineRequest
	CouponID *uuid.UUID
}

// CheckoutResult is returned once the transaction is persisted.
type CheckoutResult struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	PaymentID     string    `json:"payment_id"`
	WidgetToken   string    `json:"widget_token"`
	Amount        int64     `json:"amount"`
}

// Checkout reserves the requested units, creates the payment intent and
// persists the transaction, all inside one database transaction holding the
// line locks. A gateway failure reverses the reservation; a persistence
// failure after the intent exists is escalated as an orphaned payment.
func (s *Service) Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error) {
	if input.Buyer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer required")
	}
	kind := input.Buyer.Kind()
	ctx = s.logg.WithField(ctx, "buyer_kind", kind.String())

	buyer, requests, err := s.prepare(ctx, input)
	if err != nil {
		s.metrics.IncCheckout(kind.String(), metrics.OutcomeRejected)
		return nil, err
	}

	var (
		result  *CheckoutResult
		intent  fintoc.Intent
		charged bool
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var pct float64
		if input.CouponID != nil {
			coupon, err := s.coupons.LockUsable(ctx, tx, *input.CouponID)
			if err != nil {
				return err
			}
			pct = coupon.DiscountPercentage
		}

		res, err := s.builder.Build(ctx, tx, requests)
		if err != nil {
			return err
		}
		amount := ApplyDiscount(res.Total, pct)
		if amount <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "discounted total must be positive")
		}

		intent, err = s.gateway.RequestPayment(ctx, amount)
		if err != nil {
			if rerr := res.Reverse(); rerr != nil {
				s.logg.Error(ctx, "transaction.reversal_failed", rerr)
			}
			s.logg.Warn(s.logg.WithField(ctx, "gateway_error", err.Error()), "transaction.reversed")
			return pkgerrors.Wrap(pkgerrors.CodeGateway, err, "payment intent could not be created")
		}
		charged = true

		txn := &models.Transaction{
			PaymentID: intent.ID,
			Status:    enums.TransactionStatusCreated,
			BuyerKind: kind,
			CouponID:  input.CouponID,
			Amount:    amount,
			Pointers:  res.Pointers,
		}
		buyer.apply(txn)
		if err := s.repo.WithTx(tx).Create(ctx, txn); err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}
		if input.CouponID != nil {
			if err := s.coupons.Consume(ctx, tx, *input.CouponID); err != nil {
				return err
			}
		}
		if err := s.inventory.WithTx(tx).SaveCounters(ctx, res.Lines); err != nil {
			return err
		}

		result = &CheckoutResult{
			TransactionID: txn.ID,
			PaymentID:     intent.ID,
			WidgetToken:   intent.WidgetToken,
			Amount:        amount,
		}
		return nil
	})
	if err != nil {
		if charged {
			alertCtx := s.logg.WithAlert(s.logg.WithPaymentID(ctx, intent.ID))
			s.logg.Error(alertCtx, "transaction.orphaned_payment", err)
			s.metrics.IncOrphanedPayment()
			s.metrics.IncCheckout(kind.String(), metrics.OutcomeRolledBack)
			return nil, pkgerrors.Wrap(pkgerrors.CodeOrphanedPayment, err, "payment could not be recorded")
		}
		if pkgerrors.IsCode(err, pkgerrors.CodeGateway) {
			s.metrics.IncCheckout(kind.String(), metrics.OutcomeRolledBack)
		} else {
			s.metrics.IncCheckout(kind.String(), metrics.OutcomeRejected)
		}
		if pkgerrors.As(err) == nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checkout failed")
		}
		return nil, err
	}

	s.metrics.IncCheckout(kind.String(), metrics.OutcomeCommitted)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"payment_id": result.PaymentID,
		"amount":     result.Amount,
	}), "transaction.created")
	return result, nil
}

// prepare validates everything that can be checked before taking locks.
func (s *Service) prepare(ctx context.Context, input CheckoutInput) (Buyer, []reservation.LineRequest, error) {
	var (
		buyer    Buyer
		requests []reservation.LineRequest
	)
	switch b := input.Buyer.(type) {
	case RegisteredBuyer:
		if b.UserID == uuid.Nil {
			return nil, nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity required")
		}
		if b.ShippingAddressID == uuid.Nil {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address required").
				WithDetails(map[string]string{"shipping_address_id": "is required"})
		}
		if _, err := s.users.FindShippingAddress(ctx, b.UserID, b.ShippingAddressID); err != nil {
			return nil, nil, err
		}
		cartLines, err := s.cart.Requests(ctx, b.UserID)
		if err != nil {
			return nil, nil, err
		}
		buyer, requests = b, cartLines
	case GuestBuyer:
		normalized := b.normalized()
		if err := validateGuest(normalized); err != nil {
			return nil, nil, err
		}
		buyer, requests = normalized, input.Lines
	default:
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported buyer")
	}

	if input.CouponID != nil {
		if _, err := s.coupons.CheckUsable(ctx, *input.CouponID); err != nil {
			return nil, nil, err
		}
	}

	merged, err := reservation.Normalize(requests)
	if err != nil {
		return nil, nil, err
	}
	return buyer, merged, nil
}

// Get returns a transaction with its pointers.
func (s *Service) Get(ctx context.Context, paymentID string) (*models.Transaction, error) {
	txn, err := s.repo.FindByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, notFoundOr(err, "load transaction")
	}
	return txn, nil
}

// ListPurchases returns the buyer's settled purchases.
func (s *Service) ListPurchases(ctx context.Context, buyerID uuid.UUID) ([]models.Transaction, error) {
	txns, err := s.repo.ListPurchases(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list purchases")
	}
	return txns, nil
}

// ListSales returns settled pointers on the seller's publications.
func (s *Service) ListSales(ctx context.Context, sellerID uuid.UUID) ([]models.TransactionPointer, error) {
	pointers, err := s.repo.ListSales(ctx, sellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list sales")
	}
	return pointers, nil
}

func notFoundOr(err error, action string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, action)
}
