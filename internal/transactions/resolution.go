package transactions

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/neline/marketplace-backend/internal/inventory"
	"github.com/neline/marketplace-backend/internal/notifications"
	"github.com/neline/marketplace-backend/pkg/db/models"
	"github.com/neline/marketplace-backend/pkg/enums"
	pkgerrors "github.com/neline/marketplace-backend/pkg/errors"
)

const (
	msgAlreadyResolved = "transaction already resolved"
	msgNotConfirmable  = "transaction can no longer be confirmed"
)

// Resolve applies a gateway verdict to the transaction identified by
// paymentID. Once SUCCEDED or FAILED a transaction rejects further verdicts,
// so redelivered webhooks never touch inventory twice.
func (s *Service) Resolve(ctx context.Context, paymentID string, succeeded bool) (*models.Transaction, error) {
	ctx = s.logg.WithPaymentID(ctx, paymentID)

	var resolved *models.Transaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		txn, err := repo.LockByPaymentID(ctx, paymentID)
		if err != nil {
			return notFoundOr(err, "lock transaction")
		}
		if txn.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeValidation, msgAlreadyResolved).
				WithDetails(map[string]string{"status": txn.Status.String()})
		}

		now := s.now().UTC()
		if succeeded {
			if err := s.settle(ctx, tx, txn); err != nil {
				return err
			}
			txn.Status = enums.TransactionStatusSucceeded
			txn.ReleasedAt = &now
		} else {
			txn.Status = enums.TransactionStatusFailed
			if s.releaseOnFailure && txn.ReservationHeld() {
				if _, err := s.release(ctx, tx, txn); err != nil {
					return err
				}
				txn.ReleasedAt = &now
			}
		}
		if err := repo.UpdateStatus(ctx, txn.ID, txn.Status, txn.ReleasedAt); err != nil {
			return fmt.Errorf("update transaction status: %w", err)
		}
		resolved = txn
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncResolution(resolved.Status.String())
	s.logg.Info(s.logg.WithField(ctx, "status", resolved.Status.String()), "transaction.resolved")
	kind := enums.NotificationPurchaseFailed
	if succeeded {
		kind = enums.NotificationPurchaseSucceeded
	}
	s.notify(ctx, resolved, kind)
	return resolved, nil
}

// settle turns the transaction's units into a permanent stock decrement.
func (s *Service) settle(ctx context.Context, tx *gorm.DB, txn *models.Transaction) error {
	lines, err := s.lockPointerLines(ctx, tx, txn.Pointers)
	if err != nil {
		return err
	}
	held := txn.ReservationHeld()
	for _, ptr := range txn.Pointers {
		line := lines[ptr.PublicationItemID]
		if err := inventory.Settle(line, ptr.Amount, held); err != nil {
			alertCtx := s.logg.WithAlert(s.logg.WithField(ctx, "publication_item_id", ptr.PublicationItemID.String()))
			s.logg.Error(alertCtx, "transaction.settle_failed", err)
			return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "paid units are no longer available")
		}
	}
	return s.inventory.WithTx(tx).SaveCounters(ctx, lines)
}

// release gives every pointer's units back to its line and returns the
// number of units released.
func (s *Service) release(ctx context.Context, tx *gorm.DB, txn *models.Transaction) (int64, error) {
	lines, err := s.lockPointerLines(ctx, tx, txn.Pointers)
	if err != nil {
		return 0, err
	}
	var units int64
	for _, ptr := range txn.Pointers {
		if err := inventory.Release(lines[ptr.PublicationItemID], ptr.Amount); err != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "reservation could not be released")
		}
		units += ptr.Amount
	}
	if err := s.inventory.WithTx(tx).SaveCounters(ctx, lines); err != nil {
		return 0, err
	}
	s.metrics.AddReleasedUnits(units)
	return units, nil
}

func (s *Service) lockPointerLines(ctx context.Context, tx *gorm.DB, pointers []models.TransactionPointer) (inventory.Lines, error) {
	ids := make([]uuid.UUID, 0, len(pointers))
	for _, ptr := range pointers {
		ids = append(ids, ptr.PublicationItemID)
	}
	lines, err := s.inventory.WithTx(tx).LockLines(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock inventory lines")
	}
	for _, id := range ids {
		if _, ok := lines[id]; !ok {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "publication item no longer exists").
				WithDetails(map[string]string{"publication_item_id": id.String()})
		}
	}
	return lines, nil
}

// Cancel abandons a transaction that the buyer has not yet confirmed and
// returns its reserved units.
func (s *Service) Cancel(ctx context.Context, paymentID string) (*models.Transaction, error) {
	ctx = s.logg.WithPaymentID(ctx, paymentID)

	var canceled *models.Transaction
	var units int64
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		txn, err := repo.LockByPaymentID(ctx, paymentID)
		if err != nil {
			return notFoundOr(err, "lock transaction")
		}
		switch txn.Status {
		case enums.TransactionStatusRequested, enums.TransactionStatusSucceeded, enums.TransactionStatusCanceled:
			return pkgerrors.New(pkgerrors.CodeConflict, msgAlreadyResolved).
				WithDetails(map[string]string{"status": txn.Status.String()})
		}

		if txn.ReservationHeld() {
			units, err = s.release(ctx, tx, txn)
			if err != nil {
				return err
			}
			now := s.now().UTC()
			txn.ReleasedAt = &now
		}
		txn.Status = enums.TransactionStatusCanceled
		if err := repo.UpdateStatus(ctx, txn.ID, txn.Status, txn.ReleasedAt); err != nil {
			return fmt.Errorf("update transaction status: %w", err)
		}
		canceled = txn
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncResolution(canceled.Status.String())
	s.logg.Info(s.logg.WithField(ctx, "released_units", units), "transaction.canceled")
	return canceled, nil
}

// ConfirmRequest records that the buyer finished the external payment step.
// A registered buyer confirming their own transaction also empties their cart.
func (s *Service) ConfirmRequest(ctx context.Context, paymentID string, callerID *uuid.UUID) (*models.Transaction, error) {
	ctx = s.logg.WithPaymentID(ctx, paymentID)

	var confirmed *models.Transaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		txn, err := repo.LockByPaymentID(ctx, paymentID)
		if err != nil {
			return notFoundOr(err, "lock transaction")
		}
		if txn.Status != enums.TransactionStatusCreated && txn.Status != enums.TransactionStatusRequested {
			return pkgerrors.New(pkgerrors.CodeConflict, msgNotConfirmable).
				WithDetails(map[string]string{"status": txn.Status.String()})
		}
		txn.Status = enums.TransactionStatusRequested
		if err := repo.UpdateStatus(ctx, txn.ID, txn.Status, nil); err != nil {
			return fmt.Errorf("update transaction status: %w", err)
		}
		if txn.BuyerKind == enums.BuyerKindRegistered && callerID != nil &&
			txn.BuyerID != nil && *txn.BuyerID == *callerID {
			if err := s.cart.ClearTx(ctx, tx, *callerID); err != nil {
				return err
			}
		}
		confirmed = txn
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(ctx, "transaction.requested")
	s.notify(ctx, confirmed, enums.NotificationPurchaseInProcess)
	return confirmed, nil
}

// notify runs after commit. Lookup failures only cost the email.
func (s *Service) notify(ctx context.Context, txn *models.Transaction, kind enums.NotificationKind) {
	email, err := s.buyerEmail(ctx, txn)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "lookup_error", err.Error()), "notification.recipient_unresolved")
		return
	}
	s.notifier.Notify(ctx, notifications.Message{
		Email:     email,
		Kind:      kind,
		PaymentID: txn.PaymentID,
		Context: map[string]any{
			"amount": txn.Amount,
			"status": txn.Status.String(),
		},
	})
}

func (s *Service) buyerEmail(ctx context.Context, txn *models.Transaction) (string, error) {
	if txn.BuyerKind == enums.BuyerKindGuest {
		return txn.Guest.Email, nil
	}
	if txn.BuyerID == nil {
		return "", errors.New("registered transaction without buyer")
	}
	user, err := s.users.FindByID(ctx, *txn.BuyerID)
	if err != nil {
		return "", err
	}
	return user.Email, nil
}
