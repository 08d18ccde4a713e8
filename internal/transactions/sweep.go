package transactions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/neline/marketplace-backend/internal/inventory"
	"github.com/neline/marketplace-backend/pkg/enums"
)

// SweepResult summarizes one ExpireStale pass.
type SweepResult struct {
	Canceled      int
	ReleasedUnits int64
}

// ExpireStale cancels up to limit CREATED transactions of kind created at or
// before cutoff and returns their reserved units. Everything happens in one database
// transaction; rows held by a concurrent resolution are skipped.
func (s *Service) ExpireStale(ctx context.Context, kind enums.BuyerKind, cutoff time.Time, limit int) (SweepResult, error) {
	var result SweepResult
	if limit <= 0 {
		return result, nil
	}
	ctx = s.logg.WithField(ctx, "buyer_kind", kind.String())

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		stale, err := repo.LockStale(ctx, kind, cutoff, limit)
		if err != nil {
			return fmt.Errorf("lock stale transactions: %w", err)
		}
		if len(stale) == 0 {
			return nil
		}

		var ids []uuid.UUID
		for _, txn := range stale {
			for _, ptr := range txn.Pointers {
				ids = append(ids, ptr.PublicationItemID)
			}
		}
		lines, err := s.inventory.WithTx(tx).LockLines(ctx, ids)
		if err != nil {
			return fmt.Errorf("lock inventory lines: %w", err)
		}

		now := s.now().UTC()
		for _, txn := range stale {
			if txn.ReservationHeld() {
				for _, ptr := range txn.Pointers {
					line, ok := lines[ptr.PublicationItemID]
					if !ok {
						continue
					}
					if err := inventory.Release(line, ptr.Amount); err != nil {
						alertCtx := s.logg.WithAlert(s.logg.WithFields(ctx, map[string]any{
							"payment_id":          txn.PaymentID,
							"publication_item_id": ptr.PublicationItemID.String(),
						}))
						s.logg.Error(alertCtx, "sweeper.release_skipped", err)
						continue
					}
					result.ReleasedUnits += ptr.Amount
				}
			}
			if err := repo.UpdateStatus(ctx, txn.ID, enums.TransactionStatusCanceled, &now); err != nil {
				return fmt.Errorf("cancel transaction %s: %w", txn.PaymentID, err)
			}
			result.Canceled++
		}
		return s.inventory.WithTx(tx).SaveCounters(ctx, lines)
	})
	if err != nil {
		return SweepResult{}, err
	}

	if result.Canceled > 0 {
		s.metrics.AddReleasedUnits(result.ReleasedUnits)
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"canceled":       result.Canceled,
			"released_units": result.ReleasedUnits,
		}), "sweeper.expired")
	}
	return result, nil
}
