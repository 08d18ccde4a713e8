// Package inventory owns the amount/reserved counters of publication items.
// Counters are only mutated on rows locked by LockLines inside a transaction.
package inventory

import (
	"errors"

	"github.com/neline/marketplace-backend/pkg/db/models"
)

var (
	ErrInvalidQuantity       = errors.New("quantity must be positive")
	ErrInsufficientAvailable = errors.New("insufficient units available")
	ErrOverRelease           = errors.New("release exceeds reserved units")
)

// Reserve holds qty units of the line for a pending transaction.
func Reserve(line *models.PublicationItem, qty int64) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if line.Available() < qty {
		return ErrInsufficientAvailable
	}
	line.Reserved += qty
	return nil
}

// Release returns qty previously reserved units to the available pool.
func Release(line *models.PublicationItem, qty int64) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if line.Reserved < qty {
		return ErrOverRelease
	}
	line.Reserved -= qty
	return nil
}

// Settle removes qty sold units from the line. When held is true the units
// come out of the reservation; otherwise they must still be available.
func Settle(line *models.PublicationItem, qty int64, held bool) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if held {
		if line.Reserved < qty || line.Amount < qty {
			return ErrOverRelease
		}
		line.Amount -= qty
		line.Reserved -= qty
		return nil
	}
	if line.Available() < qty {
		return ErrInsufficientAvailable
	}
	line.Amount -= qty
	return nil
}
