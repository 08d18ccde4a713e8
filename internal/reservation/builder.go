// Package reservation turns requested line quantities into an unsaved
// transaction draft while holding row locks on every touched line.
package reservation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/neline/marketplace-backend/internal/inventory"
	"github.com/neline/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/neline/marketplace-backend/pkg/errors"
)

const (
	MsgInsufficientUnits   = "insufficient units available"
	MsgPublicationInactive = "publication is not active"
	MsgLineNotFound        = "publication item not found"
)

// LineRequest asks for Quantity units of a publication item.
type LineRequest struct {
	PublicationItemID uuid.UUID
	Quantity          int64
}

// Reservation is the outcome of a successful build. Lines carry the mutated
// reserved counters; nothing is persisted yet.
type Reservation struct {
	Total    int64
	Lines    inventory.Lines
	Pointers []models.TransactionPointer
}

// Reverse gives every reserved unit back to the in-memory lines. It is the
// compensating step when the payment intent cannot be created.
func (r *Reservation) Reverse() error {
	if r == nil {
		return nil
	}
	var errs []error
	for _, ptr := range r.Pointers {
		line, ok := r.Lines[ptr.PublicationItemID]
		if !ok {
			errs = append(errs, fmt.Errorf("reverse %s: line not locked", ptr.PublicationItemID))
			continue
		}
		if err := inventory.Release(line, ptr.Amount); err != nil {
			errs = append(errs, fmt.Errorf("reverse %s: %w", ptr.PublicationItemID, err))
		}
	}
	return errors.Join(errs...)
}

// Builder reserves inventory for a set of line requests.
type Builder struct {
	repo inventory.Repository
}

func NewBuilder(repo inventory.Repository) (*Builder, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	return &Builder{repo: repo}, nil
}

// Build locks the requested lines, validates every one of them and reserves
// the units in memory. Validation failures for all lines are reported
// together under RESERVATION_FAILED with publication_<id> keys.
func (b *Builder) Build(ctx context.Context, tx *gorm.DB, requests []LineRequest) (*Reservation, error) {
	merged, err := Normalize(requests)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(merged))
	for _, req := range merged {
		ids = append(ids, req.PublicationItemID)
	}
	lines, err := b.repo.WithTx(tx).LockLines(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock inventory lines")
	}

	failures := map[string][]string{}
	for _, req := range merged {
		key := FieldKey(req.PublicationItemID)
		line, ok := lines[req.PublicationItemID]
		if !ok {
			failures[key] = append(failures[key], MsgLineNotFound)
			continue
		}
		if line.Publication == nil || !line.Publication.IsActive {
			failures[key] = append(failures[key], MsgPublicationInactive)
		}
		if line.Available() < req.Quantity {
			failures[key] = append(failures[key], MsgInsufficientUnits)
		}
	}
	if len(failures) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeReservation, "requested units could not be reserved").WithDetails(failures)
	}

	res := &Reservation{Lines: lines, Pointers: make([]models.TransactionPointer, 0, len(merged))}
	for _, req := range merged {
		line := lines[req.PublicationItemID]
		if err := inventory.Reserve(line, req.Quantity); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reserve inventory line")
		}
		price := line.Publication.Price
		res.Pointers = append(res.Pointers, models.TransactionPointer{
			PublicationItemID: line.ID,
			Amount:            req.Quantity,
			PricePerUnit:      price,
		})
		res.Total += price * req.Quantity
	}
	return res, nil
}

// Normalize merges duplicate lines and returns them in lock order.
func Normalize(requests []LineRequest) ([]LineRequest, error) {
	if len(requests) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no publication items requested")
	}
	totals := make(map[uuid.UUID]int64, len(requests))
	invalid := map[string][]string{}
	ids := make([]uuid.UUID, 0, len(requests))
	for _, req := range requests {
		if req.PublicationItemID == uuid.Nil {
			invalid["publication_items"] = append(invalid["publication_items"], "publication item id required")
			continue
		}
		if req.Quantity <= 0 {
			key := FieldKey(req.PublicationItemID)
			invalid[key] = append(invalid[key], "amount must be at least 1")
			continue
		}
		totals[req.PublicationItemID] += req.Quantity
		ids = append(ids, req.PublicationItemID)
	}
	if len(invalid) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid publication items").WithDetails(invalid)
	}

	ordered := inventory.SortedUnique(ids)
	out := make([]LineRequest, 0, len(ordered))
	for _, id := range ordered {
		out = append(out, LineRequest{PublicationItemID: id, Quantity: totals[id]})
	}
	return out, nil
}

// FieldKey is the error detail key for a publication item.
func FieldKey(id uuid.UUID) string {
	return "publication_" + id.String()
}
