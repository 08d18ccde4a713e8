// Package cart keeps the registered buyer's shopping cart, the source of the
// lines reserved at checkout.
package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/neline/marketplace-backend/internal/reservation"
	"github.com/neline/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/neline/marketplace-backend/pkg/errors"
)

// Line is a cart entry enriched with the current unit price.
type Line struct {
	PublicationItemID uuid.UUID `json:"publication_item_id"`
	PublicationID     uuid.UUID `json:"publication_id"`
	Title             string    `json:"title"`
	Variant           string    `json:"variant"`
	Amount            int64     `json:"amount"`
	PricePerUnit      int64     `json:"price_per_unit"`
	Available         int64     `json:"available"`
	IsActive          bool      `json:"is_active"`
}

type Service interface {
	List(ctx context.Context, ownerID uuid.UUID) ([]Line, error)
	Put(ctx context.Context, ownerID, publicationItemID uuid.UUID, amount int64) error
	Remove(ctx context.Context, ownerID, publicationItemID uuid.UUID) error
	Clear(ctx context.Context, ownerID uuid.UUID) error
	ClearTx(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) error
	Requests(ctx context.Context, ownerID uuid.UUID) ([]reservation.LineRequest, error)
}

type service struct {
	repo  Store
	items ItemLoader
}

func NewService(repo Store, items ItemLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if items == nil {
		return nil, fmt.Errorf("item loader required")
	}
	return &service{repo: repo, items: items}, nil
}

func (s *service) List(ctx context.Context, ownerID uuid.UUID) ([]Line, error) {
	pointers, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cart")
	}
	lines := make([]Line, 0, len(pointers))
	for _, p := range pointers {
		line := Line{PublicationItemID: p.PublicationItemID, Amount: p.Amount}
		if item := p.PublicationItem; item != nil {
			line.Variant = item.Variant
			line.Available = item.Available()
			line.PublicationID = item.PublicationID
			if pub := item.Publication; pub != nil {
				line.Title = pub.Title
				line.PricePerUnit = pub.Price
				line.IsActive = pub.IsActive
			}
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// Put adds the line or overwrites its amount. Only active publications can be added.
func (s *service) Put(ctx context.Context, ownerID, publicationItemID uuid.UUID, amount int64) error {
	if amount < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid amount").
			WithDetails(map[string]string{"amount": "amount must be at least 1"})
	}
	item, err := s.items.FindItem(ctx, publicationItemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "publication item not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load publication item")
	}
	if item.Publication == nil || !item.Publication.IsActive {
		return pkgerrors.New(pkgerrors.CodeValidation, "publication is not active").
			WithDetails(map[string]string{reservation.FieldKey(publicationItemID): reservation.MsgPublicationInactive})
	}
	pointer := &models.ShoppingCartPointer{OwnerID: ownerID, PublicationItemID: publicationItemID, Amount: amount}
	if err := s.repo.Upsert(ctx, pointer); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save cart line")
	}
	return nil
}

func (s *service) Remove(ctx context.Context, ownerID, publicationItemID uuid.UUID) error {
	found, err := s.repo.Delete(ctx, ownerID, publicationItemID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart line")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
	}
	return nil
}

func (s *service) Clear(ctx context.Context, ownerID uuid.UUID) error {
	if err := s.repo.DeleteByOwner(ctx, ownerID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
	}
	return nil
}

func (s *service) ClearTx(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) error {
	return s.repo.WithTx(tx).DeleteByOwner(ctx, ownerID)
}

// Requests converts the cart into reservation requests.
func (s *service) Requests(ctx context.Context, ownerID uuid.UUID) ([]reservation.LineRequest, error) {
	pointers, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	if len(pointers) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shopping cart is empty")
	}
	out := make([]reservation.LineRequest, 0, len(pointers))
	for _, p := range pointers {
		out = append(out, reservation.LineRequest{PublicationItemID: p.PublicationItemID, Quantity: p.Amount})
	}
	return out, nil
}
