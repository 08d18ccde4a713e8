package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/neline/marketplace-backend/pkg/db/models"
)

// Store persists cart pointers keyed by (owner, publication item).
type Store interface {
	// WithTx binds the store to an open transaction.
	WithTx(tx *gorm.DB) Store
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.ShoppingCartPointer, error)
	// Upsert inserts pointer or overwrites the amount of an existing one.
	Upsert(ctx context.Context, pointer *models.ShoppingCartPointer) error
	Delete(ctx context.Context, ownerID, publicationItemID uuid.UUID) (bool, error)
	DeleteByOwner(ctx context.Context, ownerID uuid.UUID) error
}

type ItemLoader interface {
	FindItem(ctx context.Context, id uuid.UUID) (*models.PublicationItem, error)
}
