package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/neline/marketplace-backend/pkg/db/models"
)

// Repository persists shopping cart pointers.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) Store {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// ListByOwner returns the owner's cart with each line and its publication.
func (r *Repository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.ShoppingCartPointer, error) {
	var pointers []models.ShoppingCartPointer
	err := r.db.WithContext(ctx).
		Preload("PublicationItem.Publication").
		Where("owner_id = ?", ownerID).
		Order("created_at ASC").
		Find(&pointers).Error
	if err != nil {
		return nil, err
	}
	return pointers, nil
}

// Upsert sets the amount for the (owner, item) pair.
func (r *Repository) Upsert(ctx context.Context, pointer *models.ShoppingCartPointer) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner_id"}, {Name: "publication_item_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"amount", "updated_at"}),
		}).
		Create(pointer).Error
}

// Delete removes one line and reports whether it existed.
func (r *Repository) Delete(ctx context.Context, ownerID, publicationItemID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("owner_id = ? AND publication_item_id = ?", ownerID, publicationItemID).
		Delete(&models.ShoppingCartPointer{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DeleteByOwner empties the owner's cart.
func (r *Repository) DeleteByOwner(ctx context.Context, ownerID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Delete(&models.ShoppingCartPointer{}).Error
}

// FindItem loads a publication item and its publication.
func (r *Repository) FindItem(ctx context.Context, id uuid.UUID) (*models.PublicationItem, error) {
	var item models.PublicationItem
	if err := r.db.WithContext(ctx).Preload("Publication").First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}
