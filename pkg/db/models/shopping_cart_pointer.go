package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ShoppingCartPointer is a registered buyer's intent to purchase units of a line.
type ShoppingCartPointer struct {
	ID                uuid.UUID        `gorm:"type:uuid;primaryKey"`
	OwnerID           uuid.UUID        `gorm:"column:owner_id;type:uuid;not null;uniqueIndex:ux_cart_owner_item"`
	PublicationItemID uuid.UUID        `gorm:"column:publication_item_id;type:uuid;not null;uniqueIndex:ux_cart_owner_item"`
	Amount            int64            `gorm:"column:amount;not null"`
	CreatedAt         time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time        `gorm:"column:updated_at;autoUpdateTime"`
	PublicationItem   *PublicationItem `gorm:"foreignKey:PublicationItemID"`
}

func (p *ShoppingCartPointer) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
