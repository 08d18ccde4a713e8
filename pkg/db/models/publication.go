package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Publication is a seller listing. Price is per unit in the smallest currency unit.
type Publication struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	SellerID    uuid.UUID `gorm:"column:seller_id;type:uuid;not null;index"`
	Title       string    `gorm:"column:title;not null"`
	Description string    `gorm:"column:description;type:text"`
	Price       int64     `gorm:"column:price;not null"`
	IsActive    bool      `gorm:"column:is_active;not null"`
	IsAccepted  bool      `gorm:"column:is_accepted;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Publication) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// PublicationItem is an inventory line: one sellable variant of a publication.
type PublicationItem struct {
	ID            uuid.UUID    `gorm:"type:uuid;primaryKey"`
	PublicationID uuid.UUID    `gorm:"column:publication_id;type:uuid;not null;index"`
	Variant       string       `gorm:"column:variant;not null;default:''"`
	Amount        int64        `gorm:"column:amount;not null;default:0"`
	Reserved      int64        `gorm:"column:reserved;not null;default:0"`
	UpdatedAt     time.Time    `gorm:"column:updated_at;autoUpdateTime"`
	Publication   *Publication `gorm:"foreignKey:PublicationID"`
}

func (i *PublicationItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// Available is the number of units that can still be reserved.
func (i PublicationItem) Available() int64 {
	return i.Amount - i.Reserved
}
