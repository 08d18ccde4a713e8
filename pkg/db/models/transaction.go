package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/neline/marketplace-backend/pkg/enums"
)

// Transaction is a checkout attempt for either a registered or a guest buyer.
// Rows exist only once the gateway has issued a payment id.
type Transaction struct {
	ID                uuid.UUID               `gorm:"type:uuid;primaryKey"`
	PaymentID         string                  `gorm:"column:payment_id;not null;uniqueIndex"`
	Status            enums.TransactionStatus `gorm:"column:status;type:text;not null;default:'CREATED';index:ix_transactions_sweep,priority:2"`
	BuyerKind         enums.BuyerKind         `gorm:"column:buyer_kind;type:text;not null;index:ix_transactions_sweep,priority:1"`
	BuyerID           *uuid.UUID              `gorm:"column:buyer_id;type:uuid;index"`
	ShippingAddressID *uuid.UUID              `gorm:"column:shipping_address_id;type:uuid"`
	Guest             GuestContact            `gorm:"embedded;embeddedPrefix:guest_"`
	CouponID          *uuid.UUID              `gorm:"column:coupon_id;type:uuid;uniqueIndex"`
	Amount            int64                   `gorm:"column:amount;not null"`
	ReleasedAt        *time.Time              `gorm:"column:released_at"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime;index:ix_transactions_sweep,priority:3"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;autoUpdateTime"`
	Pointers          []TransactionPointer    `gorm:"foreignKey:TransactionID"`
}

func (t *Transaction) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// ReservationHeld reports whether the pointer units still count as reserved.
func (t Transaction) ReservationHeld() bool {
	return t.ReleasedAt == nil
}

// GuestContact carries the contact details of an accountless buyer.
type GuestContact struct {
	Name     string `gorm:"column:name"`
	LastName string `gorm:"column:lastname"`
	Phone    string `gorm:"column:phone_number"`
	Email    string `gorm:"column:email"`
	Address  string `gorm:"column:address"`
	Region   string `gorm:"column:region"`
	Commune  string `gorm:"column:commune"`
}

// TransactionPointer is one purchased line with the unit price captured at checkout.
type TransactionPointer struct {
	ID                uuid.UUID        `gorm:"type:uuid;primaryKey"`
	TransactionID     uuid.UUID        `gorm:"column:transaction_id;type:uuid;not null;index"`
	PublicationItemID uuid.UUID        `gorm:"column:publication_item_id;type:uuid;not null;index"`
	Amount            int64            `gorm:"column:amount;not null"`
	PricePerUnit      int64            `gorm:"column:price_per_unit;not null"`
	CreatedAt         time.Time        `gorm:"column:created_at;autoCreateTime"`
	PublicationItem   *PublicationItem `gorm:"foreignKey:PublicationItemID"`
}

func (p *TransactionPointer) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Subtotal is the pointer's contribution to the transaction total.
func (p TransactionPointer) Subtotal() int64 {
	return p.Amount * p.PricePerUnit
}
