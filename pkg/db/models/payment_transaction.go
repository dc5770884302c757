package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// PaymentTransaction records a payment attempt. Checkout only inserts pending rows.
type PaymentTransaction struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderID       uuid.UUID           `gorm:"column:order_id;type:uuid;not null"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	TransactionID *string             `gorm:"column:transaction_id"`
	AmountCents   int64               `gorm:"column:amount_cents;not null"`
	Currency      string              `gorm:"column:currency;type:char(3);not null"`
	Status        enums.PaymentStatus `gorm:"column:status;type:text;not null"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (p *PaymentTransaction) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
