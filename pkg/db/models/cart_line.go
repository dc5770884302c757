package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CartLine is unique per (cart_id, product_id, variant_id). UnitPriceCents is
// captured when the line is first added.
type CartLine struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	CartID         uuid.UUID  `gorm:"column:cart_id;type:uuid;not null"`
	ProductID      uuid.UUID  `gorm:"column:product_id;type:uuid;not null"`
	VariantID      *uuid.UUID `gorm:"column:variant_id;type:uuid"`
	Quantity       int        `gorm:"column:quantity;not null"`
	UnitPriceCents int64      `gorm:"column:unit_price_cents;not null"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
	Product        *Product   `gorm:"foreignKey:ProductID"`
}

func (l *CartLine) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	return nil
}
