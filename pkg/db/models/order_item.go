package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderItem copies product name, sku and price by value at checkout.
type OrderItem struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID  `gorm:"column:order_id;type:uuid;not null"`
	ProductID      uuid.UUID  `gorm:"column:product_id;type:uuid;not null"`
	VariantID      *uuid.UUID `gorm:"column:variant_id;type:uuid"`
	ProductName    string     `gorm:"column:product_name;not null"`
	ProductSKU     *string    `gorm:"column:product_sku"`
	Quantity       int        `gorm:"column:quantity;not null"`
	UnitPriceCents int64      `gorm:"column:unit_price_cents;not null"`
	TotalCents     int64      `gorm:"column:total_price_cents;not null"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
