package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is a store catalog entry. InventoryQuantity is only meaningful when
// TrackInventory is set.
type Product struct {
	ID                uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	StoreID           uuid.UUID  `gorm:"column:store_id;type:uuid;not null"`
	CategoryID        *uuid.UUID `gorm:"column:category_id;type:uuid"`
	Name              string     `gorm:"column:name;not null"`
	Slug              string     `gorm:"column:slug;not null"`
	SKU               *string    `gorm:"column:sku"`
	Description       *string    `gorm:"column:description"`
	PriceCents        int64      `gorm:"column:price_cents;not null"`
	CompareAtCents    *int64     `gorm:"column:compare_at_price_cents"`
	InventoryQuantity int        `gorm:"column:inventory_quantity;not null"`
	TrackInventory    bool       `gorm:"column:track_inventory;not null"`
	AllowBackorders   bool       `gorm:"column:allow_backorders;not null"`
	IsActive          bool       `gorm:"column:is_active;not null"`
	CreatedAt         time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
