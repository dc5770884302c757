package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Order is the immutable snapshot produced by checkout.
// TotalCents = SubtotalCents + TaxCents + ShippingCents - DiscountCents.
type Order struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	StoreID         uuid.UUID            `gorm:"column:store_id;type:uuid;not null"`
	OwnerKey        string               `gorm:"column:owner_key;not null"`
	UserID          *uuid.UUID           `gorm:"column:user_id;type:uuid"`
	SessionToken    *string              `gorm:"column:session_token"`
	OrderNumber     string               `gorm:"column:order_number;not null;uniqueIndex:ux_orders_order_number"`
	Status          enums.OrderStatus    `gorm:"column:status;type:text;not null"`
	SubtotalCents   int64                `gorm:"column:subtotal_cents;not null"`
	TaxCents        int64                `gorm:"column:tax_cents;not null"`
	ShippingCents   int64                `gorm:"column:shipping_cents;not null"`
	DiscountCents   int64                `gorm:"column:discount_cents;not null"`
	TotalCents      int64                `gorm:"column:total_cents;not null"`
	Currency        string               `gorm:"column:currency;type:char(3);not null"`
	ShippingAddress types.Address        `gorm:"column:shipping_address;type:jsonb;serializer:json;not null"`
	BillingAddress  types.Address        `gorm:"column:billing_address;type:jsonb;serializer:json;not null"`
	Notes           *string              `gorm:"column:notes"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`
	Items           []OrderItem          `gorm:"foreignKey:OrderID"`
	Payments        []PaymentTransaction `gorm:"foreignKey:OrderID"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}
