package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// OrderDTO is an order with its items and payment.
type OrderDTO struct {
	ID              uuid.UUID      `json:"id"`
	StoreID         uuid.UUID      `json:"store_id"`
	OrderNumber     string         `json:"order_number"`
	Status          string         `json:"status"`
	SubtotalCents   int64          `json:"subtotal_cents"`
	TaxCents        int64          `json:"tax_cents"`
	ShippingCents   int64          `json:"shipping_cents"`
	DiscountCents   int64          `json:"discount_cents"`
	TotalCents      int64          `json:"total_cents"`
	Currency        string         `json:"currency"`
	ShippingAddress types.Address  `json:"shipping_address"`
	BillingAddress  types.Address  `json:"billing_address"`
	Notes           *string        `json:"notes,omitempty"`
	Items           []OrderItemDTO `json:"items"`
	Payment         *PaymentDTO    `json:"payment,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// OrderItemDTO is the by-value product snapshot of one order line.
type OrderItemDTO struct {
	ID             uuid.UUID  `json:"id"`
	ProductID      uuid.UUID  `json:"product_id"`
	VariantID      *uuid.UUID `json:"variant_id,omitempty"`
	ProductName    string     `json:"product_name"`
	ProductSKU     *string    `json:"product_sku,omitempty"`
	Quantity       int        `json:"quantity"`
	UnitPriceCents int64      `json:"unit_price_cents"`
	TotalCents     int64      `json:"total_price_cents"`
}

// PaymentDTO is the latest payment transaction of an order.
type PaymentDTO struct {
	ID            uuid.UUID `json:"id"`
	PaymentMethod string    `json:"payment_method"`
	TransactionID *string   `json:"transaction_id,omitempty"`
	AmountCents   int64     `json:"amount_cents"`
	Currency      string    `json:"currency"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// OrderListResult is one page of orders.
type OrderListResult struct {
	Orders     []OrderDTO     `json:"orders"`
	Pagination types.PageMeta `json:"pagination"`
}

// FromModel converts an order loaded with its children.
func FromModel(order *models.Order) *OrderDTO {
	dto := &OrderDTO{
		ID:              order.ID,
		StoreID:         order.StoreID,
		OrderNumber:     order.OrderNumber,
		Status:          order.Status.String(),
		SubtotalCents:   order.SubtotalCents,
		TaxCents:        order.TaxCents,
		ShippingCents:   order.ShippingCents,
		DiscountCents:   order.DiscountCents,
		TotalCents:      order.TotalCents,
		Currency:        order.Currency,
		ShippingAddress: order.ShippingAddress,
		BillingAddress:  order.BillingAddress,
		Notes:           order.Notes,
		Items:           make([]OrderItemDTO, 0, len(order.Items)),
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
	for _, item := range order.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			ID:             item.ID,
			ProductID:      item.ProductID,
			VariantID:      item.VariantID,
			ProductName:    item.ProductName,
			ProductSKU:     item.ProductSKU,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			TotalCents:     item.TotalCents,
		})
	}
	if n := len(order.Payments); n > 0 {
		latest := order.Payments[n-1]
		dto.Payment = &PaymentDTO{
			ID:            latest.ID,
			PaymentMethod: latest.PaymentMethod.String(),
			TransactionID: latest.TransactionID,
			AmountCents:   latest.AmountCents,
			Currency:      latest.Currency,
			Status:        latest.Status.String(),
			CreatedAt:     latest.CreatedAt,
		}
	}
	return dto
}
