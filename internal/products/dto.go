package product

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// ProductDTO represents the product payload returned to clients.
type ProductDTO struct {
	ID                  uuid.UUID  `json:"id"`
	StoreID             uuid.UUID  `json:"store_id"`
	CategoryID          *uuid.UUID `json:"category_id,omitempty"`
	Name                string     `json:"name"`
	Slug                string     `json:"slug"`
	SKU                 *string    `json:"sku,omitempty"`
	Description         *string    `json:"description,omitempty"`
	PriceCents          int64      `json:"price_cents"`
	CompareAtPriceCents *int64     `json:"compare_at_price_cents,omitempty"`
	InventoryQuantity   int        `json:"inventory_quantity"`
	TrackInventory      bool       `json:"track_inventory"`
	AllowBackorders     bool       `json:"allow_backorders"`
	IsActive            bool       `json:"is_active"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// ProductListResult is one page of products.
type ProductListResult struct {
	Products   []ProductDTO   `json:"products"`
	Pagination types.PageMeta `json:"pagination"`
}

// NewProductDTO builds a DTO from the persisted model.
func NewProductDTO(product *models.Product) *ProductDTO {
	return &ProductDTO{
		ID:                  product.ID,
		StoreID:             product.StoreID,
		CategoryID:          product.CategoryID,
		Name:                product.Name,
		Slug:                product.Slug,
		SKU:                 product.SKU,
		Description:         product.Description,
		PriceCents:          product.PriceCents,
		CompareAtPriceCents: product.CompareAtCents,
		InventoryQuantity:   product.InventoryQuantity,
		TrackInventory:      product.TrackInventory,
		AllowBackorders:     product.AllowBackorders,
		IsActive:            product.IsActive,
		CreatedAt:           product.CreatedAt,
		UpdatedAt:           product.UpdatedAt,
	}
}
