package controllers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const maxPatchBytes = 64 << 10

type createProductRequest struct {
	Name                string     `json:"name" validate:"required,max=255"`
	Slug                string     `json:"slug,omitempty" validate:"omitempty,max=255"`
	SKU                 *string    `json:"sku,omitempty" validate:"omitempty,max=100"`
	Description         *string    `json:"description,omitempty"`
	CategoryID          *uuid.UUID `json:"category_id,omitempty"`
	PriceCents          int64      `json:"price_cents" validate:"min=0"`
	CompareAtPriceCents *int64     `json:"compare_at_price_cents,omitempty" validate:"omitempty,min=0"`
	InventoryQuantity   int        `json:"inventory_quantity" validate:"min=0"`
	TrackInventory      *bool      `json:"track_inventory,omitempty"`
	AllowBackorders     bool       `json:"allow_backorders"`
	IsActive            *bool      `json:"is_active,omitempty"`
}

func (b createProductRequest) toInput() product.CreateProductInput {
	track := true
	if b.TrackInventory != nil {
		track = *b.TrackInventory
	}
	return product.CreateProductInput{
		Name:                b.Name,
		Slug:                b.Slug,
		SKU:                 b.SKU,
		Description:         b.Description,
		CategoryID:          b.CategoryID,
		PriceCents:          b.PriceCents,
		CompareAtPriceCents: b.CompareAtPriceCents,
		InventoryQuantity:   b.InventoryQuantity,
		TrackInventory:      track,
		AllowBackorders:     b.AllowBackorders,
		IsActive:            b.IsActive,
	}
}

// ProductList returns the store's active products.
func ProductList(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("product"))
			return
		}
		storeID := middleware.StoreIDFromContext(r.Context())
		params, err := validators.ParsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.ListProducts(r.Context(), storeID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func ProductDetail(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("product"))
			return
		}
		productID, err := validators.ParseURLUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.GetProduct(r.Context(), middleware.StoreIDFromContext(r.Context()), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ProductCreate is the store-admin write path.
func ProductCreate(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("product"))
			return
		}
		storeID, userID, err := storeAdminScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createProductRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.CreateProduct(r.Context(), userID, storeID, body.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, created)
	}
}

// ProductUpdate applies a partial update restricted to the updatable field allow-list.
func ProductUpdate(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("product"))
			return
		}
		storeID, userID, err := storeAdminScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := validators.ParseURLUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		patch, err := decodePatch(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.UpdateProduct(r.Context(), userID, storeID, productID, patch)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

func decodePatch(r *http.Request) (product.Patch, error) {
	if r.Body == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request body is required")
	}
	var patch product.Patch
	if err := json.NewDecoder(io.LimitReader(r.Body, maxPatchBytes)).Decode(&patch); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body").
			WithDetails(map[string]any{"updatable_fields": product.UpdatableFields()})
	}
	return patch, nil
}
