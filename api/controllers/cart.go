package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type addItemRequest struct {
	ProductID string  `json:"product_id" validate:"required,uuid"`
	VariantID *string `json:"variant_id,omitempty" validate:"omitempty,uuid"`
	// Quantity defaults to 1 when omitted.
	Quantity *int `json:"quantity,omitempty"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

// CartFetch returns the caller's cart for the store, creating it on first use.
func CartFetch(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("cart"))
			return
		}
		storeID, owner, err := ownerScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.GetOrCreateCart(r.Context(), storeID, owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func CartTotals(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("cart"))
			return
		}
		storeID, owner, err := ownerScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		totals, err := svc.ComputeTotals(r.Context(), storeID, owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, totals)
	}
}

// CartValidate reports lines that would fail checkout right now. It never mutates the cart.
func CartValidate(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("cart"))
			return
		}
		storeID, owner, err := ownerScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Validate(r.Context(), storeID, owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func CartAddItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("cart"))
			return
		}
		storeID, owner, err := ownerScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body addItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		line, err := svc.AddItem(r.Context(), storeID, owner, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, line)
	}
}

func CartUpdateItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("cart"))
			return
		}
		storeID, owner, err := ownerScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lineID, err := validators.ParseURLUUID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		line, err := svc.UpdateItemQuantity(r.Context(), storeID, owner, lineID, body.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, line)
	}
}

func CartRemoveItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("cart"))
			return
		}
		storeID, owner, err := ownerScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lineID, err := validators.ParseURLUUID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.RemoveItem(r.Context(), storeID, owner, lineID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func CartClear(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("cart"))
			return
		}
		storeID, owner, err := ownerScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Clear(r.Context(), storeID, owner); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func (b addItemRequest) toInput() (cart.AddItemInput, error) {
	productID, err := uuid.Parse(b.ProductID)
	if err != nil {
		return cart.AddItemInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product_id")
	}
	input := cart.AddItemInput{ProductID: productID, Quantity: 1}
	if b.Quantity != nil {
		input.Quantity = *b.Quantity
	}
	if b.VariantID != nil {
		variantID, err := uuid.Parse(*b.VariantID)
		if err != nil {
			return cart.AddItemInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid variant_id")
		}
		input.VariantID = &variantID
	}
	return input, nil
}
