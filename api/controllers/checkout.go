package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	checkoutsvc "github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

const maxNotesLen = 2000

type checkoutRequest struct {
	ShippingAddress types.Address  `json:"shipping_address"`
	BillingAddress  *types.Address `json:"billing_address,omitempty"`
	PaymentMethod   string         `json:"payment_method,omitempty"`
	Notes           *string        `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// Checkout converts the caller's cart into an order.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("checkout"))
			return
		}
		storeID, owner, err := ownerScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body checkoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := checkoutsvc.Input{
			StoreID:         storeID,
			Owner:           owner,
			ShippingAddress: body.ShippingAddress,
			BillingAddress:  body.BillingAddress,
		}
		if raw := strings.TrimSpace(body.PaymentMethod); raw != "" {
			method, err := enums.ParsePaymentMethod(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment_method").
					WithDetails(map[string]any{"field": "payment_method"}))
				return
			}
			input.PaymentMethod = method
		}
		if body.Notes != nil {
			notes := validators.SanitizeString(*body.Notes, maxNotesLen)
			if notes != "" {
				input.Notes = &notes
			}
		}

		order, err := svc.Execute(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, order)
	}
}
