package checkout

import (
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

var (
	// ErrNoCart is returned when the owner has never opened a cart in the store.
	ErrNoCart = pkgerrors.New(pkgerrors.CodeValidation, "no cart found")
	// ErrEmptyCart is returned when the cart holds no lines.
	ErrEmptyCart = pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	// ErrCartChanged is returned when the cart lines changed while checkout held them.
	ErrCartChanged = pkgerrors.New(pkgerrors.CodeConflict, "cart changed during checkout")
)

func unavailableError(productName string) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeValidation, "product no longer available: "+productName).
		WithDetails(map[string]any{"product_names": []string{productName}})
}
