// Package inventory decides whether a requested quantity can be satisfied.
package inventory

import (
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Stock is the subset of a product row the guard reads.
type Stock struct {
	Name              string
	InventoryQuantity int
	TrackInventory    bool
	AllowBackorders   bool
}

// StockOf projects a product row.
func StockOf(p models.Product) Stock {
	return Stock{
		Name:              p.Name,
		InventoryQuantity: p.InventoryQuantity,
		TrackInventory:    p.TrackInventory,
		AllowBackorders:   p.AllowBackorders,
	}
}

// Decision is the outcome of CheckAvailability.
type Decision struct {
	OK        bool
	Requested int
	Available int
}

// Insufficient reports the negative outcome.
func (d Decision) Insufficient() bool { return !d.OK }

// Limited reports whether the product's stock bounds what can be sold.
func (s Stock) Limited() bool {
	return s.TrackInventory && !s.AllowBackorders
}

// CheckAvailability is OK when stock is untracked, backorders are allowed,
// or the tracked quantity covers requestedQty.
func CheckAvailability(stock Stock, requestedQty int) Decision {
	d := Decision{OK: true, Requested: requestedQty, Available: stock.InventoryQuantity}
	if !stock.Limited() {
		return d
	}
	d.OK = stock.InventoryQuantity >= requestedQty
	return d
}

// Require returns an INSUFFICIENT_INVENTORY error when the check fails.
func Require(stock Stock, requestedQty int) error {
	d := CheckAvailability(stock, requestedQty)
	if d.OK {
		return nil
	}
	return InsufficientError(stock.Name, d)
}

// InsufficientError builds the error carried back to the caller, naming the product.
func InsufficientError(productName string, d Decision) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeInsufficientInventory, "insufficient inventory for "+productName).
		WithDetails(map[string]any{
			"product_names": []string{productName},
			"requested":     d.Requested,
			"available":     d.Available,
		})
}
