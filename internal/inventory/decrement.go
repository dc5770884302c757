package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Decrement subtracts qty from a tracked product with a relative update.
// Limited products are guarded by inventory_quantity >= qty, and a guarded
// update that matches no row fails as insufficient inventory. Backorder
// products may go below zero. Untracked products are left alone.
func Decrement(ctx context.Context, tx *gorm.DB, productID uuid.UUID, stock Stock, qty int) error {
	if !stock.TrackInventory {
		return nil
	}

	query := tx.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID)
	if stock.Limited() {
		query = query.Where("inventory_quantity >= ?", qty)
	}

	res := query.UpdateColumn("inventory_quantity", gorm.Expr("inventory_quantity - ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return InsufficientError(stock.Name, Decision{Requested: qty, Available: stock.InventoryQuantity})
	}
	return nil
}
