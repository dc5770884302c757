package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/internal/identity"
	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// ErrLineNotFound is returned when a line does not belong to the cart.
var ErrLineNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")

// Repository exposes persistence operations for carts and their lines.
type Repository struct {
	base repo.Base
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{base: r.base.WithTx(tx)}
}

// GetOrCreateCart inserts the cart with ON CONFLICT DO NOTHING on
// (store_id, owner_key) and then reads the single surviving row, so
// concurrent first access converges on one cart.
func (r *Repository) GetOrCreateCart(ctx context.Context, storeID uuid.UUID, owner identity.Identity) (*models.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	userID, sessionToken := owner.Columns()
	candidate := &models.Cart{
		StoreID:      storeID,
		OwnerKey:     owner.OwnerKey(),
		UserID:       userID,
		SessionToken: sessionToken,
	}
	err := r.base.DB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "store_id"}, {Name: "owner_key"}},
			DoNothing: true,
		}).
		Create(candidate).Error
	if err != nil {
		return nil, err
	}
	return r.FindByOwner(ctx, storeID, candidate.OwnerKey)
}

// FindByOwner loads the cart for (storeID, ownerKey).
func (r *Repository) FindByOwner(ctx context.Context, storeID uuid.UUID, ownerKey string) (*models.Cart, error) {
	var cart models.Cart
	err := r.base.Store(ctx, storeID).
		Where("owner_key = ?", ownerKey).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// FindByOwnerForUpdate loads and row-locks the cart for (storeID, ownerKey).
// Concurrent checkouts of one cart serialize on this lock.
func (r *Repository) FindByOwnerForUpdate(ctx context.Context, storeID uuid.UUID, ownerKey string) (*models.Cart, error) {
	var cart models.Cart
	err := r.base.Store(ctx, storeID).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("owner_key = ?", ownerKey).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// ListLines returns the cart lines in insertion order.
func (r *Repository) ListLines(ctx context.Context, cartID uuid.UUID) ([]models.CartLine, error) {
	var rows []models.CartLine
	if err := r.base.DB(ctx).
		Where("cart_id = ?", cartID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListLinesWithProducts is ListLines with the product row attached to each line.
func (r *Repository) ListLinesWithProducts(ctx context.Context, cartID uuid.UUID) ([]models.CartLine, error) {
	var rows []models.CartLine
	if err := r.base.DB(ctx).
		Preload("Product").
		Where("cart_id = ?", cartID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindLine returns the line for (productID, variantID) or nil when absent.
func (r *Repository) FindLine(ctx context.Context, cartID, productID uuid.UUID, variantID *uuid.UUID) (*models.CartLine, error) {
	query := r.base.DB(ctx).Where("cart_id = ? AND product_id = ?", cartID, productID)
	if variantID == nil {
		query = query.Where("variant_id IS NULL")
	} else {
		query = query.Where("variant_id = ?", *variantID)
	}

	var line models.CartLine
	if err := query.First(&line).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &line, nil
}

// FindLineByID loads a line owned by cartID.
func (r *Repository) FindLineByID(ctx context.Context, cartID, lineID uuid.UUID) (*models.CartLine, error) {
	var line models.CartLine
	err := r.base.DB(ctx).
		Where("id = ? AND cart_id = ?", lineID, cartID).
		First(&line).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLineNotFound
		}
		return nil, err
	}
	return &line, nil
}

// AddOrIncrement merges quantity into the existing (productID, variantID) line
// with a relative update, or inserts a new line priced at unitPriceCents.
// A concurrent insert of the same line surfaces as a unique violation.
func (r *Repository) AddOrIncrement(ctx context.Context, cartID, productID uuid.UUID, variantID *uuid.UUID, quantity int, unitPriceCents int64) (*models.CartLine, error) {
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	existing, err := r.FindLine(ctx, cartID, productID, variantID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		err := r.base.DB(ctx).
			Model(&models.CartLine{}).
			Where("id = ?", existing.ID).
			Updates(map[string]any{
				"quantity":   gorm.Expr("quantity + ?", quantity),
				"updated_at": time.Now().UTC(),
			}).Error
		if err != nil {
			return nil, err
		}
		return r.FindLineByID(ctx, cartID, existing.ID)
	}

	line := &models.CartLine{
		CartID:         cartID,
		ProductID:      productID,
		VariantID:      variantID,
		Quantity:       quantity,
		UnitPriceCents: unitPriceCents,
	}
	if err := r.base.DB(ctx).Create(line).Error; err != nil {
		return nil, err
	}
	return line, nil
}

// UpdateQuantity sets the quantity of a line owned by cartID.
func (r *Repository) UpdateQuantity(ctx context.Context, cartID, lineID uuid.UUID, quantity int) (*models.CartLine, error) {
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	res := r.base.DB(ctx).
		Model(&models.CartLine{}).
		Where("id = ? AND cart_id = ?", lineID, cartID).
		Updates(map[string]any{
			"quantity":   quantity,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrLineNotFound
	}
	return r.FindLineByID(ctx, cartID, lineID)
}

// RemoveLine deletes a line owned by cartID.
func (r *Repository) RemoveLine(ctx context.Context, cartID, lineID uuid.UUID) error {
	res := r.base.DB(ctx).
		Where("id = ? AND cart_id = ?", lineID, cartID).
		Delete(&models.CartLine{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrLineNotFound
	}
	return nil
}

// Clear deletes every line of the cart and reports how many were removed.
// The cart row is kept.
func (r *Repository) Clear(ctx context.Context, cartID uuid.UUID) (int64, error) {
	res := r.base.DB(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartLine{})
	return res.RowsAffected, res.Error
}

// DeleteStaleAnonymous removes up to limit session-owned carts whose row and
// lines have not changed since cutoff. User carts are never pruned.
func (r *Repository) DeleteStaleAnonymous(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) (int64, error) {
	db := r.base.WithTx(tx).DB(ctx)

	query := db.Model(&models.Cart{}).
		Where("user_id IS NULL AND updated_at < ?", cutoff).
		Where("NOT EXISTS (SELECT 1 FROM cart_lines WHERE cart_lines.cart_id = carts.id AND cart_lines.updated_at >= ?)", cutoff).
		Order("updated_at")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var ids []uuid.UUID
	if err := query.Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	if err := db.Where("cart_id IN ?", ids).Delete(&models.CartLine{}).Error; err != nil {
		return 0, err
	}
	res := db.Where("id IN ?", ids).Delete(&models.Cart{})
	return res.RowsAffected, res.Error
}
