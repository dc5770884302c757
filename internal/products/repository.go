package product

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Repository persists catalog rows. Every query is scoped by store id.
type Repository struct {
	base repo.Base
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{base: r.base.WithTx(tx)}
}

// Create inserts the product.
func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.base.DB(ctx).Create(product).Error
}

// FindByID loads a product of the store regardless of its active flag.
func (r *Repository) FindByID(ctx context.Context, storeID, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.base.Store(ctx, storeID).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDForUpdate loads and row-locks a product inside a transaction.
func (r *Repository) FindByIDForUpdate(ctx context.Context, storeID, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.base.Store(ctx, storeID).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&product, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// LockForCheckout row-locks the store's products in id order so concurrent
// checkouts over overlapping carts acquire locks in the same sequence.
func (r *Repository) LockForCheckout(ctx context.Context, storeID uuid.UUID, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Product
	err := r.base.Store(ctx, storeID).
		Where("id IN ?", ids).
		Order("id ASC").
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindActive loads an active product of the store.
func (r *Repository) FindActive(ctx context.Context, storeID, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.base.Store(ctx, storeID).
		Where("id = ? AND is_active = ?", id, true).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindActiveByIDs loads the active products of the store among ids.
func (r *Repository) FindActiveByIDs(ctx context.Context, storeID uuid.UUID, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Product
	err := r.base.Store(ctx, storeID).
		Where("id IN ? AND is_active = ?", ids, true).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListActive returns one page of active products, newest first, and the total count.
func (r *Repository) ListActive(ctx context.Context, storeID uuid.UUID, params pagination.Params) ([]models.Product, int64, error) {
	params = params.Normalize()

	query := r.base.Store(ctx, storeID).
		Model(&models.Product{}).
		Where("is_active = ?", true).
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Product
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Scopes(repo.Page(params.Page, params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// UpdateColumns writes only the named columns of product.
func (r *Repository) UpdateColumns(ctx context.Context, product *models.Product, columns []string) error {
	return r.base.Store(ctx, product.StoreID).
		Model(product).
		Select(append(columns, "updated_at")).
		Updates(product).Error
}
