package categories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository persists categories. Every query is scoped by store id.
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

func (r *Repository) Create(ctx context.Context, category *models.Category) error {
	return r.base.DB(ctx).Create(category).Error
}

// FindByID loads a category of the store regardless of its active flag.
func (r *Repository) FindByID(ctx context.Context, storeID, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := r.base.Store(ctx, storeID).First(&category, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// FindByIDForUpdate loads and row-locks a category inside a transaction.
func (r *Repository) FindByIDForUpdate(ctx context.Context, storeID, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	err := r.base.Store(ctx, storeID).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&category, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// ListActive returns the active children of parentID, or the top-level
// categories when parentID is nil, ordered by sort_order then name.
func (r *Repository) ListActive(ctx context.Context, storeID uuid.UUID, parentID *uuid.UUID) ([]models.Category, error) {
	query := r.base.Store(ctx, storeID).Where("is_active = ?", true)
	if parentID == nil {
		query = query.Where("parent_id IS NULL")
	} else {
		query = query.Where("parent_id = ?", *parentID)
	}

	var rows []models.Category
	err := query.
		Order("sort_order ASC").
		Order("name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateColumns writes only the named columns of category.
func (r *Repository) UpdateColumns(ctx context.Context, category *models.Category, columns []string) error {
	return r.base.Store(ctx, category.StoreID).
		Model(category).
		Select(append(columns, "updated_at")).
		Updates(category).Error
}

// CountChildren counts the categories directly under id.
func (r *Repository) CountChildren(ctx context.Context, storeID, id uuid.UUID) (int64, error) {
	var n int64
	err := r.base.Store(ctx, storeID).
		Model(&models.Category{}).
		Where("parent_id = ?", id).
		Count(&n).Error
	return n, err
}

// CountProducts counts the products assigned to id, active or not.
func (r *Repository) CountProducts(ctx context.Context, storeID, id uuid.UUID) (int64, error) {
	var n int64
	err := r.base.Store(ctx, storeID).
		Model(&models.Product{}).
		Where("category_id = ?", id).
		Count(&n).Error
	return n, err
}

// Delete removes the category and reports whether a row was deleted.
func (r *Repository) Delete(ctx context.Context, storeID, id uuid.UUID) (bool, error) {
	res := r.base.Store(ctx, storeID).
		Where("id = ?", id).
		Delete(&models.Category{})
	return res.RowsAffected > 0, res.Error
}
