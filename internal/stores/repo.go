package stores

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Repository handles store persistence.
type Repository struct {
	base repo.Base
}

// NewRepository binds a GORM DB to store operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

// Create persists a new store row.
func (r *Repository) Create(ctx context.Context, store *models.Store) error {
	return r.base.DB(ctx).Create(store).Error
}

// FindByID loads a store by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	var store models.Store
	if err := r.base.DB(ctx).Where("id = ?", id).First(&store).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

// FindByDomain matches token against the subdomain or the custom domain.
func (r *Repository) FindByDomain(ctx context.Context, token string) (*models.Store, error) {
	var store models.Store
	err := r.base.DB(ctx).
		Where("subdomain = ? OR domain = ?", token, token).
		Order("created_at ASC").
		First(&store).Error
	if err != nil {
		return nil, err
	}
	return &store, nil
}

// ListActive returns one page of active stores ordered by name.
func (r *Repository) ListActive(ctx context.Context, params pagination.Params) ([]models.Store, int64, error) {
	params = params.Normalize()
	query := r.base.DB(ctx).
		Model(&models.Store{}).
		Where("is_active = ?", true).
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.Store
	if err := query.Order("name ASC").Scopes(repo.Page(params.Page, params.Limit)).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// AddAdmin grants userID the role on storeID.
func (r *Repository) AddAdmin(ctx context.Context, storeID, userID uuid.UUID, role enums.StoreRole) error {
	return r.base.DB(ctx).Create(&models.StoreAdmin{
		StoreID: storeID,
		UserID:  userID,
		Role:    role,
	}).Error
}

// IsStoreAdmin reports whether userID holds any admin role on storeID.
func (r *Repository) IsStoreAdmin(ctx context.Context, storeID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.base.Store(ctx, storeID).
		Model(&models.StoreAdmin{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
