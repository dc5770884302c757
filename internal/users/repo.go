package users

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository persists accounts. Users are global; store access lives in
// store_admins.
type Repository struct {
	base repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

// Create inserts the user built from dto. A taken email surfaces as the
// driver's unique violation; callers map it with pkg/db.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.base.DB(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail matches case-insensitively; emails are stored lowercased.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.base.DB(ctx).
		Where("email = ?", normalizeEmail(email)).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.base.DB(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.updateColumn(ctx, id, "last_login_at", at)
}

// UpdatePasswordHash swaps in a rehashed credential after a parameter upgrade.
func (r *Repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.updateColumn(ctx, id, "password_hash", hash)
}

func (r *Repository) updateColumn(ctx context.Context, id uuid.UUID, column string, value any) error {
	res := r.base.DB(ctx).Model(&models.User{}).Where("id = ?", id).UpdateColumn(column, value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
