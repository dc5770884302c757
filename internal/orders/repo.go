package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Repository reads and appends orders. Nothing here updates an order's
// totals, items or address snapshots.
type Repository struct {
	base repo.Base
}

// NewRepository binds the repository to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{base: r.base.WithTx(tx)}
}

// CreateOrder inserts the order row only. Items are written separately.
func (r *Repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.base.DB(ctx).Omit("Items", "Payments").Create(order).Error
}

// CreateItems inserts the order items.
func (r *Repository) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.base.DB(ctx).Create(&items).Error
}

// CreatePayment inserts a payment transaction.
func (r *Repository) CreatePayment(ctx context.Context, payment *models.PaymentTransaction) error {
	return r.base.DB(ctx).Create(payment).Error
}

// FindForOwner loads an order with items and payments. Orders of another
// store or another owner are reported as gorm.ErrRecordNotFound.
func (r *Repository) FindForOwner(ctx context.Context, storeID, orderID uuid.UUID, ownerKey string) (*models.Order, error) {
	var order models.Order
	err := r.base.Store(ctx, storeID).
		Scopes(withChildren).
		Where("id = ? AND owner_key = ?", orderID, ownerKey).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListQuery filters ListForOwner.
type ListQuery struct {
	Pagination pagination.Params
	Status     *enums.OrderStatus
}

// ListForOwner returns one page of the owner's orders, newest first, and the total count.
func (r *Repository) ListForOwner(ctx context.Context, storeID uuid.UUID, ownerKey string, q ListQuery) ([]models.Order, int64, error) {
	params := q.Pagination.Normalize()

	query := r.base.Store(ctx, storeID).
		Model(&models.Order{}).
		Where("owner_key = ?", ownerKey)
	if q.Status != nil {
		query = query.Where("status = ?", *q.Status)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Order
	err := query.
		Scopes(withChildren).
		Order("created_at DESC").
		Order("id DESC").
		Scopes(repo.Page(params.Page, params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func withChildren(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("id ASC")
		}).
		Preload("Payments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		})
}
