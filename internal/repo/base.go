package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base provides the shared foundation for tenant-scoped repositories.
type Base struct {
	db *gorm.DB
}

// NewBase constructs a Base repository backed by the provided GORM connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// WithTx rebinds the base to tx. A nil tx keeps the current handle.
func (b Base) WithTx(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{db: tx}
}

// DB returns the GORM connection bound to the supplied context (if any).
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Store returns the connection restricted to rows of storeID.
func (b Base) Store(ctx context.Context, storeID uuid.UUID) *gorm.DB {
	return b.DB(ctx).Scopes(StoreScope(storeID))
}

// StoreScope filters a query to one tenant. Tables without a store_id
// column must join to one that has it before applying the scope.
func StoreScope(storeID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("store_id = ?", storeID)
	}
}

// Page applies offset pagination for a 1-based page.
func Page(page, limit int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset((page - 1) * limit).Limit(limit)
	}
}
