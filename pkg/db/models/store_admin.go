package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// StoreAdmin grants a user write access to a store's catalog.
type StoreAdmin struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	StoreID   uuid.UUID       `gorm:"column:store_id;type:uuid;not null"`
	UserID    uuid.UUID       `gorm:"column:user_id;type:uuid;not null"`
	Role      enums.StoreRole `gorm:"column:role;type:text;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (a *StoreAdmin) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
