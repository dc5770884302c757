package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Cart is the single open basket for one (store_id, owner_key) pair.
type Cart struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	StoreID      uuid.UUID  `gorm:"column:store_id;type:uuid;not null"`
	OwnerKey     string     `gorm:"column:owner_key;not null"`
	UserID       *uuid.UUID `gorm:"column:user_id;type:uuid"`
	SessionToken *string    `gorm:"column:session_token"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
	Lines        []CartLine `gorm:"foreignKey:CartID"`
}

func (c *Cart) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
