package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Category groups products of one store. A nil ParentID marks a top-level
// category; a parent always belongs to the same store.
type Category struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	StoreID     uuid.UUID  `gorm:"column:store_id;type:uuid;not null"`
	ParentID    *uuid.UUID `gorm:"column:parent_id;type:uuid"`
	Name        string     `gorm:"column:name;not null"`
	Slug        string     `gorm:"column:slug;not null"`
	Description *string    `gorm:"column:description"`
	ImageURL    *string    `gorm:"column:image_url"`
	SortOrder   int        `gorm:"column:sort_order;not null"`
	IsActive    bool       `gorm:"column:is_active;not null"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Category) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
