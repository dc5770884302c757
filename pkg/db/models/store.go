package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store is the tenant boundary. Every tenant-scoped table carries store_id.
type Store struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	Subdomain   string    `gorm:"column:subdomain;not null;uniqueIndex"`
	Domain      *string   `gorm:"column:domain;uniqueIndex"`
	Description *string   `gorm:"column:description"`
	LogoURL     *string   `gorm:"column:logo_url"`
	Currency    string    `gorm:"column:currency;type:char(3);not null"`
	IsActive    bool      `gorm:"column:is_active;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Store) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
