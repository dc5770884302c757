package stores

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// StoreDTO is the public store payload.
type StoreDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Subdomain   string    `json:"subdomain"`
	Domain      *string   `json:"domain,omitempty"`
	Description *string   `json:"description,omitempty"`
	LogoURL     *string   `json:"logo_url,omitempty"`
	Currency    string    `json:"currency"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// StoreListResult is one page of stores.
type StoreListResult struct {
	Stores     []StoreDTO     `json:"stores"`
	Pagination types.PageMeta `json:"pagination"`
}

// FromModel converts the persisted store.
func FromModel(m *models.Store) *StoreDTO {
	if m == nil {
		return nil
	}
	return &StoreDTO{
		ID:          m.ID,
		Name:        m.Name,
		Subdomain:   m.Subdomain,
		Domain:      m.Domain,
		Description: m.Description,
		LogoURL:     m.LogoURL,
		Currency:    m.Currency,
		IsActive:    m.IsActive,
		CreatedAt:   m.CreatedAt,
	}
}
