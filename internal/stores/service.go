package stores

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Service resolves and lists stores.
type Service interface {
	Resolve(ctx context.Context, domainToken string) (*StoreDTO, error)
	List(ctx context.Context, params pagination.Params) (*StoreListResult, error)
	IsStoreAdmin(ctx context.Context, storeID, userID uuid.UUID) (bool, error)
}

type storeRepository interface {
	FindByDomain(ctx context.Context, token string) (*models.Store, error)
	ListActive(ctx context.Context, params pagination.Params) ([]models.Store, int64, error)
	IsStoreAdmin(ctx context.Context, storeID, userID uuid.UUID) (bool, error)
}

type service struct {
	repo storeRepository
}

// NewService constructs the store service.
func NewService(repo storeRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("store repository required")
	}
	return &service{repo: repo}, nil
}

// Resolve returns the active store addressed by domainToken. Unknown tokens
// are NOT_FOUND and inactive stores are FORBIDDEN.
func (s *service) Resolve(ctx context.Context, domainToken string) (*StoreDTO, error) {
	token := strings.ToLower(strings.TrimSpace(domainToken))
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
	}
	store, err := s.repo.FindByDomain(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}
	if !store.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "store is not active")
	}
	return FromModel(store), nil
}

func (s *service) List(ctx context.Context, params pagination.Params) (*StoreListResult, error) {
	rows, total, err := s.repo.ListActive(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stores")
	}
	result := &StoreListResult{
		Stores:     make([]StoreDTO, 0, len(rows)),
		Pagination: params.Meta(total),
	}
	for i := range rows {
		result.Stores = append(result.Stores, *FromModel(&rows[i]))
	}
	return result, nil
}

func (s *service) IsStoreAdmin(ctx context.Context, storeID, userID uuid.UUID) (bool, error) {
	return s.repo.IsStoreAdmin(ctx, storeID, userID)
}
