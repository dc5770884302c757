package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/identity"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type orderReader interface {
	FindForOwner(ctx context.Context, storeID, orderID uuid.UUID, ownerKey string) (*models.Order, error)
	ListForOwner(ctx context.Context, storeID uuid.UUID, ownerKey string, q ListQuery) ([]models.Order, int64, error)
}

// Service exposes the owner-scoped order read path.
type Service interface {
	Get(ctx context.Context, storeID, orderID uuid.UUID, owner identity.Identity) (*OrderDTO, error)
	List(ctx context.Context, storeID uuid.UUID, owner identity.Identity, input ListInput) (*OrderListResult, error)
}

// ListInput carries raw listing parameters from the transport layer.
type ListInput struct {
	Page   int
	Limit  int
	Status string
}

type service struct {
	repo orderReader
}

// NewService builds the order read service.
func NewService(repo orderReader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	return &service{repo: repo}, nil
}

// Get returns the order when it belongs to both storeID and owner.
func (s *service) Get(ctx context.Context, storeID, orderID uuid.UUID, owner identity.Identity) (*OrderDTO, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	order, err := s.repo.FindForOwner(ctx, storeID, orderID, owner.OwnerKey())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return FromModel(order), nil
}

// List pages through the owner's orders newest first.
func (s *service) List(ctx context.Context, storeID uuid.UUID, owner identity.Identity, input ListInput) (*OrderListResult, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if input.Page < 0 || input.Limit < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "page and limit must be positive")
	}

	q := ListQuery{Pagination: pagination.Params{Page: input.Page, Limit: input.Limit}.Normalize()}
	if raw := strings.TrimSpace(input.Status); raw != "" {
		status, err := enums.ParseOrderStatus(strings.ToLower(raw))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		q.Status = &status
	}

	rows, total, err := s.repo.ListForOwner(ctx, storeID, owner.OwnerKey(), q)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	result := &OrderListResult{
		Orders:     make([]OrderDTO, 0, len(rows)),
		Pagination: q.Pagination.Meta(total),
	}
	for i := range rows {
		result.Orders = append(result.Orders, *FromModel(&rows[i]))
	}
	return result, nil
}
