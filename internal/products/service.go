package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// ErrCategoryNotFound is returned when category_id names no category of the store.
var ErrCategoryNotFound = pkgerrors.New(pkgerrors.CodeValidation, "category not found").
	WithDetails(map[string]string{"field": "category_id"})

// Service exposes the catalog read path and the store-admin write path.
type Service interface {
	GetActiveProduct(ctx context.Context, storeID, productID uuid.UUID) (*models.Product, error)
	GetProduct(ctx context.Context, storeID, productID uuid.UUID) (*ProductDTO, error)
	ListProducts(ctx context.Context, storeID uuid.UUID, params pagination.Params) (*ProductListResult, error)
	CreateProduct(ctx context.Context, userID, storeID uuid.UUID, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, userID, storeID, productID uuid.UUID, patch Patch) (*ProductDTO, error)
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name                string
	Slug                string
	SKU                 *string
	Description         *string
	CategoryID          *uuid.UUID
	PriceCents          int64
	CompareAtPriceCents *int64
	InventoryQuantity   int
	TrackInventory      bool
	AllowBackorders     bool
	IsActive            *bool
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type adminChecker interface {
	IsStoreAdmin(ctx context.Context, storeID, userID uuid.UUID) (bool, error)
}

type service struct {
	repo   *Repository
	tx     txRunner
	admins adminChecker
}

// NewService constructs a product service instance.
func NewService(repo *Repository, tx txRunner, admins adminChecker) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if admins == nil {
		return nil, fmt.Errorf("admin checker required")
	}
	return &service{repo: repo, tx: tx, admins: admins}, nil
}

// GetActiveProduct returns the product when it exists in the store and is active.
func (s *service) GetActiveProduct(ctx context.Context, storeID, productID uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindActive(ctx, storeID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) GetProduct(ctx context.Context, storeID, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.GetActiveProduct(ctx, storeID, productID)
	if err != nil {
		return nil, err
	}
	return NewProductDTO(product), nil
}

func (s *service) ListProducts(ctx context.Context, storeID uuid.UUID, params pagination.Params) (*ProductListResult, error) {
	rows, total, err := s.repo.ListActive(ctx, storeID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	result := &ProductListResult{
		Products:   make([]ProductDTO, 0, len(rows)),
		Pagination: params.Meta(total),
	}
	for i := range rows {
		result.Products = append(result.Products, *NewProductDTO(&rows[i]))
	}
	return result, nil
}

// CreateProduct inserts a product owned by the store.
func (s *service) CreateProduct(ctx context.Context, userID, storeID uuid.UUID, input CreateProductInput) (*ProductDTO, error) {
	if err := s.ensureStoreAdmin(ctx, storeID, userID); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fieldError("name", "is required")
	}
	slug := Slugify(input.Slug)
	if slug == "" {
		slug = Slugify(name)
	}
	if slug == "" {
		return nil, fieldError("slug", "must contain letters or digits")
	}
	if input.PriceCents < 0 {
		return nil, fieldError("price_cents", "must be non-negative")
	}
	if input.CompareAtPriceCents != nil && *input.CompareAtPriceCents < 0 {
		return nil, fieldError("compare_at_price_cents", "must be non-negative")
	}
	if input.InventoryQuantity < 0 {
		return nil, fieldError("inventory_quantity", "must be non-negative")
	}

	product := &models.Product{
		StoreID:           storeID,
		Name:              name,
		Slug:              slug,
		SKU:               trimmedOrNil(input.SKU),
		Description:       trimmedOrNil(input.Description),
		CategoryID:        input.CategoryID,
		PriceCents:        input.PriceCents,
		CompareAtCents:    input.CompareAtPriceCents,
		InventoryQuantity: input.InventoryQuantity,
		TrackInventory:    input.TrackInventory,
		AllowBackorders:   input.AllowBackorders,
		IsActive:          true,
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	if err := s.repo.Create(ctx, product); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "product with this sku or slug already exists")
		}
		if db.IsForeignKeyViolation(err, "fk_products_category") {
			return nil, ErrCategoryNotFound
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
	}
	return NewProductDTO(product), nil
}

// UpdateProduct applies an allow-listed partial update.
func (s *service) UpdateProduct(ctx context.Context, userID, storeID, productID uuid.UUID, patch Patch) (*ProductDTO, error) {
	if err := s.ensureStoreAdmin(ctx, storeID, userID); err != nil {
		return nil, err
	}

	var updated *models.Product
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		product, err := txRepo.FindByIDForUpdate(ctx, storeID, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}

		columns, err := patch.Apply(product)
		if err != nil {
			return err
		}
		if err := txRepo.UpdateColumns(ctx, product, columns); err != nil {
			if db.IsUniqueViolation(err) {
				return pkgerrors.New(pkgerrors.CodeConflict, "product with this sku or slug already exists")
			}
			if db.IsForeignKeyViolation(err, "fk_products_category") {
				return ErrCategoryNotFound
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product")
		}
		updated = product
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	return NewProductDTO(updated), nil
}

func (s *service) ensureStoreAdmin(ctx context.Context, storeID, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	ok, err := s.admins.IsStoreAdmin(ctx, storeID, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check store admin")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeForbidden, "store admin access required")
	}
	return nil
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
