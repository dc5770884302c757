package categories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// maxDepth bounds the parent walk when checking for cycles.
const maxDepth = 32

var (
	ErrNotFound       = pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
	ErrSlugTaken      = pkgerrors.New(pkgerrors.CodeConflict, "category with this slug already exists")
	ErrHasProducts    = pkgerrors.New(pkgerrors.CodeConflict, "cannot delete category with existing products")
	ErrHasChildren    = pkgerrors.New(pkgerrors.CodeConflict, "cannot delete category with subcategories")
	ErrParentNotFound = pkgerrors.New(pkgerrors.CodeValidation, "parent category not found")
	ErrParentCycle    = pkgerrors.New(pkgerrors.CodeValidation, "parent category would create a cycle")
)

// Service exposes the category read path and the store-admin write path.
type Service interface {
	ListCategories(ctx context.Context, storeID uuid.UUID, parentID *uuid.UUID) ([]CategoryDTO, error)
	GetCategory(ctx context.Context, storeID, categoryID uuid.UUID) (*CategoryDTO, error)
	CreateCategory(ctx context.Context, userID, storeID uuid.UUID, input CreateCategoryInput) (*CategoryDTO, error)
	UpdateCategory(ctx context.Context, userID, storeID, categoryID uuid.UUID, patch Patch) (*CategoryDTO, error)
	DeleteCategory(ctx context.Context, userID, storeID, categoryID uuid.UUID) error
}

// CreateCategoryInput holds the validated payload to create a category.
type CreateCategoryInput struct {
	Name        string
	Slug        string
	Description *string
	ParentID    *uuid.UUID
	ImageURL    *string
	SortOrder   int
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

// NewService constructs a category service instance.
func NewService(repo *Repository, tx txRunner, admins adminChecker) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("category repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if admins == nil {
		return nil, fmt.Errorf("admin checker required")
	}
	return &service{repo: repo, tx: tx, admins: admins}, nil
}

func (s *service) ListCategories(ctx context.Context, storeID uuid.UUID, parentID *uuid.UUID) ([]CategoryDTO, error) {
	rows, err := s.repo.ListActive(ctx, storeID, parentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	out := make([]CategoryDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *NewCategoryDTO(&rows[i]))
	}
	return out, nil
}

// GetCategory returns a category of the store whether or not it is active.
func (s *service) GetCategory(ctx context.Context, storeID, categoryID uuid.UUID) (*CategoryDTO, error) {
	category, err := s.repo.FindByID(ctx, storeID, categoryID)
	if err != nil {
		return nil, classify(err, "load category")
	}
	return NewCategoryDTO(category), nil
}

func (s *service) CreateCategory(ctx context.Context, userID, storeID uuid.UUID, input CreateCategoryInput) (*CategoryDTO, error) {
	if err := s.ensureStoreAdmin(ctx, storeID, userID); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fieldError("name", "is required")
	}
	slug := product.Slugify(input.Slug)
	if slug == "" {
		slug = product.Slugify(name)
	}
	if slug == "" {
		return nil, fieldError("slug", "must contain letters or digits")
	}

	category := &models.Category{
		StoreID:     storeID,
		ParentID:    input.ParentID,
		Name:        name,
		Slug:        slug,
		Description: trimmedOrNil(input.Description),
		ImageURL:    trimmedOrNil(input.ImageURL),
		SortOrder:   input.SortOrder,
		IsActive:    true,
	}
	if category.ParentID != nil {
		if _, err := s.repo.FindByID(ctx, storeID, *category.ParentID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrParentNotFound
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load parent category")
		}
	}
	if err := s.repo.Create(ctx, category); err != nil {
		return nil, classify(err, "db: insert category")
	}
	return NewCategoryDTO(category), nil
}

// UpdateCategory applies an allow-listed partial update. A new parent must
// belong to the store and must not sit below the category itself.
func (s *service) UpdateCategory(ctx context.Context, userID, storeID, categoryID uuid.UUID, patch Patch) (*CategoryDTO, error) {
	if err := s.ensureStoreAdmin(ctx, storeID, userID); err != nil {
		return nil, err
	}

	var updated *models.Category
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		category, err := txRepo.FindByIDForUpdate(ctx, storeID, categoryID)
		if err != nil {
			return classify(err, "load category")
		}
		columns, err := patch.Apply(category)
		if err != nil {
			return err
		}
		if _, ok := patch["parent_id"]; ok && category.ParentID != nil {
			if err := checkAncestry(ctx, txRepo, category); err != nil {
				return err
			}
		}
		if err := txRepo.UpdateColumns(ctx, category, columns); err != nil {
			return classify(err, "db: update category")
		}
		updated = category
		return nil
	})
	if err != nil {
		return nil, classify(err, "update category")
	}
	return NewCategoryDTO(updated), nil
}

// DeleteCategory removes a category that has neither products nor subcategories.
func (s *service) DeleteCategory(ctx context.Context, userID, storeID, categoryID uuid.UUID) error {
	if err := s.ensureStoreAdmin(ctx, storeID, userID); err != nil {
		return err
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		if _, err := txRepo.FindByIDForUpdate(ctx, storeID, categoryID); err != nil {
			return classify(err, "load category")
		}
		products, err := txRepo.CountProducts(ctx, storeID, categoryID)
		if err != nil {
			return err
		}
		if products > 0 {
			return ErrHasProducts
		}
		children, err := txRepo.CountChildren(ctx, storeID, categoryID)
		if err != nil {
			return err
		}
		if children > 0 {
			return ErrHasChildren
		}
		deleted, err := txRepo.Delete(ctx, storeID, categoryID)
		if err != nil {
			if db.IsForeignKeyViolation(err) {
				return ErrHasProducts
			}
			return err
		}
		if !deleted {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return classify(err, "delete category")
	}
	return nil
}

// checkAncestry walks up from the new parent and fails when it is missing
// from the store or reaches category.
func checkAncestry(ctx context.Context, repo *Repository, category *models.Category) error {
	next := category.ParentID
	for depth := 0; next != nil; depth++ {
		if *next == category.ID || depth >= maxDepth {
			return ErrParentCycle
		}
		parent, err := repo.FindByID(ctx, category.StoreID, *next)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrParentNotFound
			}
			return err
		}
		next = parent.ParentID
	}
	return nil
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

func classify(err error, msg string) error {
	switch {
	case pkgerrors.As(err) != nil:
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case db.IsUniqueViolation(err, "ux_categories_store_slug", "categories.slug", "categories.store_id"):
		return ErrSlugTaken
	case db.IsForeignKeyViolation(err, "fk_categories_parent"):
		return ErrParentNotFound
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
	}
}
