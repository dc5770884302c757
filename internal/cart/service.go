package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/identity"
	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// lineConstraint names the unique index on (cart_id, product_id, variant_id).
const lineConstraint = "ux_cart_lines_product"

// Service exposes cart operations for one (store, identity) owner.
type Service interface {
	GetOrCreateCart(ctx context.Context, storeID uuid.UUID, owner identity.Identity) (*CartDTO, error)
	AddItem(ctx context.Context, storeID uuid.UUID, owner identity.Identity, input AddItemInput) (*LineDTO, error)
	UpdateItemQuantity(ctx context.Context, storeID uuid.UUID, owner identity.Identity, lineID uuid.UUID, quantity int) (*LineDTO, error)
	RemoveItem(ctx context.Context, storeID uuid.UUID, owner identity.Identity, lineID uuid.UUID) error
	Clear(ctx context.Context, storeID uuid.UUID, owner identity.Identity) error
	ComputeTotals(ctx context.Context, storeID uuid.UUID, owner identity.Identity) (*Totals, error)
	Validate(ctx context.Context, storeID uuid.UUID, owner identity.Identity) (*ValidationResult, error)
}

// AddItemInput is a request to add quantity units of a product.
type AddItemInput struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
}

type service struct {
	repo     CartRepository
	tx       txRunner
	products productLoader
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, tx txRunner, products productLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &service{repo: repo, tx: tx, products: products}, nil
}

func (s *service) GetOrCreateCart(ctx context.Context, storeID uuid.UUID, owner identity.Identity) (*CartDTO, error) {
	cart, err := s.repo.GetOrCreateCart(ctx, storeID, owner)
	if err != nil {
		return nil, classify(err, "get or create cart")
	}
	lines, err := s.repo.ListLinesWithProducts(ctx, cart.ID)
	if err != nil {
		return nil, classify(err, "list cart lines")
	}
	return newCartDTO(cart, lines), nil
}

// AddItem checks the requested quantity, then merges it into the cart inside
// a transaction, re-checking the post-merge quantity. Both checks are
// advisory; checkout holds the authoritative one.
func (s *service) AddItem(ctx context.Context, storeID uuid.UUID, owner identity.Identity, input AddItemInput) (*LineDTO, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	product, err := s.products.GetActiveProduct(ctx, storeID, input.ProductID)
	if err != nil {
		return nil, err
	}
	stock := inventory.StockOf(*product)
	if err := inventory.Require(stock, input.Quantity); err != nil {
		return nil, err
	}

	var line *models.CartLine
	for attempt := 0; attempt < 2; attempt++ {
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			txRepo := s.repo.WithTx(tx)
			cart, err := txRepo.GetOrCreateCart(ctx, storeID, owner)
			if err != nil {
				return err
			}
			existing, err := txRepo.FindLine(ctx, cart.ID, input.ProductID, input.VariantID)
			if err != nil {
				return err
			}
			if existing != nil {
				if err := inventory.Require(stock, existing.Quantity+input.Quantity); err != nil {
					return err
				}
			}
			line, err = txRepo.AddOrIncrement(ctx, cart.ID, input.ProductID, input.VariantID, input.Quantity, product.PriceCents)
			return err
		})
		if err == nil || !db.IsUniqueViolation(err, lineConstraint) {
			break
		}
	}
	if err != nil {
		if db.IsUniqueViolation(err, lineConstraint) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "cart item was modified concurrently")
		}
		return nil, classify(err, "add cart item")
	}

	line.Product = product
	dto := newLineDTO(*line)
	return &dto, nil
}

func (s *service) UpdateItemQuantity(ctx context.Context, storeID uuid.UUID, owner identity.Identity, lineID uuid.UUID, quantity int) (*LineDTO, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	cart, err := s.findCart(ctx, storeID, owner)
	if err != nil {
		return nil, err
	}
	current, err := s.repo.FindLineByID(ctx, cart.ID, lineID)
	if err != nil {
		return nil, classify(err, "load cart item")
	}
	product, err := s.products.GetActiveProduct(ctx, storeID, current.ProductID)
	if err != nil {
		return nil, err
	}
	if err := inventory.Require(inventory.StockOf(*product), quantity); err != nil {
		return nil, err
	}

	line, err := s.repo.UpdateQuantity(ctx, cart.ID, lineID, quantity)
	if err != nil {
		return nil, classify(err, "update cart item")
	}
	line.Product = product
	dto := newLineDTO(*line)
	return &dto, nil
}

func (s *service) RemoveItem(ctx context.Context, storeID uuid.UUID, owner identity.Identity, lineID uuid.UUID) error {
	if err := owner.Validate(); err != nil {
		return err
	}
	cart, err := s.findCart(ctx, storeID, owner)
	if err != nil {
		return err
	}
	if err := s.repo.RemoveLine(ctx, cart.ID, lineID); err != nil {
		return classify(err, "remove cart item")
	}
	return nil
}

// Clear empties the owner's cart. A missing cart is already clear.
func (s *service) Clear(ctx context.Context, storeID uuid.UUID, owner identity.Identity) error {
	if err := owner.Validate(); err != nil {
		return err
	}
	cart, err := s.repo.FindByOwner(ctx, storeID, owner.OwnerKey())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return classify(err, "load cart")
	}
	if _, err := s.repo.Clear(ctx, cart.ID); err != nil {
		return classify(err, "clear cart")
	}
	return nil
}

func (s *service) ComputeTotals(ctx context.Context, storeID uuid.UUID, owner identity.Identity) (*Totals, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	cart, err := s.repo.FindByOwner(ctx, storeID, owner.OwnerKey())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			totals := ComputeTotals(nil)
			return &totals, nil
		}
		return nil, classify(err, "load cart")
	}
	lines, err := s.repo.ListLines(ctx, cart.ID)
	if err != nil {
		return nil, classify(err, "list cart lines")
	}
	totals := ComputeTotals(lines)
	return &totals, nil
}

// Validate reports lines whose product is gone or short of stock. It never
// mutates the cart.
func (s *service) Validate(ctx context.Context, storeID uuid.UUID, owner identity.Identity) (*ValidationResult, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	result := &ValidationResult{Valid: true, Issues: []ValidationIssue{}}

	cart, err := s.repo.FindByOwner(ctx, storeID, owner.OwnerKey())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return result, nil
		}
		return nil, classify(err, "load cart")
	}
	lines, err := s.repo.ListLinesWithProducts(ctx, cart.ID)
	if err != nil {
		return nil, classify(err, "list cart lines")
	}

	for _, line := range lines {
		issue := ValidationIssue{LineID: line.ID, ProductID: line.ProductID, Requested: line.Quantity}
		p := line.Product
		switch {
		case p == nil || !p.IsActive || p.StoreID != storeID:
			issue.Reason = IssueProductUnavailable
		default:
			issue.ProductName = p.Name
			decision := inventory.CheckAvailability(inventory.StockOf(*p), line.Quantity)
			if decision.OK {
				continue
			}
			available := decision.Available
			issue.Available = &available
			issue.Reason = IssueInsufficientInventory
		}
		result.Valid = false
		result.Issues = append(result.Issues, issue)
	}
	return result, nil
}

func (s *service) findCart(ctx context.Context, storeID uuid.UUID, owner identity.Identity) (*models.Cart, error) {
	cart, err := s.repo.FindByOwner(ctx, storeID, owner.OwnerKey())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLineNotFound
		}
		return nil, classify(err, "load cart")
	}
	return cart, nil
}

// classify keeps typed errors and wraps storage failures as dependency errors.
func classify(err error, msg string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "cart not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
