package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/identity"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// CartRepository defines the persistence surface required by the cart service
// and by checkout.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	GetOrCreateCart(ctx context.Context, storeID uuid.UUID, owner identity.Identity) (*models.Cart, error)
	FindByOwner(ctx context.Context, storeID uuid.UUID, ownerKey string) (*models.Cart, error)
	FindByOwnerForUpdate(ctx context.Context, storeID uuid.UUID, ownerKey string) (*models.Cart, error)
	ListLines(ctx context.Context, cartID uuid.UUID) ([]models.CartLine, error)
	ListLinesWithProducts(ctx context.Context, cartID uuid.UUID) ([]models.CartLine, error)
	FindLine(ctx context.Context, cartID, productID uuid.UUID, variantID *uuid.UUID) (*models.CartLine, error)
	FindLineByID(ctx context.Context, cartID, lineID uuid.UUID) (*models.CartLine, error)
	AddOrIncrement(ctx context.Context, cartID, productID uuid.UUID, variantID *uuid.UUID, quantity int, unitPriceCents int64) (*models.CartLine, error)
	UpdateQuantity(ctx context.Context, cartID, lineID uuid.UUID, quantity int) (*models.CartLine, error)
	RemoveLine(ctx context.Context, cartID, lineID uuid.UUID) error
	Clear(ctx context.Context, cartID uuid.UUID) (int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	GetActiveProduct(ctx context.Context, storeID, productID uuid.UUID) (*models.Product, error)
}
