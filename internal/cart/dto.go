package cart

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// LineDTO is a cart line as returned to clients.
type LineDTO struct {
	ID             uuid.UUID  `json:"id"`
	ProductID      uuid.UUID  `json:"product_id"`
	VariantID      *uuid.UUID `json:"variant_id,omitempty"`
	ProductName    string     `json:"product_name,omitempty"`
	ProductSKU     *string    `json:"product_sku,omitempty"`
	Quantity       int        `json:"quantity"`
	UnitPriceCents int64      `json:"unit_price_cents"`
	LineTotalCents int64      `json:"line_total_cents"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// CartDTO is a cart with its lines.
type CartDTO struct {
	ID            uuid.UUID `json:"id"`
	StoreID       uuid.UUID `json:"store_id"`
	Lines         []LineDTO `json:"items"`
	SubtotalCents int64     `json:"subtotal_cents"`
	ItemCount     int       `json:"item_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Totals is the pure aggregation of a cart's lines.
type Totals struct {
	SubtotalCents int64       `json:"subtotal_cents"`
	LineCount     int         `json:"line_count"`
	ItemCount     int         `json:"item_count"`
	Lines         []LineTotal `json:"lines"`
}

// LineTotal is one line's contribution to the subtotal.
type LineTotal struct {
	LineID         uuid.UUID `json:"line_id"`
	ProductID      uuid.UUID `json:"product_id"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	TotalCents     int64     `json:"total_cents"`
}

// ValidationIssue describes a line that would fail checkout right now.
type ValidationIssue struct {
	LineID      uuid.UUID `json:"line_id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name,omitempty"`
	Requested   int       `json:"requested"`
	Available   *int      `json:"available,omitempty"`
	Reason      string    `json:"reason"`
}

// ValidationResult is advisory; checkout re-checks inside its transaction.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Issues []ValidationIssue `json:"issues"`
}

const (
	IssueProductUnavailable    = "product no longer available"
	IssueInsufficientInventory = "insufficient inventory"
)

// ComputeTotals aggregates lines without consulting inventory.
func ComputeTotals(lines []models.CartLine) Totals {
	totals := Totals{
		LineCount: len(lines),
		Lines:     make([]LineTotal, 0, len(lines)),
	}
	for _, line := range lines {
		lineTotal := int64(line.Quantity) * line.UnitPriceCents
		totals.SubtotalCents += lineTotal
		totals.ItemCount += line.Quantity
		totals.Lines = append(totals.Lines, LineTotal{
			LineID:         line.ID,
			ProductID:      line.ProductID,
			Quantity:       line.Quantity,
			UnitPriceCents: line.UnitPriceCents,
			TotalCents:     lineTotal,
		})
	}
	return totals
}

func newLineDTO(line models.CartLine) LineDTO {
	dto := LineDTO{
		ID:             line.ID,
		ProductID:      line.ProductID,
		VariantID:      line.VariantID,
		Quantity:       line.Quantity,
		UnitPriceCents: line.UnitPriceCents,
		LineTotalCents: int64(line.Quantity) * line.UnitPriceCents,
		CreatedAt:      line.CreatedAt,
		UpdatedAt:      line.UpdatedAt,
	}
	if line.Product != nil {
		dto.ProductName = line.Product.Name
		dto.ProductSKU = line.Product.SKU
	}
	return dto
}

func newCartDTO(cart *models.Cart, lines []models.CartLine) *CartDTO {
	totals := ComputeTotals(lines)
	dto := &CartDTO{
		ID:            cart.ID,
		StoreID:       cart.StoreID,
		Lines:         make([]LineDTO, 0, len(lines)),
		SubtotalCents: totals.SubtotalCents,
		ItemCount:     totals.ItemCount,
		CreatedAt:     cart.CreatedAt,
		UpdatedAt:     cart.UpdatedAt,
	}
	for _, line := range lines {
		dto.Lines = append(dto.Lines, newLineDTO(line))
	}
	return dto
}
