package payloads

import (
	"github.com/google/uuid"
)

// OrderCreatedEvent is emitted once per successful checkout.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID          `json:"order_id"`
	OrderNumber string             `json:"order_number"`
	StoreID     uuid.UUID          `json:"store_id"`
	OwnerKey    string             `json:"owner_key"`
	TotalCents  int64              `json:"total_cents"`
	Currency    string             `json:"currency"`
	Items       []OrderCreatedItem `json:"items"`
}

// OrderCreatedItem is the quantity snapshot downstream consumers reconcile stock with.
type OrderCreatedItem struct {
	ProductID uuid.UUID  `json:"product_id"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Quantity  int        `json:"quantity"`
}
