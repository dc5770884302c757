package inventory

import (
	"context"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func TestDecrement(t *testing.T) {
	db := dbtest.Open(t, "inventory_decrement")
	store := dbtest.SeedStore(t, db, "alpha")
	ctx := context.Background()

	reload := func(p *models.Product) int {
		t.Helper()
		var got models.Product
		if err := db.First(&got, "id = ?", p.ID).Error; err != nil {
			t.Fatalf("reload: %v", err)
		}
		return got.InventoryQuantity
	}

	tracked := dbtest.SeedProduct(t, db, store.ID, "Tracked", 100, dbtest.Tracked(5))
	if err := Decrement(ctx, db, tracked.ID, StockOf(*tracked), 3); err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if got := reload(tracked); got != 2 {
		t.Fatalf("expected 2 left, got %d", got)
	}

	// The stale snapshot still says 5; the guard reads the row.
	err := Decrement(ctx, db, tracked.ID, StockOf(*tracked), 3)
	if pkgerrors.CodeOf(err) != pkgerrors.CodeInsufficientInventory {
		t.Fatalf("expected insufficient inventory, got %v", err)
	}
	if got := reload(tracked); got != 2 {
		t.Fatalf("failed decrement must not change stock, got %d", got)
	}

	backorder := dbtest.SeedProduct(t, db, store.ID, "Backorder", 100, dbtest.Tracked(1), dbtest.Backorders())
	if err := Decrement(ctx, db, backorder.ID, StockOf(*backorder), 4); err != nil {
		t.Fatalf("backorder decrement: %v", err)
	}
	if got := reload(backorder); got != -3 {
		t.Fatalf("expected backorder stock -3, got %d", got)
	}

	untracked := dbtest.SeedProduct(t, db, store.ID, "Untracked", 100)
	if err := Decrement(ctx, db, untracked.ID, StockOf(*untracked), 50); err != nil {
		t.Fatalf("untracked decrement: %v", err)
	}
	if got := reload(untracked); got != 0 {
		t.Fatalf("untracked stock should stay 0, got %d", got)
	}
}
