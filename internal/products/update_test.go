package product

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func TestPatchApplyAllowListed(t *testing.T) {
	t.Parallel()

	product := &models.Product{Name: "Old", Slug: "old", PriceCents: 100}
	patch := Patch{
		"name":                   json.RawMessage(`"  New Name "`),
		"price_cents":            json.RawMessage(`2500`),
		"compare_at_price_cents": json.RawMessage(`null`),
		"track_inventory":        json.RawMessage(`true`),
		"slug":                   json.RawMessage(`"Summer Sale!! 2026"`),
	}

	columns, err := patch.Apply(product)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"compare_at_price_cents", "name", "price_cents", "slug", "track_inventory"}
	if !reflect.DeepEqual(columns, want) {
		t.Fatalf("expected columns %v, got %v", want, columns)
	}
	if product.Name != "New Name" || product.PriceCents != 2500 || !product.TrackInventory {
		t.Fatalf("patch not applied: %+v", product)
	}
	if product.Slug != "summer-sale-2026" {
		t.Fatalf("expected slugified slug, got %q", product.Slug)
	}
}

func TestPatchApplyRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	product := &models.Product{Name: "Keep"}
	patch := Patch{
		"name":     json.RawMessage(`"Changed"`),
		"store_id": json.RawMessage(`"00000000-0000-0000-0000-000000000000"`),
		"id":       json.RawMessage(`"x"`),
	}

	_, err := patch.Apply(product)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, _ := typed.Details().(map[string]any)
	if fields, _ := details["fields"].([]string); !reflect.DeepEqual(fields, []string{"id", "store_id"}) {
		t.Fatalf("expected unknown fields listed, got %#v", details)
	}
	if product.Name != "Keep" {
		t.Fatalf("no field may be applied when the patch is rejected")
	}
}

func TestPatchApplyValidation(t *testing.T) {
	t.Parallel()

	cases := map[string]Patch{
		"empty":          {},
		"blank name":     {"name": json.RawMessage(`"   "`)},
		"negative price": {"price_cents": json.RawMessage(`-1`)},
		"fraction price": {"price_cents": json.RawMessage(`10.5`)},
		"string bool":    {"is_active": json.RawMessage(`"yes"`)},
		"null quantity":  {"inventory_quantity": json.RawMessage(`null`)},
		"negative stock": {"inventory_quantity": json.RawMessage(`-4`)},
	}
	for name, patch := range cases {
		name, patch := name, patch
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := patch.Apply(&models.Product{})
			if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestPatchApplyClearsOptionalStrings(t *testing.T) {
	t.Parallel()

	sku := "ABC"
	product := &models.Product{SKU: &sku}
	if _, err := (Patch{"sku": json.RawMessage(`null`)}).Apply(product); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if product.SKU != nil {
		t.Fatalf("expected sku cleared, got %v", *product.SKU)
	}
}

func TestSlugify(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Hello World":        "hello-world",
		"  --Desk   Lamp-- ": "desk-lamp",
		"ÜBER 3000":          "ber-3000",
		"!!!":                "",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Fatalf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}
