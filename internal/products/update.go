package product

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Patch is a partial product update keyed by JSON field name.
type Patch map[string]json.RawMessage

// fieldSetter decodes one patch value onto the product. column is the
// database column written when the field is present.
type fieldSetter struct {
	column string
	apply  func(raw json.RawMessage, p *models.Product) error
}

// updatableFields is the complete set of client-writable product fields.
var updatableFields = map[string]fieldSetter{
	"name": {column: "name", apply: func(raw json.RawMessage, p *models.Product) error {
		v, err := decodeRequiredString(raw, "name")
		if err != nil {
			return err
		}
		p.Name = v
		return nil
	}},
	"slug": {column: "slug", apply: func(raw json.RawMessage, p *models.Product) error {
		v, err := decodeRequiredString(raw, "slug")
		if err != nil {
			return err
		}
		p.Slug = Slugify(v)
		if p.Slug == "" {
			return fieldError("slug", "must contain letters or digits")
		}
		return nil
	}},
	"description": {column: "description", apply: func(raw json.RawMessage, p *models.Product) error {
		v, err := decodeOptionalString(raw, "description")
		if err != nil {
			return err
		}
		p.Description = v
		return nil
	}},
	"sku": {column: "sku", apply: func(raw json.RawMessage, p *models.Product) error {
		v, err := decodeOptionalString(raw, "sku")
		if err != nil {
			return err
		}
		p.SKU = v
		return nil
	}},
	"price_cents": {column: "price_cents", apply: func(raw json.RawMessage, p *models.Product) error {
		var v int64
		if err := decodeStrict(raw, &v); err != nil {
			return fieldError("price_cents", "must be an integer")
		}
		if v < 0 {
			return fieldError("price_cents", "must be non-negative")
		}
		p.PriceCents = v
		return nil
	}},
	"compare_at_price_cents": {column: "compare_at_price_cents", apply: func(raw json.RawMessage, p *models.Product) error {
		if isNull(raw) {
			p.CompareAtCents = nil
			return nil
		}
		var v int64
		if err := decodeStrict(raw, &v); err != nil {
			return fieldError("compare_at_price_cents", "must be an integer or null")
		}
		if v < 0 {
			return fieldError("compare_at_price_cents", "must be non-negative")
		}
		p.CompareAtCents = &v
		return nil
	}},
	"inventory_quantity": {column: "inventory_quantity", apply: func(raw json.RawMessage, p *models.Product) error {
		var v int
		if err := decodeStrict(raw, &v); err != nil {
			return fieldError("inventory_quantity", "must be an integer")
		}
		if v < 0 {
			return fieldError("inventory_quantity", "must be non-negative")
		}
		p.InventoryQuantity = v
		return nil
	}},
	"category_id": {column: "category_id", apply: func(raw json.RawMessage, p *models.Product) error {
		if isNull(raw) {
			p.CategoryID = nil
			return nil
		}
		var v uuid.UUID
		if err := json.Unmarshal(raw, &v); err != nil || v == uuid.Nil {
			return fieldError("category_id", "must be a uuid or null")
		}
		p.CategoryID = &v
		return nil
	}},
	"track_inventory":  {column: "track_inventory", apply: boolSetter("track_inventory", func(p *models.Product, v bool) { p.TrackInventory = v })},
	"allow_backorders": {column: "allow_backorders", apply: boolSetter("allow_backorders", func(p *models.Product, v bool) { p.AllowBackorders = v })},
	"is_active":        {column: "is_active", apply: boolSetter("is_active", func(p *models.Product, v bool) { p.IsActive = v })},
}

// UpdatableFields lists the accepted patch keys in sorted order.
func UpdatableFields() []string {
	keys := make([]string, 0, len(updatableFields))
	for k := range updatableFields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Apply validates every key against the allow-list, then applies the values
// to product and returns the touched columns. Nothing is applied when any
// key is unknown.
func (p Patch) Apply(product *models.Product) ([]string, error) {
	if len(p) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	var unknown []string
	keys := make([]string, 0, len(p))
	for key := range p {
		if _, ok := updatableFields[key]; !ok {
			unknown = append(unknown, key)
			continue
		}
		keys = append(keys, key)
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown product fields").
			WithDetails(map[string]any{"fields": unknown, "allowed": UpdatableFields()})
	}
	sort.Strings(keys)

	columns := make([]string, 0, len(keys))
	for _, key := range keys {
		setter := updatableFields[key]
		if err := setter.apply(p[key], product); err != nil {
			return nil, err
		}
		columns = append(columns, setter.column)
	}
	return columns, nil
}

func boolSetter(field string, set func(*models.Product, bool)) func(json.RawMessage, *models.Product) error {
	return func(raw json.RawMessage, p *models.Product) error {
		var v bool
		if err := decodeStrict(raw, &v); err != nil {
			return fieldError(field, "must be a boolean")
		}
		set(p, v)
		return nil
	}
}

func decodeRequiredString(raw json.RawMessage, field string) (string, error) {
	var v string
	if err := decodeStrict(raw, &v); err != nil {
		return "", fieldError(field, "must be a string")
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", fieldError(field, "is required")
	}
	return v, nil
}

func decodeOptionalString(raw json.RawMessage, field string) (*string, error) {
	if isNull(raw) {
		return nil, nil
	}
	var v string
	if err := decodeStrict(raw, &v); err != nil {
		return nil, fieldError(field, "must be a string or null")
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	return &v, nil
}

func decodeStrict(raw json.RawMessage, dst any) error {
	if isNull(raw) {
		return pkgerrors.New(pkgerrors.CodeValidation, "null not allowed")
	}
	return json.Unmarshal(raw, dst)
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func fieldError(field, reason string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, field+" "+reason).
		WithDetails(map[string]string{"field": field})
}

// Slugify lowercases s and joins runs of letters and digits with hyphens.
func Slugify(s string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		default:
			pendingDash = true
		}
	}
	return b.String()
}
