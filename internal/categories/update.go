package categories

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/google/uuid"

	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Patch is a partial category update keyed by JSON field name.
type Patch map[string]json.RawMessage

type fieldSetter struct {
	column string
	apply  func(raw json.RawMessage, c *models.Category) error
}

var updatableFields = map[string]fieldSetter{
	"name": {column: "name", apply: func(raw json.RawMessage, c *models.Category) error {
		var v string
		if err := decodeValue(raw, &v); err != nil || strings.TrimSpace(v) == "" {
			return fieldError("name", "must be a non-empty string")
		}
		c.Name = strings.TrimSpace(v)
		return nil
	}},
	"slug": {column: "slug", apply: func(raw json.RawMessage, c *models.Category) error {
		var v string
		if err := decodeValue(raw, &v); err != nil {
			return fieldError("slug", "must be a string")
		}
		c.Slug = product.Slugify(v)
		if c.Slug == "" {
			return fieldError("slug", "must contain letters or digits")
		}
		return nil
	}},
	"description": {column: "description", apply: func(raw json.RawMessage, c *models.Category) error {
		v, err := decodeNullableString(raw, "description")
		c.Description = v
		return err
	}},
	"image_url": {column: "image_url", apply: func(raw json.RawMessage, c *models.Category) error {
		v, err := decodeNullableString(raw, "image_url")
		c.ImageURL = v
		return err
	}},
	"parent_id": {column: "parent_id", apply: func(raw json.RawMessage, c *models.Category) error {
		if isNull(raw) {
			c.ParentID = nil
			return nil
		}
		var v uuid.UUID
		if err := json.Unmarshal(raw, &v); err != nil || v == uuid.Nil {
			return fieldError("parent_id", "must be a uuid or null")
		}
		if v == c.ID {
			return fieldError("parent_id", "cannot reference the category itself")
		}
		c.ParentID = &v
		return nil
	}},
	"sort_order": {column: "sort_order", apply: func(raw json.RawMessage, c *models.Category) error {
		var v int
		if err := decodeValue(raw, &v); err != nil {
			return fieldError("sort_order", "must be an integer")
		}
		c.SortOrder = v
		return nil
	}},
	"is_active": {column: "is_active", apply: func(raw json.RawMessage, c *models.Category) error {
		var v bool
		if err := decodeValue(raw, &v); err != nil {
			return fieldError("is_active", "must be a boolean")
		}
		c.IsActive = v
		return nil
	}},
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

// Apply rejects unknown keys before touching category, then applies the
// values and returns the written columns.
func (p Patch) Apply(category *models.Category) ([]string, error) {
	if len(p) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no valid fields to update").
			WithDetails(map[string]any{"allowed": UpdatableFields()})
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
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown category fields").
			WithDetails(map[string]any{"fields": unknown, "allowed": UpdatableFields()})
	}
	sort.Strings(keys)

	columns := make([]string, 0, len(keys))
	for _, key := range keys {
		setter := updatableFields[key]
		if err := setter.apply(p[key], category); err != nil {
			return nil, err
		}
		columns = append(columns, setter.column)
	}
	return columns, nil
}

func decodeValue(raw json.RawMessage, dst any) error {
	if isNull(raw) {
		return pkgerrors.New(pkgerrors.CodeValidation, "null not allowed")
	}
	return json.Unmarshal(raw, dst)
}

func decodeNullableString(raw json.RawMessage, field string) (*string, error) {
	if isNull(raw) {
		return nil, nil
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fieldError(field, "must be a string or null")
	}
	return trimmedOrNil(&v), nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func fieldError(field, reason string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, field+" "+reason).
		WithDetails(map[string]string{"field": field})
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
