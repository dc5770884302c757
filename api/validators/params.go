package validators

import (
	"net/http"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ParseURLUUID reads a chi path parameter as a UUID.
func ParseURLUUID(r *http.Request, key string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, key))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid "+key).WithDetails(map[string]any{"field": key})
	}
	return id, nil
}

// ParseQueryEnum returns the trimmed query value or nil when absent. valid
// reports whether a present value is acceptable.
func ParseQueryEnum(r *http.Request, key string, valid func(string) bool) (*string, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	if valid != nil && !valid(raw) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid "+key).WithDetails(map[string]any{"field": key, "value": raw})
	}
	return &raw, nil
}
