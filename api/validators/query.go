package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// ParseQueryInt reads key as an integer in [min, max], or defaultVal when the
// parameter is absent or blank.
func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, key+" must be an integer").
			WithDetails(map[string]any{"field": key, "value": raw})
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, key+" out of range").
			WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return value, nil
}

// ParsePage reads the page and limit query parameters of a listing.
func ParsePage(r *http.Request) (pagination.Params, error) {
	page, err := ParseQueryInt(r, "page", pagination.DefaultPage, 1, pagination.MaxPage)
	if err != nil {
		return pagination.Params{}, err
	}
	limit, err := ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{Page: page, Limit: limit}, nil
}
