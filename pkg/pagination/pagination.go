package pagination

import (
	"math"

	"github.com/angelmondragon/storefront-backend/pkg/types"
)

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 10
	// MaxLimit caps how many rows any listing can request.
	MaxLimit = 100
	// DefaultPage is the first page.
	DefaultPage = 1
	// MaxPage keeps (page-1)*MaxLimit inside an int32.
	MaxPage = math.MaxInt32 / MaxLimit
)

// Params holds 1-based offset pagination inputs from controllers or services.
type Params struct {
	Page  int
	Limit int
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// NormalizePage maps non-positive pages to the first page and caps at MaxPage.
func NormalizePage(page int) int {
	if page <= 0 {
		return DefaultPage
	}
	if page > MaxPage {
		return MaxPage
	}
	return page
}

// Normalize returns a copy with page and limit clamped.
func (p Params) Normalize() Params {
	return Params{Page: NormalizePage(p.Page), Limit: NormalizeLimit(p.Limit)}
}

// Offset is the number of rows skipped before the page starts.
func (p Params) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

// Meta builds the response metadata for total matching rows.
func (p Params) Meta(total int64) types.PageMeta {
	n := p.Normalize()
	pages := 0
	if total > 0 {
		pages = int((total + int64(n.Limit) - 1) / int64(n.Limit))
	}
	return types.PageMeta{
		Page:  n.Page,
		Limit: n.Limit,
		Total: total,
		Pages: pages,
	}
}
