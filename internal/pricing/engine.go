// Package pricing turns priced lines into order totals in integer cents.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Line is a quantity at a unit price in cents.
type Line struct {
	Quantity       int
	UnitPriceCents int64
}

// Total is Quantity x UnitPriceCents.
func (l Line) Total() int64 {
	return int64(l.Quantity) * l.UnitPriceCents
}

// Policy holds the store pricing constants.
type Policy struct {
	TaxRate               decimal.Decimal
	FreeShippingThreshold int64
	FlatShippingFee       int64
	Currency              string
}

// DefaultPolicy is 8% tax, free shipping from 7500 cents, otherwise 999 cents.
func DefaultPolicy() Policy {
	return Policy{
		TaxRate:               decimal.RequireFromString("0.08"),
		FreeShippingThreshold: 7500,
		FlatShippingFee:       999,
		Currency:              enums.CurrencyUSD.String(),
	}
}

// PolicyFromConfig builds the policy from validated config.
func PolicyFromConfig(cfg config.PricingConfig) Policy {
	currency, err := enums.ParseCurrency(cfg.Currency)
	if err != nil {
		currency = enums.CurrencyUSD
	}
	return Policy{
		TaxRate:               cfg.TaxRateDecimal(),
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		FlatShippingFee:       cfg.FlatShippingFee,
		Currency:              currency.String(),
	}
}

// Totals is the priced result. TotalCents = Subtotal + Tax + Shipping - Discount, floored at 0.
type Totals struct {
	SubtotalCents int64  `json:"subtotal_cents"`
	TaxCents      int64  `json:"tax_cents"`
	ShippingCents int64  `json:"shipping_cents"`
	DiscountCents int64  `json:"discount_cents"`
	TotalCents    int64  `json:"total_cents"`
	Currency      string `json:"currency"`
	// Clamped is set when the raw total was negative and has been floored.
	Clamped bool `json:"-"`
}

// DiscountSource supplies a discount for a subtotal. Nil means no discount.
type DiscountSource interface {
	Discount(subtotalCents int64, lines []Line) int64
}

// Engine prices line sets against a fixed policy.
type Engine struct {
	policy    Policy
	discounts DiscountSource
}

// Option customizes an Engine.
type Option func(*Engine)

// WithDiscounts installs a discount source.
func WithDiscounts(src DiscountSource) Option {
	return func(e *Engine) { e.discounts = src }
}

func NewEngine(policy Policy, opts ...Option) *Engine {
	e := &Engine{policy: policy}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the engine's policy.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Price computes totals for lines. It is deterministic for a given input.
func (e *Engine) Price(lines []Line) Totals {
	return price(lines, e.policy, e.discounts)
}

// Price computes totals with no discount source.
func Price(lines []Line, policy Policy) Totals {
	return price(lines, policy, nil)
}

func price(lines []Line, policy Policy, discounts DiscountSource) Totals {
	var subtotal int64
	for _, line := range lines {
		subtotal += line.Total()
	}

	totals := Totals{
		SubtotalCents: subtotal,
		TaxCents:      Tax(subtotal, policy.TaxRate),
		ShippingCents: Shipping(subtotal, policy),
		Currency:      policy.Currency,
	}
	if discounts != nil {
		if d := discounts.Discount(subtotal, lines); d > 0 {
			totals.DiscountCents = d
		}
	}

	total := totals.SubtotalCents + totals.TaxCents + totals.ShippingCents - totals.DiscountCents
	if total < 0 {
		total = 0
		totals.Clamped = true
	}
	totals.TotalCents = total
	return totals
}

// Tax is subtotal x rate rounded half-up to the cent.
func Tax(subtotalCents int64, rate decimal.Decimal) int64 {
	if subtotalCents <= 0 || rate.IsZero() {
		return 0
	}
	// Round is half away from zero, which is half-up for non-negative amounts.
	return decimal.NewFromInt(subtotalCents).Mul(rate).Round(0).IntPart()
}

// Shipping is free at or above the threshold, otherwise the flat fee.
func Shipping(subtotalCents int64, policy Policy) int64 {
	if subtotalCents >= policy.FreeShippingThreshold {
		return 0
	}
	return policy.FlatShippingFee
}
