package enums

import (
	"fmt"
	"strings"
)

// Currency is an ISO 4217 code a store can price in. All supported codes use
// two minor units, so amounts in cents need no per-currency scaling.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyCAD Currency = "CAD"
	CurrencyAUD Currency = "AUD"
)

var validCurrencies = []Currency{
	CurrencyUSD,
	CurrencyEUR,
	CurrencyGBP,
	CurrencyCAD,
	CurrencyAUD,
}

func (c Currency) String() string {
	return string(c)
}

func (c Currency) IsValid() bool {
	for _, candidate := range validCurrencies {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCurrency accepts any casing and surrounding whitespace.
func ParseCurrency(value string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(value)))
	if !c.IsValid() {
		return "", fmt.Errorf("unsupported currency %q", value)
	}
	return c, nil
}
