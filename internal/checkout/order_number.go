package checkout

import (
	"crypto/rand"
	"encoding/base32"
	"time"
)

const (
	orderNumberPrefix = "ORD-"
	orderNumberLayout = "20060102150405"
	orderNumberRandom = 5 // bytes, encodes to 8 base32 chars without padding
)

// OrderNumberFunc produces a candidate order number for the given instant.
type OrderNumberFunc func(now time.Time) string

// NewOrderNumber returns ORD-<yyyymmddHHMMSS>-<8 base32 chars>. Uniqueness is
// enforced by the orders table, not by the random suffix.
func NewOrderNumber(now time.Time) string {
	var buf [orderNumberRandom]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic("checkout: crypto/rand unavailable: " + err.Error())
	}
	return orderNumberPrefix + now.UTC().Format(orderNumberLayout) + "-" + base32.StdEncoding.EncodeToString(buf[:])
}
