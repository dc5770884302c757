package enums

import (
	"fmt"
	"strings"
)

// PaymentMethod is the buyer-selected payment channel recorded on a transaction.
type PaymentMethod string

const (
	PaymentMethodCard           PaymentMethod = "card"
	PaymentMethodPayPal         PaymentMethod = "paypal"
	PaymentMethodBankTransfer   PaymentMethod = "bank_transfer"
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodCard,
	PaymentMethodPayPal,
	PaymentMethodBankTransfer,
	PaymentMethodCashOnDelivery,
}

func (m PaymentMethod) String() string {
	return string(m)
}

func (m PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParsePaymentMethod normalizes case and whitespace before matching.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validPaymentMethods {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
