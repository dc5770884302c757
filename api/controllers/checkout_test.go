package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	checkoutsvc "github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/identity"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type stubCheckoutService struct {
	inputs []checkoutsvc.Input
	err    error
}

func (s *stubCheckoutService) Execute(_ context.Context, input checkoutsvc.Input) (*orders.OrderDTO, error) {
	s.inputs = append(s.inputs, input)
	if s.err != nil {
		return nil, s.err
	}
	return &orders.OrderDTO{ID: uuid.New(), StoreID: input.StoreID, OrderNumber: "ORD-1", Status: "pending", TotalCents: 1099}, nil
}

const shippingJSON = `"shipping_address": {
	"first_name": "Ada", "last_name": "Lovelace", "line1": "1 Main St",
	"city": "Austin", "state": "TX", "postal_code": "78701"
}`

func postCheckout(svc checkoutsvc.Service, body string, owner *identity.Identity) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(body))
	resp := httptest.NewRecorder()
	Checkout(svc, nil)(resp, scoped(req, owner))
	return resp
}

func TestCheckoutCreatesOrder(t *testing.T) {
	svc := &stubCheckoutService{}
	owner := identity.Anonymous("sess-1")

	resp := postCheckout(svc, `{`+shippingJSON+`, "payment_method": " PayPal ", "notes": "  leave at door  "}`, &owner)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	require.Len(t, svc.inputs, 1)

	in := svc.inputs[0]
	require.Equal(t, testStore.ID, in.StoreID)
	require.Equal(t, owner.OwnerKey(), in.Owner.OwnerKey())
	require.Equal(t, enums.PaymentMethodPayPal, in.PaymentMethod)
	require.NotNil(t, in.Notes)
	require.Equal(t, "leave at door", *in.Notes)
	require.Nil(t, in.BillingAddress)

	var envelope struct {
		Data orders.OrderDTO `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	require.Equal(t, "ORD-1", envelope.Data.OrderNumber)
}

func TestCheckoutLeavesPaymentMethodEmptyWhenOmitted(t *testing.T) {
	svc := &stubCheckoutService{}
	owner := identity.Anonymous("sess-1")

	resp := postCheckout(svc, `{`+shippingJSON+`, "notes": "   "}`, &owner)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	require.Equal(t, enums.PaymentMethod(""), svc.inputs[0].PaymentMethod)
	require.Nil(t, svc.inputs[0].Notes)
}

func TestCheckoutRejectsInvalidRequests(t *testing.T) {
	owner := identity.Anonymous("sess-1")
	cases := map[string]string{
		"missing shipping address": `{}`,
		"incomplete address":       `{"shipping_address": {"first_name": "Ada"}}`,
		"unknown payment method":   `{` + shippingJSON + `, "payment_method": "bitcoin"}`,
		"notes too long":           `{` + shippingJSON + `, "notes": "` + strings.Repeat("x", 2001) + `"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &stubCheckoutService{}
			resp := postCheckout(svc, body, &owner)
			require.Equal(t, http.StatusBadRequest, resp.Code)
			require.Equal(t, string(pkgerrors.CodeValidation), decodeError(t, resp)["code"])
			require.Empty(t, svc.inputs)
		})
	}
}

func TestCheckoutRequiresOwner(t *testing.T) {
	svc := &stubCheckoutService{}
	resp := postCheckout(svc, `{`+shippingJSON+`}`, nil)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
	require.Empty(t, svc.inputs)
}

func TestCheckoutMapsServiceErrors(t *testing.T) {
	owner := identity.Anonymous("sess-1")
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{name: "empty cart", err: pkgerrors.New(pkgerrors.CodeValidation, "cart is empty"), status: http.StatusBadRequest},
		{name: "out of stock", err: pkgerrors.New(pkgerrors.CodeInsufficientInventory, "insufficient inventory"), status: http.StatusBadRequest},
		{name: "transaction", err: pkgerrors.New(pkgerrors.CodeTransaction, "checkout failed"), status: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postCheckout(&stubCheckoutService{err: tc.err}, `{`+shippingJSON+`}`, &owner)
			require.Equal(t, tc.status, resp.Code)
		})
	}
}
