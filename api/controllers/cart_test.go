package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/identity"
	"github.com/angelmondragon/storefront-backend/internal/stores"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

var testStore = &stores.StoreDTO{ID: uuid.New(), Name: "Acme", Subdomain: "acme", Currency: "USD", IsActive: true}

// scoped attaches the store and owner that the store and identity middleware would set.
func scoped(req *http.Request, owner *identity.Identity) *http.Request {
	ctx := middleware.WithStore(req.Context(), testStore)
	if owner != nil {
		ctx = middleware.WithIdentity(ctx, *owner)
	}
	return req.WithContext(ctx)
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(req.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body struct {
		Error map[string]any `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	return body.Error
}

type stubCartService struct {
	cart.Service
	added     []cart.AddItemInput
	updated   map[uuid.UUID]int
	removed   []uuid.UUID
	cleared   int
	addErr    error
	lastOwner identity.Identity
}

func (s *stubCartService) GetOrCreateCart(_ context.Context, storeID uuid.UUID, owner identity.Identity) (*cart.CartDTO, error) {
	s.lastOwner = owner
	return &cart.CartDTO{ID: uuid.New(), StoreID: storeID, Lines: []cart.LineDTO{}}, nil
}

func (s *stubCartService) AddItem(_ context.Context, _ uuid.UUID, owner identity.Identity, input cart.AddItemInput) (*cart.LineDTO, error) {
	s.lastOwner = owner
	if s.addErr != nil {
		return nil, s.addErr
	}
	s.added = append(s.added, input)
	return &cart.LineDTO{ID: uuid.New(), ProductID: input.ProductID, Quantity: input.Quantity}, nil
}

func (s *stubCartService) UpdateItemQuantity(_ context.Context, _ uuid.UUID, _ identity.Identity, lineID uuid.UUID, quantity int) (*cart.LineDTO, error) {
	if s.updated == nil {
		s.updated = map[uuid.UUID]int{}
	}
	s.updated[lineID] = quantity
	return &cart.LineDTO{ID: lineID, Quantity: quantity}, nil
}

func (s *stubCartService) RemoveItem(_ context.Context, _ uuid.UUID, _ identity.Identity, lineID uuid.UUID) error {
	s.removed = append(s.removed, lineID)
	return nil
}

func (s *stubCartService) Clear(context.Context, uuid.UUID, identity.Identity) error {
	s.cleared++
	return nil
}

func TestCartFetchRequiresIdentity(t *testing.T) {
	resp := httptest.NewRecorder()
	CartFetch(&stubCartService{}, nil)(resp, scoped(httptest.NewRequest(http.MethodGet, "/cart", nil), nil))
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestCartFetchRequiresStore(t *testing.T) {
	owner := identity.Anonymous("sess-1")
	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req = req.WithContext(middleware.WithIdentity(req.Context(), owner))

	resp := httptest.NewRecorder()
	CartFetch(&stubCartService{}, nil)(resp, req)
	require.Equal(t, http.StatusForbidden, resp.Code)
}

func TestCartFetchPassesOwner(t *testing.T) {
	svc := &stubCartService{}
	owner := identity.Authenticated(uuid.New())

	resp := httptest.NewRecorder()
	CartFetch(svc, nil)(resp, scoped(httptest.NewRequest(http.MethodGet, "/cart", nil), &owner))
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, owner.OwnerKey(), svc.lastOwner.OwnerKey())
}

func TestCartAddItemDefaultsQuantity(t *testing.T) {
	svc := &stubCartService{}
	owner := identity.Anonymous("sess-1")
	productID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(`{"product_id":"`+productID.String()+`"}`))
	resp := httptest.NewRecorder()
	CartAddItem(svc, nil)(resp, scoped(req, &owner))

	require.Equal(t, http.StatusCreated, resp.Code)
	require.Len(t, svc.added, 1)
	require.Equal(t, productID, svc.added[0].ProductID)
	require.Equal(t, 1, svc.added[0].Quantity)
	require.Nil(t, svc.added[0].VariantID)
}

func TestCartAddItemRejectsBadPayloads(t *testing.T) {
	owner := identity.Anonymous("sess-1")
	cases := map[string]string{
		"missing product": `{"quantity":2}`,
		"bad product id":  `{"product_id":"nope"}`,
		"bad variant id":  `{"product_id":"` + uuid.NewString() + `","variant_id":"nope"}`,
		"unknown field":   `{"product_id":"` + uuid.NewString() + `","price":1}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &stubCartService{}
			req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(body))
			resp := httptest.NewRecorder()
			CartAddItem(svc, nil)(resp, scoped(req, &owner))

			require.Equal(t, http.StatusBadRequest, resp.Code)
			require.Equal(t, string(pkgerrors.CodeValidation), decodeError(t, resp)["code"])
			require.Empty(t, svc.added)
		})
	}
}

func TestCartAddItemSurfacesInventoryDetails(t *testing.T) {
	productID := uuid.New()
	svc := &stubCartService{
		addErr: pkgerrors.New(pkgerrors.CodeInsufficientInventory, "insufficient inventory").
			WithDetails(map[string]any{"product_id": productID.String(), "available": 2, "requested": 5}),
	}
	owner := identity.Anonymous("sess-1")
	req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(`{"product_id":"`+productID.String()+`","quantity":5}`))

	resp := httptest.NewRecorder()
	CartAddItem(svc, nil)(resp, scoped(req, &owner))

	require.Equal(t, http.StatusBadRequest, resp.Code)
	errBody := decodeError(t, resp)
	require.Equal(t, string(pkgerrors.CodeInsufficientInventory), errBody["code"])
	details, ok := errBody["details"].(map[string]any)
	require.True(t, ok, "expected details in %v", errBody)
	require.Equal(t, float64(2), details["available"])
}

func TestCartUpdateAndRemoveItem(t *testing.T) {
	svc := &stubCartService{}
	owner := identity.Anonymous("sess-1")
	lineID := uuid.New()

	req := httptest.NewRequest(http.MethodPatch, "/cart/items/"+lineID.String(), strings.NewReader(`{"quantity":3}`))
	req = withURLParam(scoped(req, &owner), "itemId", lineID.String())
	resp := httptest.NewRecorder()
	CartUpdateItem(svc, nil)(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, 3, svc.updated[lineID])

	req = httptest.NewRequest(http.MethodDelete, "/cart/items/"+lineID.String(), nil)
	req = withURLParam(scoped(req, &owner), "itemId", lineID.String())
	resp = httptest.NewRecorder()
	CartRemoveItem(svc, nil)(resp, req)
	require.Equal(t, http.StatusNoContent, resp.Code)
	require.Equal(t, []uuid.UUID{lineID}, svc.removed)

	req = withURLParam(scoped(httptest.NewRequest(http.MethodDelete, "/cart/items/x", nil), &owner), "itemId", "x")
	resp = httptest.NewRecorder()
	CartRemoveItem(svc, nil)(resp, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCartClear(t *testing.T) {
	svc := &stubCartService{}
	owner := identity.Anonymous("sess-1")
	resp := httptest.NewRecorder()
	CartClear(svc, nil)(resp, scoped(httptest.NewRequest(http.MethodDelete, "/cart", nil), &owner))
	require.Equal(t, http.StatusNoContent, resp.Code)
	require.Equal(t, 1, svc.cleared)
}

func TestCartNilServiceIs500(t *testing.T) {
	owner := identity.Anonymous("sess-1")
	resp := httptest.NewRecorder()
	CartFetch(nil, nil)(resp, scoped(httptest.NewRequest(http.MethodGet, "/cart", nil), &owner))
	require.Equal(t, http.StatusInternalServerError, resp.Code)
}
