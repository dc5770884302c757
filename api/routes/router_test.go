package routes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	checkoutsvc "github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/identity"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/stores"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

// memoryRedis satisfies the redis surface the router needs.
type memoryRedis struct {
	stubPinger
	mu     sync.Mutex
	values map[string]string
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{values: map[string]string{}}
}

func (m *memoryRedis) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryRedis) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = toString(value)
	return nil
}

func (m *memoryRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = toString(value)
	return true, nil
}

func (m *memoryRedis) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func (m *memoryRedis) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (m *memoryRedis) CountInWindow(_ context.Context, _ string, window time.Duration) (int64, time.Duration, error) {
	return 1, window, nil
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return ""
	}
}

var testStore = &stores.StoreDTO{ID: uuid.New(), Name: "Acme", Subdomain: "acme", Currency: "USD", IsActive: true}

type stubStores struct {
	stores.Service
	admins map[uuid.UUID]bool
}

func (s stubStores) Resolve(_ context.Context, token string) (*stores.StoreDTO, error) {
	if token == testStore.Subdomain {
		return testStore, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
}

func (s stubStores) IsStoreAdmin(_ context.Context, _, userID uuid.UUID) (bool, error) {
	return s.admins[userID], nil
}

type stubCart struct {
	cart.Service
	owners []identity.Identity
}

func (s *stubCart) GetOrCreateCart(_ context.Context, storeID uuid.UUID, owner identity.Identity) (*cart.CartDTO, error) {
	s.owners = append(s.owners, owner)
	return &cart.CartDTO{ID: uuid.New(), StoreID: storeID, Lines: []cart.LineDTO{}}, nil
}

type stubCheckout struct {
	calls int
}

func (s *stubCheckout) Execute(_ context.Context, input checkoutsvc.Input) (*orders.OrderDTO, error) {
	s.calls++
	return &orders.OrderDTO{ID: uuid.New(), StoreID: input.StoreID, OrderNumber: "ORD-TEST", Status: "pending"}, nil
}

type noSessions struct{}

func (noSessions) HasSession(context.Context, string) (bool, error) { return false, nil }

type noUsers struct{}

func (noUsers) FindByID(context.Context, uuid.UUID) (*models.User, error) {
	return nil, gorm.ErrRecordNotFound
}

func testConfig() *config.Config {
	return &config.Config{
		App:  config.AppConfig{Env: "test"},
		JWT:  config.JWTConfig{Secret: "secret", Issuer: "storefront", ExpirationMinutes: 60},
		CORS: config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		AuthRateLimit: config.AuthRateLimitConfig{
			LoginWindow:    time.Minute,
			RegisterWindow: time.Minute,
		},
		Redis: config.RedisConfig{IdempotencyTTL: time.Hour},
	}
}

func newTestRouter(t *testing.T, mutate func(*Dependencies)) http.Handler {
	t.Helper()
	cfg := testConfig()
	deps := Dependencies{
		Config:        cfg,
		DB:            stubPinger{},
		Redis:         newMemoryRedis(),
		Authenticator: middleware.NewAuthenticator(cfg.JWT, noSessions{}, noUsers{}, nil),
		Stores:        stubStores{},
		Cart:          &stubCart{},
		Checkout:      &stubCheckout{},
	}
	if mutate != nil {
		mutate(&deps)
	}
	return NewRouter(deps)
}

func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func TestHealthLive(t *testing.T) {
	resp := do(newTestRouter(t, nil), httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got := resp.Header().Get("X-Storefront-Env"); got != "test" {
		t.Fatalf("unexpected env header %q", got)
	}
}

func TestHealthReadyReportsFailingDependency(t *testing.T) {
	router := newTestRouter(t, func(d *Dependencies) {
		r := newMemoryRedis()
		r.err = errors.New("connection refused")
		d.Redis = r
	})
	resp := do(router, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), string(pkgerrors.CodeDependency)) {
		t.Fatalf("expected dependency error body, got %s", resp.Body.String())
	}
}

func TestHealthReadyOK(t *testing.T) {
	resp := do(newTestRouter(t, nil), httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestUnknownStoreIs404(t *testing.T) {
	resp := do(newTestRouter(t, nil), httptest.NewRequest(http.MethodGet, "/api/v1/stores/nope/cart", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestStoreProfileSetsStoreHeaders(t *testing.T) {
	resp := do(newTestRouter(t, nil), httptest.NewRequest(http.MethodGet, "/api/v1/stores/acme", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got := resp.Header().Get(middleware.StoreIDHeader); got != testStore.ID.String() {
		t.Fatalf("unexpected store header %q", got)
	}
}

func TestCartMutationRequiresIdentity(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/stores/acme/cart/items", strings.NewReader(`{}`))
	resp := do(newTestRouter(t, nil), req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCartFetchMintsSession(t *testing.T) {
	carts := &stubCart{}
	router := newTestRouter(t, func(d *Dependencies) { d.Cart = carts })

	resp := do(router, httptest.NewRequest(http.MethodGet, "/api/v1/stores/acme/cart", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	token := resp.Header().Get(middleware.SessionHeader)
	if token == "" {
		t.Fatalf("expected minted session header")
	}
	if len(carts.owners) != 1 || !carts.owners[0].IsAnonymous() {
		t.Fatalf("expected one anonymous owner, got %v", carts.owners)
	}
	if got, _ := carts.owners[0].SessionToken(); got != token {
		t.Fatalf("cart owner %q does not match header %q", got, token)
	}
}

func TestInvalidBearerRejectedOnCart(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/stores/acme/cart", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp := do(newTestRouter(t, nil), req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

const checkoutBody = `{
	"shipping_address": {
		"first_name": "Ada", "last_name": "Lovelace", "line1": "1 Main St",
		"city": "Austin", "state": "TX", "postal_code": "78701"
	}
}`

func TestCheckoutReplaysIdempotentRequest(t *testing.T) {
	svc := &stubCheckout{}
	router := newTestRouter(t, func(d *Dependencies) { d.Checkout = svc })

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/stores/acme/checkout", strings.NewReader(checkoutBody))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(middleware.SessionHeader, "sess-1")
		req.Header.Set(middleware.IdempotencyHeader, "key-1")
		return do(router, req)
	}

	first := send()
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", first.Code, first.Body.String())
	}
	second := send()
	if second.Code != http.StatusCreated {
		t.Fatalf("expected replayed 201 got %d", second.Code)
	}
	if second.Header().Get(middleware.ReplayedHeader) != "true" {
		t.Fatalf("expected replay header")
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("replayed body differs")
	}
	if svc.calls != 1 {
		t.Fatalf("expected checkout to run once, ran %d", svc.calls)
	}
}

func TestProductCreateRequiresAuthentication(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/stores/acme/products", strings.NewReader(`{}`))
	resp := do(newTestRouter(t, nil), req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCategoryWritesRequireAuthentication(t *testing.T) {
	router := newTestRouter(t, nil)
	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodPost, "/api/v1/stores/acme/categories", strings.NewReader(`{}`)),
		httptest.NewRequest(http.MethodDelete, "/api/v1/stores/acme/categories/"+uuid.NewString(), nil),
	} {
		if resp := do(router, req); resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401 got %d", req.Method, req.URL.Path, resp.Code)
		}
	}
}
