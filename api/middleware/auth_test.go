package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}

type stubSessionVerifier struct {
	ok  bool
	err error
}

func (s stubSessionVerifier) HasSession(ctx context.Context, accessID string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.ok, nil
}

type stubUsers struct {
	users map[uuid.UUID]*models.User
}

func (s stubUsers) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func activeUsers(ids ...uuid.UUID) stubUsers {
	s := stubUsers{users: map[uuid.UUID]*models.User{}}
	for _, id := range ids {
		s.users[id] = &models.User{ID: id, IsActive: true}
	}
	return s
}

func mintTestToken(t *testing.T, cfg config.JWTConfig, userID uuid.UUID) (string, string) {
	t.Helper()
	accessID := session.NewAccessID()
	token, err := auth.MintAccessToken(cfg, time.Now(), auth.AccessTokenPayload{UserID: userID, JTI: accessID})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token, accessID
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func TestAuthRejectsMissingToken(t *testing.T) {
	a := NewAuthenticator(testJWT, stubSessionVerifier{ok: true}, activeUsers(), nil)
	resp := serve(a.Required(okHandler()), httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	a := NewAuthenticator(testJWT, stubSessionVerifier{ok: true}, activeUsers(), nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	if resp := serve(a.Required(okHandler()), req); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthAllowsValidToken(t *testing.T) {
	userID := uuid.New()
	token, accessID := mintTestToken(t, testJWT, userID)
	a := NewAuthenticator(testJWT, stubSessionVerifier{ok: true}, activeUsers(userID), nil)

	var gotUser uuid.UUID
	var gotAccess string
	handler := a.Required(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = UserIDFromContext(r.Context())
		gotAccess = AccessIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	if resp := serve(handler, req); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if gotUser != userID {
		t.Fatalf("expected user %s in context, got %s", userID, gotUser)
	}
	if gotAccess != accessID {
		t.Fatalf("expected access id %s, got %s", accessID, gotAccess)
	}
}

func TestAuthRejectsRevokedSessionAndInactiveUser(t *testing.T) {
	userID := uuid.New()
	token, _ := mintTestToken(t, testJWT, userID)

	cases := []struct {
		name     string
		sessions stubSessionVerifier
		users    stubUsers
		want     int
	}{
		{"revoked session", stubSessionVerifier{ok: false}, activeUsers(userID), http.StatusUnauthorized},
		{"session store down", stubSessionVerifier{err: errors.New("redis down")}, activeUsers(userID), http.StatusServiceUnavailable},
		{"unknown user", stubSessionVerifier{ok: true}, activeUsers(), http.StatusUnauthorized},
		{"inactive user", stubSessionVerifier{ok: true}, stubUsers{users: map[uuid.UUID]*models.User{userID: {ID: userID}}}, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		a := NewAuthenticator(testJWT, tc.sessions, tc.users, nil)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		if resp := serve(a.Required(okHandler()), req); resp.Code != tc.want {
			t.Fatalf("%s: expected %d got %d", tc.name, tc.want, resp.Code)
		}
	}
}

func TestOptionalAuthPassesAnonymousButRejectsBadToken(t *testing.T) {
	a := NewAuthenticator(testJWT, stubSessionVerifier{ok: true}, activeUsers(), nil)

	var sawUser bool
	handler := a.Optional(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawUser = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	if resp := serve(handler, httptest.NewRequest(http.MethodGet, "/", nil)); resp.Code != http.StatusOK || sawUser {
		t.Fatalf("anonymous request: code=%d sawUser=%v", resp.Code, sawUser)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	if resp := serve(handler, req); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid optional token, got %d", resp.Code)
	}
}
