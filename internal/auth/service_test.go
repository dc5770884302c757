package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/internal/users"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/security"
)

type stubSessions struct {
	active  map[string]uuid.UUID
	revoked []string
}

func newStubSessions() *stubSessions {
	return &stubSessions{active: map[string]uuid.UUID{}}
}

func (s *stubSessions) Start(ctx context.Context, userID uuid.UUID) (session.Session, string, error) {
	id := session.NewAccessID()
	s.active[id] = userID
	return session.Session{AccessID: id, UserID: userID}, id + ".secret", nil
}

func (s *stubSessions) Rotate(ctx context.Context, refreshToken string) (session.Session, string, error) {
	id := refreshToken
	if len(id) > len(".secret") {
		id = id[:len(id)-len(".secret")]
	}
	userID, ok := s.active[id]
	if !ok {
		return session.Session{}, "", session.ErrInvalidRefreshToken
	}
	delete(s.active, id)
	return s.Start(ctx, userID)
}

func (s *stubSessions) Revoke(ctx context.Context, accessID string) error {
	delete(s.active, accessID)
	s.revoked = append(s.revoked, accessID)
	return nil
}

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "storefront", ExpirationMinutes: 15}

func weakPasswords(iterations int) config.PasswordConfig {
	return config.PasswordConfig{ArgonMemoryKB: 8192, ArgonTime: iterations, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}
}

func newTestService(t *testing.T) (Service, *users.Repository, *stubSessions) {
	t.Helper()
	repo := users.NewRepository(dbtest.Open(t, "auth"))
	sessions := newStubSessions()
	svc, err := NewService(ServiceParams{
		Users:     repo,
		Sessions:  sessions,
		Passwords: security.NewHasher(weakPasswords(1)),
		JWTConfig: testJWT,
	})
	require.NoError(t, err)
	return svc, repo, sessions
}

func register(t *testing.T, svc Service, email string) *TokenResponse {
	t.Helper()
	resp, err := svc.Register(context.Background(), RegisterRequest{
		Email:     email,
		Password:  "correct horse",
		FirstName: "Ada",
		LastName:  "Lovelace",
	})
	require.NoError(t, err)
	return resp
}

func TestRegisterIssuesTokens(t *testing.T) {
	svc, _, sessions := newTestService(t)

	resp := register(t, svc, " Ada@Example.com ")
	require.Equal(t, "ada@example.com", resp.User.Email)
	require.True(t, resp.User.IsActive)
	require.Equal(t, "Bearer", resp.TokenType)
	require.Equal(t, 900, resp.ExpiresIn)

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	require.NoError(t, err)
	userID, err := claims.UserID()
	require.NoError(t, err)
	require.Equal(t, resp.User.ID, userID)
	require.Contains(t, sessions.active, claims.ID)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService(t)
	register(t, svc, "ada@example.com")

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email: "ADA@example.com", Password: "another pass", FirstName: "A", LastName: "L",
	})
	require.True(t, errors.Is(err, ErrEmailTaken), "got %v", err)
	require.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	cases := []RegisterRequest{
		{Email: "", Password: "long enough", FirstName: "A", LastName: "B"},
		{Email: "a@b.co", Password: "short", FirstName: "A", LastName: "B"},
		{Email: "a@b.co", Password: "long enough", FirstName: " ", LastName: "B"},
	}
	for _, req := range cases {
		_, err := svc.Register(context.Background(), req)
		require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err), "req %+v", req)
	}
}

func TestLogin(t *testing.T) {
	svc, repo, _ := newTestService(t)
	registered := register(t, svc, "ada@example.com")
	ctx := context.Background()

	resp, err := svc.Login(ctx, LoginRequest{Email: "ADA@example.com", Password: "correct horse"})
	require.NoError(t, err)
	require.Equal(t, registered.User.ID, resp.User.ID)
	require.NotNil(t, resp.User.LastLoginAt)

	stored, err := repo.FindByID(ctx, registered.User.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastLoginAt)

	for _, req := range []LoginRequest{
		{Email: "ada@example.com", Password: "wrong password"},
		{Email: "nobody@example.com", Password: "correct horse"},
		{Email: "", Password: "correct horse"},
	} {
		_, err := svc.Login(ctx, req)
		require.True(t, errors.Is(err, ErrInvalidCredentials), "req %+v: %v", req, err)
	}
}

func TestLoginRehashesOutdatedHash(t *testing.T) {
	repo := users.NewRepository(dbtest.Open(t, "auth_rehash"))
	ctx := context.Background()

	old := security.NewHasher(weakPasswords(1))
	hash, err := old.Hash("correct horse")
	require.NoError(t, err)
	user, err := repo.Create(ctx, users.CreateUserDTO{Email: "ada@example.com", PasswordHash: hash, FirstName: "Ada", LastName: "L"})
	require.NoError(t, err)

	current := security.NewHasher(weakPasswords(2))
	svc, err := NewService(ServiceParams{Users: repo, Sessions: newStubSessions(), Passwords: current, JWTConfig: testJWT})
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginRequest{Email: user.Email, Password: "correct horse"})
	require.NoError(t, err)

	stored, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotEqual(t, hash, stored.PasswordHash)
	require.False(t, current.NeedsRehash(stored.PasswordHash))
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	repo := users.NewRepository(dbtest.Open(t, "auth_inactive"))
	ctx := context.Background()
	hasher := security.NewHasher(weakPasswords(1))
	hash, err := hasher.Hash("correct horse")
	require.NoError(t, err)
	inactive := false
	_, err = repo.Create(ctx, users.CreateUserDTO{Email: "off@example.com", PasswordHash: hash, FirstName: "O", LastName: "F", IsActive: &inactive})
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{Users: repo, Sessions: newStubSessions(), Passwords: hasher, JWTConfig: testJWT})
	require.NoError(t, err)
	_, err = svc.Login(ctx, LoginRequest{Email: "off@example.com", Password: "correct horse"})
	require.True(t, errors.Is(err, ErrInvalidCredentials))
}

func TestRefreshRotatesAndLogoutRevokes(t *testing.T) {
	svc, _, sessions := newTestService(t)
	ctx := context.Background()
	first := register(t, svc, "ada@example.com")

	next, err := svc.Refresh(ctx, RefreshRequest{RefreshToken: first.RefreshToken})
	require.NoError(t, err)
	require.NotEqual(t, first.RefreshToken, next.RefreshToken)
	require.Equal(t, first.User.ID, next.User.ID)

	_, err = svc.Refresh(ctx, RefreshRequest{RefreshToken: first.RefreshToken})
	require.True(t, errors.Is(err, ErrInvalidRefresh), "got %v", err)

	claims, err := pkgAuth.ParseAccessToken(testJWT, next.AccessToken)
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, claims.ID))
	require.NotContains(t, sessions.active, claims.ID)

	_, err = svc.Refresh(ctx, RefreshRequest{RefreshToken: next.RefreshToken})
	require.True(t, errors.Is(err, ErrInvalidRefresh))

	require.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(svc.Logout(ctx, "")))
}

func TestMe(t *testing.T) {
	svc, _, _ := newTestService(t)
	resp := register(t, svc, "ada@example.com")

	me, err := svc.Me(context.Background(), resp.User.ID)
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", me.Email)

	_, err = svc.Me(context.Background(), uuid.New())
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestTokensUseClock(t *testing.T) {
	repo := users.NewRepository(dbtest.Open(t, "auth_clock"))
	fixed := time.Now().Add(-time.Hour)
	svc, err := NewService(ServiceParams{
		Users: repo, Sessions: newStubSessions(), Passwords: security.NewHasher(weakPasswords(1)),
		JWTConfig: testJWT, Clock: func() time.Time { return fixed },
	})
	require.NoError(t, err)

	resp := register(t, svc, "ada@example.com")
	_, err = pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	require.Error(t, err, "token minted an hour ago with 15m ttl must be expired")
}
