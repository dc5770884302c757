package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type sessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

type userFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Authenticator validates bearer access tokens against the live session store
// and the user's active flag.
type Authenticator struct {
	cfg      config.JWTConfig
	sessions sessionChecker
	users    userFinder
	logg     *logger.Logger
}

func NewAuthenticator(cfg config.JWTConfig, sessions sessionChecker, users userFinder, logg *logger.Logger) *Authenticator {
	return &Authenticator{cfg: cfg, sessions: sessions, users: users, logg: logg}
}

// Required rejects requests without a valid bearer token.
func (a *Authenticator) Required(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			responses.WriteError(r.Context(), a.logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}
		ctx, err := a.authenticate(r.Context(), token)
		if err != nil {
			responses.WriteError(r.Context(), a.logg, w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Optional authenticates when a bearer token is present. A present but
// invalid token is still rejected.
func (a *Authenticator) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		ctx, err := a.authenticate(r.Context(), token)
		if err != nil {
			responses.WriteError(r.Context(), a.logg, w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Authenticator) authenticate(ctx context.Context, token string) (context.Context, error) {
	claims, err := auth.ParseAccessToken(a.cfg, token)
	if err != nil {
		if auth.IsExpired(err) {
			return ctx, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "token expired")
		}
		return ctx, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	userID, err := claims.UserID()
	if err != nil {
		return ctx, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token subject")
	}

	if a.sessions != nil {
		ok, err := a.sessions.HasSession(ctx, claims.ID)
		if err != nil {
			return ctx, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
		}
		if !ok {
			return ctx, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable")
		}
	}

	if a.users != nil {
		user, err := a.users.FindByID(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ctx, pkgerrors.New(pkgerrors.CodeUnauthorized, "user not found")
			}
			return ctx, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
		}
		if !user.IsActive {
			return ctx, pkgerrors.New(pkgerrors.CodeUnauthorized, "account disabled")
		}
	}

	ctx = WithUserID(ctx, userID, claims.ID)
	if a.logg != nil {
		ctx = a.logg.WithUserID(ctx, userID.String())
	}
	return ctx, nil
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}
