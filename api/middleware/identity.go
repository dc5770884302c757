package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/internal/identity"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// SessionHeader carries the anonymous cart session token in both directions.
const SessionHeader = "X-Session-Id"

// Identity derives the cart/order owner. It must run after
// Authenticator.Optional: an authenticated user wins over a session header.
func Identity(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			var id identity.Identity
			if userID, ok := UserIDFromContext(ctx); ok {
				id = identity.Authenticated(userID)
			} else if token := strings.TrimSpace(r.Header.Get(SessionHeader)); token != "" {
				id = identity.Anonymous(token)
			} else {
				next.ServeHTTP(w, r)
				return
			}

			if err := id.Validate(); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			ctx = WithIdentity(ctx, id)
			if logg != nil {
				ctx = logg.WithOwner(ctx, id.OwnerKey())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireIdentity rejects callers that are neither signed in nor holding a session token.
func RequireIdentity(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := IdentityFromContext(r.Context()); !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "identity required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// EnsureSession mints an anonymous session for first-time visitors and echoes
// it in the response header.
func EnsureSession(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			id, ok := IdentityFromContext(ctx)
			if !ok {
				id = identity.Anonymous(uuid.NewString())
				ctx = WithIdentity(ctx, id)
				if logg != nil {
					ctx = logg.WithOwner(ctx, id.OwnerKey())
				}
			}
			if token, anon := id.SessionToken(); anon {
				w.Header().Set(SessionHeader, token)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
