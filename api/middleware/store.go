package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/internal/stores"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	StoreIDHeader   = "X-Store-ID"
	StoreNameHeader = "X-Store-Name"

	// StoreDomainParam is the route parameter holding a subdomain or custom domain.
	StoreDomainParam = "storeDomain"
)

type storeResolver interface {
	Resolve(ctx context.Context, domainToken string) (*stores.StoreDTO, error)
}

type adminChecker interface {
	IsStoreAdmin(ctx context.Context, storeID, userID uuid.UUID) (bool, error)
}

// StoreContext resolves {storeDomain} and scopes the request to that store.
func StoreContext(resolver storeResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := chi.URLParam(r, StoreDomainParam)
			store, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithStore(r.Context(), store)
			if logg != nil {
				ctx = logg.WithStoreID(ctx, store.ID.String())
			}
			w.Header().Set(StoreIDHeader, store.ID.String())
			w.Header().Set(StoreNameHeader, store.Name)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireStoreAdmin gates store write routes on store_admins membership.
func RequireStoreAdmin(checker adminChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			userID, ok := UserIDFromContext(ctx)
			if !ok {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
				return
			}
			storeID := StoreIDFromContext(ctx)
			if storeID == uuid.Nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "store context missing"))
				return
			}
			ok, err := checker.IsStoreAdmin(ctx, storeID, userID)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check store admin"))
				return
			}
			if !ok {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "store admin required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
