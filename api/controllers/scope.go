package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/identity"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// ownerScope returns the (store, owner) pair every cart and order call is keyed on.
func ownerScope(r *http.Request) (uuid.UUID, identity.Identity, error) {
	storeID := middleware.StoreIDFromContext(r.Context())
	if storeID == uuid.Nil {
		return uuid.Nil, identity.Identity{}, pkgerrors.New(pkgerrors.CodeForbidden, "store context missing")
	}
	owner, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		return uuid.Nil, identity.Identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "identity required")
	}
	return storeID, owner, nil
}

func storeAdminScope(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	storeID := middleware.StoreIDFromContext(r.Context())
	if storeID == uuid.Nil {
		return uuid.Nil, uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "store context missing")
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return storeID, userID, nil
}

func unavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable")
}
