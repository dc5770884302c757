package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/identity"
	"github.com/angelmondragon/storefront-backend/internal/stores"
)

type contextKey string

const (
	ctxUserID   contextKey = "user_id"
	ctxAccessID contextKey = "access_id"
	ctxStore    contextKey = "store"
	ctxIdentity contextKey = "identity"
)

// UserIDFromContext returns the authenticated user, if any.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	if ctx == nil {
		return uuid.Nil, false
	}
	id, ok := ctx.Value(ctxUserID).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// AccessIDFromContext returns the session id carried by the access token.
func AccessIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAccessID).(string); ok {
		return v
	}
	return ""
}

func StoreFromContext(ctx context.Context) *stores.StoreDTO {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxStore).(*stores.StoreDTO); ok {
		return v
	}
	return nil
}

// StoreIDFromContext returns the resolved store id or uuid.Nil.
func StoreIDFromContext(ctx context.Context) uuid.UUID {
	if store := StoreFromContext(ctx); store != nil {
		return store.ID
	}
	return uuid.Nil
}

func IdentityFromContext(ctx context.Context) (identity.Identity, bool) {
	if ctx == nil {
		return identity.Identity{}, false
	}
	id, ok := ctx.Value(ctxIdentity).(identity.Identity)
	if !ok || id.Validate() != nil {
		return identity.Identity{}, false
	}
	return id, true
}

// WithUserID injects the authenticated user and its session id.
func WithUserID(ctx context.Context, userID uuid.UUID, accessID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, userID)
	return context.WithValue(ctx, ctxAccessID, accessID)
}

// WithStore injects the resolved store for downstream handlers.
func WithStore(ctx context.Context, store *stores.StoreDTO) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxStore, store)
}

func WithIdentity(ctx context.Context, id identity.Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxIdentity, id)
}
