// Package identity models who owns a cart or an order.
package identity

import (
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type kind uint8

const (
	kindNone kind = iota
	kindAuthenticated
	kindAnonymous
)

const (
	userKeyPrefix    = "user:"
	sessionKeyPrefix = "session:"

	// MaxSessionTokenLen bounds caller-supplied anonymous tokens.
	MaxSessionTokenLen = 128
)

// Identity is either Authenticated(userID) or Anonymous(sessionToken).
// The zero value is neither and fails Validate.
type Identity struct {
	kind         kind
	userID       uuid.UUID
	sessionToken string
}

// Authenticated builds the identity of a signed-in user.
func Authenticated(userID uuid.UUID) Identity {
	return Identity{kind: kindAuthenticated, userID: userID}
}

// Anonymous builds the identity of a guest holding a session token.
func Anonymous(sessionToken string) Identity {
	return Identity{kind: kindAnonymous, sessionToken: strings.TrimSpace(sessionToken)}
}

func (i Identity) IsAuthenticated() bool { return i.kind == kindAuthenticated }

func (i Identity) IsAnonymous() bool { return i.kind == kindAnonymous }

// UserID returns the user id when authenticated.
func (i Identity) UserID() (uuid.UUID, bool) {
	if i.kind != kindAuthenticated {
		return uuid.Nil, false
	}
	return i.userID, true
}

// SessionToken returns the guest token when anonymous.
func (i Identity) SessionToken() (string, bool) {
	if i.kind != kindAnonymous {
		return "", false
	}
	return i.sessionToken, true
}

// OwnerKey is the stable string persisted in owner_key columns.
func (i Identity) OwnerKey() string {
	switch i.kind {
	case kindAuthenticated:
		return userKeyPrefix + i.userID.String()
	case kindAnonymous:
		return sessionKeyPrefix + i.sessionToken
	default:
		return ""
	}
}

// Columns returns the nullable user_id / session_token pair stored next to owner_key.
func (i Identity) Columns() (*uuid.UUID, *string) {
	switch i.kind {
	case kindAuthenticated:
		id := i.userID
		return &id, nil
	case kindAnonymous:
		token := i.sessionToken
		return nil, &token
	default:
		return nil, nil
	}
}

func (i Identity) Validate() error {
	switch i.kind {
	case kindAuthenticated:
		if i.userID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "user id required")
		}
		return nil
	case kindAnonymous:
		if i.sessionToken == "" {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "session token required")
		}
		if len(i.sessionToken) > MaxSessionTokenLen {
			return pkgerrors.New(pkgerrors.CodeValidation, "session token too long")
		}
		return nil
	default:
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "identity required")
	}
}

func (i Identity) String() string {
	return i.OwnerKey()
}
