package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	redisclient "github.com/angelmondragon/storefront-backend/pkg/redis"
	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
)

const refreshSecretBytes = 32

var ErrInvalidRefreshToken = errors.New("invalid refresh token")

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type sessionKeyer interface {
	SessionKey(accessID string) string
}

// Session is the server-side record behind a refresh token.
type Session struct {
	AccessID string
	UserID   uuid.UUID
}

type storedSession struct {
	UserID     uuid.UUID `json:"user_id"`
	SecretHash string    `json:"secret_hash"`
}

// Manager issues, rotates, and revokes refresh sessions. Refresh tokens take
// the form "<accessID>.<secret>"; only a SHA-256 of the secret is stored.
type Manager struct {
	store sessionStore
	keyer sessionKeyer
	ttl   time.Duration
}

// AccessSessionChecker exposes the read-only surface needed by middleware.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// NewManager constructs a session manager backed by Redis.
func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	ttl := cfg.RefreshTokenTTL()
	if ttl <= 0 {
		return nil, fmt.Errorf("refresh token ttl must be positive")
	}
	accessTTL := time.Duration(cfg.ExpirationMinutes) * time.Minute
	if ttl <= accessTTL {
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", ttl, accessTTL)
	}
	return &Manager{store: client, keyer: client, ttl: ttl}, nil
}

// Start opens a new session for the user and returns it with its refresh token.
func (m *Manager) Start(ctx context.Context, userID uuid.UUID) (Session, string, error) {
	if userID == uuid.Nil {
		return Session{}, "", fmt.Errorf("user id is required")
	}
	accessID := NewAccessID()
	token, err := m.persist(ctx, accessID, userID)
	if err != nil {
		return Session{}, "", err
	}
	return Session{AccessID: accessID, UserID: userID}, token, nil
}

// Rotate exchanges a refresh token for a new session. The presented session is
// removed so each refresh token is single use.
func (m *Manager) Rotate(ctx context.Context, refreshToken string) (Session, string, error) {
	accessID, secret, ok := splitToken(refreshToken)
	if !ok {
		return Session{}, "", ErrInvalidRefreshToken
	}

	key := m.keyer.SessionKey(accessID)
	raw, err := m.store.Get(ctx, key)
	if err != nil {
		return Session{}, "", wrapNotFound(err)
	}
	var stored storedSession
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return Session{}, "", ErrInvalidRefreshToken
	}
	if subtle.ConstantTimeCompare([]byte(stored.SecretHash), []byte(hashSecret(secret))) != 1 {
		return Session{}, "", ErrInvalidRefreshToken
	}

	if err := m.store.Del(ctx, key); err != nil {
		return Session{}, "", err
	}
	return m.Start(ctx, stored.UserID)
}

// Revoke deletes the session tied to the access identifier.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return fmt.Errorf("access id is required")
	}
	return m.store.Del(ctx, m.keyer.SessionKey(accessID))
}

// HasSession reports whether the access ID still has an active session.
func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, fmt.Errorf("access id is required")
	}
	if _, err := m.store.Get(ctx, m.keyer.SessionKey(accessID)); err != nil {
		if errors.Is(err, redislib.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// NewAccessID produces the identifier used as the JWT jti and Redis key.
func NewAccessID() string {
	return uuid.NewString()
}

func (m *Manager) persist(ctx context.Context, accessID string, userID uuid.UUID) (string, error) {
	secret, err := generateSecret()
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(storedSession{UserID: userID, SecretHash: hashSecret(secret)})
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}
	if err := m.store.Set(ctx, m.keyer.SessionKey(accessID), string(payload), m.ttl); err != nil {
		return "", err
	}
	return accessID + "." + secret, nil
}

func splitToken(token string) (string, string, bool) {
	accessID, secret, ok := strings.Cut(strings.TrimSpace(token), ".")
	if !ok || accessID == "" || secret == "" {
		return "", "", false
	}
	if _, err := uuid.Parse(accessID); err != nil {
		return "", "", false
	}
	return accessID, secret, true
}

func hashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

func generateSecret() (string, error) {
	buf := make([]byte, refreshSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func wrapNotFound(err error) error {
	if errors.Is(err, redislib.Nil) {
		return ErrInvalidRefreshToken
	}
	return err
}
