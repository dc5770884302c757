package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

// clockSkew is tolerated on exp, nbf and iat when verifying.
const clockSkew = 30 * time.Second

var (
	errNoSecret = errors.New("jwt: secret required")
	errNoIssuer = errors.New("jwt: issuer required")
)

// Signer mints and verifies HS256 access tokens for one issuer.
type Signer struct {
	key    []byte
	issuer string
	ttl    time.Duration
	parser *jwt.Parser
}

// NewSigner checks the JWT settings once so minting and verifying cannot
// run with a blank secret or issuer.
func NewSigner(cfg config.JWTConfig) (*Signer, error) {
	if cfg.Secret == "" {
		return nil, errNoSecret
	}
	if cfg.Issuer == "" {
		return nil, errNoIssuer
	}
	return &Signer{
		key:    []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    time.Duration(cfg.ExpirationMinutes) * time.Minute,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithLeeway(clockSkew),
		),
	}, nil
}

// Mint signs a token for payload valid from now for the configured TTL. The
// token id doubles as the refresh session key and is generated when empty.
func (s *Signer) Mint(now time.Time, payload AccessTokenPayload) (string, error) {
	if s.ttl <= 0 {
		return "", fmt.Errorf("jwt: ttl must be positive, got %s", s.ttl)
	}
	if payload.UserID == uuid.Nil {
		return "", errors.New("jwt: user id required")
	}
	jti := strings.TrimSpace(payload.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}

	issued := jwt.NewNumericDate(now)
	claims := AccessTokenClaims{
		Email: payload.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   payload.UserID.String(),
			Issuer:    s.issuer,
			IssuedAt:  issued,
			NotBefore: issued,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("jwt: sign: %w", err)
	}
	return signed, nil
}

// Verify checks signature, issuer and validity window, and requires a uuid
// subject and a token id.
func (s *Signer) Verify(token string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}
	if _, err := s.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	}); err != nil {
		return nil, err
	}
	if _, err := claims.UserID(); err != nil {
		return nil, fmt.Errorf("jwt: subject is not a user id: %w", err)
	}
	if claims.ID == "" {
		return nil, errors.New("jwt: token id missing")
	}
	return claims, nil
}

// IsExpired reports whether err came from an access token past its expiry.
func IsExpired(err error) bool {
	return errors.Is(err, jwt.ErrTokenExpired)
}

// MintAccessToken signs a token with a Signer built from cfg.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	signer, err := NewSigner(cfg)
	if err != nil {
		return "", err
	}
	return signer.Mint(now, payload)
}

// ParseAccessToken verifies token with a Signer built from cfg.
func ParseAccessToken(cfg config.JWTConfig, token string) (*AccessTokenClaims, error) {
	signer, err := NewSigner(cfg)
	if err != nil {
		return nil, err
	}
	return signer.Verify(token)
}
