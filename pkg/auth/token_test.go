package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

func testJWTConfig(minutes int) config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "storefront",
		ExpirationMinutes: minutes,
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig(30)
	now := time.Now().UTC()
	userID := uuid.New()

	token, err := MintAccessToken(cfg, now, AccessTokenPayload{UserID: userID, Email: "ada@example.com", JTI: "jti-1"})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	got, err := claims.UserID()
	if err != nil || got != userID {
		t.Fatalf("expected subject %s, got %s (%v)", userID, got, err)
	}
	if claims.ID != "jti-1" || claims.Email != "ada@example.com" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("expected issuer %s, got %s", cfg.Issuer, claims.Issuer)
	}

	exp := now.Add(time.Duration(cfg.ExpirationMinutes) * time.Minute)
	diff := claims.ExpiresAt.Sub(exp)
	if diff < 0 {
		diff = -diff
	}
	if diff >= time.Second {
		t.Fatalf("expected exp roughly %v, got %v (diff %v)", exp.UTC(), claims.ExpiresAt.UTC(), diff)
	}
}

func TestMintGeneratesJTI(t *testing.T) {
	cfg := testJWTConfig(5)
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New()})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := uuid.Parse(claims.ID); err != nil {
		t.Fatalf("expected generated uuid jti, got %q", claims.ID)
	}
}

func TestParseAccessTokenInvalidSignature(t *testing.T) {
	cfg := testJWTConfig(10)
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New()})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	if _, err := ParseAccessToken(cfg, token+"x"); err == nil {
		t.Fatal("expected invalid signature error")
	}
	other := cfg
	other.Secret = "other"
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatal("expected error for a different secret")
	}
}

func TestParseAccessTokenExpired(t *testing.T) {
	cfg := testJWTConfig(15)
	token, err := MintAccessToken(cfg, time.Now().Add(-time.Hour), AccessTokenPayload{UserID: uuid.New()})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	_, err = ParseAccessToken(cfg, token)
	if err == nil {
		t.Fatal("expected expiration error")
	}
	if !IsExpired(err) || !strings.Contains(err.Error(), "expired") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestVerifyToleratesClockSkew(t *testing.T) {
	signer, err := NewSigner(testJWTConfig(1))
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	// expired 10s ago, inside the skew allowance
	token, err := signer.Mint(time.Now().Add(-70*time.Second), AccessTokenPayload{UserID: uuid.New()})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := signer.Verify(token); err != nil {
		t.Fatalf("expected token within skew to verify, got %v", err)
	}

	// minted in the future beyond the allowance
	future, err := signer.Mint(time.Now().Add(5*time.Minute), AccessTokenPayload{UserID: uuid.New()})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := signer.Verify(future); err == nil {
		t.Fatal("expected not-yet-valid token to fail")
	}
}

func TestNewSignerRequiresSecretAndIssuer(t *testing.T) {
	if _, err := NewSigner(config.JWTConfig{Issuer: "storefront"}); err == nil {
		t.Fatal("expected missing secret error")
	}
	if _, err := NewSigner(config.JWTConfig{Secret: "s"}); err == nil {
		t.Fatal("expected missing issuer error")
	}
	other := testJWTConfig(5)
	other.Issuer = "elsewhere"
	token, err := MintAccessToken(other, time.Now(), AccessTokenPayload{UserID: uuid.New()})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := ParseAccessToken(testJWTConfig(5), token); err == nil {
		t.Fatal("expected issuer mismatch to fail")
	}
}

func TestParseRejectsNonUUIDSubject(t *testing.T) {
	cfg := testJWTConfig(5)
	claims := AccessTokenClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "not-a-uuid",
		Issuer:    cfg.Issuer,
		ID:        "x",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseAccessToken(cfg, signed); err == nil {
		t.Fatal("expected subject validation error")
	}
}

func TestMintAccessTokenRequiresUserAndTTL(t *testing.T) {
	if _, err := MintAccessToken(testJWTConfig(5), time.Now(), AccessTokenPayload{}); err == nil {
		t.Fatal("expected missing user error")
	}
	if _, err := MintAccessToken(testJWTConfig(0), time.Now(), AccessTokenPayload{UserID: uuid.New()}); err == nil {
		t.Fatal("expected non-positive ttl error")
	}
}
