package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// maxThrottleBody bounds how much of an auth request is buffered to find the email.
const maxThrottleBody = 64 << 10

// WindowCounter counts hits per scope in fixed windows. *redis.Client satisfies it.
type WindowCounter interface {
	CountInWindow(ctx context.Context, scope string, window time.Duration) (int64, time.Duration, error)
}

// ThrottlePolicy caps attempts on one auth endpoint per client address and
// per account email within Window. A zero limit disables that dimension.
type ThrottlePolicy struct {
	Endpoint string
	Window   time.Duration
	PerIP    int
	PerEmail int
}

type throttleRule struct {
	dimension string
	limit     int
	subject   func(r *http.Request, body []byte) string
}

func (p ThrottlePolicy) rules() []throttleRule {
	if p.Window <= 0 {
		return nil
	}
	var rules []throttleRule
	if p.PerIP > 0 {
		rules = append(rules, throttleRule{dimension: "ip", limit: p.PerIP, subject: func(r *http.Request, _ []byte) string {
			return clientAddress(r)
		}})
	}
	if p.PerEmail > 0 {
		rules = append(rules, throttleRule{dimension: "email", limit: p.PerEmail, subject: func(_ *http.Request, body []byte) string {
			return emailDigest(body)
		}})
	}
	return rules
}

func (p ThrottlePolicy) endpoint() string {
	if name := strings.ToLower(strings.TrimSpace(p.Endpoint)); name != "" {
		return name
	}
	return "auth"
}

// AuthThrottle rejects auth requests with 429 once any of the policy's
// counters passes its limit. Retry-After tells the client when the window resets.
func AuthThrottle(policy ThrottlePolicy, counter WindowCounter, logg *logger.Logger) func(http.Handler) http.Handler {
	rules := policy.rules()
	return func(next http.Handler) http.Handler {
		if len(rules) == 0 || counter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var body []byte
			if policy.PerEmail > 0 && r.Body != nil {
				buffered, err := io.ReadAll(io.LimitReader(r.Body, maxThrottleBody))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
					return
				}
				body = buffered
				r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(buffered), r.Body))
			}

			for _, rule := range rules {
				subject := rule.subject(r, body)
				if subject == "" {
					continue
				}
				scope := policy.endpoint() + ":" + rule.dimension + ":" + subject
				count, resetIn, err := counter.CountInWindow(ctx, scope, policy.Window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "auth throttle"))
					return
				}
				if count > int64(rule.limit) {
					if resetIn <= 0 {
						resetIn = policy.Window
					}
					rejectThrottled(ctx, logg, w, policy, rule, subject, count, resetIn)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func rejectThrottled(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, policy ThrottlePolicy, rule throttleRule, subject string, count int64, resetIn time.Duration) {
	retryAfter := int(math.Ceil(resetIn.Seconds()))
	if retryAfter < 1 {
		retryAfter = 1
	}
	if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"endpoint":    policy.endpoint(),
			"dimension":   rule.dimension,
			"subject":     subject,
			"attempts":    count,
			"limit":       rule.limit,
			"retry_after": retryAfter,
		}), "auth throttled")
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rule.limit))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts").
		WithDetails(map[string]any{"retry_after_seconds": retryAfter}))
}

// clientAddress prefers the first X-Forwarded-For hop, then X-Real-IP, then the peer.
func clientAddress(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

// emailDigest hashes the normalized email of a login or register payload so
// raw addresses never reach redis or the logs.
func emailDigest(body []byte) string {
	var payload struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	email := strings.ToLower(strings.TrimSpace(payload.Email))
	if email == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:])
}
