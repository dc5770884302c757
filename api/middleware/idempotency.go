package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	ReplayedHeader    = "Idempotent-Replayed"

	defaultIdempotencyTTL = 24 * time.Hour
	maxIdempotencyKeyLen  = 255

	recordPending   = "pending"
	recordCompleted = "completed"
)

// IdempotencyStore keeps idempotency records. *redis.Client satisfies it.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

type idempotencyRecord struct {
	State       string            `json:"state"`
	RequestHash string            `json:"request_hash"`
	Status      int               `json:"status,omitempty"`
	Body        string            `json:"body,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
}

// Idempotency replays the stored response of a previous request carrying the
// same Idempotency-Key for the same store and owner. Only 2xx responses are
// kept; failures release the key so the client can retry.
func Idempotency(scope string, store IdempotencyStore, ttl time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return func(next http.Handler) http.Handler {
		if store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			clientKey := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(clientKey) > maxIdempotencyKeyLen {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key too long"))
				return
			}

			var body []byte
			if r.Body != nil {
				var err error
				body, err = io.ReadAll(r.Body)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
					return
				}
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			requestHash := hashRequest(r, body)
			key := store.IdempotencyKey(scope, buildScope(r, clientKey))

			pending, _ := json.Marshal(idempotencyRecord{State: recordPending, RequestHash: requestHash})
			acquired, err := store.SetNX(ctx, key, string(pending), ttl)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve idempotency key"))
				return
			}
			if !acquired {
				replayOrReject(ctx, store, key, requestHash, w, logg)
				return
			}

			completed := false
			defer func() {
				if completed {
					return
				}
				if delErr := store.Del(context.WithoutCancel(ctx), key); delErr != nil {
					logError(ctx, logg, "release idempotency key", delErr)
				}
			}()

			rec := &responseCapture{statusRecorder: statusRecorder{ResponseWriter: w}}
			next.ServeHTTP(rec, r)

			status := rec.code()
			if status < 200 || status >= 300 {
				return
			}

			record := idempotencyRecord{
				State:       recordCompleted,
				RequestHash: requestHash,
				Status:      status,
				Body:        base64.StdEncoding.EncodeToString(rec.body.Bytes()),
			}
			if ct := rec.Header().Get("Content-Type"); ct != "" {
				record.Headers = map[string]string{"Content-Type": ct}
			}
			payload, err := json.Marshal(record)
			if err != nil {
				logError(ctx, logg, "marshal idempotency record", err)
				return
			}
			if err := store.Set(context.WithoutCancel(ctx), key, string(payload), ttl); err != nil {
				logError(ctx, logg, "persist idempotency record", err)
				return
			}
			completed = true
		})
	}
}

func replayOrReject(ctx context.Context, store IdempotencyStore, key, requestHash string, w http.ResponseWriter, logg *logger.Logger) {
	stored, err := store.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this idempotency key is in progress"))
		return
	}
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
		return
	}
	var record idempotencyRecord
	if err := json.Unmarshal([]byte(stored), &record); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	if record.RequestHash != requestHash {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
		return
	}
	if record.State != recordCompleted {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this idempotency key is in progress"))
		return
	}
	writeStoredResponse(w, &record)
}

func buildScope(r *http.Request, clientKey string) string {
	owner := ""
	if id, ok := IdentityFromContext(r.Context()); ok {
		owner = id.OwnerKey()
	}
	return strings.Join([]string{StoreIDFromContext(r.Context()).String(), owner, clientKey}, "|")
}

func writeStoredResponse(w http.ResponseWriter, record *idempotencyRecord) {
	if ct, ok := record.Headers["Content-Type"]; ok && ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set(ReplayedHeader, "true")
	w.WriteHeader(record.Status)
	if decoded, err := base64.StdEncoding.DecodeString(record.Body); err == nil {
		_, _ = w.Write(decoded)
	}
}

func hashRequest(r *http.Request, body []byte) string {
	h := sha256.New()
	h.Write([]byte(r.Method))
	h.Write([]byte{0})
	h.Write([]byte(r.URL.Path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

type responseCapture struct {
	statusRecorder
	body bytes.Buffer
}

func (r *responseCapture) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.statusRecorder.Write(b)
}

func logError(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg == nil || err == nil {
		return
	}
	logg.Error(ctx, msg, err)
}
