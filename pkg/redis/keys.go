package redis

import "strings"

// DefaultKeyPrefix namespaces keys when no prefix is configured.
const DefaultKeyPrefix = "sf"

// Keyspace builds colon-separated keys under a single prefix.
type Keyspace struct {
	prefix string
}

func NewKeyspace(prefix string) Keyspace {
	prefix = strings.Trim(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return Keyspace{prefix: prefix}
}

// IdempotencyKey holds the replayable response of a checkout request.
func (k Keyspace) IdempotencyKey(scope, id string) string {
	return k.join("idempotency", scope, id)
}

// RateLimitKey holds a throttle counter such as "login:ip:1.2.3.4".
func (k Keyspace) RateLimitKey(scope string) string {
	return k.join("rate_limit", scope)
}

// SessionKey holds the refresh session of an access token id.
func (k Keyspace) SessionKey(accessID string) string {
	return k.join("session", accessID)
}

// LockKey holds a lease such as the cron worker's.
func (k Keyspace) LockKey(name string) string {
	return k.join("lock", name)
}

func (k Keyspace) join(kind string, parts ...string) string {
	prefix := k.prefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteByte(':')
	b.WriteString(kind)
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			b.WriteByte(':')
			b.WriteString(part)
		}
	}
	return b.String()
}
