package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// windowSource increments a counter and starts its window on the first hit.
// A counter that lost its expiry is given a fresh one.
const windowSource = `
local n = redis.call('INCR', KEYS[1])
if n == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {n, ttl}
`

var windowScript = redis.NewScript(windowSource)

// CountInWindow records one hit against scope and returns the hits so far in
// the current fixed window and the time until the window resets.
func (c *Client) CountInWindow(ctx context.Context, scope string, window time.Duration) (int64, time.Duration, error) {
	if c.cmds == nil {
		return 0, 0, errNotConnected
	}
	if window <= 0 {
		return 0, 0, fmt.Errorf("redis: window must be positive, got %s", window)
	}

	keys := []string{c.RateLimitKey(scope)}
	ms := window.Milliseconds()
	cmd := c.cmds.EvalSha(ctx, windowScript.Hash(), keys, ms)
	if err := cmd.Err(); err != nil && strings.HasPrefix(err.Error(), "NOSCRIPT") {
		cmd = c.cmds.Eval(ctx, windowSource, keys, ms)
	}
	reply, err := cmd.Slice()
	if err != nil {
		return 0, 0, fmt.Errorf("count %s: %w", keys[0], err)
	}
	if len(reply) != 2 {
		return 0, 0, fmt.Errorf("count %s: unexpected reply %v", keys[0], reply)
	}
	count, ok := reply[0].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("count %s: unexpected count %T", keys[0], reply[0])
	}
	ttl, ok := reply[1].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("count %s: unexpected ttl %T", keys[0], reply[1])
	}
	return count, time.Duration(ttl) * time.Millisecond, nil
}
