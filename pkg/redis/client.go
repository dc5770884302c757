package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

var errNotConnected = errors.New("redis: client not connected")

// commands is the slice of go-redis the storefront issues.
type commands interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd
	EvalSha(ctx context.Context, sha1 string, keys []string, args ...any) *redis.Cmd
}

// Client serves idempotency replay, refresh sessions, auth throttling and the
// cron lease. Keys are built from its Keyspace.
type Client struct {
	Keyspace
	cmds   commands
	closer func() error
}

// New dials redis and pings it before returning.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := dialOptions(cfg)
	if err != nil {
		return nil, err
	}
	conn := redis.NewClient(opts)
	if err := conn.Ping(ctx).Err(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"addr":       opts.Addr,
			"db":         opts.DB,
			"key_prefix": cfg.KeyPrefix,
		}), "redis connected")
	}
	return &Client{Keyspace: NewKeyspace(cfg.KeyPrefix), cmds: conn, closer: conn.Close}, nil
}

// dialOptions prefers STOREFRONT_REDIS_URL and falls back to the discrete
// address settings. Pool and timeout settings fill whatever the URL left unset.
func dialOptions(cfg config.RedisConfig) (*redis.Options, error) {
	var opts *redis.Options
	switch {
	case cfg.URL != "":
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
		if opts.DB == 0 {
			opts.DB = cfg.DB
		}
	case cfg.Address != "":
		opts = &redis.Options{Addr: cfg.Address, Password: cfg.Password, DB: cfg.DB}
	default:
		return nil, errors.New("redis: url or address required")
	}

	fillInt(&opts.PoolSize, cfg.PoolSize)
	fillInt(&opts.MinIdleConns, cfg.MinIdleConns)
	fillDuration(&opts.DialTimeout, cfg.DialTimeout)
	fillDuration(&opts.ReadTimeout, cfg.ReadTimeout)
	fillDuration(&opts.WriteTimeout, cfg.WriteTimeout)
	return opts, nil
}

func fillInt(dst *int, v int) {
	if *dst == 0 {
		*dst = v
	}
}

func fillDuration(dst *time.Duration, v time.Duration) {
	if *dst == 0 {
		*dst = v
	}
}

func (c *Client) Ping(ctx context.Context) error {
	if c.cmds == nil {
		return errNotConnected
	}
	return c.cmds.Ping(ctx).Err()
}

// Get returns redis.Nil when key is absent.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if c.cmds == nil {
		return "", errNotConnected
	}
	return c.cmds.Get(ctx, key).Result()
}

func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c.cmds == nil {
		return errNotConnected
	}
	return c.cmds.Set(ctx, key, value, ttl).Err()
}

// SetNX reports whether this call created key.
func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if c.cmds == nil {
		return false, errNotConnected
	}
	return c.cmds.SetNX(ctx, key, value, ttl).Result()
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	if c.cmds == nil {
		return errNotConnected
	}
	if len(keys) == 0 {
		return nil
	}
	return c.cmds.Del(ctx, keys...).Err()
}

// Close releases the connection pool. It is a no-op on an unconnected client.
func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}
