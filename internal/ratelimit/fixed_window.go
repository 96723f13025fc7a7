// Package ratelimit provides a Redis-backed fixed-window request limiter.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces limiter keys in Redis.
const DefaultPrefix = "travelplanner:ratelimit"

// callTimeout bounds a single Redis round trip.
const callTimeout = 2 * time.Second

var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// FixedWindowLimiter allows at most limit calls per key within each window.
// Windows are aligned to wall-clock multiples of the window length, so state
// is shared by every process pointing at the same Redis.
type FixedWindowLimiter struct {
	client redis.Scripter
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

// Options configures a FixedWindowLimiter.
type Options struct {
	// Prefix namespaces keys. Defaults to DefaultPrefix.
	Prefix string
	Limit  int
	Window time.Duration
}

// New builds a limiter on an existing Redis client.
func New(client redis.Scripter, opts Options) (*FixedWindowLimiter, error) {
	if client == nil {
		return nil, errors.New("ratelimit: redis client is required")
	}
	if opts.Limit <= 0 || opts.Window < time.Millisecond {
		return nil, errors.New("ratelimit: positive limit and window are required")
	}
	prefix := strings.TrimSpace(opts.Prefix)
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &FixedWindowLimiter{
		client: client,
		prefix: prefix,
		limit:  opts.Limit,
		window: opts.Window,
		now:    time.Now,
	}, nil
}

// NewRedis builds a limiter with its own Redis client. The client connects
// lazily; the caller owns it and closes it on shutdown.
func NewRedis(addr, password string, opts Options) (*FixedWindowLimiter, *redis.Client, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, nil, errors.New("ratelimit: redis addr is required")
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	l, err := New(client, opts)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return l, client, nil
}

// Allow counts one call for key and reports whether it is within quota.
// Redis failures return false together with the error; callers treat that as
// a rejection.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		key = "unknown"
	}
	windowMs := l.window.Milliseconds()
	slot := l.now().UTC().UnixMilli() / windowMs
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, slot)

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	count, err := fixedWindowScript.Run(ctx, l.client, []string{redisKey}, windowMs).Int64()
	if err != nil {
		return false, fmt.Errorf("ratelimit.FixedWindowLimiter.Allow: %w", err)
	}
	return count <= int64(l.limit), nil
}
