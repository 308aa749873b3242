// Package ratelimit throttles the credential endpoints with a fixed window
// counter kept in Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// RedisLimiter allows limit hits per key in each window. The window starts
// with the first hit.
type RedisLimiter struct {
	client redis.Cmdable
	limit  int
	window time.Duration
	prefix string
}

func NewRedisLimiter(client redis.Cmdable, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, window: window, prefix: "pos:ratelimit:"}
}

// Dial connects to the Redis server named by a redis:// URL.
func Dial(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// hitScript counts a hit and makes sure the key expires, returning the new
// count and the remaining window in milliseconds.
var hitScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {n, ttl}
`)

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	k := l.prefix + key
	res, err := hitScript.Run(ctx, l.client, []string{k}, l.window.Milliseconds()).Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("count hit %s: %w", k, err)
	}
	if len(res) != 2 {
		return Decision{}, fmt.Errorf("count hit %s: unexpected reply %v", k, res)
	}
	n, ok1 := res[0].(int64)
	ttl, ok2 := res[1].(int64)
	if !ok1 || !ok2 {
		return Decision{}, fmt.Errorf("count hit %s: unexpected reply %v", k, res)
	}

	if int(n) <= l.limit {
		return Decision{Allowed: true, Remaining: l.limit - int(n)}, nil
	}
	return Decision{Allowed: false, RetryAfter: time.Duration(ttl) * time.Millisecond}, nil
}

type nop struct{}

// Nop allows everything. It is used when no Redis is configured.
func Nop() Limiter { return nop{} }

func (nop) Allow(context.Context, string) (Decision, error) {
	return Decision{Allowed: true}, nil
}
