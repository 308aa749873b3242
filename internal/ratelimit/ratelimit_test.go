package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisLimiterWindow(t *testing.T) {
	mr, client := setupRedis(t)
	l := NewRedisLimiter(client, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := l.Allow(ctx, "login:10.0.0.1")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, 2-i, d.Remaining)
	}

	d, err := l.Allow(ctx, "login:10.0.0.1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, time.Minute, d.RetryAfter)

	d, err = l.Allow(ctx, "login:10.0.0.2")
	require.NoError(t, err)
	assert.True(t, d.Allowed, "keys are counted separately")

	mr.FastForward(time.Minute)
	d, err = l.Allow(ctx, "login:10.0.0.1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRedisLimiterKeyAlwaysExpires(t *testing.T) {
	mr, client := setupRedis(t)
	l := NewRedisLimiter(client, 2, time.Minute)
	ctx := context.Background()

	_, err := l.Allow(ctx, "register:10.0.0.9")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, mr.TTL("pos:ratelimit:register:10.0.0.9"))

	// a counter left behind without an expiry gets one on the next hit
	require.NoError(t, mr.Set("pos:ratelimit:login:10.0.0.9", "7"))
	require.Zero(t, mr.TTL("pos:ratelimit:login:10.0.0.9"))
	d, err := l.Allow(ctx, "login:10.0.0.9")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, time.Minute, d.RetryAfter)
	assert.Equal(t, time.Minute, mr.TTL("pos:ratelimit:login:10.0.0.9"))

	mr.FastForward(time.Minute)
	assert.False(t, mr.Exists("pos:ratelimit:login:10.0.0.9"))
}

func TestRedisLimiterError(t *testing.T) {
	mr, client := setupRedis(t)
	l := NewRedisLimiter(client, 3, time.Minute)
	mr.SetError("READONLY")

	_, err := l.Allow(context.Background(), "login:x")
	assert.Error(t, err)
}

func TestDial(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := Dial(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	client.Close()

	_, err = Dial(context.Background(), "http://nope")
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	d, err := Nop().Allow(context.Background(), "anything")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}
