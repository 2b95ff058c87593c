package replay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	keys    map[string]bool
	lastTTL time.Duration
	err     error
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	f.lastTTL = expiration
	if f.err != nil {
		return redis.NewBoolResult(false, f.err)
	}
	if f.keys[key] {
		return redis.NewBoolResult(false, nil)
	}
	f.keys[key] = true
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if f.keys[k] {
			delete(f.keys, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestRedisGuard_ClaimOnce(t *testing.T) {
	fr := &fakeRedis{keys: map[string]bool{}}
	g := NewRedisGuard(fr, "sign:")
	ctx := context.Background()

	ok, err := g.Claim(ctx, "abc", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, fr.keys["sign:abc"])
	assert.Equal(t, time.Minute, fr.lastTTL)

	ok, err = g.Claim(ctx, "abc", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, g.Release(ctx, "abc"))
	ok, err = g.Claim(ctx, "abc", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisGuard_Error(t *testing.T) {
	g := NewRedisGuard(&fakeRedis{keys: map[string]bool{}, err: errors.New("conn refused")}, "")
	_, err := g.Claim(context.Background(), "k", time.Second)
	assert.EqualError(t, err, "conn refused")
}

func TestMemoryGuard_ExpiresClaims(t *testing.T) {
	g := NewMemoryGuard()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }
	ctx := context.Background()

	ok, _ := g.Claim(ctx, "k", time.Minute)
	assert.True(t, ok)
	ok, _ = g.Claim(ctx, "k", time.Minute)
	assert.False(t, ok)

	now = now.Add(2 * time.Minute)
	ok, _ = g.Claim(ctx, "k", time.Minute)
	assert.True(t, ok)

	require.NoError(t, g.Release(ctx, "k"))
	ok, _ = g.Claim(ctx, "k", time.Minute)
	assert.True(t, ok)
}

func TestMemoryGuard_DropsExpiredClaims(t *testing.T) {
	g := NewMemoryGuard()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		ok, err := g.Claim(ctx, k, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := g.Claim(ctx, "long", time.Hour)
	assert.True(t, ok)
	assert.Len(t, g.keys, 4)

	now = now.Add(2 * time.Minute)
	ok, _ = g.Claim(ctx, "d", time.Minute)
	assert.True(t, ok)
	assert.Len(t, g.keys, 2)
	assert.Contains(t, g.keys, "long")
	assert.Contains(t, g.keys, "d")

	ok, _ = g.Claim(ctx, "long", time.Hour)
	assert.False(t, ok)
}
