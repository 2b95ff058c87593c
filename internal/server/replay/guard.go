// Package replay keeps a short-lived claim on single-use sign tokens so that
// two concurrent requests with the same token cannot both reach the database.
package replay

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Guard claims keys for a bounded time.
type Guard interface {
	// Claim returns false when key is already held.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// redisCmdable is the subset of redis.Cmdable used by RedisGuard.
type redisCmdable interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type RedisGuard struct {
	client redisCmdable
	prefix string
}

func NewRedisGuard(client redisCmdable, prefix string) *RedisGuard {
	return &RedisGuard{client: client, prefix: prefix}
}

func (g *RedisGuard) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return g.client.SetNX(ctx, g.prefix+key, 1, ttl).Result()
}

func (g *RedisGuard) Release(ctx context.Context, key string) error {
	return g.client.Del(ctx, g.prefix+key).Err()
}

// sweepInterval bounds how often MemoryGuard scans for expired claims.
const sweepInterval = time.Minute

// MemoryGuard is an in-process Guard for single-instance deployments.
// Expired claims are dropped by Claim at most once per sweepInterval.
type MemoryGuard struct {
	mu        sync.Mutex
	keys      map[string]time.Time
	now       func() time.Time
	nextSweep time.Time
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{keys: make(map[string]time.Time), now: time.Now}
}

func (g *MemoryGuard) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if !now.Before(g.nextSweep) {
		g.sweep(now)
		g.nextSweep = now.Add(sweepInterval)
	}
	if exp, ok := g.keys[key]; ok && now.Before(exp) {
		return false, nil
	}
	g.keys[key] = now.Add(ttl)
	return true, nil
}

func (g *MemoryGuard) sweep(now time.Time) {
	for k, exp := range g.keys {
		if !now.Before(exp) {
			delete(g.keys, k)
		}
	}
}

func (g *MemoryGuard) Release(ctx context.Context, key string) error {
	g.mu.Lock()
	delete(g.keys, key)
	g.mu.Unlock()
	return nil
}
