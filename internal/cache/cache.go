// Package cache implements the platform's two-tier cache: an in-process
// L1 (container/list LRU) in front of a shared L2 backed by Redis, with
// tagged invalidation, a distributed lock, and a nonce store.
package cache

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	l1MaxTTL  = 60 * time.Second
	tagPrefix = "tag:"
)

// Cache is the platform's two-tier cache facade.
type Cache struct {
	l1       *l1
	l2       *redis.Client
	logger   *zap.Logger
	sf       singleflight.Group
	degraded bool // true once L2 has been observed unreachable
}

// New creates a Cache backed by the given Redis client.
func New(l2 *redis.Client, l1Capacity int, logger *zap.Logger) *Cache {
	return &Cache{l1: newL1(l1Capacity), l2: l2, logger: logger}
}

// Get tries L1 then L2, repopulating L1 on an L2 hit with
// ttl = min(L2 ttl, 60s).
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if v, ok := c.l1.get(key); ok {
		return v, true
	}

	val, err := c.l2.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.markDegraded(err)
		}
		return nil, false
	}

	ttl, err := c.l2.TTL(ctx, key).Result()
	if err != nil || ttl <= 0 || ttl > l1MaxTTL {
		ttl = l1MaxTTL
	}
	c.l1.set(key, val, ttl)
	return val, true
}

// Set writes through both tiers. On L2 unavailability the write still
// lands in L1 and the call returns a degraded flag — it never fails the
// caller.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) (degraded bool) {
	c.l1.set(key, value, min(ttl, l1MaxTTL))
	if err := c.l2.Set(ctx, key, value, ttl).Err(); err != nil {
		c.markDegraded(err)
		return true
	}
	return false
}

// SetWithTags additionally registers key under each tag's Redis set in one
// pipeline, so InvalidateByTag can find it later.
func (c *Cache) SetWithTags(ctx context.Context, key string, value []byte, tags []string, ttl time.Duration) (degraded bool) {
	c.l1.set(key, value, min(ttl, l1MaxTTL))

	pipe := c.l2.TxPipeline()
	pipe.Set(ctx, key, value, ttl)
	for _, tag := range tags {
		pipe.SAdd(ctx, tagPrefix+tag, key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.markDegraded(err)
		return true
	}
	return false
}

// InvalidateByTag deletes every key registered under each tag plus the tag
// sets themselves. Failure is logged but not fatal — callers must tolerate
// brief staleness.
func (c *Cache) InvalidateByTag(ctx context.Context, tags ...string) {
	for _, tag := range tags {
		setKey := tagPrefix + tag
		members, err := c.l2.SMembers(ctx, setKey).Result()
		if err != nil {
			c.logger.Warn("invalidate_by_tag: read tag set failed", zap.String("tag", tag), zap.Error(err))
			continue
		}
		for _, m := range members {
			c.l1.delete(m)
		}
		if len(members) == 0 {
			continue
		}
		pipe := c.l2.TxPipeline()
		pipe.Del(ctx, members...)
		pipe.Del(ctx, setKey)
		if _, err := pipe.Exec(ctx); err != nil {
			c.logger.Warn("invalidate_by_tag: pipeline delete failed", zap.String("tag", tag), zap.Error(err))
		}
	}
}

// GetOrCompute returns the cached value for key, or computes and caches it
// via fn. Concurrent callers for the same key collapse onto one fn call
// via singleflight, so a cold cache under load triggers one recompute
// instead of a thundering herd.
func (c *Cache) GetOrCompute(ctx context.Context, key string, tags []string, ttl time.Duration, fn func() ([]byte, error)) ([]byte, error) {
	if v, ok := c.Get(ctx, key); ok {
		return v, nil
	}

	v, err, _ := c.sf.Do(key, func() (interface{}, error) {
		if v, ok := c.Get(ctx, key); ok {
			return v, nil
		}
		value, err := fn()
		if err != nil {
			return nil, err
		}
		if len(tags) > 0 {
			c.SetWithTags(ctx, key, value, tags, ttl)
		} else {
			c.Set(ctx, key, value, ttl)
		}
		return value, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// GetOrComputeJSON is GetOrCompute with JSON marshal/unmarshal at the
// boundary, for the common case of caching a struct.
func GetOrComputeJSON[T any](ctx context.Context, c *Cache, key string, tags []string, ttl time.Duration, fn func() (T, error)) (T, error) {
	var zero T
	raw, err := c.GetOrCompute(ctx, key, tags, ttl, func() ([]byte, error) {
		v, err := fn()
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	})
	if err != nil {
		return zero, err
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, fmt.Errorf("unmarshal cached value: %w", err)
	}
	return out, nil
}

// lockUnlockScript atomically deletes a lock key only if its value still
// matches the fencing token held by the caller, so a lock owner can never
// release a lock acquired by someone else after its own expiry.
var lockUnlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`)

// Lock acquires a distributed lock on key for ttl, returning a fencing
// token that must be passed to Unlock. ok is false if the lock is already
// held by someone else.
func (c *Cache) Lock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error) {
	token, err = randomToken()
	if err != nil {
		return "", false, fmt.Errorf("generate lock token: %w", err)
	}
	acquired, err := c.l2.SetNX(ctx, "lock:"+key, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("acquire lock %q: %w", key, err)
	}
	return token, acquired, nil
}

// Unlock releases a lock previously acquired with Lock, but only if token
// still matches — it is a no-op (not an error) if the lock already
// expired and was reacquired by another holder.
func (c *Cache) Unlock(ctx context.Context, key, token string) error {
	if err := lockUnlockScript.Run(ctx, c.l2, []string{"lock:" + key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock %q: %w", key, err)
	}
	return nil
}

// CheckAndStoreNonce reports whether nonce has been seen before within
// ttl. A callback nonce may only be consumed once; replays are rejected.
func (c *Cache) CheckAndStoreNonce(ctx context.Context, nonce string, ttl time.Duration) (seenBefore bool, err error) {
	stored, err := c.l2.SetNX(ctx, "nonce:"+nonce, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("check nonce: %w", err)
	}
	return !stored, nil
}

// IncrementWindow atomically increments a fixed-window counter, setting
// its expiry only on the increment that creates the key (INCR never
// refreshes a TTL on its own, so a naive INCR+EXPIRE pair would reset the
// window on every request instead of just the first one in it).
func (c *Cache) IncrementWindow(ctx context.Context, key string, window time.Duration) (count int64, err error) {
	count, err = c.l2.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("increment window counter %q: %w", key, err)
	}
	if count == 1 {
		if err := c.l2.Expire(ctx, key, window).Err(); err != nil {
			c.logger.Warn("set window counter expiry failed", zap.String("key", key), zap.Error(err))
		}
	}
	return count, nil
}

// TTL returns the remaining time-to-live for key, used to populate the
// rate limiter's X-RateLimit-Reset header.
func (c *Cache) TTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := c.l2.TTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("ttl %q: %w", key, err)
	}
	return ttl, nil
}

// SetBlock marks key as blocked for d, used by the rate limiter's
// optional block_s penalty on overflow.
func (c *Cache) SetBlock(ctx context.Context, key string, d time.Duration) error {
	if err := c.l2.Set(ctx, key, "1", d).Err(); err != nil {
		return fmt.Errorf("set block %q: %w", key, err)
	}
	return nil
}

// IsBlocked reports whether key's block is still in effect.
func (c *Cache) IsBlocked(ctx context.Context, key string) (bool, error) {
	_, err := c.l2.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("check block %q: %w", key, err)
	}
	return true, nil
}

func (c *Cache) markDegraded(err error) {
	c.degraded = true
	c.logger.Warn("cache L2 unavailable, falling back to repository", zap.Error(err))
}

// Degraded reports whether L2 has been observed unreachable; callers may
// surface this as a degraded-mode response flag.
func (c *Cache) Degraded() bool { return c.degraded }

// randomToken generates a fencing token for the distributed lock.
func randomToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
