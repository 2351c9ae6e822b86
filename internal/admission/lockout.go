package admission

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/casinobroker/platform/internal/cache"
	"github.com/casinobroker/platform/internal/domain"
)

// Lockout guards against repeated invalid-API-key attempts: after
// maxAttempts failures against the same key prefix within window, further
// attempts are rejected outright without bothering the repository or
// bcrypt.
type Lockout struct {
	cache       *cache.Cache
	logger      *zap.Logger
	maxAttempts int64
	window      time.Duration
}

// NewLockout builds a Lockout guard backed by the shared cache's atomic
// counters.
func NewLockout(c *cache.Cache, logger *zap.Logger, maxAttempts int, window time.Duration) *Lockout {
	return &Lockout{cache: c, logger: logger, maxAttempts: int64(maxAttempts), window: window}
}

// CheckLocked fails the request if the key prefix has already accumulated
// maxAttempts failures within window. Fails open on cache error — a
// temporarily unreachable L2 must never itself become a denial-of-service
// vector.
func (l *Lockout) CheckLocked(ctx context.Context, prefix string) error {
	count, err := l.currentCount(ctx, prefix)
	if err != nil {
		l.logger.Warn("lockout check failed, failing open", zap.Error(err))
		return nil
	}
	if count >= l.maxAttempts {
		return domain.ErrUnauthorized("too many failed attempts, locked out temporarily")
	}
	return nil
}

// RecordFailure increments the failure counter for prefix, creating it
// with the lockout window's expiry on first failure.
func (l *Lockout) RecordFailure(ctx context.Context, prefix string) {
	key := lockoutCounterKey(prefix)
	if _, ok := l.cache.Get(ctx, key); !ok {
		l.cache.Set(ctx, key, []byte("1"), l.window)
		return
	}
	count, err := l.currentCount(ctx, prefix)
	if err != nil {
		return
	}
	l.cache.Set(ctx, key, []byte(strconv.FormatInt(count+1, 10)), l.window)
}

// RecordSuccess clears the failure counter on a successful authentication.
func (l *Lockout) RecordSuccess(ctx context.Context, prefix string) {
	l.cache.Set(ctx, lockoutCounterKey(prefix), []byte("0"), l.window)
}

func (l *Lockout) currentCount(ctx context.Context, prefix string) (int64, error) {
	raw, ok := l.cache.Get(ctx, lockoutCounterKey(prefix))
	if !ok {
		return 0, nil
	}
	return strconv.ParseInt(string(raw), 10, 64)
}

// lockoutCounterKey hashes the prefix so the cache key never embeds a
// credential fragment in plaintext, even a non-secret one.
func lockoutCounterKey(prefix string) string {
	sum := sha256.Sum256([]byte(prefix))
	return "lockout:" + hex.EncodeToString(sum[:8])
}
