// Package admission implements the request-admission pipeline: API-key
// authentication, IP whitelisting, rate limiting, and audit logging that
// every request traverses before reaching a handler.
//
// The JWT middleware and rate-limiter/lockout shapes generalize from
// player-JWT auth to partner API-key auth with a typed permission set.
package admission

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/casinobroker/platform/internal/cache"
	"github.com/casinobroker/platform/internal/domain"
	"github.com/casinobroker/platform/internal/repository"
)

const apiKeyCacheTTL = 5 * time.Minute

// Authenticator resolves X-API-Key into the ApiKey it names.
type Authenticator struct {
	keys    repository.ApiKeyRepository
	pool    *pgxpool.Pool
	cache   *cache.Cache
	logger  *zap.Logger
	lockout *Lockout
}

// NewAuthenticator builds an Authenticator.
func NewAuthenticator(pool *pgxpool.Pool, keys repository.ApiKeyRepository, c *cache.Cache, lockout *Lockout, logger *zap.Logger) *Authenticator {
	return &Authenticator{pool: pool, keys: keys, cache: c, lockout: lockout, logger: logger}
}

// splitAPIKey parses the raw X-API-Key header value into its visible
// prefix and secret halves, "<prefix>.<secret>".
func splitAPIKey(raw string) (prefix, secret string, ok bool) {
	idx := strings.IndexByte(raw, '.')
	if idx <= 0 || idx == len(raw)-1 {
		return "", "", false
	}
	return raw[:idx], raw[idx+1:], true
}

// Authenticate extracts X-API-Key, resolves it against the cache or
// repository, validates it is active/unexpired, and returns the matched
// ApiKey. The caller attaches the resulting permission set and partner id
// to the RequestScope.
func (a *Authenticator) Authenticate(ctx context.Context, rawKey string) (*domain.ApiKey, error) {
	if rawKey == "" {
		return nil, domain.ErrUnauthorized("missing api key")
	}
	prefix, secret, ok := splitAPIKey(rawKey)
	if !ok {
		return nil, domain.ErrUnauthorized("invalid api key")
	}

	if a.lockout != nil {
		if err := a.lockout.CheckLocked(ctx, prefix); err != nil {
			return nil, err
		}
	}

	key, err := a.lookupKey(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("lookup api key: %w", err)
	}
	if key == nil {
		a.recordFailure(ctx, prefix)
		return nil, domain.ErrUnauthorized("invalid api key")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(key.SecretHash), []byte(secret)); err != nil {
		a.recordFailure(ctx, prefix)
		return nil, domain.ErrUnauthorized("invalid api key")
	}
	if !key.IsUsable(time.Now()) {
		return nil, domain.ErrUnauthorized("invalid api key")
	}

	if a.lockout != nil {
		a.lockout.RecordSuccess(ctx, prefix)
	}
	return key, nil
}

// lookupKey tries L2 (keyed by the key's public prefix, never the secret)
// before falling back to the repository. A cache miss that resolves to "no
// such key" is deliberately left uncached, so a brute-force scan over
// prefixes cannot poison the cache with negative entries indefinitely.
func (a *Authenticator) lookupKey(ctx context.Context, prefix string) (*domain.ApiKey, error) {
	cacheKey := "apikey:" + prefix
	if raw, ok := a.cache.Get(ctx, cacheKey); ok {
		var key domain.ApiKey
		if err := json.Unmarshal(raw, &key); err != nil {
			return nil, fmt.Errorf("unmarshal cached api key: %w", err)
		}
		return &key, nil
	}

	key, err := a.keys.FindByPrefix(ctx, a.pool, prefix)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, nil
	}
	if raw, err := json.Marshal(key); err == nil {
		a.cache.Set(ctx, cacheKey, raw, apiKeyCacheTTL)
	}
	return key, nil
}

// TouchLastUsedAsync fires a best-effort, non-blocking update of the key's
// last-used bookkeeping in its own goroutine with a bounded timeout;
// failures here never affect the response already sent to the caller.
func TouchLastUsedAsync(keys repository.ApiKeyRepository, pool *pgxpool.Pool, keyID uuid.UUID, ip string, logger *zap.Logger) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := keys.TouchLastUsed(ctx, pool, keyID, ip, time.Now()); err != nil {
			logger.Warn("touch api key last_used failed", zap.Error(err))
		}
	}()
}

// HashSecret bcrypt-hashes a newly minted API key secret for storage.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash api key secret: %w", err)
	}
	return string(hash), nil
}

func (a *Authenticator) recordFailure(ctx context.Context, prefix string) {
	if a.lockout != nil {
		a.lockout.RecordFailure(ctx, prefix)
	}
}
