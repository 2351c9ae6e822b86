package admission

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/casinobroker/platform/internal/cache"
	"github.com/casinobroker/platform/internal/domain"
)

// RateLimitRule is one per-endpoint entry: pattern matches a normalized
// request path, limit/window bound a fixed window, block optionally
// extends the penalty past the window itself once it overflows.
type RateLimitRule struct {
	Pattern *regexp.Regexp
	Limit   int
	Window  time.Duration
	Block   time.Duration
}

// RateLimitResult carries the values the admission pipeline renders into
// X-RateLimit-* / Retry-After response headers.
type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAfter time.Duration
	RetryAfter time.Duration
}

// RateLimiter implements a fixed-window counter: one INCR+EXPIRE per
// (partner, normalized path, window) in the shared cache, generalized
// from an in-process sliding window to a cache-backed fixed window
// shared across replicas.
type RateLimiter struct {
	cache  *cache.Cache
	rules  []RateLimitRule
	defLim int
	defWin time.Duration
	logger *zap.Logger
}

// NewRateLimiter builds a RateLimiter from the configured per-endpoint
// rules plus a default limit/window applied to paths none of them match.
func NewRateLimiter(c *cache.Cache, rules []RateLimitRule, defaultLimit int, defaultWindow time.Duration, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{cache: c, rules: rules, defLim: defaultLimit, defWin: defaultWindow, logger: logger}
}

func (rl *RateLimiter) ruleFor(path string) RateLimitRule {
	for _, r := range rl.rules {
		if r.Pattern.MatchString(path) {
			return r
		}
	}
	return RateLimitRule{Limit: rl.defLim, Window: rl.defWin}
}

// Check increments the window counter for (partnerID, path) and reports
// whether the request is within limit. An overflowing request optionally
// sets a block key for rule.Block, so further requests fail fast without
// even incrementing the counter again.
func (rl *RateLimiter) Check(ctx context.Context, partnerID, path string) (RateLimitResult, error) {
	rule := rl.ruleFor(path)
	if rule.Limit <= 0 {
		return RateLimitResult{Allowed: true}, nil
	}

	blockKey := fmt.Sprintf("rl:block:%s:%s", partnerID, path)
	if blocked, err := rl.cache.IsBlocked(ctx, blockKey); err == nil && blocked {
		ttl, _ := rl.cache.TTL(ctx, blockKey)
		return RateLimitResult{Allowed: false, Limit: rule.Limit, Remaining: 0, RetryAfter: ttl}, nil
	}

	windowStart := time.Now().Unix() / int64(rule.Window.Seconds())
	counterKey := fmt.Sprintf("rl:%s:%s:%d", partnerID, path, windowStart)

	count, err := rl.cache.IncrementWindow(ctx, counterKey, rule.Window)
	if err != nil {
		rl.logger.Warn("rate limit check failed, allowing request", zap.Error(err))
		return RateLimitResult{Allowed: true, Limit: rule.Limit}, nil
	}

	ttl, _ := rl.cache.TTL(ctx, counterKey)
	remaining := rule.Limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	if int(count) > rule.Limit {
		if rule.Block > 0 {
			_ = rl.cache.SetBlock(ctx, blockKey, rule.Block)
			ttl = rule.Block
		}
		return RateLimitResult{Allowed: false, Limit: rule.Limit, Remaining: 0, RetryAfter: ttl}, nil
	}

	return RateLimitResult{Allowed: true, Limit: rule.Limit, Remaining: remaining, ResetAfter: ttl}, nil
}

// ToError converts a denied RateLimitResult into the domain error the
// handler surfaces as 429.
func (res RateLimitResult) ToError() error {
	return domain.ErrRateLimited(int(res.RetryAfter.Seconds()))
}
