package admission

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/casinobroker/platform/internal/cache"
	"github.com/casinobroker/platform/internal/config"
	"github.com/casinobroker/platform/internal/domain"
	"github.com/casinobroker/platform/internal/repository"
)

// Pipeline is the full admission chain a partner-facing request traverses
// before it reaches a handler: authenticate, IP whitelist, rate limit, and
// (wrapping all of it) audit logging. Permission checks against the
// resolved RequestScope are left to individual handlers, which know the
// resource/action they require.
type Pipeline struct {
	auth        *Authenticator
	whitelist   *IPWhitelist
	rateLimiter *RateLimiter
	audit       *AuditLogger
	partners    repository.PartnerRepository
	keys        repository.ApiKeyRepository
	pool        *pgxpool.Pool
	logger      *zap.Logger
	exempt      []exemptMatcher
}

type exemptMatcher struct {
	prefix bool
	value  string
}

// NewPipeline assembles the admission pipeline from its stages.
func NewPipeline(
	pool *pgxpool.Pool,
	auth *Authenticator,
	whitelist *IPWhitelist,
	rateLimiter *RateLimiter,
	audit *AuditLogger,
	partners repository.PartnerRepository,
	keys repository.ApiKeyRepository,
	exemptPaths []string,
	logger *zap.Logger,
) *Pipeline {
	p := &Pipeline{
		auth: auth, whitelist: whitelist, rateLimiter: rateLimiter, audit: audit,
		partners: partners, keys: keys, pool: pool, logger: logger,
	}
	for _, e := range exemptPaths {
		if strings.HasSuffix(e, "/") {
			p.exempt = append(p.exempt, exemptMatcher{prefix: true, value: e})
		} else {
			p.exempt = append(p.exempt, exemptMatcher{value: e})
		}
	}
	return p
}

// Result is what a successful Admit call hands to the handler: the
// resolved scope plus the rate-limit bookkeeping the caller must echo in
// response headers.
type Result struct {
	Scope     domain.RequestScope
	RateLimit RateLimitResult
}

// IsExempt reports whether path bypasses authentication entirely (health
// checks, docs, static assets).
func (p *Pipeline) IsExempt(path string) bool {
	for _, e := range p.exempt {
		if e.prefix && strings.HasPrefix(path, e.value) {
			return true
		}
		if !e.prefix && path == e.value {
			return true
		}
	}
	return false
}

// Admit runs the authenticate → IP-whitelist → rate-limit chain for one
// request and returns the resolved scope. Audit logging is the caller's
// responsibility once the handler's response is known (see AuditLogger),
// since only the caller knows the final status code and body.
func (p *Pipeline) Admit(ctx context.Context, rawKey, clientIP, normalizedPath string) (Result, error) {
	key, err := p.auth.Authenticate(ctx, rawKey)
	if err != nil {
		return Result{}, err
	}

	partner, err := p.partners.FindByID(ctx, p.pool, key.PartnerID)
	if err != nil {
		return Result{}, err
	}
	if partner == nil || !partner.IsUsable() {
		return Result{}, domain.ErrForbidden("partner is not active")
	}

	if err := p.whitelist.Check(ctx, p.pool, partner.ID, partner.Settings.GlobalIPWhitelistEnabled, clientIP); err != nil {
		return Result{}, err
	}

	rlResult, err := p.rateLimiter.Check(ctx, partner.ID.String(), normalizedPath)
	if err != nil {
		return Result{}, err
	}
	if !rlResult.Allowed {
		return Result{RateLimit: rlResult}, rlResult.ToError()
	}

	TouchLastUsedAsync(p.keys, p.pool, key.ID, clientIP, p.logger)

	scope := domain.RequestScope{
		RequestID:   uuid.New(),
		PartnerID:   partner.ID,
		ApiKeyID:    key.ID,
		Permissions: domain.NewPermissionSet(key.Permissions),
		ClientIP:    clientIP,
	}
	return Result{Scope: scope, RateLimit: rlResult}, nil
}

// NormalizePath collapses path segments that look like resource
// identifiers (UUIDs, numeric ids) into a placeholder, so
// "/v1/players/<uuid>/wallet" and "/v1/players/<other-uuid>/wallet" share
// one rate-limit bucket and one rule match instead of each minting its own.
func NormalizePath(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		if uuidPattern.MatchString(seg) || numericPattern.MatchString(seg) {
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}

var (
	uuidPattern    = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	numericPattern = regexp.MustCompile(`^[0-9]+$`)
)

// BuildRateLimitRules compiles the configured per-endpoint rules into the
// regexp-backed form RateLimiter consumes, skipping any rule whose pattern
// fails to compile (logged, never fatal to startup).
func BuildRateLimitRules(rules []config.RateLimitRule, logger *zap.Logger) []RateLimitRule {
	out := make([]RateLimitRule, 0, len(rules))
	for _, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			logger.Error("invalid rate limit rule pattern, skipping", zap.String("pattern", r.Pattern), zap.Error(err))
			continue
		}
		out = append(out, RateLimitRule{
			Pattern: re,
			Limit:   r.Limit,
			Window:  time.Duration(r.WindowS) * time.Second,
			Block:   time.Duration(r.BlockS) * time.Second,
		})
	}
	return out
}
