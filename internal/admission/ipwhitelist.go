package admission

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/casinobroker/platform/internal/domain"
	"github.com/casinobroker/platform/internal/repository"
)

// IPWhitelist is the second admission stage: when global whitelisting
// is enabled, the client IP must match one of the partner's whitelisted
// entries (bare IP or CIDR); an empty whitelist then means deny-all.
// Disabled globally, an empty whitelist means open.
type IPWhitelist struct {
	ips repository.PartnerIPRepository
}

// NewIPWhitelist builds an IPWhitelist checker.
func NewIPWhitelist(ips repository.PartnerIPRepository) *IPWhitelist {
	return &IPWhitelist{ips: ips}
}

// Check enforces the whitelist for partnerID against clientIP, given
// whether the partner has global whitelisting enabled.
func (w *IPWhitelist) Check(ctx context.Context, pool *pgxpool.Pool, partnerID uuid.UUID, enabled bool, clientIP string) error {
	if !enabled {
		return nil
	}
	entries, err := w.ips.ListByPartner(ctx, pool, partnerID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return domain.ErrForbidden("ip not whitelisted")
	}
	ip := net.ParseIP(clientIP)
	if ip == nil {
		return domain.ErrForbidden("ip not whitelisted")
	}
	for _, e := range entries {
		if matchesCIDROrIP(e.CIDR, ip) {
			return nil
		}
	}
	return domain.ErrForbidden("ip not whitelisted")
}

func matchesCIDROrIP(entry string, ip net.IP) bool {
	if strings.Contains(entry, "/") {
		_, network, err := net.ParseCIDR(entry)
		if err != nil {
			return false
		}
		return network.Contains(ip)
	}
	entryIP := net.ParseIP(entry)
	return entryIP != nil && entryIP.Equal(ip)
}

// ClientIP resolves the request's client IP: the first hop of
// X-Forwarded-For, falling back to the TCP peer address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
