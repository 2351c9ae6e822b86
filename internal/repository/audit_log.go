package repository

import (
	"context"
	"fmt"

	"github.com/casinobroker/platform/internal/domain"
)

type auditLogRepo struct{}

// NewAuditLogRepository returns a pgx-backed AuditLogRepository.
func NewAuditLogRepository() AuditLogRepository { return &auditLogRepo{} }

func (r *auditLogRepo) Insert(ctx context.Context, conn DBTX, l *domain.AuditLog) error {
	_, err := conn.Exec(ctx, `
		INSERT INTO audit_logs (id, request_id, timestamp, partner_id, api_key_id, ip, method,
			path, status_code, latency_ms, request_body, response_body)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		l.ID, l.RequestID, l.Timestamp, l.PartnerID, l.ApiKeyID, l.IP, l.Method,
		l.Path, l.StatusCode, l.LatencyMS, l.RequestBody, l.ResponseBody)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}
