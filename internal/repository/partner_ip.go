package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/casinobroker/platform/internal/domain"
)

type partnerIPRepo struct{}

// NewPartnerIPRepository returns a pgx-backed PartnerIPRepository.
func NewPartnerIPRepository() PartnerIPRepository { return &partnerIPRepo{} }

func (r *partnerIPRepo) ListByPartner(ctx context.Context, conn DBTX, partnerID uuid.UUID) ([]domain.PartnerIP, error) {
	rows, err := conn.Query(ctx, `
		SELECT id, partner_id, cidr, created_at FROM partner_ips WHERE partner_id = $1`, partnerID)
	if err != nil {
		return nil, fmt.Errorf("list partner ips: %w", err)
	}
	defer rows.Close()

	var out []domain.PartnerIP
	for rows.Next() {
		var p domain.PartnerIP
		if err := rows.Scan(&p.ID, &p.PartnerID, &p.CIDR, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan partner ip: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *partnerIPRepo) Create(ctx context.Context, conn DBTX, entry *domain.PartnerIP) error {
	_, err := conn.Exec(ctx, `
		INSERT INTO partner_ips (id, partner_id, cidr, created_at) VALUES ($1,$2,$3,$4)
		ON CONFLICT (partner_id, cidr) DO NOTHING`,
		entry.ID, entry.PartnerID, entry.CIDR, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert partner ip: %w", err)
	}
	return nil
}

func (r *partnerIPRepo) Delete(ctx context.Context, conn DBTX, id uuid.UUID) error {
	_, err := conn.Exec(ctx, `DELETE FROM partner_ips WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete partner ip: %w", err)
	}
	return nil
}
