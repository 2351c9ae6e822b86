package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/casinobroker/platform/internal/db"
	"github.com/casinobroker/platform/internal/domain"
)

type partnerRepo struct{}

// NewPartnerRepository returns a pgx-backed PartnerRepository.
func NewPartnerRepository() PartnerRepository { return &partnerRepo{} }

func (r *partnerRepo) FindByID(ctx context.Context, conn DBTX, id uuid.UUID) (*domain.Partner, error) {
	row := conn.QueryRow(ctx, `
		SELECT id, short_code, type, status, commission_model, commission_rate, commission_unit,
			contact_email, callback_secret, contract_start, contract_end, global_ip_whitelist_enabled,
			created_at, updated_at
		FROM partners WHERE id = $1`, id)
	return scanPartner(row)
}

func (r *partnerRepo) FindByShortCode(ctx context.Context, conn DBTX, shortCode string) (*domain.Partner, error) {
	row := conn.QueryRow(ctx, `
		SELECT id, short_code, type, status, commission_model, commission_rate, commission_unit,
			contact_email, callback_secret, contract_start, contract_end, global_ip_whitelist_enabled,
			created_at, updated_at
		FROM partners WHERE short_code = $1`, shortCode)
	return scanPartner(row)
}

func (r *partnerRepo) Create(ctx context.Context, conn DBTX, p *domain.Partner) error {
	_, err := conn.Exec(ctx, `
		INSERT INTO partners (id, short_code, type, status, commission_model, commission_rate,
			commission_unit, contact_email, callback_secret, contract_start, contract_end,
			global_ip_whitelist_enabled, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		p.ID, p.ShortCode, p.Type, p.Status, p.Commission.Model, db.DecimalToNumeric(p.Commission.Rate),
		p.Commission.Unit, p.ContactEmail, p.CallbackSecret, p.ContractStart, p.ContractEnd,
		p.Settings.GlobalIPWhitelistEnabled, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert partner: %w", err)
	}
	return nil
}

func (r *partnerRepo) UpdateStatus(ctx context.Context, conn DBTX, id uuid.UUID, status domain.PartnerStatus) error {
	_, err := conn.Exec(ctx, `UPDATE partners SET status = $1, updated_at = now() WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update partner status: %w", err)
	}
	return nil
}

func (r *partnerRepo) List(ctx context.Context, conn DBTX, filters []Filter, sort *Sort, page Pagination) ([]domain.Partner, error) {
	where, args := WhereClause(filters, 0)
	order := OrderClause(sort)
	limit, limitArgs := LimitClause(page, len(args))
	args = append(args, limitArgs...)

	query := fmt.Sprintf(`
		SELECT id, short_code, type, status, commission_model, commission_rate, commission_unit,
			contact_email, callback_secret, contract_start, contract_end, global_ip_whitelist_enabled,
			created_at, updated_at
		FROM partners%s%s%s`, where, order, limit)

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list partners: %w", err)
	}
	defer rows.Close()

	var out []domain.Partner
	for rows.Next() {
		p, err := scanPartner(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func scanPartner(row pgx.Row) (*domain.Partner, error) {
	var p domain.Partner
	var rateNum pgtype.Numeric
	err := row.Scan(&p.ID, &p.ShortCode, &p.Type, &p.Status, &p.Commission.Model, &rateNum,
		&p.Commission.Unit, &p.ContactEmail, &p.CallbackSecret, &p.ContractStart, &p.ContractEnd,
		&p.Settings.GlobalIPWhitelistEnabled, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan partner: %w", err)
	}
	rate, err := db.NumericToDecimal(rateNum)
	if err != nil {
		return nil, fmt.Errorf("convert commission_rate: %w", err)
	}
	p.Commission.Rate = rate
	return &p, nil
}
