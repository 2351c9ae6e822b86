package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/casinobroker/platform/internal/domain"
)

type gameProviderRepo struct{}

// NewGameProviderRepository returns a pgx-backed GameProviderRepository.
func NewGameProviderRepository() GameProviderRepository { return &gameProviderRepo{} }

func (r *gameProviderRepo) FindByID(ctx context.Context, conn DBTX, id uuid.UUID) (*domain.GameProvider, error) {
	row := conn.QueryRow(ctx, `
		SELECT id, code, integration_type, api_endpoint, api_key, api_secret, status,
			supported_currencies, supported_languages, created_at, updated_at
		FROM game_providers WHERE id = $1`, id)
	return scanGameProvider(row)
}

func (r *gameProviderRepo) FindByCode(ctx context.Context, conn DBTX, code string) (*domain.GameProvider, error) {
	row := conn.QueryRow(ctx, `
		SELECT id, code, integration_type, api_endpoint, api_key, api_secret, status,
			supported_currencies, supported_languages, created_at, updated_at
		FROM game_providers WHERE code = $1`, code)
	return scanGameProvider(row)
}

func (r *gameProviderRepo) List(ctx context.Context, conn DBTX, filters []Filter, page Pagination) ([]domain.GameProvider, error) {
	where, args := WhereClause(filters, 0)
	limit, limitArgs := LimitClause(page, len(args))
	args = append(args, limitArgs...)

	query := fmt.Sprintf(`
		SELECT id, code, integration_type, api_endpoint, api_key, api_secret, status,
			supported_currencies, supported_languages, created_at, updated_at
		FROM game_providers%s ORDER BY created_at DESC%s`, where, limit)

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list game providers: %w", err)
	}
	defer rows.Close()

	var out []domain.GameProvider
	for rows.Next() {
		p, err := scanGameProvider(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func scanGameProvider(row pgx.Row) (*domain.GameProvider, error) {
	var p domain.GameProvider
	err := row.Scan(&p.ID, &p.Code, &p.IntegrationType, &p.APIEndpoint, &p.APIKey, &p.APISecret,
		&p.Status, &p.SupportedCurrencies, &p.SupportedLanguages, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan game provider: %w", err)
	}
	return &p, nil
}
