package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/casinobroker/platform/internal/domain"
)

type apiKeyRepo struct{}

// NewApiKeyRepository returns a pgx-backed ApiKeyRepository.
func NewApiKeyRepository() ApiKeyRepository { return &apiKeyRepo{} }

func (r *apiKeyRepo) FindByID(ctx context.Context, conn DBTX, id uuid.UUID) (*domain.ApiKey, error) {
	row := conn.QueryRow(ctx, `
		SELECT id, partner_id, key_prefix, secret_hash, name, permissions, active,
			expires_at, last_used_at, last_used_ip, created_at
		FROM api_keys WHERE id = $1`, id)
	return scanApiKey(row)
}

func (r *apiKeyRepo) FindByPrefix(ctx context.Context, conn DBTX, prefix string) (*domain.ApiKey, error) {
	row := conn.QueryRow(ctx, `
		SELECT id, partner_id, key_prefix, secret_hash, name, permissions, active,
			expires_at, last_used_at, last_used_ip, created_at
		FROM api_keys WHERE key_prefix = $1`, prefix)
	return scanApiKey(row)
}

func (r *apiKeyRepo) Create(ctx context.Context, conn DBTX, k *domain.ApiKey) error {
	_, err := conn.Exec(ctx, `
		INSERT INTO api_keys (id, partner_id, key_prefix, secret_hash, name, permissions,
			active, expires_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		k.ID, k.PartnerID, k.KeyPrefix, k.SecretHash, k.Name, k.Permissions,
		k.Active, k.ExpiresAt, k.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert api key: %w", err)
	}
	return nil
}

func (r *apiKeyRepo) Revoke(ctx context.Context, conn DBTX, id uuid.UUID) error {
	_, err := conn.Exec(ctx, `UPDATE api_keys SET active = false WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	return nil
}

func (r *apiKeyRepo) TouchLastUsed(ctx context.Context, conn DBTX, id uuid.UUID, ip string, at time.Time) error {
	_, err := conn.Exec(ctx, `UPDATE api_keys SET last_used_at = $1, last_used_ip = $2 WHERE id = $3`, at, ip, id)
	if err != nil {
		return fmt.Errorf("touch api key last_used: %w", err)
	}
	return nil
}

func (r *apiKeyRepo) ListByPartner(ctx context.Context, conn DBTX, partnerID uuid.UUID) ([]domain.ApiKey, error) {
	rows, err := conn.Query(ctx, `
		SELECT id, partner_id, key_prefix, secret_hash, name, permissions, active,
			expires_at, last_used_at, last_used_ip, created_at
		FROM api_keys WHERE partner_id = $1 ORDER BY created_at DESC`, partnerID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var out []domain.ApiKey
	for rows.Next() {
		k, err := scanApiKey(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *k)
	}
	return out, rows.Err()
}

func scanApiKey(row pgx.Row) (*domain.ApiKey, error) {
	var k domain.ApiKey
	err := row.Scan(&k.ID, &k.PartnerID, &k.KeyPrefix, &k.SecretHash, &k.Name, &k.Permissions,
		&k.Active, &k.ExpiresAt, &k.LastUsedAt, &k.LastUsedIP, &k.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan api key: %w", err)
	}
	return &k, nil
}
