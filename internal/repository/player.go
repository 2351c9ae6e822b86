package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/casinobroker/platform/internal/domain"
)

type playerRepo struct{}

// NewPlayerRepository returns a pgx-backed PlayerRepository.
func NewPlayerRepository() PlayerRepository { return &playerRepo{} }

func (r *playerRepo) FindByID(ctx context.Context, conn DBTX, id uuid.UUID) (*domain.Player, error) {
	row := conn.QueryRow(ctx, `
		SELECT id, partner_id, external_ref, status, created_at
		FROM players WHERE id = $1`, id)
	return scanPlayer(row)
}

func (r *playerRepo) FindByExternalRef(ctx context.Context, conn DBTX, partnerID uuid.UUID, externalRef string) (*domain.Player, error) {
	row := conn.QueryRow(ctx, `
		SELECT id, partner_id, external_ref, status, created_at
		FROM players WHERE partner_id = $1 AND external_ref = $2`, partnerID, externalRef)
	return scanPlayer(row)
}

// FindOrCreate resolves a partner's external player reference to a
// platform-local player row, creating it on first sight. The ON CONFLICT
// DO UPDATE no-op (id = players.id) makes the RETURNING clause fire on
// both the insert and the race-loser path, so a single round trip always
// yields the row.
func (r *playerRepo) FindOrCreate(ctx context.Context, conn DBTX, partnerID uuid.UUID, externalRef string) (*domain.Player, error) {
	row := conn.QueryRow(ctx, `
		INSERT INTO players (id, partner_id, external_ref, status, created_at)
		VALUES (gen_random_uuid(), $1, $2, 'active', now())
		ON CONFLICT (partner_id, external_ref) DO UPDATE SET id = players.id
		RETURNING id, partner_id, external_ref, status, created_at`, partnerID, externalRef)
	return scanPlayer(row)
}

func (r *playerRepo) UpdateStatus(ctx context.Context, conn DBTX, id uuid.UUID, status domain.PlayerStatus) error {
	_, err := conn.Exec(ctx, `UPDATE players SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update player status: %w", err)
	}
	return nil
}

func scanPlayer(row pgx.Row) (*domain.Player, error) {
	var p domain.Player
	err := row.Scan(&p.ID, &p.PartnerID, &p.ExternalRef, &p.Status, &p.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan player: %w", err)
	}
	return &p, nil
}
