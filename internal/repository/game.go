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

type gameRepo struct{}

// NewGameRepository returns a pgx-backed GameRepository.
func NewGameRepository() GameRepository { return &gameRepo{} }

func (r *gameRepo) FindByID(ctx context.Context, conn DBTX, id uuid.UUID) (*domain.Game, error) {
	row := conn.QueryRow(ctx, `
		SELECT id, provider_id, game_code, category, status, rtp, min_bet, max_bet, features
		FROM games WHERE id = $1`, id)
	return scanGame(row)
}

func (r *gameRepo) FindByProviderAndCode(ctx context.Context, conn DBTX, providerID uuid.UUID, gameCode string) (*domain.Game, error) {
	row := conn.QueryRow(ctx, `
		SELECT id, provider_id, game_code, category, status, rtp, min_bet, max_bet, features
		FROM games WHERE provider_id = $1 AND game_code = $2`, providerID, gameCode)
	return scanGame(row)
}

func (r *gameRepo) List(ctx context.Context, conn DBTX, filters []Filter, page Pagination) ([]domain.Game, error) {
	where, args := WhereClause(filters, 0)
	limit, limitArgs := LimitClause(page, len(args))
	args = append(args, limitArgs...)

	query := fmt.Sprintf(`
		SELECT id, provider_id, game_code, category, status, rtp, min_bet, max_bet, features
		FROM games%s ORDER BY game_code ASC%s`, where, limit)

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var out []domain.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

func scanGame(row pgx.Row) (*domain.Game, error) {
	var g domain.Game
	var minBetNum, maxBetNum pgtype.Numeric
	err := row.Scan(&g.ID, &g.ProviderID, &g.GameCode, &g.Category, &g.Status, &g.RTP,
		&minBetNum, &maxBetNum, &g.Features)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan game: %w", err)
	}
	var convErr error
	if g.MinBet, convErr = db.NumericToDecimal(minBetNum); convErr != nil {
		return nil, fmt.Errorf("convert min_bet: %w", convErr)
	}
	if g.MaxBet, convErr = db.NumericToDecimal(maxBetNum); convErr != nil {
		return nil, fmt.Errorf("convert max_bet: %w", convErr)
	}
	return &g, nil
}
