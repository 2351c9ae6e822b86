package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/casinobroker/platform/internal/domain"
)

type gameSessionRepo struct{}

// NewGameSessionRepository returns a pgx-backed GameSessionRepository.
func NewGameSessionRepository() GameSessionRepository { return &gameSessionRepo{} }

// GetActiveForPlayerGame locks the player row with FOR NO KEY UPDATE so
// concurrent launch_game calls for the same (player, game) serialize
// before either observes or creates the active session.
func (r *gameSessionRepo) GetActiveForPlayerGame(ctx context.Context, tx pgx.Tx, playerID, gameID uuid.UUID) (*domain.GameSession, error) {
	if _, err := tx.Exec(ctx, `SELECT id FROM players WHERE id = $1 FOR NO KEY UPDATE`, playerID); err != nil {
		return nil, fmt.Errorf("lock player row: %w", err)
	}

	row := tx.QueryRow(ctx, `
		SELECT id, token, player_id, partner_id, game_id, status, currency, language,
			return_url, started_at, ended_at
		FROM game_sessions
		WHERE player_id = $1 AND game_id = $2 AND status = 'active'`, playerID, gameID)
	return scanGameSession(row)
}

func (r *gameSessionRepo) FindByToken(ctx context.Context, conn DBTX, token string) (*domain.GameSession, error) {
	row := conn.QueryRow(ctx, `
		SELECT id, token, player_id, partner_id, game_id, status, currency, language,
			return_url, started_at, ended_at
		FROM game_sessions WHERE token = $1`, token)
	return scanGameSession(row)
}

func (r *gameSessionRepo) Create(ctx context.Context, tx pgx.Tx, s *domain.GameSession) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO game_sessions (id, token, player_id, partner_id, game_id, status,
			currency, language, return_url, started_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		s.ID, s.Token, s.PlayerID, s.PartnerID, s.GameID, s.Status,
		s.SessionData.Currency, s.SessionData.Language, s.SessionData.ReturnURL, s.StartedAt)
	if err != nil {
		return fmt.Errorf("insert game session: %w", err)
	}
	return nil
}

func (r *gameSessionRepo) UpdateStatus(ctx context.Context, conn DBTX, id uuid.UUID, status domain.SessionStatus) error {
	_, err := conn.Exec(ctx, `
		UPDATE game_sessions SET status = $1, ended_at = CASE WHEN $1 != 'active' THEN now() ELSE ended_at END
		WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update game session status: %w", err)
	}
	return nil
}

func scanGameSession(row pgx.Row) (*domain.GameSession, error) {
	var s domain.GameSession
	err := row.Scan(&s.ID, &s.Token, &s.PlayerID, &s.PartnerID, &s.GameID, &s.Status,
		&s.SessionData.Currency, &s.SessionData.Language, &s.SessionData.ReturnURL,
		&s.StartedAt, &s.EndedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan game session: %w", err)
	}
	return &s, nil
}
