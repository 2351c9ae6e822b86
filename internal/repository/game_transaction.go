package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/casinobroker/platform/internal/db"
	"github.com/casinobroker/platform/internal/domain"
)

type gameTransactionRepo struct{}

// NewGameTransactionRepository returns a pgx-backed GameTransactionRepository.
func NewGameTransactionRepository() GameTransactionRepository { return &gameTransactionRepo{} }

func (r *gameTransactionRepo) FindByReferenceID(ctx context.Context, conn DBTX, referenceID string) (*domain.GameTransaction, error) {
	row := conn.QueryRow(ctx, `
		SELECT id, session_id, transaction_id, reference_id, round_id, action, amount,
			currency, status, created_at
		FROM game_transactions WHERE reference_id = $1`, referenceID)
	return scanGameTransaction(row)
}

func (r *gameTransactionRepo) Insert(ctx context.Context, conn DBTX, gt *domain.GameTransaction) error {
	_, err := conn.Exec(ctx, `
		INSERT INTO game_transactions (id, session_id, transaction_id, reference_id, round_id,
			action, amount, currency, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		gt.ID, gt.SessionID, gt.TransactionID, gt.ReferenceID, gt.RoundID, gt.Action,
		db.DecimalToNumeric(gt.Amount), gt.Currency, gt.Status, gt.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert game transaction: %w", err)
	}
	return nil
}

func scanGameTransaction(row pgx.Row) (*domain.GameTransaction, error) {
	var gt domain.GameTransaction
	var amountNum pgtype.Numeric
	err := row.Scan(&gt.ID, &gt.SessionID, &gt.TransactionID, &gt.ReferenceID, &gt.RoundID,
		&gt.Action, &amountNum, &gt.Currency, &gt.Status, &gt.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan game transaction: %w", err)
	}
	amount, err := db.NumericToDecimal(amountNum)
	if err != nil {
		return nil, fmt.Errorf("convert amount: %w", err)
	}
	gt.Amount = amount
	return &gt, nil
}
