package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/casinobroker/platform/internal/db"
	"github.com/casinobroker/platform/internal/domain"
)

type transactionRepo struct{}

// NewTransactionRepository returns a pgx-backed TransactionRepository.
func NewTransactionRepository() TransactionRepository { return &transactionRepo{} }

// FindByPartnerReference is the indexed idempotency lookup the wallet
// engine consults before doing any business work.
func (r *transactionRepo) FindByPartnerReference(ctx context.Context, conn DBTX, partnerID uuid.UUID, referenceID string) (*domain.Transaction, error) {
	row := conn.QueryRow(ctx, `
		SELECT id, reference_id, wallet_id, player_id, partner_id, type, amount, currency,
			status, original_balance, updated_balance, game_id, game_session_id,
			original_transaction_id, metadata, created_at
		FROM transactions WHERE partner_id = $1 AND reference_id = $2`, partnerID, referenceID)
	return scanTransaction(row)
}

func (r *transactionRepo) FindByID(ctx context.Context, conn DBTX, id uuid.UUID) (*domain.Transaction, error) {
	row := conn.QueryRow(ctx, `
		SELECT id, reference_id, wallet_id, player_id, partner_id, type, amount, currency,
			status, original_balance, updated_balance, game_id, game_session_id,
			original_transaction_id, metadata, created_at
		FROM transactions WHERE id = $1`, id)
	return scanTransaction(row)
}

func (r *transactionRepo) Insert(ctx context.Context, conn DBTX, t *domain.Transaction) error {
	_, err := conn.Exec(ctx, `
		INSERT INTO transactions (id, reference_id, wallet_id, player_id, partner_id, type,
			amount, currency, status, original_balance, updated_balance, game_id,
			game_session_id, original_transaction_id, metadata, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		t.ID, t.ReferenceID, t.WalletID, t.PlayerID, t.PartnerID, t.Type,
		db.DecimalToNumeric(t.Amount), t.Currency, t.Status,
		db.DecimalToNumeric(t.OriginalBalance), db.DecimalToNumeric(t.UpdatedBalance),
		t.GameID, t.GameSessionID, t.OriginalTransactionID, t.Metadata, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (r *transactionRepo) UpdateStatus(ctx context.Context, conn DBTX, id uuid.UUID, status domain.TransactionStatus) error {
	_, err := conn.Exec(ctx, `UPDATE transactions SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update transaction status: %w", err)
	}
	return nil
}

func (r *transactionRepo) ListByWallet(ctx context.Context, conn DBTX, walletID uuid.UUID, sort *Sort, page Pagination) ([]domain.Transaction, error) {
	filters := []Filter{Eq("wallet_id", walletID)}
	where, args := WhereClause(filters, 0)
	order := OrderClause(sort)
	limit, limitArgs := LimitClause(page, len(args))
	args = append(args, limitArgs...)

	query := fmt.Sprintf(`
		SELECT id, reference_id, wallet_id, player_id, partner_id, type, amount, currency,
			status, original_balance, updated_balance, game_id, game_session_id,
			original_transaction_id, metadata, created_at
		FROM transactions%s%s%s`, where, order, limit)

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions by wallet: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// ListMissingAMLRecord finds completed transactions since a cutoff that
// have no corresponding AMLTransaction — used by the repair scan to close
// the gap left by AML analysis running outside the wallet commit.
func (r *transactionRepo) ListMissingAMLRecord(ctx context.Context, conn DBTX, since time.Time, limit int) ([]domain.Transaction, error) {
	rows, err := conn.Query(ctx, `
		SELECT t.id, t.reference_id, t.wallet_id, t.player_id, t.partner_id, t.type, t.amount,
			t.currency, t.status, t.original_balance, t.updated_balance, t.game_id,
			t.game_session_id, t.original_transaction_id, t.metadata, t.created_at
		FROM transactions t
		LEFT JOIN aml_transactions at ON at.transaction_id = t.id
		WHERE t.status = 'completed' AND t.created_at >= $1 AND at.id IS NULL
		ORDER BY t.created_at ASC
		LIMIT $2`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions missing aml record: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// ListByPlayerSince fetches the rolling-window context the AML analysis
// pipeline scores a new transaction against.
func (r *transactionRepo) ListByPlayerSince(ctx context.Context, conn DBTX, playerID, partnerID uuid.UUID, since time.Time, limit int) ([]domain.Transaction, error) {
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	rows, err := conn.Query(ctx, `
		SELECT id, reference_id, wallet_id, player_id, partner_id, type, amount, currency,
			status, original_balance, updated_balance, game_id, game_session_id,
			original_transaction_id, metadata, created_at
		FROM transactions
		WHERE player_id = $1 AND partner_id = $2 AND created_at >= $3 AND status = 'completed'
		ORDER BY created_at DESC
		LIMIT $4`, playerID, partnerID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions by player since: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// ListByPartnerSince returns a partner's transactions created in
// [since, until), oldest first, bounded by limit.
func (r *transactionRepo) ListByPartnerSince(ctx context.Context, conn DBTX, partnerID uuid.UUID, since, until time.Time, limit int) ([]domain.Transaction, error) {
	if limit <= 0 || limit > 50000 {
		limit = 50000
	}
	rows, err := conn.Query(ctx, `
		SELECT id, reference_id, wallet_id, player_id, partner_id, type, amount, currency,
			status, original_balance, updated_balance, game_id, game_session_id,
			original_transaction_id, metadata, created_at
		FROM transactions
		WHERE partner_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at ASC
		LIMIT $4`, partnerID, since, until, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions by partner since: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	var amountNum, origNum, updNum pgtype.Numeric
	err := row.Scan(&t.ID, &t.ReferenceID, &t.WalletID, &t.PlayerID, &t.PartnerID, &t.Type,
		&amountNum, &t.Currency, &t.Status, &origNum, &updNum, &t.GameID, &t.GameSessionID,
		&t.OriginalTransactionID, &t.Metadata, &t.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}

	var convErr error
	if t.Amount, convErr = db.NumericToDecimal(amountNum); convErr != nil {
		return nil, fmt.Errorf("convert amount: %w", convErr)
	}
	if t.OriginalBalance, convErr = db.NumericToDecimal(origNum); convErr != nil {
		return nil, fmt.Errorf("convert original_balance: %w", convErr)
	}
	if t.UpdatedBalance, convErr = db.NumericToDecimal(updNum); convErr != nil {
		return nil, fmt.Errorf("convert updated_balance: %w", convErr)
	}
	return &t, nil
}
