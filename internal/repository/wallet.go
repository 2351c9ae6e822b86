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

type walletRepo struct{}

// NewWalletRepository returns a pgx-backed WalletRepository.
func NewWalletRepository() WalletRepository { return &walletRepo{} }

func (r *walletRepo) FindByTriple(ctx context.Context, conn DBTX, playerID, partnerID uuid.UUID, currency string) (*domain.Wallet, error) {
	row := conn.QueryRow(ctx, `
		SELECT id, player_id, partner_id, currency, balance, active, locked, version, created_at, updated_at
		FROM wallets WHERE player_id = $1 AND partner_id = $2 AND currency = $3`,
		playerID, partnerID, currency)
	return scanWallet(row)
}

// GetForUpdate locks the wallet row so concurrent debits/credits on the
// same wallet serialize behind the database, per the wallet engine's
// single-writer-per-row contract.
func (r *walletRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, playerID, partnerID uuid.UUID, currency string) (*domain.Wallet, error) {
	row := tx.QueryRow(ctx, `
		SELECT id, player_id, partner_id, currency, balance, active, locked, version, created_at, updated_at
		FROM wallets WHERE player_id = $1 AND partner_id = $2 AND currency = $3 FOR UPDATE`,
		playerID, partnerID, currency)
	return scanWallet(row)
}

func (r *walletRepo) Create(ctx context.Context, conn DBTX, w *domain.Wallet) error {
	_, err := conn.Exec(ctx, `
		INSERT INTO wallets (id, player_id, partner_id, currency, balance, active, locked,
			version, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (player_id, partner_id, currency) DO NOTHING`,
		w.ID, w.PlayerID, w.PartnerID, w.Currency, db.DecimalToNumeric(w.Balance),
		w.Active, w.Locked, w.Version, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// UpdateBalance writes the new balance with server-side version bump,
// assuming the caller already holds the FOR UPDATE lock from GetForUpdate.
func (r *walletRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, newBalance domain.Money) error {
	_, err := tx.Exec(ctx, `
		UPDATE wallets SET balance = $1, version = version + 1, updated_at = now() WHERE id = $2`,
		db.DecimalToNumeric(newBalance), walletID)
	if err != nil {
		return fmt.Errorf("update wallet balance: %w", err)
	}
	return nil
}

// ListByPartner returns every wallet belonging to partnerID, for the
// wallet_balances report.
func (r *walletRepo) ListByPartner(ctx context.Context, conn DBTX, partnerID uuid.UUID) ([]domain.Wallet, error) {
	rows, err := conn.Query(ctx, `
		SELECT id, player_id, partner_id, currency, balance, active, locked, version, created_at, updated_at
		FROM wallets WHERE partner_id = $1 ORDER BY created_at ASC`, partnerID)
	if err != nil {
		return nil, fmt.Errorf("list wallets by partner: %w", err)
	}
	defer rows.Close()

	var out []domain.Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, rows.Err()
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	var w domain.Wallet
	var balNum pgtype.Numeric
	err := row.Scan(&w.ID, &w.PlayerID, &w.PartnerID, &w.Currency, &balNum, &w.Active, &w.Locked,
		&w.Version, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan wallet: %w", err)
	}
	bal, err := db.NumericToDecimal(balNum)
	if err != nil {
		return nil, fmt.Errorf("convert balance: %w", err)
	}
	w.Balance = bal
	return &w, nil
}
