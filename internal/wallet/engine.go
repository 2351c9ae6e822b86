// Package wallet implements the platform's ledger: atomic, idempotent
// credit/debit/rollback against per-(player,partner,currency) balances.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/casinobroker/platform/internal/cache"
	"github.com/casinobroker/platform/internal/domain"
	"github.com/casinobroker/platform/internal/repository"
)

// Engine provides the wallet ledger's three operations. All three run in
// a single serializable transaction, serialized per wallet by a row lock,
// with cache tag invalidation on commit.
type Engine struct {
	pool         *pgxpool.Pool
	wallets      repository.WalletRepository
	transactions repository.TransactionRepository
	outbox       repository.OutboxRepository
	cache        *cache.Cache
	logger       *zap.Logger
}

// NewEngine builds a wallet Engine from its repositories and collaborators.
func NewEngine(pool *pgxpool.Pool, wallets repository.WalletRepository, transactions repository.TransactionRepository, outbox repository.OutboxRepository, c *cache.Cache, logger *zap.Logger) *Engine {
	return &Engine{pool: pool, wallets: wallets, transactions: transactions, outbox: outbox, cache: c, logger: logger}
}

// isRetryableSerializationFailure reports whether err is a Postgres
// serialization failure (40001), safe to retry once on a fresh
// transaction per the engine's failure semantics.
func isRetryableSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001"
	}
	return false
}

// runSerializable executes fn in a serializable transaction, retrying
// once if the database reports a serialization failure.
func (e *Engine) runSerializable(ctx context.Context, fn func(tx pgx.Tx) error) error {
	opts := pgx.TxOptions{IsoLevel: pgx.Serializable}
	err := pgx.BeginTxFunc(ctx, e.pool, opts, fn)
	if err != nil && isRetryableSerializationFailure(err) {
		e.logger.Warn("wallet transaction serialization failure, retrying once")
		err = pgx.BeginTxFunc(ctx, e.pool, opts, fn)
	}
	return err
}

// Credit applies a positive balance change (deposit, win, bonus, etc).
func (e *Engine) Credit(ctx context.Context, req domain.WalletOpRequest) (*domain.WalletOpResult, error) {
	return e.apply(ctx, req, +1)
}

// Debit applies a negative balance change (withdrawal, bet, etc),
// failing with InsufficientFunds if it would take the balance below zero.
func (e *Engine) Debit(ctx context.Context, req domain.WalletOpRequest) (*domain.WalletOpResult, error) {
	return e.apply(ctx, req, -1)
}

func (e *Engine) apply(ctx context.Context, req domain.WalletOpRequest, sign int) (*domain.WalletOpResult, error) {
	if err := domain.ValidatePositiveAmount(req.Amount); err != nil {
		return nil, err
	}

	var result *domain.WalletOpResult
	err := e.runSerializable(ctx, func(tx pgx.Tx) error {
		existing, err := e.transactions.FindByPartnerReference(ctx, tx, req.PartnerID, req.ReferenceID)
		if err != nil {
			return fmt.Errorf("idempotency lookup: %w", err)
		}
		if existing != nil {
			switch existing.Status {
			case domain.TxStatusCompleted:
				result = replayResult(existing)
				return nil
			default:
				return domain.ErrConflict(fmt.Sprintf("reference_id %s already in progress or failed", req.ReferenceID))
			}
		}

		w, err := e.wallets.GetForUpdate(ctx, tx, req.PlayerID, req.PartnerID, req.Currency)
		if err != nil {
			return fmt.Errorf("lock wallet: %w", err)
		}
		if w == nil {
			if sign < 0 {
				return domain.ErrNotFound("wallet", fmt.Sprintf("%s/%s/%s", req.PlayerID, req.PartnerID, req.Currency))
			}
			w = &domain.Wallet{
				ID: uuid.New(), PlayerID: req.PlayerID, PartnerID: req.PartnerID,
				Currency: req.Currency, Balance: domain.ZeroMoney(), Active: true,
				CreatedAt: time.Now(), UpdatedAt: time.Now(),
			}
			if err := e.wallets.Create(ctx, tx, w); err != nil {
				return fmt.Errorf("create wallet: %w", err)
			}
			w, err = e.wallets.GetForUpdate(ctx, tx, req.PlayerID, req.PartnerID, req.Currency)
			if err != nil || w == nil {
				return fmt.Errorf("reload wallet after create: %w", err)
			}
		}
		if !w.Usable() {
			return domain.ErrWalletDisabled()
		}

		signedAmount := req.Amount
		if sign < 0 {
			signedAmount = req.Amount.Neg()
		}
		newBalance := w.Balance.Add(signedAmount)
		if newBalance.IsNegative() {
			return domain.ErrInsufficientFunds()
		}

		txn := &domain.Transaction{
			ID: uuid.New(), ReferenceID: req.ReferenceID, WalletID: w.ID,
			PlayerID: req.PlayerID, PartnerID: req.PartnerID, Type: req.Type,
			Amount: signedAmount, Currency: req.Currency, Status: domain.TxStatusCompleted,
			OriginalBalance: w.Balance, UpdatedBalance: newBalance,
			GameID: req.GameID, GameSessionID: req.GameSessionID, Metadata: req.Metadata,
			CreatedAt: time.Now(),
		}
		if err := e.transactions.Insert(ctx, tx, txn); err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		if err := e.wallets.UpdateBalance(ctx, tx, w.ID, newBalance); err != nil {
			return fmt.Errorf("update wallet balance: %w", err)
		}
		if err := e.outbox.Insert(ctx, tx, domain.NewTransactionCompletedEvent(txn)); err != nil {
			return fmt.Errorf("insert outbox event: %w", err)
		}

		result = &domain.WalletOpResult{
			WalletID: w.ID, Balance: newBalance, Currency: req.Currency, ReferenceID: req.ReferenceID,
			TransactionID: txn.ID, Amount: signedAmount, Type: req.Type,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.cache.InvalidateByTag(ctx, walletTag(result.WalletID), playerBalanceTag(req.PlayerID))
	return result, nil
}

// Rollback reverses a previously completed transaction by inserting a
// reversing entry and marking the original canceled.
func (e *Engine) Rollback(ctx context.Context, req domain.RollbackRequest) (*domain.WalletOpResult, error) {
	var result *domain.WalletOpResult
	err := e.runSerializable(ctx, func(tx pgx.Tx) error {
		existing, err := e.transactions.FindByPartnerReference(ctx, tx, req.PartnerID, req.ReferenceID)
		if err != nil {
			return fmt.Errorf("idempotency lookup: %w", err)
		}
		if existing != nil {
			if existing.Status == domain.TxStatusCompleted {
				result = replayResult(existing)
				return nil
			}
			return domain.ErrConflict(fmt.Sprintf("reference_id %s already in progress or failed", req.ReferenceID))
		}

		original, err := e.transactions.FindByPartnerReference(ctx, tx, req.PartnerID, req.OriginalReferenceID)
		if err != nil {
			return fmt.Errorf("find original transaction: %w", err)
		}
		if original == nil {
			return domain.ErrNotFound("transaction", req.OriginalReferenceID)
		}
		if original.Status != domain.TxStatusCompleted {
			return domain.ErrConflict(fmt.Sprintf("original transaction %s is not in a rollback-eligible state", req.OriginalReferenceID))
		}

		w, err := e.wallets.GetForUpdate(ctx, tx, req.PlayerID, req.PartnerID, original.Currency)
		if err != nil {
			return fmt.Errorf("lock wallet: %w", err)
		}
		if w == nil {
			return domain.ErrNotFound("wallet", fmt.Sprintf("%s/%s/%s", req.PlayerID, req.PartnerID, original.Currency))
		}
		if !w.Usable() {
			return domain.ErrWalletDisabled()
		}

		reversedAmount := original.Amount.Neg()
		newBalance := w.Balance.Add(reversedAmount)
		if newBalance.IsNegative() {
			return domain.ErrInsufficientFunds()
		}

		reversal := &domain.Transaction{
			ID: uuid.New(), ReferenceID: req.ReferenceID, WalletID: w.ID,
			PlayerID: req.PlayerID, PartnerID: req.PartnerID, Type: domain.TxRollback,
			Amount: reversedAmount, Currency: original.Currency, Status: domain.TxStatusCompleted,
			OriginalBalance: w.Balance, UpdatedBalance: newBalance,
			OriginalTransactionID: &original.ID, CreatedAt: time.Now(),
		}
		if err := e.transactions.Insert(ctx, tx, reversal); err != nil {
			return fmt.Errorf("insert reversal transaction: %w", err)
		}
		if err := e.wallets.UpdateBalance(ctx, tx, w.ID, newBalance); err != nil {
			return fmt.Errorf("update wallet balance: %w", err)
		}
		if err := e.transactions.UpdateStatus(ctx, tx, original.ID, domain.TxStatusCanceled); err != nil {
			return fmt.Errorf("cancel original transaction: %w", err)
		}
		if err := e.outbox.Insert(ctx, tx, domain.NewTransactionCompletedEvent(reversal)); err != nil {
			return fmt.Errorf("insert outbox event: %w", err)
		}

		result = &domain.WalletOpResult{
			WalletID: w.ID, Balance: newBalance, Currency: original.Currency, ReferenceID: req.ReferenceID,
			TransactionID: reversal.ID, Amount: reversedAmount, Type: domain.TxRollback,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.cache.InvalidateByTag(ctx, walletTag(result.WalletID), playerBalanceTag(req.PlayerID))
	return result, nil
}

func replayResult(t *domain.Transaction) *domain.WalletOpResult {
	return &domain.WalletOpResult{
		WalletID: t.WalletID, Balance: t.UpdatedBalance, Currency: t.Currency, ReferenceID: t.ReferenceID,
		TransactionID: t.ID, Amount: t.Amount, Type: t.Type, Replayed: true,
	}
}

func walletTag(walletID uuid.UUID) string         { return "wallet:" + walletID.String() }
func playerBalanceTag(playerID uuid.UUID) string   { return "player:" + playerID.String() + ":balance" }
