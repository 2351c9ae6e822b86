package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TransactionType enumerates all ledger entry types.
type TransactionType string

const (
	TxDeposit    TransactionType = "deposit"
	TxWithdrawal TransactionType = "withdrawal"
	TxBet        TransactionType = "bet"
	TxWin        TransactionType = "win"
	TxRefund     TransactionType = "refund"
	TxRollback   TransactionType = "rollback"
	TxAdjustment TransactionType = "adjustment"
	TxBonus      TransactionType = "bonus"
	TxCommission TransactionType = "commission"
)

// TransactionStatus is the ledger entry's lifecycle state.
type TransactionStatus string

const (
	TxStatusPending   TransactionStatus = "pending"
	TxStatusCompleted TransactionStatus = "completed"
	TxStatusFailed    TransactionStatus = "failed"
	TxStatusCanceled  TransactionStatus = "canceled"
)

// Wallet is the (player_id, partner_id, currency) balance account.
//
// Invariant: Balance never goes negative; writes are serialized per wallet
// id via a `SELECT ... FOR UPDATE` row lock.
type Wallet struct {
	ID        uuid.UUID `json:"id"`
	PlayerID  uuid.UUID `json:"player_id"`
	PartnerID uuid.UUID `json:"partner_id"`
	Currency  string    `json:"currency"`
	Balance   Money     `json:"balance"`
	Active    bool      `json:"active"`
	Locked    bool      `json:"locked"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Usable reports whether the wallet currently accepts ledger writes.
func (w *Wallet) Usable() bool {
	return w.Active && !w.Locked
}

// Transaction is an immutable ledger entry.
//
// Invariant: UpdatedBalance = OriginalBalance ± Amount and equals the
// wallet's balance immediately after this transaction commits. Partner +
// ReferenceID is globally unique and serves as the idempotency key.
type Transaction struct {
	ID                    uuid.UUID         `json:"id"`
	ReferenceID           string            `json:"reference_id"`
	WalletID              uuid.UUID         `json:"wallet_id"`
	PlayerID              uuid.UUID         `json:"player_id"`
	PartnerID             uuid.UUID         `json:"partner_id"`
	Type                  TransactionType   `json:"type"`
	Amount                Money             `json:"amount"` // signed
	Currency              string            `json:"currency"`
	Status                TransactionStatus `json:"status"`
	OriginalBalance       Money             `json:"original_balance"`
	UpdatedBalance        Money             `json:"updated_balance"`
	GameID                *uuid.UUID        `json:"game_id,omitempty"`
	GameSessionID         *uuid.UUID        `json:"game_session_id,omitempty"`
	OriginalTransactionID *uuid.UUID        `json:"original_transaction_id,omitempty"`
	Metadata              json.RawMessage   `json:"metadata,omitempty"`
	CreatedAt             time.Time         `json:"created_at"`
}

// WalletOpRequest is the common input shape for credit/debit/rollback.
type WalletOpRequest struct {
	PlayerID      uuid.UUID
	PartnerID     uuid.UUID
	Currency      string
	Amount        Money
	ReferenceID   string
	Type          TransactionType
	GameID        *uuid.UUID
	GameSessionID *uuid.UUID
	Metadata      json.RawMessage
}

// RollbackRequest is the input to the wallet engine's Rollback operation.
type RollbackRequest struct {
	PlayerID            uuid.UUID
	PartnerID            uuid.UUID
	ReferenceID          string // the new, rollback transaction's own reference
	OriginalReferenceID  string
}

// WalletOpResult is returned by credit/debit/rollback.
type WalletOpResult struct {
	WalletID      uuid.UUID
	Balance       Money
	Currency      string
	ReferenceID   string
	TransactionID uuid.UUID
	Amount        Money
	Type          TransactionType
	Replayed      bool
}
