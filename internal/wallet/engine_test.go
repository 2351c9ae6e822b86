package wallet

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/casinobroker/platform/internal/domain"
)

func TestIsRetryableSerializationFailure(t *testing.T) {
	assert.True(t, isRetryableSerializationFailure(&pgconn.PgError{Code: "40001"}))
	assert.False(t, isRetryableSerializationFailure(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isRetryableSerializationFailure(errors.New("boom")))
	assert.False(t, isRetryableSerializationFailure(nil))
}

func TestReplayResult(t *testing.T) {
	txn := &domain.Transaction{
		ID:             uuid.New(),
		WalletID:       uuid.New(),
		ReferenceID:    "ref-1",
		Currency:       "USD",
		Amount:         decimal.NewFromInt(10),
		UpdatedBalance: decimal.NewFromInt(110),
		Type:           domain.TxDeposit,
		CreatedAt:      time.Now(),
	}

	result := replayResult(txn)
	assert.True(t, result.Replayed)
	assert.Equal(t, txn.WalletID, result.WalletID)
	assert.Equal(t, txn.UpdatedBalance, result.Balance)
	assert.Equal(t, txn.ID, result.TransactionID)
	assert.Equal(t, txn.Type, result.Type)
}

func TestWalletAndPlayerBalanceTags(t *testing.T) {
	walletID := uuid.New()
	playerID := uuid.New()

	assert.Equal(t, "wallet:"+walletID.String(), walletTag(walletID))
	assert.Equal(t, "player:"+playerID.String()+":balance", playerBalanceTag(playerID))
}
