package aml

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/casinobroker/platform/internal/config"
	"github.com/casinobroker/platform/internal/domain"
)

func TestThresholdForCurrency(t *testing.T) {
	overrides := []config.AMLThreshold{{Currency: "USD", Threshold: 5000}}

	assert.True(t, thresholdForCurrency(overrides, "USD").Equal(decimal.NewFromFloat(5000)))
	assert.True(t, thresholdForCurrency(overrides, "EUR").Equal(decimal.NewFromFloat(9500)))
	assert.True(t, thresholdForCurrency(overrides, "XYZ").Equal(decimal.NewFromFloat(defaultThreshold)))
}

func TestZScoreZeroVarianceDoesNotDivideByZero(t *testing.T) {
	sample := []float64{100, 100, 100}
	z := zScore(sample, 100)
	assert.Equal(t, 0.0, z)

	z = zScore(sample, 101)
	assert.Greater(t, z, 0.0)
}

func TestDetectStructuring(t *testing.T) {
	now := time.Now()
	threshold := decimal.NewFromInt(10000)

	history := []domain.Transaction{
		{Amount: decimal.NewFromInt(8000), CreatedAt: now.Add(-1 * time.Hour)},
		{Amount: decimal.NewFromInt(8500), CreatedAt: now.Add(-2 * time.Hour)},
		{Amount: decimal.NewFromInt(9000), CreatedAt: now.Add(-3 * time.Hour)},
	}
	assert.True(t, detectStructuring(history, threshold, now))

	tooOld := []domain.Transaction{
		{Amount: decimal.NewFromInt(8000), CreatedAt: now.Add(-72 * time.Hour)},
		{Amount: decimal.NewFromInt(8500), CreatedAt: now.Add(-72 * time.Hour)},
		{Amount: decimal.NewFromInt(9000), CreatedAt: now.Add(-72 * time.Hour)},
	}
	assert.False(t, detectStructuring(tooOld, threshold, now))

	tooFew := history[:2]
	assert.False(t, detectStructuring(tooFew, threshold, now))
}

func TestDetectRapidMovement(t *testing.T) {
	now := time.Now()
	history := []domain.Transaction{
		{Type: domain.TxDeposit, Amount: decimal.NewFromInt(1000), CreatedAt: now.Add(-1 * time.Hour)},
		{Type: domain.TxWithdrawal, Amount: decimal.NewFromInt(900), CreatedAt: now.Add(-2 * time.Hour)},
	}
	assert.True(t, detectRapidMovement(history, now))

	lowWithdrawal := []domain.Transaction{
		{Type: domain.TxDeposit, Amount: decimal.NewFromInt(1000), CreatedAt: now.Add(-1 * time.Hour)},
		{Type: domain.TxWithdrawal, Amount: decimal.NewFromInt(100), CreatedAt: now.Add(-2 * time.Hour)},
	}
	assert.False(t, detectRapidMovement(lowWithdrawal, now))

	noDeposits := []domain.Transaction{
		{Type: domain.TxWithdrawal, Amount: decimal.NewFromInt(900), CreatedAt: now.Add(-2 * time.Hour)},
	}
	assert.False(t, detectRapidMovement(noDeposits, now))
}

func TestDetectUnusualBettingByGameConcentration(t *testing.T) {
	gameA := uuid.New()
	gameB := uuid.New()
	history := make([]domain.Transaction, 0, 100)
	for i := 0; i < 99; i++ {
		history = append(history, domain.Transaction{Type: domain.TxBet, GameID: &gameA, Amount: decimal.NewFromInt(10)})
	}
	history = append(history, domain.Transaction{Type: domain.TxBet, GameID: &gameB, Amount: decimal.NewFromInt(10)})

	assert.True(t, detectUnusualBetting(history, &gameB, decimal.NewFromInt(10)))
	assert.False(t, detectUnusualBetting(history, &gameA, decimal.NewFromInt(10)))
}

func TestDetectUnusualBettingNoGameID(t *testing.T) {
	assert.False(t, detectUnusualBetting(nil, nil, decimal.NewFromInt(10)))
}

func TestPatternDeviationSubChecksRequiresMinimumHistory(t *testing.T) {
	now := time.Now()
	short := []domain.Transaction{{CreatedAt: now}, {CreatedAt: now}}
	assert.Equal(t, 0, patternDeviationSubChecks(short, now, decimal.NewFromInt(10)))
}
