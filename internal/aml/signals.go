package aml

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/casinobroker/platform/internal/config"
	"github.com/casinobroker/platform/internal/domain"
)

// zScoreFloor is the minimum standard deviation used in a z-score
// denominator, so a history with zero variance never divides by zero or
// produces a misleadingly infinite score.
const zScoreFloor = 0.01

var defaultThresholds = map[string]float64{
	"USD": 10000,
	"EUR": 9500,
	"GBP": 8000,
	"KRW": 1.2e7,
	"JPY": 1.3e6,
}

const defaultThreshold = 10000

// thresholdForCurrency resolves the large-transaction boundary, preferring
// a configured override over the built-in defaults.
func thresholdForCurrency(thresholds []config.AMLThreshold, currency string) decimal.Decimal {
	for _, t := range thresholds {
		if t.Currency == currency {
			return decimal.NewFromFloat(t.Threshold)
		}
	}
	if v, ok := defaultThresholds[currency]; ok {
		return decimal.NewFromFloat(v)
	}
	return decimal.NewFromFloat(defaultThreshold)
}

// zScore reports how many standard deviations value sits from the mean of
// sample, flooring the denominator so a zero-variance sample never divides
// by zero.
func zScore(sample []float64, value float64) float64 {
	if len(sample) == 0 {
		return 0
	}
	mean := meanOf(sample)
	stddev := stddevOf(sample, mean)
	if stddev < zScoreFloor {
		stddev = zScoreFloor
	}
	return math.Abs(value-mean) / stddev
}

func meanOf(sample []float64) float64 {
	var sum float64
	for _, v := range sample {
		sum += v
	}
	return sum / float64(len(sample))
}

func stddevOf(sample []float64, mean float64) float64 {
	if len(sample) < 2 {
		return 0
	}
	var sumSq float64
	for _, v := range sample {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(sample)-1))
}

// detectStructuring fires when at least 3 transactions in the past 48h sit
// at 70-99% of the large-transaction threshold.
func detectStructuring(history []domain.Transaction, threshold decimal.Decimal, now time.Time) bool {
	lower := threshold.Mul(decimal.NewFromFloat(0.70))
	upper := threshold.Mul(decimal.NewFromFloat(0.99))
	cutoff := now.Add(-48 * time.Hour)
	count := 0
	for _, t := range history {
		if t.CreatedAt.Before(cutoff) {
			continue
		}
		amt := t.Amount.Abs()
		if amt.GreaterThanOrEqual(lower) && amt.LessThanOrEqual(upper) {
			count++
		}
	}
	return count >= 3
}

// detectRapidMovement fires when withdrawals in the past 24h sum to at
// least 80% of deposits in the same window.
func detectRapidMovement(history []domain.Transaction, now time.Time) bool {
	cutoff := now.Add(-24 * time.Hour)
	deposits := decimal.Zero
	withdrawals := decimal.Zero
	for _, t := range history {
		if t.CreatedAt.Before(cutoff) {
			continue
		}
		switch t.Type {
		case domain.TxDeposit:
			deposits = deposits.Add(t.Amount.Abs())
		case domain.TxWithdrawal:
			withdrawals = withdrawals.Add(t.Amount.Abs())
		}
	}
	if deposits.IsZero() {
		return false
	}
	return withdrawals.GreaterThanOrEqual(deposits.Mul(decimal.NewFromFloat(0.80)))
}

// detectUnusualBetting fires when the current bet is a statistical outlier
// against the player's 30d bet-amount history, or lands on a game that
// historically accounts for under 5% of the player's bets.
func detectUnusualBetting(history []domain.Transaction, gameID *uuid.UUID, amount decimal.Decimal) bool {
	amounts := betAmounts(history)
	if len(amounts) > 0 {
		value, _ := amount.Abs().Float64()
		if zScore(amounts, value) > 2.5 {
			return true
		}
	}
	if gameID == nil {
		return false
	}
	total, gameCount := 0, 0
	for _, t := range history {
		if t.Type != domain.TxBet || t.GameID == nil {
			continue
		}
		total++
		if *t.GameID == *gameID {
			gameCount++
		}
	}
	if total == 0 {
		return false
	}
	share := float64(gameCount) / float64(total)
	return share < 0.05
}

func betAmounts(history []domain.Transaction) []float64 {
	var out []float64
	for _, t := range history {
		if t.Type != domain.TxBet {
			continue
		}
		v, _ := t.Amount.Abs().Float64()
		out = append(out, v)
	}
	return out
}

// patternDeviationSubChecks counts how many of the three sub-checks fire,
// gated on at least 10 historical transactions: out-of-hours activity,
// amount z-score, and a 24h/baseline frequency spike spanning enough
// distinct days to be meaningful.
func patternDeviationSubChecks(history []domain.Transaction, now time.Time, amount decimal.Decimal) int {
	if len(history) < 10 {
		return 0
	}

	fired := 0

	hours := make([]float64, 0, len(history))
	days := make(map[string]struct{})
	for _, t := range history {
		hours = append(hours, float64(t.CreatedAt.UTC().Hour()))
		days[t.CreatedAt.UTC().Format("2006-01-02")] = struct{}{}
	}
	if zScore(hours, float64(now.UTC().Hour())) > 2.5 {
		fired++
	}

	allAmounts := make([]float64, 0, len(history))
	for _, t := range history {
		v, _ := t.Amount.Abs().Float64()
		allAmounts = append(allAmounts, v)
	}
	value, _ := amount.Abs().Float64()
	if zScore(allAmounts, value) > 2.5 {
		fired++
	}

	dayCount := len(days)
	cutoff := now.Add(-24 * time.Hour)
	count24h := 0
	for _, t := range history {
		if !t.CreatedAt.Before(cutoff) {
			count24h++
		}
	}
	if dayCount > 0 {
		baseline := float64(len(history)) / float64(dayCount)
		if baseline > 0 && float64(count24h)/baseline > 3 && dayCount > 3 {
			fired++
		}
	}

	return fired
}
