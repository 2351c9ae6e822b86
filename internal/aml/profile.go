package aml

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/casinobroker/platform/internal/domain"
)

// emaOldWeight/emaNewWeight blend the profile's running risk score with the
// score from this analysis: 0.7 old / 0.3 new.
const (
	emaOldWeight = 0.7
	emaNewWeight = 0.3
)

// updateProfile folds txn plus its signal scores into profile in place:
// recomputed 7d/30d rolling windows, wager/withdrawal ratios, an EMA'd risk
// score per category, and merged risk-factor stats.
func updateProfile(profile *domain.AMLRiskProfile, history []domain.Transaction, txn domain.Transaction, now time.Time, signalScores map[domain.AlertType]float64) {
	combined := append(append([]domain.Transaction{}, history...), txn)

	dep7, dep7n, dep30, dep30n := decimal.Zero, 0, decimal.Zero, 0
	wd7, wd7n, wd30, wd30n := decimal.Zero, 0, decimal.Zero, 0
	wager30 := decimal.Zero

	cutoff7 := now.Add(-7 * 24 * time.Hour)
	cutoff30 := now.Add(-30 * 24 * time.Hour)

	for _, t := range combined {
		if t.CreatedAt.Before(cutoff30) {
			continue
		}
		amt := t.Amount.Abs()
		switch t.Type {
		case domain.TxDeposit:
			dep30 = dep30.Add(amt)
			dep30n++
			if !t.CreatedAt.Before(cutoff7) {
				dep7 = dep7.Add(amt)
				dep7n++
			}
		case domain.TxWithdrawal:
			wd30 = wd30.Add(amt)
			wd30n++
			if !t.CreatedAt.Before(cutoff7) {
				wd7 = wd7.Add(amt)
				wd7n++
			}
		case domain.TxBet:
			wager30 = wager30.Add(amt)
		}
	}

	profile.Deposit7dCount = dep7n
	profile.Deposit7dAmount = dep7
	profile.Deposit30dCount = dep30n
	profile.Deposit30dAmount = dep30
	profile.Withdrawal7dCount = wd7n
	profile.Withdrawal7dAmount = wd7
	profile.Withdrawal30dCount = wd30n
	profile.Withdrawal30dAmount = wd30

	if !dep30.IsZero() {
		wagerRatio, _ := wager30.Div(dep30).Float64()
		profile.WagerToDepositRatio = wagerRatio
		wdRatio, _ := wd30.Div(dep30).Float64()
		profile.WithdrawalToDepositRatio = wdRatio
	}

	depositScore := signalScores[domain.AlertTypeLargeTxn] + signalScores[domain.AlertTypeStructuring]
	withdrawalScore := signalScores[domain.AlertTypeRapidMovement]
	gameplayScore := signalScores[domain.AlertTypeUnusualBetting] + signalScores[domain.AlertTypePatternDeviation]
	var total float64
	for _, s := range signalScores {
		total += s
	}
	if total > 100 {
		total = 100
	}

	profile.DepositRiskScore = ema(profile.DepositRiskScore, clamp100(depositScore))
	profile.WithdrawalRiskScore = ema(profile.WithdrawalRiskScore, clamp100(withdrawalScore))
	profile.GameplayRiskScore = ema(profile.GameplayRiskScore, clamp100(gameplayScore))
	profile.OverallRiskScore = ema(profile.OverallRiskScore, total)

	if profile.RiskFactors == nil {
		profile.RiskFactors = make(map[string]domain.RiskFactorStat)
	}
	for alertType := range signalScores {
		key := string(alertType)
		stat, ok := profile.RiskFactors[key]
		if !ok {
			stat.FirstDetected = now
		}
		stat.LastDetected = now
		stat.Count++
		profile.RiskFactors[key] = stat
	}

	profile.LastAssessmentAt = now
}

func ema(old, new float64) float64 {
	return old*emaOldWeight + new*emaNewWeight
}

func clamp100(v float64) float64 {
	if v > 100 {
		return 100
	}
	if v < 0 {
		return 0
	}
	return v
}
