// Package aml implements the per-transaction anti-money-laundering
// scoring pipeline: signal computation over a player's rolling history,
// composite scoring, alert/report generation, and risk-profile
// maintenance.
//
// Grounded on the wallet engine's shape (internal/wallet) for the
// pgxpool + repository wiring, generalized from ledger writes to a
// read-mostly, best-effort analysis hook that never blocks or fails the
// transaction it scores.
package aml

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/casinobroker/platform/internal/config"
	"github.com/casinobroker/platform/internal/domain"
	"github.com/casinobroker/platform/internal/repository"
)

const historyWindow = 30 * 24 * time.Hour

// highPriorityFactors gates the severity rule "≥60 ∧ any high priority
// factor → high": the top three entries of the alert-type priority order.
var highPriorityFactors = map[domain.AlertType]struct{}{
	domain.AlertTypePEP:          {},
	domain.AlertTypeMultiAccount: {},
	domain.AlertTypeStructuring:  {},
}

// compositeBonus is one documented high-risk pairing; both signals firing
// adds Bonus on top of their individual scores.
type compositeBonus struct {
	A, B  domain.AlertType
	Bonus float64
}

var compositeBonuses = []compositeBonus{
	{A: domain.AlertTypePEP, B: domain.AlertTypeStructuring, Bonus: 30},
}

// Engine runs the analysis pipeline.
type Engine struct {
	pool         *pgxpool.Pool
	profiles     repository.AMLRiskProfileRepository
	amlTx        repository.AMLTransactionRepository
	alerts       repository.AMLAlertRepository
	reports      repository.AMLReportRepository
	transactions repository.TransactionRepository
	players      repository.PlayerRepository
	outbox       repository.OutboxRepository
	lists        StaticListProvider
	thresholds   []config.AMLThreshold
	jurisdiction string
	logger       *zap.Logger
}

// NewEngine builds an analysis Engine.
func NewEngine(
	pool *pgxpool.Pool,
	profiles repository.AMLRiskProfileRepository,
	amlTx repository.AMLTransactionRepository,
	alerts repository.AMLAlertRepository,
	reports repository.AMLReportRepository,
	transactions repository.TransactionRepository,
	players repository.PlayerRepository,
	outbox repository.OutboxRepository,
	lists StaticListProvider,
	thresholds []config.AMLThreshold,
	jurisdiction string,
	logger *zap.Logger,
) *Engine {
	if jurisdiction == "" {
		jurisdiction = "US"
	}
	return &Engine{
		pool: pool, profiles: profiles, amlTx: amlTx, alerts: alerts, reports: reports,
		transactions: transactions, players: players, outbox: outbox, lists: lists,
		thresholds: thresholds, jurisdiction: jurisdiction, logger: logger,
	}
}

// Input carries the context Analyze needs beyond the transaction itself.
type Input struct {
	Transaction domain.Transaction
	// CountryCode is the ISO-3166 alpha-2 country associated with this
	// request, when known to the caller; empty skips the high-risk-country
	// signal entirely rather than treating unknown as safe or risky.
	CountryCode string
}

// Analyze runs the full scoring pipeline for in.Transaction, persisting an
// AMLTransaction (and, as warranted, an AMLAlert and draft AMLReport) and
// updating the player's rolling risk profile. It is idempotent: a second
// call for the same transaction id returns the existing result unchanged.
func (e *Engine) Analyze(ctx context.Context, in Input) (*domain.AnalysisResult, error) {
	txn := in.Transaction

	existing, err := e.amlTx.FindByTransactionID(ctx, e.pool, txn.ID)
	if err != nil {
		return nil, fmt.Errorf("lookup existing aml transaction: %w", err)
	}
	if existing != nil {
		return &domain.AnalysisResult{
			RiskScore:          existing.RiskScore,
			Signals:            existing.Signals,
			IsLargeTransaction: existing.IsLargeTransaction,
			RequiresAlert:      existing.RequiresAlert,
			RequiresReport:     existing.RequiresReport,
		}, nil
	}

	player, err := e.players.FindByID(ctx, e.pool, txn.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("load player: %w", err)
	}
	if player == nil {
		return nil, domain.ErrNotFound("player", txn.PlayerID.String())
	}

	profile, err := e.profiles.FindByPlayerPartner(ctx, e.pool, txn.PlayerID, txn.PartnerID)
	if err != nil {
		return nil, fmt.Errorf("load risk profile: %w", err)
	}
	if profile == nil {
		profile = &domain.AMLRiskProfile{
			ID:        uuid.New(),
			PlayerID:  txn.PlayerID,
			PartnerID: txn.PartnerID,
		}
	}

	now := txn.CreatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}
	history, err := e.transactions.ListByPlayerSince(ctx, e.pool, txn.PlayerID, txn.PartnerID, now.Add(-historyWindow), 1000)
	if err != nil {
		return nil, fmt.Errorf("load transaction history: %w", err)
	}

	threshold := thresholdForCurrency(e.thresholds, txn.Currency)
	isLarge := txn.Amount.Abs().GreaterThanOrEqual(threshold)

	scores := make(map[domain.AlertType]float64)
	if isLarge {
		scores[domain.AlertTypeLargeTxn] = 40
	}
	if detectStructuring(history, threshold, now) {
		scores[domain.AlertTypeStructuring] = 30
	}
	if detectRapidMovement(history, now) {
		scores[domain.AlertTypeRapidMovement] = 20
	}
	if detectUnusualBetting(history, txn.GameID, txn.Amount) {
		scores[domain.AlertTypeUnusualBetting] = 15
	}
	if fired := patternDeviationSubChecks(history, now, txn.Amount); fired > 0 {
		scores[domain.AlertTypePatternDeviation] = 5 * float64(fired)
	}
	if in.CountryCode != "" && e.lists.IsHighRiskCountry(in.CountryCode) {
		scores[domain.AlertTypeHighRiskCountry] = 25
	}
	if e.lists.IsPEPMatch(player.ID, player.ExternalRef) {
		scores[domain.AlertTypePEP] = 35
	}
	if e.lists.IsMultiAccountFlagged(player.ID, player.ExternalRef) {
		scores[domain.AlertTypeMultiAccount] = 30
	}

	total := 0.0
	for _, s := range scores {
		total += s
	}
	for _, cb := range compositeBonuses {
		if _, ok := scores[cb.A]; !ok {
			continue
		}
		if _, ok := scores[cb.B]; !ok {
			continue
		}
		total += cb.Bonus
	}
	total = clamp100(total)

	signals := make([]domain.AlertType, 0, len(scores))
	var alertType domain.AlertType
	anyHighPriority := false
	for _, candidate := range domain.AlertTypePriority {
		if _, fired := scores[candidate]; !fired {
			continue
		}
		signals = append(signals, candidate)
		if alertType == "" {
			alertType = candidate
		}
		if _, ok := highPriorityFactors[candidate]; ok {
			anyHighPriority = true
		}
	}

	severity := determineSeverity(total, scores, anyHighPriority)
	requiresAlert := total >= 40
	requiresReport := isLarge || total >= 75

	amlTxn := &domain.AMLTransaction{
		ID:                 uuid.New(),
		TransactionID:      txn.ID,
		PlayerID:           txn.PlayerID,
		PartnerID:          txn.PartnerID,
		RiskScore:          total,
		IsLargeTransaction: isLarge,
		Signals:            signals,
		RequiresAlert:      requiresAlert,
		RequiresReport:     requiresReport,
		CreatedAt:          now,
	}
	if err := e.amlTx.Insert(ctx, e.pool, amlTxn); err != nil {
		return nil, fmt.Errorf("insert aml transaction: %w", err)
	}

	var alert *domain.AMLAlert
	if requiresAlert {
		alert = &domain.AMLAlert{
			ID:               uuid.New(),
			PlayerID:         txn.PlayerID,
			PartnerID:        txn.PartnerID,
			AlertType:        alertType,
			Severity:         severity,
			Status:           domain.AlertNew,
			RiskScoreAtAlert: total,
			RelatedTxIDs:     []uuid.UUID{txn.ID},
			CreatedAt:        now,
		}
		if err := e.alerts.Insert(ctx, e.pool, alert); err != nil {
			return nil, fmt.Errorf("insert aml alert: %w", err)
		}
		if err := e.outbox.Insert(ctx, e.pool, domain.NewAlertRaisedEvent(alert)); err != nil {
			e.logger.Error("publish alert.raised event failed", zap.Error(err))
		}
	}

	if requiresReport {
		report := &domain.AMLReport{
			ID:           uuid.New(),
			Type:         domain.ReportSAR,
			Jurisdiction: e.jurisdiction,
			Status:       domain.AMLReportDraft,
			CreatedAt:    now,
		}
		if alert != nil {
			report.AlertID = &alert.ID
		}
		if err := e.reports.Insert(ctx, e.pool, report); err != nil {
			return nil, fmt.Errorf("insert aml report: %w", err)
		}
	}

	updateProfile(profile, history, txn, now, scores)
	if err := e.profiles.Upsert(ctx, e.pool, profile); err != nil {
		e.logger.Error("upsert risk profile failed", zap.Error(err))
	}

	return &domain.AnalysisResult{
		RiskScore:          total,
		Signals:            signals,
		IsLargeTransaction: isLarge,
		AlertType:          alertType,
		Severity:           severity,
		RequiresAlert:      requiresAlert,
		RequiresReport:     requiresReport,
	}, nil
}

// determineSeverity applies the threshold ladder: pep_match or score>=85
// is always critical regardless of where else it falls on the ladder.
func determineSeverity(score float64, scores map[domain.AlertType]float64, anyHighPriority bool) domain.AlertSeverity {
	_, pep := scores[domain.AlertTypePEP]
	switch {
	case score >= 85 || pep:
		return domain.SeverityCritical
	case score >= 70:
		return domain.SeverityHigh
	case score >= 60 && anyHighPriority:
		return domain.SeverityHigh
	case score >= 40:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}
