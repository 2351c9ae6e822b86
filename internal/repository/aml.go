package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/casinobroker/platform/internal/db"
	"github.com/casinobroker/platform/internal/domain"
)

type amlRiskProfileRepo struct{}

// NewAMLRiskProfileRepository returns a pgx-backed AMLRiskProfileRepository.
func NewAMLRiskProfileRepository() AMLRiskProfileRepository { return &amlRiskProfileRepo{} }

func (r *amlRiskProfileRepo) FindByPlayerPartner(ctx context.Context, conn DBTX, playerID, partnerID uuid.UUID) (*domain.AMLRiskProfile, error) {
	row := conn.QueryRow(ctx, `
		SELECT id, player_id, partner_id, deposit_7d_count, deposit_7d_amount,
			deposit_30d_count, deposit_30d_amount, withdrawal_7d_count, withdrawal_7d_amount,
			withdrawal_30d_count, withdrawal_30d_amount, wager_to_deposit_ratio,
			withdrawal_to_deposit_ratio, overall_risk_score, deposit_risk_score,
			withdrawal_risk_score, gameplay_risk_score, risk_factors, last_assessment_at
		FROM aml_risk_profiles WHERE player_id = $1 AND partner_id = $2`, playerID, partnerID)
	return scanRiskProfile(row)
}

// Upsert writes the profile, updating every rolling-window column on
// conflict — the analysis pipeline always recomputes and writes the full
// row rather than issuing incremental deltas.
func (r *amlRiskProfileRepo) Upsert(ctx context.Context, conn DBTX, p *domain.AMLRiskProfile) error {
	factors, err := json.Marshal(p.RiskFactors)
	if err != nil {
		return fmt.Errorf("marshal risk factors: %w", err)
	}

	_, err = conn.Exec(ctx, `
		INSERT INTO aml_risk_profiles (id, player_id, partner_id, deposit_7d_count,
			deposit_7d_amount, deposit_30d_count, deposit_30d_amount, withdrawal_7d_count,
			withdrawal_7d_amount, withdrawal_30d_count, withdrawal_30d_amount,
			wager_to_deposit_ratio, withdrawal_to_deposit_ratio, overall_risk_score,
			deposit_risk_score, withdrawal_risk_score, gameplay_risk_score, risk_factors,
			last_assessment_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
		ON CONFLICT (player_id, partner_id) DO UPDATE SET
			deposit_7d_count = EXCLUDED.deposit_7d_count,
			deposit_7d_amount = EXCLUDED.deposit_7d_amount,
			deposit_30d_count = EXCLUDED.deposit_30d_count,
			deposit_30d_amount = EXCLUDED.deposit_30d_amount,
			withdrawal_7d_count = EXCLUDED.withdrawal_7d_count,
			withdrawal_7d_amount = EXCLUDED.withdrawal_7d_amount,
			withdrawal_30d_count = EXCLUDED.withdrawal_30d_count,
			withdrawal_30d_amount = EXCLUDED.withdrawal_30d_amount,
			wager_to_deposit_ratio = EXCLUDED.wager_to_deposit_ratio,
			withdrawal_to_deposit_ratio = EXCLUDED.withdrawal_to_deposit_ratio,
			overall_risk_score = EXCLUDED.overall_risk_score,
			deposit_risk_score = EXCLUDED.deposit_risk_score,
			withdrawal_risk_score = EXCLUDED.withdrawal_risk_score,
			gameplay_risk_score = EXCLUDED.gameplay_risk_score,
			risk_factors = EXCLUDED.risk_factors,
			last_assessment_at = EXCLUDED.last_assessment_at`,
		p.ID, p.PlayerID, p.PartnerID, p.Deposit7dCount, db.DecimalToNumeric(p.Deposit7dAmount),
		p.Deposit30dCount, db.DecimalToNumeric(p.Deposit30dAmount), p.Withdrawal7dCount,
		db.DecimalToNumeric(p.Withdrawal7dAmount), p.Withdrawal30dCount,
		db.DecimalToNumeric(p.Withdrawal30dAmount), p.WagerToDepositRatio,
		p.WithdrawalToDepositRatio, p.OverallRiskScore, p.DepositRiskScore,
		p.WithdrawalRiskScore, p.GameplayRiskScore, factors, p.LastAssessmentAt)
	if err != nil {
		return fmt.Errorf("upsert aml risk profile: %w", err)
	}
	return nil
}

func scanRiskProfile(row pgx.Row) (*domain.AMLRiskProfile, error) {
	var p domain.AMLRiskProfile
	var factors []byte
	var dep7, dep30, wd7, wd30 pgtype.Numeric
	err := row.Scan(&p.ID, &p.PlayerID, &p.PartnerID, &p.Deposit7dCount, &dep7,
		&p.Deposit30dCount, &dep30, &p.Withdrawal7dCount, &wd7,
		&p.Withdrawal30dCount, &wd30, &p.WagerToDepositRatio,
		&p.WithdrawalToDepositRatio, &p.OverallRiskScore, &p.DepositRiskScore,
		&p.WithdrawalRiskScore, &p.GameplayRiskScore, &factors, &p.LastAssessmentAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan aml risk profile: %w", err)
	}
	if len(factors) > 0 {
		if err := json.Unmarshal(factors, &p.RiskFactors); err != nil {
			return nil, fmt.Errorf("unmarshal risk factors: %w", err)
		}
	}

	var convErr error
	if p.Deposit7dAmount, convErr = db.NumericToDecimal(dep7); convErr != nil {
		return nil, fmt.Errorf("convert deposit_7d_amount: %w", convErr)
	}
	if p.Deposit30dAmount, convErr = db.NumericToDecimal(dep30); convErr != nil {
		return nil, fmt.Errorf("convert deposit_30d_amount: %w", convErr)
	}
	if p.Withdrawal7dAmount, convErr = db.NumericToDecimal(wd7); convErr != nil {
		return nil, fmt.Errorf("convert withdrawal_7d_amount: %w", convErr)
	}
	if p.Withdrawal30dAmount, convErr = db.NumericToDecimal(wd30); convErr != nil {
		return nil, fmt.Errorf("convert withdrawal_30d_amount: %w", convErr)
	}
	return &p, nil
}

type amlTransactionRepo struct{}

// NewAMLTransactionRepository returns a pgx-backed AMLTransactionRepository.
func NewAMLTransactionRepository() AMLTransactionRepository { return &amlTransactionRepo{} }

func (r *amlTransactionRepo) FindByTransactionID(ctx context.Context, conn DBTX, transactionID uuid.UUID) (*domain.AMLTransaction, error) {
	row := conn.QueryRow(ctx, `
		SELECT id, transaction_id, player_id, partner_id, risk_score, is_large_transaction,
			signals, requires_alert, requires_report, created_at
		FROM aml_transactions WHERE transaction_id = $1`, transactionID)
	return scanAMLTransaction(row)
}

func (r *amlTransactionRepo) Insert(ctx context.Context, conn DBTX, at *domain.AMLTransaction) error {
	_, err := conn.Exec(ctx, `
		INSERT INTO aml_transactions (id, transaction_id, player_id, partner_id, risk_score,
			is_large_transaction, signals, requires_alert, requires_report, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (transaction_id) DO NOTHING`,
		at.ID, at.TransactionID, at.PlayerID, at.PartnerID, at.RiskScore, at.IsLargeTransaction,
		at.Signals, at.RequiresAlert, at.RequiresReport, at.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert aml transaction: %w", err)
	}
	return nil
}

func scanAMLTransaction(row pgx.Row) (*domain.AMLTransaction, error) {
	var t domain.AMLTransaction
	err := row.Scan(&t.ID, &t.TransactionID, &t.PlayerID, &t.PartnerID, &t.RiskScore,
		&t.IsLargeTransaction, &t.Signals, &t.RequiresAlert, &t.RequiresReport, &t.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan aml transaction: %w", err)
	}
	return &t, nil
}

type amlAlertRepo struct{}

// NewAMLAlertRepository returns a pgx-backed AMLAlertRepository.
func NewAMLAlertRepository() AMLAlertRepository { return &amlAlertRepo{} }

func (r *amlAlertRepo) FindByID(ctx context.Context, conn DBTX, id uuid.UUID) (*domain.AMLAlert, error) {
	row := conn.QueryRow(ctx, `
		SELECT id, player_id, partner_id, alert_type, severity, status, risk_score_at_alert,
			related_transaction_ids, reviewer_notes, created_at, reported_at, closed_at
		FROM aml_alerts WHERE id = $1`, id)
	return scanAMLAlert(row)
}

func (r *amlAlertRepo) Insert(ctx context.Context, conn DBTX, a *domain.AMLAlert) error {
	_, err := conn.Exec(ctx, `
		INSERT INTO aml_alerts (id, player_id, partner_id, alert_type, severity, status,
			risk_score_at_alert, related_transaction_ids, reviewer_notes, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		a.ID, a.PlayerID, a.PartnerID, a.AlertType, a.Severity, a.Status,
		a.RiskScoreAtAlert, a.RelatedTxIDs, a.ReviewerNotes, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert aml alert: %w", err)
	}
	return nil
}

// UpdateStatus applies an alert review transition. reported_at and
// closed_at are stamped server-side based on the target status.
func (r *amlAlertRepo) UpdateStatus(ctx context.Context, conn DBTX, id uuid.UUID, status domain.AlertStatus, reviewerNotes string, at time.Time) error {
	var reportedAt, closedAt *time.Time
	switch status {
	case domain.AlertReported:
		reportedAt = &at
	case domain.AlertClosedFalsePos, domain.AlertClosedConfirmed:
		closedAt = &at
	}
	_, err := conn.Exec(ctx, `
		UPDATE aml_alerts SET status = $1, reviewer_notes = $2,
			reported_at = COALESCE($3, reported_at),
			closed_at = COALESCE($4, closed_at)
		WHERE id = $5`, status, reviewerNotes, reportedAt, closedAt, id)
	if err != nil {
		return fmt.Errorf("update aml alert status: %w", err)
	}
	return nil
}

func (r *amlAlertRepo) List(ctx context.Context, conn DBTX, filters []Filter, page Pagination) ([]domain.AMLAlert, error) {
	where, args := WhereClause(filters, 0)
	limit, limitArgs := LimitClause(page, len(args))
	args = append(args, limitArgs...)

	query := fmt.Sprintf(`
		SELECT id, player_id, partner_id, alert_type, severity, status, risk_score_at_alert,
			related_transaction_ids, reviewer_notes, created_at, reported_at, closed_at
		FROM aml_alerts%s ORDER BY created_at DESC%s`, where, limit)

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list aml alerts: %w", err)
	}
	defer rows.Close()

	var out []domain.AMLAlert
	for rows.Next() {
		a, err := scanAMLAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func scanAMLAlert(row pgx.Row) (*domain.AMLAlert, error) {
	var a domain.AMLAlert
	err := row.Scan(&a.ID, &a.PlayerID, &a.PartnerID, &a.AlertType, &a.Severity, &a.Status,
		&a.RiskScoreAtAlert, &a.RelatedTxIDs, &a.ReviewerNotes, &a.CreatedAt, &a.ReportedAt, &a.ClosedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan aml alert: %w", err)
	}
	return &a, nil
}

type amlReportRepo struct{}

// NewAMLReportRepository returns a pgx-backed AMLReportRepository.
func NewAMLReportRepository() AMLReportRepository { return &amlReportRepo{} }

func (r *amlReportRepo) Insert(ctx context.Context, conn DBTX, rep *domain.AMLReport) error {
	_, err := conn.Exec(ctx, `
		INSERT INTO aml_reports (id, alert_id, type, jurisdiction, status, submission_reference, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		rep.ID, rep.AlertID, rep.Type, rep.Jurisdiction, rep.Status, rep.SubmissionReference, rep.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert aml report: %w", err)
	}
	return nil
}

func (r *amlReportRepo) FindByAlertID(ctx context.Context, conn DBTX, alertID uuid.UUID) (*domain.AMLReport, error) {
	row := conn.QueryRow(ctx, `
		SELECT id, alert_id, type, jurisdiction, status, submission_reference, created_at
		FROM aml_reports WHERE alert_id = $1`, alertID)
	var rep domain.AMLReport
	err := row.Scan(&rep.ID, &rep.AlertID, &rep.Type, &rep.Jurisdiction, &rep.Status,
		&rep.SubmissionReference, &rep.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan aml report: %w", err)
	}
	return &rep, nil
}
