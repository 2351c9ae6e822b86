package domain

import (
	"time"

	"github.com/google/uuid"
)

// AlertSeverity mirrors AMLAlert.severity.
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// AlertStatus is the AMLAlert review state machine.
type AlertStatus string

const (
	AlertNew             AlertStatus = "new"
	AlertInvestigating   AlertStatus = "investigating"
	AlertPendingReport   AlertStatus = "pending_report"
	AlertReported        AlertStatus = "reported"
	AlertClosedFalsePos  AlertStatus = "closed_false_positive"
	AlertClosedConfirmed AlertStatus = "closed_confirmed"
)

// validAlertTransitions enumerates the allowed AlertStatus state machine
// edges: new → investigating → pending_report → reported, or new →
// closed_* directly from either open state.
var validAlertTransitions = map[AlertStatus][]AlertStatus{
	AlertNew:           {AlertInvestigating, AlertClosedFalsePos, AlertClosedConfirmed},
	AlertInvestigating: {AlertPendingReport, AlertClosedFalsePos, AlertClosedConfirmed},
	AlertPendingReport: {AlertReported, AlertClosedFalsePos},
}

// CanTransition reports whether moving from `from` to `to` is a legal edge.
func CanTransition(from, to AlertStatus) bool {
	for _, allowed := range validAlertTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// AlertType enumerates the AML signal that triggered an alert.
type AlertType string

const (
	AlertTypePEP             AlertType = "pep_match"
	AlertTypeMultiAccount    AlertType = "multi_account"
	AlertTypeStructuring     AlertType = "structuring"
	AlertTypeLargeTxn        AlertType = "large_transaction"
	AlertTypeRapidMovement   AlertType = "rapid_movement"
	AlertTypeUnusualBetting  AlertType = "unusual_betting"
	AlertTypeHighRiskCountry AlertType = "high_risk_country"
	AlertTypePatternDeviation AlertType = "pattern_deviation"
)

// AlertTypePriority is the deterministic tie-break order used when
// multiple signals fire on the same transaction (earlier entries win).
var AlertTypePriority = []AlertType{
	AlertTypePEP,
	AlertTypeMultiAccount,
	AlertTypeStructuring,
	AlertTypeLargeTxn,
	AlertTypeRapidMovement,
	AlertTypeUnusualBetting,
	AlertTypeHighRiskCountry,
	AlertTypePatternDeviation,
}

// RiskFactorStat tracks when a signal first/last fired and how often,
// merged into AMLRiskProfile.RiskFactors.
type RiskFactorStat struct {
	FirstDetected time.Time `json:"first_detected"`
	LastDetected  time.Time `json:"last_detected"`
	Count         int       `json:"count"`
}

// AMLRiskProfile is the rolling per-(player,partner) risk state.
type AMLRiskProfile struct {
	ID                      uuid.UUID                 `json:"id"`
	PlayerID                uuid.UUID                 `json:"player_id"`
	PartnerID               uuid.UUID                 `json:"partner_id"`
	Deposit7dCount          int                       `json:"deposit_7d_count"`
	Deposit7dAmount         Money                     `json:"deposit_7d_amount"`
	Deposit30dCount         int                       `json:"deposit_30d_count"`
	Deposit30dAmount        Money                     `json:"deposit_30d_amount"`
	Withdrawal7dCount       int                       `json:"withdrawal_7d_count"`
	Withdrawal7dAmount      Money                     `json:"withdrawal_7d_amount"`
	Withdrawal30dCount      int                       `json:"withdrawal_30d_count"`
	Withdrawal30dAmount     Money                     `json:"withdrawal_30d_amount"`
	WagerToDepositRatio     float64                   `json:"wager_to_deposit_ratio"`
	WithdrawalToDepositRatio float64                  `json:"withdrawal_to_deposit_ratio"`
	OverallRiskScore        float64                   `json:"overall_risk_score"`
	DepositRiskScore        float64                   `json:"deposit_risk_score"`
	WithdrawalRiskScore     float64                   `json:"withdrawal_risk_score"`
	GameplayRiskScore       float64                   `json:"gameplay_risk_score"`
	RiskFactors             map[string]RiskFactorStat `json:"risk_factors"`
	LastAssessmentAt        time.Time                 `json:"last_assessment_at"`
}

// AMLTransaction records that a transaction has been analyzed; its
// presence makes re-analysis of the same transaction a no-op.
type AMLTransaction struct {
	ID                 uuid.UUID `json:"id"`
	TransactionID       uuid.UUID `json:"transaction_id"`
	PlayerID            uuid.UUID `json:"player_id"`
	PartnerID           uuid.UUID `json:"partner_id"`
	RiskScore           float64   `json:"risk_score"`
	IsLargeTransaction  bool      `json:"is_large_transaction"`
	Signals             []AlertType `json:"signals"`
	RequiresAlert       bool      `json:"requires_alert"`
	RequiresReport      bool      `json:"requires_report"`
	CreatedAt           time.Time `json:"created_at"`
}

// AMLAlert is raised by the analysis pipeline (F).
type AMLAlert struct {
	ID                uuid.UUID     `json:"id"`
	PlayerID          uuid.UUID     `json:"player_id"`
	PartnerID         uuid.UUID     `json:"partner_id"`
	AlertType         AlertType     `json:"alert_type"`
	Severity          AlertSeverity `json:"severity"`
	Status            AlertStatus   `json:"status"`
	RiskScoreAtAlert  float64       `json:"risk_score_at_alert"`
	RelatedTxIDs      []uuid.UUID   `json:"related_transaction_ids"`
	ReviewerNotes     string        `json:"reviewer_notes,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	ReportedAt        *time.Time    `json:"reported_at,omitempty"`
	ClosedAt          *time.Time    `json:"closed_at,omitempty"`
}

// ReportType enumerates regulatory filing kinds.
type ReportType string

const (
	ReportSAR ReportType = "SAR"
	ReportCTR ReportType = "CTR"
	ReportSTR ReportType = "STR"
)

// AMLReportStatus is the regulatory report lifecycle.
type AMLReportStatus string

const (
	AMLReportDraft     AMLReportStatus = "draft"
	AMLReportSubmitted AMLReportStatus = "submitted"
	AMLReportAccepted  AMLReportStatus = "accepted"
	AMLReportRejected  AMLReportStatus = "rejected"
)

// AMLReport is a draft/filed regulatory output linked to an alert.
type AMLReport struct {
	ID                 uuid.UUID       `json:"id"`
	AlertID            *uuid.UUID      `json:"alert_id,omitempty"`
	Type                ReportType      `json:"type"`
	Jurisdiction        string          `json:"jurisdiction"`
	Status              AMLReportStatus `json:"status"`
	SubmissionReference string          `json:"submission_reference,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
}

// AnalysisResult is the composite output of scoring a single transaction.
type AnalysisResult struct {
	RiskScore          float64
	Signals            []AlertType
	IsLargeTransaction bool
	AlertType          AlertType
	Severity           AlertSeverity
	RequiresAlert      bool
	RequiresReport     bool
}
