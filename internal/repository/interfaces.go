package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/casinobroker/platform/internal/domain"
)

// PartnerRepository provides access to partners.
type PartnerRepository interface {
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Partner, error)
	FindByShortCode(ctx context.Context, db DBTX, shortCode string) (*domain.Partner, error)
	Create(ctx context.Context, db DBTX, p *domain.Partner) error
	UpdateStatus(ctx context.Context, db DBTX, id uuid.UUID, status domain.PartnerStatus) error
	List(ctx context.Context, db DBTX, filters []Filter, sort *Sort, page Pagination) ([]domain.Partner, error)
}

// ApiKeyRepository provides access to partner API keys.
type ApiKeyRepository interface {
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.ApiKey, error)
	FindByPrefix(ctx context.Context, db DBTX, prefix string) (*domain.ApiKey, error)
	Create(ctx context.Context, db DBTX, k *domain.ApiKey) error
	Revoke(ctx context.Context, db DBTX, id uuid.UUID) error
	TouchLastUsed(ctx context.Context, db DBTX, id uuid.UUID, ip string, at time.Time) error
	ListByPartner(ctx context.Context, db DBTX, partnerID uuid.UUID) ([]domain.ApiKey, error)
}

// PartnerIPRepository provides access to the IP whitelist.
type PartnerIPRepository interface {
	ListByPartner(ctx context.Context, db DBTX, partnerID uuid.UUID) ([]domain.PartnerIP, error)
	Create(ctx context.Context, db DBTX, entry *domain.PartnerIP) error
	Delete(ctx context.Context, db DBTX, id uuid.UUID) error
}

// PlayerRepository provides access to players.
type PlayerRepository interface {
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Player, error)
	FindByExternalRef(ctx context.Context, db DBTX, partnerID uuid.UUID, externalRef string) (*domain.Player, error)
	FindOrCreate(ctx context.Context, db DBTX, partnerID uuid.UUID, externalRef string) (*domain.Player, error)
	UpdateStatus(ctx context.Context, db DBTX, id uuid.UUID, status domain.PlayerStatus) error
}

// WalletRepository provides access to wallets.
type WalletRepository interface {
	FindByTriple(ctx context.Context, db DBTX, playerID, partnerID uuid.UUID, currency string) (*domain.Wallet, error)
	// GetForUpdate locks the wallet row (SELECT ... FOR UPDATE) within tx.
	GetForUpdate(ctx context.Context, tx pgx.Tx, playerID, partnerID uuid.UUID, currency string) (*domain.Wallet, error)
	Create(ctx context.Context, db DBTX, w *domain.Wallet) error
	UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, newBalance domain.Money) error
	// ListByPartner returns every wallet belonging to partnerID, for the
	// wallet_balances report.
	ListByPartner(ctx context.Context, db DBTX, partnerID uuid.UUID) ([]domain.Wallet, error)
}

// TransactionRepository provides access to the ledger.
type TransactionRepository interface {
	FindByPartnerReference(ctx context.Context, db DBTX, partnerID uuid.UUID, referenceID string) (*domain.Transaction, error)
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Transaction, error)
	Insert(ctx context.Context, db DBTX, t *domain.Transaction) error
	UpdateStatus(ctx context.Context, db DBTX, id uuid.UUID, status domain.TransactionStatus) error
	ListByWallet(ctx context.Context, db DBTX, walletID uuid.UUID, sort *Sort, page Pagination) ([]domain.Transaction, error)
	ListMissingAMLRecord(ctx context.Context, db DBTX, since time.Time, limit int) ([]domain.Transaction, error)
	// ListByPlayerSince returns a player's transactions at or after since,
	// newest first, used to build the analysis pipeline's rolling context.
	ListByPlayerSince(ctx context.Context, db DBTX, playerID, partnerID uuid.UUID, since time.Time, limit int) ([]domain.Transaction, error)
	// ListByPartnerSince returns a partner's transactions in [since, until),
	// oldest first, for the transaction_summary and commission_payout reports.
	ListByPartnerSince(ctx context.Context, db DBTX, partnerID uuid.UUID, since, until time.Time, limit int) ([]domain.Transaction, error)
}

// GameProviderRepository provides access to the provider catalog.
type GameProviderRepository interface {
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.GameProvider, error)
	FindByCode(ctx context.Context, db DBTX, code string) (*domain.GameProvider, error)
	List(ctx context.Context, db DBTX, filters []Filter, page Pagination) ([]domain.GameProvider, error)
}

// GameRepository provides access to the game catalog.
type GameRepository interface {
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Game, error)
	FindByProviderAndCode(ctx context.Context, db DBTX, providerID uuid.UUID, gameCode string) (*domain.Game, error)
	List(ctx context.Context, db DBTX, filters []Filter, page Pagination) ([]domain.Game, error)
}

// GameSessionRepository provides access to launch sessions.
type GameSessionRepository interface {
	// GetActiveForPlayerGame locks the player row (FOR NO KEY UPDATE) then
	// selects the active session, serializing concurrent launches.
	GetActiveForPlayerGame(ctx context.Context, tx pgx.Tx, playerID, gameID uuid.UUID) (*domain.GameSession, error)
	FindByToken(ctx context.Context, db DBTX, token string) (*domain.GameSession, error)
	Create(ctx context.Context, tx pgx.Tx, s *domain.GameSession) error
	UpdateStatus(ctx context.Context, db DBTX, id uuid.UUID, status domain.SessionStatus) error
}

// GameTransactionRepository provides access to per-round provider ledger rows.
type GameTransactionRepository interface {
	FindByReferenceID(ctx context.Context, db DBTX, referenceID string) (*domain.GameTransaction, error)
	Insert(ctx context.Context, db DBTX, gt *domain.GameTransaction) error
}

// AMLRiskProfileRepository provides access to rolling risk profiles.
type AMLRiskProfileRepository interface {
	FindByPlayerPartner(ctx context.Context, db DBTX, playerID, partnerID uuid.UUID) (*domain.AMLRiskProfile, error)
	Upsert(ctx context.Context, db DBTX, profile *domain.AMLRiskProfile) error
}

// AMLTransactionRepository provides access to per-transaction analysis records.
type AMLTransactionRepository interface {
	FindByTransactionID(ctx context.Context, db DBTX, transactionID uuid.UUID) (*domain.AMLTransaction, error)
	Insert(ctx context.Context, db DBTX, at *domain.AMLTransaction) error
}

// AMLAlertRepository provides access to alerts.
type AMLAlertRepository interface {
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.AMLAlert, error)
	Insert(ctx context.Context, db DBTX, a *domain.AMLAlert) error
	UpdateStatus(ctx context.Context, db DBTX, id uuid.UUID, status domain.AlertStatus, reviewerNotes string, at time.Time) error
	List(ctx context.Context, db DBTX, filters []Filter, page Pagination) ([]domain.AMLAlert, error)
}

// AMLReportRepository provides access to regulatory filings.
type AMLReportRepository interface {
	Insert(ctx context.Context, db DBTX, r *domain.AMLReport) error
	FindByAlertID(ctx context.Context, db DBTX, alertID uuid.UUID) (*domain.AMLReport, error)
}

// AuditLogRepository provides access to request audit entries.
type AuditLogRepository interface {
	Insert(ctx context.Context, db DBTX, l *domain.AuditLog) error
}

// OutboxRepository provides access to the transactional outbox.
type OutboxRepository interface {
	Insert(ctx context.Context, db DBTX, draft domain.OutboxDraft) error
	FetchUnpublished(ctx context.Context, db DBTX, limit int) ([]domain.OutboxEntry, error)
	MarkPublished(ctx context.Context, db DBTX, ids []int64) error
}

// ReportJobRepository provides access to async report-generation jobs.
type ReportJobRepository interface {
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.ReportJob, error)
	Insert(ctx context.Context, db DBTX, j *domain.ReportJob) error
	UpdateStatus(ctx context.Context, db DBTX, id uuid.UUID, status domain.ReportJobStatus) error
	Complete(ctx context.Context, db DBTX, id uuid.UUID, storagePath string, sizeBytes int64, at time.Time) error
	Fail(ctx context.Context, db DBTX, id uuid.UUID, errMsg string) error
	ListPending(ctx context.Context, db DBTX, limit int) ([]domain.ReportJob, error)
	// ListStaleProcessing returns jobs in "processing" whose created_at is
	// before cutoff, taken to be abandoned by a worker that crashed
	// mid-render. Used by the stale-job sweep to requeue them.
	ListStaleProcessing(ctx context.Context, db DBTX, cutoff time.Time, limit int) ([]domain.ReportJob, error)
	Requeue(ctx context.Context, db DBTX, id uuid.UUID) error
}
