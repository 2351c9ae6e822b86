// Package repair closes the gap left by the AML pipeline running outside
// the wallet commit: a crash between a completed Transaction and its
// AMLTransaction leaves a ledger entry with no analysis record. This scans
// for exactly that and re-runs analysis for each one found.
package repair

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/casinobroker/platform/internal/aml"
	"github.com/casinobroker/platform/internal/repository"
)

const (
	defaultSchedule = "*/5 * * * *"
	lookbackWindow  = 24 * time.Hour
	batchSize       = 200
)

// Scanner periodically re-runs AML analysis for transactions missing an
// AMLTransaction record.
type Scanner struct {
	engine       *aml.Engine
	transactions repository.TransactionRepository
	pool         repository.DBTX
	logger       *zap.Logger
	cron         *cron.Cron
}

// NewScanner builds a Scanner. pool is the DBTX the transaction repository
// reads through — a *pgxpool.Pool in production.
func NewScanner(engine *aml.Engine, transactions repository.TransactionRepository, pool repository.DBTX, logger *zap.Logger) *Scanner {
	return &Scanner{engine: engine, transactions: transactions, pool: pool, logger: logger}
}

// Start schedules the repair scan (default: every 5 minutes) and returns
// immediately. Call Stop to halt it.
func (s *Scanner) Start(schedule string) error {
	if schedule == "" {
		schedule = defaultSchedule
	}
	s.cron = cron.New()
	_, err := s.cron.AddFunc(schedule, s.runOnce)
	if err != nil {
		return fmt.Errorf("schedule aml repair scan: %w", err)
	}
	s.cron.Start()
	return nil
}

// Stop halts the scheduler, waiting for any in-flight run to finish.
func (s *Scanner) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
}

func (s *Scanner) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	since := time.Now().Add(-lookbackWindow)
	missing, err := s.transactions.ListMissingAMLRecord(ctx, s.pool, since, batchSize)
	if err != nil {
		s.logger.Error("aml repair scan: list missing records failed", zap.Error(err))
		return
	}
	if len(missing) == 0 {
		return
	}

	s.logger.Info("aml repair scan found gaps", zap.Int("count", len(missing)))
	for _, t := range missing {
		if _, err := s.engine.Analyze(ctx, aml.Input{Transaction: t}); err != nil {
			s.logger.Error("aml repair scan: re-analysis failed",
				zap.String("transaction_id", t.ID.String()), zap.Error(err))
		}
	}
}
