// Command aml-repair runs the AML repair scan as its own process: it finds
// transactions that committed without a matching AMLTransaction record
// (the dispatcher queue was full, or the process crashed between the two
// writes) and re-runs analysis for them. Kept separate from the API
// process so a backlog of repair work never competes with request-path
// resources.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/casinobroker/platform/internal/aml"
	"github.com/casinobroker/platform/internal/aml/repair"
	"github.com/casinobroker/platform/internal/config"
	"github.com/casinobroker/platform/internal/db"
	"github.com/casinobroker/platform/internal/repository"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "build logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Error("fatal", zap.Error(err))
		os.Exit(1)
	}
}

func run(logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	riskProfiles := repository.NewAMLRiskProfileRepository()
	amlTxns := repository.NewAMLTransactionRepository()
	amlAlerts := repository.NewAMLAlertRepository()
	amlReports := repository.NewAMLReportRepository()
	txns := repository.NewTransactionRepository()
	players := repository.NewPlayerRepository()
	outbox := repository.NewOutboxRepository()

	amlEngine := aml.NewEngine(pool, riskProfiles, amlTxns, amlAlerts, amlReports, txns, players,
		outbox, aml.NewInMemoryListProvider(), cfg.File.AMLThresholds, "US", logger)

	scanner := repair.NewScanner(amlEngine, txns, pool, logger)
	if err := scanner.Start(""); err != nil {
		return fmt.Errorf("start aml repair scan: %w", err)
	}
	defer scanner.Stop()

	logger.Info("aml repair scan started")
	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}
