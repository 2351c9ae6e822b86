// Command api runs the partner-facing HTTP surface: admission pipeline,
// wallet ledger, game session/callback engine, AML dispatch, and the
// reporting scheduler all behind one process.
//
// The top-level run(logger) shape generalizes from a single ledger engine
// to the full component set this platform wires together.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/casinobroker/platform/internal/admission"
	"github.com/casinobroker/platform/internal/aml"
	"github.com/casinobroker/platform/internal/cache"
	"github.com/casinobroker/platform/internal/config"
	"github.com/casinobroker/platform/internal/db"
	"github.com/casinobroker/platform/internal/gameengine"
	"github.com/casinobroker/platform/internal/httpapi"
	"github.com/casinobroker/platform/internal/reporting"
	"github.com/casinobroker/platform/internal/repository"
	"github.com/casinobroker/platform/internal/wallet"
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
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if err := db.RunMigrations(cfg.DSN(), logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: redisAddr(cfg.RedisURL)})
	defer redisClient.Close()
	c := cache.New(redisClient, 10_000, logger)

	partners := repository.NewPartnerRepository()
	apiKeys := repository.NewApiKeyRepository()
	partnerIPs := repository.NewPartnerIPRepository()
	players := repository.NewPlayerRepository()
	wallets := repository.NewWalletRepository()
	txns := repository.NewTransactionRepository()
	games := repository.NewGameRepository()
	providers := repository.NewGameProviderRepository()
	sessions := repository.NewGameSessionRepository()
	gameTxns := repository.NewGameTransactionRepository()
	outbox := repository.NewOutboxRepository()
	auditLogs := repository.NewAuditLogRepository()
	riskProfiles := repository.NewAMLRiskProfileRepository()
	amlTxns := repository.NewAMLTransactionRepository()
	amlAlerts := repository.NewAMLAlertRepository()
	amlReports := repository.NewAMLReportRepository()
	reportJobs := repository.NewReportJobRepository()

	amlEngine := aml.NewEngine(pool, riskProfiles, amlTxns, amlAlerts, amlReports, txns, players,
		outbox, aml.NewInMemoryListProvider(), cfg.File.AMLThresholds, "US", logger)
	amlQueue := aml.NewDispatcher(amlEngine, 1024, 4, logger)
	amlQueue.Start(ctx)
	defer amlQueue.Stop()

	walletEngine := wallet.NewEngine(pool, wallets, txns, outbox, c, logger)
	gameEngine := gameengine.NewEngine(pool, partners, games, providers, sessions, gameTxns,
		wallets, walletEngine, outbox, amlQueue, c, logger)

	reportStorage := reporting.NewLocalStorage(cfg.ReportStoragePath)
	renderers := reporting.NewQueryRenderer(pool, txns, wallets, amlAlerts).Renderers()
	scheduler := reporting.NewScheduler(pool, reportJobs, c, reportStorage, renderers, nil,
		cfg.ReportWorkerCount, cfg.ReportQueueSize, logger)

	lockout := admission.NewLockout(c, logger, 10, 15*time.Minute)
	authenticator := admission.NewAuthenticator(pool, apiKeys, c, lockout, logger)
	whitelist := admission.NewIPWhitelist(partnerIPs)
	rateLimiter := admission.NewRateLimiter(c, admission.BuildRateLimitRules(cfg.File.RateLimitRules, logger),
		120, time.Minute, logger)
	auditLogger := admission.NewAuditLogger(pool, auditLogs, cfg.File.SensitiveFieldNames, logger)
	pipeline := admission.NewPipeline(pool, authenticator, whitelist, rateLimiter, auditLogger,
		partners, apiKeys, cfg.File.ExemptPaths, logger)

	server := httpapi.NewServer(httpapi.Deps{
		Config: cfg, DB: pool,
		Pipeline: pipeline, Audit: auditLogger,
		Partners: partners, ApiKeys: apiKeys, PartnerIP: partnerIPs, Players: players,
		Wallets: wallets, Txns: txns, Games: games, Providers: providers, Sessions: sessions,
		Alerts: amlAlerts, ReportJobs: reportJobs,
		WalletEngine: walletEngine, GameEngine: gameEngine, AMLQueue: amlQueue,
		Scheduler: scheduler, ReportStorage: reportStorage,
		Logger: logger,
	})
	router := httpapi.NewRouter(server)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.APIPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return scheduler.Start(gctx) })
	g.Go(func() error {
		logger.Info("api server listening", zap.Int("port", cfg.APIPort))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	<-gctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}

	return g.Wait()
}

func redisAddr(url string) string {
	const prefix = "redis://"
	if len(url) > len(prefix) && url[:len(prefix)] == prefix {
		return url[len(prefix):]
	}
	return url
}
