// Command outbox-consumer drains the transactional outbox into Kafka so
// downstream services (settlement reporting, partner webhooks) see wallet
// and game-session events without coupling the request path to a broker.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/casinobroker/platform/internal/config"
	"github.com/casinobroker/platform/internal/db"
	"github.com/casinobroker/platform/internal/events"
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
	if !cfg.KafkaEnabled {
		logger.Info("kafka disabled, outbox consumer has nothing to do")
		<-ctx.Done()
		return nil
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	outbox := repository.NewOutboxRepository()
	brokers := strings.Split(cfg.KafkaBrokers, ",")
	publisher := events.NewPublisher(pool, outbox, brokers, "casino-platform", 0, 0, logger)

	logger.Info("outbox consumer started", zap.Strings("brokers", brokers))
	return publisher.Run(ctx)
}
