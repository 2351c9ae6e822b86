// Package events bridges the transactional outbox (internal/repository)
// to Kafka: a Publisher polls event_outbox for unpublished rows and
// writes them to per-aggregate topics. The package has no consumer side.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/casinobroker/platform/internal/domain"
	"github.com/casinobroker/platform/internal/repository"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultBatchSize    = 100
)

// Publisher polls the outbox and republishes unpublished rows to Kafka,
// marking them published only after a successful write — an unpublished
// row is republished on the next poll rather than lost.
type Publisher struct {
	pool         *pgxpool.Pool
	outbox       repository.OutboxRepository
	writer       *kafka.Writer
	topicPrefix  string
	pollInterval time.Duration
	batchSize    int
	logger       *zap.Logger
}

// NewPublisher builds a Publisher writing to brokers. pollInterval and
// batchSize default to 2s/100 when non-positive.
func NewPublisher(pool *pgxpool.Pool, outbox repository.OutboxRepository, brokers []string, topicPrefix string, pollInterval time.Duration, batchSize int, logger *zap.Logger) *Publisher {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}
	return &Publisher{
		pool: pool, outbox: outbox, writer: writer, topicPrefix: topicPrefix,
		pollInterval: pollInterval, batchSize: batchSize, logger: logger,
	}
}

// Run polls until ctx is canceled. Call it from its own goroutine.
func (p *Publisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return p.writer.Close()
		case <-ticker.C:
			if err := p.pollOnce(ctx); err != nil {
				p.logger.Error("outbox poll failed", zap.Error(err))
			}
		}
	}
}

func (p *Publisher) pollOnce(ctx context.Context) error {
	entries, err := p.outbox.FetchUnpublished(ctx, p.pool, p.batchSize)
	if err != nil {
		return fmt.Errorf("fetch unpublished: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(entries))
	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		msgs = append(msgs, kafka.Message{
			Topic: p.topicFor(e.AggregateType),
			Key:   []byte(e.PartitionKey),
			Value: e.Payload,
			Headers: []kafka.Header{
				{Key: "event_id", Value: []byte(e.EventID.String())},
				{Key: "event_type", Value: []byte(e.EventType)},
			},
			Time: e.OccurredAt,
		})
		ids = append(ids, e.SeqID)
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write kafka messages: %w", err)
	}
	if err := p.outbox.MarkPublished(ctx, p.pool, ids); err != nil {
		return fmt.Errorf("mark published: %w", err)
	}
	p.logger.Info("published outbox batch", zap.Int("count", len(ids)))
	return nil
}

func (p *Publisher) topicFor(agg domain.AggregateType) string {
	return p.topicPrefix + "." + string(agg)
}
