package repository

import (
	"context"
	"fmt"

	"github.com/casinobroker/platform/internal/domain"
)

type outboxRepo struct{}

// NewOutboxRepository returns a pgx-backed OutboxRepository.
func NewOutboxRepository() OutboxRepository { return &outboxRepo{} }

// Insert writes an outbox event within the caller's transaction, so a
// ledger write and its event either both land or both roll back.
func (r *outboxRepo) Insert(ctx context.Context, conn DBTX, draft domain.OutboxDraft) error {
	_, err := conn.Exec(ctx, `
		INSERT INTO event_outbox (event_id, aggregate_type, aggregate_id, event_type,
			partition_key, headers, payload, occurred_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		draft.EventID, draft.AggregateType, draft.AggregateID, draft.EventType,
		draft.PartitionKey, draft.Headers, draft.Payload, draft.OccurredAt)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

func (r *outboxRepo) FetchUnpublished(ctx context.Context, conn DBTX, limit int) ([]domain.OutboxEntry, error) {
	rows, err := conn.Query(ctx, `
		SELECT id, event_id, aggregate_type, aggregate_id, event_type, partition_key,
			headers, payload, occurred_at
		FROM event_outbox ORDER BY id ASC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch unpublished events: %w", err)
	}
	defer rows.Close()

	var out []domain.OutboxEntry
	for rows.Next() {
		var e domain.OutboxEntry
		err := rows.Scan(&e.SeqID, &e.EventID, &e.AggregateType, &e.AggregateID, &e.EventType,
			&e.PartitionKey, &e.Headers, &e.Payload, &e.OccurredAt)
		if err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *outboxRepo) MarkPublished(ctx context.Context, conn DBTX, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := conn.Exec(ctx, `DELETE FROM event_outbox WHERE id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("mark outbox events published: %w", err)
	}
	return nil
}
