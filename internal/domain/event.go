package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AggregateType names the entity an outbox event is about.
type AggregateType string

const (
	AggregateWallet      AggregateType = "wallet"
	AggregateGameSession AggregateType = "game_session"
	AggregateAMLAlert    AggregateType = "aml_alert"
)

// EventType names the kind of domain event recorded in the outbox.
type EventType string

const (
	EventTransactionCompleted EventType = "transaction.completed"
	EventSessionLaunched      EventType = "session.launched"
	EventAlertRaised          EventType = "alert.raised"
	EventAlertReported        EventType = "alert.reported"
)

// OutboxDraft is a pending event written in the same transaction as the
// business row it describes, so the two can never disagree after a crash.
type OutboxDraft struct {
	EventID      uuid.UUID
	AggregateType AggregateType
	AggregateID  uuid.UUID
	EventType    EventType
	PartitionKey string
	Headers      json.RawMessage
	Payload      json.RawMessage
	OccurredAt   time.Time
}

// OutboxEntry is a draft plus the sequence id assigned on insert, used by
// the poller to mark a batch published.
type OutboxEntry struct {
	OutboxDraft
	SeqID int64
}

// NewTransactionCompletedEvent builds the outbox draft for a completed
// ledger transaction, partitioned by wallet so per-wallet ordering is
// preserved downstream.
func NewTransactionCompletedEvent(t *Transaction) OutboxDraft {
	payload, _ := json.Marshal(t)
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateWallet,
		AggregateID:   t.WalletID,
		EventType:     EventTransactionCompleted,
		PartitionKey:  t.WalletID.String(),
		Payload:       payload,
		OccurredAt:    t.CreatedAt,
	}
}

// NewSessionLaunchedEvent builds the outbox draft for a newly created
// game session.
func NewSessionLaunchedEvent(s *GameSession) OutboxDraft {
	payload, _ := json.Marshal(s)
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateGameSession,
		AggregateID:   s.ID,
		EventType:     EventSessionLaunched,
		PartitionKey:  s.PlayerID.String(),
		Payload:       payload,
		OccurredAt:    s.StartedAt,
	}
}

// NewAlertRaisedEvent builds the outbox draft for a freshly created AML alert.
func NewAlertRaisedEvent(a *AMLAlert) OutboxDraft {
	payload, _ := json.Marshal(a)
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateAMLAlert,
		AggregateID:   a.ID,
		EventType:     EventAlertRaised,
		PartitionKey:  a.PlayerID.String(),
		Payload:       payload,
		OccurredAt:    a.CreatedAt,
	}
}
