package domain

import (
	"time"

	"github.com/google/uuid"
)

// IntegrationType is how the platform talks to a provider for game launch.
type IntegrationType string

const (
	IntegrationDirect     IntegrationType = "direct"
	IntegrationAggregator IntegrationType = "aggregator"
	IntegrationIframe     IntegrationType = "iframe"
)

// ProviderStatus mirrors GameProvider.status.
type ProviderStatus string

const (
	ProviderActive   ProviderStatus = "active"
	ProviderInactive ProviderStatus = "inactive"
)

// GameProvider is a third-party integration.
type GameProvider struct {
	ID                  uuid.UUID       `json:"id"`
	Code                string          `json:"code"`
	IntegrationType     IntegrationType `json:"integration_type"`
	APIEndpoint         string          `json:"api_endpoint"`
	APIKey              string          `json:"-"`
	APISecret           string          `json:"-"`
	Status              ProviderStatus  `json:"status"`
	SupportedCurrencies []string        `json:"supported_currencies"`
	SupportedLanguages  []string        `json:"supported_languages"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// GameStatus mirrors Game.status.
type GameStatus string

const (
	GameActive   GameStatus = "active"
	GameInactive GameStatus = "inactive"
)

// Game is a catalog entry, (provider_id, game_code) unique.
type Game struct {
	ID         uuid.UUID  `json:"id"`
	ProviderID uuid.UUID  `json:"provider_id"`
	GameCode   string     `json:"game_code"`
	Category   string     `json:"category"`
	Status     GameStatus `json:"status"`
	RTP        float64    `json:"rtp"`
	MinBet     Money      `json:"min_bet"`
	MaxBet     Money      `json:"max_bet"`
	Features   []string   `json:"features,omitempty"`
}

// SessionStatus is the GameSession lifecycle state.
type SessionStatus string

const (
	SessionActive  SessionStatus = "active"
	SessionEnded   SessionStatus = "ended"
	SessionExpired SessionStatus = "expired"
	SessionError   SessionStatus = "error"
)

// SessionData carries the launch-time context for a GameSession.
type SessionData struct {
	Currency  string `json:"currency"`
	Language  string `json:"language"`
	ReturnURL string `json:"return_url,omitempty"`
}

// GameSession is a launch record.
//
// Invariant: at most one `active` session per (player_id, game_id),
// enforced by a partial unique index plus a pessimistic lock on the player
// row during creation.
type GameSession struct {
	ID          uuid.UUID     `json:"id"`
	Token       string        `json:"token"`
	PlayerID    uuid.UUID     `json:"player_id"`
	PartnerID   uuid.UUID     `json:"partner_id"`
	GameID      uuid.UUID     `json:"game_id"`
	Status      SessionStatus `json:"status"`
	SessionData SessionData   `json:"session_data"`
	StartedAt   time.Time     `json:"started_at"`
	EndedAt     *time.Time    `json:"ended_at,omitempty"`
}

// GameTransaction is a per-round provider-side ledger entry linked to a
// Transaction (ReferenceID unique).
type GameTransaction struct {
	ID            uuid.UUID         `json:"id"`
	SessionID     uuid.UUID         `json:"session_id"`
	TransactionID *uuid.UUID        `json:"transaction_id,omitempty"`
	ReferenceID   string            `json:"reference_id"`
	RoundID       string            `json:"round_id"`
	Action        CallbackAction    `json:"action"`
	Amount        Money             `json:"amount"`
	Currency      string            `json:"currency"`
	Status        TransactionStatus `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
}

// CallbackAction is the tagged variant dispatched on when processing a
// provider callback: bet, win, or refund each apply a different wallet
// operation.
type CallbackAction string

const (
	ActionBet    CallbackAction = "bet"
	ActionWin    CallbackAction = "win"
	ActionRefund CallbackAction = "refund"
)

// CallbackEnvelope is the parsed, not-yet-authenticated provider callback
// body.
type CallbackEnvelope struct {
	Token               string         `json:"token"`
	Action              CallbackAction `json:"action"`
	RoundID             string         `json:"round_id"`
	ReferenceID         string         `json:"reference_id"`
	Amount              Money          `json:"amount"`
	Currency            string         `json:"currency"`
	Timestamp           int64          `json:"timestamp"`
	Nonce               string         `json:"nonce"`
	GameData            map[string]any `json:"game_data,omitempty"`
	OriginalReferenceID string         `json:"original_reference_id,omitempty"`
}

// LaunchRequest is the input to launching a game session.
type LaunchRequest struct {
	PlayerID  uuid.UUID
	GameID    uuid.UUID
	Currency  string
	Language  string
	ReturnURL string
}

// LaunchResult is returned by launch_game.
type LaunchResult struct {
	LaunchURL string
	Token     string
	ExpiresAt time.Time
}

// CallbackResult is returned by process_callback on success.
type CallbackResult struct {
	Status        string
	Balance       Money
	Currency      string
	TransactionID uuid.UUID
}
