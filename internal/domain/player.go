package domain

import (
	"time"

	"github.com/google/uuid"
)

// PlayerStatus mirrors Player.status.
type PlayerStatus string

const (
	PlayerActive    PlayerStatus = "active"
	PlayerSuspended PlayerStatus = "suspended"
	PlayerClosed    PlayerStatus = "closed"
)

// Player is a partner's end customer, identified to the platform by the
// partner's own player_id. The platform never stores player PII beyond
// this reference id; everything else lives with the partner.
type Player struct {
	ID          uuid.UUID    `json:"id"`
	PartnerID   uuid.UUID    `json:"partner_id"`
	ExternalRef string       `json:"external_ref"`
	Status      PlayerStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
}
