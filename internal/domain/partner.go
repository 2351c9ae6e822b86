package domain

import "time"

import "github.com/google/uuid"

// PartnerType enumerates the kinds of tenant the platform serves.
type PartnerType string

const (
	PartnerOperator        PartnerType = "operator"
	PartnerAggregator       PartnerType = "aggregator"
	PartnerAffiliate        PartnerType = "affiliate"
	PartnerPaymentProvider  PartnerType = "payment_provider"
)

// PartnerStatus is the partner lifecycle state.
type PartnerStatus string

const (
	PartnerPending     PartnerStatus = "pending"
	PartnerActive      PartnerStatus = "active"
	PartnerInactive    PartnerStatus = "inactive"
	PartnerSuspended   PartnerStatus = "suspended"
	PartnerTerminated  PartnerStatus = "terminated"
)

// CommissionUnit distinguishes percentage vs. flat commission rates.
type CommissionUnit string

const (
	CommissionPercent CommissionUnit = "percent"
	CommissionFlat    CommissionUnit = "flat"
)

// Commission is the structured commission model the reporting scheduler
// computes against; free-form text would not serve that purpose.
type Commission struct {
	Model string         `json:"model"` // e.g. "revenue_share", "cpa", "hybrid"
	Rate  Money          `json:"rate"`
	Unit  CommissionUnit `json:"unit"`
}

// PartnerSettings holds per-partner feature toggles consulted by the
// admission pipeline (C) and the AML pipeline (F).
type PartnerSettings struct {
	GlobalIPWhitelistEnabled bool               `json:"global_ip_whitelist_enabled"`
	AMLThresholdOverrides    map[string]Money   `json:"aml_threshold_overrides,omitempty"`
}

// Partner is a tenant operator integrating with the platform.
type Partner struct {
	ID             uuid.UUID       `json:"id"`
	ShortCode      string          `json:"short_code"`
	Type           PartnerType     `json:"type"`
	Status         PartnerStatus   `json:"status"`
	Commission     Commission      `json:"commission"`
	ContactEmail   string          `json:"contact_email"`
	CallbackSecret string          `json:"-"`
	ContractStart  time.Time       `json:"contract_start"`
	ContractEnd    *time.Time      `json:"contract_end,omitempty"`
	Settings       PartnerSettings `json:"settings"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// IsUsable reports whether the partner can currently transact.
func (p *Partner) IsUsable() bool {
	return p.Status == PartnerActive
}

// ApiKey is a credential owned by a Partner.
//
// Invariant: PlaintextSecret is populated only at creation time and is
// never persisted — callers must read it once from the creation response.
type ApiKey struct {
	ID              uuid.UUID  `json:"id"`
	PartnerID       uuid.UUID  `json:"partner_id"`
	KeyPrefix       string     `json:"key_prefix"`
	SecretHash      string     `json:"-"`
	Name            string     `json:"name"`
	Permissions     []string   `json:"permissions"`
	Active          bool       `json:"active"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	LastUsedAt      *time.Time `json:"last_used_at,omitempty"`
	LastUsedIP      string     `json:"last_used_ip,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`

	// PlaintextSecret is set only on the CreateApiKey response path.
	PlaintextSecret string `json:"secret,omitempty"`
}

// IsUsable reports whether the key can currently authenticate a request.
func (k *ApiKey) IsUsable(now time.Time) bool {
	if !k.Active {
		return false
	}
	if k.ExpiresAt != nil && now.After(*k.ExpiresAt) {
		return false
	}
	return true
}

// PartnerIP is a whitelist entry: (partner, ip_or_cidr) unique.
type PartnerIP struct {
	ID        uuid.UUID `json:"id"`
	PartnerID uuid.UUID `json:"partner_id"`
	CIDR      string    `json:"cidr"`
	CreatedAt time.Time `json:"created_at"`
}

// AuditLog is one row per HTTP request crossing the admission pipeline (C).
type AuditLog struct {
	ID             uuid.UUID `json:"id"`
	RequestID      uuid.UUID `json:"request_id"`
	Timestamp      time.Time `json:"timestamp"`
	PartnerID      *uuid.UUID `json:"partner_id,omitempty"`
	ApiKeyID       *uuid.UUID `json:"api_key_id,omitempty"`
	IP             string    `json:"ip"`
	Method         string    `json:"method"`
	Path           string    `json:"path"`
	StatusCode     int       `json:"status_code"`
	LatencyMS      int64     `json:"latency_ms"`
	RequestBody    string    `json:"request_body,omitempty"`
	ResponseBody   string    `json:"response_body,omitempty"`
}
