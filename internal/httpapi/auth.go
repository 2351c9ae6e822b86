package httpapi

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/casinobroker/platform/internal/admission"
	"github.com/casinobroker/platform/internal/domain"
)

type createAPIKeyBody struct {
	Name        string     `json:"name"`
	Permissions []string   `json:"permissions"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

func (s *Server) handleCreateAPIKey(w http.ResponseWriter, r *http.Request) {
	scope := ScopeFromContext(r.Context())

	var body createAPIKeyBody
	if err := DecodeJSON(r, s.cfg.MaxRequestBodyBytes, &body); err != nil {
		RespondError(w, err)
		return
	}
	if body.Name == "" {
		RespondError(w, domain.ErrValidation("name is required"))
		return
	}

	prefix, err := randomHexToken(8)
	if err != nil {
		RespondError(w, domain.ErrInternal("generate api key prefix", err))
		return
	}
	secret, err := randomHexToken(24)
	if err != nil {
		RespondError(w, domain.ErrInternal("generate api key secret", err))
		return
	}
	hash, err := admission.HashSecret(secret)
	if err != nil {
		RespondError(w, domain.ErrInternal("hash api key secret", err))
		return
	}

	key := &domain.ApiKey{
		ID: uuid.New(), PartnerID: scope.PartnerID, KeyPrefix: prefix, SecretHash: hash,
		Name: body.Name, Permissions: body.Permissions, Active: true, ExpiresAt: body.ExpiresAt,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.apiKeys.Create(r.Context(), s.db, key); err != nil {
		RespondError(w, err)
		return
	}

	key.PlaintextSecret = prefix + "." + secret
	RespondJSON(w, http.StatusCreated, key)
}

func (s *Server) handleRevokeAPIKey(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, domain.ErrValidation("invalid api key id"))
		return
	}

	scope := ScopeFromContext(r.Context())
	existing, err := s.apiKeys.FindByID(r.Context(), s.db, id)
	if err != nil {
		RespondError(w, err)
		return
	}
	if existing == nil || existing.PartnerID != scope.PartnerID {
		RespondError(w, domain.ErrNotFound("api_key", id.String()))
		return
	}

	if err := s.apiKeys.Revoke(r.Context(), s.db, id); err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusNoContent, nil)
}

type addIPWhitelistBody struct {
	CIDR string `json:"cidr"`
}

func (s *Server) handleAddIPWhitelist(w http.ResponseWriter, r *http.Request) {
	scope := ScopeFromContext(r.Context())

	var body addIPWhitelistBody
	if err := DecodeJSON(r, s.cfg.MaxRequestBodyBytes, &body); err != nil {
		RespondError(w, err)
		return
	}
	if body.CIDR == "" {
		RespondError(w, domain.ErrValidation("cidr is required"))
		return
	}

	entry := &domain.PartnerIP{
		ID: uuid.New(), PartnerID: scope.PartnerID, CIDR: body.CIDR, CreatedAt: time.Now().UTC(),
	}
	if err := s.partnerIP.Create(r.Context(), s.db, entry); err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, entry)
}

func randomHexToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
