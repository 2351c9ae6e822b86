package httpapi

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/casinobroker/platform/internal/domain"
)

// downloadLinkTTL bounds how long a signed report download link stays
// valid; short enough that a leaked link is a narrow exposure window.
const downloadLinkTTL = 15 * time.Minute

// reportDownloadClaims binds a signed link to one report job and the
// partner that scheduled it, so a token can't be replayed against a
// different partner's report even if guessed.
type reportDownloadClaims struct {
	jwt.RegisteredClaims
	PartnerID uuid.UUID `json:"partner_id"`
	JobID     uuid.UUID `json:"job_id"`
}

// signDownloadToken issues an HS256 token scoping a download to jobID,
// valid for downloadLinkTTL.
func signDownloadToken(secret string, partnerID, jobID uuid.UUID) (string, time.Time, error) {
	expiresAt := time.Now().Add(downloadLinkTTL)
	claims := reportDownloadClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   jobID.String(),
		},
		PartnerID: partnerID,
		JobID:     jobID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign download token: %w", err)
	}
	return signed, expiresAt, nil
}

// parseDownloadToken validates signature and expiry and returns the bound
// partner and job ids.
func parseDownloadToken(secret, raw string) (partnerID, jobID uuid.UUID, err error) {
	var claims reportDownloadClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return uuid.Nil, uuid.Nil, domain.ErrUnauthorized("invalid or expired download token")
	}
	if !token.Valid {
		return uuid.Nil, uuid.Nil, domain.ErrUnauthorized("invalid download token")
	}
	return claims.PartnerID, claims.JobID, nil
}
