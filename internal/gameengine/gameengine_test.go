package gameengine

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/casinobroker/platform/internal/domain"
)

func TestSignLaunchToken(t *testing.T) {
	secret := "provider-secret"
	token, gameCode, currency, playerID := "tok", "slots-1", "USD", uuid.New().String()

	got := signLaunchToken(secret, token, gameCode, currency, playerID)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(token + "|" + gameCode + "|" + currency + "|" + playerID))
	want := hex.EncodeToString(mac.Sum(nil))

	assert.Equal(t, want, got)

	other := signLaunchToken(secret, token, gameCode, "EUR", playerID)
	assert.NotEqual(t, got, other)
}

func TestIframeLaunchURL(t *testing.T) {
	e := &Engine{iframeHost: "https://play.example.com"}
	game := &domain.Game{GameCode: "slots-1"}
	session := &domain.GameSession{Token: "sess-token"}
	req := domain.LaunchRequest{Currency: "USD", Language: "en", ReturnURL: "https://partner.example.com/return"}

	url := e.iframeLaunchURL(game, session, req)
	assert.Contains(t, url, "https://play.example.com/play?")
	assert.Contains(t, url, "token=sess-token")
	assert.Contains(t, url, "gameCode=slots-1")
	assert.Contains(t, url, "currency=USD")
}
