package gameengine

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifyCallbackSignature(t *testing.T) {
	secret := "shared-secret"
	body := []byte(`{"token":"abc","action":"bet"}`)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	valid := hex.EncodeToString(mac.Sum(nil))

	assert.True(t, verifyCallbackSignature(secret, body, valid))
	assert.False(t, verifyCallbackSignature(secret, body, "deadbeef"))
	assert.False(t, verifyCallbackSignature("wrong-secret", body, valid))
	assert.False(t, verifyCallbackSignature(secret, []byte("tampered body"), valid))
}

func TestGenerateHexTokenLengthAndUniqueness(t *testing.T) {
	a, err := generateHexToken(32)
	assert.NoError(t, err)
	assert.Len(t, a, 64)

	b, err := generateHexToken(32)
	assert.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestAbs(t *testing.T) {
	assert.Equal(t, int64(5), abs(5))
	assert.Equal(t, int64(5), abs(-5))
	assert.Equal(t, int64(0), abs(0))
}
