package admission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
)

func TestSplitAPIKey(t *testing.T) {
	prefix, secret, ok := splitAPIKey("abcd1234.supersecret")
	assert.True(t, ok)
	assert.Equal(t, "abcd1234", prefix)
	assert.Equal(t, "supersecret", secret)

	_, _, ok = splitAPIKey("no-dot-here")
	assert.False(t, ok)

	_, _, ok = splitAPIKey(".secret")
	assert.False(t, ok)

	_, _, ok = splitAPIKey("prefix.")
	assert.False(t, ok)

	_, _, ok = splitAPIKey("")
	assert.False(t, ok)
}

func TestHashSecretRoundTrips(t *testing.T) {
	hash, err := HashSecret("my-plaintext-secret")
	assert.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("my-plaintext-secret")))
	assert.Error(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("wrong-secret")))
}
