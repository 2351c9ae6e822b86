package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApiKeyIsUsable(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	assert.True(t, (&ApiKey{Active: true}).IsUsable(now))
	assert.False(t, (&ApiKey{Active: false}).IsUsable(now))
	assert.True(t, (&ApiKey{Active: true, ExpiresAt: &future}).IsUsable(now))
	assert.False(t, (&ApiKey{Active: true, ExpiresAt: &past}).IsUsable(now))
}

func TestPartnerIsUsable(t *testing.T) {
	assert.True(t, (&Partner{Status: PartnerActive}).IsUsable())
	assert.False(t, (&Partner{Status: PartnerSuspended}).IsUsable())
	assert.False(t, (&Partner{Status: PartnerPending}).IsUsable())
}
