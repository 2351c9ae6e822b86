package httpapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitPermission(t *testing.T) {
	resource, action := splitPermission("wallet:deposit")
	assert.Equal(t, "wallet", resource)
	assert.Equal(t, "deposit", action)

	resource, action = splitPermission("games")
	assert.Equal(t, "games", resource)
	assert.Equal(t, "*", action)

	resource, action = splitPermission("games:*")
	assert.Equal(t, "games", resource)
	assert.Equal(t, "*", action)
}
