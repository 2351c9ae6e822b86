package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRandomTokenLengthAndUniqueness(t *testing.T) {
	a, err := randomToken()
	assert.NoError(t, err)
	assert.Len(t, a, 32)

	b, err := randomToken()
	assert.NoError(t, err)
	assert.NotEqual(t, a, b)
}
