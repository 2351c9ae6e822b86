package aml

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp100(t *testing.T) {
	assert.Equal(t, 100.0, clamp100(150))
	assert.Equal(t, 0.0, clamp100(-10))
	assert.Equal(t, 42.0, clamp100(42))
}

func TestEmaBlendsOldAndNew(t *testing.T) {
	assert.InDelta(t, 70.0, ema(100, 0), 0.0001)
	assert.InDelta(t, 30.0, ema(0, 100), 0.0001)
	assert.InDelta(t, 55.0, ema(50, 60), 0.0001)
}
