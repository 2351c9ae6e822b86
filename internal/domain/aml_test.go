package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(AlertNew, AlertInvestigating))
	assert.True(t, CanTransition(AlertNew, AlertClosedFalsePos))
	assert.True(t, CanTransition(AlertInvestigating, AlertPendingReport))
	assert.True(t, CanTransition(AlertPendingReport, AlertReported))

	assert.False(t, CanTransition(AlertNew, AlertReported))
	assert.False(t, CanTransition(AlertReported, AlertNew))
	assert.False(t, CanTransition(AlertClosedFalsePos, AlertInvestigating))
}
