package aml

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/casinobroker/platform/internal/domain"
)

func TestDetermineSeverity(t *testing.T) {
	assert.Equal(t, domain.SeverityCritical, determineSeverity(90, nil, false))
	assert.Equal(t, domain.SeverityCritical, determineSeverity(50, map[domain.AlertType]float64{domain.AlertTypePEP: 35}, false))
	assert.Equal(t, domain.SeverityHigh, determineSeverity(70, nil, false))
	assert.Equal(t, domain.SeverityHigh, determineSeverity(60, nil, true))
	assert.Equal(t, domain.SeverityMedium, determineSeverity(60, nil, false))
	assert.Equal(t, domain.SeverityMedium, determineSeverity(40, nil, false))
	assert.Equal(t, domain.SeverityLow, determineSeverity(10, nil, false))
}
