package domain

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidateCurrency(t *testing.T) {
	cases := []struct {
		in      string
		wantErr bool
	}{
		{"USD", false},
		{"usd", true},
		{"US", true},
		{"USDT", true},
		{"", true},
	}
	for _, c := range cases {
		err := ValidateCurrency(c.in)
		if c.wantErr {
			assert.Error(t, err)
		} else {
			assert.NoError(t, err)
		}
	}
}

func TestValidatePositiveAmount(t *testing.T) {
	assert.NoError(t, ValidatePositiveAmount(decimal.NewFromInt(1)))
	assert.Error(t, ValidatePositiveAmount(decimal.Zero))
	assert.Error(t, ValidatePositiveAmount(decimal.NewFromInt(-1)))
}

func TestValidateReferenceID(t *testing.T) {
	assert.Error(t, ValidateReferenceID(""))
	assert.NoError(t, ValidateReferenceID("ref-123"))
	assert.Error(t, ValidateReferenceID(strings.Repeat("a", 256)))
	assert.NoError(t, ValidateReferenceID(strings.Repeat("a", 255)))
}

func TestParseMoney(t *testing.T) {
	m, err := ParseMoney("10.50")
	assert.NoError(t, err)
	assert.True(t, m.Equal(decimal.RequireFromString("10.50")))

	_, err = ParseMoney("not-a-number")
	assert.Error(t, err)
	assert.Equal(t, "INVALID_REQUEST", AsAppError(err).Code)
}

func TestRoundMoney(t *testing.T) {
	m := decimal.RequireFromString("10.555")
	assert.True(t, RoundMoney(m).Equal(decimal.RequireFromString("10.56")))
}
