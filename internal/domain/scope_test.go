package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPermissionSetGrants(t *testing.T) {
	cases := []struct {
		name     string
		raw      []string
		resource string
		action   string
		want     bool
	}{
		{"exact match", []string{"wallet:deposit"}, "wallet", "deposit", true},
		{"exact mismatch", []string{"wallet:deposit"}, "wallet", "withdraw", false},
		{"resource wildcard", []string{"wallet:*"}, "wallet", "withdraw", true},
		{"action wildcard", []string{"*:read"}, "games", "read", true},
		{"action wildcard mismatch resource", []string{"*:read"}, "games", "write", false},
		{"global wildcard", []string{"*"}, "anything", "anything", true},
		{"star colon star", []string{"*:*"}, "anything", "anything", true},
		{"empty set", nil, "wallet", "deposit", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ps := NewPermissionSet(c.raw)
			assert.Equal(t, c.want, ps.Grants(c.resource, c.action))
		})
	}
}
