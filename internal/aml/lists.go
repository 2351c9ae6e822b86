package aml

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// StaticListProvider answers the three list-backed signals (high-risk
// country, PEP match, flagged multi-account) independently of the scoring
// pipeline, so a real feed can replace the in-memory default without
// touching Engine.
type StaticListProvider interface {
	IsHighRiskCountry(countryCode string) bool
	IsPEPMatch(playerID uuid.UUID, externalRef string) bool
	IsMultiAccountFlagged(playerID uuid.UUID, externalRef string) bool
}

// InMemoryListProvider is the default StaticListProvider, seeded from a
// fixed set of FATF-grey/black-list-style country codes. PEP and
// multi-account entries start empty and are populated by an operator
// workflow external to this package.
type InMemoryListProvider struct {
	mu            sync.RWMutex
	highRiskCC    map[string]struct{}
	pepRefs       map[string]struct{}
	multiAccounts map[string]struct{}
}

// NewInMemoryListProvider seeds the default high-risk country set.
func NewInMemoryListProvider() *InMemoryListProvider {
	p := &InMemoryListProvider{
		highRiskCC:    make(map[string]struct{}),
		pepRefs:       make(map[string]struct{}),
		multiAccounts: make(map[string]struct{}),
	}
	for _, cc := range defaultHighRiskCountries {
		p.highRiskCC[cc] = struct{}{}
	}
	return p
}

// defaultHighRiskCountries mirrors a FATF increased-monitoring style list;
// swap for a maintained feed in production.
var defaultHighRiskCountries = []string{
	"KP", "IR", "MM", "AF", "SY", "YE", "SS",
}

func (p *InMemoryListProvider) IsHighRiskCountry(countryCode string) bool {
	if countryCode == "" {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.highRiskCC[strings.ToUpper(countryCode)]
	return ok
}

func (p *InMemoryListProvider) IsPEPMatch(playerID uuid.UUID, externalRef string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, byID := p.pepRefs[playerID.String()]
	_, byRef := p.pepRefs[externalRef]
	return byID || byRef
}

func (p *InMemoryListProvider) IsMultiAccountFlagged(playerID uuid.UUID, externalRef string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, byID := p.multiAccounts[playerID.String()]
	_, byRef := p.multiAccounts[externalRef]
	return byID || byRef
}

// FlagPEP adds an identifier (player id or partner external ref) to the PEP
// list.
func (p *InMemoryListProvider) FlagPEP(identifier string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pepRefs[identifier] = struct{}{}
}

// FlagMultiAccount adds an identifier to the multi-account list.
func (p *InMemoryListProvider) FlagMultiAccount(identifier string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.multiAccounts[identifier] = struct{}{}
}
