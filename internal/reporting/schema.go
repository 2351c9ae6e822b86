package reporting

import (
	"encoding/json"
	"fmt"

	"github.com/casinobroker/platform/internal/domain"
)

// DefaultSchemas describes the report kinds this deployment knows how to
// validate and render. Callers extend or replace this at Scheduler
// construction time.
var DefaultSchemas = map[string]domain.ReportSchema{
	"transaction_summary": {Kind: "transaction_summary", RequiredFields: []string{"partner_id", "from", "to"}},
	"wallet_balances":     {Kind: "wallet_balances", RequiredFields: []string{"partner_id"}},
	"aml_alerts":          {Kind: "aml_alerts", RequiredFields: []string{"partner_id", "from", "to"}},
	"commission_payout":   {Kind: "commission_payout", RequiredFields: []string{"partner_id", "period"}},
}

// ValidateParams checks that params is a JSON object carrying every field
// schema.RequiredFields names, per spec's "validates parameters against the
// requested report type's declared schema" admission step.
func ValidateParams(schema domain.ReportSchema, params json.RawMessage) error {
	if len(params) == 0 {
		if len(schema.RequiredFields) > 0 {
			return fmt.Errorf("missing required fields: %v", schema.RequiredFields)
		}
		return nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(params, &fields); err != nil {
		return fmt.Errorf("params must be a JSON object: %w", err)
	}

	var missing []string
	for _, name := range schema.RequiredFields {
		if _, ok := fields[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %v", missing)
	}
	return nil
}
