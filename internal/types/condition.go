package types

import (
	"strings"

	"github.com/shopspring/decimal"
)

// TriggerConditions holds the recognized discount trigger parameters.
// Unknown condition kinds from upstream configuration are dropped at the
// boundary rather than carried as an open map.
type TriggerConditions struct {
	// DaysBeforeDueDate is the minimum number of full days before the due
	// date a payment must be made to qualify for an early-payment discount.
	DaysBeforeDueDate *int `json:"days_before_due_date,omitempty"`
	// MinimumVolume is the minimum invoice count for volume-based triggers.
	MinimumVolume *int `json:"minimum_volume,omitempty"`
	// MinimumTenureMonths is the minimum customer tenure for loyalty triggers.
	MinimumTenureMonths *int `json:"minimum_tenure_months,omitempty"`
}

// TargetCriteria is the optional eligibility filter on an experiment.
// A nil field means "no constraint on this dimension".
type TargetCriteria struct {
	MinAmount    *decimal.Decimal `json:"min_amount,omitempty"`
	MaxAmount    *decimal.Decimal `json:"max_amount,omitempty"`
	Currency     *string          `json:"currency,omitempty"`
	CustomerType *string          `json:"customer_type,omitempty"`
}

// Matches reports whether an invoice with the given amount, currency and
// customer type satisfies every set constraint.
func (c *TargetCriteria) Matches(amount decimal.Decimal, currency string, customerType string) bool {
	if c == nil {
		return true
	}
	if c.MinAmount != nil && amount.LessThan(*c.MinAmount) {
		return false
	}
	if c.MaxAmount != nil && amount.GreaterThan(*c.MaxAmount) {
		return false
	}
	if c.Currency != nil && !strings.EqualFold(*c.Currency, currency) {
		return false
	}
	if c.CustomerType != nil && !strings.EqualFold(*c.CustomerType, customerType) {
		return false
	}
	return true
}
