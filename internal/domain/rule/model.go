package rule

import (
	"strings"
	"time"

	"github.com/recivo/recivo/internal/types"
	"github.com/shopspring/decimal"
)

// DiscountRule represents an early-payment (or other trigger) discount rule
type DiscountRule struct {
	ID                string                    `json:"id" db:"id"`
	Name              string                    `json:"name" db:"name"`
	Priority          int                       `json:"priority" db:"priority"`
	Enabled           bool                      `json:"enabled" db:"enabled"`
	RuleStatus        types.RuleStatus          `json:"rule_status" db:"rule_status"`
	ValueType         types.RuleValueType       `json:"value_type" db:"value_type"`
	Value             decimal.Decimal           `json:"value" db:"value"`
	ValidFrom         *time.Time                `json:"valid_from,omitempty" db:"valid_from"`
	ValidUntil        *time.Time                `json:"valid_until,omitempty" db:"valid_until"`
	MinimumAmount     *decimal.Decimal          `json:"minimum_amount,omitempty" db:"minimum_amount"`
	MaximumAmount     *decimal.Decimal          `json:"maximum_amount,omitempty" db:"maximum_amount"`
	CurrencyCode      *string                   `json:"currency_code,omitempty" db:"currency_code"`
	TriggerType       types.DiscountTriggerType `json:"trigger_type" db:"trigger_type"`
	TriggerConditions types.TriggerConditions   `json:"trigger_conditions" db:"trigger_conditions"`
	types.BaseModel
}

// LateFeeRule represents a late-payment fee rule
type LateFeeRule struct {
	ID                   string                 `json:"id" db:"id"`
	Name                 string                 `json:"name" db:"name"`
	Priority             int                    `json:"priority" db:"priority"`
	Enabled              bool                   `json:"enabled" db:"enabled"`
	RuleStatus           types.RuleStatus       `json:"rule_status" db:"rule_status"`
	ValueType            types.RuleValueType    `json:"value_type" db:"value_type"`
	Value                decimal.Decimal        `json:"value" db:"value"`
	ValidFrom            *time.Time             `json:"valid_from,omitempty" db:"valid_from"`
	ValidUntil           *time.Time             `json:"valid_until,omitempty" db:"valid_until"`
	MinimumInvoiceAmount *decimal.Decimal       `json:"minimum_invoice_amount,omitempty" db:"minimum_invoice_amount"`
	CurrencyCode         *string                `json:"currency_code,omitempty" db:"currency_code"`
	Frequency            types.LateFeeFrequency `json:"frequency" db:"frequency"`
	GracePeriodDays      int                    `json:"grace_period_days" db:"grace_period_days"`
	MaximumFeeAmount     *decimal.Decimal       `json:"maximum_fee_amount,omitempty" db:"maximum_fee_amount"`
	MaximumFeePercentage *decimal.Decimal       `json:"maximum_fee_percentage,omitempty" db:"maximum_fee_percentage"`
	types.BaseModel
}

// IsWithinValidity checks if the rule's validity window contains now.
// A nil ValidUntil means open-ended.
func (r *DiscountRule) IsWithinValidity(now time.Time) bool {
	if r.ValidFrom != nil && now.Before(*r.ValidFrom) {
		return false
	}
	if r.ValidUntil != nil && !r.ValidUntil.After(now) {
		return false
	}
	return true
}

// MatchesCurrency checks the rule's optional currency constraint
func (r *DiscountRule) MatchesCurrency(currency string) bool {
	if r.CurrencyCode == nil {
		return true
	}
	return strings.EqualFold(*r.CurrencyCode, currency)
}

// MatchesAmount checks the rule's optional amount bounds against the invoice total
func (r *DiscountRule) MatchesAmount(totalAmount decimal.Decimal) bool {
	if r.MinimumAmount != nil && totalAmount.LessThan(*r.MinimumAmount) {
		return false
	}
	if r.MaximumAmount != nil && totalAmount.GreaterThan(*r.MaximumAmount) {
		return false
	}
	return true
}

// MatchesTrigger checks the type-specific trigger. Only early-payment
// triggers are derivable from an invoice snapshot and a payment date;
// volume, loyalty and custom triggers never match here.
func (r *DiscountRule) MatchesTrigger(paymentDate time.Time, dueDate time.Time) bool {
	if r.TriggerType != types.DiscountTriggerEarlyPayment {
		return false
	}
	required := 0
	if r.TriggerConditions.DaysBeforeDueDate != nil {
		required = *r.TriggerConditions.DaysBeforeDueDate
	}
	return DaysEarly(paymentDate, dueDate) >= required
}

func (r *LateFeeRule) IsWithinValidity(now time.Time) bool {
	if r.ValidFrom != nil && now.Before(*r.ValidFrom) {
		return false
	}
	if r.ValidUntil != nil && !r.ValidUntil.After(now) {
		return false
	}
	return true
}

func (r *LateFeeRule) MatchesCurrency(currency string) bool {
	if r.CurrencyCode == nil {
		return true
	}
	return strings.EqualFold(*r.CurrencyCode, currency)
}

func (r *LateFeeRule) MatchesAmount(totalAmount decimal.Decimal) bool {
	if r.MinimumInvoiceAmount != nil && totalAmount.LessThan(*r.MinimumInvoiceAmount) {
		return false
	}
	return true
}

// MatchesOverdue checks that the invoice is past the rule's grace period
func (r *LateFeeRule) MatchesOverdue(now time.Time, dueDate time.Time) bool {
	return DaysOverdue(now, dueDate) > r.GracePeriodDays
}

// DaysEarly returns the number of days a payment precedes the due date,
// rounded up so that any part of a day counts as a full day early.
func DaysEarly(paymentDate time.Time, dueDate time.Time) int {
	diff := dueDate.Sub(paymentDate)
	if diff <= 0 {
		return 0
	}
	days := int(diff / (24 * time.Hour))
	if diff%(24*time.Hour) > 0 {
		days++
	}
	return days
}

// DaysOverdue returns the number of whole days now is past the due date.
// Partial days do not count as overdue.
func DaysOverdue(now time.Time, dueDate time.Time) int {
	diff := now.Sub(dueDate)
	if diff <= 0 {
		return 0
	}
	return int(diff / (24 * time.Hour))
}
