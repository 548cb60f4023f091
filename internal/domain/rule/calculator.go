package rule

import (
	"time"

	"github.com/recivo/recivo/internal/types"
	"github.com/shopspring/decimal"
)

// Ineligibility reasons returned on calculator results
const (
	ReasonNotEarlyEnough     = "payment_not_early_enough"
	ReasonNotOverdue         = "invoice_not_overdue"
	ReasonWithinGrace        = "within_grace_period"
	ReasonUnsupportedTrigger = "unsupported_trigger_type"
)

var hundred = decimal.NewFromInt(100)

// DiscountResult is the outcome of evaluating a discount rule against an
// invoice total and a payment date. When Eligible is false the amounts are
// zero and Reason explains the miss.
type DiscountResult struct {
	Eligible       bool            `json:"eligible"`
	Reason         string          `json:"reason,omitempty"`
	DaysEarly      int             `json:"days_early"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	FinalAmount    decimal.Decimal `json:"final_amount"`
}

// LateFeeResult is the outcome of evaluating a late-fee rule against an
// invoice total at an evaluation instant.
type LateFeeResult struct {
	Eligible      bool            `json:"eligible"`
	Reason        string          `json:"reason,omitempty"`
	DaysOverdue   int             `json:"days_overdue"`
	EffectiveDays int             `json:"effective_days"`
	FeeAmount     decimal.Decimal `json:"fee_amount"`
	TotalWithFee  decimal.Decimal `json:"total_with_fee"`
}

// Calculate evaluates the discount rule against an invoice total. The
// computation is pure: same inputs always produce the same result.
func (r *DiscountRule) Calculate(totalAmount decimal.Decimal, paymentDate time.Time, dueDate time.Time) DiscountResult {
	ineligible := DiscountResult{
		DiscountAmount: decimal.Zero,
		FinalAmount:    totalAmount,
		DaysEarly:      DaysEarly(paymentDate, dueDate),
	}

	if r.TriggerType != types.DiscountTriggerEarlyPayment {
		ineligible.Reason = ReasonUnsupportedTrigger
		return ineligible
	}
	if !r.MatchesTrigger(paymentDate, dueDate) {
		ineligible.Reason = ReasonNotEarlyEnough
		return ineligible
	}

	var discount decimal.Decimal
	switch r.ValueType {
	case types.RuleValueTypePercentage:
		discount = totalAmount.Mul(r.Value).Div(hundred)
	case types.RuleValueTypeFixedAmount:
		discount = r.Value
	default:
		discount = decimal.Zero
	}

	// A discount can never exceed the invoice total
	if discount.GreaterThan(totalAmount) {
		discount = totalAmount
	}

	return DiscountResult{
		Eligible:       true,
		DaysEarly:      ineligible.DaysEarly,
		DiscountAmount: discount,
		FinalAmount:    totalAmount.Sub(discount),
	}
}

// Calculate evaluates the late-fee rule against an invoice total at now.
// Fees accrue only past the grace period; the frequency multiplier and the
// two independent caps follow the rule configuration.
func (r *LateFeeRule) Calculate(totalAmount decimal.Decimal, now time.Time, dueDate time.Time) LateFeeResult {
	daysOverdue := DaysOverdue(now, dueDate)
	ineligible := LateFeeResult{
		DaysOverdue:  daysOverdue,
		FeeAmount:    decimal.Zero,
		TotalWithFee: totalAmount,
	}

	if daysOverdue <= 0 {
		ineligible.Reason = ReasonNotOverdue
		return ineligible
	}

	effectiveDays := daysOverdue - r.GracePeriodDays
	if effectiveDays <= 0 {
		ineligible.Reason = ReasonWithinGrace
		return ineligible
	}

	var fee decimal.Decimal
	switch r.ValueType {
	case types.RuleValueTypeFixedAmount:
		fee = r.Value.Mul(decimal.NewFromInt(r.frequencyMultiplier(effectiveDays)))
	case types.RuleValueTypePercentage:
		fee = totalAmount.Mul(r.Value).Div(hundred).
			Mul(decimal.NewFromInt(r.frequencyMultiplier(effectiveDays)))
	case types.RuleValueTypeCompoundPercentage:
		// Day-by-day compounding against the growing balance. Kept in
		// iterative form so rounding matches the accrual schedule, not the
		// closed-form power.
		rate := r.Value.Div(hundred)
		amount := totalAmount
		for i := 0; i < effectiveDays; i++ {
			amount = amount.Add(amount.Mul(rate))
		}
		fee = amount.Sub(totalAmount)
	default:
		fee = decimal.Zero
	}

	// Both caps are evaluated; each can only lower the fee.
	if r.MaximumFeeAmount != nil && fee.GreaterThan(*r.MaximumFeeAmount) {
		fee = *r.MaximumFeeAmount
	}
	if r.MaximumFeePercentage != nil {
		pctCap := totalAmount.Mul(*r.MaximumFeePercentage).Div(hundred)
		if fee.GreaterThan(pctCap) {
			fee = pctCap
		}
	}

	return LateFeeResult{
		Eligible:      true,
		DaysOverdue:   daysOverdue,
		EffectiveDays: effectiveDays,
		FeeAmount:     fee,
		TotalWithFee:  totalAmount.Add(fee),
	}
}

// frequencyMultiplier converts effective days overdue into the number of
// accrual periods for the rule's frequency.
func (r *LateFeeRule) frequencyMultiplier(effectiveDays int) int64 {
	switch r.Frequency {
	case types.LateFeeFrequencyDaily:
		return int64(effectiveDays)
	case types.LateFeeFrequencyWeekly:
		return int64((effectiveDays + 6) / 7)
	case types.LateFeeFrequencyMonthly:
		return int64((effectiveDays + 29) / 30)
	default:
		return 1
	}
}
