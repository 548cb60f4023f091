package rule

import (
	"testing"
	"time"

	"github.com/recivo/recivo/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscountRule_Calculate(t *testing.T) {
	dueDate := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name             string
		rule             DiscountRule
		totalAmount      decimal.Decimal
		paymentDate      time.Time
		expectedEligible bool
		expectedReason   string
		expectedDiscount decimal.Decimal
		expectedFinal    decimal.Decimal
	}{
		{
			name: "percentage_discount_paid_early_enough",
			rule: DiscountRule{
				ValueType:   types.RuleValueTypePercentage,
				Value:       decimal.NewFromInt(2),
				TriggerType: types.DiscountTriggerEarlyPayment,
				TriggerConditions: types.TriggerConditions{
					DaysBeforeDueDate: lo.ToPtr(10),
				},
			},
			totalAmount:      decimal.NewFromInt(100000),
			paymentDate:      dueDate.AddDate(0, 0, -12),
			expectedEligible: true,
			expectedDiscount: decimal.NewFromInt(2000),
			expectedFinal:    decimal.NewFromInt(98000),
		},
		{
			name: "payment_exactly_at_threshold",
			rule: DiscountRule{
				ValueType:   types.RuleValueTypePercentage,
				Value:       decimal.NewFromInt(5),
				TriggerType: types.DiscountTriggerEarlyPayment,
				TriggerConditions: types.TriggerConditions{
					DaysBeforeDueDate: lo.ToPtr(10),
				},
			},
			totalAmount:      decimal.NewFromInt(1000),
			paymentDate:      dueDate.AddDate(0, 0, -10),
			expectedEligible: true,
			expectedDiscount: decimal.NewFromInt(50),
			expectedFinal:    decimal.NewFromInt(950),
		},
		{
			name: "payment_not_early_enough",
			rule: DiscountRule{
				ValueType:   types.RuleValueTypePercentage,
				Value:       decimal.NewFromInt(2),
				TriggerType: types.DiscountTriggerEarlyPayment,
				TriggerConditions: types.TriggerConditions{
					DaysBeforeDueDate: lo.ToPtr(10),
				},
			},
			totalAmount:      decimal.NewFromInt(100000),
			paymentDate:      dueDate.AddDate(0, 0, -3),
			expectedEligible: false,
			expectedReason:   ReasonNotEarlyEnough,
			expectedDiscount: decimal.Zero,
			expectedFinal:    decimal.NewFromInt(100000),
		},
		{
			name: "fixed_amount_discount",
			rule: DiscountRule{
				ValueType:   types.RuleValueTypeFixedAmount,
				Value:       decimal.NewFromInt(250),
				TriggerType: types.DiscountTriggerEarlyPayment,
				TriggerConditions: types.TriggerConditions{
					DaysBeforeDueDate: lo.ToPtr(5),
				},
			},
			totalAmount:      decimal.NewFromInt(10000),
			paymentDate:      dueDate.AddDate(0, 0, -7),
			expectedEligible: true,
			expectedDiscount: decimal.NewFromInt(250),
			expectedFinal:    decimal.NewFromInt(9750),
		},
		{
			name: "fixed_discount_clamped_to_invoice_total",
			rule: DiscountRule{
				ValueType:   types.RuleValueTypeFixedAmount,
				Value:       decimal.NewFromInt(500),
				TriggerType: types.DiscountTriggerEarlyPayment,
				TriggerConditions: types.TriggerConditions{
					DaysBeforeDueDate: lo.ToPtr(5),
				},
			},
			totalAmount:      decimal.NewFromInt(300),
			paymentDate:      dueDate.AddDate(0, 0, -7),
			expectedEligible: true,
			expectedDiscount: decimal.NewFromInt(300),
			expectedFinal:    decimal.Zero,
		},
		{
			name: "no_days_condition_means_any_early_payment",
			rule: DiscountRule{
				ValueType:   types.RuleValueTypePercentage,
				Value:       decimal.NewFromInt(1),
				TriggerType: types.DiscountTriggerEarlyPayment,
			},
			totalAmount:      decimal.NewFromInt(1000),
			paymentDate:      dueDate.AddDate(0, 0, -1),
			expectedEligible: true,
			expectedDiscount: decimal.NewFromInt(10),
			expectedFinal:    decimal.NewFromInt(990),
		},
		{
			name: "volume_trigger_is_not_derivable",
			rule: DiscountRule{
				ValueType:   types.RuleValueTypePercentage,
				Value:       decimal.NewFromInt(2),
				TriggerType: types.DiscountTriggerVolumeBased,
			},
			totalAmount:      decimal.NewFromInt(100000),
			paymentDate:      dueDate.AddDate(0, 0, -30),
			expectedEligible: false,
			expectedReason:   ReasonUnsupportedTrigger,
			expectedDiscount: decimal.Zero,
			expectedFinal:    decimal.NewFromInt(100000),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := tc.rule.Calculate(tc.totalAmount, tc.paymentDate, dueDate)

			assert.Equal(t, tc.expectedEligible, result.Eligible)
			assert.Equal(t, tc.expectedReason, result.Reason)
			assert.True(t, tc.expectedDiscount.Equal(result.DiscountAmount),
				"discount = %s, want %s", result.DiscountAmount, tc.expectedDiscount)
			assert.True(t, tc.expectedFinal.Equal(result.FinalAmount),
				"final = %s, want %s", result.FinalAmount, tc.expectedFinal)
		})
	}
}

func TestLateFeeRule_Calculate(t *testing.T) {
	dueDate := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name              string
		rule              LateFeeRule
		totalAmount       decimal.Decimal
		now               time.Time
		expectedEligible  bool
		expectedReason    string
		expectedEffective int
		expectedFee       decimal.Decimal
	}{
		{
			name: "fixed_daily_fee_past_grace",
			rule: LateFeeRule{
				ValueType:       types.RuleValueTypeFixedAmount,
				Value:           decimal.NewFromInt(100),
				Frequency:       types.LateFeeFrequencyDaily,
				GracePeriodDays: 2,
			},
			totalAmount:       decimal.NewFromInt(50000),
			now:               dueDate.AddDate(0, 0, 10),
			expectedEligible:  true,
			expectedEffective: 8,
			expectedFee:       decimal.NewFromInt(800),
		},
		{
			name: "not_overdue",
			rule: LateFeeRule{
				ValueType: types.RuleValueTypeFixedAmount,
				Value:     decimal.NewFromInt(100),
				Frequency: types.LateFeeFrequencyDaily,
			},
			totalAmount:      decimal.NewFromInt(50000),
			now:              dueDate.AddDate(0, 0, -1),
			expectedEligible: false,
			expectedReason:   ReasonNotOverdue,
			expectedFee:      decimal.Zero,
		},
		{
			name: "partial_day_overdue_does_not_count",
			rule: LateFeeRule{
				ValueType: types.RuleValueTypeFixedAmount,
				Value:     decimal.NewFromInt(100),
				Frequency: types.LateFeeFrequencyDaily,
			},
			totalAmount:      decimal.NewFromInt(50000),
			now:              dueDate.Add(12 * time.Hour),
			expectedEligible: false,
			expectedReason:   ReasonNotOverdue,
			expectedFee:      decimal.Zero,
		},
		{
			name: "within_grace_period",
			rule: LateFeeRule{
				ValueType:       types.RuleValueTypeFixedAmount,
				Value:           decimal.NewFromInt(100),
				Frequency:       types.LateFeeFrequencyDaily,
				GracePeriodDays: 5,
			},
			totalAmount:      decimal.NewFromInt(50000),
			now:              dueDate.AddDate(0, 0, 5),
			expectedEligible: false,
			expectedReason:   ReasonWithinGrace,
			expectedFee:      decimal.Zero,
		},
		{
			name: "percentage_one_time_fee",
			rule: LateFeeRule{
				ValueType: types.RuleValueTypePercentage,
				Value:     decimal.NewFromInt(5),
				Frequency: types.LateFeeFrequencyOneTime,
			},
			totalAmount:       decimal.NewFromInt(20000),
			now:               dueDate.AddDate(0, 0, 15),
			expectedEligible:  true,
			expectedEffective: 15,
			expectedFee:       decimal.NewFromInt(1000),
		},
		{
			name: "percentage_weekly_fee_rounds_weeks_up",
			rule: LateFeeRule{
				ValueType: types.RuleValueTypePercentage,
				Value:     decimal.NewFromInt(1),
				Frequency: types.LateFeeFrequencyWeekly,
			},
			totalAmount:       decimal.NewFromInt(10000),
			now:               dueDate.AddDate(0, 0, 8),
			expectedEligible:  true,
			expectedEffective: 8,
			expectedFee:       decimal.NewFromInt(200), // 2 accrual weeks
		},
		{
			name: "fixed_monthly_fee_rounds_months_up",
			rule: LateFeeRule{
				ValueType: types.RuleValueTypeFixedAmount,
				Value:     decimal.NewFromInt(500),
				Frequency: types.LateFeeFrequencyMonthly,
			},
			totalAmount:       decimal.NewFromInt(10000),
			now:               dueDate.AddDate(0, 0, 31),
			expectedEligible:  true,
			expectedEffective: 31,
			expectedFee:       decimal.NewFromInt(1000), // 2 accrual months
		},
		{
			name: "maximum_fee_amount_caps_the_fee",
			rule: LateFeeRule{
				ValueType:        types.RuleValueTypeFixedAmount,
				Value:            decimal.NewFromInt(100),
				Frequency:        types.LateFeeFrequencyDaily,
				MaximumFeeAmount: lo.ToPtr(decimal.NewFromInt(300)),
			},
			totalAmount:       decimal.NewFromInt(50000),
			now:               dueDate.AddDate(0, 0, 10),
			expectedEligible:  true,
			expectedEffective: 10,
			expectedFee:       decimal.NewFromInt(300),
		},
		{
			name: "maximum_fee_percentage_caps_the_fee",
			rule: LateFeeRule{
				ValueType:            types.RuleValueTypeFixedAmount,
				Value:                decimal.NewFromInt(100),
				Frequency:            types.LateFeeFrequencyDaily,
				MaximumFeePercentage: lo.ToPtr(decimal.NewFromInt(5)),
			},
			totalAmount:       decimal.NewFromInt(10000),
			now:               dueDate.AddDate(0, 0, 10),
			expectedEligible:  true,
			expectedEffective: 10,
			expectedFee:       decimal.NewFromInt(500), // 5% of 10000, below the 1000 accrued
		},
		{
			name: "both_caps_apply_the_lower_one_wins",
			rule: LateFeeRule{
				ValueType:            types.RuleValueTypeFixedAmount,
				Value:                decimal.NewFromInt(100),
				Frequency:            types.LateFeeFrequencyDaily,
				MaximumFeeAmount:     lo.ToPtr(decimal.NewFromInt(700)),
				MaximumFeePercentage: lo.ToPtr(decimal.NewFromInt(5)),
			},
			totalAmount:       decimal.NewFromInt(10000),
			now:               dueDate.AddDate(0, 0, 10),
			expectedEligible:  true,
			expectedEffective: 10,
			expectedFee:       decimal.NewFromInt(500),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := tc.rule.Calculate(tc.totalAmount, tc.now, dueDate)

			assert.Equal(t, tc.expectedEligible, result.Eligible)
			assert.Equal(t, tc.expectedReason, result.Reason)
			if tc.expectedEligible {
				assert.Equal(t, tc.expectedEffective, result.EffectiveDays)
			}
			assert.True(t, tc.expectedFee.Equal(result.FeeAmount),
				"fee = %s, want %s", result.FeeAmount, tc.expectedFee)
			assert.True(t, tc.totalAmount.Add(tc.expectedFee).Equal(result.TotalWithFee),
				"total with fee = %s", result.TotalWithFee)
		})
	}
}

func TestLateFeeRule_Calculate_CompoundPercentage(t *testing.T) {
	dueDate := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	rule := LateFeeRule{
		ValueType: types.RuleValueTypeCompoundPercentage,
		Value:     decimal.NewFromInt(1),
		Frequency: types.LateFeeFrequencyDaily,
	}
	total := decimal.NewFromInt(50000)

	result := rule.Calculate(total, dueDate.AddDate(0, 0, 10), dueDate)

	require.True(t, result.Eligible)
	assert.Equal(t, 10, result.EffectiveDays)

	// 50000 compounding at 1% for 10 days accrues 50000*(1.01^10 - 1)
	assert.Equal(t, "5231.11", result.FeeAmount.Round(2).String())
	// Compounding always beats simple accrual at the same rate
	simple := total.Mul(decimal.NewFromInt(1)).Div(decimal.NewFromInt(100)).Mul(decimal.NewFromInt(10))
	assert.True(t, result.FeeAmount.GreaterThan(simple))
	assert.True(t, total.Add(result.FeeAmount).Equal(result.TotalWithFee))
}

func TestLateFeeRule_Calculate_Deterministic(t *testing.T) {
	dueDate := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	rule := LateFeeRule{
		ValueType:       types.RuleValueTypeCompoundPercentage,
		Value:           decimal.NewFromFloat(0.5),
		Frequency:       types.LateFeeFrequencyDaily,
		GracePeriodDays: 3,
	}
	now := dueDate.AddDate(0, 0, 20)
	total := decimal.NewFromInt(75000)

	first := rule.Calculate(total, now, dueDate)
	second := rule.Calculate(total, now, dueDate)

	assert.Equal(t, first.EffectiveDays, second.EffectiveDays)
	assert.True(t, first.FeeAmount.Equal(second.FeeAmount))
	assert.True(t, first.TotalWithFee.Equal(second.TotalWithFee))
}

func TestDaysEarly(t *testing.T) {
	due := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, DaysEarly(due, due))
	assert.Equal(t, 0, DaysEarly(due.AddDate(0, 0, 1), due))
	assert.Equal(t, 1, DaysEarly(due.AddDate(0, 0, -1), due))
	// Any part of a day counts as a full day early
	assert.Equal(t, 1, DaysEarly(due.Add(-6*time.Hour), due))
	assert.Equal(t, 3, DaysEarly(due.Add(-49*time.Hour), due))
}

func TestDaysOverdue(t *testing.T) {
	due := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, DaysOverdue(due, due))
	assert.Equal(t, 0, DaysOverdue(due.AddDate(0, 0, -5), due))
	// Partial days do not count as overdue
	assert.Equal(t, 0, DaysOverdue(due.Add(23*time.Hour), due))
	assert.Equal(t, 1, DaysOverdue(due.Add(25*time.Hour), due))
	assert.Equal(t, 10, DaysOverdue(due.AddDate(0, 0, 10), due))
}
