package types

import (
	ierr "github.com/recivo/recivo/internal/errors"
)

// RuleType distinguishes the two kinds of incentive rules
type RuleType string

const (
	// RuleTypeDiscount represents an early-payment discount rule
	RuleTypeDiscount RuleType = "discount"
	// RuleTypeLateFee represents a late-payment fee rule
	RuleTypeLateFee RuleType = "late_fee"
)

func (t RuleType) String() string {
	return string(t)
}

func (t RuleType) Validate() error {
	allowed := []RuleType{
		RuleTypeDiscount,
		RuleTypeLateFee,
	}
	for _, rt := range allowed {
		if t == rt {
			return nil
		}
	}
	return ierr.NewError("invalid rule type").
		WithHint("Rule type must be discount or late_fee").
		WithReportableDetails(map[string]any{
			"rule_type": t,
		}).
		Mark(ierr.ErrValidation)
}

// RuleStatus represents the domain lifecycle state of an incentive rule
type RuleStatus string

const (
	RuleStatusActive    RuleStatus = "active"
	RuleStatusInactive  RuleStatus = "inactive"
	RuleStatusScheduled RuleStatus = "scheduled"
	RuleStatusExpired   RuleStatus = "expired"
)

func (s RuleStatus) String() string {
	return string(s)
}

func (s RuleStatus) Validate() error {
	allowed := []RuleStatus{
		RuleStatusActive,
		RuleStatusInactive,
		RuleStatusScheduled,
		RuleStatusExpired,
	}
	for _, rs := range allowed {
		if s == rs {
			return nil
		}
	}
	return ierr.NewError("invalid rule status").
		WithHint("Invalid rule status").
		WithReportableDetails(map[string]any{
			"status": s,
		}).
		Mark(ierr.ErrValidation)
}

// RuleValueType represents how a rule's value is interpreted when computing
// the monetary adjustment
type RuleValueType string

const (
	// RuleValueTypePercentage applies value as a percentage of the invoice total
	RuleValueTypePercentage RuleValueType = "percentage"
	// RuleValueTypeFixedAmount applies value as an absolute amount
	RuleValueTypeFixedAmount RuleValueType = "fixed_amount"
	// RuleValueTypeCompoundPercentage compounds value daily against the
	// growing balance. Late-fee rules only.
	RuleValueTypeCompoundPercentage RuleValueType = "compound_percentage"
)

func (t RuleValueType) String() string {
	return string(t)
}

// DiscountTriggerType represents the condition class that activates a discount rule
type DiscountTriggerType string

const (
	DiscountTriggerEarlyPayment DiscountTriggerType = "early_payment"
	DiscountTriggerVolumeBased  DiscountTriggerType = "volume_based"
	DiscountTriggerLoyaltyBased DiscountTriggerType = "loyalty_based"
	DiscountTriggerCustom       DiscountTriggerType = "custom"
)

func (t DiscountTriggerType) String() string {
	return string(t)
}

// LateFeeFrequency represents how often a late fee accrues once past the
// grace period
type LateFeeFrequency string

const (
	LateFeeFrequencyOneTime LateFeeFrequency = "one_time"
	LateFeeFrequencyDaily   LateFeeFrequency = "daily"
	LateFeeFrequencyWeekly  LateFeeFrequency = "weekly"
	LateFeeFrequencyMonthly LateFeeFrequency = "monthly"
	LateFeeFrequencyCustom  LateFeeFrequency = "custom"
)

func (f LateFeeFrequency) String() string {
	return string(f)
}

func (f LateFeeFrequency) Validate() error {
	allowed := []LateFeeFrequency{
		LateFeeFrequencyOneTime,
		LateFeeFrequencyDaily,
		LateFeeFrequencyWeekly,
		LateFeeFrequencyMonthly,
		LateFeeFrequencyCustom,
	}
	for _, lf := range allowed {
		if f == lf {
			return nil
		}
	}
	return ierr.NewError("invalid late fee frequency").
		WithHint("Invalid late fee frequency").
		WithReportableDetails(map[string]any{
			"frequency": f,
		}).
		Mark(ierr.ErrValidation)
}
