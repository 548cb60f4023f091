package payload

import (
	"github.com/shopspring/decimal"
)

// DiscountAppliedPayload is the body of the incentive.discount.applied event
type DiscountAppliedPayload struct {
	InvoiceID      string          `json:"invoice_id"`
	TransactionID  string          `json:"transaction_id,omitempty"`
	ApplicationID  string          `json:"application_id"`
	RuleID         string          `json:"rule_id"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	FinalAmount    decimal.Decimal `json:"final_amount"`
}

// LateFeeAppliedPayload is the body of the incentive.latefee.applied event
type LateFeeAppliedPayload struct {
	InvoiceID     string          `json:"invoice_id"`
	ApplicationID string          `json:"application_id"`
	RuleID        string          `json:"rule_id"`
	FeeAmount     decimal.Decimal `json:"fee_amount"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	DaysOverdue   int             `json:"days_overdue"`
}

// LateFeeWaivedPayload is the body of the incentive.latefee.waived event
type LateFeeWaivedPayload struct {
	InvoiceID     string `json:"invoice_id"`
	ApplicationID string `json:"application_id"`
	WaivedBy      string `json:"waived_by"`
	WaivedReason  string `json:"waived_reason"`
}

// DiscountExpiredPayload is the body of the incentive.discount.expired event
type DiscountExpiredPayload struct {
	InvoiceID     string `json:"invoice_id"`
	ApplicationID string `json:"application_id"`
}

// ApplicationPaidPayload is the body of the incentive.application.paid event
type ApplicationPaidPayload struct {
	InvoiceID     string `json:"invoice_id"`
	ApplicationID string `json:"application_id"`
	TransactionID string `json:"transaction_id"`
}
