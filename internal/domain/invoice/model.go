package invoice

import (
	"time"

	"github.com/recivo/recivo/internal/types"
	"github.com/shopspring/decimal"
)

// Invoice is the engine's projection of an invoice. The system of record
// lives with an external collaborator; the engine reads this snapshot and
// writes back only the incentive adjustment fields.
type Invoice struct {
	ID               string              `json:"id" db:"id"`
	CustomerID       string              `json:"customer_id" db:"customer_id"`
	CustomerType     string              `json:"customer_type" db:"customer_type"`
	Currency         string              `json:"currency" db:"currency"`
	TotalAmount      decimal.Decimal     `json:"total_amount" db:"total_amount"`
	DiscountedAmount decimal.Decimal     `json:"discounted_amount" db:"discounted_amount"`
	LateFeeAmount    decimal.Decimal     `json:"late_fee_amount" db:"late_fee_amount"`
	AmountDue        decimal.Decimal     `json:"amount_due" db:"amount_due"`
	DueDate          time.Time           `json:"due_date" db:"due_date"`
	InvoiceStatus    types.InvoiceStatus `json:"invoice_status" db:"invoice_status"`
	PaymentStatus    types.PaymentStatus `json:"payment_status" db:"payment_status"`
	types.BaseModel
}

// IsPaid reports whether the invoice has been fully paid
func (i *Invoice) IsPaid() bool {
	return i.PaymentStatus == types.PaymentStatusPaid
}

// IsOverdue reports whether the invoice is unpaid past its due date at asOf
func (i *Invoice) IsOverdue(asOf time.Time) bool {
	if i.IsPaid() || i.InvoiceStatus == types.InvoiceStatusVoided {
		return false
	}
	return asOf.After(i.DueDate)
}

// RecomputeAmountDue derives the amount due from the total and the current
// incentive adjustments.
func (i *Invoice) RecomputeAmountDue() {
	i.AmountDue = i.TotalAmount.Sub(i.DiscountedAmount).Add(i.LateFeeAmount)
}
