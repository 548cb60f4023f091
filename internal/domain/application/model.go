package application

import (
	"time"

	ierr "github.com/recivo/recivo/internal/errors"
	"github.com/recivo/recivo/internal/types"
	"github.com/shopspring/decimal"
)

// Application is the recorded fact that a specific rule was evaluated and
// its monetary effect applied to a specific invoice. At most one
// application per (invoice, rule type) may be in an active state at a time.
type Application struct {
	ID                string                  `json:"id" db:"id"`
	RuleID            string                  `json:"rule_id" db:"rule_id"`
	RuleType          types.RuleType          `json:"rule_type" db:"rule_type"`
	InvoiceID         string                  `json:"invoice_id" db:"invoice_id"`
	TransactionID     *string                 `json:"transaction_id,omitempty" db:"transaction_id"`
	OriginalAmount    decimal.Decimal         `json:"original_amount" db:"original_amount"`
	AdjustmentAmount  decimal.Decimal         `json:"adjustment_amount" db:"adjustment_amount"`
	FinalAmount       decimal.Decimal         `json:"final_amount" db:"final_amount"`
	ApplicationStatus types.ApplicationStatus `json:"application_status" db:"application_status"`
	AppliedAt         time.Time               `json:"applied_at" db:"applied_at"`

	// IdempotencyKey is derived from (invoice, rule type); database-backed
	// stores enforce the one-active-application guard with a partial
	// unique index on it.
	IdempotencyKey string `json:"idempotency_key" db:"idempotency_key"`

	// Late fees only
	DaysOverdue int `json:"days_overdue,omitempty" db:"days_overdue"`

	// Waive bookkeeping
	WaivedAt     *time.Time `json:"waived_at,omitempty" db:"waived_at"`
	WaivedReason *string    `json:"waived_reason,omitempty" db:"waived_reason"`
	WaivedBy     *string    `json:"waived_by,omitempty" db:"waived_by"`

	types.BaseModel
}

// IsActive reports whether this application holds the per-invoice guard
func (a *Application) IsActive() bool {
	return a.ApplicationStatus.IsActive()
}

// Waive transitions the application to waived. Allowed from pending or
// applied only, and only for late fees.
func (a *Application) Waive(reason string, by string, at time.Time) error {
	if a.RuleType != types.RuleTypeLateFee {
		return ierr.NewError("only late fee applications can be waived").
			WithHint("Discount applications expire instead of being waived").
			WithReportableDetails(map[string]any{
				"application_id": a.ID,
				"rule_type":      a.RuleType,
			}).
			Mark(ierr.ErrInvalidOperation)
	}
	if !a.ApplicationStatus.IsActive() {
		return ierr.NewError("application cannot be waived from its current status").
			WithHint("Only pending or applied applications can be waived").
			WithReportableDetails(map[string]any{
				"application_id": a.ID,
				"status":         a.ApplicationStatus,
			}).
			Mark(ierr.ErrInvalidOperation)
	}
	a.ApplicationStatus = types.ApplicationStatusWaived
	a.WaivedAt = &at
	a.WaivedReason = &reason
	a.WaivedBy = &by
	return nil
}

// Expire transitions the application to expired. Allowed from pending only.
func (a *Application) Expire() error {
	if a.ApplicationStatus != types.ApplicationStatusPending {
		return ierr.NewError("application cannot be expired from its current status").
			WithHint("Only pending applications can be expired").
			WithReportableDetails(map[string]any{
				"application_id": a.ID,
				"status":         a.ApplicationStatus,
			}).
			Mark(ierr.ErrInvalidOperation)
	}
	a.ApplicationStatus = types.ApplicationStatusExpired
	return nil
}

// MarkPaid transitions the application to paid once the owning transaction
// settles. Allowed from applied only.
func (a *Application) MarkPaid(transactionID string) error {
	if a.ApplicationStatus != types.ApplicationStatusApplied {
		return ierr.NewError("application cannot be marked paid from its current status").
			WithHint("Only applied applications can be marked paid").
			WithReportableDetails(map[string]any{
				"application_id": a.ID,
				"status":         a.ApplicationStatus,
			}).
			Mark(ierr.ErrInvalidOperation)
	}
	a.ApplicationStatus = types.ApplicationStatusPaid
	a.TransactionID = &transactionID
	return nil
}
