package invoice

import (
	"context"
	"time"

	"github.com/recivo/recivo/internal/types"
	"github.com/shopspring/decimal"
)

// Repository defines the interface for invoice projection access
type Repository interface {
	Create(ctx context.Context, inv *Invoice) error
	Get(ctx context.Context, id string) (*Invoice, error)
	Update(ctx context.Context, inv *Invoice) error

	// ApplyDiscountAdjustment sets the invoice's discounted amount and
	// recomputes the amount due.
	ApplyDiscountAdjustment(ctx context.Context, id string, amount decimal.Decimal) error

	// ApplyLateFeeAdjustment sets the invoice's late-fee amount and
	// recomputes the amount due.
	ApplyLateFeeAdjustment(ctx context.Context, id string, amount decimal.Decimal) error

	// RevertAdjustment zeroes the adjustment of the given rule type and
	// recomputes the amount due.
	RevertAdjustment(ctx context.Context, id string, ruleType types.RuleType) error

	// UpdatePaymentStatus moves the invoice's payment status.
	UpdatePaymentStatus(ctx context.Context, id string, status types.PaymentStatus) error

	// ListOverdue returns unpaid, non-voided invoices whose due date is
	// before asOf.
	ListOverdue(ctx context.Context, organizationID string, asOf time.Time) ([]*Invoice, error)
}
