package testutil

import (
	"context"
	"time"

	"github.com/recivo/recivo/internal/domain/invoice"
	ierr "github.com/recivo/recivo/internal/errors"
	"github.com/recivo/recivo/internal/types"
	"github.com/shopspring/decimal"
)

// InMemoryInvoiceStore implements invoice.Repository
type InMemoryInvoiceStore struct {
	*InMemoryStore[*invoice.Invoice]
}

// NewInMemoryInvoiceStore creates a new in-memory invoice store
func NewInMemoryInvoiceStore() *InMemoryInvoiceStore {
	return &InMemoryInvoiceStore{
		InMemoryStore: NewInMemoryStore[*invoice.Invoice](),
	}
}

func copyInvoice(inv *invoice.Invoice) *invoice.Invoice {
	if inv == nil {
		return nil
	}
	copied := *inv
	return &copied
}

func (s *InMemoryInvoiceStore) Create(ctx context.Context, inv *invoice.Invoice) error {
	if inv == nil {
		return ierr.NewError("invoice cannot be nil").
			WithHint("Invoice cannot be nil").
			Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, inv.ID, copyInvoice(inv))
}

func (s *InMemoryInvoiceStore) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	inv, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("invoice not found").
			WithHint("Invoice not found").
			WithReportableDetails(map[string]interface{}{
				"id": id,
			}).
			Mark(ierr.ErrNotFound)
	}
	return copyInvoice(inv), nil
}

func (s *InMemoryInvoiceStore) Update(ctx context.Context, inv *invoice.Invoice) error {
	if err := s.InMemoryStore.Update(ctx, inv.ID, copyInvoice(inv)); err != nil {
		return ierr.NewError("invoice not found").
			WithHint("Invoice not found").
			WithReportableDetails(map[string]interface{}{
				"id": inv.ID,
			}).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (s *InMemoryInvoiceStore) ApplyDiscountAdjustment(ctx context.Context, id string, amount decimal.Decimal) error {
	inv, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	inv.DiscountedAmount = amount
	inv.RecomputeAmountDue()
	return s.Update(ctx, inv)
}

func (s *InMemoryInvoiceStore) ApplyLateFeeAdjustment(ctx context.Context, id string, amount decimal.Decimal) error {
	inv, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	inv.LateFeeAmount = amount
	inv.RecomputeAmountDue()
	return s.Update(ctx, inv)
}

func (s *InMemoryInvoiceStore) RevertAdjustment(ctx context.Context, id string, ruleType types.RuleType) error {
	inv, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	switch ruleType {
	case types.RuleTypeDiscount:
		inv.DiscountedAmount = decimal.Zero
	case types.RuleTypeLateFee:
		inv.LateFeeAmount = decimal.Zero
	default:
		return ierr.NewError("invalid rule type").
			WithHint("Rule type must be discount or late_fee").
			WithReportableDetails(map[string]interface{}{
				"rule_type": ruleType,
			}).
			Mark(ierr.ErrValidation)
	}
	inv.RecomputeAmountDue()
	return s.Update(ctx, inv)
}

func (s *InMemoryInvoiceStore) UpdatePaymentStatus(ctx context.Context, id string, status types.PaymentStatus) error {
	inv, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	inv.PaymentStatus = status
	return s.Update(ctx, inv)
}

func (s *InMemoryInvoiceStore) ListOverdue(ctx context.Context, organizationID string, asOf time.Time) ([]*invoice.Invoice, error) {
	invoices, err := s.List(ctx, nil,
		func(_ context.Context, inv *invoice.Invoice, _ interface{}) bool {
			return inv.OrganizationID == organizationID &&
				inv.Status != types.StatusDeleted &&
				inv.IsOverdue(asOf)
		},
		func(i, j *invoice.Invoice) bool {
			return i.ID < j.ID
		},
	)
	if err != nil {
		return nil, err
	}
	out := make([]*invoice.Invoice, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, copyInvoice(inv))
	}
	return out, nil
}
