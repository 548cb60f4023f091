package service

import (
	"context"
	"sync"
	"time"

	"github.com/recivo/recivo/internal/domain/experiment"
	"github.com/recivo/recivo/internal/domain/invoice"
	"github.com/recivo/recivo/internal/domain/rule"
	ierr "github.com/recivo/recivo/internal/errors"
	"github.com/recivo/recivo/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"
)

// PaymentProcessingEvent arrives when a payment attempt starts for an
// invoice. Delivery is at-least-once.
type PaymentProcessingEvent struct {
	InvoiceID     string          `json:"invoice_id"`
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentDate   time.Time       `json:"payment_date"`
}

// PaymentCompletedEvent arrives when the payment transaction settles.
type PaymentCompletedEvent struct {
	InvoiceID     string `json:"invoice_id"`
	TransactionID string `json:"transaction_id"`
}

// SweepResult summarizes one late-fee sweep over an organization.
type SweepResult struct {
	Processed int `json:"processed"`
	Applied   int `json:"applied"`
	Skipped   int `json:"skipped"`
}

// IncentiveService orchestrates the engine: on payment events it consults
// the experiment assignor, the rule catalog and the calculators, and asks
// the application ledger to record the outcome.
type IncentiveService interface {
	// HandlePaymentProcessing evaluates and applies an early-payment
	// discount for the invoice, substituting an experimental rule variant
	// when an active discount-strategy experiment targets the invoice.
	HandlePaymentProcessing(ctx context.Context, ev PaymentProcessingEvent) (*ApplyDiscountResult, error)

	// HandlePaymentCompleted finalizes the invoice's active applications,
	// marks the invoice paid and records experiment conversions.
	HandlePaymentCompleted(ctx context.Context, ev PaymentCompletedEvent) error

	// ProcessLateFees sweeps all overdue invoices of the organization,
	// applying late fees per invoice. Per-invoice failures are logged and
	// counted, never aborting the sweep.
	ProcessLateFees(ctx context.Context, organizationID string) (*SweepResult, error)
}

type incentiveService struct {
	ServiceParams

	ruleService        RuleService
	experimentService  ExperimentService
	applicationService ApplicationService
}

// NewIncentiveService creates a new incentive orchestrator
func NewIncentiveService(params ServiceParams) IncentiveService {
	return &incentiveService{
		ServiceParams:      params,
		ruleService:        NewRuleService(params),
		experimentService:  NewExperimentService(params),
		applicationService: NewApplicationService(params),
	}
}

func (s *incentiveService) HandlePaymentProcessing(ctx context.Context, ev PaymentProcessingEvent) (*ApplyDiscountResult, error) {
	inv, err := s.InvoiceRepo.Get(ctx, ev.InvoiceID)
	if err != nil {
		return nil, err
	}

	matched, err := s.ruleService.FindMatchingDiscountRule(ctx, inv, ev.PaymentDate)
	if err != nil {
		return nil, err
	}
	if matched == nil {
		return &ApplyDiscountResult{Eligible: false, Reason: "no_matching_rule"}, nil
	}

	effective := matched
	var exp *experiment.Experiment
	var variant *experiment.Variant

	exp, err = s.experimentService.FindEligible(ctx, types.ExperimentTypeDiscountStrategy, inv)
	if err != nil {
		return nil, err
	}
	if exp != nil {
		variant = s.experimentService.AssignVariant(exp, inv.ID)
		if variant != nil {
			effective = overlayDiscountRule(matched, variant.Configuration)
		}
	}

	result, err := s.applicationService.ApplyDiscountForRule(ctx, inv.ID, effective, lo.ToPtr(ev.TransactionID), ev.PaymentDate)
	if err != nil {
		return nil, err
	}

	// Exposure is recorded once per invoice: only when this delivery won
	// the insert, so redeliveries do not inflate the metric.
	if exp != nil && variant != nil && result.Application != nil && !result.AlreadyApplied {
		if err := s.experimentService.RecordEvent(ctx, exp.ID, variant.ID, types.ExperimentEventExposure, nil); err != nil {
			s.Logger.Errorw("failed to record exposure event",
				"experiment_id", exp.ID,
				"variant_id", variant.ID,
				"invoice_id", inv.ID,
				"error", err,
			)
		}
	}

	return result, nil
}

func (s *incentiveService) HandlePaymentCompleted(ctx context.Context, ev PaymentCompletedEvent) error {
	inv, err := s.InvoiceRepo.Get(ctx, ev.InvoiceID)
	if err != nil {
		return err
	}

	// Redelivered completion events finalize nothing and record nothing;
	// the first delivery already settled the invoice.
	if inv.IsPaid() {
		s.Logger.Infow("payment already completed for invoice",
			"invoice_id", inv.ID,
			"transaction_id", ev.TransactionID,
		)
		return nil
	}

	paidAmount := inv.AmountDue

	for _, ruleType := range []types.RuleType{types.RuleTypeDiscount, types.RuleTypeLateFee} {
		app, err := s.ApplicationRepo.GetActiveByInvoice(ctx, inv.ID, ruleType)
		if err != nil {
			if ierr.IsNotFound(err) {
				continue
			}
			return err
		}
		if app.ApplicationStatus != types.ApplicationStatusApplied {
			continue
		}
		if _, err := s.applicationService.MarkPaid(ctx, app.ID, ev.TransactionID); err != nil {
			return err
		}
	}

	if err := s.InvoiceRepo.UpdatePaymentStatus(ctx, inv.ID, types.PaymentStatusPaid); err != nil {
		return err
	}

	// Conversion attribution re-derives the assignment; bucketing is
	// deterministic for the lifetime of the experiment.
	exp, err := s.experimentService.FindEligible(ctx, types.ExperimentTypeDiscountStrategy, inv)
	if err != nil {
		return err
	}
	if exp != nil {
		if variant := s.experimentService.AssignVariant(exp, inv.ID); variant != nil {
			if err := s.experimentService.RecordEvent(ctx, exp.ID, variant.ID, types.ExperimentEventConversion, lo.ToPtr(paidAmount)); err != nil {
				s.Logger.Errorw("failed to record conversion event",
					"experiment_id", exp.ID,
					"variant_id", variant.ID,
					"invoice_id", inv.ID,
					"error", err,
				)
			}
		}
	}

	return nil
}

func (s *incentiveService) ProcessLateFees(ctx context.Context, organizationID string) (*SweepResult, error) {
	now := time.Now().UTC()

	invoices, err := s.InvoiceRepo.ListOverdue(ctx, organizationID, now)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	result := &SweepResult{Processed: len(invoices)}

	// Work on distinct invoices proceeds in parallel; the ledger's
	// duplicate guard serializes concurrent sweeps over the same invoice.
	p := pool.New().WithMaxGoroutines(s.Config.Sweep.MaxWorkers)
	for _, inv := range invoices {
		p.Go(func() {
			applied, err := s.applyLateFeeToInvoice(ctx, inv, now)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.Logger.Errorw("late fee sweep failed for invoice",
					"invoice_id", inv.ID,
					"organization_id", organizationID,
					"error", err,
				)
				result.Skipped++
				return
			}
			if applied {
				result.Applied++
			} else {
				result.Skipped++
			}
		})
	}
	p.Wait()

	s.Logger.Infow("late fee sweep finished",
		"organization_id", organizationID,
		"processed", result.Processed,
		"applied", result.Applied,
		"skipped", result.Skipped,
	)
	return result, nil
}

// applyLateFeeToInvoice runs the single-invoice late-fee flow, including
// late-fee-strategy experiment substitution. It reports whether the invoice
// ended up with an active fee application.
func (s *incentiveService) applyLateFeeToInvoice(ctx context.Context, inv *invoice.Invoice, now time.Time) (bool, error) {
	matched, err := s.ruleService.FindMatchingLateFeeRule(ctx, inv, now)
	if err != nil {
		return false, err
	}
	if matched == nil {
		return false, nil
	}

	effective := matched
	var exp *experiment.Experiment
	var variant *experiment.Variant

	exp, err = s.experimentService.FindEligible(ctx, types.ExperimentTypeLateFeeStrategy, inv)
	if err != nil {
		return false, err
	}
	if exp != nil {
		variant = s.experimentService.AssignVariant(exp, inv.ID)
		if variant != nil {
			effective = overlayLateFeeRule(matched, variant.Configuration)
		}
	}

	result, err := s.applicationService.ApplyLateFeeForRule(ctx, inv.ID, effective, now)
	if err != nil {
		return false, err
	}
	if !result.Eligible {
		return false, nil
	}

	if exp != nil && variant != nil && !result.AlreadyApplied {
		if err := s.experimentService.RecordEvent(ctx, exp.ID, variant.ID, types.ExperimentEventExposure, nil); err != nil {
			s.Logger.Errorw("failed to record exposure event",
				"experiment_id", exp.ID,
				"variant_id", variant.ID,
				"invoice_id", inv.ID,
				"error", err,
			)
		}
	}

	return true, nil
}

// overlayDiscountRule copies the matched rule and substitutes the variant's
// configuration. The copy keeps the base rule's id so the ledger references
// a stored rule and retries re-derive the identical override.
func overlayDiscountRule(base *rule.DiscountRule, cfg experiment.VariantConfiguration) *rule.DiscountRule {
	r := *base
	if cfg.ValueType != nil {
		r.ValueType = *cfg.ValueType
	}
	if cfg.Value != nil {
		r.Value = *cfg.Value
	}
	if cfg.DaysBeforeDueDate != nil {
		conditions := r.TriggerConditions
		conditions.DaysBeforeDueDate = cfg.DaysBeforeDueDate
		r.TriggerConditions = conditions
	}
	return &r
}

func overlayLateFeeRule(base *rule.LateFeeRule, cfg experiment.VariantConfiguration) *rule.LateFeeRule {
	r := *base
	if cfg.ValueType != nil {
		r.ValueType = *cfg.ValueType
	}
	if cfg.Value != nil {
		r.Value = *cfg.Value
	}
	if cfg.GracePeriodDays != nil {
		r.GracePeriodDays = *cfg.GracePeriodDays
	}
	if cfg.Frequency != nil {
		r.Frequency = *cfg.Frequency
	}
	return &r
}
