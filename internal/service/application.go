package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/recivo/recivo/internal/domain/application"
	"github.com/recivo/recivo/internal/domain/rule"
	"github.com/recivo/recivo/internal/idempotency"
	"github.com/recivo/recivo/internal/types"
	"github.com/recivo/recivo/internal/webhook/payload"
	"github.com/samber/lo"
)

// ApplyDiscountResult is the typed outcome of a discount application.
// Ineligibility is an expected outcome, not an error. AlreadyApplied marks
// redeliveries: the existing application is returned and the caller treats
// the call as success.
type ApplyDiscountResult struct {
	Eligible       bool
	Reason         string
	AlreadyApplied bool
	Application    *application.Application
	Calculation    rule.DiscountResult
}

// ApplyLateFeeResult is the typed outcome of a late-fee application.
type ApplyLateFeeResult struct {
	Eligible       bool
	Reason         string
	AlreadyApplied bool
	Application    *application.Application
	Calculation    rule.LateFeeResult
}

// ApplicationService is the ledger of rule applications: it records each
// application idempotently, mutates the invoice projection, and emits the
// corresponding domain events.
type ApplicationService interface {
	// ApplyDiscount re-derives the discount for the invoice and rule at
	// paymentDate and records it. Exactly one invoice mutation happens no
	// matter how many times the same payment event is delivered.
	ApplyDiscount(ctx context.Context, invoiceID string, ruleID string, transactionID *string, paymentDate time.Time) (*ApplyDiscountResult, error)

	// ApplyDiscountForRule is ApplyDiscount with the rule supplied by the
	// caller, used when an experiment variant substitutes rule
	// configuration. The rule's id must reference a stored rule.
	ApplyDiscountForRule(ctx context.Context, invoiceID string, r *rule.DiscountRule, transactionID *string, paymentDate time.Time) (*ApplyDiscountResult, error)

	// ApplyLateFee re-derives the fee for the invoice and rule at asOf and
	// records it.
	ApplyLateFee(ctx context.Context, invoiceID string, ruleID string, asOf time.Time) (*ApplyLateFeeResult, error)

	// ApplyLateFeeForRule is ApplyLateFee with the rule supplied by the caller.
	ApplyLateFeeForRule(ctx context.Context, invoiceID string, r *rule.LateFeeRule, asOf time.Time) (*ApplyLateFeeResult, error)

	// Waive moves a late-fee application to waived and reverts the
	// invoice's fee adjustment.
	Waive(ctx context.Context, applicationID string, reason string, by string) (*application.Application, error)

	// Expire moves a pending discount application to expired and reverts
	// the invoice's discount adjustment.
	Expire(ctx context.Context, applicationID string) (*application.Application, error)

	// MarkPaid finalizes an applied application once its transaction settles.
	MarkPaid(ctx context.Context, applicationID string, transactionID string) (*application.Application, error)

	GetApplication(ctx context.Context, id string) (*application.Application, error)
	ListByInvoice(ctx context.Context, invoiceID string) ([]*application.Application, error)
}

type applicationService struct {
	ServiceParams
}

// NewApplicationService creates a new application ledger service
func NewApplicationService(params ServiceParams) ApplicationService {
	return &applicationService{
		ServiceParams: params,
	}
}

func (s *applicationService) ApplyDiscount(ctx context.Context, invoiceID string, ruleID string, transactionID *string, paymentDate time.Time) (*ApplyDiscountResult, error) {
	r, err := s.RuleRepo.GetDiscountRule(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	return s.ApplyDiscountForRule(ctx, invoiceID, r, transactionID, paymentDate)
}

func (s *applicationService) ApplyDiscountForRule(ctx context.Context, invoiceID string, r *rule.DiscountRule, transactionID *string, paymentDate time.Time) (*ApplyDiscountResult, error) {
	inv, err := s.InvoiceRepo.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	if inv.IsPaid() {
		return &ApplyDiscountResult{Eligible: false, Reason: "invoice_already_paid"}, nil
	}

	calc := r.Calculate(inv.TotalAmount, paymentDate, inv.DueDate)
	if !calc.Eligible {
		return &ApplyDiscountResult{Eligible: false, Reason: calc.Reason, Calculation: calc}, nil
	}

	app := &application.Application{
		ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_APPLICATION),
		RuleID:            r.ID,
		RuleType:          types.RuleTypeDiscount,
		InvoiceID:         inv.ID,
		TransactionID:     transactionID,
		OriginalAmount:    inv.TotalAmount,
		AdjustmentAmount:  calc.DiscountAmount,
		FinalAmount:       calc.FinalAmount,
		ApplicationStatus: types.ApplicationStatusApplied,
		AppliedAt:         paymentDate,
		IdempotencyKey:    s.idempotencyKey(idempotency.ScopeDiscountApplication, inv.ID, types.RuleTypeDiscount),
		BaseModel:         types.GetDefaultBaseModel(ctx),
	}
	app.OrganizationID = inv.OrganizationID

	winner, inserted, err := s.ApplicationRepo.CreateIfAbsent(ctx, app)
	if err != nil {
		return nil, err
	}
	if !inserted {
		// Redelivery: the guard tripped, the earlier application stands.
		s.Logger.Infow("discount already applied to invoice",
			"invoice_id", inv.ID,
			"application_id", winner.ID,
		)
		return &ApplyDiscountResult{
			Eligible:       true,
			AlreadyApplied: true,
			Application:    winner,
			Calculation:    calc,
		}, nil
	}

	if err := s.InvoiceRepo.ApplyDiscountAdjustment(ctx, inv.ID, calc.DiscountAmount); err != nil {
		return nil, err
	}

	s.publishWebhookEvent(ctx, types.WebhookEventDiscountApplied, inv.OrganizationID, payload.DiscountAppliedPayload{
		InvoiceID:      inv.ID,
		TransactionID:  lo.FromPtr(transactionID),
		ApplicationID:  app.ID,
		RuleID:         r.ID,
		DiscountAmount: calc.DiscountAmount,
		FinalAmount:    calc.FinalAmount,
	})

	return &ApplyDiscountResult{
		Eligible:    true,
		Application: app,
		Calculation: calc,
	}, nil
}

func (s *applicationService) ApplyLateFee(ctx context.Context, invoiceID string, ruleID string, asOf time.Time) (*ApplyLateFeeResult, error) {
	r, err := s.RuleRepo.GetLateFeeRule(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	return s.ApplyLateFeeForRule(ctx, invoiceID, r, asOf)
}

func (s *applicationService) ApplyLateFeeForRule(ctx context.Context, invoiceID string, r *rule.LateFeeRule, asOf time.Time) (*ApplyLateFeeResult, error) {
	inv, err := s.InvoiceRepo.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	if inv.IsPaid() {
		return &ApplyLateFeeResult{Eligible: false, Reason: "invoice_already_paid"}, nil
	}

	calc := r.Calculate(inv.TotalAmount, asOf, inv.DueDate)
	if !calc.Eligible {
		return &ApplyLateFeeResult{Eligible: false, Reason: calc.Reason, Calculation: calc}, nil
	}

	app := &application.Application{
		ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_APPLICATION),
		RuleID:            r.ID,
		RuleType:          types.RuleTypeLateFee,
		InvoiceID:         inv.ID,
		OriginalAmount:    inv.TotalAmount,
		AdjustmentAmount:  calc.FeeAmount,
		FinalAmount:       calc.TotalWithFee,
		ApplicationStatus: types.ApplicationStatusApplied,
		AppliedAt:         asOf,
		DaysOverdue:       calc.DaysOverdue,
		IdempotencyKey:    s.idempotencyKey(idempotency.ScopeLateFeeApplication, inv.ID, types.RuleTypeLateFee),
		BaseModel:         types.GetDefaultBaseModel(ctx),
	}
	app.OrganizationID = inv.OrganizationID

	winner, inserted, err := s.ApplicationRepo.CreateIfAbsent(ctx, app)
	if err != nil {
		return nil, err
	}
	if !inserted {
		s.Logger.Infow("late fee already applied to invoice",
			"invoice_id", inv.ID,
			"application_id", winner.ID,
		)
		return &ApplyLateFeeResult{
			Eligible:       true,
			AlreadyApplied: true,
			Application:    winner,
			Calculation:    calc,
		}, nil
	}

	if err := s.InvoiceRepo.ApplyLateFeeAdjustment(ctx, inv.ID, calc.FeeAmount); err != nil {
		return nil, err
	}

	s.publishWebhookEvent(ctx, types.WebhookEventLateFeeApplied, inv.OrganizationID, payload.LateFeeAppliedPayload{
		InvoiceID:     inv.ID,
		ApplicationID: app.ID,
		RuleID:        r.ID,
		FeeAmount:     calc.FeeAmount,
		TotalAmount:   calc.TotalWithFee,
		DaysOverdue:   calc.DaysOverdue,
	})

	return &ApplyLateFeeResult{
		Eligible:    true,
		Application: app,
		Calculation: calc,
	}, nil
}

func (s *applicationService) Waive(ctx context.Context, applicationID string, reason string, by string) (*application.Application, error) {
	app, err := s.ApplicationRepo.Get(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	if err := app.Waive(reason, by, time.Now().UTC()); err != nil {
		return nil, err
	}

	if err := s.ApplicationRepo.Update(ctx, app); err != nil {
		return nil, err
	}

	if err := s.InvoiceRepo.RevertAdjustment(ctx, app.InvoiceID, app.RuleType); err != nil {
		return nil, err
	}

	s.publishWebhookEvent(ctx, types.WebhookEventLateFeeWaived, app.OrganizationID, payload.LateFeeWaivedPayload{
		InvoiceID:     app.InvoiceID,
		ApplicationID: app.ID,
		WaivedBy:      by,
		WaivedReason:  reason,
	})

	return app, nil
}

func (s *applicationService) Expire(ctx context.Context, applicationID string) (*application.Application, error) {
	app, err := s.ApplicationRepo.Get(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	if err := app.Expire(); err != nil {
		return nil, err
	}

	if err := s.ApplicationRepo.Update(ctx, app); err != nil {
		return nil, err
	}

	if err := s.InvoiceRepo.RevertAdjustment(ctx, app.InvoiceID, app.RuleType); err != nil {
		return nil, err
	}

	s.publishWebhookEvent(ctx, types.WebhookEventDiscountExpired, app.OrganizationID, payload.DiscountExpiredPayload{
		InvoiceID:     app.InvoiceID,
		ApplicationID: app.ID,
	})

	return app, nil
}

func (s *applicationService) MarkPaid(ctx context.Context, applicationID string, transactionID string) (*application.Application, error) {
	app, err := s.ApplicationRepo.Get(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	if err := app.MarkPaid(transactionID); err != nil {
		return nil, err
	}

	if err := s.ApplicationRepo.Update(ctx, app); err != nil {
		return nil, err
	}

	s.publishWebhookEvent(ctx, types.WebhookEventApplicationPaid, app.OrganizationID, payload.ApplicationPaidPayload{
		InvoiceID:     app.InvoiceID,
		ApplicationID: app.ID,
		TransactionID: transactionID,
	})

	return app, nil
}

func (s *applicationService) GetApplication(ctx context.Context, id string) (*application.Application, error) {
	return s.ApplicationRepo.Get(ctx, id)
}

func (s *applicationService) ListByInvoice(ctx context.Context, invoiceID string) ([]*application.Application, error) {
	return s.ApplicationRepo.ListByInvoice(ctx, invoiceID)
}

// idempotencyKey derives the deterministic key for an application attempt.
// Stores backed by a database use it as the unique-constraint column.
func (s *applicationService) idempotencyKey(scope idempotency.Scope, invoiceID string, ruleType types.RuleType) string {
	return s.IdempotencyGen.GenerateKey(scope, map[string]interface{}{
		"invoice_id": invoiceID,
		"rule_type":  string(ruleType),
	})
}

func (s *applicationService) publishWebhookEvent(ctx context.Context, eventName string, organizationID string, body any) {
	webhookPayload, err := json.Marshal(body)
	if err != nil {
		s.Logger.Errorw("failed to marshal webhook payload", "error", err)
		return
	}

	webhookEvent := &types.WebhookEvent{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WEBHOOK_EVENT),
		EventName:      eventName,
		OrganizationID: organizationID,
		UserID:         types.GetUserID(ctx),
		Timestamp:      time.Now().UTC(),
		Payload:        json.RawMessage(webhookPayload),
	}
	if err := s.WebhookPublisher.PublishWebhook(ctx, webhookEvent); err != nil {
		s.Logger.Errorf("failed to publish %s event: %v", webhookEvent.EventName, err)
	}
}

