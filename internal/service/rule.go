package service

import (
	"context"
	"time"

	"github.com/recivo/recivo/internal/cache"
	"github.com/recivo/recivo/internal/domain/invoice"
	"github.com/recivo/recivo/internal/domain/rule"
	ierr "github.com/recivo/recivo/internal/errors"
	"github.com/recivo/recivo/internal/types"
)

// RuleService defines the interface for incentive rule operations,
// including the priority-ordered catalog matching used by the engine.
type RuleService interface {
	CreateDiscountRule(ctx context.Context, r *rule.DiscountRule) (*rule.DiscountRule, error)
	GetDiscountRule(ctx context.Context, id string) (*rule.DiscountRule, error)
	UpdateDiscountRule(ctx context.Context, r *rule.DiscountRule) (*rule.DiscountRule, error)
	ListDiscountRules(ctx context.Context) ([]*rule.DiscountRule, error)

	CreateLateFeeRule(ctx context.Context, r *rule.LateFeeRule) (*rule.LateFeeRule, error)
	GetLateFeeRule(ctx context.Context, id string) (*rule.LateFeeRule, error)
	UpdateLateFeeRule(ctx context.Context, r *rule.LateFeeRule) (*rule.LateFeeRule, error)
	ListLateFeeRules(ctx context.Context) ([]*rule.LateFeeRule, error)

	// FindMatchingDiscountRule returns the highest-priority discount rule
	// matching the invoice for a payment on paymentDate, or nil when no
	// rule matches. No match is not an error.
	FindMatchingDiscountRule(ctx context.Context, inv *invoice.Invoice, paymentDate time.Time) (*rule.DiscountRule, error)

	// FindMatchingLateFeeRule returns the highest-priority late-fee rule
	// matching the invoice at now, or nil when no rule matches.
	FindMatchingLateFeeRule(ctx context.Context, inv *invoice.Invoice, now time.Time) (*rule.LateFeeRule, error)
}

type ruleService struct {
	ServiceParams
}

// NewRuleService creates a new rule service
func NewRuleService(params ServiceParams) RuleService {
	return &ruleService{
		ServiceParams: params,
	}
}

func (s *ruleService) CreateDiscountRule(ctx context.Context, r *rule.DiscountRule) (*rule.DiscountRule, error) {
	if err := s.validateDiscountRule(r); err != nil {
		return nil, err
	}

	r.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_DISCOUNT_RULE)
	r.BaseModel = types.GetDefaultBaseModel(ctx)
	if r.RuleStatus == "" {
		r.RuleStatus = types.RuleStatusActive
	}

	if err := s.RuleRepo.CreateDiscountRule(ctx, r); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to create discount rule").
			Mark(ierr.ErrInternal)
	}

	s.invalidateRuleCache(ctx, cache.PrefixDiscountRule, r.OrganizationID)
	return r, nil
}

func (s *ruleService) GetDiscountRule(ctx context.Context, id string) (*rule.DiscountRule, error) {
	return s.RuleRepo.GetDiscountRule(ctx, id)
}

func (s *ruleService) UpdateDiscountRule(ctx context.Context, r *rule.DiscountRule) (*rule.DiscountRule, error) {
	if err := s.validateDiscountRule(r); err != nil {
		return nil, err
	}

	existing, err := s.RuleRepo.GetDiscountRule(ctx, r.ID)
	if err != nil {
		return nil, err
	}

	r.BaseModel = existing.BaseModel
	r.UpdatedAt = time.Now().UTC()
	r.UpdatedBy = types.GetUserID(ctx)

	if err := s.RuleRepo.UpdateDiscountRule(ctx, r); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to update discount rule").
			Mark(ierr.ErrInternal)
	}

	s.invalidateRuleCache(ctx, cache.PrefixDiscountRule, r.OrganizationID)
	return r, nil
}

func (s *ruleService) ListDiscountRules(ctx context.Context) ([]*rule.DiscountRule, error) {
	return s.RuleRepo.ListDiscountRules(ctx, types.GetOrganizationID(ctx))
}

func (s *ruleService) CreateLateFeeRule(ctx context.Context, r *rule.LateFeeRule) (*rule.LateFeeRule, error) {
	if err := s.validateLateFeeRule(r); err != nil {
		return nil, err
	}

	r.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_LATE_FEE_RULE)
	r.BaseModel = types.GetDefaultBaseModel(ctx)
	if r.RuleStatus == "" {
		r.RuleStatus = types.RuleStatusActive
	}

	if err := s.RuleRepo.CreateLateFeeRule(ctx, r); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to create late fee rule").
			Mark(ierr.ErrInternal)
	}

	s.invalidateRuleCache(ctx, cache.PrefixLateFeeRule, r.OrganizationID)
	return r, nil
}

func (s *ruleService) GetLateFeeRule(ctx context.Context, id string) (*rule.LateFeeRule, error) {
	return s.RuleRepo.GetLateFeeRule(ctx, id)
}

func (s *ruleService) UpdateLateFeeRule(ctx context.Context, r *rule.LateFeeRule) (*rule.LateFeeRule, error) {
	if err := s.validateLateFeeRule(r); err != nil {
		return nil, err
	}

	existing, err := s.RuleRepo.GetLateFeeRule(ctx, r.ID)
	if err != nil {
		return nil, err
	}

	r.BaseModel = existing.BaseModel
	r.UpdatedAt = time.Now().UTC()
	r.UpdatedBy = types.GetUserID(ctx)

	if err := s.RuleRepo.UpdateLateFeeRule(ctx, r); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to update late fee rule").
			Mark(ierr.ErrInternal)
	}

	s.invalidateRuleCache(ctx, cache.PrefixLateFeeRule, r.OrganizationID)
	return r, nil
}

func (s *ruleService) ListLateFeeRules(ctx context.Context) ([]*rule.LateFeeRule, error) {
	return s.RuleRepo.ListLateFeeRules(ctx, types.GetOrganizationID(ctx))
}

// FindMatchingDiscountRule walks active rules in priority order (priority
// descending, id ascending on ties) and returns the first rule whose
// currency, amount bounds and early-payment trigger all match.
func (s *ruleService) FindMatchingDiscountRule(ctx context.Context, inv *invoice.Invoice, paymentDate time.Time) (*rule.DiscountRule, error) {
	if inv.IsPaid() {
		return nil, nil
	}

	rules, err := s.activeDiscountRules(ctx, inv.OrganizationID, paymentDate)
	if err != nil {
		return nil, err
	}

	for _, r := range rules {
		if !r.MatchesCurrency(inv.Currency) {
			continue
		}
		if !r.MatchesAmount(inv.TotalAmount) {
			continue
		}
		if !r.MatchesTrigger(paymentDate, inv.DueDate) {
			continue
		}
		return r, nil
	}
	return nil, nil
}

// FindMatchingLateFeeRule walks active rules in priority order and returns
// the first whose currency, minimum amount and grace period all match.
func (s *ruleService) FindMatchingLateFeeRule(ctx context.Context, inv *invoice.Invoice, now time.Time) (*rule.LateFeeRule, error) {
	if inv.IsPaid() {
		return nil, nil
	}

	rules, err := s.activeLateFeeRules(ctx, inv.OrganizationID, now)
	if err != nil {
		return nil, err
	}

	for _, r := range rules {
		if !r.MatchesCurrency(inv.Currency) {
			continue
		}
		if !r.MatchesAmount(inv.TotalAmount) {
			continue
		}
		if !r.MatchesOverdue(now, inv.DueDate) {
			continue
		}
		return r, nil
	}
	return nil, nil
}

func (s *ruleService) activeDiscountRules(ctx context.Context, organizationID string, now time.Time) ([]*rule.DiscountRule, error) {
	key := cache.GenerateKey(cache.PrefixDiscountRule, organizationID)
	if cached, ok := s.Cache.Get(ctx, key); ok {
		if rules, ok := cached.([]*rule.DiscountRule); ok {
			return filterWithinValidity(rules, now), nil
		}
	}

	rules, err := s.RuleRepo.FindActiveDiscountRules(ctx, organizationID, now)
	if err != nil {
		return nil, err
	}

	s.Cache.Set(ctx, key, rules, cache.DefaultExpiration)
	return filterWithinValidity(rules, now), nil
}

func (s *ruleService) activeLateFeeRules(ctx context.Context, organizationID string, now time.Time) ([]*rule.LateFeeRule, error) {
	key := cache.GenerateKey(cache.PrefixLateFeeRule, organizationID)
	if cached, ok := s.Cache.Get(ctx, key); ok {
		if rules, ok := cached.([]*rule.LateFeeRule); ok {
			return filterLateFeeWithinValidity(rules, now), nil
		}
	}

	rules, err := s.RuleRepo.FindActiveLateFeeRules(ctx, organizationID, now)
	if err != nil {
		return nil, err
	}

	s.Cache.Set(ctx, key, rules, cache.DefaultExpiration)
	return filterLateFeeWithinValidity(rules, now), nil
}

// The cache holds the org's enabled active rules regardless of validity
// window, so entries survive a rule's ValidFrom onset; the window is
// re-checked against the evaluation instant on every read.
func filterWithinValidity(rules []*rule.DiscountRule, now time.Time) []*rule.DiscountRule {
	result := make([]*rule.DiscountRule, 0, len(rules))
	for _, r := range rules {
		if r.IsWithinValidity(now) {
			result = append(result, r)
		}
	}
	return result
}

func filterLateFeeWithinValidity(rules []*rule.LateFeeRule, now time.Time) []*rule.LateFeeRule {
	result := make([]*rule.LateFeeRule, 0, len(rules))
	for _, r := range rules {
		if r.IsWithinValidity(now) {
			result = append(result, r)
		}
	}
	return result
}

func (s *ruleService) invalidateRuleCache(ctx context.Context, prefix string, organizationID string) {
	s.Cache.Delete(ctx, cache.GenerateKey(prefix, organizationID))
}

func (s *ruleService) validateDiscountRule(r *rule.DiscountRule) error {
	if r.Name == "" {
		return ierr.NewError("rule name is required").
			WithHint("Rule name is required").
			Mark(ierr.ErrValidation)
	}
	if r.Value.IsNegative() || r.Value.IsZero() {
		return ierr.NewError("rule value must be positive").
			WithHint("Rule value must be positive").
			WithReportableDetails(map[string]any{
				"value": r.Value,
			}).
			Mark(ierr.ErrValidation)
	}
	switch r.ValueType {
	case types.RuleValueTypePercentage, types.RuleValueTypeFixedAmount:
	default:
		return ierr.NewError("invalid discount value type").
			WithHint("Discount rules support percentage or fixed_amount values").
			WithReportableDetails(map[string]any{
				"value_type": r.ValueType,
			}).
			Mark(ierr.ErrValidation)
	}
	if r.TriggerType == types.DiscountTriggerEarlyPayment {
		if r.TriggerConditions.DaysBeforeDueDate == nil || *r.TriggerConditions.DaysBeforeDueDate < 0 {
			return ierr.NewError("early payment rules require days_before_due_date").
				WithHint("Set a non-negative days_before_due_date trigger condition").
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}

func (s *ruleService) validateLateFeeRule(r *rule.LateFeeRule) error {
	if r.Name == "" {
		return ierr.NewError("rule name is required").
			WithHint("Rule name is required").
			Mark(ierr.ErrValidation)
	}
	if r.Value.IsNegative() || r.Value.IsZero() {
		return ierr.NewError("rule value must be positive").
			WithHint("Rule value must be positive").
			WithReportableDetails(map[string]any{
				"value": r.Value,
			}).
			Mark(ierr.ErrValidation)
	}
	if r.GracePeriodDays < 0 {
		return ierr.NewError("grace period cannot be negative").
			WithHint("Grace period days must be zero or greater").
			Mark(ierr.ErrValidation)
	}
	if err := r.Frequency.Validate(); err != nil {
		return err
	}
	switch r.ValueType {
	case types.RuleValueTypePercentage, types.RuleValueTypeFixedAmount, types.RuleValueTypeCompoundPercentage:
	default:
		return ierr.NewError("invalid late fee value type").
			WithHint("Late fee rules support percentage, fixed_amount or compound_percentage values").
			WithReportableDetails(map[string]any{
				"value_type": r.ValueType,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
