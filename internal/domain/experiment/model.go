package experiment

import (
	"time"

	ierr "github.com/recivo/recivo/internal/errors"
	"github.com/recivo/recivo/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// allocationTolerance is how far variant traffic allocations may drift from
// summing to exactly 100.
var allocationTolerance = decimal.NewFromFloat(0.01)

// Experiment represents an A/B experiment over an incentive strategy
type Experiment struct {
	ID                         string                                   `json:"id" db:"id"`
	Name                       string                                   `json:"name" db:"name"`
	ExperimentType             types.ExperimentType                     `json:"experiment_type" db:"experiment_type"`
	ExperimentStatus           types.ExperimentStatus                   `json:"experiment_status" db:"experiment_status"`
	Variants                   []Variant                                `json:"variants" db:"variants"`
	TargetCriteria             *types.TargetCriteria                    `json:"target_criteria,omitempty" db:"target_criteria"`
	Metrics                    Metrics                                  `json:"metrics" db:"metrics"`
	Results                    map[string]map[string]*MetricAccumulator `json:"results" db:"results"`
	IsAutomaticWinnerSelection bool                                     `json:"is_automatic_winner_selection" db:"is_automatic_winner_selection"`
	WinnerVariantID            *string                                  `json:"winner_variant_id,omitempty" db:"winner_variant_id"`
	StartDate                  *time.Time                               `json:"start_date,omitempty" db:"start_date"`
	EndDate                    *time.Time                               `json:"end_date,omitempty" db:"end_date"`
	types.BaseModel
}

// Variant is one arm of an experiment. Declaration order is significant:
// bucketing walks variants in order, and automatic winner ties resolve to
// the earliest declared variant.
type Variant struct {
	ID                string               `json:"id"`
	Name              string               `json:"name"`
	Configuration     VariantConfiguration `json:"configuration"`
	TrafficAllocation decimal.Decimal      `json:"traffic_allocation"`
}

// VariantConfiguration carries the rule overrides an experimental variant
// substitutes for the standard rule. Nil fields fall back to the matched
// rule's own configuration.
type VariantConfiguration struct {
	ValueType         *types.RuleValueType    `json:"value_type,omitempty"`
	Value             *decimal.Decimal        `json:"value,omitempty"`
	DaysBeforeDueDate *int                    `json:"days_before_due_date,omitempty"`
	GracePeriodDays   *int                    `json:"grace_period_days,omitempty"`
	Frequency         *types.LateFeeFrequency `json:"frequency,omitempty"`
}

// Metrics names the experiment's primary metric event bucket and any
// secondary buckets that are recorded but not used for winner selection.
type Metrics struct {
	Primary   string   `json:"primary"`
	Secondary []string `json:"secondary,omitempty"`
}

// MetricAccumulator aggregates recorded events for one variant under one
// event type.
type MetricAccumulator struct {
	Count  int64             `json:"count"`
	Sum    decimal.Decimal   `json:"sum"`
	Values []decimal.Decimal `json:"values"`
}

// Validate enforces the experiment invariants at creation/start time:
// at least two variants, unique variant ids, non-negative allocations
// summing to 100 (within tolerance), and a primary metric.
func (e *Experiment) Validate() error {
	if err := e.ExperimentType.Validate(); err != nil {
		return err
	}
	if len(e.Variants) < 2 {
		return ierr.NewError("experiment requires at least two variants").
			WithHint("Experiments must have at least two variants").
			WithReportableDetails(map[string]any{
				"variant_count": len(e.Variants),
			}).
			Mark(ierr.ErrValidation)
	}
	if e.Metrics.Primary == "" {
		return ierr.NewError("experiment requires a primary metric").
			WithHint("Set the primary metric event bucket, e.g. conversion").
			Mark(ierr.ErrValidation)
	}

	seen := make(map[string]struct{}, len(e.Variants))
	total := decimal.Zero
	for _, v := range e.Variants {
		if v.ID == "" {
			return ierr.NewError("variant id is required").
				WithHint("Every variant must have an id").
				Mark(ierr.ErrValidation)
		}
		if _, ok := seen[v.ID]; ok {
			return ierr.NewError("duplicate variant id").
				WithHint("Variant ids must be unique within an experiment").
				WithReportableDetails(map[string]any{
					"variant_id": v.ID,
				}).
				Mark(ierr.ErrValidation)
		}
		seen[v.ID] = struct{}{}
		if v.TrafficAllocation.IsNegative() {
			return ierr.NewError("traffic allocation cannot be negative").
				WithHint("Traffic allocations must be between 0 and 100").
				WithReportableDetails(map[string]any{
					"variant_id": v.ID,
					"allocation": v.TrafficAllocation,
				}).
				Mark(ierr.ErrValidation)
		}
		total = total.Add(v.TrafficAllocation)
	}

	if total.Sub(decimal.NewFromInt(100)).Abs().GreaterThan(allocationTolerance) {
		return ierr.NewError("traffic allocations must sum to 100").
			WithHint("Variant traffic allocations must sum to 100").
			WithReportableDetails(map[string]any{
				"total_allocation": total,
			}).
			Mark(ierr.ErrValidation)
	}

	return nil
}

// VariantByID returns the variant with the given id, or nil
func (e *Experiment) VariantByID(variantID string) *Variant {
	for i := range e.Variants {
		if e.Variants[i].ID == variantID {
			return &e.Variants[i]
		}
	}
	return nil
}

// VariantForBucket maps a bucket in [0,100) onto a variant by walking the
// variant list in declaration order and accumulating traffic allocations.
// The bucket falls into the first variant whose cumulative allocation
// exceeds it.
func (e *Experiment) VariantForBucket(bucket decimal.Decimal) *Variant {
	cumulative := decimal.Zero
	for i := range e.Variants {
		cumulative = cumulative.Add(e.Variants[i].TrafficAllocation)
		if bucket.LessThan(cumulative) {
			return &e.Variants[i]
		}
	}
	// Allocations summing to slightly under 100 can leave the tail bucket
	// unassigned; it belongs to the last variant.
	if len(e.Variants) > 0 {
		return &e.Variants[len(e.Variants)-1]
	}
	return nil
}

// RecordEvent folds one metric event into the results. The nested maps are
// initialized on first write. Recording against an unknown variant is an
// error; callers gate on experiment status.
func (e *Experiment) RecordEvent(eventType string, variantID string, value *decimal.Decimal) error {
	if e.VariantByID(variantID) == nil {
		return ierr.NewError("unknown variant").
			WithHint("The variant does not belong to this experiment").
			WithReportableDetails(map[string]any{
				"experiment_id": e.ID,
				"variant_id":    variantID,
			}).
			Mark(ierr.ErrNotFound)
	}

	if e.Results == nil {
		e.Results = make(map[string]map[string]*MetricAccumulator)
	}
	bucket, ok := e.Results[eventType]
	if !ok {
		bucket = make(map[string]*MetricAccumulator)
		e.Results[eventType] = bucket
	}
	acc, ok := bucket[variantID]
	if !ok {
		acc = &MetricAccumulator{Sum: decimal.Zero}
		bucket[variantID] = acc
	}

	acc.Count++
	if value != nil {
		acc.Sum = acc.Sum.Add(*value)
		acc.Values = append(acc.Values, *value)
	}
	return nil
}

// ResolveWinner picks the winning variant under the primary metric's event
// bucket: the variant with the greatest recorded sum, scanning variants in
// declaration order so ties resolve deterministically to the earliest one.
// Returns nil when nothing has been recorded under the primary metric.
func (e *Experiment) ResolveWinner() *string {
	bucket, ok := e.Results[e.Metrics.Primary]
	if !ok || len(bucket) == 0 {
		return nil
	}

	var winner *Variant
	best := decimal.Zero
	for i := range e.Variants {
		acc, ok := bucket[e.Variants[i].ID]
		if !ok {
			continue
		}
		if winner == nil || acc.Sum.GreaterThan(best) {
			winner = &e.Variants[i]
			best = acc.Sum
		}
	}
	if winner == nil {
		return nil
	}
	return lo.ToPtr(winner.ID)
}
