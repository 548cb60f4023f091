package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/recivo/recivo/internal/domain/experiment"
	"github.com/recivo/recivo/internal/domain/invoice"
	ierr "github.com/recivo/recivo/internal/errors"
	"github.com/recivo/recivo/internal/types"
	"github.com/shopspring/decimal"
)

// ExperimentService defines the interface for experiment operations:
// lifecycle management, deterministic variant assignment and metric
// recording.
type ExperimentService interface {
	CreateExperiment(ctx context.Context, e *experiment.Experiment) (*experiment.Experiment, error)
	GetExperiment(ctx context.Context, id string) (*experiment.Experiment, error)
	UpdateExperiment(ctx context.Context, e *experiment.Experiment) (*experiment.Experiment, error)

	StartExperiment(ctx context.Context, id string) (*experiment.Experiment, error)
	PauseExperiment(ctx context.Context, id string) (*experiment.Experiment, error)
	CompleteExperiment(ctx context.Context, id string, winnerVariantID *string) (*experiment.Experiment, error)
	ArchiveExperiment(ctx context.Context, id string) (*experiment.Experiment, error)

	// FindEligible returns the first active experiment of the given type
	// whose target criteria the invoice satisfies, walking experiments in
	// id-ascending order. Returns nil when none match.
	FindEligible(ctx context.Context, experimentType types.ExperimentType, inv *invoice.Invoice) (*experiment.Experiment, error)

	// AssignVariant deterministically maps an invoice onto one of the
	// experiment's variants. The same invoice resolves to the same variant
	// for the lifetime of the experiment.
	AssignVariant(e *experiment.Experiment, invoiceID string) *experiment.Variant

	// RecordEvent folds a metric event into the experiment results.
	// Recording against a non-active experiment is a logged no-op;
	// recording against an unknown variant is an error. Calls for the same
	// experiment are serialized.
	RecordEvent(ctx context.Context, experimentID string, variantID string, eventType string, value *decimal.Decimal) error
}

type experimentService struct {
	ServiceParams

	// Per-experiment write locks. Concurrent RecordEvent calls on the same
	// experiment must not lose count/sum updates.
	locks sync.Map
}

// NewExperimentService creates a new experiment service
func NewExperimentService(params ServiceParams) ExperimentService {
	return &experimentService{
		ServiceParams: params,
	}
}

func (s *experimentService) CreateExperiment(ctx context.Context, e *experiment.Experiment) (*experiment.Experiment, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	e.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_EXPERIMENT)
	e.BaseModel = types.GetDefaultBaseModel(ctx)
	if e.ExperimentStatus == "" {
		e.ExperimentStatus = types.ExperimentStatusDraft
	}
	if e.Results == nil {
		e.Results = make(map[string]map[string]*experiment.MetricAccumulator)
	}

	if err := s.ExperimentRepo.Create(ctx, e); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to create experiment").
			Mark(ierr.ErrInternal)
	}

	return e, nil
}

func (s *experimentService) GetExperiment(ctx context.Context, id string) (*experiment.Experiment, error) {
	return s.ExperimentRepo.Get(ctx, id)
}

// UpdateExperiment replaces the experiment's mutable configuration. Active
// experiments only allow status and end-date changes, which go through the
// lifecycle methods instead.
func (s *experimentService) UpdateExperiment(ctx context.Context, e *experiment.Experiment) (*experiment.Experiment, error) {
	existing, err := s.ExperimentRepo.Get(ctx, e.ID)
	if err != nil {
		return nil, err
	}

	if existing.ExperimentStatus == types.ExperimentStatusActive {
		return nil, ierr.NewError("active experiments cannot be reconfigured").
			WithHint("Pause or complete the experiment before changing its configuration").
			WithReportableDetails(map[string]any{
				"experiment_id": e.ID,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	if err := e.Validate(); err != nil {
		return nil, err
	}

	e.BaseModel = existing.BaseModel
	e.ExperimentStatus = existing.ExperimentStatus
	e.Results = existing.Results
	e.UpdatedAt = time.Now().UTC()
	e.UpdatedBy = types.GetUserID(ctx)

	if err := s.ExperimentRepo.Update(ctx, e); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to update experiment").
			Mark(ierr.ErrInternal)
	}

	return e, nil
}

func (s *experimentService) StartExperiment(ctx context.Context, id string) (*experiment.Experiment, error) {
	e, err := s.ExperimentRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.transition(e, types.ExperimentStatusActive); err != nil {
		return nil, err
	}

	// Re-validate at start: draft experiments may have been saved with
	// incomplete variants.
	if err := e.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if e.StartDate == nil {
		e.StartDate = &now
	}

	if err := s.ExperimentRepo.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *experimentService) PauseExperiment(ctx context.Context, id string) (*experiment.Experiment, error) {
	e, err := s.ExperimentRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.transition(e, types.ExperimentStatusPaused); err != nil {
		return nil, err
	}

	if err := s.ExperimentRepo.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// CompleteExperiment ends the experiment. An explicit winner is
// authoritative; otherwise automatic selection picks the variant with the
// greatest sum under the primary metric.
func (s *experimentService) CompleteExperiment(ctx context.Context, id string, winnerVariantID *string) (*experiment.Experiment, error) {
	e, err := s.ExperimentRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.transition(e, types.ExperimentStatusCompleted); err != nil {
		return nil, err
	}

	if winnerVariantID != nil {
		if e.VariantByID(*winnerVariantID) == nil {
			return nil, ierr.NewError("unknown winner variant").
				WithHint("The winner variant does not belong to this experiment").
				WithReportableDetails(map[string]any{
					"experiment_id": id,
					"variant_id":    *winnerVariantID,
				}).
				Mark(ierr.ErrNotFound)
		}
		e.WinnerVariantID = winnerVariantID
	} else if e.IsAutomaticWinnerSelection {
		e.WinnerVariantID = e.ResolveWinner()
	}

	now := time.Now().UTC()
	e.EndDate = &now

	if err := s.ExperimentRepo.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *experimentService) ArchiveExperiment(ctx context.Context, id string) (*experiment.Experiment, error) {
	e, err := s.ExperimentRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.transition(e, types.ExperimentStatusArchived); err != nil {
		return nil, err
	}

	if err := s.ExperimentRepo.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *experimentService) FindEligible(ctx context.Context, experimentType types.ExperimentType, inv *invoice.Invoice) (*experiment.Experiment, error) {
	experiments, err := s.ExperimentRepo.FindActive(ctx, inv.OrganizationID, experimentType)
	if err != nil {
		return nil, err
	}

	for _, e := range experiments {
		if e.TargetCriteria.Matches(inv.TotalAmount, inv.Currency, inv.CustomerType) {
			return e, nil
		}
	}
	return nil, nil
}

// AssignVariant hashes the experiment and invoice ids into a bucket in
// [0,100) and walks the cumulative traffic allocations. Salting with the
// experiment id keeps assignments independent across experiments.
func (s *experimentService) AssignVariant(e *experiment.Experiment, invoiceID string) *experiment.Variant {
	bucket := xxhash.Sum64String(fmt.Sprintf("%s:%s", e.ID, invoiceID)) % 100
	return e.VariantForBucket(decimal.NewFromInt(int64(bucket)))
}

func (s *experimentService) RecordEvent(ctx context.Context, experimentID string, variantID string, eventType string, value *decimal.Decimal) error {
	unlock := s.lockExperiment(experimentID)
	defer unlock()

	e, err := s.ExperimentRepo.Get(ctx, experimentID)
	if err != nil {
		return err
	}

	if e.ExperimentStatus != types.ExperimentStatusActive {
		s.Logger.Debugw("ignoring metric event for non-active experiment",
			"experiment_id", experimentID,
			"status", e.ExperimentStatus,
			"event_type", eventType,
		)
		return nil
	}

	if err := e.RecordEvent(eventType, variantID, value); err != nil {
		return err
	}

	return s.ExperimentRepo.Update(ctx, e)
}

func (s *experimentService) transition(e *experiment.Experiment, target types.ExperimentStatus) error {
	if !e.ExperimentStatus.CanTransitionTo(target) {
		return ierr.NewError("invalid experiment status transition").
			WithHintf("Cannot move experiment from %s to %s", e.ExperimentStatus, target).
			WithReportableDetails(map[string]any{
				"experiment_id": e.ID,
				"from":          e.ExperimentStatus,
				"to":            target,
			}).
			Mark(ierr.ErrInvalidOperation)
	}
	e.ExperimentStatus = target
	return nil
}

func (s *experimentService) lockExperiment(experimentID string) func() {
	v, _ := s.locks.LoadOrStore(experimentID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
