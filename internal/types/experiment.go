package types

import (
	ierr "github.com/recivo/recivo/internal/errors"
)

// ExperimentType represents the strategy surface an experiment varies
type ExperimentType string

const (
	ExperimentTypeDiscountStrategy        ExperimentType = "discount_strategy"
	ExperimentTypeLateFeeStrategy         ExperimentType = "late_fee_strategy"
	ExperimentTypePaymentMethodPreference ExperimentType = "payment_method_preference"
	ExperimentTypeCommunicationStrategy   ExperimentType = "communication_strategy"
)

func (t ExperimentType) String() string {
	return string(t)
}

func (t ExperimentType) Validate() error {
	allowed := []ExperimentType{
		ExperimentTypeDiscountStrategy,
		ExperimentTypeLateFeeStrategy,
		ExperimentTypePaymentMethodPreference,
		ExperimentTypeCommunicationStrategy,
	}
	for _, et := range allowed {
		if t == et {
			return nil
		}
	}
	return ierr.NewError("invalid experiment type").
		WithHint("Invalid experiment type").
		WithReportableDetails(map[string]any{
			"experiment_type": t,
		}).
		Mark(ierr.ErrValidation)
}

// ExperimentStatus represents the lifecycle state of an experiment
type ExperimentStatus string

const (
	ExperimentStatusDraft     ExperimentStatus = "draft"
	ExperimentStatusActive    ExperimentStatus = "active"
	ExperimentStatusPaused    ExperimentStatus = "paused"
	ExperimentStatusCompleted ExperimentStatus = "completed"
	ExperimentStatusArchived  ExperimentStatus = "archived"
)

func (s ExperimentStatus) String() string {
	return string(s)
}

// CanTransitionTo reports whether the lifecycle edge from s to target is
// allowed. Paused -> Active is the only back-edge; Archived is terminal.
func (s ExperimentStatus) CanTransitionTo(target ExperimentStatus) bool {
	switch target {
	case ExperimentStatusActive:
		return s == ExperimentStatusDraft || s == ExperimentStatusPaused
	case ExperimentStatusPaused:
		return s == ExperimentStatusActive
	case ExperimentStatusCompleted:
		return s == ExperimentStatusActive || s == ExperimentStatusPaused
	case ExperimentStatusArchived:
		return s != ExperimentStatusActive && s != ExperimentStatusArchived
	}
	return false
}

// Experiment metric event types
const (
	ExperimentEventExposure   = "exposure"
	ExperimentEventConversion = "conversion"
)
