package service

import (
	"fmt"
	"strings"
	"testing"

	"github.com/recivo/recivo/internal/domain/experiment"
	"github.com/recivo/recivo/internal/domain/invoice"
	ierr "github.com/recivo/recivo/internal/errors"
	"github.com/recivo/recivo/internal/testutil"
	"github.com/recivo/recivo/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type ExperimentServiceSuite struct {
	testutil.BaseServiceTestSuite
	service ExperimentService
}

func TestExperimentService(t *testing.T) {
	suite.Run(t, new(ExperimentServiceSuite))
}

func (s *ExperimentServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewExperimentService(newTestServiceParams(&s.BaseServiceTestSuite))
}

func (s *ExperimentServiceSuite) newExperiment() *experiment.Experiment {
	return &experiment.Experiment{
		Name:           "discount strategy test",
		ExperimentType: types.ExperimentTypeDiscountStrategy,
		Variants: []experiment.Variant{
			{ID: "control", Name: "control", TrafficAllocation: decimal.NewFromInt(60)},
			{
				ID:                "aggressive",
				Name:              "aggressive discount",
				TrafficAllocation: decimal.NewFromInt(40),
				Configuration: experiment.VariantConfiguration{
					Value: lo.ToPtr(decimal.NewFromInt(5)),
				},
			},
		},
		Metrics: experiment.Metrics{Primary: types.ExperimentEventConversion},
	}
}

func (s *ExperimentServiceSuite) createActive() *experiment.Experiment {
	created, err := s.service.CreateExperiment(s.GetContext(), s.newExperiment())
	s.Require().NoError(err)
	started, err := s.service.StartExperiment(s.GetContext(), created.ID)
	s.Require().NoError(err)
	return started
}

func (s *ExperimentServiceSuite) TestCreateExperiment() {
	created, err := s.service.CreateExperiment(s.GetContext(), s.newExperiment())

	s.NoError(err)
	s.True(strings.HasPrefix(created.ID, types.UUID_PREFIX_EXPERIMENT))
	s.Equal(types.ExperimentStatusDraft, created.ExperimentStatus)
	s.NotNil(created.Results)
}

func (s *ExperimentServiceSuite) TestCreateExperiment_Invalid() {
	e := s.newExperiment()
	e.Variants = e.Variants[:1]

	created, err := s.service.CreateExperiment(s.GetContext(), e)

	s.Error(err)
	s.True(ierr.IsValidation(err))
	s.Nil(created)
}

func (s *ExperimentServiceSuite) TestLifecycle() {
	ctx := s.GetContext()
	e := s.createActive()
	s.Equal(types.ExperimentStatusActive, e.ExperimentStatus)
	s.NotNil(e.StartDate)

	paused, err := s.service.PauseExperiment(ctx, e.ID)
	s.NoError(err)
	s.Equal(types.ExperimentStatusPaused, paused.ExperimentStatus)

	resumed, err := s.service.StartExperiment(ctx, e.ID)
	s.NoError(err)
	s.Equal(types.ExperimentStatusActive, resumed.ExperimentStatus)

	completed, err := s.service.CompleteExperiment(ctx, e.ID, nil)
	s.NoError(err)
	s.Equal(types.ExperimentStatusCompleted, completed.ExperimentStatus)
	s.NotNil(completed.EndDate)

	archived, err := s.service.ArchiveExperiment(ctx, e.ID)
	s.NoError(err)
	s.Equal(types.ExperimentStatusArchived, archived.ExperimentStatus)
}

func (s *ExperimentServiceSuite) TestLifecycle_InvalidTransitions() {
	ctx := s.GetContext()

	created, err := s.service.CreateExperiment(ctx, s.newExperiment())
	s.Require().NoError(err)

	// Draft cannot pause or complete
	_, err = s.service.PauseExperiment(ctx, created.ID)
	s.True(ierr.IsInvalidOperation(err))
	_, err = s.service.CompleteExperiment(ctx, created.ID, nil)
	s.True(ierr.IsInvalidOperation(err))

	// Active cannot archive
	_, err = s.service.StartExperiment(ctx, created.ID)
	s.Require().NoError(err)
	_, err = s.service.ArchiveExperiment(ctx, created.ID)
	s.True(ierr.IsInvalidOperation(err))

	// Completed cannot restart
	_, err = s.service.CompleteExperiment(ctx, created.ID, nil)
	s.Require().NoError(err)
	_, err = s.service.StartExperiment(ctx, created.ID)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *ExperimentServiceSuite) TestUpdateExperiment_RejectsActive() {
	ctx := s.GetContext()
	e := s.createActive()

	e.Name = "renamed"
	_, err := s.service.UpdateExperiment(ctx, e)

	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *ExperimentServiceSuite) TestUpdateExperiment_PreservesResults() {
	ctx := s.GetContext()
	e := s.createActive()

	s.Require().NoError(s.service.RecordEvent(ctx, e.ID, "control", types.ExperimentEventExposure, nil))

	_, err := s.service.PauseExperiment(ctx, e.ID)
	s.Require().NoError(err)

	paused, err := s.service.GetExperiment(ctx, e.ID)
	s.Require().NoError(err)
	paused.Name = "renamed"

	updated, err := s.service.UpdateExperiment(ctx, paused)
	s.NoError(err)
	s.Equal("renamed", updated.Name)
	s.Equal(int64(1), updated.Results[types.ExperimentEventExposure]["control"].Count)
}

func (s *ExperimentServiceSuite) TestCompleteExperiment_ExplicitWinner() {
	ctx := s.GetContext()
	e := s.createActive()

	completed, err := s.service.CompleteExperiment(ctx, e.ID, lo.ToPtr("aggressive"))
	s.NoError(err)
	s.NotNil(completed.WinnerVariantID)
	s.Equal("aggressive", *completed.WinnerVariantID)
}

func (s *ExperimentServiceSuite) TestCompleteExperiment_UnknownExplicitWinner() {
	ctx := s.GetContext()
	e := s.createActive()

	_, err := s.service.CompleteExperiment(ctx, e.ID, lo.ToPtr("nope"))
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *ExperimentServiceSuite) TestCompleteExperiment_AutomaticWinner() {
	ctx := s.GetContext()

	e := s.newExperiment()
	e.IsAutomaticWinnerSelection = true
	created, err := s.service.CreateExperiment(ctx, e)
	s.Require().NoError(err)
	_, err = s.service.StartExperiment(ctx, created.ID)
	s.Require().NoError(err)

	s.Require().NoError(s.service.RecordEvent(ctx, created.ID, "control", types.ExperimentEventConversion, lo.ToPtr(decimal.NewFromInt(100))))
	s.Require().NoError(s.service.RecordEvent(ctx, created.ID, "aggressive", types.ExperimentEventConversion, lo.ToPtr(decimal.NewFromInt(900))))

	completed, err := s.service.CompleteExperiment(ctx, created.ID, nil)
	s.NoError(err)
	s.NotNil(completed.WinnerVariantID)
	s.Equal("aggressive", *completed.WinnerVariantID)
}

func (s *ExperimentServiceSuite) TestAssignVariant_Deterministic() {
	e := s.createActive()

	first := s.service.AssignVariant(e, "inv_123")
	s.Require().NotNil(first)

	for i := 0; i < 50; i++ {
		again := s.service.AssignVariant(e, "inv_123")
		s.Require().NotNil(again)
		s.Equal(first.ID, again.ID)
	}
}

func (s *ExperimentServiceSuite) TestAssignVariant_Distribution() {
	e := s.createActive()

	counts := map[string]int{}
	const n = 10000
	for i := 0; i < n; i++ {
		v := s.service.AssignVariant(e, fmt.Sprintf("inv_%d", i))
		s.Require().NotNil(v)
		counts[v.ID]++
	}

	controlShare := float64(counts["control"]) / float64(n)
	s.InDelta(0.60, controlShare, 0.05)
	s.Equal(n, counts["control"]+counts["aggressive"])
}

func (s *ExperimentServiceSuite) TestRecordEvent() {
	ctx := s.GetContext()
	e := s.createActive()

	s.NoError(s.service.RecordEvent(ctx, e.ID, "control", types.ExperimentEventExposure, nil))
	s.NoError(s.service.RecordEvent(ctx, e.ID, "control", types.ExperimentEventConversion, lo.ToPtr(decimal.NewFromInt(250))))

	stored, err := s.service.GetExperiment(ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), stored.Results[types.ExperimentEventExposure]["control"].Count)
	s.True(stored.Results[types.ExperimentEventConversion]["control"].Sum.Equal(decimal.NewFromInt(250)))
}

func (s *ExperimentServiceSuite) TestRecordEvent_NonActiveIsNoOp() {
	ctx := s.GetContext()
	e := s.createActive()

	_, err := s.service.PauseExperiment(ctx, e.ID)
	s.Require().NoError(err)

	s.NoError(s.service.RecordEvent(ctx, e.ID, "control", types.ExperimentEventExposure, nil))

	stored, err := s.service.GetExperiment(ctx, e.ID)
	s.Require().NoError(err)
	s.Empty(stored.Results)
}

func (s *ExperimentServiceSuite) TestRecordEvent_UnknownVariant() {
	ctx := s.GetContext()
	e := s.createActive()

	err := s.service.RecordEvent(ctx, e.ID, "nope", types.ExperimentEventExposure, nil)
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *ExperimentServiceSuite) TestFindEligible() {
	ctx := s.GetContext()

	targeted := s.newExperiment()
	targeted.TargetCriteria = &types.TargetCriteria{
		MinAmount: lo.ToPtr(decimal.NewFromInt(50000)),
		Currency:  lo.ToPtr("USD"),
	}
	created, err := s.service.CreateExperiment(ctx, targeted)
	s.Require().NoError(err)
	_, err = s.service.StartExperiment(ctx, created.ID)
	s.Require().NoError(err)

	big := &invoice.Invoice{
		ID:          "inv_big",
		Currency:    "USD",
		TotalAmount: decimal.NewFromInt(100000),
		BaseModel:   types.GetDefaultBaseModel(ctx),
	}
	small := &invoice.Invoice{
		ID:          "inv_small",
		Currency:    "USD",
		TotalAmount: decimal.NewFromInt(100),
		BaseModel:   types.GetDefaultBaseModel(ctx),
	}

	found, err := s.service.FindEligible(ctx, types.ExperimentTypeDiscountStrategy, big)
	s.NoError(err)
	s.Require().NotNil(found)
	s.Equal(created.ID, found.ID)

	found, err = s.service.FindEligible(ctx, types.ExperimentTypeDiscountStrategy, small)
	s.NoError(err)
	s.Nil(found)

	// Wrong experiment type never matches
	found, err = s.service.FindEligible(ctx, types.ExperimentTypeLateFeeStrategy, big)
	s.NoError(err)
	s.Nil(found)
}

func (s *ExperimentServiceSuite) TestFindEligible_DraftIsInvisible() {
	ctx := s.GetContext()

	_, err := s.service.CreateExperiment(ctx, s.newExperiment())
	s.Require().NoError(err)

	inv := &invoice.Invoice{
		ID:          "inv_1",
		Currency:    "USD",
		TotalAmount: decimal.NewFromInt(1000),
		BaseModel:   types.GetDefaultBaseModel(ctx),
	}

	found, err := s.service.FindEligible(ctx, types.ExperimentTypeDiscountStrategy, inv)
	s.NoError(err)
	s.Nil(found)
}
