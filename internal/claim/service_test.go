package claim

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"claimflow/internal/platform/logger"
	"claimflow/internal/policy"
	policymocks "claimflow/internal/policy/mocks"
	dErrors "claimflow/pkg/domain-errors"
)

type fakeFinalizer struct {
	calls   int
	updated policy.Benefit
	err     error
}

func (f *fakeFinalizer) Finalize(ctx context.Context, p *policy.Policy, employeeID string, draft ClaimDraft) (policy.Benefit, error) {
	f.calls++
	return f.updated, f.err
}

type ServiceSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	repo      *policymocks.MockRepository
	finalizer *fakeFinalizer
	service   *Service
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.repo = policymocks.NewMockRepository(s.ctrl)
	s.finalizer = &fakeFinalizer{}
	s.service = NewService(NewInMemoryStore(), s.repo, s.finalizer, nil, logger.New())
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) openSession() Snapshot {
	s.repo.EXPECT().FindByEmployee(gomock.Any(), "TH31524").Return(&policy.Policy{
		EmployeeID: "TH31524",
		Benefits: []policy.Benefit{
			{Type: "Medical", Limit: policy.Amount{Value: 200, Known: true}, Used: policy.Amount{Value: 50, Known: true}},
		},
		MainMembers: []policy.Member{{Name: "Abebe Kebede"}},
	}, nil)

	snap, err := s.service.OpenSession(context.Background(), "TH31524")
	s.Require().NoError(err)
	return snap
}

func (s *ServiceSuite) TestOpenSession() {
	ctx := context.Background()

	s.Run("empty employee id rejected", func() {
		_, err := s.service.OpenSession(ctx, "")
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("lookup failure surfaces a generic system error", func() {
		s.repo.EXPECT().FindByEmployee(gomock.Any(), "TH31524").Return(nil, errors.New("connection refused"))
		_, err := s.service.OpenSession(ctx, "TH31524")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
		s.NotContains(dErrors.MessageOf(err), "connection refused", "raw transport errors never reach the operator")
	})

	s.Run("no match is not found, not an error envelope", func() {
		s.repo.EXPECT().FindByEmployee(gomock.Any(), "TH99999").Return(nil, nil)
		_, err := s.service.OpenSession(ctx, "TH99999")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("success returns an idle snapshot", func() {
		snap := s.openSession()
		s.Equal(StepIdle, snap.Step)
		s.NotEmpty(snap.SessionID)
		s.Len(snap.Benefits, 1)
	})

	s.Run("a new lookup invalidates the previous session", func() {
		first := s.openSession()
		second := s.openSession()
		s.NotEqual(first.SessionID, second.SessionID)

		_, err := s.service.Get(ctx, first.SessionID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestHappyPathCashClaim() {
	ctx := context.Background()
	snap := s.openSession()
	id := snap.SessionID

	_, err := s.service.SelectBenefit(ctx, id, 0)
	s.Require().NoError(err)
	_, err = s.service.SubmitAmount(ctx, id, 30)
	s.Require().NoError(err)
	_, err = s.service.SelectPayment(ctx, id, "cash")
	s.Require().NoError(err)
	_, err = s.service.Attach(ctx, id, Attachment{Category: CategoryReceipt, Filename: "receipt.jpg"})
	s.Require().NoError(err)

	s.finalizer.updated = policy.Benefit{
		Type:  "Medical",
		Limit: policy.Amount{Value: 200, Known: true},
		Used:  policy.Amount{Value: 80, Known: true},
	}

	final, err := s.service.Finalize(ctx, id)
	s.Require().NoError(err)
	s.Equal(1, s.finalizer.calls)
	s.Equal(StepIdle, final.Step)
	s.Equal(80.0, final.Benefits[0].UsedAmount)
}

func (s *ServiceSuite) TestFinalizeFailurePreservesDraftForRetry() {
	ctx := context.Background()
	id := s.openSession().SessionID

	_, err := s.service.SelectBenefit(ctx, id, 0)
	s.Require().NoError(err)
	_, err = s.service.SubmitAmount(ctx, id, 30)
	s.Require().NoError(err)
	_, err = s.service.SelectPayment(ctx, id, "cash")
	s.Require().NoError(err)

	s.finalizer.err = dErrors.New(dErrors.CodeCommitFailed, "benefit is locked")

	_, err = s.service.Finalize(ctx, id)
	s.Require().True(dErrors.HasCode(err, dErrors.CodeCommitFailed))

	snap, err := s.service.Get(ctx, id)
	s.Require().NoError(err)
	s.Equal(StepEvidenceCollection, snap.Step)
	s.Equal(30.0, snap.Draft.Amount)
	s.Equal("benefit is locked", snap.LastError)

	// Manual retry re-runs the coordinator with the unchanged draft.
	s.finalizer.err = nil
	s.finalizer.updated = policy.Benefit{Type: "Medical", Used: policy.Amount{Value: 80, Known: true}, Limit: policy.Amount{Value: 200, Known: true}}
	_, err = s.service.Finalize(ctx, id)
	s.Require().NoError(err)
	s.Equal(2, s.finalizer.calls)
}

func (s *ServiceSuite) TestValidationRejectLeavesCollaboratorsUntouched() {
	ctx := context.Background()
	id := s.openSession().SessionID

	_, err := s.service.SelectBenefit(ctx, id, 0)
	s.Require().NoError(err)

	_, err = s.service.SubmitAmount(ctx, id, 151)
	s.Require().True(dErrors.HasCode(err, dErrors.CodeLimitExceeded))
	s.Equal(0, s.finalizer.calls, "no notify or commit may happen on a rejected amount")

	snap, err := s.service.Get(ctx, id)
	s.Require().NoError(err)
	s.Equal(StepAmountEntry, snap.Step)
}

func (s *ServiceSuite) TestUnknownSession() {
	_, err := s.service.Get(context.Background(), "missing")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
