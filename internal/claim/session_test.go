package claim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimflow/internal/policy"
	dErrors "claimflow/pkg/domain-errors"
)

func amount(v float64) policy.Amount { return policy.Amount{Value: v, Known: true} }

func newTestSession() *Session {
	return NewSession("TH31524", &policy.Policy{
		EmployeeID: "TH31524",
		Benefits: []policy.Benefit{
			{Type: "Medical", Limit: amount(200), Used: amount(50)},
			{Type: "Dental", Limit: amount(100), Used: amount(100)},
			{Type: "Optical", Limit: policy.Amount{}, Used: amount(5)},
		},
		MainMembers: []policy.Member{{Name: "Abebe Kebede"}},
	})
}

// advance walks a session to evidence collection with a cash draft.
func advance(t *testing.T, s *Session) {
	t.Helper()
	require.NoError(t, s.SelectBenefit(0))
	require.NoError(t, s.SubmitAmount(30))
	require.NoError(t, s.SelectPayment("cash"))
}

func TestSelectBenefit(t *testing.T) {
	t.Run("opens amount entry from idle", func(t *testing.T) {
		s := newTestSession()
		require.NoError(t, s.SelectBenefit(0))
		assert.Equal(t, StepAmountEntry, s.Snapshot().Step)
	})

	t.Run("reselecting the open benefit toggles back to idle", func(t *testing.T) {
		s := newTestSession()
		require.NoError(t, s.SelectBenefit(0))
		require.NoError(t, s.SelectBenefit(0))
		snap := s.Snapshot()
		assert.Equal(t, StepIdle, snap.Step)
		assert.Nil(t, snap.Draft)
	})

	t.Run("rejected outside idle", func(t *testing.T) {
		s := newTestSession()
		advance(t, s)
		before := s.Snapshot()

		err := s.SelectBenefit(2)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeIllegalTransition))
		assert.Equal(t, before.Step, s.Snapshot().Step, "state must be unchanged")
		assert.Equal(t, before.Draft, s.Snapshot().Draft)
	})

	t.Run("fully utilized benefit is not selectable", func(t *testing.T) {
		s := newTestSession()
		err := s.SelectBenefit(1)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeLimitExceeded))
	})

	t.Run("out of range index", func(t *testing.T) {
		s := newTestSession()
		require.Error(t, s.SelectBenefit(9))
		require.Error(t, s.SelectBenefit(-1))
	})
}

func TestSubmitAmount(t *testing.T) {
	t.Run("accept freezes amount and advances", func(t *testing.T) {
		s := newTestSession()
		require.NoError(t, s.SelectBenefit(0))
		require.NoError(t, s.SubmitAmount(30))

		snap := s.Snapshot()
		assert.Equal(t, StepPaymentSelection, snap.Step)
		assert.Equal(t, 30.0, snap.Draft.Amount)
	})

	t.Run("reject keeps the session in amount entry with the reason surfaced", func(t *testing.T) {
		s := newTestSession()
		require.NoError(t, s.SelectBenefit(0))

		err := s.SubmitAmount(151)
		require.True(t, dErrors.HasCode(err, dErrors.CodeLimitExceeded))

		snap := s.Snapshot()
		assert.Equal(t, StepAmountEntry, snap.Step)
		assert.NotEmpty(t, snap.LastError)
	})

	t.Run("amount is immutable once authorized", func(t *testing.T) {
		s := newTestSession()
		require.NoError(t, s.SelectBenefit(0))
		require.NoError(t, s.SubmitAmount(30))

		err := s.SubmitAmount(40)
		require.True(t, dErrors.HasCode(err, dErrors.CodeIllegalTransition))
		assert.Equal(t, 30.0, s.Snapshot().Draft.Amount)
	})
}

func TestSelectPayment(t *testing.T) {
	t.Run("cash and credit advance to evidence collection", func(t *testing.T) {
		for _, method := range []string{"cash", "credit"} {
			s := newTestSession()
			require.NoError(t, s.SelectBenefit(0))
			require.NoError(t, s.SubmitAmount(30))
			require.NoError(t, s.SelectPayment(method))
			snap := s.Snapshot()
			assert.Equal(t, StepEvidenceCollection, snap.Step)
			assert.Equal(t, method, snap.Draft.PaymentMethod)
		}
	})

	t.Run("unknown method rejected", func(t *testing.T) {
		s := newTestSession()
		require.NoError(t, s.SelectBenefit(0))
		require.NoError(t, s.SubmitAmount(30))
		err := s.SelectPayment("cheque")
		require.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("rejected before amount is authorized", func(t *testing.T) {
		s := newTestSession()
		require.NoError(t, s.SelectBenefit(0))
		err := s.SelectPayment("cash")
		require.True(t, dErrors.HasCode(err, dErrors.CodeIllegalTransition))
	})
}

func TestAttach(t *testing.T) {
	receipt := Attachment{Category: CategoryReceipt, Filename: "receipt.jpg", Content: []byte("img")}

	t.Run("cash path accumulates any number of optional documents", func(t *testing.T) {
		s := newTestSession()
		advance(t, s)

		require.NoError(t, s.Attach(receipt))
		require.NoError(t, s.Attach(Attachment{Category: CategoryPrescription, Filename: "rx.jpg"}))
		require.NoError(t, s.Attach(receipt), "duplicate categories are allowed")

		assert.Equal(t, []string{"receipt", "prescription", "receipt"}, s.Snapshot().Draft.Attachments)
	})

	t.Run("credit path takes no documents", func(t *testing.T) {
		s := newTestSession()
		require.NoError(t, s.SelectBenefit(0))
		require.NoError(t, s.SubmitAmount(30))
		require.NoError(t, s.SelectPayment("credit"))

		err := s.Attach(receipt)
		require.True(t, dErrors.HasCode(err, dErrors.CodeIllegalTransition))
	})

	t.Run("unknown category rejected", func(t *testing.T) {
		s := newTestSession()
		advance(t, s)
		err := s.Attach(Attachment{Category: "selfie"})
		require.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func TestCancel(t *testing.T) {
	t.Run("cancel from every pre-finalize step resets fully", func(t *testing.T) {
		steps := []func(s *Session){
			func(s *Session) { require.NoError(t, s.SelectBenefit(0)) },
			func(s *Session) {
				require.NoError(t, s.SelectBenefit(0))
				require.NoError(t, s.SubmitAmount(30))
			},
			func(s *Session) {
				advance(t, s)
				require.NoError(t, s.Attach(Attachment{Category: CategoryReceipt}))
			},
		}
		for _, setup := range steps {
			s := newTestSession()
			setup(s)
			require.NoError(t, s.Cancel())

			snap := s.Snapshot()
			assert.Equal(t, StepIdle, snap.Step)
			assert.Nil(t, snap.Draft, "no attachments may be retained")
			assert.Equal(t, 50.0, snap.Benefits[0].UsedAmount, "ledger untouched")
		}
	})

	t.Run("cancel rejected while finalizing", func(t *testing.T) {
		s := newTestSession()
		advance(t, s)
		_, err := s.BeginFinalize()
		require.NoError(t, err)

		err = s.Cancel()
		require.True(t, dErrors.HasCode(err, dErrors.CodeIllegalTransition))
	})

	t.Run("cancel rejected when idle", func(t *testing.T) {
		s := newTestSession()
		require.Error(t, s.Cancel())
	})
}

func TestFinalizeLifecycle(t *testing.T) {
	t.Run("begin hands out the draft and locks the session", func(t *testing.T) {
		s := newTestSession()
		advance(t, s)

		draft, err := s.BeginFinalize()
		require.NoError(t, err)
		assert.Equal(t, 30.0, draft.Amount)
		assert.Equal(t, StepFinalizing, s.Snapshot().Step)

		_, err = s.BeginFinalize()
		require.Error(t, err, "a second finalize must not race the first")
		require.Error(t, s.SelectBenefit(0))
		require.Error(t, s.SubmitAmount(1))
	})

	t.Run("success updates the benefit in place and returns to idle", func(t *testing.T) {
		s := newTestSession()
		advance(t, s)
		_, err := s.BeginFinalize()
		require.NoError(t, err)

		s.CompleteFinalize(policy.Benefit{Type: "Medical", Limit: amount(200), Used: amount(80)}, nil)

		snap := s.Snapshot()
		assert.Equal(t, StepIdle, snap.Step)
		assert.Nil(t, snap.Draft)
		assert.Equal(t, 80.0, snap.Benefits[0].UsedAmount)
	})

	t.Run("failure preserves the draft for retry", func(t *testing.T) {
		s := newTestSession()
		advance(t, s)
		require.NoError(t, s.Attach(Attachment{Category: CategoryReceipt, Filename: "receipt.jpg"}))
		_, err := s.BeginFinalize()
		require.NoError(t, err)

		s.CompleteFinalize(policy.Benefit{}, errors.New("commit rejected"))

		snap := s.Snapshot()
		assert.Equal(t, StepEvidenceCollection, snap.Step)
		require.NotNil(t, snap.Draft)
		assert.Equal(t, 30.0, snap.Draft.Amount, "amount survives a failed finalize")
		assert.Equal(t, []string{"receipt"}, snap.Draft.Attachments, "attachments survive so the operator need not re-upload")
		assert.Equal(t, 50.0, snap.Benefits[0].UsedAmount, "ledger untouched on failure")
		assert.NotEmpty(t, snap.LastError)

		_, err = s.BeginFinalize()
		assert.NoError(t, err, "retry is a plain re-finalize")
	})
}

func TestSnapshotBenefitFlags(t *testing.T) {
	snap := newTestSession().Snapshot()

	medical := snap.Benefits[0]
	assert.Equal(t, 25.0, medical.UtilizationPct)
	assert.False(t, medical.HighUsage)

	dental := snap.Benefits[1]
	assert.True(t, dental.LimitReached)

	optical := snap.Benefits[2]
	assert.True(t, optical.LimitDataUnavailable, "missing limit must be flagged, not shown as real coverage")
}
