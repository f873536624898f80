package claim

import (
	"math"
	"sync"

	"github.com/google/uuid"

	"claimflow/internal/policy"
	dErrors "claimflow/pkg/domain-errors"
)

// Session owns one operator's claim workflow against one policy. It is the
// single writer of its ClaimDraft and of the policy it holds; all operations
// are serialized by its mutex so one dispatched event completes before the
// next is admitted.
//
// The presentation layer is expected to disable illegal inputs, but every
// transition is re-validated here and rejected with an illegal-transition
// error rather than trusting the UI.
type Session struct {
	mu sync.Mutex

	ID         string
	EmployeeID string

	policy  *policy.Policy
	step    Step
	draft   *ClaimDraft
	lastErr string
}

func NewSession(employeeID string, p *policy.Policy) *Session {
	return &Session{
		ID:         uuid.NewString(),
		EmployeeID: employeeID,
		policy:     p,
		step:       StepIdle,
	}
}

func illegal(msg string) error {
	return dErrors.New(dErrors.CodeIllegalTransition, msg)
}

// SelectBenefit opens a benefit for processing. Legal only from Idle, except
// that re-selecting the already-open benefit from AmountEntry toggles back to
// Idle. Fully utilized benefits are not selectable.
func (s *Session) SelectBenefit(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step == StepAmountEntry && s.draft != nil && s.draft.BenefitIndex == index {
		s.reset()
		return nil
	}
	if s.step != StepIdle {
		return illegal("a claim is already in progress; cancel it before selecting another benefit")
	}
	if index < 0 || index >= len(s.policy.Benefits) {
		return dErrors.New(dErrors.CodeBadRequest, "no such benefit")
	}

	benefit := s.policy.Benefits[index]
	if LimitReached(NormalizeBenefit(benefit)) {
		return dErrors.New(dErrors.CodeLimitExceeded, "benefit fully utilized; no further claims allowed")
	}

	s.draft = &ClaimDraft{BenefitIndex: index, BenefitType: benefit.Type}
	s.step = StepAmountEntry
	s.lastErr = ""
	return nil
}

// SubmitAmount validates and, on acceptance, freezes the claim amount. The
// amount is immutable for the remainder of the draft's life; there is no
// transition back to AmountEntry from later steps.
func (s *Session) SubmitAmount(amount float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != StepAmountEntry {
		return illegal("amount can only be entered when a benefit is open for amount entry")
	}

	view := NormalizeBenefit(s.policy.Benefits[s.draft.BenefitIndex])
	if err := Validate(view, amount); err != nil {
		s.lastErr = dErrors.MessageOf(err)
		return err
	}

	s.draft.Amount = amount
	s.step = StepPaymentSelection
	s.lastErr = ""
	return nil
}

// SelectPayment records how the claim is being paid and advances to evidence
// collection. The credit path collects nothing and is immediately ready to
// finalize.
func (s *Session) SelectPayment(method string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != StepPaymentSelection {
		return illegal("payment method can only be chosen after the amount is authorized")
	}

	switch method {
	case "cash":
		s.draft.Payment = CashPayment{}
	case "credit":
		s.draft.Payment = CreditPayment{}
	default:
		return dErrors.New(dErrors.CodeBadRequest, "payment method must be cash or credit")
	}
	s.step = StepEvidenceCollection
	s.lastErr = ""
	return nil
}

// Attach adds one optional supporting document to a cash draft. Any number of
// attachments may be added; duplicates of a category are allowed.
func (s *Session) Attach(att Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != StepEvidenceCollection {
		return illegal("documents can only be attached while collecting evidence")
	}
	cash, ok := s.draft.Payment.(CashPayment)
	if !ok {
		return illegal("credit claims do not take supporting documents")
	}
	if !att.Category.Valid() {
		return dErrors.New(dErrors.CodeBadRequest, "unknown document category")
	}

	cash.Attachments = append(cash.Attachments, att)
	s.draft.Payment = cash
	return nil
}

// BeginFinalize transitions to Finalizing and hands out a copy of the draft
// for the submission coordinator. While Finalizing, every other operation on
// the session is rejected, so a second finalize or a cancel cannot race the
// in-flight one.
func (s *Session) BeginFinalize() (ClaimDraft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != StepEvidenceCollection {
		return ClaimDraft{}, illegal("nothing is ready to finalize")
	}
	s.step = StepFinalizing
	s.lastErr = ""
	return *s.draft, nil
}

// CompleteFinalize reconciles the session with the coordinator's outcome. On
// success the updated benefit replaces the old one in place and the draft is
// destroyed. On failure the draft (amount, method, attachments) survives and
// the session returns to EvidenceCollection so the operator can retry without
// redoing prior steps.
func (s *Session) CompleteFinalize(updated policy.Benefit, failure error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != StepFinalizing {
		return
	}
	if failure != nil {
		s.step = StepEvidenceCollection
		s.lastErr = dErrors.MessageOf(failure)
		return
	}

	s.policy.Benefits[s.draft.BenefitIndex] = updated
	s.reset()
}

// Cancel voids the in-progress draft with no side effects and no partial
// commit. Legal from AmountEntry through EvidenceCollection; rejected while
// Finalizing so it cannot race an in-flight submission.
func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.step {
	case StepAmountEntry, StepPaymentSelection, StepEvidenceCollection:
		s.reset()
		return nil
	case StepFinalizing:
		return illegal("submission in progress; wait for it to finish")
	default:
		return illegal("nothing to cancel")
	}
}

// Policy exposes the session-owned policy for the submission coordinator.
// The workflow treats it as read-only; only CompleteFinalize mutates it.
func (s *Session) Policy() *policy.Policy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy
}

// reset returns to Idle and discards the draft. Caller holds the lock.
func (s *Session) reset() {
	s.draft = nil
	s.step = StepIdle
	s.lastErr = ""
}

// BenefitSnapshot is the per-benefit view the presentation layer renders.
type BenefitSnapshot struct {
	Type                 string  `json:"type"`
	Limit                float64 `json:"limit"`
	UsedAmount           float64 `json:"used_amount"`
	UtilizationPct       float64 `json:"utilization_pct"`
	HighUsage            bool    `json:"high_usage"`
	LimitReached         bool    `json:"limit_reached"`
	LimitDataUnavailable bool    `json:"limit_data_unavailable"`
}

// DraftSnapshot is a read-only summary of the in-progress claim.
type DraftSnapshot struct {
	BenefitIndex  int      `json:"benefit_index"`
	BenefitType   string   `json:"benefit_type"`
	Amount        float64  `json:"amount,omitempty"`
	PaymentMethod string   `json:"payment_method,omitempty"`
	Attachments   []string `json:"attachments,omitempty"`
}

// Snapshot is what the workflow exposes to presentation: current step, draft
// summary, benefit utilization, and the last surfaced error.
type Snapshot struct {
	SessionID         string            `json:"session_id"`
	EmployeeID        string            `json:"employee_id"`
	PolicyID          string            `json:"policy_id,omitempty"`
	CreatedAt         string            `json:"created_at,omitempty"`
	AdditionalDetails string            `json:"additional_details,omitempty"`
	Step              Step              `json:"step"`
	Benefits          []BenefitSnapshot `json:"benefits"`
	MainMembers       []policy.Member   `json:"main_members,omitempty"`
	Dependents        []policy.Dependent `json:"dependents,omitempty"`
	Draft             *DraftSnapshot    `json:"draft,omitempty"`
	LastError         string            `json:"last_error,omitempty"`
}

// Snapshot renders the session for the presentation layer.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		SessionID:         s.ID,
		EmployeeID:        s.EmployeeID,
		PolicyID:          string(s.policy.ID),
		CreatedAt:         s.policy.CreatedAt,
		AdditionalDetails: s.policy.AdditionalDetails,
		Step:              s.step,
		MainMembers:       s.policy.MainMembers,
		Dependents:        s.policy.Dependents,
		LastError:         s.lastErr,
	}

	for _, b := range s.policy.Benefits {
		view := NormalizeBenefit(b)
		snap.Benefits = append(snap.Benefits, BenefitSnapshot{
			Type:                 b.Type,
			Limit:                view.Limit,
			UsedAmount:           view.Used,
			UtilizationPct:       math.Round(Utilization(view)),
			HighUsage:            HighUsage(view),
			LimitReached:         LimitReached(view),
			LimitDataUnavailable: !view.LimitKnown,
		})
	}

	if s.draft != nil {
		ds := &DraftSnapshot{
			BenefitIndex: s.draft.BenefitIndex,
			BenefitType:  s.draft.BenefitType,
			Amount:       s.draft.Amount,
		}
		if s.draft.Payment != nil {
			ds.PaymentMethod = s.draft.Payment.Method()
		}
		for _, att := range s.draft.Evidence() {
			ds.Attachments = append(ds.Attachments, string(att.Category))
		}
		snap.Draft = ds
	}
	return snap
}
