package claim

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"claimflow/internal/claim/metrics"
	"claimflow/internal/policy"
	dErrors "claimflow/pkg/domain-errors"
	"claimflow/pkg/platform/sentinel"
)

// Store holds live sessions.
type Store interface {
	Save(ctx context.Context, session *Session) error
	Find(ctx context.Context, sessionID string) (*Session, error)
	DeleteByEmployee(ctx context.Context, employeeID string) error
}

// Finalizer performs the notify-then-commit submission. Implemented by
// submit.Coordinator; declared here so the service stays decoupled from the
// external collaborators.
type Finalizer interface {
	Finalize(ctx context.Context, p *policy.Policy, employeeID string, draft ClaimDraft) (policy.Benefit, error)
}

// Service drives claim sessions. It keeps orchestration out of handlers and
// leaves transition legality to the session itself.
type Service struct {
	store     Store
	repo      policy.Repository
	finalizer Finalizer
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewService(store Store, repo policy.Repository, finalizer Finalizer, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{store: store, repo: repo, finalizer: finalizer, metrics: m, logger: logger}
}

// OpenSession looks up the employee's policy and starts a fresh session.
// Any in-progress session for the same employee is invalidated first: a new
// lookup always discards the old draft.
func (s *Service) OpenSession(ctx context.Context, employeeID string) (Snapshot, error) {
	if employeeID == "" {
		return Snapshot{}, dErrors.New(dErrors.CodeBadRequest, "employee ID is required")
	}

	if err := s.store.DeleteByEmployee(ctx, employeeID); err != nil {
		return Snapshot{}, dErrors.Wrap(err, dErrors.CodeInternal, "system error")
	}

	found, err := s.repo.FindByEmployee(ctx, employeeID)
	if err != nil {
		s.logger.ErrorContext(ctx, "policy lookup failed", "employee_id", employeeID, "error", err)
		return Snapshot{}, dErrors.Wrap(err, dErrors.CodeInternal, "system error: unable to fetch policy details")
	}
	if found == nil {
		return Snapshot{}, dErrors.New(dErrors.CodeNotFound, "no policy found for this employee ID")
	}

	session := NewSession(employeeID, found)
	if err := s.store.Save(ctx, session); err != nil {
		return Snapshot{}, dErrors.Wrap(err, dErrors.CodeInternal, "system error")
	}

	s.metrics.IncrementSessionsOpened()
	s.logger.InfoContext(ctx, "claim session opened",
		"session_id", session.ID,
		"employee_id", employeeID,
	)
	return session.Snapshot(), nil
}

// Get returns the read-only snapshot for presentation.
func (s *Service) Get(ctx context.Context, sessionID string) (Snapshot, error) {
	session, err := s.find(ctx, sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	return session.Snapshot(), nil
}

func (s *Service) SelectBenefit(ctx context.Context, sessionID string, index int) (Snapshot, error) {
	session, err := s.find(ctx, sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	if err := session.SelectBenefit(index); err != nil {
		return Snapshot{}, err
	}
	return session.Snapshot(), nil
}

func (s *Service) SubmitAmount(ctx context.Context, sessionID string, amount float64) (Snapshot, error) {
	session, err := s.find(ctx, sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	if err := session.SubmitAmount(amount); err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvalidAmount) || dErrors.HasCode(err, dErrors.CodeLimitExceeded) {
			s.metrics.IncrementValidationReject(string(dErrors.CodeOf(err)))
		}
		return Snapshot{}, err
	}
	return session.Snapshot(), nil
}

func (s *Service) SelectPayment(ctx context.Context, sessionID, method string) (Snapshot, error) {
	session, err := s.find(ctx, sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	if err := session.SelectPayment(method); err != nil {
		return Snapshot{}, err
	}
	return session.Snapshot(), nil
}

func (s *Service) Attach(ctx context.Context, sessionID string, att Attachment) (Snapshot, error) {
	session, err := s.find(ctx, sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	if err := session.Attach(att); err != nil {
		return Snapshot{}, err
	}
	s.metrics.IncrementAttachments()
	return session.Snapshot(), nil
}

// Finalize runs the submission coordinator against the session's draft and
// reconciles the outcome. The session refuses all other input while the
// submission is in flight.
func (s *Service) Finalize(ctx context.Context, sessionID string) (Snapshot, error) {
	session, err := s.find(ctx, sessionID)
	if err != nil {
		return Snapshot{}, err
	}

	draft, err := session.BeginFinalize()
	if err != nil {
		return Snapshot{}, err
	}

	start := time.Now()
	updated, ferr := s.finalizer.Finalize(ctx, session.Policy(), session.EmployeeID, draft)
	session.CompleteFinalize(updated, ferr)
	s.metrics.ObserveFinalizeLatency(time.Since(start))

	if ferr != nil {
		s.metrics.IncrementFinalizeOutcome(string(dErrors.CodeOf(ferr)))
		s.logger.WarnContext(ctx, "claim finalize failed",
			"session_id", sessionID,
			"employee_id", session.EmployeeID,
			"code", string(dErrors.CodeOf(ferr)),
		)
		return Snapshot{}, ferr
	}

	s.metrics.IncrementFinalizeOutcome("committed")
	s.logger.InfoContext(ctx, "claim committed",
		"session_id", sessionID,
		"employee_id", session.EmployeeID,
		"benefit_type", updated.Type,
		"used_amount", updated.Used.Value,
	)
	return session.Snapshot(), nil
}

func (s *Service) Cancel(ctx context.Context, sessionID string) (Snapshot, error) {
	session, err := s.find(ctx, sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	if err := session.Cancel(); err != nil {
		return Snapshot{}, err
	}
	return session.Snapshot(), nil
}

func (s *Service) find(ctx context.Context, sessionID string) (*Session, error) {
	session, err := s.store.Find(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "session not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "system error")
	}
	return session, nil
}
