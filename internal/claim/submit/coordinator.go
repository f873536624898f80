// Package submit performs the two dependent side effects that finalize a
// claim: the audit notification and the ledger commit. The ordering is
// deliberate — notify before commit — so the audit trail is never missing for
// a committed claim. The cost is that a commit failure leaves a notification
// already sent; retry re-notifies, which is an accepted trade-off rather than
// a defect to hide.
package submit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"claimflow/internal/claim"
	"claimflow/internal/notify"
	"claimflow/internal/policy"
	dErrors "claimflow/pkg/domain-errors"
)

// Coordinator runs finalize against the external collaborators. It performs
// no automatic retry; retry is a manual operator action that re-invokes
// Finalize with the preserved draft.
type Coordinator struct {
	notifier notify.Notifier
	repo     policy.Repository
	chatID   string
	logger   *slog.Logger
}

func NewCoordinator(notifier notify.Notifier, repo policy.Repository, chatID string, logger *slog.Logger) *Coordinator {
	return &Coordinator{notifier: notifier, repo: repo, chatID: chatID, logger: logger}
}

// Finalize notifies the audit channel and then commits the new used amount.
// Strictly ordered; step one is never rolled back once it succeeds. On any
// failure the draft is untouched so the caller can retry.
func (c *Coordinator) Finalize(ctx context.Context, p *policy.Policy, employeeID string, draft claim.ClaimDraft) (policy.Benefit, error) {
	if draft.BenefitIndex < 0 || draft.BenefitIndex >= len(p.Benefits) {
		return policy.Benefit{}, dErrors.New(dErrors.CodeBadRequest, "draft references a benefit the policy does not have")
	}

	benefit := p.Benefits[draft.BenefitIndex]
	view := claim.NormalizeBenefit(benefit)
	newUsed := view.Used + draft.Amount

	if err := c.notifyAudit(ctx, p, employeeID, benefit.Type, draft); err != nil {
		return policy.Benefit{}, dErrors.Wrap(err, dErrors.CodeNotificationFailed,
			"failed to notify the audit channel; no amounts were committed")
	}

	if err := c.repo.PatchBenefitUsage(ctx, employeeID, benefit.Type, newUsed); err != nil {
		// The notification is already out; surface the repository reason and
		// leave reconciliation to a manual retry.
		c.logger.ErrorContext(ctx, "ledger commit failed after audit notification",
			"employee_id", employeeID,
			"benefit_type", benefit.Type,
			"new_used_amount", newUsed,
			"error", err,
		)
		return policy.Benefit{}, dErrors.Wrap(err, dErrors.CodeCommitFailed, err.Error())
	}

	updated := benefit
	updated.Used = policy.Amount{Value: newUsed, Known: true}
	return updated, nil
}

// notifyAudit dispatches on the payment variant: cash with evidence goes out
// as one grouped message, cash without evidence and credit as text.
func (c *Coordinator) notifyAudit(ctx context.Context, p *policy.Policy, employeeID, benefitType string, draft claim.ClaimDraft) error {
	name := p.MainMemberName()

	switch payment := draft.Payment.(type) {
	case claim.CashPayment:
		if len(payment.Attachments) == 0 {
			msg := fmt.Sprintf("[Cash Claim] %s (ID: %s)\nBenefit: %s\nAmount: %v\nNo documents uploaded.",
				name, employeeID, benefitType, draft.Amount)
			return c.notifier.SendText(ctx, c.chatID, msg)
		}

		labels := make([]string, 0, len(payment.Attachments))
		items := make([]notify.MediaItem, 0, len(payment.Attachments))
		for _, att := range payment.Attachments {
			labels = append(labels, att.Category.Label())
			items = append(items, notify.MediaItem{Filename: att.Filename, Content: att.Content})
		}
		caption := fmt.Sprintf("[Cash Claim] %s (ID: %s)\nBenefit: %s\nAmount: %v\nIncludes: %s",
			name, employeeID, benefitType, draft.Amount, strings.Join(labels, ", "))
		return c.notifier.SendMediaGroup(ctx, c.chatID, items, caption)

	case claim.CreditPayment:
		msg := fmt.Sprintf("Credit claim submitted for %s (Employee ID: %s)\nBenefit: %s\nAmount: %v\nPayment: Credit",
			name, employeeID, benefitType, draft.Amount)
		return c.notifier.SendText(ctx, c.chatID, msg)

	default:
		return fmt.Errorf("draft has no payment method")
	}
}
