package claim

import (
	"fmt"
	"math"

	"claimflow/internal/policy"
	dErrors "claimflow/pkg/domain-errors"
)

// Utilization thresholds used by the presentation layer.
const (
	highUsageThreshold    = 75
	limitReachedThreshold = 100
)

// LedgerView is a benefit's coverage figures normalized for validation and
// display. LimitKnown is false when the repository served no usable limit; the
// limit is then a degenerate 1 that exists only to keep percentage math
// defined and must be flagged to the operator, never treated as real coverage.
type LedgerView struct {
	Used       float64
	Limit      float64
	LimitKnown bool
}

// NormalizeBenefit coerces a benefit's wire figures into a LedgerView.
// Missing or non-numeric usedAmount counts as 0; a missing limit yields the
// degenerate display default.
func NormalizeBenefit(b policy.Benefit) LedgerView {
	view := LedgerView{Limit: 1}
	if b.Used.Known {
		view.Used = b.Used.Value
	}
	if b.Limit.Known {
		view.Limit = b.Limit.Value
		view.LimitKnown = true
	}
	return view
}

// Validate gates a proposed claim amount against the remaining coverage.
// It is side-effect-free and callable repeatedly with identical results.
func Validate(view LedgerView, amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return dErrors.New(dErrors.CodeInvalidAmount, "please enter a valid numeric amount")
	}
	if view.Used+amount > view.Limit {
		return dErrors.New(dErrors.CodeLimitExceeded, fmt.Sprintf(
			"cannot process: this claim amount (%.2f) exceeds the remaining maximum limit for this benefit", amount))
	}
	return nil
}

// Utilization returns used/limit as a percentage, clamped at 100 for display.
func Utilization(view LedgerView) float64 {
	if view.Limit <= 0 {
		return limitReachedThreshold
	}
	pct := view.Used / view.Limit * 100
	return math.Min(pct, limitReachedThreshold)
}

// HighUsage flags benefits at or above 75% utilization.
func HighUsage(view LedgerView) bool {
	return Utilization(view) >= highUsageThreshold
}

// LimitReached flags fully utilized benefits, which are not selectable for
// new claims.
func LimitReached(view LedgerView) bool {
	if view.Limit <= 0 {
		return true
	}
	return view.Used/view.Limit*100 >= limitReachedThreshold
}
