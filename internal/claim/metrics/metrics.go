package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the claim workflow.
type Metrics struct {
	// Sessions opened after a successful policy lookup
	SessionsOpened prometheus.Counter

	// Amount validation rejections by reason
	ValidationRejects *prometheus.CounterVec

	// Finalize outcomes by status: committed, notification_failed, commit_failed
	FinalizeOutcome *prometheus.CounterVec

	// Full finalize duration including notify and commit
	FinalizeLatency prometheus.Histogram

	// Supporting documents collected
	AttachmentsCollected prometheus.Counter
}

// New creates a Metrics instance with all claim workflow metrics registered.
func New() *Metrics {
	return &Metrics{
		SessionsOpened: promauto.NewCounter(prometheus.CounterOpts{
			Name: "claimflow_sessions_opened_total",
			Help: "Total claim sessions opened after a successful policy lookup",
		}),

		ValidationRejects: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "claimflow_validation_rejects_total",
			Help: "Total claim amount rejections by reason",
		}, []string{"reason"}), // reason: "invalid_amount", "limit_exceeded"

		FinalizeOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "claimflow_finalize_outcomes_total",
			Help: "Total finalize outcomes by status",
		}, []string{"status"}),

		FinalizeLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "claimflow_finalize_duration_seconds",
			Help:    "Duration of full finalize including audit notification and ledger commit",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),

		AttachmentsCollected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "claimflow_attachments_collected_total",
			Help: "Total supporting documents attached to claim drafts",
		}),
	}
}

// IncrementSessionsOpened records a successfully opened session.
func (m *Metrics) IncrementSessionsOpened() {
	if m != nil {
		m.SessionsOpened.Inc()
	}
}

// IncrementValidationReject records an amount rejection.
func (m *Metrics) IncrementValidationReject(reason string) {
	if m != nil {
		m.ValidationRejects.WithLabelValues(reason).Inc()
	}
}

// IncrementFinalizeOutcome records a finalize outcome.
func (m *Metrics) IncrementFinalizeOutcome(status string) {
	if m != nil {
		m.FinalizeOutcome.WithLabelValues(status).Inc()
	}
}

// ObserveFinalizeLatency records the total finalize duration.
func (m *Metrics) ObserveFinalizeLatency(d time.Duration) {
	if m != nil {
		m.FinalizeLatency.Observe(d.Seconds())
	}
}

// IncrementAttachments records one collected document.
func (m *Metrics) IncrementAttachments() {
	if m != nil {
		m.AttachmentsCollected.Inc()
	}
}
