// Package alerts persists rule decisions as alerts and fans new alerts out
// to notifiers.
package alerts

import (
	"context"
	"fmt"

	"carehome-go/internal/metrics"
	"carehome-go/internal/models"
	"carehome-go/internal/rules"
	"carehome-go/internal/store"

	"go.uber.org/zap"
)

// Notifier delivers a newly created alert somewhere outside the database.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, a models.Alert) error
}

// Candidate is a rule decision about one resident, not yet persisted.
type Candidate struct {
	Resident models.Resident
	Decision rules.Decision
}

// superseded lists the alert types a type replaces for the same period.
var superseded = map[string][]string{
	models.AlertMedicationOverdue: {models.AlertMedicationDue},
}

// Sink inserts an alert only when no unresolved alert already covers the
// same (resident, alert type, period). The lookup and insert are separate
// statements, so two concurrent sinks can both insert; the sweep lock keeps
// passes for one job from overlapping.
type Sink struct {
	store     store.AlertStore
	notifiers []Notifier
	metrics   *metrics.Metrics
	log       *zap.Logger
}

func NewSink(st store.AlertStore, m *metrics.Metrics, log *zap.Logger, notifiers ...Notifier) *Sink {
	if m == nil {
		m = metrics.New(nil)
	}
	return &Sink{store: st, notifiers: notifiers, metrics: m, log: log}
}

// Raise persists the candidate unless an open alert already exists for its
// period. It reports whether a new alert was created.
func (s *Sink) Raise(ctx context.Context, c Candidate) (bool, error) {
	d := c.Decision
	r := c.Resident

	for _, old := range superseded[d.AlertType] {
		n, err := s.store.ResolveOpenAlerts(ctx, r.ID, old, d.PeriodKey, nil)
		if err != nil {
			return false, fmt.Errorf("resolve superseded %s alert: %w", old, err)
		}
		if n > 0 {
			s.log.Info("resolved superseded alerts",
				zap.Int("resident_id", r.ID),
				zap.String("alert_type", old),
				zap.String("dedup_key", d.PeriodKey),
				zap.Int64("count", n))
		}
	}

	existing, err := s.store.FindOpenAlert(ctx, r.ID, d.AlertType, d.PeriodKey)
	if err != nil {
		return false, fmt.Errorf("lookup open alert: %w", err)
	}
	if existing != nil {
		s.metrics.AlertsDuplicate.WithLabelValues(d.AlertType).Inc()
		s.log.Debug("alert already open",
			zap.Int64("alert_id", existing.ID),
			zap.Int("resident_id", r.ID),
			zap.String("alert_type", d.AlertType),
			zap.String("dedup_key", d.PeriodKey))
		return false, nil
	}

	a := models.Alert{
		ResidentID:     r.ID,
		OrganizationID: r.OrganizationID,
		TeamID:         r.TeamID,
		AlertType:      d.AlertType,
		Severity:       d.Severity,
		Title:          fmt.Sprintf("%s: %s", r.DisplayName(), d.Title),
		Message:        d.Message,
		Metadata:       d.Metadata,
		DedupKey:       d.PeriodKey,
	}
	if err := s.store.CreateAlert(ctx, &a); err != nil {
		return false, fmt.Errorf("create alert: %w", err)
	}

	s.metrics.AlertsCreated.WithLabelValues(a.AlertType, a.Severity).Inc()
	s.log.Info("alert created",
		zap.Int64("alert_id", a.ID),
		zap.Int("resident_id", a.ResidentID),
		zap.String("alert_type", a.AlertType),
		zap.String("severity", a.Severity),
		zap.String("dedup_key", a.DedupKey))

	s.notify(ctx, a)
	return true, nil
}

func (s *Sink) notify(ctx context.Context, a models.Alert) {
	for _, n := range s.notifiers {
		if err := n.Notify(ctx, a); err != nil {
			s.metrics.NotifyErrors.WithLabelValues(n.Name()).Inc()
			s.log.Warn("alert notification failed",
				zap.String("notifier", n.Name()),
				zap.Int64("alert_id", a.ID),
				zap.Error(err))
		}
	}
}
