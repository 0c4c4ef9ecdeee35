// Package sweep runs the periodic alert sweep: every active resident is
// checked against the rule evaluators of a job, and each unmet threshold is
// handed to the alert sink.
package sweep

import (
	"context"
	"fmt"
	"sync"
	"time"

	"carehome-go/internal/alerts"
	"carehome-go/internal/metrics"
	"carehome-go/internal/models"
	"carehome-go/internal/rules"
	"carehome-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AlertSink persists candidates, reporting whether a new alert was created.
type AlertSink interface {
	Raise(ctx context.Context, c alerts.Candidate) (bool, error)
}

// Job is a named set of evaluators swept on its own interval.
type Job struct {
	Name       string
	Interval   time.Duration
	Evaluators []Evaluator
}

// Result summarises one pass.
type Result struct {
	Job        string    `json:"job"`
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
	Residents  int       `json:"residents"`
	Created    int       `json:"created"`
	Duplicates int       `json:"duplicates"`
	Errors     int       `json:"errors"`
}

type Sweeper struct {
	residents store.ResidentStore
	sink      AlertSink
	metrics   *metrics.Metrics
	log       *zap.Logger

	mu    sync.RWMutex
	rules rules.Config
}

func NewSweeper(residents store.ResidentStore, sink AlertSink, cfg rules.Config, m *metrics.Metrics, log *zap.Logger) *Sweeper {
	if m == nil {
		m = metrics.New(nil)
	}
	return &Sweeper{
		residents: residents,
		sink:      sink,
		metrics:   m,
		log:       log,
		rules:     cfg,
	}
}

// SetRules swaps the thresholds used by subsequent passes.
func (s *Sweeper) SetRules(cfg rules.Config) {
	s.mu.Lock()
	s.rules = cfg
	s.mu.Unlock()
}

func (s *Sweeper) Rules() rules.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rules
}

// Run performs one pass of job at now. Failures for a single resident or
// evaluator are logged and counted; the pass carries on with the rest.
func (s *Sweeper) Run(ctx context.Context, job Job, now time.Time) (Result, error) {
	cfg := s.Rules()
	local := now.In(cfg.Location())
	res := Result{
		Job:       job.Name,
		RunID:     uuid.NewString(),
		StartedAt: now,
	}
	log := s.log.With(zap.String("job", job.Name), zap.String("run_id", res.RunID))
	started := time.Now()

	residents, err := s.residents.ListActiveResidents(ctx)
	if err != nil {
		return res, fmt.Errorf("list active residents: %w", err)
	}

	for _, r := range residents {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		// inactive residents never reach an evaluator
		if !r.IsActive() {
			continue
		}
		res.Residents++
		s.evaluateResident(ctx, log, job, r, local, cfg, &res)
	}

	elapsed := time.Since(started)
	res.DurationMS = elapsed.Milliseconds()
	s.metrics.SweepRuns.WithLabelValues(job.Name).Inc()
	s.metrics.SweepDuration.WithLabelValues(job.Name).Observe(elapsed.Seconds())
	s.metrics.ResidentsScanned.WithLabelValues(job.Name).Add(float64(res.Residents))
	s.metrics.LastSweepUnixTime.WithLabelValues(job.Name).Set(float64(now.Unix()))

	log.Info("sweep completed",
		zap.Int("residents", res.Residents),
		zap.Int("created", res.Created),
		zap.Int("duplicates", res.Duplicates),
		zap.Int("errors", res.Errors),
		zap.Duration("duration", elapsed))
	return res, nil
}

func (s *Sweeper) evaluateResident(ctx context.Context, log *zap.Logger, job Job, r models.Resident, now time.Time, cfg rules.Config, res *Result) {
	for _, ev := range job.Evaluators {
		decisions, err := s.safeEvaluate(ctx, ev, r, now, cfg)
		if err != nil {
			res.Errors++
			s.metrics.EvaluatorErrors.WithLabelValues(ev.Name()).Inc()
			log.Error("evaluator failed",
				zap.String("evaluator", ev.Name()),
				zap.Int("resident_id", r.ID),
				zap.Error(err))
			// decisions made before the failure are still raised
		}

		for _, d := range decisions {
			created, err := s.sink.Raise(ctx, alerts.Candidate{Resident: r, Decision: d})
			switch {
			case err != nil:
				res.Errors++
				log.Error("raise alert failed",
					zap.Int("resident_id", r.ID),
					zap.String("alert_type", d.AlertType),
					zap.String("dedup_key", d.PeriodKey),
					zap.Error(err))
			case created:
				res.Created++
			default:
				res.Duplicates++
			}
		}
	}
}

func (s *Sweeper) safeEvaluate(ctx context.Context, ev Evaluator, r models.Resident, now time.Time, cfg rules.Config) (decisions []rules.Decision, err error) {
	defer func() {
		if p := recover(); p != nil {
			decisions = nil
			err = fmt.Errorf("panic in %s evaluator: %v", ev.Name(), p)
		}
	}()
	return ev.Evaluate(ctx, r, now, cfg)
}
