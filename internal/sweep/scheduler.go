package sweep

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"carehome-go/internal/metrics"
	"carehome-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	JobCare       = "care"
	JobNight      = "night"
	JobMedication = "medication"
)

var (
	ErrUnknownJob = errors.New("unknown sweep job")
	ErrJobLocked  = errors.New("sweep job already running")
)

// Intervals sets how often each job runs.
type Intervals struct {
	Care       time.Duration
	Night      time.Duration
	Medication time.Duration
}

// Jobs builds the standard sweep jobs over one care log store.
func Jobs(logs store.CareLogStore, iv Intervals) []Job {
	return []Job{
		{Name: JobCare, Interval: iv.Care, Evaluators: []Evaluator{FoodEvaluator{Logs: logs}, FluidEvaluator{Logs: logs}}},
		{Name: JobNight, Interval: iv.Night, Evaluators: []Evaluator{NightEvaluator{Logs: logs}}},
		{Name: JobMedication, Interval: iv.Medication, Evaluators: []Evaluator{MedicationEvaluator{Logs: logs}}},
	}
}

// Scheduler runs each job on its interval. With a locker, a job's pass is
// skipped while another pass of the same job holds the lock.
type Scheduler struct {
	sweeper *Sweeper
	locker  store.SweepLocker
	jobs    map[string]Job
	order   []string
	metrics *metrics.Metrics
	log     *zap.Logger
	now     func() time.Time
}

func NewScheduler(sweeper *Sweeper, locker store.SweepLocker, jobs []Job, m *metrics.Metrics, log *zap.Logger) *Scheduler {
	if m == nil {
		m = metrics.New(nil)
	}
	s := &Scheduler{
		sweeper: sweeper,
		locker:  locker,
		jobs:    make(map[string]Job, len(jobs)),
		metrics: m,
		log:     log,
		now:     time.Now,
	}
	for _, j := range jobs {
		s.jobs[j.Name] = j
		s.order = append(s.order, j.Name)
	}
	return s
}

// Run starts every job and blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, name := range s.order {
		job := s.jobs[name]
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.loop(ctx, job)
		}()
	}
	wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	s.log.Info("sweep job started",
		zap.String("job", job.Name),
		zap.Duration("interval", job.Interval))

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	s.tick(ctx, job)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweep job stopped", zap.String("job", job.Name))
			return
		case <-ticker.C:
			s.tick(ctx, job)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, job Job) {
	if _, err := s.runJob(ctx, job); err != nil {
		if errors.Is(err, ErrJobLocked) {
			s.log.Debug("sweep skipped, lock held", zap.String("job", job.Name))
			return
		}
		if ctx.Err() == nil {
			s.log.Error("sweep failed", zap.String("job", job.Name), zap.Error(err))
		}
	}
}

// Trigger runs one pass of the named job now.
func (s *Scheduler) Trigger(ctx context.Context, name string) (Result, error) {
	job, ok := s.jobs[name]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownJob, name)
	}
	return s.runJob(ctx, job)
}

// JobNames lists the configured jobs in start order.
func (s *Scheduler) JobNames() []string {
	return append([]string(nil), s.order...)
}

// LastRun returns the stored summary of the job's previous pass, or nil.
func (s *Scheduler) LastRun(ctx context.Context, name string) (*Result, error) {
	if _, ok := s.jobs[name]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownJob, name)
	}
	if s.locker == nil {
		return nil, nil
	}
	data, err := s.locker.GetLastRun(ctx, name)
	if err != nil || data == nil {
		return nil, err
	}
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("decode last %s run: %w", name, err)
	}
	return &res, nil
}

func (s *Scheduler) runJob(ctx context.Context, job Job) (Result, error) {
	if s.locker == nil {
		return s.sweeper.Run(ctx, job, s.now())
	}

	owner := uuid.NewString()
	ttl := job.Interval
	if ttl <= 0 {
		ttl = time.Minute
	}
	ok, err := s.locker.AcquireSweepLock(ctx, job.Name, owner, ttl)
	if err != nil {
		return Result{}, fmt.Errorf("acquire %s lock: %w", job.Name, err)
	}
	if !ok {
		s.metrics.SweepSkipped.WithLabelValues(job.Name).Inc()
		return Result{}, ErrJobLocked
	}
	defer func() {
		// the pass may have been cancelled; release on a fresh context
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.locker.ReleaseSweepLock(releaseCtx, job.Name, owner); err != nil {
			s.log.Warn("release sweep lock failed", zap.String("job", job.Name), zap.Error(err))
		}
	}()

	res, err := s.sweeper.Run(ctx, job, s.now())
	if err != nil {
		return res, err
	}

	if summary, err := json.Marshal(res); err == nil {
		if err := s.locker.SetLastRun(ctx, job.Name, summary); err != nil {
			s.log.Warn("store last sweep run failed", zap.String("job", job.Name), zap.Error(err))
		}
	}
	return res, nil
}
