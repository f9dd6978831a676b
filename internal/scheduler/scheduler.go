package scheduler

import (
	"context"
	"fmt"
	"time"

	"anoa.com/notifiq/pkg/logger"
	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Job is a unit of background maintenance. An empty schedule registers the
// job as on-demand only.
type Job interface {
	Name() string
	Schedule() string
	Execute(ctx context.Context) error
}

type funcJob struct {
	name     string
	schedule string
	run      func(ctx context.Context) error
}

// Func adapts a function into a Job.
func Func(name, schedule string, run func(ctx context.Context) error) Job {
	return &funcJob{name: name, schedule: schedule, run: run}
}

func (j *funcJob) Name() string                      { return j.name }
func (j *funcJob) Schedule() string                  { return j.schedule }
func (j *funcJob) Execute(ctx context.Context) error { return j.run(ctx) }

// Scheduler runs registered jobs on their cron schedules.
type Scheduler struct {
	cron    *cron.Cron
	jobs    []Job
	timeout time.Duration
	log     *zap.Logger
}

func NewScheduler(timeout time.Duration) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithLogger(cron.DiscardLogger)),
		timeout: timeout,
		log:     logger.WithModule("scheduler"),
	}
}

// Register adds the job and, when it has a schedule, wires it into cron.
func (s *Scheduler) Register(job Job) error {
	if schedule := job.Schedule(); schedule != "" {
		if _, err := s.cron.AddFunc(schedule, func() { s.run(job) }); err != nil {
			return fmt.Errorf("schedule %s: %w", job.Name(), err)
		}
		s.log.Info("job scheduled", zap.String("job", job.Name()), zap.String("schedule", schedule))
	} else {
		s.log.Info("job registered on demand", zap.String("job", job.Name()))
	}
	s.jobs = append(s.jobs, job)
	return nil
}

func (s *Scheduler) run(job Job) {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	started := time.Now()
	if err := job.Execute(ctx); err != nil {
		s.log.Warn("job failed", zap.String("job", job.Name()), zap.Error(err))
		return
	}
	s.log.Info("job completed", zap.String("job", job.Name()), zap.Duration("took", time.Since(started)))
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", zap.Int("jobs", len(s.jobs)))
}

// Stop halts the scheduler. The returned context is done once running jobs
// have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// RunByName executes one job immediately.
func (s *Scheduler) RunByName(ctx context.Context, name string) error {
	for _, job := range s.jobs {
		if job.Name() == name {
			return job.Execute(ctx)
		}
	}
	return fmt.Errorf("job %q not registered", name)
}

// RunAll executes every job once, collecting failures.
func (s *Scheduler) RunAll(ctx context.Context) error {
	var errs error
	for _, job := range s.jobs {
		if err := job.Execute(ctx); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", job.Name(), err))
		}
	}
	return errs
}

// Names lists registered jobs in registration order.
func (s *Scheduler) Names() []string {
	names := make([]string, len(s.jobs))
	for i, job := range s.jobs {
		names[i] = job.Name()
	}
	return names
}
