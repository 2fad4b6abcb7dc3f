package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/freshkit/freshkit-backend/internal/audit"
	pkgerrors "github.com/freshkit/freshkit-backend/pkg/errors"
	"github.com/freshkit/freshkit-backend/pkg/logger"
	"github.com/freshkit/freshkit-backend/pkg/metrics"
)

const (
	defaultInterval = time.Hour

	// AllJobs triggers every registered job in registration order.
	AllJobs = "all"
)

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	Interval time.Duration
}

// Service executes registered cron jobs, either on demand from the cron
// endpoint or on a fixed cadence in the cron worker.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.CronJobMetrics
	interval time.Duration
	now      func() time.Time
}

// Result reports one job execution.
type Result struct {
	Job        string  `json:"job"`
	OK         bool    `json:"ok"`
	DurationMS int64   `json:"duration_ms"`
	Summary    Summary `json:"summary,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// NewService builds a cron service. Lock is only needed by Run.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: interval,
		now:      time.Now,
	}, nil
}

// Trigger runs the named job, or every job for AllJobs. Job failures are
// reported per result and combined into the returned error.
func (s *Service) Trigger(ctx context.Context, name string) ([]Result, error) {
	if name == AllJobs {
		return s.RunAll(ctx)
	}
	job, ok := s.registry.Lookup(name)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "unknown cron job").
			WithDetails(map[string]any{"job": name, "valid": append(s.registry.Names(), AllJobs)})
	}
	result, err := s.runJob(ctx, job)
	return []Result{result}, err
}

// RunAll runs every job even when earlier ones fail.
func (s *Service) RunAll(ctx context.Context) ([]Result, error) {
	jobs := s.registry.Jobs()
	results := make([]Result, 0, len(jobs))
	var errs error
	for _, job := range jobs {
		result, err := s.runJob(ctx, job)
		results = append(results, result)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", job.Name(), err))
		}
	}
	return results, errs
}

// Run starts the cron loop until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.lock == nil {
		return fmt.Errorf("lock required")
	}
	if err := s.runCycle(ctx); err != nil {
		s.logg.Error(ctx, "scheduled run failed", err)
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron service context canceled")
			return ctx.Err()
		case <-ticker.C:
			if err := s.runCycle(ctx); err != nil {
				s.logg.Error(ctx, "scheduled run failed", err)
			}
		}
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		holder, err := s.lock.Holder(ctx)
		if err != nil {
			s.logg.Warn(ctx, "cron.lock_holder_unreadable")
		}
		s.logg.Info(s.logg.WithField(ctx, "lock_holder", holder), "cron.cycle_skipped_lock_held")
		return nil
	}
	ctx = s.logg.WithField(ctx, "lock_owner", s.lock.Owner())
	defer func() {
		if relErr := s.lock.Release(ctx); relErr != nil {
			s.logg.Error(ctx, "failed to release cron lock", relErr)
		}
	}()

	s.logg.Info(ctx, "scheduled run starting")
	_, err = s.RunAll(ctx)
	s.logg.Info(ctx, "scheduled run complete")
	return err
}

func (s *Service) runJob(ctx context.Context, job Job) (Result, error) {
	jobCtx := s.logg.WithFields(ctx, map[string]any{
		"job":   job.Name(),
		"event": "cron.job",
	})
	jobCtx = audit.WithActor(jobCtx, audit.CronActor(job.Name()))
	s.logg.Info(jobCtx, "job start")
	start := s.now()
	summary, err := job.Run(jobCtx)
	duration := s.now().Sub(start)
	s.metrics.ObserveDuration(job.Name(), duration)

	result := Result{
		Job:        job.Name(),
		OK:         err == nil,
		DurationMS: duration.Milliseconds(),
		Summary:    summary,
	}
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", result.DurationMS)
	if err != nil {
		result.Error = err.Error()
		s.logg.Error(jobCtx, "job failed", err)
		s.metrics.IncFailure(job.Name())
		return result, err
	}
	s.logg.Info(jobCtx, "job completed")
	s.metrics.IncSuccess(job.Name())
	return result, nil
}
