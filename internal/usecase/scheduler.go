package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"DailyKnowledge/internal/domain"
	"DailyKnowledge/internal/ports"
)

// DailyRunner is the pipeline triggered by the scheduler.
type DailyRunner interface {
	Run(ctx context.Context, now time.Time) (domain.DailyRun, error)
}

// SchedulerDeps wires the cron driver to the daily pipeline.
type SchedulerDeps struct {
	Driver   ports.Scheduler
	Runner   DailyRunner
	Store    ports.InsightStore
	Logger   *slog.Logger
	Location *time.Location
}

// Scheduler wires the cron-like driver with the daily pipeline and keeps it
// to at most one successful run per calendar day.
type Scheduler struct {
	driver   ports.Scheduler
	runner   DailyRunner
	store    ports.InsightStore
	logger   *slog.Logger
	location *time.Location
	catchUp  sync.WaitGroup
}

// NewScheduler returns a helper to start/stop recurring jobs.
func NewScheduler(deps SchedulerDeps) *Scheduler {
	s := &Scheduler{
		driver:   deps.Driver,
		runner:   deps.Runner,
		store:    deps.Store,
		logger:   deps.Logger,
		location: deps.Location,
	}
	if s.location == nil {
		s.location = time.UTC
	}
	return s
}

// Due reports whether the stored feed is older than the calendar day of now.
func (s *Scheduler) Due(ctx context.Context, now time.Time) (bool, error) {
	if s.store == nil {
		return true, nil
	}
	insights, err := s.store.DailyInsights(ctx)
	if err != nil {
		return false, fmt.Errorf("load daily insights: %w", err)
	}
	today := now.In(s.location).Format(domain.DateLayout)
	for _, in := range insights {
		if in.Date == today {
			return false, nil
		}
	}
	return true, nil
}

// RunIfDue runs the pipeline unless today's feed already exists. The bool
// reports whether a run happened.
func (s *Scheduler) RunIfDue(ctx context.Context, now time.Time) (domain.DailyRun, bool, error) {
	due, err := s.Due(ctx, now)
	if err != nil {
		return domain.DailyRun{}, false, err
	}
	if !due {
		s.info("daily feed already fetched today, skipping", "date", now.In(s.location).Format(domain.DateLayout))
		return domain.DailyRun{}, false, nil
	}
	run, err := s.runner.Run(ctx, now)
	return run, true, err
}

// Start registers the pipeline with the provided scheduler and runs it once
// in the background when today's feed is still missing.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.runner == nil {
		return nil
	}

	job := func(trigger time.Time) {
		if _, _, err := s.RunIfDue(ctx, trigger); err != nil && s.logger != nil {
			s.logger.Error("scheduled daily fetch failed", "error", err)
		}
	}

	if err := s.driver.Start(ctx, job); err != nil {
		return err
	}

	s.catchUp.Add(1)
	go func() {
		defer s.catchUp.Done()
		job(time.Now().In(s.location))
	}()
	return nil
}

// Stop tears down the underlying scheduler and waits for a startup run
// still in flight, up to ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	err := s.driver.Stop(ctx)

	done := make(chan struct{})
	go func() {
		s.catchUp.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		if err == nil {
			err = fmt.Errorf("wait for startup run: %w", ctx.Err())
		}
	}
	return err
}

func (s *Scheduler) info(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}
