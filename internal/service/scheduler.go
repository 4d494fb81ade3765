package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Refresher runs one sync-and-rebuild cycle.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Scheduler refreshes the knowledge base once at start and then periodically.
type Scheduler struct {
	scheduler gocron.Scheduler
	refresher Refresher
	interval  time.Duration
	job       gocron.Job
	cancel    context.CancelFunc
}

// NewScheduler creates a scheduler running refresher every interval.
func NewScheduler(refresher Refresher, interval time.Duration) (*Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("scheduler: interval must be positive, got %s", interval)
	}

	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &Scheduler{
		scheduler: scheduler,
		refresher: refresher,
		interval:  interval,
	}, nil
}

// Start registers the refresh job and starts the scheduler. The first run
// starts immediately in the background. Runs never overlap; a tick that
// arrives while a run is in progress is skipped.
func (s *Scheduler) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	job, err := s.scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() {
			s.run(ctx)
		}),
		gocron.WithName("menu-refresh"),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		s.cancel()
		return fmt.Errorf("register refresh job: %w", err)
	}
	s.job = job

	s.scheduler.Start()
	slog.Info("scheduler started", "job", "menu-refresh", "interval", s.interval)
	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	start := time.Now()
	if err := s.refresher.Refresh(ctx); err != nil {
		slog.Error("scheduled refresh failed", "error", err, "duration", time.Since(start))
		return
	}
	slog.Info("scheduled refresh complete", "duration", time.Since(start))
}

// NextRun returns when the refresh job fires next.
func (s *Scheduler) NextRun() (time.Time, error) {
	if s.job == nil {
		return time.Time{}, fmt.Errorf("scheduler not started")
	}
	return s.job.NextRun()
}

// Stop cancels an in-flight refresh and shuts the scheduler down.
func (s *Scheduler) Stop() error {
	slog.Info("stopping scheduler")
	if s.cancel != nil {
		s.cancel()
	}
	return s.scheduler.Shutdown()
}
