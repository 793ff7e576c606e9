// Package refresh reloads the map on a cron schedule.
package refresh

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// ReloadFunc repeats the current load.
type ReloadFunc func(ctx context.Context) error

// Scheduler runs a ReloadFunc on a standard 5-field cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	schedule string
	reload   ReloadFunc
	logger   *slog.Logger
}

// New parses the schedule and registers the reload job. The scheduler does not
// run until Start is called.
func New(schedule string, reload ReloadFunc, logger *slog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		schedule: schedule,
		reload:   reload,
		logger:   logger,
	}
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("parse refresh schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins running the reload job in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("refresh scheduler started", "schedule", s.schedule)
}

// Stop halts the schedule and waits for a running reload to finish or for ctx
// to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for refresh to finish: %w", ctx.Err())
	}
}

func (s *Scheduler) run() {
	if err := s.reload(context.Background()); err != nil {
		s.logger.Error("scheduled refresh failed", "error", err)
		return
	}
	s.logger.Debug("scheduled refresh complete")
}
