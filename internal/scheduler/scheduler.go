// Package scheduler drives periodic cache warming. The feed publishes the
// daily report once a day at an unannounced time, so a modest refresh
// interval keeps the default date's report warm without hammering upstream.
package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/gkiss/odp-extremes-service/internal/cache"
)

// Scheduler periodically re-warms the report cache for the default date.
type Scheduler struct {
	scheduler *gocron.Scheduler
	warmer    *cache.Warmer
	interval  time.Duration
	logger    *zap.Logger
}

// New creates a Scheduler around the given warmer.
func New(warmer *cache.Warmer, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		warmer:    warmer,
		interval:  interval,
		logger:    logger,
	}
}

// Start schedules the warming job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 30
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		if err := s.warmer.Warm(ctx); err != nil && s.logger != nil {
			s.logger.Warn("scheduled cache warm failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
