package scheduler

import (
	"context"
	"time"

	"github.com/plannery/plannery-backend/internal/app/service"
	"github.com/plannery/plannery-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// TrendingScheduler recomputes venue trending scores on a cron schedule.
type TrendingScheduler struct {
	cron     *cron.Cron
	trending service.TrendingService
	schedule string
}

func NewTrendingScheduler(trending service.TrendingService, schedule string) *TrendingScheduler {
	return &TrendingScheduler{
		cron:     cron.New(),
		trending: trending,
		schedule: schedule,
	}
}

// Start registers the refresh job and runs one refresh immediately so a
// fresh deployment does not serve stale scores until the first tick.
func (s *TrendingScheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, s.refresh)
	if err != nil {
		logger.Error("Failed to schedule trending refresh", err, map[string]interface{}{
			"schedule": s.schedule,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Trending scheduler started", map[string]interface{}{
		"schedule": s.schedule,
	})

	go s.refresh()
	return nil
}

// Stop halts the scheduler and waits for a running refresh to finish.
func (s *TrendingScheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(30 * time.Second):
		logger.Warn("Timed out waiting for trending refresh to finish")
	}
	logger.Info("Trending scheduler stopped")
}

func (s *TrendingScheduler) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := s.trending.RefreshAll(ctx); err != nil {
		logger.Error("Trending score refresh failed", err)
	}
}
