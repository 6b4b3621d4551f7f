package backup

import (
	"context"
	"log/slog"
	"time"
)

const DEFAULT_SCHEDULER_INTERVAL = time.Hour

// Scheduler invokes RunPass on a fixed interval. It is a single in-process
// ticker; per-policy frequency gating happens inside the pass, so a short
// interval only costs a policy scan.
type Scheduler struct {
	service  *Service
	interval time.Duration
}

// NewScheduler creates a scheduler driving the given service
func NewScheduler(service *Service, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DEFAULT_SCHEDULER_INTERVAL
	}
	return &Scheduler{
		service:  service,
		interval: interval,
	}
}

// Start blocks running backup passes until the context is cancelled.
// Callers usually run it in its own goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	slog.Info("Backup scheduler started", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Backup scheduler stopped")
			return
		case <-ticker.C:
			if _, err := s.service.RunPass(ctx); err != nil {
				slog.Error("Scheduled backup pass failed", "error", err)
			}
		}
	}
}
