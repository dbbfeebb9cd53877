package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const DefaultInterval = 24 * time.Hour

// Run calls job once right away and then every interval until ctx is
// cancelled. Runs never overlap: a tick that fires while job is still
// running is dropped.
func Run(ctx context.Context, interval time.Duration, logger *zap.Logger, job func(ctx context.Context)) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("scheduler started", zap.Duration("interval", interval))

	job(ctx)

	for {
		select {
		case <-ctx.Done():
			logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			job(ctx)
		}
	}
}
