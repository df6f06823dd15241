package scheduler

import (
	"context"
	"sync"
	"time"

	"insulationpal_backend/platform/logger"
)

// Runner drives the periodic jobs in-process when no Redis is configured.
// Each job runs on its own ticker and never overlaps with itself.
type Runner struct {
	jobs            Jobs
	sweepInterval   time.Duration
	cadenceInterval time.Duration
	log             *logger.Logger
}

func NewRunner(jobs Jobs, sweepInterval, cadenceInterval time.Duration, log *logger.Logger) *Runner {
	return &Runner{
		jobs:            jobs,
		sweepInterval:   sweepInterval,
		cadenceInterval: cadenceInterval,
		log:             log,
	}
}

// Run blocks until ctx is cancelled and every loop has returned.
func (r *Runner) Run(ctx context.Context) {
	var wg sync.WaitGroup
	loop := func(name string, interval time.Duration, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.every(ctx, name, interval, fn)
		}()
	}

	loop(TaskExpirySweep, r.sweepInterval, func(ctx context.Context) error {
		_, err := r.jobs.RunExpirySweep(ctx)
		return err
	})
	loop(TaskReminderCadence, r.cadenceInterval, func(ctx context.Context) error {
		_, err := r.jobs.RunReminderCadence(ctx)
		return err
	})
	loop(TaskFollowupCadence, r.cadenceInterval, func(ctx context.Context) error {
		_, err := r.jobs.RunFollowupCadence(ctx)
		return err
	})

	wg.Wait()
}

func (r *Runner) every(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if err := fn(ctx); err != nil && ctx.Err() == nil {
			r.log.Warn("scheduled job failed", "task", name, "error", err)
		}
	}
}
