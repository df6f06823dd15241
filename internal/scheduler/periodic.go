package scheduler

import (
	"fmt"
	"time"

	"insulationpal_backend/platform/config"
	"insulationpal_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Periodic enqueues the sweep and both cadences on their configured intervals.
type Periodic struct {
	scheduler *asynq.Scheduler
	log       *logger.Logger
}

func NewPeriodic(cfg config.SchedulerConfig, log *logger.Logger) (*Periodic, error) {
	opt, err := redisOpt(cfg)
	if err != nil {
		return nil, err
	}

	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{Location: time.UTC})
	queue := asynq.Queue(queueName(cfg))

	entries := []struct {
		interval time.Duration
		task     *asynq.Task
	}{
		{cfg.GetSweepInterval(), NewExpirySweepTask()},
		{cfg.GetCadenceInterval(), NewReminderCadenceTask()},
		{cfg.GetCadenceInterval(), NewFollowupCadenceTask()},
	}
	for _, e := range entries {
		// A run that outlasts its interval must not stack up behind itself.
		if _, err := scheduler.Register(everySpec(e.interval), e.task, queue, asynq.Unique(e.interval)); err != nil {
			return nil, fmt.Errorf("register %s: %w", e.task.Type(), err)
		}
	}

	return &Periodic{scheduler: scheduler, log: log}, nil
}

// Run blocks until the scheduler stops.
func (p *Periodic) Run() error {
	return p.scheduler.Run()
}

func (p *Periodic) Start() error {
	if err := p.scheduler.Start(); err != nil {
		return err
	}
	p.log.Info("periodic scheduler started")
	return nil
}

func (p *Periodic) Shutdown() {
	p.scheduler.Shutdown()
}

func everySpec(interval time.Duration) string {
	return "@every " + interval.String()
}
