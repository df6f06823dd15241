package scheduler

import (
	"context"
	"fmt"

	"insulationpal_backend/internal/distribution/service"
	"insulationpal_backend/internal/notification"
	"insulationpal_backend/platform/config"
	"insulationpal_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Jobs is the distribution work the worker and the ticker runner execute.
type Jobs interface {
	RunExpirySweep(ctx context.Context) (service.SweepResult, error)
	RunReminderCadence(ctx context.Context) (service.CadenceResult, error)
	RunFollowupCadence(ctx context.Context) (service.CadenceResult, error)
	DistributeLead(ctx context.Context, leadID uuid.UUID) (service.DistributionResult, error)
}

// Deliverer sends one dequeued notification.
type Deliverer interface {
	Deliver(ctx context.Context, d notification.Delivery) error
}

type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	jobs      Jobs
	deliverer Deliverer
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, jobs Jobs, deliverer Deliverer, log *logger.Logger) (*Worker, error) {
	opt, err := redisOpt(cfg)
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	w := &Worker{
		server:    server,
		jobs:      jobs,
		deliverer: deliverer,
		log:       log,
	}
	w.mux = w.routes()
	return w, nil
}

func (w *Worker) routes() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskExpirySweep, w.handleExpirySweep)
	mux.HandleFunc(TaskReminderCadence, w.handleReminderCadence)
	mux.HandleFunc(TaskFollowupCadence, w.handleFollowupCadence)
	mux.HandleFunc(TaskLeadBackfill, w.handleLeadBackfill)
	mux.HandleFunc(TaskNotificationSend, w.handleNotificationSend)
	return mux
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleExpirySweep(ctx context.Context, _ *asynq.Task) error {
	_, err := w.jobs.RunExpirySweep(ctx)
	return err
}

func (w *Worker) handleReminderCadence(ctx context.Context, _ *asynq.Task) error {
	_, err := w.jobs.RunReminderCadence(ctx)
	return err
}

func (w *Worker) handleFollowupCadence(ctx context.Context, _ *asynq.Task) error {
	_, err := w.jobs.RunFollowupCadence(ctx)
	return err
}

func (w *Worker) handleLeadBackfill(ctx context.Context, task *asynq.Task) error {
	leadID, err := ParseLeadBackfillPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	_, err = w.jobs.DistributeLead(ctx, leadID)
	return err
}

// handleNotificationSend never asks for a retry: a failed delivery is logged and dropped.
func (w *Worker) handleNotificationSend(ctx context.Context, task *asynq.Task) error {
	d, err := ParseNotificationSendPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if w.deliverer == nil {
		return nil
	}
	if err := w.deliverer.Deliver(ctx, d); err != nil {
		w.log.NotificationFailed(d.Template, d.Recipient, err)
	}
	return nil
}
