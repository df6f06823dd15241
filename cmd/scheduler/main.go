package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"insulationpal_backend/internal/bootstrap"
	"insulationpal_backend/internal/distribution/service"
	"insulationpal_backend/internal/events"
	"insulationpal_backend/internal/notification"
	"insulationpal_backend/internal/scheduler"
	"insulationpal_backend/platform/config"
	"insulationpal_backend/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := bootstrap.OpenStore(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open store", "error", err)
		panic("failed to open store: " + err.Error())
	}
	defer store.Close()

	delivery, err := bootstrap.NewDelivery(cfg, log)
	if err != nil {
		log.Error("failed to initialize notification delivery", "error", err)
		panic("failed to initialize notification delivery: " + err.Error())
	}
	defer delivery.Close()

	eventBus := events.NewInMemoryBus(log)
	notification.NewActivityLog(log).RegisterHandlers(eventBus)

	svc := service.New(store, delivery.Dispatcher, eventBus, log, service.SettingsFrom(cfg, cfg))
	svc.RegisterSubscriptions(eventBus, delivery.WorkQueue())
	defer eventBus.Wait()

	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; running jobs on in-process tickers")
		scheduler.NewRunner(svc, cfg.GetSweepInterval(), cfg.GetCadenceInterval(), log).Run(ctx)
		return
	}

	periodic, err := scheduler.NewPeriodic(cfg, log)
	if err != nil {
		log.Error("failed to initialize periodic scheduler", "error", err)
		panic("failed to initialize periodic scheduler: " + err.Error())
	}
	if err := periodic.Start(); err != nil {
		log.Error("failed to start periodic scheduler", "error", err)
		panic("failed to start periodic scheduler: " + err.Error())
	}
	defer periodic.Shutdown()

	worker, err := scheduler.NewWorker(cfg, svc, delivery.Inline, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}
