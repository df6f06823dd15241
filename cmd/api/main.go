package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"insulationpal_backend/internal/bootstrap"
	"insulationpal_backend/internal/distribution"
	"insulationpal_backend/internal/distribution/service"
	"insulationpal_backend/internal/events"
	apphttp "insulationpal_backend/internal/http"
	"insulationpal_backend/internal/http/router"
	"insulationpal_backend/internal/notification"
	"insulationpal_backend/internal/scheduler"
	"insulationpal_backend/internal/webhook"
	"insulationpal_backend/platform/config"
	"insulationpal_backend/platform/logger"
	"insulationpal_backend/platform/validator"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr, "store", cfg.StoreDriver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

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

	// ========================================================================
	// Domain Modules
	// ========================================================================

	// Shared validator instance for dependency injection
	val := validator.New()

	settings := service.SettingsFrom(cfg, cfg)
	distributionModule := distribution.NewModule(store, delivery.Dispatcher, eventBus, log, settings, val)
	distributionModule.Service().RegisterSubscriptions(eventBus, delivery.WorkQueue())

	modules := []apphttp.Module{distributionModule}
	if secret := cfg.GetPaymentWebhookSecret(); secret != "" {
		modules = append(modules, webhook.NewModule(distributionModule.Service(), secret, val))
	} else {
		log.Warn("PAYMENT_WEBHOOK_SECRET not configured; payment webhook disabled")
	}

	// The memory store lives in this process only, so nothing else could sweep it.
	if store.Memory {
		runner := scheduler.NewRunner(distributionModule.Service(), cfg.GetSweepInterval(), cfg.GetCadenceInterval(), log)
		go runner.Run(ctx)
	}

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   store.Health,
		EventBus: eventBus,
		Modules:  modules,
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}
