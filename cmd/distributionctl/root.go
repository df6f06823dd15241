package main

import (
	"fmt"
	"os"

	"insulationpal_backend/internal/bootstrap"
	"insulationpal_backend/internal/distribution/service"
	"insulationpal_backend/internal/events"
	"insulationpal_backend/internal/notification"
	"insulationpal_backend/platform/config"
	"insulationpal_backend/platform/logger"

	"github.com/spf13/cobra"
)

// env holds what PersistentPreRunE wired for the running command.
type env struct {
	svc      *service.Service
	bus      *events.InMemoryBus
	store    *bootstrap.Store
	delivery *bootstrap.Delivery
}

var current *env

var rootCmd = &cobra.Command{
	Use:           "distributionctl",
	Short:         "Operate the lead distribution engine",
	Long:          "Runs distribution rounds, sweeps and cadences on demand, and settles or inspects contractor credits.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		log := logger.NewWithWriter(cfg.Env, os.Stderr)

		store, err := bootstrap.OpenStore(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		delivery, err := bootstrap.NewDelivery(cfg, log)
		if err != nil {
			store.Close()
			return err
		}

		bus := events.NewInMemoryBus(log)
		notification.NewActivityLog(log).RegisterHandlers(bus)
		svc := service.New(store, delivery.Dispatcher, bus, log, service.SettingsFrom(cfg, cfg))
		svc.RegisterSubscriptions(bus, delivery.WorkQueue())

		current = &env{svc: svc, bus: bus, store: store, delivery: delivery}
		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		if current == nil {
			return
		}
		current.bus.Wait()
		current.delivery.Close()
		current.store.Close()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
