// Package bootstrap holds the wiring shared by the api, scheduler and CLI binaries.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"insulationpal_backend/internal/distribution/memory"
	"insulationpal_backend/internal/distribution/ports"
	"insulationpal_backend/internal/distribution/repository"
	"insulationpal_backend/internal/distribution/service"
	"insulationpal_backend/internal/email"
	apphttp "insulationpal_backend/internal/http"
	"insulationpal_backend/internal/notification"
	"insulationpal_backend/internal/scheduler"
	"insulationpal_backend/platform/config"
	"insulationpal_backend/platform/db"
	"insulationpal_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	retryAttempts  = 5
	retryBaseDelay = 2 * time.Second
)

// Store is the selected persistence driver.
type Store struct {
	ports.Store
	// Health is nil for the memory driver.
	Health apphttp.HealthChecker
	Memory bool
	close  func()
}

func (s *Store) Close() {
	if s.close != nil {
		s.close()
	}
}

type StoreDeps interface {
	config.StoreConfig
	config.DatabaseConfig
}

// OpenStore migrates and connects to Postgres, or builds a seeded memory store.
func OpenStore(ctx context.Context, cfg StoreDeps, log *logger.Logger) (*Store, error) {
	if cfg.GetStoreDriver() == config.StoreDriverMemory {
		store := memory.New()
		if path := cfg.GetStoreSeedPath(); path != "" {
			if err := store.LoadSeed(path); err != nil {
				return nil, err
			}
		}
		log.Warn("using in-memory store; state is lost on restart")
		return &Store{Store: store, Memory: true}, nil
	}

	if err := WithRetry(ctx, log, "database migrations", retryAttempts, retryBaseDelay, func() error {
		return db.RunMigrations(ctx, cfg)
	}); err != nil {
		return nil, fmt.Errorf("run database migrations: %w", err)
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := WithRetry(ctx, log, "database connection", retryAttempts, retryBaseDelay, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	log.Info("database connection established")

	return &Store{
		Store:  repository.New(pool),
		Health: db.NewPoolAdapter(pool),
		close:  pool.Close,
	}, nil
}

// Delivery is how notifications leave the process.
type Delivery struct {
	Dispatcher ports.Dispatcher
	// Queue is nil without Redis; work then runs inline.
	Queue  *scheduler.Client
	Inline *notification.EmailDispatcher
}

type DeliveryDeps interface {
	config.SchedulerConfig
	config.EmailConfig
}

// NewDelivery queues notifications when Redis is configured and otherwise sends
// them inline, or only logs them when email is disabled.
func NewDelivery(cfg DeliveryDeps, log *logger.Logger) (*Delivery, error) {
	inline := notification.NewEmailDispatcher(email.NewRenderer(cfg.GetAppBaseURL()), email.NewSender(cfg), log)

	if cfg.GetRedisURL() != "" {
		client, err := scheduler.NewClient(cfg)
		if err != nil {
			return nil, err
		}
		return &Delivery{Dispatcher: notification.NewQueueDispatcher(client), Queue: client, Inline: inline}, nil
	}

	log.Warn("REDIS_URL not configured; background work and notifications run inline")
	if !cfg.GetEmailEnabled() {
		return &Delivery{Dispatcher: notification.NewLogDispatcher(log), Inline: inline}, nil
	}
	return &Delivery{Dispatcher: inline, Inline: inline}, nil
}

// WorkQueue returns the queue as a service.WorkQueue, or nil without Redis.
func (d *Delivery) WorkQueue() service.WorkQueue {
	if d.Queue == nil {
		return nil
	}
	return d.Queue
}

func (d *Delivery) Close() {
	if d.Queue != nil {
		_ = d.Queue.Close()
	}
}

// WithRetry runs fn up to attempts times with quadratic backoff.
func WithRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
