// Package main is the entry point for the mystore background worker: it
// relays outbox events and removes expired system rows.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"mystore/internal/config"
	"mystore/internal/infrastructure/storage/postgres"
	"mystore/pkg/logger"
)

const publishedRetention = 7 * 24 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.Development(),
		Service:     "mystore-worker",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting mystore worker")

	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	poolCfg.ApplicationName = "mystore-worker"
	poolCfg.MaxConns = 4
	poolCfg.MinConns = 1
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txm := postgres.NewTxManager(pool)
	worker := NewWorker(
		postgres.NewOutboxRelay(txm, cfg.OutboxBatchSize, postgres.OutboxHandlerFunc(logDelivery(log))),
		postgres.NewIdempotencyStore(txm, cfg.IdempotencyTTL),
		cfg.OutboxPollInterval,
		log,
	)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}

// logDelivery is the delivery target until an external broker is
// configured: every event is written to the log.
func logDelivery(log *logger.Logger) func(ctx context.Context, msg *postgres.OutboxMessage) error {
	return func(ctx context.Context, msg *postgres.OutboxMessage) error {
		log.Infow("event delivered",
			"event_type", msg.EventType,
			"aggregate_type", msg.AggregateType,
			"aggregate_id", msg.AggregateID.String(),
			"payload", string(msg.Payload),
		)
		return nil
	}
}

// relay and expirer are the parts of the storage layer the worker drives.
type relay interface {
	ProcessBatch(ctx context.Context) (int, error)
	CleanupPublished(ctx context.Context, olderThan time.Duration) (int64, error)
}

type expirer interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// Worker polls the outbox and runs hourly cleanups.
type Worker struct {
	relay        relay
	keys         expirer
	pollInterval time.Duration
	log          *logger.Logger
}

func NewWorker(r relay, keys expirer, pollInterval time.Duration, log *logger.Logger) *Worker {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &Worker{
		relay:        r,
		keys:         keys,
		pollInterval: pollInterval,
		log:          log.WithComponent("worker"),
	}
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	cleanupTicker := time.NewTicker(1 * time.Hour)
	defer cleanupTicker.Stop()

	w.cleanup(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.drain(ctx)
		case <-cleanupTicker.C:
			w.cleanup(ctx)
		}
	}
}

// drain processes full batches back to back until the outbox is empty.
func (w *Worker) drain(ctx context.Context) {
	for ctx.Err() == nil {
		n, err := w.relay.ProcessBatch(ctx)
		if err != nil {
			w.log.Errorw("outbox batch failed", "error", err)
			return
		}
		if n > 0 {
			w.log.Debugw("processed outbox batch", "count", n)
		}
		if n == 0 {
			return
		}
	}
}

func (w *Worker) cleanup(ctx context.Context) {
	if n, err := w.keys.CleanupExpired(ctx); err != nil {
		w.log.Errorw("idempotency cleanup failed", "error", err)
	} else if n > 0 {
		w.log.Infow("cleaned up idempotency keys", "count", n)
	}

	if n, err := w.relay.CleanupPublished(ctx, publishedRetention); err != nil {
		w.log.Errorw("outbox cleanup failed", "error", err)
	} else if n > 0 {
		w.log.Infow("cleaned up published events", "count", n)
	}
}
