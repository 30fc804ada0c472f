// Package main is the entry point for the mystore API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mystore/internal/app"
	"mystore/internal/config"
	"mystore/internal/domain/auth"
	v1 "mystore/internal/infrastructure/http/v1"
	"mystore/internal/infrastructure/http/v1/middleware"
	"mystore/internal/infrastructure/storage/postgres"
	"mystore/pkg/logger"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Printf("invalid config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.Development(),
		Service:     "mystore-api",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	log.Infow("starting mystore server", "env", cfg.AppEnv, "reversal", cfg.Sales.Reversal)

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatalw("failed to initialize application", "error", err)
	}
	defer a.Close()
	log.Info("database connection established")

	statsCtx, stopStats := context.WithCancel(logger.WithLogger(ctx, log.WithComponent("db")))
	defer stopStats()
	if cfg.DBStatsInterval > 0 {
		go logPoolStats(statsCtx, a.Pool, cfg.DBStatsInterval)
	}

	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		jwtSecret = "dev-secret-change-me"
		log.Warn("JWT_SECRET not set, using development secret")
	}
	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(jwtSecret))

	var idem middleware.IdempotencyStore
	if cfg.IdempotencyEnabled {
		idem = a.Idempotency
	}

	router := v1.NewRouter(v1.RouterConfig{
		Logger:             log,
		DB:                 a.Pool,
		JWTValidator:       jwtService,
		Sales:              a.Sales,
		Audit:              a.Audit,
		Stock:              a.Stock,
		LenientItems:       cfg.Sales.LenientItems,
		Idempotency:        idem,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Version:            version,
		Debug:              cfg.Development(),
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

func logPoolStats(ctx context.Context, pool *postgres.Pool, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pool.LogStats(ctx)
		}
	}
}
