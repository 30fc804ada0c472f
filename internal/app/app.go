// Package app wires the storage layer and domain services shared by the
// binaries in cmd/.
package app

import (
	"context"
	"fmt"

	"mystore/internal/config"
	"mystore/internal/domain/inventory"
	"mystore/internal/domain/sales"
	"mystore/internal/infrastructure/storage/postgres"
	"mystore/internal/infrastructure/storage/postgres/catalog_repo"
	"mystore/internal/infrastructure/storage/postgres/document_repo"
	"mystore/internal/infrastructure/storage/postgres/register_repo"
	"mystore/pkg/logger"
)

// App holds the wired dependencies. Close releases the pool.
type App struct {
	Config    config.Config
	Log       *logger.Logger
	Pool      *postgres.Pool
	TxManager *postgres.TxManager

	Products  *catalog_repo.ProductRepo
	Customers *catalog_repo.CustomerRepo

	Audit       *postgres.AuditService
	Outbox      *postgres.OutboxPublisher
	Idempotency *postgres.IdempotencyStore

	Sales *sales.Service
	Stock *inventory.Service
}

// New connects to the database and builds the services.
func New(ctx context.Context, cfg config.Config, log *logger.Logger) (*App, error) {
	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	if cfg.DBMaxConns > 0 {
		poolCfg.MaxConns = cfg.DBMaxConns
	}
	if cfg.DBMinConns > 0 {
		poolCfg.MinConns = cfg.DBMinConns
	}
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	txm := postgres.NewTxManager(pool)
	auditSvc, err := postgres.NewAuditService(txm)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init audit: %w", err)
	}

	a := &App{
		Config:      cfg,
		Log:         log,
		Pool:        pool,
		TxManager:   txm,
		Products:    catalog_repo.NewProductRepo(txm),
		Customers:   catalog_repo.NewCustomerRepo(txm),
		Audit:       auditSvc,
		Outbox:      postgres.NewOutboxPublisher(txm),
		Idempotency: postgres.NewIdempotencyStore(txm, cfg.IdempotencyTTL),
	}

	a.Sales = sales.NewService(sales.ServiceConfig{
		Repo:       document_repo.NewSaleRepo(txm),
		OutOfStock: register_repo.NewOutOfStockRepo(txm),
		Customers:  a.Customers,
		Products:   a.Products,
		TxManager:  txm,
		Events:     a.Outbox,
		Audit:      auditSvc,
		Options:    cfg.Sales,
	})
	a.Stock = inventory.NewService(a.Products, txm, auditSvc)

	return a, nil
}

// Close releases the connection pool.
func (a *App) Close() {
	a.Pool.Close()
}
