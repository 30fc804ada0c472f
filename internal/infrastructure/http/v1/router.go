// Package v1 provides HTTP API version 1.
package v1

import (
	"context"

	"github.com/gin-gonic/gin"

	"mystore/internal/domain"
	"mystore/internal/domain/audit"
	"mystore/internal/domain/auth"
	"mystore/internal/domain/sales"
	"mystore/internal/infrastructure/http/v1/handlers"
	"mystore/internal/infrastructure/http/v1/middleware"
	"mystore/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	Logger *logger.Logger

	// DB backs the readiness probe.
	DB handlers.DBProbe

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	Sales *sales.Service
	Stock handlers.StockService

	// Audit serves /sales/:id/history when set.
	Audit domain.AuditReader

	// LenientItems selects the permissive line item parsing.
	LenientItems bool

	// Idempotency is nil when the middleware is disabled.
	Idempotency middleware.IdempotencyStore

	CORSAllowedOrigins []string
	Version            string
	Debug              bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth)
	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Version)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	api := router.Group("/api/v1")
	api.Use(middleware.Auth(cfg.JWTValidator))
	if cfg.Idempotency != nil {
		api.Use(middleware.Idempotency(cfg.Idempotency))
	}

	registerSaleRoutes(api, cfg)
	registerProductRoutes(api, cfg)

	return router
}

func registerSaleRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	if cfg.Sales == nil {
		return
	}
	cfg.Sales.Hooks().OnBeforeCreate(func(ctx context.Context, s *sales.Sale) error {
		audit.EnrichCreatedBy(ctx, &s.CreatedBy, &s.UpdatedBy)
		return nil
	})
	cfg.Sales.Hooks().OnBeforeUpdate(func(ctx context.Context, s *sales.Sale) error {
		audit.EnrichUpdatedBy(ctx, &s.UpdatedBy)
		return nil
	})

	handler := handlers.NewSaleHandler(handlers.NewBaseHandler(), cfg.Sales, cfg.LenientItems)
	group := rg.Group("/sales")
	RegisterSaleRoutes(group, handler)
	if cfg.Audit != nil {
		history := handlers.NewHistoryHandler(handlers.NewBaseHandler(), cfg.Audit, sales.AggregateSale)
		group.GET("/:id/history", history.History)
	}
	rg.GET("/out-of-stock-sales", handler.ListOutOfStock)

	admin := rg.Group("/admin")
	admin.Use(middleware.RequireRole(auth.RoleAdmin))
	admin.POST("/sales/purge", handler.Purge)
}

func registerProductRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	if cfg.Stock == nil {
		return
	}
	handler := handlers.NewProductHandler(handlers.NewBaseHandler(), cfg.Stock)
	products := rg.Group("/products")
	products.GET("/:id", handler.Get)
	products.POST("/:id/update_stock", handler.UpdateStock)
}
