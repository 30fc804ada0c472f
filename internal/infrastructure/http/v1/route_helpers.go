package v1

import (
	"github.com/gin-gonic/gin"
)

// SaleRouteHandler defines the routes every sale resource serves.
type SaleRouteHandler interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	Replace(c *gin.Context)
	Patch(c *gin.Context)
	Delete(c *gin.Context)
}

// StockCheckHandler is an optional interface for the feasibility check.
type StockCheckHandler interface {
	CheckStock(c *gin.Context)
}

// RegisterSaleRoutes registers CRUD routes for sales. If the handler also
// implements StockCheckHandler, POST /check_stock is registered too.
//
// Usage:
//
//	handler := handlers.NewSaleHandler(base, service, lenient)
//	RegisterSaleRoutes(api.Group("/sales"), handler)
func RegisterSaleRoutes(group *gin.RouterGroup, handler SaleRouteHandler) {
	group.GET("", handler.List)
	group.POST("", handler.Create)
	group.GET("/:id", handler.Get)
	group.PUT("/:id", handler.Replace)
	group.PATCH("/:id", handler.Patch)
	group.DELETE("/:id", handler.Delete)

	if checker, ok := handler.(StockCheckHandler); ok {
		group.POST("/check_stock", checker.CheckStock)
	}
}
