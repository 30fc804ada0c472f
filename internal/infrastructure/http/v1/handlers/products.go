package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"mystore/internal/core/id"
	"mystore/internal/domain/inventory"
	"mystore/internal/infrastructure/http/v1/dto"
)

// StockService is the part of inventory.Service the HTTP layer uses.
type StockService interface {
	GetProduct(ctx context.Context, productID id.ID) (*inventory.Product, error)
	AdjustStock(ctx context.Context, productID id.ID, adj inventory.Adjustment) (inventory.AdjustResult, error)
}

// ProductHandler handles /products.
type ProductHandler struct {
	*BaseHandler
	service StockService
}

// NewProductHandler creates the handler.
func NewProductHandler(base *BaseHandler, service StockService) *ProductHandler {
	return &ProductHandler{BaseHandler: base, service: service}
}

// Get handles GET /products/:id.
func (h *ProductHandler) Get(c *gin.Context) {
	productID, ok := h.ParseID(c)
	if !ok {
		return
	}
	p, err := h.service.GetProduct(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromProduct(p))
}

// UpdateStock handles POST /products/:id/update_stock.
func (h *ProductHandler) UpdateStock(c *gin.Context) {
	productID, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req dto.UpdateStockRequest
	if !h.BindJSON(c, &req) {
		return
	}
	adj, err := inventory.ParseAdjustment(req.Action, *req.Quantity)
	if err != nil {
		h.Error(c, err)
		return
	}

	res, err := h.service.AdjustStock(c.Request.Context(), productID, adj)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.UpdateStockResponse{
		ProductResponse: dto.FromProduct(res.Product),
		PreviousStock:   res.Previous,
	})
}
