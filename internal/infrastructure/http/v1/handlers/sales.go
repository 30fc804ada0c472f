package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"mystore/internal/core/id"
	"mystore/internal/domain"
	"mystore/internal/domain/sales"
	"mystore/internal/infrastructure/http/v1/dto"
)

// SaleService is the part of sales.Service the HTTP layer uses.
type SaleService interface {
	Create(ctx context.Context, in sales.CreateInput) (*sales.Result, error)
	Update(ctx context.Context, saleID id.ID, in sales.UpdateInput) (*sales.Result, error)
	Delete(ctx context.Context, saleID id.ID) error
	CheckStock(ctx context.Context, items []sales.StockCheckItem) (*sales.StockCheckResult, error)
	GetByID(ctx context.Context, saleID id.ID) (*sales.Sale, error)
	List(ctx context.Context, filter sales.ListFilter) (domain.ListResult[*sales.Sale], error)
	ListOutOfStock(ctx context.Context, filter sales.OutOfStockFilter) (domain.ListResult[*sales.OutOfStockSale], error)
	Purge(ctx context.Context, filter sales.PurgeFilter) (sales.PurgeResult, error)
}

// SaleHandler handles /sales, /out-of-stock-sales and the admin purge.
type SaleHandler struct {
	*BaseHandler
	service SaleService
	lenient bool
}

// NewSaleHandler creates the handler. lenient selects the permissive
// line item parsing.
func NewSaleHandler(base *BaseHandler, service SaleService, lenient bool) *SaleHandler {
	return &SaleHandler{BaseHandler: base, service: service, lenient: lenient}
}

// List handles GET /sales.
func (h *SaleHandler) List(c *gin.Context) {
	var q dto.SaleListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.Filter()
	if err != nil {
		h.Error(c, err)
		return
	}

	res, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(res, dto.FromSale))
}

// Get handles GET /sales/:id.
func (h *SaleHandler) Get(c *gin.Context) {
	saleID, ok := h.ParseID(c)
	if !ok {
		return
	}
	sale, err := h.service.GetByID(c.Request.Context(), saleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromSale(sale))
}

// Create handles POST /sales.
func (h *SaleHandler) Create(c *gin.Context) {
	var req dto.CreateSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput(h.lenient)
	if err != nil {
		h.Error(c, err)
		return
	}

	res, err := h.service.Create(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromResult(res))
}

// Replace handles PUT /sales/:id.
func (h *SaleHandler) Replace(c *gin.Context) {
	h.update(c, true)
}

// Patch handles PATCH /sales/:id.
func (h *SaleHandler) Patch(c *gin.Context) {
	h.update(c, false)
}

func (h *SaleHandler) update(c *gin.Context, full bool) {
	saleID, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req dto.UpdateSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput(h.lenient, full)
	if err != nil {
		h.Error(c, err)
		return
	}

	res, err := h.service.Update(c.Request.Context(), saleID, in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromResult(res))
}

// Delete handles DELETE /sales/:id.
func (h *SaleHandler) Delete(c *gin.Context) {
	saleID, ok := h.ParseID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), saleID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// CheckStock handles POST /sales/check_stock.
func (h *SaleHandler) CheckStock(c *gin.Context) {
	var req dto.StockCheckRequest
	if !h.BindJSON(c, &req) {
		return
	}
	res, err := h.service.CheckStock(c.Request.Context(), req.ToItems())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, res)
}

// ListOutOfStock handles GET /out-of-stock-sales.
func (h *SaleHandler) ListOutOfStock(c *gin.Context) {
	var q dto.OutOfStockListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.Filter()
	if err != nil {
		h.Error(c, err)
		return
	}

	res, err := h.service.ListOutOfStock(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(res, dto.FromOutOfStock))
}

// Purge handles POST /admin/sales/purge.
func (h *SaleHandler) Purge(c *gin.Context) {
	var req dto.PurgeSalesRequest
	if !h.BindJSON(c, &req) {
		return
	}
	filter, err := req.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	res, err := h.service.Purge(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, res)
}
