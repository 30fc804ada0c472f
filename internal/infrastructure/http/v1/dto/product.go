package dto

import (
	"time"

	"mystore/internal/core/types"
	"mystore/internal/domain/inventory"
)

// ProductResponse is the serialized product.
type ProductResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	SKU       string    `json:"sku"`
	Price     string    `json:"price"`
	Stock     int       `json:"stock"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FromProduct serializes a product.
func FromProduct(p *inventory.Product) ProductResponse {
	return ProductResponse{
		ID:        p.ID.String(),
		Name:      p.Name,
		SKU:       p.SKU,
		Price:     types.FormatMoney(p.Price),
		Stock:     p.Stock,
		IsActive:  p.IsActive,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// UpdateStockRequest is the body of POST /products/:id/update_stock.
type UpdateStockRequest struct {
	Action   string `json:"action" binding:"required"`
	Quantity *int   `json:"quantity" binding:"required"`
}

// UpdateStockResponse reports the correction.
type UpdateStockResponse struct {
	ProductResponse
	PreviousStock int `json:"previous_stock"`
}
