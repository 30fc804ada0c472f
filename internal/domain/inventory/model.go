// Package inventory owns the per-product stock counter. Stock only moves
// through the Ledger, which never lets it drop below zero.
package inventory

import (
	"time"

	"mystore/internal/core/id"
	"mystore/internal/core/types"
)

// Product is the stock-bearing catalog entry.
type Product struct {
	ID        id.ID       `db:"id"`
	Name      string      `db:"name"`
	SKU       string      `db:"sku"`
	Price     types.Money `db:"price"`
	Stock     int         `db:"stock"`
	IsActive  bool        `db:"is_active"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

// Deduction is the outcome of taking a requested quantity out of stock.
// Fulfilled + Shortfall always equals the requested quantity.
type Deduction struct {
	Fulfilled int
	Shortfall int
}

// HasShortfall reports whether part of the request exceeded stock.
func (d Deduction) HasShortfall() bool {
	return d.Shortfall > 0
}
