package inventory

import (
	"context"

	"mystore/internal/core/id"
)

// Repository is the product storage used by the Ledger and by sale reads.
type Repository interface {
	// GetByID returns apperror NotFound when the product does not exist.
	GetByID(ctx context.Context, productID id.ID) (*Product, error)

	// GetByIDs returns the products that exist; missing ids are simply absent.
	GetByIDs(ctx context.Context, ids []id.ID) ([]*Product, error)

	// GetForUpdate row-locks the products in id order. Requires a transaction.
	GetForUpdate(ctx context.Context, ids []id.ID) ([]*Product, error)

	// SetStock writes the stock column.
	SetStock(ctx context.Context, productID id.ID, stock int) error
}
