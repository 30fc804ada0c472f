package sales

import (
	"context"
	"time"

	"mystore/internal/core/id"
	"mystore/internal/core/types"
	"mystore/internal/domain"
)

// ListFilter narrows the sale list. Dates compare on the calendar day of
// sale_date, both ends inclusive.
type ListFilter struct {
	domain.ListFilter
	CustomerID *id.ID
	DateFrom   *time.Time
	DateTo     *time.Time
}

// OutOfStockFilter narrows the disclosure list.
type OutOfStockFilter struct {
	domain.ListFilter
	ProductID *id.ID
	SaleID    *id.ID
}

// ItemTotals aggregates lines of several sales for one product.
type ItemTotals struct {
	Lines     int64
	Recorded  int64
	Fulfilled int64
}

// Repository persists sale headers and lines.
type Repository interface {
	Create(ctx context.Context, sale *Sale) error
	// Update writes every mutable header column, total included.
	Update(ctx context.Context, sale *Sale) error
	UpdateTotal(ctx context.Context, saleID id.ID, total types.Money) error
	Delete(ctx context.Context, saleID id.ID) error

	// GetByID returns the header with CustomerName, without items.
	GetByID(ctx context.Context, saleID id.ID) (*Sale, error)
	// GetForUpdate row-locks the header.
	GetForUpdate(ctx context.Context, saleID id.ID) (*Sale, error)
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Sale], error)

	GetItems(ctx context.Context, saleID id.ID) ([]SaleItem, error)
	GetItemsBySales(ctx context.Context, saleIDs []id.ID) (map[id.ID][]SaleItem, error)
	InsertItems(ctx context.Context, items []SaleItem) error
	DeleteItems(ctx context.Context, saleID id.ID) error

	// LockForPurge row-locks and returns the ids of matching sales.
	LockForPurge(ctx context.Context, filter PurgeFilter) ([]id.ID, error)
	ItemTotalsByProduct(ctx context.Context, saleIDs []id.ID) (map[id.ID]ItemTotals, error)
	DeleteMany(ctx context.Context, saleIDs []id.ID) (int64, error)
}

// OutOfStockRepository persists shortfall records.
type OutOfStockRepository interface {
	Create(ctx context.Context, rec *OutOfStockSale) error
	DeleteBySales(ctx context.Context, saleIDs []id.ID) (int64, error)
	DetachSales(ctx context.Context, saleIDs []id.ID) (int64, error)
	List(ctx context.Context, filter OutOfStockFilter) (domain.ListResult[*OutOfStockSale], error)
}

// CustomerReader checks customer references.
type CustomerReader interface {
	Exists(ctx context.Context, customerID id.ID) (bool, error)
}
