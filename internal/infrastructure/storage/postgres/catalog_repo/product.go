package catalog_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"mystore/internal/core/apperror"
	"mystore/internal/core/id"
	"mystore/internal/domain/inventory"
	"mystore/internal/infrastructure/storage/postgres"
)

var _ inventory.Repository = (*ProductRepo)(nil)

// ProductRepo stores products and their on-hand stock.
type ProductRepo struct {
	*BaseCatalogRepo[inventory.Product]
}

// NewProductRepo creates a new product repository.
func NewProductRepo(txm *postgres.TxManager) *ProductRepo {
	return &ProductRepo{
		BaseCatalogRepo: NewBaseCatalogRepo[inventory.Product](
			txm, "products", "product", postgres.ExtractDBColumns[inventory.Product]()),
	}
}

func (r *ProductRepo) lockQuery(ids []id.ID) squirrel.SelectBuilder {
	return r.baseSelect().
		Where(squirrel.Eq{"id": id.SortedUnique(ids)}).
		OrderBy("id").
		Suffix("FOR UPDATE")
}

// GetForUpdate row-locks the products in id order so that concurrent
// sales touching the same products cannot deadlock.
func (r *ProductRepo) GetForUpdate(ctx context.Context, ids []id.ID) ([]*inventory.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if !r.txm.InTransaction(ctx) {
		return nil, fmt.Errorf("lock products: %w", postgres.ErrNoTransaction)
	}

	sql, args, err := r.lockQuery(ids).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var products []*inventory.Product
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &products, sql, args...); err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}
	return products, nil
}

func (r *ProductRepo) setStockQuery(productID id.ID, stock int, now time.Time) squirrel.UpdateBuilder {
	return r.Builder().
		Update(r.tableName).
		Set("stock", stock).
		Set("updated_at", now).
		Where(squirrel.Eq{"id": productID})
}

// SetStock writes the stock column. Negative values are rejected by the
// products_stock_check constraint.
func (r *ProductRepo) SetStock(ctx context.Context, productID id.ID, stock int) error {
	sql, args, err := r.setStockQuery(productID, stock, time.Now().UTC()).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		switch {
		case postgres.IsCheckViolation(err):
			return apperror.NewValidation("stock cannot be negative").
				WithDetail("product_id", productID.String())
		case postgres.IsNumericOutOfRange(err):
			return apperror.NewValidation("stock too large").
				WithDetail("product_id", productID.String())
		}
		return fmt.Errorf("set stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("product", productID.String())
	}
	return nil
}
