// Package register_repo provides the PostgreSQL repository for the
// out-of-stock disclosure register.
package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"mystore/internal/core/apperror"
	"mystore/internal/core/id"
	"mystore/internal/domain"
	"mystore/internal/domain/sales"
	"mystore/internal/infrastructure/storage/postgres"
)

const outOfStockTable = "out_of_stock_sales"

var (
	outOfStockCols = postgres.ExtractDBColumns[sales.OutOfStockSale]()

	outOfStockSelectCols = []string{
		"o.id", "o.product_id", "COALESCE(p.name, '') AS product_name",
		"o.sale_id", "o.quantity_sold", "o.note", "o.created_at",
	}
)

var _ sales.OutOfStockRepository = (*OutOfStockRepo)(nil)

// OutOfStockRepo implements sales.OutOfStockRepository. Rows are
// append-only; they are removed with their sale or detached by a purge.
type OutOfStockRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewOutOfStockRepo creates a new out-of-stock register repository.
func NewOutOfStockRepo(txm *postgres.TxManager) *OutOfStockRepo {
	return &OutOfStockRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *OutOfStockRepo) insertQuery(rec *sales.OutOfStockSale) squirrel.InsertBuilder {
	data := postgres.PickColumns(postgres.StructToMap(rec), outOfStockCols, "product_name")
	return r.builder.Insert(outOfStockTable).SetMap(data)
}

// Create appends a shortfall record.
func (r *OutOfStockRepo) Create(ctx context.Context, rec *sales.OutOfStockSale) error {
	sql, args, err := r.insertQuery(rec).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return apperror.NewValidation("referenced record does not exist").
				WithDetail("constraint", postgres.ConstraintName(err))
		}
		return fmt.Errorf("insert out-of-stock record: %w", err)
	}
	return nil
}

// DeleteBySales removes the records of the given sales.
func (r *OutOfStockRepo) DeleteBySales(ctx context.Context, saleIDs []id.ID) (int64, error) {
	if len(saleIDs) == 0 {
		return 0, nil
	}
	sql, args, err := r.builder.
		Delete(outOfStockTable).
		Where(squirrel.Eq{"sale_id": saleIDs}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("delete out-of-stock records: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *OutOfStockRepo) detachQuery(saleIDs []id.ID) squirrel.UpdateBuilder {
	return r.builder.
		Update(outOfStockTable).
		Set("sale_id", nil).
		Where(squirrel.Eq{"sale_id": saleIDs})
}

// DetachSales clears sale_id on the records of the given sales so they
// outlive the purge.
func (r *OutOfStockRepo) DetachSales(ctx context.Context, saleIDs []id.ID) (int64, error) {
	if len(saleIDs) == 0 {
		return 0, nil
	}
	sql, args, err := r.detachQuery(saleIDs).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("detach out-of-stock records: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *OutOfStockRepo) listQuery(filter sales.OutOfStockFilter) squirrel.SelectBuilder {
	q := r.builder.
		Select(outOfStockSelectCols...).
		From(outOfStockTable + " o").
		LeftJoin("products p ON p.id = o.product_id")
	if filter.ProductID != nil {
		q = q.Where(squirrel.Eq{"o.product_id": *filter.ProductID})
	}
	if filter.SaleID != nil {
		q = q.Where(squirrel.Eq{"o.sale_id": *filter.SaleID})
	}
	return q
}

// List returns records newest first.
func (r *OutOfStockRepo) List(ctx context.Context, filter sales.OutOfStockFilter) (domain.ListResult[*sales.OutOfStockSale], error) {
	result := domain.ListResult[*sales.OutOfStockSale]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.listQuery(filter)

	countSQL, countArgs, err := r.builder.Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	q = q.OrderBy("o.created_at DESC", "o.id DESC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list out-of-stock records: %w", err)
	}
	return result, nil
}
