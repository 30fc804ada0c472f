// Package document_repo provides the PostgreSQL repository for sales.
package document_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"mystore/internal/core/apperror"
	"mystore/internal/core/id"
	"mystore/internal/core/types"
	"mystore/internal/domain"
	"mystore/internal/domain/sales"
	"mystore/internal/infrastructure/storage/postgres"
)

const (
	salesTable     = "sales"
	saleItemsTable = "sale_items"

	dateLayout = "2006-01-02"
)

var (
	saleCols = postgres.ExtractDBColumns[sales.Sale]()

	saleSelectCols = []string{
		"s.id", "s.customer_id",
		"COALESCE(TRIM(c.first_name || ' ' || c.last_name), '') AS customer_name",
		"s.sale_date", "s.total_amount", "s.payment_method", "s.notes",
		"s.created_by", "s.updated_by", "s.created_at", "s.updated_at",
	}

	itemSelectCols = []string{
		"i.id", "i.sale_id", "i.product_id", "COALESCE(p.name, '') AS product_name",
		"i.quantity", "i.fulfilled_quantity", "i.unit_price",
	}

	itemCopyCols = []string{"id", "sale_id", "product_id", "quantity", "fulfilled_quantity", "unit_price"}
)

var _ sales.Repository = (*SaleRepo)(nil)

// SaleRepo implements sales.Repository.
type SaleRepo struct {
	txm      *postgres.TxManager
	inserter *postgres.BatchInserter
	builder  squirrel.StatementBuilderType
}

// NewSaleRepo creates a new sale repository.
func NewSaleRepo(txm *postgres.TxManager) *SaleRepo {
	return &SaleRepo{
		txm:      txm,
		inserter: postgres.NewBatchInserter(txm),
		builder:  squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// --- headers ---

func (r *SaleRepo) baseSelect() squirrel.SelectBuilder {
	return r.builder.
		Select(saleSelectCols...).
		From(salesTable + " s").
		LeftJoin("customers c ON c.id = s.customer_id")
}

func (r *SaleRepo) insertQuery(sale *sales.Sale) squirrel.InsertBuilder {
	data := postgres.PickColumns(postgres.StructToMap(sale), saleCols, "customer_name")
	return r.builder.Insert(salesTable).SetMap(data)
}

// Create inserts the sale header.
func (r *SaleRepo) Create(ctx context.Context, sale *sales.Sale) error {
	sql, args, err := r.insertQuery(sale).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return mapSaleWriteError(err, "insert sale")
	}
	return nil
}

func (r *SaleRepo) updateQuery(sale *sales.Sale) squirrel.UpdateBuilder {
	data := postgres.PickColumns(postgres.StructToMap(sale), saleCols,
		"id", "customer_name", "created_by", "created_at")
	return r.builder.
		Update(salesTable).
		SetMap(data).
		Where(squirrel.Eq{"id": sale.ID})
}

// Update writes every mutable header column.
func (r *SaleRepo) Update(ctx context.Context, sale *sales.Sale) error {
	sql, args, err := r.updateQuery(sale).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return mapSaleWriteError(err, "update sale")
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("sale", sale.ID.String())
	}
	return nil
}

// UpdateTotal sets total_amount.
func (r *SaleRepo) UpdateTotal(ctx context.Context, saleID id.ID, total types.Money) error {
	sql, args, err := r.builder.
		Update(salesTable).
		Set("total_amount", total).
		Where(squirrel.Eq{"id": saleID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update sale total: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("sale", saleID.String())
	}
	return nil
}

// Delete removes a sale; its lines go with it (ON DELETE CASCADE).
func (r *SaleRepo) Delete(ctx context.Context, saleID id.ID) error {
	sql, args, err := r.builder.
		Delete(salesTable).
		Where(squirrel.Eq{"id": saleID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return apperror.NewConflict("sale is referenced by other records").
				WithDetail("constraint", postgres.ConstraintName(err))
		}
		return fmt.Errorf("delete sale: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("sale", saleID.String())
	}
	return nil
}

// GetByID returns the header with the customer's name.
func (r *SaleRepo) GetByID(ctx context.Context, saleID id.ID) (*sales.Sale, error) {
	return r.getOne(ctx, r.baseSelect().Where(squirrel.Eq{"s.id": saleID}), saleID)
}

// GetForUpdate row-locks the header. Only the sales row is locked.
func (r *SaleRepo) GetForUpdate(ctx context.Context, saleID id.ID) (*sales.Sale, error) {
	return r.getOne(ctx, r.baseSelect().Where(squirrel.Eq{"s.id": saleID}).Suffix("FOR UPDATE OF s"), saleID)
}

func (r *SaleRepo) getOne(ctx context.Context, q squirrel.SelectBuilder, saleID id.ID) (*sales.Sale, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var sale sales.Sale
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &sale, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("sale", saleID.String())
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}
	return &sale, nil
}

func (r *SaleRepo) listQuery(filter sales.ListFilter) squirrel.SelectBuilder {
	q := r.baseSelect()
	if filter.CustomerID != nil {
		q = q.Where(squirrel.Eq{"s.customer_id": *filter.CustomerID})
	}
	if filter.DateFrom != nil {
		q = q.Where("s.sale_date::date >= ?::date", saleDay(*filter.DateFrom))
	}
	if filter.DateTo != nil {
		q = q.Where("s.sale_date::date <= ?::date", saleDay(*filter.DateTo))
	}
	return q
}

// List returns sales newest first.
func (r *SaleRepo) List(ctx context.Context, filter sales.ListFilter) (domain.ListResult[*sales.Sale], error) {
	result := domain.ListResult[*sales.Sale]{
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

	q = q.OrderBy("s.sale_date DESC", "s.created_at DESC")
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
		return result, fmt.Errorf("list sales: %w", err)
	}
	return result, nil
}

// --- lines ---

func (r *SaleRepo) itemsQuery(saleIDs []id.ID) squirrel.SelectBuilder {
	return r.builder.
		Select(itemSelectCols...).
		From(saleItemsTable + " i").
		LeftJoin("products p ON p.id = i.product_id").
		Where(squirrel.Eq{"i.sale_id": saleIDs}).
		OrderBy("i.sale_id", "i.id")
}

// GetItems returns the lines of one sale in insertion order.
func (r *SaleRepo) GetItems(ctx context.Context, saleID id.ID) ([]sales.SaleItem, error) {
	bySale, err := r.GetItemsBySales(ctx, []id.ID{saleID})
	if err != nil {
		return nil, err
	}
	return bySale[saleID], nil
}

// GetItemsBySales loads the lines of several sales in one query.
func (r *SaleRepo) GetItemsBySales(ctx context.Context, saleIDs []id.ID) (map[id.ID][]sales.SaleItem, error) {
	out := make(map[id.ID][]sales.SaleItem, len(saleIDs))
	if len(saleIDs) == 0 {
		return out, nil
	}

	sql, args, err := r.itemsQuery(saleIDs).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []sales.SaleItem
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("get sale items: %w", err)
	}
	for _, it := range items {
		out[it.SaleID] = append(out[it.SaleID], it)
	}
	return out, nil
}

func itemRows(items []sales.SaleItem) [][]any {
	rows := make([][]any, 0, len(items))
	for _, it := range items {
		rows = append(rows, []any{
			it.ID, it.SaleID, it.ProductID,
			it.Quantity, it.FulfilledQuantity, types.FormatMoney(it.UnitPrice),
		})
	}
	return rows
}

// InsertItems bulk-loads lines with COPY. Requires a transaction.
func (r *SaleRepo) InsertItems(ctx context.Context, items []sales.SaleItem) error {
	if len(items) == 0 {
		return nil
	}
	if _, err := r.inserter.CopyFromSlice(ctx, saleItemsTable, itemCopyCols, itemRows(items)); err != nil {
		return mapSaleWriteError(err, "insert sale items")
	}
	return nil
}

// DeleteItems removes every line of a sale.
func (r *SaleRepo) DeleteItems(ctx context.Context, saleID id.ID) error {
	sql, args, err := r.builder.
		Delete(saleItemsTable).
		Where(squirrel.Eq{"sale_id": saleID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete sale items: %w", err)
	}
	return nil
}

// --- purge ---

func (r *SaleRepo) purgeLockQuery(filter sales.PurgeFilter) squirrel.SelectBuilder {
	q := r.builder.Select("id").From(salesTable)
	if filter.Date != nil {
		q = q.Where("sale_date::date = ?::date", saleDay(*filter.Date))
	}
	return q.OrderBy("id").Suffix("FOR UPDATE")
}

// LockForPurge row-locks the matching sales and returns their ids.
func (r *SaleRepo) LockForPurge(ctx context.Context, filter sales.PurgeFilter) ([]id.ID, error) {
	sql, args, err := r.purgeLockQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var ids []id.ID
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &ids, sql, args...); err != nil {
		return nil, fmt.Errorf("lock sales for purge: %w", err)
	}
	return ids, nil
}

type itemTotalsRow struct {
	ProductID id.ID `db:"product_id"`
	Lines     int64 `db:"lines"`
	Recorded  int64 `db:"recorded"`
	Fulfilled int64 `db:"fulfilled"`
}

func (r *SaleRepo) itemTotalsQuery(saleIDs []id.ID) squirrel.SelectBuilder {
	return r.builder.
		Select(
			"product_id",
			"COUNT(*) AS lines",
			"COALESCE(SUM(quantity), 0) AS recorded",
			"COALESCE(SUM(fulfilled_quantity), 0) AS fulfilled",
		).
		From(saleItemsTable).
		Where(squirrel.Eq{"sale_id": saleIDs}).
		GroupBy("product_id")
}

// ItemTotalsByProduct sums the lines of the given sales per product.
func (r *SaleRepo) ItemTotalsByProduct(ctx context.Context, saleIDs []id.ID) (map[id.ID]sales.ItemTotals, error) {
	out := make(map[id.ID]sales.ItemTotals)
	if len(saleIDs) == 0 {
		return out, nil
	}

	sql, args, err := r.itemTotalsQuery(saleIDs).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []itemTotalsRow
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("sum sale items: %w", err)
	}
	for _, row := range rows {
		out[row.ProductID] = sales.ItemTotals{Lines: row.Lines, Recorded: row.Recorded, Fulfilled: row.Fulfilled}
	}
	return out, nil
}

// DeleteMany removes the given sales and, by cascade, their lines.
func (r *SaleRepo) DeleteMany(ctx context.Context, saleIDs []id.ID) (int64, error) {
	if len(saleIDs) == 0 {
		return 0, nil
	}
	sql, args, err := r.builder.
		Delete(salesTable).
		Where(squirrel.Eq{"id": saleIDs}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("delete sales: %w", err)
	}
	return tag.RowsAffected(), nil
}

// mapSaleWriteError turns constraint violations into client errors.
func mapSaleWriteError(err error, op string) error {
	switch {
	case postgres.IsForeignKeyViolation(err):
		return apperror.NewValidation("referenced record does not exist").
			WithDetail("constraint", postgres.ConstraintName(err))
	case postgres.IsCheckViolation(err):
		return apperror.NewValidation("value out of range").
			WithDetail("constraint", postgres.ConstraintName(err))
	case postgres.IsNumericOutOfRange(err):
		return apperror.NewValidation("value too large").WithDetail("operation", op)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// saleDay formats the calendar day compared against sale_date::date.
func saleDay(t time.Time) string { return t.Format(dateLayout) }
