package sales

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mystore/internal/core/apperror"
	appctx "mystore/internal/core/context"
	"mystore/internal/core/id"
	"mystore/internal/core/types"
	"mystore/internal/domain"
	"mystore/internal/domain/audit"
	"mystore/internal/domain/inventory"
)

var fixedNow = time.Date(2024, 12, 3, 10, 30, 0, 0, time.UTC)

type fixture struct {
	e        *env
	svc      *Service
	customer id.ID
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	e := newEnv()
	customer := id.New()
	e.st.customers[customer] = "Amina Diallo"

	svc := NewService(ServiceConfig{
		Repo:       saleRepo{e},
		OutOfStock: oosRepo{e},
		Customers:  customerRepo{e},
		Products:   productRepo{e},
		TxManager:  fakeTx{e},
		Events:     eventSink{e},
		Audit:      auditSink{e},
		Options:    opts,
		Now:        func() time.Time { return fixedNow },
	})
	svc.Hooks().OnBeforeCreate(func(ctx context.Context, s *Sale) error {
		audit.EnrichCreatedBy(ctx, &s.CreatedBy, &s.UpdatedBy)
		return nil
	})
	return &fixture{e: e, svc: svc, customer: customer}
}

func (f *fixture) product(name string, stock int, price string) id.ID {
	pid := id.New()
	f.e.st.products[pid] = inventory.Product{ID: pid, Name: name, Stock: stock, Price: types.MustMoney(price), IsActive: true}
	return pid
}

func (f *fixture) stock(pid id.ID) int {
	return f.e.st.products[pid].Stock
}

func (f *fixture) oosFor(saleID id.ID) []OutOfStockSale {
	var out []OutOfStockSale
	for _, rec := range f.e.st.oos {
		if rec.SaleID != nil && *rec.SaleID == saleID {
			out = append(out, rec)
		}
	}
	return out
}

func (f *fixture) create(t *testing.T, items ...ItemInput) *Result {
	t.Helper()
	res, err := f.svc.Create(context.Background(), CreateInput{CustomerID: &f.customer, Items: items})
	require.NoError(t, err)
	return res
}

func line(pid id.ID, qty int) ItemInput {
	return ItemInput{ProductID: &pid, Quantity: qty}
}

func pricedLine(pid id.ID, qty int, price string) ItemInput {
	m := types.MustMoney(price)
	return ItemInput{ProductID: &pid, Quantity: qty, UnitPrice: &m}
}

func itemsPtr(items ...ItemInput) *[]ItemInput {
	if items == nil {
		items = []ItemInput{}
	}
	return &items
}

func TestCreate_WithinStock(t *testing.T) {
	f := newFixture(t, Options{})
	p := f.product("Carton 40x30", 10, "100")

	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "cashier-1"})
	res, err := f.svc.Create(ctx, CreateInput{
		CustomerID:    &f.customer,
		PaymentMethod: PaymentCard,
		Items:         []ItemInput{line(p, 4)},
	})
	require.NoError(t, err)

	assert.Equal(t, "400.00", types.FormatMoney(res.Sale.TotalAmount))
	assert.NotNil(t, res.OutOfStock)
	assert.Empty(t, res.OutOfStock)
	assert.Equal(t, 6, f.stock(p))

	require.Len(t, res.Sale.Items, 1)
	item := res.Sale.Items[0]
	assert.Equal(t, "Carton 40x30", item.ProductName)
	assert.Equal(t, 4, item.Quantity)
	assert.Equal(t, 4, item.FulfilledQuantity)
	assert.Equal(t, "400.00", types.FormatMoney(item.Subtotal()))

	assert.Equal(t, "Amina Diallo", res.Sale.CustomerName)
	assert.Equal(t, PaymentCard, res.Sale.PaymentMethod)
	assert.Equal(t, "cashier-1", res.Sale.CreatedBy)
	assert.Equal(t, fixedNow, res.Sale.SaleDate)
	assert.Empty(t, f.e.st.oos)
	assert.Equal(t, []domain.AuditAction{domain.AuditCreate}, f.e.st.audits)
	require.Len(t, f.e.st.events, 1)
	assert.Equal(t, EventSaleCommitted, f.e.st.events[0].EventType)
}

func TestCreate_Shortfall(t *testing.T) {
	f := newFixture(t, Options{})
	p := f.product("Carton 40x30", 5, "100")

	res := f.create(t, line(p, 8))

	assert.Equal(t, 0, f.stock(p))
	assert.Equal(t, []Disclosure{{ProductID: p, Product: "Carton 40x30", Quantity: 3}}, res.OutOfStock)

	recs := f.oosFor(res.Sale.ID)
	require.Len(t, recs, 1)
	assert.Equal(t, 3, recs[0].QuantitySold)
	assert.Equal(t, p, recs[0].ProductID)
	assert.Contains(t, recs[0].Note, "3 units sold out of stock")

	require.Len(t, res.Sale.Items, 1)
	assert.Equal(t, 8, res.Sale.Items[0].Quantity)
	assert.Equal(t, 5, res.Sale.Items[0].FulfilledQuantity)
	assert.Equal(t, "800.00", types.FormatMoney(res.Sale.TotalAmount))

	var kinds []string
	for _, evt := range f.e.st.events {
		kinds = append(kinds, evt.EventType)
	}
	assert.Equal(t, []string{EventSaleOutOfStock, EventSaleCommitted}, kinds)
}

func TestCreate_AfterCommitHook(t *testing.T) {
	f := newFixture(t, Options{})
	p := f.product("Carton 40x30", 5, "100")
	var seen []id.ID
	f.svc.Hooks().OnAfterCommit(func(_ context.Context, s *Sale) error {
		seen = append(seen, s.ID)
		return errors.New("notifier down")
	})

	res := f.create(t, line(p, 1))

	assert.Equal(t, []id.ID{res.Sale.ID}, seen)
	assert.Equal(t, 4, f.stock(p))
}

func TestCreate_PriceScale(t *testing.T) {
	price := types.MustMoney("0.005")

	t.Run("strict rejects extra decimals", func(t *testing.T) {
		f := newFixture(t, Options{})
		p := f.product("Screw", 10, "0.10")
		it := line(p, 3)
		it.UnitPrice = &price

		_, err := f.svc.Create(context.Background(), CreateInput{CustomerID: &f.customer, Items: []ItemInput{it}})
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeInvalidSaleItem, appErr.Code)
		assert.Equal(t, 10, f.stock(p))
	})

	t.Run("lenient rounds before totalling", func(t *testing.T) {
		f := newFixture(t, Options{LenientItems: true})
		p := f.product("Screw", 10, "0.10")
		it := line(p, 3)
		it.UnitPrice = &price

		res := f.create(t, it)

		require.Len(t, res.Sale.Items, 1)
		assert.Equal(t, "0.01", types.FormatMoney(res.Sale.Items[0].UnitPrice))
		assert.Equal(t, "0.03", types.FormatMoney(res.Sale.TotalAmount))
		var sum types.Money
		for _, item := range res.Sale.Items {
			sum = sum.Add(item.Subtotal())
		}
		assert.True(t, sum.Equal(res.Sale.TotalAmount))
	})
}

func TestCreate_QuantityAboveColumnRange(t *testing.T) {
	f := newFixture(t, Options{})
	p := f.product("Screw", 10, "0.10")

	_, err := f.svc.Create(context.Background(), CreateInput{
		CustomerID: &f.customer,
		Items:      []ItemInput{line(p, types.MaxQuantity+1)},
	})
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInvalidSaleItem, appErr.Code)
	assert.Equal(t, "quantity", appErr.Details["field"])
}

func TestCreate_MaxQuantityIsAShortfall(t *testing.T) {
	f := newFixture(t, Options{})
	p := f.product("Screw", 10, "0.10")

	res := f.create(t, line(p, types.MaxQuantity))

	assert.Equal(t, 0, f.stock(p))
	assert.Equal(t, []Disclosure{{ProductID: p, Product: "Screw", Quantity: types.MaxQuantity - 10}}, res.OutOfStock)
}

func TestCreate_TotalTooLargeRollsBack(t *testing.T) {
	f := newFixture(t, Options{})
	p := f.product("Bullion", 5, "9999999999.99")
	items := make([]ItemInput, 5)
	for i := range items {
		items[i] = line(p, types.MaxQuantity)
	}

	_, err := f.svc.Create(context.Background(), CreateInput{CustomerID: &f.customer, Items: items})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	assert.Equal(t, 5, f.stock(p))
	assert.Empty(t, f.e.st.oos)
	assert.Empty(t, f.e.st.sales)
}

func TestCreate_BatchesEvents(t *testing.T) {
	f := newFixture(t, Options{})
	var batches [][]string
	f.svc.events = batchSink{eventSink: eventSink{f.e}, batches: &batches}
	a := f.product("Carton 40x30", 1, "100")
	b := f.product("Tape", 0, "5")

	f.create(t, line(a, 2), line(b, 1))

	assert.Equal(t, [][]string{{EventSaleOutOfStock, EventSaleOutOfStock, EventSaleCommitted}}, batches)
}

func TestCreate_SecondSaleGoesOutOfStock(t *testing.T) {
	f := newFixture(t, Options{})
	p := f.product("Carton 40x30", 10, "100")

	first := f.create(t, line(p, 4))
	assert.Equal(t, "400.00", types.FormatMoney(first.Sale.TotalAmount))
	assert.Equal(t, 6, f.stock(p))

	second := f.create(t, line(p, 9))
	assert.Equal(t, 0, f.stock(p))
	require.Len(t, second.OutOfStock, 1)
	assert.Equal(t, 3, second.OutOfStock[0].Quantity)
	assert.Len(t, f.oosFor(second.Sale.ID), 1)
}

func TestCreate_TotalIsSumOfSubtotals(t *testing.T) {
	f := newFixture(t, Options{})
	a := f.product("Tape", 100, "2.35")
	b := f.product("Box", 3, "19.99")

	res := f.create(t,
		line(a, 3),
		pricedLine(b, 5, "18.50"),
		pricedLine(a, 1, "0.10"),
	)

	var sum types.Money
	for _, it := range res.Sale.Items {
		sum = sum.Add(it.Subtotal())
	}
	assert.True(t, res.Sale.TotalAmount.Equal(sum))
	assert.Equal(t, "99.65", types.FormatMoney(res.Sale.TotalAmount))
	assert.True(t, res.Sale.TotalAmount.Equal(res.Sale.ComputeTotal()))

	// Request order is kept and the captured price wins over the catalog price.
	require.Len(t, res.Sale.Items, 3)
	assert.Equal(t, "2.35", types.FormatMoney(res.Sale.Items[0].UnitPrice))
	assert.Equal(t, "18.50", types.FormatMoney(res.Sale.Items[1].UnitPrice))
	assert.Equal(t, 96, f.stock(a))
	assert.Equal(t, 0, f.stock(b))
	assert.Equal(t, []Disclosure{{ProductID: b, Product: "Box", Quantity: 2}}, res.OutOfStock)
}

func TestCreate_EmptyItems(t *testing.T) {
	f := newFixture(t, Options{})

	res := f.create(t)

	assert.True(t, res.Sale.TotalAmount.IsZero())
	assert.Empty(t, res.Sale.Items)
	assert.Equal(t, PaymentCash, res.Sale.PaymentMethod)
}

func TestCreate_CustomerValidation(t *testing.T) {
	f := newFixture(t, Options{})
	p := f.product("Box", 5, "10")
	unknown := id.New()

	tests := []struct {
		name     string
		customer *id.ID
	}{
		{name: "missing", customer: nil},
		{name: "unknown", customer: &unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), CreateInput{CustomerID: tt.customer, Items: []ItemInput{line(p, 1)}})

			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperror.CodeValidation, appErr.Code)
			assert.Equal(t, "customer", appErr.Details["field"])
		})
	}
	assert.Zero(t, f.e.txCalls)
	assert.Equal(t, 5, f.stock(p))
}

func TestCreate_UnknownPaymentMethod(t *testing.T) {
	f := newFixture(t, Options{})

	_, err := f.svc.Create(context.Background(), CreateInput{CustomerID: &f.customer, PaymentMethod: "barter"})

	assert.True(t, apperror.IsValidation(err))
	assert.Zero(t, f.e.txCalls)
}

func TestCreate_StrictItems(t *testing.T) {
	f := newFixture(t, Options{})
	p := f.product("Box", 5, "10")
	negative := types.MustMoney("-1")

	tests := []struct {
		name  string
		item  ItemInput
		field string
	}{
		{name: "no product", item: ItemInput{Quantity: 1}, field: "product"},
		{name: "zero quantity", item: line(p, 0), field: "quantity"},
		{name: "negative quantity", item: line(p, -2), field: "quantity"},
		{name: "negative price", item: ItemInput{ProductID: &p, Quantity: 1, UnitPrice: &negative}, field: "unit_price"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), CreateInput{
				CustomerID: &f.customer,
				Items:      []ItemInput{line(p, 1), tt.item},
			})

			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperror.CodeInvalidSaleItem, appErr.Code)
			assert.Equal(t, 1, appErr.Details["index"])
			assert.Equal(t, tt.field, appErr.Details["field"])
		})
	}
	assert.Zero(t, f.e.txCalls)
	assert.Equal(t, 5, f.stock(p))
}

func TestCreate_LenientItems(t *testing.T) {
	f := newFixture(t, Options{LenientItems: true})
	p := f.product("Box", 5, "10")

	res := f.create(t,
		ItemInput{Quantity: 3},
		line(p, -4),
		line(p, 2),
	)

	require.Len(t, res.Sale.Items, 2)
	assert.Equal(t, 0, res.Sale.Items[0].Quantity)
	assert.Equal(t, 2, res.Sale.Items[1].Quantity)
	assert.Equal(t, "20.00", types.FormatMoney(res.Sale.TotalAmount))
	assert.Equal(t, 3, f.stock(p))
	assert.Empty(t, res.OutOfStock)
}

func TestCreate_UnknownProductRollsBack(t *testing.T) {
	f := newFixture(t, Options{})
	p := f.product("Box", 5, "10")

	_, err := f.svc.Create(context.Background(), CreateInput{
		CustomerID: &f.customer,
		Items:      []ItemInput{line(p, 8), line(id.New(), 1)},
	})

	assert.True(t, apperror.IsValidation(err))
	assert.Equal(t, 5, f.stock(p))
	assert.Empty(t, f.e.st.sales)
	assert.Empty(t, f.e.st.items)
	assert.Empty(t, f.e.st.oos)
	assert.Empty(t, f.e.st.events)
	assert.Equal(t, 1, f.e.rollback)
}

func TestCreate_PersistenceFailureRollsBack(t *testing.T) {
	for _, op := range []string{"InsertItems", "UpdateTotal", "CreateOutOfStock", "Publish"} {
		t.Run(op, func(t *testing.T) {
			f := newFixture(t, Options{})
			p := f.product("Box", 5, "10")
			f.e.fail[op] = errors.New("db down")

			_, err := f.svc.Create(context.Background(), CreateInput{
				CustomerID: &f.customer,
				Items:      []ItemInput{line(p, 8)},
			})

			assert.ErrorContains(t, err, "db down")
			assert.Equal(t, 5, f.stock(p))
			assert.Empty(t, f.e.st.sales)
			assert.Empty(t, f.e.st.items)
			assert.Empty(t, f.e.st.oos)
		})
	}
}

func TestUpdate_RemovingItemsRestoresStock(t *testing.T) {
	f := newFixture(t, Options{})
	p := f.product("Box", 10, "10")

	created := f.create(t, line(p, 6))
	require.Equal(t, 4, f.stock(p))

	res, err := f.svc.Update(context.Background(), created.Sale.ID, UpdateInput{Items: itemsPtr()})
	require.NoError(t, err)

	assert.Equal(t, 10, f.stock(p))
	assert.Empty(t, res.Sale.Items)
	assert.True(t, res.Sale.TotalAmount.IsZero())
	assert.Empty(t, res.OutOfStock)
}

func TestUpdate_ReplacesItems(t *testing.T) {
	f := newFixture(t, Options{})
	a := f.product("Box", 10, "10")
	b := f.product("Tape", 2, "3")

	created := f.create(t, line(a, 6))
	res, err := f.svc.Update(context.Background(), created.Sale.ID, UpdateInput{
		Items: itemsPtr(line(a, 7), line(b, 5)),
	})
	require.NoError(t, err)

	assert.Equal(t, 3, f.stock(a))
	assert.Equal(t, 0, f.stock(b))
	assert.Equal(t, "85.00", types.FormatMoney(res.Sale.TotalAmount))
	assert.Equal(t, []Disclosure{{ProductID: b, Product: "Tape", Quantity: 3}}, res.OutOfStock)
	assert.Len(t, f.oosFor(created.Sale.ID), 1)
	assert.Len(t, f.e.st.items, 2)
}

func TestUpdate_DropsPreviousDisclosures(t *testing.T) {
	f := newFixture(t, Options{})
	p := f.product("Box", 5, "10")

	created := f.create(t, line(p, 8))
	require.Len(t, f.oosFor(created.Sale.ID), 1)

	res, err := f.svc.Update(context.Background(), created.Sale.ID, UpdateInput{Items: itemsPtr(line(p, 2))})
	require.NoError(t, err)

	assert.Empty(t, res.OutOfStock)
	assert.Empty(t, f.oosFor(created.Sale.ID))
	assert.Equal(t, 3, f.stock(p))
}

func TestUpdate_HeaderOnlyKeepsItems(t *testing.T) {
	f := newFixture(t, Options{})
	p := f.product("Box", 5, "10")
	other := id.New()
	f.e.st.customers[other] = "Jean Martin"

	created := f.create(t, line(p, 8))
	notes := "paid later"
	method := PaymentTransfer

	res, err := f.svc.Update(context.Background(), created.Sale.ID, UpdateInput{
		CustomerID:    &other,
		PaymentMethod: &method,
		Notes:         &notes,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, f.stock(p))
	assert.Len(t, res.Sale.Items, 1)
	assert.Len(t, f.oosFor(created.Sale.ID), 1)
	assert.Empty(t, res.OutOfStock)
	assert.Equal(t, "80.00", types.FormatMoney(res.Sale.TotalAmount))
	assert.Equal(t, "Jean Martin", res.Sale.CustomerName)
	assert.Equal(t, PaymentTransfer, res.Sale.PaymentMethod)
	assert.Equal(t, "paid later", res.Sale.Notes)
}

func TestUpdate_NotFound(t *testing.T) {
	f := newFixture(t, Options{})

	_, err := f.svc.Update(context.Background(), id.New(), UpdateInput{Items: itemsPtr()})

	assert.True(t, apperror.IsNotFound(err))
}

func TestUpdate_FailureRestoresPriorState(t *testing.T) {
	f := newFixture(t, Options{})
	p := f.product("Box", 10, "10")
	created := f.create(t, line(p, 6))

	f.e.fail["InsertItems"] = errors.New("disk full")
	_, err := f.svc.Update(context.Background(), created.Sale.ID, UpdateInput{Items: itemsPtr(line(p, 1))})

	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, 4, f.stock(p))
	assert.Len(t, f.e.st.items, 1)
	assert.Equal(t, 6, f.e.st.items[0].Quantity)
}

func TestDelete_RestoresStockAndRemovesDisclosures(t *testing.T) {
	f := newFixture(t, Options{})
	a := f.product("Box", 10, "10")
	b := f.product("Tape", 1, "3")

	created := f.create(t, line(a, 4), line(b, 3))
	require.Len(t, f.oosFor(created.Sale.ID), 1)

	require.NoError(t, f.svc.Delete(context.Background(), created.Sale.ID))

	assert.Equal(t, 10, f.stock(a))
	assert.Equal(t, 1, f.stock(b))
	assert.Empty(t, f.e.st.sales)
	assert.Empty(t, f.e.st.items)
	assert.Empty(t, f.e.st.oos)

	_, err := f.svc.GetByID(context.Background(), created.Sale.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestDelete_NotFound(t *testing.T) {
	f := newFixture(t, Options{})

	err := f.svc.Delete(context.Background(), id.New())

	assert.True(t, apperror.IsNotFound(err))
}

func TestReversalPolicy(t *testing.T) {
	tests := []struct {
		name   string
		policy ReversalPolicy
		want   int
	}{
		{name: "fulfilled portion only", policy: ReverseFulfilled, want: 5},
		{name: "recorded quantity", policy: ReverseRecorded, want: 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Options{Reversal: tt.policy})
			p := f.product("Box", 5, "10")

			created := f.create(t, line(p, 8))
			require.Equal(t, 0, f.stock(p))

			require.NoError(t, f.svc.Delete(context.Background(), created.Sale.ID))
			assert.Equal(t, tt.want, f.stock(p))
		})
	}
}

func TestStockNeverNegative(t *testing.T) {
	for _, policy := range []ReversalPolicy{ReverseFulfilled, ReverseRecorded} {
		t.Run(string(policy), func(t *testing.T) {
			f := newFixture(t, Options{Reversal: policy})
			p := f.product("Box", 3, "10")
			q := f.product("Tape", 0, "1")
			ctx := context.Background()

			check := func() {
				for pid, prod := range f.e.st.products {
					require.GreaterOrEqual(t, prod.Stock, 0, "product %s", pid)
				}
			}

			s1 := f.create(t, line(p, 5), line(q, 2))
			check()
			s2 := f.create(t, line(p, 1))
			check()
			_, err := f.svc.Update(ctx, s1.Sale.ID, UpdateInput{Items: itemsPtr(line(p, 9), line(q, 1))})
			require.NoError(t, err)
			check()
			require.NoError(t, f.svc.Delete(ctx, s2.Sale.ID))
			check()
			_, err = f.svc.Update(ctx, s1.Sale.ID, UpdateInput{Items: itemsPtr(line(q, 4))})
			require.NoError(t, err)
			check()
			require.NoError(t, f.svc.Delete(ctx, s1.Sale.ID))
			check()

			if policy == ReverseFulfilled {
				assert.Equal(t, 3, f.stock(p))
				assert.Equal(t, 0, f.stock(q))
			}
		})
	}
}

func TestCheckStock(t *testing.T) {
	f := newFixture(t, Options{})
	a := f.product("Box", 5, "10")
	b := f.product("Tape", 1, "3")
	missing := id.New()

	items := []StockCheckItem{
		{ProductID: &a, Quantity: 5},
		{ProductID: &b, Quantity: 4},
		{ProductID: &missing, Quantity: 2},
		{ProductRef: "42", Quantity: 3},
		{ProductID: nil, Quantity: 3},
		{ProductID: &a, Quantity: 0},
	}

	for i := 0; i < 3; i++ {
		res, err := f.svc.CheckStock(context.Background(), items)
		require.NoError(t, err)

		assert.True(t, res.HasIssues)
		assert.Equal(t, []StockIssue{
			{ProductID: b.String(), ProductName: "Tape", Requested: 4, Available: 1, Shortage: 3},
			{ProductID: missing.String(), ProductName: "Product not found", Requested: 2, Available: 0, Shortage: 2},
			{ProductID: "42", ProductName: "Product not found", Requested: 3, Available: 0, Shortage: 3},
		}, res.Issues)
	}

	assert.Equal(t, 5, f.stock(a))
	assert.Equal(t, 1, f.stock(b))
	assert.Zero(t, f.e.txCalls)
}

func TestCheckStock_NoIssues(t *testing.T) {
	f := newFixture(t, Options{})
	a := f.product("Box", 5, "10")

	res, err := f.svc.CheckStock(context.Background(), []StockCheckItem{{ProductID: &a, Quantity: 5}})
	require.NoError(t, err)

	assert.False(t, res.HasIssues)
	assert.NotNil(t, res.Issues)
	assert.Empty(t, res.Issues)
}

func TestList(t *testing.T) {
	f := newFixture(t, Options{})
	p := f.product("Box", 50, "10")
	ctx := context.Background()
	other := id.New()
	f.e.st.customers[other] = "Jean Martin"

	dec2 := time.Date(2024, 12, 2, 18, 0, 0, 0, time.UTC)
	dec3 := time.Date(2024, 12, 3, 9, 0, 0, 0, time.UTC)
	_, err := f.svc.Create(ctx, CreateInput{CustomerID: &f.customer, SaleDate: &dec2, Items: []ItemInput{line(p, 1)}})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, CreateInput{CustomerID: &other, SaleDate: &dec3, Items: []ItemInput{line(p, 2), line(p, 3)}})
	require.NoError(t, err)

	all, err := f.svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, all.Items, 2)
	assert.Equal(t, int64(2), all.TotalCount)
	assert.Equal(t, domain.DefaultListLimit, all.Limit)
	assert.Equal(t, "Jean Martin", all.Items[0].CustomerName)
	assert.Len(t, all.Items[0].Items, 2)
	assert.Len(t, all.Items[1].Items, 1)

	day := time.Date(2024, 12, 3, 0, 0, 0, 0, time.UTC)
	byDay, err := f.svc.List(ctx, ListFilter{DateFrom: &day, DateTo: &day})
	require.NoError(t, err)
	require.Len(t, byDay.Items, 1)
	assert.Equal(t, other, byDay.Items[0].CustomerID)

	byCustomer, err := f.svc.List(ctx, ListFilter{CustomerID: &f.customer})
	require.NoError(t, err)
	require.Len(t, byCustomer.Items, 1)
	assert.Equal(t, "Amina Diallo", byCustomer.Items[0].CustomerName)

	_, err = f.svc.List(ctx, ListFilter{DateFrom: &dec3, DateTo: &dec2})
	assert.True(t, apperror.IsValidation(err))
}

func TestListOutOfStock_NewestFirst(t *testing.T) {
	f := newFixture(t, Options{})
	a := f.product("Box", 0, "10")
	b := f.product("Tape", 0, "3")

	f.create(t, line(a, 1))
	f.create(t, line(b, 2))

	res, err := f.svc.ListOutOfStock(context.Background(), OutOfStockFilter{})
	require.NoError(t, err)

	require.Len(t, res.Items, 2)
	assert.Equal(t, b, res.Items[0].ProductID)
	assert.Equal(t, a, res.Items[1].ProductID)
}

func TestPurge(t *testing.T) {
	dec2 := time.Date(2024, 12, 2, 18, 0, 0, 0, time.UTC)
	dec3 := time.Date(2024, 12, 3, 9, 0, 0, 0, time.UTC)

	setup := func(t *testing.T, opts Options) (*fixture, id.ID) {
		f := newFixture(t, opts)
		p := f.product("Box", 10, "10")
		ctx := context.Background()
		_, err := f.svc.Create(ctx, CreateInput{CustomerID: &f.customer, SaleDate: &dec2, Items: []ItemInput{line(p, 4)}})
		require.NoError(t, err)
		_, err = f.svc.Create(ctx, CreateInput{CustomerID: &f.customer, SaleDate: &dec3, Items: []ItemInput{line(p, 2), line(p, 7)}})
		require.NoError(t, err)
		require.Equal(t, 0, f.stock(p))
		require.Len(t, f.e.st.oos, 1)
		return f, p
	}

	t.Run("all sales", func(t *testing.T) {
		f, p := setup(t, Options{})

		res, err := f.svc.Purge(context.Background(), PurgeFilter{})
		require.NoError(t, err)

		assert.Equal(t, PurgeResult{Sales: 2, Items: 3, RestoredUnits: 10, OutOfStockDeleted: 1}, res)
		assert.Equal(t, 10, f.stock(p))
		assert.Empty(t, f.e.st.sales)
		assert.Empty(t, f.e.st.items)
		assert.Empty(t, f.e.st.oos)
	})

	t.Run("one day", func(t *testing.T) {
		f, p := setup(t, Options{})
		day := time.Date(2024, 12, 3, 0, 0, 0, 0, time.UTC)

		res, err := f.svc.Purge(context.Background(), PurgeFilter{Date: &day})
		require.NoError(t, err)

		assert.Equal(t, int64(1), res.Sales)
		assert.Equal(t, int64(2), res.Items)
		assert.Equal(t, 6, f.stock(p))
		assert.Len(t, f.e.st.sales, 1)
	})

	t.Run("keep disclosures", func(t *testing.T) {
		f, p := setup(t, Options{PurgeKeepsDisclosures: true, Reversal: ReverseRecorded})

		res, err := f.svc.Purge(context.Background(), PurgeFilter{})
		require.NoError(t, err)

		assert.Equal(t, int64(1), res.OutOfStockKept)
		assert.Equal(t, int64(13), res.RestoredUnits)
		assert.Equal(t, 13, f.stock(p))
		require.Len(t, f.e.st.oos, 1)
		assert.Nil(t, f.e.st.oos[0].SaleID)
	})

	t.Run("per-call override wins", func(t *testing.T) {
		f, _ := setup(t, Options{PurgeKeepsDisclosures: true})
		keep := false

		res, err := f.svc.Purge(context.Background(), PurgeFilter{KeepDisclosures: &keep})
		require.NoError(t, err)

		assert.Equal(t, int64(1), res.OutOfStockDeleted)
		assert.Zero(t, res.OutOfStockKept)
		assert.Empty(t, f.e.st.oos)
	})

	t.Run("nothing to purge", func(t *testing.T) {
		f := newFixture(t, Options{})

		res, err := f.svc.Purge(context.Background(), PurgeFilter{})
		require.NoError(t, err)
		assert.Equal(t, PurgeResult{}, res)
	})
}

func TestParseReversalPolicy(t *testing.T) {
	p, err := ParseReversalPolicy("")
	require.NoError(t, err)
	assert.Equal(t, ReverseFulfilled, p)

	p, err = ParseReversalPolicy("recorded")
	require.NoError(t, err)
	assert.Equal(t, ReverseRecorded, p)

	_, err = ParseReversalPolicy("half")
	assert.Error(t, err)
}

func TestPaymentMethod_Display(t *testing.T) {
	assert.Equal(t, "Bank transfer", PaymentTransfer.Display())
	assert.Equal(t, "barter", PaymentMethod("barter").Display())
	assert.False(t, PaymentMethod("barter").Valid())
}
