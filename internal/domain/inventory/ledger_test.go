package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mystore/internal/core/apperror"
	"mystore/internal/core/id"
	"mystore/internal/core/types"
)

type fakeRepo struct {
	products  map[id.ID]*Product
	lockOrder [][]id.ID
	writes    int
	failWrite error
}

func newFakeRepo(ps ...*Product) *fakeRepo {
	r := &fakeRepo{products: make(map[id.ID]*Product)}
	for _, p := range ps {
		r.products[p.ID] = p
	}
	return r
}

func (r *fakeRepo) GetByID(_ context.Context, productID id.ID) (*Product, error) {
	p, ok := r.products[productID]
	if !ok {
		return nil, apperror.NewNotFound("product", productID.String())
	}
	cp := *p
	return &cp, nil
}

func (r *fakeRepo) GetByIDs(ctx context.Context, ids []id.ID) ([]*Product, error) {
	var out []*Product
	for _, v := range ids {
		if p, err := r.GetByID(ctx, v); err == nil {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeRepo) GetForUpdate(ctx context.Context, ids []id.ID) ([]*Product, error) {
	r.lockOrder = append(r.lockOrder, ids)
	return r.GetByIDs(ctx, ids)
}

func (r *fakeRepo) SetStock(_ context.Context, productID id.ID, stock int) error {
	if r.failWrite != nil {
		return r.failWrite
	}
	r.writes++
	r.products[productID].Stock = stock
	return nil
}

type passthroughTx struct{}

func (passthroughTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func product(stock int) *Product {
	return &Product{ID: id.New(), Name: "Carton 40x30", Price: types.MustMoney("100"), Stock: stock}
}

func TestApplySaleDeduction(t *testing.T) {
	tests := []struct {
		name      string
		stock     int
		qty       int
		want      Deduction
		wantStock int
	}{
		{name: "enough stock", stock: 10, qty: 4, want: Deduction{Fulfilled: 4}, wantStock: 6},
		{name: "exact stock", stock: 5, qty: 5, want: Deduction{Fulfilled: 5}, wantStock: 0},
		{name: "shortfall", stock: 5, qty: 8, want: Deduction{Fulfilled: 5, Shortfall: 3}, wantStock: 0},
		{name: "empty shelf", stock: 0, qty: 2, want: Deduction{Shortfall: 2}, wantStock: 0},
		{name: "huge request", stock: 6, qty: 1_000_000, want: Deduction{Fulfilled: 6, Shortfall: 999_994}, wantStock: 0},
		{name: "zero quantity", stock: 3, qty: 0, want: Deduction{}, wantStock: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := product(tt.stock)
			repo := newFakeRepo(p)
			ledger := NewLedger(repo)

			locked, err := ledger.Lock(context.Background(), []id.ID{p.ID})
			require.NoError(t, err)

			got, err := ledger.ApplySaleDeduction(context.Background(), locked[p.ID], tt.qty)
			require.NoError(t, err)

			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantStock, repo.products[p.ID].Stock)
			assert.GreaterOrEqual(t, repo.products[p.ID].Stock, 0)
		})
	}
}

func TestApplySaleDeduction_WriteFailure(t *testing.T) {
	p := product(10)
	repo := newFakeRepo(p)
	repo.failWrite = errors.New("connection lost")

	_, err := NewLedger(repo).ApplySaleDeduction(context.Background(), p, 2)

	assert.ErrorContains(t, err, "connection lost")
}

func TestReverseSaleDeduction_Unbounded(t *testing.T) {
	p := product(0)
	repo := newFakeRepo(p)
	ledger := NewLedger(repo)

	require.NoError(t, ledger.ReverseSaleDeduction(context.Background(), p, 8))
	require.NoError(t, ledger.ReverseSaleDeduction(context.Background(), p, 0))

	assert.Equal(t, 8, repo.products[p.ID].Stock)
	assert.Equal(t, 1, repo.writes)
}

func TestLock_SortedAndDeduplicated(t *testing.T) {
	a, b := product(1), product(2)
	repo := newFakeRepo(a, b)

	locked, err := NewLedger(repo).Lock(context.Background(), []id.ID{b.ID, a.ID, b.ID, id.New()})
	require.NoError(t, err)

	assert.Len(t, locked, 2)
	require.Len(t, repo.lockOrder, 1)
	assert.Len(t, repo.lockOrder[0], 3)
	assert.Equal(t, id.SortedUnique([]id.ID{a.ID, b.ID}), filterKnown(repo.lockOrder[0], repo))
}

func filterKnown(ids []id.ID, repo *fakeRepo) []id.ID {
	var out []id.ID
	for _, v := range ids {
		if _, ok := repo.products[v]; ok {
			out = append(out, v)
		}
	}
	return out
}

func TestAdjustStock(t *testing.T) {
	tests := []struct {
		name   string
		action string
		qty    int
		stock  int
		want   int
	}{
		{name: "set", action: "set", qty: 12, stock: 3, want: 12},
		{name: "add", action: "add", qty: 5, stock: 3, want: 8},
		{name: "subtract", action: "subtract", qty: 2, stock: 3, want: 1},
		{name: "subtract floors at zero", action: "subtract", qty: 9, stock: 3, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := product(tt.stock)
			repo := newFakeRepo(p)
			adj, err := ParseAdjustment(tt.action, tt.qty)
			require.NoError(t, err)

			res, err := NewService(repo, passthroughTx{}, nil).AdjustStock(context.Background(), p.ID, adj)
			require.NoError(t, err)

			assert.Equal(t, tt.stock, res.Previous)
			assert.Equal(t, tt.want, res.Product.Stock)
			assert.Equal(t, tt.want, repo.products[p.ID].Stock)
		})
	}
}

func TestAdjustStock_UnknownProduct(t *testing.T) {
	_, err := NewService(newFakeRepo(), passthroughTx{}, nil).AdjustStock(context.Background(), id.New(), AddStock{Quantity: 1})
	assert.True(t, apperror.IsNotFound(err))
}

func TestParseAdjustment_Rejects(t *testing.T) {
	_, err := ParseAdjustment("multiply", 2)
	assert.True(t, apperror.IsValidation(err))

	_, err = ParseAdjustment("add", -1)
	assert.True(t, apperror.IsValidation(err))
}
