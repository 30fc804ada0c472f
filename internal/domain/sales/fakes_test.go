package sales

import (
	"context"
	"sort"
	"time"

	"mystore/internal/core/apperror"
	"mystore/internal/core/id"
	"mystore/internal/core/types"
	"mystore/internal/domain"
	"mystore/internal/domain/inventory"
)

// memState is everything the fakes persist. The fake transaction manager
// snapshots it before a callback and restores it when the callback fails.
type memState struct {
	products  map[id.ID]inventory.Product
	customers map[id.ID]string
	sales     map[id.ID]Sale
	items     []SaleItem
	oos       []OutOfStockSale
	events    []domain.Event
	audits    []domain.AuditAction
}

func (m *memState) clone() *memState {
	c := &memState{
		products:  make(map[id.ID]inventory.Product, len(m.products)),
		customers: make(map[id.ID]string, len(m.customers)),
		sales:     make(map[id.ID]Sale, len(m.sales)),
		items:     append([]SaleItem(nil), m.items...),
		oos:       append([]OutOfStockSale(nil), m.oos...),
		events:    append([]domain.Event(nil), m.events...),
		audits:    append([]domain.AuditAction(nil), m.audits...),
	}
	for k, v := range m.products {
		c.products[k] = v
	}
	for k, v := range m.customers {
		c.customers[k] = v
	}
	for k, v := range m.sales {
		c.sales[k] = v
	}
	return c
}

type env struct {
	st       *memState
	fail     map[string]error
	txCalls  int
	inTx     bool
	rollback int
}

func newEnv() *env {
	return &env{
		st: &memState{
			products:  map[id.ID]inventory.Product{},
			customers: map[id.ID]string{},
			sales:     map[id.ID]Sale{},
		},
		fail: map[string]error{},
	}
}

func (e *env) failure(op string) error {
	return e.fail[op]
}

// fakeTx

type fakeTx struct{ e *env }

func (t fakeTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if t.e.inTx {
		return fn(ctx)
	}
	t.e.txCalls++
	t.e.inTx = true
	snap := t.e.st.clone()
	err := fn(ctx)
	t.e.inTx = false
	if err != nil {
		t.e.st = snap
		t.e.rollback++
	}
	return err
}

// products

type productRepo struct{ e *env }

func (r productRepo) GetByID(_ context.Context, productID id.ID) (*inventory.Product, error) {
	p, ok := r.e.st.products[productID]
	if !ok {
		return nil, apperror.NewNotFound("product", productID.String())
	}
	return &p, nil
}

func (r productRepo) GetByIDs(ctx context.Context, ids []id.ID) ([]*inventory.Product, error) {
	if err := r.e.failure("GetByIDs"); err != nil {
		return nil, err
	}
	var out []*inventory.Product
	for _, v := range ids {
		if p, ok := r.e.st.products[v]; ok {
			cp := p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r productRepo) GetForUpdate(ctx context.Context, ids []id.ID) ([]*inventory.Product, error) {
	if !r.e.inTx {
		return nil, errNoTx
	}
	return r.GetByIDs(ctx, ids)
}

func (r productRepo) SetStock(_ context.Context, productID id.ID, stock int) error {
	if err := r.e.failure("SetStock"); err != nil {
		return err
	}
	p := r.e.st.products[productID]
	p.Stock = stock
	r.e.st.products[productID] = p
	return nil
}

// customers

type customerRepo struct{ e *env }

func (r customerRepo) Exists(_ context.Context, customerID id.ID) (bool, error) {
	_, ok := r.e.st.customers[customerID]
	return ok, nil
}

// sales

type saleRepo struct{ e *env }

func (r saleRepo) Create(_ context.Context, sale *Sale) error {
	if err := r.e.failure("Create"); err != nil {
		return err
	}
	r.e.st.sales[sale.ID] = *sale
	return nil
}

func (r saleRepo) Update(_ context.Context, sale *Sale) error {
	cp := *sale
	cp.Items = nil
	r.e.st.sales[sale.ID] = cp
	return nil
}

func (r saleRepo) UpdateTotal(_ context.Context, saleID id.ID, total types.Money) error {
	if err := r.e.failure("UpdateTotal"); err != nil {
		return err
	}
	s := r.e.st.sales[saleID]
	s.TotalAmount = total
	r.e.st.sales[saleID] = s
	return nil
}

func (r saleRepo) Delete(_ context.Context, saleID id.ID) error {
	_, err := r.DeleteMany(context.Background(), []id.ID{saleID})
	return err
}

func (r saleRepo) GetByID(_ context.Context, saleID id.ID) (*Sale, error) {
	s, ok := r.e.st.sales[saleID]
	if !ok {
		return nil, apperror.NewNotFound("sale", saleID.String())
	}
	s.CustomerName = r.e.st.customers[s.CustomerID]
	s.Items = nil
	return &s, nil
}

func (r saleRepo) GetForUpdate(ctx context.Context, saleID id.ID) (*Sale, error) {
	if !r.e.inTx {
		return nil, errNoTx
	}
	return r.GetByID(ctx, saleID)
}

func (r saleRepo) List(_ context.Context, f ListFilter) (domain.ListResult[*Sale], error) {
	var all []*Sale
	for _, s := range r.e.st.sales {
		if f.CustomerID != nil && s.CustomerID != *f.CustomerID {
			continue
		}
		day := dayOf(s.SaleDate)
		if f.DateFrom != nil && day.Before(dayOf(*f.DateFrom)) {
			continue
		}
		if f.DateTo != nil && day.After(dayOf(*f.DateTo)) {
			continue
		}
		cp := s
		cp.CustomerName = r.e.st.customers[s.CustomerID]
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].SaleDate.After(all[j].SaleDate) })

	res := domain.ListResult[*Sale]{TotalCount: int64(len(all)), Limit: f.Limit, Offset: f.Offset}
	if f.Offset < len(all) {
		end := f.Offset + f.Limit
		if end > len(all) {
			end = len(all)
		}
		res.Items = all[f.Offset:end]
	}
	return res, nil
}

func (r saleRepo) GetItems(_ context.Context, saleID id.ID) ([]SaleItem, error) {
	var out []SaleItem
	for _, it := range r.e.st.items {
		if it.SaleID == saleID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r saleRepo) GetItemsBySales(ctx context.Context, saleIDs []id.ID) (map[id.ID][]SaleItem, error) {
	out := make(map[id.ID][]SaleItem)
	for _, sid := range saleIDs {
		items, _ := r.GetItems(ctx, sid)
		out[sid] = items
	}
	return out, nil
}

func (r saleRepo) InsertItems(_ context.Context, items []SaleItem) error {
	if err := r.e.failure("InsertItems"); err != nil {
		return err
	}
	r.e.st.items = append(r.e.st.items, items...)
	return nil
}

func (r saleRepo) DeleteItems(_ context.Context, saleID id.ID) error {
	kept := r.e.st.items[:0:0]
	for _, it := range r.e.st.items {
		if it.SaleID != saleID {
			kept = append(kept, it)
		}
	}
	r.e.st.items = kept
	return nil
}

func (r saleRepo) LockForPurge(_ context.Context, f PurgeFilter) ([]id.ID, error) {
	var out []id.ID
	for sid, s := range r.e.st.sales {
		if f.Date != nil && !dayOf(s.SaleDate).Equal(dayOf(*f.Date)) {
			continue
		}
		out = append(out, sid)
	}
	return id.SortedUnique(out), nil
}

func (r saleRepo) ItemTotalsByProduct(_ context.Context, saleIDs []id.ID) (map[id.ID]ItemTotals, error) {
	in := idSet(saleIDs)
	out := make(map[id.ID]ItemTotals)
	for _, it := range r.e.st.items {
		if _, ok := in[it.SaleID]; !ok {
			continue
		}
		t := out[it.ProductID]
		t.Lines++
		t.Recorded += int64(it.Quantity)
		t.Fulfilled += int64(it.FulfilledQuantity)
		out[it.ProductID] = t
	}
	return out, nil
}

// DeleteMany cascades to items like the sale_id foreign key does.
func (r saleRepo) DeleteMany(_ context.Context, saleIDs []id.ID) (int64, error) {
	var n int64
	for _, sid := range saleIDs {
		if _, ok := r.e.st.sales[sid]; ok {
			delete(r.e.st.sales, sid)
			n++
		}
		_ = r.DeleteItems(context.Background(), sid)
	}
	return n, nil
}

// out of stock

type oosRepo struct{ e *env }

func (r oosRepo) Create(_ context.Context, rec *OutOfStockSale) error {
	if err := r.e.failure("CreateOutOfStock"); err != nil {
		return err
	}
	r.e.st.oos = append(r.e.st.oos, *rec)
	return nil
}

func (r oosRepo) DeleteBySales(_ context.Context, saleIDs []id.ID) (int64, error) {
	in := idSet(saleIDs)
	var n int64
	kept := r.e.st.oos[:0:0]
	for _, rec := range r.e.st.oos {
		if rec.SaleID != nil {
			if _, ok := in[*rec.SaleID]; ok {
				n++
				continue
			}
		}
		kept = append(kept, rec)
	}
	r.e.st.oos = kept
	return n, nil
}

func (r oosRepo) DetachSales(_ context.Context, saleIDs []id.ID) (int64, error) {
	in := idSet(saleIDs)
	var n int64
	for i, rec := range r.e.st.oos {
		if rec.SaleID == nil {
			continue
		}
		if _, ok := in[*rec.SaleID]; ok {
			r.e.st.oos[i].SaleID = nil
			n++
		}
	}
	return n, nil
}

func (r oosRepo) List(_ context.Context, f OutOfStockFilter) (domain.ListResult[*OutOfStockSale], error) {
	var all []*OutOfStockSale
	for i := len(r.e.st.oos) - 1; i >= 0; i-- {
		rec := r.e.st.oos[i]
		if f.ProductID != nil && rec.ProductID != *f.ProductID {
			continue
		}
		all = append(all, &rec)
	}
	return domain.ListResult[*OutOfStockSale]{Items: all, TotalCount: int64(len(all)), Limit: f.Limit}, nil
}

// side channels

type eventSink struct{ e *env }

func (s eventSink) Publish(_ context.Context, evt domain.Event) error {
	if err := s.e.failure("Publish"); err != nil {
		return err
	}
	s.e.st.events = append(s.e.st.events, evt)
	return nil
}

// batchSink records each PublishBatch call as one entry in batches.
type batchSink struct {
	eventSink
	batches *[][]string
}

func (s batchSink) PublishBatch(_ context.Context, events []domain.Event) error {
	kinds := make([]string, len(events))
	for i, evt := range events {
		kinds[i] = evt.EventType
		s.e.st.events = append(s.e.st.events, evt)
	}
	*s.batches = append(*s.batches, kinds)
	return nil
}

type auditSink struct{ e *env }

func (s auditSink) RecordChange(_ context.Context, _ string, _ id.ID, action domain.AuditAction, _ map[string]any) error {
	s.e.st.audits = append(s.e.st.audits, action)
	return nil
}

type txError string

func (e txError) Error() string { return string(e) }

const errNoTx = txError("row lock outside transaction")

func dayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func idSet(ids []id.ID) map[id.ID]struct{} {
	out := make(map[id.ID]struct{}, len(ids))
	for _, v := range ids {
		out[v] = struct{}{}
	}
	return out
}
