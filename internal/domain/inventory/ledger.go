package inventory

import (
	"context"
	"fmt"

	"mystore/internal/core/id"
)

// Ledger applies stock changes. Every mutating call must run inside the
// caller's transaction so a later failure rolls the stock back too.
type Ledger struct {
	repo Repository
}

// NewLedger creates a ledger over the product repository.
func NewLedger(repo Repository) *Ledger {
	return &Ledger{repo: repo}
}

// Lock loads and row-locks the given products. Ids are de-duplicated and
// locked in sorted order so two sales sharing products cannot deadlock.
// Unknown ids are absent from the result.
func (l *Ledger) Lock(ctx context.Context, ids []id.ID) (map[id.ID]*Product, error) {
	out := make(map[id.ID]*Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	products, err := l.repo.GetForUpdate(ctx, id.SortedUnique(ids))
	if err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

// ApplySaleDeduction takes qty out of p.Stock, flooring at zero, and
// persists the new level. It never fails on quantity: a request larger
// than stock yields a shortfall, zero or negative yields an empty Deduction.
func (l *Ledger) ApplySaleDeduction(ctx context.Context, p *Product, qty int) (Deduction, error) {
	if qty <= 0 {
		return Deduction{}, nil
	}

	var d Deduction
	if p.Stock >= qty {
		d = Deduction{Fulfilled: qty}
		p.Stock -= qty
	} else {
		d = Deduction{Fulfilled: p.Stock, Shortfall: qty - p.Stock}
		p.Stock = 0
	}

	if err := l.repo.SetStock(ctx, p.ID, p.Stock); err != nil {
		return Deduction{}, fmt.Errorf("deduct stock for %s: %w", p.ID, err)
	}
	return d, nil
}

// ReverseSaleDeduction returns qty to p.Stock. There is no upper bound.
func (l *Ledger) ReverseSaleDeduction(ctx context.Context, p *Product, qty int) error {
	if qty <= 0 {
		return nil
	}
	p.Stock += qty
	if err := l.repo.SetStock(ctx, p.ID, p.Stock); err != nil {
		return fmt.Errorf("restore stock for %s: %w", p.ID, err)
	}
	return nil
}
