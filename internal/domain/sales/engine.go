package sales

import (
	"context"
	"fmt"

	"mystore/internal/core/apperror"
	"mystore/internal/core/id"
	"mystore/internal/core/types"
	"mystore/internal/domain"
	"mystore/internal/domain/inventory"
	"mystore/pkg/logger"
)

// preparedItem is a validated line; index is its position in the request.
type preparedItem struct {
	index     int
	productID id.ID
	quantity  int
	unitPrice *types.Money
}

type appliedItems struct {
	items       []SaleItem
	disclosures []Disclosure
	events      []domain.Event
	total       types.Money
}

// prepareItems validates lines before any transaction is opened. Prices
// leave here at MoneyScale, so subtotals and the stored total agree.
func (s *Service) prepareItems(in []ItemInput) ([]preparedItem, error) {
	out := make([]preparedItem, 0, len(in))
	for i, it := range in {
		if s.opts.LenientItems {
			if it.ProductID == nil || id.IsNil(*it.ProductID) {
				continue
			}
			qty := it.Quantity
			if qty < 0 || qty > types.MaxQuantity {
				qty = 0
			}
			var price *types.Money
			if it.UnitPrice != nil && !it.UnitPrice.IsNegative() && !it.UnitPrice.GreaterThan(types.MaxUnitPrice) {
				rounded := types.RoundMoney(*it.UnitPrice)
				price = &rounded
			}
			out = append(out, preparedItem{index: i, productID: *it.ProductID, quantity: qty, unitPrice: price})
			continue
		}

		if it.ProductID == nil || id.IsNil(*it.ProductID) {
			return nil, apperror.NewInvalidSaleItem(i, "product", "is required")
		}
		if it.Quantity <= 0 {
			return nil, apperror.NewInvalidSaleItem(i, "quantity", "must be a positive integer")
		}
		if it.Quantity > types.MaxQuantity {
			return nil, apperror.NewInvalidSaleItem(i, "quantity", fmt.Sprintf("must not exceed %d", types.MaxQuantity))
		}
		if err := checkUnitPrice(it.UnitPrice); err != "" {
			return nil, apperror.NewInvalidSaleItem(i, "unit_price", err)
		}
		out = append(out, preparedItem{index: i, productID: *it.ProductID, quantity: it.Quantity, unitPrice: it.UnitPrice})
	}
	return out, nil
}

// checkUnitPrice returns the reason a strict price is rejected, or "".
func checkUnitPrice(p *types.Money) string {
	switch {
	case p == nil:
		return ""
	case p.IsNegative():
		return "must not be negative"
	case p.GreaterThan(types.MaxUnitPrice):
		return "must not exceed " + types.FormatMoney(types.MaxUnitPrice)
	case !types.HasMoneyScale(*p):
		return fmt.Sprintf("must have at most %d decimal places", types.MoneyScale)
	}
	return ""
}

// applyItems writes the lines of sale in request order, deducting stock
// from the locked products and recording a disclosure for every shortfall.
func (s *Service) applyItems(ctx context.Context, sale *Sale, lines []preparedItem, locked map[id.ID]*inventory.Product) (appliedItems, error) {
	res := appliedItems{
		items:       make([]SaleItem, 0, len(lines)),
		disclosures: []Disclosure{},
		total:       types.Zero(),
	}

	for _, ln := range lines {
		p, ok := locked[ln.productID]
		if !ok {
			return appliedItems{}, apperror.NewValidation("product does not exist").
				WithDetail("field", fmt.Sprintf("items[%d].product", ln.index)).
				WithDetail("id", ln.productID.String())
		}

		price := p.Price
		if ln.unitPrice != nil {
			price = *ln.unitPrice
		}
		price = types.RoundMoney(price)

		d, err := s.ledger.ApplySaleDeduction(ctx, p, ln.quantity)
		if err != nil {
			return appliedItems{}, err
		}

		item := SaleItem{
			ID:                id.New(),
			SaleID:            sale.ID,
			ProductID:         p.ID,
			ProductName:       p.Name,
			Quantity:          ln.quantity,
			FulfilledQuantity: d.Fulfilled,
			UnitPrice:         price,
		}
		res.items = append(res.items, item)
		res.total = res.total.Add(item.Subtotal())

		if !d.HasShortfall() {
			continue
		}

		saleID := sale.ID
		rec := &OutOfStockSale{
			ID:           id.New(),
			ProductID:    p.ID,
			ProductName:  p.Name,
			SaleID:       &saleID,
			QuantitySold: d.Shortfall,
			Note:         fmt.Sprintf("%s: %d units sold out of stock", p.Name, d.Shortfall),
			CreatedAt:    s.now().UTC(),
		}
		if err := s.oos.Create(ctx, rec); err != nil {
			return appliedItems{}, fmt.Errorf("record out-of-stock sale: %w", err)
		}
		res.disclosures = append(res.disclosures, Disclosure{ProductID: p.ID, Product: p.Name, Quantity: d.Shortfall})

		logger.Warn(ctx, "sale recorded out of stock",
			"sale_id", sale.ID,
			"product_id", p.ID,
			"requested", ln.quantity,
			"shortfall", d.Shortfall,
		)
		res.events = append(res.events, saleEvent(EventSaleOutOfStock, sale.ID, map[string]any{
			"sale_id":    sale.ID,
			"product_id": p.ID,
			"product":    p.Name,
			"shortfall":  d.Shortfall,
		}))
	}

	if res.total.GreaterThan(types.MaxTotal) {
		return appliedItems{}, apperror.NewValidation("sale total is too large").
			WithDetail("field", "total_amount").
			WithDetail("max", types.FormatMoney(types.MaxTotal))
	}

	if len(res.items) > 0 {
		if err := s.repo.InsertItems(ctx, res.items); err != nil {
			return appliedItems{}, fmt.Errorf("insert sale items: %w", err)
		}
	}
	sale.Items = res.items
	return res, nil
}

// reverseItems returns stock for every line according to the reversal
// policy. Products must already be locked.
func (s *Service) reverseItems(ctx context.Context, items []SaleItem, locked map[id.ID]*inventory.Product) (int64, error) {
	var restored int64
	for _, it := range items {
		p, ok := locked[it.ProductID]
		if !ok {
			return 0, fmt.Errorf("product %s of sale item %s is missing", it.ProductID, it.ID)
		}
		qty := s.opts.Reversal.quantity(it)
		if err := s.ledger.ReverseSaleDeduction(ctx, p, qty); err != nil {
			return 0, err
		}
		restored += int64(qty)
	}
	return restored, nil
}

// Purge deletes sales in bulk: all of them, or those whose sale_date falls
// on filter.Date. Stock is restored per product, out-of-stock rows are
// deleted or detached, and everything happens in one transaction.
func (s *Service) Purge(ctx context.Context, filter PurgeFilter) (PurgeResult, error) {
	ctx, span := tracer.Start(ctx, "sales.purge")
	defer span.End()

	keep := s.opts.PurgeKeepsDisclosures
	if filter.KeepDisclosures != nil {
		keep = *filter.KeepDisclosures
	}

	var res PurgeResult
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		saleIDs, err := s.repo.LockForPurge(ctx, filter)
		if err != nil {
			return fmt.Errorf("select sales: %w", err)
		}
		if len(saleIDs) == 0 {
			return nil
		}

		totals, err := s.repo.ItemTotalsByProduct(ctx, saleIDs)
		if err != nil {
			return fmt.Errorf("sum sale items: %w", err)
		}
		productIDs := make([]id.ID, 0, len(totals))
		for pid := range totals {
			productIDs = append(productIDs, pid)
		}
		productIDs = id.SortedUnique(productIDs)

		locked, err := s.ledger.Lock(ctx, productIDs)
		if err != nil {
			return err
		}
		for _, pid := range productIDs {
			p, ok := locked[pid]
			if !ok {
				return fmt.Errorf("product %s of purged sales is missing", pid)
			}
			t := totals[pid]
			qty := t.Fulfilled
			if s.opts.Reversal == ReverseRecorded {
				qty = t.Recorded
			}
			if err := s.ledger.ReverseSaleDeduction(ctx, p, int(qty)); err != nil {
				return err
			}
			res.RestoredUnits += qty
			res.Items += t.Lines
		}

		if keep {
			if res.OutOfStockKept, err = s.oos.DetachSales(ctx, saleIDs); err != nil {
				return fmt.Errorf("detach out-of-stock records: %w", err)
			}
		} else {
			if res.OutOfStockDeleted, err = s.oos.DeleteBySales(ctx, saleIDs); err != nil {
				return fmt.Errorf("delete out-of-stock records: %w", err)
			}
		}

		if res.Sales, err = s.repo.DeleteMany(ctx, saleIDs); err != nil {
			return fmt.Errorf("delete sales: %w", err)
		}

		payload := map[string]any{
			"sales":          res.Sales,
			"items":          res.Items,
			"restored_units": res.RestoredUnits,
		}
		if filter.Date != nil {
			payload["date"] = filter.Date.Format("2006-01-02")
		}
		if err := s.publish(ctx, EventSalesPurged, id.ID{}, payload); err != nil {
			return err
		}
		return s.audit.RecordChange(ctx, AggregateSale, id.ID{}, domain.AuditPurge, payload)
	})
	if err != nil {
		return PurgeResult{}, err
	}

	logger.Info(ctx, "sales purged",
		"sales", res.Sales,
		"items", res.Items,
		"restored_units", res.RestoredUnits,
		"out_of_stock_deleted", res.OutOfStockDeleted,
		"out_of_stock_kept", res.OutOfStockKept,
	)
	return res, nil
}

// reload reads the committed state back through the transaction.
func (s *Service) reload(ctx context.Context, saleID id.ID, disclosures []Disclosure) (*Result, error) {
	sale, err := s.GetByID(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("reload sale: %w", err)
	}
	if disclosures == nil {
		disclosures = []Disclosure{}
	}
	return &Result{Sale: sale, OutOfStock: disclosures}, nil
}

func saleEvent(eventType string, aggregateID id.ID, payload map[string]any) domain.Event {
	return domain.Event{
		AggregateType: AggregateSale,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       payload,
	}
}

func (s *Service) publish(ctx context.Context, eventType string, aggregateID id.ID, payload map[string]any) error {
	if err := s.events.Publish(ctx, saleEvent(eventType, aggregateID, payload)); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}

// publishAll writes events in order, batched when the publisher supports it.
func (s *Service) publishAll(ctx context.Context, events []domain.Event) error {
	if bp, ok := s.events.(domain.BatchPublisher); ok {
		if err := bp.PublishBatch(ctx, events); err != nil {
			return fmt.Errorf("publish batch: %w", err)
		}
		return nil
	}
	for _, evt := range events {
		if err := s.events.Publish(ctx, evt); err != nil {
			return fmt.Errorf("publish %s: %w", evt.EventType, err)
		}
	}
	return nil
}

func salePayload(sale *Sale, applied appliedItems) map[string]any {
	return map[string]any{
		"sale_id":      sale.ID,
		"customer_id":  sale.CustomerID,
		"total_amount": types.FormatMoney(sale.TotalAmount),
		"items":        len(applied.items),
		"out_of_stock": applied.disclosures,
	}
}

func saleHeader(sale *Sale) map[string]any {
	return map[string]any{
		"customer_id":    sale.CustomerID,
		"payment_method": sale.PaymentMethod,
		"notes":          sale.Notes,
		"sale_date":      sale.SaleDate,
		"total_amount":   types.FormatMoney(sale.TotalAmount),
	}
}

func itemChanges(items []SaleItem) []map[string]any {
	lines := make([]map[string]any, len(items))
	for i, it := range items {
		lines[i] = map[string]any{
			"product_id": it.ProductID,
			"quantity":   it.Quantity,
			"fulfilled":  it.FulfilledQuantity,
			"unit_price": types.FormatMoney(it.UnitPrice),
		}
	}
	return lines
}

func saleChanges(sale *Sale, applied appliedItems) map[string]any {
	changes := saleHeader(sale)
	changes["items"] = itemChanges(applied.items)
	return changes
}

func lineProductIDs(lines []preparedItem) []id.ID {
	out := make([]id.ID, len(lines))
	for i, ln := range lines {
		out[i] = ln.productID
	}
	return out
}

func itemProductIDs(items []SaleItem) []id.ID {
	out := make([]id.ID, len(items))
	for i, it := range items {
		out[i] = it.ProductID
	}
	return out
}
