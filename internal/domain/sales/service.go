package sales

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mystore/internal/core/apperror"
	"mystore/internal/core/id"
	"mystore/internal/core/tx"
	"mystore/internal/core/types"
	"mystore/internal/domain"
	"mystore/internal/domain/inventory"
	"mystore/pkg/logger"
)

var tracer = otel.Tracer("mystore/sales")

// ServiceConfig wires the engine. Events, Audit and Now are optional.
type ServiceConfig struct {
	Repo       Repository
	OutOfStock OutOfStockRepository
	Customers  CustomerReader
	Products   inventory.Repository
	TxManager  tx.Manager
	Events     domain.EventPublisher
	Audit      domain.AuditRecorder
	Options    Options
	Now        func() time.Time
}

// Service is the sale transaction engine.
type Service struct {
	repo      Repository
	oos       OutOfStockRepository
	customers CustomerReader
	products  inventory.Repository
	ledger    *inventory.Ledger
	txm       tx.Manager
	events    domain.EventPublisher
	audit     domain.AuditRecorder
	hooks     *domain.HookRegistry[*Sale]
	opts      Options
	now       func() time.Time
}

// NewService creates the engine.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		repo:      cfg.Repo,
		oos:       cfg.OutOfStock,
		customers: cfg.Customers,
		products:  cfg.Products,
		ledger:    inventory.NewLedger(cfg.Products),
		txm:       cfg.TxManager,
		events:    cfg.Events,
		audit:     cfg.Audit,
		hooks:     domain.NewHookRegistry[*Sale](),
		opts:      cfg.Options,
		now:       cfg.Now,
	}
	if s.events == nil {
		s.events = domain.NopPublisher{}
	}
	if s.audit == nil {
		s.audit = domain.NopAudit{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.opts.Reversal == "" {
		s.opts.Reversal = ReverseFulfilled
	}
	return s
}

// Hooks returns the hook registry for external registration.
func (s *Service) Hooks() *domain.HookRegistry[*Sale] {
	return s.hooks
}

// afterCommit runs AfterCommit hooks. The sale is already durable, so a
// failing hook is logged and not returned.
func (s *Service) afterCommit(ctx context.Context, sale *Sale) {
	if err := s.hooks.RunAfterCommit(ctx, sale); err != nil {
		logger.Warn(ctx, "after-commit hook failed", "sale_id", sale.ID, "error", err)
	}
}

// Create records a new sale. Insufficient stock never fails the call;
// shortfalls come back in Result.OutOfStock.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Result, error) {
	ctx, span := tracer.Start(ctx, "sales.create", trace.WithAttributes(
		attribute.Int("sale.items", len(in.Items)),
	))
	defer span.End()

	if err := s.checkCustomer(ctx, in.CustomerID); err != nil {
		return nil, err
	}
	method, err := normalizePayment(in.PaymentMethod)
	if err != nil {
		return nil, err
	}
	lines, err := s.prepareItems(in.Items)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	sale := &Sale{
		ID:            id.New(),
		CustomerID:    *in.CustomerID,
		SaleDate:      now,
		TotalAmount:   types.Zero(),
		PaymentMethod: method,
		Notes:         in.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if in.SaleDate != nil {
		sale.SaleDate = in.SaleDate.UTC()
	}
	if err := s.hooks.RunBeforeCreate(ctx, sale); err != nil {
		return nil, err
	}

	var res *Result
	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, sale); err != nil {
			return fmt.Errorf("create sale: %w", err)
		}

		locked, err := s.ledger.Lock(ctx, lineProductIDs(lines))
		if err != nil {
			return err
		}
		applied, err := s.applyItems(ctx, sale, lines, locked)
		if err != nil {
			return err
		}

		sale.TotalAmount = applied.total
		if err := s.repo.UpdateTotal(ctx, sale.ID, sale.TotalAmount); err != nil {
			return fmt.Errorf("update sale total: %w", err)
		}

		events := append(applied.events, saleEvent(EventSaleCommitted, sale.ID, salePayload(sale, applied)))
		if err := s.publishAll(ctx, events); err != nil {
			return err
		}
		if err := s.audit.RecordChange(ctx, AggregateSale, sale.ID, domain.AuditCreate, saleChanges(sale, applied)); err != nil {
			return fmt.Errorf("audit sale: %w", err)
		}

		res, err = s.reload(ctx, sale.ID, applied.disclosures)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.afterCommit(ctx, res.Sale)

	logger.Info(ctx, "sale created",
		"sale_id", res.Sale.ID,
		"items", len(res.Sale.Items),
		"total", types.FormatMoney(res.Sale.TotalAmount),
		"shortfalls", len(res.OutOfStock),
	)
	return res, nil
}

// Update changes header fields and, when in.Items is set, replaces every
// line: prior stock effects are reversed and prior disclosures dropped
// before the new lines are applied.
func (s *Service) Update(ctx context.Context, saleID id.ID, in UpdateInput) (*Result, error) {
	ctx, span := tracer.Start(ctx, "sales.update", trace.WithAttributes(
		attribute.String("sale.id", saleID.String()),
		attribute.Bool("sale.replace_items", in.Items != nil),
	))
	defer span.End()

	if in.CustomerID != nil {
		if err := s.checkCustomer(ctx, in.CustomerID); err != nil {
			return nil, err
		}
	}
	var method PaymentMethod
	if in.PaymentMethod != nil {
		m, err := normalizePayment(*in.PaymentMethod)
		if err != nil {
			return nil, err
		}
		method = m
	}
	var lines []preparedItem
	if in.Items != nil {
		prepared, err := s.prepareItems(*in.Items)
		if err != nil {
			return nil, err
		}
		lines = prepared
	}

	var res *Result
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		sale, err := s.repo.GetForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		before := saleHeader(sale)

		var locked map[id.ID]*inventory.Product
		var restored int64
		if in.Items != nil {
			old, err := s.repo.GetItems(ctx, saleID)
			if err != nil {
				return fmt.Errorf("get sale items: %w", err)
			}
			locked, err = s.ledger.Lock(ctx, append(itemProductIDs(old), lineProductIDs(lines)...))
			if err != nil {
				return err
			}
			if restored, err = s.reverseItems(ctx, old, locked); err != nil {
				return err
			}
			if err := s.repo.DeleteItems(ctx, saleID); err != nil {
				return fmt.Errorf("delete sale items: %w", err)
			}
			if _, err := s.oos.DeleteBySales(ctx, []id.ID{saleID}); err != nil {
				return fmt.Errorf("delete out-of-stock records: %w", err)
			}
		}

		if in.CustomerID != nil {
			sale.CustomerID = *in.CustomerID
		}
		if in.PaymentMethod != nil {
			sale.PaymentMethod = method
		}
		if in.Notes != nil {
			sale.Notes = *in.Notes
		}
		if in.SaleDate != nil {
			sale.SaleDate = in.SaleDate.UTC()
		}
		sale.UpdatedAt = s.now().UTC()
		if err := s.hooks.RunBeforeUpdate(ctx, sale); err != nil {
			return err
		}

		applied := appliedItems{}
		if in.Items != nil {
			if applied, err = s.applyItems(ctx, sale, lines, locked); err != nil {
				return err
			}
			sale.TotalAmount = applied.total
		}

		if err := s.repo.Update(ctx, sale); err != nil {
			return fmt.Errorf("update sale: %w", err)
		}

		payload := salePayload(sale, applied)
		payload["restored_units"] = restored
		if err := s.publishAll(ctx, append(applied.events, saleEvent(EventSaleUpdated, sale.ID, payload))); err != nil {
			return err
		}
		changes := domain.Diff(before, saleHeader(sale))
		if in.Items != nil {
			changes["items"] = itemChanges(applied.items)
		}
		if err := s.audit.RecordChange(ctx, AggregateSale, sale.ID, domain.AuditUpdate, changes); err != nil {
			return fmt.Errorf("audit sale: %w", err)
		}

		res, err = s.reload(ctx, sale.ID, applied.disclosures)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.afterCommit(ctx, res.Sale)

	logger.Info(ctx, "sale updated",
		"sale_id", saleID,
		"items_replaced", in.Items != nil,
		"items", len(res.Sale.Items),
		"total", types.FormatMoney(res.Sale.TotalAmount),
		"shortfalls", len(res.OutOfStock),
	)
	return res, nil
}

// Delete reverses every line's stock effect, removes the sale's
// out-of-stock records and deletes the sale with its lines.
func (s *Service) Delete(ctx context.Context, saleID id.ID) error {
	ctx, span := tracer.Start(ctx, "sales.delete", trace.WithAttributes(
		attribute.String("sale.id", saleID.String()),
	))
	defer span.End()

	var restored int64
	var lines int
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		sale, err := s.repo.GetForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		items, err := s.repo.GetItems(ctx, saleID)
		if err != nil {
			return fmt.Errorf("get sale items: %w", err)
		}
		lines = len(items)

		locked, err := s.ledger.Lock(ctx, itemProductIDs(items))
		if err != nil {
			return err
		}
		if restored, err = s.reverseItems(ctx, items, locked); err != nil {
			return err
		}
		if _, err := s.oos.DeleteBySales(ctx, []id.ID{saleID}); err != nil {
			return fmt.Errorf("delete out-of-stock records: %w", err)
		}
		if err := s.repo.Delete(ctx, saleID); err != nil {
			return fmt.Errorf("delete sale: %w", err)
		}

		if err := s.publish(ctx, EventSaleDeleted, saleID, map[string]any{
			"sale_id":        saleID,
			"customer_id":    sale.CustomerID,
			"restored_units": restored,
		}); err != nil {
			return err
		}
		return s.audit.RecordChange(ctx, AggregateSale, saleID, domain.AuditDelete, map[string]any{
			"total_amount":   types.FormatMoney(sale.TotalAmount),
			"items":          len(items),
			"restored_units": restored,
		})
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "sale deleted", "sale_id", saleID, "items", lines, "restored_units", restored)
	return nil
}

// CheckStock reports lines that current stock cannot cover. It takes no
// locks, so the answer may be stale by the time a sale is created.
// Lines without a product reference or with a non-positive quantity are
// ignored; an unknown or malformed reference is reported as not found.
func (s *Service) CheckStock(ctx context.Context, items []StockCheckItem) (*StockCheckResult, error) {
	ids := make([]id.ID, 0, len(items))
	for _, it := range items {
		if it.ProductID != nil && it.Quantity > 0 {
			ids = append(ids, *it.ProductID)
		}
	}

	found := make(map[id.ID]*inventory.Product, len(ids))
	if len(ids) > 0 {
		products, err := s.products.GetByIDs(ctx, id.SortedUnique(ids))
		if err != nil {
			return nil, fmt.Errorf("load products: %w", err)
		}
		for _, p := range products {
			found[p.ID] = p
		}
	}

	res := &StockCheckResult{Issues: []StockIssue{}}
	for _, it := range items {
		ref := it.ProductRef
		if it.ProductID != nil {
			ref = it.ProductID.String()
		}
		if ref == "" || it.Quantity <= 0 {
			continue
		}

		var p *inventory.Product
		if it.ProductID != nil {
			p = found[*it.ProductID]
		}
		switch {
		case p == nil:
			res.Issues = append(res.Issues, StockIssue{
				ProductID:   ref,
				ProductName: "Product not found",
				Requested:   it.Quantity,
				Available:   0,
				Shortage:    it.Quantity,
			})
		case p.Stock < it.Quantity:
			res.Issues = append(res.Issues, StockIssue{
				ProductID:   p.ID.String(),
				ProductName: p.Name,
				Requested:   it.Quantity,
				Available:   p.Stock,
				Shortage:    it.Quantity - p.Stock,
			})
		}
	}
	res.HasIssues = len(res.Issues) > 0
	return res, nil
}

// GetByID returns a sale with its lines, read from one snapshot.
func (s *Service) GetByID(ctx context.Context, saleID id.ID) (*Sale, error) {
	var sale *Sale
	err := tx.ReadOnly(ctx, s.txm, func(ctx context.Context) error {
		var err error
		sale, err = s.repo.GetByID(ctx, saleID)
		if err != nil {
			return err
		}
		items, err := s.repo.GetItems(ctx, saleID)
		if err != nil {
			return fmt.Errorf("get sale items: %w", err)
		}
		sale.Items = items
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sale, nil
}

// List returns sales newest first with their lines.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Sale], error) {
	filter.ListFilter = filter.ListFilter.Normalize()
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateTo.Before(*filter.DateFrom) {
		return domain.ListResult[*Sale]{}, apperror.NewValidation("date_to is before date_from").
			WithDetail("field", "date_to")
	}

	var res domain.ListResult[*Sale]
	err := tx.ReadOnly(ctx, s.txm, func(ctx context.Context) error {
		var err error
		res, err = s.repo.List(ctx, filter)
		if err != nil {
			return fmt.Errorf("list sales: %w", err)
		}
		if len(res.Items) == 0 {
			return nil
		}

		ids := make([]id.ID, len(res.Items))
		for i, sale := range res.Items {
			ids[i] = sale.ID
		}
		bySale, err := s.repo.GetItemsBySales(ctx, ids)
		if err != nil {
			return fmt.Errorf("get sale items: %w", err)
		}
		for _, sale := range res.Items {
			sale.Items = bySale[sale.ID]
		}
		return nil
	})
	return res, err
}

// ListOutOfStock returns shortfall records newest first.
func (s *Service) ListOutOfStock(ctx context.Context, filter OutOfStockFilter) (domain.ListResult[*OutOfStockSale], error) {
	filter.ListFilter = filter.ListFilter.Normalize()
	return s.oos.List(ctx, filter)
}

func (s *Service) checkCustomer(ctx context.Context, customerID *id.ID) error {
	if customerID == nil || id.IsNil(*customerID) {
		return apperror.NewValidation("customer is required").WithDetail("field", "customer")
	}
	ok, err := s.customers.Exists(ctx, *customerID)
	if err != nil {
		return fmt.Errorf("check customer: %w", err)
	}
	if !ok {
		return apperror.NewValidation("customer does not exist").
			WithDetail("field", "customer").
			WithDetail("id", customerID.String())
	}
	return nil
}

func normalizePayment(m PaymentMethod) (PaymentMethod, error) {
	if m == "" {
		return PaymentCash, nil
	}
	if !m.Valid() {
		return "", apperror.NewValidation(fmt.Sprintf("unknown payment method %q", m)).
			WithDetail("field", "payment_method")
	}
	return m, nil
}
