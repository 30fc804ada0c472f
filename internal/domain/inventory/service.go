package inventory

import (
	"context"
	"fmt"

	"mystore/internal/core/apperror"
	"mystore/internal/core/id"
	"mystore/internal/core/tx"
	"mystore/internal/domain"
	"mystore/pkg/logger"
)

// Service exposes manual stock corrections outside of sales.
type Service struct {
	repo   Repository
	ledger *Ledger
	txm    tx.Manager
	audit  domain.AuditRecorder
}

// NewService creates the stock service. audit may be nil.
func NewService(repo Repository, txm tx.Manager, audit domain.AuditRecorder) *Service {
	if audit == nil {
		audit = domain.NopAudit{}
	}
	return &Service{repo: repo, ledger: NewLedger(repo), txm: txm, audit: audit}
}

// GetProduct returns a product by id.
func (s *Service) GetProduct(ctx context.Context, productID id.ID) (*Product, error) {
	return s.repo.GetByID(ctx, productID)
}

// AdjustResult reports a manual correction.
type AdjustResult struct {
	Product  *Product
	Previous int
}

// AdjustStock applies adj under a row lock.
func (s *Service) AdjustStock(ctx context.Context, productID id.ID, adj Adjustment) (AdjustResult, error) {
	var res AdjustResult
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		locked, err := s.ledger.Lock(ctx, []id.ID{productID})
		if err != nil {
			return err
		}
		p, ok := locked[productID]
		if !ok {
			return apperror.NewNotFound("product", productID.String())
		}

		res.Previous = p.Stock
		p.Stock = adj.Apply(p.Stock)
		if err := s.repo.SetStock(ctx, p.ID, p.Stock); err != nil {
			return fmt.Errorf("adjust stock: %w", err)
		}
		res.Product = p

		return s.audit.RecordChange(ctx, "product", p.ID, domain.AuditAdjust, map[string]any{
			"action":   adj.Action(),
			"quantity": adj.Amount(),
			"stock":    map[string]any{"old": res.Previous, "new": p.Stock},
		})
	})
	if err != nil {
		return AdjustResult{}, err
	}

	logger.Info(ctx, "stock adjusted",
		"product_id", productID,
		"action", adj.Action(),
		"quantity", adj.Amount(),
		"previous", res.Previous,
		"stock", res.Product.Stock,
	)
	return res, nil
}
