package service

import (
	"context"
	"fmt"
	"strings"

	"nawaem/backend/internal/domain"
	"nawaem/backend/internal/store"
)

func (s *Service) ListSales(ctx context.Context, q domain.SalesQuery) ([]domain.SaleRecord, error) {
	filter := domain.SaleFilter{
		InvoiceID:  strings.TrimSpace(q.InvoiceID),
		CustomerID: q.CustomerID,
		Limit:      q.Limit,
	}
	if filter.Limit < 1 || filter.Limit > 1000 {
		filter.Limit = 200
	}
	// An invoice lookup spans all time unless a window was given explicitly.
	if q.Window != "" || (filter.InvoiceID == "" && filter.CustomerID == 0) {
		w, err := s.ResolveWindow(q.WindowQuery)
		if err != nil {
			return nil, err
		}
		filter.From = &w.From
		filter.To = &w.To
	}
	return s.repo.ListSales(ctx, filter)
}

func (s *Service) GetSale(ctx context.Context, id int64) (domain.SaleRecord, error) {
	rec, err := s.repo.GetSale(ctx, id)
	if err != nil {
		return domain.SaleRecord{}, err
	}
	return *rec, nil
}

// CorrectSale changes the quantity (and optionally the charged total) of a
// committed line, moving the difference back into or out of stock.
func (s *Service) CorrectSale(ctx context.Context, id int64, req domain.SaleCorrectionRequest) (domain.SaleRecord, error) {
	if err := s.requireManager(ctx, req.ManagerPIN); err != nil {
		return domain.SaleRecord{}, err
	}
	if req.Qty < 1 {
		return domain.SaleRecord{}, fmt.Errorf("%w: quantity must be positive", store.ErrInvalidInput)
	}
	if req.Total != nil && req.Total.IsNegative() {
		return domain.SaleRecord{}, fmt.Errorf("%w: total must not be negative", store.ErrInvalidInput)
	}

	before, err := s.repo.GetSale(ctx, id)
	if err != nil {
		return domain.SaleRecord{}, err
	}
	updated, err := s.repo.UpdateSaleQuantity(ctx, id, req.Qty, req.Total)
	if err != nil {
		return domain.SaleRecord{}, err
	}

	s.logAudit(ctx, "sale_correct", "sale", fmt.Sprint(id),
		fmt.Sprintf("invoice=%s,qty=%d->%d,total=%s->%s", updated.InvoiceID, before.Qty, updated.Qty, before.Total, updated.Total))
	return *updated, nil
}

func (s *Service) DeleteSale(ctx context.Context, id int64, req domain.SaleDeleteRequest) (domain.SaleRecord, error) {
	if err := s.requireManager(ctx, req.ManagerPIN); err != nil {
		return domain.SaleRecord{}, err
	}

	deleted, err := s.repo.DeleteSale(ctx, id)
	if err != nil {
		return domain.SaleRecord{}, err
	}

	s.logAudit(ctx, "sale_delete", "sale", fmt.Sprint(id),
		fmt.Sprintf("invoice=%s,product=%s,qty=%d,total=%s", deleted.InvoiceID, deleted.ProductName, deleted.Qty, deleted.Total))
	return *deleted, nil
}
