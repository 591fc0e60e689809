package service

import (
	"context"
	"fmt"
	"strings"

	"nawaem/backend/internal/domain"
	"nawaem/backend/internal/store"
)

func (s *Service) ListVariants(ctx context.Context, query string, lowStock bool) ([]domain.Variant, error) {
	return s.repo.ListVariants(ctx, domain.VariantFilter{
		Query:     strings.TrimSpace(query),
		LowStock:  lowStock,
		Threshold: s.opts.LowStockThreshold,
	})
}

func (s *Service) GetVariant(ctx context.Context, id int64) (domain.Variant, error) {
	v, err := s.repo.GetVariant(ctx, id)
	if err != nil {
		return domain.Variant{}, err
	}
	return *v, nil
}

func (s *Service) CreateVariant(ctx context.Context, req domain.VariantCreateRequest) (domain.Variant, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Variant{}, err
	}

	variant := domain.Variant{
		Name:  strings.TrimSpace(req.Name),
		Color: strings.TrimSpace(req.Color),
		Size:  strings.TrimSpace(req.Size),
		Cost:  req.Cost,
		Price: req.Price,
		Stock: req.Stock,
	}
	if err := validateVariant(variant); err != nil {
		return domain.Variant{}, err
	}

	created, err := s.repo.CreateVariant(ctx, variant)
	if err != nil {
		return domain.Variant{}, err
	}

	s.logAudit(ctx, "variant_create", "variant", fmt.Sprint(created.ID),
		fmt.Sprintf("label=%s,price=%s,cost=%s,stock=%d", created.Label(), created.Price, created.Cost, created.Stock))
	return *created, nil
}

func (s *Service) UpdateVariant(ctx context.Context, id int64, req domain.VariantUpdateRequest) (domain.Variant, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Variant{}, err
	}

	patch := domain.VariantUpdateRequest{Cost: req.Cost, Price: req.Price, Stock: req.Stock}
	patch.Name = trimmed(req.Name)
	patch.Color = trimmed(req.Color)
	patch.Size = trimmed(req.Size)
	switch {
	case patch.Name != nil && *patch.Name == "":
		return domain.Variant{}, fmt.Errorf("%w: name is required", store.ErrInvalidInput)
	case patch.Cost != nil && patch.Cost.IsNegative():
		return domain.Variant{}, fmt.Errorf("%w: cost must not be negative", store.ErrInvalidInput)
	case patch.Price != nil && patch.Price.IsNegative():
		return domain.Variant{}, fmt.Errorf("%w: price must not be negative", store.ErrInvalidInput)
	case patch.Stock != nil && *patch.Stock < 0:
		return domain.Variant{}, fmt.Errorf("%w: stock must not be negative", store.ErrInvalidInput)
	}

	change, err := s.repo.UpdateVariant(ctx, id, patch)
	if err != nil {
		return domain.Variant{}, err
	}

	before, after := change.Before, change.After
	s.logAudit(ctx, "variant_update", "variant", fmt.Sprint(after.ID),
		fmt.Sprintf("price=%s->%s,cost=%s->%s,stock=%d->%d", before.Price, after.Price, before.Cost, after.Cost, before.Stock, after.Stock))
	return after, nil
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}

func (s *Service) DeleteVariant(ctx context.Context, id int64) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	existing, err := s.repo.GetVariant(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteVariant(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, "variant_delete", "variant", fmt.Sprint(id), "label="+existing.Label())
	return nil
}

func (s *Service) RestockVariant(ctx context.Context, id int64, req domain.RestockRequest) (domain.Variant, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Variant{}, err
	}
	if req.Qty < 1 {
		return domain.Variant{}, fmt.Errorf("%w: restock quantity must be positive", store.ErrInvalidInput)
	}

	v, err := s.repo.RestockVariant(ctx, id, req.Qty)
	if err != nil {
		return domain.Variant{}, err
	}
	s.logAudit(ctx, "variant_restock", "variant", fmt.Sprint(id), fmt.Sprintf("qty=%d,stock=%d", req.Qty, v.Stock))
	return *v, nil
}

func validateVariant(v domain.Variant) error {
	switch {
	case v.Name == "":
		return fmt.Errorf("%w: name is required", store.ErrInvalidInput)
	case v.Cost.IsNegative():
		return fmt.Errorf("%w: cost must not be negative", store.ErrInvalidInput)
	case v.Price.IsNegative():
		return fmt.Errorf("%w: price must not be negative", store.ErrInvalidInput)
	case v.Stock < 0:
		return fmt.Errorf("%w: stock must not be negative", store.ErrInvalidInput)
	}
	return nil
}
