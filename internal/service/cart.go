package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"nawaem/backend/internal/domain"
	"nawaem/backend/internal/session"
	"nawaem/backend/internal/store"
)

func (s *Service) Cart(ctx context.Context) (domain.CartResponse, error) {
	sess, ok := session.FromContext(ctx)
	if !ok {
		return domain.CartResponse{}, ErrNoSession
	}
	current, err := s.sessions.Get(ctx, sess.ID)
	if err != nil {
		return domain.CartResponse{}, err
	}
	return cartResponse(current.Cart), nil
}

// AddToCart adds qty of a variant, merging with an existing line. The combined
// quantity must be covered by current stock; the commit re-checks under lock.
func (s *Service) AddToCart(ctx context.Context, req domain.CartItemRequest) (domain.CartResponse, error) {
	if req.VariantID < 1 || req.Qty < 1 {
		return domain.CartResponse{}, fmt.Errorf("%w: variant and a positive quantity are required", store.ErrInvalidInput)
	}
	variant, err := s.repo.GetVariant(ctx, req.VariantID)
	if err != nil {
		return domain.CartResponse{}, err
	}

	return s.updateCart(ctx, func(cart []domain.CartLine) ([]domain.CartLine, error) {
		idx := findLine(cart, variant.ID)
		qty := req.Qty
		if idx >= 0 {
			qty += cart[idx].Qty
		}
		if qty > variant.Stock {
			return nil, &store.InsufficientStockError{
				VariantID: variant.ID,
				Label:     variant.Label(),
				Requested: qty,
				Available: variant.Stock,
			}
		}

		line := snapshotLine(*variant, qty)
		if idx >= 0 {
			cart[idx] = line
			return cart, nil
		}
		return append(cart, line), nil
	})
}

func (s *Service) SetCartQuantity(ctx context.Context, variantID int64, qty int) (domain.CartResponse, error) {
	if qty < 1 {
		return domain.CartResponse{}, fmt.Errorf("%w: quantity must be positive", store.ErrInvalidInput)
	}
	variant, err := s.repo.GetVariant(ctx, variantID)
	if err != nil {
		return domain.CartResponse{}, err
	}
	if qty > variant.Stock {
		return domain.CartResponse{}, &store.InsufficientStockError{
			VariantID: variant.ID,
			Label:     variant.Label(),
			Requested: qty,
			Available: variant.Stock,
		}
	}

	return s.updateCart(ctx, func(cart []domain.CartLine) ([]domain.CartLine, error) {
		idx := findLine(cart, variantID)
		if idx < 0 {
			return nil, fmt.Errorf("%w: variant %d is not in the cart", store.ErrNotFound, variantID)
		}
		cart[idx] = snapshotLine(*variant, qty)
		return cart, nil
	})
}

func (s *Service) RemoveFromCart(ctx context.Context, variantID int64) (domain.CartResponse, error) {
	return s.updateCart(ctx, func(cart []domain.CartLine) ([]domain.CartLine, error) {
		idx := findLine(cart, variantID)
		if idx < 0 {
			return nil, fmt.Errorf("%w: variant %d is not in the cart", store.ErrNotFound, variantID)
		}
		return append(cart[:idx], cart[idx+1:]...), nil
	})
}

func (s *Service) ClearCart(ctx context.Context) (domain.CartResponse, error) {
	return s.updateCart(ctx, func([]domain.CartLine) ([]domain.CartLine, error) {
		return []domain.CartLine{}, nil
	})
}

func (s *Service) updateCart(ctx context.Context, fn func([]domain.CartLine) ([]domain.CartLine, error)) (domain.CartResponse, error) {
	sess, ok := session.FromContext(ctx)
	if !ok {
		return domain.CartResponse{}, ErrNoSession
	}
	updated, err := s.sessions.Update(ctx, sess.ID, func(current *session.Session) error {
		cart, err := fn(current.Cart)
		if err != nil {
			return err
		}
		current.Cart = cart
		return nil
	})
	if err != nil {
		return domain.CartResponse{}, err
	}
	return cartResponse(updated.Cart), nil
}

func snapshotLine(v domain.Variant, qty int) domain.CartLine {
	return domain.CartLine{
		VariantID: v.ID,
		Name:      v.Name,
		Color:     v.Color,
		Size:      v.Size,
		UnitCost:  v.Cost,
		UnitPrice: v.Price,
		Qty:       qty,
		LineTotal: domain.LineTotal(v.Price, qty),
	}
}

func findLine(cart []domain.CartLine, variantID int64) int {
	for i, line := range cart {
		if line.VariantID == variantID {
			return i
		}
	}
	return -1
}

func cartResponse(cart []domain.CartLine) domain.CartResponse {
	resp := domain.CartResponse{
		Lines: make([]domain.CartLine, 0, len(cart)),
		Total: decimal.Zero,
	}
	for _, line := range cart {
		resp.Lines = append(resp.Lines, line)
		resp.ItemCount += line.Qty
		resp.Total = resp.Total.Add(line.LineTotal)
	}
	return resp
}
