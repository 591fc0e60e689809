package service

import (
	"context"
	"fmt"
	"strings"

	"nawaem/backend/internal/domain"
	"nawaem/backend/internal/store"
)

func (s *Service) CreateExpense(ctx context.Context, req domain.ExpenseCreateRequest) (domain.Expense, error) {
	expense := domain.Expense{
		Amount:  req.Amount,
		Reason:  strings.TrimSpace(req.Reason),
		SpentAt: s.now(),
	}
	if req.SpentAt != nil && !req.SpentAt.IsZero() {
		expense.SpentAt = req.SpentAt.UTC()
	}
	if !expense.Amount.IsPositive() {
		return domain.Expense{}, fmt.Errorf("%w: amount must be positive", store.ErrInvalidInput)
	}
	if expense.Reason == "" {
		return domain.Expense{}, fmt.Errorf("%w: reason is required", store.ErrInvalidInput)
	}

	created, err := s.repo.CreateExpense(ctx, expense)
	if err != nil {
		return domain.Expense{}, err
	}
	s.logAudit(ctx, "expense_create", "expense", fmt.Sprint(created.ID), fmt.Sprintf("amount=%s,reason=%s", created.Amount, created.Reason))
	return *created, nil
}

func (s *Service) ListExpenses(ctx context.Context, q domain.WindowQuery) ([]domain.Expense, error) {
	w, err := s.ResolveWindow(q)
	if err != nil {
		return nil, err
	}
	return s.repo.ListExpenses(ctx, w.From, w.To)
}

func (s *Service) DeleteExpense(ctx context.Context, id int64) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if err := s.repo.DeleteExpense(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, "expense_delete", "expense", fmt.Sprint(id), "")
	return nil
}
