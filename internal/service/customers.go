package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"nawaem/backend/internal/domain"
	"nawaem/backend/internal/store"
)

func (s *Service) ListCustomers(ctx context.Context, query string) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx, strings.TrimSpace(query))
}

func (s *Service) GetCustomer(ctx context.Context, id int64) (domain.Customer, error) {
	c, err := s.repo.GetCustomer(ctx, id)
	if err != nil {
		return domain.Customer{}, err
	}
	return *c, nil
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerRequest) (domain.Customer, error) {
	customer := domain.Customer{
		Name:    strings.TrimSpace(req.Name),
		Phone:   strings.TrimSpace(req.Phone),
		Address: strings.TrimSpace(req.Address),
		Handle:  normalizeHandle(req.Handle),
	}
	if customer.Name == "" {
		return domain.Customer{}, fmt.Errorf("%w: customer name is required", store.ErrInvalidInput)
	}

	created, err := s.repo.CreateCustomer(ctx, customer)
	if err != nil {
		return domain.Customer{}, err
	}
	s.logAudit(ctx, "customer_create", "customer", fmt.Sprint(created.ID), "name="+created.Name)
	return *created, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, id int64, req domain.CustomerUpdateRequest) (domain.Customer, error) {
	existing, err := s.repo.GetCustomer(ctx, id)
	if err != nil {
		return domain.Customer{}, err
	}

	updated := *existing
	if req.Name != nil {
		updated.Name = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		updated.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Address != nil {
		updated.Address = strings.TrimSpace(*req.Address)
	}
	if req.Handle != nil {
		updated.Handle = normalizeHandle(*req.Handle)
	}
	if updated.Name == "" {
		return domain.Customer{}, fmt.Errorf("%w: customer name is required", store.ErrInvalidInput)
	}

	saved, err := s.repo.UpdateCustomer(ctx, updated)
	if err != nil {
		return domain.Customer{}, err
	}
	s.logAudit(ctx, "customer_update", "customer", fmt.Sprint(saved.ID), "name="+saved.Name)
	return *saved, nil
}

func (s *Service) CustomerHistory(ctx context.Context, id int64) (domain.CustomerHistory, error) {
	c, err := s.repo.GetCustomer(ctx, id)
	if err != nil {
		return domain.CustomerHistory{}, err
	}
	sales, err := s.repo.ListSales(ctx, domain.SaleFilter{CustomerID: id, Limit: 500})
	if err != nil {
		return domain.CustomerHistory{}, err
	}

	history := domain.CustomerHistory{
		Customer:    *c,
		Sales:       sales,
		Total:       decimal.Zero,
		Profit:      decimal.Zero,
		MessageLink: MessageLink(*c, s.opts.PhoneCountryCode),
	}
	for _, sale := range sales {
		history.Total = history.Total.Add(sale.Total)
		history.Profit = history.Profit.Add(sale.Profit)
	}
	return history, nil
}

// MessageLink prefers the Instagram handle and falls back to a WhatsApp link
// built from the phone number. Empty when the customer has neither.
func MessageLink(c domain.Customer, countryCode string) string {
	if handle := normalizeHandle(c.Handle); handle != "" {
		return "https://ig.me/m/" + url.PathEscape(handle)
	}
	if digits := InternationalDigits(c.Phone, countryCode); digits != "" {
		return "https://wa.me/" + digits
	}
	return ""
}

// InternationalDigits turns a locally written number into the digits-only
// international form: "0770 123 4567" with code 964 becomes "9647701234567".
func InternationalDigits(phone string, countryCode string) string {
	normalized := store.NormalizePhone(phone)
	if normalized == "" {
		return ""
	}
	countryCode = strings.TrimLeft(strings.TrimSpace(countryCode), "+")

	switch {
	case strings.HasPrefix(normalized, "+"):
		return normalized[1:]
	case strings.HasPrefix(normalized, "00"):
		return normalized[2:]
	case strings.HasPrefix(normalized, "0"):
		return countryCode + normalized[1:]
	case countryCode != "" && strings.HasPrefix(normalized, countryCode):
		return normalized
	}
	return countryCode + normalized
}

func normalizeHandle(handle string) string {
	return strings.TrimPrefix(strings.TrimSpace(handle), "@")
}
