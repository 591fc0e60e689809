package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"nawaem/backend/internal/domain"
	"nawaem/backend/internal/store"
)

const (
	WindowToday = "today"
	WindowWeek  = "week"
	WindowDays  = "days"
	WindowRange = "range"

	maxWindowDays = 366
	dateLayout    = "2006-01-02"
)

// Window is a resolved half-open interval [From, To) aligned to store-local
// midnights.
type Window struct {
	Name string
	From time.Time
	To   time.Time
}

func (s *Service) ResolveWindow(q domain.WindowQuery) (Window, error) {
	loc := s.opts.Location
	now := s.now().In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	tomorrow := today.AddDate(0, 0, 1)

	name := strings.ToLower(strings.TrimSpace(q.Window))
	switch name {
	case "", WindowToday:
		return Window{Name: WindowToday, From: today, To: tomorrow}, nil
	case WindowWeek:
		return Window{Name: WindowWeek, From: today.AddDate(0, 0, -6), To: tomorrow}, nil
	case WindowDays:
		if q.Days < 1 || q.Days > maxWindowDays {
			return Window{}, fmt.Errorf("%w: days must be between 1 and %d", store.ErrInvalidInput, maxWindowDays)
		}
		return Window{Name: WindowDays, From: today.AddDate(0, 0, -(q.Days - 1)), To: tomorrow}, nil
	case WindowRange:
		from, err := time.ParseInLocation(dateLayout, strings.TrimSpace(q.From), loc)
		if err != nil {
			return Window{}, fmt.Errorf("%w: from must be YYYY-MM-DD", store.ErrInvalidInput)
		}
		to, err := time.ParseInLocation(dateLayout, strings.TrimSpace(q.To), loc)
		if err != nil {
			return Window{}, fmt.Errorf("%w: to must be YYYY-MM-DD", store.ErrInvalidInput)
		}
		if to.Before(from) {
			return Window{}, fmt.Errorf("%w: to is before from", store.ErrInvalidInput)
		}
		end := to.AddDate(0, 0, 1)
		if end.Sub(from) > maxWindowDays*24*time.Hour+time.Hour {
			return Window{}, fmt.Errorf("%w: range is longer than %d days", store.ErrInvalidInput, maxWindowDays)
		}
		return Window{Name: WindowRange, From: from, To: end}, nil
	}
	return Window{}, fmt.Errorf("%w: unknown window %q", store.ErrInvalidInput, q.Window)
}

// EmptyReport is the zero report for a window, served when aggregation fails.
func EmptyReport(w Window) domain.Report {
	return domain.Report{
		Window:      w.Name,
		From:        w.From.Format(dateLayout),
		To:          w.To.AddDate(0, 0, -1).Format(dateLayout),
		ByDay:       []domain.DailyTotal{},
		TopProducts: []domain.ProductTotal{},
	}
}

func (s *Service) Report(ctx context.Context, q domain.WindowQuery) (domain.Report, Window, error) {
	w, err := s.ResolveWindow(q)
	if err != nil {
		return domain.Report{}, Window{}, err
	}

	summary, err := s.repo.SalesSummary(ctx, w.From, w.To, s.opts.Location, s.opts.TopProducts)
	if err != nil {
		return EmptyReport(w), w, err
	}

	report := EmptyReport(w)
	report.SalesTotal = summary.SalesTotal
	report.ProfitTotal = summary.ProfitTotal
	report.ExpenseTotal = summary.ExpenseTotal
	report.NetProfit = summary.ProfitTotal.Sub(summary.ExpenseTotal)
	report.Lines = summary.Lines
	report.Invoices = summary.Invoices
	if summary.ByDay != nil {
		report.ByDay = summary.ByDay
	}
	if summary.TopProducts != nil {
		report.TopProducts = summary.TopProducts
	}
	return report, w, nil
}
