package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"nawaem/backend/internal/domain"
	"nawaem/backend/internal/store"
	"nawaem/backend/internal/xid"
)

type Store struct {
	mu              sync.RWMutex
	variants        map[int64]domain.Variant
	customers       map[int64]domain.Customer
	sales           map[int64]domain.SaleRecord
	expenses        map[int64]domain.Expense
	auditLogs       []domain.AuditLog
	usersByUsername map[string]domain.UserAccount
	nextVariantID   int64
	nextCustomerID  int64
	nextSaleID      int64
	nextExpenseID   int64
}

// devStaff are the accounts the demo store starts with. Passwords come from
// NAWAEM_SEED_ADMIN_PASSWORD and NAWAEM_SEED_CASHIER_PASSWORD when set.
var devStaff = []struct {
	username string
	role     string
	envKey   string
	fallback string
}{
	{"admin", domain.RoleAdmin, "NAWAEM_SEED_ADMIN_PASSWORD", "admin123"},
	{"cashier", domain.RoleCashier, "NAWAEM_SEED_CASHIER_PASSWORD", "cashier123"},
}

func seedStaff() map[string]domain.UserAccount {
	accounts := make(map[string]domain.UserAccount, len(devStaff))
	for _, staff := range devStaff {
		password, ok := os.LookupEnv(staff.envKey)
		if !ok || password == "" {
			log.Printf("[memory-store] WARN: %s unset, %s uses the demo password", staff.envKey, staff.username)
			password = staff.fallback
		}
		// Demo accounts only, so MinCost.
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		if err != nil {
			panic(fmt.Sprintf("memory store: hash %s password: %v", staff.username, err))
		}
		accounts[staff.username] = domain.UserAccount{
			Username:  staff.username,
			Password:  string(hash),
			Role:      staff.role,
			Active:    true,
			CreatedAt: time.Now().UTC(),
		}
	}
	return accounts
}

// New returns an empty catalog with the dev user accounts.
func New() *Store {
	return &Store{
		variants:        make(map[int64]domain.Variant),
		customers:       make(map[int64]domain.Customer),
		sales:           make(map[int64]domain.SaleRecord),
		expenses:        make(map[int64]domain.Expense),
		auditLogs:       make([]domain.AuditLog, 0, 128),
		usersByUsername: seedStaff(),
	}
}

func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()
	seed := []struct {
		name, color, size string
		cost, price       int64
		stock             int
	}{
		{"Abaya Classic", "Black", "M", 18000, 35000, 12},
		{"Abaya Classic", "Black", "L", 18000, 35000, 9},
		{"Abaya Classic", "Navy", "M", 18000, 35000, 6},
		{"Summer Dress", "Red", "S", 9000, 20000, 10},
		{"Summer Dress", "Red", "M", 9000, 20000, 8},
		{"Summer Dress", "Beige", "M", 9000, 20000, 5},
		{"Silk Scarf", "Rose", "", 4000, 10000, 25},
		{"Silk Scarf", "Olive", "", 4000, 10000, 20},
		{"Linen Blouse", "White", "S", 7500, 16000, 7},
		{"Linen Blouse", "White", "M", 7500, 16000, 4},
	}
	for _, item := range seed {
		s.nextVariantID++
		s.variants[s.nextVariantID] = domain.Variant{
			ID:        s.nextVariantID,
			Name:      item.name,
			Color:     item.color,
			Size:      item.size,
			Cost:      decimal.NewFromInt(item.cost),
			Price:     decimal.NewFromInt(item.price),
			Stock:     item.stock,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	return s
}

func (s *Store) ListVariants(_ context.Context, filter domain.VariantFilter) ([]domain.Variant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := strings.ToLower(strings.TrimSpace(filter.Query))
	variants := make([]domain.Variant, 0, len(s.variants))
	for _, v := range s.variants {
		if filter.LowStock && v.Stock > filter.Threshold {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(v.Name+" "+v.Color+" "+v.Size), query) {
			continue
		}
		variants = append(variants, v)
	}

	slices.SortFunc(variants, func(a, b domain.Variant) int {
		if a.Name != b.Name {
			return strings.Compare(a.Name, b.Name)
		}
		if a.Color != b.Color {
			return strings.Compare(a.Color, b.Color)
		}
		if a.Size != b.Size {
			return strings.Compare(a.Size, b.Size)
		}
		return cmpInt64(a.ID, b.ID)
	})
	return variants, nil
}

func (s *Store) GetVariant(_ context.Context, id int64) (*domain.Variant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.variants[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &v, nil
}

func (s *Store) CreateVariant(_ context.Context, variant domain.Variant) (*domain.Variant, error) {
	if err := validateVariant(variant); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	s.nextVariantID++
	variant.ID = s.nextVariantID
	variant.CreatedAt = now
	variant.UpdatedAt = now
	s.variants[variant.ID] = variant
	return &variant, nil
}

func (s *Store) UpdateVariant(_ context.Context, id int64, patch domain.VariantUpdateRequest) (*domain.VariantChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.variants[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	updated := patch.Apply(existing)
	if err := validateVariant(updated); err != nil {
		return nil, err
	}
	updated.UpdatedAt = time.Now().UTC()
	s.variants[id] = updated
	return &domain.VariantChange{Before: existing, After: updated}, nil
}

func (s *Store) DeleteVariant(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.variants[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.variants, id)
	for saleID, sale := range s.sales {
		if sale.VariantID == id {
			sale.VariantID = 0
			s.sales[saleID] = sale
		}
	}
	return nil
}

func (s *Store) RestockVariant(_ context.Context, id int64, qty int) (*domain.Variant, error) {
	if qty < 1 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.variants[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	v.Stock += qty
	v.UpdatedAt = time.Now().UTC()
	s.variants[id] = v
	return &v, nil
}

func (s *Store) ListCustomers(_ context.Context, query string) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query = strings.ToLower(strings.TrimSpace(query))
	customers := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		if query != "" && !strings.Contains(strings.ToLower(c.Name+" "+c.Phone+" "+c.Handle), query) {
			continue
		}
		customers = append(customers, c)
	}
	slices.SortFunc(customers, func(a, b domain.Customer) int {
		if a.Name != b.Name {
			return strings.Compare(a.Name, b.Name)
		}
		return cmpInt64(a.ID, b.ID)
	})
	return customers, nil
}

func (s *Store) GetCustomer(_ context.Context, id int64) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	if strings.TrimSpace(customer.Name) == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	created := s.insertCustomerLocked(customer)
	return &created, nil
}

func (s *Store) UpdateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	if strings.TrimSpace(customer.Name) == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.customers[customer.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	customer.CreatedAt = existing.CreatedAt
	s.customers[customer.ID] = customer
	return &customer, nil
}

func (s *Store) CommitSale(_ context.Context, commit domain.SaleCommit) (*domain.CommittedSale, error) {
	lines, err := store.MergeSaleLines(commit.Lines)
	if err != nil {
		return nil, err
	}
	if commit.InvoiceID == "" {
		return nil, store.ErrInvalidInput
	}
	if commit.SoldAt.IsZero() {
		commit.SoldAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Every check happens before the first write so a short line leaves the
	// store untouched.
	for _, line := range lines {
		v, ok := s.variants[line.VariantID]
		if !ok {
			return nil, &store.InsufficientStockError{VariantID: line.VariantID, Requested: line.Qty}
		}
		if v.Stock < line.Qty {
			return nil, &store.InsufficientStockError{
				VariantID: v.ID,
				Label:     v.Label(),
				Requested: line.Qty,
				Available: v.Stock,
			}
		}
	}

	customer, created, err := s.resolveCustomerLocked(commit.Customer)
	if err != nil {
		return nil, err
	}

	result := &domain.CommittedSale{
		InvoiceID:       commit.InvoiceID,
		Customer:        customer,
		CustomerCreated: created,
		Records:         make([]domain.SaleRecord, 0, len(lines)),
	}
	for _, line := range lines {
		v := s.variants[line.VariantID]
		v.Stock -= line.Qty
		v.UpdatedAt = commit.SoldAt
		s.variants[v.ID] = v

		s.nextSaleID++
		record := domain.SaleRecord{
			ID:           s.nextSaleID,
			CustomerID:   customer.ID,
			CustomerName: customer.Name,
			VariantID:    v.ID,
			ProductName:  v.Name,
			Color:        v.Color,
			Size:         v.Size,
			Qty:          line.Qty,
			UnitPrice:    v.Price,
			UnitCost:     v.Cost,
			Total:        domain.LineTotal(v.Price, line.Qty),
			Profit:       domain.LineProfit(v.Price, v.Cost, line.Qty),
			SoldAt:       commit.SoldAt,
			InvoiceID:    commit.InvoiceID,
		}
		s.sales[record.ID] = record
		result.Records = append(result.Records, record)
	}
	return result, nil
}

func (s *Store) resolveCustomerLocked(ref domain.CustomerRef) (domain.Customer, bool, error) {
	if ref.ID > 0 {
		c, ok := s.customers[ref.ID]
		if !ok {
			return domain.Customer{}, false, fmt.Errorf("%w: customer %d", store.ErrNotFound, ref.ID)
		}
		return c, false, nil
	}

	if phone := store.NormalizePhone(ref.Phone); phone != "" {
		for _, c := range s.sortedCustomersLocked() {
			if store.NormalizePhone(c.Phone) == phone {
				return c, false, nil
			}
		}
	}
	name := store.NormalizeName(ref.Name)
	if name == "" {
		return domain.Customer{}, false, fmt.Errorf("%w: customer name is required", store.ErrInvalidInput)
	}
	for _, c := range s.sortedCustomersLocked() {
		if store.NormalizeName(c.Name) == name {
			return c, false, nil
		}
	}

	created := s.insertCustomerLocked(domain.Customer{
		Name:    strings.TrimSpace(ref.Name),
		Phone:   strings.TrimSpace(ref.Phone),
		Address: strings.TrimSpace(ref.Address),
		Handle:  strings.TrimSpace(ref.Handle),
	})
	return created, true, nil
}

func (s *Store) sortedCustomersLocked() []domain.Customer {
	customers := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		customers = append(customers, c)
	}
	slices.SortFunc(customers, func(a, b domain.Customer) int { return cmpInt64(a.ID, b.ID) })
	return customers
}

func (s *Store) insertCustomerLocked(customer domain.Customer) domain.Customer {
	s.nextCustomerID++
	customer.ID = s.nextCustomerID
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}
	s.customers[customer.ID] = customer
	return customer
}

func (s *Store) ListSales(_ context.Context, filter domain.SaleFilter) ([]domain.SaleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.SaleRecord, 0, 64)
	for _, sale := range s.sales {
		if filter.From != nil && sale.SoldAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !sale.SoldAt.Before(*filter.To) {
			continue
		}
		if filter.InvoiceID != "" && sale.InvoiceID != filter.InvoiceID {
			continue
		}
		if filter.CustomerID > 0 && sale.CustomerID != filter.CustomerID {
			continue
		}
		result = append(result, s.withCustomerNameLocked(sale))
	}

	slices.SortFunc(result, func(a, b domain.SaleRecord) int {
		if a.SoldAt.Equal(b.SoldAt) {
			return cmpInt64(b.ID, a.ID)
		}
		if a.SoldAt.After(b.SoldAt) {
			return -1
		}
		return 1
	})
	if limit := store.SalesLimit(filter.Limit); len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) GetSale(_ context.Context, id int64) (*domain.SaleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.sales[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	sale = s.withCustomerNameLocked(sale)
	return &sale, nil
}

func (s *Store) UpdateSaleQuantity(_ context.Context, id int64, qty int, total *decimal.Decimal) (*domain.SaleRecord, error) {
	if qty < 1 {
		return nil, store.ErrInvalidInput
	}
	if total != nil && total.IsNegative() {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.sales[id]
	if !ok {
		return nil, store.ErrNotFound
	}

	taken := qty - sale.Qty
	if v, ok := s.variants[sale.VariantID]; ok && sale.VariantID != 0 && taken != 0 {
		if v.Stock-taken < 0 {
			return nil, &store.InsufficientStockError{
				VariantID: v.ID,
				Label:     v.Label(),
				Requested: taken,
				Available: v.Stock,
			}
		}
		v.Stock -= taken
		v.UpdatedAt = time.Now().UTC()
		s.variants[v.ID] = v
	}

	sale.Qty = qty
	sale.Total = domain.LineTotal(sale.UnitPrice, qty)
	if total != nil {
		sale.Total = *total
	}
	sale.Profit = domain.ProfitForTotal(sale.Total, sale.UnitCost, qty)
	s.sales[id] = sale

	sale = s.withCustomerNameLocked(sale)
	return &sale, nil
}

func (s *Store) DeleteSale(_ context.Context, id int64) (*domain.SaleRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.sales[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if v, ok := s.variants[sale.VariantID]; ok && sale.VariantID != 0 {
		v.Stock += sale.Qty
		v.UpdatedAt = time.Now().UTC()
		s.variants[v.ID] = v
	}
	delete(s.sales, id)

	sale = s.withCustomerNameLocked(sale)
	return &sale, nil
}

func (s *Store) withCustomerNameLocked(sale domain.SaleRecord) domain.SaleRecord {
	if c, ok := s.customers[sale.CustomerID]; ok {
		sale.CustomerName = c.Name
	}
	return sale
}

func (s *Store) CreateExpense(_ context.Context, expense domain.Expense) (*domain.Expense, error) {
	if !expense.Amount.IsPositive() || strings.TrimSpace(expense.Reason) == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextExpenseID++
	expense.ID = s.nextExpenseID
	if expense.SpentAt.IsZero() {
		expense.SpentAt = time.Now().UTC()
	}
	s.expenses[expense.ID] = expense
	return &expense, nil
}

func (s *Store) ListExpenses(_ context.Context, from time.Time, to time.Time) ([]domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Expense, 0, 32)
	for _, e := range s.expenses {
		if e.SpentAt.Before(from) || !e.SpentAt.Before(to) {
			continue
		}
		result = append(result, e)
	}
	slices.SortFunc(result, func(a, b domain.Expense) int {
		if a.SpentAt.Equal(b.SpentAt) {
			return cmpInt64(b.ID, a.ID)
		}
		if a.SpentAt.After(b.SpentAt) {
			return -1
		}
		return 1
	})
	return result, nil
}

func (s *Store) DeleteExpense(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.expenses[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.expenses, id)
	return nil
}

func (s *Store) SalesSummary(_ context.Context, from time.Time, to time.Time, loc *time.Location, topN int) (domain.SalesSummary, error) {
	if loc == nil {
		loc = time.UTC
	}
	topN = store.TopProducts(topN)

	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := domain.SalesSummary{
		ByDay:       make([]domain.DailyTotal, 0, 8),
		TopProducts: make([]domain.ProductTotal, 0, topN),
	}
	byDay := map[string]*domain.DailyTotal{}
	byProduct := map[string]*domain.ProductTotal{}
	invoices := map[string]struct{}{}

	day := func(at time.Time) *domain.DailyTotal {
		key := at.In(loc).Format("2006-01-02")
		entry := byDay[key]
		if entry == nil {
			entry = &domain.DailyTotal{Date: key}
			byDay[key] = entry
		}
		return entry
	}

	for _, sale := range s.sales {
		if sale.SoldAt.Before(from) || !sale.SoldAt.Before(to) {
			continue
		}
		summary.Lines++
		summary.SalesTotal = summary.SalesTotal.Add(sale.Total)
		summary.ProfitTotal = summary.ProfitTotal.Add(sale.Profit)
		invoices[sale.InvoiceID] = struct{}{}

		d := day(sale.SoldAt)
		d.Total = d.Total.Add(sale.Total)
		d.Profit = d.Profit.Add(sale.Profit)

		p := byProduct[sale.ProductName]
		if p == nil {
			p = &domain.ProductTotal{ProductName: sale.ProductName}
			byProduct[sale.ProductName] = p
		}
		p.Qty += sale.Qty
		p.Total = p.Total.Add(sale.Total)
		p.Profit = p.Profit.Add(sale.Profit)
	}
	summary.Invoices = int64(len(invoices))

	for _, e := range s.expenses {
		if e.SpentAt.Before(from) || !e.SpentAt.Before(to) {
			continue
		}
		summary.ExpenseTotal = summary.ExpenseTotal.Add(e.Amount)
		d := day(e.SpentAt)
		d.Expenses = d.Expenses.Add(e.Amount)
	}

	for _, entry := range byDay {
		summary.ByDay = append(summary.ByDay, *entry)
	}
	slices.SortFunc(summary.ByDay, func(a, b domain.DailyTotal) int {
		return strings.Compare(a.Date, b.Date)
	})

	for _, entry := range byProduct {
		summary.TopProducts = append(summary.TopProducts, *entry)
	}
	slices.SortFunc(summary.TopProducts, func(a, b domain.ProductTotal) int {
		if a.Qty != b.Qty {
			return b.Qty - a.Qty
		}
		return strings.Compare(a.ProductName, b.ProductName)
	})
	if len(summary.TopProducts) > topN {
		summary.TopProducts = summary.TopProducts[:topN]
	}
	return summary, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, 0, 64)
	for _, entry := range s.auditLogs {
		if entry.CreatedAt.Before(from) || !entry.CreatedAt.Before(to) {
			continue
		}
		result = append(result, entry)
	}

	slices.SortFunc(result, func(a, b domain.AuditLog) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return strings.Compare(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrConflict
	}
	user.Username = username
	if user.Role == "" {
		user.Role = domain.RoleCashier
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func validateVariant(v domain.Variant) error {
	if strings.TrimSpace(v.Name) == "" {
		return store.ErrInvalidInput
	}
	if v.Cost.IsNegative() || v.Price.IsNegative() || v.Stock < 0 {
		return store.ErrInvalidInput
	}
	return nil
}

func cmpInt64(a int64, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
