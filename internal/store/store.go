package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"nawaem/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidInput      = errors.New("invalid input")
	ErrEmptyCart         = fmt.Errorf("%w: cart is empty", ErrInvalidInput)
	ErrConflict          = errors.New("already exists")
)

// InsufficientStockError names the item that could not be covered by stock.
type InsufficientStockError struct {
	VariantID int64
	Label     string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	label := e.Label
	if label == "" {
		label = fmt.Sprintf("variant %d", e.VariantID)
	}
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", label, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// Defaults applied by every Repository when a caller passes zero.
const (
	DefaultSalesLimit  = 1000
	DefaultTopProducts = 10
)

// SalesLimit returns n, or DefaultSalesLimit when n is not positive.
func SalesLimit(n int) int {
	if n < 1 {
		return DefaultSalesLimit
	}
	return n
}

// TopProducts returns n, or DefaultTopProducts when n is not positive.
func TopProducts(n int) int {
	if n < 1 {
		return DefaultTopProducts
	}
	return n
}

type Repository interface {
	ListVariants(ctx context.Context, filter domain.VariantFilter) ([]domain.Variant, error)
	GetVariant(ctx context.Context, id int64) (*domain.Variant, error)
	CreateVariant(ctx context.Context, variant domain.Variant) (*domain.Variant, error)
	// UpdateVariant applies patch to the current row while holding its lock,
	// so fields the patch leaves nil (stock in particular) are never written
	// from a stale read.
	UpdateVariant(ctx context.Context, id int64, patch domain.VariantUpdateRequest) (*domain.VariantChange, error)
	DeleteVariant(ctx context.Context, id int64) error
	RestockVariant(ctx context.Context, id int64, qty int) (*domain.Variant, error)

	ListCustomers(ctx context.Context, query string) ([]domain.Customer, error)
	GetCustomer(ctx context.Context, id int64) (*domain.Customer, error)
	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)

	// CommitSale resolves the customer, locks and decrements stock for every
	// line and appends the ledger rows as one unit. Nothing is written when any
	// line is short.
	CommitSale(ctx context.Context, commit domain.SaleCommit) (*domain.CommittedSale, error)
	ListSales(ctx context.Context, filter domain.SaleFilter) ([]domain.SaleRecord, error)
	GetSale(ctx context.Context, id int64) (*domain.SaleRecord, error)
	UpdateSaleQuantity(ctx context.Context, id int64, qty int, total *decimal.Decimal) (*domain.SaleRecord, error)
	DeleteSale(ctx context.Context, id int64) (*domain.SaleRecord, error)

	CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error)
	ListExpenses(ctx context.Context, from time.Time, to time.Time) ([]domain.Expense, error)
	DeleteExpense(ctx context.Context, id int64) error

	// SalesSummary aggregates [from, to). Day buckets use loc.
	SalesSummary(ctx context.Context, from time.Time, to time.Time, loc *time.Location, topN int) (domain.SalesSummary, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
