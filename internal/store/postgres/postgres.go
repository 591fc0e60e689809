package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"nawaem/backend/internal/domain"
	"nawaem/backend/internal/store"
	"nawaem/backend/internal/xid"
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(4)
	db.SetMaxOpenConns(16)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

const variantColumns = `id, name, color, size, cost, price, stock, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVariant(row rowScanner) (domain.Variant, error) {
	var v domain.Variant
	err := row.Scan(&v.ID, &v.Name, &v.Color, &v.Size, &v.Cost, &v.Price, &v.Stock, &v.CreatedAt, &v.UpdatedAt)
	v.CreatedAt = v.CreatedAt.UTC()
	v.UpdatedAt = v.UpdatedAt.UTC()
	return v, err
}

func (s *Store) ListVariants(ctx context.Context, filter domain.VariantFilter) ([]domain.Variant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+variantColumns+`
		FROM variants
		WHERE ($1::text = '' OR (name || ' ' || color || ' ' || size) ILIKE '%' || $1::text || '%')
			AND ($2::boolean = false OR stock <= $3)
		ORDER BY name, color, size, id
	`, strings.TrimSpace(filter.Query), filter.LowStock, filter.Threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	variants := make([]domain.Variant, 0, 64)
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return variants, nil
}

func (s *Store) GetVariant(ctx context.Context, id int64) (*domain.Variant, error) {
	v, err := scanVariant(s.db.QueryRowContext(ctx, `SELECT `+variantColumns+` FROM variants WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

func (s *Store) CreateVariant(ctx context.Context, variant domain.Variant) (*domain.Variant, error) {
	if err := validateVariant(variant); err != nil {
		return nil, err
	}

	created, err := scanVariant(s.db.QueryRowContext(ctx, `
		INSERT INTO variants (name, color, size, cost, price, stock, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,now(),now())
		RETURNING `+variantColumns,
		variant.Name, variant.Color, variant.Size, variant.Cost, variant.Price, variant.Stock))
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateVariant locks the row for the read-modify-write, so a sale that
// commits meanwhile either lands first and is seen, or waits.
func (s *Store) UpdateVariant(ctx context.Context, id int64, patch domain.VariantUpdateRequest) (*domain.VariantChange, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := scanVariant(tx.QueryRowContext(ctx, `SELECT `+variantColumns+` FROM variants WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	updated := patch.Apply(existing)
	if err := validateVariant(updated); err != nil {
		return nil, err
	}

	saved, err := scanVariant(tx.QueryRowContext(ctx, `
		UPDATE variants
		SET name = $2, color = $3, size = $4, cost = $5, price = $6, stock = $7, updated_at = now()
		WHERE id = $1
		RETURNING `+variantColumns,
		id, updated.Name, updated.Color, updated.Size, updated.Cost, updated.Price, updated.Stock))
	if err != nil {
		if isCheckViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &domain.VariantChange{Before: existing, After: saved}, nil
}

// DeleteVariant leaves sales rows in place; the foreign key nulls their
// variant_id and the snapshot columns keep the product name.
func (s *Store) DeleteVariant(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM variants WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) RestockVariant(ctx context.Context, id int64, qty int) (*domain.Variant, error) {
	if qty < 1 {
		return nil, store.ErrInvalidInput
	}
	v, err := scanVariant(s.db.QueryRowContext(ctx, `
		UPDATE variants
		SET stock = stock + $2, updated_at = now()
		WHERE id = $1
		RETURNING `+variantColumns, id, qty))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

const customerColumns = `id, name, phone, address, handle, created_at`

func scanCustomer(row rowScanner) (domain.Customer, error) {
	var c domain.Customer
	err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Address, &c.Handle, &c.CreatedAt)
	c.CreatedAt = c.CreatedAt.UTC()
	return c, err
}

func (s *Store) ListCustomers(ctx context.Context, query string) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE ($1::text = '' OR (name || ' ' || phone || ' ' || handle) ILIKE '%' || $1::text || '%')
		ORDER BY name, id
	`, strings.TrimSpace(query))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 64)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *Store) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	c, err := scanCustomer(s.db.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if strings.TrimSpace(customer.Name) == "" {
		return nil, store.ErrInvalidInput
	}
	created, err := insertCustomer(ctx, s.db, customer)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if strings.TrimSpace(customer.Name) == "" {
		return nil, store.ErrInvalidInput
	}
	updated, err := scanCustomer(s.db.QueryRowContext(ctx, `
		UPDATE customers
		SET name = $2, phone = $3, address = $4, handle = $5
		WHERE id = $1
		RETURNING `+customerColumns,
		customer.ID, customer.Name, customer.Phone, customer.Address, customer.Handle))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &updated, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func insertCustomer(ctx context.Context, q queryer, customer domain.Customer) (domain.Customer, error) {
	return scanCustomer(q.QueryRowContext(ctx, `
		INSERT INTO customers (name, phone, address, handle, created_at)
		VALUES ($1,$2,$3,$4,now())
		RETURNING `+customerColumns,
		strings.TrimSpace(customer.Name), strings.TrimSpace(customer.Phone),
		strings.TrimSpace(customer.Address), strings.TrimSpace(customer.Handle)))
}

func (s *Store) CommitSale(ctx context.Context, commit domain.SaleCommit) (*domain.CommittedSale, error) {
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

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	// Lines are sorted by variant id so concurrent checkouts lock rows in the
	// same order.
	locked := make([]domain.Variant, 0, len(lines))
	for _, line := range lines {
		v, err := scanVariant(pgTx.QueryRowContext(ctx, `
			SELECT `+variantColumns+`
			FROM variants
			WHERE id = $1
			FOR UPDATE
		`, line.VariantID))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, &store.InsufficientStockError{VariantID: line.VariantID, Requested: line.Qty}
			}
			return nil, err
		}
		if v.Stock < line.Qty {
			return nil, &store.InsufficientStockError{
				VariantID: v.ID,
				Label:     v.Label(),
				Requested: line.Qty,
				Available: v.Stock,
			}
		}
		locked = append(locked, v)
	}

	customer, created, err := resolveCustomer(ctx, pgTx, commit.Customer)
	if err != nil {
		return nil, err
	}

	result := &domain.CommittedSale{
		InvoiceID:       commit.InvoiceID,
		Customer:        customer,
		CustomerCreated: created,
		Records:         make([]domain.SaleRecord, 0, len(lines)),
	}
	for i, line := range lines {
		v := locked[i]
		_, err := pgTx.ExecContext(ctx, `
			UPDATE variants
			SET stock = stock - $1, updated_at = $2
			WHERE id = $3
		`, line.Qty, commit.SoldAt, v.ID)
		if err != nil {
			if isCheckViolation(err) {
				return nil, &store.InsufficientStockError{VariantID: v.ID, Label: v.Label(), Requested: line.Qty, Available: v.Stock}
			}
			return nil, err
		}

		record := domain.SaleRecord{
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
			SoldAt:       commit.SoldAt.UTC(),
			InvoiceID:    commit.InvoiceID,
		}
		err = pgTx.QueryRowContext(ctx, `
			INSERT INTO sales (
				customer_id, variant_id, product_name, color, size, qty,
				unit_price, unit_cost, total, profit, sold_at, invoice_id
			)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
			RETURNING id
		`, record.CustomerID, record.VariantID, record.ProductName, record.Color, record.Size, record.Qty,
			record.UnitPrice, record.UnitCost, record.Total, record.Profit, record.SoldAt, record.InvoiceID).Scan(&record.ID)
		if err != nil {
			return nil, err
		}
		result.Records = append(result.Records, record)
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}
	return result, nil
}

func resolveCustomer(ctx context.Context, tx *sql.Tx, ref domain.CustomerRef) (domain.Customer, bool, error) {
	if ref.ID > 0 {
		c, err := scanCustomer(tx.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, ref.ID))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.Customer{}, false, fmt.Errorf("%w: customer %d", store.ErrNotFound, ref.ID)
			}
			return domain.Customer{}, false, err
		}
		return c, false, nil
	}

	if phone := store.NormalizePhone(ref.Phone); phone != "" {
		c, err := scanCustomer(tx.QueryRowContext(ctx, `
			SELECT `+customerColumns+`
			FROM customers
			WHERE regexp_replace(phone, '[^0-9+]', '', 'g') = $1
			ORDER BY id
			LIMIT 1
		`, phone))
		if err == nil {
			return c, false, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return domain.Customer{}, false, err
		}
	}

	name := store.NormalizeName(ref.Name)
	if name == "" {
		return domain.Customer{}, false, fmt.Errorf("%w: customer name is required", store.ErrInvalidInput)
	}
	c, err := scanCustomer(tx.QueryRowContext(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE lower(regexp_replace(btrim(name), '\s+', ' ', 'g')) = $1
		ORDER BY id
		LIMIT 1
	`, name))
	if err == nil {
		return c, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.Customer{}, false, err
	}

	created, err := insertCustomer(ctx, tx, domain.Customer{
		Name:    ref.Name,
		Phone:   ref.Phone,
		Address: ref.Address,
		Handle:  ref.Handle,
	})
	if err != nil {
		return domain.Customer{}, false, err
	}
	return created, true, nil
}

const saleSelect = `
	SELECT s.id, s.customer_id, COALESCE(c.name, ''), COALESCE(s.variant_id, 0), s.product_name, s.color, s.size,
		s.qty, s.unit_price, s.unit_cost, s.total, s.profit, s.sold_at, s.invoice_id
	FROM sales s
	LEFT JOIN customers c ON c.id = s.customer_id
`

func scanSale(row rowScanner) (domain.SaleRecord, error) {
	var r domain.SaleRecord
	err := row.Scan(&r.ID, &r.CustomerID, &r.CustomerName, &r.VariantID, &r.ProductName, &r.Color, &r.Size,
		&r.Qty, &r.UnitPrice, &r.UnitCost, &r.Total, &r.Profit, &r.SoldAt, &r.InvoiceID)
	r.SoldAt = r.SoldAt.UTC()
	return r, err
}

func (s *Store) ListSales(ctx context.Context, filter domain.SaleFilter) ([]domain.SaleRecord, error) {
	limit := store.SalesLimit(filter.Limit)

	rows, err := s.db.QueryContext(ctx, saleSelect+`
		WHERE ($1::timestamptz IS NULL OR s.sold_at >= $1)
			AND ($2::timestamptz IS NULL OR s.sold_at < $2)
			AND ($3::text = '' OR s.invoice_id = $3)
			AND ($4::bigint = 0 OR s.customer_id = $4)
		ORDER BY s.sold_at DESC, s.id DESC
		LIMIT $5
	`, nullTime(filter.From), nullTime(filter.To), filter.InvoiceID, filter.CustomerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.SaleRecord, 0, 64)
	for rows.Next() {
		r, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) GetSale(ctx context.Context, id int64) (*domain.SaleRecord, error) {
	r, err := scanSale(s.db.QueryRowContext(ctx, saleSelect+` WHERE s.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

type lockedSale struct {
	variantID sql.NullInt64
	qty       int
	unitPrice decimal.Decimal
	unitCost  decimal.Decimal
}

func lockSale(ctx context.Context, tx *sql.Tx, id int64) (lockedSale, error) {
	var ls lockedSale
	err := tx.QueryRowContext(ctx, `
		SELECT variant_id, qty, unit_price, unit_cost
		FROM sales
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&ls.variantID, &ls.qty, &ls.unitPrice, &ls.unitCost)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ls, store.ErrNotFound
		}
		return ls, err
	}
	return ls, nil
}

func (s *Store) UpdateSaleQuantity(ctx context.Context, id int64, qty int, total *decimal.Decimal) (*domain.SaleRecord, error) {
	if qty < 1 {
		return nil, store.ErrInvalidInput
	}
	if total != nil && total.IsNegative() {
		return nil, store.ErrInvalidInput
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	sale, err := lockSale(ctx, pgTx, id)
	if err != nil {
		return nil, err
	}

	taken := qty - sale.qty
	if sale.variantID.Valid && taken != 0 {
		v, err := scanVariant(pgTx.QueryRowContext(ctx, `
			SELECT `+variantColumns+`
			FROM variants
			WHERE id = $1
			FOR UPDATE
		`, sale.variantID.Int64))
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// Variant removed between the sale lock and this read; only the ledger row changes.
		case err != nil:
			return nil, err
		default:
			if v.Stock-taken < 0 {
				return nil, &store.InsufficientStockError{VariantID: v.ID, Label: v.Label(), Requested: taken, Available: v.Stock}
			}
			if _, err := pgTx.ExecContext(ctx, `
				UPDATE variants
				SET stock = stock - $1, updated_at = now()
				WHERE id = $2
			`, taken, v.ID); err != nil {
				return nil, err
			}
		}
	}

	newTotal := domain.LineTotal(sale.unitPrice, qty)
	if total != nil {
		newTotal = *total
	}
	profit := domain.ProfitForTotal(newTotal, sale.unitCost, qty)
	if _, err := pgTx.ExecContext(ctx, `
		UPDATE sales
		SET qty = $2, total = $3, profit = $4
		WHERE id = $1
	`, id, qty, newTotal, profit); err != nil {
		return nil, err
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}
	return s.GetSale(ctx, id)
}

func (s *Store) DeleteSale(ctx context.Context, id int64) (*domain.SaleRecord, error) {
	existing, err := s.GetSale(ctx, id)
	if err != nil {
		return nil, err
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	sale, err := lockSale(ctx, pgTx, id)
	if err != nil {
		return nil, err
	}
	if sale.variantID.Valid {
		if _, err := pgTx.ExecContext(ctx, `
			UPDATE variants
			SET stock = stock + $1, updated_at = now()
			WHERE id = $2
		`, sale.qty, sale.variantID.Int64); err != nil {
			return nil, err
		}
	}
	if _, err := pgTx.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, id); err != nil {
		return nil, err
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}
	existing.Qty = sale.qty
	return existing, nil
}

func (s *Store) CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error) {
	if !expense.Amount.IsPositive() || strings.TrimSpace(expense.Reason) == "" {
		return nil, store.ErrInvalidInput
	}
	if expense.SpentAt.IsZero() {
		expense.SpentAt = time.Now().UTC()
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO expenses (amount, reason, spent_at)
		VALUES ($1,$2,$3)
		RETURNING id
	`, expense.Amount, strings.TrimSpace(expense.Reason), expense.SpentAt).Scan(&expense.ID)
	if err != nil {
		return nil, err
	}
	return &expense, nil
}

func (s *Store) ListExpenses(ctx context.Context, from time.Time, to time.Time) ([]domain.Expense, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, amount, reason, spent_at
		FROM expenses
		WHERE spent_at >= $1 AND spent_at < $2
		ORDER BY spent_at DESC, id DESC
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := make([]domain.Expense, 0, 32)
	for rows.Next() {
		var e domain.Expense
		if err := rows.Scan(&e.ID, &e.Amount, &e.Reason, &e.SpentAt); err != nil {
			return nil, err
		}
		e.SpentAt = e.SpentAt.UTC()
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return expenses, nil
}

func (s *Store) DeleteExpense(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) SalesSummary(ctx context.Context, from time.Time, to time.Time, loc *time.Location, topN int) (domain.SalesSummary, error) {
	if loc == nil {
		loc = time.UTC
	}
	topN = store.TopProducts(topN)
	summary := domain.SalesSummary{
		ByDay:       make([]domain.DailyTotal, 0, 8),
		TopProducts: make([]domain.ProductTotal, 0, topN),
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)::bigint, COUNT(DISTINCT invoice_id)::bigint,
			COALESCE(SUM(total),0), COALESCE(SUM(profit),0)
		FROM sales
		WHERE sold_at >= $1 AND sold_at < $2
	`, from, to).Scan(&summary.Lines, &summary.Invoices, &summary.SalesTotal, &summary.ProfitTotal)
	if err != nil {
		return summary, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount),0)
		FROM expenses
		WHERE spent_at >= $1 AND spent_at < $2
	`, from, to).Scan(&summary.ExpenseTotal)
	if err != nil {
		return summary, err
	}

	byDay := map[string]*domain.DailyTotal{}
	order := make([]string, 0, 8)
	bucket := func(day string) *domain.DailyTotal {
		entry := byDay[day]
		if entry == nil {
			entry = &domain.DailyTotal{Date: day}
			byDay[day] = entry
			order = append(order, day)
		}
		return entry
	}

	saleRows, err := s.db.QueryContext(ctx, `
		SELECT to_char(sold_at AT TIME ZONE $3, 'YYYY-MM-DD') AS day, SUM(total), SUM(profit)
		FROM sales
		WHERE sold_at >= $1 AND sold_at < $2
		GROUP BY day
	`, from, to, loc.String())
	if err != nil {
		return summary, err
	}
	for saleRows.Next() {
		var day string
		var total, profit decimal.Decimal
		if err := saleRows.Scan(&day, &total, &profit); err != nil {
			_ = saleRows.Close()
			return summary, err
		}
		entry := bucket(day)
		entry.Total = total
		entry.Profit = profit
	}
	if err := saleRows.Err(); err != nil {
		_ = saleRows.Close()
		return summary, err
	}
	_ = saleRows.Close()

	expenseRows, err := s.db.QueryContext(ctx, `
		SELECT to_char(spent_at AT TIME ZONE $3, 'YYYY-MM-DD') AS day, SUM(amount)
		FROM expenses
		WHERE spent_at >= $1 AND spent_at < $2
		GROUP BY day
	`, from, to, loc.String())
	if err != nil {
		return summary, err
	}
	for expenseRows.Next() {
		var day string
		var amount decimal.Decimal
		if err := expenseRows.Scan(&day, &amount); err != nil {
			_ = expenseRows.Close()
			return summary, err
		}
		bucket(day).Expenses = amount
	}
	if err := expenseRows.Err(); err != nil {
		_ = expenseRows.Close()
		return summary, err
	}
	_ = expenseRows.Close()

	for _, day := range order {
		summary.ByDay = append(summary.ByDay, *byDay[day])
	}
	slices.SortFunc(summary.ByDay, func(a, b domain.DailyTotal) int {
		return strings.Compare(a.Date, b.Date)
	})

	productRows, err := s.db.QueryContext(ctx, `
		SELECT product_name, SUM(qty)::bigint, SUM(total), SUM(profit)
		FROM sales
		WHERE sold_at >= $1 AND sold_at < $2
		GROUP BY product_name
		ORDER BY SUM(qty) DESC, product_name
		LIMIT $3
	`, from, to, topN)
	if err != nil {
		return summary, err
	}
	defer productRows.Close()
	for productRows.Next() {
		var p domain.ProductTotal
		if err := productRows.Scan(&p.ProductName, &p.Qty, &p.Total, &p.Profit); err != nil {
			return summary, err
		}
		summary.TopProducts = append(summary.TopProducts, p)
	}
	if err := productRows.Err(); err != nil {
		return summary, err
	}

	return summary, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ActorUsername, &entry.ActorRole, &entry.Action,
			&entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if user.Role == "" {
		user.Role = domain.RoleCashier
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1,$2,$3,true,$4)
	`, username, user.Password, user.Role, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 8)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password = $2 WHERE username = $1`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
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

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23514"
	}
	return false
}

func nullTime(val *time.Time) any {
	if val == nil {
		return nil
	}
	return *val
}
