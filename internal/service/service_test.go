package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"nawaem/backend/internal/domain"
	"nawaem/backend/internal/session"
	"nawaem/backend/internal/store"
	"nawaem/backend/internal/store/memory"
)

type pinStub string

func (p pinStub) ValidateManagerPIN(pin string) bool {
	return pin != "" && pin == string(p)
}

var testNow = time.Date(2026, 10, 19, 11, 30, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *memory.Store, session.Store) {
	t.Helper()
	repo := memory.New()
	sessions := session.NewMemoryStore()
	svc := New(repo, sessions, Options{
		StoreName:         "Nawaem Boutique",
		Location:          time.FixedZone("AST", 3*3600),
		PhoneCountryCode:  "964",
		LowStockThreshold: 2,
		PIN:               pinStub("482916"),
		Now:               func() time.Time { return testNow },
	})
	return svc, repo, sessions
}

func loginContext(t *testing.T, sessions session.Store, role string) context.Context {
	t.Helper()
	sess := session.New(role+"-user", role, time.Hour, time.Now())
	if err := sessions.Save(context.Background(), sess); err != nil {
		t.Fatalf("save session: %v", err)
	}
	ctx := WithActor(context.Background(), domain.Actor{Username: sess.Username, Role: role})
	return session.WithSession(ctx, sess)
}

func createVariant(t *testing.T, svc *Service, ctx context.Context, name string, stock int, price int64, cost int64) domain.Variant {
	t.Helper()
	v, err := svc.CreateVariant(ctx, domain.VariantCreateRequest{
		Name:  name,
		Color: "Red",
		Size:  "M",
		Cost:  decimal.NewFromInt(cost),
		Price: decimal.NewFromInt(price),
		Stock: stock,
	})
	if err != nil {
		t.Fatalf("create variant: %v", err)
	}
	return v
}

func TestCheckoutCommitsCartAndClearsIt(t *testing.T) {
	svc, _, sessions := newTestService(t)
	ctx := loginContext(t, sessions, domain.RoleAdmin)
	a := createVariant(t, svc, ctx, "Dress", 5, 10000, 6000)

	if _, err := svc.AddToCart(ctx, domain.CartItemRequest{VariantID: a.ID, Qty: 2}); err != nil {
		t.Fatalf("add to cart: %v", err)
	}

	invoice, err := svc.Checkout(ctx, domain.CheckoutRequest{Customer: domain.CustomerRef{Name: "Sara", Phone: "0770 123 4567"}})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if !invoice.Total.Equal(decimal.NewFromInt(20000)) || !invoice.Profit.Equal(decimal.NewFromInt(8000)) {
		t.Fatalf("unexpected total/profit %s/%s", invoice.Total, invoice.Profit)
	}
	if !invoice.CustomerCreated || invoice.Customer.Name != "Sara" {
		t.Fatalf("expected new customer Sara, got %+v", invoice.Customer)
	}
	if invoice.InvoiceID != "INV-20261019-1430" {
		t.Fatalf("expected store-local invoice id, got %s", invoice.InvoiceID)
	}
	if !strings.Contains(invoice.Text, "Dress (Red / M) x2 @ 10,000 = 20,000") || !strings.Contains(invoice.Text, "Total: 20,000") {
		t.Fatalf("unexpected invoice text:\n%s", invoice.Text)
	}
	if invoice.MessageLink != "https://wa.me/9647701234567" {
		t.Fatalf("unexpected message link %q", invoice.MessageLink)
	}

	got, _ := svc.GetVariant(ctx, a.ID)
	if got.Stock != 3 {
		t.Fatalf("expected stock 3, got %d", got.Stock)
	}
	cart, err := svc.Cart(ctx)
	if err != nil {
		t.Fatalf("cart: %v", err)
	}
	if len(cart.Lines) != 0 {
		t.Fatalf("expected empty cart after checkout, got %+v", cart.Lines)
	}
	last, err := svc.LastInvoice(ctx)
	if err != nil || last.InvoiceID != invoice.InvoiceID {
		t.Fatalf("expected last invoice %s, got %+v (%v)", invoice.InvoiceID, last, err)
	}
}

func TestCheckoutShortStockKeepsCartAndStock(t *testing.T) {
	svc, _, sessions := newTestService(t)
	ctx := loginContext(t, sessions, domain.RoleAdmin)
	a := createVariant(t, svc, ctx, "Dress", 5, 10000, 6000)
	b := createVariant(t, svc, ctx, "Scarf", 3, 5000, 2000)

	if _, err := svc.AddToCart(ctx, domain.CartItemRequest{VariantID: a.ID, Qty: 2}); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if _, err := svc.AddToCart(ctx, domain.CartItemRequest{VariantID: b.ID, Qty: 3}); err != nil {
		t.Fatalf("add b: %v", err)
	}
	one := 1
	if _, err := svc.UpdateVariant(ctx, b.ID, domain.VariantUpdateRequest{Stock: &one}); err != nil {
		t.Fatalf("lower stock: %v", err)
	}

	_, err := svc.Checkout(ctx, domain.CheckoutRequest{Customer: domain.CustomerRef{Name: "Huda"}})
	var stockErr *store.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if !strings.Contains(stockErr.Error(), "Scarf (Red / M)") {
		t.Fatalf("expected error to name the item, got %q", stockErr.Error())
	}

	gotA, _ := svc.GetVariant(ctx, a.ID)
	gotB, _ := svc.GetVariant(ctx, b.ID)
	if gotA.Stock != 5 || gotB.Stock != 1 {
		t.Fatalf("expected stock unchanged, got a=%d b=%d", gotA.Stock, gotB.Stock)
	}
	cart, _ := svc.Cart(ctx)
	if len(cart.Lines) != 2 {
		t.Fatalf("expected cart to survive failed checkout, got %d lines", len(cart.Lines))
	}
}

func TestCheckoutValidation(t *testing.T) {
	svc, _, sessions := newTestService(t)
	ctx := loginContext(t, sessions, domain.RoleCashier)

	if _, err := svc.Checkout(ctx, domain.CheckoutRequest{Customer: domain.CustomerRef{Name: "Sara"}}); !errors.Is(err, store.ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}

	adminCtx := loginContext(t, sessions, domain.RoleAdmin)
	a := createVariant(t, svc, adminCtx, "Dress", 5, 10000, 6000)
	if _, err := svc.AddToCart(ctx, domain.CartItemRequest{VariantID: a.ID, Qty: 1}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := svc.Checkout(ctx, domain.CheckoutRequest{Customer: domain.CustomerRef{Name: "   "}}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank name, got %v", err)
	}
	if _, err := svc.Checkout(context.Background(), domain.CheckoutRequest{}); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestAddToCartMergesAndChecksStock(t *testing.T) {
	svc, _, sessions := newTestService(t)
	ctx := loginContext(t, sessions, domain.RoleAdmin)
	a := createVariant(t, svc, ctx, "Dress", 3, 10000, 6000)

	if _, err := svc.AddToCart(ctx, domain.CartItemRequest{VariantID: a.ID, Qty: 1}); err != nil {
		t.Fatalf("add: %v", err)
	}
	cart, err := svc.AddToCart(ctx, domain.CartItemRequest{VariantID: a.ID, Qty: 2})
	if err != nil {
		t.Fatalf("add again: %v", err)
	}
	if len(cart.Lines) != 1 || cart.Lines[0].Qty != 3 || cart.ItemCount != 3 {
		t.Fatalf("expected one merged line of 3, got %+v", cart)
	}
	if !cart.Total.Equal(decimal.NewFromInt(30000)) {
		t.Fatalf("expected total 30000, got %s", cart.Total)
	}

	if _, err := svc.AddToCart(ctx, domain.CartItemRequest{VariantID: a.ID, Qty: 1}); !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if _, err := svc.AddToCart(ctx, domain.CartItemRequest{VariantID: a.ID, Qty: 0}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input for qty 0, got %v", err)
	}

	cart, err = svc.SetCartQuantity(ctx, a.ID, 1)
	if err != nil || cart.Lines[0].Qty != 1 {
		t.Fatalf("set quantity: %+v %v", cart, err)
	}
	cart, err = svc.RemoveFromCart(ctx, a.ID)
	if err != nil || len(cart.Lines) != 0 {
		t.Fatalf("remove: %+v %v", cart, err)
	}
	if _, err := svc.RemoveFromCart(ctx, a.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found removing twice, got %v", err)
	}
}

func TestCatalogMutationsRequireAdmin(t *testing.T) {
	svc, _, sessions := newTestService(t)
	ctx := loginContext(t, sessions, domain.RoleCashier)

	_, err := svc.CreateVariant(ctx, domain.VariantCreateRequest{Name: "Dress", Price: decimal.NewFromInt(1)})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestLowStockListing(t *testing.T) {
	svc, _, sessions := newTestService(t)
	ctx := loginContext(t, sessions, domain.RoleAdmin)
	createVariant(t, svc, ctx, "Dress", 10, 10000, 6000)
	low := createVariant(t, svc, ctx, "Scarf", 2, 5000, 2000)

	variants, err := svc.ListVariants(ctx, "", true)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(variants) != 1 || variants[0].ID != low.ID {
		t.Fatalf("expected only the low-stock variant, got %+v", variants)
	}
}

func TestSaleCorrectionNeedsAdminAndPIN(t *testing.T) {
	svc, _, sessions := newTestService(t)
	ctx := loginContext(t, sessions, domain.RoleAdmin)
	a := createVariant(t, svc, ctx, "Dress", 10, 10000, 6000)

	if _, err := svc.AddToCart(ctx, domain.CartItemRequest{VariantID: a.ID, Qty: 4}); err != nil {
		t.Fatalf("add: %v", err)
	}
	invoice, err := svc.Checkout(ctx, domain.CheckoutRequest{Customer: domain.CustomerRef{Name: "Sara"}})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	saleID := invoice.Lines[0].ID

	cashierCtx := loginContext(t, sessions, domain.RoleCashier)
	if _, err := svc.CorrectSale(cashierCtx, saleID, domain.SaleCorrectionRequest{Qty: 1, ManagerPIN: "482916"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for cashier, got %v", err)
	}
	if _, err := svc.CorrectSale(ctx, saleID, domain.SaleCorrectionRequest{Qty: 1, ManagerPIN: "000000"}); !errors.Is(err, ErrInvalidPIN) {
		t.Fatalf("expected ErrInvalidPIN, got %v", err)
	}

	discounted := decimal.NewFromInt(9000)
	updated, err := svc.CorrectSale(ctx, saleID, domain.SaleCorrectionRequest{Qty: 1, Total: &discounted, ManagerPIN: "482916"})
	if err != nil {
		t.Fatalf("correct sale: %v", err)
	}
	if !updated.Total.Equal(discounted) || !updated.Profit.Equal(decimal.NewFromInt(3000)) {
		t.Fatalf("unexpected total/profit %s/%s", updated.Total, updated.Profit)
	}
	got, _ := svc.GetVariant(ctx, a.ID)
	if got.Stock != 9 {
		t.Fatalf("expected stock 9, got %d", got.Stock)
	}

	if _, err := svc.DeleteSale(ctx, saleID, domain.SaleDeleteRequest{ManagerPIN: "482916"}); err != nil {
		t.Fatalf("delete sale: %v", err)
	}
	got, _ = svc.GetVariant(ctx, a.ID)
	if got.Stock != 10 {
		t.Fatalf("expected stock 10 after delete, got %d", got.Stock)
	}

	logs, err := svc.ListAuditLogs(ctx, domain.WindowQuery{Window: WindowToday}, 50)
	if err != nil {
		t.Fatalf("audit logs: %v", err)
	}
	actions := map[string]bool{}
	for _, entry := range logs {
		actions[entry.Action] = true
	}
	for _, want := range []string{"sale_commit", "sale_correct", "sale_delete"} {
		if !actions[want] {
			t.Fatalf("expected audit action %s, got %+v", want, actions)
		}
	}
}

func TestResolveWindow(t *testing.T) {
	svc, _, _ := newTestService(t)
	loc := svc.Location()

	today, err := svc.ResolveWindow(domain.WindowQuery{})
	if err != nil {
		t.Fatalf("today: %v", err)
	}
	wantFrom := time.Date(2026, 10, 19, 0, 0, 0, 0, loc)
	if !today.From.Equal(wantFrom) || !today.To.Equal(wantFrom.AddDate(0, 0, 1)) {
		t.Fatalf("unexpected today window %+v", today)
	}

	week, _ := svc.ResolveWindow(domain.WindowQuery{Window: WindowWeek})
	if !week.From.Equal(wantFrom.AddDate(0, 0, -6)) {
		t.Fatalf("unexpected week start %s", week.From)
	}

	rng, err := svc.ResolveWindow(domain.WindowQuery{Window: WindowRange, From: "2026-10-01", To: "2026-10-05"})
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if !rng.To.Equal(time.Date(2026, 10, 6, 0, 0, 0, 0, loc)) {
		t.Fatalf("expected inclusive end date, got %s", rng.To)
	}

	for _, q := range []domain.WindowQuery{
		{Window: WindowDays, Days: 0},
		{Window: WindowDays, Days: 400},
		{Window: WindowRange, From: "2026-10-05", To: "2026-10-01"},
		{Window: "month"},
	} {
		if _, err := svc.ResolveWindow(q); !errors.Is(err, store.ErrInvalidInput) {
			t.Fatalf("expected invalid window for %+v, got %v", q, err)
		}
	}
}

func TestReportNetsExpensesAgainstProfit(t *testing.T) {
	svc, _, sessions := newTestService(t)
	ctx := loginContext(t, sessions, domain.RoleAdmin)
	a := createVariant(t, svc, ctx, "Dress", 10, 10000, 6000)

	if _, err := svc.AddToCart(ctx, domain.CartItemRequest{VariantID: a.ID, Qty: 2}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := svc.Checkout(ctx, domain.CheckoutRequest{Customer: domain.CustomerRef{Name: "Sara"}}); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if _, err := svc.CreateExpense(ctx, domain.ExpenseCreateRequest{Amount: decimal.NewFromInt(1500), Reason: "bags"}); err != nil {
		t.Fatalf("expense: %v", err)
	}

	report, _, err := svc.Report(ctx, domain.WindowQuery{Window: WindowToday})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if !report.SalesTotal.Equal(decimal.NewFromInt(20000)) || !report.NetProfit.Equal(decimal.NewFromInt(6500)) {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.Invoices != 1 || len(report.TopProducts) != 1 {
		t.Fatalf("unexpected counts %+v", report)
	}
}

func TestMessageLink(t *testing.T) {
	cases := []struct {
		customer domain.Customer
		want     string
	}{
		{domain.Customer{Handle: "@sara.style", Phone: "07701234567"}, "https://ig.me/m/sara.style"},
		{domain.Customer{Phone: "0770 123 4567"}, "https://wa.me/9647701234567"},
		{domain.Customer{Phone: "+971 50 111 2222"}, "https://wa.me/971501112222"},
		{domain.Customer{Phone: "9647701234567"}, "https://wa.me/9647701234567"},
		{domain.Customer{}, ""},
	}
	for _, tc := range cases {
		if got := MessageLink(tc.customer, "964"); got != tc.want {
			t.Fatalf("MessageLink(%+v) = %q, want %q", tc.customer, got, tc.want)
		}
	}
}
