package httpapi

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"nawaem/backend/internal/domain"
	"nawaem/backend/internal/store/memory"
)

var errDatabaseDown = errors.New("read tcp 10.0.0.5:5432: i/o timeout")

// faultyRepo fails the chosen seeded-store operations like a dropped
// database connection.
type faultyRepo struct {
	*memory.Store
	commitErr  error
	listErr    error
	summaryErr error
}

func (r *faultyRepo) CommitSale(ctx context.Context, commit domain.SaleCommit) (*domain.CommittedSale, error) {
	if r.commitErr != nil {
		return nil, r.commitErr
	}
	return r.Store.CommitSale(ctx, commit)
}

func (r *faultyRepo) ListVariants(ctx context.Context, filter domain.VariantFilter) ([]domain.Variant, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.Store.ListVariants(ctx, filter)
}

func (r *faultyRepo) SalesSummary(ctx context.Context, from time.Time, to time.Time, loc *time.Location, topN int) (domain.SalesSummary, error) {
	if r.summaryErr != nil {
		return domain.SalesSummary{}, r.summaryErr
	}
	return r.Store.SalesSummary(ctx, from, to, loc, topN)
}

func TestCheckoutStorageFailureIsGeneric500(t *testing.T) {
	repo := &faultyRepo{Store: memory.NewSeeded(), commitErr: errDatabaseDown}
	cashier := login(t, newTestAPIOn(t, repo), "cashier", "cashier123")

	if res := cashier.do(http.MethodPost, "/api/v1/cart/items", domain.CartItemRequest{VariantID: 4, Qty: 1}); res.Code != http.StatusOK {
		t.Fatalf("add to cart: %d %s", res.Code, res.Body.String())
	}

	res := cashier.do(http.MethodPost, "/api/v1/checkout", domain.CheckoutRequest{Customer: domain.CustomerRef{Name: "Sara"}})
	if res.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d %s", res.Code, res.Body.String())
	}
	var body map[string]any
	decodeBody(t, res, &body)
	if body["error"] != "sale could not be recorded" {
		t.Fatalf("expected generic sale error, got %v", body["error"])
	}

	res = cashier.do(http.MethodGet, "/api/v1/cart", nil)
	var cart domain.CartResponse
	decodeBody(t, res, &cart)
	if len(cart.Lines) != 1 || cart.Lines[0].VariantID != 4 {
		t.Fatalf("expected cart kept after failed sale, got %+v", cart.Lines)
	}
	variant, _ := repo.GetVariant(context.Background(), 4)
	if variant.Stock != 10 {
		t.Fatalf("expected stock 10 untouched, got %d", variant.Stock)
	}
}

func TestCatalogListingDegradesOnStorageFailure(t *testing.T) {
	repo := &faultyRepo{Store: memory.NewSeeded(), listErr: errDatabaseDown}
	cashier := login(t, newTestAPIOn(t, repo), "cashier", "cashier123")

	res := cashier.do(http.MethodGet, "/api/v1/variants", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var body struct {
		Variants []domain.Variant `json:"variants"`
		Degraded bool             `json:"degraded"`
		Notice   string           `json:"notice"`
	}
	decodeBody(t, res, &body)
	if !body.Degraded || body.Notice == "" || body.Variants == nil || len(body.Variants) != 0 {
		t.Fatalf("expected degraded empty catalog, got %+v", body)
	}
}

func TestReportDegradesOnStorageFailure(t *testing.T) {
	repo := &faultyRepo{Store: memory.NewSeeded(), summaryErr: errDatabaseDown}
	admin := login(t, newTestAPIOn(t, repo), "admin", "admin123")

	res := admin.do(http.MethodGet, "/api/v1/reports?window=days&days=3", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var body struct {
		Report   domain.Report `json:"report"`
		Degraded bool          `json:"degraded"`
	}
	decodeBody(t, res, &body)
	if !body.Degraded || body.Report.Window != "days" || !body.Report.SalesTotal.IsZero() || len(body.Report.ByDay) != 0 {
		t.Fatalf("expected degraded empty report, got %+v", body)
	}

	// A bad window is still the caller's mistake.
	if res := admin.do(http.MethodGet, "/api/v1/reports?window=days&days=400", nil); res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad window, got %d", res.Code)
	}
}
