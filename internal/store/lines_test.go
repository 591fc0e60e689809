package store

import (
	"errors"
	"testing"

	"nawaem/backend/internal/domain"
)

func TestMergeSaleLinesFoldsAndSorts(t *testing.T) {
	merged, err := MergeSaleLines([]domain.SaleLine{
		{VariantID: 9, Qty: 1},
		{VariantID: 2, Qty: 2},
		{VariantID: 9, Qty: 3},
	})
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if len(merged) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(merged))
	}
	if merged[0].VariantID != 2 || merged[0].Qty != 2 {
		t.Fatalf("unexpected first line %+v", merged[0])
	}
	if merged[1].VariantID != 9 || merged[1].Qty != 4 {
		t.Fatalf("unexpected second line %+v", merged[1])
	}
}

func TestMergeSaleLinesRejectsEmptyAndInvalid(t *testing.T) {
	if _, err := MergeSaleLines(nil); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
	if _, err := MergeSaleLines([]domain.SaleLine{{VariantID: 1, Qty: 0}}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestInsufficientStockErrorNamesItem(t *testing.T) {
	err := error(&InsufficientStockError{VariantID: 4, Label: "Dress (Red / M)", Requested: 3, Available: 1})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected error to match ErrInsufficientStock")
	}
	want := "insufficient stock for Dress (Red / M): requested 3, available 1"
	if err.Error() != want {
		t.Fatalf("expected %q, got %q", want, err.Error())
	}
}

func TestNormalizers(t *testing.T) {
	if got := NormalizeName("  Sara   Ali "); got != "sara ali" {
		t.Fatalf("unexpected name %q", got)
	}
	if got := NormalizePhone("+964 (770) 123-4567"); got != "+9647701234567" {
		t.Fatalf("unexpected phone %q", got)
	}
}
