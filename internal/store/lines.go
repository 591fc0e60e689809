package store

import (
	"fmt"
	"slices"
	"strings"
	"unicode"

	"nawaem/backend/internal/domain"
)

// MergeSaleLines folds lines for the same variant together and orders them by
// variant id, which is also the order rows are locked in.
func MergeSaleLines(lines []domain.SaleLine) ([]domain.SaleLine, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	agg := make(map[int64]int, len(lines))
	for _, line := range lines {
		if line.VariantID < 1 || line.Qty < 1 {
			return nil, fmt.Errorf("%w: cart line needs a variant and a positive quantity", ErrInvalidInput)
		}
		agg[line.VariantID] += line.Qty
	}

	merged := make([]domain.SaleLine, 0, len(agg))
	for id, qty := range agg {
		merged = append(merged, domain.SaleLine{VariantID: id, Qty: qty})
	}
	slices.SortFunc(merged, func(a, b domain.SaleLine) int {
		switch {
		case a.VariantID < b.VariantID:
			return -1
		case a.VariantID > b.VariantID:
			return 1
		}
		return 0
	})
	return merged, nil
}

func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// NormalizePhone keeps digits and a leading plus sign.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	var b strings.Builder
	for i, r := range phone {
		if r == '+' && i == 0 {
			b.WriteRune(r)
			continue
		}
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
