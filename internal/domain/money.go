package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

func LineTotal(unitPrice decimal.Decimal, qty int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(qty)))
}

// LineProfit is (price - cost) * qty.
func LineProfit(unitPrice decimal.Decimal, unitCost decimal.Decimal, qty int) decimal.Decimal {
	return unitPrice.Sub(unitCost).Mul(decimal.NewFromInt(int64(qty)))
}

// ProfitForTotal derives profit when the charged total differs from price * qty.
func ProfitForTotal(total decimal.Decimal, unitCost decimal.Decimal, qty int) decimal.Decimal {
	return total.Sub(unitCost.Mul(decimal.NewFromInt(int64(qty))))
}

func ItemLabel(name, color, size string) string {
	parts := make([]string, 0, 2)
	if c := strings.TrimSpace(color); c != "" {
		parts = append(parts, c)
	}
	if s := strings.TrimSpace(size); s != "" {
		parts = append(parts, s)
	}
	if len(parts) == 0 {
		return name
	}
	return name + " (" + strings.Join(parts, " / ") + ")"
}
