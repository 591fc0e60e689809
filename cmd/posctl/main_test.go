package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nawaem/backend/internal/config"
	"nawaem/backend/internal/domain"
)

func TestPrintReport(t *testing.T) {
	var out bytes.Buffer
	err := printReport(&out, "Nawaem Boutique", domain.Report{
		Window:       "today",
		From:         "2026-10-19",
		To:           "2026-10-19",
		SalesTotal:   decimal.NewFromInt(20000),
		ProfitTotal:  decimal.NewFromInt(8000),
		ExpenseTotal: decimal.NewFromInt(1500),
		NetProfit:    decimal.NewFromInt(6500),
		Invoices:     1,
		Lines:        1,
		ByDay:        []domain.DailyTotal{{Date: "2026-10-19", Total: decimal.NewFromInt(20000)}},
		TopProducts:  []domain.ProductTotal{{ProductName: "Summer Dress", Qty: 2, Total: decimal.NewFromInt(20000)}},
	})
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "Nawaem Boutique: today")
	assert.Contains(t, text, "20,000.00")
	assert.Contains(t, text, "6,500.00")
	assert.Contains(t, text, "Summer Dress")
}

func TestCommandsNeedDatabase(t *testing.T) {
	root := newRootCmd(config.Config{StoreTimezone: "UTC"})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"migrate"})

	err := root.Execute()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "DATABASE_URL"))
}

func TestUserCreateValidatesRole(t *testing.T) {
	root := newRootCmd(config.Config{})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"user", "create", "--username", "layla", "--password", "pass1234", "--role", "owner"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "role must be")
}
