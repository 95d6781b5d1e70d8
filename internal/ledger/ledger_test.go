package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTransactionsNewestFirst проверяет порядок операций.
func TestTransactionsNewestFirst(t *testing.T) {
	txs := Transactions(time.Now())
	require.Len(t, txs, 5)

	for i := 1; i < len(txs); i++ {
		assert.True(t, txs[i-1].Date.After(txs[i].Date))
	}
}

// TestFilter проверяет фильтрацию по категории и поиску.
func TestFilter(t *testing.T) {
	txs := Transactions(time.Now())

	byCategory := Filter{Category: "utilities"}.Apply(txs)
	require.Len(t, byCategory, 1)
	assert.Equal(t, "Electric Bill", byCategory[0].Description)

	byQuery := Filter{Query: "STAR"}.Apply(txs)
	require.Len(t, byQuery, 1)
	assert.Equal(t, "Starbucks", byQuery[0].Description)

	assert.Empty(t, Filter{Category: "Income", Query: "netflix"}.Apply(txs))
	assert.Len(t, Filter{}.Apply(txs), 5)
}

// TestSpendingByCategory проверяет суммы расходов без поступлений.
func TestSpendingByCategory(t *testing.T) {
	totals := SpendingByCategory(Transactions(time.Now()))
	require.Len(t, totals, 4)

	assert.Equal(t, "Utilities", totals[0].Category)
	assert.True(t, totals[0].Spent.Equal(decimal.NewFromInt(120)))
	for _, total := range totals {
		assert.NotEqual(t, "Income", total.Category)
	}
}

// TestSummarize проверяет итоги денежного потока.
func TestSummarize(t *testing.T) {
	summary := Summarize(CashFlowEvents(time.Now()))

	assert.True(t, summary.Income.Equal(decimal.NewFromInt(4000)))
	assert.True(t, summary.Expenses.Equal(decimal.NewFromInt(1550)))
	assert.True(t, summary.Net.Equal(decimal.NewFromInt(2450)))
}

// TestWithin проверяет отбор событий по интервалу.
func TestWithin(t *testing.T) {
	now := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	events := CashFlowEvents(now)

	week := Within(events, now, now.AddDate(0, 0, 7))
	require.Len(t, week, 2)
	assert.Equal(t, "Salary Payment", week[0].Description)
	assert.True(t, week[1].Signed().IsNegative())
}

// TestDashboardSnapshot проверяет чистый поток дашборда.
func TestDashboardSnapshot(t *testing.T) {
	snapshot := DashboardSnapshot()
	assert.True(t, snapshot.NetCashFlow.Equal(decimal.RequireFromString("2154.50")))
}
