package ledger

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Transaction struct {
	ID          string          `json:"id"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Merchant    string          `json:"merchant"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
}

// IsIncome сообщает, является ли операция поступлением.
func (t Transaction) IsIncome() bool {
	return t.Amount.IsPositive()
}

type EventType string

type Confidence string

const (
	EventIncome  EventType = "income"
	EventExpense EventType = "expense"

	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

type CashFlowEvent struct {
	Date        time.Time       `json:"date"`
	Type        EventType       `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Confidence  Confidence      `json:"confidence"`
}

// Signed возвращает сумму события со знаком потока.
func (e CashFlowEvent) Signed() decimal.Decimal {
	if e.Type == EventExpense {
		return e.Amount.Neg()
	}
	return e.Amount
}

// Snapshot агрегаты, которые показывает дашборд.
type Snapshot struct {
	TotalBalance     decimal.Decimal `json:"total_balance"`
	ProjectedIncome  decimal.Decimal `json:"projected_income"`
	UpcomingExpenses decimal.Decimal `json:"upcoming_expenses"`
	NetCashFlow      decimal.Decimal `json:"net_cash_flow"`
}

// DashboardSnapshot возвращает демонстрационные балансы дашборда.
func DashboardSnapshot() Snapshot {
	snapshot := Snapshot{
		TotalBalance:     decimal.RequireFromString("12450.75"),
		ProjectedIncome:  decimal.NewFromInt(5000),
		UpcomingExpenses: decimal.RequireFromString("2845.50"),
	}
	snapshot.NetCashFlow = snapshot.ProjectedIncome.Sub(snapshot.UpcomingExpenses)
	return snapshot
}

// Balances возвращает остатки на счетах, по которым строится план.
func Balances() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{"checking": decimal.NewFromInt(900)}
}

// Transactions возвращает последние операции, новые первыми.
func Transactions(now time.Time) []Transaction {
	day := startOfDay(now)
	return []Transaction{
		{ID: "1", Date: day.AddDate(0, 0, -1), Description: "Amazon Purchase", Merchant: "Amazon", Amount: decimal.RequireFromString("-45.99"), Category: "Shopping"},
		{ID: "2", Date: day.AddDate(0, 0, -2), Description: "Salary Deposit", Merchant: "Employer", Amount: decimal.NewFromInt(3500), Category: "Income"},
		{ID: "3", Date: day.AddDate(0, 0, -3), Description: "Starbucks", Merchant: "Starbucks", Amount: decimal.RequireFromString("-5.75"), Category: "Food & Drink"},
		{ID: "4", Date: day.AddDate(0, 0, -4), Description: "Electric Bill", Merchant: "Electric Co", Amount: decimal.NewFromInt(-120), Category: "Utilities"},
		{ID: "5", Date: day.AddDate(0, 0, -5), Description: "Netflix", Merchant: "Netflix", Amount: decimal.RequireFromString("-15.99"), Category: "Entertainment"},
	}
}

// CashFlowEvents возвращает ожидаемые поступления и списания на ближайший месяц.
func CashFlowEvents(now time.Time) []CashFlowEvent {
	day := startOfDay(now)
	return []CashFlowEvent{
		{Date: day.AddDate(0, 0, 2), Type: EventIncome, Amount: decimal.NewFromInt(3500), Description: "Salary Payment", Confidence: ConfidenceHigh},
		{Date: day.AddDate(0, 0, 5), Type: EventExpense, Amount: decimal.NewFromInt(1200), Description: "Rent", Confidence: ConfidenceHigh},
		{Date: day.AddDate(0, 0, 10), Type: EventExpense, Amount: decimal.NewFromInt(150), Description: "Utilities", Confidence: ConfidenceMedium},
		{Date: day.AddDate(0, 0, 15), Type: EventIncome, Amount: decimal.NewFromInt(500), Description: "Freelance Project", Confidence: ConfidenceMedium},
		{Date: day.AddDate(0, 0, 20), Type: EventExpense, Amount: decimal.NewFromInt(200), Description: "Groceries (Est.)", Confidence: ConfidenceLow},
	}
}

// History возвращает историю операций за два месяца, по которой строится план.
func History(now time.Time) []Transaction {
	ago := func(days int) time.Time { return now.AddDate(0, 0, -days) }
	return []Transaction{
		{ID: "t1", Date: ago(7), Description: "Client A invoice", Merchant: "Client A", Amount: decimal.NewFromInt(650), Category: "salary"},
		{ID: "t2", Date: ago(14), Description: "Client A invoice", Merchant: "Client A", Amount: decimal.NewFromInt(700), Category: "salary"},
		{ID: "t3", Date: ago(21), Description: "Client B invoice", Merchant: "Client B", Amount: decimal.NewFromInt(620), Category: "salary"},
		{ID: "t4", Date: ago(28), Description: "Client A invoice", Merchant: "Client A", Amount: decimal.NewFromInt(700), Category: "salary"},
		{ID: "e1", Date: ago(29), Description: "Spotify", Merchant: "Spotify", Amount: decimal.RequireFromString("-12.99"), Category: "subscription"},
		{ID: "e2", Date: ago(59), Description: "Spotify", Merchant: "Spotify", Amount: decimal.RequireFromString("-12.49"), Category: "subscription"},
		{ID: "e3", Date: ago(27), Description: "PhoneCo", Merchant: "PhoneCo", Amount: decimal.RequireFromString("-59.99"), Category: "subscription"},
		{ID: "e4", Date: ago(57), Description: "PhoneCo", Merchant: "PhoneCo", Amount: decimal.RequireFromString("-59.99"), Category: "subscription"},
		{ID: "e5", Date: ago(30), Description: "Rent", Merchant: "Landlord", Amount: decimal.NewFromInt(-800), Category: "rent"},
		{ID: "e6", Date: ago(60), Description: "Rent", Merchant: "Landlord", Amount: decimal.NewFromInt(-800), Category: "rent"},
	}
}

// Filter отбирает операции по категории и подстроке описания.
type Filter struct {
	Category string
	Query    string
}

// Apply возвращает подходящие операции, сохраняя порядок.
func (f Filter) Apply(txs []Transaction) []Transaction {
	category := strings.TrimSpace(f.Category)
	query := strings.ToLower(strings.TrimSpace(f.Query))

	out := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		if category != "" && !strings.EqualFold(tx.Category, category) {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(tx.Description), query) {
			continue
		}
		out = append(out, tx)
	}
	return out
}

type CategoryTotal struct {
	Category string          `json:"category"`
	Spent    decimal.Decimal `json:"spent"`
	Count    int             `json:"count"`
}

// SpendingByCategory суммирует расходы по категориям, крупные первыми.
func SpendingByCategory(txs []Transaction) []CategoryTotal {
	index := make(map[string]int)
	totals := make([]CategoryTotal, 0)

	for _, tx := range txs {
		if !tx.Amount.IsNegative() {
			continue
		}
		i, ok := index[tx.Category]
		if !ok {
			i = len(totals)
			index[tx.Category] = i
			totals = append(totals, CategoryTotal{Category: tx.Category, Spent: decimal.Zero})
		}
		totals[i].Spent = totals[i].Spent.Add(tx.Amount.Abs())
		totals[i].Count++
	}

	sort.SliceStable(totals, func(i, j int) bool {
		return totals[i].Spent.GreaterThan(totals[j].Spent)
	})
	return totals
}

// Categories возвращает уникальные категории в порядке появления.
func Categories(txs []Transaction) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, tx := range txs {
		if _, ok := seen[tx.Category]; ok {
			continue
		}
		seen[tx.Category] = struct{}{}
		out = append(out, tx.Category)
	}
	return out
}

type CashFlowSummary struct {
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
	Net      decimal.Decimal `json:"net"`
}

// Summarize суммирует поступления и списания событий.
func Summarize(events []CashFlowEvent) CashFlowSummary {
	summary := CashFlowSummary{Income: decimal.Zero, Expenses: decimal.Zero}
	for _, event := range events {
		if event.Type == EventIncome {
			summary.Income = summary.Income.Add(event.Amount)
		} else {
			summary.Expenses = summary.Expenses.Add(event.Amount)
		}
	}
	summary.Net = summary.Income.Sub(summary.Expenses)
	return summary
}

// Within возвращает события в интервале [from, to].
func Within(events []CashFlowEvent, from, to time.Time) []CashFlowEvent {
	out := make([]CashFlowEvent, 0, len(events))
	for _, event := range events {
		if event.Date.Before(from) || event.Date.After(to) {
			continue
		}
		out = append(out, event)
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
