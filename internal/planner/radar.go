package planner

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const (
	minMonthlyGap   = 25
	maxMonthlyGap   = 35
	amountWindow    = 3
	overdueShiftDay = 7
)

// DetectRecurring находит ежемесячные списания и предсказывает следующую дату.
// Мерчант считается регулярным при двух и более списаниях со средним
// интервалом 25..35 дней.
func DetectRecurring(txs []Transaction, now time.Time) []UpcomingExpense {
	order := make([]string, 0)
	byMerchant := make(map[string][]Transaction)
	for _, tx := range txs {
		if !tx.Amount.IsNegative() {
			continue
		}
		if _, ok := byMerchant[tx.Merchant]; !ok {
			order = append(order, tx.Merchant)
		}
		byMerchant[tx.Merchant] = append(byMerchant[tx.Merchant], tx)
	}

	today := civilDate(now)
	results := make([]UpcomingExpense, 0)

	for _, merchant := range order {
		charges := byMerchant[merchant]
		if len(charges) < 2 {
			continue
		}
		sort.SliceStable(charges, func(i, j int) bool {
			return charges[i].Date.Before(charges[j].Date)
		})

		gapSum := 0
		for i := 1; i < len(charges); i++ {
			gapSum += daysBetween(civilDate(charges[i-1].Date), civilDate(charges[i].Date))
		}
		avgGap := float64(gapSum) / float64(len(charges)-1)
		if avgGap < minMonthlyGap || avgGap > maxMonthlyGap {
			continue
		}

		window := charges
		if len(window) > amountWindow {
			window = window[len(window)-amountWindow:]
		}
		amounts := make([]decimal.Decimal, 0, len(window))
		for _, charge := range window {
			amounts = append(amounts, charge.Amount.Abs())
		}

		last := charges[len(charges)-1]
		due := civilDate(last.Date).AddDate(0, 0, int(math.RoundToEven(avgGap)))
		certainty := 0.6
		if due.Before(today) {
			due = today.AddDate(0, 0, overdueShiftDay)
			certainty = 0.4
		}

		results = append(results, UpcomingExpense{
			Merchant:       merchant,
			DueDate:        due,
			ExpectedAmount: mean(amounts).Round(2),
			Certainty:      certainty,
			Category:       last.Category,
		})
	}

	return results
}

// DueWithin отбирает платежи со сроком не позже today+days.
func DueWithin(expenses []UpcomingExpense, now time.Time, days int) []UpcomingExpense {
	horizon := civilDate(now).AddDate(0, 0, days)
	out := make([]UpcomingExpense, 0, len(expenses))
	for _, expense := range expenses {
		if expense.DueDate.After(horizon) {
			continue
		}
		out = append(out, expense)
	}
	return out
}

func civilDate(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(math.Round(to.Sub(from).Hours() / 24))
}
