package planner

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"example.com/fintant/backend/internal/models"
)

// FormatMoney печатает сумму со знаком валюты и разделителями тысяч.
func FormatMoney(currency models.Currency, amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Abs()
	}

	fixed := amount.StringFixed(2)
	whole, fraction, _ := strings.Cut(fixed, ".")

	var grouped strings.Builder
	for i, digit := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(digit)
	}

	return fmt.Sprintf("%s%s%s.%s", sign, currency.Symbol(), grouped.String(), fraction)
}

// Narrate собирает текстовое описание плана.
func Narrate(result Result, now time.Time) string {
	currency := result.Plan.Currency
	money := func(amount decimal.Decimal) string { return FormatMoney(currency, amount) }

	lines := []string{fmt.Sprintf("Here's the plan for the next %d days.", HorizonDays)}

	fc := result.IncomeForecast
	lines = append(lines, fmt.Sprintf(
		"Income outlook: expected %s (p10 %s / p90 %s, confidence %d%%).",
		money(fc.Expected), money(fc.P10), money(fc.P90), int(fc.Confidence*100+0.5),
	))

	if len(result.UpcomingExpenses) > 0 {
		soon := DueWithin(result.UpcomingExpenses, now, HorizonDays)
		total := decimal.Zero
		for _, expense := range soon {
			total = total.Add(expense.ExpectedAmount)
		}
		lines = append(lines, fmt.Sprintf("Bills due in %d days: %s across %d items.", HorizonDays, money(total), len(soon)))
	}

	if result.Plan.Shortfall.IsPositive() {
		lines = append(lines, fmt.Sprintf("Shortfall vs. buffer target: %s.", money(result.Plan.Shortfall)))
		if len(result.SafetyOptions) > 0 {
			lines = append(lines, "Options to keep you safe:")
			for _, option := range result.SafetyOptions {
				switch option.Type {
				case SafetyReschedule:
					lines = append(lines, fmt.Sprintf("• Reschedule a bill by %d days (often accepted if requested early).", option.Days))
				case SafetyMicroAdvance:
					lines = append(lines, fmt.Sprintf("• Micro-advance of %s (fee-free, auto-repay on income).", money(*option.Amount)))
				case SafetyPartialPayment:
					lines = append(lines, "• Ask for a partial payment plan to split the bill.")
				}
			}
		}
		return strings.Join(lines, "\n")
	}

	if len(result.Plan.Actions) == 0 {
		lines = append(lines, "No moves suggested right now. You're on track.")
		return strings.Join(lines, "\n")
	}

	lines = append(lines, "Suggested actions:")
	for _, action := range result.Plan.Actions {
		lines = append(lines, fmt.Sprintf("• %s %s → %s: %s", title(string(action.Kind)), money(action.Amount), action.Target, action.Rationale))
	}
	lines = append(lines, "Approve any you like; we won't move money without your consent.")

	return strings.Join(lines, "\n")
}

func title(value string) string {
	if value == "" {
		return value
	}
	return strings.ToUpper(value[:1]) + value[1:]
}
