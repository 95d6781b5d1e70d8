package planner

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

var (
	p10Factor = decimal.RequireFromString("0.6")
	p90Factor = decimal.RequireFromString("1.4")
)

type isoWeek struct {
	year int
	week int
}

// WeeklyIncome суммирует поступления по ISO-неделям за последние weeks недель
// в хронологическом порядке.
func WeeklyIncome(txs []Transaction, now time.Time, weeks int) []decimal.Decimal {
	cutoff := now.AddDate(0, 0, -7*weeks)
	sums := make(map[isoWeek]decimal.Decimal)

	for _, tx := range txs {
		if tx.Date.Before(cutoff) || !tx.Amount.IsPositive() {
			continue
		}
		year, week := tx.Date.ISOWeek()
		key := isoWeek{year: year, week: week}
		sums[key] = sums[key].Add(tx.Amount)
	}

	keys := make([]isoWeek, 0, len(sums))
	for key := range sums {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].week < keys[j].week
	})

	out := make([]decimal.Decimal, 0, len(keys))
	for _, key := range keys {
		out = append(out, sums[key])
	}
	return out
}

// ForecastIncome оценивает доход на горизонт планирования по последним неделям.
func ForecastIncome(txs []Transaction, now time.Time) IncomeForecast {
	weeks := WeeklyIncome(txs, now, historyWeeks)
	if len(weeks) == 0 {
		return IncomeForecast{
			HorizonDays: HorizonDays,
			Expected:    decimal.Zero,
			P10:         decimal.Zero,
			P90:         decimal.Zero,
			Confidence:  0.25,
		}
	}

	recent := weeks
	if len(recent) >= 4 {
		recent = recent[len(recent)-4:]
	}
	expected := mean(recent)
	confidence := math.Min(1, 0.5+0.05*float64(len(weeks)))

	return IncomeForecast{
		HorizonDays: HorizonDays,
		Expected:    expected.Round(2),
		P10:         expected.Mul(p10Factor).Round(2),
		P90:         expected.Mul(p90Factor).Round(2),
		Confidence:  math.Round(confidence*100) / 100,
		Weeks:       len(weeks),
	}
}

func mean(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	return decimal.Sum(values[0], values[1:]...).Div(decimal.NewFromInt(int64(len(values))))
}
