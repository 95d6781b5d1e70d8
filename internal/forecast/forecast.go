package forecast

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Mode string

const (
	ModeWeek  Mode = "7d"
	ModeMonth Mode = "30d"
	ModeYear  Mode = "1y"
)

// ErrUnknownMode возвращается для неизвестного режима прогноза.
var ErrUnknownMode = errors.New("unknown forecast mode")

const (
	daysPerMonth = 30
	amplitude    = 1000.0
	period       = 5.0
)

// ParseMode разбирает режим прогноза. Пустое значение означает 30 дней.
func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ModeMonth:
		return ModeMonth, nil
	case ModeWeek:
		return ModeWeek, nil
	case ModeYear:
		return ModeYear, nil
	default:
		return "", ErrUnknownMode
	}
}

// Points возвращает количество точек ряда для режима.
func (m Mode) Points() int {
	switch m {
	case ModeWeek:
		return 7
	case ModeYear:
		return 365
	default:
		return 30
	}
}

// Inputs исходные величины для построения ряда.
type Inputs struct {
	StartBalance     decimal.Decimal
	ProjectedIncome  decimal.Decimal
	UpcomingExpenses decimal.Decimal
}

// NetCashFlow возвращает ожидаемый чистый поток за месяц.
func (in Inputs) NetCashFlow() decimal.Decimal {
	return in.ProjectedIncome.Sub(in.UpcomingExpenses)
}

type Point struct {
	Day     int       `json:"day"`
	Date    time.Time `json:"date"`
	Balance float64   `json:"balance"`
}

// Series прогнозный ряд остатка с границами для масштабирования графика.
type Series struct {
	Mode   Mode    `json:"mode"`
	Points []Point `json:"points"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Range  float64 `json:"range"`
}

type ChartPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Build строит ряд: линейный дрейф на чистый поток плюс синусоидальное колебание.
func Build(mode Mode, in Inputs, start time.Time) Series {
	n := mode.Points()
	start = truncateDay(start)
	balance := in.StartBalance.InexactFloat64()
	dailyNet := in.NetCashFlow().InexactFloat64() / daysPerMonth

	series := Series{Mode: mode, Points: make([]Point, 0, n)}
	for i := 0; i < n; i++ {
		value := balance + dailyNet*float64(i) + math.Sin(float64(i)/period)*amplitude
		series.Points = append(series.Points, Point{
			Day:     i + 1,
			Date:    start.AddDate(0, 0, i),
			Balance: round2(value),
		})
	}

	series.Min, series.Max = bounds(series.Points)
	series.Range = round2(series.Max - series.Min)
	return series
}

// Project переводит ряд в координаты графика заданного размера с отступом сверху и снизу.
func (s Series) Project(width, height, padding float64) []ChartPoint {
	out := make([]ChartPoint, 0, len(s.Points))
	if len(s.Points) == 0 {
		return out
	}

	usable := height - 2*padding
	for i, point := range s.Points {
		x := 0.0
		if len(s.Points) > 1 {
			x = float64(i) / float64(len(s.Points)-1) * width
		}

		ratio := 0.5
		if s.Range > 0 {
			ratio = (point.Balance - s.Min) / s.Range
		}

		out = append(out, ChartPoint{
			X: round2(x),
			Y: round2(height - padding - ratio*usable),
		})
	}

	return out
}

func bounds(points []Point) (float64, float64) {
	if len(points) == 0 {
		return 0, 0
	}

	lo, hi := points[0].Balance, points[0].Balance
	for _, point := range points[1:] {
		lo = math.Min(lo, point.Balance)
		hi = math.Max(hi, point.Balance)
	}
	return lo, hi
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

func truncateDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
