package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"example.com/fintant/backend/internal/cache"
	"example.com/fintant/backend/internal/forecast"
	"example.com/fintant/backend/internal/ledger"
	"example.com/fintant/backend/internal/metrics"
	"example.com/fintant/backend/internal/models"
	"example.com/fintant/backend/internal/planner"
	"example.com/fintant/backend/internal/repository"
)

const (
	cashFlowWindowDays = 30
	paymentAlertDays   = 3
	defaultChartPad    = 20
)

// FinanceHandler отдает экраны дашборда, денежного потока, прогноза и плана.
type FinanceHandler struct {
	Buckets  BucketStore
	Profiles ProfileStore
	Planner  *planner.Planner
	Cache    *cache.Cache
	Logger   *slog.Logger
	Now      Clock
}

// NewFinanceHandler создает обработчик финансовых экранов.
func NewFinanceHandler(buckets BucketStore, profiles ProfileStore, plan *planner.Planner, responses *cache.Cache, logger *slog.Logger) *FinanceHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FinanceHandler{
		Buckets:  buckets,
		Profiles: profiles,
		Planner:  plan,
		Cache:    responses,
		Logger:   logger,
		Now:      time.Now,
	}
}

type CashFlowResponse struct {
	From    time.Time              `json:"from"`
	To      time.Time              `json:"to"`
	Events  []ledger.CashFlowEvent `json:"events"`
	Summary ledger.CashFlowSummary `json:"summary"`
}

type ForecastResponse struct {
	forecast.Series
	Chart []forecast.ChartPoint `json:"chart,omitempty"`
}

type AlertType string

const (
	AlertGoalBehind     AlertType = "goal_behind_schedule"
	AlertPaymentDue     AlertType = "payment_due"
	AlertLowBalance     AlertType = "low_balance"
	severityWarning               = "warning"
	severityInformation           = "info"
)

type Alert struct {
	Type     AlertType  `json:"type"`
	Severity string     `json:"severity"`
	Message  string     `json:"message"`
	BucketID *uuid.UUID `json:"bucket_id,omitempty"`
	DueDate  *time.Time `json:"due_date,omitempty"`
}

type BucketSummary struct {
	Count       int             `json:"count"`
	TotalSaved  decimal.Decimal `json:"total_saved"`
	TotalTarget decimal.Decimal `json:"total_target"`
	Completed   int             `json:"completed"`
}

type DashboardResponse struct {
	ledger.Snapshot
	Currency models.Currency `json:"currency"`
	Forecast forecast.Series `json:"forecast"`
	Alerts   []Alert         `json:"alerts"`
	Buckets  BucketSummary   `json:"buckets"`
}

// CashFlow возвращает ожидаемые события на ближайшие 30 дней с итогами.
func (h *FinanceHandler) CashFlow(c echo.Context) error {
	now := h.Now()
	from := startOfDay(now)
	to := from.AddDate(0, 0, cashFlowWindowDays)

	events := ledger.Within(ledger.CashFlowEvents(now), from, to)
	return c.JSON(http.StatusOK, CashFlowResponse{
		From:    from,
		To:      to,
		Events:  events,
		Summary: ledger.Summarize(events),
	})
}

// Forecast строит прогноз остатка для режима 7d, 30d или 1y.
// Если заданы width и height, добавляются координаты точек графика.
func (h *FinanceHandler) Forecast(c echo.Context) error {
	mode, err := forecast.ParseMode(c.QueryParam("mode"))
	if err != nil {
		return fieldError(c, "mode", "oneof")
	}

	series := forecast.Build(mode, forecastInputs(ledger.DashboardSnapshot()), h.Now())
	response := ForecastResponse{Series: series}

	width, height, padding, ok, err := parseChartSize(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	if ok {
		response.Chart = series.Project(width, height, padding)
	}

	return c.JSON(http.StatusOK, response)
}

// Dashboard собирает сводку: балансы, прогноз на 30 дней, оповещения и корзины.
func (h *FinanceHandler) Dashboard(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	if cached, ok := h.Cache.Get(userID, cache.KeyDashboard); ok {
		if response, ok := cached.(DashboardResponse); ok {
			return c.JSON(http.StatusOK, response)
		}
	}

	ctx := c.Request().Context()
	now := h.Now()

	settings, err := h.settings(c, userID)
	if err != nil {
		return serverError(c)
	}

	buckets, err := h.Buckets.ListByUser(ctx, userID)
	if err != nil {
		h.Logger.ErrorContext(ctx, "failed to list buckets", slog.String("error", err.Error()))
		return serverError(c)
	}

	snapshot := ledger.DashboardSnapshot()
	series := forecast.Build(forecast.ModeMonth, forecastInputs(snapshot), now)

	alerts := make([]Alert, 0)
	if settings.GoalReminders {
		alerts = append(alerts, goalAlerts(buckets, now)...)
	}
	if settings.UpcomingExpenseAlerts {
		alerts = append(alerts, paymentAlerts(settings.Currency, now)...)
	}
	if settings.LowBalanceAlerts && series.Min < 0 {
		alerts = append(alerts, Alert{
			Type:     AlertLowBalance,
			Severity: severityWarning,
			Message:  "Your balance is projected to go negative within 30 days.",
		})
	}

	response := DashboardResponse{
		Snapshot: snapshot,
		Currency: settings.Currency,
		Forecast: series,
		Alerts:   alerts,
		Buckets:  summarizeBuckets(buckets),
	}

	h.Cache.Set(userID, cache.KeyDashboard, response)
	return c.JSON(http.StatusOK, response)
}

// Insights прогоняет планировщик по истории операций пользователя.
func (h *FinanceHandler) Insights(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	if cached, ok := h.Cache.Get(userID, cache.KeyInsights); ok {
		if result, ok := cached.(planner.Result); ok {
			return c.JSON(http.StatusOK, result)
		}
	}

	settings, err := h.settings(c, userID)
	if err != nil {
		return serverError(c)
	}

	result := h.Planner.Run(c.Request().Context(), userID, planner.Input{
		Currency:     settings.Currency,
		Balances:     ledger.Balances(),
		Transactions: planner.FromLedger(ledger.History(h.Now())),
	})
	metrics.RecordPlannerRun(result.Plan.Shortfall.IsPositive(), string(result.NarrativeSource))

	h.Cache.Set(userID, cache.KeyInsights, result)
	return c.JSON(http.StatusOK, result)
}

// settings возвращает настройки профиля; если профиля нет, берутся значения по умолчанию.
func (h *FinanceHandler) settings(c echo.Context, userID uuid.UUID) (models.Settings, error) {
	profile, err := h.Profiles.Get(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.DefaultSettings(), nil
		}
		h.Logger.ErrorContext(c.Request().Context(), "failed to load profile", slog.String("error", err.Error()))
		return models.Settings{}, err
	}
	return profile.Settings, nil
}

// goalAlerts находит корзины, отстающие от графика: доля накопленного меньше
// доли прошедшего до срока времени.
func goalAlerts(buckets []models.Bucket, now time.Time) []Alert {
	alerts := make([]Alert, 0)
	for _, bucket := range buckets {
		if bucket.TargetAmount == nil || bucket.TimeLimit == nil || bucket.IsComplete() {
			continue
		}

		progress := bucket.ProgressPercent().InexactFloat64()
		id := bucket.ID

		if !bucket.TimeLimit.After(now) {
			alerts = append(alerts, Alert{
				Type:     AlertGoalBehind,
				Severity: severityWarning,
				Message:  fmt.Sprintf("%s passed its deadline at %.0f%% of the target.", bucket.Name, progress),
				BucketID: &id,
			})
			continue
		}

		total := bucket.TimeLimit.Sub(bucket.CreatedAt)
		if total <= 0 {
			continue
		}
		elapsed := now.Sub(bucket.CreatedAt).Seconds() / total.Seconds() * 100
		if progress >= elapsed {
			continue
		}

		alerts = append(alerts, Alert{
			Type:     AlertGoalBehind,
			Severity: severityWarning,
			Message:  fmt.Sprintf("%s is behind schedule: %.0f%% saved with %.0f%% of the time gone.", bucket.Name, progress, elapsed),
			BucketID: &id,
		})
	}
	return alerts
}

// paymentAlerts предупреждает о регулярных платежах в ближайшие три дня.
func paymentAlerts(currency models.Currency, now time.Time) []Alert {
	upcoming := planner.DueWithin(planner.DetectRecurring(planner.FromLedger(ledger.History(now)), now), now, paymentAlertDays)

	alerts := make([]Alert, 0, len(upcoming))
	for _, expense := range upcoming {
		due := expense.DueDate
		alerts = append(alerts, Alert{
			Type:     AlertPaymentDue,
			Severity: severityInformation,
			Message:  fmt.Sprintf("%s payment of %s is due %s.", expense.Merchant, planner.FormatMoney(currency, expense.ExpectedAmount), due.Format("Jan 2")),
			DueDate:  &due,
		})
	}
	return alerts
}

func summarizeBuckets(buckets []models.Bucket) BucketSummary {
	summary := BucketSummary{Count: len(buckets), TotalSaved: decimal.Zero, TotalTarget: decimal.Zero}
	for _, bucket := range buckets {
		summary.TotalSaved = summary.TotalSaved.Add(bucket.CurrentAmount)
		if bucket.TargetAmount != nil {
			summary.TotalTarget = summary.TotalTarget.Add(*bucket.TargetAmount)
		}
		if bucket.IsComplete() {
			summary.Completed++
		}
	}
	return summary
}

func forecastInputs(snapshot ledger.Snapshot) forecast.Inputs {
	return forecast.Inputs{
		StartBalance:     snapshot.TotalBalance,
		ProjectedIncome:  snapshot.ProjectedIncome,
		UpcomingExpenses: snapshot.UpcomingExpenses,
	}
}

func parseChartSize(c echo.Context) (float64, float64, float64, bool, error) {
	rawWidth := strings.TrimSpace(c.QueryParam("width"))
	rawHeight := strings.TrimSpace(c.QueryParam("height"))
	if rawWidth == "" && rawHeight == "" {
		return 0, 0, 0, false, nil
	}

	width, err := strconv.ParseFloat(rawWidth, 64)
	if err != nil || width <= 0 {
		return 0, 0, 0, false, errors.New("invalid width")
	}
	height, err := strconv.ParseFloat(rawHeight, 64)
	if err != nil || height <= 0 {
		return 0, 0, 0, false, errors.New("invalid height")
	}

	padding := float64(defaultChartPad)
	if raw := strings.TrimSpace(c.QueryParam("padding")); raw != "" {
		padding, err = strconv.ParseFloat(raw, 64)
		if err != nil || padding < 0 || padding*2 >= height {
			return 0, 0, 0, false, errors.New("invalid padding")
		}
	}

	return width, height, padding, true, nil
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
