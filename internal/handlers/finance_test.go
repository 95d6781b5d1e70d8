package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/fintant/backend/internal/models"
	"example.com/fintant/backend/internal/planner"
)

func newFinanceHandler(buckets BucketStore, profiles ProfileStore) *FinanceHandler {
	handler := NewFinanceHandler(buckets, profiles, planner.New(nil, nil), nil, nil)
	handler.Now = func() time.Time { return fixedNow }
	return handler
}

// TestForecastModes проверяет длину ряда для каждого режима и ошибку режима.
func TestForecastModes(t *testing.T) {
	handler := newFinanceHandler(newFakeBuckets(), newFakeProfiles())

	cases := map[string]int{"7d": 7, "30d": 30, "1y": 365, "": 30}
	for mode, points := range cases {
		c, rec := newRequest(newEcho(), http.MethodGet, "/api/v1/forecast?mode="+mode, "", uuid.New())
		require.NoError(t, handler.Forecast(c))
		require.Equal(t, http.StatusOK, rec.Code, mode)

		var body ForecastResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Len(t, body.Points, points, mode)
		assert.Empty(t, body.Chart, mode)
		assert.InDelta(t, 12450.75, body.Points[0].Balance, 0.001, mode)
	}

	c, rec := newRequest(newEcho(), http.MethodGet, "/api/v1/forecast?mode=2w", "", uuid.New())
	require.NoError(t, handler.Forecast(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"mode":"oneof"`)
}

// TestForecastChart проверяет координаты графика и проверку размеров.
func TestForecastChart(t *testing.T) {
	handler := newFinanceHandler(newFakeBuckets(), newFakeProfiles())

	c, rec := newRequest(newEcho(), http.MethodGet, "/api/v1/forecast?mode=7d&width=300&height=100&padding=10", "", uuid.New())
	require.NoError(t, handler.Forecast(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var body ForecastResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Chart, 7)
	assert.InDelta(t, 0, body.Chart[0].X, 0.001)
	assert.InDelta(t, 300, body.Chart[6].X, 0.001)
	for _, point := range body.Chart {
		assert.GreaterOrEqual(t, point.Y, 9.98)
		assert.LessOrEqual(t, point.Y, 90.02)
	}

	for _, query := range []string{"width=0&height=100", "width=300", "width=300&height=100&padding=60"} {
		c, rec := newRequest(newEcho(), http.MethodGet, "/api/v1/forecast?"+query, "", uuid.New())
		require.NoError(t, handler.Forecast(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
	}
}

// TestCashFlowSummary проверяет события окна и итоги.
func TestCashFlowSummary(t *testing.T) {
	handler := newFinanceHandler(newFakeBuckets(), newFakeProfiles())

	c, rec := newRequest(newEcho(), http.MethodGet, "/api/v1/cash-flow", "", uuid.New())
	require.NoError(t, handler.CashFlow(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var body CashFlowResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Events, 5)
	assert.True(t, body.Summary.Income.Equal(decimal.NewFromInt(4000)))
	assert.True(t, body.Summary.Expenses.Equal(decimal.NewFromInt(1550)))
	assert.True(t, body.Summary.Net.Equal(decimal.NewFromInt(2450)))
}

func dashboardBuckets(userID uuid.UUID) *fakeBuckets {
	deadline := time.Date(2025, time.October, 31, 0, 0, 0, 0, time.UTC)
	behind := models.Bucket{
		ID:            uuid.New(),
		UserID:        userID,
		Name:          "House",
		Category:      "Home",
		TargetAmount:  amount("1000"),
		TimeLimit:     &deadline,
		CurrentAmount: decimal.NewFromInt(100),
		CreatedAt:     time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC),
	}
	done := models.Bucket{
		ID:            uuid.New(),
		UserID:        userID,
		Name:          "Phone",
		Category:      "Other",
		TargetAmount:  amount("100"),
		TimeLimit:     &deadline,
		CurrentAmount: decimal.NewFromInt(100),
		CreatedAt:     time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC),
	}
	return newFakeBuckets(behind, done)
}

// TestDashboardDefaults проверяет сводку и оповещения с настройками по умолчанию.
func TestDashboardDefaults(t *testing.T) {
	userID := uuid.New()
	handler := newFinanceHandler(dashboardBuckets(userID), newFakeProfiles())

	c, rec := newRequest(newEcho(), http.MethodGet, "/api/v1/dashboard", "", userID)
	require.NoError(t, handler.Dashboard(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var body DashboardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.TotalBalance.Equal(decimal.RequireFromString("12450.75")))
	assert.True(t, body.NetCashFlow.Equal(decimal.RequireFromString("2154.5")))
	assert.Equal(t, models.CurrencyUSD, body.Currency)
	assert.Len(t, body.Forecast.Points, 30)

	require.Len(t, body.Alerts, 1)
	assert.Equal(t, AlertGoalBehind, body.Alerts[0].Type)

	assert.Equal(t, 2, body.Buckets.Count)
	assert.Equal(t, 1, body.Buckets.Completed)
	assert.True(t, body.Buckets.TotalSaved.Equal(decimal.NewFromInt(200)))
	assert.True(t, body.Buckets.TotalTarget.Equal(decimal.NewFromInt(1100)))
}

// TestDashboardPaymentAlerts проверяет оповещения о платежах при включенной настройке.
func TestDashboardPaymentAlerts(t *testing.T) {
	userID := uuid.New()
	settings := models.DefaultSettings()
	settings.GoalReminders = false
	settings.UpcomingExpenseAlerts = true
	settings.Currency = models.CurrencyGBP

	profiles := newFakeProfiles()
	profiles.put(models.Profile{UserID: userID, Settings: settings})
	handler := newFinanceHandler(dashboardBuckets(userID), profiles)

	c, rec := newRequest(newEcho(), http.MethodGet, "/api/v1/dashboard", "", userID)
	require.NoError(t, handler.Dashboard(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var body DashboardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Alerts, 3)
	for _, alert := range body.Alerts {
		assert.Equal(t, AlertPaymentDue, alert.Type)
		require.NotNil(t, alert.DueDate)
	}
	assert.Equal(t, "Spotify payment of £12.74 is due Oct 2.", body.Alerts[0].Message)
}

// TestInsightsUsesProfileCurrency проверяет шаблонный пересказ и валюту профиля.
func TestInsightsUsesProfileCurrency(t *testing.T) {
	userID := uuid.New()
	settings := models.DefaultSettings()
	settings.Currency = models.CurrencyEUR

	profiles := newFakeProfiles()
	profiles.put(models.Profile{UserID: userID, Settings: settings})
	handler := newFinanceHandler(newFakeBuckets(), profiles)

	c, rec := newRequest(newEcho(), http.MethodGet, "/api/v1/insights", "", userID)
	require.NoError(t, handler.Insights(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var body planner.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, models.CurrencyEUR, body.Plan.Currency)
	assert.Equal(t, planner.NarrativeTemplate, body.NarrativeSource)
	assert.NotEmpty(t, body.Narrative)
	assert.Equal(t, planner.HorizonDays, body.IncomeForecast.HorizonDays)
}
