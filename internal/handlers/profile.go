package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/fintant/backend/internal/cache"
	"example.com/fintant/backend/internal/models"
	"example.com/fintant/backend/internal/notifications"
	"example.com/fintant/backend/internal/onboarding"
	"example.com/fintant/backend/internal/repository"
)

type ProfileHandler struct {
	Profiles ProfileStore
	Notifier *notifications.Hub
	Cache    *cache.Cache
	Logger   *slog.Logger
}

// NewProfileHandler создает обработчик профиля и настроек.
func NewProfileHandler(profiles ProfileStore, notifier *notifications.Hub, responses *cache.Cache, logger *slog.Logger) *ProfileHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileHandler{Profiles: profiles, Notifier: notifier, Cache: responses, Logger: logger}
}

// SettingsRequest частичное обновление: отсутствующие поля не меняются.
type SettingsRequest struct {
	FinancialFocus         *string `json:"financial_focus"`
	Currency               *string `json:"currency"`
	ExpenseAutofundPercent *int    `json:"expense_autofund_percent"`
	LowBalanceAlerts       *bool   `json:"low_balance_alerts"`
	GoalReminders          *bool   `json:"goal_reminders"`
	UpcomingExpenseAlerts  *bool   `json:"upcoming_expense_alerts"`
	InvestmentMode         *string `json:"investment_mode"`
}

type ProfileResponse struct {
	UserID              uuid.UUID          `json:"user_id"`
	Answers             onboarding.Answers `json:"answers"`
	OnboardingCompleted bool               `json:"onboarding_completed"`
	FinancialFocus      *string            `json:"financial_focus"`
	Settings            models.Settings    `json:"settings"`
	CurrencySymbol      string             `json:"currency_symbol"`
	UpdatedAt           time.Time          `json:"updated_at"`
}

// Get возвращает профиль текущего пользователя.
func (h *ProfileHandler) Get(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	if cached, ok := h.Cache.Get(userID, cache.KeyProfile); ok {
		if response, ok := cached.(ProfileResponse); ok {
			return c.JSON(http.StatusOK, response)
		}
	}

	profile, err := h.Profiles.Get(c.Request().Context(), userID)
	if err != nil {
		return h.storeError(c, err)
	}

	response := toProfileResponse(profile)
	h.Cache.Set(userID, cache.KeyProfile, response)
	return c.JSON(http.StatusOK, response)
}

// UpdateSettings сохраняет настройки и финансовый фокус.
func (h *ProfileHandler) UpdateSettings(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	var req SettingsRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}

	ctx := c.Request().Context()
	profile, err := h.Profiles.Get(ctx, userID)
	if err != nil {
		return h.storeError(c, err)
	}

	settings := profile.Settings
	if req.Currency != nil {
		settings.Currency = models.Currency(strings.ToLower(strings.TrimSpace(*req.Currency)))
	}
	if req.ExpenseAutofundPercent != nil {
		settings.ExpenseAutofundPercent = *req.ExpenseAutofundPercent
	}
	if req.LowBalanceAlerts != nil {
		settings.LowBalanceAlerts = *req.LowBalanceAlerts
	}
	if req.GoalReminders != nil {
		settings.GoalReminders = *req.GoalReminders
	}
	if req.UpcomingExpenseAlerts != nil {
		settings.UpcomingExpenseAlerts = *req.UpcomingExpenseAlerts
	}
	if req.InvestmentMode != nil {
		mode := models.InvestmentMode(strings.ToLower(strings.TrimSpace(*req.InvestmentMode)))
		settings.InvestmentMode = &mode
	}

	focus := profile.FinancialFocus
	if req.FinancialFocus != nil {
		trimmed := strings.TrimSpace(*req.FinancialFocus)
		focus = &trimmed
		if trimmed == "" {
			focus = nil
		}
	}

	candidate := profile
	candidate.FinancialFocus = focus
	candidate.Settings = settings
	if err := c.Validate(&candidate); err != nil {
		return validationFailed(c, err)
	}

	updated, err := h.Profiles.UpdateSettings(ctx, userID, focus, settings)
	if err != nil {
		if errors.Is(err, repository.ErrSchema) {
			return fieldError(c, "financial_focus", "oneof")
		}
		return h.storeError(c, err)
	}

	h.Cache.InvalidateUser(userID)
	h.Notifier.Changed(userID, notifications.EventProfileChanged, userID)
	return c.JSON(http.StatusOK, toProfileResponse(updated))
}

func (h *ProfileHandler) storeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return notFound(c, "profile not found")
	case errors.Is(err, repository.ErrInvalid):
		return badRequest(c, "invalid settings")
	default:
		h.Logger.ErrorContext(c.Request().Context(), "profile store failed", slog.String("error", err.Error()))
		return serverError(c)
	}
}

func toProfileResponse(profile models.Profile) ProfileResponse {
	return ProfileResponse{
		UserID:              profile.UserID,
		Answers:             onboarding.FromModel(profile.Answers),
		OnboardingCompleted: profile.OnboardingCompleted,
		FinancialFocus:      profile.FinancialFocus,
		Settings:            profile.Settings,
		CurrencySymbol:      profile.Settings.Currency.Symbol(),
		UpdatedAt:           profile.UpdatedAt,
	}
}
