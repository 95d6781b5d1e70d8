package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/fintant/backend/internal/repository"
)

// AdminStore читает сводные данные для панели администратора.
type AdminStore interface {
	ListUsers(ctx context.Context, limit, offset int) ([]repository.AdminUser, error)
	CountUsers(ctx context.Context) (int, error)
	ListNarrations(ctx context.Context, filter repository.NarrationFilter, limit, offset int, withPrompt bool) ([]repository.Narration, int, error)
	UsageStats(ctx context.Context, days int) (repository.UsageStats, error)
}

type AdminHandler struct {
	Repo AdminStore
}

// NewAdminHandler создает обработчик админских эндпоинтов.
func NewAdminHandler(repo AdminStore) *AdminHandler {
	return &AdminHandler{Repo: repo}
}

type AdminUserResponse struct {
	ID                  uuid.UUID `json:"id"`
	Email               string    `json:"email"`
	OnboardingCompleted bool      `json:"onboarding_completed"`
	Buckets             int       `json:"buckets"`
	Rules               int       `json:"rules"`
	CreatedAt           string    `json:"created_at"`
	UpdatedAt           string    `json:"updated_at"`
}

type AdminUsersResponse struct {
	Total int                 `json:"total"`
	Users []AdminUserResponse `json:"users"`
}

// NarrationOutcome показывает, чем закончился пересказ: текст модели или шаблон.
type NarrationOutcome string

const (
	OutcomeRephrased NarrationOutcome = "rephrased"
	OutcomeFallback  NarrationOutcome = "fallback"
)

type AdminNarrationResponse struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"user_id"`
	Provider  string           `json:"provider"`
	Model     string           `json:"model"`
	Outcome   NarrationOutcome `json:"outcome"`
	Error     *string          `json:"error,omitempty"`
	Narrative *string          `json:"narrative,omitempty"`
	Prompt    *string          `json:"prompt,omitempty"`
	CreatedAt string           `json:"created_at"`
}

type AdminNarrationsResponse struct {
	Total      int                      `json:"total"`
	Narrations []AdminNarrationResponse `json:"narrations"`
}

type AdminUsageDay struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type AdminUsageResponse struct {
	Users           int             `json:"users"`
	Onboarded       int             `json:"onboarded"`
	Buckets         int             `json:"buckets"`
	Rules           int             `json:"rules"`
	EnabledRules    int             `json:"enabled_rules"`
	Narrations      int             `json:"narrations"`
	Rephrased       int             `json:"rephrased"`
	Fallbacks       int             `json:"fallbacks"`
	NarrationsByDay []AdminUsageDay `json:"narrations_by_day"`
}

// ListUsers возвращает список пользователей для админки.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	limit, offset, err := parsePagination(c, 50, 200)
	if err != nil {
		return badRequest(c, err.Error())
	}

	users, err := h.Repo.ListUsers(c.Request().Context(), limit, offset)
	if err != nil {
		return serverError(c)
	}

	total, err := h.Repo.CountUsers(c.Request().Context())
	if err != nil {
		return serverError(c)
	}

	response := make([]AdminUserResponse, 0, len(users))
	for _, user := range users {
		response = append(response, AdminUserResponse{
			ID:                  user.ID,
			Email:               user.Email,
			OnboardingCompleted: user.OnboardingCompleted,
			Buckets:             user.Buckets,
			Rules:               user.Rules,
			CreatedAt:           user.CreatedAt.Format(timeLayout),
			UpdatedAt:           user.UpdatedAt.Format(timeLayout),
		})
	}

	return c.JSON(http.StatusOK, AdminUsersResponse{
		Total: total,
		Users: response,
	})
}

// ListNarrations возвращает журнал пересказов плана.
// Фильтры: user_id, outcome (rephrased|fallback), provider; prompt=true добавляет текст запроса.
func (h *AdminHandler) ListNarrations(c echo.Context) error {
	limit, offset, err := parsePagination(c, 50, 200)
	if err != nil {
		return badRequest(c, err.Error())
	}

	filter := repository.NarrationFilter{}
	if raw := strings.TrimSpace(c.QueryParam("user_id")); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			return badRequest(c, "invalid user_id")
		}
		filter.UserID = &parsed
	}

	switch NarrationOutcome(strings.ToLower(strings.TrimSpace(c.QueryParam("outcome")))) {
	case "":
	case OutcomeRephrased:
		success := true
		filter.Success = &success
	case OutcomeFallback:
		success := false
		filter.Success = &success
	default:
		return badRequest(c, "invalid outcome")
	}

	if raw := strings.TrimSpace(c.QueryParam("provider")); raw != "" {
		filter.Provider = &raw
	}

	withPrompt := false
	if raw := strings.TrimSpace(c.QueryParam("prompt")); raw != "" {
		if withPrompt, err = strconv.ParseBool(raw); err != nil {
			return badRequest(c, "invalid prompt")
		}
	}

	narrations, total, err := h.Repo.ListNarrations(c.Request().Context(), filter, limit, offset, withPrompt)
	if err != nil {
		return serverError(c)
	}

	response := make([]AdminNarrationResponse, 0, len(narrations))
	for _, item := range narrations {
		outcome := OutcomeFallback
		if item.Success {
			outcome = OutcomeRephrased
		}
		response = append(response, AdminNarrationResponse{
			ID:        item.ID,
			UserID:    item.UserID,
			Provider:  item.Provider,
			Model:     item.Model,
			Outcome:   outcome,
			Error:     item.ErrorMessage,
			Narrative: item.Narrative,
			Prompt:    item.Prompt,
			CreatedAt: item.CreatedAt.Format(timeLayout),
		})
	}

	return c.JSON(http.StatusOK, AdminNarrationsResponse{
		Total:      total,
		Narrations: response,
	})
}

// Usage возвращает агрегированную статистику использования.
func (h *AdminHandler) Usage(c echo.Context) error {
	days := 7
	if raw := strings.TrimSpace(c.QueryParam("days")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return badRequest(c, "invalid days")
		}
		if parsed > 30 {
			parsed = 30
		}
		days = parsed
	}

	stats, err := h.Repo.UsageStats(c.Request().Context(), days)
	if err != nil {
		if errors.Is(err, repository.ErrInvalid) {
			return badRequest(c, "invalid days")
		}
		return serverError(c)
	}

	daysResponse := make([]AdminUsageDay, 0, len(stats.NarrationsByDay))
	for _, day := range stats.NarrationsByDay {
		daysResponse = append(daysResponse, AdminUsageDay{
			Date:  day.Day.Format(dateLayout),
			Count: day.Count,
		})
	}

	return c.JSON(http.StatusOK, AdminUsageResponse{
		Users:           stats.Users,
		Onboarded:       stats.Onboarded,
		Buckets:         stats.Buckets,
		Rules:           stats.Rules,
		EnabledRules:    stats.EnabledRules,
		Narrations:      stats.Narrations,
		Rephrased:       stats.Rephrased,
		Fallbacks:       stats.Fallbacks,
		NarrationsByDay: daysResponse,
	})
}

// AdminMiddleware ограничивает доступ к админским роутам по email.
func AdminMiddleware(users UserStore, emails []string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(emails))
	for _, email := range emails {
		trimmed := strings.ToLower(strings.TrimSpace(email))
		if trimmed == "" {
			continue
		}
		allowed[trimmed] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, ok := currentUser(c)
			if !ok {
				return unauthorized(c)
			}

			if len(allowed) == 0 {
				return forbidden(c)
			}

			user, err := users.GetByID(c.Request().Context(), userID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return forbidden(c)
				}
				return serverError(c)
			}

			email := strings.ToLower(strings.TrimSpace(user.Email))
			if _, ok := allowed[email]; !ok {
				return forbidden(c)
			}

			return next(c)
		}
	}
}

func parsePagination(c echo.Context, defaultLimit, maxLimit int) (int, int, error) {
	limit := defaultLimit
	if raw := strings.TrimSpace(c.QueryParam("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return 0, 0, errors.New("invalid limit")
		}
		if parsed > maxLimit {
			parsed = maxLimit
		}
		limit = parsed
	}

	offset := 0
	if raw := strings.TrimSpace(c.QueryParam("offset")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return 0, 0, errors.New("invalid offset")
		}
		offset = parsed
	}

	return limit, offset, nil
}
