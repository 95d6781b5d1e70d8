package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"example.com/fintant/backend/internal/cache"
	"example.com/fintant/backend/internal/gate"
	"example.com/fintant/backend/internal/notifications"
	"example.com/fintant/backend/internal/onboarding"
	"example.com/fintant/backend/internal/repository"
)

type OnboardingHandler struct {
	Catalog  *onboarding.Catalog
	Profiles ProfileStore
	Notifier *notifications.Hub
	Cache    *cache.Cache
	Logger   *slog.Logger
}

// NewOnboardingHandler создает обработчик анкеты онбординга.
func NewOnboardingHandler(catalog *onboarding.Catalog, profiles ProfileStore, notifier *notifications.Hub, responses *cache.Cache, logger *slog.Logger) *OnboardingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnboardingHandler{Catalog: catalog, Profiles: profiles, Notifier: notifier, Cache: responses, Logger: logger}
}

type AnswersRequest struct {
	Answers onboarding.Answers `json:"answers"`
}

type CompleteResponse struct {
	Profile  ProfileResponse `json:"profile"`
	Redirect string          `json:"redirect"`
}

type IncompleteResponse struct {
	Error string               `json:"error"`
	Check onboarding.StepCheck `json:"check"`
}

// Questions возвращает шаги анкеты с вопросами и вариантами.
func (h *OnboardingHandler) Questions(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Catalog)
}

// CheckStep проверяет ответы одного шага. Ответы не сохраняются, поэтому
// возврат на предыдущий шаг ничего не теряет.
func (h *OnboardingHandler) CheckStep(c echo.Context) error {
	step, err := strconv.Atoi(c.Param("step"))
	if err != nil {
		return badRequest(c, "invalid step")
	}

	var req AnswersRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}

	check, err := h.Catalog.Check(step, req.Answers)
	if err != nil {
		if errors.Is(err, onboarding.ErrUnknownStep) {
			return notFound(c, "step not found")
		}
		return serverError(c)
	}

	return c.JSON(http.StatusOK, check)
}

// Complete сохраняет все ответы и отмечает онбординг завершенным.
func (h *OnboardingHandler) Complete(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	var req AnswersRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}

	if check, err := h.Catalog.Validate(req.Answers); err != nil {
		if errors.Is(err, onboarding.ErrIncomplete) {
			return c.JSON(http.StatusUnprocessableEntity, IncompleteResponse{Error: "onboarding is incomplete", Check: check})
		}
		return serverError(c)
	}

	profile, err := h.Profiles.CompleteOnboarding(c.Request().Context(), userID, req.Answers.Model())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "profile not found")
		}
		if errors.Is(err, repository.ErrInvalid) || errors.Is(err, repository.ErrSchema) {
			return badRequest(c, "invalid answers")
		}
		h.Logger.ErrorContext(c.Request().Context(), "failed to complete onboarding", slog.String("error", err.Error()))
		return serverError(c)
	}

	h.Notifier.Changed(userID, notifications.EventProfileChanged, userID)
	h.Cache.InvalidateUser(userID)

	return c.JSON(http.StatusOK, CompleteResponse{
		Profile:  toProfileResponse(profile),
		Redirect: gate.HomePath,
	})
}
