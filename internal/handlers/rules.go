package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/fintant/backend/internal/models"
	"example.com/fintant/backend/internal/notifications"
	"example.com/fintant/backend/internal/repository"
)

type RuleHandler struct {
	Rules    RuleStore
	Notifier *notifications.Hub
	Logger   *slog.Logger
}

// NewRuleHandler создает обработчик правил автоматизации.
func NewRuleHandler(rules RuleStore, notifier *notifications.Hub, logger *slog.Logger) *RuleHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RuleHandler{Rules: rules, Notifier: notifier, Logger: logger}
}

type RuleRequest struct {
	Name    string `json:"name" validate:"required,max=100"`
	Trigger string `json:"trigger" validate:"required,max=200"`
	Action  string `json:"action" validate:"required,max=200"`
	Enabled *bool  `json:"enabled"`
}

type RuleResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Trigger   string    `json:"trigger"`
	Action    string    `json:"action"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// List возвращает правила пользователя, новые первыми.
func (h *RuleHandler) List(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	rules, err := h.Rules.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return h.storeError(c, err)
	}

	response := make([]RuleResponse, 0, len(rules))
	for _, rule := range rules {
		response = append(response, toRuleResponse(rule))
	}

	return c.JSON(http.StatusOK, map[string][]RuleResponse{"rules": response})
}

// Create создает правило; по умолчанию оно включено.
func (h *RuleHandler) Create(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	input, ok, err := parseRuleInput(c)
	if !ok {
		return err
	}

	rule, err := h.Rules.Create(c.Request().Context(), userID, input)
	if err != nil {
		return h.storeError(c, err)
	}

	h.Notifier.Changed(userID, notifications.EventRulesChanged, rule.ID)
	return c.JSON(http.StatusCreated, toRuleResponse(rule))
}

// Update заменяет поля правила.
func (h *RuleHandler) Update(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	ruleID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid rule id")
	}

	input, ok, err := parseRuleInput(c)
	if !ok {
		return err
	}

	rule, err := h.Rules.Update(c.Request().Context(), userID, ruleID, input)
	if err != nil {
		return h.storeError(c, err)
	}

	h.Notifier.Changed(userID, notifications.EventRulesChanged, rule.ID)
	return c.JSON(http.StatusOK, toRuleResponse(rule))
}

// Toggle переключает признак enabled.
func (h *RuleHandler) Toggle(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	ruleID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid rule id")
	}

	rule, err := h.Rules.Toggle(c.Request().Context(), userID, ruleID)
	if err != nil {
		return h.storeError(c, err)
	}

	h.Notifier.Changed(userID, notifications.EventRulesChanged, rule.ID)
	return c.JSON(http.StatusOK, toRuleResponse(rule))
}

// Delete удаляет правило.
func (h *RuleHandler) Delete(c echo.Context) error {
	userID, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}

	ruleID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid rule id")
	}

	if err := h.Rules.Delete(c.Request().Context(), userID, ruleID); err != nil {
		return h.storeError(c, err)
	}

	h.Notifier.Changed(userID, notifications.EventRulesChanged, ruleID)
	return c.NoContent(http.StatusNoContent)
}

func parseRuleInput(c echo.Context) (repository.RuleInput, bool, error) {
	var req RuleRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return repository.RuleInput{}, false, err
	}

	input := repository.RuleInput{
		Name:    strings.TrimSpace(req.Name),
		Trigger: strings.TrimSpace(req.Trigger),
		Action:  strings.TrimSpace(req.Action),
		Enabled: true,
	}
	if req.Enabled != nil {
		input.Enabled = *req.Enabled
	}

	required := []struct{ field, value string }{
		{"name", input.Name},
		{"trigger", input.Trigger},
		{"action", input.Action},
	}
	for _, r := range required {
		if r.value == "" {
			return repository.RuleInput{}, false, fieldError(c, r.field, "required")
		}
	}

	return input, true, nil
}

func (h *RuleHandler) storeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return notFound(c, "rule not found")
	case errors.Is(err, repository.ErrInvalid), errors.Is(err, repository.ErrSchema):
		return badRequest(c, "invalid rule")
	default:
		h.Logger.ErrorContext(c.Request().Context(), "rule store failed", slog.String("error", err.Error()))
		return serverError(c)
	}
}

func toRuleResponse(rule models.Rule) RuleResponse {
	return RuleResponse{
		ID:        rule.ID,
		Name:      rule.Name,
		Trigger:   rule.Trigger,
		Action:    rule.Action,
		Enabled:   rule.Enabled,
		CreatedAt: rule.CreatedAt,
		UpdatedAt: rule.UpdatedAt,
	}
}
