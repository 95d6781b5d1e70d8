package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"example.com/fintant/backend/internal/ai"
	"example.com/fintant/backend/internal/repository"
)

// RequestLogger сохраняет обращения к модели.
type RequestLogger interface {
	LogRequest(ctx context.Context, log repository.AIRequestLog) error
}

// AINarrator пересказывает план через ai.Service и пишет каждый вызов в журнал.
type AINarrator struct {
	service *ai.Service
	log     RequestLogger
	logger  *slog.Logger
}

// NewAINarrator создает пересказчик на базе AI-сервиса.
func NewAINarrator(service *ai.Service, log RequestLogger, logger *slog.Logger) *AINarrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &AINarrator{service: service, log: log, logger: logger}
}

// Narrate отправляет шаблонный текст в модель и логирует результат.
func (n *AINarrator) Narrate(ctx context.Context, userID uuid.UUID, result Result) (string, error) {
	input := ai.NarrativeInput{
		Currency:  string(result.Plan.Currency),
		Narrative: result.Narrative,
		Facts:     facts(result),
	}

	narrative, exchange, err := n.service.RephraseNarrative(ctx, input)

	entry := repository.AIRequestLog{
		UserID:      userID,
		RequestType: repository.RequestTypeNarrative,
		Provider:    exchange.Provider,
		Model:       exchange.Model,
		Prompt:      exchange.Prompt,
		RawResponse: string(exchange.Raw),
		Success:     err == nil,
	}
	if err != nil {
		message := err.Error()
		entry.ErrorMessage = &message
	} else if payload, marshalErr := json.Marshal(ai.NarrativeResponse{Narrative: narrative}); marshalErr == nil {
		entry.ResponsePayload = payload
	}

	if n.log != nil {
		if logErr := n.log.LogRequest(ctx, entry); logErr != nil {
			n.logger.ErrorContext(ctx, "failed to log ai request", slog.String("error", logErr.Error()))
		}
	}

	if err != nil {
		return "", fmt.Errorf("rephrase narrative: %w", err)
	}
	return narrative, nil
}

func facts(result Result) []string {
	currency := result.Plan.Currency
	out := []string{
		fmt.Sprintf("buffer_target=%s", FormatMoney(currency, result.Plan.BufferTarget)),
		fmt.Sprintf("shortfall=%s", FormatMoney(currency, result.Plan.Shortfall)),
	}
	for _, action := range result.Plan.Actions {
		out = append(out, fmt.Sprintf("%s=%s", action.Kind, FormatMoney(currency, action.Amount)))
	}
	return out
}
