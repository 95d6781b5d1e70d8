package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const maxNarrativeLength = 2000

var ErrEmptyNarrative = errors.New("ai narrative is empty")

type Service struct {
	client   Client
	provider string
	model    string
}

// NewService создает сервис пересказа планов.
func NewService(client Client, provider, model string) *Service {
	return &Service{client: client, provider: provider, model: model}
}

// RephraseNarrative просит модель переписать шаблонный текст плана, не меняя сумм.
func (s *Service) RephraseNarrative(ctx context.Context, input NarrativeInput) (string, Exchange, error) {
	exchange := Exchange{Provider: s.provider, Model: s.model}

	prompt, err := buildNarrativePrompt(input)
	if err != nil {
		return "", exchange, err
	}
	exchange.Prompt = prompt

	messages := []Message{
		{Role: "system", Content: "You are a friendly personal finance coach. Respond with JSON only, without extra text."},
		{Role: "user", Content: prompt},
	}

	content, raw, err := s.client.Chat(ctx, messages)
	exchange.Raw = raw
	if err != nil {
		return "", exchange, err
	}

	var response NarrativeResponse
	if err := parseJSON(content, &response); err != nil {
		return "", exchange, err
	}

	narrative, err := normalizeNarrative(response.Narrative)
	if err != nil {
		return "", exchange, err
	}

	return narrative, exchange, nil
}

func buildNarrativePrompt(input NarrativeInput) (string, error) {
	payload, err := json.MarshalIndent(input, "", "  ")
	if err != nil {
		return "", err
	}

	prompt := fmt.Sprintf(`Rewrite the 14-day money plan below for the user.

Requirements:
- Output JSON only, no code fences, no extra text.
- Schema: {"narrative": string}
- Keep every amount, date and percentage exactly as given, in %s.
- Plain text, short lines, at most 8 lines.
- Never promise that money will be moved without the user's approval.

Input:
%s`, strings.ToUpper(input.Currency), string(payload))

	return prompt, nil
}

func normalizeNarrative(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", ErrEmptyNarrative
	}
	if len(trimmed) > maxNarrativeLength {
		return "", fmt.Errorf("ai narrative is too long: %d bytes", len(trimmed))
	}

	return trimmed, nil
}

func parseJSON(input string, target interface{}) error {
	payload := extractJSON(input)
	if payload == "" {
		return errors.New("ai response does not contain json")
	}

	return json.Unmarshal([]byte(payload), target)
}

func extractJSON(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}

	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimPrefix(strings.TrimSpace(trimmed), "json")
		trimmed = strings.TrimSpace(trimmed)
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
		trimmed = strings.TrimSpace(trimmed)
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return ""
	}

	return trimmed[start : end+1]
}
