package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"example.com/fintant/backend/internal/config"
)

const defaultMaxTokens = 1024

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Client interface {
	Chat(ctx context.Context, messages []Message) (string, []byte, error)
}

// NewClient выбирает клиента по провайдеру из конфигурации.
func NewClient(cfg config.AIConfig) Client {
	switch strings.ToLower(cfg.Provider) {
	case "groq":
		return NewGroqClient(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Timeout, cfg.MaxOutputTokens)
	default:
		return NewGeminiClient(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Timeout, cfg.MaxOutputTokens)
	}
}

func resolveMaxTokens(value int) int {
	if value > 0 {
		return value
	}

	return defaultMaxTokens
}

// postJSON отправляет JSON-запрос и возвращает тело ответа; для ответов не 2xx
// ошибка собирается через describe.
func postJSON(ctx context.Context, client *http.Client, endpoint string, headers map[string]string, payload interface{}, describe func(body []byte) string) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	request.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		request.Header.Set(key, value)
	}

	response, err := client.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, err
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		message := describe(body)
		if message == "" {
			message = strings.TrimSpace(string(body))
		}
		return body, fmt.Errorf("api error (status %d): %s", response.StatusCode, message)
	}

	return body, nil
}
