package ai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	content  string
	raw      []byte
	err      error
	messages []Message
}

func (f *fakeClient) Chat(_ context.Context, messages []Message) (string, []byte, error) {
	f.messages = messages
	return f.content, f.raw, f.err
}

// TestExtractJSON проверяет извлечение JSON из ответа модели.
func TestExtractJSON(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"narrative\":\"ok\"}\n```": `{"narrative":"ok"}`,
		"Sure! {\"narrative\":\"ok\"} bye":      `{"narrative":"ok"}`,
		"no json here":                          "",
		"   ":                                   "",
	}

	for input, want := range cases {
		assert.Equal(t, want, extractJSON(input), input)
	}
}

// TestRephraseNarrative проверяет успешный пересказ.
func TestRephraseNarrative(t *testing.T) {
	client := &fakeClient{content: "```json\n{\"narrative\":\"  Keep €90.00 aside.  \"}\n```", raw: []byte(`{"id":"1"}`)}
	service := NewService(client, "gemini", "gemini-2.5-flash")

	narrative, exchange, err := service.RephraseNarrative(context.Background(), NarrativeInput{Currency: "eur", Narrative: "Save €90.00"})
	require.NoError(t, err)

	assert.Equal(t, "Keep €90.00 aside.", narrative)
	assert.Equal(t, "gemini", exchange.Provider)
	assert.Contains(t, exchange.Prompt, "in EUR")
	assert.Equal(t, `{"id":"1"}`, string(exchange.Raw))
	require.Len(t, client.messages, 2)
	assert.Equal(t, "system", client.messages[0].Role)
}

// TestRephraseNarrativeErrors проверяет ошибки клиента и пустой ответ.
func TestRephraseNarrativeErrors(t *testing.T) {
	service := NewService(&fakeClient{err: errors.New("boom"), raw: []byte("oops")}, "groq", "llama")
	_, exchange, err := service.RephraseNarrative(context.Background(), NarrativeInput{Narrative: "x"})
	require.Error(t, err)
	assert.Equal(t, "oops", string(exchange.Raw))

	service = NewService(&fakeClient{content: `{"narrative":"  "}`}, "groq", "llama")
	_, _, err = service.RephraseNarrative(context.Background(), NarrativeInput{Narrative: "x"})
	assert.ErrorIs(t, err, ErrEmptyNarrative)
}

// TestGroqClientChat проверяет разбор ответа и ошибок Groq.
func TestGroqClientChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"invalid key"}}`))
			return
		}
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"narrative\":\"hi\"}"}}]}`))
	}))
	defer server.Close()

	client := NewGroqClient("secret", server.URL+"/", "llama", time.Second, 0)
	content, _, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "hello"}})
	require.NoError(t, err)
	assert.Equal(t, `{"narrative":"hi"}`, content)

	bad := NewGroqClient("wrong", server.URL, "llama", time.Second, 0)
	_, _, err = bad.Chat(context.Background(), []Message{{Role: "user", Content: "hello"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid key")
}

// TestBuildGeminiRequest проверяет раскладку ролей.
func TestBuildGeminiRequest(t *testing.T) {
	request, err := buildGeminiRequest([]Message{
		{Role: "system", Content: "rules"},
		{Role: "user", Content: "question"},
		{Role: "assistant", Content: "answer"},
		{Role: "user", Content: "  "},
	}, 256)
	require.NoError(t, err)

	require.NotNil(t, request.SystemInstruction)
	require.Len(t, request.Contents, 2)
	assert.Equal(t, "model", request.Contents[1].Role)
	assert.Equal(t, 256, request.GenerationConfig.MaxOutputTokens)

	_, err = buildGeminiRequest([]Message{{Role: "system", Content: "only"}}, 10)
	assert.Error(t, err)
}
