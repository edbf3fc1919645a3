package generation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storigrad-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *YandexClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewYandexClient(YandexConfig{
		APIKey:  "test-key",
		Project: "test-project",
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
	}, zap.NewNop())
}

func TestYandexClientRespondDirectText(t *testing.T) {
	var gotReq responsesAPIRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/responses", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "test-project", r.Header.Get("OpenAI-Project"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(map[string]any{
			"id":          "resp-2",
			"output_text": "Тропа уводит в туман.",
		})
	})

	resp, err := client.Respond(context.Background(), PromptRequest{
		PromptID:           "prompt-1",
		Variables:          map[string]string{"user": "Рина", "mode": "dialogue"},
		Input:              "MODE: dialogue\nUSER_TURN: Привет",
		PreviousResponseID: "resp-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "resp-2", resp.ID)
	assert.Equal(t, "Тропа уводит в туман.", resp.Text)

	// Запрос переносит prompt id, переменные и continuation token
	assert.Equal(t, "prompt-1", gotReq.Prompt.ID)
	assert.Equal(t, "Рина", gotReq.Prompt.Variables["user"])
	assert.Equal(t, "resp-1", gotReq.PreviousResponseID)
}

func TestYandexClientRespondNestedText(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// Форма ответа без output_text - текст вложен в output[0].content[0].text
		json.NewEncoder(w).Encode(map[string]any{
			"id": "resp-3",
			"output": []map[string]any{
				{"content": []map[string]any{{"text": "Вложенный текст."}}},
			},
		})
	})

	resp, err := client.Respond(context.Background(), PromptRequest{PromptID: "p", Input: "x"})

	require.NoError(t, err)
	assert.Equal(t, "Вложенный текст.", resp.Text)
}

func TestYandexClientRespondPrefersDirectText(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"id":          "resp-4",
			"output_text": "прямой",
			"output": []map[string]any{
				{"content": []map[string]any{{"text": "вложенный"}}},
			},
		})
	})

	resp, err := client.Respond(context.Background(), PromptRequest{PromptID: "p", Input: "x"})

	require.NoError(t, err)
	assert.Equal(t, "прямой", resp.Text)
}

func TestYandexClientRespondServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := client.Respond(context.Background(), PromptRequest{PromptID: "p", Input: "x"})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenerationFailed)
}

func TestYandexClientRespondEmptyText(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"id": "resp-5"})
	})

	_, err := client.Respond(context.Background(), PromptRequest{PromptID: "p", Input: "x"})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenerationFailed)
}

func TestYandexClientNotConfigured(t *testing.T) {
	client := NewYandexClient(YandexConfig{}, zap.NewNop())

	err := client.Ready()
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrGenerationNotConfigured)

	_, err = client.Respond(context.Background(), PromptRequest{PromptID: "p", Input: "x"})
	assert.ErrorIs(t, err, models.ErrGenerationNotConfigured)
}
