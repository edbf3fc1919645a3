package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"storigrad-server/internal/models"

	"go.uber.org/zap"
)

// ErrGenerationFailed - любая ошибка вызова провайдера генерации
// (транспорт, таймаут, неожиданный статус, пустой ответ).
var ErrGenerationFailed = errors.New("ошибка генерации текста провайдером")

// YandexConfig содержит настройки клиента Responses API.
type YandexConfig struct {
	APIKey  string
	Project string
	BaseURL string
	Timeout time.Duration
}

// YandexClient - клиент Yandex Cloud Responses API.
// Создается один раз при старте процесса и передается в сервисы явно.
type YandexClient struct {
	httpClient *http.Client
	cfg        YandexConfig
	logger     *zap.Logger
}

// NewYandexClient creates a new Responses API client.
func NewYandexClient(cfg YandexConfig, logger *zap.Logger) *YandexClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://rest-assistant.api.cloud.yandex.net/v1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &YandexClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		logger:     logger.Named("YandexClient"),
	}
}

// Ready проверяет наличие обязательных реквизитов провайдера.
// Их отсутствие - жесткая ошибка конкретного вызова генерации.
func (c *YandexClient) Ready() error {
	if c.cfg.APIKey == "" {
		return fmt.Errorf("%w: не задан YANDEX_CLOUD_API_KEY", models.ErrGenerationNotConfigured)
	}
	if c.cfg.Project == "" {
		return fmt.Errorf("%w: не задан YANDEX_CLOUD_PROJECT", models.ErrGenerationNotConfigured)
	}
	return nil
}

// Структуры запроса/ответа Responses API.

type responsesAPIPrompt struct {
	ID        string            `json:"id"`
	Variables map[string]string `json:"variables,omitempty"`
}

type responsesAPIRequest struct {
	Prompt             responsesAPIPrompt `json:"prompt"`
	Input              string             `json:"input"`
	PreviousResponseID string             `json:"previous_response_id,omitempty"`
}

// Ответ может отдавать текст напрямую в output_text или вложенно
// в output[0].content[0].text - принимаем обе формы.
type responsesAPIResponse struct {
	ID         string `json:"id"`
	OutputText string `json:"output_text"`
	Output     []struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
}

func (r *responsesAPIResponse) text() string {
	if r.OutputText != "" {
		return r.OutputText
	}
	if len(r.Output) > 0 && len(r.Output[0].Content) > 0 {
		return r.Output[0].Content[0].Text
	}
	return ""
}

// Respond выполняет один блокирующий вызов генерации.
func (c *YandexClient) Respond(ctx context.Context, req PromptRequest) (*PromptResponse, error) {
	if err := c.Ready(); err != nil {
		return nil, err
	}

	body, err := json.Marshal(responsesAPIRequest{
		Prompt: responsesAPIPrompt{
			ID:        req.PromptID,
			Variables: req.Variables,
		},
		Input:              req.Input,
		PreviousResponseID: req.PreviousResponseID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: сериализация запроса: %v", ErrGenerationFailed, err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/responses"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: создание запроса: %v", ErrGenerationFailed, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	httpReq.Header.Set("OpenAI-Project", c.cfg.Project)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("Responses API request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("Failed to read Responses API body", zap.Error(err))
		return nil, fmt.Errorf("%w: чтение ответа: %v", ErrGenerationFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Responses API returned non-OK status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", truncate(respBody, 512)))
		return nil, fmt.Errorf("%w: статус %d", ErrGenerationFailed, resp.StatusCode)
	}

	var apiResp responsesAPIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		c.logger.Error("Failed to decode Responses API body", zap.Error(err))
		return nil, fmt.Errorf("%w: разбор ответа: %v", ErrGenerationFailed, err)
	}

	text := apiResp.text()
	if text == "" {
		c.logger.Error("Responses API returned no text", zap.String("responseID", apiResp.ID))
		return nil, fmt.Errorf("%w: пустой ответ", ErrGenerationFailed)
	}

	c.logger.Debug("Responses API call succeeded",
		zap.String("responseID", apiResp.ID),
		zap.Duration("duration", time.Since(start)))

	return &PromptResponse{ID: apiResp.ID, Text: text}, nil
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
