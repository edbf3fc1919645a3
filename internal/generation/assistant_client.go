package generation

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// AssistantConfig содержит настройки OpenAI-совместимого клиента
// помощника заполнения полей.
type AssistantConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// AssistantClient оборачивает chat completions через OpenAI-совместимый роутер.
type AssistantClient struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewAssistantClient creates a chat completions client.
func NewAssistantClient(cfg AssistantConfig, logger *zap.Logger) *AssistantClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &AssistantClient{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		logger: logger.Named("AssistantClient"),
	}
}

// Complete выполняет один запрос chat completions и возвращает текст ответа.
func (c *AssistantClient) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMessage},
		},
		Temperature: 0.1,
	})
	if err != nil {
		c.logger.Error("Chat completion request failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	if len(resp.Choices) == 0 {
		c.logger.Error("Chat completion returned no choices")
		return "", fmt.Errorf("%w: пустой ответ", ErrGenerationFailed)
	}

	return resp.Choices[0].Message.Content, nil
}
