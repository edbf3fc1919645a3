package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"storigrad-server/internal/models"

	"go.uber.org/zap"
)

// assistantSystemPrompt - базовая инструкция помощника заполнения полей.
const assistantSystemPrompt = `Ты — помощник по написанию интерактивных историй. Твоя задача — по краткой заявке пользователя писать законченные тексты для отдельных полей конфигурации истории (описание истории, герой, NPC, стартовая фраза).
Ты всегда учитываешь текущую конфигурацию истории, которая передана в системных сообщениях в формате JSON.
Всегда строго соблюдай формат и ограничения по длине, указанные в запросе.
Пиши по-русски, литературным, но понятным языком. Не используй списки и не добавляй пояснений от себя.
Не используй много творческих оборотов. Пиши так, будто продолжаешь идею пользователя.
Если пользователь использует какую-то существующую вселенную, уточняй информацию об этой вселенной в интернете.`

// placeholderInstruction добавляется к каждому шаблону поля: имена героя
// и NPC в сгенерированном тексте заменяются маркерами в фигурных скобках.
const placeholderInstruction = " Учитывай общую конфигурацию истории, которая передана в системном сообщении. " +
	"Если в тексте нужно упомянуть героя игрока, всегда используй маркер {{user}} вместо имени. " +
	"Если нужно упомянуть любого NPC, используй маркер вида {{Имя_NPC}} в двойных фигурных скобках."

// Внутренние типы полей, к которым нормализуются внешние имена.
var assistantFieldAliases = map[string]string{
	"story_description":  "description",
	"player_description": "player",
	"npc_description":    "npc",
	"start_phrase":       "start",
}

// Шаблоны запроса на генерацию по типу поля. %s - заявка пользователя.
var assistantFieldTemplates = map[string]string{
	"description": "Сделай связное описание истории объёмом не более 15 предложений. " +
		"Используй следующую информацию пользователя как черновик, структурируй и уточни её, " +
		"но не меняй суть и не добавляй новые факты: %s" + placeholderInstruction,
	"player": "Сделай описание персонажа игрока объёмом не более 5 предложений. " +
		"Пиши в третьем лице. Всегда начинай описание текста с имени персонажа.  Используй" +
		" следующую информацию пользователя: %s" + placeholderInstruction,
	"npc": "Сделай описание NPC объёмом не более 5 предложений. Пиши в третьем лице. " +
		"NPC должен быть индивидуальным, но не добавляй новых фактов. " +
		"Информация пользователя: %s" + placeholderInstruction,
	"start": "Сделай стартовую фразу истории объёмом не более 3 предложений. " +
		"Это должна быть начальная сцена или реплика, которая плавно вводит игрока в ситуацию. " +
		"Используй следующую информацию пользователя: %s" + placeholderInstruction,
}

// FieldCompleter - клиент chat completions для помощника полей.
type FieldCompleter interface {
	Complete(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

// FieldAssistantService генерирует тексты для отдельных полей конфигурации истории.
type FieldAssistantService interface {
	// GenerateFieldValue пишет законченный текст поля по заявке пользователя.
	// Неизвестный fieldType трактуется как описание истории.
	GenerateFieldValue(ctx context.Context, prompt, fieldType string, storyConfig *models.StoryConfig) (string, error)
}

// Compile-time check
var _ FieldAssistantService = (*fieldAssistantImpl)(nil)

type fieldAssistantImpl struct {
	completer FieldCompleter
	logger    *zap.Logger
}

// NewFieldAssistantService creates a new instance of fieldAssistantImpl.
func NewFieldAssistantService(completer FieldCompleter, logger *zap.Logger) FieldAssistantService {
	return &fieldAssistantImpl{
		completer: completer,
		logger:    logger.Named("FieldAssistantService"),
	}
}

// GenerateFieldValue generates text for a single story config field.
func (s *fieldAssistantImpl) GenerateFieldValue(ctx context.Context, prompt, fieldType string, storyConfig *models.StoryConfig) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", fmt.Errorf("пустая заявка: %w", models.ErrInvalidInput)
	}

	internal := fieldType
	if alias, ok := assistantFieldAliases[fieldType]; ok {
		internal = alias
	}
	template, ok := assistantFieldTemplates[internal]
	if !ok {
		template = assistantFieldTemplates["description"]
	}

	systemPrompt := assistantSystemPrompt
	if storyConfig != nil {
		// Текущий конфиг целиком уходит в системный промт как контекст
		configJSON, err := json.MarshalIndent(storyConfig, "", "  ")
		if err != nil {
			s.logger.Error("Failed to serialize story config for assistant", zap.Error(err))
		} else {
			systemPrompt += "\n\nТекущая конфигурация истории (JSON):\n" + string(configJSON)
		}
	}

	userMessage := fmt.Sprintf(template, prompt)

	text, err := s.completer.Complete(ctx, systemPrompt, userMessage)
	if err != nil {
		return "", err
	}

	s.logger.Info("Field value generated", zap.String("fieldType", fieldType), zap.Int("length", len(text)))
	return text, nil
}
