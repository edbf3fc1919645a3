package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"storigrad-server/internal/generation"
	"storigrad-server/internal/models"
	"storigrad-server/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Режимы интерпретации пользовательского ввода.
// Режим меняет только инструкцию генератору, не поток управления.
const (
	ModeDialogue  = "dialogue"
	ModeNarration = "narration"
	ModeDirective = "directive"
)

// NarratorUnavailableReply - фиксированный ответ пользователю при любой
// ошибке провайдера генерации. Причина скрывается намеренно: повлиять
// на внешнюю зависимость вызывающий не может.
const NarratorUnavailableReply = "Сейчас рассказчик недоступен, попробуйте ещё раз позже."

// TurnGenerator - провайдер генерации ходов.
type TurnGenerator interface {
	// Ready сообщает, заданы ли обязательные реквизиты провайдера.
	Ready() error
	Respond(ctx context.Context, req generation.PromptRequest) (*generation.PromptResponse, error)
}

// StorytellerService продвигает историю на один ход.
type StorytellerService interface {
	// AdvanceTurn выполняет один ход: собирает контекст истории, вызывает
	// провайдера и дописывает пару (ввод, ответ) в лог ходов.
	// При ошибке провайдера возвращает NarratorUnavailableReply и ничего
	// не сохраняет.
	AdvanceTurn(ctx context.Context, storyID, userID uuid.UUID, userInput, mode string) (string, error)
}

// Compile-time check
var _ StorytellerService = (*storytellerServiceImpl)(nil)

type storytellerServiceImpl struct {
	storyRepo       repository.StoryRepository
	turnLogRepo     repository.TurnLogRepository
	generator       TurnGenerator
	defaultPromptID string
	logger          *zap.Logger

	// Последовательность "прочитать токен - вызвать провайдера - дописать ход"
	// это read-modify-write поверх сетевого вызова. Per-story мьютекс
	// сериализует конкурентные ходы одной истории: иначе ходы ложатся в лог
	// в порядке завершения, а устаревший ответ может затереть свежий токен.
	locks storyLocks
}

// storyLocks выдает мьютексы по id истории. Записи считаются по ссылкам:
// последний держатель удаляет запись, поэтому таблица не растет
// с числом когда-либо сыгранных историй.
type storyLocks struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*storyLockEntry
}

type storyLockEntry struct {
	mu   sync.Mutex
	refs int
}

func (l *storyLocks) lock(id uuid.UUID) *storyLockEntry {
	l.mu.Lock()
	if l.entries == nil {
		l.entries = make(map[uuid.UUID]*storyLockEntry)
	}
	e, ok := l.entries[id]
	if !ok {
		e = &storyLockEntry{}
		l.entries[id] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return e
}

func (l *storyLocks) unlock(id uuid.UUID, e *storyLockEntry) {
	e.mu.Unlock()

	l.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, id)
	}
	l.mu.Unlock()
}

func (l *storyLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// NewStorytellerService creates a new instance of storytellerServiceImpl.
func NewStorytellerService(
	storyRepo repository.StoryRepository,
	turnLogRepo repository.TurnLogRepository,
	generator TurnGenerator,
	defaultPromptID string,
	logger *zap.Logger,
) StorytellerService {
	return &storytellerServiceImpl{
		storyRepo:       storyRepo,
		turnLogRepo:     turnLogRepo,
		generator:       generator,
		defaultPromptID: defaultPromptID,
		logger:          logger.Named("StorytellerService"),
	}
}

// AdvanceTurn advances a story by one exchange with the narrator.
func (s *storytellerServiceImpl) AdvanceTurn(ctx context.Context, storyID, userID uuid.UUID, userInput, mode string) (string, error) {
	userInput = strings.TrimSpace(userInput)
	if userInput == "" {
		return "", fmt.Errorf("пустой ввод пользователя: %w", models.ErrInvalidInput)
	}

	switch mode {
	case "":
		mode = ModeDialogue
	case ModeDialogue, ModeNarration, ModeDirective:
	default:
		return "", fmt.Errorf("неизвестный режим %q: %w", mode, models.ErrInvalidInput)
	}

	log := s.logger.With(zap.String("storyID", storyID.String()), zap.String("userID", userID.String()), zap.String("mode", mode))

	entry := s.locks.lock(storyID)
	defer s.locks.unlock(storyID, entry)

	// 1. История должна принадлежать вызывающему; шаблоны не играются напрямую
	story, err := s.storyRepo.GetByID(ctx, storyID)
	if err != nil {
		return "", err
	}
	if story.IsTemplate() || *story.OwnerID != userID {
		return "", models.ErrStoryNotFound
	}

	// 2. Обязательные реквизиты провайдера - жесткая ошибка этого вызова
	promptID := story.Config.AgentPromptID
	if promptID == "" {
		promptID = s.defaultPromptID
	}
	if promptID == "" {
		return "", fmt.Errorf("%w: не задан agent prompt id", models.ErrGenerationNotConfigured)
	}
	if err := s.generator.Ready(); err != nil {
		return "", err
	}

	// 3. Continuation token предыдущего хода (пустой на первом ходе)
	prevResponseID, err := s.turnLogRepo.GetLastResponseID(ctx, storyID)
	if err != nil {
		return "", err
	}

	req, err := s.buildRequest(story, promptID, prevResponseID, userInput, mode)
	if err != nil {
		return "", err
	}

	// 4. Блокирующий вызов провайдера. Любая его ошибка превращается
	// в фиксированный ответ, ход не сохраняется.
	resp, err := s.generator.Respond(ctx, req)
	if err != nil {
		if errors.Is(err, models.ErrGenerationNotConfigured) {
			return "", err
		}
		log.Error("Turn generation failed, returning fallback reply", zap.Error(err))
		return NarratorUnavailableReply, nil
	}

	// 5. Успех: дописываем ход и новый токен в единственную строку лога
	turn := models.Turn{UserText: userInput, ModelText: resp.Text}
	if err := s.turnLogRepo.AppendTurn(ctx, storyID, turn, resp.ID); err != nil {
		return "", err
	}
	if err := s.storyRepo.Touch(ctx, storyID); err != nil {
		// Ход уже сохранен; устаревший updated_at не стоит ошибки клиенту
		log.Error("Failed to touch story after turn", zap.Error(err))
	}

	log.Info("Turn advanced", zap.String("responseID", resp.ID))
	return resp.Text, nil
}

// buildRequest собирает запрос провайдеру из конфига истории.
func (s *storytellerServiceImpl) buildRequest(story *models.Story, promptID, prevResponseID, userInput, mode string) (generation.PromptRequest, error) {
	cfg := story.Config

	npc := cfg.NPCDescription
	if npc == nil {
		npc = map[string]string{}
	}
	npcJSON, err := json.Marshal(npc)
	if err != nil {
		return generation.PromptRequest{}, fmt.Errorf("сериализация NPC_description: %w", err)
	}

	player := cfg.PlayerDescription
	if player == nil {
		player = map[string]string{}
	}
	playerJSON, err := json.Marshal(player)
	if err != nil {
		return generation.PromptRequest{}, fmt.Errorf("сериализация player_description: %w", err)
	}

	// Переменные agent prompt ожидают плоские строки
	variables := map[string]string{
		"NPC_description":    string(npcJSON),
		"story_description":  cfg.StoryDescription,
		"user":               cfg.PlayerName(),
		"player_description": string(playerJSON),
		"mode":               mode,
	}

	// Стартовая фраза задает первую реплику рассказчика и
	// передается только на первом ходе, пока токена еще нет
	if prevResponseID == "" && cfg.StartPhrase != "" {
		variables["start_phrase"] = cfg.StartPhrase
	}

	return generation.PromptRequest{
		PromptID:           promptID,
		Variables:          variables,
		Input:              fmt.Sprintf("MODE: %s\nUSER_TURN: %s", mode, userInput),
		PreviousResponseID: prevResponseID,
	}, nil
}
