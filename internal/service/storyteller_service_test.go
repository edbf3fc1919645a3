package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"storigrad-server/internal/generation"
	"storigrad-server/internal/models"
	"storigrad-server/internal/repository/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Mock TurnGenerator
type turnGeneratorMock struct {
	mock.Mock
}

func (m *turnGeneratorMock) Ready() error {
	args := m.Called()
	return args.Error(0)
}
func (m *turnGeneratorMock) Respond(ctx context.Context, req generation.PromptRequest) (*generation.PromptResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*generation.PromptResponse)
	return resp, args.Error(1)
}

func playableStory(ownerID uuid.UUID) *models.Story {
	return &models.Story{
		ID:      uuid.New(),
		OwnerID: &ownerID,
		Title:   "Хроники Тейвата",
		Genre:   "fantasy",
		Config: models.StoryConfig{
			StoryDescription:  "Мир после катастрофы",
			PlayerDescription: map[string]string{"user": "Рок — искатель приключений"},
			NPCDescription:    map[string]string{"Дурин": "дракон"},
			StartPhrase:       "Вы просыпаетесь в лесу.",
			AgentPromptID:     "prompt-from-config",
		},
	}
}

func newTestStoryteller(storyRepo *mocks.StoryRepository, turnLogRepo *mocks.TurnLogRepository, gen *turnGeneratorMock, defaultPromptID string) StorytellerService {
	return NewStorytellerService(storyRepo, turnLogRepo, gen, defaultPromptID, zap.NewNop())
}

func TestAdvanceTurnSuccessPersistsPair(t *testing.T) {
	storyRepo := new(mocks.StoryRepository)
	turnLogRepo := new(mocks.TurnLogRepository)
	gen := new(turnGeneratorMock)
	svc := newTestStoryteller(storyRepo, turnLogRepo, gen, "")

	ownerID := uuid.New()
	story := playableStory(ownerID)

	storyRepo.On("GetByID", mock.Anything, story.ID).Return(story, nil)
	gen.On("Ready").Return(nil)
	turnLogRepo.On("GetLastResponseID", mock.Anything, story.ID).Return("resp-41", nil)

	gen.On("Respond", mock.Anything, mock.MatchedBy(func(req generation.PromptRequest) bool {
		return req.PromptID == "prompt-from-config" &&
			req.PreviousResponseID == "resp-41" &&
			req.Input == "MODE: dialogue\nUSER_TURN: Осмотреться" &&
			req.Variables["user"] == "Рок" &&
			req.Variables["mode"] == "dialogue" &&
			req.Variables["story_description"] == "Мир после катастрофы"
	})).Return(&generation.PromptResponse{ID: "resp-42", Text: "Вокруг темный лес."}, nil)

	turnLogRepo.On("AppendTurn", mock.Anything, story.ID,
		models.Turn{UserText: "Осмотреться", ModelText: "Вокруг темный лес."}, "resp-42").Return(nil)
	storyRepo.On("Touch", mock.Anything, story.ID).Return(nil)

	text, err := svc.AdvanceTurn(context.Background(), story.ID, ownerID, " Осмотреться ", "")
	require.NoError(t, err)
	assert.Equal(t, "Вокруг темный лес.", text)
	turnLogRepo.AssertNumberOfCalls(t, "AppendTurn", 1)
}

func TestAdvanceTurnFirstTurnSendsStartPhrase(t *testing.T) {
	storyRepo := new(mocks.StoryRepository)
	turnLogRepo := new(mocks.TurnLogRepository)
	gen := new(turnGeneratorMock)
	svc := newTestStoryteller(storyRepo, turnLogRepo, gen, "")

	ownerID := uuid.New()
	story := playableStory(ownerID)

	storyRepo.On("GetByID", mock.Anything, story.ID).Return(story, nil)
	gen.On("Ready").Return(nil)
	// Токена нет - это первый ход
	turnLogRepo.On("GetLastResponseID", mock.Anything, story.ID).Return("", nil)

	gen.On("Respond", mock.Anything, mock.MatchedBy(func(req generation.PromptRequest) bool {
		npcOK := func() bool {
			var npc map[string]string
			if err := json.Unmarshal([]byte(req.Variables["NPC_description"]), &npc); err != nil {
				return false
			}
			return npc["Дурин"] == "дракон"
		}
		return req.PreviousResponseID == "" &&
			req.Variables["start_phrase"] == "Вы просыпаетесь в лесу." &&
			npcOK()
	})).Return(&generation.PromptResponse{ID: "resp-1", Text: "Вы просыпаетесь в лесу."}, nil)

	turnLogRepo.On("AppendTurn", mock.Anything, story.ID, mock.Anything, "resp-1").Return(nil)
	storyRepo.On("Touch", mock.Anything, story.ID).Return(nil)

	_, err := svc.AdvanceTurn(context.Background(), story.ID, ownerID, "Начали", ModeNarration)
	require.NoError(t, err)
	gen.AssertExpectations(t)
}

func TestAdvanceTurnContinuationOmitsStartPhrase(t *testing.T) {
	storyRepo := new(mocks.StoryRepository)
	turnLogRepo := new(mocks.TurnLogRepository)
	gen := new(turnGeneratorMock)
	svc := newTestStoryteller(storyRepo, turnLogRepo, gen, "")

	ownerID := uuid.New()
	story := playableStory(ownerID)

	storyRepo.On("GetByID", mock.Anything, story.ID).Return(story, nil)
	gen.On("Ready").Return(nil)
	turnLogRepo.On("GetLastResponseID", mock.Anything, story.ID).Return("resp-7", nil)

	gen.On("Respond", mock.Anything, mock.MatchedBy(func(req generation.PromptRequest) bool {
		_, hasStart := req.Variables["start_phrase"]
		return req.PreviousResponseID == "resp-7" && !hasStart
	})).Return(&generation.PromptResponse{ID: "resp-8", Text: "Продолжение."}, nil)

	turnLogRepo.On("AppendTurn", mock.Anything, story.ID, mock.Anything, "resp-8").Return(nil)
	storyRepo.On("Touch", mock.Anything, story.ID).Return(nil)

	_, err := svc.AdvanceTurn(context.Background(), story.ID, ownerID, "Дальше", "")
	require.NoError(t, err)
}

func TestAdvanceTurnProviderFailureReturnsFallback(t *testing.T) {
	storyRepo := new(mocks.StoryRepository)
	turnLogRepo := new(mocks.TurnLogRepository)
	gen := new(turnGeneratorMock)
	svc := newTestStoryteller(storyRepo, turnLogRepo, gen, "")

	ownerID := uuid.New()
	story := playableStory(ownerID)

	storyRepo.On("GetByID", mock.Anything, story.ID).Return(story, nil)
	gen.On("Ready").Return(nil)
	turnLogRepo.On("GetLastResponseID", mock.Anything, story.ID).Return("resp-5", nil)
	gen.On("Respond", mock.Anything, mock.Anything).Return(nil, generation.ErrGenerationFailed)

	text, err := svc.AdvanceTurn(context.Background(), story.ID, ownerID, "Осмотреться", "")
	// Ошибка провайдера не является ошибкой вызова
	require.NoError(t, err)
	assert.Equal(t, NarratorUnavailableReply, text)
	// Неудавшийся ход не сохраняется, токен не трогается
	turnLogRepo.AssertNotCalled(t, "AppendTurn")
	storyRepo.AssertNotCalled(t, "Touch")
}

func TestAdvanceTurnNotConfigured(t *testing.T) {
	storyRepo := new(mocks.StoryRepository)
	turnLogRepo := new(mocks.TurnLogRepository)
	gen := new(turnGeneratorMock)
	svc := newTestStoryteller(storyRepo, turnLogRepo, gen, "")

	ownerID := uuid.New()
	story := playableStory(ownerID)
	story.Config.AgentPromptID = ""

	storyRepo.On("GetByID", mock.Anything, story.ID).Return(story, nil)

	// Ни в конфиге истории, ни в настройках сервера prompt id нет
	_, err := svc.AdvanceTurn(context.Background(), story.ID, ownerID, "Осмотреться", "")
	assert.ErrorIs(t, err, models.ErrGenerationNotConfigured)
	gen.AssertNotCalled(t, "Respond")
	turnLogRepo.AssertNotCalled(t, "AppendTurn")
}

func TestAdvanceTurnDefaultPromptID(t *testing.T) {
	storyRepo := new(mocks.StoryRepository)
	turnLogRepo := new(mocks.TurnLogRepository)
	gen := new(turnGeneratorMock)
	svc := newTestStoryteller(storyRepo, turnLogRepo, gen, "server-default-prompt")

	ownerID := uuid.New()
	story := playableStory(ownerID)
	story.Config.AgentPromptID = ""

	storyRepo.On("GetByID", mock.Anything, story.ID).Return(story, nil)
	gen.On("Ready").Return(nil)
	turnLogRepo.On("GetLastResponseID", mock.Anything, story.ID).Return("resp-1", nil)
	gen.On("Respond", mock.Anything, mock.MatchedBy(func(req generation.PromptRequest) bool {
		return req.PromptID == "server-default-prompt"
	})).Return(&generation.PromptResponse{ID: "resp-2", Text: "Ответ."}, nil)
	turnLogRepo.On("AppendTurn", mock.Anything, story.ID, mock.Anything, "resp-2").Return(nil)
	storyRepo.On("Touch", mock.Anything, story.ID).Return(nil)

	_, err := svc.AdvanceTurn(context.Background(), story.ID, ownerID, "Осмотреться", "")
	require.NoError(t, err)
}

func TestAdvanceTurnForeignStoryHidden(t *testing.T) {
	storyRepo := new(mocks.StoryRepository)
	turnLogRepo := new(mocks.TurnLogRepository)
	gen := new(turnGeneratorMock)
	svc := newTestStoryteller(storyRepo, turnLogRepo, gen, "")

	story := playableStory(uuid.New())
	storyRepo.On("GetByID", mock.Anything, story.ID).Return(story, nil)

	_, err := svc.AdvanceTurn(context.Background(), story.ID, uuid.New(), "Осмотреться", "")
	assert.ErrorIs(t, err, models.ErrStoryNotFound)
}

func TestAdvanceTurnTemplateNotPlayable(t *testing.T) {
	storyRepo := new(mocks.StoryRepository)
	turnLogRepo := new(mocks.TurnLogRepository)
	gen := new(turnGeneratorMock)
	svc := newTestStoryteller(storyRepo, turnLogRepo, gen, "")

	tmpl := templateStory()
	storyRepo.On("GetByID", mock.Anything, tmpl.ID).Return(tmpl, nil)

	_, err := svc.AdvanceTurn(context.Background(), tmpl.ID, uuid.New(), "Осмотреться", "")
	assert.ErrorIs(t, err, models.ErrStoryNotFound)
}

func TestAdvanceTurnValidatesInput(t *testing.T) {
	storyRepo := new(mocks.StoryRepository)
	turnLogRepo := new(mocks.TurnLogRepository)
	gen := new(turnGeneratorMock)
	svc := newTestStoryteller(storyRepo, turnLogRepo, gen, "")

	_, err := svc.AdvanceTurn(context.Background(), uuid.New(), uuid.New(), "   ", "")
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = svc.AdvanceTurn(context.Background(), uuid.New(), uuid.New(), "Осмотреться", "combat")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	assert.True(t, strings.Contains(err.Error(), "combat"))
}

func TestAdvanceTurnEvictsStoryLock(t *testing.T) {
	storyRepo := new(mocks.StoryRepository)
	turnLogRepo := new(mocks.TurnLogRepository)
	gen := new(turnGeneratorMock)
	svc := newTestStoryteller(storyRepo, turnLogRepo, gen, "")

	gen.On("Ready").Return(nil)
	gen.On("Respond", mock.Anything, mock.Anything).
		Return(&generation.PromptResponse{ID: "resp-2", Text: "Ответ."}, nil)

	ownerID := uuid.New()
	for i := 0; i < 50; i++ {
		story := playableStory(ownerID)
		storyRepo.On("GetByID", mock.Anything, story.ID).Return(story, nil)
		turnLogRepo.On("GetLastResponseID", mock.Anything, story.ID).Return("resp-1", nil)
		turnLogRepo.On("AppendTurn", mock.Anything, story.ID, mock.Anything, "resp-2").Return(nil)
		storyRepo.On("Touch", mock.Anything, story.ID).Return(nil)

		_, err := svc.AdvanceTurn(context.Background(), story.ID, ownerID, "Осмотреться", "")
		require.NoError(t, err)
	}

	// Замки сыгранных историй не накапливаются
	impl := svc.(*storytellerServiceImpl)
	assert.Zero(t, impl.locks.size())
}

func TestStoryLocksHeldWhileContended(t *testing.T) {
	var locks storyLocks
	id := uuid.New()

	first := locks.lock(id)

	released := make(chan struct{})
	go func() {
		second := locks.lock(id)
		locks.unlock(id, second)
		close(released)
	}()

	// Ждем, пока второй держатель встанет в очередь: счетчик ссылок
	// не дает первому unlock удалить запись из-под него
	require.Eventually(t, func() bool {
		locks.mu.Lock()
		defer locks.mu.Unlock()
		return locks.entries[id].refs == 2
	}, time.Second, time.Millisecond)

	locks.unlock(id, first)
	<-released
	assert.Zero(t, locks.size())
}

func TestAdvanceTurnNotReadyHardError(t *testing.T) {
	storyRepo := new(mocks.StoryRepository)
	turnLogRepo := new(mocks.TurnLogRepository)
	gen := new(turnGeneratorMock)
	svc := newTestStoryteller(storyRepo, turnLogRepo, gen, "")

	ownerID := uuid.New()
	story := playableStory(ownerID)

	storyRepo.On("GetByID", mock.Anything, story.ID).Return(story, nil)
	gen.On("Ready").Return(fmt.Errorf("%w: нет ключа API", models.ErrGenerationNotConfigured))

	_, err := svc.AdvanceTurn(context.Background(), story.ID, ownerID, "Осмотреться", "")
	assert.ErrorIs(t, err, models.ErrGenerationNotConfigured)
	gen.AssertNotCalled(t, "Respond")
}
