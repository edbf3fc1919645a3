package service

import (
	"context"
	"fmt"

	"storigrad-server/internal/models"
	"storigrad-server/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultTurnLimit - сколько последних ходов отдается по умолчанию.
const DefaultTurnLimit = 50

// StoryUpdate описывает частичное обновление истории.
// nil-поле означает "не менять".
type StoryUpdate struct {
	Title  *string
	Genre  *string
	Config *models.StoryConfig
}

// StoryAccessResult - результат чтения истории.
// RedirectTo заполнен, когда читался шаблон: он скопирован в новую историю
// пользователя, и клиент должен перечитать данные по новому идентификатору.
type StoryAccessResult struct {
	Story      *models.Story
	Turns      []models.Turn
	RedirectTo *uuid.UUID
}

// StoryService определяет операции над историями пользователя и шаблонами.
type StoryService interface {
	CreateStory(ctx context.Context, ownerID uuid.UUID, title, genre string, cfg models.StoryConfig) (*models.Story, error)
	GetStory(ctx context.Context, storyID, userID uuid.UUID) (*StoryAccessResult, error)
	ListStories(ctx context.Context, ownerID uuid.UUID) ([]models.Story, error)
	ListTemplates(ctx context.Context) ([]models.Story, error)
	UpdateStory(ctx context.Context, storyID, userID uuid.UUID, upd StoryUpdate) (*models.Story, error)
	DeleteStory(ctx context.Context, storyID, userID uuid.UUID) error
	DuplicateStory(ctx context.Context, storyID, userID uuid.UUID) (*models.Story, error)
	GetTurns(ctx context.Context, storyID, userID uuid.UUID, limit int) ([]models.Turn, error)
}

// Compile-time check
var _ StoryService = (*storyServiceImpl)(nil)

type storyServiceImpl struct {
	storyRepo   repository.StoryRepository
	turnLogRepo repository.TurnLogRepository
	userRepo    repository.UserRepository
	logger      *zap.Logger
}

// NewStoryService creates a new instance of storyServiceImpl.
func NewStoryService(
	storyRepo repository.StoryRepository,
	turnLogRepo repository.TurnLogRepository,
	userRepo repository.UserRepository,
	logger *zap.Logger,
) StoryService {
	return &storyServiceImpl{
		storyRepo:   storyRepo,
		turnLogRepo: turnLogRepo,
		userRepo:    userRepo,
		logger:      logger.Named("StoryService"),
	}
}

// CreateStory creates a story owned by the user and bumps their story counter.
func (s *storyServiceImpl) CreateStory(ctx context.Context, ownerID uuid.UUID, title, genre string, cfg models.StoryConfig) (*models.Story, error) {
	story := &models.Story{
		OwnerID: &ownerID,
		Title:   title,
		Genre:   genre,
		Config:  cfg,
	}
	if err := s.storyRepo.Create(ctx, story); err != nil {
		return nil, err
	}
	if err := s.userRepo.IncrementStoryCount(ctx, ownerID); err != nil {
		// Счетчик денормализован; рассинхрон лечится пересчетом, историю не откатываем
		s.logger.Error("Failed to increment story count after create", zap.Error(err), zap.String("userID", ownerID.String()))
	}
	return story, nil
}

// GetStory returns a story visible to the caller.
// Своя история возвращается вместе с ходами. Чтение шаблона имеет
// наблюдаемый побочный эффект: шаблон копируется в новую историю
// пользователя (заголовок, жанр и конфиг дословно, пустой лог ходов),
// и вместо данных шаблона возвращается указание перечитать по новому id.
func (s *storyServiceImpl) GetStory(ctx context.Context, storyID, userID uuid.UUID) (*StoryAccessResult, error) {
	story, err := s.storyRepo.GetByID(ctx, storyID)
	if err != nil {
		return nil, err
	}

	if story.IsTemplate() {
		clone, err := s.copyTemplate(ctx, story, userID)
		if err != nil {
			return nil, err
		}
		return &StoryAccessResult{RedirectTo: &clone.ID}, nil
	}

	if *story.OwnerID != userID {
		// Чужая история неотличима от несуществующей
		return nil, models.ErrStoryNotFound
	}

	turns, err := s.turnLogRepo.GetTurns(ctx, storyID, DefaultTurnLimit)
	if err != nil {
		return nil, err
	}
	return &StoryAccessResult{Story: story, Turns: turns}, nil
}

// copyTemplate clones a template into a new story owned by the user.
// Два чтения одного шаблона дают две независимые копии - дедупликации нет.
func (s *storyServiceImpl) copyTemplate(ctx context.Context, tmpl *models.Story, userID uuid.UUID) (*models.Story, error) {
	clone := &models.Story{
		OwnerID: &userID,
		Title:   tmpl.Title,
		Genre:   tmpl.Genre,
		Config:  tmpl.Config,
	}
	if err := s.storyRepo.Create(ctx, clone); err != nil {
		return nil, fmt.Errorf("ошибка копирования шаблона: %w", err)
	}
	if err := s.userRepo.IncrementStoryCount(ctx, userID); err != nil {
		s.logger.Error("Failed to increment story count after template copy", zap.Error(err), zap.String("userID", userID.String()))
	}
	s.logger.Info("Template copied on read",
		zap.String("templateID", tmpl.ID.String()),
		zap.String("storyID", clone.ID.String()),
		zap.String("userID", userID.String()))
	return clone, nil
}

// ListStories returns the user's stories, most recently updated first.
func (s *storyServiceImpl) ListStories(ctx context.Context, ownerID uuid.UUID) ([]models.Story, error) {
	return s.storyRepo.ListByOwner(ctx, ownerID)
}

// ListTemplates returns all shared template stories.
func (s *storyServiceImpl) ListTemplates(ctx context.Context) ([]models.Story, error) {
	return s.storyRepo.ListTemplates(ctx)
}

// UpdateStory applies a partial update to a story owned by the caller.
func (s *storyServiceImpl) UpdateStory(ctx context.Context, storyID, userID uuid.UUID, upd StoryUpdate) (*models.Story, error) {
	story, err := s.loadOwned(ctx, storyID, userID, true)
	if err != nil {
		return nil, err
	}

	if upd.Title != nil {
		story.Title = *upd.Title
	}
	if upd.Genre != nil {
		story.Genre = *upd.Genre
	}
	if upd.Config != nil {
		story.Config = *upd.Config
	}

	if err := s.storyRepo.Update(ctx, story); err != nil {
		return nil, err
	}
	return story, nil
}

// DeleteStory deletes a story owned by the caller; the turn log goes with it.
// Шаблоны не удаляются никем.
func (s *storyServiceImpl) DeleteStory(ctx context.Context, storyID, userID uuid.UUID) error {
	if _, err := s.loadOwned(ctx, storyID, userID, true); err != nil {
		return err
	}
	if err := s.storyRepo.Delete(ctx, storyID); err != nil {
		return err
	}
	if err := s.userRepo.DecrementStoryCount(ctx, userID); err != nil {
		s.logger.Error("Failed to decrement story count after delete", zap.Error(err), zap.String("userID", userID.String()))
	}
	return nil
}

// DuplicateStory creates a copy of the caller's own story with an empty turn log.
func (s *storyServiceImpl) DuplicateStory(ctx context.Context, storyID, userID uuid.UUID) (*models.Story, error) {
	story, err := s.loadOwned(ctx, storyID, userID, false)
	if err != nil {
		return nil, err
	}

	copyStory := &models.Story{
		OwnerID: &userID,
		Title:   story.Title,
		Genre:   story.Genre,
		Config:  story.Config,
	}
	if err := s.storyRepo.Create(ctx, copyStory); err != nil {
		return nil, err
	}
	if err := s.userRepo.IncrementStoryCount(ctx, userID); err != nil {
		s.logger.Error("Failed to increment story count after duplicate", zap.Error(err), zap.String("userID", userID.String()))
	}
	return copyStory, nil
}

// GetTurns returns up to limit most recent turns of an owned story, oldest first.
func (s *storyServiceImpl) GetTurns(ctx context.Context, storyID, userID uuid.UUID, limit int) ([]models.Turn, error) {
	if _, err := s.loadOwned(ctx, storyID, userID, false); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultTurnLimit
	}
	return s.turnLogRepo.GetTurns(ctx, storyID, limit)
}

// loadOwned возвращает историю, принадлежащую пользователю.
// При rejectTemplate попытка изменить или удалить шаблон - отдельная ошибка,
// иначе шаблон неотличим от чужой истории.
func (s *storyServiceImpl) loadOwned(ctx context.Context, storyID, userID uuid.UUID, rejectTemplate bool) (*models.Story, error) {
	story, err := s.storyRepo.GetByID(ctx, storyID)
	if err != nil {
		return nil, err
	}
	if story.IsTemplate() {
		if rejectTemplate {
			return nil, models.ErrTemplateImmutable
		}
		return nil, models.ErrStoryNotFound
	}
	if *story.OwnerID != userID {
		return nil, models.ErrStoryNotFound
	}
	return story, nil
}
