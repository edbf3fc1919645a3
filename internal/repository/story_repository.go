package repository

import (
	"context"

	"storigrad-server/internal/models"

	"github.com/google/uuid"
)

// StoryRepository определяет методы работы с историями.
type StoryRepository interface {
	Create(ctx context.Context, story *models.Story) error
	// GetByID возвращает историю без проверки владельца;
	// доступом (своя / шаблон / чужая) управляет сервисный слой.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Story, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Story, error)
	ListTemplates(ctx context.Context) ([]models.Story, error)
	Update(ctx context.Context, story *models.Story) error
	// Delete удаляет историю; строка лога ходов уходит каскадом на уровне БД.
	Delete(ctx context.Context, id uuid.UUID) error
	// Touch обновляет updated_at после успешного хода.
	Touch(ctx context.Context, id uuid.UUID) error
}
