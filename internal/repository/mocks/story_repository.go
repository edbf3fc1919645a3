package mocks

import (
	"context"

	"storigrad-server/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// Mock StoryRepository
type StoryRepository struct {
	mock.Mock
}

func (m *StoryRepository) Create(ctx context.Context, story *models.Story) error {
	args := m.Called(ctx, story)
	return args.Error(0)
}
func (m *StoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Story, error) {
	args := m.Called(ctx, id)
	story, _ := args.Get(0).(*models.Story)
	return story, args.Error(1)
}
func (m *StoryRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Story, error) {
	args := m.Called(ctx, ownerID)
	stories, _ := args.Get(0).([]models.Story)
	return stories, args.Error(1)
}
func (m *StoryRepository) ListTemplates(ctx context.Context) ([]models.Story, error) {
	args := m.Called(ctx)
	stories, _ := args.Get(0).([]models.Story)
	return stories, args.Error(1)
}
func (m *StoryRepository) Update(ctx context.Context, story *models.Story) error {
	args := m.Called(ctx, story)
	return args.Error(0)
}
func (m *StoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *StoryRepository) Touch(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
