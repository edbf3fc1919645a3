package mocks

import (
	"context"

	"storigrad-server/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// Mock TurnLogRepository
type TurnLogRepository struct {
	mock.Mock
}

func (m *TurnLogRepository) AppendTurn(ctx context.Context, storyID uuid.UUID, turn models.Turn, responseID string) error {
	args := m.Called(ctx, storyID, turn, responseID)
	return args.Error(0)
}
func (m *TurnLogRepository) GetTurns(ctx context.Context, storyID uuid.UUID, limit int) ([]models.Turn, error) {
	args := m.Called(ctx, storyID, limit)
	turns, _ := args.Get(0).([]models.Turn)
	return turns, args.Error(1)
}
func (m *TurnLogRepository) GetLastResponseID(ctx context.Context, storyID uuid.UUID) (string, error) {
	args := m.Called(ctx, storyID)
	return args.String(0), args.Error(1)
}
