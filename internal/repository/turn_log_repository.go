package repository

import (
	"context"

	"storigrad-server/internal/models"

	"github.com/google/uuid"
)

// TurnLogRepository определяет методы работы с логом ходов.
// На историю приходится не более одной строки лога; добавление хода -
// это append к массиву в этой строке, а не вставка новой строки.
type TurnLogRepository interface {
	// AppendTurn дописывает ход в массив (создавая строку при первом ходе)
	// и сохраняет новый continuation token в той же строке.
	AppendTurn(ctx context.Context, storyID uuid.UUID, turn models.Turn, responseID string) error
	// GetTurns возвращает хвост из limit последних ходов в хронологическом
	// порядке (старые первыми). Отсутствие строки - пустой список.
	GetTurns(ctx context.Context, storyID uuid.UUID, limit int) ([]models.Turn, error)
	// GetLastResponseID возвращает последний continuation token истории
	// или пустую строку, если ходов еще не было.
	GetLastResponseID(ctx context.Context, storyID uuid.UUID) (string, error)
}
