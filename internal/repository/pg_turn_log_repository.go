package repository

import (
	"context"
	"errors"
	"fmt"

	"storigrad-server/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Compile-time check
var _ TurnLogRepository = (*pgTurnLogRepository)(nil)

type pgTurnLogRepository struct {
	db     DBTX
	logger *zap.Logger
}

// NewPgTurnLogRepository creates a new PostgreSQL-backed TurnLogRepository.
func NewPgTurnLogRepository(db DBTX, logger *zap.Logger) TurnLogRepository {
	return &pgTurnLogRepository{
		db:     db,
		logger: logger.Named("PgTurnLogRepo"),
	}
}

// AppendTurn appends a turn to the per-story row, creating it on first use.
func (r *pgTurnLogRepository) AppendTurn(ctx context.Context, storyID uuid.UUID, turn models.Turn, responseID string) error {
	query := `
        INSERT INTO story_turns (story_id, turns, last_response_id, updated_at)
        VALUES ($1, jsonb_build_array($2::jsonb), $3, now())
        ON CONFLICT (story_id) DO UPDATE
        SET turns            = story_turns.turns || EXCLUDED.turns,
            last_response_id = EXCLUDED.last_response_id,
            updated_at       = now()
    `
	logFields := []zap.Field{zap.String("storyID", storyID.String())}
	r.logger.Debug("Appending turn", logFields...)

	if _, err := r.db.Exec(ctx, query, storyID, turn, responseID); err != nil {
		r.logger.Error("Failed to append turn", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка добавления хода: %w", err)
	}
	return nil
}

// GetTurns returns up to limit most recent turns, oldest first.
func (r *pgTurnLogRepository) GetTurns(ctx context.Context, storyID uuid.UUID, limit int) ([]models.Turn, error) {
	query := `SELECT turns FROM story_turns WHERE story_id = $1`

	var turns []models.Turn
	err := r.db.QueryRow(ctx, query, storyID).Scan(&turns)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Строки лога еще нет - у истории не было ходов
			return nil, nil
		}
		r.logger.Error("Failed to get turns", zap.Error(err), zap.String("storyID", storyID.String()))
		return nil, fmt.Errorf("ошибка получения ходов: %w", err)
	}

	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return turns, nil
}

// GetLastResponseID returns the stored continuation token, empty when absent.
func (r *pgTurnLogRepository) GetLastResponseID(ctx context.Context, storyID uuid.UUID) (string, error) {
	query := `SELECT last_response_id FROM story_turns WHERE story_id = $1`

	var responseID string
	err := r.db.QueryRow(ctx, query, storyID).Scan(&responseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		r.logger.Error("Failed to get last response id", zap.Error(err), zap.String("storyID", storyID.String()))
		return "", fmt.Errorf("ошибка получения continuation token: %w", err)
	}
	return responseID, nil
}
