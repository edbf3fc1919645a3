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
var _ StoryRepository = (*pgStoryRepository)(nil)

type pgStoryRepository struct {
	db     DBTX
	logger *zap.Logger
}

// NewPgStoryRepository creates a new PostgreSQL-backed StoryRepository.
func NewPgStoryRepository(db DBTX, logger *zap.Logger) StoryRepository {
	return &pgStoryRepository{
		db:     db,
		logger: logger.Named("PgStoryRepo"),
	}
}

// Create inserts a new story.
func (r *pgStoryRepository) Create(ctx context.Context, story *models.Story) error {
	query := `
        INSERT INTO stories (owner_id, title, genre, config)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at, updated_at
    `
	logFields := []zap.Field{zap.String("title", story.Title)}
	if story.OwnerID != nil {
		logFields = append(logFields, zap.String("ownerID", story.OwnerID.String()))
	}
	r.logger.Debug("Creating story", logFields...)

	err := r.db.QueryRow(ctx, query, story.OwnerID, story.Title, story.Genre, story.Config).
		Scan(&story.ID, &story.CreatedAt, &story.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to create story", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка создания истории: %w", err)
	}

	r.logger.Info("Story created successfully", append(logFields, zap.String("storyID", story.ID.String()))...)
	return nil
}

// GetByID retrieves a story regardless of its owner.
func (r *pgStoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Story, error) {
	query := `
        SELECT id, owner_id, title, genre, config, created_at, updated_at
        FROM stories
        WHERE id = $1
    `
	story := &models.Story{}
	err := r.db.QueryRow(ctx, query, id).
		Scan(&story.ID, &story.OwnerID, &story.Title, &story.Genre, &story.Config, &story.CreatedAt, &story.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("Story not found by ID", zap.String("storyID", id.String()))
			return nil, models.ErrStoryNotFound
		}
		r.logger.Error("Failed to get story by id", zap.Error(err), zap.String("storyID", id.String()))
		return nil, fmt.Errorf("ошибка получения истории: %w", err)
	}
	return story, nil
}

// ListByOwner returns all stories of a user, most recently updated first.
func (r *pgStoryRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Story, error) {
	query := `
        SELECT id, owner_id, title, genre, config, created_at, updated_at
        FROM stories
        WHERE owner_id = $1
        ORDER BY updated_at DESC
    `
	return r.queryStories(ctx, query, ownerID)
}

// ListTemplates returns all ownerless template stories.
func (r *pgStoryRepository) ListTemplates(ctx context.Context) ([]models.Story, error) {
	query := `
        SELECT id, owner_id, title, genre, config, created_at, updated_at
        FROM stories
        WHERE owner_id IS NULL
        ORDER BY updated_at DESC
    `
	return r.queryStories(ctx, query)
}

func (r *pgStoryRepository) queryStories(ctx context.Context, query string, args ...any) ([]models.Story, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list stories", zap.Error(err))
		return nil, fmt.Errorf("ошибка получения списка историй: %w", err)
	}
	defer rows.Close()

	var stories []models.Story
	for rows.Next() {
		var story models.Story
		if err := rows.Scan(&story.ID, &story.OwnerID, &story.Title, &story.Genre, &story.Config, &story.CreatedAt, &story.UpdatedAt); err != nil {
			r.logger.Error("Failed to scan story row", zap.Error(err))
			return nil, fmt.Errorf("ошибка чтения строки истории: %w", err)
		}
		stories = append(stories, story)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка обхода строк историй: %w", err)
	}
	return stories, nil
}

// Update rewrites the mutable fields of a story.
func (r *pgStoryRepository) Update(ctx context.Context, story *models.Story) error {
	query := `
        UPDATE stories
        SET title = $2, genre = $3, config = $4, updated_at = now()
        WHERE id = $1
    `
	tag, err := r.db.Exec(ctx, query, story.ID, story.Title, story.Genre, story.Config)
	if err != nil {
		r.logger.Error("Failed to update story", zap.Error(err), zap.String("storyID", story.ID.String()))
		return fmt.Errorf("ошибка обновления истории: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrStoryNotFound
	}
	return nil
}

// Delete removes a story; its turn log row is removed by the FK cascade.
func (r *pgStoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM stories WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to delete story", zap.Error(err), zap.String("storyID", id.String()))
		return fmt.Errorf("ошибка удаления истории: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrStoryNotFound
	}
	r.logger.Info("Story deleted", zap.String("storyID", id.String()))
	return nil
}

// Touch bumps updated_at after a successful turn.
func (r *pgStoryRepository) Touch(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE stories SET updated_at = now() WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, id); err != nil {
		r.logger.Error("Failed to touch story", zap.Error(err), zap.String("storyID", id.String()))
		return fmt.Errorf("ошибка обновления updated_at истории: %w", err)
	}
	return nil
}
