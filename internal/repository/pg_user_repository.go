package repository

import (
	"context"
	"errors"
	"fmt"

	"storigrad-server/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// Compile-time check
var _ UserRepository = (*pgUserRepository)(nil)

type pgUserRepository struct {
	db     DBTX
	logger *zap.Logger
}

// NewPgUserRepository creates a new PostgreSQL-backed UserRepository.
func NewPgUserRepository(db DBTX, logger *zap.Logger) UserRepository {
	return &pgUserRepository{
		db:     db,
		logger: logger.Named("PgUserRepo"),
	}
}

// CreateUser inserts a new user into the database.
func (r *pgUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
        INSERT INTO users (email, username, password_hash, plan)
        VALUES ($1, $2, $3, $4)
        RETURNING id, stories_count, created_at
    `
	logFields := []zap.Field{zap.String("email", user.Email), zap.String("username", user.Username)}
	r.logger.Debug("Creating user", logFields...)

	err := r.db.QueryRow(ctx, query, user.Email, user.Username, user.PasswordHash, user.Plan).
		Scan(&user.ID, &user.StoriesCount, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23505 - unique_violation (дубликат email)
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			r.logger.Warn("Attempted to create user with duplicate email", logFields...)
			return models.ErrEmailAlreadyExists
		}
		r.logger.Error("Failed to create user in postgres", append(logFields, zap.Error(err))...)
		return fmt.Errorf("failed to create user in postgres: %w", err)
	}

	r.logger.Info("User created successfully", append(logFields, zap.String("userID", user.ID.String()))...)
	return nil
}

// GetUserByEmail retrieves a user by their email.
func (r *pgUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
        SELECT id, email, username, password_hash, plan, stories_count, created_at
        FROM users
        WHERE email = $1
    `
	user := &models.User{}
	err := r.db.QueryRow(ctx, query, email).
		Scan(&user.ID, &user.Email, &user.Username, &user.PasswordHash, &user.Plan, &user.StoriesCount, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("User not found by email", zap.String("email", email))
			return nil, models.ErrUserNotFound
		}
		r.logger.Error("Failed to get user by email from postgres", zap.Error(err), zap.String("email", email))
		return nil, fmt.Errorf("failed to get user by email from postgres: %w", err)
	}
	return user, nil
}

// GetUserByID retrieves a user by their ID.
func (r *pgUserRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `
        SELECT id, email, username, password_hash, plan, stories_count, created_at
        FROM users
        WHERE id = $1
    `
	user := &models.User{}
	err := r.db.QueryRow(ctx, query, id).
		Scan(&user.ID, &user.Email, &user.Username, &user.PasswordHash, &user.Plan, &user.StoriesCount, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("User not found by ID", zap.String("id", id.String()))
			return nil, models.ErrUserNotFound
		}
		r.logger.Error("Failed to get user by id from postgres", zap.Error(err), zap.String("id", id.String()))
		return nil, fmt.Errorf("failed to get user by id from postgres: %w", err)
	}
	return user, nil
}

// UpdateUsername updates the display name of a user.
func (r *pgUserRepository) UpdateUsername(ctx context.Context, id uuid.UUID, username string) error {
	query := `UPDATE users SET username = $2 WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id, username)
	if err != nil {
		r.logger.Error("Failed to update username", zap.Error(err), zap.String("id", id.String()))
		return fmt.Errorf("failed to update username: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

// UpdatePasswordHash replaces the stored password hash of a user.
// Используется в том числе для прозрачного апгрейда legacy-хеша при логине.
func (r *pgUserRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error {
	query := `UPDATE users SET password_hash = $2 WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id, passwordHash)
	if err != nil {
		r.logger.Error("Failed to update password hash", zap.Error(err), zap.String("id", id.String()))
		return fmt.Errorf("failed to update password hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

// IncrementStoryCount increments the denormalized story counter.
func (r *pgUserRepository) IncrementStoryCount(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE users SET stories_count = stories_count + 1 WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, id); err != nil {
		r.logger.Error("Failed to increment story count", zap.Error(err), zap.String("id", id.String()))
		return fmt.Errorf("failed to increment story count: %w", err)
	}
	return nil
}

// DecrementStoryCount decrements the counter, never going below zero.
func (r *pgUserRepository) DecrementStoryCount(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE users SET stories_count = GREATEST(stories_count - 1, 0) WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, id); err != nil {
		r.logger.Error("Failed to decrement story count", zap.Error(err), zap.String("id", id.String()))
		return fmt.Errorf("failed to decrement story count: %w", err)
	}
	return nil
}
