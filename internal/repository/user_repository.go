package repository

import (
	"context"

	"storigrad-server/internal/models"

	"github.com/google/uuid"
)

// UserRepository определяет методы работы с пользователями.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateUsername(ctx context.Context, id uuid.UUID, username string) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error
	// IncrementStoryCount/DecrementStoryCount поддерживают денормализованный
	// счетчик собственных (не шаблонных) историй. Декремент не опускает
	// значение ниже нуля.
	IncrementStoryCount(ctx context.Context, id uuid.UUID) error
	DecrementStoryCount(ctx context.Context, id uuid.UUID) error
}
