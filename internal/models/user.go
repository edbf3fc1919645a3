package models

import (
	"time"

	"github.com/google/uuid"
)

// Тарифные планы пользователя.
const (
	PlanFree    = "Free"
	PlanPremium = "Premium"
)

// User represents a registered user.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"` // Не отдаем хеш пароля
	Plan         string    `db:"plan" json:"plan"`
	StoriesCount int       `db:"stories_count" json:"stories_count"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
