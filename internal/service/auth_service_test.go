package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"storigrad-server/internal/config"
	"storigrad-server/internal/models"
	"storigrad-server/internal/repository/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestAuthService(userRepo *mocks.UserRepository) AuthService {
	cfg := &config.Config{
		JWTSecret:      "test-secret",
		JWTExpire:      time.Hour,
		PasswordPepper: "test-pepper",
	}
	return NewAuthService(userRepo, cfg, zap.NewNop())
}

func TestRegisterSuccess(t *testing.T) {
	userRepo := new(mocks.UserRepository)
	svc := newTestAuthService(userRepo)

	userRepo.On("CreateUser", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
		return u.Email == "user@example.com" &&
			u.Username == "Вася" &&
			u.Plan == models.PlanFree &&
			u.PasswordHash != "" && u.PasswordHash != "secret123"
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*models.User).ID = uuid.New()
	}).Return(nil)

	user, err := svc.Register(context.Background(), "  User@Example.COM ", " Вася ", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", user.Email)
	assert.Equal(t, "Вася", user.Username)
	userRepo.AssertExpectations(t)
}

func TestRegisterInvalidEmail(t *testing.T) {
	userRepo := new(mocks.UserRepository)
	svc := newTestAuthService(userRepo)

	_, err := svc.Register(context.Background(), "not-an-email", "name", "secret123")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	userRepo.AssertNotCalled(t, "CreateUser")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	userRepo := new(mocks.UserRepository)
	svc := newTestAuthService(userRepo)

	userRepo.On("CreateUser", mock.Anything, mock.Anything).Return(models.ErrEmailAlreadyExists)

	_, err := svc.Register(context.Background(), "user@example.com", "name", "secret123")
	assert.ErrorIs(t, err, models.ErrEmailAlreadyExists)
}

func TestLoginSuccess(t *testing.T) {
	userRepo := new(mocks.UserRepository)
	svc := newTestAuthService(userRepo)

	hash, err := hashPassword("secret123", "test-pepper")
	require.NoError(t, err)
	user := &models.User{ID: uuid.New(), Email: "user@example.com", PasswordHash: hash}

	userRepo.On("GetUserByEmail", mock.Anything, "user@example.com").Return(user, nil)

	token, err := svc.Login(context.Background(), "User@example.com", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	// Хеш не трогаем при обычном входе
	userRepo.AssertNotCalled(t, "UpdatePasswordHash")
}

func TestLoginWrongPassword(t *testing.T) {
	userRepo := new(mocks.UserRepository)
	svc := newTestAuthService(userRepo)

	hash, err := hashPassword("secret123", "test-pepper")
	require.NoError(t, err)
	user := &models.User{ID: uuid.New(), Email: "user@example.com", PasswordHash: hash}

	userRepo.On("GetUserByEmail", mock.Anything, "user@example.com").Return(user, nil)

	_, err = svc.Login(context.Background(), "user@example.com", "wrong")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestLoginUnknownEmail(t *testing.T) {
	userRepo := new(mocks.UserRepository)
	svc := newTestAuthService(userRepo)

	userRepo.On("GetUserByEmail", mock.Anything, "ghost@example.com").Return(nil, models.ErrUserNotFound)

	_, err := svc.Login(context.Background(), "ghost@example.com", "secret123")
	// Несуществующий email неотличим от неверного пароля
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestLoginLegacyHashUpgrade(t *testing.T) {
	userRepo := new(mocks.UserRepository)
	svc := newTestAuthService(userRepo)

	sum := sha256.Sum256([]byte("secret123"))
	legacy := hex.EncodeToString(sum[:])
	user := &models.User{ID: uuid.New(), Email: "user@example.com", PasswordHash: legacy}

	userRepo.On("GetUserByEmail", mock.Anything, "user@example.com").Return(user, nil)
	userRepo.On("UpdatePasswordHash", mock.Anything, user.ID, mock.MatchedBy(func(newHash string) bool {
		// Новый хеш - уже bcrypt с перцем, проверяемый обычным путем
		return !isLegacyHash(newHash) && checkPasswordHash("secret123", newHash, "test-pepper")
	})).Return(nil)

	token, err := svc.Login(context.Background(), "user@example.com", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	userRepo.AssertExpectations(t)
}

func TestLoginLegacyHashWrongPassword(t *testing.T) {
	userRepo := new(mocks.UserRepository)
	svc := newTestAuthService(userRepo)

	sum := sha256.Sum256([]byte("secret123"))
	legacy := hex.EncodeToString(sum[:])
	user := &models.User{ID: uuid.New(), Email: "user@example.com", PasswordHash: legacy}

	userRepo.On("GetUserByEmail", mock.Anything, "user@example.com").Return(user, nil)

	_, err := svc.Login(context.Background(), "user@example.com", "wrong")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	userRepo.AssertNotCalled(t, "UpdatePasswordHash")
}

func TestVerifyTokenRoundTrip(t *testing.T) {
	userRepo := new(mocks.UserRepository)
	svc := newTestAuthService(userRepo)

	hash, err := hashPassword("secret123", "test-pepper")
	require.NoError(t, err)
	user := &models.User{ID: uuid.New(), Email: "user@example.com", PasswordHash: hash}

	userRepo.On("GetUserByEmail", mock.Anything, "user@example.com").Return(user, nil)
	userRepo.On("GetUserByID", mock.Anything, user.ID).Return(user, nil)

	token, err := svc.Login(context.Background(), "user@example.com", "secret123")
	require.NoError(t, err)

	claims, err := svc.VerifyToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
}

func TestVerifyTokenSubjectGone(t *testing.T) {
	userRepo := new(mocks.UserRepository)
	svc := newTestAuthService(userRepo)

	hash, err := hashPassword("secret123", "test-pepper")
	require.NoError(t, err)
	user := &models.User{ID: uuid.New(), Email: "user@example.com", PasswordHash: hash}

	userRepo.On("GetUserByEmail", mock.Anything, "user@example.com").Return(user, nil)
	userRepo.On("GetUserByID", mock.Anything, user.ID).Return(nil, models.ErrUserNotFound)

	token, err := svc.Login(context.Background(), "user@example.com", "secret123")
	require.NoError(t, err)

	// Пользователь удален - валидно подписанный токен больше не работает
	_, err = svc.VerifyToken(context.Background(), token)
	assert.ErrorIs(t, err, models.ErrTokenInvalid)
}

func TestVerifyTokenMalformed(t *testing.T) {
	userRepo := new(mocks.UserRepository)
	svc := newTestAuthService(userRepo)

	_, err := svc.VerifyToken(context.Background(), "definitely-not-a-jwt")
	assert.ErrorIs(t, err, models.ErrTokenMalformed)
}
