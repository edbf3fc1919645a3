package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"storigrad-server/internal/config"
	"storigrad-server/internal/models"
	"storigrad-server/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuthService определяет операции регистрации, входа и проверки токена.
type AuthService interface {
	Register(ctx context.Context, email, username, password string) (*models.User, error)
	// Login возвращает подписанный bearer-токен.
	Login(ctx context.Context, email, password string) (string, error)
	// VerifyToken проверяет подпись и срок токена и существование его субъекта.
	VerifyToken(ctx context.Context, tokenString string) (*models.Claims, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, username string) (*models.User, error)
}

// Compile-time check
var _ AuthService = (*authServiceImpl)(nil)

type authServiceImpl struct {
	userRepo repository.UserRepository
	cfg      *config.Config
	logger   *zap.Logger
}

// NewAuthService creates a new instance of authServiceImpl.
func NewAuthService(userRepo repository.UserRepository, cfg *config.Config, logger *zap.Logger) AuthService {
	return &authServiceImpl{
		userRepo: userRepo,
		cfg:      cfg,
		logger:   logger.Named("AuthService"),
	}
}

// Register creates a new user.
func (s *authServiceImpl) Register(ctx context.Context, email, username, password string) (*models.User, error) {
	// Email приводим к нижнему регистру и убираем пробелы
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)

	logFields := []zap.Field{zap.String("email", email), zap.String("username", username)}
	s.logger.Info("Registering new user", logFields...)

	if _, err := mail.ParseAddress(email); err != nil {
		s.logger.Warn("Registration attempt with invalid email format", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("invalid email format: %w", models.ErrInvalidInput)
	}
	if username == "" || password == "" {
		s.logger.Warn("Registration attempt with empty username or password", logFields...)
		return nil, models.ErrInvalidInput
	}

	hashedPassword, err := hashPassword(password, s.cfg.PasswordPepper)
	if err != nil {
		s.logger.Error("Failed to hash password during registration", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		Username:     username,
		PasswordHash: hashedPassword,
		Plan:         models.PlanFree,
	}

	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		// ErrEmailAlreadyExists уже замаплен репозиторием
		if !errors.Is(err, models.ErrEmailAlreadyExists) {
			s.logger.Error("Failed to create user via repository", append(logFields, zap.Error(err))...)
		}
		return nil, err
	}

	s.logger.Info("User registered successfully", append(logFields, zap.String("userID", user.ID.String()))...)
	return user, nil
}

// Login authenticates a user by email and returns a signed bearer token.
// Пароли в legacy-формате (голый SHA-256 hex) принимаются и прозрачно
// перехешируются в bcrypt при первом успешном входе.
func (s *authServiceImpl) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	s.logger.Info("Login attempt", zap.String("email", email))

	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			s.logger.Warn("Login failed: user not found", zap.String("email", email))
			return "", models.ErrInvalidCredentials
		}
		s.logger.Error("Login failed: error getting user from repository", zap.Error(err), zap.String("email", email))
		return "", fmt.Errorf("failed to get user: %w", err)
	}

	if isLegacyHash(user.PasswordHash) {
		if !checkLegacyHash(password, user.PasswordHash) {
			s.logger.Warn("Login failed: invalid password (legacy hash)", zap.String("userID", user.ID.String()))
			return "", models.ErrInvalidCredentials
		}
		// Успешный вход со старым хешем - апгрейдим до bcrypt
		upgraded, hashErr := hashPassword(password, s.cfg.PasswordPepper)
		if hashErr != nil {
			s.logger.Error("Failed to hash password during legacy upgrade", zap.Error(hashErr), zap.String("userID", user.ID.String()))
		} else if updErr := s.userRepo.UpdatePasswordHash(ctx, user.ID, upgraded); updErr != nil {
			// Некритично: вход состоялся, апгрейд повторится при следующем логине
			s.logger.Error("Failed to persist upgraded password hash", zap.Error(updErr), zap.String("userID", user.ID.String()))
		} else {
			s.logger.Info("Legacy password hash upgraded", zap.String("userID", user.ID.String()))
		}
	} else if !checkPasswordHash(password, user.PasswordHash, s.cfg.PasswordPepper) {
		s.logger.Warn("Login failed: invalid password", zap.String("userID", user.ID.String()))
		return "", models.ErrInvalidCredentials
	}

	token, err := s.createToken(user.ID)
	if err != nil {
		s.logger.Error("Failed to create token during login", zap.Error(err), zap.String("userID", user.ID.String()))
		return "", fmt.Errorf("failed to create token: %w", err)
	}

	s.logger.Info("User logged in successfully", zap.String("userID", user.ID.String()))
	return token, nil
}

// VerifyToken parses and validates an access token string.
func (s *authServiceImpl) VerifyToken(ctx context.Context, tokenString string) (*models.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			s.logger.Debug("Token verification failed: expired")
			return nil, models.ErrTokenExpired
		}
		if errors.Is(err, jwt.ErrTokenMalformed) {
			s.logger.Warn("Token verification failed: malformed")
			return nil, models.ErrTokenMalformed
		}
		s.logger.Error("Failed to parse token", zap.Error(err))
		return nil, models.ErrTokenInvalid
	}

	claims, ok := token.Claims.(*models.Claims)
	if !ok || !token.Valid {
		s.logger.Warn("Token verification failed (invalid claims type or signature)")
		return nil, models.ErrTokenInvalid
	}

	// Субъект токена должен существовать; удаленный пользователь = невалидный токен
	if _, err := s.userRepo.GetUserByID(ctx, claims.UserID); err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			s.logger.Warn("User from valid token not found", zap.String("userID", claims.UserID.String()))
			return nil, models.ErrTokenInvalid
		}
		s.logger.Error("Error checking token subject", zap.Error(err), zap.String("userID", claims.UserID.String()))
		return nil, fmt.Errorf("error checking token subject: %w", err)
	}

	return claims, nil
}

// GetProfile returns the user's own profile.
func (s *authServiceImpl) GetProfile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.userRepo.GetUserByID(ctx, userID)
}

// UpdateProfile changes the user's display name.
func (s *authServiceImpl) UpdateProfile(ctx context.Context, userID uuid.UUID, username string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, models.ErrInvalidInput
	}
	if err := s.userRepo.UpdateUsername(ctx, userID, username); err != nil {
		return nil, err
	}
	return s.userRepo.GetUserByID(ctx, userID)
}

// createToken generates a signed access token for a user.
func (s *authServiceImpl) createToken(userID uuid.UUID) (string, error) {
	now := time.Now()
	claims := &models.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpire)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
		UserID: userID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signedToken, nil
}
