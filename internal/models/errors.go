package models

import "errors"

// Стандартные ошибки приложения
var (
	// User & Authentication Errors
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")

	// Token Errors
	ErrTokenInvalid   = errors.New("token is invalid")
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenExpired   = errors.New("token has expired")

	// Story Errors
	ErrStoryNotFound     = errors.New("story not found or not accessible")
	ErrTemplateImmutable = errors.New("template stories cannot be modified or deleted")

	// Generation Errors
	ErrGenerationNotConfigured = errors.New("generation provider is not configured")

	// Image Storage Errors
	ErrImageNotFound    = errors.New("image not found")
	ErrImageTooLarge    = errors.New("image too large")
	ErrImageUnsupported = errors.New("unsupported image type")

	// General Request/Server Errors
	ErrInvalidInput   = errors.New("invalid input data")
	ErrInternalServer = errors.New("internal server error")
)
