package handler

import (
	"errors"
	"net/http"

	"storigrad-server/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// handleServiceError маппит доменные ошибки сервисного слоя на HTTP статусы.
// Внутренние детали наружу не отдаются.
func handleServiceError(c *gin.Context, err error) {
	var statusCode int
	var errResp models.ErrorResponse

	switch {
	case errors.Is(err, models.ErrInvalidCredentials):
		statusCode = http.StatusUnauthorized
		errResp = models.ErrorResponse{Error: "Invalid email or password"}
	case errors.Is(err, models.ErrEmailAlreadyExists):
		statusCode = http.StatusConflict
		errResp = models.ErrorResponse{Error: "Email already registered"}
	case errors.Is(err, models.ErrUserNotFound):
		statusCode = http.StatusNotFound
		errResp = models.ErrorResponse{Error: "User not found"}
	case errors.Is(err, models.ErrTokenExpired):
		statusCode = http.StatusUnauthorized
		errResp = models.ErrorResponse{Error: "Token has expired"}
	case errors.Is(err, models.ErrTokenInvalid), errors.Is(err, models.ErrTokenMalformed), errors.Is(err, models.ErrUnauthorized):
		statusCode = http.StatusUnauthorized
		errResp = models.ErrorResponse{Error: "Token is invalid or malformed"}
	case errors.Is(err, models.ErrStoryNotFound):
		statusCode = http.StatusNotFound
		errResp = models.ErrorResponse{Error: "Story not found"}
	case errors.Is(err, models.ErrTemplateImmutable):
		statusCode = http.StatusForbidden
		errResp = models.ErrorResponse{Error: "Template stories cannot be modified or deleted"}
	case errors.Is(err, models.ErrForbidden):
		statusCode = http.StatusForbidden
		errResp = models.ErrorResponse{Error: "Access denied"}
	case errors.Is(err, models.ErrImageNotFound):
		statusCode = http.StatusNotFound
		errResp = models.ErrorResponse{Error: "Image not found"}
	case errors.Is(err, models.ErrImageTooLarge):
		statusCode = http.StatusRequestEntityTooLarge
		errResp = models.ErrorResponse{Error: "Image exceeds the maximum allowed size"}
	case errors.Is(err, models.ErrImageUnsupported):
		statusCode = http.StatusUnsupportedMediaType
		errResp = models.ErrorResponse{Error: "Unsupported image type"}
	case errors.Is(err, models.ErrInvalidInput):
		statusCode = http.StatusBadRequest
		errResp = models.ErrorResponse{Error: err.Error()}
	case errors.Is(err, models.ErrGenerationNotConfigured):
		// Ошибка конфигурации сервера, а не клиента
		zap.L().Error("Generation provider is not configured", zap.Error(err))
		statusCode = http.StatusInternalServerError
		errResp = models.ErrorResponse{Error: "Story generation is not available"}
	default:
		zap.L().Error("Unhandled internal error in handleServiceError", zap.Error(err))
		statusCode = http.StatusInternalServerError
		errResp = models.ErrorResponse{Error: "An unexpected internal error occurred"}
	}

	c.AbortWithStatusJSON(statusCode, errResp)
}
