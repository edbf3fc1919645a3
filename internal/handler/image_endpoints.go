package handler

import (
	"io"
	"net/http"
	"strings"

	"storigrad-server/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// uploadImage принимает multipart-файл, валидирует и кладет его в хранилище.
func (h *Handler) uploadImage(c *gin.Context) {
	if h.imageStorage == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "Image storage is not configured"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Error: "Missing file field"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded file", zap.Error(err))
		handleServiceError(c, models.ErrInternalServer)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("Failed to read uploaded file", zap.Error(err))
		handleServiceError(c, models.ErrInternalServer)
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	url, err := h.imageStorage.Upload(c.Request.Context(), data, contentType)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, uploadImageResponse{URL: url})
}

// getImage отдает изображение по ключу. Эндпоинт публичный.
func (h *Handler) getImage(c *gin.Context) {
	if h.imageStorage == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "Image storage is not configured"})
		return
	}

	// Wildcard-параметр приходит с ведущим слешем
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" || strings.Contains(key, "..") {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid image key"})
		return
	}

	data, contentType, err := h.imageStorage.Get(c.Request.Context(), "images/"+key)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.Data(http.StatusOK, contentType, data)
}
