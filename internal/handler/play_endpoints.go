package handler

import (
	"net/http"
	"time"

	"storigrad-server/internal/models"
	"storigrad-server/internal/router"
	"storigrad-server/internal/service"

	"github.com/gin-gonic/gin"
)

// stepStory продвигает историю на один ход рассказчика.
func (h *Handler) stepStory(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		handleServiceError(c, models.ErrTokenInvalid)
		return
	}
	storyID, ok := storyIDParam(c)
	if !ok {
		return
	}

	var req stepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request data: " + err.Error()})
		return
	}

	start := time.Now()
	reply, err := h.storytellerService.AdvanceTurn(c.Request.Context(), storyID, userID, req.UserInput, req.Mode)
	if err != nil {
		turnsTotal.WithLabelValues("error").Inc()
		handleServiceError(c, err)
		return
	}
	turnDuration.Observe(time.Since(start).Seconds())

	if reply == service.NarratorUnavailableReply {
		turnsTotal.WithLabelValues("provider_failure").Inc()
	} else {
		turnsTotal.WithLabelValues("success").Inc()
	}

	c.JSON(http.StatusOK, stepResponse{Reply: reply})
}

// infer прогоняет сообщение через пайплайн модулей и возвращает
// выбранный ответ вместе с трассой принятия решения.
func (h *Handler) infer(c *gin.Context) {
	var req inferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request data: " + err.Error()})
		return
	}

	start := time.Now()
	reply, trace := h.pipeline.Run(router.Request{
		Message: req.Message,
		Context: req.Context,
		Meta:    req.Meta,
	})
	latency := time.Since(start)

	for _, item := range trace {
		if item.Accepted {
			inferRequestsTotal.WithLabelValues(item.Module).Inc()
			break
		}
	}

	c.JSON(http.StatusOK, inferResponse{
		Reply:     reply,
		Modules:   h.pipeline.ModuleNames(),
		Trace:     trace,
		LatencyMS: latency.Milliseconds(),
	})
}

// assist генерирует текст для одного поля конфигурации истории.
func (h *Handler) assist(c *gin.Context) {
	var req assistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request data: " + err.Error()})
		return
	}

	value, err := h.assistantService.GenerateFieldValue(c.Request.Context(), req.Prompt, req.FieldType, req.StoryConfig)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, assistResponse{Value: value})
}
