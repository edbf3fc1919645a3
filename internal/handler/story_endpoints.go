package handler

import (
	"net/http"
	"strconv"

	"storigrad-server/internal/models"
	"storigrad-server/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// storyIDParam парсит :story_id из пути.
func storyIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("story_id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid story id"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) createStory(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		handleServiceError(c, models.ErrTokenInvalid)
		return
	}

	var req createStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request data: " + err.Error()})
		return
	}

	story, err := h.storyService.CreateStory(c.Request.Context(), userID, req.Title, req.Genre, req.Config)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, story)
}

func (h *Handler) listStories(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		handleServiceError(c, models.ErrTokenInvalid)
		return
	}

	stories, err := h.storyService.ListStories(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"stories": stories})
}

func (h *Handler) listTemplates(c *gin.Context) {
	templates, err := h.storyService.ListTemplates(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"templates": templates})
}

// getStory возвращает собственную историю с хвостом лога ходов.
// Чтение шаблона копирует его в новую историю пользователя и отвечает
// редиректом 303 на адрес копии.
func (h *Handler) getStory(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		handleServiceError(c, models.ErrTokenInvalid)
		return
	}
	storyID, ok := storyIDParam(c)
	if !ok {
		return
	}

	res, err := h.storyService.GetStory(c.Request.Context(), storyID, userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	if res.RedirectTo != nil {
		templateCopiesTotal.Inc()
		c.Redirect(http.StatusSeeOther, "/api/stories/"+res.RedirectTo.String())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"story": res.Story,
		"turns": res.Turns,
	})
}

func (h *Handler) updateStory(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		handleServiceError(c, models.ErrTokenInvalid)
		return
	}
	storyID, ok := storyIDParam(c)
	if !ok {
		return
	}

	var req updateStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request data: " + err.Error()})
		return
	}

	story, err := h.storyService.UpdateStory(c.Request.Context(), storyID, userID, service.StoryUpdate{
		Title:  req.Title,
		Genre:  req.Genre,
		Config: req.Config,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, story)
}

func (h *Handler) deleteStory(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		handleServiceError(c, models.ErrTokenInvalid)
		return
	}
	storyID, ok := storyIDParam(c)
	if !ok {
		return
	}

	if err := h.storyService.DeleteStory(c.Request.Context(), storyID, userID); err != nil {
		handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) duplicateStory(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		handleServiceError(c, models.ErrTokenInvalid)
		return
	}
	storyID, ok := storyIDParam(c)
	if !ok {
		return
	}

	story, err := h.storyService.DuplicateStory(c.Request.Context(), storyID, userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, story)
}

func (h *Handler) getTurns(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		handleServiceError(c, models.ErrTokenInvalid)
		return
	}
	storyID, ok := storyIDParam(c)
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid limit"})
			return
		}
		limit = parsed
	}

	turns, err := h.storyService.GetTurns(c.Request.Context(), storyID, userID, limit)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if turns == nil {
		turns = []models.Turn{}
	}

	c.JSON(http.StatusOK, gin.H{"turns": turns})
}
