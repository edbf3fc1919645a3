package handler

import (
	"net/http"

	"storigrad-server/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 100
)

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request data: " + err.Error()})
		return
	}

	if len(req.Password) < minPasswordLength || len(req.Password) > maxPasswordLength {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Error: "Password length must be between 8 and 100 characters"})
		return
	}

	user, err := h.authService.Register(c.Request.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	registrationsTotal.Inc()

	c.JSON(http.StatusCreated, gin.H{
		"id":       user.ID.String(),
		"email":    user.Email,
		"username": user.Username,
	})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request data: " + err.Error()})
		return
	}

	token, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
}

func (h *Handler) getProfile(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		handleServiceError(c, models.ErrTokenInvalid)
		return
	}

	user, err := h.authService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, profileResponse{
		ID:           user.ID.String(),
		Email:        user.Email,
		Username:     user.Username,
		Plan:         user.Plan,
		StoriesCount: user.StoriesCount,
	})
}

func (h *Handler) updateProfile(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		handleServiceError(c, models.ErrTokenInvalid)
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request data: " + err.Error()})
		return
	}

	user, err := h.authService.UpdateProfile(c.Request.Context(), userID, req.Username)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, profileResponse{
		ID:           user.ID.String(),
		Email:        user.Email,
		Username:     user.Username,
		Plan:         user.Plan,
		StoriesCount: user.StoriesCount,
	})
}
