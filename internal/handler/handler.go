package handler

import (
	"net/http"
	"time"

	"storigrad-server/internal/router"
	"storigrad-server/internal/service"
	"storigrad-server/internal/storage"

	rateli "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler обрабатывает HTTP запросы сервера историй.
type Handler struct {
	authService        service.AuthService
	storyService       service.StoryService
	storytellerService service.StorytellerService
	assistantService   service.FieldAssistantService
	pipeline           *router.Pipeline
	imageStorage       storage.ImageStorage // nil, если хранилище не сконфигурировано
	logger             *zap.Logger
}

// NewHandler создает новый Handler.
func NewHandler(
	authService service.AuthService,
	storyService service.StoryService,
	storytellerService service.StorytellerService,
	assistantService service.FieldAssistantService,
	pipeline *router.Pipeline,
	imageStorage storage.ImageStorage,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		authService:        authService,
		storyService:       storyService,
		storytellerService: storytellerService,
		assistantService:   assistantService,
		pipeline:           pipeline,
		imageStorage:       imageStorage,
		logger:             logger.Named("Handler"),
	}
}

// RegisterRoutes регистрирует все маршруты сервера.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate: 10 запросов в минуту с одного IP на эндпоинты аутентификации
	rateLimitStore := rateli.InMemoryStore(&rateli.InMemoryOptions{
		Rate:  time.Minute,
		Limit: 10,
	})
	rateLimitMiddleware := rateli.RateLimiter(rateLimitStore, &rateli.Options{
		ErrorHandler: func(c *gin.Context, info rateli.Info) {
			h.logger.Warn("Rate limit exceeded",
				zap.String("clientIP", c.ClientIP()),
				zap.Time("resetTime", info.ResetTime),
				zap.String("path", c.Request.URL.Path),
			)
			c.String(http.StatusTooManyRequests, "Too many requests. Try again in "+time.Until(info.ResetTime).String())
		},
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	})

	authGroup := r.Group("/auth", rateLimitMiddleware)
	{
		authGroup.POST("/register", h.register)
		authGroup.POST("/login", h.login)
	}

	// Публичная раздача изображений
	r.GET("/images/*key", h.getImage)

	api := r.Group("/api", h.AuthMiddleware())
	{
		api.GET("/me", h.getProfile)
		api.PUT("/me", h.updateProfile)

		api.POST("/stories", h.createStory)
		api.GET("/stories", h.listStories)
		api.GET("/stories/templates", h.listTemplates)
		api.GET("/stories/:story_id", h.getStory)
		api.PUT("/stories/:story_id", h.updateStory)
		api.DELETE("/stories/:story_id", h.deleteStory)
		api.POST("/stories/:story_id/duplicate", h.duplicateStory)

		api.POST("/stories/:story_id/step", h.stepStory)
		api.GET("/stories/:story_id/turns", h.getTurns)

		api.POST("/infer", h.infer)
		api.POST("/assist", h.assist)
		api.POST("/images", h.uploadImage)
	}
}
