package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storigrad-server/internal/config"
	"storigrad-server/internal/database"
	"storigrad-server/internal/generation"
	"storigrad-server/internal/handler"
	"storigrad-server/internal/repository"
	routerpkg "storigrad-server/internal/router"
	"storigrad-server/internal/service"
	"storigrad-server/internal/storage"
	"storigrad-server/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".env")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// --- Logger ---
	appLogger, err := logger.New(logger.Config{Level: cfg.LogLevel})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()
	zap.ReplaceGlobals(appLogger)
	zap.L().Info("Logger initialized", zap.String("env", cfg.Env), zap.String("level", cfg.LogLevel))

	// --- Database ---
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		zap.L().Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()
	zap.L().Info("Database connection pool established")

	if err := database.ApplyMigrations(cfg.DatabaseURL); err != nil {
		zap.L().Fatal("Failed to apply database migrations", zap.Error(err))
	}
	zap.L().Info("Database migrations applied")

	// --- Repositories ---
	userRepo := repository.NewPgUserRepository(pool, appLogger)
	storyRepo := repository.NewPgStoryRepository(pool, appLogger)
	turnLogRepo := repository.NewPgTurnLogRepository(pool, appLogger)

	// --- External Clients ---
	ycClient := generation.NewYandexClient(generation.YandexConfig{
		APIKey:  cfg.YCAPIKey,
		Project: cfg.YCProject,
		BaseURL: cfg.YCBaseURL,
		Timeout: cfg.YCTimeout,
	}, appLogger)
	if err := ycClient.Ready(); err != nil {
		// Не фатально: сервер поднимается, генерация вернет ошибку при вызове
		zap.L().Warn("Turn generation provider is not fully configured", zap.Error(err))
	}

	assistantClient := generation.NewAssistantClient(generation.AssistantConfig{
		APIKey:  cfg.AssistantAPIKey,
		BaseURL: cfg.AssistantBaseURL,
		Model:   cfg.AssistantModel,
	}, appLogger)

	var imageStorage storage.ImageStorage
	if cfg.S3Bucket != "" {
		imageStorage, err = storage.NewS3ImageStorage(storage.Config{
			Endpoint:      cfg.S3Endpoint,
			Region:        cfg.S3Region,
			Bucket:        cfg.S3Bucket,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			UseSSL:        cfg.S3UseSSL,
			PublicBaseURL: cfg.PublicCDNURL,
			MaxSizeBytes:  cfg.MaxImageSizeBytes,
		}, appLogger)
		if err != nil {
			zap.L().Fatal("Failed to initialize image storage", zap.Error(err))
		}
		zap.L().Info("Image storage initialized", zap.String("bucket", cfg.S3Bucket))
	} else {
		zap.L().Warn("S3_BUCKET is not set, image endpoints are disabled")
	}

	// --- Services ---
	authSvc := service.NewAuthService(userRepo, cfg, appLogger)
	storySvc := service.NewStoryService(storyRepo, turnLogRepo, userRepo, appLogger)
	storytellerSvc := service.NewStorytellerService(storyRepo, turnLogRepo, ycClient, cfg.YCAgentPromptID, appLogger)
	assistantSvc := service.NewFieldAssistantService(assistantClient, appLogger)
	pipeline := routerpkg.NewPipeline(routerpkg.DefaultModules())

	h := handler.NewHandler(authSvc, storySvc, storytellerSvc, assistantSvc, pipeline, imageStorage, appLogger)

	// --- HTTP Server Setup (Gin) ---
	gin.SetMode(gin.ReleaseMode)
	if cfg.Env == "development" {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.RedirectTrailingSlash = true
	engine.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	allowedOrigins := cfg.GetAllowedOrigins()
	if len(allowedOrigins) > 0 {
		corsConfig.AllowOrigins = allowedOrigins
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
		zap.L().Info("CORSAllowedOrigins not set, allowing default", zap.String("origin", "http://localhost:3000"))
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = 12 * time.Hour
	engine.Use(cors.New(corsConfig))

	h.RegisterRoutes(engine)

	// Prometheus middleware регистрируется после роутов
	p := ginprometheus.NewPrometheus("gin")
	p.Use(engine)

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 180 * time.Second, // ход рассказчика ждет ответа провайдера
		IdleTimeout:  60 * time.Second,
	}

	zap.L().Info("Starting HTTP server", zap.String("port", cfg.ServerPort))

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zap.L().Fatal("HTTP Server listen error", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("HTTP Server forced to shutdown", zap.Error(err))
	}

	zap.L().Info("Server exited")
}
