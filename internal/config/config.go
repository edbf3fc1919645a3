package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the application configuration.
type Config struct {
	Env        string `envconfig:"ENV" default:"development"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"debug"`
	ServerPort string `envconfig:"SERVER_PORT" default:"8080"`

	// Database (PostgreSQL)
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// JWT Settings
	JWTSecret      string        `envconfig:"JWT_SECRET" required:"true"`
	JWTExpire      time.Duration `envconfig:"JWT_EXPIRE" default:"12h"`
	PasswordPepper string        `envconfig:"PASSWORD_PEPPER"`

	// CORS Settings
	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000,http://127.0.0.1:3000"`

	// Провайдер генерации ходов (Yandex Cloud Responses API).
	// Ключи не обязательны при старте: их отсутствие - жесткая ошибка
	// конкретного вызова генерации, а не всего сервиса.
	YCAPIKey        string        `envconfig:"YANDEX_CLOUD_API_KEY"`
	YCProject       string        `envconfig:"YANDEX_CLOUD_PROJECT"`
	YCBaseURL       string        `envconfig:"YANDEX_CLOUD_BASE_URL" default:"https://rest-assistant.api.cloud.yandex.net/v1"`
	YCAgentPromptID string        `envconfig:"YANDEX_CLOUD_AGENT_PROMPT_ID"`
	YCTimeout       time.Duration `envconfig:"YANDEX_CLOUD_TIMEOUT" default:"120s"`

	// Помощник заполнения полей конфига (OpenAI-совместимый роутер).
	AssistantAPIKey  string `envconfig:"HF_TOKEN"`
	AssistantBaseURL string `envconfig:"ASSISTANT_BASE_URL" default:"https://router.huggingface.co/v1"`
	AssistantModel   string `envconfig:"ASSISTANT_MODEL" default:"Qwen/Qwen3-235B-A22B-Instruct-2507:novita"`

	// Объектное хранилище изображений (S3-совместимое).
	S3Endpoint        string `envconfig:"S3_ENDPOINT" default:"storage.yandexcloud.net"`
	S3Region          string `envconfig:"S3_REGION" default:"ru-central1"`
	S3Bucket          string `envconfig:"S3_BUCKET"`
	S3AccessKey       string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey       string `envconfig:"S3_SECRET_KEY"`
	S3UseSSL          bool   `envconfig:"S3_USE_SSL" default:"true"`
	PublicCDNURL      string `envconfig:"PUBLIC_CDN_URL"`
	MaxImageSizeBytes int64  `envconfig:"MAX_IMAGE_SIZE_BYTES" default:"5242880"`
}

// GetAllowedOrigins splits the CORSAllowedOrigins string into a slice.
func (c *Config) GetAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(c.CORSAllowedOrigins, " ", ""), ",")
}

// LoadConfig loads configuration from a .env file (if present) and environment variables.
func LoadConfig(envFilePath string) (*Config, error) {
	if _, err := os.Stat(envFilePath); err == nil {
		if err := godotenv.Load(envFilePath); err != nil {
			log.Printf("Warning: Could not load %s file: %v", envFilePath, err)
		} else {
			log.Printf("Loaded configuration from %s", envFilePath)
		}
	} else if !os.IsNotExist(err) {
		log.Printf("Warning: Error checking %s file: %v", envFilePath, err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error processing env vars: %w", err)
	}

	return &cfg, nil
}
