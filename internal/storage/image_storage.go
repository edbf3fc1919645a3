package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"storigrad-server/internal/models"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// Ограничения загрузки изображений.
var (
	allowedImageExts = map[string]struct{}{
		"png":  {},
		"jpg":  {},
		"jpeg": {},
		"webp": {},
	}
	disallowedContentTypes = map[string]struct{}{
		"image/svg+xml": {},
	}
)

// Config содержит настройки S3-совместимого хранилища изображений.
type Config struct {
	Endpoint      string
	Region        string
	Bucket        string
	AccessKey     string
	SecretKey     string
	UseSSL        bool
	PublicBaseURL string // CDN или публичный адрес бакета
	MaxSizeBytes  int64
}

// ImageStorage определяет операции над изображениями в объектном хранилище.
type ImageStorage interface {
	// Upload валидирует изображение, сохраняет его под уникальным ключом
	// и возвращает публичный URL.
	Upload(ctx context.Context, data []byte, contentType string) (string, error)
	// Get возвращает содержимое и content-type изображения по ключу.
	// Отсутствующий ключ - models.ErrImageNotFound.
	Get(ctx context.Context, key string) ([]byte, string, error)
}

// Compile-time check
var _ ImageStorage = (*s3ImageStorage)(nil)

type s3ImageStorage struct {
	client        *minio.Client
	bucket        string
	publicBaseURL string
	maxSizeBytes  int64
	logger        *zap.Logger
}

// NewS3ImageStorage creates an ImageStorage backed by an S3-compatible bucket.
func NewS3ImageStorage(cfg Config, logger *zap.Logger) (ImageStorage, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("S3_BUCKET is not set")
	}
	if cfg.AccessKey == "" {
		return nil, errors.New("S3_ACCESS_KEY is not set")
	}
	if cfg.SecretKey == "" {
		return nil, errors.New("S3_SECRET_KEY is not set")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	publicBaseURL := cfg.PublicBaseURL
	if publicBaseURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicBaseURL = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}

	maxSize := cfg.MaxSizeBytes
	if maxSize <= 0 {
		maxSize = 5 * 1024 * 1024
	}

	return &s3ImageStorage{
		client:        client,
		bucket:        cfg.Bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		maxSizeBytes:  maxSize,
		logger:        logger.Named("ImageStorage"),
	}, nil
}

// imageExtension выводит расширение файла из content-type (image/jpeg -> jpeg).
func imageExtension(contentType string) (string, error) {
	if _, banned := disallowedContentTypes[contentType]; banned {
		return "", models.ErrImageUnsupported
	}

	parts := strings.Split(contentType, "/")
	ext := strings.ToLower(strings.TrimSpace(parts[len(parts)-1]))
	if ext == "jpg" {
		ext = "jpeg"
	}
	if _, ok := allowedImageExts[ext]; !ok {
		return "", models.ErrImageUnsupported
	}
	return ext, nil
}

// Upload validates and stores an image, returning its public URL.
func (s *s3ImageStorage) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	ext, err := imageExtension(contentType)
	if err != nil {
		return "", err
	}
	if int64(len(data)) > s.maxSizeBytes {
		return "", models.ErrImageTooLarge
	}

	key := fmt.Sprintf("images/%s.%s", uuid.New(), ext)
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		s.logger.Error("Failed to upload image", zap.Error(err), zap.String("key", key))
		return "", fmt.Errorf("failed to upload image: %w", err)
	}

	s.logger.Info("Image uploaded", zap.String("key", key), zap.Int("size", len(data)))
	return s.publicBaseURL + "/" + key, nil
}

// Get retrieves an image by its storage key.
func (s *s3ImageStorage) Get(ctx context.Context, key string) ([]byte, string, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		s.logger.Error("Failed to get image object", zap.Error(err), zap.String("key", key))
		return nil, "", fmt.Errorf("failed to get image: %w", err)
	}
	defer obj.Close()

	stat, err := obj.Stat()
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, "", models.ErrImageNotFound
		}
		s.logger.Error("Failed to stat image object", zap.Error(err), zap.String("key", key))
		return nil, "", fmt.Errorf("failed to stat image: %w", err)
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		s.logger.Error("Failed to read image object", zap.Error(err), zap.String("key", key))
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}

	return data, stat.ContentType, nil
}
