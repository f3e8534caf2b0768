package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// MaxPresignTTL - максимальный срок жизни подписанной ссылки, который допускает S3.
const MaxPresignTTL = 7 * 24 * time.Hour

// FileStorage определяет интерфейс для взаимодействия с объектным хранилищем.
type FileStorage interface {
	UploadFile(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error
	PresignedURL(ctx context.Context, objectKey string, ttl time.Duration) (string, error)
	RemoveFiles(ctx context.Context, objectKeys []string) error
}

var _ FileStorage = (*MinioClient)(nil)

// MinioClient реализует FileStorage для MinIO.
type MinioClient struct {
	client     *minio.Client
	bucketName string
}

// MinioConfig содержит параметры для подключения к MinIO.
type MinioConfig struct {
	Endpoint        string // Адрес MinIO (например, "localhost:9000")
	AccessKeyID     string // Логин
	SecretAccessKey string // Пароль
	UseSSL          bool   // Использовать SSL (обычно false для локальной разработки)
	BucketName      string // Имя бакета для хранения фотографий
	Region          string // Регион (не обязательно для MinIO, но без него подпись ссылок ходит в сеть)
}

// NewMinioClient создает новый клиент MinIO и при необходимости создает бакет.
func NewMinioClient(ctx context.Context, cfg MinioConfig) (*MinioClient, error) {
	zap.S().Infof("[Minio] Инициализация клиента для эндпоинта %s...", cfg.Endpoint)

	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации клиента MinIO: %w", err)
	}

	// Проверка существования бакета и создание при необходимости
	exists, err := minioClient.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("ошибка проверки существования бакета '%s': %w", cfg.BucketName, err)
	}
	if !exists {
		zap.S().Infof("[Minio] Бакет '%s' не найден, попытка создания...", cfg.BucketName)
		err = minioClient.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{Region: cfg.Region})
		if err != nil {
			return nil, fmt.Errorf("ошибка создания бакета '%s': %w", cfg.BucketName, err)
		}
		zap.S().Infof("[Minio] Бакет '%s' успешно создан.", cfg.BucketName)
	}

	zap.S().Infof("[Minio] Клиент успешно инициализирован для бакета '%s'.", cfg.BucketName)
	return &MinioClient{
		client:     minioClient,
		bucketName: cfg.BucketName,
	}, nil
}

// UploadFile загружает файл в MinIO.
func (c *MinioClient) UploadFile(
	ctx context.Context,
	objectKey string,
	reader io.Reader,
	size int64,
	contentType string,
) error {
	zap.S().Debugf("[Minio] Загрузка файла '%s' в бакет '%s'...", objectKey, c.bucketName)

	uploadInfo, err := c.client.PutObject(ctx, c.bucketName, objectKey, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		zap.S().Errorf("[Minio] Ошибка загрузки файла '%s': %v", objectKey, err)
		return fmt.Errorf("ошибка загрузки файла в MinIO: %w", err)
	}

	zap.S().Infof("[Minio] Файл '%s' загружен, размер: %d, ETag: %s", objectKey, uploadInfo.Size, uploadInfo.ETag)
	return nil
}

// PresignedURL возвращает подписанную ссылку на скачивание объекта, действующую ttl.
func (c *MinioClient) PresignedURL(ctx context.Context, objectKey string, ttl time.Duration) (string, error) {
	if ttl <= 0 || ttl > MaxPresignTTL {
		return "", fmt.Errorf("%w: %s", ErrInvalidTTL, ttl)
	}

	u, err := c.client.PresignedGetObject(ctx, c.bucketName, objectKey, ttl, nil)
	if err != nil {
		zap.S().Errorf("[Minio] Ошибка подписи ссылки для '%s': %v", objectKey, err)
		return "", fmt.Errorf("ошибка подписи ссылки MinIO: %w", err)
	}
	return u.String(), nil
}

// RemoveFiles удаляет объекты пачкой. Ошибки по отдельным объектам собираются
// в одну; отсутствие объекта ошибкой не считается.
func (c *MinioClient) RemoveFiles(ctx context.Context, objectKeys []string) error {
	if len(objectKeys) == 0 {
		return nil
	}

	objectsCh := make(chan minio.ObjectInfo, len(objectKeys))
	for _, key := range objectKeys {
		objectsCh <- minio.ObjectInfo{Key: key}
	}
	close(objectsCh)

	var errs []error
	for rErr := range c.client.RemoveObjects(ctx, c.bucketName, objectsCh, minio.RemoveObjectsOptions{}) {
		var minioErr minio.ErrorResponse
		if errors.As(rErr.Err, &minioErr) && minioErr.Code == "NoSuchKey" {
			continue
		}
		zap.S().Warnf("[Minio] Не удалось удалить '%s': %v", rErr.ObjectName, rErr.Err)
		errs = append(errs, fmt.Errorf("%s: %w", rErr.ObjectName, rErr.Err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("ошибка удаления %d из %d файлов: %w", len(errs), len(objectKeys), errors.Join(errs...))
	}

	zap.S().Infof("[Minio] Удалено файлов: %d", len(objectKeys))
	return nil
}

// Кастомные ошибки хранилища.
var (
	ErrInvalidTTL = errors.New("недопустимый срок жизни ссылки")
)
