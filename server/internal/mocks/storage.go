package mocks

import (
	"context"
	"io"
	"time"

	"github.com/maynagashev/timelock/server/internal/storage"
	"github.com/stretchr/testify/mock"
)

var _ storage.FileStorage = (*FileStorage)(nil)

// FileStorage - мок storage.FileStorage.
type FileStorage struct {
	mock.Mock
}

func (m *FileStorage) UploadFile(
	ctx context.Context,
	objectKey string,
	reader io.Reader,
	size int64,
	contentType string,
) error {
	args := m.Called(ctx, objectKey, reader, size, contentType)
	// Вычитываем тело, как это сделал бы настоящий клиент
	_, _ = io.Copy(io.Discard, reader)
	return args.Error(0)
}

func (m *FileStorage) PresignedURL(ctx context.Context, objectKey string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, objectKey, ttl)
	return args.String(0), args.Error(1)
}

func (m *FileStorage) RemoveFiles(ctx context.Context, objectKeys []string) error {
	return m.Called(ctx, objectKeys).Error(0)
}
