// Package mocks содержит моки репозиториев, хранилища и сервисов на testify/mock.
package mocks

import (
	"context"
	"time"

	"github.com/maynagashev/timelock/models"
	"github.com/maynagashev/timelock/server/internal/repository"
	"github.com/stretchr/testify/mock"
)

var (
	_ repository.UserRepository  = (*UserRepository)(nil)
	_ repository.AlbumRepository = (*AlbumRepository)(nil)
	_ repository.PhotoRepository = (*PhotoRepository)(nil)
)

// UserRepository - мок repository.UserRepository.
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) CreateUser(ctx context.Context, user *models.User) (string, error) {
	args := m.Called(ctx, user)
	return args.String(0), args.Error(1)
}

func (m *UserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1) //nolint:errcheck // Допустимо для моков
}

// AlbumRepository - мок repository.AlbumRepository.
type AlbumRepository struct {
	mock.Mock
}

func (m *AlbumRepository) CreateAlbum(ctx context.Context, album *models.Album) error {
	return m.Called(ctx, album).Error(0)
}

func (m *AlbumRepository) GetAlbumByID(ctx context.Context, albumID string) (*models.Album, error) {
	args := m.Called(ctx, albumID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Album), args.Error(1) //nolint:errcheck // Допустимо для моков
}

func (m *AlbumRepository) ListAlbumsByUserID(ctx context.Context, userID string) ([]models.Album, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Album), args.Error(1) //nolint:errcheck // Допустимо для моков
}

func (m *AlbumRepository) UpdateAlbumMetadata(
	ctx context.Context,
	albumID, userID string,
	patch repository.AlbumPatch,
) (*models.Album, error) {
	args := m.Called(ctx, albumID, userID, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Album), args.Error(1) //nolint:errcheck // Допустимо для моков
}

func (m *AlbumRepository) SetUnlockAt(
	ctx context.Context,
	albumID, userID string,
	unlockAt time.Time,
) (*models.Album, error) {
	args := m.Called(ctx, albumID, userID, unlockAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Album), args.Error(1) //nolint:errcheck // Допустимо для моков
}

func (m *AlbumRepository) DeleteAlbum(ctx context.Context, albumID, userID string) ([]string, error) {
	args := m.Called(ctx, albumID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1) //nolint:errcheck // Допустимо для моков
}

func (m *AlbumRepository) ListUnlockTimes(ctx context.Context) ([]*time.Time, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*time.Time), args.Error(1) //nolint:errcheck // Допустимо для моков
}

// PhotoRepository - мок repository.PhotoRepository.
type PhotoRepository struct {
	mock.Mock
}

func (m *PhotoRepository) CreatePhoto(ctx context.Context, photo *models.Photo, userID string) error {
	return m.Called(ctx, photo, userID).Error(0)
}

func (m *PhotoRepository) GetPhotoByID(ctx context.Context, photoID string) (*models.Photo, error) {
	args := m.Called(ctx, photoID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Photo), args.Error(1) //nolint:errcheck // Допустимо для моков
}

func (m *PhotoRepository) ListPhotosByAlbumID(ctx context.Context, albumID string) ([]models.Photo, error) {
	args := m.Called(ctx, albumID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Photo), args.Error(1) //nolint:errcheck // Допустимо для моков
}

func (m *PhotoRepository) ListPhotoSummaries(ctx context.Context, albumIDs []string) ([]models.PhotoSummary, error) {
	args := m.Called(ctx, albumIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PhotoSummary), args.Error(1) //nolint:errcheck // Допустимо для моков
}

func (m *PhotoRepository) UpdateCaption(
	ctx context.Context,
	photoID, userID string,
	caption string,
) (*models.Photo, error) {
	args := m.Called(ctx, photoID, userID, caption)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Photo), args.Error(1) //nolint:errcheck // Допустимо для моков
}

func (m *PhotoRepository) DeletePhoto(ctx context.Context, photoID, userID string) error {
	return m.Called(ctx, photoID, userID).Error(0)
}
