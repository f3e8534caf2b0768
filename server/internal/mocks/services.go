package mocks

import (
	"context"
	"time"

	"github.com/maynagashev/timelock/internal/access"
	"github.com/maynagashev/timelock/models"
	"github.com/maynagashev/timelock/server/internal/services"
	"github.com/stretchr/testify/mock"
)

var (
	_ services.AuthService  = (*AuthService)(nil)
	_ services.AlbumService = (*AlbumService)(nil)
	_ services.PhotoService = (*PhotoService)(nil)
)

// AuthService - мок services.AuthService.
type AuthService struct {
	mock.Mock
}

func (m *AuthService) Register(ctx context.Context, username, password string) error {
	return m.Called(ctx, username, password).Error(0)
}

func (m *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	args := m.Called(ctx, username, password)
	return args.String(0), args.Error(1)
}

// AlbumService - мок services.AlbumService.
type AlbumService struct {
	mock.Mock
}

func (m *AlbumService) Create(ctx context.Context, ownerID, title string) (*models.Album, error) {
	args := m.Called(ctx, ownerID, title)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Album), args.Error(1) //nolint:errcheck // Допустимо для моков
}

func (m *AlbumService) ListByOwner(ctx context.Context, ownerID string) ([]models.Album, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Album), args.Error(1) //nolint:errcheck // Допустимо для моков
}

func (m *AlbumService) Get(ctx context.Context, ownerID, albumID string) (*models.Album, access.Decision, error) {
	args := m.Called(ctx, ownerID, albumID)
	decision, _ := args.Get(1).(access.Decision)
	if args.Get(0) == nil {
		return nil, decision, args.Error(2)
	}
	return args.Get(0).(*models.Album), decision, args.Error(2) //nolint:errcheck // Допустимо для моков
}

func (m *AlbumService) UpdateMetadata(
	ctx context.Context,
	ownerID, albumID string,
	patch models.UpdateAlbumRequest,
) (*models.Album, error) {
	args := m.Called(ctx, ownerID, albumID, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Album), args.Error(1) //nolint:errcheck // Допустимо для моков
}

func (m *AlbumService) Unseal(ctx context.Context, ownerID, albumID string) (*models.Album, error) {
	args := m.Called(ctx, ownerID, albumID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Album), args.Error(1) //nolint:errcheck // Допустимо для моков
}

func (m *AlbumService) Delete(ctx context.Context, ownerID, albumID string) error {
	return m.Called(ctx, ownerID, albumID).Error(0)
}

func (m *AlbumService) Stats(ctx context.Context, ownerID string) (models.AlbumStats, error) {
	args := m.Called(ctx, ownerID)
	stats, _ := args.Get(0).(models.AlbumStats)
	return stats, args.Error(1)
}

// PhotoService - мок services.PhotoService.
type PhotoService struct {
	mock.Mock
}

func (m *PhotoService) Upload(
	ctx context.Context,
	ownerID, albumID string,
	upload services.PhotoUpload,
) (*models.Photo, error) {
	args := m.Called(ctx, ownerID, albumID, upload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Photo), args.Error(1) //nolint:errcheck // Допустимо для моков
}

func (m *PhotoService) Delete(ctx context.Context, ownerID, photoID string) error {
	return m.Called(ctx, ownerID, photoID).Error(0)
}

func (m *PhotoService) UpdateCaption(ctx context.Context, ownerID, photoID, caption string) (*models.Photo, error) {
	args := m.Called(ctx, ownerID, photoID, caption)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Photo), args.Error(1) //nolint:errcheck // Допустимо для моков
}

func (m *PhotoService) ListByAlbum(ctx context.Context, ownerID, albumID string) ([]models.Photo, error) {
	args := m.Called(ctx, ownerID, albumID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Photo), args.Error(1) //nolint:errcheck // Допустимо для моков
}

func (m *PhotoService) SignedURL(
	ctx context.Context,
	ownerID, photoID string,
	ttl time.Duration,
) (*models.PhotoURLResponse, error) {
	args := m.Called(ctx, ownerID, photoID, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PhotoURLResponse), args.Error(1) //nolint:errcheck // Допустимо для моков
}

func (m *PhotoService) SignedURLs(ctx context.Context, ownerID, albumID string) ([]models.PhotoView, error) {
	args := m.Called(ctx, ownerID, albumID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PhotoView), args.Error(1) //nolint:errcheck // Допустимо для моков
}
