package services

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/maynagashev/timelock/internal/access"
	"github.com/maynagashev/timelock/models"
	"github.com/maynagashev/timelock/server/internal/metrics"
	"github.com/maynagashev/timelock/server/internal/repository"
	"github.com/maynagashev/timelock/server/internal/storage"
	"go.uber.org/zap"
)

// Значения по умолчанию для сервиса фотографий.
const (
	DefaultMaxPhotoSize = 10 << 20 // 10 MiB
	DefaultURLTTL       = time.Hour
)

// allowedMimeTypes - допустимые типы изображений и расширения ключей для них.
var allowedMimeTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// PhotoUpload - загружаемая фотография.
// SizeBytes - размер, заявленный клиентом; фактический размер берется из Data.
type PhotoUpload struct {
	Data      []byte
	FileName  string
	SizeBytes int64
	MimeType  string
	Caption   string
}

// PhotoConfig - настройки сервиса фотографий.
type PhotoConfig struct {
	MaxPhotoSize int64         // Максимальный размер файла в байтах
	URLTTL       time.Duration // Срок жизни подписанной ссылки по умолчанию
}

// PhotoService определяет интерфейс для сервиса работы с фотографиями.
type PhotoService interface {
	Upload(ctx context.Context, ownerID, albumID string, upload PhotoUpload) (*models.Photo, error)
	Delete(ctx context.Context, ownerID, photoID string) error
	UpdateCaption(ctx context.Context, ownerID, photoID, caption string) (*models.Photo, error)
	ListByAlbum(ctx context.Context, ownerID, albumID string) ([]models.Photo, error)
	SignedURL(ctx context.Context, ownerID, photoID string, ttl time.Duration) (*models.PhotoURLResponse, error)
	SignedURLs(ctx context.Context, ownerID, albumID string) ([]models.PhotoView, error)
}

var _ PhotoService = (*photoService)(nil)

type photoService struct {
	albumRepo repository.AlbumRepository
	photoRepo repository.PhotoRepository
	files     storage.FileStorage
	cfg       PhotoConfig
	clock     access.Clock
}

// NewPhotoService создает новый экземпляр сервиса фотографий.
// Нулевые значения в cfg заменяются значениями по умолчанию.
func NewPhotoService(
	albumRepo repository.AlbumRepository,
	photoRepo repository.PhotoRepository,
	files storage.FileStorage,
	cfg PhotoConfig,
	clock access.Clock,
) PhotoService {
	if cfg.MaxPhotoSize <= 0 {
		cfg.MaxPhotoSize = DefaultMaxPhotoSize
	}
	if cfg.URLTTL <= 0 {
		cfg.URLTTL = DefaultURLTTL
	}
	if clock == nil {
		clock = time.Now
	}
	return &photoService{albumRepo: albumRepo, photoRepo: photoRepo, files: files, cfg: cfg, clock: clock}
}

// Upload сохраняет фотографию в запечатанный альбом: сначала файл, затем запись.
// Если запись не удалась, загруженный файл удаляется.
func (s *photoService) Upload(
	ctx context.Context,
	ownerID, albumID string,
	upload PhotoUpload,
) (*models.Photo, error) {
	album, err := loadOwnedAlbum(ctx, s.albumRepo, ownerID, albumID)
	if err != nil {
		return nil, err
	}
	if album.UnlockAt != nil {
		zap.S().Warnf("[PhotoService] Попытка загрузки в уже вскрытый альбом %s", albumID)
		return nil, ErrAlbumUnsealed
	}

	size := int64(len(upload.Data))
	if size == 0 {
		return nil, validationError("файл пустой")
	}
	if size > s.cfg.MaxPhotoSize || upload.SizeBytes > s.cfg.MaxPhotoSize {
		return nil, validationError("файл больше %s", humanize.IBytes(uint64(s.cfg.MaxPhotoSize)))
	}
	mimeType, ext, ok := normalizeMimeType(upload.MimeType)
	if !ok {
		return nil, validationError("неподдерживаемый тип файла %q", upload.MimeType)
	}
	caption, err := normalizeCaption(upload.Caption)
	if err != nil {
		return nil, err
	}

	photoID := uuid.NewString()
	photo := &models.Photo{
		ID:           photoID,
		AlbumID:      albumID,
		StorageKey:   ownerID + "/" + albumID + "/" + photoID + ext,
		OriginalName: originalName(upload.FileName, photoID, ext),
		SizeBytes:    size,
		MimeType:     mimeType,
		Caption:      caption,
		UploadedAt:   storeTime(s.clock),
	}

	if err = s.files.UploadFile(ctx, photo.StorageKey, bytes.NewReader(upload.Data), size, mimeType); err != nil {
		return nil, storeError("загрузка файла", err)
	}

	if err = s.photoRepo.CreatePhoto(ctx, photo, ownerID); err != nil {
		zap.S().Warnf("[PhotoService] Запись о фотографии не сохранена, удаляем файл '%s'", photo.StorageKey)
		removeFilesBestEffort(ctx, s.files, []string{photo.StorageKey})
		if errors.Is(err, repository.ErrAlbumNotSealed) {
			return nil, ErrAlbumUnsealed
		}
		return nil, storeError("сохранение фотографии", err)
	}

	metrics.PhotosUploaded.Inc()
	metrics.PhotoBytesUploaded.Add(float64(size))
	zap.S().Infof("[PhotoService] В альбом %s загружена фотография %s (%s)",
		albumID, photoID, humanize.IBytes(uint64(size)))
	return photo, nil
}

// Delete удаляет фотографию в любом состоянии альбома: сначала запись, затем файл.
func (s *photoService) Delete(ctx context.Context, ownerID, photoID string) error {
	photo, err := s.ownedPhoto(ctx, ownerID, photoID)
	if err != nil {
		return err
	}

	if err = s.photoRepo.DeletePhoto(ctx, photoID, ownerID); err != nil {
		if errors.Is(err, repository.ErrPhotoNotFound) {
			return ErrPhotoNotFound
		}
		return storeError("удаление фотографии", err)
	}

	metrics.PhotosDeleted.Inc()
	removeFilesBestEffort(ctx, s.files, []string{photo.StorageKey})
	zap.S().Infof("[PhotoService] Фотография %s удалена из альбома %s", photoID, photo.AlbumID)
	return nil
}

// UpdateCaption меняет подпись фотографии. Пустая подпись удаляет ее.
func (s *photoService) UpdateCaption(ctx context.Context, ownerID, photoID, caption string) (*models.Photo, error) {
	normalized, err := normalizeCaption(caption)
	if err != nil {
		return nil, err
	}
	if _, err = s.ownedPhoto(ctx, ownerID, photoID); err != nil {
		return nil, err
	}

	value := ""
	if normalized != nil {
		value = *normalized
	}
	photo, err := s.photoRepo.UpdateCaption(ctx, photoID, ownerID, value)
	if err != nil {
		if errors.Is(err, repository.ErrPhotoNotFound) {
			return nil, ErrPhotoNotFound
		}
		return nil, storeError("изменение подписи", err)
	}
	return photo, nil
}

// ListByAlbum возвращает фотографии альбома владельца в порядке загрузки.
func (s *photoService) ListByAlbum(ctx context.Context, ownerID, albumID string) ([]models.Photo, error) {
	if _, err := loadOwnedAlbum(ctx, s.albumRepo, ownerID, albumID); err != nil {
		return nil, err
	}

	photos, err := s.photoRepo.ListPhotosByAlbumID(ctx, albumID)
	if err != nil {
		return nil, storeError("получение фотографий", err)
	}
	return photos, nil
}

// SignedURL выдает временную ссылку на файл, пока альбом открыт для просмотра.
// ttl <= 0 означает срок по умолчанию.
func (s *photoService) SignedURL(
	ctx context.Context,
	ownerID, photoID string,
	ttl time.Duration,
) (*models.PhotoURLResponse, error) {
	if ttl <= 0 {
		ttl = s.cfg.URLTTL
	}
	if ttl > storage.MaxPresignTTL {
		return nil, validationError("срок жизни ссылки больше %s", storage.MaxPresignTTL)
	}

	photo, err := s.ownedPhoto(ctx, ownerID, photoID)
	if err != nil {
		return nil, err
	}
	album, err := loadOwnedAlbum(ctx, s.albumRepo, ownerID, photo.AlbumID)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	if d := access.Evaluate(album.UnlockAt, now); !d.CanAccess {
		zap.S().Infof("[PhotoService] Ссылка на фотографию %s не выдана: альбом в состоянии %s", photoID, d.Status)
		return nil, ErrAlbumLocked
	}

	url, err := s.files.PresignedURL(ctx, photo.StorageKey, ttl)
	if err != nil {
		return nil, storeError("подпись ссылки", err)
	}
	return &models.PhotoURLResponse{URL: url, ExpiresAt: now.Add(ttl).UTC()}, nil
}

// SignedURLs выдает ссылки на все фотографии открытого для просмотра альбома.
func (s *photoService) SignedURLs(ctx context.Context, ownerID, albumID string) ([]models.PhotoView, error) {
	album, err := loadOwnedAlbum(ctx, s.albumRepo, ownerID, albumID)
	if err != nil {
		return nil, err
	}
	if !access.Evaluate(album.UnlockAt, s.clock()).CanAccess {
		return nil, ErrAlbumLocked
	}

	photos, err := s.photoRepo.ListPhotosByAlbumID(ctx, albumID)
	if err != nil {
		return nil, storeError("получение фотографий", err)
	}

	views := make([]models.PhotoView, 0, len(photos))
	for _, p := range photos {
		url, err := s.files.PresignedURL(ctx, p.StorageKey, s.cfg.URLTTL)
		if err != nil {
			return nil, storeError("подпись ссылки", err)
		}
		views = append(views, models.PhotoView{Photo: p, URL: url})
	}
	return views, nil
}

// ownedPhoto находит фотографию и проверяет владельца через ее альбом.
func (s *photoService) ownedPhoto(ctx context.Context, ownerID, photoID string) (*models.Photo, error) {
	if ownerID == "" {
		return nil, ErrAuthRequired
	}

	photo, err := s.photoRepo.GetPhotoByID(ctx, photoID)
	if err != nil {
		if errors.Is(err, repository.ErrPhotoNotFound) {
			return nil, ErrPhotoNotFound
		}
		return nil, storeError("получение фотографии", err)
	}

	if _, err = loadOwnedAlbum(ctx, s.albumRepo, ownerID, photo.AlbumID); err != nil {
		if errors.Is(err, ErrAlbumNotFound) {
			return nil, ErrPhotoNotFound
		}
		return nil, err
	}
	return photo, nil
}

// normalizeMimeType приводит тип к каноническому виду и проверяет его по списку
// допустимых. image/jpg принимается как синоним image/jpeg.
func normalizeMimeType(raw string) (string, string, bool) {
	mimeType := strings.ToLower(strings.TrimSpace(raw))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if mimeType == "image/jpg" {
		mimeType = "image/jpeg"
	}
	ext, ok := allowedMimeTypes[mimeType]
	return mimeType, ext, ok
}

func normalizeCaption(raw string) (*string, error) {
	caption := strings.TrimSpace(raw)
	if caption == "" {
		return nil, nil
	}
	if n := utf8.RuneCountInString(caption); n > models.MaxCaptionLength {
		return nil, validationError("подпись длиннее %d символов (%d)", models.MaxCaptionLength, n)
	}
	return &caption, nil
}

// originalName оставляет от имени файла только базовую часть.
func originalName(fileName, photoID, ext string) string {
	name := strings.TrimSpace(filepath.Base(strings.ReplaceAll(fileName, "\\", "/")))
	if name == "" || name == "." || name == "/" {
		return photoID + ext
	}
	return name
}
