package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/maynagashev/timelock/internal/access"
	"github.com/maynagashev/timelock/models"
	"github.com/maynagashev/timelock/server/internal/metrics"
	"github.com/maynagashev/timelock/server/internal/repository"
	"github.com/maynagashev/timelock/server/internal/storage"
	"go.uber.org/zap"
)

// AlbumService определяет интерфейс для сервиса работы с альбомами.
// Все методы принимают ID владельца; пустой ID означает неаутентифицированный вызов.
type AlbumService interface {
	Create(ctx context.Context, ownerID, title string) (*models.Album, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Album, error)
	Get(ctx context.Context, ownerID, albumID string) (*models.Album, access.Decision, error)
	UpdateMetadata(ctx context.Context, ownerID, albumID string, patch models.UpdateAlbumRequest) (*models.Album, error)
	Unseal(ctx context.Context, ownerID, albumID string) (*models.Album, error)
	Delete(ctx context.Context, ownerID, albumID string) error
	Stats(ctx context.Context, ownerID string) (models.AlbumStats, error)
}

var _ AlbumService = (*albumService)(nil)

type albumService struct {
	albumRepo repository.AlbumRepository
	photoRepo repository.PhotoRepository
	files     storage.FileStorage
	clock     access.Clock
}

// NewAlbumService создает новый экземпляр сервиса альбомов.
// Если clock == nil, используется time.Now.
func NewAlbumService(
	albumRepo repository.AlbumRepository,
	photoRepo repository.PhotoRepository,
	files storage.FileStorage,
	clock access.Clock,
) AlbumService {
	if clock == nil {
		clock = time.Now
	}
	return &albumService{albumRepo: albumRepo, photoRepo: photoRepo, files: files, clock: clock}
}

// Create создает запечатанный альбом.
func (s *albumService) Create(ctx context.Context, ownerID, title string) (*models.Album, error) {
	if ownerID == "" {
		return nil, ErrAuthRequired
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, validationError("название альбома не может быть пустым")
	}

	now := storeTime(s.clock)
	album := &models.Album{
		ID:        uuid.NewString(),
		UserID:    ownerID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.albumRepo.CreateAlbum(ctx, album); err != nil {
		return nil, storeError("создание альбома", err)
	}

	metrics.AlbumsCreated.Inc()
	zap.S().Infof("[AlbumService] Пользователь %s создал альбом %s", ownerID, album.ID)
	return album, nil
}

// ListByOwner возвращает альбомы владельца, сначала новые, с краткими сведениями
// о фотографиях.
func (s *albumService) ListByOwner(ctx context.Context, ownerID string) ([]models.Album, error) {
	if ownerID == "" {
		return nil, ErrAuthRequired
	}

	albums, err := s.albumRepo.ListAlbumsByUserID(ctx, ownerID)
	if err != nil {
		return nil, storeError("получение списка альбомов", err)
	}
	if len(albums) == 0 {
		return albums, nil
	}

	ids := make([]string, len(albums))
	index := make(map[string]int, len(albums))
	for i, a := range albums {
		ids[i] = a.ID
		index[a.ID] = i
	}

	summaries, err := s.photoRepo.ListPhotoSummaries(ctx, ids)
	if err != nil {
		return nil, storeError("получение сводки фотографий", err)
	}
	for _, p := range summaries {
		if i, ok := index[p.AlbumID]; ok {
			albums[i].Photos = append(albums[i].Photos, p)
		}
	}

	return albums, nil
}

// Get возвращает альбом владельца и текущее решение о доступе к нему.
func (s *albumService) Get(ctx context.Context, ownerID, albumID string) (*models.Album, access.Decision, error) {
	album, err := loadOwnedAlbum(ctx, s.albumRepo, ownerID, albumID)
	if err != nil {
		return nil, access.Decision{}, err
	}
	return album, access.Evaluate(album.UnlockAt, s.clock()), nil
}

// UpdateMetadata меняет название и комментарий альбома в любом состоянии доступа.
// Пустой комментарий удаляет его.
func (s *albumService) UpdateMetadata(
	ctx context.Context,
	ownerID, albumID string,
	patch models.UpdateAlbumRequest,
) (*models.Album, error) {
	if ownerID == "" {
		return nil, ErrAuthRequired
	}
	if patch.Title == nil && patch.Comment == nil {
		return nil, validationError("нет полей для изменения")
	}

	repoPatch := repository.AlbumPatch{}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, validationError("название альбома не может быть пустым")
		}
		repoPatch.Title = &title
	}
	if patch.Comment != nil {
		comment := strings.TrimSpace(*patch.Comment)
		if n := utf8.RuneCountInString(comment); n > models.MaxCommentLength {
			return nil, validationError("комментарий длиннее %d символов (%d)", models.MaxCommentLength, n)
		}
		repoPatch.Comment = &comment
	}

	if _, err := loadOwnedAlbum(ctx, s.albumRepo, ownerID, albumID); err != nil {
		return nil, err
	}

	repoPatch.UpdatedAt = storeTime(s.clock)
	album, err := s.albumRepo.UpdateAlbumMetadata(ctx, albumID, ownerID, repoPatch)
	if err != nil {
		if errors.Is(err, repository.ErrAlbumNotFound) {
			return nil, ErrAlbumNotFound
		}
		return nil, storeError("изменение альбома", err)
	}

	zap.S().Infof("[AlbumService] Метаданные альбома %s изменены", albumID)
	return album, nil
}

// Unseal вскрывает альбом, запуская окно просмотра. Вскрыть альбом можно только один раз.
func (s *albumService) Unseal(ctx context.Context, ownerID, albumID string) (*models.Album, error) {
	album, err := loadOwnedAlbum(ctx, s.albumRepo, ownerID, albumID)
	if err != nil {
		return nil, err
	}
	if album.UnlockAt != nil {
		metrics.UnsealConflicts.Inc()
		zap.S().Warnf("[AlbumService] Повторная попытка вскрыть альбом %s", albumID)
		return nil, ErrAlreadyUnsealed
	}

	album, err = s.albumRepo.SetUnlockAt(ctx, albumID, ownerID, storeTime(s.clock))
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyUnsealed) {
			// Альбом вскрыли параллельным запросом между чтением и записью.
			metrics.UnsealConflicts.Inc()
			return nil, ErrAlreadyUnsealed
		}
		return nil, storeError("вскрытие альбома", err)
	}

	metrics.AlbumsUnsealed.Inc()
	zap.S().Infof("[AlbumService] Альбом %s вскрыт, окно просмотра до %s",
		albumID, album.UnlockAt.Add(access.Window).Format(time.RFC3339))
	return album, nil
}

// Delete удаляет альбом вместе с фотографиями. Файлы удаляются после фиксации
// транзакции; ошибка их удаления только логируется.
func (s *albumService) Delete(ctx context.Context, ownerID, albumID string) error {
	if _, err := loadOwnedAlbum(ctx, s.albumRepo, ownerID, albumID); err != nil {
		return err
	}

	keys, err := s.albumRepo.DeleteAlbum(ctx, albumID, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrAlbumNotFound) {
			return ErrAlbumNotFound
		}
		return storeError("удаление альбома", err)
	}

	metrics.AlbumsDeleted.Inc()
	removeFilesBestEffort(ctx, s.files, keys)
	zap.S().Infof("[AlbumService] Альбом %s удален (фотографий: %d)", albumID, len(keys))
	return nil
}

// Stats сворачивает состояния доступа всех альбомов владельца.
func (s *albumService) Stats(ctx context.Context, ownerID string) (models.AlbumStats, error) {
	if ownerID == "" {
		return models.AlbumStats{}, ErrAuthRequired
	}

	albums, err := s.albumRepo.ListAlbumsByUserID(ctx, ownerID)
	if err != nil {
		return models.AlbumStats{}, storeError("получение списка альбомов", err)
	}

	now := s.clock()
	var stats access.Stats
	for i := range albums {
		stats.Add(access.Evaluate(albums[i].UnlockAt, now))
	}
	return models.NewAlbumStats(stats), nil
}

// loadOwnedAlbum загружает альбом и проверяет, что он принадлежит ownerID.
func loadOwnedAlbum(
	ctx context.Context,
	repo repository.AlbumRepository,
	ownerID, albumID string,
) (*models.Album, error) {
	if ownerID == "" {
		return nil, ErrAuthRequired
	}

	album, err := repo.GetAlbumByID(ctx, albumID)
	if err != nil {
		if errors.Is(err, repository.ErrAlbumNotFound) {
			return nil, ErrAlbumNotFound
		}
		return nil, storeError("получение альбома", err)
	}

	if album.UserID != ownerID {
		zap.S().Warnf("[AlbumService] Пользователь %s обратился к чужому альбому %s", ownerID, albumID)
		return nil, ErrForbidden
	}
	return album, nil
}

// removeFilesBestEffort удаляет файлы из объектного хранилища, не прерываясь
// на отмене запроса. Ошибки логируются и учитываются в метриках.
func removeFilesBestEffort(ctx context.Context, files storage.FileStorage, keys []string) {
	if len(keys) == 0 {
		return
	}
	if err := files.RemoveFiles(context.WithoutCancel(ctx), keys); err != nil {
		metrics.BlobCleanupFailures.Inc()
		zap.S().Errorf("[Cleanup] Не удалось удалить файлы (%d шт.): %v", len(keys), err)
	}
}

// storeTime возвращает текущее время в том виде, в каком оно переживает
// запись в БД без потерь: UTC с точностью до микросекунд.
func storeTime(clock access.Clock) time.Time {
	return clock().UTC().Truncate(time.Microsecond)
}
