package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/maynagashev/timelock/models"
	"go.uber.org/zap"
)

const photoColumns = `id, album_id, storage_key, original_name, size_bytes, mime_type, caption, uploaded_at`

// PhotoRepository определяет методы для работы с фотографиями в хранилище.
type PhotoRepository interface {
	CreatePhoto(ctx context.Context, photo *models.Photo, userID string) error
	GetPhotoByID(ctx context.Context, photoID string) (*models.Photo, error)
	ListPhotosByAlbumID(ctx context.Context, albumID string) ([]models.Photo, error)
	ListPhotoSummaries(ctx context.Context, albumIDs []string) ([]models.PhotoSummary, error)
	UpdateCaption(ctx context.Context, photoID, userID string, caption string) (*models.Photo, error)
	DeletePhoto(ctx context.Context, photoID, userID string) error
}

// sqlPhotoRepository реализует PhotoRepository поверх sqlx.
type sqlPhotoRepository struct {
	db *sqlx.DB
}

// NewPhotoRepository создает новый экземпляр репозитория фотографий.
func NewPhotoRepository(db *sqlx.DB) PhotoRepository {
	return &sqlPhotoRepository{db: db}
}

// CreatePhoto сохраняет запись о фотографии. Вставка выполняется только если
// альбом принадлежит userID и еще запечатан, иначе возвращается ErrAlbumNotSealed.
func (r *sqlPhotoRepository) CreatePhoto(ctx context.Context, photo *models.Photo, userID string) error {
	query := r.db.Rebind(`INSERT INTO photos (` + photoColumns + `)
	          SELECT ?, ?, ?, ?, ?, ?, ?, ?
	          WHERE EXISTS (SELECT 1 FROM albums WHERE id=? AND user_id=? AND unlock_at IS NULL)`)

	res, err := r.db.ExecContext(ctx, query,
		photo.ID, photo.AlbumID, photo.StorageKey, photo.OriginalName, photo.SizeBytes,
		photo.MimeType, photo.Caption, photo.UploadedAt,
		photo.AlbumID, userID,
	)
	if err != nil {
		zap.S().Errorf("[PhotoRepo] Ошибка создания фотографии в альбоме %s: %v", photo.AlbumID, err)
		return fmt.Errorf("ошибка выполнения запроса на создание фотографии: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка получения числа вставленных строк: %w", err)
	}
	if affected == 0 {
		zap.S().Warnf("[PhotoRepo] Альбом %s уже не запечатан, фотография не сохранена", photo.AlbumID)
		return ErrAlbumNotSealed
	}

	zap.S().Infof("[PhotoRepo] Фотография %s (%d байт) добавлена в альбом %s",
		photo.ID, photo.SizeBytes, photo.AlbumID)
	return nil
}

// GetPhotoByID находит фотографию по ID.
func (r *sqlPhotoRepository) GetPhotoByID(ctx context.Context, photoID string) (*models.Photo, error) {
	query := r.db.Rebind(`SELECT ` + photoColumns + ` FROM photos WHERE id=?`)
	var photo models.Photo

	err := r.db.GetContext(ctx, &photo, query, photoID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			zap.S().Infof("[PhotoRepo] Фотография %s не найдена", photoID)
			return nil, ErrPhotoNotFound
		}
		zap.S().Errorf("[PhotoRepo] Ошибка при поиске фотографии %s: %v", photoID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение фотографии: %w", err)
	}

	return &photo, nil
}

// ListPhotosByAlbumID возвращает фотографии альбома в порядке загрузки.
func (r *sqlPhotoRepository) ListPhotosByAlbumID(ctx context.Context, albumID string) ([]models.Photo, error) {
	query := r.db.Rebind(`SELECT ` + photoColumns + `
	          FROM photos
	          WHERE album_id=?
	          ORDER BY uploaded_at ASC, id ASC`)

	photos := make([]models.Photo, 0)
	if err := r.db.SelectContext(ctx, &photos, query, albumID); err != nil {
		zap.S().Errorf("[PhotoRepo] Ошибка при получении фотографий альбома %s: %v", albumID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение списка фотографий: %w", err)
	}

	return photos, nil
}

// ListPhotoSummaries возвращает краткие сведения о фотографиях нескольких альбомов
// одним запросом.
func (r *sqlPhotoRepository) ListPhotoSummaries(
	ctx context.Context,
	albumIDs []string,
) ([]models.PhotoSummary, error) {
	summaries := make([]models.PhotoSummary, 0)
	if len(albumIDs) == 0 {
		return summaries, nil
	}

	query, args, err := sqlx.In(`SELECT id, album_id, original_name
	          FROM photos
	          WHERE album_id IN (?)
	          ORDER BY uploaded_at ASC, id ASC`, albumIDs)
	if err != nil {
		return nil, fmt.Errorf("ошибка построения запроса сводки фотографий: %w", err)
	}

	if err = r.db.SelectContext(ctx, &summaries, r.db.Rebind(query), args...); err != nil {
		zap.S().Errorf("[PhotoRepo] Ошибка получения сводки фотографий для %d альбомов: %v", len(albumIDs), err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение сводки фотографий: %w", err)
	}

	return summaries, nil
}

// UpdateCaption меняет подпись фотографии, если ее альбом принадлежит userID.
// Пустая подпись сохраняется как NULL.
func (r *sqlPhotoRepository) UpdateCaption(
	ctx context.Context,
	photoID, userID string,
	caption string,
) (*models.Photo, error) {
	query := r.db.Rebind(`UPDATE photos SET caption=?
	          WHERE id=? AND album_id IN (SELECT id FROM albums WHERE user_id=?)
	          RETURNING ` + photoColumns)
	var photo models.Photo

	err := r.db.GetContext(ctx, &photo, query, nullableString(caption), photoID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			zap.S().Infof("[PhotoRepo] Фотография %s пользователя %s не найдена для изменения", photoID, userID)
			return nil, ErrPhotoNotFound
		}
		zap.S().Errorf("[PhotoRepo] Ошибка изменения подписи фотографии %s: %v", photoID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на изменение подписи: %w", err)
	}

	return &photo, nil
}

// DeletePhoto удаляет запись о фотографии, если ее альбом принадлежит userID.
func (r *sqlPhotoRepository) DeletePhoto(ctx context.Context, photoID, userID string) error {
	query := r.db.Rebind(`DELETE FROM photos
	          WHERE id=? AND album_id IN (SELECT id FROM albums WHERE user_id=?)`)

	res, err := r.db.ExecContext(ctx, query, photoID, userID)
	if err != nil {
		zap.S().Errorf("[PhotoRepo] Ошибка удаления фотографии %s: %v", photoID, err)
		return fmt.Errorf("ошибка выполнения запроса на удаление фотографии: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка получения числа удаленных строк: %w", err)
	}
	if affected == 0 {
		zap.S().Infof("[PhotoRepo] Фотография %s пользователя %s не найдена для удаления", photoID, userID)
		return ErrPhotoNotFound
	}

	zap.S().Infof("[PhotoRepo] Фотография %s удалена", photoID)
	return nil
}

// Кастомные ошибки репозитория фотографий.
var (
	ErrPhotoNotFound  = errors.New("фотография не найдена")
	ErrAlbumNotSealed = errors.New("альбом не запечатан")
)
