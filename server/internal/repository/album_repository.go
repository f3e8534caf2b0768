package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/maynagashev/timelock/models"
	"go.uber.org/zap"
)

const albumColumns = `id, user_id, title, comment, unlock_at, created_at, updated_at`

// AlbumPatch описывает изменение метаданных альбома.
// Nil-поля не меняются. Пустая строка в Comment очищает комментарий.
type AlbumPatch struct {
	Title     *string
	Comment   *string
	UpdatedAt time.Time
}

// AlbumRepository определяет методы для работы с альбомами в хранилище.
type AlbumRepository interface {
	CreateAlbum(ctx context.Context, album *models.Album) error
	GetAlbumByID(ctx context.Context, albumID string) (*models.Album, error)
	ListAlbumsByUserID(ctx context.Context, userID string) ([]models.Album, error)
	UpdateAlbumMetadata(ctx context.Context, albumID, userID string, patch AlbumPatch) (*models.Album, error)
	SetUnlockAt(ctx context.Context, albumID, userID string, unlockAt time.Time) (*models.Album, error)
	DeleteAlbum(ctx context.Context, albumID, userID string) ([]string, error)
	ListUnlockTimes(ctx context.Context) ([]*time.Time, error)
}

// sqlAlbumRepository реализует AlbumRepository поверх sqlx.
type sqlAlbumRepository struct {
	db *sqlx.DB
}

// NewAlbumRepository создает новый экземпляр репозитория альбомов.
func NewAlbumRepository(db *sqlx.DB) AlbumRepository {
	return &sqlAlbumRepository{db: db}
}

// CreateAlbum сохраняет новый альбом. ID и временные метки заполняет вызывающий.
func (r *sqlAlbumRepository) CreateAlbum(ctx context.Context, album *models.Album) error {
	query := r.db.Rebind(`INSERT INTO albums (` + albumColumns + `)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`)

	_, err := r.db.ExecContext(ctx, query,
		album.ID, album.UserID, album.Title, album.Comment, album.UnlockAt, album.CreatedAt, album.UpdatedAt,
	)
	if err != nil {
		zap.S().Errorf("[AlbumRepo] Ошибка создания альбома для пользователя %s: %v", album.UserID, err)
		return fmt.Errorf("ошибка выполнения запроса на создание альбома: %w", err)
	}

	zap.S().Infof("[AlbumRepo] Альбом %s создан для пользователя %s", album.ID, album.UserID)
	return nil
}

// GetAlbumByID находит альбом по ID без проверки владельца.
// Владельца проверяет сервис, чтобы различать "нет альбома" и "чужой альбом".
func (r *sqlAlbumRepository) GetAlbumByID(ctx context.Context, albumID string) (*models.Album, error) {
	query := r.db.Rebind(`SELECT ` + albumColumns + ` FROM albums WHERE id=?`)
	var album models.Album

	err := r.db.GetContext(ctx, &album, query, albumID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			zap.S().Infof("[AlbumRepo] Альбом %s не найден", albumID)
			return nil, ErrAlbumNotFound
		}
		zap.S().Errorf("[AlbumRepo] Ошибка при поиске альбома %s: %v", albumID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение альбома: %w", err)
	}

	return &album, nil
}

// ListAlbumsByUserID возвращает альбомы пользователя, сначала новые.
func (r *sqlAlbumRepository) ListAlbumsByUserID(ctx context.Context, userID string) ([]models.Album, error) {
	query := r.db.Rebind(`SELECT ` + albumColumns + `
	          FROM albums
	          WHERE user_id=?
	          ORDER BY created_at DESC, id DESC`)

	albums := make([]models.Album, 0)
	if err := r.db.SelectContext(ctx, &albums, query, userID); err != nil {
		zap.S().Errorf("[AlbumRepo] Ошибка при получении альбомов пользователя %s: %v", userID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение списка альбомов: %w", err)
	}

	zap.S().Debugf("[AlbumRepo] Получено %d альбомов пользователя %s", len(albums), userID)
	return albums, nil
}

// UpdateAlbumMetadata меняет название и/или комментарий альбома владельца.
func (r *sqlAlbumRepository) UpdateAlbumMetadata(
	ctx context.Context,
	albumID, userID string,
	patch AlbumPatch,
) (*models.Album, error) {
	sets := make([]string, 0, 3)
	args := make([]interface{}, 0, 5)

	if patch.Title != nil {
		sets = append(sets, "title=?")
		args = append(args, *patch.Title)
	}
	if patch.Comment != nil {
		sets = append(sets, "comment=?")
		args = append(args, nullableString(*patch.Comment))
	}
	sets = append(sets, "updated_at=?")
	args = append(args, patch.UpdatedAt, albumID, userID)

	query := r.db.Rebind(`UPDATE albums SET ` + strings.Join(sets, ", ") + `
	          WHERE id=? AND user_id=?
	          RETURNING ` + albumColumns)
	var album models.Album

	err := r.db.GetContext(ctx, &album, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			zap.S().Infof("[AlbumRepo] Альбом %s пользователя %s не найден для изменения", albumID, userID)
			return nil, ErrAlbumNotFound
		}
		zap.S().Errorf("[AlbumRepo] Ошибка изменения альбома %s: %v", albumID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на изменение альбома: %w", err)
	}

	zap.S().Infof("[AlbumRepo] Метаданные альбома %s обновлены", albumID)
	return &album, nil
}

// SetUnlockAt вскрывает альбом: unlock_at записывается только если он еще пуст.
// Если условие не выполнилось, альбом либо уже вскрыт, либо не принадлежит
// пользователю; второе вызывающий проверяет заранее.
func (r *sqlAlbumRepository) SetUnlockAt(
	ctx context.Context,
	albumID, userID string,
	unlockAt time.Time,
) (*models.Album, error) {
	query := r.db.Rebind(`UPDATE albums SET unlock_at=?, updated_at=?
	          WHERE id=? AND user_id=? AND unlock_at IS NULL
	          RETURNING ` + albumColumns)
	var album models.Album

	err := r.db.GetContext(ctx, &album, query, unlockAt, unlockAt, albumID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			zap.S().Warnf("[AlbumRepo] Альбом %s уже вскрыт или недоступен пользователю %s", albumID, userID)
			return nil, ErrAlreadyUnsealed
		}
		zap.S().Errorf("[AlbumRepo] Ошибка вскрытия альбома %s: %v", albumID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на вскрытие альбома: %w", err)
	}

	zap.S().Infof("[AlbumRepo] Альбом %s вскрыт в %s", albumID, unlockAt.Format(time.RFC3339))
	return &album, nil
}

// DeleteAlbum удаляет альбом владельца вместе с записями фотографий в одной
// транзакции. Возвращает ключи файлов удаленных фотографий.
func (r *sqlAlbumRepository) DeleteAlbum(ctx context.Context, albumID, userID string) ([]string, error) {
	keysQuery := r.db.Rebind(`SELECT p.storage_key FROM photos p
	          JOIN albums a ON a.id = p.album_id
	          WHERE a.id=? AND a.user_id=?`)
	photosQuery := r.db.Rebind(`DELETE FROM photos
	          WHERE album_id IN (SELECT id FROM albums WHERE id=? AND user_id=?)`)
	albumQuery := r.db.Rebind(`DELETE FROM albums WHERE id=? AND user_id=?`)

	keys := make([]string, 0)
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := tx.SelectContext(ctx, &keys, keysQuery, albumID, userID); err != nil {
			return fmt.Errorf("ошибка получения ключей файлов: %w", err)
		}
		if _, err := tx.ExecContext(ctx, photosQuery, albumID, userID); err != nil {
			return fmt.Errorf("ошибка удаления фотографий альбома: %w", err)
		}
		res, err := tx.ExecContext(ctx, albumQuery, albumID, userID)
		if err != nil {
			return fmt.Errorf("ошибка удаления альбома: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("ошибка получения числа удаленных строк: %w", err)
		}
		if affected == 0 {
			return ErrAlbumNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAlbumNotFound) {
			zap.S().Infof("[AlbumRepo] Альбом %s пользователя %s не найден для удаления", albumID, userID)
			return nil, err
		}
		zap.S().Errorf("[AlbumRepo] Ошибка удаления альбома %s: %v", albumID, err)
		return nil, err
	}

	zap.S().Infof("[AlbumRepo] Альбом %s удален вместе с %d фотографиями", albumID, len(keys))
	return keys, nil
}

// ListUnlockTimes возвращает unlock_at всех альбомов всех пользователей.
// Используется для сводной статистики по состояниям.
func (r *sqlAlbumRepository) ListUnlockTimes(ctx context.Context) ([]*time.Time, error) {
	var rows []sql.NullTime
	if err := r.db.SelectContext(ctx, &rows, `SELECT unlock_at FROM albums`); err != nil {
		zap.S().Errorf("[AlbumRepo] Ошибка получения времени вскрытия альбомов: %v", err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение времени вскрытия: %w", err)
	}

	unlocks := make([]*time.Time, len(rows))
	for i, row := range rows {
		if row.Valid {
			t := row.Time
			unlocks[i] = &t
		}
	}
	return unlocks, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Кастомные ошибки репозитория альбомов.
var (
	ErrAlbumNotFound   = errors.New("альбом не найден")
	ErrAlreadyUnsealed = errors.New("альбом уже вскрыт")
)
