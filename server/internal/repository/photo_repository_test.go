package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/maynagashev/timelock/models"
	"github.com/maynagashev/timelock/server/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var photoRowColumns = []string{
	"id", "album_id", "storage_key", "original_name", "size_bytes", "mime_type", "caption", "uploaded_at",
}

func TestPhotoRepository_CreatePhoto(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	caption := "закат"
	photo := &models.Photo{
		ID: "photo-1", AlbumID: testAlbumID, StorageKey: "user-1/album-1/photo-1.jpg",
		OriginalName: "IMG_0001.jpg", SizeBytes: 2048, MimeType: "image/jpeg", Caption: &caption, UploadedAt: now,
	}
	query := regexp.QuoteMeta(`INSERT INTO photos (id, album_id, storage_key, original_name, size_bytes, mime_type, caption, uploaded_at) SELECT $1, $2, $3, $4, $5, $6, $7, $8 WHERE EXISTS (SELECT 1 FROM albums WHERE id=$9 AND user_id=$10 AND unlock_at IS NULL)`)

	tests := []struct {
		name        string
		mockSetup   func(mock sqlmock.Sqlmock)
		expectedErr error
		errContains string
	}{
		{
			name: "Альбом запечатан",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(query).
					WithArgs(photo.ID, photo.AlbumID, photo.StorageKey, photo.OriginalName, photo.SizeBytes,
						photo.MimeType, caption, now, testAlbumID, testUserID).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "Альбом уже вскрыт",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(query).WillReturnResult(sqlmock.NewResult(0, 0))
			},
			expectedErr: repository.ErrAlbumNotSealed,
		},
		{
			name: "Ошибка базы данных",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(query).WillReturnError(errors.New("timeout"))
			},
			errContains: "ошибка выполнения запроса на создание фотографии",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			tt.mockSetup(mock)

			err := repository.NewPhotoRepository(db).CreatePhoto(context.Background(), photo, testUserID)

			switch {
			case tt.expectedErr != nil:
				require.ErrorIs(t, err, tt.expectedErr)
			case tt.errContains != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
			default:
				require.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPhotoRepository_GetPhotoByID(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	query := regexp.QuoteMeta(`FROM photos WHERE id=$1`)

	t.Run("Фотография найдена", func(t *testing.T) {
		db, mock := newMockDB(t)
		rows := sqlmock.NewRows(photoRowColumns).
			AddRow("photo-1", testAlbumID, "k.jpg", "a.jpg", int64(10), "image/jpeg", nil, now)
		mock.ExpectQuery(query).WithArgs("photo-1").WillReturnRows(rows)

		photo, err := repository.NewPhotoRepository(db).GetPhotoByID(context.Background(), "photo-1")
		require.NoError(t, err)
		assert.Equal(t, "k.jpg", photo.StorageKey)
		assert.Nil(t, photo.Caption)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Фотография не найдена", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(query).WithArgs("photo-x").WillReturnError(sql.ErrNoRows)

		photo, err := repository.NewPhotoRepository(db).GetPhotoByID(context.Background(), "photo-x")
		require.ErrorIs(t, err, repository.ErrPhotoNotFound)
		assert.Nil(t, photo)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPhotoRepository_ListPhotoSummaries(t *testing.T) {
	t.Run("Пустой список альбомов не обращается к БД", func(t *testing.T) {
		db, mock := newMockDB(t)

		summaries, err := repository.NewPhotoRepository(db).ListPhotoSummaries(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, summaries)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Один запрос на несколько альбомов", func(t *testing.T) {
		db, mock := newMockDB(t)
		rows := sqlmock.NewRows([]string{"id", "album_id", "original_name"}).
			AddRow("p1", "a1", "one.jpg").
			AddRow("p2", "a2", "two.png")
		mock.ExpectQuery(regexp.QuoteMeta(`WHERE album_id IN ($1, $2)`)).
			WithArgs("a1", "a2").WillReturnRows(rows)

		summaries, err := repository.NewPhotoRepository(db).
			ListPhotoSummaries(context.Background(), []string{"a1", "a2"})
		require.NoError(t, err)
		assert.Equal(t, []models.PhotoSummary{
			{ID: "p1", AlbumID: "a1", OriginalName: "one.jpg"},
			{ID: "p2", AlbumID: "a2", OriginalName: "two.png"},
		}, summaries)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPhotoRepository_UpdateCaption(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	query := regexp.QuoteMeta(`UPDATE photos SET caption=$1 WHERE id=$2 AND album_id IN (SELECT id FROM albums WHERE user_id=$3)`)

	t.Run("Подпись изменена", func(t *testing.T) {
		db, mock := newMockDB(t)
		rows := sqlmock.NewRows(photoRowColumns).
			AddRow("photo-1", testAlbumID, "k.jpg", "a.jpg", int64(10), "image/jpeg", "новая", now)
		mock.ExpectQuery(query).WithArgs("новая", "photo-1", testUserID).WillReturnRows(rows)

		photo, err := repository.NewPhotoRepository(db).
			UpdateCaption(context.Background(), "photo-1", testUserID, "новая")
		require.NoError(t, err)
		require.NotNil(t, photo.Caption)
		assert.Equal(t, "новая", *photo.Caption)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Чужая фотография", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(query).WithArgs(nil, "photo-1", "intruder").WillReturnError(sql.ErrNoRows)

		_, err := repository.NewPhotoRepository(db).UpdateCaption(context.Background(), "photo-1", "intruder", "")
		require.ErrorIs(t, err, repository.ErrPhotoNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPhotoRepository_DeletePhoto(t *testing.T) {
	query := regexp.QuoteMeta(`DELETE FROM photos WHERE id=$1 AND album_id IN (SELECT id FROM albums WHERE user_id=$2)`)

	tests := []struct {
		name        string
		affected    int64
		expectedErr error
	}{
		{name: "Фотография удалена", affected: 1},
		{name: "Фотография не найдена", affected: 0, expectedErr: repository.ErrPhotoNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			mock.ExpectExec(query).WithArgs("photo-1", testUserID).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			err := repository.NewPhotoRepository(db).DeletePhoto(context.Background(), "photo-1", testUserID)
			if tt.expectedErr != nil {
				require.ErrorIs(t, err, tt.expectedErr)
			} else {
				require.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
