package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/maynagashev/timelock/internal/access"
	"github.com/maynagashev/timelock/models"
	"github.com/maynagashev/timelock/server/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture хранит репозитории поверх одной базы SQLite.
type fixture struct {
	db     *sqlx.DB
	users  repository.UserRepository
	albums repository.AlbumRepository
	photos repository.PhotoRepository
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newSQLiteDB(t)
	return &fixture{
		db:     db,
		users:  repository.NewUserRepository(db),
		albums: repository.NewAlbumRepository(db),
		photos: repository.NewPhotoRepository(db),
		now:    time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fixture) user(t *testing.T, name string) string {
	t.Helper()
	id, err := f.users.CreateUser(context.Background(), &models.User{
		Username: name, PasswordHash: "hash", CreatedAt: f.now,
	})
	require.NoError(t, err)
	return id
}

func (f *fixture) album(t *testing.T, userID, title string, createdAt time.Time) *models.Album {
	t.Helper()
	album := &models.Album{
		ID: uuid.NewString(), UserID: userID, Title: title, CreatedAt: createdAt, UpdatedAt: createdAt,
	}
	require.NoError(t, f.albums.CreateAlbum(context.Background(), album))
	return album
}

func (f *fixture) photo(t *testing.T, userID, albumID, name string, uploadedAt time.Time) (*models.Photo, error) {
	t.Helper()
	id := uuid.NewString()
	photo := &models.Photo{
		ID: id, AlbumID: albumID, StorageKey: userID + "/" + albumID + "/" + id + ".jpg",
		OriginalName: name, SizeBytes: 1024, MimeType: "image/jpeg", UploadedAt: uploadedAt,
	}
	return photo, f.photos.CreatePhoto(context.Background(), photo, userID)
}

func TestSQLite_UserUniqueness(t *testing.T) {
	f := newFixture(t)
	f.user(t, "alice")

	_, err := f.users.CreateUser(context.Background(), &models.User{Username: "alice", PasswordHash: "x", CreatedAt: f.now})
	require.ErrorIs(t, err, repository.ErrUsernameTaken)

	user, err := f.users.GetUserByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	_, err = f.users.GetUserByUsername(context.Background(), "bob")
	require.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestSQLite_UnsealOnlyOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.user(t, "alice")
	album := f.album(t, owner, "Отпуск", f.now)

	unsealed, err := f.albums.SetUnlockAt(ctx, album.ID, owner, f.now.Add(time.Hour))
	require.NoError(t, err)
	require.NotNil(t, unsealed.UnlockAt)
	assert.True(t, f.now.Add(time.Hour).Equal(*unsealed.UnlockAt))

	_, err = f.albums.SetUnlockAt(ctx, album.ID, owner, f.now.Add(2*time.Hour))
	require.ErrorIs(t, err, repository.ErrAlreadyUnsealed)

	// Даже прямой UPDATE в обход репозитория не меняет unlock_at.
	_, err = f.db.ExecContext(ctx, `UPDATE albums SET unlock_at=? WHERE id=?`, f.now.Add(3*time.Hour), album.ID)
	require.Error(t, err)

	stored, err := f.albums.GetAlbumByID(ctx, album.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.UnlockAt)
	assert.True(t, f.now.Add(time.Hour).Equal(*stored.UnlockAt))
}

func TestSQLite_UnsealForeignAlbum(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "alice")
	intruder := f.user(t, "mallory")
	album := f.album(t, owner, "Отпуск", f.now)

	_, err := f.albums.SetUnlockAt(context.Background(), album.ID, intruder, f.now)
	require.Error(t, err)

	stored, err := f.albums.GetAlbumByID(context.Background(), album.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.UnlockAt, "Чужой пользователь не должен вскрыть альбом")
}

func TestSQLite_PhotosOnlyWhileSealed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.user(t, "alice")
	album := f.album(t, owner, "Отпуск", f.now)

	_, err := f.photo(t, owner, album.ID, "first.jpg", f.now)
	require.NoError(t, err)

	_, err = f.photo(t, f.user(t, "mallory"), album.ID, "foreign.jpg", f.now)
	require.ErrorIs(t, err, repository.ErrAlbumNotSealed, "В чужой альбом загрузить нельзя")

	_, err = f.albums.SetUnlockAt(ctx, album.ID, owner, f.now)
	require.NoError(t, err)

	_, err = f.photo(t, owner, album.ID, "late.jpg", f.now.Add(time.Minute))
	require.ErrorIs(t, err, repository.ErrAlbumNotSealed)

	photos, err := f.photos.ListPhotosByAlbumID(ctx, album.ID)
	require.NoError(t, err)
	require.Len(t, photos, 1)
	assert.Equal(t, "first.jpg", photos[0].OriginalName)
}

func TestSQLite_ListOrdering(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.user(t, "alice")
	older := f.album(t, owner, "Старый", f.now)
	newer := f.album(t, owner, "Новый", f.now.Add(time.Hour))
	f.album(t, f.user(t, "bob"), "Чужой", f.now.Add(2*time.Hour))

	albums, err := f.albums.ListAlbumsByUserID(ctx, owner)
	require.NoError(t, err)
	require.Len(t, albums, 2)
	assert.Equal(t, newer.ID, albums[0].ID)
	assert.Equal(t, older.ID, albums[1].ID)

	second, err := f.photo(t, owner, older.ID, "second.jpg", f.now.Add(2*time.Minute))
	require.NoError(t, err)
	first, err := f.photo(t, owner, older.ID, "first.jpg", f.now.Add(time.Minute))
	require.NoError(t, err)
	other, err := f.photo(t, owner, newer.ID, "other.jpg", f.now)
	require.NoError(t, err)

	photos, err := f.photos.ListPhotosByAlbumID(ctx, older.ID)
	require.NoError(t, err)
	require.Len(t, photos, 2)
	assert.Equal(t, first.ID, photos[0].ID)
	assert.Equal(t, second.ID, photos[1].ID)

	summaries, err := f.photos.ListPhotoSummaries(ctx, []string{older.ID, newer.ID})
	require.NoError(t, err)
	require.Len(t, summaries, 3)
	ids := []string{summaries[0].ID, summaries[1].ID, summaries[2].ID}
	assert.ElementsMatch(t, []string{first.ID, second.ID, other.ID}, ids)
}

func TestSQLite_UpdateMetadataAndCaption(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.user(t, "alice")
	album := f.album(t, owner, "Отпуск", f.now)

	comment := "лучшие кадры"
	updated, err := f.albums.UpdateAlbumMetadata(ctx, album.ID, owner,
		repository.AlbumPatch{Comment: &comment, UpdatedAt: f.now.Add(time.Minute)})
	require.NoError(t, err)
	require.NotNil(t, updated.Comment)
	assert.Equal(t, comment, *updated.Comment)
	assert.Equal(t, "Отпуск", updated.Title)

	empty := ""
	cleared, err := f.albums.UpdateAlbumMetadata(ctx, album.ID, owner,
		repository.AlbumPatch{Comment: &empty, UpdatedAt: f.now.Add(2 * time.Minute)})
	require.NoError(t, err)
	assert.Nil(t, cleared.Comment)

	_, err = f.albums.UpdateAlbumMetadata(ctx, album.ID, f.user(t, "mallory"),
		repository.AlbumPatch{Comment: &comment, UpdatedAt: f.now})
	require.ErrorIs(t, err, repository.ErrAlbumNotFound)

	photo, err := f.photo(t, owner, album.ID, "a.jpg", f.now)
	require.NoError(t, err)

	captioned, err := f.photos.UpdateCaption(ctx, photo.ID, owner, "закат")
	require.NoError(t, err)
	require.NotNil(t, captioned.Caption)
	assert.Equal(t, "закат", *captioned.Caption)

	_, err = f.photos.UpdateCaption(ctx, photo.ID, "nobody", "взлом")
	require.ErrorIs(t, err, repository.ErrPhotoNotFound)
}

func TestSQLite_DeleteAlbumCascades(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.user(t, "alice")
	album := f.album(t, owner, "Отпуск", f.now)
	p1, err := f.photo(t, owner, album.ID, "1.jpg", f.now)
	require.NoError(t, err)
	p2, err := f.photo(t, owner, album.ID, "2.jpg", f.now)
	require.NoError(t, err)

	_, err = f.albums.DeleteAlbum(ctx, album.ID, f.user(t, "mallory"))
	require.ErrorIs(t, err, repository.ErrAlbumNotFound)

	photos, err := f.photos.ListPhotosByAlbumID(ctx, album.ID)
	require.NoError(t, err)
	assert.Len(t, photos, 2, "Неудачное удаление должно откатиться")

	keys, err := f.albums.DeleteAlbum(ctx, album.ID, owner)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{p1.StorageKey, p2.StorageKey}, keys)

	_, err = f.albums.GetAlbumByID(ctx, album.ID)
	require.ErrorIs(t, err, repository.ErrAlbumNotFound)
	_, err = f.photos.GetPhotoByID(ctx, p1.ID)
	require.ErrorIs(t, err, repository.ErrPhotoNotFound)
}

func TestSQLite_DeletePhoto(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.user(t, "alice")
	album := f.album(t, owner, "Отпуск", f.now)
	photo, err := f.photo(t, owner, album.ID, "1.jpg", f.now)
	require.NoError(t, err)

	require.ErrorIs(t, f.photos.DeletePhoto(ctx, photo.ID, "nobody"), repository.ErrPhotoNotFound)
	require.NoError(t, f.photos.DeletePhoto(ctx, photo.ID, owner))
	require.ErrorIs(t, f.photos.DeletePhoto(ctx, photo.ID, owner), repository.ErrPhotoNotFound)
}

func TestSQLite_UnlockTimesSummary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	f.album(t, alice, "Запечатан", f.now)
	open := f.album(t, alice, "Открыт", f.now)
	gone := f.album(t, bob, "Истек", f.now)

	_, err := f.albums.SetUnlockAt(ctx, open.ID, alice, f.now.Add(-time.Hour))
	require.NoError(t, err)
	_, err = f.albums.SetUnlockAt(ctx, gone.ID, bob, f.now.Add(-access.Window-time.Hour))
	require.NoError(t, err)

	unlocks, err := f.albums.ListUnlockTimes(ctx)
	require.NoError(t, err)

	stats := access.Summarize(unlocks, f.now)
	assert.Equal(t, access.Stats{Total: 3, Sealed: 1, Unlocked: 1, Expired: 1}, stats)
}
