package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/maynagashev/timelock/models"
	"github.com/maynagashev/timelock/server/internal/handlers"
	"github.com/maynagashev/timelock/server/internal/mocks"
	"github.com/maynagashev/timelock/server/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testMaxPhotoSize = 1024

var jpegBytes = append([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}, bytes.Repeat([]byte{0x01}, 64)...)

func setupPhotoRouter(h *handlers.PhotoHandler, userID string) *chi.Mux {
	r := chi.NewRouter()
	r.Use(withUser(userID))
	r.Get("/api/albums/{albumID}/photos", h.List)
	r.Post("/api/albums/{albumID}/photos", h.Upload)
	r.Patch("/api/photos/{photoID}", h.UpdateCaption)
	r.Delete("/api/photos/{photoID}", h.Delete)
	r.Get("/api/photos/{photoID}/url", h.URL)
	return r
}

// multipartBody собирает форму загрузки. Пустое fileName означает форму без файла.
func multipartBody(t *testing.T, fileName, declaredType string, data []byte, caption string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	if fileName != "" {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, fileName))
		header.Set("Content-Type", declaredType)
		part, err := mw.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	if caption != "" {
		require.NoError(t, mw.WriteField("caption", caption))
	}
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func postUpload(r http.Handler, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/albums/"+testAlbumID+"/photos", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestPhotoHandler_Upload(t *testing.T) {
	t.Run("Тип файла определяется по содержимому", func(t *testing.T) {
		photos := new(mocks.PhotoService)
		photos.On("Upload", mock.Anything, testUserID, testAlbumID, mock.MatchedBy(func(u services.PhotoUpload) bool {
			return u.MimeType == "image/jpeg" && u.FileName == "sea.jpg" && u.Caption == "Море" &&
				bytes.Equal(u.Data, jpegBytes) && u.SizeBytes == int64(len(jpegBytes))
		})).Return(&models.Photo{ID: testPhotoID, AlbumID: testAlbumID, MimeType: "image/jpeg"}, nil).Once()
		r := setupPhotoRouter(handlers.NewPhotoHandler(photos, testMaxPhotoSize), testUserID)

		body, ct := multipartBody(t, "sea.jpg", "text/plain", jpegBytes, "Море")
		rr := postUpload(r, body, ct)

		require.Equal(t, http.StatusCreated, rr.Code)
		var photo models.Photo
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &photo))
		assert.Equal(t, testPhotoID, photo.ID)
		photos.AssertExpectations(t)
	})

	t.Run("Текст под видом картинки отклоняется", func(t *testing.T) {
		photos := new(mocks.PhotoService)
		photos.On("Upload", mock.Anything, testUserID, testAlbumID, mock.MatchedBy(func(u services.PhotoUpload) bool {
			return strings.HasPrefix(u.MimeType, "text/plain")
		})).Return(nil, fmt.Errorf(`%w: неподдерживаемый тип файла "text/plain"`, services.ErrValidation)).Once()
		r := setupPhotoRouter(handlers.NewPhotoHandler(photos, testMaxPhotoSize), testUserID)

		body, ct := multipartBody(t, "fake.jpg", "image/jpeg", []byte("just some text"), "")
		rr := postUpload(r, body, ct)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "неподдерживаемый тип файла")
		photos.AssertExpectations(t)
	})

	t.Run("Слишком большой запрос", func(t *testing.T) {
		photos := new(mocks.PhotoService)
		r := setupPhotoRouter(handlers.NewPhotoHandler(photos, testMaxPhotoSize), testUserID)

		huge := append(append([]byte{}, jpegBytes...), bytes.Repeat([]byte{0x02}, 200<<10)...)
		body, ct := multipartBody(t, "big.jpg", "image/jpeg", huge, "")
		rr := postUpload(r, body, ct)

		assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
		photos.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Нет поля file", func(t *testing.T) {
		r := setupPhotoRouter(handlers.NewPhotoHandler(new(mocks.PhotoService), testMaxPhotoSize), testUserID)

		body, ct := multipartBody(t, "", "", nil, "только подпись")
		rr := postUpload(r, body, ct)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "Поле file обязательно")
	})

	t.Run("Не multipart", func(t *testing.T) {
		r := setupPhotoRouter(handlers.NewPhotoHandler(new(mocks.PhotoService), testMaxPhotoSize), testUserID)
		rr := postUpload(r, bytes.NewBufferString(`{}`), "application/json")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Альбом уже вскрыт", func(t *testing.T) {
		photos := new(mocks.PhotoService)
		photos.On("Upload", mock.Anything, testUserID, testAlbumID, mock.Anything).
			Return(nil, services.ErrAlbumUnsealed).Once()
		r := setupPhotoRouter(handlers.NewPhotoHandler(photos, testMaxPhotoSize), testUserID)

		body, ct := multipartBody(t, "sea.jpg", "image/jpeg", jpegBytes, "")
		rr := postUpload(r, body, ct)

		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Contains(t, rr.Body.String(), "альбом вскрыт")
	})
}

func TestPhotoHandler_List(t *testing.T) {
	t.Run("Пустой альбом отдается пустым массивом", func(t *testing.T) {
		photos := new(mocks.PhotoService)
		photos.On("ListByAlbum", mock.Anything, testUserID, testAlbumID).Return([]models.Photo(nil), nil).Once()
		r := setupPhotoRouter(handlers.NewPhotoHandler(photos, testMaxPhotoSize), testUserID)

		rr := serve(r, http.MethodGet, "/api/albums/"+testAlbumID+"/photos", "")

		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `[]`, rr.Body.String())
	})

	t.Run("Ключ хранилища не попадает в ответ", func(t *testing.T) {
		photos := new(mocks.PhotoService)
		photos.On("ListByAlbum", mock.Anything, testUserID, testAlbumID).Return([]models.Photo{
			{ID: testPhotoID, AlbumID: testAlbumID, StorageKey: "user-1/album-1/secret.jpg"},
		}, nil).Once()
		r := setupPhotoRouter(handlers.NewPhotoHandler(photos, testMaxPhotoSize), testUserID)

		rr := serve(r, http.MethodGet, "/api/albums/"+testAlbumID+"/photos", "")

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), testPhotoID)
		assert.NotContains(t, rr.Body.String(), "secret.jpg")
	})
}

func TestPhotoHandler_UpdateCaption(t *testing.T) {
	t.Run("Подпись обновлена", func(t *testing.T) {
		caption := "Закат"
		photos := new(mocks.PhotoService)
		photos.On("UpdateCaption", mock.Anything, testUserID, testPhotoID, caption).
			Return(&models.Photo{ID: testPhotoID, Caption: &caption}, nil).Once()
		r := setupPhotoRouter(handlers.NewPhotoHandler(photos, testMaxPhotoSize), testUserID)

		rr := serve(r, http.MethodPatch, "/api/photos/"+testPhotoID, `{"caption": "Закат"}`)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"caption":"Закат"`)
		photos.AssertExpectations(t)
	})

	t.Run("Чужая фотография", func(t *testing.T) {
		photos := new(mocks.PhotoService)
		photos.On("UpdateCaption", mock.Anything, testUserID, testPhotoID, "x").Return(nil, services.ErrForbidden).Once()
		r := setupPhotoRouter(handlers.NewPhotoHandler(photos, testMaxPhotoSize), testUserID)

		rr := serve(r, http.MethodPatch, "/api/photos/"+testPhotoID, `{"caption": "x"}`)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "Фотография не найдена\n", rr.Body.String())
	})
}

func TestPhotoHandler_Delete(t *testing.T) {
	tests := []struct {
		name           string
		returnErr      error
		expectedStatus int
	}{
		{name: "Фотография удалена", expectedStatus: http.StatusNoContent},
		{name: "Фотография не найдена", returnErr: services.ErrPhotoNotFound, expectedStatus: http.StatusNotFound},
		{name: "Чужая фотография", returnErr: services.ErrForbidden, expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			photos := new(mocks.PhotoService)
			photos.On("Delete", mock.Anything, testUserID, testPhotoID).Return(tt.returnErr).Once()
			r := setupPhotoRouter(handlers.NewPhotoHandler(photos, testMaxPhotoSize), testUserID)

			rr := serve(r, http.MethodDelete, "/api/photos/"+testPhotoID, "")

			assert.Equal(t, tt.expectedStatus, rr.Code)
			photos.AssertExpectations(t)
		})
	}
}

func TestPhotoHandler_URL(t *testing.T) {
	expiresAt := testNow.Add(15 * time.Minute)

	tests := []struct {
		name           string
		query          string
		expectedTTL    time.Duration
		callService    bool
		returnErr      error
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "Срок по умолчанию",
			expectedTTL:    0,
			callService:    true,
			expectedStatus: http.StatusOK,
			expectedBody:   `"url":"https://s3/signed"`,
		},
		{
			name:           "Срок в секундах",
			query:          "?ttl=900",
			expectedTTL:    15 * time.Minute,
			callService:    true,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Срок как длительность",
			query:          "?ttl=15m",
			expectedTTL:    15 * time.Minute,
			callService:    true,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Неверный срок",
			query:          "?ttl=tomorrow",
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "Неверный параметр ttl",
		},
		{
			name:           "Отрицательный срок",
			query:          "?ttl=-5",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Срок больше недели",
			query:          "?ttl=200h",
			expectedTTL:    200 * time.Hour,
			callService:    true,
			returnErr:      fmt.Errorf("%w: срок жизни ссылки больше 168h0m0s", services.ErrValidation),
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "срок жизни ссылки больше",
		},
		{
			name:           "Альбом закрыт",
			query:          "?ttl=60",
			expectedTTL:    time.Minute,
			callService:    true,
			returnErr:      services.ErrAlbumLocked,
			expectedStatus: http.StatusForbidden,
			expectedBody:   "Альбом закрыт для просмотра",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			photos := new(mocks.PhotoService)
			if tt.callService {
				if tt.returnErr != nil {
					photos.On("SignedURL", mock.Anything, testUserID, testPhotoID, tt.expectedTTL).
						Return(nil, tt.returnErr).Once()
				} else {
					photos.On("SignedURL", mock.Anything, testUserID, testPhotoID, tt.expectedTTL).
						Return(&models.PhotoURLResponse{URL: "https://s3/signed", ExpiresAt: expiresAt}, nil).Once()
				}
			}
			r := setupPhotoRouter(handlers.NewPhotoHandler(photos, testMaxPhotoSize), testUserID)

			rr := serve(r, http.MethodGet, "/api/photos/"+testPhotoID+"/url"+tt.query, "")

			assert.Equal(t, tt.expectedStatus, rr.Code)
			if tt.expectedBody != "" {
				assert.Contains(t, rr.Body.String(), tt.expectedBody)
			}
			photos.AssertExpectations(t)
		})
	}
}
