package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/maynagashev/timelock/models"
	"github.com/maynagashev/timelock/server/internal/services"
	"go.uber.org/zap"
)

const (
	// multipartOverhead - запас на заголовки частей и поле caption.
	multipartOverhead = 64 << 10
	// multipartMemory - сколько формы держим в памяти, остальное уходит во временные файлы.
	multipartMemory = 8 << 20
)

// PhotoHandler обрабатывает HTTP-запросы, связанные с фотографиями.
type PhotoHandler struct {
	photos       services.PhotoService
	maxPhotoSize int64
}

// NewPhotoHandler создает новый экземпляр PhotoHandler.
// maxPhotoSize ограничивает тело запроса на загрузку.
func NewPhotoHandler(photos services.PhotoService, maxPhotoSize int64) *PhotoHandler {
	if maxPhotoSize <= 0 {
		maxPhotoSize = services.DefaultMaxPhotoSize
	}
	return &PhotoHandler{photos: photos, maxPhotoSize: maxPhotoSize}
}

// List обрабатывает GET /api/albums/{albumID}/photos.
func (h *PhotoHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerFromRequest(w, r, "PhotoHandler:List")
	if !ok {
		return
	}

	photos, err := h.photos.ListByAlbum(r.Context(), userID, chi.URLParam(r, "albumID"))
	if err != nil {
		writeServiceError(w, err, msgAlbumNotFound, "PhotoHandler:List")
		return
	}
	if photos == nil {
		photos = []models.Photo{}
	}
	writeJSON(w, http.StatusOK, photos, "PhotoHandler:List")
}

// Upload обрабатывает POST /api/albums/{albumID}/photos (multipart: file, caption).
// Тип файла определяется по содержимому, заголовок клиента не учитывается.
func (h *PhotoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerFromRequest(w, r, "PhotoHandler:Upload")
	if !ok {
		return
	}
	albumID := chi.URLParam(r, "albumID")

	r.Body = http.MaxBytesReader(w, r.Body, h.maxPhotoSize+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			zap.S().Infof("[PhotoHandler:Upload] Слишком большой запрос от пользователя %s", userID)
			http.Error(w, "Файл слишком большой", http.StatusRequestEntityTooLarge)
			return
		}
		zap.S().Infof("[PhotoHandler:Upload] Ошибка разбора multipart: %v", err)
		http.Error(w, msgBadRequest, http.StatusBadRequest)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Поле file обязательно", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxPhotoSize+1))
	if err != nil {
		zap.S().Errorf("[PhotoHandler:Upload] Ошибка чтения файла: %v", err)
		http.Error(w, msgInternalError, http.StatusInternalServerError)
		return
	}

	upload := services.PhotoUpload{
		Data:      data,
		FileName:  header.Filename,
		SizeBytes: header.Size,
		MimeType:  mimetype.Detect(data).String(),
		Caption:   r.FormValue("caption"),
	}
	zap.S().Debugf("[PhotoHandler:Upload] Файл '%s': заявлен %s, определен %s",
		header.Filename, header.Header.Get("Content-Type"), upload.MimeType)

	photo, err := h.photos.Upload(r.Context(), userID, albumID, upload)
	if err != nil {
		writeServiceError(w, err, msgAlbumNotFound, "PhotoHandler:Upload")
		return
	}
	writeJSON(w, http.StatusCreated, photo, "PhotoHandler:Upload")
}

// UpdateCaption обрабатывает PATCH /api/photos/{photoID}.
func (h *PhotoHandler) UpdateCaption(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerFromRequest(w, r, "PhotoHandler:UpdateCaption")
	if !ok {
		return
	}
	var req models.UpdateCaptionRequest
	if !decodeJSON(w, r, &req, "PhotoHandler:UpdateCaption") {
		return
	}

	photo, err := h.photos.UpdateCaption(r.Context(), userID, chi.URLParam(r, "photoID"), req.Caption)
	if err != nil {
		writeServiceError(w, err, msgPhotoNotFound, "PhotoHandler:UpdateCaption")
		return
	}
	writeJSON(w, http.StatusOK, photo, "PhotoHandler:UpdateCaption")
}

// Delete обрабатывает DELETE /api/photos/{photoID}.
func (h *PhotoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerFromRequest(w, r, "PhotoHandler:Delete")
	if !ok {
		return
	}

	if err := h.photos.Delete(r.Context(), userID, chi.URLParam(r, "photoID")); err != nil {
		writeServiceError(w, err, msgPhotoNotFound, "PhotoHandler:Delete")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// URL обрабатывает GET /api/photos/{photoID}/url?ttl=15m.
// ttl задается как длительность Go или число секунд.
func (h *PhotoHandler) URL(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerFromRequest(w, r, "PhotoHandler:URL")
	if !ok {
		return
	}

	ttl, err := parseTTL(r.URL.Query().Get("ttl"))
	if err != nil {
		http.Error(w, "Неверный параметр ttl", http.StatusBadRequest)
		return
	}

	resp, err := h.photos.SignedURL(r.Context(), userID, chi.URLParam(r, "photoID"), ttl)
	if err != nil {
		writeServiceError(w, err, msgPhotoNotFound, "PhotoHandler:URL")
		return
	}
	writeJSON(w, http.StatusOK, resp, "PhotoHandler:URL")
}

// parseTTL разбирает "15m", "90s" или "900". Пустая строка означает срок по умолчанию.
func parseTTL(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	if seconds, err := strconv.Atoi(raw); err == nil {
		if seconds < 0 {
			return 0, errors.New("отрицательный ttl")
		}
		return time.Duration(seconds) * time.Second, nil
	}
	ttl, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if ttl < 0 {
		return 0, errors.New("отрицательный ttl")
	}
	return ttl, nil
}
