package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/maynagashev/timelock/server/internal/middleware"
	"github.com/maynagashev/timelock/server/internal/services"
	"go.uber.org/zap"
)

// Сообщения об ошибках, которые видит клиент.
const (
	msgBadRequest     = "Неверный формат запроса"
	msgAuthRequired   = "Требуется аутентификация"
	msgAlbumNotFound  = "Альбом не найден"
	msgPhotoNotFound  = "Фотография не найдена"
	msgAlbumLocked    = "Альбом закрыт для просмотра"
	msgInternalError  = "Внутренняя ошибка сервера"
	msgBadCredentials = "Неверное имя пользователя или пароль"
)

// writeJSON кодирует v в тело ответа с заданным статусом.
func writeJSON(w http.ResponseWriter, status int, v interface{}, tag string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Статус уже отправлен, остается только залогировать
		zap.S().Errorf("[%s] Ошибка кодирования ответа: %v", tag, err)
	}
}

// decodeJSON читает JSON из тела запроса. При ошибке отвечает 400 и возвращает false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}, tag string) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		zap.S().Infof("[%s] Ошибка декодирования запроса: %v", tag, err)
		http.Error(w, msgBadRequest, http.StatusBadRequest)
		return false
	}
	return true
}

// ownerFromRequest достает ID пользователя, положенный Authenticator.
func ownerFromRequest(w http.ResponseWriter, r *http.Request, tag string) (string, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		zap.S().Warnf("[%s] Не удалось получить userID из контекста", tag)
		http.Error(w, msgAuthRequired, http.StatusUnauthorized)
		return "", false
	}
	return userID, true
}

// writeServiceError сопоставляет ошибку сервиса со статусом HTTP.
// notFound - сообщение для отсутствующего или чужого ресурса; текст ошибок
// хранилища клиенту не отдается.
func writeServiceError(w http.ResponseWriter, err error, notFound, tag string) {
	switch {
	case errors.Is(err, services.ErrAuthRequired):
		http.Error(w, msgAuthRequired, http.StatusUnauthorized)
	case errors.Is(err, services.ErrInvalidCredentials):
		http.Error(w, msgBadCredentials, http.StatusUnauthorized)
	case errors.Is(err, services.ErrPhotoNotFound):
		http.Error(w, msgPhotoNotFound, http.StatusNotFound)
	case errors.Is(err, services.ErrAlbumNotFound), errors.Is(err, services.ErrForbidden):
		http.Error(w, notFound, http.StatusNotFound)
	case errors.Is(err, services.ErrValidation):
		http.Error(w, clientMessage(err, services.ErrValidation), http.StatusBadRequest)
	case errors.Is(err, services.ErrConflict):
		http.Error(w, clientMessage(err, services.ErrConflict), http.StatusConflict)
	case errors.Is(err, services.ErrAlbumLocked):
		http.Error(w, msgAlbumLocked, http.StatusForbidden)
	default:
		zap.S().Errorf("[%s] Внутренняя ошибка: %v", tag, err)
		http.Error(w, msgInternalError, http.StatusInternalServerError)
	}
}

// clientMessage отрезает префикс категории: "некорректные данные: X" -> "X".
func clientMessage(err, kind error) string {
	msg := err.Error()
	if rest, ok := strings.CutPrefix(msg, kind.Error()+": "); ok {
		return rest
	}
	return msg
}
