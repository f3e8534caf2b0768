package services

import (
	"errors"
	"fmt"
)

// Кастомные ошибки сервисов. Обработчики сопоставляют их со статусами HTTP
// через errors.Is.
var (
	ErrAuthRequired  = errors.New("требуется аутентификация")
	ErrAlbumNotFound = errors.New("альбом не найден")
	ErrForbidden     = errors.New("нет доступа к альбому")
	ErrPhotoNotFound = errors.New("фотография не найдена")
	ErrValidation    = errors.New("некорректные данные")
	ErrConflict      = errors.New("конфликт состояния")
	ErrAlbumLocked   = errors.New("альбом закрыт для просмотра")
	ErrStore         = errors.New("ошибка хранилища")

	ErrAlreadyUnsealed = fmt.Errorf("%w: альбом уже вскрыт", ErrConflict)
	ErrAlbumUnsealed   = fmt.Errorf("%w: альбом вскрыт, добавлять фотографии нельзя", ErrConflict)

	ErrInvalidCredentials = errors.New("неверное имя пользователя или пароль")
	ErrUsernameTaken      = fmt.Errorf("%w: имя пользователя уже занято", ErrConflict)
)

// validationError оборачивает ErrValidation понятным пользователю сообщением.
func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// storeError оборачивает ошибку хранилища в ErrStore, сохраняя исходную причину.
func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}
