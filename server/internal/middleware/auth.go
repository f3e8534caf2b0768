package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/maynagashev/timelock/server/internal/services"
	"go.uber.org/zap"
)

// Тип для ключа контекста.
type contextKey string

// UserIDKey - ключ для хранения ID пользователя в контексте.
const UserIDKey contextKey = "userID"

// Authenticator возвращает middleware, проверяющий JWT токен из заголовка
// Authorization. Токен принимается только из заголовка, в том числе при
// рукопожатии websocket.
func Authenticator(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := extractToken(r)
			if err != nil {
				zap.S().Debugf("[AuthMiddleware] %v (%s %s)", err, r.Method, r.URL.Path)
				if errors.Is(err, errMalformedHeader) {
					http.Error(w, "Неверный формат токена", http.StatusUnauthorized)
					return
				}
				http.Error(w, "Требуется аутентификация", http.StatusUnauthorized)
				return
			}

			claims, err := services.ParseToken(secret, tokenString)
			if err != nil {
				zap.S().Infof("[AuthMiddleware] Ошибка парсинга/валидации токена: %v", err)
				http.Error(w, "Невалидный токен", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken достает токен из заголовка "Authorization: Bearer <token>".
func extractToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errMissingToken
	}
	headerParts := strings.Split(authHeader, " ")
	if len(headerParts) != 2 || !strings.EqualFold(headerParts[0], "bearer") || headerParts[1] == "" {
		return "", errMalformedHeader
	}
	return headerParts[1], nil
}

var (
	errMissingToken    = errors.New("токен отсутствует")
	errMalformedHeader = errors.New("неверный формат заголовка Authorization")
)

// GetUserIDFromContext извлекает ID пользователя из контекста запроса.
// Возвращает ID и true, если ID найден, иначе пустую строку и false.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok && userID != ""
}
