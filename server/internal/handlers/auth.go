package handlers

import (
	"net/http"

	"github.com/maynagashev/timelock/models"
	"github.com/maynagashev/timelock/server/internal/services"
	"go.uber.org/zap"
)

// AuthHandler обрабатывает HTTP-запросы, связанные с аутентификацией.
type AuthHandler struct {
	service services.AuthService
}

// NewAuthHandler создает новый экземпляр AuthHandler.
func NewAuthHandler(s services.AuthService) *AuthHandler {
	return &AuthHandler{service: s}
}

// decodeCredentials читает имя и пароль из тела запроса. При ошибке ответ уже
// записан и возвращается false.
func decodeCredentials(w http.ResponseWriter, r *http.Request, op string) (models.Credentials, bool) {
	var creds models.Credentials
	if !decodeJSON(w, r, &creds, "AuthHandler") {
		return creds, false
	}
	if creds.Blank() {
		zap.S().Infof("[AuthHandler] Пустое имя пользователя или пароль (%s)", op)
		http.Error(w, "Имя пользователя и пароль не могут быть пустыми", http.StatusBadRequest)
		return creds, false
	}
	return creds, true
}

// Register обрабатывает запрос на регистрацию нового пользователя.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCredentials(w, r, "регистрация")
	if !ok {
		return
	}

	if err := h.service.Register(r.Context(), req.Username, req.Password); err != nil {
		writeServiceError(w, err, msgInternalError, "AuthHandler")
		return
	}

	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write([]byte("Пользователь успешно зарегистрирован\n"))
}

// Login обрабатывает запрос на вход пользователя.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCredentials(w, r, "вход")
	if !ok {
		return
	}

	token, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, err, msgInternalError, "AuthHandler")
		return
	}

	writeJSON(w, http.StatusOK, models.AuthToken{Token: token}, "AuthHandler")
}
