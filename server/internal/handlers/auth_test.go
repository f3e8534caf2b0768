package handlers_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/maynagashev/timelock/models"
	"github.com/maynagashev/timelock/server/internal/handlers"
	"github.com/maynagashev/timelock/server/internal/mocks"
	"github.com/maynagashev/timelock/server/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNewAuthHandler(t *testing.T) {
	h := handlers.NewAuthHandler(new(mocks.AuthService))
	assert.NotNil(t, h)
}

// Вспомогательная функция для создания роутера с обработчиком.
func setupAuthRouter(h *handlers.AuthHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	return r
}

func TestAuthHandler_Register(t *testing.T) {
	tests := []struct {
		name            string
		body            string
		mockUsername    string
		mockPassword    string
		mockReturnError error
		expectedStatus  int
		expectedBody    string // Проверяем подстроку в теле ответа
	}{
		{
			name:           "Успешная регистрация",
			body:           `{"username": "testuser", "password": "password123"}`,
			mockUsername:   "testuser",
			mockPassword:   "password123",
			expectedStatus: http.StatusCreated,
			expectedBody:   "Пользователь успешно зарегистрирован",
		},
		{
			name:           "Невалидный JSON",
			body:           `{"username": "testuser", "password": "password123"`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "Неверный формат запроса",
		},
		{
			name:           "Пустой username",
			body:           `{"username": "", "password": "password123"}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "Имя пользователя и пароль не могут быть пустыми",
		},
		{
			name:           "Пустой password",
			body:           `{"username": "testuser", "password": ""}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "Имя пользователя и пароль не могут быть пустыми",
		},
		{
			name:           "Имя из одних пробелов",
			body:           `{"username": "   ", "password": "password123"}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "Имя пользователя и пароль не могут быть пустыми",
		},
		{
			name:            "Короткий пароль",
			body:            `{"username": "testuser", "password": "123"}`,
			mockUsername:    "testuser",
			mockPassword:    "123",
			mockReturnError: fmt.Errorf("%w: пароль короче 6 символов", services.ErrValidation),
			expectedStatus:  http.StatusBadRequest,
			expectedBody:    "пароль короче 6 символов",
		},
		{
			name:            "Имя пользователя занято",
			body:            `{"username": "existinguser", "password": "password123"}`,
			mockUsername:    "existinguser",
			mockPassword:    "password123",
			mockReturnError: services.ErrUsernameTaken,
			expectedStatus:  http.StatusConflict,
			expectedBody:    "имя пользователя уже занято",
		},
		{
			name:            "Внутренняя ошибка сервера",
			body:            `{"username": "erroruser", "password": "password123"}`,
			mockUsername:    "erroruser",
			mockPassword:    "password123",
			mockReturnError: errors.New("some internal error"),
			expectedStatus:  http.StatusInternalServerError,
			expectedBody:    "Внутренняя ошибка сервера",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(mocks.AuthService)
			r := setupAuthRouter(handlers.NewAuthHandler(mockService))

			// Настраиваем мок только если ожидается вызов сервиса
			if tt.mockUsername != "" || tt.mockPassword != "" {
				mockService.On("Register", mock.Anything, tt.mockUsername, tt.mockPassword).
					Return(tt.mockReturnError).Once()
			}

			req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			if tt.expectedBody != "" {
				assert.Contains(t, rr.Body.String(), tt.expectedBody)
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestAuthHandler_Login(t *testing.T) {
	tests := []struct {
		name            string
		body            string
		mockUsername    string
		mockPassword    string
		mockReturnToken string
		mockReturnError error
		expectedStatus  int
		expectedBody    string
		expectedToken   string // Ожидаемый токен в JSON ответе
	}{
		{
			name:            "Успешный вход",
			body:            `{"username": "testuser", "password": "password123"}`,
			mockUsername:    "testuser",
			mockPassword:    "password123",
			mockReturnToken: "fake-jwt-token",
			expectedStatus:  http.StatusOK,
			expectedToken:   "fake-jwt-token",
		},
		{
			name:           "Невалидный JSON",
			body:           `{"username": "testuser"`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "Неверный формат запроса",
		},
		{
			name:           "Пустой password",
			body:           `{"username": "testuser", "password": ""}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "Имя пользователя и пароль не могут быть пустыми",
		},
		{
			name:            "Неверные креды",
			body:            `{"username": "wronguser", "password": "wrongpassword"}`,
			mockUsername:    "wronguser",
			mockPassword:    "wrongpassword",
			mockReturnError: services.ErrInvalidCredentials,
			expectedStatus:  http.StatusUnauthorized,
			expectedBody:    "Неверное имя пользователя или пароль",
		},
		{
			name:            "Ошибка хранилища не раскрывается",
			body:            `{"username": "erroruser", "password": "password123"}`,
			mockUsername:    "erroruser",
			mockPassword:    "password123",
			mockReturnError: fmt.Errorf("%w: поиск пользователя: pq: connection refused", services.ErrStore),
			expectedStatus:  http.StatusInternalServerError,
			expectedBody:    "Внутренняя ошибка сервера",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(mocks.AuthService)
			r := setupAuthRouter(handlers.NewAuthHandler(mockService))

			if tt.mockUsername != "" || tt.mockPassword != "" {
				mockService.On("Login", mock.Anything, tt.mockUsername, tt.mockPassword).
					Return(tt.mockReturnToken, tt.mockReturnError).Once()
			}

			req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			if tt.expectedToken != "" {
				var resp models.AuthToken
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp), "Ошибка декодирования JSON ответа")
				assert.Equal(t, tt.expectedToken, resp.Token)
			} else if tt.expectedBody != "" {
				assert.Contains(t, rr.Body.String(), tt.expectedBody)
			}
			assert.NotContains(t, rr.Body.String(), "pq:")
			mockService.AssertExpectations(t)
		})
	}
}
