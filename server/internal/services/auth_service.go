package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/maynagashev/timelock/internal/access"
	"github.com/maynagashev/timelock/models"
	"github.com/maynagashev/timelock/server/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Ограничения на учетные данные.
const (
	minPasswordLength = 6
	maxPasswordBytes  = 72 // Все, что длиннее, bcrypt отбрасывает
	maxUsernameLength = 64
	tokenIssuer       = "timelock-server"
)

// DefaultTokenTTL - время жизни токена по умолчанию.
const DefaultTokenTTL = 24 * time.Hour

// AuthService определяет интерфейс для сервиса аутентификации.
type AuthService interface {
	Register(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) (string, error) // Возвращает JWT токен или ошибку
}

// AuthConfig - настройки выпуска токенов.
type AuthConfig struct {
	Secret   []byte
	TokenTTL time.Duration
}

// Claims - пользовательские данные в JWT.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Убедимся, что authService удовлетворяет интерфейсу AuthService.
var _ AuthService = (*authService)(nil)

type authService struct {
	userRepo repository.UserRepository
	cfg      AuthConfig
	clock    access.Clock
}

// NewAuthService создает новый экземпляр сервиса аутентификации.
func NewAuthService(userRepo repository.UserRepository, cfg AuthConfig, clock access.Clock) AuthService {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	if clock == nil {
		clock = time.Now
	}
	return &authService{userRepo: userRepo, cfg: cfg, clock: clock}
}

// Register регистрирует нового пользователя.
func (s *authService) Register(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if err := validateCredentials(username, password); err != nil {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		zap.S().Errorf("[AuthService] Ошибка хеширования пароля для '%s': %v", username, err)
		return fmt.Errorf("ошибка хеширования пароля: %w", err)
	}

	user := &models.User{
		Username:     username,
		PasswordHash: string(hashedPassword),
		CreatedAt:    storeTime(s.clock),
	}

	if _, err = s.userRepo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUsernameTaken) {
			zap.S().Infof("[AuthService] Попытка регистрации с занятым именем: %s", username)
			return ErrUsernameTaken
		}
		return storeError("создание пользователя", err)
	}

	zap.S().Infof("[AuthService] Пользователь '%s' успешно зарегистрирован", username)
	return nil
}

// Login аутентифицирует пользователя и возвращает JWT токен.
func (s *authService) Login(ctx context.Context, username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", ErrInvalidCredentials
	}

	user, err := s.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			zap.S().Infof("[AuthService] Попытка входа несуществующего пользователя: %s", username)
			return "", ErrInvalidCredentials // Общая ошибка для несуществующего пользователя и неверного пароля
		}
		return "", storeError("поиск пользователя", err)
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		zap.S().Infof("[AuthService] Неверный пароль для пользователя: %s", username)
		return "", ErrInvalidCredentials
	}

	token, err := IssueToken(s.cfg.Secret, user.ID, s.clock(), s.cfg.TokenTTL)
	if err != nil {
		zap.S().Errorf("[AuthService] Ошибка генерации JWT для '%s': %v", username, err)
		return "", err
	}

	zap.S().Infof("[AuthService] Пользователь '%s' успешно аутентифицирован", username)
	return token, nil
}

// IssueToken создает и подписывает JWT токен пользователя, действующий ttl с момента now.
func IssueToken(secret []byte, userID string, now time.Time, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   userID,
		},
	}

	signedToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("ошибка подписи JWT: %w", err)
	}
	return signedToken, nil
}

// ParseToken проверяет подпись и срок действия токена и возвращает его claims.
func ParseToken(secret []byte, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthRequired, err)
	}
	if !token.Valid || claims.UserID == "" {
		return nil, ErrAuthRequired
	}
	return claims, nil
}

func validateCredentials(username, password string) error {
	switch {
	case username == "":
		return validationError("имя пользователя не может быть пустым")
	case len([]rune(username)) > maxUsernameLength:
		return validationError("имя пользователя длиннее %d символов", maxUsernameLength)
	case len(password) < minPasswordLength:
		return validationError("пароль короче %d символов", minPasswordLength)
	case len(password) > maxPasswordBytes:
		return validationError("пароль длиннее %d байт", maxPasswordBytes)
	}
	return nil
}
