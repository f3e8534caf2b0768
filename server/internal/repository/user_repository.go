package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/maynagashev/timelock/models"
	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Коды ошибок PostgreSQL.
const (
	pgUniqueViolationCode = "23505"
)

// UserRepository определяет методы для работы с данными пользователей в хранилище.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) (string, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// sqlUserRepository реализует UserRepository поверх sqlx (PostgreSQL или SQLite).
type sqlUserRepository struct {
	db *sqlx.DB
}

// NewUserRepository создает новый экземпляр репозитория пользователей.
func NewUserRepository(db *sqlx.DB) UserRepository {
	return &sqlUserRepository{db: db}
}

// CreateUser создает нового пользователя в базе данных.
// ID генерируется здесь же, время создания берется из user.CreatedAt.
func (r *sqlUserRepository) CreateUser(ctx context.Context, user *models.User) (string, error) {
	query := r.db.Rebind(`INSERT INTO users (id, username, password_hash, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?)`)

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}

	_, err := r.db.ExecContext(ctx, query, user.ID, user.Username, user.PasswordHash, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			zap.S().Warnf("[UserRepo] Ошибка создания пользователя: имя пользователя '%s' уже занято", user.Username)
			return "", ErrUsernameTaken
		}
		zap.S().Errorf("[UserRepo] Непредвиденная ошибка при создании пользователя '%s': %v", user.Username, err)
		return "", fmt.Errorf("ошибка выполнения запроса на создание пользователя: %w", err)
	}

	zap.S().Infof("[UserRepo] Пользователь '%s' успешно создан с ID %s", user.Username, user.ID)
	return user.ID, nil
}

// GetUserByUsername находит пользователя по его имени.
func (r *sqlUserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := r.db.Rebind(`SELECT id, username, password_hash, created_at, updated_at FROM users WHERE username=?`)
	var user models.User

	err := r.db.GetContext(ctx, &user, query, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			zap.S().Infof("[UserRepo] Пользователь с именем '%s' не найден", username)
			return nil, ErrUserNotFound
		}
		zap.S().Errorf("[UserRepo] Ошибка при поиске пользователя '%s': %v", username, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение пользователя: %w", err)
	}

	zap.S().Debugf("[UserRepo] Найден пользователь '%s' (ID: %s)", username, user.ID)
	return &user, nil
}

// isUniqueViolation распознает нарушение уникальности в обоих драйверах.
func isUniqueViolation(err error) bool {
	var pgErr *pq.Error
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode {
		return true
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// Кастомные ошибки репозитория.
var (
	ErrUserNotFound  = errors.New("пользователь не найден")
	ErrUsernameTaken = errors.New("имя пользователя уже занято")
)
