// Package session хранит токен клиента между запусками.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const (
	filePermissions = 0o600
	dirPermissions  = 0o700
	lockRetryDelay  = 50 * time.Millisecond
)

// ErrNoSession возвращается, если клиент еще не входил в систему.
var ErrNoSession = errors.New("сессия не найдена, выполните вход")

// Session - сохраненные данные входа.
type Session struct {
	ServerURL string `json:"server_url"`
	Username  string `json:"username"`
	Token     string `json:"token"`
}

// Store читает и пишет сессию в файл. Одновременный доступ нескольких
// процессов клиента разграничивается блокировкой path + ".lock".
type Store struct {
	path string
	lock *flock.Flock
}

// NewStore создает хранилище сессии в файле path.
func NewStore(path string) *Store {
	return &Store{path: path, lock: flock.New(path + ".lock")}
}

// Path возвращает путь к файлу сессии.
func (s *Store) Path() string { return s.path }

// Load читает сессию. Если файла нет, возвращает ErrNoSession.
func (s *Store) Load(ctx context.Context) (*Session, error) {
	var sess Session
	err := s.withLock(ctx, func() error {
		data, err := os.ReadFile(s.path)
		if errors.Is(err, os.ErrNotExist) {
			return ErrNoSession
		}
		if err != nil {
			return fmt.Errorf("ошибка чтения файла сессии: %w", err)
		}
		if err = json.Unmarshal(data, &sess); err != nil {
			return fmt.Errorf("поврежден файл сессии %s: %w", s.path, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if sess.Token == "" {
		return nil, ErrNoSession
	}
	return &sess, nil
}

// Save записывает сессию через временный файл и переименование.
func (s *Store) Save(ctx context.Context, sess Session) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("ошибка кодирования сессии: %w", err)
	}
	return s.withLock(ctx, func() error {
		if err = os.MkdirAll(filepath.Dir(s.path), dirPermissions); err != nil {
			return fmt.Errorf("ошибка создания каталога сессии: %w", err)
		}
		tmp := s.path + ".tmp"
		if err = os.WriteFile(tmp, data, filePermissions); err != nil {
			return fmt.Errorf("ошибка записи файла сессии: %w", err)
		}
		if err = os.Rename(tmp, s.path); err != nil {
			_ = os.Remove(tmp)
			return fmt.Errorf("ошибка записи файла сессии: %w", err)
		}
		return nil
	})
}

// Clear удаляет сессию. Отсутствие файла ошибкой не считается.
func (s *Store) Clear(ctx context.Context) error {
	return s.withLock(ctx, func() error {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("ошибка удаления файла сессии: %w", err)
		}
		return nil
	})
}

func (s *Store) withLock(ctx context.Context, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(s.path), dirPermissions); err != nil {
		return fmt.Errorf("ошибка создания каталога сессии: %w", err)
	}
	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("ошибка блокировки файла сессии: %w", err)
	}
	if !locked {
		return fmt.Errorf("файл сессии %s занят другим процессом", s.path)
	}
	defer func() { _ = s.lock.Unlock() }()
	return fn()
}
