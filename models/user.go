package models

import (
	"strings"
	"time"
)

// User - владелец альбомов. Хеш пароля наружу не отдается.
type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Credentials - тело запросов /api/register и /api/login.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Blank сообщает, что имя или пароль не заданы. Имя из одних пробелов
// тоже считается пустым.
func (c Credentials) Blank() bool {
	return strings.TrimSpace(c.Username) == "" || c.Password == ""
}

// AuthToken - ответ на успешный вход.
type AuthToken struct {
	Token string `json:"token"`
}
