package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // Драйвер PostgreSQL, импортируем для регистрации
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // Встраиваемый драйвер SQLite для локального запуска и тестов
)

const (
	maxOpenConns    = 25              // Максимальное количество открытых соединений
	maxIdleConns    = 25              // Максимальное количество простаивающих соединений
	connMaxLifetime = 5 * time.Minute // Максимальное время жизни соединения
	connMaxIdleTime = 5 * time.Minute // Максимальное время простоя соединения
)

// Имена драйверов database/sql.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	sqliteScheme     = "sqlite://"
	sqliteFKPragma   = "_pragma=foreign_keys(1)"
	sqliteBusyPragma = "_pragma=busy_timeout(5000)"
)

// ParseDSN определяет драйвер по DSN и возвращает строку подключения для него.
// Поддерживаются postgres://, postgresql://, sqlite://<path> и file:<path>.
func ParseDSN(dsn string) (string, string, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return DriverPostgres, dsn, nil
	case strings.HasPrefix(dsn, sqliteScheme):
		return DriverSQLite, withSQLitePragmas(strings.TrimPrefix(dsn, sqliteScheme)), nil
	case strings.HasPrefix(dsn, "file:"):
		return DriverSQLite, withSQLitePragmas(dsn), nil
	default:
		return "", "", fmt.Errorf("неподдерживаемый DSN: ожидается postgres:// или sqlite://")
	}
}

func withSQLitePragmas(source string) string {
	sep := "?"
	if strings.Contains(source, "?") {
		sep = "&"
	}
	return source + sep + sqliteFKPragma + "&" + sqliteBusyPragma
}

// NewDB создает и возвращает новое подключение к БД по DSN.
func NewDB(dsn string) (*sqlx.DB, error) {
	driver, source, err := ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	zap.S().Infof("[DB] Подключение к БД (драйвер %s)...", driver)

	db, err := sqlx.Connect(driver, source)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	// Проверка соединения
	if err = db.PingContext(context.Background()); err != nil {
		// Закрываем соединение в случае ошибки пинга
		if closeErr := db.Close(); closeErr != nil {
			zap.S().Errorf("[DB] Ошибка закрытия соединения с БД после неудачного пинга: %v", closeErr)
		}
		return nil, fmt.Errorf("ошибка проверки соединения с БД (ping): %w", err)
	}

	configurePool(db, driver)

	zap.S().Infof("[DB] Подключение к БД (драйвер %s) успешно установлено.", driver)
	return db, nil
}

// configurePool настраивает пул соединений.
// SQLite держим на одном соединении: in-memory база живет ровно столько,
// сколько живет соединение, а писатель у SQLite все равно один.
func configurePool(db *sqlx.DB, driver string) {
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		return
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)
}
