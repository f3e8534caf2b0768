package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/maynagashev/timelock/server/internal/census"
	"github.com/maynagashev/timelock/server/internal/handlers"
	"github.com/maynagashev/timelock/server/internal/metrics"
	appmiddleware "github.com/maynagashev/timelock/server/internal/middleware"
	"github.com/maynagashev/timelock/server/internal/repository"
	"github.com/maynagashev/timelock/server/internal/services"
	"github.com/maynagashev/timelock/server/internal/storage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	defaultReadHeaderTimeout = 5 * time.Second
	defaultReadTimeout       = 60 * time.Second // Загрузка фотографий
	defaultWriteTimeout      = 30 * time.Second
	defaultIdleTimeout       = 60 * time.Second
	shutdownTimeout          = 10 * time.Second
)

// Конструкторы внешних зависимостей, подменяются в тестах.
var (
	newDB          = repository.NewDB
	newFileStorage = func(ctx context.Context, cfg storage.MinioConfig) (storage.FileStorage, error) {
		return storage.NewMinioClient(ctx, cfg)
	}
)

// Структура для хранения инициализированных зависимостей.
type dependencies struct {
	db               *sqlx.DB
	fileStorage      storage.FileStorage
	census           *census.Census
	authHandler      *handlers.AuthHandler
	albumHandler     *handlers.AlbumHandler
	photoHandler     *handlers.PhotoHandler
	countdownHandler *handlers.CountdownHandler
}

// main - точка входа. Вызывает run и обрабатывает ошибку.
func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка выполнения сервера: %v\n", err)
		os.Exit(1)
	}
}

// run содержит основную логику запуска сервера и возвращает ошибку.
func run(args []string) error {
	cfg, err := parseFlags(args)
	if err != nil {
		return fmt.Errorf("ошибка конфигурации: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	defer zap.ReplaceGlobals(logger)()

	zap.S().Info("[Server] Запуск сервера timelock...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := setupDependencies(ctx, cfg)
	if err != nil {
		return fmt.Errorf("ошибка инициализации зависимостей: %w", err)
	}
	defer func() {
		if closeErr := deps.db.Close(); closeErr != nil {
			zap.S().Errorf("[Server] Ошибка закрытия соединения с БД: %v", closeErr)
		}
	}()

	go deps.census.Run(ctx)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           setupRouter(deps, cfg),
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		ReadTimeout:       defaultReadTimeout,
		WriteTimeout:      defaultWriteTimeout,
		IdleTimeout:       defaultIdleTimeout,
	}
	server.RegisterOnShutdown(deps.countdownHandler.Close)

	serveErr := make(chan error, 1)
	go func() {
		if cfg.tlsEnabled() {
			zap.S().Infof("[Server] Запуск HTTPS-сервера на порту %s (сертификат %s)", cfg.Port, cfg.CertFile)
			serveErr <- server.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
			return
		}
		zap.S().Warnf("[Server] TLS не настроен, запуск HTTP-сервера на порту %s", cfg.Port)
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err = <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ошибка запуска сервера: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	zap.S().Info("[Server] Получен сигнал остановки, завершаем работу...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err = server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ошибка остановки сервера: %w", err)
	}
	zap.S().Info("[Server] Сервер остановлен")
	return nil
}

// newLogger создает production-логгер zap с заданным уровнем.
func newLogger(level string) (*zap.Logger, error) {
	atomicLevel, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("некорректный уровень логирования %q: %w", level, err)
	}
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = atomicLevel
	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("ошибка создания логгера: %w", err)
	}
	return logger, nil
}

// setupDependencies инициализирует и возвращает все необходимые зависимости сервера.
func setupDependencies(ctx context.Context, cfg *config) (*dependencies, error) {
	deps := &dependencies{}
	var err error

	// 1. Подключение к БД и миграции
	deps.db, err = newDB(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации БД: %w", err)
	}
	closeDB := func() {
		if dbCloseErr := deps.db.Close(); dbCloseErr != nil {
			zap.S().Errorf("[Server] Ошибка закрытия соединения с БД: %v", dbCloseErr)
		}
	}
	if err = repository.Migrate(ctx, deps.db); err != nil {
		closeDB()
		return nil, fmt.Errorf("ошибка миграции БД: %w", err)
	}

	// 2. Инициализация клиента MinIO
	deps.fileStorage, err = newFileStorage(ctx, storage.MinioConfig{
		Endpoint:        cfg.MinioEndpoint,
		AccessKeyID:     cfg.MinioUser,
		SecretAccessKey: cfg.MinioPassword,
		UseSSL:          cfg.MinioUseSSL,
		BucketName:      cfg.MinioBucket,
		Region:          cfg.MinioRegion,
	})
	if err != nil {
		closeDB()
		return nil, fmt.Errorf("ошибка инициализации клиента MinIO: %w", err)
	}

	// 3. Создание репозиториев
	userRepo := repository.NewUserRepository(deps.db)
	albumRepo := repository.NewAlbumRepository(deps.db)
	photoRepo := repository.NewPhotoRepository(deps.db)

	// 4. Создание сервисов
	authService := services.NewAuthService(userRepo, services.AuthConfig{
		Secret:   []byte(cfg.JWTSecret),
		TokenTTL: cfg.TokenTTL,
	}, time.Now)
	albumService := services.NewAlbumService(albumRepo, photoRepo, deps.fileStorage, time.Now)
	photoService := services.NewPhotoService(albumRepo, photoRepo, deps.fileStorage, services.PhotoConfig{
		MaxPhotoSize: int64(cfg.MaxPhotoSize),
		URLTTL:       cfg.SignedURLTTL,
	}, time.Now)

	deps.census, err = census.New(albumRepo, cfg.CensusCron, time.Now)
	if err != nil {
		closeDB()
		return nil, err
	}

	// 5. Создание обработчиков
	deps.authHandler = handlers.NewAuthHandler(authService)
	deps.albumHandler = handlers.NewAlbumHandler(albumService, photoService, time.Now)
	deps.photoHandler = handlers.NewPhotoHandler(photoService, int64(cfg.MaxPhotoSize))
	deps.countdownHandler = handlers.NewCountdownHandler(albumService, time.Now, 0)

	return deps, nil
}

// setupRouter настраивает и возвращает роутер chi.
func setupRouter(deps *dependencies, cfg *config) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appmiddleware.StripTokenQuery)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Instrument)

	// --- Маршруты --- //
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("pong\n"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		// Публичные маршруты (регистрация, вход)
		r.Post("/register", deps.authHandler.Register)
		r.Post("/login", deps.authHandler.Login)

		// Приватные маршруты (требуют аутентификации)
		r.Group(func(r chi.Router) {
			r.Use(appmiddleware.Authenticator([]byte(cfg.JWTSecret)))
			r.Use(appmiddleware.RateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst))

			r.Route("/albums", func(r chi.Router) {
				r.Post("/", deps.albumHandler.Create)
				r.Get("/", deps.albumHandler.List)
				r.Get("/stats", deps.albumHandler.Stats)

				r.Route("/{albumID}", func(r chi.Router) {
					r.Get("/", deps.albumHandler.Get)
					r.Patch("/", deps.albumHandler.Update)
					r.Delete("/", deps.albumHandler.Delete)
					r.Post("/unseal", deps.albumHandler.Unseal)
					r.Get("/countdown", deps.countdownHandler.Stream)
					r.Get("/photos", deps.photoHandler.List)
					r.Post("/photos", deps.photoHandler.Upload)
				})
			})

			r.Route("/photos/{photoID}", func(r chi.Router) {
				r.Patch("/", deps.photoHandler.UpdateCaption)
				r.Delete("/", deps.photoHandler.Delete)
				r.Get("/url", deps.photoHandler.URL)
			})
		})
	})
	return r
}
