package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/maynagashev/timelock/server/internal/census"
	"github.com/maynagashev/timelock/server/internal/middleware"
	"github.com/maynagashev/timelock/server/internal/services"
	"github.com/maynagashev/timelock/server/internal/storage"
	"gopkg.in/yaml.v3"
)

const (
	defaultServerPort  = "8080"
	defaultMinioBucket = "timelock-photos"
	defaultLogLevel    = "info"
	minJWTSecretLength = 16

	envConfigFile = "CONFIG_FILE"
	envDotEnvFile = ".env"
)

// SizeBytes - размер в байтах. Принимает "10MiB", "5MB" или число байт.
type SizeBytes int64

// Set разбирает размер из строки.
func (s *SizeBytes) Set(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		*s = 0
		return nil
	}
	v, err := humanize.ParseBytes(raw)
	if err != nil {
		return fmt.Errorf("некорректный размер %q: %w", raw, err)
	}
	*s = SizeBytes(v)
	return nil
}

// UnmarshalYAML позволяет писать размер в YAML в человеческом виде.
func (s *SizeBytes) UnmarshalYAML(node *yaml.Node) error {
	return s.Set(node.Value)
}

func (s SizeBytes) String() string { return humanize.IBytes(uint64(s)) }

// config хранит конфигурацию сервера.
type config struct {
	Port        string `yaml:"port"`
	CertFile    string `yaml:"cert_file"`
	KeyFile     string `yaml:"key_file"`
	DatabaseDSN string `yaml:"database_dsn"`
	LogLevel    string `yaml:"log_level"`

	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"jwt_ttl"`

	MinioEndpoint string `yaml:"minio_endpoint"`
	MinioUser     string `yaml:"minio_user"`
	MinioPassword string `yaml:"minio_password"`
	MinioBucket   string `yaml:"minio_bucket"`
	MinioRegion   string `yaml:"minio_region"`
	MinioUseSSL   bool   `yaml:"minio_use_ssl"`

	MaxPhotoSize SizeBytes     `yaml:"max_photo_size"`
	SignedURLTTL time.Duration `yaml:"signed_url_ttl"`

	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`

	CensusCron string `yaml:"census_cron"`
}

func defaultConfig() *config {
	return &config{
		Port:           defaultServerPort,
		LogLevel:       defaultLogLevel,
		TokenTTL:       services.DefaultTokenTTL,
		MinioBucket:    defaultMinioBucket,
		MaxPhotoSize:   services.DefaultMaxPhotoSize,
		SignedURLTTL:   services.DefaultURLTTL,
		RateLimitRPS:   middleware.DefaultRPS,
		RateLimitBurst: middleware.DefaultBurst,
		CensusCron:     census.DefaultCron,
	}
}

// setting - параметр, который можно задать флагом и переменной окружения.
type setting struct {
	flag  string
	env   string
	usage string
	set   func(cfg *config, value string) error
}

func stringSetting(flagName, env, usage string, field func(*config) *string) setting {
	return setting{flag: flagName, env: env, usage: usage, set: func(cfg *config, v string) error {
		*field(cfg) = v
		return nil
	}}
}

func durationSetting(flagName, env, usage string, field func(*config) *time.Duration) setting {
	return setting{flag: flagName, env: env, usage: usage, set: func(cfg *config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*field(cfg) = d
		return nil
	}}
}

// settings - все параметры сервера. Порядок применения: значения по умолчанию,
// YAML-файл, .env и окружение, флаги.
var settings = []setting{
	stringSetting("port", "SERVER_PORT", "Порт HTTP(S)-сервера",
		func(c *config) *string { return &c.Port }),
	stringSetting("cert-file", "TLS_CERT_FILE", "Путь к файлу TLS-сертификата",
		func(c *config) *string { return &c.CertFile }),
	stringSetting("key-file", "TLS_KEY_FILE", "Путь к файлу TLS-ключа",
		func(c *config) *string { return &c.KeyFile }),
	stringSetting("database-dsn", "DATABASE_DSN", "Строка подключения к БД (postgres://... или sqlite://...)",
		func(c *config) *string { return &c.DatabaseDSN }),
	stringSetting("log-level", "LOG_LEVEL", "Уровень логирования (debug, info, warn, error)",
		func(c *config) *string { return &c.LogLevel }),
	stringSetting("jwt-secret", "JWT_SECRET", "Секрет подписи JWT",
		func(c *config) *string { return &c.JWTSecret }),
	durationSetting("jwt-ttl", "JWT_TTL", "Время жизни JWT",
		func(c *config) *time.Duration { return &c.TokenTTL }),
	stringSetting("minio-endpoint", "MINIO_ENDPOINT", "Адрес MinIO/S3",
		func(c *config) *string { return &c.MinioEndpoint }),
	stringSetting("minio-user", "MINIO_USER", "Ключ доступа MinIO",
		func(c *config) *string { return &c.MinioUser }),
	stringSetting("minio-password", "MINIO_PASSWORD", "Секретный ключ MinIO",
		func(c *config) *string { return &c.MinioPassword }),
	stringSetting("minio-bucket", "MINIO_BUCKET", "Бакет для фотографий",
		func(c *config) *string { return &c.MinioBucket }),
	stringSetting("minio-region", "MINIO_REGION", "Регион бакета",
		func(c *config) *string { return &c.MinioRegion }),
	{flag: "minio-use-ssl", env: "MINIO_USE_SSL", usage: "Подключаться к MinIO по TLS",
		set: func(c *config, v string) error {
			b, err := strconv.ParseBool(v)
			c.MinioUseSSL = b
			return err
		}},
	{flag: "max-photo-size", env: "MAX_PHOTO_SIZE", usage: "Максимальный размер фотографии (например 10MiB)",
		set: func(c *config, v string) error { return c.MaxPhotoSize.Set(v) }},
	durationSetting("signed-url-ttl", "SIGNED_URL_TTL", "Срок жизни подписанной ссылки по умолчанию",
		func(c *config) *time.Duration { return &c.SignedURLTTL }),
	{flag: "rate-limit-rps", env: "RATE_LIMIT_RPS", usage: "Запросов в секунду на пользователя",
		set: func(c *config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			c.RateLimitRPS = f
			return err
		}},
	{flag: "rate-limit-burst", env: "RATE_LIMIT_BURST", usage: "Допустимый всплеск запросов",
		set: func(c *config, v string) error {
			n, err := strconv.Atoi(v)
			c.RateLimitBurst = n
			return err
		}},
	stringSetting("census-cron", "CENSUS_CRON", "Расписание переписи альбомов (cron)",
		func(c *config) *string { return &c.CensusCron }),
}

// parseFlags собирает конфигурацию из файла, окружения и аргументов командной строки.
func parseFlags(args []string) (*config, error) {
	fs := flag.NewFlagSet("timelock-server", flag.ContinueOnError)
	configPath := fs.String("config", "", fmt.Sprintf("Путь к YAML-файлу конфигурации (env: %s)", envConfigFile))
	values := make(map[string]*string, len(settings))
	for _, s := range settings {
		values[s.flag] = fs.String(s.flag, "", fmt.Sprintf("%s (env: %s)", s.usage, s.env))
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Переменные из .env не перекрывают уже заданные в окружении
	if err := godotenv.Load(envDotEnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("ошибка чтения %s: %w", envDotEnvFile, err)
	}

	cfg := defaultConfig()

	path := *configPath
	if path == "" {
		path = os.Getenv(envConfigFile)
	}
	if path != "" {
		if err := loadConfigFile(path, cfg); err != nil {
			return nil, err
		}
	}

	for _, s := range settings {
		if value, ok := os.LookupEnv(s.env); ok && value != "" {
			if err := s.set(cfg, value); err != nil {
				return nil, fmt.Errorf("некорректное значение %s: %w", s.env, err)
			}
		}
	}

	var flagErr error
	fs.Visit(func(f *flag.Flag) {
		for _, s := range settings {
			if s.flag == f.Name && flagErr == nil {
				if err := s.set(cfg, *values[s.flag]); err != nil {
					flagErr = fmt.Errorf("некорректное значение -%s: %w", s.flag, err)
				}
			}
		}
	})
	if flagErr != nil {
		return nil, flagErr
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadConfigFile(path string, cfg *config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("ошибка чтения файла конфигурации: %w", err)
	}
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("ошибка разбора файла конфигурации %s: %w", path, err)
	}
	return nil
}

// validate проверяет обязательные параметры и их согласованность.
func (c *config) validate() error {
	switch {
	case c.DatabaseDSN == "":
		return errors.New("не указана строка подключения к БД (-database-dsn или DATABASE_DSN)")
	case len(c.JWTSecret) < minJWTSecretLength:
		return fmt.Errorf("секрет JWT должен быть не короче %d байт (-jwt-secret или JWT_SECRET)", minJWTSecretLength)
	case c.MinioEndpoint == "":
		return errors.New("не указан адрес MinIO (-minio-endpoint или MINIO_ENDPOINT)")
	case (c.CertFile == "") != (c.KeyFile == ""):
		return errors.New("файлы сертификата и ключа TLS задаются вместе")
	case c.MaxPhotoSize <= 0:
		return errors.New("максимальный размер фотографии должен быть положительным")
	case c.TokenTTL <= 0:
		return errors.New("время жизни JWT должно быть положительным")
	case c.SignedURLTTL <= 0 || c.SignedURLTTL > storage.MaxPresignTTL:
		return fmt.Errorf("срок жизни ссылки должен быть в пределах (0, %s]", storage.MaxPresignTTL)
	}
	return nil
}

// tlsEnabled сообщает, что сервер запускается по HTTPS.
func (c *config) tlsEnabled() bool {
	return c.CertFile != "" && c.KeyFile != ""
}
