package main

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

const (
	logDir      = "logs"
	logFileName = "client.log"
)

// Переменные для версии и даты сборки, устанавливаются через ldflags.
var (
	version    = "dev"
	buildDate  = "unknown"
	commitHash = "N/A"
)

// setupLogging направляет логи клиента в logs/client.log, чтобы они не
// смешивались с выводом команд и экраном отсчета.
func setupLogging() (*zap.Logger, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию для логов: %w", err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{filepath.Join(logDir, logFileName)}
	cfg.ErrorOutputPaths = cfg.OutputPaths
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть лог-файл: %w", err)
	}
	return logger, nil
}

func main() {
	logger, err := setupLogging()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		logger = zap.NewNop()
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	root := newRootCmd(newApp(os.Stdout))
	if err = root.Execute(); err != nil {
		zap.S().Errorf("[Client] Команда завершилась с ошибкой: %v", err)
		fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
		os.Exit(1)
	}
}
