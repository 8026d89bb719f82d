package util

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig: log level, directory and rotation policy
type LogConfig struct {
	Level  string
	ToFile bool
	Dir    string

	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// NewLogger: console slog logger at info level.
func NewLogger() *slog.Logger {
	return NewLoggerWithLevel("info")
}

// NewLoggerWithLevel: console slog logger at the given level.
func NewLoggerWithLevel(level string) *slog.Logger {
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      ParseLogLevel(level),
		TimeFormat: time.RFC3339,
		AddSource:  true,
	}))
}

// NewDiscardLogger: logger that drops everything, for tests and CLI dry runs.
func NewDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// SetupLogger: builds the process logger from cfg and installs it as slog default.
// With ToFile disabled the console logger is returned.
func SetupLogger(cfg LogConfig, fileName string) (*slog.Logger, error) {
	if !cfg.ToFile || cfg.Dir == "" {
		logger := NewLoggerWithLevel(cfg.Level)
		slog.SetDefault(logger)
		return logger, nil
	}
	if cfg.MaxSizeMB <= 0 || cfg.MaxBackups <= 0 || cfg.MaxAgeDays <= 0 {
		return nil, fmt.Errorf("invalid log config: size=%d backups=%d age_days=%d", cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir failed: %w", err)
	}

	logFile := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Dir, fileName),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}

	w := io.MultiWriter(os.Stdout, logFile)
	logger := slog.New(tint.NewHandler(w, &tint.Options{
		Level:      ParseLogLevel(cfg.Level),
		TimeFormat: time.RFC3339,
		AddSource:  true,
		NoColor:    true,
	}))
	slog.SetDefault(logger)
	logger.Info("FILE_LOGGING_ENABLED", slog.String("path", logFile.Filename))
	return logger, nil
}

// ParseLogLevel maps a config level name to slog; unknown names fall back to info.
func ParseLogLevel(level string) slog.Level {
	switch Normalize(level) {
	case "debug", "trace":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "fatal":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
