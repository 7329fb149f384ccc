// Package logging provides structured logging functionality.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"` // megabytes
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
}

// DefaultLogConfig returns the default logging configuration.
func DefaultLogConfig() LogConfig {
	home, _ := os.UserHomeDir()
	return LogConfig{
		Level:      "info",
		Console:    true,
		File:       false,
		FilePath:   filepath.Join(home, ".config", "option-screener", "logs", "screener.log"),
		MaxSize:    50,
		MaxBackups: 5,
		MaxAge:     30,
	}
}

// NewLogger creates a new logger with default configuration.
func NewLogger() zerolog.Logger {
	return NewLoggerWithConfig(DefaultLogConfig())
}

// NewLoggerWithConfig creates a new logger with the specified configuration.
// Console output goes to stderr so result tables and JSON on stdout stay clean.
func NewLoggerWithConfig(cfg LogConfig) zerolog.Logger {
	var writers []io.Writer

	if cfg.Console {
		consoleWriter := zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
			FormatLevel: func(i interface{}) string {
				if ll, ok := i.(string); ok {
					switch ll {
					case "debug":
						return "\033[36mDBG\033[0m"
					case "info":
						return "\033[32mINF\033[0m"
					case "warn":
						return "\033[33mWRN\033[0m"
					case "error":
						return "\033[31mERR\033[0m"
					default:
						return ll
					}
				}
				return "???"
			},
		}
		writers = append(writers, consoleWriter)
	}

	// File writer with rotation
	if cfg.File && cfg.FilePath != "" {
		logDir := filepath.Dir(cfg.FilePath)
		if err := os.MkdirAll(logDir, 0755); err == nil {
			writers = append(writers, &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   true,
			})
		}
	}

	var writer io.Writer
	switch len(writers) {
	case 0:
		writer = io.Discard
	case 1:
		writer = writers[0]
	default:
		writer = zerolog.MultiLevelWriter(writers...)
	}

	return zerolog.New(writer).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()
}

// ParseLevel maps a level name to a zerolog level. Unknown names map to info.
func ParseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// WithSymbol adds an underlying symbol to the logger context.
func WithSymbol(logger zerolog.Logger, symbol string) zerolog.Logger {
	return logger.With().Str("symbol", symbol).Logger()
}

// WithKind adds a strategy kind to the logger context.
func WithKind(logger zerolog.Logger, kind string) zerolog.Logger {
	return logger.With().Str("kind", kind).Logger()
}

// WithRunID adds a screening run ID to the logger context.
func WithRunID(logger zerolog.Logger, runID string) zerolog.Logger {
	return logger.With().Str("run_id", runID).Logger()
}

// LogRun logs the outcome of a screening run.
func LogRun(logger zerolog.Logger, symbol, rankKey string, accepted, returned int, elapsed time.Duration) {
	logger.Info().
		Str("event", "screen").
		Str("symbol", symbol).
		Str("rank_key", rankKey).
		Int("accepted", accepted).
		Int("returned", returned).
		Dur("elapsed", elapsed).
		Msg("Screening run completed")
}

// LogSnapshot logs a loaded option chain snapshot.
func LogSnapshot(logger zerolog.Logger, path, symbol string, contracts int, spot *float64) {
	event := logger.Debug().
		Str("event", "snapshot").
		Str("path", path).
		Str("symbol", symbol).
		Int("contracts", contracts)
	if spot != nil {
		event = event.Float64("spot", *spot)
	}
	event.Msg("Snapshot loaded")
}
