// Package logging provides structured logging functionality.
package logging

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"price-tracker/internal/config"
)

// NewLogger creates a logger from the application logging configuration.
func NewLogger(cfg config.LoggingConfig) zerolog.Logger {
	var writers []io.Writer

	if cfg.Console {
		consoleWriter := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		writers = append(writers, consoleWriter)
	}

	if cfg.File && cfg.FilePath != "" {
		logDir := filepath.Dir(cfg.FilePath)
		if err := os.MkdirAll(logDir, 0755); err == nil {
			fileWriter := &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   true,
			}
			writers = append(writers, fileWriter)
		}
	}

	var writer io.Writer
	switch len(writers) {
	case 0:
		writer = os.Stdout
	case 1:
		writer = writers[0]
	default:
		writer = zerolog.MultiLevelWriter(writers...)
	}

	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	return zerolog.New(writer).
		With().
		Timestamp().
		Logger()
}

func parseLevel(level string) zerolog.Level {
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

// SetDebugLevel sets the global log level to debug.
func SetDebugLevel() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
}

// ContextKey is the type for context keys.
type ContextKey string

// LoggerKey is the context key for the logger.
const LoggerKey ContextKey = "logger"

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from context.
func FromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(LoggerKey).(zerolog.Logger); ok {
		return logger
	}
	return zerolog.Nop()
}

// WithStore adds a store key to the logger context.
func WithStore(logger zerolog.Logger, store string) zerolog.Logger {
	return logger.With().Str("store", store).Logger()
}

// WithProduct adds a product name to the logger context.
func WithProduct(logger zerolog.Logger, product string) zerolog.Logger {
	return logger.With().Str("product", product).Logger()
}

// LogFetch logs an upstream fetch.
func LogFetch(logger zerolog.Logger, store, url string, duration time.Duration, err error) {
	event := logger.Debug().
		Str("event", "fetch").
		Str("store", store).
		Str("url", url).
		Dur("duration", duration)

	if err != nil {
		event.Err(err).Msg("Fetch failed")
	} else {
		event.Msg("Fetch completed")
	}
}

// LogObservation logs a collected price observation.
func LogObservation(logger zerolog.Logger, store, product string, price *float64, errMsg string) {
	event := logger.Info().
		Str("event", "observation").
		Str("store", store).
		Str("product", product)

	if price != nil {
		event.Float64("price", *price)
	}
	if errMsg != "" {
		event.Str("error", errMsg)
	}
	event.Msg("Price observed")
}

// LogRun logs collection run statistics.
func LogRun(logger zerolog.Logger, products, priced, errored int, duration time.Duration) {
	logger.Info().
		Str("event", "run").
		Int("products", products).
		Int("priced", priced).
		Int("errored", errored).
		Dur("duration", duration).
		Msg("Collection run finished")
}
