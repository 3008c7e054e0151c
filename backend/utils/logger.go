package utils

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// LoggerConfig configures InitLogger.
type LoggerConfig struct {
	// Format is text or json.
	Format string
	// Output defaults to stdout.
	Output io.Writer
	Level  zerolog.Level
}

// InitLogger builds the process logger.
func InitLogger(config ...LoggerConfig) zerolog.Logger {
	var cfg LoggerConfig
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}

	out := cfg.Output
	if cfg.Format != "json" {
		out = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).
		Level(cfg.Level).
		With().
		Timestamp().
		Str("service", "ailms").
		Logger()
}
