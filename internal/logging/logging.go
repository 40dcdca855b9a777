package logging

import (
	"io"
	"log/slog"
	"os"
)

var level = new(slog.LevelVar)

func Init() {
	level.Set(slog.LevelError) // default: production only shows errors

	if l, ok := os.LookupEnv("LOG_LEVEL"); ok {
		level.Set(ParseLevel(l, slog.LevelError))
	}

	SetOutput(os.Stderr)
}

// ParseLevel maps LOG_LEVEL values to slog levels.
func ParseLevel(s string, fallback slog.Level) slog.Level {
	switch s {
	case "dev", "development", "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "production", "prod":
		return slog.LevelError
	}
	return fallback
}

// SetOutput sends logs to w, keeping the configured level.
func SetOutput(w io.Writer) {
	logger := slog.New(
		slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: level,
		}),
	)
	slog.SetDefault(logger)
}

// ToFile redirects logs to path so they do not draw over the terminal UI.
// The returned function closes the file.
func ToFile(path string) (func() error, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	SetOutput(f)
	return f.Close, nil
}
